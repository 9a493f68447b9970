package models

import (
	"time"
)

// SegmentType тип сегмента активности
type SegmentType string

const (
	SegmentDrive SegmentType = "drive"
	SegmentStop  SegmentType = "stop"
)

// Segment представляет максимальный непрерывный интервал одного состояния
// движения (Drive/Stop) внутри суток. Сегменты одного дня упорядочены,
// не пересекаются и покрывают сутки целиком.
type Segment struct {
	Type        SegmentType `json:"type"`
	StartAt     time.Time   `json:"start_at"`
	EndAt       time.Time   `json:"end_at"`
	DurationSec int64       `json:"duration_sec"`
	DistanceKm  float64     `json:"distance_km"`
	AvgSpeedKph *float64    `json:"avg_speed_kph,omitempty"`
	MaxSpeedKph *float64    `json:"max_speed_kph,omitempty"`
	SampleCount int         `json:"sample_count"`
}

// Duration возвращает длительность сегмента
func (s Segment) Duration() time.Duration {
	return s.EndAt.Sub(s.StartAt)
}

// DailyActivityReport отчет активности за одни календарные сутки
type DailyActivityReport struct {
	VehicleID       string    `json:"vehicle_id"`
	DeviceID        string    `json:"device_id"`
	Date            string    `json:"date"` // YYYY-MM-DD
	Segments        []Segment `json:"segments"`
	DriveCount      int       `json:"drive_count"`
	StopCount       int       `json:"stop_count"`
	DriveTimeSec    int64     `json:"drive_time_sec"`
	StopTimeSec     int64     `json:"stop_time_sec"`
	TotalDistanceKm float64   `json:"total_distance_km"`
	MaxSpeedKph     *float64  `json:"max_speed_kph,omitempty"`
	SampleCount     int       `json:"sample_count"`
	NoData          bool      `json:"no_data"`
}
