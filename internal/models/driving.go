package models

import (
	"time"
)

// DrivingEventType тип дискретного события вождения
type DrivingEventType string

const (
	DrivingEventHarshBraking      DrivingEventType = "harsh_braking"
	DrivingEventHarshAcceleration DrivingEventType = "harsh_acceleration"
	DrivingEventSpeeding          DrivingEventType = "speeding"
)

// DrivingEvent дискретное событие вождения, выявленное из дельт
// скорости/курса отфильтрованного потока
type DrivingEvent struct {
	Type      DrivingEventType `json:"type"`
	Timestamp time.Time        `json:"timestamp"`
	SpeedKph  float64          `json:"speed_kph"`
	Severity  float64          `json:"severity"` // превышение порога в его же единицах
}

// DrivingScore оценка вождения за окно. Вычисляется по требованию,
// никогда не хранится как изменяемое состояние.
type DrivingScore struct {
	VehicleID   string                   `json:"vehicle_id,omitempty"`
	StartDate   string                   `json:"start_date,omitempty"`
	EndDate     string                   `json:"end_date,omitempty"`
	Score       float64                  `json:"score"` // [0,100]
	TotalEvents int                      `json:"total_events"`
	EventCounts map[DrivingEventType]int `json:"event_counts"`
	DailyScores []DailyDrivingScore      `json:"daily_scores,omitempty"`
	NoData      bool                     `json:"no_data"`
}

// DailyDrivingScore оценка за одни сутки диапазона; дни независимы,
// сглаживание между днями не применяется
type DailyDrivingScore struct {
	Date        string  `json:"date"` // YYYY-MM-DD
	Score       float64 `json:"score"`
	TotalEvents int     `json:"total_events"`
}
