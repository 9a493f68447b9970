package models

import (
	"strings"
	"time"
)

// PeriodType гранулярность агрегации пробега
type PeriodType string

const (
	PeriodHour  PeriodType = "hour"
	PeriodDay   PeriodType = "day"
	PeriodMonth PeriodType = "month"
)

// ParsePeriodType разбирает тип периода; неизвестное значение
// трактуется как Day (см. политику обработки ошибок параметров)
func ParsePeriodType(s string) PeriodType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "hour":
		return PeriodHour
	case "month":
		return PeriodMonth
	default:
		return PeriodDay
	}
}

// Next возвращает начало следующего периода после t
func (p PeriodType) Next(t time.Time) time.Time {
	switch p {
	case PeriodHour:
		return t.Add(time.Hour)
	case PeriodMonth:
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location()).AddDate(0, 1, 0)
	default:
		return t.AddDate(0, 0, 1)
	}
}

// Truncate выравнивает t к началу содержащего его периода
func (p PeriodType) Truncate(t time.Time) time.Time {
	switch p {
	case PeriodHour:
		return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), 0, 0, 0, t.Location())
	case PeriodMonth:
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	default:
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	}
}

// MileageBucket пробег за один период агрегации.
// DistanceKm — согласованное значение (одометр при наличии, иначе GPS),
// GpsDistanceKm сохраняется для диагностики расхождений.
type MileageBucket struct {
	PeriodStart     time.Time `json:"period_start"`
	PeriodEnd       time.Time `json:"period_end"`
	DistanceKm      float64   `json:"distance_km"`
	GpsDistanceKm   float64   `json:"gps_distance_km"`
	OdometerDeltaKm *float64  `json:"odometer_delta_km,omitempty"`
	SampleCount     int       `json:"sample_count"`
}

// MileageReport суммарный пробег за произвольный диапазон дат
type MileageReport struct {
	VehicleID       string   `json:"vehicle_id"`
	StartDate       string   `json:"start_date"`
	EndDate         string   `json:"end_date"`
	TotalDistanceKm float64  `json:"total_distance_km"`
	GpsDistanceKm   float64  `json:"gps_distance_km"`
	OdometerDeltaKm *float64 `json:"odometer_delta_km,omitempty"`
	SampleCount     int      `json:"sample_count"`
	NoData          bool     `json:"no_data"`
}

// MileagePeriodReport пробег с разбивкой по периодам
type MileagePeriodReport struct {
	VehicleID       string          `json:"vehicle_id"`
	PeriodType      PeriodType      `json:"period_type"`
	StartDate       string          `json:"start_date"`
	EndDate         string          `json:"end_date"`
	Buckets         []MileageBucket `json:"buckets"`
	TotalDistanceKm float64         `json:"total_distance_km"`
	NoData          bool            `json:"no_data"`
}
