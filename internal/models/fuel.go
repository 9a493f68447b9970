package models

import (
	"time"
)

// FuelEventType классификация перехода уровня топлива между двумя пингами
type FuelEventType string

const (
	FuelEventNormal           FuelEventType = "normal"
	FuelEventRefuel           FuelEventType = "refuel"
	FuelEventTheftAlert       FuelEventType = "theft_alert"
	FuelEventConsumptionSpike FuelEventType = "consumption_spike"
	FuelEventLowFuel          FuelEventType = "low_fuel"
)

// FuelEvent классифицированный топливный сэмпл.
// Каждый сэмпл получает ровно один EventType.
type FuelEvent struct {
	RecordedAt     time.Time     `json:"recorded_at"`
	EventType      FuelEventType `json:"event_type"`
	FuelPercent    float64       `json:"fuel_percent"`
	FuelChange     *float64      `json:"fuel_change,omitempty"` // п.п. относительно предыдущего сэмпла
	RefuelAmountL  *float64      `json:"refuel_amount_l,omitempty"`
	RefuelCost     *float64      `json:"refuel_cost,omitempty"`
	StationGeohash string        `json:"station_geohash,omitempty"` // привязка заправки к месту
	AnomalyReason  string        `json:"anomaly_reason,omitempty"`
}

// FuelReport топливный отчет за диапазон дат
type FuelReport struct {
	VehicleID          string      `json:"vehicle_id"`
	StartDate          string      `json:"start_date"`
	EndDate            string      `json:"end_date"`
	Events             []FuelEvent `json:"events"`
	Refuels            []FuelEvent `json:"refuels"`
	Anomalies          []FuelEvent `json:"anomalies"`
	TotalRefuelL       float64     `json:"total_refuel_l"`
	TotalRefuelCost    float64     `json:"total_refuel_cost"`
	AvgConsumptionL100 *float64    `json:"avg_consumption_l_100km,omitempty"`
	NoData             bool        `json:"no_data"`
}
