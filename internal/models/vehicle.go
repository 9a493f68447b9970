package models

import (
	"time"
)

// Vehicle запись справочника транспортных средств.
// Справочник (vehicleId -> deviceId, принадлежность компании) ведется
// внешней системой и читается здесь как доверенное отображение.
type Vehicle struct {
	ID            string    `json:"id"`
	CompanyID     string    `json:"company_id"`
	DeviceID      string    `json:"device_id"`
	Name          string    `json:"name"`
	PlateNumber   string    `json:"plate_number"`
	VehicleType   string    `json:"vehicle_type"`
	Department    string    `json:"department"`
	TankCapacityL float64   `json:"tank_capacity_l"`
	FuelPricePerL float64   `json:"fuel_price_per_l"`
	RegisteredAt  time.Time `json:"registered_at"`
}

// CostEntry запись о затратах (ТО, ремонт, топливо) из внешнего учета
type CostEntry struct {
	VehicleID  string    `json:"vehicle_id"`
	Category   string    `json:"category"` // maintenance, fuel, other
	Amount     float64   `json:"amount"`
	RecordedAt time.Time `json:"recorded_at"`
}
