package models

// FleetKPI ключевые показатели парка за один календарный месяц
type FleetKPI struct {
	TotalDistanceKm float64  `json:"total_distance_km"`
	FuelCost        float64  `json:"fuel_cost"`
	MaintenanceCost float64  `json:"maintenance_cost"`
	AlertCount      int      `json:"alert_count"`
	ActiveVehicles  int      `json:"active_vehicles"`
	UtilizationPct  float64  `json:"utilization_pct"` // доля ТС с телеметрией за месяц
	AvgDrivingScore *float64 `json:"avg_driving_score,omitempty"`
}

// KPIDeltas относительные изменения KPI в процентах.
// nil означает отсутствие базы сравнения (ТС еще не были зарегистрированы,
// данных за период нет) — ноль здесь никогда не подменяет отсутствие данных.
type KPIDeltas struct {
	DistancePct        *float64 `json:"distance_pct,omitempty"`
	FuelCostPct        *float64 `json:"fuel_cost_pct,omitempty"`
	MaintenanceCostPct *float64 `json:"maintenance_cost_pct,omitempty"`
	AlertCountPct      *float64 `json:"alert_count_pct,omitempty"`
	UtilizationPct     *float64 `json:"utilization_pct,omitempty"`
}

// VehicleMonthlySummary сводка по одному ТС внутри месячного отчета
type VehicleMonthlySummary struct {
	VehicleID    string   `json:"vehicle_id"`
	Name         string   `json:"name"`
	PlateNumber  string   `json:"plate_number"`
	DistanceKm   float64  `json:"distance_km"`
	FuelCost     float64  `json:"fuel_cost"`
	AlertCount   int      `json:"alert_count"`
	DrivingScore *float64 `json:"driving_score,omitempty"`
	HasTelemetry bool     `json:"has_telemetry"`
}

// MonthlyFleetReport месячный отчет по парку с MoM/YoY сравнениями
type MonthlyFleetReport struct {
	CompanyID      string                  `json:"company_id"`
	Year           int                     `json:"year"`
	Month          int                     `json:"month"` // 1-12
	VehicleCount   int                     `json:"vehicle_count"`
	KPI            FleetKPI                `json:"kpi"`
	MonthOverMonth KPIDeltas               `json:"month_over_month"`
	YearOverYear   KPIDeltas               `json:"year_over_year"`
	Vehicles       []VehicleMonthlySummary `json:"vehicles"`
	NoData         bool                    `json:"no_data"`
}
