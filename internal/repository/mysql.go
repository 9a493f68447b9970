package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"github.com/fleetlab/telematics-backend/internal/config"
	"github.com/fleetlab/telematics-backend/internal/models"
	"github.com/fleetlab/telematics-backend/pkg/utils"
)

// MySQLRepository репозиторий для работы с MySQL: поток позиций,
// справочник ТС и учет затрат
type MySQLRepository struct {
	db     *sql.DB
	logger *utils.Logger
	config *config.MySQLConfig
}

// NewMySQLRepository создает новый MySQL репозиторий
func NewMySQLRepository(cfg *config.MySQLConfig, logger *utils.Logger) (*MySQLRepository, error) {
	if cfg == nil {
		return nil, fmt.Errorf("mysql config cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}
	if cfg.DSN == "" {
		return nil, fmt.Errorf("mysql DSN is required")
	}

	db, err := sql.Open("mysql", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL connection: %w", err)
	}

	// Настройки connection pool
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetConnMaxLifetime(1 * time.Hour)

	return &MySQLRepository{
		db:     db,
		logger: logger,
		config: cfg,
	}, nil
}

// Ping проверяет соединение с MySQL
func (r *MySQLRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close закрывает соединение с MySQL
func (r *MySQLRepository) Close() error {
	return r.db.Close()
}

// GetPositionRange читает позиции устройства за [from, to) в порядке
// recorded_at, дописывая их в buf
func (r *MySQLRepository) GetPositionRange(ctx context.Context, deviceID string, from, to time.Time, buf []models.Position) ([]models.Position, error) {
	query := `
		SELECT
			device_id,
			recorded_at,
			latitude,
			longitude,
			speed_kph,
			course_deg,
			ignition_on,
			fuel_percent,
			odometer_km,
			temperature_c
		FROM positions
		WHERE device_id = ? AND recorded_at >= ? AND recorded_at < ?
		ORDER BY recorded_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query, deviceID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query position range: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			p           models.Position
			speed       sql.NullFloat64
			course      sql.NullFloat64
			ignition    sql.NullBool
			fuel        sql.NullFloat64
			odometer    sql.NullFloat64
			temperature sql.NullFloat64
		)

		err := rows.Scan(
			&p.DeviceID, &p.RecordedAt,
			&p.Point.Latitude, &p.Point.Longitude,
			&speed, &course, &ignition, &fuel, &odometer, &temperature,
		)
		if err != nil {
			r.logger.WithError(err).Warn("Failed to scan position row")
			continue
		}

		if speed.Valid {
			p.SpeedKph = &speed.Float64
		}
		if course.Valid {
			p.CourseDeg = &course.Float64
		}
		if ignition.Valid {
			p.IgnitionOn = &ignition.Bool
		}
		if fuel.Valid {
			p.FuelPercent = &fuel.Float64
		}
		if odometer.Valid {
			p.OdometerKm = &odometer.Float64
		}
		if temperature.Valid {
			p.TemperatureC = &temperature.Float64
		}

		buf = append(buf, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("position rows iteration failed: %w", err)
	}

	return buf, nil
}

// GetVehicle возвращает ТС по идентификатору
func (r *MySQLRepository) GetVehicle(ctx context.Context, vehicleID string) (*models.Vehicle, error) {
	query := `
		SELECT
			id, company_id, device_id,
			COALESCE(name, '') as name,
			COALESCE(plate_number, '') as plate_number,
			COALESCE(vehicle_type, '') as vehicle_type,
			COALESCE(department, '') as department,
			COALESCE(tank_capacity_l, 0) as tank_capacity_l,
			COALESCE(fuel_price_per_l, 0) as fuel_price_per_l,
			registered_at
		FROM vehicles
		WHERE id = ?
	`

	var v models.Vehicle
	err := r.db.QueryRowContext(ctx, query, vehicleID).Scan(
		&v.ID, &v.CompanyID, &v.DeviceID,
		&v.Name, &v.PlateNumber, &v.VehicleType, &v.Department,
		&v.TankCapacityL, &v.FuelPricePerL, &v.RegisteredAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query vehicle: %w", err)
	}

	return &v, nil
}

// ListVehicles возвращает ТС, удовлетворяющие фильтру
func (r *MySQLRepository) ListVehicles(ctx context.Context, filter VehicleFilter) ([]*models.Vehicle, error) {
	query := `
		SELECT
			id, company_id, device_id,
			COALESCE(name, '') as name,
			COALESCE(plate_number, '') as plate_number,
			COALESCE(vehicle_type, '') as vehicle_type,
			COALESCE(department, '') as department,
			COALESCE(tank_capacity_l, 0) as tank_capacity_l,
			COALESCE(fuel_price_per_l, 0) as fuel_price_per_l,
			registered_at
		FROM vehicles
		WHERE 1=1
	`
	var args []interface{}

	if filter.CompanyID != "" {
		query += " AND company_id = ?"
		args = append(args, filter.CompanyID)
	}
	if filter.VehicleType != "" {
		query += " AND vehicle_type = ?"
		args = append(args, filter.VehicleType)
	}
	if filter.Department != "" {
		query += " AND department = ?"
		args = append(args, filter.Department)
	}
	if len(filter.VehicleIDs) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(filter.VehicleIDs)), ",")
		query += " AND id IN (" + placeholders + ")"
		for _, id := range filter.VehicleIDs {
			args = append(args, id)
		}
	}

	query += " ORDER BY id ASC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query vehicles: %w", err)
	}
	defer rows.Close()

	var vehicles []*models.Vehicle
	for rows.Next() {
		var v models.Vehicle
		err := rows.Scan(
			&v.ID, &v.CompanyID, &v.DeviceID,
			&v.Name, &v.PlateNumber, &v.VehicleType, &v.Department,
			&v.TankCapacityL, &v.FuelPricePerL, &v.RegisteredAt,
		)
		if err != nil {
			r.logger.WithError(err).Warn("Failed to scan vehicle row")
			continue
		}
		vehicles = append(vehicles, &v)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("vehicle rows iteration failed: %w", err)
	}

	return vehicles, nil
}

// GetCostEntries возвращает записи затрат по списку ТС за [from, to)
func (r *MySQLRepository) GetCostEntries(ctx context.Context, vehicleIDs []string, from, to time.Time) ([]models.CostEntry, error) {
	if len(vehicleIDs) == 0 {
		return nil, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(vehicleIDs)), ",")
	query := `
		SELECT vehicle_id, category, amount, recorded_at
		FROM cost_entries
		WHERE vehicle_id IN (` + placeholders + `) AND recorded_at >= ? AND recorded_at < ?
		ORDER BY recorded_at ASC
	`

	args := make([]interface{}, 0, len(vehicleIDs)+2)
	for _, id := range vehicleIDs {
		args = append(args, id)
	}
	args = append(args, from, to)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query cost entries: %w", err)
	}
	defer rows.Close()

	var entries []models.CostEntry
	for rows.Next() {
		var e models.CostEntry
		if err := rows.Scan(&e.VehicleID, &e.Category, &e.Amount, &e.RecordedAt); err != nil {
			r.logger.WithError(err).Warn("Failed to scan cost entry row")
			continue
		}
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("cost entry rows iteration failed: %w", err)
	}

	return entries, nil
}
