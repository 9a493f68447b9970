package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetlab/telematics-backend/internal/config"
	"github.com/fleetlab/telematics-backend/internal/models"
	"github.com/fleetlab/telematics-backend/internal/repository"
	"github.com/fleetlab/telematics-backend/internal/service"
	"github.com/fleetlab/telematics-backend/pkg/utils"
)

// fakePositions хранилище позиций в памяти
type fakePositions struct {
	positions map[string][]models.Position
}

func (f *fakePositions) Ping(ctx context.Context) error { return nil }
func (f *fakePositions) Close() error                   { return nil }

func (f *fakePositions) GetPositionRange(ctx context.Context, deviceID string, from, to time.Time, buf []models.Position) ([]models.Position, error) {
	for _, p := range f.positions[deviceID] {
		if !p.RecordedAt.Before(from) && p.RecordedAt.Before(to) {
			buf = append(buf, p)
		}
	}
	return buf, nil
}

// fakeDirectory справочник ТС в памяти
type fakeDirectory struct {
	vehicles map[string]*models.Vehicle
}

func (f *fakeDirectory) GetVehicle(ctx context.Context, vehicleID string) (*models.Vehicle, error) {
	if v, ok := f.vehicles[vehicleID]; ok {
		return v, nil
	}
	return nil, repository.ErrNotFound
}

func (f *fakeDirectory) ListVehicles(ctx context.Context, filter repository.VehicleFilter) ([]*models.Vehicle, error) {
	var out []*models.Vehicle
	for _, v := range f.vehicles {
		if filter.CompanyID != "" && v.CompanyID != filter.CompanyID {
			continue
		}
		if filter.VehicleType != "" && v.VehicleType != filter.VehicleType {
			continue
		}
		if filter.Department != "" && v.Department != filter.Department {
			continue
		}
		if len(filter.VehicleIDs) > 0 {
			found := false
			for _, id := range filter.VehicleIDs {
				if id == v.ID {
					found = true
					break
				}
			}
			if !found {
				continue
			}
		}
		out = append(out, v)
	}
	return out, nil
}

func (f *fakeDirectory) GetCostEntries(ctx context.Context, vehicleIDs []string, from, to time.Time) ([]models.CostEntry, error) {
	return nil, nil
}

// fakeLatest последняя позиция в памяти
type fakeLatest struct {
	positions map[string]*models.Position
}

func (f *fakeLatest) GetLatestPosition(ctx context.Context, deviceID string) (*models.Position, error) {
	if p, ok := f.positions[deviceID]; ok {
		return p, nil
	}
	return nil, repository.ErrNotFound
}

func testServerConfig() *config.Config {
	return &config.Config{
		Environment: "test",
		Server: config.ServerConfig{
			Address:      ":0",
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  10 * time.Second,
		},
		Analytics: config.AnalyticsConfig{
			MovingThresholdKph:      5.0,
			MinGapMovingSec:         5,
			MinGapStoppedSec:        20,
			StopSpeedThresholdKph:   3.0,
			MinStopDurationSec:      120,
			MileageToleranceKm:      1.0,
			RefuelMinDeltaPct:       10.0,
			TheftMinDropPct:         8.0,
			SpikeConsumptionRatio:   2.0,
			LowFuelFloorPct:         15.0,
			FuelWindowMaxGap:        30 * time.Minute,
			StationGeohashPrecision: 6,
			HarshBrakingKphPerSec:   12.0,
			HarshAccelKphPerSec:     10.0,
			SpeedingLimitKph:        110.0,
			FleetWorkers:            2,
		},
	}
}

func setupTestServer(t *testing.T, maintenanceOn bool) *Server {
	t.Helper()

	logger := utils.NewLogger("error", "text")

	speed := 45.0
	device := "dev-1"
	day := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)
	var track []models.Position
	for i := 0; i < 60; i++ {
		track = append(track, models.Position{
			DeviceID:   device,
			RecordedAt: day.Add(10*time.Hour + time.Duration(i*10)*time.Second),
			Point:      models.GeoPoint{Latitude: 55.75 + float64(i)*0.0001, Longitude: 37.61},
			SpeedKph:   &speed,
		})
	}

	positions := &fakePositions{positions: map[string][]models.Position{device: track}}
	directory := &fakeDirectory{vehicles: map[string]*models.Vehicle{
		"veh-1": {
			ID:            "veh-1",
			CompanyID:     "comp-1",
			DeviceID:      device,
			VehicleType:   "truck",
			Department:    "north",
			TankCapacityL: 100,
			FuelPricePerL: 1.5,
			RegisteredAt:  time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
		},
		"veh-2": {
			ID:            "veh-2",
			CompanyID:     "comp-1",
			DeviceID:      "dev-2",
			VehicleType:   "van",
			Department:    "south",
			TankCapacityL: 60,
			FuelPricePerL: 1.5,
			RegisteredAt:  time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
		},
	}}
	latest := &fakeLatest{positions: map[string]*models.Position{
		device: &track[len(track)-1],
	}}

	stateFile := ""
	if maintenanceOn {
		dir := t.TempDir()
		stateFile = filepath.Join(dir, "maintenance.json")
		require.NoError(t, os.WriteFile(stateFile, []byte(`{"enabled":true,"message":"backfill in progress"}`), 0o644))
	}
	runtime, err := config.NewRuntimeState(stateFile, logger)
	require.NoError(t, err)
	t.Cleanup(func() { runtime.Close() })

	cfg := testServerConfig()
	reports := service.NewReportService(cfg, positions, directory, nil, logger)
	restHandler := NewRESTHandler(reports, latest, logger)
	// Фиксированные "сейчас" накрывают тестовый трек окном по умолчанию
	restHandler.now = func() time.Time { return time.Date(2025, 6, 20, 12, 0, 0, 0, time.UTC) }

	return NewServer(cfg, runtime, restHandler, positions, logger)
}

func doRequest(s *Server, method, path string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

var premiumHeader = map[string]string{"X-Subscription-Tier": "premium"}

func TestDailyActivityEndpoint(t *testing.T) {
	s := setupTestServer(t, false)

	w := doRequest(s, "GET", "/api/v1/vehicles/veh-1/activity/daily?date=2025-06-10", premiumHeader)
	require.Equal(t, http.StatusOK, w.Code)

	var report models.DailyActivityReport
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	assert.Equal(t, "veh-1", report.VehicleID)
	assert.False(t, report.NoData)

	var total int64
	for _, seg := range report.Segments {
		total += seg.DurationSec
	}
	assert.Equal(t, int64(86400), total)
}

func TestDailyActivityInvalidDate(t *testing.T) {
	s := setupTestServer(t, false)

	w := doRequest(s, "GET", "/api/v1/vehicles/veh-1/activity/daily?date=tomorrow", premiumHeader)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid_date")
}

func TestUnknownVehicleReturns404(t *testing.T) {
	s := setupTestServer(t, false)

	w := doRequest(s, "GET", "/api/v1/vehicles/ghost/activity/daily?date=2025-06-10", premiumHeader)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "vehicle_not_found")
}

func TestMileageEndpointUnknownPeriodFallsBackToDay(t *testing.T) {
	s := setupTestServer(t, false)

	w := doRequest(s, "GET", "/api/v1/vehicles/veh-1/mileage/periods?from=2025-06-09&to=2025-06-11&period=fortnight", premiumHeader)
	require.Equal(t, http.StatusOK, w.Code)

	var report models.MileagePeriodReport
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	assert.Equal(t, models.PeriodDay, report.PeriodType)
	// Плотная сетка: три дня диапазона присутствуют все
	assert.Len(t, report.Buckets, 3)
}

func TestCapabilityGating(t *testing.T) {
	s := setupTestServer(t, false)

	// Без заголовка тарифа действует basic: топливный отчет закрыт
	w := doRequest(s, "GET", "/api/v1/vehicles/veh-1/fuel?from=2025-06-09&to=2025-06-11", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "capability_required")

	// Но пробег в basic доступен
	w = doRequest(s, "GET", "/api/v1/vehicles/veh-1/mileage?from=2025-06-09&to=2025-06-11", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	// Premium открывает все отчеты
	w = doRequest(s, "GET", "/api/v1/vehicles/veh-1/fuel?from=2025-06-09&to=2025-06-11", premiumHeader)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestFuelEndpointDefaultsToTrailingWindow(t *testing.T) {
	s := setupTestServer(t, false)

	// Без from/to отчет строится за последние 30 дней
	w := doRequest(s, "GET", "/api/v1/vehicles/veh-1/fuel", premiumHeader)
	require.Equal(t, http.StatusOK, w.Code)

	var report models.FuelReport
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	assert.Equal(t, "2025-05-22", report.StartDate)
	assert.Equal(t, "2025-06-21", report.EndDate)
}

func TestMonthlyFleetReportDepartmentFilter(t *testing.T) {
	s := setupTestServer(t, false)

	w := doRequest(s, "GET", "/api/v1/fleet/comp-1/reports/monthly?year=2025&month=6", premiumHeader)
	require.Equal(t, http.StatusOK, w.Code)

	var full models.MonthlyFleetReport
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &full))
	assert.Equal(t, 2, full.VehicleCount)

	// Фильтр подразделения сужает парк до северного ТС
	w = doRequest(s, "GET", "/api/v1/fleet/comp-1/reports/monthly?year=2025&month=6&department=north", premiumHeader)
	require.Equal(t, http.StatusOK, w.Code)

	var north models.MonthlyFleetReport
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &north))
	assert.Equal(t, 1, north.VehicleCount)
	require.Len(t, north.Vehicles, 1)
	assert.Equal(t, "veh-1", north.Vehicles[0].VehicleID)

	// Явный список ТС также ограничивает выборку
	w = doRequest(s, "GET", "/api/v1/fleet/comp-1/reports/monthly?year=2025&month=6&vehicle_ids=veh-2", premiumHeader)
	require.Equal(t, http.StatusOK, w.Code)

	var subset models.MonthlyFleetReport
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &subset))
	assert.Equal(t, 1, subset.VehicleCount)
}

func TestMaintenanceModeCloses(t *testing.T) {
	s := setupTestServer(t, true)

	w := doRequest(s, "GET", "/api/v1/vehicles/veh-1/mileage?from=2025-06-09&to=2025-06-11", premiumHeader)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "backfill in progress")

	// Health остается доступен для оркестратора
	w = doRequest(s, "GET", "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestLatestPositionEndpoint(t *testing.T) {
	s := setupTestServer(t, false)

	w := doRequest(s, "GET", "/api/v1/vehicles/veh-1/position/latest", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "dev-1")
}

func TestRequestIDHeader(t *testing.T) {
	s := setupTestServer(t, false)

	w := doRequest(s, "GET", "/health", nil)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	w = doRequest(s, "GET", "/health", map[string]string{"X-Request-ID": "abc-123"})
	assert.Equal(t, "abc-123", w.Header().Get("X-Request-ID"))
}
