package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/fleetlab/telematics-backend/internal/analytics"
	"github.com/fleetlab/telematics-backend/internal/config"
	"github.com/fleetlab/telematics-backend/internal/filter"
	"github.com/fleetlab/telematics-backend/internal/metrics"
	"github.com/fleetlab/telematics-backend/internal/models"
	"github.com/fleetlab/telematics-backend/internal/repository"
	"github.com/fleetlab/telematics-backend/pkg/pool"
	"github.com/fleetlab/telematics-backend/pkg/utils"
)

// Ошибки сервиса отчетов
var (
	ErrVehicleNotFound = errors.New("vehicle not found")
	ErrInvalidRange    = errors.New("invalid date range")
)

const dateLayout = "2006-01-02"

// ReportService строит аналитические отчеты по телеметрии парка.
// Все отчеты вычисляются по требованию из сырого потока позиций;
// сервис не хранит производного состояния между вызовами.
type ReportService struct {
	positions repository.PositionStore
	directory repository.Directory
	cache     *ReportCache
	logger    *utils.Logger

	gapFilter *filter.GapFilter
	segmenter *analytics.TripSegmenter
	mileage   *analytics.MileageAggregator
	fuel      *analytics.FuelAnomalyDetector
	driving   *analytics.DrivingAnalyzer

	fleetWorkers int

	// Подменяется в тестах для детерминированного "текущего" месяца
	now func() time.Time
}

// NewReportService создает сервис отчетов, собирая аналитический
// конвейер из настроек
func NewReportService(cfg *config.Config, positions repository.PositionStore, directory repository.Directory, cache *ReportCache, logger *utils.Logger) *ReportService {
	a := &cfg.Analytics

	gapCfg := &filter.GapFilterConfig{
		MovingThresholdKph: a.MovingThresholdKph,
		MinGapMoving:       time.Duration(a.MinGapMovingSec) * time.Second,
		MinGapStopped:      time.Duration(a.MinGapStoppedSec) * time.Second,
	}

	segCfg := analytics.DefaultSegmenterConfig()
	segCfg.StopSpeedThresholdKph = a.StopSpeedThresholdKph
	segCfg.MinStopDuration = time.Duration(a.MinStopDurationSec) * time.Second

	mileageCfg := &analytics.MileageConfig{ToleranceKm: a.MileageToleranceKm}

	fuelCfg := &analytics.FuelDetectorConfig{
		RefuelMinDeltaPct:       a.RefuelMinDeltaPct,
		TheftMinDropPct:         a.TheftMinDropPct,
		SpikeConsumptionRatio:   a.SpikeConsumptionRatio,
		LowFuelFloorPct:         a.LowFuelFloorPct,
		WindowMaxGap:            a.FuelWindowMaxGap,
		NoDistanceKm:            analytics.DefaultFuelDetectorConfig().NoDistanceKm,
		StationGeohashPrecision: a.StationGeohashPrecision,
	}

	drivingCfg := analytics.DefaultDrivingConfig()
	drivingCfg.HarshBrakingKphPerSec = a.HarshBrakingKphPerSec
	drivingCfg.HarshAccelKphPerSec = a.HarshAccelKphPerSec
	drivingCfg.SpeedingLimitKph = a.SpeedingLimitKph

	workers := a.FleetWorkers
	if workers <= 0 {
		workers = 1
	}

	if cache == nil {
		cache = NewReportCache(nil, 0, false, logger)
	}

	return &ReportService{
		positions:    positions,
		directory:    directory,
		cache:        cache,
		logger:       logger,
		gapFilter:    filter.NewGapFilter(gapCfg, logger),
		segmenter:    analytics.NewTripSegmenter(segCfg, logger),
		mileage:      analytics.NewMileageAggregator(mileageCfg, logger),
		fuel:         analytics.NewFuelAnomalyDetector(fuelCfg, logger),
		driving:      analytics.NewDrivingAnalyzer(drivingCfg, logger),
		fleetWorkers: workers,
		now:          time.Now,
	}
}

// ResolveVehicle находит ТС в справочнике
func (s *ReportService) ResolveVehicle(ctx context.Context, vehicleID string) (*models.Vehicle, error) {
	v, err := s.directory.GetVehicle(ctx, vehicleID)
	if err == repository.ErrNotFound {
		return nil, ErrVehicleNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve vehicle %s: %w", vehicleID, err)
	}
	return v, nil
}

// loadFiltered читает сырой диапазон позиций через пул буферов и
// прогоняет его через гэп-фильтр. Возвращаемый слайс не алиасит буфер пула.
func (s *ReportService) loadFiltered(ctx context.Context, deviceID string, from, to time.Time) ([]models.Position, error) {
	bufPtr := pool.Global.GetPositionSlice()
	defer pool.Global.PutPositionSlice(bufPtr)

	raw, err := s.positions.GetPositionRange(ctx, deviceID, from, to, *bufPtr)
	if err != nil {
		return nil, fmt.Errorf("failed to load positions for %s: %w", deviceID, err)
	}
	*bufPtr = raw[:0]

	result := s.gapFilter.Filter(raw)
	filtered := result.Positions
	if len(raw) <= 1 {
		// Короткий вход фильтр возвращает как есть, снимаем алиас на буфер
		filtered = append([]models.Position(nil), filtered...)
	}

	metrics.FilterPositionsDropped.WithLabelValues("moving").Add(float64(result.Statistics.DroppedMoving))
	metrics.FilterPositionsDropped.WithLabelValues("stopped").Add(float64(result.Statistics.DroppedStopped))

	return filtered, nil
}

// GetDailyActivityReport строит отчет активности ТС за одни календарные
// сутки UTC: упорядоченные Drive/Stop сегменты, покрывающие 24 часа
func (s *ReportService) GetDailyActivityReport(ctx context.Context, vehicleID string, date time.Time) (*models.DailyActivityReport, error) {
	start := time.Now()
	defer func() {
		metrics.ReportDuration.WithLabelValues("daily_activity").Observe(time.Since(start).Seconds())
	}()

	vehicle, err := s.ResolveVehicle(ctx, vehicleID)
	if err != nil {
		return nil, err
	}

	dayStart := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	dayEnd := dayStart.AddDate(0, 0, 1)

	key := CacheKey("daily_activity", vehicleID, dayStart.Format(dateLayout))
	var cached models.DailyActivityReport
	if s.cache.Get(ctx, "daily_activity", key, &cached) {
		return &cached, nil
	}

	filtered, err := s.loadFiltered(ctx, vehicle.DeviceID, dayStart, dayEnd)
	if err != nil {
		metrics.ReportErrors.WithLabelValues("daily_activity").Inc()
		return nil, err
	}

	segments := s.segmenter.Segment(filtered, dayStart)

	report := &models.DailyActivityReport{
		VehicleID:   vehicleID,
		DeviceID:    vehicle.DeviceID,
		Date:        dayStart.Format(dateLayout),
		Segments:    segments,
		SampleCount: len(filtered),
		NoData:      len(filtered) == 0,
	}

	for _, seg := range segments {
		switch seg.Type {
		case models.SegmentDrive:
			report.DriveCount++
			report.DriveTimeSec += seg.DurationSec
			report.TotalDistanceKm += seg.DistanceKm
		case models.SegmentStop:
			report.StopCount++
			report.StopTimeSec += seg.DurationSec
		}
		if seg.MaxSpeedKph != nil && (report.MaxSpeedKph == nil || *seg.MaxSpeedKph > *report.MaxSpeedKph) {
			v := *seg.MaxSpeedKph
			report.MaxSpeedKph = &v
		}
	}

	s.cache.Put(ctx, "daily_activity", key, report)
	return report, nil
}

// GetMileageReport возвращает суммарный пробег ТС за диапазон дат [from, to)
func (s *ReportService) GetMileageReport(ctx context.Context, vehicleID string, from, to time.Time) (*models.MileageReport, error) {
	start := time.Now()
	defer func() {
		metrics.ReportDuration.WithLabelValues("mileage").Observe(time.Since(start).Seconds())
	}()

	if !to.After(from) {
		return nil, ErrInvalidRange
	}

	vehicle, err := s.ResolveVehicle(ctx, vehicleID)
	if err != nil {
		return nil, err
	}

	key := CacheKey("mileage", vehicleID, from.Format(time.RFC3339), to.Format(time.RFC3339))
	var cached models.MileageReport
	if s.cache.Get(ctx, "mileage", key, &cached) {
		return &cached, nil
	}

	filtered, err := s.loadFiltered(ctx, vehicle.DeviceID, from, to)
	if err != nil {
		metrics.ReportErrors.WithLabelValues("mileage").Inc()
		return nil, err
	}

	report := &models.MileageReport{
		VehicleID:   vehicleID,
		StartDate:   from.Format(dateLayout),
		EndDate:     to.Format(dateLayout),
		SampleCount: len(filtered),
		NoData:      len(filtered) == 0,
	}

	report.GpsDistanceKm = models.TotalDistanceKm(filtered)
	report.TotalDistanceKm = report.GpsDistanceKm

	if delta, ok := models.OdometerDeltaKm(filtered); ok {
		report.OdometerDeltaKm = &delta
		// Одометру доверяем больше: GPS-расстояние накапливает шум на стоянках
		report.TotalDistanceKm = delta
		if math.Abs(delta-report.GpsDistanceKm) > s.mileage.ToleranceKm() {
			s.logger.WithFields(map[string]interface{}{
				"vehicle_id": vehicleID,
				"gps_km":     report.GpsDistanceKm,
				"odo_km":     delta,
			}).Warn("GPS and odometer mileage diverge beyond tolerance")
		}
	}

	s.cache.Put(ctx, "mileage", key, report)
	return report, nil
}

// GetMileagePeriodReport возвращает пробег с плотной разбивкой по периодам.
// Пустые периоды присутствуют в ответе с нулевой дистанцией.
func (s *ReportService) GetMileagePeriodReport(ctx context.Context, vehicleID string, from, to time.Time, period models.PeriodType) (*models.MileagePeriodReport, error) {
	start := time.Now()
	defer func() {
		metrics.ReportDuration.WithLabelValues("mileage_period").Observe(time.Since(start).Seconds())
	}()

	if !to.After(from) {
		return nil, ErrInvalidRange
	}

	vehicle, err := s.ResolveVehicle(ctx, vehicleID)
	if err != nil {
		return nil, err
	}

	key := CacheKey("mileage_period", vehicleID, string(period), from.Format(time.RFC3339), to.Format(time.RFC3339))
	var cached models.MileagePeriodReport
	if s.cache.Get(ctx, "mileage_period", key, &cached) {
		return &cached, nil
	}

	filtered, err := s.loadFiltered(ctx, vehicle.DeviceID, from, to)
	if err != nil {
		metrics.ReportErrors.WithLabelValues("mileage_period").Inc()
		return nil, err
	}

	buckets := s.mileage.Aggregate(filtered, from, to, period)

	report := &models.MileagePeriodReport{
		VehicleID:  vehicleID,
		PeriodType: period,
		StartDate:  from.Format(dateLayout),
		EndDate:    to.Format(dateLayout),
		Buckets:    buckets,
		NoData:     len(filtered) == 0,
	}
	for _, b := range buckets {
		report.TotalDistanceKm += b.DistanceKm
	}

	s.cache.Put(ctx, "mileage_period", key, report)
	return report, nil
}

// GetFuelReport классифицирует топливные события ТС за диапазон дат
func (s *ReportService) GetFuelReport(ctx context.Context, vehicleID string, from, to time.Time) (*models.FuelReport, error) {
	start := time.Now()
	defer func() {
		metrics.ReportDuration.WithLabelValues("fuel").Observe(time.Since(start).Seconds())
	}()

	if !to.After(from) {
		return nil, ErrInvalidRange
	}

	vehicle, err := s.ResolveVehicle(ctx, vehicleID)
	if err != nil {
		return nil, err
	}

	key := CacheKey("fuel", vehicleID, from.Format(time.RFC3339), to.Format(time.RFC3339))
	var cached models.FuelReport
	if s.cache.Get(ctx, "fuel", key, &cached) {
		return &cached, nil
	}

	filtered, err := s.loadFiltered(ctx, vehicle.DeviceID, from, to)
	if err != nil {
		metrics.ReportErrors.WithLabelValues("fuel").Inc()
		return nil, err
	}

	profile := analytics.VehicleFuelProfile{
		TankCapacityL: vehicle.TankCapacityL,
		FuelPricePerL: vehicle.FuelPricePerL,
	}
	events := s.fuel.Detect(filtered, profile)

	report := &models.FuelReport{
		VehicleID: vehicleID,
		StartDate: from.Format(dateLayout),
		EndDate:   to.Format(dateLayout),
		Events:    events,
		NoData:    len(events) == 0,
	}

	var consumedPct float64
	for _, e := range events {
		metrics.FuelEventsDetected.WithLabelValues(string(e.EventType)).Inc()

		switch e.EventType {
		case models.FuelEventRefuel:
			report.Refuels = append(report.Refuels, e)
			if e.RefuelAmountL != nil {
				report.TotalRefuelL += *e.RefuelAmountL
			}
			if e.RefuelCost != nil {
				report.TotalRefuelCost += *e.RefuelCost
			}
		case models.FuelEventTheftAlert, models.FuelEventConsumptionSpike, models.FuelEventLowFuel:
			report.Anomalies = append(report.Anomalies, e)
		}

		// Суммарный расход считаем по штатным снижениям уровня
		if e.EventType == models.FuelEventNormal && e.FuelChange != nil && *e.FuelChange < 0 {
			consumedPct += -*e.FuelChange
		}
	}

	distance := models.TotalDistanceKm(filtered)
	if distance >= 1.0 && consumedPct > 0 && vehicle.TankCapacityL > 0 {
		liters := consumedPct / 100 * vehicle.TankCapacityL
		avg := liters / distance * 100
		report.AvgConsumptionL100 = &avg
	}

	s.cache.Put(ctx, "fuel", key, report)
	return report, nil
}

// GetDrivingScore вычисляет оценку вождения ТС за диапазон дат
func (s *ReportService) GetDrivingScore(ctx context.Context, vehicleID string, from, to time.Time) (*models.DrivingScore, error) {
	start := time.Now()
	defer func() {
		metrics.ReportDuration.WithLabelValues("driving").Observe(time.Since(start).Seconds())
	}()

	if !to.After(from) {
		return nil, ErrInvalidRange
	}

	vehicle, err := s.ResolveVehicle(ctx, vehicleID)
	if err != nil {
		return nil, err
	}

	key := CacheKey("driving", vehicleID, from.Format(time.RFC3339), to.Format(time.RFC3339))
	var cached models.DrivingScore
	if s.cache.Get(ctx, "driving", key, &cached) {
		return &cached, nil
	}

	filtered, err := s.loadFiltered(ctx, vehicle.DeviceID, from, to)
	if err != nil {
		metrics.ReportErrors.WithLabelValues("driving").Inc()
		return nil, err
	}

	events := s.driving.DetectEvents(filtered)
	score := s.driving.Score(events)
	score.VehicleID = vehicleID
	score.StartDate = from.Format(dateLayout)
	score.EndDate = to.Format(dateLayout)
	score.DailyScores = s.driving.ScoreDaily(events, from, to)
	score.NoData = len(filtered) == 0

	s.cache.Put(ctx, "driving", key, &score)
	return &score, nil
}

// vehicleMonthResult результат обработки одного ТС в месячном отчете
type vehicleMonthResult struct {
	summary    models.VehicleMonthlySummary
	refuelCost float64
	err        error
}

// GetMonthlyFleetReport строит месячный отчет по парку компании с
// MoM/YoY сравнениями. year/month == 0 означает предыдущий полный месяц.
func (s *ReportService) GetMonthlyFleetReport(ctx context.Context, companyID string, year, month int, flt repository.VehicleFilter) (*models.MonthlyFleetReport, error) {
	start := time.Now()
	defer func() {
		metrics.ReportDuration.WithLabelValues("monthly_fleet").Observe(time.Since(start).Seconds())
	}()

	if year == 0 || month == 0 {
		// Предыдущий полный месяц: отчет за текущий был бы всегда частичным
		prev := s.now().UTC().AddDate(0, -1, 0)
		year, month = prev.Year(), int(prev.Month())
	}
	if month < 1 || month > 12 {
		return nil, ErrInvalidRange
	}

	flt.CompanyID = companyID

	key := CacheKey("monthly_fleet", companyID, fmt.Sprintf("%04d-%02d", year, month),
		flt.VehicleType, flt.Department, strings.Join(flt.VehicleIDs, ","))
	var cached models.MonthlyFleetReport
	if s.cache.Get(ctx, "monthly_fleet", key, &cached) {
		return &cached, nil
	}

	vehicles, err := s.directory.ListVehicles(ctx, flt)
	if err != nil {
		metrics.ReportErrors.WithLabelValues("monthly_fleet").Inc()
		return nil, fmt.Errorf("failed to list vehicles for company %s: %w", companyID, err)
	}

	monthStart := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	monthEnd := monthStart.AddDate(0, 1, 0)

	report := &models.MonthlyFleetReport{
		CompanyID:    companyID,
		Year:         year,
		Month:        month,
		VehicleCount: len(vehicles),
	}

	if len(vehicles) == 0 {
		report.NoData = true
		s.cache.Put(ctx, "monthly_fleet", key, report)
		return report, nil
	}

	kpi, summaries, hasData, err := s.computeFleetMonth(ctx, vehicles, monthStart, monthEnd, true)
	if err != nil {
		metrics.ReportErrors.WithLabelValues("monthly_fleet").Inc()
		return nil, err
	}
	report.KPI = kpi
	report.Vehicles = summaries
	report.NoData = !hasData

	// Базы сравнения считаются той же процедурой, но без сводок по ТС
	momKPI, _, momHasData, err := s.computeFleetMonth(ctx, vehicles, monthStart.AddDate(0, -1, 0), monthStart, false)
	if err != nil {
		return nil, err
	}
	yoyStart := monthStart.AddDate(-1, 0, 0)
	yoyKPI, _, yoyHasData, err := s.computeFleetMonth(ctx, vehicles, yoyStart, yoyStart.AddDate(0, 1, 0), false)
	if err != nil {
		return nil, err
	}

	report.MonthOverMonth = kpiDeltas(kpi, momKPI, momHasData)
	report.YearOverYear = kpiDeltas(kpi, yoyKPI, yoyHasData)

	s.cache.Put(ctx, "monthly_fleet", key, report)
	return report, nil
}

// computeFleetMonth считает KPI парка за [from, to) с фан-аутом по ТС.
// withSummaries управляет сбором пер-ТС сводок (для базовых месяцев они
// не нужны). hasData == false, когда ни одно ТС не имело телеметрии и
// затрат в периоде — такой месяц не служит базой сравнения.
func (s *ReportService) computeFleetMonth(ctx context.Context, vehicles []*models.Vehicle, from, to time.Time, withSummaries bool) (models.FleetKPI, []models.VehicleMonthlySummary, bool, error) {
	var kpi models.FleetKPI

	// ТС, зарегистрированные после конца периода, в нем не существовали
	active := make([]*models.Vehicle, 0, len(vehicles))
	for _, v := range vehicles {
		if v.RegisteredAt.Before(to) {
			active = append(active, v)
		}
	}
	if len(active) == 0 {
		return kpi, nil, false, nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make([]vehicleMonthResult, len(active))
	sem := make(chan struct{}, s.fleetWorkers)
	var wg sync.WaitGroup

	for i, v := range active {
		wg.Add(1)
		go func(i int, v *models.Vehicle) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				results[i].err = ctx.Err()
				return
			}

			results[i] = s.computeVehicleMonth(ctx, v, from, to)
			if results[i].err != nil {
				cancel()
			}
		}(i, v)
	}
	wg.Wait()

	// Отмена группы превращает ошибки остальных воркеров в ctx.Err();
	// наружу должна уйти первопричина, а не context.Canceled
	var firstErr error
	for _, res := range results {
		if res.err == nil {
			continue
		}
		if firstErr == nil || (isCancellation(firstErr) && !isCancellation(res.err)) {
			firstErr = res.err
		}
	}
	if firstErr != nil {
		return kpi, nil, false, firstErr
	}

	var summaries []models.VehicleMonthlySummary
	var scoreSum float64
	var scoreCount int
	hasData := false
	estimatedFuel := make(map[string]float64, len(active))

	for _, res := range results {
		sum := res.summary
		if sum.HasTelemetry {
			hasData = true
			kpi.ActiveVehicles++
		}
		kpi.TotalDistanceKm += sum.DistanceKm
		kpi.AlertCount += sum.AlertCount
		estimatedFuel[sum.VehicleID] = res.refuelCost
		if sum.DrivingScore != nil {
			scoreSum += *sum.DrivingScore
			scoreCount++
		}
		if withSummaries {
			summaries = append(summaries, sum)
		}
		metrics.ReportVehiclesProcessed.Inc()
	}

	// Затраты из внешнего учета одной выборкой по всем ТС
	ids := make([]string, len(active))
	for i, v := range active {
		ids[i] = v.ID
	}
	costs, err := s.directory.GetCostEntries(ctx, ids, from, to)
	if err != nil {
		return kpi, nil, false, fmt.Errorf("failed to load cost entries: %w", err)
	}
	ledgerFuel := make(map[string]float64)
	for _, c := range costs {
		hasData = true
		switch c.Category {
		case "maintenance":
			kpi.MaintenanceCost += c.Amount
		case "fuel":
			ledgerFuel[c.VehicleID] += c.Amount
		}
	}
	// Учетные записи о топливе точнее оценки по детектору заправок и
	// обычно описывают те же заправки, поэтому при их наличии оценка
	// для этого ТС не добавляется
	for id, est := range estimatedFuel {
		if ledger, ok := ledgerFuel[id]; ok && ledger > 0 {
			kpi.FuelCost += ledger
		} else {
			kpi.FuelCost += est
		}
	}
	if withSummaries {
		for i := range summaries {
			id := summaries[i].VehicleID
			if ledger, ok := ledgerFuel[id]; ok && ledger > 0 {
				summaries[i].FuelCost = ledger
			} else {
				summaries[i].FuelCost = estimatedFuel[id]
			}
		}
	}

	kpi.UtilizationPct = float64(kpi.ActiveVehicles) / float64(len(active)) * 100
	if scoreCount > 0 {
		avg := scoreSum / float64(scoreCount)
		kpi.AvgDrivingScore = &avg
	}

	return kpi, summaries, hasData, nil
}

// computeVehicleMonth считает месячную сводку одного ТС
func (s *ReportService) computeVehicleMonth(ctx context.Context, v *models.Vehicle, from, to time.Time) vehicleMonthResult {
	res := vehicleMonthResult{
		summary: models.VehicleMonthlySummary{
			VehicleID:   v.ID,
			Name:        v.Name,
			PlateNumber: v.PlateNumber,
		},
	}

	filtered, err := s.loadFiltered(ctx, v.DeviceID, from, to)
	if err != nil {
		res.err = err
		return res
	}
	if len(filtered) == 0 {
		return res
	}
	res.summary.HasTelemetry = true

	res.summary.DistanceKm = models.TotalDistanceKm(filtered)
	if delta, ok := models.OdometerDeltaKm(filtered); ok {
		res.summary.DistanceKm = delta
	}

	profile := analytics.VehicleFuelProfile{
		TankCapacityL: v.TankCapacityL,
		FuelPricePerL: v.FuelPricePerL,
	}
	for _, e := range s.fuel.Detect(filtered, profile) {
		switch e.EventType {
		case models.FuelEventRefuel:
			res.refuelCost += derefOrZero(e.RefuelCost)
		case models.FuelEventTheftAlert, models.FuelEventConsumptionSpike, models.FuelEventLowFuel:
			res.summary.AlertCount++
		}
	}

	events := s.driving.DetectEvents(filtered)
	score := s.driving.Score(events)
	res.summary.DrivingScore = &score.Score

	return res
}

// kpiDeltas считает относительные изменения KPI в процентах.
// Отсутствие базы или нулевая база дают nil, а не ноль.
func kpiDeltas(cur, base models.FleetKPI, baseHasData bool) models.KPIDeltas {
	if !baseHasData {
		return models.KPIDeltas{}
	}
	return models.KPIDeltas{
		DistancePct:        pctDelta(cur.TotalDistanceKm, base.TotalDistanceKm),
		FuelCostPct:        pctDelta(cur.FuelCost, base.FuelCost),
		MaintenanceCostPct: pctDelta(cur.MaintenanceCost, base.MaintenanceCost),
		AlertCountPct:      pctDelta(float64(cur.AlertCount), float64(base.AlertCount)),
		UtilizationPct:     pctDelta(cur.UtilizationPct, base.UtilizationPct),
	}
}

func pctDelta(cur, base float64) *float64 {
	if base == 0 {
		return nil
	}
	d := (cur - base) / base * 100
	return &d
}

func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func derefOrZero(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
