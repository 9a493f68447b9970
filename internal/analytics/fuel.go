package analytics

import (
	"fmt"
	"time"

	"github.com/fleetlab/telematics-backend/internal/models"
	"github.com/fleetlab/telematics-backend/pkg/utils"
)

// FuelDetectorConfig пороги классификации топливных переходов.
// Точная настройка зависит от парка и датчиков, поэтому все значения
// конфигурируемы; значения по умолчанию подобраны консервативно.
type FuelDetectorConfig struct {
	// Минимальный положительный скачок уровня для заправки (п.п.)
	RefuelMinDeltaPct float64

	// Минимальное резкое падение уровня для подозрения на слив (п.п.)
	TheftMinDropPct float64

	// Во сколько раз расход должен превысить средний, чтобы считаться скачком
	SpikeConsumptionRatio float64

	// Уровень топлива, ниже которого фиксируется low_fuel (%)
	LowFuelFloorPct float64

	// Максимальный разрыв между сэмплами, внутри которого скачок уровня
	// трактуется как одно событие; больший разрыв сбрасывает контекст
	WindowMaxGap time.Duration

	// Пробег, ниже которого перемещения между сэмплами считается что нет (км)
	NoDistanceKm float64

	// Точность geohash для привязки заправки к месту
	StationGeohashPrecision int
}

// DefaultFuelDetectorConfig возвращает конфигурацию по умолчанию
func DefaultFuelDetectorConfig() *FuelDetectorConfig {
	return &FuelDetectorConfig{
		RefuelMinDeltaPct:       10.0,
		TheftMinDropPct:         8.0,
		SpikeConsumptionRatio:   2.0,
		LowFuelFloorPct:         15.0,
		WindowMaxGap:            30 * time.Minute,
		NoDistanceKm:            0.3,
		StationGeohashPrecision: 6,
	}
}

// VehicleFuelProfile топливные характеристики ТС из внешнего справочника
type VehicleFuelProfile struct {
	TankCapacityL float64
	FuelPricePerL float64

	// Исторический средний расход (л/100км); nil — считать по текущему окну
	AvgConsumptionL100 *float64
}

// FuelAnomalyDetector классифицирует переходы уровня топлива между
// последовательными топливными сэмплами. Детектор не хранит состояния
// между вызовами: первый сэмпл окна всегда normal (холодный старт),
// вызывающая сторона при необходимости передает перекрывающийся контекст.
type FuelAnomalyDetector struct {
	config *FuelDetectorConfig
	logger *utils.Logger
}

// NewFuelAnomalyDetector создает новый детектор топливных аномалий
func NewFuelAnomalyDetector(config *FuelDetectorConfig, logger *utils.Logger) *FuelAnomalyDetector {
	if config == nil {
		config = DefaultFuelDetectorConfig()
	}
	return &FuelAnomalyDetector{
		config: config,
		logger: logger,
	}
}

// Detect классифицирует топливные сэмплы отфильтрованного потока.
// Каждый сэмпл получает ровно один тип события; правила применяются
// в порядке приоритета: refuel, theft_alert, consumption_spike,
// low_fuel, normal.
func (d *FuelAnomalyDetector) Detect(filtered []models.Position, profile VehicleFuelProfile) []models.FuelEvent {
	samples := fuelSamples(filtered)
	if len(samples) == 0 {
		return nil
	}

	events := make([]models.FuelEvent, 0, len(samples))
	events = append(events, models.FuelEvent{
		RecordedAt:  samples[0].RecordedAt,
		EventType:   models.FuelEventNormal,
		FuelPercent: *samples[0].FuelPercent,
	})

	// Скользящий средний расход для детекции скачков потребления
	avg := newConsumptionTracker(profile.AvgConsumptionL100)

	for i := 1; i < len(samples); i++ {
		prev, cur := &samples[i-1], &samples[i]
		events = append(events, d.classifyPair(prev, cur, profile, avg))
	}

	return events
}

// classifyPair классифицирует один переход между топливными сэмплами
func (d *FuelAnomalyDetector) classifyPair(prev, cur *models.Position, profile VehicleFuelProfile, avg *consumptionTracker) models.FuelEvent {
	change := *cur.FuelPercent - *prev.FuelPercent
	gap := cur.RecordedAt.Sub(prev.RecordedAt)
	distance := legDistanceKm(prev, cur)

	event := models.FuelEvent{
		RecordedAt:  cur.RecordedAt,
		EventType:   models.FuelEventNormal,
		FuelPercent: *cur.FuelPercent,
		FuelChange:  &change,
	}

	shortWindow := gap > 0 && gap <= d.config.WindowMaxGap
	noDistance := distance <= d.config.NoDistanceKm
	stationary := cur.IgnitionKnownOff() || cur.Speed() < 1.0

	switch {
	case change >= d.config.RefuelMinDeltaPct && shortWindow && noDistance:
		event.EventType = models.FuelEventRefuel
		if profile.TankCapacityL > 0 {
			amount := change / 100 * profile.TankCapacityL
			event.RefuelAmountL = &amount
			if profile.FuelPricePerL > 0 {
				cost := amount * profile.FuelPricePerL
				event.RefuelCost = &cost
			}
		}
		event.StationGeohash = cur.Point.Geohash(d.config.StationGeohashPrecision)
		event.AnomalyReason = fmt.Sprintf("fuel level rose %.1f%% within %s while stationary", change, gap.Round(time.Second))

	case change <= -d.config.TheftMinDropPct && shortWindow && stationary && noDistance:
		event.EventType = models.FuelEventTheftAlert
		event.AnomalyReason = fmt.Sprintf("fuel level dropped %.1f%% within %s with no movement", -change, gap.Round(time.Second))

	case change < 0 && d.isConsumptionSpike(change, distance, profile, avg):
		event.EventType = models.FuelEventConsumptionSpike
		rate := consumptionL100(change, distance, profile.TankCapacityL)
		event.AnomalyReason = fmt.Sprintf("consumption %.1f l/100km is over %.1fx the average", rate, d.config.SpikeConsumptionRatio)

	case *cur.FuelPercent < d.config.LowFuelFloorPct:
		event.EventType = models.FuelEventLowFuel
		event.AnomalyReason = fmt.Sprintf("fuel level %.1f%% below %.0f%% floor", *cur.FuelPercent, d.config.LowFuelFloorPct)
	}

	// Нормальные отрицательные переходы пополняют базу среднего расхода
	if event.EventType == models.FuelEventNormal && change < 0 && distance > d.config.NoDistanceKm {
		avg.add(consumptionL100(change, distance, profile.TankCapacityL))
	}

	if d.logger != nil && event.EventType != models.FuelEventNormal {
		d.logger.WithFields(map[string]interface{}{
			"device_id":  cur.DeviceID,
			"event_type": event.EventType,
			"reason":     event.AnomalyReason,
		}).Debug("Fuel event classified")
	}

	return event
}

// isConsumptionSpike проверяет, выбивается ли расход из среднего
func (d *FuelAnomalyDetector) isConsumptionSpike(change, distance float64, profile VehicleFuelProfile, avg *consumptionTracker) bool {
	if distance <= d.config.NoDistanceKm || profile.TankCapacityL <= 0 {
		return false
	}
	baseline, ok := avg.value()
	if !ok || baseline <= 0 {
		return false
	}
	rate := consumptionL100(change, distance, profile.TankCapacityL)
	return rate > baseline*d.config.SpikeConsumptionRatio
}

// consumptionL100 пересчитывает падение уровня в литры на 100 км
func consumptionL100(change, distanceKm, tankCapacityL float64) float64 {
	if distanceKm <= 0 || tankCapacityL <= 0 {
		return 0
	}
	liters := -change / 100 * tankCapacityL
	return liters / distanceKm * 100
}

// legDistanceKm расстояние между сэмплами: одометр при наличии, иначе haversine
func legDistanceKm(prev, cur *models.Position) float64 {
	if prev.OdometerKm != nil && cur.OdometerKm != nil && *cur.OdometerKm >= *prev.OdometerKm {
		return *cur.OdometerKm - *prev.OdometerKm
	}
	return prev.Point.DistanceTo(cur.Point)
}

// fuelSamples отбирает сэмплы, несущие уровень топлива
func fuelSamples(positions []models.Position) []models.Position {
	result := make([]models.Position, 0, len(positions))
	for i := range positions {
		if positions[i].HasFuel() {
			result = append(result, positions[i])
		}
	}
	return result
}

// consumptionTracker скользящее среднее нормального расхода.
// Исторический средний из профиля (при наличии) служит затравкой.
type consumptionTracker struct {
	sum   float64
	count int
	seed  *float64
}

func newConsumptionTracker(seed *float64) *consumptionTracker {
	return &consumptionTracker{seed: seed}
}

func (t *consumptionTracker) add(l100 float64) {
	if l100 <= 0 {
		return
	}
	t.sum += l100
	t.count++
}

// value возвращает базовый расход; требует либо затравку, либо минимум
// три наблюдения, чтобы одиночный сэмпл не объявлял следующий скачком
func (t *consumptionTracker) value() (float64, bool) {
	if t.seed != nil && *t.seed > 0 {
		if t.count == 0 {
			return *t.seed, true
		}
		return (*t.seed + t.sum/float64(t.count)) / 2, true
	}
	if t.count < 3 {
		return 0, false
	}
	return t.sum / float64(t.count), true
}
