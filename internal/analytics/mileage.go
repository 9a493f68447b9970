package analytics

import (
	"math"
	"time"

	"github.com/fleetlab/telematics-backend/internal/models"
	"github.com/fleetlab/telematics-backend/pkg/utils"
)

// MileageConfig параметры агрегации пробега
type MileageConfig struct {
	// Допустимое расхождение GPS-расстояния и дельты одометра внутри
	// ведра, после которого фиксируется расхождение и предпочитается одометр
	ToleranceKm float64
}

// DefaultMileageConfig возвращает конфигурацию по умолчанию
func DefaultMileageConfig() *MileageConfig {
	return &MileageConfig{ToleranceKm: 1.0}
}

// MileageAggregator раскладывает пройденное расстояние по плотной сетке
// периодов Hour/Day/Month. Ведра генерируются на весь диапазон независимо
// от наличия данных; границы диапазона задает вызывающая сторона.
type MileageAggregator struct {
	config *MileageConfig
	logger *utils.Logger
}

// NewMileageAggregator создает новый агрегатор пробега
func NewMileageAggregator(config *MileageConfig, logger *utils.Logger) *MileageAggregator {
	if config == nil {
		config = DefaultMileageConfig()
	}
	return &MileageAggregator{
		config: config,
		logger: logger,
	}
}

// ToleranceKm возвращает допуск расхождения GPS и одометра
func (a *MileageAggregator) ToleranceKm() float64 {
	return a.config.ToleranceKm
}

// Aggregate строит упорядоченные ведра пробега за [start, end).
// GPS-расстояние каждого плеча (пары последовательных сэмплов) относится
// к ведру, содержащему конец плеча, поэтому сумма ведер за диапазон точно
// равна общему расстоянию диапазона. Дельта одометра считается по концам
// ведра; при расхождении сверх допуска предпочитается одометр, GPS-значение
// сохраняется для диагностики.
func (a *MileageAggregator) Aggregate(filtered []models.Position, start, end time.Time, period models.PeriodType) []models.MileageBucket {
	buckets := makeDenseBuckets(start, end, period)
	if len(buckets) == 0 {
		return buckets
	}

	samples := clipToWindow(filtered, buckets[0].PeriodStart, buckets[len(buckets)-1].PeriodEnd)

	// Раскладываем сэмплы и плечи по ведрам одним проходом
	idx := 0
	for i := range samples {
		at := samples[i].RecordedAt
		for idx < len(buckets)-1 && !at.Before(buckets[idx].PeriodEnd) {
			idx++
		}
		buckets[idx].SampleCount++
		if i > 0 {
			buckets[idx].GpsDistanceKm += samples[i-1].Point.DistanceTo(samples[i].Point)
		}
	}

	for i := range buckets {
		b := &buckets[i]
		b.DistanceKm = b.GpsDistanceKm
		if b.SampleCount < 2 {
			continue
		}

		inBucket := clipToWindow(samples, b.PeriodStart, b.PeriodEnd)
		if delta, ok := monotonicOdometerDelta(inBucket); ok {
			b.OdometerDeltaKm = &delta
			b.DistanceKm = delta
			if a.logger != nil && math.Abs(delta-b.GpsDistanceKm) > a.config.ToleranceKm {
				a.logger.WithFields(map[string]interface{}{
					"device_id":    inBucket[0].DeviceID,
					"period_start": b.PeriodStart,
					"gps_km":       b.GpsDistanceKm,
					"odometer_km":  delta,
				}).Warn("Mileage reconciliation mismatch, preferring odometer")
			}
		}
	}

	return buckets
}

// makeDenseBuckets генерирует пустые ведра, покрывающие [start, end).
// Первое ведро выравнивается к началу содержащего start периода.
func makeDenseBuckets(start, end time.Time, period models.PeriodType) []models.MileageBucket {
	if !start.Before(end) {
		return nil
	}

	var buckets []models.MileageBucket
	for cur := period.Truncate(start); cur.Before(end); cur = period.Next(cur) {
		buckets = append(buckets, models.MileageBucket{
			PeriodStart: cur,
			PeriodEnd:   period.Next(cur),
		})
	}
	return buckets
}
