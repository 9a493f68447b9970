package analytics

import (
	"math"
	"time"

	"github.com/fleetlab/telematics-backend/internal/models"
	"github.com/fleetlab/telematics-backend/pkg/utils"
)

// DrivingConfig пороги детекции событий вождения и веса штрафов
type DrivingConfig struct {
	// Замедление, начиная с которого торможение считается резким (км/ч за секунду)
	HarshBrakingKphPerSec float64

	// Ускорение, начиная с которого разгон считается резким (км/ч за секунду)
	HarshAccelKphPerSec float64

	// Скорость, сверх которой фиксируется превышение (км/ч)
	SpeedingLimitKph float64

	// Максимальный разрыв между сэмплами, на котором дельта скорости
	// еще считается достоверной
	MaxSampleGap time.Duration

	// Базовые штрафы за первое событие каждой категории
	Penalties map[models.DrivingEventType]float64

	// Коэффициент затухания штрафа за каждое повторное событие категории:
	// одна плохая поездка не должна обнулять оценку
	PenaltyDecay float64
}

// DefaultDrivingConfig возвращает конфигурацию по умолчанию
func DefaultDrivingConfig() *DrivingConfig {
	return &DrivingConfig{
		HarshBrakingKphPerSec: 12.0,
		HarshAccelKphPerSec:   10.0,
		SpeedingLimitKph:      110.0,
		MaxSampleGap:          time.Minute,
		Penalties: map[models.DrivingEventType]float64{
			models.DrivingEventHarshBraking:      5.0,
			models.DrivingEventHarshAcceleration: 4.0,
			models.DrivingEventSpeeding:          3.0,
		},
		PenaltyDecay: 0.8,
	}
}

// DrivingAnalyzer выявляет дискретные события вождения из дельт скорости
// отфильтрованного потока и сводит их в оценку 0-100
type DrivingAnalyzer struct {
	config *DrivingConfig
	logger *utils.Logger
}

// NewDrivingAnalyzer создает новый анализатор вождения
func NewDrivingAnalyzer(config *DrivingConfig, logger *utils.Logger) *DrivingAnalyzer {
	if config == nil {
		config = DefaultDrivingConfig()
	}
	return &DrivingAnalyzer{
		config: config,
		logger: logger,
	}
}

// DetectEvents выявляет события вождения из отфильтрованного потока.
// Дельты скорости нормируются на интервал между сэмплами; пары через
// слишком большой разрыв пропускаются.
func (a *DrivingAnalyzer) DetectEvents(filtered []models.Position) []models.DrivingEvent {
	var events []models.DrivingEvent

	for i := range filtered {
		cur := &filtered[i]

		if cur.SpeedKph != nil && *cur.SpeedKph > a.config.SpeedingLimitKph {
			events = append(events, models.DrivingEvent{
				Type:      models.DrivingEventSpeeding,
				Timestamp: cur.RecordedAt,
				SpeedKph:  *cur.SpeedKph,
				Severity:  *cur.SpeedKph - a.config.SpeedingLimitKph,
			})
		}

		if i == 0 {
			continue
		}
		prev := &filtered[i-1]
		if prev.SpeedKph == nil || cur.SpeedKph == nil {
			continue
		}
		gap := cur.RecordedAt.Sub(prev.RecordedAt)
		if gap <= 0 || gap > a.config.MaxSampleGap {
			continue
		}

		deltaKphPerSec := (*cur.SpeedKph - *prev.SpeedKph) / gap.Seconds()
		switch {
		case deltaKphPerSec <= -a.config.HarshBrakingKphPerSec:
			events = append(events, models.DrivingEvent{
				Type:      models.DrivingEventHarshBraking,
				Timestamp: cur.RecordedAt,
				SpeedKph:  *cur.SpeedKph,
				Severity:  -deltaKphPerSec - a.config.HarshBrakingKphPerSec,
			})
		case deltaKphPerSec >= a.config.HarshAccelKphPerSec:
			events = append(events, models.DrivingEvent{
				Type:      models.DrivingEventHarshAcceleration,
				Timestamp: cur.RecordedAt,
				SpeedKph:  *cur.SpeedKph,
				Severity:  deltaKphPerSec - a.config.HarshAccelKphPerSec,
			})
		}
	}

	return events
}

// Score сводит события окна в оценку. Оценка стартует со 100 и снижается
// взвешенными штрафами по категориям; каждый повтор внутри категории
// штрафуется с затуханием, итог ограничен диапазоном [0,100].
func (a *DrivingAnalyzer) Score(events []models.DrivingEvent) models.DrivingScore {
	counts := map[models.DrivingEventType]int{
		models.DrivingEventHarshBraking:      0,
		models.DrivingEventHarshAcceleration: 0,
		models.DrivingEventSpeeding:          0,
	}
	for _, e := range events {
		counts[e.Type]++
	}

	score := 100.0
	for eventType, count := range counts {
		base := a.config.Penalties[eventType]
		// Геометрическое затухание: base * (1 + d + d^2 + ...)
		penalty := 0.0
		factor := 1.0
		for i := 0; i < count; i++ {
			penalty += base * factor
			factor *= a.config.PenaltyDecay
		}
		score -= penalty
	}

	score = math.Max(0, math.Min(100, score))

	return models.DrivingScore{
		Score:       score,
		TotalEvents: len(events),
		EventCounts: counts,
	}
}

// ScoreDaily считает независимые оценки по календарным суткам диапазона.
// Сглаживание между днями не применяется.
func (a *DrivingAnalyzer) ScoreDaily(events []models.DrivingEvent, start, end time.Time) []models.DailyDrivingScore {
	byDay := make(map[string][]models.DrivingEvent)
	for _, e := range events {
		day := e.Timestamp.UTC().Format("2006-01-02")
		byDay[day] = append(byDay[day], e)
	}

	var daily []models.DailyDrivingScore
	for cur := truncateDay(start); cur.Before(end); cur = cur.AddDate(0, 0, 1) {
		day := cur.Format("2006-01-02")
		score := a.Score(byDay[day])
		daily = append(daily, models.DailyDrivingScore{
			Date:        day,
			Score:       score.Score,
			TotalEvents: score.TotalEvents,
		})
	}
	return daily
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
