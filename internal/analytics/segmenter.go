package analytics

import (
	"time"

	"github.com/fleetlab/telematics-backend/internal/models"
	"github.com/fleetlab/telematics-backend/pkg/utils"
)

// SegmenterConfig параметры сегментации суток на интервалы Drive/Stop
type SegmenterConfig struct {
	// Скорость ниже которой сэмпл считается стоянкой (км/ч)
	StopSpeedThresholdKph float64

	// Минимальная длительность серии сэмплов противоположного состояния,
	// после которой фиксируется переход (симметрично для обоих направлений)
	MinStopDuration time.Duration

	// Разрыв телеметрии, начиная с которого интервал считается молчанием
	// устройства и представляется Stop-сегментом без сэмплов
	OfflineGap time.Duration
}

// DefaultSegmenterConfig возвращает конфигурацию по умолчанию
func DefaultSegmenterConfig() *SegmenterConfig {
	return &SegmenterConfig{
		StopSpeedThresholdKph: 3.0,
		MinStopDuration:       120 * time.Second,
		OfflineGap:            10 * time.Minute,
	}
}

// TripSegmenter разбивает отфильтрованный суточный поток позиций на
// упорядоченные сегменты Drive/Stop, покрывающие сутки без разрывов:
// сумма длительностей сегментов всегда равна 24 часам.
type TripSegmenter struct {
	config *SegmenterConfig
	logger *utils.Logger
}

// NewTripSegmenter создает новый сегментатор
func NewTripSegmenter(config *SegmenterConfig, logger *utils.Logger) *TripSegmenter {
	if config == nil {
		config = DefaultSegmenterConfig()
	}
	return &TripSegmenter{
		config: config,
		logger: logger,
	}
}

// stateRun непрерывная серия сэмплов одного состояния движения
type stateRun struct {
	segType  models.SegmentType
	startIdx int
	endIdx   int // включительно
	startAt  time.Time
	endAt    time.Time
	offline  bool
}

// Segment строит сегменты для одних календарных суток.
// day интерпретируется в UTC; позиции вне суток игнорируются.
// Сутки без единого сэмпла дают один Stop-сегмент на все 24 часа
// с SampleCount = 0 — это результат, а не ошибка.
func (s *TripSegmenter) Segment(filtered []models.Position, day time.Time) []models.Segment {
	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	dayEnd := dayStart.AddDate(0, 0, 1)

	samples := clipToWindow(filtered, dayStart, dayEnd)
	if len(samples) == 0 {
		return []models.Segment{silentStop(dayStart, dayEnd)}
	}

	runs := s.buildRuns(samples)
	segments := s.assembleSegments(samples, runs, dayStart, dayEnd)

	if s.logger != nil {
		s.logger.WithFields(map[string]interface{}{
			"device_id": samples[0].DeviceID,
			"date":      dayStart.Format("2006-01-02"),
			"samples":   len(samples),
			"segments":  len(segments),
		}).Debug("Day segmented")
	}

	return segments
}

// buildRuns прогоняет машину состояний Driving/Stopped по сэмплам.
// Переход фиксируется, когда серия противоположного состояния продержалась
// не меньше MinStopDuration; разрыв длиннее OfflineGap закрывает текущую
// серию и перезапускает машину с первого сэмпла после разрыва.
func (s *TripSegmenter) buildRuns(samples []models.Position) []stateRun {
	var runs []stateRun

	cur := stateRun{
		segType:  s.classify(&samples[0]),
		startIdx: 0,
		startAt:  samples[0].RecordedAt,
	}
	candidateIdx := -1 // начало незакрепленной серии противоположного состояния

	flush := func(endIdx int) {
		cur.endIdx = endIdx
		cur.endAt = samples[endIdx].RecordedAt
		runs = append(runs, cur)
	}

	for i := 1; i < len(samples); i++ {
		gap := samples[i].RecordedAt.Sub(samples[i-1].RecordedAt)
		if gap >= s.config.OfflineGap {
			// Молчание устройства: закрываем серию и перезапускаемся
			flush(i - 1)
			runs = append(runs, stateRun{
				segType: models.SegmentStop,
				startAt: samples[i-1].RecordedAt,
				endAt:   samples[i].RecordedAt,
				offline: true,
			})
			cur = stateRun{
				segType:  s.classify(&samples[i]),
				startIdx: i,
				startAt:  samples[i].RecordedAt,
			}
			candidateIdx = -1
			continue
		}

		state := s.classify(&samples[i])
		if state == cur.segType {
			candidateIdx = -1
			continue
		}

		if candidateIdx < 0 {
			candidateIdx = i
		}

		held := samples[i].RecordedAt.Sub(samples[candidateIdx].RecordedAt)
		if held >= s.config.MinStopDuration {
			// Серия закрепилась: текущий сегмент закрывается на первом
			// сэмпле серии, с него же начинается новый
			flush(candidateIdx)
			cur = stateRun{
				segType:  state,
				startIdx: candidateIdx,
				startAt:  samples[candidateIdx].RecordedAt,
			}
			candidateIdx = -1
		}
	}

	// Хвостовая незакрепленная серия остается в текущем сегменте
	flush(len(samples) - 1)

	return runs
}

// classify определяет состояние движения сэмпла
func (s *TripSegmenter) classify(p *models.Position) models.SegmentType {
	if p.IgnitionKnownOff() {
		return models.SegmentStop
	}
	if p.Speed() < s.config.StopSpeedThresholdKph {
		return models.SegmentStop
	}
	return models.SegmentDrive
}

// assembleSegments превращает серии в сегменты и замощает сутки целиком:
// тишина до первого и после последнего сэмпла становится Stop-сегментами
// без сэмплов, границы соседних сегментов совпадают.
func (s *TripSegmenter) assembleSegments(samples []models.Position, runs []stateRun, dayStart, dayEnd time.Time) []models.Segment {
	segments := make([]models.Segment, 0, len(runs)+2)

	if first := samples[0].RecordedAt; first.After(dayStart) {
		segments = append(segments, silentStop(dayStart, first))
	}

	for _, run := range runs {
		if run.offline {
			segments = append(segments, silentStop(run.startAt, run.endAt))
			continue
		}
		if seg := s.buildSegment(samples[run.startIdx:run.endIdx+1], run); seg != nil {
			segments = append(segments, *seg)
		}
	}

	if last := samples[len(samples)-1].RecordedAt; last.Before(dayEnd) {
		segments = append(segments, silentStop(last, dayEnd))
	}

	return segments
}

// buildSegment вычисляет метрики одного сегмента по его сэмплам
func (s *TripSegmenter) buildSegment(samples []models.Position, run stateRun) *models.Segment {
	if run.endAt.Equal(run.startAt) && len(samples) <= 1 {
		// Вырожденный сегмент нулевой длительности не замощает ничего
		return nil
	}

	seg := &models.Segment{
		Type:        run.segType,
		StartAt:     run.startAt,
		EndAt:       run.endAt,
		DurationSec: int64(run.endAt.Sub(run.startAt).Seconds()),
		SampleCount: len(samples),
	}

	if run.segType == models.SegmentDrive {
		seg.DistanceKm = segmentDistanceKm(samples)
	}

	var speedSum, speedMax float64
	speedCount := 0
	for i := range samples {
		if samples[i].SpeedKph == nil {
			continue
		}
		v := *samples[i].SpeedKph
		speedSum += v
		speedCount++
		if v > speedMax {
			speedMax = v
		}
	}
	if speedCount > 0 {
		avg := speedSum / float64(speedCount)
		seg.AvgSpeedKph = &avg
		seg.MaxSpeedKph = &speedMax
	}

	return seg
}

// segmentDistanceKm считает пройденное расстояние внутри сегмента:
// дельта одометра при монотонных показаниях, иначе сумма haversine
func segmentDistanceKm(samples []models.Position) float64 {
	if delta, ok := monotonicOdometerDelta(samples); ok {
		return delta
	}
	return models.TotalDistanceKm(samples)
}

// monotonicOdometerDelta возвращает дельту одометра, если все показания
// внутри сегмента присутствуют не реже чем на концах и не убывают
func monotonicOdometerDelta(samples []models.Position) (float64, bool) {
	var prev *float64
	var first, last float64
	seen := false
	for i := range samples {
		odo := samples[i].OdometerKm
		if odo == nil {
			continue
		}
		if prev != nil && *odo < *prev {
			return 0, false
		}
		if !seen {
			first = *odo
			seen = true
		}
		last = *odo
		prev = odo
	}
	if !seen || last == first {
		return 0, false
	}
	return last - first, true
}

// silentStop строит Stop-сегмент для интервала без телеметрии
func silentStop(from, to time.Time) models.Segment {
	return models.Segment{
		Type:        models.SegmentStop,
		StartAt:     from,
		EndAt:       to,
		DurationSec: int64(to.Sub(from).Seconds()),
		SampleCount: 0,
	}
}

// clipToWindow возвращает позиции внутри [from, to)
func clipToWindow(positions []models.Position, from, to time.Time) []models.Position {
	result := make([]models.Position, 0, len(positions))
	for i := range positions {
		at := positions[i].RecordedAt
		if at.Before(from) || !at.Before(to) {
			continue
		}
		result = append(result, positions[i])
	}
	return result
}
