package filter

import (
	"github.com/fleetlab/telematics-backend/internal/models"
	"github.com/fleetlab/telematics-backend/pkg/utils"
)

// GapFilter адаптивный гэп-фильтр сырого потока позиций.
// Один проход слева направо, O(n), без возвратов: пинг принимается, только
// если интервал от последнего принятого пинга не меньше порога, зависящего
// от скорости текущего пинга. Первый пинг принимается безусловно.
type GapFilter struct {
	config *GapFilterConfig
	logger *utils.Logger
}

// NewGapFilter создает новый гэп-фильтр
func NewGapFilter(config *GapFilterConfig, logger *utils.Logger) *GapFilter {
	if config == nil {
		config = DefaultGapFilterConfig()
	}
	return &GapFilter{
		config: config,
		logger: logger,
	}
}

// Filter применяет гэп-фильтр к последовательности позиций.
// Пустой и одноэлементный вход возвращаются без изменений.
// Отсутствующая скорость трактуется как 0 (порог стоянки).
// Фильтрация идемпотентна: повторный прогон не меняет результат.
func (f *GapFilter) Filter(positions []models.Position) *FilterResult {
	if len(positions) <= 1 {
		return &FilterResult{
			OriginalCount: len(positions),
			Positions:     positions,
		}
	}

	accepted := make([]models.Position, 0, len(positions))
	stats := FilterStats{}

	accepted = append(accepted, positions[0])
	lastAcceptedAt := positions[0].RecordedAt

	for i := 1; i < len(positions); i++ {
		cur := &positions[i]
		speed := cur.Speed()
		if speed > stats.MaxSpeedKph {
			stats.MaxSpeedKph = speed
		}

		gap := cur.RecordedAt.Sub(lastAcceptedAt)
		if gap == 0 {
			stats.ZeroGapPairs++
		}

		if gap >= f.config.RequiredGap(speed) {
			accepted = append(accepted, *cur)
			lastAcceptedAt = cur.RecordedAt
			continue
		}

		if speed >= f.config.MovingThresholdKph {
			stats.DroppedMoving++
		} else {
			stats.DroppedStopped++
		}
	}

	dropped := len(positions) - len(accepted)
	if f.logger != nil && dropped > 0 {
		f.logger.WithFields(map[string]interface{}{
			"device_id": positions[0].DeviceID,
			"original":  len(positions),
			"accepted":  len(accepted),
			"dropped":   dropped,
		}).Debug("Gap filter applied")
	}

	return &FilterResult{
		OriginalCount: len(positions),
		DroppedCount:  dropped,
		Positions:     accepted,
		Statistics:    stats,
	}
}

// Name возвращает имя фильтра
func (f *GapFilter) Name() string {
	return "GapFilter"
}

// Description возвращает описание фильтра
func (f *GapFilter) Description() string {
	return "Drops pings whose time gap since the last accepted ping is below a speed-dependent threshold"
}

var _ StreamFilter = (*GapFilter)(nil)
