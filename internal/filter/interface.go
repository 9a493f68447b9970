package filter

import (
	"time"

	"github.com/fleetlab/telematics-backend/internal/models"
)

// StreamFilter интерфейс для фильтров потока позиций
type StreamFilter interface {
	// Filter применяет фильтр к хронологической последовательности позиций
	// одного устройства и возвращает прореженную последовательность
	Filter(positions []models.Position) *FilterResult

	// Name возвращает имя фильтра
	Name() string

	// Description возвращает описание фильтра
	Description() string
}

// FilterResult результат фильтрации
type FilterResult struct {
	OriginalCount int               `json:"original_count"`
	DroppedCount  int               `json:"dropped_count"`
	Positions     []models.Position `json:"positions"`
	Statistics    FilterStats       `json:"statistics"`
}

// FilterStats статистика фильтрации
type FilterStats struct {
	DroppedMoving  int     `json:"dropped_moving"`
	DroppedStopped int     `json:"dropped_stopped"`
	ZeroGapPairs   int     `json:"zero_gap_pairs"` // дубликаты меток времени
	MaxSpeedKph    float64 `json:"max_speed_kph"`
}

// GapFilterConfig конфигурация адаптивного гэп-фильтра.
// Устройства в движении шлют пинг каждые 1-3 секунды, на стоянке способны
// заливать хранилище избыточными пингами; адаптивный интервал сохраняет
// разрешение маршрута и схлопывает холостые пинги.
type GapFilterConfig struct {
	// Скорость, начиная с которой пинг считается движением (км/ч)
	MovingThresholdKph float64 `json:"moving_threshold_kph"`

	// Минимальный интервал между принятыми пингами в движении
	MinGapMoving time.Duration `json:"min_gap_moving"`

	// Минимальный интервал между принятыми пингами на стоянке
	MinGapStopped time.Duration `json:"min_gap_stopped"`
}

// DefaultGapFilterConfig возвращает конфигурацию по умолчанию
func DefaultGapFilterConfig() *GapFilterConfig {
	return &GapFilterConfig{
		MovingThresholdKph: 5.0,
		MinGapMoving:       5 * time.Second,
		MinGapStopped:      20 * time.Second,
	}
}

// RequiredGap возвращает минимальный интервал для пинга с данной скоростью
func (c *GapFilterConfig) RequiredGap(speedKph float64) time.Duration {
	if speedKph >= c.MovingThresholdKph {
		return c.MinGapMoving
	}
	return c.MinGapStopped
}
