package repository

import (
	"context"
	"errors"
	"time"

	"github.com/fleetlab/telematics-backend/internal/models"
)

// ErrNotFound возвращается, когда запись отсутствует в хранилище
var ErrNotFound = errors.New("not found")

// PositionStore читающий доступ к append-only потоку позиций.
// Поток наполняется внешним сервисом приема телеметрии; здесь позиции
// только читаются диапазонами, упорядоченными по recorded_at.
type PositionStore interface {
	// Проверка соединения
	Ping(ctx context.Context) error
	Close() error

	// GetPositionRange дописывает в buf позиции устройства за [from, to),
	// упорядоченные по recorded_at, и возвращает расширенный слайс
	GetPositionRange(ctx context.Context, deviceID string, from, to time.Time, buf []models.Position) ([]models.Position, error)
}

// VehicleFilter фильтры выборки ТС для отчетов по парку
type VehicleFilter struct {
	CompanyID   string
	VehicleType string
	Department  string
	VehicleIDs  []string
}

// Directory читающий доступ к справочнику ТС и учету затрат.
// Справочник ведется внешней системой; отображение vehicleId -> deviceId
// принимается как доверенное.
type Directory interface {
	// GetVehicle возвращает ТС по идентификатору; ErrNotFound если неизвестно
	GetVehicle(ctx context.Context, vehicleID string) (*models.Vehicle, error)

	// ListVehicles возвращает ТС, удовлетворяющие фильтру
	ListVehicles(ctx context.Context, filter VehicleFilter) ([]*models.Vehicle, error)

	// GetCostEntries возвращает записи затрат по списку ТС за [from, to)
	GetCostEntries(ctx context.Context, vehicleIDs []string, from, to time.Time) ([]models.CostEntry, error)
}

// ReportCache короткоживущий read-through кеш готовых отчетов.
// Инвалидация только по TTL: аналитический слой не изменяет исходные
// данные, событийная инвалидация не нужна.
type ReportCache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// LatestPositionStore последняя известная позиция устройства,
// поддерживаемая сервисом приема телеметрии
type LatestPositionStore interface {
	GetLatestPosition(ctx context.Context, deviceID string) (*models.Position, error)
}

// Ensure implementations
var _ PositionStore = (*MySQLRepository)(nil)
var _ Directory = (*MySQLRepository)(nil)
var _ ReportCache = (*RedisRepository)(nil)
var _ LatestPositionStore = (*RedisRepository)(nil)
