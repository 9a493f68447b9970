package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/fleetlab/telematics-backend/internal/config"
	"github.com/fleetlab/telematics-backend/internal/models"
	"github.com/fleetlab/telematics-backend/pkg/utils"
)

const (
	// Префиксы ключей
	ReportPrefix         = "report:"          // report:{kind}:{hash}
	LatestPositionPrefix = "latest:position:" // latest:position:{device_id}

	// TTL свежей позиции: после суток без телеметрии ключ не нужен
	LatestPositionTTL = 24 * time.Hour
)

// RedisRepository репозиторий для работы с Redis: кэш отчетов
// и последние известные позиции устройств
type RedisRepository struct {
	client *redis.Client
	logger *utils.Logger
	config *config.RedisConfig
}

// NewRedisRepository создает новый Redis репозиторий
func NewRedisRepository(cfg *config.RedisConfig, logger *utils.Logger) (*RedisRepository, error) {
	if cfg == nil {
		return nil, fmt.Errorf("redis config cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}

	// Парсим Redis URL
	opt, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	// Дополнительные настройки
	opt.Password = cfg.Password
	opt.DB = cfg.DB
	opt.PoolSize = cfg.PoolSize
	opt.MinIdleConns = cfg.MinIdleConns
	opt.ConnMaxIdleTime = 30 * time.Minute
	opt.DialTimeout = 10 * time.Second
	opt.ReadTimeout = 3 * time.Second
	opt.WriteTimeout = 3 * time.Second

	client := redis.NewClient(opt)

	return &RedisRepository{
		client: client,
		logger: logger,
		config: cfg,
	}, nil
}

// Ping проверяет соединение с Redis
func (r *RedisRepository) Ping(ctx context.Context) error {
	_, err := r.client.Ping(ctx).Result()
	if err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

// Close закрывает соединение с Redis
func (r *RedisRepository) Close() error {
	return r.client.Close()
}

// GetClient возвращает Redis клиент для внешнего использования
func (r *RedisRepository) GetClient() *redis.Client {
	return r.client
}

// Get читает сериализованный отчет из кэша. Возвращает ErrNotFound,
// если ключ отсутствует или истек
func (r *RedisRepository) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := r.client.Get(ctx, ReportPrefix+key).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cached report: %w", err)
	}
	return data, nil
}

// Set сохраняет сериализованный отчет с TTL. Инвалидация только по TTL
func (r *RedisRepository) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("cache ttl must be positive, got %v", ttl)
	}
	if err := r.client.Set(ctx, ReportPrefix+key, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache report: %w", err)
	}
	return nil
}

// GetLatestPosition возвращает последнюю известную позицию устройства
func (r *RedisRepository) GetLatestPosition(ctx context.Context, deviceID string) (*models.Position, error) {
	data, err := r.client.Get(ctx, LatestPositionPrefix+deviceID).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest position: %w", err)
	}

	var pos models.Position
	if err := json.Unmarshal(data, &pos); err != nil {
		return nil, fmt.Errorf("failed to unmarshal latest position: %w", err)
	}

	return &pos, nil
}

// SaveLatestPosition сохраняет последнюю известную позицию устройства.
// Пишется ингестером, здесь используется в тестах и вспомогательных утилитах
func (r *RedisRepository) SaveLatestPosition(ctx context.Context, pos *models.Position) error {
	if pos == nil {
		return fmt.Errorf("position cannot be nil")
	}

	data, err := json.Marshal(pos)
	if err != nil {
		return fmt.Errorf("failed to marshal position: %w", err)
	}

	if err := r.client.Set(ctx, LatestPositionPrefix+pos.DeviceID, data, LatestPositionTTL).Err(); err != nil {
		return fmt.Errorf("failed to save latest position: %w", err)
	}

	return nil
}
