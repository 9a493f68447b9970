package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/fleetlab/telematics-backend/internal/metrics"
	"github.com/fleetlab/telematics-backend/internal/repository"
	"github.com/fleetlab/telematics-backend/pkg/utils"
)

// ReportCache read-through кеш готовых отчетов поверх Redis.
// Инвалидация только по TTL: пересчет отчета детерминирован,
// устаревший на минуты результат приемлем.
type ReportCache struct {
	store   repository.ReportCache
	ttl     time.Duration
	enabled bool
	logger  *utils.Logger
}

// NewReportCache создает кеш отчетов. store == nil или enabled == false
// превращает кеш в no-op.
func NewReportCache(store repository.ReportCache, ttl time.Duration, enabled bool, logger *utils.Logger) *ReportCache {
	return &ReportCache{
		store:   store,
		ttl:     ttl,
		enabled: enabled && store != nil,
		logger:  logger,
	}
}

// CacheKey строит стабильный ключ кеша из вида отчета и его параметров
func CacheKey(report string, params ...string) string {
	h := sha256.New()
	h.Write([]byte(report))
	for _, p := range params {
		h.Write([]byte{0})
		h.Write([]byte(p))
	}
	return report + ":" + hex.EncodeToString(h.Sum(nil))[:16]
}

// Get читает отчет из кеша и десериализует его в v.
// Возвращает true при попадании.
func (c *ReportCache) Get(ctx context.Context, report, key string, v interface{}) bool {
	if !c.enabled {
		return false
	}

	data, err := c.store.Get(ctx, key)
	if err == repository.ErrNotFound {
		metrics.ReportCacheMisses.WithLabelValues(report).Inc()
		return false
	}
	if err != nil {
		// Недоступный Redis не должен ломать отчеты
		c.logger.WithError(err).Warn("Report cache read failed")
		metrics.ReportCacheMisses.WithLabelValues(report).Inc()
		return false
	}

	if err := json.Unmarshal(data, v); err != nil {
		c.logger.WithError(err).Warn("Failed to unmarshal cached report")
		metrics.ReportCacheMisses.WithLabelValues(report).Inc()
		return false
	}

	metrics.ReportCacheHits.WithLabelValues(report).Inc()
	return true
}

// Put сериализует отчет и кладет его в кеш с настроенным TTL
func (c *ReportCache) Put(ctx context.Context, report, key string, v interface{}) {
	if !c.enabled {
		return
	}

	data, err := json.Marshal(v)
	if err != nil {
		c.logger.WithError(err).Warn("Failed to marshal report for cache")
		return
	}

	if err := c.store.Set(ctx, key, data, c.ttl); err != nil {
		c.logger.WithError(err).Warn("Report cache write failed")
	}
}
