package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config содержит конфигурацию приложения
type Config struct {
	Environment string
	Server      ServerConfig
	Redis       RedisConfig
	MySQL       MySQLConfig
	Analytics   AnalyticsConfig
	Cache       CacheConfig
	Monitoring  MonitoringConfig
	Maintenance MaintenanceConfig
}

// ServerConfig конфигурация HTTP сервера
type ServerConfig struct {
	Address      string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// RedisConfig конфигурация Redis
type RedisConfig struct {
	URL          string
	Password     string
	DB           int
	PoolSize     int
	MinIdleConns int
}

// MySQLConfig конфигурация MySQL (хранилище позиций и справочник ТС)
type MySQLConfig struct {
	DSN          string
	MaxIdleConns int
	MaxOpenConns int
}

// AnalyticsConfig параметры аналитического конвейера
type AnalyticsConfig struct {
	// Гэп-фильтр
	MovingThresholdKph float64
	MinGapMovingSec    int
	MinGapStoppedSec   int

	// Сегментация суток
	StopSpeedThresholdKph float64
	MinStopDurationSec    int

	// Сверка пробега GPS против одометра
	MileageToleranceKm float64

	// Топливный детектор
	RefuelMinDeltaPct     float64
	TheftMinDropPct       float64
	SpikeConsumptionRatio float64
	LowFuelFloorPct       float64
	FuelWindowMaxGap      time.Duration
	StationGeohashPrecision int

	// Детектор событий вождения
	HarshBrakingKphPerSec float64
	HarshAccelKphPerSec   float64
	SpeedingLimitKph      float64

	// Fан-аут по ТС в отчетах по всему парку
	FleetWorkers int
}

// CacheConfig конфигурация read-through кеша отчетов
type CacheConfig struct {
	Enabled bool
	TTL     time.Duration
}

// MonitoringConfig конфигурация мониторинга
type MonitoringConfig struct {
	MetricsEnabled bool
}

// MaintenanceConfig конфигурация режима обслуживания
type MaintenanceConfig struct {
	StateFile string
}

// Load загружает конфигурацию из переменных окружения
func Load() (*Config, error) {
	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Server: ServerConfig{
			Address:      getEnv("SERVER_ADDRESS", ":8080"),
			ReadTimeout:  getDuration("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout: getDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:  getDuration("SERVER_IDLE_TIMEOUT", 120*time.Second),
		},
		Redis: RedisConfig{
			URL:          getEnv("REDIS_URL", "redis://localhost:6379"),
			Password:     getEnv("REDIS_PASSWORD", ""),
			DB:           getInt("REDIS_DB", 0),
			PoolSize:     getInt("REDIS_POOL_SIZE", 100),
			MinIdleConns: getInt("REDIS_MIN_IDLE_CONNS", 10),
		},
		MySQL: MySQLConfig{
			DSN:          getEnv("MYSQL_DSN", ""),
			MaxIdleConns: getInt("MYSQL_MAX_IDLE_CONNS", 10),
			MaxOpenConns: getInt("MYSQL_MAX_OPEN_CONNS", 100),
		},
		Analytics: AnalyticsConfig{
			MovingThresholdKph:      getFloat("FILTER_MOVING_THRESHOLD_KPH", 5.0),
			MinGapMovingSec:         getInt("FILTER_MIN_GAP_MOVING_SEC", 5),
			MinGapStoppedSec:        getInt("FILTER_MIN_GAP_STOPPED_SEC", 20),
			StopSpeedThresholdKph:   getFloat("SEGMENT_STOP_SPEED_KPH", 3.0),
			MinStopDurationSec:      getInt("SEGMENT_MIN_STOP_SEC", 120),
			MileageToleranceKm:      getFloat("MILEAGE_TOLERANCE_KM", 1.0),
			RefuelMinDeltaPct:       getFloat("FUEL_REFUEL_MIN_DELTA_PCT", 10.0),
			TheftMinDropPct:         getFloat("FUEL_THEFT_MIN_DROP_PCT", 8.0),
			SpikeConsumptionRatio:   getFloat("FUEL_SPIKE_RATIO", 2.0),
			LowFuelFloorPct:         getFloat("FUEL_LOW_FLOOR_PCT", 15.0),
			FuelWindowMaxGap:        getDuration("FUEL_WINDOW_MAX_GAP", 30*time.Minute),
			StationGeohashPrecision: getInt("FUEL_STATION_GEOHASH_PRECISION", 6),
			HarshBrakingKphPerSec:   getFloat("DRIVING_HARSH_BRAKING_KPH_SEC", 12.0),
			HarshAccelKphPerSec:     getFloat("DRIVING_HARSH_ACCEL_KPH_SEC", 10.0),
			SpeedingLimitKph:        getFloat("DRIVING_SPEEDING_LIMIT_KPH", 110.0),
			FleetWorkers:            getInt("FLEET_WORKERS", 8),
		},
		Cache: CacheConfig{
			Enabled: getBool("REPORT_CACHE_ENABLED", true),
			TTL:     getDuration("REPORT_CACHE_TTL", 5*time.Minute),
		},
		Monitoring: MonitoringConfig{
			MetricsEnabled: getBool("METRICS_ENABLED", true),
		},
		Maintenance: MaintenanceConfig{
			StateFile: getEnv("MAINTENANCE_STATE_FILE", ""),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate проверяет корректность конфигурации
func (c *Config) Validate() error {
	if c.Server.Address == "" {
		return fmt.Errorf("SERVER_ADDRESS is required")
	}

	if c.Redis.URL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}

	a := &c.Analytics
	if a.MovingThresholdKph <= 0 {
		return fmt.Errorf("FILTER_MOVING_THRESHOLD_KPH must be positive")
	}
	if a.MinGapMovingSec <= 0 || a.MinGapStoppedSec <= 0 {
		return fmt.Errorf("filter gap intervals must be positive")
	}
	if a.MinGapStoppedSec < a.MinGapMovingSec {
		return fmt.Errorf("FILTER_MIN_GAP_STOPPED_SEC must be >= FILTER_MIN_GAP_MOVING_SEC")
	}
	if a.MinStopDurationSec <= 0 {
		return fmt.Errorf("SEGMENT_MIN_STOP_SEC must be positive")
	}
	if a.RefuelMinDeltaPct <= 0 || a.TheftMinDropPct <= 0 {
		return fmt.Errorf("fuel thresholds must be positive")
	}
	if a.StationGeohashPrecision < 1 || a.StationGeohashPrecision > 12 {
		return fmt.Errorf("FUEL_STATION_GEOHASH_PRECISION must be between 1 and 12")
	}
	if a.FleetWorkers <= 0 {
		return fmt.Errorf("FLEET_WORKERS must be positive")
	}

	return nil
}

// Helper функции для чтения переменных окружения

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// LogLevel возвращает уровень логирования
func LogLevel() string {
	return getEnv("LOG_LEVEL", "info")
}

// LogFormat возвращает формат логирования
func LogFormat() string {
	return getEnv("LOG_FORMAT", "json")
}
