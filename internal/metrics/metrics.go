package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP метрики
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "telematics_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint", "status"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "telematics_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	// Метрики построения отчетов
	ReportDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "telematics_report_duration_seconds",
			Help:    "Duration of report computation in seconds",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"report"},
	)

	ReportErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "telematics_report_errors_total",
			Help: "Total number of report computation errors",
		},
		[]string{"report"},
	)

	ReportVehiclesProcessed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "telematics_report_vehicles_processed_total",
			Help: "Total number of vehicles processed by fleet reports",
		},
	)

	// Метрики гэп-фильтра
	FilterPositionsDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "telematics_filter_positions_dropped_total",
			Help: "Total number of positions dropped by the gap filter",
		},
		[]string{"reason"}, // moving, stopped
	)

	FuelEventsDetected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "telematics_fuel_events_total",
			Help: "Total number of fuel events detected by type",
		},
		[]string{"event_type"},
	)

	// Кэш отчетов
	ReportCacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "telematics_report_cache_hits_total",
			Help: "Total number of report cache hits",
		},
		[]string{"report"},
	)

	ReportCacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "telematics_report_cache_misses_total",
			Help: "Total number of report cache misses",
		},
		[]string{"report"},
	)

	// Redis метрики
	RedisOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "telematics_redis_operation_duration_seconds",
			Help:    "Duration of Redis operations in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"operation"},
	)

	RedisConnectionStatus = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "telematics_redis_connection_status",
			Help: "Redis connection status (1 = connected, 0 = disconnected)",
		},
	)

	// MySQL метрики
	MySQLQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "telematics_mysql_query_duration_seconds",
			Help:    "Duration of MySQL queries in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"query"},
	)

	MySQLConnectionStatus = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "telematics_mysql_connection_status",
			Help: "MySQL connection status (1 = connected, 0 = disconnected)",
		},
	)
)
