package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/fleetlab/telematics-backend/internal/capabilities"
	"github.com/fleetlab/telematics-backend/internal/config"
	"github.com/fleetlab/telematics-backend/internal/metrics"
	"github.com/fleetlab/telematics-backend/internal/repository"
	"github.com/fleetlab/telematics-backend/pkg/utils"
)

// Server HTTP сервер отчетного API
type Server struct {
	router      *gin.Engine
	httpServer  *http.Server
	logger      *utils.Logger
	config      *config.Config
	runtime     *config.RuntimeState
	restHandler *RESTHandler
	positions   repository.PositionStore
}

// NewServer создает новый HTTP сервер
func NewServer(cfg *config.Config, runtime *config.RuntimeState, restHandler *RESTHandler, positions repository.PositionStore, logger *utils.Logger) *Server {
	// Production mode для Gin
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Middleware
	router.Use(RequestIDMiddleware())
	router.Use(LoggerMiddleware(logger))
	router.Use(gin.Recovery())
	router.Use(CORSMiddleware())
	router.Use(RateLimitMiddleware())
	router.Use(SecurityHeadersMiddleware())
	router.Use(MetricsMiddleware())

	server := &Server{
		router:      router,
		logger:      logger,
		config:      cfg,
		runtime:     runtime,
		restHandler: restHandler,
		positions:   positions,
	}

	server.httpServer = &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	server.setupRoutes()

	return server
}

// setupRoutes настраивает маршруты отчетного API
func (s *Server) setupRoutes() {
	// Health check
	s.router.GET("/health", s.healthCheck)

	// Метрики Prometheus
	if s.config.Monitoring.MetricsEnabled {
		s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	// API v1 группа: отчеты закрыты режимом обслуживания и тарифом
	v1 := s.router.Group("/api/v1")
	v1.Use(MaintenanceMiddleware(s.runtime))
	{
		vehicles := v1.Group("/vehicles/:id")
		{
			vehicles.GET("/activity/daily",
				CapabilityMiddleware(capabilities.ReportDailyActivity), s.restHandler.GetDailyActivity)
			vehicles.GET("/mileage",
				CapabilityMiddleware(capabilities.ReportMileage), s.restHandler.GetMileage)
			vehicles.GET("/mileage/periods",
				CapabilityMiddleware(capabilities.ReportMileage), s.restHandler.GetMileagePeriods)
			vehicles.GET("/fuel",
				CapabilityMiddleware(capabilities.ReportFuel), s.restHandler.GetFuel)
			vehicles.GET("/driving",
				CapabilityMiddleware(capabilities.ReportDriving), s.restHandler.GetDriving)
			vehicles.GET("/position/latest", s.restHandler.GetLatestPosition)
		}

		v1.GET("/fleet/:companyId/reports/monthly",
			CapabilityMiddleware(capabilities.ReportMonthlyFleet), s.restHandler.GetMonthlyFleetReport)
	}
}

// Start запускает HTTP сервер
func (s *Server) Start() error {
	s.logger.WithFields(map[string]interface{}{
		"address": s.config.Server.Address,
		"mode":    gin.Mode(),
	}).Info("Starting HTTP server")

	return s.httpServer.ListenAndServe()
}

// Shutdown корректное завершение сервера
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

// healthCheck проверяет доступность зависимостей
func (s *Server) healthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	status := http.StatusOK
	mysqlOK := true
	if err := s.positions.Ping(ctx); err != nil {
		mysqlOK = false
		status = http.StatusServiceUnavailable
		metrics.MySQLConnectionStatus.Set(0)
	} else {
		metrics.MySQLConnectionStatus.Set(1)
	}

	statusText := "ok"
	if !mysqlOK {
		statusText = "degraded"
	}
	maintenance := s.runtime.Maintenance()

	c.JSON(status, gin.H{
		"status":      statusText,
		"mysql":       mysqlOK,
		"maintenance": maintenance.Enabled,
		"timestamp":   time.Now().Unix(),
	})
}

// ==================== Middleware ====================

// RequestIDMiddleware присваивает каждому запросу идентификатор
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set("request_id", requestID)
		c.Header("X-Request-ID", requestID)
		c.Next()
	}
}

// LoggerMiddleware логирование запросов
func LoggerMiddleware(logger *utils.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		latency := time.Since(start)
		logger.WithFields(map[string]interface{}{
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     c.Writer.Status(),
			"latency_ms": latency.Milliseconds(),
			"client_ip":  c.ClientIP(),
			"request_id": c.GetString("request_id"),
		}).Info("HTTP request completed")
	}
}

// CORSMiddleware настройка CORS
func CORSMiddleware() gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowOrigins:     []string{"*"}, // В production указать конкретные домены
		AllowMethods:     []string{"GET", "OPTIONS"},
		AllowHeaders:     []string{"*"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	})
}

// RateLimitMiddleware ограничение частоты запросов
func RateLimitMiddleware() gin.HandlerFunc {
	limiter := rate.NewLimiter(rate.Limit(100), 200) // 100 req/sec, burst 200

	return func(c *gin.Context) {
		if !limiter.Allow() {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"code":    "rate_limit_exceeded",
				"message": "Too many requests",
			})
			c.Abort()
			return
		}
		c.Next()
	}
}

// SecurityHeadersMiddleware заголовки безопасности
func SecurityHeadersMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Next()
	}
}

// MetricsMiddleware пишет HTTP метрики Prometheus
func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())
		metrics.HTTPRequestDuration.WithLabelValues(c.Request.Method, endpoint, status).Observe(time.Since(start).Seconds())
		metrics.HTTPRequestsTotal.WithLabelValues(c.Request.Method, endpoint, status).Inc()
	}
}

// MaintenanceMiddleware закрывает отчетное API на время обслуживания
func MaintenanceMiddleware(runtime *config.RuntimeState) gin.HandlerFunc {
	return func(c *gin.Context) {
		if runtime != nil {
			if st := runtime.Maintenance(); st.Enabled {
				message := st.Message
				if message == "" {
					message = "Service is under maintenance"
				}
				c.JSON(http.StatusServiceUnavailable, gin.H{
					"code":    "maintenance",
					"message": message,
				})
				c.Abort()
				return
			}
		}
		c.Next()
	}
}

// CapabilityMiddleware проверяет, что тариф компании включает вид отчета.
// Тариф проставляет вышестоящий шлюз аутентификации в заголовке
// X-Subscription-Tier; отсутствие заголовка трактуется как basic.
func CapabilityMiddleware(kind capabilities.ReportKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		tier := capabilities.Tier(c.GetHeader("X-Subscription-Tier"))
		if !capabilities.ForTier(tier).Allows(kind) {
			c.JSON(http.StatusForbidden, gin.H{
				"code":    "capability_required",
				"message": "Subscription tier does not include this report",
			})
			c.Abort()
			return
		}
		c.Next()
	}
}
