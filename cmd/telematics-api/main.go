package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/fleetlab/telematics-backend/internal/config"
	"github.com/fleetlab/telematics-backend/internal/handler"
	"github.com/fleetlab/telematics-backend/internal/repository"
	"github.com/fleetlab/telematics-backend/internal/service"
	"github.com/fleetlab/telematics-backend/pkg/utils"
)

var (
	// Version будет установлен при сборке через ldflags
	Version = "dev"
)

func main() {
	// .env удобен при локальной разработке; в production его нет
	_ = godotenv.Load()

	// Загружаем конфигурацию
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Инициализируем логирование
	logger := utils.NewLogger(config.LogLevel(), config.LogFormat())
	logger.WithField("version", Version).Info("Starting Telematics Backend")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Инициализируем MySQL репозиторий (поток позиций и справочник ТС)
	mysqlRepo, err := repository.NewMySQLRepository(&cfg.MySQL, logger)
	if err != nil {
		logger.WithField("error", err).Fatal("Failed to initialize MySQL repository")
	}
	defer mysqlRepo.Close()

	if err := mysqlRepo.Ping(ctx); err != nil {
		logger.WithField("error", err).Fatal("Failed to connect to MySQL")
	}
	logger.Info("Connected to MySQL")

	// Инициализируем Redis репозиторий (кеш отчетов, последние позиции)
	redisRepo, err := repository.NewRedisRepository(&cfg.Redis, logger)
	if err != nil {
		logger.WithField("error", err).Fatal("Failed to initialize Redis repository")
	}
	defer redisRepo.Close()

	if err := redisRepo.Ping(ctx); err != nil {
		logger.WithField("error", err).Fatal("Failed to connect to Redis")
	}
	logger.Info("Connected to Redis")

	// Режим обслуживания с горячей перезагрузкой из файла состояния
	runtime, err := config.NewRuntimeState(cfg.Maintenance.StateFile, logger)
	if err != nil {
		logger.WithField("error", err).Fatal("Failed to initialize runtime state")
	}
	defer runtime.Close()

	// Сервис отчетов с read-through кешем
	cache := service.NewReportCache(redisRepo, cfg.Cache.TTL, cfg.Cache.Enabled, logger)
	reports := service.NewReportService(cfg, mysqlRepo, mysqlRepo, cache, logger)

	restHandler := handler.NewRESTHandler(reports, redisRepo, logger)
	server := handler.NewServer(cfg, runtime, restHandler, mysqlRepo, logger)

	// Запускаем HTTP сервер в горутине
	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			logger.WithField("error", err).Fatal("Failed to start HTTP server")
		}
	}()

	// Ждем сигнала остановки
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan

	logger.WithField("signal", sig).Info("Received shutdown signal")

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithField("error", err).Error("HTTP server shutdown error")
	}

	logger.Info("Server stopped gracefully")
}
