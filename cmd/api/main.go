package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"timetable-lookup/config"
	"timetable-lookup/handlers"
	"timetable-lookup/logger"
	"timetable-lookup/router"
	"timetable-lookup/services"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	// Загружаем .env файл (игнорируем ошибку для продакшн)
	_ = godotenv.Load()

	cfg := config.Load()

	log, err := logger.New(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("starting timetable service",
		zap.String("port", cfg.ServerPort),
		zap.String("timetables_path", cfg.TimetablesPath),
		zap.String("storage", cfg.StorageBackend),
	)
	warnInsecureSecrets(cfg, log)

	store, err := newStore(cfg)
	if err != nil {
		log.Fatal("failed to initialize timetable storage", zap.Error(err))
	}
	if err := store.Ping(context.Background()); err != nil {
		// Сервис стартует, поиск будет возвращать ошибку до появления хранилища
		log.Warn("timetable storage not reachable", zap.Error(err))
	}

	limiter, err := services.NewLimiter(cfg)
	if err != nil {
		log.Warn("redis unavailable, using in-memory rate limiter", zap.Error(err))
		limiter = services.NewMemoryLimiter(cfg.RateLimitMax, cfg.RateLimitWindow)
	}

	flashCache := services.NewCacheService(cfg.SessionMaxAge, 2*cfg.SessionMaxAge)
	timetableService := services.NewTimetableService(store, log)
	flashStore := services.NewFlashStore(flashCache, cfg.SessionMaxAge)
	sessionManager := services.NewSessionManager(cfg.SessionSecret, cfg.CookieSecret, cfg.SessionMaxAge)

	timetableHandler := handlers.NewTimetableHandler(timetableService, flashStore, log)
	healthHandler := handlers.NewHealthHandler(timetableService)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	engine, err := router.Setup(cfg, timetableHandler, healthHandler, sessionManager, limiter, log)
	if err != nil {
		log.Fatal("failed to initialize router", zap.Error(err))
	}

	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Info("shutting down", zap.String("signal", sig.String()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("server shutdown failed", zap.Error(err))
	}
	if err := limiter.Close(); err != nil {
		log.Warn("failed to close rate limiter", zap.Error(err))
	}
}

func newStore(cfg *config.Config) (services.TimetableStore, error) {
	switch cfg.StorageBackend {
	case "fs", "":
		return services.NewFileStore(cfg.TimetablesPath), nil
	case "minio":
		return services.NewMinIOStore(cfg)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}

func warnInsecureSecrets(cfg *config.Config, log *zap.Logger) {
	for _, name := range cfg.InsecureSecrets() {
		if cfg.IsProduction() {
			log.Error("signing secret uses the insecure default, set it in the environment", zap.String("variable", name))
			continue
		}
		log.Warn("signing secret uses the insecure default", zap.String("variable", name))
	}
}
