package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"shop_backend/internal/config"
	"shop_backend/internal/database"
	"shop_backend/internal/handlers"
	"shop_backend/internal/logging"
	"shop_backend/internal/migrations"
	"shop_backend/internal/pagination"
	"shop_backend/internal/redis"
	"shop_backend/internal/repository"
	"shop_backend/internal/services"
	"shop_backend/pkg/fbconversion"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg := config.Load()

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		log.Fatal("Failed to build logger:", err)
	}
	defer func() { _ = logger.Sync() }()

	gin.SetMode(cfg.GinMode)

	// Initialize database
	db, err := database.Initialize(cfg.DatabaseURL, cfg.DBLogLevel, logger)
	if err != nil {
		logger.Fatal("failed to initialize database", zap.Error(err))
	}
	if cfg.SeedDemoData {
		if _, err := migrations.SeedDemoProducts(db, logger); err != nil {
			logger.Warn("failed to seed demo products", zap.Error(err))
		}
	}

	// Initialize Redis. Without it order numbers fall back to the clock and
	// idempotency keys are ignored.
	var (
		orderNumbers     services.OrderNumberGenerator
		idempotencyStore handlers.IdempotencyStore
		redisCheck       handlers.Pinger
	)
	redisClient, err := redis.Initialize(cfg.RedisURL)
	if err != nil {
		logger.Warn("redis unavailable, using clock order numbers", zap.Error(err))
	} else {
		defer redisClient.Close()
		orderNumbers = services.OrderNumberFunc(redisClient.NextOrderNumber)
		idempotencyStore = redisClient
		redisCheck = redisClient
	}

	// Conversion tracking
	fbClient := fbconversion.NewClient(cfg.Facebook.APIURL, cfg.Facebook.APIVersion, cfg.Facebook.PixelID, cfg.Facebook.AccessToken)
	fbClient.TestEventCode = cfg.Facebook.TestEventCode
	if !fbClient.Enabled() {
		logger.Info("facebook conversion tracking disabled")
	} else if cfg.Facebook.Debug {
		logger.Info("facebook conversion tracking enabled",
			zap.String("pixel_id", cfg.Facebook.PixelID),
			zap.String("test_event_code", cfg.Facebook.TestEventCode))
	}

	// Initialize services
	orderService, err := services.NewOrderService(services.OrderServiceDeps{
		DB:           db,
		UnitOfWork:   repository.NewUnitOfWork(db),
		OrderNumbers: orderNumbers,
		Tracker:      services.NewFacebookTracker(fbClient),
		Conversion: services.ConversionSettings{
			Rate:     cfg.Conversion.Rate,
			Currency: cfg.Conversion.Currency,
			Timeout:  cfg.Conversion.Timeout,
		},
		Pagination: pagination.Config{
			DefaultLimit: cfg.Pagination.DefaultLimit,
			MaxLimit:     cfg.Pagination.MaxLimit,
		},
		Logger: logger,
	})
	if err != nil {
		logger.Fatal("failed to build order service", zap.Error(err))
	}
	productService, err := services.NewProductService(repository.NewReportRepository(db))
	if err != nil {
		logger.Fatal("failed to build product service", zap.Error(err))
	}

	admin := services.NewAdminAuthenticator(cfg.AdminKeyHash)
	if !admin.Enabled() {
		logger.Warn("ADMIN_KEY_HASH is empty, admin routes are unprotected")
	}

	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("failed to access database pool", zap.Error(err))
	}

	// Setup routes
	router := handlers.NewRouter(handlers.RouterConfig{
		Orders:         orderService,
		Products:       productService,
		Admin:          admin,
		Idempotency:    idempotencyStore,
		IdempotencyTTL: cfg.IdempotencyTTL,
		HealthChecks: map[string]handlers.Pinger{
			"database": handlers.PingFunc(sqlDB.PingContext),
			"redis":    redisCheck,
		},
		Logger: logger,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("server starting", zap.String("port", cfg.ServerPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("failed to start server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
	if err := sqlDB.Close(); err != nil {
		logger.Warn("failed to close database", zap.Error(err))
	}
}
