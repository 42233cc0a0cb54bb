package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/seatledger/seatledger/internal/di"
	"github.com/seatledger/seatledger/internal/metrics"
	"github.com/seatledger/seatledger/internal/service"
	"github.com/seatledger/seatledger/internal/worker"
	"github.com/seatledger/seatledger/pkg/config"
	"github.com/seatledger/seatledger/pkg/database"
	"github.com/seatledger/seatledger/pkg/logger"
	"github.com/seatledger/seatledger/pkg/middleware"
	pkgredis "github.com/seatledger/seatledger/pkg/redis"
	"github.com/seatledger/seatledger/pkg/telemetry"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	logCfg := &logger.Config{
		Level:       "info",
		ServiceName: cfg.App.Name,
		Development: cfg.IsDevelopment(),
	}
	if cfg.App.Debug {
		logCfg.Level = "debug"
	}
	if err := logger.Init(logCfg); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	appLog := logger.Get()
	appLog.Info("Starting seat ledger service",
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize tracing
	telemetryCfg := &telemetry.Config{
		Enabled:        cfg.OTel.Enabled,
		ServiceName:    cfg.OTel.ServiceName,
		ServiceVersion: cfg.App.Version,
		Environment:    cfg.App.Environment,
		CollectorAddr:  cfg.OTel.CollectorAddr,
	}
	if _, err := telemetry.Init(ctx, telemetryCfg); err != nil {
		appLog.Warn("Tracing disabled", zap.Error(err))
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		_ = telemetry.Shutdown(shutdownCtx)
	}()

	// Initialize metrics
	if err := metrics.Init(); err != nil {
		appLog.Warn("Metrics disabled", zap.Error(err))
	}

	// Initialize database connection
	dbCfg := &database.PostgresConfig{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		Database:        cfg.Database.DBName,
		SSLMode:         cfg.Database.SSLMode,
		MaxConns:        cfg.Database.MaxConns,
		MinConns:        cfg.Database.MinConns,
		MaxConnLifetime: cfg.Database.ConnMaxLifetime,
		MaxConnIdleTime: cfg.Database.ConnMaxIdleTime,
		MaxRetries:      3,
		RetryInterval:   2 * time.Second,
		EnableTracing:   cfg.OTel.Enabled,
	}
	db, err := database.NewPostgres(ctx, dbCfg)
	if err != nil {
		appLog.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()
	appLog.Info("Database connected")

	// Initialize Redis connection. The service degrades gracefully without
	// it: no availability cache, no idempotency dedupe.
	redisCfg := &pkgredis.Config{
		Host:          cfg.Redis.Host,
		Port:          cfg.Redis.Port,
		Password:      cfg.Redis.Password,
		DB:            cfg.Redis.DB,
		PoolSize:      cfg.Redis.PoolSize,
		MinIdleConns:  cfg.Redis.MinIdleConns,
		DialTimeout:   cfg.Redis.DialTimeout,
		ReadTimeout:   cfg.Redis.ReadTimeout,
		WriteTimeout:  cfg.Redis.WriteTimeout,
		MaxRetries:    3,
		RetryInterval: 2 * time.Second,
	}
	redisClient, err := pkgredis.NewClient(ctx, redisCfg)
	if err != nil {
		appLog.Warn("Redis unavailable, running without cache", zap.Error(err))
		redisClient = nil
	} else {
		defer redisClient.Close()
		appLog.Info("Redis connected")
	}

	// Initialize notifier
	var notifier service.Notifier = service.NewNoOpNotifier()
	if cfg.Kafka.Enabled {
		kafkaNotifier, err := service.NewKafkaNotifier(ctx, &service.KafkaNotifierConfig{
			Brokers:     cfg.Kafka.Brokers,
			Topic:       cfg.Kafka.Topic,
			ClientID:    cfg.Kafka.ClientID,
			ServiceName: cfg.App.Name,
		})
		if err != nil {
			appLog.Warn("Kafka unavailable, booking events will not be published", zap.Error(err))
		} else {
			notifier = kafkaNotifier
			defer kafkaNotifier.Close()
			appLog.Info("Kafka producer connected")
		}
	}

	// Build dependency container
	container := di.NewContainer(&di.ContainerConfig{
		DB:              db,
		Redis:           redisClient,
		Notifier:        notifier,
		AvailabilityTTL: cfg.Cache.AvailabilityTTL,
		WorkerConfig: &worker.CompensationWorkerConfig{
			PollInterval: cfg.Worker.PollInterval,
			BatchSize:    cfg.Worker.BatchSize,
		},
	})

	// Start the compensation worker alongside the API
	if err := container.CompensationWorker.Start(ctx); err != nil {
		appLog.Fatal("Failed to start compensation worker", zap.Error(err))
	}
	defer container.CompensationWorker.Stop()

	// Setup HTTP server
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(telemetry.TracingMiddleware(cfg.App.Name))
	router.Use(middleware.UserID())
	router.Use(telemetry.MetricsMiddleware(metrics.RecordRequestDuration))

	router.GET("/health", container.HealthHandler.Health)
	router.GET("/ready", container.HealthHandler.Ready)

	api := router.Group("/api/v1")
	{
		bookings := api.Group("/bookings")
		{
			if redisClient != nil {
				idemCfg := middleware.DefaultIdempotencyConfig(redisClient.Client())
				idemCfg.TTL = cfg.Cache.IdempotencyTTL
				bookings.POST("", middleware.IdempotencyMiddleware(idemCfg), container.BookingHandler.CreateBooking)
			} else {
				bookings.POST("", container.BookingHandler.CreateBooking)
			}
			bookings.GET("", container.BookingHandler.ListMyBookings)
		}
		api.GET("/events/:id/availability", container.BookingHandler.GetAvailability)
	}

	admin := router.Group("/admin")
	{
		admin.GET("/bookings", container.AdminHandler.ListBookings)
		admin.PATCH("/bookings/:id/status", container.AdminHandler.UpdateBookingStatus)
		admin.GET("/events", container.AdminHandler.ListEvents)
		admin.GET("/events/:id", container.AdminHandler.GetEventWithBookings)
	}

	router.GET("/debug/db-stats", func(c *gin.Context) {
		s := db.Stats()
		c.JSON(http.StatusOK, gin.H{
			"acquired_conns": s.AcquiredConns(),
			"idle_conns":     s.IdleConns(),
			"total_conns":    s.TotalConns(),
			"max_conns":      s.MaxConns(),
		})
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		appLog.Info("HTTP server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLog.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLog.Info("Shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLog.Error("Forced shutdown", zap.Error(err))
	}

	appLog.Info("Server exited gracefully")
}
