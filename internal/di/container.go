package di

import (
	"time"

	"github.com/seatledger/seatledger/internal/handler"
	"github.com/seatledger/seatledger/internal/repository"
	"github.com/seatledger/seatledger/internal/service"
	"github.com/seatledger/seatledger/internal/worker"
	"github.com/seatledger/seatledger/pkg/database"
	"github.com/seatledger/seatledger/pkg/redis"
)

// Container holds all dependencies for the booking service
type Container struct {
	// Infrastructure
	DB    *database.PostgresDB
	Redis *redis.Client

	// Repositories
	EventRepo        repository.EventRepository
	ReservationRepo  repository.ReservationRepository
	BookingTxRepo    repository.BookingTxRepository
	CompensationRepo repository.CompensationRepository
	Cache            repository.AvailabilityCache

	// Notifier
	Notifier service.Notifier

	// Services
	BookingService service.BookingService

	// Workers
	CompensationWorker *worker.CompensationWorker

	// Handlers
	HealthHandler  *handler.HealthHandler
	BookingHandler *handler.BookingHandler
	AdminHandler   *handler.AdminHandler
}

// ContainerConfig contains configuration for building the container
type ContainerConfig struct {
	DB              *database.PostgresDB
	Redis           *redis.Client
	Notifier        service.Notifier
	AvailabilityTTL time.Duration
	ServiceConfig   *service.BookingServiceConfig
	WorkerConfig    *worker.CompensationWorkerConfig
}

// NewContainer creates a new dependency injection container
func NewContainer(cfg *ContainerConfig) *Container {
	c := &Container{
		DB:       cfg.DB,
		Redis:    cfg.Redis,
		Notifier: cfg.Notifier,
	}

	// Initialize repositories
	c.EventRepo = repository.NewPostgresEventRepository(cfg.DB.Pool())
	c.ReservationRepo = repository.NewPostgresReservationRepository(cfg.DB.Pool())
	c.BookingTxRepo = repository.NewTransactionalBookingRepository(cfg.DB.Pool())
	c.CompensationRepo = repository.NewPostgresCompensationRepository(cfg.DB.Pool())
	if cfg.Redis != nil {
		c.Cache = repository.NewRedisAvailabilityCache(cfg.Redis, cfg.AvailabilityTTL)
	}

	// Initialize services
	c.BookingService = service.NewBookingService(
		c.EventRepo,
		c.ReservationRepo,
		c.BookingTxRepo,
		c.CompensationRepo,
		c.Cache,
		c.Notifier,
		cfg.ServiceConfig,
	)

	// Initialize workers
	c.CompensationWorker = worker.NewCompensationWorker(
		c.CompensationRepo,
		cfg.WorkerConfig,
	)

	// Initialize handlers
	var redisCheck handler.HealthChecker
	if cfg.Redis != nil {
		redisCheck = cfg.Redis
	}
	c.HealthHandler = handler.NewHealthHandler(cfg.DB, redisCheck)
	c.BookingHandler = handler.NewBookingHandler(c.BookingService)
	c.AdminHandler = handler.NewAdminHandler(c.BookingService)

	return c
}
