package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/seatledger/seatledger/internal/domain"
	"github.com/seatledger/seatledger/internal/dto"
	"github.com/seatledger/seatledger/internal/metrics"
	"github.com/seatledger/seatledger/internal/repository"
	"github.com/seatledger/seatledger/pkg/logger"
	"github.com/seatledger/seatledger/pkg/retry"
	"github.com/seatledger/seatledger/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

// BookingService defines the interface for booking business logic
type BookingService interface {
	// CreateBooking claims seats and records a pending reservation
	CreateBooking(ctx context.Context, userID string, req *dto.CreateBookingRequest) (*dto.BookingResponse, error)

	// UpdateBookingStatus transitions a reservation, restoring seats on cancel
	UpdateBookingStatus(ctx context.Context, bookingID string, target domain.ReservationStatus) (*dto.BookingResponse, error)

	// ListUserBookings retrieves a user's reservations newest-first
	ListUserBookings(ctx context.Context, userID string, page, limit int) ([]*dto.BookingResponse, error)

	// ListBookings retrieves reservations for the admin view with pagination
	ListBookings(ctx context.Context, status domain.ReservationStatus, page, limit int) (*dto.PaginatedBookingsResponse, error)

	// GetEventWithBookings composes an event and its active reservations
	GetEventWithBookings(ctx context.Context, eventID string) (*domain.EventWithBookings, error)

	// ListEvents retrieves events with ledger-derived booking totals
	ListEvents(ctx context.Context, page, limit int) ([]*domain.Event, error)

	// GetEventAvailability reports current seat availability, cache-first
	GetEventAvailability(ctx context.Context, eventID string) (*dto.AvailabilityResponse, error)
}

// bookingService implements BookingService
type bookingService struct {
	events        repository.EventRepository
	reservations  repository.ReservationRepository
	tx            repository.BookingTxRepository
	compensations repository.CompensationRepository
	cache         repository.AvailabilityCache
	notifier      Notifier
	retryConfig   *retry.Config
}

// BookingServiceConfig contains configuration for the booking service
type BookingServiceConfig struct {
	// CompensationRetry configures the inline settle retries before the
	// restore is left to the compensation worker
	CompensationRetry *retry.Config
}

// NewBookingService creates a new booking service
func NewBookingService(
	events repository.EventRepository,
	reservations repository.ReservationRepository,
	tx repository.BookingTxRepository,
	compensations repository.CompensationRepository,
	cache repository.AvailabilityCache,
	notifier Notifier,
	cfg *BookingServiceConfig,
) BookingService {
	retryConfig := &retry.Config{
		MaxRetries:      3,
		InitialInterval: 50 * time.Millisecond,
		MaxInterval:     time.Second,
		Multiplier:      2.0,
		JitterFactor:    0.1,
	}
	if cfg != nil && cfg.CompensationRetry != nil {
		retryConfig = cfg.CompensationRetry
	}
	if notifier == nil {
		notifier = NewNoOpNotifier()
	}
	return &bookingService{
		events:        events,
		reservations:  reservations,
		tx:            tx,
		compensations: compensations,
		cache:         cache,
		notifier:      notifier,
		retryConfig:   retryConfig,
	}
}

// CreateBooking claims seats and records the reservation in one committed
// transaction: a ledger failure rolls the claim back, so there is never a
// claimed seat without a matching ledger row.
func (s *bookingService) CreateBooking(ctx context.Context, userID string, req *dto.CreateBookingRequest) (*dto.BookingResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.booking.create")
	defer span.End()

	if userID == "" {
		span.SetStatus(codes.Error, "invalid user_id")
		return nil, domain.ErrInvalidUserID
	}
	if req == nil || req.EventID == "" {
		span.SetStatus(codes.Error, "invalid event_id")
		return nil, domain.ErrInvalidEventID
	}
	if req.Quantity < 1 {
		span.SetStatus(codes.Error, "invalid quantity")
		return nil, domain.ErrInvalidQuantity
	}

	span.SetAttributes(
		attribute.String("user_id", userID),
		attribute.String("event_id", req.EventID),
		attribute.Int("quantity", req.Quantity),
	)

	event, err := s.events.GetByID(ctx, req.EventID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	// Price is captured at claim time; later price changes never move the
	// amount owed on existing reservations.
	totalAmount := event.Price * float64(req.Quantity)

	now := time.Now()
	reservation := &domain.Reservation{
		ID:          uuid.New().String(),
		UserID:      userID,
		EventID:     req.EventID,
		Quantity:    req.Quantity,
		TotalAmount: totalAmount,
		Status:      domain.StatusPending,
		BookedAt:    now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.tx.CreateWithClaim(ctx, reservation); err != nil {
		if errors.Is(err, domain.ErrInsufficientSeats) {
			metrics.RecordBookingFailed(ctx, req.EventID, "insufficient_seats")
		} else {
			span.RecordError(err)
			metrics.RecordBookingFailed(ctx, req.EventID, "ledger_write_failed")
		}
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	s.invalidateCache(ctx, req.EventID)

	metrics.RecordBookingCreated(ctx, req.EventID, req.Quantity)
	s.notify(ctx, domain.BookingEventCreated, reservation, event)

	span.SetAttributes(attribute.String("reservation_id", reservation.ID))
	span.SetStatus(codes.Ok, "")
	return dto.FromDomain(reservation), nil
}

// UpdateBookingStatus transitions a reservation through the status machine.
// Cancelling restores the claimed seats; confirming touches no inventory.
func (s *bookingService) UpdateBookingStatus(ctx context.Context, bookingID string, target domain.ReservationStatus) (*dto.BookingResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.booking.update_status")
	defer span.End()

	span.SetAttributes(
		attribute.String("reservation_id", bookingID),
		attribute.String("target_status", target.String()),
	)

	if !target.Valid() {
		span.SetStatus(codes.Error, "invalid status")
		return nil, domain.ErrInvalidStatus
	}

	reservation, err := s.reservations.GetByID(ctx, bookingID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	// Cancelling an already-cancelled reservation is a no-op, not an
	// error, so retried cancellations never double-restore seats.
	if reservation.IsCancelled() && target == domain.StatusCancelled {
		span.SetStatus(codes.Ok, "already cancelled")
		return dto.FromDomain(reservation), nil
	}

	if !reservation.Status.CanTransitionTo(target) {
		span.SetStatus(codes.Error, "illegal transition")
		return nil, &domain.InvalidTransitionError{From: reservation.Status, To: target}
	}

	// The from-status guard means a concurrent transition loses with
	// ErrTransitionConflict instead of silently double-applying.
	if target == domain.StatusCancelled {
		// The cancel and the owed restore commit together; settling the
		// restore afterwards is idempotent, so the inventory converges even
		// if this process dies right after the commit.
		comp := &domain.SeatCompensation{
			ID:            uuid.New().String(),
			EventID:       reservation.EventID,
			ReservationID: reservation.ID,
			Delta:         reservation.Quantity,
			Reason:        "reservation cancelled",
			CreatedAt:     time.Now(),
		}
		if err := s.tx.CancelWithCompensation(ctx, bookingID, reservation.Status, comp); err != nil {
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		metrics.RecordCompensationEnqueued(ctx, reservation.EventID)
		s.settleCompensation(ctx, comp)
		s.invalidateCache(ctx, reservation.EventID)
		metrics.RecordBookingCancelled(ctx, reservation.EventID)
	} else {
		if err := s.reservations.UpdateStatus(ctx, bookingID, reservation.Status, target); err != nil {
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		metrics.RecordBookingConfirmed(ctx, reservation.EventID)
	}

	reservation.Status = target
	reservation.UpdatedAt = time.Now()

	event, eventErr := s.events.GetByID(ctx, reservation.EventID)
	if eventErr != nil {
		event = nil
	}
	switch target {
	case domain.StatusConfirmed:
		s.notify(ctx, domain.BookingEventConfirmed, reservation, event)
	case domain.StatusCancelled:
		s.notify(ctx, domain.BookingEventCancelled, reservation, event)
	}

	span.SetStatus(codes.Ok, "")
	return dto.FromDomain(reservation), nil
}

// ListUserBookings retrieves a user's reservations newest-first
func (s *bookingService) ListUserBookings(ctx context.Context, userID string, page, limit int) ([]*dto.BookingResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.booking.list_user")
	defer span.End()

	if userID == "" {
		span.SetStatus(codes.Error, "invalid user_id")
		return nil, domain.ErrInvalidUserID
	}

	page, limit = normalizePage(page, limit)
	span.SetAttributes(
		attribute.String("user_id", userID),
		attribute.Int("page", page),
		attribute.Int("limit", limit),
	)

	reservations, err := s.reservations.ListByUser(ctx, userID, limit, (page-1)*limit)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(attribute.Int("count", len(reservations)))
	span.SetStatus(codes.Ok, "")
	return dto.FromDomainList(reservations), nil
}

// ListBookings retrieves reservations for the admin view with pagination
func (s *bookingService) ListBookings(ctx context.Context, status domain.ReservationStatus, page, limit int) (*dto.PaginatedBookingsResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.booking.list")
	defer span.End()

	if status != "" && !status.Valid() {
		span.SetStatus(codes.Error, "invalid status")
		return nil, domain.ErrInvalidStatus
	}

	page, limit = normalizePage(page, limit)
	span.SetAttributes(
		attribute.String("status", status.String()),
		attribute.Int("page", page),
		attribute.Int("limit", limit),
	)

	filter := repository.ReservationListFilter{
		Status: status,
		Limit:  limit,
		Offset: (page - 1) * limit,
	}

	reservations, err := s.reservations.List(ctx, filter)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	total, err := s.reservations.Count(ctx, filter)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(attribute.Int64("total", total))
	span.SetStatus(codes.Ok, "")
	return &dto.PaginatedBookingsResponse{
		Data: dto.FromDomainList(reservations),
		Meta: dto.NewPaginationMeta(page, limit, total),
	}, nil
}

// GetEventWithBookings composes an event and its active reservations
func (s *bookingService) GetEventWithBookings(ctx context.Context, eventID string) (*domain.EventWithBookings, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.booking.get_event_with_bookings")
	defer span.End()

	if eventID == "" {
		span.SetStatus(codes.Error, "invalid event_id")
		return nil, domain.ErrInvalidEventID
	}
	span.SetAttributes(attribute.String("event_id", eventID))

	event, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	reservations, err := s.reservations.ListActiveByEvent(ctx, eventID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	activeQuantity, err := s.reservations.SumActiveQuantityByEvent(ctx, eventID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetStatus(codes.Ok, "")
	return &domain.EventWithBookings{
		Event:          *event,
		Reservations:   reservations,
		ActiveQuantity: activeQuantity,
	}, nil
}

// ListEvents retrieves events with ledger-derived booking totals
func (s *bookingService) ListEvents(ctx context.Context, page, limit int) ([]*domain.Event, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.booking.list_events")
	defer span.End()

	page, limit = normalizePage(page, limit)
	span.SetAttributes(
		attribute.Int("page", page),
		attribute.Int("limit", limit),
	)

	events, err := s.events.ListWithBookingCounts(ctx, limit, (page-1)*limit)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(attribute.Int("count", len(events)))
	span.SetStatus(codes.Ok, "")
	return events, nil
}

// GetEventAvailability reports current seat availability, cache-first
func (s *bookingService) GetEventAvailability(ctx context.Context, eventID string) (*dto.AvailabilityResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.booking.get_availability")
	defer span.End()

	if eventID == "" {
		span.SetStatus(codes.Error, "invalid event_id")
		return nil, domain.ErrInvalidEventID
	}
	span.SetAttributes(attribute.String("event_id", eventID))

	if s.cache != nil {
		if cached, hit, err := s.cache.Get(ctx, eventID); err == nil && hit {
			span.SetAttributes(attribute.Bool("cache_hit", true))
			span.SetStatus(codes.Ok, "")
			return &dto.AvailabilityResponse{
				EventID:        cached.ID,
				TotalSeats:     cached.TotalSeats,
				AvailableSeats: cached.AvailableSeats,
			}, nil
		}
	}

	event, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, event); err != nil {
			logger.Get().Warn("availability cache write failed",
				zap.String("event_id", eventID),
				zap.Error(err),
			)
		}
	}

	span.SetStatus(codes.Ok, "")
	return &dto.AvailabilityResponse{
		EventID:        event.ID,
		TotalSeats:     event.TotalSeats,
		AvailableSeats: event.AvailableSeats,
	}, nil
}

// settleCompensation applies the seat restore recorded with a cancel. It
// retries inline with backoff, detached from the request context so a
// client disconnect cannot abort it. The row is already committed, so a
// failure here only delays the restore until the worker's next drain.
func (s *bookingService) settleCompensation(ctx context.Context, comp *domain.SeatCompensation) {
	ctx, span := telemetry.StartSpan(context.WithoutCancel(ctx), "service.booking.settle_compensation")
	defer span.End()

	span.SetAttributes(
		attribute.String("compensation_id", comp.ID),
		attribute.String("event_id", comp.EventID),
		attribute.String("reservation_id", comp.ReservationID),
		attribute.Int("delta", comp.Delta),
	)

	result := retry.Do(ctx, s.retryConfig, func(ctx context.Context) error {
		return s.compensations.Apply(ctx, comp)
	})
	if result.Err != nil {
		span.RecordError(result.LastError)
		span.SetStatus(codes.Error, result.Err.Error())
		logger.Get().Warn("inline compensation settle failed, worker will retry",
			zap.String("compensation_id", comp.ID),
			zap.String("event_id", comp.EventID),
			zap.Int("delta", comp.Delta),
			zap.Int("attempts", result.Attempts),
			zap.Error(result.LastError),
		)
		return
	}

	metrics.RecordCompensationApplied(ctx, comp.EventID)
	span.SetStatus(codes.Ok, "")
}

// invalidateCache drops the availability snapshot, best-effort
func (s *bookingService) invalidateCache(ctx context.Context, eventID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, eventID); err != nil {
		logger.Get().Warn("availability cache invalidation failed",
			zap.String("event_id", eventID),
			zap.Error(err),
		)
	}
}

// notify publishes a lifecycle event, swallowing delivery failures
func (s *bookingService) notify(ctx context.Context, eventType domain.BookingEventType, reservation *domain.Reservation, event *domain.Event) {
	var err error
	switch eventType {
	case domain.BookingEventCreated:
		err = s.notifier.PublishBookingCreated(ctx, reservation, event)
	case domain.BookingEventConfirmed:
		err = s.notifier.PublishBookingConfirmed(ctx, reservation, event)
	case domain.BookingEventCancelled:
		err = s.notifier.PublishBookingCancelled(ctx, reservation, event)
	}
	if err != nil {
		logger.Get().Warn("failed to publish booking event",
			zap.String("event_type", string(eventType)),
			zap.String("reservation_id", reservation.ID),
			zap.Error(err),
		)
	}
}

func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	return page, limit
}
