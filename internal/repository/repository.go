package repository

import (
	"context"

	"github.com/seatledger/seatledger/internal/domain"
)

// EventRepository is the durable seat-inventory store. AdjustSeats is the
// only write path for the available seat counter.
type EventRepository interface {
	// GetByID returns the event or domain.ErrEventNotFound.
	GetByID(ctx context.Context, id string) (*domain.Event, error)

	// AdjustSeats atomically applies delta to available_seats. The update
	// commits only if the resulting count stays within [0, total_seats].
	// Returns the post-adjustment availability on success. On rejection it
	// returns domain.ErrEventNotFound, a *domain.InsufficientSeatsError
	// (negative delta) or domain.ErrCapacityExceeded (positive delta).
	AdjustSeats(ctx context.Context, id string, delta int) (int, error)

	// ListWithBookingCounts returns events with their active reservation
	// quantity, for the admin dashboard.
	ListWithBookingCounts(ctx context.Context, limit, offset int) ([]*domain.Event, error)
}

// ReservationListFilter narrows admin listings.
type ReservationListFilter struct {
	Status domain.ReservationStatus // empty means all statuses
	Limit  int
	Offset int
}

// BookingTxRepository runs the write paths where the inventory and the
// ledger must commit together.
type BookingTxRepository interface {
	// CreateWithClaim claims reservation.Quantity seats and inserts the
	// ledger row in one transaction. The claim's error taxonomy matches
	// EventRepository.AdjustSeats; any failure rolls both writes back.
	CreateWithClaim(ctx context.Context, reservation *domain.Reservation) error

	// CancelWithCompensation moves the reservation from `from` to cancelled
	// and records the owed seat restore in the same transaction. Returns
	// domain.ErrReservationNotFound or domain.ErrTransitionConflict with
	// nothing recorded.
	CancelWithCompensation(ctx context.Context, reservationID string, from domain.ReservationStatus, comp *domain.SeatCompensation) error
}

// ReservationRepository is the append-mostly reservation ledger. Rows are
// never deleted; only the status column moves after insert, and inserts
// happen through BookingTxRepository so they commit with the seat claim.
type ReservationRepository interface {
	// GetByID returns the reservation or domain.ErrReservationNotFound.
	GetByID(ctx context.Context, id string) (*domain.Reservation, error)

	// ListByUser returns the user's reservations newest-first, with the
	// event summary joined in.
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]*domain.Reservation, error)

	// List returns reservations for the admin view, optionally filtered by
	// status, newest-first.
	List(ctx context.Context, filter ReservationListFilter) ([]*domain.Reservation, error)

	// Count returns the total row count matching the filter's status.
	Count(ctx context.Context, filter ReservationListFilter) (int64, error)

	// UpdateStatus moves a reservation from one exact status to another.
	// Returns domain.ErrReservationNotFound if the row does not exist and
	// domain.ErrTransitionConflict if it exists but is no longer in the
	// expected from status.
	UpdateStatus(ctx context.Context, id string, from, to domain.ReservationStatus) error

	// SumActiveQuantityByEvent sums non-cancelled quantities for one event.
	SumActiveQuantityByEvent(ctx context.Context, eventID string) (int, error)

	// ListActiveByEvent returns the non-cancelled reservations for an event.
	ListActiveByEvent(ctx context.Context, eventID string) ([]*domain.Reservation, error)
}

// CompensationRepository settles the seat restores recorded by cancel
// transactions. Apply moves the seats and flips the applied flag in one
// transaction, so a restore lands exactly once.
type CompensationRepository interface {
	ListPending(ctx context.Context, limit int) ([]*domain.SeatCompensation, error)
	Apply(ctx context.Context, comp *domain.SeatCompensation) error
	IncrementAttempts(ctx context.Context, id string) error
}

// AvailabilityCache is a best-effort read cache for event availability.
// Misses and errors fall through to the inventory store.
type AvailabilityCache interface {
	Get(ctx context.Context, eventID string) (*domain.Event, bool, error)
	Set(ctx context.Context, event *domain.Event) error
	Invalidate(ctx context.Context, eventID string) error
}
