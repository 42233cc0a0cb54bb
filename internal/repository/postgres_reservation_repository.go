package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/seatledger/seatledger/internal/domain"
	"github.com/seatledger/seatledger/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// PostgresReservationRepository implements ReservationRepository using PostgreSQL with pgxpool
type PostgresReservationRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresReservationRepository creates a new PostgresReservationRepository
func NewPostgresReservationRepository(pool *pgxpool.Pool) *PostgresReservationRepository {
	return &PostgresReservationRepository{pool: pool}
}

// GetByID retrieves a reservation by its ID
func (r *PostgresReservationRepository) GetByID(ctx context.Context, id string) (*domain.Reservation, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.reservation.get_by_id")
	defer span.End()

	span.SetAttributes(attribute.String("reservation_id", id))

	query := `
		SELECT id, user_id, event_id, quantity, total_amount, status,
			booked_at, created_at, updated_at
		FROM reservations
		WHERE id = $1
	`

	reservation := &domain.Reservation{}
	var status string
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&reservation.ID,
		&reservation.UserID,
		&reservation.EventID,
		&reservation.Quantity,
		&reservation.TotalAmount,
		&status,
		&reservation.BookedAt,
		&reservation.CreatedAt,
		&reservation.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "not found")
			return nil, domain.ErrReservationNotFound
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to get reservation: %w", err)
	}

	reservation.Status = domain.ReservationStatus(status)
	span.SetStatus(codes.Ok, "")
	return reservation, nil
}

// ListByUser retrieves a user's reservations newest-first with event summaries
func (r *PostgresReservationRepository) ListByUser(ctx context.Context, userID string, limit, offset int) ([]*domain.Reservation, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.reservation.list_by_user")
	defer span.End()

	span.SetAttributes(
		attribute.String("user_id", userID),
		attribute.Int("limit", limit),
		attribute.Int("offset", offset),
	)

	query := `
		SELECT r.id, r.user_id, r.event_id, r.quantity, r.total_amount, r.status,
			r.booked_at, r.created_at, r.updated_at,
			e.id, e.title, e.venue, e.starts_at
		FROM reservations r
		JOIN events e ON r.event_id = e.id
		WHERE r.user_id = $1
		ORDER BY r.booked_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.pool.Query(ctx, query, userID, limit, offset)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to list reservations by user: %w", err)
	}
	defer rows.Close()

	reservations, err := collectReservationsWithEvent(rows)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(attribute.Int("count", len(reservations)))
	span.SetStatus(codes.Ok, "")
	return reservations, nil
}

// List retrieves reservations for the admin view, optionally filtered by status
func (r *PostgresReservationRepository) List(ctx context.Context, filter ReservationListFilter) ([]*domain.Reservation, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.reservation.list")
	defer span.End()

	span.SetAttributes(
		attribute.String("status", filter.Status.String()),
		attribute.Int("limit", filter.Limit),
		attribute.Int("offset", filter.Offset),
	)

	query := `
		SELECT r.id, r.user_id, r.event_id, r.quantity, r.total_amount, r.status,
			r.booked_at, r.created_at, r.updated_at,
			e.id, e.title, e.venue, e.starts_at
		FROM reservations r
		JOIN events e ON r.event_id = e.id
		WHERE ($1 = '' OR r.status = $1)
		ORDER BY r.booked_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.pool.Query(ctx, query, filter.Status.String(), filter.Limit, filter.Offset)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to list reservations: %w", err)
	}
	defer rows.Close()

	reservations, err := collectReservationsWithEvent(rows)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(attribute.Int("count", len(reservations)))
	span.SetStatus(codes.Ok, "")
	return reservations, nil
}

// Count returns the total reservation count matching the filter's status
func (r *PostgresReservationRepository) Count(ctx context.Context, filter ReservationListFilter) (int64, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.reservation.count")
	defer span.End()

	span.SetAttributes(attribute.String("status", filter.Status.String()))

	query := `
		SELECT COUNT(*) FROM reservations
		WHERE ($1 = '' OR status = $1)
	`

	var count int64
	err := r.pool.QueryRow(ctx, query, filter.Status.String()).Scan(&count)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, fmt.Errorf("failed to count reservations: %w", err)
	}

	span.SetAttributes(attribute.Int64("count", count))
	span.SetStatus(codes.Ok, "")
	return count, nil
}

// UpdateStatus moves a reservation from one exact status to another. The
// from-status guard in the WHERE clause rejects concurrent transitions.
func (r *PostgresReservationRepository) UpdateStatus(ctx context.Context, id string, from, to domain.ReservationStatus) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.reservation.update_status")
	defer span.End()

	span.SetAttributes(
		attribute.String("reservation_id", id),
		attribute.String("from", from.String()),
		attribute.String("to", to.String()),
	)

	query := `
		UPDATE reservations SET
			status = $3,
			updated_at = $4
		WHERE id = $1 AND status = $2
	`

	result, err := r.pool.Exec(ctx, query, id, from.String(), to.String(), time.Now())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to update reservation status: %w", err)
	}

	if result.RowsAffected() == 0 {
		var exists bool
		err := r.pool.QueryRow(ctx, "SELECT EXISTS(SELECT 1 FROM reservations WHERE id = $1)", id).Scan(&exists)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return fmt.Errorf("failed to check reservation existence: %w", err)
		}
		if !exists {
			span.SetStatus(codes.Error, "not found")
			return domain.ErrReservationNotFound
		}
		span.SetStatus(codes.Error, "transition conflict")
		return domain.ErrTransitionConflict
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// SumActiveQuantityByEvent sums non-cancelled quantities for one event
func (r *PostgresReservationRepository) SumActiveQuantityByEvent(ctx context.Context, eventID string) (int, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.reservation.sum_active_quantity")
	defer span.End()

	span.SetAttributes(attribute.String("event_id", eventID))

	query := `
		SELECT COALESCE(SUM(quantity), 0) FROM reservations
		WHERE event_id = $1 AND status IN ('pending', 'confirmed')
	`

	var sum int
	err := r.pool.QueryRow(ctx, query, eventID).Scan(&sum)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, fmt.Errorf("failed to sum active quantity: %w", err)
	}

	span.SetAttributes(attribute.Int("sum", sum))
	span.SetStatus(codes.Ok, "")
	return sum, nil
}

// ListActiveByEvent retrieves the non-cancelled reservations for an event
func (r *PostgresReservationRepository) ListActiveByEvent(ctx context.Context, eventID string) ([]*domain.Reservation, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.reservation.list_active_by_event")
	defer span.End()

	span.SetAttributes(attribute.String("event_id", eventID))

	query := `
		SELECT id, user_id, event_id, quantity, total_amount, status,
			booked_at, created_at, updated_at
		FROM reservations
		WHERE event_id = $1 AND status IN ('pending', 'confirmed')
		ORDER BY booked_at DESC
	`

	rows, err := r.pool.Query(ctx, query, eventID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to list active reservations: %w", err)
	}
	defer rows.Close()

	var reservations []*domain.Reservation
	for rows.Next() {
		reservation, err := scanReservation(rows)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		reservations = append(reservations, reservation)
	}

	if err := rows.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("error iterating reservations: %w", err)
	}

	span.SetAttributes(attribute.Int("count", len(reservations)))
	span.SetStatus(codes.Ok, "")
	return reservations, nil
}

// scanReservation scans a row into a Reservation struct
func scanReservation(rows pgx.Rows) (*domain.Reservation, error) {
	reservation := &domain.Reservation{}
	var status string

	err := rows.Scan(
		&reservation.ID,
		&reservation.UserID,
		&reservation.EventID,
		&reservation.Quantity,
		&reservation.TotalAmount,
		&status,
		&reservation.BookedAt,
		&reservation.CreatedAt,
		&reservation.UpdatedAt,
	)

	if err != nil {
		return nil, fmt.Errorf("failed to scan reservation: %w", err)
	}

	reservation.Status = domain.ReservationStatus(status)
	return reservation, nil
}

// collectReservationsWithEvent drains rows that join the event summary
func collectReservationsWithEvent(rows pgx.Rows) ([]*domain.Reservation, error) {
	var reservations []*domain.Reservation
	for rows.Next() {
		reservation := &domain.Reservation{Event: &domain.EventSummary{}}
		var status string

		err := rows.Scan(
			&reservation.ID,
			&reservation.UserID,
			&reservation.EventID,
			&reservation.Quantity,
			&reservation.TotalAmount,
			&status,
			&reservation.BookedAt,
			&reservation.CreatedAt,
			&reservation.UpdatedAt,
			&reservation.Event.ID,
			&reservation.Event.Title,
			&reservation.Event.Venue,
			&reservation.Event.StartsAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan reservation: %w", err)
		}

		reservation.Status = domain.ReservationStatus(status)
		reservations = append(reservations, reservation)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating reservations: %w", err)
	}

	return reservations, nil
}

// Ensure PostgresReservationRepository implements ReservationRepository
var _ ReservationRepository = (*PostgresReservationRepository)(nil)
