package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/seatledger/seatledger/internal/domain"
	"github.com/seatledger/seatledger/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// PostgresEventRepository implements EventRepository using PostgreSQL with pgxpool
type PostgresEventRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresEventRepository creates a new PostgresEventRepository
func NewPostgresEventRepository(pool *pgxpool.Pool) *PostgresEventRepository {
	return &PostgresEventRepository{pool: pool}
}

// GetByID retrieves an event by its ID
func (r *PostgresEventRepository) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.event.get_by_id")
	defer span.End()

	span.SetAttributes(attribute.String("event_id", id))

	query := `
		SELECT id, title, venue, starts_at, total_seats, available_seats, price, created_at, updated_at
		FROM events
		WHERE id = $1
	`

	event := &domain.Event{}
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&event.ID,
		&event.Title,
		&event.Venue,
		&event.StartsAt,
		&event.TotalSeats,
		&event.AvailableSeats,
		&event.Price,
		&event.CreatedAt,
		&event.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "not found")
			return nil, domain.ErrEventNotFound
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to get event: %w", err)
	}

	span.SetStatus(codes.Ok, "")
	return event, nil
}

// pgxQuerier is the query surface shared by *pgxpool.Pool and pgx.Tx, so
// the seat adjustment can run standalone or inside a larger transaction.
type pgxQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// AdjustSeats atomically applies delta to the available seat counter. The
// WHERE clause makes the bounds check and the write a single statement, so
// concurrent adjustments serialize on the row without an explicit lock.
func (r *PostgresEventRepository) AdjustSeats(ctx context.Context, id string, delta int) (int, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.event.adjust_seats")
	defer span.End()

	span.SetAttributes(
		attribute.String("event_id", id),
		attribute.Int("delta", delta),
	)

	available, err := adjustSeats(ctx, r.pool, id, delta)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, err
	}

	span.SetAttributes(attribute.Int("available_seats", available))
	span.SetStatus(codes.Ok, "")
	return available, nil
}

// adjustSeats runs the conditional seat update against q. On rejection it
// re-reads the row to tell a missing event, an exhausted inventory and an
// over-capacity restore apart.
func adjustSeats(ctx context.Context, q pgxQuerier, id string, delta int) (int, error) {
	query := `
		UPDATE events SET
			available_seats = available_seats + $2,
			updated_at = NOW()
		WHERE id = $1
			AND available_seats + $2 >= 0
			AND available_seats + $2 <= total_seats
		RETURNING available_seats
	`

	var available int
	err := q.QueryRow(ctx, query, id, delta).Scan(&available)
	if err == nil {
		return available, nil
	}

	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("failed to adjust seats: %w", err)
	}

	var current int
	err = q.QueryRow(ctx, "SELECT available_seats FROM events WHERE id = $1", id).Scan(&current)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, domain.ErrEventNotFound
		}
		return 0, fmt.Errorf("failed to check event availability: %w", err)
	}

	if delta < 0 {
		return 0, &domain.InsufficientSeatsError{
			EventID:   id,
			Requested: -delta,
			Available: current,
		}
	}

	return 0, domain.ErrCapacityExceeded
}

// ListWithBookingCounts retrieves events with their active reservation totals
func (r *PostgresEventRepository) ListWithBookingCounts(ctx context.Context, limit, offset int) ([]*domain.Event, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.event.list")
	defer span.End()

	span.SetAttributes(
		attribute.Int("limit", limit),
		attribute.Int("offset", offset),
	)

	query := `
		SELECT e.id, e.title, e.venue, e.starts_at, e.total_seats, e.available_seats, e.price, e.created_at, e.updated_at,
			COALESCE(SUM(r.quantity) FILTER (WHERE r.status IN ('pending', 'confirmed')), 0) AS booked_seats
		FROM events e
		LEFT JOIN reservations r ON r.event_id = e.id
		GROUP BY e.id
		ORDER BY e.starts_at ASC
		LIMIT $1 OFFSET $2
	`

	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	var events []*domain.Event
	for rows.Next() {
		event := &domain.Event{}
		err := rows.Scan(
			&event.ID,
			&event.Title,
			&event.Venue,
			&event.StartsAt,
			&event.TotalSeats,
			&event.AvailableSeats,
			&event.Price,
			&event.CreatedAt,
			&event.UpdatedAt,
			&event.BookedSeats,
		)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("error iterating events: %w", err)
	}

	span.SetAttributes(attribute.Int("count", len(events)))
	span.SetStatus(codes.Ok, "")
	return events, nil
}

// Ensure PostgresEventRepository implements EventRepository
var _ EventRepository = (*PostgresEventRepository)(nil)
