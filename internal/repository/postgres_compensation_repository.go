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

// PostgresCompensationRepository implements CompensationRepository using PostgreSQL with pgxpool
type PostgresCompensationRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresCompensationRepository creates a new PostgresCompensationRepository
func NewPostgresCompensationRepository(pool *pgxpool.Pool) *PostgresCompensationRepository {
	return &PostgresCompensationRepository{pool: pool}
}

// EnqueueTx persists a pending seat adjustment within a caller-owned
// transaction, so the record commits together with the write that owes it
func (r *PostgresCompensationRepository) EnqueueTx(ctx context.Context, tx pgx.Tx, comp *domain.SeatCompensation) error {
	query := `
		INSERT INTO seat_compensations (
			id, event_id, reservation_id, delta, reason, applied, attempts, created_at
		) VALUES (
			$1, $2, $3, $4, $5, FALSE, 0, $6
		)
	`

	_, err := tx.Exec(ctx, query,
		comp.ID,
		comp.EventID,
		nullString(comp.ReservationID),
		comp.Delta,
		comp.Reason,
		comp.CreatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to enqueue compensation: %w", err)
	}

	return nil
}

// Apply settles one pending compensation. The seat restore and the applied
// flag commit in the same transaction: a settled row can never restore
// twice, and a crashed settle leaves the row pending for the next drain.
func (r *PostgresCompensationRepository) Apply(ctx context.Context, comp *domain.SeatCompensation) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.compensation.apply")
	defer span.End()

	span.SetAttributes(
		attribute.String("compensation_id", comp.ID),
		attribute.String("event_id", comp.EventID),
		attribute.Int("delta", comp.Delta),
	)

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	mark := `
		UPDATE seat_compensations SET
			applied = TRUE,
			applied_at = $2
		WHERE id = $1 AND applied = FALSE
	`

	result, err := tx.Exec(ctx, mark, comp.ID, time.Now())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to mark compensation applied: %w", err)
	}
	if result.RowsAffected() == 0 {
		// A concurrent drain already settled this row
		span.SetStatus(codes.Ok, "already applied")
		return nil
	}

	if _, err := adjustSeats(ctx, tx, comp.EventID, comp.Delta); err != nil {
		// Already at capacity means the seats came back some other way. A
		// deleted event has no inventory to restore. Both settle the row.
		if !errors.Is(err, domain.ErrCapacityExceeded) && !errors.Is(err, domain.ErrEventNotFound) {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// ListPending retrieves unapplied compensations oldest-first
func (r *PostgresCompensationRepository) ListPending(ctx context.Context, limit int) ([]*domain.SeatCompensation, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.compensation.list_pending")
	defer span.End()

	span.SetAttributes(attribute.Int("limit", limit))

	query := `
		SELECT id, event_id, reservation_id, delta, reason, applied, attempts, created_at, applied_at
		FROM seat_compensations
		WHERE applied = FALSE
		ORDER BY created_at ASC
		LIMIT $1
	`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to list pending compensations: %w", err)
	}
	defer rows.Close()

	var comps []*domain.SeatCompensation
	for rows.Next() {
		comp := &domain.SeatCompensation{}
		var reservationID *string
		err := rows.Scan(
			&comp.ID,
			&comp.EventID,
			&reservationID,
			&comp.Delta,
			&comp.Reason,
			&comp.Applied,
			&comp.Attempts,
			&comp.CreatedAt,
			&comp.AppliedAt,
		)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, fmt.Errorf("failed to scan compensation: %w", err)
		}
		if reservationID != nil {
			comp.ReservationID = *reservationID
		}
		comps = append(comps, comp)
	}

	if err := rows.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("error iterating compensations: %w", err)
	}

	span.SetAttributes(attribute.Int("count", len(comps)))
	span.SetStatus(codes.Ok, "")
	return comps, nil
}

// IncrementAttempts bumps the retry counter after a failed apply
func (r *PostgresCompensationRepository) IncrementAttempts(ctx context.Context, id string) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.compensation.increment_attempts")
	defer span.End()

	span.SetAttributes(attribute.String("compensation_id", id))

	query := `UPDATE seat_compensations SET attempts = attempts + 1 WHERE id = $1`

	_, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to increment compensation attempts: %w", err)
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// Helper function to convert empty string to nil pointer
func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Ensure PostgresCompensationRepository implements CompensationRepository
var _ CompensationRepository = (*PostgresCompensationRepository)(nil)
