package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/seatledger/seatledger/internal/domain"
	"github.com/seatledger/seatledger/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// TransactionalBookingRepository runs the write paths where the inventory
// and the ledger must commit together. The seat claim and the reservation
// insert, and likewise the cancel and its compensation record, are single
// transactions: no observable state owes a seat adjustment without a
// durable record of it.
type TransactionalBookingRepository struct {
	pool          *pgxpool.Pool
	compensations *PostgresCompensationRepository
}

// NewTransactionalBookingRepository creates a new TransactionalBookingRepository
func NewTransactionalBookingRepository(pool *pgxpool.Pool) *TransactionalBookingRepository {
	return &TransactionalBookingRepository{
		pool:          pool,
		compensations: NewPostgresCompensationRepository(pool),
	}
}

// CreateWithClaim claims reservation.Quantity seats and inserts the ledger
// row in one transaction. A ledger failure rolls the claim back, so the
// seat counter never moves without a matching reservation. The claim's
// error taxonomy matches EventRepository.AdjustSeats.
func (r *TransactionalBookingRepository) CreateWithClaim(ctx context.Context, reservation *domain.Reservation) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.booking_tx.create_with_claim")
	defer span.End()

	span.SetAttributes(
		attribute.String("reservation_id", reservation.ID),
		attribute.String("event_id", reservation.EventID),
		attribute.Int("quantity", reservation.Quantity),
	)

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	available, err := adjustSeats(ctx, tx, reservation.EventID, -reservation.Quantity)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	span.SetAttributes(attribute.Int("available_seats", available))

	if err := createReservationTx(ctx, tx, reservation); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// CancelWithCompensation moves the reservation from `from` to cancelled and
// records the owed seat restore in the same transaction. Once the cancel is
// visible a pending compensation row exists alongside it, so a crash before
// the restore settles only delays it until the worker's next drain. Returns
// domain.ErrReservationNotFound or domain.ErrTransitionConflict with
// nothing recorded.
func (r *TransactionalBookingRepository) CancelWithCompensation(ctx context.Context, reservationID string, from domain.ReservationStatus, comp *domain.SeatCompensation) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.booking_tx.cancel_with_compensation")
	defer span.End()

	span.SetAttributes(
		attribute.String("reservation_id", reservationID),
		attribute.String("from", from.String()),
		attribute.Int("delta", comp.Delta),
	)

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		UPDATE reservations SET
			status = $3,
			updated_at = $4
		WHERE id = $1 AND status = $2
	`

	result, err := tx.Exec(ctx, query, reservationID, from.String(), domain.StatusCancelled.String(), time.Now())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to cancel reservation: %w", err)
	}

	if result.RowsAffected() == 0 {
		var exists bool
		err := tx.QueryRow(ctx, "SELECT EXISTS(SELECT 1 FROM reservations WHERE id = $1)", reservationID).Scan(&exists)
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

	if err := r.compensations.EnqueueTx(ctx, tx, comp); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// createReservationTx inserts a reservation ledger row within a transaction
func createReservationTx(ctx context.Context, tx pgx.Tx, reservation *domain.Reservation) error {
	query := `
		INSERT INTO reservations (
			id, user_id, event_id, quantity, total_amount, status,
			booked_at, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, $9
		)
	`

	_, err := tx.Exec(ctx, query,
		reservation.ID,
		reservation.UserID,
		reservation.EventID,
		reservation.Quantity,
		reservation.TotalAmount,
		reservation.Status.String(),
		reservation.BookedAt,
		reservation.CreatedAt,
		reservation.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create reservation: %w", err)
	}

	return nil
}

// Ensure TransactionalBookingRepository implements BookingTxRepository
var _ BookingTxRepository = (*TransactionalBookingRepository)(nil)
