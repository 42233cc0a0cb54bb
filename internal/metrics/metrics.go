package metrics

import (
	"context"
	"sync"

	"github.com/seatledger/seatledger/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

var (
	// Booking counters
	BookingsCreated   *telemetry.Counter
	BookingsConfirmed *telemetry.Counter
	BookingsCancelled *telemetry.Counter
	BookingsFailed    *telemetry.Counter

	// Compensation counters
	CompensationsEnqueued *telemetry.Counter
	CompensationsApplied  *telemetry.Counter

	// Histograms
	RequestDuration *telemetry.Histogram

	// Gauges
	ActiveReservations *telemetry.UpDownCounter

	initOnce sync.Once
	initErr  error
)

// Init initializes all booking metrics
func Init() error {
	initOnce.Do(func() {
		initErr = initMetrics()
	})
	return initErr
}

func initMetrics() error {
	var err error

	BookingsCreated, err = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "seatledger_bookings_created_total",
		Description: "Total number of reservations created",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	BookingsConfirmed, err = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "seatledger_bookings_confirmed_total",
		Description: "Total number of reservations confirmed",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	BookingsCancelled, err = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "seatledger_bookings_cancelled_total",
		Description: "Total number of reservations cancelled",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	BookingsFailed, err = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "seatledger_bookings_failed_total",
		Description: "Total number of failed booking attempts",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	CompensationsEnqueued, err = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "seatledger_compensations_enqueued_total",
		Description: "Total number of seat compensations queued for retry",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	CompensationsApplied, err = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "seatledger_compensations_applied_total",
		Description: "Total number of seat compensations applied by the worker",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	RequestDuration, err = telemetry.NewHistogramWithBuckets(telemetry.MetricOpts{
		Name:        "seatledger_request_duration_seconds",
		Description: "HTTP request duration in seconds",
		Unit:        "s",
	}, []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10})
	if err != nil {
		return err
	}

	ActiveReservations, err = telemetry.NewUpDownCounter(telemetry.MetricOpts{
		Name:        "seatledger_active_reservations",
		Description: "Current number of non-cancelled reservations",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	return nil
}

// RecordBookingCreated records a new reservation metric
func RecordBookingCreated(ctx context.Context, eventID string, quantity int) {
	if BookingsCreated != nil {
		BookingsCreated.Inc(ctx,
			attribute.String("event_id", eventID),
			attribute.Int("quantity", quantity),
		)
	}
	if ActiveReservations != nil {
		ActiveReservations.Inc(ctx)
	}
}

// RecordBookingConfirmed records a confirmation metric
func RecordBookingConfirmed(ctx context.Context, eventID string) {
	if BookingsConfirmed != nil {
		BookingsConfirmed.Inc(ctx,
			attribute.String("event_id", eventID),
		)
	}
}

// RecordBookingCancelled records a cancellation metric
func RecordBookingCancelled(ctx context.Context, eventID string) {
	if BookingsCancelled != nil {
		BookingsCancelled.Inc(ctx,
			attribute.String("event_id", eventID),
		)
	}
	if ActiveReservations != nil {
		ActiveReservations.Dec(ctx)
	}
}

// RecordBookingFailed records a failed booking attempt
func RecordBookingFailed(ctx context.Context, eventID, reason string) {
	if BookingsFailed != nil {
		BookingsFailed.Inc(ctx,
			attribute.String("event_id", eventID),
			attribute.String("reason", reason),
		)
	}
}

// RecordCompensationEnqueued records a compensation pushed to the outbox
func RecordCompensationEnqueued(ctx context.Context, eventID string) {
	if CompensationsEnqueued != nil {
		CompensationsEnqueued.Inc(ctx,
			attribute.String("event_id", eventID),
		)
	}
}

// RecordCompensationApplied records a compensation landed by the worker
func RecordCompensationApplied(ctx context.Context, eventID string) {
	if CompensationsApplied != nil {
		CompensationsApplied.Inc(ctx,
			attribute.String("event_id", eventID),
		)
	}
}

// RecordRequestDuration records HTTP request duration
func RecordRequestDuration(ctx context.Context, operation string, durationSeconds float64) {
	if RequestDuration != nil {
		RequestDuration.Record(ctx, durationSeconds,
			attribute.String("operation", operation),
		)
	}
}
