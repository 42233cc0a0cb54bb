package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/seatledger/seatledger/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockCompensationRepo struct {
	ListPendingFunc       func(ctx context.Context, limit int) ([]*domain.SeatCompensation, error)
	ApplyFunc             func(ctx context.Context, comp *domain.SeatCompensation) error
	IncrementAttemptsFunc func(ctx context.Context, id string) error
}

func (m *mockCompensationRepo) ListPending(ctx context.Context, limit int) ([]*domain.SeatCompensation, error) {
	if m.ListPendingFunc != nil {
		return m.ListPendingFunc(ctx, limit)
	}
	return []*domain.SeatCompensation{}, nil
}

func (m *mockCompensationRepo) Apply(ctx context.Context, comp *domain.SeatCompensation) error {
	if m.ApplyFunc != nil {
		return m.ApplyFunc(ctx, comp)
	}
	return nil
}

func (m *mockCompensationRepo) IncrementAttempts(ctx context.Context, id string) error {
	if m.IncrementAttemptsFunc != nil {
		return m.IncrementAttemptsFunc(ctx, id)
	}
	return nil
}

func pendingComp(id, eventID string, delta int) *domain.SeatCompensation {
	return &domain.SeatCompensation{
		ID:            id,
		EventID:       eventID,
		ReservationID: "res-" + id,
		Delta:         delta,
		Reason:        "reservation cancelled",
		CreatedAt:     time.Now(),
	}
}

func TestDrain_AppliesPending(t *testing.T) {
	var applied []string

	compensations := &mockCompensationRepo{
		ListPendingFunc: func(ctx context.Context, limit int) ([]*domain.SeatCompensation, error) {
			return []*domain.SeatCompensation{
				pendingComp("c1", "event-001", 2),
				pendingComp("c2", "event-002", 5),
			}, nil
		},
		ApplyFunc: func(ctx context.Context, comp *domain.SeatCompensation) error {
			applied = append(applied, comp.ID)
			return nil
		},
	}

	w := NewCompensationWorker(compensations, nil)

	count := w.Drain(context.Background())

	assert.Equal(t, 2, count)
	assert.Equal(t, []string{"c1", "c2"}, applied)

	totalApplied, totalFailed, _ := w.Stats()
	assert.Equal(t, int64(2), totalApplied)
	assert.Equal(t, int64(0), totalFailed)
}

func TestDrain_ApplyFailureIncrementsAttempts(t *testing.T) {
	var incremented []string
	compensations := &mockCompensationRepo{
		ListPendingFunc: func(ctx context.Context, limit int) ([]*domain.SeatCompensation, error) {
			return []*domain.SeatCompensation{pendingComp("c1", "event-001", 3)}, nil
		},
		ApplyFunc: func(ctx context.Context, comp *domain.SeatCompensation) error {
			return errors.New("connection refused")
		},
		IncrementAttemptsFunc: func(ctx context.Context, id string) error {
			incremented = append(incremented, id)
			return nil
		},
	}

	w := NewCompensationWorker(compensations, nil)

	applied := w.Drain(context.Background())

	assert.Equal(t, 0, applied)
	assert.Equal(t, []string{"c1"}, incremented)

	_, totalFailed, _ := w.Stats()
	assert.Equal(t, int64(1), totalFailed)
}

func TestDrain_FailedSettleReplaysUntilApplied(t *testing.T) {
	// A row stays pending after a failed settle and is picked up by the
	// next drain; once it settles it drops out of the pending set, so the
	// restore lands exactly once across drains.
	comp := pendingComp("c1", "event-001", 2)
	applyCalls := 0
	settled := false

	compensations := &mockCompensationRepo{
		ListPendingFunc: func(ctx context.Context, limit int) ([]*domain.SeatCompensation, error) {
			if settled {
				return []*domain.SeatCompensation{}, nil
			}
			return []*domain.SeatCompensation{comp}, nil
		},
		ApplyFunc: func(ctx context.Context, c *domain.SeatCompensation) error {
			applyCalls++
			if applyCalls == 1 {
				return errors.New("write timeout")
			}
			settled = true
			return nil
		},
	}

	w := NewCompensationWorker(compensations, nil)

	assert.Equal(t, 0, w.Drain(context.Background()))
	assert.Equal(t, 1, w.Drain(context.Background()))
	assert.Equal(t, 0, w.Drain(context.Background()))
	assert.Equal(t, 2, applyCalls)

	totalApplied, totalFailed, _ := w.Stats()
	assert.Equal(t, int64(1), totalApplied)
	assert.Equal(t, int64(1), totalFailed)
}

func TestDrain_EmptyQueue(t *testing.T) {
	w := NewCompensationWorker(&mockCompensationRepo{}, nil)

	assert.Equal(t, 0, w.Drain(context.Background()))
}

func TestStartStop(t *testing.T) {
	drained := make(chan struct{}, 1)
	compensations := &mockCompensationRepo{
		ListPendingFunc: func(ctx context.Context, limit int) ([]*domain.SeatCompensation, error) {
			select {
			case drained <- struct{}{}:
			default:
			}
			return []*domain.SeatCompensation{}, nil
		},
	}

	w := NewCompensationWorker(compensations, &CompensationWorkerConfig{
		PollInterval: 10 * time.Millisecond,
		BatchSize:    10,
	})

	require.NoError(t, w.Start(context.Background()))
	assert.Error(t, w.Start(context.Background()))

	select {
	case <-drained:
	case <-time.After(time.Second):
		t.Fatal("worker never scanned the queue")
	}

	w.Stop()
	// Stop twice is safe
	w.Stop()
}
