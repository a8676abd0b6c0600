package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"serotonyl.ru/loyalty-backend/internal/features/economy"
)

type countingRefresher struct {
	calls atomic.Int32
	err   error
}

func (r *countingRefresher) Refresh(ctx context.Context) error {
	r.calls.Add(1)
	return r.err
}

type stubReconciler struct {
	calls atomic.Int32
}

func (r *stubReconciler) Reconcile(ctx context.Context) ([]economy.Mismatch, error) {
	r.calls.Add(1)
	return []economy.Mismatch{{UserID: 1, Coins: 10}}, nil
}

func TestSchedulerRunsRefresh(t *testing.T) {
	t.Parallel()
	ref := &countingRefresher{err: errors.New("db down")}
	s := NewScheduler(time.UTC, ref, nil)

	if err := s.Start(context.Background(), time.Second, "0 4 * * *"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Stop()

	deadline := time.Now().Add(5 * time.Second)
	for ref.calls.Load() == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("refresh was not called")
		}
		time.Sleep(50 * time.Millisecond)
	}
}

func TestSchedulerRejectsBadSpec(t *testing.T) {
	t.Parallel()
	s := NewScheduler(nil, nil, &stubReconciler{})
	if err := s.Start(context.Background(), time.Minute, "not a cron"); err == nil {
		s.Stop()
		t.Fatalf("Start accepted a broken cron expression")
	}
}

func TestReconcileJobLogsMismatches(t *testing.T) {
	t.Parallel()
	rec := &stubReconciler{}
	s := NewScheduler(time.UTC, nil, rec)
	s.reconcile(context.Background())
	if rec.calls.Load() != 1 {
		t.Fatalf("Reconcile calls = %d", rec.calls.Load())
	}
}
