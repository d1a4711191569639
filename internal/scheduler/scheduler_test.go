package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/crewpay/internal/clock"
	commissiondomain "github.com/smallbiznis/crewpay/internal/commission/domain"
	"github.com/smallbiznis/crewpay/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubReconciler struct {
	calls []time.Time
	limit int
}

func (s *stubReconciler) ReconcileJob(context.Context, snowflake.ID) (commissiondomain.BatchResult, error) {
	return commissiondomain.BatchResult{}, nil
}

func (s *stubReconciler) ReconcileJobs(context.Context, []snowflake.ID) (commissiondomain.BatchResult, error) {
	return commissiondomain.BatchResult{}, nil
}

func (s *stubReconciler) ReconcileFinalized(_ context.Context, since time.Time, limit int) (commissiondomain.BatchResult, error) {
	s.calls = append(s.calls, since)
	s.limit = limit
	return commissiondomain.BatchResult{Status: commissiondomain.BatchAllSucceeded}, nil
}

func (s *stubReconciler) ListByUser(context.Context, snowflake.ID, int, int) ([]commissiondomain.CommissionRecord, int64, error) {
	return nil, 0, nil
}

func TestSweep_UsesLookbackWindow(t *testing.T) {
	now := time.Date(2023, time.October, 1, 12, 0, 0, 0, time.UTC)
	fake := clock.NewFakeClock(now)
	stub := &stubReconciler{}

	s := New(zap.NewNop(), fake, config.SchedulerConfig{
		Lookback:  10 * time.Minute,
		BatchSize: 50,
	}, stub, nil)

	s.Sweep(context.Background())

	require.Len(t, stub.calls, 1)
	assert.Equal(t, now.Add(-10*time.Minute), stub.calls[0])
	assert.Equal(t, 50, stub.limit)
}

func TestStartStop(t *testing.T) {
	fake := clock.NewFakeClock(time.Now())
	stub := &stubReconciler{}

	s := New(zap.NewNop(), fake, config.SchedulerConfig{
		Interval:  time.Hour,
		Lookback:  time.Minute,
		BatchSize: 10,
	}, stub, nil)

	s.Start()
	s.Stop()
}
