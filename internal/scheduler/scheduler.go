package scheduler

import (
	"context"
	"time"

	"github.com/smallbiznis/crewpay/internal/clock"
	commissiondomain "github.com/smallbiznis/crewpay/internal/commission/domain"
	"github.com/smallbiznis/crewpay/internal/config"
	"go.uber.org/zap"
)

const sweepLockKey = "crewpay:reconcile:sweep"

// Scheduler periodically reconciles recently finalized jobs. Reconciliation
// is idempotent, so overlapping sweeps are wasteful but never incorrect.
type Scheduler struct {
	log    *zap.Logger
	clock  clock.Clock
	cfg    config.SchedulerConfig
	svc    commissiondomain.Service
	locker *Locker

	stop chan struct{}
	done chan struct{}
}

func New(log *zap.Logger, clk clock.Clock, cfg config.SchedulerConfig, svc commissiondomain.Service, locker *Locker) *Scheduler {
	return &Scheduler{
		log:    log.Named("scheduler"),
		clock:  clk,
		cfg:    cfg,
		svc:    svc,
		locker: locker,
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
}

func (s *Scheduler) Start() {
	go s.loop()
}

func (s *Scheduler) Stop() {
	close(s.stop)
	<-s.done
}

func (s *Scheduler) loop() {
	defer close(s.done)

	interval := s.cfg.Interval
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.Sweep(context.Background())
		}
	}
}

// Sweep reconciles jobs finalized or re-finalized inside the lookback
// window. Exported for tests and for manual triggering.
func (s *Scheduler) Sweep(ctx context.Context) {
	if s.locker != nil {
		token, ok, err := s.locker.TryLock(ctx, sweepLockKey, s.cfg.LockTTL)
		if err != nil {
			s.log.Warn("sweep lock unavailable", zap.Error(err))
			return
		}
		if !ok {
			return
		}
		defer func() {
			if err := s.locker.Release(ctx, sweepLockKey, token); err != nil {
				s.log.Warn("failed to release sweep lock", zap.Error(err))
			}
		}()
	}

	since := s.clock.Now().Add(-s.cfg.Lookback)
	result, err := s.svc.ReconcileFinalized(ctx, since, s.cfg.BatchSize)
	if err != nil {
		s.log.Error("sweep failed", zap.Error(err))
		return
	}
	if result.Created > 0 || result.Updated > 0 || result.Failed > 0 {
		s.log.Info("sweep finished",
			zap.Int("jobs", result.Jobs),
			zap.Int("created", result.Created),
			zap.Int("updated", result.Updated),
			zap.Int("failed", result.Failed),
		)
	}
}
