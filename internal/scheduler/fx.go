package scheduler

import (
	"context"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/crewpay/internal/clock"
	commissiondomain "github.com/smallbiznis/crewpay/internal/commission/domain"
	"github.com/smallbiznis/crewpay/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// NewRedisClient returns nil when no redis address is configured; the
// scheduler then runs without a distributed lock.
func NewRedisClient(cfg config.Config) *redis.Client {
	if cfg.RedisAddr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
}

type Params struct {
	fx.In

	Log    *zap.Logger
	Clock  clock.Clock
	Cfg    config.Config
	Svc    commissiondomain.Service
	Locker *Locker `optional:"true"`
}

func NewScheduler(p Params) *Scheduler {
	return New(p.Log, p.Clock, p.Cfg.Scheduler, p.Svc, p.Locker)
}

func registerHooks(lc fx.Lifecycle, cfg config.Config, s *Scheduler) {
	if !cfg.Scheduler.Enabled {
		return
	}
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			s.Start()
			return nil
		},
		OnStop: func(_ context.Context) error {
			s.Stop()
			return nil
		},
	})
}

var Module = fx.Module("scheduler",
	fx.Provide(NewRedisClient),
	fx.Provide(NewLocker),
	fx.Provide(NewScheduler),
	fx.Invoke(registerHooks),
)
