package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	balancedomain "github.com/smallbiznis/crewpay/internal/balance/domain"
	"github.com/smallbiznis/crewpay/internal/cache"
	commissiondomain "github.com/smallbiznis/crewpay/internal/commission/domain"
	"github.com/smallbiznis/crewpay/internal/config"
	userdomain "github.com/smallbiznis/crewpay/internal/user/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const userCacheTTL = 5 * time.Minute

// Server exposes the thin HTTP adapters over the commission and balance
// services. Authentication is the deployment's reverse proxy's concern.
type Server struct {
	engine *gin.Engine
	log    *zap.Logger

	db            *gorm.DB
	commissionSvc commissiondomain.Service
	balanceSvc    balancedomain.Service
	userRepo      userdomain.Repository

	// Reference-data memoization lives here, on the adapter side; the
	// engine below stays cache-free and deterministic.
	userCache *cache.ReadThrough[snowflake.ID, userdomain.User]
}

type Params struct {
	fx.In

	Engine        *gin.Engine
	Log           *zap.Logger
	DB            *gorm.DB
	CommissionSvc commissiondomain.Service
	BalanceSvc    balancedomain.Service
	UserRepo      userdomain.Repository
}

func NewEngine(cfg config.Config, log *zap.Logger) *gin.Engine {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(RequestLogger(log))
	engine.Use(ErrorHandlingMiddleware())
	return engine
}

func NewServer(p Params) *Server {
	return &Server{
		engine:        p.Engine,
		log:           p.Log.Named("server"),
		db:            p.DB,
		commissionSvc: p.CommissionSvc,
		balanceSvc:    p.BalanceSvc,
		userRepo:      p.UserRepo,
		userCache:     cache.NewReadThrough[snowflake.ID, userdomain.User](userCacheTTL),
	}
}

func (s *Server) RegisterAPIRoutes() {
	s.engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	s.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := s.engine.Group("/v1")
	{
		v1.POST("/commissions/recalculate/:jobId", s.RecalculateJob)
		v1.POST("/commissions/process-batch", s.ProcessBatch)

		v1.GET("/users/:id/commissions", s.ListUserCommissions)
		v1.GET("/users/:id/balance", s.GetUserBalance)
		v1.POST("/users/:id/recalculate-balance", s.RecalculateUserBalance)

		v1.POST("/payments", s.CreatePayment)
	}
}

// RequestLogger logs one line per request with latency and status.
func RequestLogger(log *zap.Logger) gin.HandlerFunc {
	logger := log.Named("http")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}

func RunHTTP(lc fx.Lifecycle, engine *gin.Engine, cfg config.Config, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Error("http server stopped", zap.Error(err))
				}
			}()
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})
}

// Module wires the HTTP surface.
var Module = fx.Module("server",
	fx.Provide(NewEngine),
	fx.Provide(NewServer),
	fx.Invoke(func(s *Server) { s.RegisterAPIRoutes() }),
	fx.Invoke(RunHTTP),
)
