package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/crewpay/internal/audit"
	"github.com/smallbiznis/crewpay/internal/balance"
	"github.com/smallbiznis/crewpay/internal/clock"
	"github.com/smallbiznis/crewpay/internal/commission"
	"github.com/smallbiznis/crewpay/internal/config"
	"github.com/smallbiznis/crewpay/internal/job"
	"github.com/smallbiznis/crewpay/internal/logger"
	"github.com/smallbiznis/crewpay/internal/migration"
	"github.com/smallbiznis/crewpay/internal/observability/metrics"
	"github.com/smallbiznis/crewpay/internal/scheduler"
	"github.com/smallbiznis/crewpay/internal/server"
	"github.com/smallbiznis/crewpay/internal/team"
	"github.com/smallbiznis/crewpay/internal/user"
	"github.com/smallbiznis/crewpay/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core infrastructure
		config.Module,
		logger.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		metrics.Module,
		migration.Module,

		// Functional domains
		user.Module,
		job.Module,
		team.Module,
		audit.Module,
		balance.Module,
		commission.Module,
		scheduler.Module,

		// HTTP surface
		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
