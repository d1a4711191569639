package migration

import (
	auditdomain "github.com/smallbiznis/crewpay/internal/audit/domain"
	balancedomain "github.com/smallbiznis/crewpay/internal/balance/domain"
	commissiondomain "github.com/smallbiznis/crewpay/internal/commission/domain"
	"github.com/smallbiznis/crewpay/internal/config"
	jobdomain "github.com/smallbiznis/crewpay/internal/job/domain"
	teamdomain "github.com/smallbiznis/crewpay/internal/team/domain"
	userdomain "github.com/smallbiznis/crewpay/internal/user/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		if cfg.DBType == "postgres" {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			return RunMigrations(sqlDB)
		}

		// Non-postgres dialects (sqlite for local dev, mysql) fall back to
		// schema sync from the domain models.
		if err := conn.AutoMigrate(
			&userdomain.User{},
			&jobdomain.Job{},
			&teamdomain.MembershipInterval{},
			&commissiondomain.CommissionRecord{},
			&balancedomain.UserBalance{},
			&balancedomain.Payment{},
			&balancedomain.PaymentCommissionMapping{},
			&auditdomain.AuditLog{},
		); err != nil {
			return err
		}

		// MySQL cannot express a partial index; only one open interval per
		// (user, team) is guarded at the schema level on the other dialects.
		if cfg.DBType != "mysql" {
			return conn.Exec(
				`CREATE UNIQUE INDEX IF NOT EXISTS ux_memberships_open ON team_membership_intervals (user_id, team_id) WHERE left_at IS NULL`,
			).Error
		}
		return nil
	}),
)
