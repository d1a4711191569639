package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	auditdomain "github.com/smallbiznis/crewpay/internal/audit/domain"
	balancedomain "github.com/smallbiznis/crewpay/internal/balance/domain"
	commissiondomain "github.com/smallbiznis/crewpay/internal/commission/domain"
	obsmetrics "github.com/smallbiznis/crewpay/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	auditSvc   auditdomain.Service
	obsMetrics *obsmetrics.Metrics
}

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	AuditSvc   auditdomain.Service `optional:"true"`
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

func NewService(p Params) balancedomain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("balance.service"),
		genID:      p.GenID,
		auditSvc:   p.AuditSvc,
		obsMetrics: p.ObsMetrics,
	}
}

// ApplyCommissionDelta upserts the balance row and adds the signed delta to
// both earned total and current balance in one statement, so concurrent
// batches never lose an update to a read-modify-write race.
func (s *Service) ApplyCommissionDelta(ctx context.Context, tx *gorm.DB, userID snowflake.ID, delta decimal.Decimal) error {
	if userID == 0 {
		return balancedomain.ErrInvalidUser
	}
	if delta.IsZero() {
		return nil
	}
	conn := tx
	if conn == nil {
		conn = s.db
	}

	now := time.Now().UTC()
	err := conn.WithContext(ctx).Exec(
		`INSERT INTO user_balances (
			user_id, total_commissions_earned, total_payments_received, current_balance, created_at, updated_at
		) VALUES (?, ?, 0, ?, ?, ?)
		ON CONFLICT (user_id)
		DO UPDATE SET total_commissions_earned = user_balances.total_commissions_earned + EXCLUDED.total_commissions_earned,
		              current_balance = user_balances.current_balance + EXCLUDED.current_balance,
		              updated_at = EXCLUDED.updated_at`,
		userID,
		delta,
		delta,
		now,
		now,
	).Error
	if err != nil {
		return err
	}
	s.obsMetrics.RecordBalanceWrites(1)
	return nil
}

func (s *Service) applyPaymentDelta(ctx context.Context, tx *gorm.DB, userID snowflake.ID, amount decimal.Decimal, now time.Time) error {
	return tx.WithContext(ctx).Exec(
		`INSERT INTO user_balances (
			user_id, total_commissions_earned, total_payments_received, current_balance, created_at, updated_at
		) VALUES (?, 0, ?, ?, ?, ?)
		ON CONFLICT (user_id)
		DO UPDATE SET total_payments_received = user_balances.total_payments_received + EXCLUDED.total_payments_received,
		              current_balance = user_balances.current_balance - EXCLUDED.total_payments_received,
		              updated_at = EXCLUDED.updated_at`,
		userID,
		amount,
		amount.Neg(),
		now,
		now,
	).Error
}

func (s *Service) CreatePayment(ctx context.Context, req balancedomain.CreatePaymentRequest) (balancedomain.Payment, error) {
	if req.UserID == 0 {
		return balancedomain.Payment{}, balancedomain.ErrInvalidUser
	}
	if req.Amount.IsZero() || req.Amount.IsNegative() {
		return balancedomain.Payment{}, balancedomain.ErrInvalidAmount
	}
	if req.Date.IsZero() {
		return balancedomain.Payment{}, balancedomain.ErrInvalidDate
	}

	applied := decimal.Zero
	for _, app := range req.Applications {
		if app.CommissionDueID == 0 {
			return balancedomain.Payment{}, balancedomain.ErrUnknownMapping
		}
		if app.AmountApplied.IsNegative() {
			return balancedomain.Payment{}, balancedomain.ErrInvalidAmount
		}
		applied = applied.Add(app.AmountApplied)
	}
	if applied.GreaterThan(req.Amount) {
		return balancedomain.Payment{}, balancedomain.ErrOverApplied
	}

	payment := balancedomain.Payment{
		ID:     s.genID.Generate(),
		UserID: req.UserID,
		Amount: req.Amount.Round(2),
		Type:   req.Type,
		Date:   req.Date.UTC(),
		Notes:  req.Notes,
	}

	now := time.Now().UTC()
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.WithContext(ctx).Create(&payment).Error; err != nil {
			return err
		}

		for _, app := range req.Applications {
			var due commissiondomain.CommissionRecord
			if err := tx.WithContext(ctx).
				Where("id = ?", app.CommissionDueID).
				First(&due).Error; err != nil {
				return balancedomain.ErrUnknownMapping
			}

			mapping := balancedomain.PaymentCommissionMapping{
				ID:              s.genID.Generate(),
				PaymentID:       payment.ID,
				CommissionDueID: app.CommissionDueID,
				AmountApplied:   app.AmountApplied.Round(2),
			}
			if err := tx.WithContext(ctx).Create(&mapping).Error; err != nil {
				return err
			}

			if app.AmountApplied.GreaterThanOrEqual(due.CommissionAmount) && !due.IsPaid {
				if err := tx.WithContext(ctx).
					Model(&commissiondomain.CommissionRecord{}).
					Where("id = ?", due.ID).
					Updates(map[string]any{"is_paid": true, "updated_at": now}).Error; err != nil {
					return err
				}
			}
		}

		return s.applyPaymentDelta(ctx, tx, req.UserID, payment.Amount, now)
	})
	if err != nil {
		return balancedomain.Payment{}, err
	}

	if s.auditSvc != nil {
		paymentID := payment.ID.String()
		if err := s.auditSvc.AuditLog(ctx, "", "payment.created", "payment", &paymentID, map[string]any{
			"user_id": payment.UserID.String(),
			"amount":  payment.Amount.String(),
		}); err != nil {
			s.log.Warn("failed to write payment audit log", zap.Error(err))
		}
	}
	return payment, nil
}

func (s *Service) GetBalance(ctx context.Context, userID snowflake.ID) (balancedomain.UserBalance, error) {
	if userID == 0 {
		return balancedomain.UserBalance{}, balancedomain.ErrInvalidUser
	}
	var row balancedomain.UserBalance
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&row).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			// Lazily-created ledger: an untouched user simply has zeroes.
			return balancedomain.UserBalance{UserID: userID}, nil
		}
		return balancedomain.UserBalance{}, err
	}
	return row, nil
}

// Recalculate heals drift by summing history and overwriting the three
// fields atomically. Admin-triggered only; the steady-state batch path
// always goes through signed deltas.
func (s *Service) Recalculate(ctx context.Context, userID snowflake.ID) (balancedomain.UserBalance, error) {
	if userID == 0 {
		return balancedomain.UserBalance{}, balancedomain.ErrInvalidUser
	}

	var result balancedomain.UserBalance
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var sums struct {
			Earned decimal.Decimal `gorm:"column:earned"`
			Paid   decimal.Decimal `gorm:"column:paid"`
		}
		if err := tx.WithContext(ctx).Raw(
			`SELECT
				(SELECT COALESCE(SUM(commission_amount), 0) FROM commission_records WHERE user_id = @user) AS earned,
				(SELECT COALESCE(SUM(amount), 0) FROM payments WHERE user_id = @user) AS paid`,
			map[string]any{"user": userID},
		).Scan(&sums).Error; err != nil {
			return err
		}

		now := time.Now().UTC()
		balanceNow := sums.Earned.Sub(sums.Paid)
		if err := tx.WithContext(ctx).Exec(
			`INSERT INTO user_balances (
				user_id, total_commissions_earned, total_payments_received, current_balance, created_at, updated_at
			) VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT (user_id)
			DO UPDATE SET total_commissions_earned = EXCLUDED.total_commissions_earned,
			              total_payments_received = EXCLUDED.total_payments_received,
			              current_balance = EXCLUDED.current_balance,
			              updated_at = EXCLUDED.updated_at`,
			userID,
			sums.Earned,
			sums.Paid,
			balanceNow,
			now,
			now,
		).Error; err != nil {
			return err
		}

		result = balancedomain.UserBalance{
			UserID:                 userID,
			TotalCommissionsEarned: sums.Earned,
			TotalPaymentsReceived:  sums.Paid,
			CurrentBalance:         balanceNow,
			UpdatedAt:              now,
		}
		return nil
	})
	if err != nil {
		return balancedomain.UserBalance{}, err
	}

	if s.auditSvc != nil {
		target := userID.String()
		if err := s.auditSvc.AuditLog(ctx, "", "balance.recalculated", "user_balance", &target, map[string]any{
			"current_balance": result.CurrentBalance.String(),
		}); err != nil {
			s.log.Warn("failed to write recalculate audit log", zap.Error(err))
		}
	}
	return result, nil
}
