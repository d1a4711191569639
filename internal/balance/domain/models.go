package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// UserBalance keeps the running ledger per user. The invariant
// current_balance == total_commissions_earned - total_payments_received
// holds after every mutation; rows are created lazily on first reference
// and mutated only through signed deltas outside the admin recalculate path.
type UserBalance struct {
	UserID                 snowflake.ID    `gorm:"primaryKey" json:"user_id"`
	TotalCommissionsEarned decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0" json:"total_commissions_earned"`
	TotalPaymentsReceived  decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0" json:"total_payments_received"`
	CurrentBalance         decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0" json:"current_balance"`
	CreatedAt              time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt              time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (UserBalance) TableName() string { return "user_balances" }

type Payment struct {
	ID        snowflake.ID    `gorm:"primaryKey" json:"id"`
	UserID    snowflake.ID    `gorm:"not null;index" json:"user_id"`
	Amount    decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"amount"`
	Type      string          `gorm:"type:text;not null;default:''" json:"type"`
	Date      time.Time       `gorm:"not null" json:"date"`
	Notes     string          `gorm:"type:text;not null;default:''" json:"notes"`
	CreatedAt time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (Payment) TableName() string { return "payments" }

// PaymentCommissionMapping tracks which payment covered which commission row.
type PaymentCommissionMapping struct {
	ID              snowflake.ID    `gorm:"primaryKey" json:"id"`
	PaymentID       snowflake.ID    `gorm:"not null;index" json:"payment_id"`
	CommissionDueID snowflake.ID    `gorm:"not null;index" json:"commission_due_id"`
	AmountApplied   decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"amount_applied"`
	CreatedAt       time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (PaymentCommissionMapping) TableName() string { return "payment_commission_mappings" }

type PaymentApplication struct {
	CommissionDueID snowflake.ID    `json:"commission_due_id"`
	AmountApplied   decimal.Decimal `json:"amount_applied"`
}

type CreatePaymentRequest struct {
	UserID       snowflake.ID
	Amount       decimal.Decimal
	Type         string
	Date         time.Time
	Notes        string
	Applications []PaymentApplication
}

// Service is the balance ledger. ApplyCommissionDelta runs on the caller's
// transaction so batch commits stay all-or-nothing.
type Service interface {
	ApplyCommissionDelta(ctx context.Context, tx *gorm.DB, userID snowflake.ID, delta decimal.Decimal) error
	CreatePayment(ctx context.Context, req CreatePaymentRequest) (Payment, error)
	GetBalance(ctx context.Context, userID snowflake.ID) (UserBalance, error)
	Recalculate(ctx context.Context, userID snowflake.ID) (UserBalance, error)
}

var (
	ErrInvalidUser    = errors.New("invalid_user")
	ErrInvalidAmount  = errors.New("invalid_amount")
	ErrInvalidDate    = errors.New("invalid_date")
	ErrUserNotFound   = errors.New("user_not_found")
	ErrOverApplied    = errors.New("payment_over_applied")
	ErrUnknownMapping = errors.New("unknown_commission_mapping")
)
