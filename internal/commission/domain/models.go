package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	jobdomain "github.com/smallbiznis/crewpay/internal/job/domain"
	"gorm.io/gorm"
)

// CommissionRecord is the stored outcome of one (user, job) computation.
// Unique per (user_id, customer_id); AdminModified rows are immutable to
// the automated engine until an admin clears the flag.
type CommissionRecord struct {
	ID               snowflake.ID    `gorm:"primaryKey" json:"id"`
	UserID           snowflake.ID    `gorm:"not null;index;uniqueIndex:ux_commissions_user_customer,priority:1" json:"user_id"`
	CustomerID       snowflake.ID    `gorm:"not null;index;uniqueIndex:ux_commissions_user_customer,priority:2" json:"customer_id"`
	CommissionAmount decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0" json:"commission_amount"`
	IsPaid           bool            `gorm:"not null;default:false" json:"is_paid"`
	BuildDate        *time.Time      `json:"build_date,omitempty"`
	AdminModified    bool            `gorm:"not null;default:false" json:"admin_modified"`
	CreatedAt        time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt        time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (CommissionRecord) TableName() string { return "commission_records" }

// TaskWarning is a per-task data-quality note. Warnings never fail a batch.
type TaskWarning struct {
	JobID   snowflake.ID       `json:"job_id"`
	UserID  snowflake.ID       `json:"user_id"`
	Slot    jobdomain.RoleSlot `json:"slot"`
	Code    string             `json:"code"`
	Message string             `json:"message"`
}

// BatchStatus distinguishes clean runs, runs with per-task failures, and
// runs whose transaction could not commit.
type BatchStatus string

const (
	BatchAllSucceeded   BatchStatus = "all_succeeded"
	BatchPartialSuccess BatchStatus = "partial_success"
	BatchHardFailure    BatchStatus = "hard_failure"
)

// BatchResult reports one reconciliation run.
type BatchResult struct {
	Status            BatchStatus   `json:"status"`
	Jobs              int           `json:"jobs"`
	Tasks             int           `json:"tasks"`
	Created           int           `json:"created"`
	Updated           int           `json:"updated"`
	Unchanged         int           `json:"unchanged"`
	SkippedAdmin      int           `json:"skipped_admin"`
	Failed            int           `json:"failed"`
	UsersAffected     int           `json:"users_affected"`
	Warnings          []TaskWarning `json:"warnings,omitempty"`
	WarningsTruncated int           `json:"warnings_truncated,omitempty"`
}

// Service reconciles finalized jobs against stored commission records and
// applies the folded balance deltas, all inside one transaction.
type Service interface {
	ReconcileJob(ctx context.Context, jobID snowflake.ID) (BatchResult, error)
	ReconcileJobs(ctx context.Context, jobIDs []snowflake.ID) (BatchResult, error)
	ReconcileFinalized(ctx context.Context, since time.Time, limit int) (BatchResult, error)
	ListByUser(ctx context.Context, userID snowflake.ID, limit, offset int) ([]CommissionRecord, int64, error)
}

type Repository interface {
	ListByJobIDs(ctx context.Context, db *gorm.DB, jobIDs []snowflake.ID) ([]CommissionRecord, error)
	ListByUserID(ctx context.Context, db *gorm.DB, userID snowflake.ID, limit, offset int) ([]CommissionRecord, int64, error)
}

var (
	ErrNoJobs     = errors.New("no_jobs")
	ErrJobUnknown = errors.New("job_not_found")
)
