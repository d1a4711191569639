package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Status is the job lifecycle state as delivered by the ingestion collaborator.
type Status string

const (
	StatusLead      Status = "Lead"
	StatusFinalized Status = "Finalized"
	StatusCanceled  Status = "Canceled"
)

// Job is a normalized customer job. CreatedDate is the date the job entered
// the system and is immutable; every tenure and team lookup keys off it,
// never off the current date.
type Job struct {
	ID                  snowflake.ID    `gorm:"primaryKey" json:"id"`
	Status              Status          `gorm:"type:text;not null;index" json:"status"`
	LeadSource          string          `gorm:"type:text;not null;default:''" json:"lead_source"`
	InitialScopePrice   decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0" json:"initial_scope_price"`
	TotalJobPrice       decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0" json:"total_job_price"`
	CreatedDate         time.Time       `gorm:"not null" json:"created_date"`
	BuildDate           *time.Time      `json:"build_date,omitempty"`
	GoingToAppraisal    bool            `gorm:"not null;default:false" json:"going_to_appraisal"`
	SalesmanID          *snowflake.ID   `gorm:"index" json:"salesman_id,omitempty"`
	SupplementerID      *snowflake.ID   `gorm:"index" json:"supplementer_id,omitempty"`
	ManagerID           *snowflake.ID   `gorm:"index" json:"manager_id,omitempty"`
	SupplementManagerID *snowflake.ID   `gorm:"index" json:"supplement_manager_id,omitempty"`
	ReferrerID          *snowflake.ID   `gorm:"index" json:"referrer_id,omitempty"`
	CreatedAt           time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt           time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Job) TableName() string { return "jobs" }

// RoleSlot names which assignment on the job a commission task came from.
type RoleSlot string

const (
	SlotSalesman          RoleSlot = "salesman"
	SlotSupplementer      RoleSlot = "supplementer"
	SlotManager           RoleSlot = "manager"
	SlotSupplementManager RoleSlot = "supplement_manager"
	SlotReferrer          RoleSlot = "referrer"
)

// Assignment pairs a role slot with the user filling it.
type Assignment struct {
	Slot   RoleSlot
	UserID snowflake.ID
}

// Assignments enumerates the non-null role assignments on the job.
func (j Job) Assignments() []Assignment {
	var out []Assignment
	add := func(slot RoleSlot, id *snowflake.ID) {
		if id != nil && *id != 0 {
			out = append(out, Assignment{Slot: slot, UserID: *id})
		}
	}
	add(SlotSalesman, j.SalesmanID)
	add(SlotSupplementer, j.SupplementerID)
	add(SlotManager, j.ManagerID)
	add(SlotSupplementManager, j.SupplementManagerID)
	add(SlotReferrer, j.ReferrerID)
	return out
}

// AssignedTo reports whether the user fills any working role on the job.
// Referrer is not a working role; it carries no historical claim.
func (j Job) AssignedTo(userID snowflake.ID) bool {
	for _, a := range j.Assignments() {
		if a.Slot != SlotReferrer && a.UserID == userID {
			return true
		}
	}
	return false
}

type Repository interface {
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Job, error)
	ListByIDs(ctx context.Context, db *gorm.DB, ids []snowflake.ID) ([]Job, error)
	ListFinalizedUpdatedSince(ctx context.Context, db *gorm.DB, since time.Time, limit int) ([]Job, error)
}

var (
	ErrNotFound     = errors.New("job_not_found")
	ErrNotFinalized = errors.New("job_not_finalized")
	ErrInvalidID    = errors.New("invalid_job_id")
)
