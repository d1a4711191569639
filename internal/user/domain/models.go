package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Role is the closed set of commissionable roles. Anything else parses to
// RoleUnknown, which earns nothing and is surfaced as a data-quality warning.
type Role string

const (
	RoleSalesman          Role = "salesman"
	RoleSupplementer      Role = "supplementer"
	RoleSalesManager      Role = "sales_manager"
	RoleSupplementManager Role = "supplement_manager"
	RoleAffiliateMarketer Role = "affiliate_marketer"
	RoleUnknown           Role = "unknown"
)

func ParseRole(raw string) Role {
	switch Role(raw) {
	case RoleSalesman, RoleSupplementer, RoleSalesManager, RoleSupplementManager, RoleAffiliateMarketer:
		return Role(raw)
	default:
		return RoleUnknown
	}
}

type User struct {
	ID         snowflake.ID    `gorm:"primaryKey" json:"id"`
	Name       string          `gorm:"not null" json:"name"`
	Email      string          `gorm:"not null" json:"email"`
	Role       Role            `gorm:"type:text;not null" json:"role"`
	HireDate   *time.Time      `json:"hire_date,omitempty"`
	YearlyGoal decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0" json:"yearly_goal"`
	CreatedAt  time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt  time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (User) TableName() string { return "users" }

type Repository interface {
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*User, error)
	ListByIDs(ctx context.Context, db *gorm.DB, ids []snowflake.ID) ([]User, error)
}

var (
	ErrNotFound  = errors.New("user_not_found")
	ErrInvalidID = errors.New("invalid_user_id")
)
