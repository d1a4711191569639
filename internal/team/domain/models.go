package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Role is the position a user holds within a team for one interval.
type Role string

const (
	RoleManager      Role = "manager"
	RoleSalesman     Role = "salesman"
	RoleSupplementer Role = "supplementer"
)

// MembershipInterval is one contiguous team assignment. History is append
// only: a user may hold many non-overlapping intervals for the same team
// (leaving and re-joining), so uniqueness keys on (user, team, joined_at).
// At most one interval per (user, team) may be open (left_at null) at a time.
type MembershipInterval struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	UserID    snowflake.ID `gorm:"not null;index;uniqueIndex:ux_memberships_user_team_joined,priority:1" json:"user_id"`
	TeamID    snowflake.ID `gorm:"not null;index;uniqueIndex:ux_memberships_user_team_joined,priority:2" json:"team_id"`
	Role      Role         `gorm:"type:text;not null" json:"role"`
	JoinedAt  time.Time    `gorm:"not null;uniqueIndex:ux_memberships_user_team_joined,priority:3" json:"joined_at"`
	LeftAt    *time.Time   `json:"left_at,omitempty"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (MembershipInterval) TableName() string { return "team_membership_intervals" }

// Covers reports whether the interval was active at the given instant.
func (m MembershipInterval) Covers(at time.Time) bool {
	if at.Before(m.JoinedAt) {
		return false
	}
	return m.LeftAt == nil || m.LeftAt.After(at)
}

// Member is a team member as of a snapshot date, annotated with the hire
// date downstream tenure math needs.
type Member struct {
	UserID   snowflake.ID `json:"user_id"`
	Role     Role         `json:"role"`
	HireDate *time.Time   `json:"hire_date,omitempty"`
}

// Snapshot is the full composition of one team at a past instant,
// partitioned by role.
type Snapshot struct {
	TeamID        snowflake.ID `json:"team_id"`
	AsOf          time.Time    `json:"as_of"`
	Managers      []Member     `json:"managers"`
	Salesmen      []Member     `json:"salesmen"`
	Supplementers []Member     `json:"supplementers"`
}

// Salesman finds a salesman on the snapshot by user id.
func (s Snapshot) Salesman(userID snowflake.ID) (Member, bool) {
	return findMember(s.Salesmen, userID)
}

// Supplementer finds a supplementer on the snapshot by user id.
func (s Snapshot) Supplementer(userID snowflake.ID) (Member, bool) {
	return findMember(s.Supplementers, userID)
}

func findMember(members []Member, userID snowflake.ID) (Member, bool) {
	for _, m := range members {
		if m.UserID == userID {
			return m, true
		}
	}
	return Member{}, false
}

// Context is a user's membership at a date together with the composition of
// that team at the same date.
type Context struct {
	Membership MembershipInterval `json:"membership"`
	Snapshot   Snapshot           `json:"snapshot"`
}

// Service answers as-of-date membership questions. A nil result with a nil
// error means the user simply had no team at that date; callers treat that
// as zero eligible commission for override-style roles, not as a failure.
type Service interface {
	WithTx(tx *gorm.DB) Service
	MembershipAt(ctx context.Context, userID snowflake.ID, at time.Time) (*MembershipInterval, error)
	TeamSnapshotAt(ctx context.Context, teamID snowflake.ID, at time.Time) (Snapshot, error)
	HistoricalContextFor(ctx context.Context, userID snowflake.ID, at time.Time) (*Context, error)
}

type Repository interface {
	IntervalsCovering(ctx context.Context, db *gorm.DB, userID snowflake.ID, at time.Time) ([]MembershipInterval, error)
	TeamIntervalsCovering(ctx context.Context, db *gorm.DB, teamID snowflake.ID, at time.Time) ([]MembershipInterval, error)
}

var (
	ErrInvalidUser = errors.New("invalid_user")
	ErrInvalidTeam = errors.New("invalid_team")
)
