package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	teamdomain "github.com/smallbiznis/crewpay/internal/team/domain"
	"gorm.io/gorm"
)

type repository struct{}

func New() teamdomain.Repository {
	return &repository{}
}

func (r *repository) IntervalsCovering(ctx context.Context, db *gorm.DB, userID snowflake.ID, at time.Time) ([]teamdomain.MembershipInterval, error) {
	var intervals []teamdomain.MembershipInterval
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Where("joined_at <= ?", at).
		Where("left_at IS NULL OR left_at > ?", at).
		Order("joined_at DESC").
		Find(&intervals).Error
	return intervals, err
}

func (r *repository) TeamIntervalsCovering(ctx context.Context, db *gorm.DB, teamID snowflake.ID, at time.Time) ([]teamdomain.MembershipInterval, error) {
	var intervals []teamdomain.MembershipInterval
	err := db.WithContext(ctx).
		Where("team_id = ?", teamID).
		Where("joined_at <= ?", at).
		Where("left_at IS NULL OR left_at > ?", at).
		Order("joined_at DESC").
		Find(&intervals).Error
	return intervals, err
}
