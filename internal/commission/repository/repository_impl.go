package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	commissiondomain "github.com/smallbiznis/crewpay/internal/commission/domain"
	"github.com/smallbiznis/crewpay/pkg/db/option"
	"gorm.io/gorm"
)

type repository struct{}

func New() commissiondomain.Repository {
	return &repository{}
}

// ListByJobIDs bulk-loads every stored record for the batch in one query.
func (r *repository) ListByJobIDs(ctx context.Context, db *gorm.DB, jobIDs []snowflake.ID) ([]commissiondomain.CommissionRecord, error) {
	if len(jobIDs) == 0 {
		return nil, nil
	}
	var records []commissiondomain.CommissionRecord
	stmt := option.Apply(db.WithContext(ctx), option.WithIn("customer_id", jobIDs))
	err := stmt.Find(&records).Error
	return records, err
}

func (r *repository) ListByUserID(ctx context.Context, db *gorm.DB, userID snowflake.ID, limit, offset int) ([]commissiondomain.CommissionRecord, int64, error) {
	var total int64
	if err := db.WithContext(ctx).
		Model(&commissiondomain.CommissionRecord{}).
		Where("user_id = ?", userID).
		Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var records []commissiondomain.CommissionRecord
	stmt := option.Apply(
		db.WithContext(ctx).Where("user_id = ?", userID),
		option.WithOrder("created_at DESC, id DESC"),
		option.WithLimit(limit),
		option.WithOffset(offset),
	)
	err := stmt.Find(&records).Error
	return records, total, err
}
