package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	jobdomain "github.com/smallbiznis/crewpay/internal/job/domain"
	"github.com/smallbiznis/crewpay/pkg/db/option"
	"gorm.io/gorm"
)

type repository struct{}

func New() jobdomain.Repository {
	return &repository{}
}

func (r *repository) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*jobdomain.Job, error) {
	var job jobdomain.Job
	err := db.WithContext(ctx).Where("id = ?", id).First(&job).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &job, nil
}

func (r *repository) ListByIDs(ctx context.Context, db *gorm.DB, ids []snowflake.ID) ([]jobdomain.Job, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var jobs []jobdomain.Job
	err := db.WithContext(ctx).Where("id IN ?", ids).Find(&jobs).Error
	return jobs, err
}

func (r *repository) ListFinalizedUpdatedSince(ctx context.Context, db *gorm.DB, since time.Time, limit int) ([]jobdomain.Job, error) {
	var jobs []jobdomain.Job
	stmt := option.Apply(
		db.WithContext(ctx).
			Where("status = ?", jobdomain.StatusFinalized).
			Where("updated_at >= ?", since),
		option.WithOrder("updated_at ASC"),
		option.WithLimit(limit),
	)
	err := stmt.Find(&jobs).Error
	return jobs, err
}
