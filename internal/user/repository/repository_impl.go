package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	userdomain "github.com/smallbiznis/crewpay/internal/user/domain"
	"gorm.io/gorm"
)

type repository struct{}

func New() userdomain.Repository {
	return &repository{}
}

func (r *repository) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*userdomain.User, error) {
	var user userdomain.User
	err := db.WithContext(ctx).Where("id = ?", id).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

func (r *repository) ListByIDs(ctx context.Context, db *gorm.DB, ids []snowflake.ID) ([]userdomain.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var users []userdomain.User
	err := db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error
	return users, err
}
