package implementation

import (
	"context"
	"errors"

	"avatar-engine-be/internal/entity"
	"avatar-engine-be/internal/mapper"
	"avatar-engine-be/internal/model"
	"avatar-engine-be/internal/repository/contract"

	"gorm.io/gorm"
)

type UserProfileRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.UserMapper
}

func NewUserProfileRepository(db *gorm.DB) contract.UserProfileRepository {
	return &UserProfileRepositoryImpl{
		db:     db,
		mapper: mapper.NewUserMapper(),
	}
}

func (r *UserProfileRepositoryImpl) GetProfile(ctx context.Context, userId int64) (*entity.UserProfile, error) {
	var u model.User
	if err := r.db.WithContext(ctx).Where("id = ?", userId).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToProfile(&u), nil
}
