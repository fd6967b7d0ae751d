package memory

import (
	"context"
	"strconv"

	"avatar-engine-be/internal/entity"
	"avatar-engine-be/internal/repository/contract"

	"github.com/patrickmn/go-cache"
)

// UserProfileRepository serves profiles registered with Put. It stands in
// for the chat service's users table when no database is configured.
type UserProfileRepository struct {
	cache *cache.Cache
}

func NewUserProfileRepository() *UserProfileRepository {
	return &UserProfileRepository{cache: cache.New(cache.NoExpiration, 0)}
}

var _ contract.UserProfileRepository = (*UserProfileRepository)(nil)

func (r *UserProfileRepository) Put(profile *entity.UserProfile) {
	stored := *profile
	r.cache.Set(strconv.FormatInt(profile.Id, 10), &stored, cache.NoExpiration)
}

func (r *UserProfileRepository) GetProfile(ctx context.Context, userId int64) (*entity.UserProfile, error) {
	v, ok := r.cache.Get(strconv.FormatInt(userId, 10))
	if !ok {
		return nil, nil
	}
	profile := *v.(*entity.UserProfile)
	return &profile, nil
}
