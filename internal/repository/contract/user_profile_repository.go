package contract

import (
	"context"

	"avatar-engine-be/internal/entity"
)

type UserProfileRepository interface {
	// GetProfile returns nil, nil when the user does not exist.
	GetProfile(ctx context.Context, userId int64) (*entity.UserProfile, error)
}
