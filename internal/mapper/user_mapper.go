package mapper

import (
	"avatar-engine-be/internal/entity"
	"avatar-engine-be/internal/model"
)

type UserMapper struct{}

func NewUserMapper() *UserMapper {
	return &UserMapper{}
}

func (m *UserMapper) ToProfile(u *model.User) *entity.UserProfile {
	if u == nil {
		return nil
	}

	profile := &entity.UserProfile{
		Id:          u.Id,
		DisplayName: u.DisplayName,
	}
	if u.Title != nil {
		profile.Title = *u.Title
	}
	if u.Bio != nil {
		profile.Bio = *u.Bio
	}
	return profile
}
