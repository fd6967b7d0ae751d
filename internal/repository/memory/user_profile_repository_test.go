package memory

import (
	"context"
	"testing"

	"avatar-engine-be/internal/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserProfileRepository(t *testing.T) {
	repo := NewUserProfileRepository()
	ctx := context.Background()

	missing, err := repo.GetProfile(ctx, 8)
	require.NoError(t, err)
	assert.Nil(t, missing)

	profile := &entity.UserProfile{Id: 8, DisplayName: "Ana", Title: "SRE"}
	repo.Put(profile)
	profile.DisplayName = "changed"

	got, err := repo.GetProfile(ctx, 8)
	require.NoError(t, err)
	assert.Equal(t, "Ana", got.DisplayName)

	got.Title = "mutated"
	again, err := repo.GetProfile(ctx, 8)
	require.NoError(t, err)
	assert.Equal(t, "SRE", again.Title)
}
