package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/coursemarket/internal/app/models"
	"github.com/yigit/coursemarket/internal/pkg/apperrors"
)

func TestUserService_Lookups(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	registered := env.register(t, "ada", "ada@example.com", models.AccountTypeStudent)

	byEmail, err := env.users.GetUserByEmail(ctx, " ADA@example.com")
	require.NoError(t, err)
	assert.Equal(t, registered.User.ID, byEmail.ID)

	byID, err := env.users.GetUserByID(ctx, registered.User.ID)
	require.NoError(t, err)
	assert.Equal(t, "ada", byID.Username)

	_, err = env.users.GetUserByEmail(ctx, "ghost@example.com")
	assert.ErrorIs(t, err, apperrors.ErrUserNotFound)
}
