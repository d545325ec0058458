package main

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/coursemarket/internal/app/models"
	"github.com/yigit/coursemarket/internal/app/repositories/memory"
	"github.com/yigit/coursemarket/internal/bootstrap"
	"github.com/yigit/coursemarket/internal/config"
	"github.com/yigit/coursemarket/internal/pkg/apperrors"
	"github.com/yigit/coursemarket/internal/pkg/auth"
	"github.com/yigit/coursemarket/internal/seed"
)

func setup(t *testing.T) (*environment, *bootstrap.Storage) {
	t.Helper()
	storage := &bootstrap.Storage{
		Driver: config.DriverMemory,
		Repos:  memory.NewRepositories(memory.Open()),
	}
	env := &environment{
		loadConfig: func(string) (*config.Config, zerolog.Logger, error) {
			cfg := config.Default()
			cfg.Database.Driver = config.DriverMemory
			cfg.JWT.Secret = "admin-test-secret"
			return cfg, zerolog.Nop(), nil
		},
		openStorage: func(context.Context, *config.Config, zerolog.Logger) (*bootstrap.Storage, error) {
			return storage, nil
		},
	}
	return env, storage
}

func mockPassword(t *testing.T, pwd string, err error) {
	t.Helper()
	original := readPasswordFunc
	readPasswordFunc = func(int) ([]byte, error) { return []byte(pwd), err }
	t.Cleanup(func() { readPasswordFunc = original })
}

func run(env *environment, args ...string) (string, error) {
	var out bytes.Buffer
	app := newApp(env)
	app.Writer = &out
	app.ErrWriter = &out
	err := app.RunContext(context.Background(), append([]string{"coursemarket-admin"}, args...))
	return out.String(), err
}

func TestMigrate(t *testing.T) {
	env, _ := setup(t)
	out, err := run(env, "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "memory storage is up to date")
}

func TestSeed(t *testing.T) {
	env, storage := setup(t)

	for i := 0; i < 2; i++ {
		out, err := run(env, "seed")
		require.NoError(t, err)
		assert.Contains(t, out, seed.DemoTeacherEmail)
	}

	courses, err := storage.Repos.Courses.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, courses, 1, "seeding twice creates the course once")
}

func TestCreateUser(t *testing.T) {
	env, storage := setup(t)
	mockPassword(t, "secret123", nil)

	tests := []struct {
		name       string
		args       []string
		wantErr    error
		wantErrStr string
	}{
		{name: "missing flags", args: []string{"create-user"}, wantErrStr: "Required flags \"email, username\" not set"},
		{name: "bad type", args: []string{"create-user", "--email", "x@example.com", "--username", "x", "--type", "admin"}, wantErr: apperrors.ErrValidationFailed},
		{name: "teacher", args: []string{"create-user", "--email", "Ada@Example.com", "--username", "ada", "--type", "Teacher"}},
		{name: "duplicate", args: []string{"create-user", "--email", "ada@example.com", "--username", "ada2"}, wantErr: apperrors.ErrEmailAlreadyExists},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(env, tt.args...)
			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			case tt.wantErrStr != "":
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErrStr)
			default:
				assert.NoError(t, err)
			}
		})
	}

	user, err := storage.Repos.Users.GetByEmail(context.Background(), "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, models.AccountTypeTeacher, user.AccountType)
	assert.True(t, auth.CheckPassword(user.Password, "secret123"))
}

func TestResetPassword(t *testing.T) {
	env, storage := setup(t)
	mockPassword(t, "first-pass", nil)
	_, err := run(env, "create-user", "--email", "bob@example.com", "--username", "bob")
	require.NoError(t, err)

	t.Run("prompt fails", func(t *testing.T) {
		mockPassword(t, "", errors.New("not a terminal"))
		_, err := run(env, "reset-password", "--email", "bob@example.com")
		assert.ErrorContains(t, err, "not a terminal")
	})

	t.Run("empty password", func(t *testing.T) {
		mockPassword(t, "", nil)
		_, err := run(env, "reset-password", "--email", "bob@example.com")
		assert.ErrorIs(t, err, errEmptyPassword)
	})

	t.Run("too short", func(t *testing.T) {
		mockPassword(t, "abc", nil)
		_, err := run(env, "reset-password", "--email", "bob@example.com")
		assert.ErrorIs(t, err, apperrors.ErrValidationFailed)
	})

	t.Run("unknown user", func(t *testing.T) {
		mockPassword(t, "second-pass", nil)
		_, err := run(env, "reset-password", "--email", "nobody@example.com")
		assert.ErrorIs(t, err, apperrors.ErrUserNotFound)
	})

	t.Run("updates the hash", func(t *testing.T) {
		mockPassword(t, "second-pass", nil)
		out, err := run(env, "reset-password", "--email", "BOB@example.com")
		require.NoError(t, err)
		assert.Contains(t, out, "password of bob@example.com updated")

		user, err := storage.Repos.Users.GetByEmail(context.Background(), "bob@example.com")
		require.NoError(t, err)
		assert.True(t, auth.CheckPassword(user.Password, "second-pass"))
		assert.False(t, auth.CheckPassword(user.Password, "first-pass"))
	})
}
