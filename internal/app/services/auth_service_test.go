package services

import (
	"context"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/coursemarket/internal/app/models"
	"github.com/yigit/coursemarket/internal/app/models/dto"
	"github.com/yigit/coursemarket/internal/pkg/apperrors"
)

func TestAuthService_Register(t *testing.T) {
	env := newTestEnv(t)

	resp := env.register(t, "ada", "  Ada@Example.com ", models.AccountTypeStudent)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, "ada@example.com", resp.User.Email)
	assert.Equal(t, models.AccountTypeStudent, resp.User.AccountType)
	assert.Equal(t, 0, resp.User.LearnerPoints)
	assert.Equal(t, models.LevelBeginner, resp.User.Level)
	assert.Empty(t, resp.User.Achievements)
	assert.Empty(t, resp.User.CoursesBought)
	assert.Equal(t, "", resp.User.Avatar)

	claims, err := env.auth.VerifyToken(context.Background(), resp.Token)
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, claims.User.ID)
	assert.Equal(t, "student", claims.User.AccountType)
}

func TestAuthService_RegisterValidation(t *testing.T) {
	tests := []struct {
		name  string
		req   dto.RegisterRequest
		field string
	}{
		{"malformed email", dto.RegisterRequest{Username: "a", Email: "not-an-email", Password: "secret1", AccountType: "student"}, "email"},
		{"short password", dto.RegisterRequest{Username: "a", Email: "a@example.com", Password: "12345", AccountType: "student"}, "password"},
		{"empty username", dto.RegisterRequest{Username: "  ", Email: "a@example.com", Password: "secret1", AccountType: "student"}, "username"},
		{"unknown account type", dto.RegisterRequest{Username: "a", Email: "a@example.com", Password: "secret1", AccountType: "admin"}, "account_type"},
		{"password over 72 bytes", dto.RegisterRequest{Username: "a", Email: "a@example.com", Password: strings.Repeat("é", 40), AccountType: "student"}, "password"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			req := tt.req
			_, err := env.auth.Register(context.Background(), &req)

			var verr *apperrors.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.True(t, verr.HasField(tt.field), "fields: %+v", verr.Fields)
		})
	}
}

func TestAuthService_RegisterDuplicate(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "ada", "ada@example.com", models.AccountTypeStudent)

	_, err := env.auth.Register(context.Background(), &dto.RegisterRequest{
		Username: "other", Email: "ADA@example.com", Password: "secret123", AccountType: "teacher",
	})
	assert.ErrorIs(t, err, apperrors.ErrEmailAlreadyExists)
}

func TestAuthService_Login(t *testing.T) {
	env := newTestEnv(t)
	registered := env.register(t, "ada", "ada@example.com", models.AccountTypeTeacher)
	ctx := context.Background()

	resp, err := env.auth.Login(ctx, &dto.LoginRequest{Email: "ada@example.com", Password: "secret123"})
	require.NoError(t, err)
	assert.Equal(t, registered.User.ID, resp.User.ID)
	assert.NotEmpty(t, resp.Token)

	_, wrongPassword := env.auth.Login(ctx, &dto.LoginRequest{Email: "ada@example.com", Password: "nope-nope"})
	_, unknownEmail := env.auth.Login(ctx, &dto.LoginRequest{Email: "ghost@example.com", Password: "secret123"})
	assert.ErrorIs(t, wrongPassword, apperrors.ErrInvalidCredentials)
	assert.ErrorIs(t, unknownEmail, apperrors.ErrInvalidCredentials)
	assert.Equal(t, wrongPassword.Error(), unknownEmail.Error())
}

func TestAuthService_RequestPasswordResetIsUniform(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "ada", "ada@example.com", models.AccountTypeStudent)
	ctx := context.Background()

	known, err := env.auth.RequestPasswordReset(ctx, &dto.ForgotPasswordRequest{Email: "ada@example.com"})
	require.NoError(t, err)
	unknown, err := env.auth.RequestPasswordReset(ctx, &dto.ForgotPasswordRequest{Email: "ghost@example.com"})
	require.NoError(t, err)

	assert.Equal(t, known, unknown)
	assert.Equal(t, dto.MessageResetRequested, known.Message)

	msg, ok := env.mailer.Last("ada@example.com")
	require.True(t, ok)
	assert.Regexp(t, regexp.MustCompile(`^[0-9A-F]{6}$`), msg.Code)
	_, ok = env.mailer.Last("ghost@example.com")
	assert.False(t, ok)

	_, err = env.auth.RequestPasswordReset(ctx, &dto.ForgotPasswordRequest{Email: "bad"})
	var verr *apperrors.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestAuthService_ResetPassword(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "ada", "ada@example.com", models.AccountTypeStudent)
	ctx := context.Background()

	_, err := env.auth.RequestPasswordReset(ctx, &dto.ForgotPasswordRequest{Email: "ada@example.com"})
	require.NoError(t, err)
	msg, _ := env.mailer.Last("ada@example.com")

	_, err = env.auth.ResetPassword(ctx, &dto.ResetPasswordRequest{Token: "000000", Email: "ada@example.com", NewPassword: "brandnew1"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidPasswordResetToken)

	_, err = env.auth.ResetPassword(ctx, &dto.ResetPasswordRequest{Token: msg.Code, Email: "other@example.com", NewPassword: "brandnew1"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidPasswordResetToken)

	resp, err := env.auth.ResetPassword(ctx, &dto.ResetPasswordRequest{Token: msg.Code, Email: "ada@example.com", NewPassword: "brandnew1"})
	require.NoError(t, err)
	assert.Equal(t, dto.MessagePasswordReset, resp.Message)

	_, err = env.auth.Login(ctx, &dto.LoginRequest{Email: "ada@example.com", Password: "brandnew1"})
	require.NoError(t, err)
	_, err = env.auth.Login(ctx, &dto.LoginRequest{Email: "ada@example.com", Password: "secret123"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)

	_, err = env.auth.ResetPassword(ctx, &dto.ResetPasswordRequest{Token: msg.Code, Email: "ada@example.com", NewPassword: "again123"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidPasswordResetToken, "codes are single use")
}

func TestAuthService_PasswordByteLimit(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// 36 runes, 72 bytes
	exact := strings.Repeat("é", 36)
	_, err := env.auth.Register(ctx, &dto.RegisterRequest{
		Username: "ada", Email: "ada@example.com", Password: exact, AccountType: "student",
	})
	require.NoError(t, err)

	_, err = env.auth.Login(ctx, &dto.LoginRequest{Email: "ada@example.com", Password: exact})
	require.NoError(t, err)
	_, err = env.auth.Login(ctx, &dto.LoginRequest{Email: "ada@example.com", Password: exact + "x"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)

	_, err = env.auth.RequestPasswordReset(ctx, &dto.ForgotPasswordRequest{Email: "ada@example.com"})
	require.NoError(t, err)
	msg, _ := env.mailer.Last("ada@example.com")
	_, err = env.auth.ResetPassword(ctx, &dto.ResetPasswordRequest{Token: msg.Code, Email: "ada@example.com", NewPassword: exact + "é"})
	var verr *apperrors.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.True(t, verr.HasField("newPassword"))
}

func TestAuthService_ResetPasswordExpired(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "ada", "ada@example.com", models.AccountTypeStudent)
	ctx := context.Background()

	_, err := env.auth.RequestPasswordReset(ctx, &dto.ForgotPasswordRequest{Email: "ada@example.com"})
	require.NoError(t, err)
	msg, _ := env.mailer.Last("ada@example.com")

	env.clock.Advance(time.Hour)
	_, err = env.auth.ResetPassword(ctx, &dto.ResetPasswordRequest{Token: msg.Code, Email: "ada@example.com", NewPassword: "brandnew1"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidPasswordResetToken)
}

func TestAuthService_ResetPasswordAcceptsLowercaseCode(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "ada", "ada@example.com", models.AccountTypeStudent)
	ctx := context.Background()

	_, err := env.auth.RequestPasswordReset(ctx, &dto.ForgotPasswordRequest{Email: "ada@example.com"})
	require.NoError(t, err)
	msg, _ := env.mailer.Last("ada@example.com")

	lower := []byte(msg.Code)
	for i, c := range lower {
		if c >= 'A' && c <= 'F' {
			lower[i] = c + ('a' - 'A')
		}
	}
	_, err = env.auth.ResetPassword(ctx, &dto.ResetPasswordRequest{Token: string(lower), Email: "ada@example.com", NewPassword: "brandnew1"})
	assert.NoError(t, err)
}

func TestAuthService_Logout(t *testing.T) {
	env := newTestEnv(t)
	resp := env.register(t, "ada", "ada@example.com", models.AccountTypeStudent)
	ctx := context.Background()

	claims, err := env.auth.VerifyToken(ctx, resp.Token)
	require.NoError(t, err)

	out, err := env.auth.Logout(ctx, claims)
	require.NoError(t, err)
	assert.Equal(t, dto.MessageLoggedOut, out.Message)

	_, err = env.auth.VerifyToken(ctx, resp.Token)
	assert.ErrorIs(t, err, apperrors.ErrTokenRevoked)

	// a fresh login is unaffected
	fresh, err := env.auth.Login(ctx, &dto.LoginRequest{Email: "ada@example.com", Password: "secret123"})
	require.NoError(t, err)
	_, err = env.auth.VerifyToken(ctx, fresh.Token)
	assert.NoError(t, err)
}

func TestAuthService_GetCurrentUser(t *testing.T) {
	env := newTestEnv(t)
	resp := env.register(t, "ada", "ada@example.com", models.AccountTypeStudent)

	me, err := env.auth.GetCurrentUser(context.Background(), resp.User.ID)
	require.NoError(t, err)
	assert.Equal(t, "ada", me.Username)

	_, err = env.auth.GetCurrentUser(context.Background(), "gone")
	assert.ErrorIs(t, err, apperrors.ErrUserNotFound)
}

func TestAuthService_SetPassword(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "ada", "ada@example.com", models.AccountTypeStudent)
	ctx := context.Background()

	var verr *apperrors.ValidationError
	assert.ErrorAs(t, env.auth.SetPassword(ctx, "ada@example.com", "123"), &verr)
	assert.ErrorAs(t, env.auth.SetPassword(ctx, "ada@example.com", strings.Repeat("é", 40)), &verr)
	assert.ErrorIs(t, env.auth.SetPassword(ctx, "ghost@example.com", "secret999"), apperrors.ErrUserNotFound)

	require.NoError(t, env.auth.SetPassword(ctx, "ADA@example.com", "secret999"))
	_, err := env.auth.Login(ctx, &dto.LoginRequest{Email: "ada@example.com", Password: "secret999"})
	assert.NoError(t, err)
}
