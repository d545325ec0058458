package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"github.com/yigit/coursemarket/internal/app/models"
	"github.com/yigit/coursemarket/internal/app/models/dto"
	"github.com/yigit/coursemarket/internal/app/repositories"
	"github.com/yigit/coursemarket/internal/pkg/apperrors"
	"github.com/yigit/coursemarket/internal/pkg/auth"
	"github.com/yigit/coursemarket/internal/pkg/email"
	"github.com/yigit/coursemarket/internal/pkg/validation"
)

// DefaultResetCodeTTL is how long a password reset code stays valid
const DefaultResetCodeTTL = time.Hour

// AuthService handles authentication operations
type AuthService struct {
	userRepo     repositories.UserRepository
	jwtService   *auth.JWTService
	denyList     auth.DenyList
	mailer       email.Mailer
	resetCodeTTL time.Duration
	now          func() time.Time
	logger       zerolog.Logger
}

// NewAuthService creates a new AuthService
func NewAuthService(
	userRepo repositories.UserRepository,
	jwtService *auth.JWTService,
	denyList auth.DenyList,
	mailer email.Mailer,
	resetCodeTTL time.Duration,
	logger zerolog.Logger,
) *AuthService {
	if resetCodeTTL <= 0 {
		resetCodeTTL = DefaultResetCodeTTL
	}
	return &AuthService{
		userRepo:     userRepo,
		jwtService:   jwtService,
		denyList:     denyList,
		mailer:       mailer,
		resetCodeTTL: resetCodeTTL,
		now:          time.Now,
		logger:       logger,
	}
}

// WithClock replaces the time source, used by tests
func (s *AuthService) WithClock(now func() time.Time) *AuthService {
	s.now = now
	return s
}

// NormalizeEmail lowercases and trims an address before storage or lookup
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// issueToken signs a session token for user
func (s *AuthService) issueToken(user *models.User) (*dto.AuthResponse, error) {
	token, _, err := s.jwtService.GenerateToken(auth.UserClaims{
		ID:          user.ID,
		Email:       user.Email,
		AccountType: string(user.AccountType),
	})
	if err != nil {
		return nil, fmt.Errorf("error generating token: %w", err)
	}
	return &dto.AuthResponse{
		Token: token,
		User:  dto.NewUserResponse(user),
	}, nil
}

// Register creates an account and signs the caller in
func (s *AuthService) Register(ctx context.Context, req *dto.RegisterRequest) (*dto.AuthResponse, error) {
	req.Email = NormalizeEmail(req.Email)
	req.Username = strings.TrimSpace(req.Username)
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	// Check if email already exists
	exists, err := s.userRepo.EmailExists(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("error checking if email exists: %w", err)
	}
	if exists {
		return nil, apperrors.ErrEmailAlreadyExists
	}

	hashedPassword, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user := models.NewUser(req.Username, req.Email, hashedPassword, models.AccountType(req.AccountType))
	// The unique constraint catches registrations racing past the check above
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, apperrors.ErrEmailAlreadyExists) {
			return nil, err
		}
		return nil, fmt.Errorf("error creating user: %w", err)
	}

	s.logger.Info().Str("userID", user.ID).Str("accountType", req.AccountType).Msg("User registered")
	return s.issueToken(user)
}

// Login verifies credentials. Unknown email and wrong password fail identically.
func (s *AuthService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.AuthResponse, error) {
	req.Email = NormalizeEmail(req.Email)
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	user, err := s.userRepo.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) {
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("error getting user by email: %w", err)
	}

	if !auth.CheckPassword(user.Password, req.Password) {
		return nil, apperrors.ErrInvalidCredentials
	}

	return s.issueToken(user)
}

// RequestPasswordReset mails a reset code to a registered address.
// The response never reveals whether the address is registered.
func (s *AuthService) RequestPasswordReset(ctx context.Context, req *dto.ForgotPasswordRequest) (*dto.MessageResponse, error) {
	req.Email = NormalizeEmail(req.Email)
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	resp := &dto.MessageResponse{Message: dto.MessageResetRequested}

	user, err := s.userRepo.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) {
			s.logger.Debug().Msg("Password reset requested for unknown email")
			return resp, nil
		}
		return nil, fmt.Errorf("error getting user by email: %w", err)
	}

	code, err := auth.GenerateResetCode()
	if err != nil {
		return nil, err
	}
	expiresAt := s.now().Add(s.resetCodeTTL)

	if err := s.userRepo.SetPasswordResetToken(ctx, user.ID, code, expiresAt); err != nil {
		return nil, fmt.Errorf("error storing reset code: %w", err)
	}

	if err := s.mailer.SendPasswordResetCode(ctx, user.Email, user.Username, code, expiresAt); err != nil {
		s.logger.Error().Err(err).Str("userID", user.ID).Msg("Failed to deliver password reset code")
	}

	return resp, nil
}

// ResetPassword consumes a reset code and stores the new password
func (s *AuthService) ResetPassword(ctx context.Context, req *dto.ResetPasswordRequest) (*dto.MessageResponse, error) {
	req.Email = NormalizeEmail(req.Email)
	req.Token = strings.ToUpper(strings.TrimSpace(req.Token))
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	hashedPassword, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		return nil, err
	}

	ok, err := s.userRepo.ResetPassword(ctx, req.Email, req.Token, hashedPassword, s.now())
	if err != nil {
		return nil, fmt.Errorf("error resetting password: %w", err)
	}
	if !ok {
		return nil, apperrors.ErrInvalidPasswordResetToken
	}

	return &dto.MessageResponse{Message: dto.MessagePasswordReset}, nil
}

// VerifyToken validates a session token and rejects revoked ones
func (s *AuthService) VerifyToken(ctx context.Context, token string) (*auth.Claims, error) {
	claims, err := s.jwtService.ValidateToken(token)
	if err != nil {
		return nil, err
	}

	revoked, err := s.denyList.IsRevoked(ctx, claims.TokenID())
	if err != nil {
		return nil, fmt.Errorf("error checking token revocation: %w", err)
	}
	if revoked {
		return nil, apperrors.ErrTokenRevoked
	}
	return claims, nil
}

// GetCurrentUser returns the caller's profile
func (s *AuthService) GetCurrentUser(ctx context.Context, userID string) (*dto.UserResponse, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return dto.NewUserResponse(user), nil
}

// Logout revokes the token for the rest of its lifetime
func (s *AuthService) Logout(ctx context.Context, claims *auth.Claims) (*dto.MessageResponse, error) {
	ttl := claims.Remaining(s.now())
	if ttl > 0 {
		if err := s.denyList.Revoke(ctx, claims.TokenID(), ttl); err != nil {
			return nil, fmt.Errorf("error revoking token: %w", err)
		}
	}
	return &dto.MessageResponse{Message: dto.MessageLoggedOut}, nil
}

// SetPassword overwrites a user's password without a reset code
func (s *AuthService) SetPassword(ctx context.Context, email, password string) error {
	switch {
	case utf8.RuneCountInString(password) < 6:
		return apperrors.NewValidationError(apperrors.FieldError{
			Field:   "password",
			Message: "password must be at least 6 characters",
		})
	case len(password) > auth.MaxPasswordBytes:
		return apperrors.NewValidationError(apperrors.FieldError{
			Field:   "password",
			Message: fmt.Sprintf("password must be at most %d bytes", auth.MaxPasswordBytes),
		})
	}

	user, err := s.userRepo.GetByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		return err
	}

	hashedPassword, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	return s.userRepo.UpdatePassword(ctx, user.ID, hashedPassword)
}
