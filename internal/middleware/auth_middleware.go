package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	appauth "github.com/yigit/coursemarket/internal/app/auth"
	"github.com/yigit/coursemarket/internal/app/models/dto"
	"github.com/yigit/coursemarket/internal/pkg/apperrors"
	"github.com/yigit/coursemarket/internal/pkg/auth"
)

// Context keys set by JWTAuth
const (
	ContextKeyClaims      = "claims"
	ContextKeyUserID      = "userID"
	ContextKeyEmail       = "email"
	ContextKeyAccountType = "accountType"
)

// TokenVerifier validates a session token and returns its claims
type TokenVerifier interface {
	VerifyToken(ctx context.Context, token string) (*auth.Claims, error)
}

// Authorizer decides whether a caller holds a capability
type Authorizer interface {
	Authorize(ctx context.Context, capability appauth.Capability, user auth.UserClaims, resourceID string) error
}

// AuthMiddleware for authentication and authorization
type AuthMiddleware struct {
	verifier   TokenVerifier
	authorizer Authorizer
}

// NewAuthMiddleware creates a new AuthMiddleware
func NewAuthMiddleware(verifier TokenVerifier, authorizer Authorizer) *AuthMiddleware {
	return &AuthMiddleware{
		verifier:   verifier,
		authorizer: authorizer,
	}
}

func abortInvalidToken(c *gin.Context, details string) {
	errorDetail := dto.NewErrorDetail(dto.ErrorCodeInvalidToken, "Invalid Token").WithDetails(details)
	c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewErrorResponse(errorDetail))
}

// JWTAuth middleware for JWT token validation.
// The token is read from the Authorization header, or from the token query
// parameter for websocket clients that cannot set headers.
func (m *AuthMiddleware) JWTAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			authHeader = c.Query("token")
		}
		if authHeader == "" {
			abortInvalidToken(c, "Authorization header missing")
			return
		}

		tokenString, err := auth.ExtractBearerToken(authHeader)
		if err != nil {
			abortInvalidToken(c, "Invalid token format")
			return
		}

		claims, err := m.verifier.VerifyToken(c.Request.Context(), tokenString)
		if err != nil {
			switch {
			case errors.Is(err, apperrors.ErrTokenExpired):
				abortInvalidToken(c, "Token expired")
			case errors.Is(err, apperrors.ErrTokenRevoked):
				abortInvalidToken(c, "Token revoked")
			case errors.Is(err, apperrors.ErrTokenInvalid):
				abortInvalidToken(c, "Token invalid")
			default:
				// Deny-list lookup failed
				c.Error(err)
				errorDetail := dto.NewErrorDetail(dto.ErrorCodeInternalServer, "Server Error")
				c.AbortWithStatusJSON(http.StatusInternalServerError, dto.NewErrorResponse(errorDetail))
			}
			return
		}

		c.Set(ContextKeyClaims, claims)
		c.Set(ContextKeyUserID, claims.User.ID)
		c.Set(ContextKeyEmail, claims.User.Email)
		c.Set(ContextKeyAccountType, claims.User.AccountType)
		c.Next()
	}
}

// RequireCapability aborts unless the authenticated caller holds capability.
// resourceParam names the route parameter carrying the resource id, if any.
// Must run after JWTAuth.
func (m *AuthMiddleware) RequireCapability(capability appauth.Capability, resourceParam string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := GetClaims(c)
		if !ok {
			abortInvalidToken(c, "Authentication required")
			return
		}

		var resourceID string
		if resourceParam != "" {
			resourceID = c.Param(resourceParam)
		}

		if err := m.authorizer.Authorize(c.Request.Context(), capability, claims.User, resourceID); err != nil {
			HandleAPIError(c, err)
			c.Abort()
			return
		}
		c.Next()
	}
}

// GetClaims returns the claims stored by JWTAuth
func GetClaims(c *gin.Context) (*auth.Claims, bool) {
	value, exists := c.Get(ContextKeyClaims)
	if !exists {
		return nil, false
	}
	claims, ok := value.(*auth.Claims)
	return claims, ok && claims != nil
}
