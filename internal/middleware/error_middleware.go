package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yigit/coursemarket/internal/app/models/dto"
	"github.com/yigit/coursemarket/internal/pkg/apperrors"
	"github.com/yigit/coursemarket/internal/pkg/logger"
)

// customMessage returns the message of a CustomError in err's chain
func customMessage(err error, fallback string) string {
	var ce *apperrors.CustomError
	if errors.As(err, &ce) && ce.Message != "" {
		return ce.Message
	}
	return fallback
}

// HandleAPIError handles common API errors and returns appropriate responses
func HandleAPIError(c *gin.Context, err error) {
	var validationErr *apperrors.ValidationError

	status := http.StatusInternalServerError
	var detail *dto.ErrorDetail

	switch {
	case errors.As(err, &validationErr):
		status = http.StatusBadRequest
		detail = dto.NewValidationErrorDetail(validationErr.Fields)
	case errors.Is(err, apperrors.ErrEmailAlreadyExists):
		status = http.StatusBadRequest
		detail = dto.NewErrorDetail(dto.ErrorCodeResourceAlreadyExists, "User already exists")
	case errors.Is(err, apperrors.ErrInvalidCredentials):
		status = http.StatusBadRequest
		detail = dto.NewErrorDetail(dto.ErrorCodeInvalidCredentials, "Invalid Credentials")
	case errors.Is(err, apperrors.ErrInvalidPasswordResetToken):
		status = http.StatusBadRequest
		detail = dto.NewErrorDetail(dto.ErrorCodeInvalidResetCode, "Password reset code is invalid or has expired.")
	case apperrors.Is(err, apperrors.ErrTokenInvalid, apperrors.ErrTokenExpired, apperrors.ErrTokenRevoked):
		status = http.StatusUnauthorized
		detail = dto.NewErrorDetail(dto.ErrorCodeInvalidToken, "Invalid Token")
	case errors.Is(err, apperrors.ErrUserNotFound):
		status = http.StatusNotFound
		detail = dto.NewErrorDetail(dto.ErrorCodeResourceNotFound, "User not found")
	case errors.Is(err, apperrors.ErrCourseNotFound):
		status = http.StatusNotFound
		detail = dto.NewErrorDetail(dto.ErrorCodeResourceNotFound, "Course not found")
	case errors.Is(err, apperrors.ErrEnrollmentNotFound):
		status = http.StatusNotFound
		detail = dto.NewErrorDetail(dto.ErrorCodeResourceNotFound, "Enrollment not found")
	case errors.Is(err, apperrors.ErrPermissionDenied):
		status = http.StatusForbidden
		detail = dto.NewErrorDetail(dto.ErrorCodeForbidden, customMessage(err, "Permission denied"))
	case errors.Is(err, apperrors.ErrBadRequest):
		status = http.StatusBadRequest
		detail = dto.NewErrorDetail(dto.ErrorCodeBadRequest, customMessage(err, "Bad request"))
	case errors.Is(err, apperrors.ErrTooManyRequests):
		status = http.StatusTooManyRequests
		detail = dto.NewErrorDetail(dto.ErrorCodeTooManyRequests, "Too many requests. Please try again later.")
	default:
		// Internal details are logged, never returned
		logger.Error().Err(err).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Msg("Unhandled error")
		detail = dto.NewErrorDetail(dto.ErrorCodeInternalServer, "Server Error").WithSeverity(dto.ErrorSeverityCritical)
	}

	c.JSON(status, dto.NewErrorResponse(detail))
}

// HandleBindError answers a request body that could not be decoded
func HandleBindError(c *gin.Context, err error) {
	detail := dto.NewErrorDetail(dto.ErrorCodeBadRequest, "Invalid request body").WithDetails(err.Error())
	c.JSON(http.StatusBadRequest, dto.NewErrorResponse(detail))
}
