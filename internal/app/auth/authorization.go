package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/yigit/coursemarket/internal/app/models"
	"github.com/yigit/coursemarket/internal/app/repositories"
	"github.com/yigit/coursemarket/internal/pkg/apperrors"
	pkgauth "github.com/yigit/coursemarket/internal/pkg/auth"
)

// Capability names an action guarded by the authorization service
type Capability string

const (
	// CapabilityAuthorCourse allows creating courses
	CapabilityAuthorCourse Capability = "author_course"
	// CapabilityViewRoster allows reading the students of one course
	CapabilityViewRoster Capability = "view_roster"
)

// ErrPermissionDenied is returned for every denied capability
var ErrPermissionDenied = apperrors.NewForbiddenError("Permission denied")

// AuthorizationService handles authorization operations
type AuthorizationService struct {
	courseRepo repositories.CourseRepository
	logger     zerolog.Logger
}

// NewAuthorizationService creates a new AuthorizationService
func NewAuthorizationService(courseRepo repositories.CourseRepository, logger zerolog.Logger) *AuthorizationService {
	return &AuthorizationService{
		courseRepo: courseRepo,
		logger:     logger,
	}
}

// IsTeacher reports whether the verified claims carry the teacher role
func (s *AuthorizationService) IsTeacher(user pkgauth.UserClaims) bool {
	return models.AccountType(user.AccountType) == models.AccountTypeTeacher
}

// CanViewRoster checks that user is the teacher who authored the course.
// A missing course yields apperrors.ErrCourseNotFound.
func (s *AuthorizationService) CanViewRoster(ctx context.Context, user pkgauth.UserClaims, courseID string) (bool, error) {
	if !s.IsTeacher(user) {
		return false, nil
	}

	course, err := s.courseRepo.GetByID(ctx, courseID)
	if err != nil {
		if errors.Is(err, apperrors.ErrCourseNotFound) {
			return false, err
		}
		s.logger.Error().Err(err).Str("courseID", courseID).Msg("Error getting course in CanViewRoster")
		return false, fmt.Errorf("failed to load course: %w", err)
	}

	return strings.EqualFold(course.Instructor.Email, user.Email), nil
}

// Authorize returns nil when user holds capability. resourceID is the course
// id for course scoped capabilities and ignored otherwise.
func (s *AuthorizationService) Authorize(ctx context.Context, capability Capability, user pkgauth.UserClaims, resourceID string) error {
	switch capability {
	case CapabilityAuthorCourse:
		if !s.IsTeacher(user) {
			return ErrPermissionDenied
		}
		return nil
	case CapabilityViewRoster:
		ok, err := s.CanViewRoster(ctx, user, resourceID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrPermissionDenied
		}
		return nil
	default:
		s.logger.Warn().Str("capability", string(capability)).Msg("Unknown capability requested")
		return ErrPermissionDenied
	}
}
