package repositories

import (
	"context"
	"time"

	"github.com/yigit/coursemarket/internal/app/models"
)

// UserRepository defines the storage operations on user accounts.
// Lookups of a missing user return apperrors.ErrUserNotFound.
type UserRepository interface {
	// Create stores a new user and sets its ID.
	// A taken email yields apperrors.ErrEmailAlreadyExists.
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	EmailExists(ctx context.Context, email string) (bool, error)

	// Password reset
	SetPasswordResetToken(ctx context.Context, userID, token string, expiresAt time.Time) error
	// ResetPassword stores passwordHash and clears the reset fields in one
	// conditional update that matches email, token and an expiry after now.
	// It reports whether a user matched.
	ResetPassword(ctx context.Context, email, token, passwordHash string, now time.Time) (bool, error)
	UpdatePassword(ctx context.Context, userID, passwordHash string) error

	// Enroll appends progress and adds points as one atomic operation,
	// only when the user does not already own progress.CourseID.
	// It reports whether the user was newly enrolled.
	Enroll(ctx context.Context, userID string, progress models.CourseProgress, points int) (bool, error)
	// UpdateProgress replaces the watched count and percentage of an owned course.
	// A missing enrollment yields apperrors.ErrEnrollmentNotFound.
	UpdateProgress(ctx context.Context, userID string, progress models.CourseProgress) error
	ListByEnrolledCourse(ctx context.Context, courseID string) ([]*models.User, error)

	// Gamification
	AddAchievements(ctx context.Context, userID string, achievements ...string) error
	SetLevel(ctx context.Context, userID, level string) error
}

// CourseRepository defines the storage operations on courses.
// Lookups of a missing or malformed id return apperrors.ErrCourseNotFound.
type CourseRepository interface {
	Create(ctx context.Context, course *models.Course) error
	GetByID(ctx context.Context, id string) (*models.Course, error)
	List(ctx context.Context) ([]*models.Course, error)
	ListByInstructorEmail(ctx context.Context, email string) ([]*models.Course, error)
	ListRecent(ctx context.Context, limit int) ([]*models.Course, error)
}

// Repositories holds all the repository instances of one storage backend
type Repositories struct {
	Users   UserRepository
	Courses CourseRepository
}
