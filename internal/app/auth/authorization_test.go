package auth

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/coursemarket/internal/app/models"
	"github.com/yigit/coursemarket/internal/app/repositories/memory"
	"github.com/yigit/coursemarket/internal/pkg/apperrors"
	pkgauth "github.com/yigit/coursemarket/internal/pkg/auth"
)

func newAuthorization(t *testing.T) (*AuthorizationService, *models.Course) {
	t.Helper()
	repos := memory.NewRepositories(memory.Open())
	course := &models.Course{
		Title:          "Concurrency in Go",
		NumberOfVideos: 3,
		GetPoints:      30,
		Instructor:     models.Instructor{Name: "ada", Email: "ada@example.com"},
	}
	require.NoError(t, repos.Courses.Create(context.Background(), course))
	return NewAuthorizationService(repos.Courses, zerolog.Nop()), course
}

func TestAuthorizeAuthorCourse(t *testing.T) {
	svc, _ := newAuthorization(t)
	ctx := context.Background()

	teacher := pkgauth.UserClaims{ID: "1", Email: "ada@example.com", AccountType: string(models.AccountTypeTeacher)}
	student := pkgauth.UserClaims{ID: "2", Email: "bob@example.com", AccountType: string(models.AccountTypeStudent)}

	assert.NoError(t, svc.Authorize(ctx, CapabilityAuthorCourse, teacher, ""))
	assert.ErrorIs(t, svc.Authorize(ctx, CapabilityAuthorCourse, student, ""), apperrors.ErrPermissionDenied)
	assert.ErrorIs(t, svc.Authorize(ctx, Capability("delete_everything"), teacher, ""), apperrors.ErrPermissionDenied)
}

func TestAuthorizeViewRoster(t *testing.T) {
	svc, course := newAuthorization(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		user     pkgauth.UserClaims
		courseID string
		wantErr  error
	}{
		{"owner", pkgauth.UserClaims{Email: "ada@example.com", AccountType: "teacher"}, course.ID, nil},
		{"owner with different case", pkgauth.UserClaims{Email: "ADA@example.com", AccountType: "teacher"}, course.ID, nil},
		{"another teacher", pkgauth.UserClaims{Email: "grace@example.com", AccountType: "teacher"}, course.ID, apperrors.ErrPermissionDenied},
		{"student with owner email", pkgauth.UserClaims{Email: "ada@example.com", AccountType: "student"}, course.ID, apperrors.ErrPermissionDenied},
		{"missing course", pkgauth.UserClaims{Email: "ada@example.com", AccountType: "teacher"}, "does-not-exist", apperrors.ErrCourseNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.Authorize(ctx, CapabilityViewRoster, tt.user, tt.courseID)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}
