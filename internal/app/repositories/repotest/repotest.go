// Package repotest holds the behaviour every storage backend must share.
package repotest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/coursemarket/internal/app/models"
	"github.com/yigit/coursemarket/internal/app/repositories"
	"github.com/yigit/coursemarket/internal/pkg/apperrors"
)

// Factory returns repositories over an empty store
type Factory func(t *testing.T) *repositories.Repositories

// Run executes the whole contract against backends built by newRepos
func Run(t *testing.T, newRepos Factory) {
	t.Run("users/create and lookup", func(t *testing.T) { testCreateAndLookup(t, newRepos(t)) })
	t.Run("users/duplicate email", func(t *testing.T) { testDuplicateEmail(t, newRepos(t)) })
	t.Run("users/malformed id", func(t *testing.T) { testMalformedUserID(t, newRepos(t)) })
	t.Run("users/reset password", func(t *testing.T) { testResetPassword(t, newRepos(t)) })
	t.Run("users/enroll idempotent", func(t *testing.T) { testEnrollIdempotent(t, newRepos(t)) })
	t.Run("users/enroll concurrent", func(t *testing.T) { testEnrollConcurrent(t, newRepos(t)) })
	t.Run("users/progress", func(t *testing.T) { testUpdateProgress(t, newRepos(t)) })
	t.Run("users/roster", func(t *testing.T) { testListByEnrolledCourse(t, newRepos(t)) })
	t.Run("users/gamification", func(t *testing.T) { testGamification(t, newRepos(t)) })
	t.Run("courses/create and list", func(t *testing.T) { testCourses(t, newRepos(t)) })
}

// NewStudent stores a fresh student account
func NewStudent(t *testing.T, repos *repositories.Repositories, email string) *models.User {
	t.Helper()
	u := models.NewUser("user-"+email, email, "hash", models.AccountTypeStudent)
	require.NoError(t, repos.Users.Create(context.Background(), u))
	require.NotEmpty(t, u.ID)
	return u
}

// NewCourse stores a course authored by instructorEmail
func NewCourse(t *testing.T, repos *repositories.Repositories, title, instructorEmail string, points int) *models.Course {
	t.Helper()
	c := &models.Course{
		Title:          title,
		Description:    "about " + title,
		Tags:           []string{"go", "backend"},
		NumberOfVideos: 4,
		GetPoints:      points,
		Thumbnail:      "http://localhost/uploads/thumb.png",
		Instructor:     models.Instructor{Name: "Teach", Email: instructorEmail},
		Chapters: []models.Chapter{{
			Title:  "Basics",
			Topics: []models.Topic{{Title: "Hello", Description: "first", VideoURL: "https://v/1", VideoThumbnail: "https://t/1"}},
		}},
	}
	require.NoError(t, repos.Courses.Create(context.Background(), c))
	require.NotEmpty(t, c.ID)
	return c
}

func testCreateAndLookup(t *testing.T, repos *repositories.Repositories) {
	ctx := context.Background()
	u := NewStudent(t, repos, "ada@example.com")

	byID, err := repos.Users.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", byID.Email)
	assert.Equal(t, models.AccountTypeStudent, byID.AccountType)
	assert.Equal(t, 0, byID.LearnerPoints)
	assert.Equal(t, models.DefaultLevel, byID.Level)
	assert.Empty(t, byID.CoursesBought)
	assert.Equal(t, "hash", byID.Password)

	byEmail, err := repos.Users.GetByEmail(ctx, "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byEmail.ID)

	exists, err := repos.Users.EmailExists(ctx, "ada@example.com")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repos.Users.EmailExists(ctx, "nobody@example.com")
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = repos.Users.GetByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, apperrors.ErrUserNotFound)
}

func testDuplicateEmail(t *testing.T, repos *repositories.Repositories) {
	NewStudent(t, repos, "dup@example.com")
	err := repos.Users.Create(context.Background(), models.NewUser("other", "dup@example.com", "hash", models.AccountTypeTeacher))
	assert.ErrorIs(t, err, apperrors.ErrEmailAlreadyExists)
}

func testMalformedUserID(t *testing.T, repos *repositories.Repositories) {
	ctx := context.Background()
	_, err := repos.Users.GetByID(ctx, "definitely-not-an-id")
	assert.ErrorIs(t, err, apperrors.ErrUserNotFound)

	_, err = repos.Courses.GetByID(ctx, "definitely-not-an-id")
	assert.ErrorIs(t, err, apperrors.ErrCourseNotFound)
}

func testResetPassword(t *testing.T, repos *repositories.Repositories) {
	ctx := context.Background()
	u := NewStudent(t, repos, "reset@example.com")
	now := time.Now().UTC().Truncate(time.Second)

	require.NoError(t, repos.Users.SetPasswordResetToken(ctx, u.ID, "ABC123", now.Add(time.Hour)))

	ok, err := repos.Users.ResetPassword(ctx, "reset@example.com", "WRONG1", "new-hash", now)
	require.NoError(t, err)
	assert.False(t, ok, "wrong token")

	ok, err = repos.Users.ResetPassword(ctx, "other@example.com", "ABC123", "new-hash", now)
	require.NoError(t, err)
	assert.False(t, ok, "wrong email")

	ok, err = repos.Users.ResetPassword(ctx, "reset@example.com", "ABC123", "new-hash", now.Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, ok, "expired exactly at expiry")

	ok, err = repos.Users.ResetPassword(ctx, "reset@example.com", "ABC123", "new-hash", now.Add(30*time.Minute))
	require.NoError(t, err)
	assert.True(t, ok)

	stored, err := repos.Users.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "new-hash", stored.Password)
	assert.Nil(t, stored.ResetPasswordToken)
	assert.Nil(t, stored.ResetPasswordExpires)

	ok, err = repos.Users.ResetPassword(ctx, "reset@example.com", "ABC123", "newer-hash", now.Add(31*time.Minute))
	require.NoError(t, err)
	assert.False(t, ok, "code is single use")

	require.NoError(t, repos.Users.UpdatePassword(ctx, u.ID, "admin-hash"))
	stored, err = repos.Users.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "admin-hash", stored.Password)
}

func testEnrollIdempotent(t *testing.T, repos *repositories.Repositories) {
	ctx := context.Background()
	u := NewStudent(t, repos, "buyer@example.com")
	c := NewCourse(t, repos, "Go", "teach@example.com", 50)
	progress := models.CourseProgress{CourseID: c.ID, CourseTitle: c.Title}

	enrolled, err := repos.Users.Enroll(ctx, u.ID, progress, c.GetPoints)
	require.NoError(t, err)
	assert.True(t, enrolled)

	enrolled, err = repos.Users.Enroll(ctx, u.ID, progress, c.GetPoints)
	require.NoError(t, err)
	assert.False(t, enrolled)

	stored, err := repos.Users.GetByID(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, stored.CoursesBought, 1)
	assert.Equal(t, c.ID, stored.CoursesBought[0].CourseID)
	assert.Equal(t, "Go", stored.CoursesBought[0].CourseTitle)
	assert.Equal(t, 0, stored.CoursesBought[0].NumberOfVideosWatched)
	assert.Equal(t, 50, stored.LearnerPoints)

	_, err = repos.Users.Enroll(ctx, "missing-user", progress, 10)
	assert.ErrorIs(t, err, apperrors.ErrUserNotFound)
}

func testEnrollConcurrent(t *testing.T, repos *repositories.Repositories) {
	ctx := context.Background()
	u := NewStudent(t, repos, "racer@example.com")
	c := NewCourse(t, repos, "Race", "teach@example.com", 30)
	progress := models.CourseProgress{CourseID: c.ID, CourseTitle: c.Title}

	const workers = 8
	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		wins  int
		fails []error
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			enrolled, err := repos.Users.Enroll(ctx, u.ID, progress, c.GetPoints)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				fails = append(fails, err)
			}
			if enrolled {
				wins++
			}
		}()
	}
	wg.Wait()

	require.Empty(t, fails)
	assert.Equal(t, 1, wins)

	stored, err := repos.Users.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Len(t, stored.CoursesBought, 1)
	assert.Equal(t, 30, stored.LearnerPoints)
}

func testUpdateProgress(t *testing.T, repos *repositories.Repositories) {
	ctx := context.Background()
	u := NewStudent(t, repos, "watcher@example.com")
	c := NewCourse(t, repos, "Watch", "teach@example.com", 0)

	err := repos.Users.UpdateProgress(ctx, u.ID, models.CourseProgress{CourseID: c.ID, NumberOfVideosWatched: 1})
	assert.ErrorIs(t, err, apperrors.ErrEnrollmentNotFound)

	_, err = repos.Users.Enroll(ctx, u.ID, models.CourseProgress{CourseID: c.ID, CourseTitle: c.Title}, 0)
	require.NoError(t, err)

	require.NoError(t, repos.Users.UpdateProgress(ctx, u.ID, models.CourseProgress{
		CourseID: c.ID, NumberOfVideosWatched: 2, PercentageCompleted: 50,
	}))

	stored, err := repos.Users.GetByID(ctx, u.ID)
	require.NoError(t, err)
	cp, ok := stored.Enrollment(c.ID)
	require.True(t, ok)
	assert.Equal(t, 2, cp.NumberOfVideosWatched)
	assert.InDelta(t, 50, cp.PercentageCompleted, 0.001)
	assert.Equal(t, "Watch", cp.CourseTitle)
}

func testListByEnrolledCourse(t *testing.T, repos *repositories.Repositories) {
	ctx := context.Background()
	c := NewCourse(t, repos, "Roster", "teach@example.com", 5)
	other := NewCourse(t, repos, "Other", "teach@example.com", 5)
	a := NewStudent(t, repos, "a@example.com")
	b := NewStudent(t, repos, "b@example.com")
	NewStudent(t, repos, "c@example.com")

	for _, u := range []*models.User{a, b} {
		_, err := repos.Users.Enroll(ctx, u.ID, models.CourseProgress{CourseID: c.ID, CourseTitle: c.Title}, c.GetPoints)
		require.NoError(t, err)
	}

	users, err := repos.Users.ListByEnrolledCourse(ctx, c.ID)
	require.NoError(t, err)
	emails := []string{}
	for _, u := range users {
		emails = append(emails, u.Email)
	}
	assert.ElementsMatch(t, []string{"a@example.com", "b@example.com"}, emails)

	users, err = repos.Users.ListByEnrolledCourse(ctx, other.ID)
	require.NoError(t, err)
	assert.Empty(t, users)
}

func testGamification(t *testing.T, repos *repositories.Repositories) {
	ctx := context.Background()
	u := NewStudent(t, repos, "gamer@example.com")

	require.NoError(t, repos.Users.AddAchievements(ctx, u.ID, "First Course"))
	require.NoError(t, repos.Users.AddAchievements(ctx, u.ID, "First Course", "Point Collector"))
	require.NoError(t, repos.Users.SetLevel(ctx, u.ID, models.LevelAdvanced))

	stored, err := repos.Users.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"First Course", "Point Collector"}, stored.Achievements)
	assert.Equal(t, models.LevelAdvanced, stored.Level)
}

func testCourses(t *testing.T, repos *repositories.Repositories) {
	ctx := context.Background()
	first := NewCourse(t, repos, "First", "teach@example.com", 10)
	second := NewCourse(t, repos, "Second", "other@example.com", 20)

	got, err := repos.Courses.GetByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "First", got.Title)
	assert.Equal(t, []string{"go", "backend"}, got.Tags)
	assert.Equal(t, "teach@example.com", got.Instructor.Email)
	require.Len(t, got.Chapters, 1)
	assert.Equal(t, "https://v/1", got.Chapters[0].Topics[0].VideoURL)
	assert.False(t, got.CreatedAt.IsZero())

	all, err := repos.Courses.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	mine, err := repos.Courses.ListByInstructorEmail(ctx, "teach@example.com")
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, first.ID, mine[0].ID)

	recent, err := repos.Courses.ListRecent(ctx, 1)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, second.ID, recent[0].ID)
}
