package cached

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/coursemarket/internal/app/models"
	"github.com/yigit/coursemarket/internal/app/repositories"
	"github.com/yigit/coursemarket/internal/app/repositories/memory"
	"github.com/yigit/coursemarket/internal/app/repositories/repotest"
	"github.com/yigit/coursemarket/internal/pkg/apperrors"
)

// countingCourses records how often the wrapped store is hit
type countingCourses struct {
	repositories.CourseRepository
	gets  int
	lists int
	// afterList runs once between loading a list and returning it
	afterList func()
}

func (c *countingCourses) GetByID(ctx context.Context, id string) (*models.Course, error) {
	c.gets++
	return c.CourseRepository.GetByID(ctx, id)
}

func (c *countingCourses) List(ctx context.Context) ([]*models.Course, error) {
	c.lists++
	courses, err := c.CourseRepository.List(ctx)
	if hook := c.afterList; hook != nil {
		c.afterList = nil
		hook()
	}
	return courses, err
}

func newRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestCachedCourses_Contract(t *testing.T) {
	repotest.Run(t, func(t *testing.T) *repositories.Repositories {
		repos := memory.NewRepositories(memory.Open())
		repos.Courses = NewCourseRepository(repos.Courses, newRedis(t), time.Minute)
		return repos
	})
}

func TestCachedCourses_ReadThrough(t *testing.T) {
	ctx := context.Background()
	repos := memory.NewRepositories(memory.Open())
	inner := &countingCourses{CourseRepository: repos.Courses}
	courses := NewCourseRepository(inner, newRedis(t), time.Minute)
	repos.Courses = courses

	c := repotest.NewCourse(t, repos, "Cached", "teach@example.com", 10)

	for i := 0; i < 3; i++ {
		got, err := courses.GetByID(ctx, c.ID)
		require.NoError(t, err)
		assert.Equal(t, "Cached", got.Title)
		assert.Len(t, got.Chapters, 1)
	}
	assert.Equal(t, 1, inner.gets)

	_, err := courses.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, apperrors.ErrCourseNotFound)
	_, err = courses.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, apperrors.ErrCourseNotFound)
	assert.Equal(t, 3, inner.gets)
}

func TestCachedCourses_CreateInvalidatesLists(t *testing.T) {
	ctx := context.Background()
	repos := memory.NewRepositories(memory.Open())
	inner := &countingCourses{CourseRepository: repos.Courses}
	courses := NewCourseRepository(inner, newRedis(t), time.Minute)
	repos.Courses = courses

	repotest.NewCourse(t, repos, "One", "teach@example.com", 1)
	all, err := courses.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
	_, err = courses.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, inner.lists)

	repotest.NewCourse(t, repos, "Two", "teach@example.com", 1)
	all, err = courses.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
	assert.Equal(t, 2, inner.lists)
}

func TestCachedCourses_ListLoadedBeforeCreateIsNotServed(t *testing.T) {
	ctx := context.Background()
	repos := memory.NewRepositories(memory.Open())
	inner := &countingCourses{CourseRepository: repos.Courses}
	courses := NewCourseRepository(inner, newRedis(t), time.Minute)
	repos.Courses = courses

	repotest.NewCourse(t, repos, "One", "teach@example.com", 1)

	// A course is created after the load read the store but before the
	// stale result is written back
	inner.afterList = func() {
		repotest.NewCourse(t, repos, "Two", "teach@example.com", 1)
	}
	stale, err := courses.List(ctx)
	require.NoError(t, err)
	assert.Len(t, stale, 1)

	all, err := courses.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestNewCourseRepository_NilClient(t *testing.T) {
	inner := memory.NewCourseRepository(memory.Open())
	assert.Same(t, inner, NewCourseRepository(inner, nil, time.Minute))
}
