// Package cached decorates repositories with a Redis read-through cache.
package cached

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/yigit/coursemarket/internal/app/models"
	"github.com/yigit/coursemarket/internal/app/repositories"
	"github.com/yigit/coursemarket/internal/pkg/cache"
	"github.com/yigit/coursemarket/internal/pkg/logger"
)

// DefaultCourseTTL is used when no TTL is configured
const DefaultCourseTTL = 5 * time.Minute

// listGenerationKey versions every list key. Create bumps it, so a list
// loaded before the bump is stored under a key no reader uses again.
const listGenerationKey = "gen:list"

// CourseRepository caches course reads. Courses are immutable once created,
// so only the list keys need invalidating on Create.
type CourseRepository struct {
	next  repositories.CourseRepository
	cache *cache.Helper
	ttl   time.Duration
}

var _ repositories.CourseRepository = (*CourseRepository)(nil)

// NewCourseRepository wraps next. A nil client returns next unchanged.
func NewCourseRepository(next repositories.CourseRepository, client *redis.Client, ttl time.Duration) repositories.CourseRepository {
	if client == nil {
		return next
	}
	if ttl <= 0 {
		ttl = DefaultCourseTTL
	}
	return &CourseRepository{
		next:  next,
		cache: cache.NewHelper(client, "course:"),
		ttl:   ttl,
	}
}

// Create stores the course and drops every cached listing
func (r *CourseRepository) Create(ctx context.Context, course *models.Course) error {
	if err := r.next.Create(ctx, course); err != nil {
		return err
	}
	if err := r.cache.Bump(ctx, listGenerationKey); err != nil {
		logger.Error().Err(err).Msg("Failed to bump course list generation")
	}
	cache.SafeInvalidatePattern(ctx, r.cache, "list:*")
	return nil
}

// GetByID reads through the cache. Misses for unknown ids are not cached.
func (r *CourseRepository) GetByID(ctx context.Context, id string) (*models.Course, error) {
	var course models.Course
	err := r.cache.GetOrLoad(ctx, "id:"+id, &course, r.ttl, func() (interface{}, error) {
		return r.next.GetByID(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	return &course, nil
}

func (r *CourseRepository) list(ctx context.Context, key string, load func() ([]*models.Course, error)) ([]*models.Course, error) {
	key = fmt.Sprintf("list:%d:%s", r.cache.Generation(ctx, listGenerationKey), key)
	courses := []*models.Course{}
	err := r.cache.GetOrLoad(ctx, key, &courses, r.ttl, func() (interface{}, error) {
		return load()
	})
	if err != nil {
		return nil, err
	}
	return courses, nil
}

// List returns every course
func (r *CourseRepository) List(ctx context.Context) ([]*models.Course, error) {
	return r.list(ctx, "all", func() ([]*models.Course, error) {
		return r.next.List(ctx)
	})
}

// ListByInstructorEmail returns the courses of one instructor
func (r *CourseRepository) ListByInstructorEmail(ctx context.Context, email string) ([]*models.Course, error) {
	return r.list(ctx, "instructor:"+email, func() ([]*models.Course, error) {
		return r.next.ListByInstructorEmail(ctx, email)
	})
}

// ListRecent returns the newest courses
func (r *CourseRepository) ListRecent(ctx context.Context, limit int) ([]*models.Course, error) {
	return r.list(ctx, fmt.Sprintf("recent:%d", limit), func() ([]*models.Course, error) {
		return r.next.ListRecent(ctx, limit)
	})
}
