package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/yigit/coursemarket/internal/app/models"
	"github.com/yigit/coursemarket/internal/app/repositories"
	"github.com/yigit/coursemarket/internal/pkg/apperrors"
)

type courseRepository struct {
	db  *courseTable
	now func() time.Time
}

var _ repositories.CourseRepository = (*courseRepository)(nil)

// NewCourseRepository creates a CourseRepository over the in-memory store
func NewCourseRepository(db *DB) repositories.CourseRepository {
	return &courseRepository{db: db.courses, now: time.Now}
}

func (r *courseRepository) Create(_ context.Context, course *models.Course) error {
	r.db.mutex.Lock()
	defer r.db.mutex.Unlock()

	course.ID = uuid.New().String()
	if course.CreatedAt.IsZero() {
		course.CreatedAt = r.now()
	}
	r.db.table[course.ID] = cloneCourse(course)
	r.db.order = append(r.db.order, course.ID)
	return nil
}

func (r *courseRepository) GetByID(_ context.Context, id string) (*models.Course, error) {
	r.db.mutex.RLock()
	defer r.db.mutex.RUnlock()

	if c, ok := r.db.table[id]; ok {
		return cloneCourse(c), nil
	}
	return nil, apperrors.ErrCourseNotFound
}

// query returns courses in insertion order
func (r *courseRepository) query(keep func(*models.Course) bool) []*models.Course {
	r.db.mutex.RLock()
	defer r.db.mutex.RUnlock()

	courses := []*models.Course{}
	for _, id := range r.db.order {
		if c := r.db.table[id]; keep == nil || keep(c) {
			courses = append(courses, cloneCourse(c))
		}
	}
	return courses
}

func (r *courseRepository) List(_ context.Context) ([]*models.Course, error) {
	return r.query(nil), nil
}

func (r *courseRepository) ListByInstructorEmail(_ context.Context, email string) ([]*models.Course, error) {
	key := emailKey(email)
	return r.query(func(c *models.Course) bool { return emailKey(c.Instructor.Email) == key }), nil
}

func (r *courseRepository) ListRecent(_ context.Context, limit int) ([]*models.Course, error) {
	courses := r.query(nil)
	// newest first, later inserts win ties
	for i, j := 0, len(courses)-1; i < j; i, j = i+1, j-1 {
		courses[i], courses[j] = courses[j], courses[i]
	}
	sort.SliceStable(courses, func(i, j int) bool { return courses[i].CreatedAt.After(courses[j].CreatedAt) })
	if limit > 0 && len(courses) > limit {
		courses = courses[:limit]
	}
	return courses, nil
}

func sortUsers(users []*models.User) {
	sort.Slice(users, func(i, j int) bool {
		if users[i].CreatedAt.Equal(users[j].CreatedAt) {
			return users[i].Email < users[j].Email
		}
		return users[i].CreatedAt.Before(users[j].CreatedAt)
	})
}
