package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/yigit/coursemarket/internal/app/models"
	"github.com/yigit/coursemarket/internal/app/repositories"
	"github.com/yigit/coursemarket/internal/pkg/apperrors"
	"github.com/yigit/coursemarket/internal/pkg/logger"
)

var courseColumns = []string{
	"id::text", "title", "description", "tags", "number_of_videos", "get_points", "thumbnail",
	"instructor_name", "instructor_email", "instructor_avatar", "chapters", "created_at",
}

// CourseRepository handles course database operations
type CourseRepository struct {
	db *pgxpool.Pool
	sb squirrel.StatementBuilderType
}

var _ repositories.CourseRepository = (*CourseRepository)(nil)

// NewCourseRepository creates a new CourseRepository
func NewCourseRepository(db *pgxpool.Pool) *CourseRepository {
	return &CourseRepository{
		db: db,
		sb: statementBuilder(),
	}
}

func scanCourse(row pgx.Row) (*models.Course, error) {
	c := &models.Course{}
	var chapters []byte
	err := row.Scan(
		&c.ID, &c.Title, &c.Description, &c.Tags, &c.NumberOfVideos, &c.GetPoints, &c.Thumbnail,
		&c.Instructor.Name, &c.Instructor.Email, &c.Instructor.Avatar, &chapters, &c.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(chapters, &c.Chapters); err != nil {
		return nil, fmt.Errorf("error decoding chapters: %w", err)
	}
	if c.Tags == nil {
		c.Tags = []string{}
	}
	if c.Chapters == nil {
		c.Chapters = []models.Chapter{}
	}
	return c, nil
}

// Create creates a new course
func (r *CourseRepository) Create(ctx context.Context, course *models.Course) error {
	if course.Tags == nil {
		course.Tags = []string{}
	}
	if course.Chapters == nil {
		course.Chapters = []models.Chapter{}
	}
	chapters, err := json.Marshal(course.Chapters)
	if err != nil {
		return fmt.Errorf("error encoding chapters: %w", err)
	}
	if course.CreatedAt.IsZero() {
		course.CreatedAt = time.Now().UTC()
	}
	id := uuid.New().String()

	sql, args, err := r.sb.Insert("courses").
		Columns("id", "title", "description", "tags", "number_of_videos", "get_points", "thumbnail",
			"instructor_name", "instructor_email", "instructor_avatar", "chapters", "created_at").
		Values(id, course.Title, course.Description, course.Tags, course.NumberOfVideos, course.GetPoints, course.Thumbnail,
			course.Instructor.Name, course.Instructor.Email, course.Instructor.Avatar, string(chapters), course.CreatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build create course query: %w", err)
	}

	if _, err := r.db.Exec(ctx, sql, args...); err != nil {
		logger.Error().Err(err).Msg("Error executing create course query")
		return fmt.Errorf("error creating course: %w", err)
	}

	course.ID = id
	return nil
}

// GetByID retrieves a course by ID
func (r *CourseRepository) GetByID(ctx context.Context, id string) (*models.Course, error) {
	if !validID(id) {
		return nil, apperrors.ErrCourseNotFound
	}

	sql, args, err := r.sb.Select(courseColumns...).From("courses").Where(squirrel.Eq{"id": id}).Limit(1).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get course query: %w", err)
	}

	c, err := scanCourse(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrCourseNotFound
		}
		return nil, fmt.Errorf("error getting course by ID: %w", err)
	}
	return c, nil
}

func (r *CourseRepository) list(ctx context.Context, b squirrel.SelectBuilder) ([]*models.Course, error) {
	sql, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build list courses query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying courses: %w", err)
	}
	defer rows.Close()

	courses := []*models.Course{}
	for rows.Next() {
		c, err := scanCourse(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning course row: %w", err)
		}
		courses = append(courses, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating course rows: %w", err)
	}
	return courses, nil
}

// List returns every course, oldest first
func (r *CourseRepository) List(ctx context.Context) ([]*models.Course, error) {
	return r.list(ctx, r.sb.Select(courseColumns...).From("courses").OrderBy("created_at ASC", "seq ASC"))
}

// ListByInstructorEmail returns the courses whose instructor snapshot has email
func (r *CourseRepository) ListByInstructorEmail(ctx context.Context, email string) ([]*models.Course, error) {
	return r.list(ctx, r.sb.Select(courseColumns...).From("courses").
		Where(squirrel.Eq{"instructor_email": email}).
		OrderBy("created_at ASC", "seq ASC"))
}

// ListRecent returns up to limit courses, newest first
func (r *CourseRepository) ListRecent(ctx context.Context, limit int) ([]*models.Course, error) {
	b := r.sb.Select(courseColumns...).From("courses").OrderBy("created_at DESC", "seq DESC")
	if limit > 0 {
		b = b.Limit(uint64(limit))
	}
	return r.list(ctx, b)
}
