package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/yigit/coursemarket/internal/app/models"
	"github.com/yigit/coursemarket/internal/app/repositories"
	"github.com/yigit/coursemarket/internal/db"
	"github.com/yigit/coursemarket/internal/pkg/apperrors"
	"github.com/yigit/coursemarket/internal/pkg/dberrors"
	"github.com/yigit/coursemarket/internal/pkg/logger"
)

var userColumns = []string{
	"id::text", "username", "email", "password", "account_type", "learner_points", "level",
	"achievements", "avatar", "reset_password_token", "reset_password_expires", "created_at", "updated_at",
}

var progressColumns = []string{
	"user_id::text", "course_id::text", "course_title", "number_of_videos_watched", "percentage_completed",
}

// UserRepository handles user database operations
type UserRepository struct {
	db *pgxpool.Pool
	sb squirrel.StatementBuilderType
}

var _ repositories.UserRepository = (*UserRepository)(nil)

// NewUserRepository creates a new UserRepository
func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{
		db: db,
		sb: statementBuilder(),
	}
}

func scanUser(row pgx.Row) (*models.User, error) {
	u := &models.User{}
	err := row.Scan(
		&u.ID, &u.Username, &u.Email, &u.Password, &u.AccountType, &u.LearnerPoints, &u.Level,
		&u.Achievements, &u.Avatar, &u.ResetPasswordToken, &u.ResetPasswordExpires, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if u.Achievements == nil {
		u.Achievements = []string{}
	}
	u.CoursesBought = []models.CourseProgress{}
	return u, nil
}

// Create creates a new user
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	if user.Achievements == nil {
		user.Achievements = []string{}
	}
	id := uuid.New().String()

	sql, args, err := r.sb.Insert("users").
		Columns("id", "username", "email", "password", "account_type", "learner_points", "level", "achievements", "avatar").
		Values(id, user.Username, user.Email, user.Password, user.AccountType, user.LearnerPoints, user.Level, user.Achievements, user.Avatar).
		Suffix("RETURNING created_at, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build create user query: %w", err)
	}

	if err := r.db.QueryRow(ctx, sql, args...).Scan(&user.CreatedAt, &user.UpdatedAt); err != nil {
		if dberrors.IsDuplicateConstraintError(err, usersEmailConstraint) {
			return apperrors.ErrEmailAlreadyExists
		}
		logger.Error().Err(err).Msg("Error executing create user query")
		return fmt.Errorf("error creating user: %w", err)
	}

	user.ID = id
	if user.CoursesBought == nil {
		user.CoursesBought = []models.CourseProgress{}
	}
	return nil
}

func (r *UserRepository) getOne(ctx context.Context, where squirrel.Sqlizer) (*models.User, error) {
	sql, args, err := r.sb.Select(userColumns...).From("users").Where(where).Limit(1).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get user query: %w", err)
	}

	u, err := scanUser(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, fmt.Errorf("error getting user: %w", err)
	}

	if err := r.loadProgress(ctx, []*models.User{u}); err != nil {
		return nil, err
	}
	return u, nil
}

// loadProgress fills CoursesBought for every user in one query
func (r *UserRepository) loadProgress(ctx context.Context, users []*models.User) error {
	if len(users) == 0 {
		return nil
	}
	byID := make(map[string]*models.User, len(users))
	ids := make([]string, 0, len(users))
	for _, u := range users {
		byID[u.ID] = u
		ids = append(ids, u.ID)
	}

	sql, args, err := r.sb.Select(progressColumns...).
		From("course_enrollments").
		Where("user_id = ANY(?::uuid[])", ids).
		OrderBy("enrolled_at ASC", "course_id ASC").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build enrollment query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("error querying enrollments: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var userID string
		var cp models.CourseProgress
		if err := rows.Scan(&userID, &cp.CourseID, &cp.CourseTitle, &cp.NumberOfVideosWatched, &cp.PercentageCompleted); err != nil {
			return fmt.Errorf("error scanning enrollment row: %w", err)
		}
		if u, ok := byID[userID]; ok {
			u.CoursesBought = append(u.CoursesBought, cp)
		}
	}
	return rows.Err()
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	if !validID(id) {
		return nil, apperrors.ErrUserNotFound
	}
	return r.getOne(ctx, squirrel.Eq{"id": id})
}

// GetByEmail retrieves a user by email
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getOne(ctx, squirrel.Eq{"email": email})
}

// EmailExists checks if an email already exists
func (r *UserRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE email = $1)`, email).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("error checking email: %w", err)
	}
	return exists, nil
}

// exec runs an UPDATE built by b and reports the affected row count
func (r *UserRepository) exec(ctx context.Context, b squirrel.UpdateBuilder) (int64, error) {
	sql, args, err := b.ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build update query: %w", err)
	}
	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return 0, fmt.Errorf("error updating user: %w", err)
	}
	return tag.RowsAffected(), nil
}

// updateByID applies set to one user and maps a missing row to ErrUserNotFound
func (r *UserRepository) updateByID(ctx context.Context, userID string, set map[string]interface{}) error {
	if !validID(userID) {
		return apperrors.ErrUserNotFound
	}
	set["updated_at"] = squirrel.Expr("NOW()")
	n, err := r.exec(ctx, r.sb.Update("users").SetMap(set).Where(squirrel.Eq{"id": userID}))
	if err != nil {
		return err
	}
	if n == 0 {
		return apperrors.ErrUserNotFound
	}
	return nil
}

// SetPasswordResetToken stores a reset code and its expiry
func (r *UserRepository) SetPasswordResetToken(ctx context.Context, userID, token string, expiresAt time.Time) error {
	return r.updateByID(ctx, userID, map[string]interface{}{
		"reset_password_token":   token,
		"reset_password_expires": expiresAt,
	})
}

// ResetPassword consumes a valid reset code in a single conditional update
func (r *UserRepository) ResetPassword(ctx context.Context, email, token, passwordHash string, now time.Time) (bool, error) {
	n, err := r.exec(ctx, r.sb.Update("users").
		Set("password", passwordHash).
		Set("reset_password_token", nil).
		Set("reset_password_expires", nil).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"email": email, "reset_password_token": token}).
		Where(squirrel.Gt{"reset_password_expires": now}))
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// UpdatePassword overwrites the stored hash
func (r *UserRepository) UpdatePassword(ctx context.Context, userID, passwordHash string) error {
	return r.updateByID(ctx, userID, map[string]interface{}{"password": passwordHash})
}

// Enroll inserts the enrollment row and awards points in one transaction.
// The user row is locked first so concurrent purchases serialize.
func (r *UserRepository) Enroll(ctx context.Context, userID string, progress models.CourseProgress, points int) (bool, error) {
	if !validID(userID) {
		return false, apperrors.ErrUserNotFound
	}
	if !validID(progress.CourseID) {
		return false, apperrors.ErrCourseNotFound
	}

	enrolled := false
	err := db.WithTransaction(ctx, r.db, func(ctx context.Context, tx pgx.Tx) error {
		var one int
		if err := tx.QueryRow(ctx, `SELECT 1 FROM users WHERE id = $1 FOR UPDATE`, userID).Scan(&one); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperrors.ErrUserNotFound
			}
			return fmt.Errorf("error locking user: %w", err)
		}

		sql, args, err := r.sb.Insert("course_enrollments").
			Columns("user_id", "course_id", "course_title", "number_of_videos_watched", "percentage_completed").
			Values(userID, progress.CourseID, progress.CourseTitle, progress.NumberOfVideosWatched, progress.PercentageCompleted).
			Suffix("ON CONFLICT (user_id, course_id) DO NOTHING").
			ToSql()
		if err != nil {
			return fmt.Errorf("failed to build enroll query: %w", err)
		}

		tag, err := tx.Exec(ctx, sql, args...)
		if err != nil {
			if isForeignKeyError(err) {
				return apperrors.ErrCourseNotFound
			}
			return fmt.Errorf("error inserting enrollment: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return nil
		}

		sql, args, err = r.sb.Update("users").
			Set("learner_points", squirrel.Expr("learner_points + ?", points)).
			Set("updated_at", squirrel.Expr("NOW()")).
			Where(squirrel.Eq{"id": userID}).
			ToSql()
		if err != nil {
			return fmt.Errorf("failed to build points query: %w", err)
		}
		if _, err := tx.Exec(ctx, sql, args...); err != nil {
			return fmt.Errorf("error awarding points: %w", err)
		}

		enrolled = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return enrolled, nil
}

// UpdateProgress stores watched videos and completion for an owned course
func (r *UserRepository) UpdateProgress(ctx context.Context, userID string, progress models.CourseProgress) error {
	if !validID(userID) || !validID(progress.CourseID) {
		return apperrors.ErrEnrollmentNotFound
	}

	sql, args, err := r.sb.Update("course_enrollments").
		Set("number_of_videos_watched", progress.NumberOfVideosWatched).
		Set("percentage_completed", progress.PercentageCompleted).
		Where(squirrel.Eq{"user_id": userID, "course_id": progress.CourseID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build progress query: %w", err)
	}

	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("error updating progress: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrEnrollmentNotFound
	}
	return nil
}

// ListByEnrolledCourse returns every user owning courseID
func (r *UserRepository) ListByEnrolledCourse(ctx context.Context, courseID string) ([]*models.User, error) {
	users := []*models.User{}
	if !validID(courseID) {
		return users, nil
	}

	cols := make([]string, len(userColumns))
	for i, c := range userColumns {
		cols[i] = "u." + c
	}
	sql, args, err := r.sb.Select(cols...).
		From("users u").
		Join("course_enrollments e ON e.user_id = u.id").
		Where(squirrel.Eq{"e.course_id": courseID}).
		OrderBy("e.enrolled_at ASC", "u.email ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build roster query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying roster: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning roster row: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating roster rows: %w", err)
	}

	if err := r.loadProgress(ctx, users); err != nil {
		return nil, err
	}
	return users, nil
}

// AddAchievements appends labels the user does not hold yet, keeping award order
func (r *UserRepository) AddAchievements(ctx context.Context, userID string, achievements ...string) error {
	if !validID(userID) {
		return apperrors.ErrUserNotFound
	}

	return db.WithTransaction(ctx, r.db, func(ctx context.Context, tx pgx.Tx) error {
		var current []string
		err := tx.QueryRow(ctx, `SELECT achievements FROM users WHERE id = $1 FOR UPDATE`, userID).Scan(&current)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperrors.ErrUserNotFound
			}
			return fmt.Errorf("error reading achievements: %w", err)
		}

		held := make(map[string]bool, len(current))
		for _, a := range current {
			held[a] = true
		}
		changed := false
		for _, a := range achievements {
			if !held[a] {
				held[a] = true
				current = append(current, a)
				changed = true
			}
		}
		if !changed {
			return nil
		}

		_, err = tx.Exec(ctx, `UPDATE users SET achievements = $1, updated_at = NOW() WHERE id = $2`, current, userID)
		if err != nil {
			return fmt.Errorf("error storing achievements: %w", err)
		}
		return nil
	})
}

// SetLevel stores the user's level
func (r *UserRepository) SetLevel(ctx context.Context, userID, level string) error {
	return r.updateByID(ctx, userID, map[string]interface{}{"level": level})
}
