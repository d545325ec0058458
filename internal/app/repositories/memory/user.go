package memory

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/yigit/coursemarket/internal/app/models"
	"github.com/yigit/coursemarket/internal/app/repositories"
	"github.com/yigit/coursemarket/internal/pkg/apperrors"
)

type userRepository struct {
	db  *userTable
	now func() time.Time
}

var _ repositories.UserRepository = (*userRepository)(nil)

// NewUserRepository creates a UserRepository over the in-memory store
func NewUserRepository(db *DB) repositories.UserRepository {
	return &userRepository{db: db.users, now: time.Now}
}

func emailKey(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (r *userRepository) Create(_ context.Context, user *models.User) error {
	r.db.mutex.Lock()
	defer r.db.mutex.Unlock()

	key := emailKey(user.Email)
	if _, taken := r.db.byEmail[key]; taken {
		return apperrors.ErrEmailAlreadyExists
	}

	now := r.now()
	user.ID = uuid.New().String()
	user.CreatedAt = now
	user.UpdatedAt = now
	r.db.table[user.ID] = cloneUser(user)
	r.db.byEmail[key] = user.ID
	return nil
}

func (r *userRepository) GetByID(_ context.Context, id string) (*models.User, error) {
	r.db.mutex.RLock()
	defer r.db.mutex.RUnlock()

	if usr, ok := r.db.table[id]; ok {
		return cloneUser(usr), nil
	}
	return nil, apperrors.ErrUserNotFound
}

func (r *userRepository) GetByEmail(_ context.Context, email string) (*models.User, error) {
	r.db.mutex.RLock()
	defer r.db.mutex.RUnlock()

	if id, ok := r.db.byEmail[emailKey(email)]; ok {
		return cloneUser(r.db.table[id]), nil
	}
	return nil, apperrors.ErrUserNotFound
}

func (r *userRepository) EmailExists(_ context.Context, email string) (bool, error) {
	r.db.mutex.RLock()
	defer r.db.mutex.RUnlock()

	_, ok := r.db.byEmail[emailKey(email)]
	return ok, nil
}

// update runs fn on the stored user under the write lock
func (r *userRepository) update(userID string, fn func(u *models.User) error) error {
	r.db.mutex.Lock()
	defer r.db.mutex.Unlock()

	usr, ok := r.db.table[userID]
	if !ok {
		return apperrors.ErrUserNotFound
	}
	if err := fn(usr); err != nil {
		return err
	}
	usr.UpdatedAt = r.now()
	return nil
}

func (r *userRepository) SetPasswordResetToken(_ context.Context, userID, token string, expiresAt time.Time) error {
	return r.update(userID, func(u *models.User) error {
		u.ResetPasswordToken = &token
		u.ResetPasswordExpires = &expiresAt
		return nil
	})
}

func (r *userRepository) ResetPassword(_ context.Context, email, token, passwordHash string, now time.Time) (bool, error) {
	r.db.mutex.Lock()
	defer r.db.mutex.Unlock()

	id, ok := r.db.byEmail[emailKey(email)]
	if !ok {
		return false, nil
	}
	usr := r.db.table[id]
	if usr.ResetPasswordToken == nil || *usr.ResetPasswordToken != token ||
		usr.ResetPasswordExpires == nil || !usr.ResetPasswordExpires.After(now) {
		return false, nil
	}

	usr.Password = passwordHash
	usr.ResetPasswordToken = nil
	usr.ResetPasswordExpires = nil
	usr.UpdatedAt = r.now()
	return true, nil
}

func (r *userRepository) UpdatePassword(_ context.Context, userID, passwordHash string) error {
	return r.update(userID, func(u *models.User) error {
		u.Password = passwordHash
		return nil
	})
}

func (r *userRepository) Enroll(_ context.Context, userID string, progress models.CourseProgress, points int) (bool, error) {
	enrolled := false
	err := r.update(userID, func(u *models.User) error {
		if _, owned := u.Enrollment(progress.CourseID); owned {
			return nil
		}
		u.CoursesBought = append(u.CoursesBought, progress)
		u.LearnerPoints += points
		enrolled = true
		return nil
	})
	return enrolled, err
}

func (r *userRepository) UpdateProgress(_ context.Context, userID string, progress models.CourseProgress) error {
	return r.update(userID, func(u *models.User) error {
		cp, owned := u.Enrollment(progress.CourseID)
		if !owned {
			return apperrors.ErrEnrollmentNotFound
		}
		cp.NumberOfVideosWatched = progress.NumberOfVideosWatched
		cp.PercentageCompleted = progress.PercentageCompleted
		return nil
	})
}

func (r *userRepository) ListByEnrolledCourse(_ context.Context, courseID string) ([]*models.User, error) {
	r.db.mutex.RLock()
	defer r.db.mutex.RUnlock()

	users := []*models.User{}
	for _, usr := range r.db.table {
		if _, owned := usr.Enrollment(courseID); owned {
			users = append(users, cloneUser(usr))
		}
	}
	sortUsers(users)
	return users, nil
}

func (r *userRepository) AddAchievements(_ context.Context, userID string, achievements ...string) error {
	return r.update(userID, func(u *models.User) error {
		for _, a := range achievements {
			if !u.HasAchievement(a) {
				u.Achievements = append(u.Achievements, a)
			}
		}
		return nil
	})
}

func (r *userRepository) SetLevel(_ context.Context, userID, level string) error {
	return r.update(userID, func(u *models.User) error {
		u.Level = level
		return nil
	})
}
