package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/yigit/coursemarket/internal/app/models"
	"github.com/yigit/coursemarket/internal/app/repositories"
	"github.com/yigit/coursemarket/internal/pkg/apperrors"
	"github.com/yigit/coursemarket/internal/pkg/dberrors"
	"github.com/yigit/coursemarket/internal/pkg/logger"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type progressDocument struct {
	CourseID              string  `bson:"course_id"`
	PercentageCompleted   float64 `bson:"percentage_completed"`
	NumberOfVideosWatched int     `bson:"number_of_videos_watched"`
	CourseTitle           string  `bson:"course_title"`
}

type userDocument struct {
	ID                   primitive.ObjectID `bson:"_id,omitempty"`
	Username             string             `bson:"username"`
	Email                string             `bson:"email"`
	Password             string             `bson:"password"`
	AccountType          string             `bson:"account_type"`
	LearnerPoints        int                `bson:"learner_points"`
	Level                string             `bson:"level"`
	Achievements         []string           `bson:"achievements"`
	CoursesBought        []progressDocument `bson:"courses_bought"`
	Avatar               string             `bson:"avatar"`
	ResetPasswordToken   *string            `bson:"reset_password_token,omitempty"`
	ResetPasswordExpires *time.Time         `bson:"reset_password_expires,omitempty"`
	CreatedAt            time.Time          `bson:"created_at"`
	UpdatedAt            time.Time          `bson:"updated_at"`
}

func newUserDocument(u *models.User) *userDocument {
	doc := &userDocument{
		Username:             u.Username,
		Email:                u.Email,
		Password:             u.Password,
		AccountType:          string(u.AccountType),
		LearnerPoints:        u.LearnerPoints,
		Level:                u.Level,
		Achievements:         append([]string{}, u.Achievements...),
		CoursesBought:        []progressDocument{},
		Avatar:               u.Avatar,
		ResetPasswordToken:   u.ResetPasswordToken,
		ResetPasswordExpires: u.ResetPasswordExpires,
	}
	for _, cp := range u.CoursesBought {
		doc.CoursesBought = append(doc.CoursesBought, progressDocument(cp))
	}
	return doc
}

func (d *userDocument) model() *models.User {
	u := &models.User{
		ID:                   d.ID.Hex(),
		Username:             d.Username,
		Email:                d.Email,
		Password:             d.Password,
		AccountType:          models.AccountType(d.AccountType),
		LearnerPoints:        d.LearnerPoints,
		Level:                d.Level,
		Achievements:         append([]string{}, d.Achievements...),
		CoursesBought:        make([]models.CourseProgress, 0, len(d.CoursesBought)),
		Avatar:               d.Avatar,
		ResetPasswordToken:   d.ResetPasswordToken,
		ResetPasswordExpires: d.ResetPasswordExpires,
		CreatedAt:            d.CreatedAt,
		UpdatedAt:            d.UpdatedAt,
	}
	for _, cp := range d.CoursesBought {
		u.CoursesBought = append(u.CoursesBought, models.CourseProgress(cp))
	}
	return u
}

// UserRepository handles user document operations
type UserRepository struct {
	coll *mongo.Collection
}

var _ repositories.UserRepository = (*UserRepository)(nil)

// NewUserRepository creates a new UserRepository
func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{coll: db.Collection(usersCollection)}
}

// Create creates a new user
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	doc := newUserDocument(user)
	doc.ID = primitive.NewObjectID()
	doc.CreatedAt = now()
	doc.UpdatedAt = doc.CreatedAt

	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		if dberrors.IsMongoDuplicateKeyError(err) {
			return apperrors.ErrEmailAlreadyExists
		}
		logger.Error().Err(err).Msg("Error inserting user document")
		return fmt.Errorf("error creating user: %w", err)
	}

	user.ID = doc.ID.Hex()
	user.CreatedAt = doc.CreatedAt
	user.UpdatedAt = doc.UpdatedAt
	if user.Achievements == nil {
		user.Achievements = []string{}
	}
	if user.CoursesBought == nil {
		user.CoursesBought = []models.CourseProgress{}
	}
	return nil
}

func (r *UserRepository) findOne(ctx context.Context, filter bson.M) (*models.User, error) {
	var doc userDocument
	if err := r.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, fmt.Errorf("error getting user: %w", err)
	}
	return doc.model(), nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	oid, ok := objectID(id)
	if !ok {
		return nil, apperrors.ErrUserNotFound
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

// GetByEmail retrieves a user by email
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

// EmailExists checks if an email already exists
func (r *UserRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	n, err := r.coll.CountDocuments(ctx, bson.M{"email": email})
	if err != nil {
		return false, fmt.Errorf("error checking email: %w", err)
	}
	return n > 0, nil
}

// updateByID applies update to one user and maps a missing document to ErrUserNotFound
func (r *UserRepository) updateByID(ctx context.Context, userID string, set bson.M) error {
	oid, ok := objectID(userID)
	if !ok {
		return apperrors.ErrUserNotFound
	}
	set["updated_at"] = now()
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("error updating user: %w", err)
	}
	if res.MatchedCount == 0 {
		return apperrors.ErrUserNotFound
	}
	return nil
}

// SetPasswordResetToken stores a reset code and its expiry
func (r *UserRepository) SetPasswordResetToken(ctx context.Context, userID, token string, expiresAt time.Time) error {
	return r.updateByID(ctx, userID, bson.M{
		"reset_password_token":   token,
		"reset_password_expires": expiresAt.UTC(),
	})
}

// ResetPassword consumes a valid reset code in a single conditional update
func (r *UserRepository) ResetPassword(ctx context.Context, email, token, passwordHash string, at time.Time) (bool, error) {
	filter := bson.M{
		"email":                  email,
		"reset_password_token":   token,
		"reset_password_expires": bson.M{"$gt": at.UTC()},
	}
	update := bson.M{
		"$set":   bson.M{"password": passwordHash, "updated_at": now()},
		"$unset": bson.M{"reset_password_token": "", "reset_password_expires": ""},
	}
	res, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("error resetting password: %w", err)
	}
	return res.ModifiedCount == 1, nil
}

// UpdatePassword overwrites the stored hash
func (r *UserRepository) UpdatePassword(ctx context.Context, userID, passwordHash string) error {
	return r.updateByID(ctx, userID, bson.M{"password": passwordHash})
}

// Enroll pushes the progress record and increments points in one update.
// The filter excludes users that already own the course, which keeps
// concurrent purchases from double awarding.
func (r *UserRepository) Enroll(ctx context.Context, userID string, progress models.CourseProgress, points int) (bool, error) {
	oid, ok := objectID(userID)
	if !ok {
		return false, apperrors.ErrUserNotFound
	}

	filter := bson.M{
		"_id":                      oid,
		"courses_bought.course_id": bson.M{"$ne": progress.CourseID},
	}
	update := bson.M{
		"$push": bson.M{"courses_bought": progressDocument(progress)},
		"$inc":  bson.M{"learner_points": points},
		"$set":  bson.M{"updated_at": now()},
	}
	res, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("error enrolling user: %w", err)
	}
	if res.MatchedCount == 1 {
		return true, nil
	}

	n, err := r.coll.CountDocuments(ctx, bson.M{"_id": oid})
	if err != nil {
		return false, fmt.Errorf("error checking user: %w", err)
	}
	if n == 0 {
		return false, apperrors.ErrUserNotFound
	}
	return false, nil
}

// UpdateProgress stores watched videos and completion for an owned course
func (r *UserRepository) UpdateProgress(ctx context.Context, userID string, progress models.CourseProgress) error {
	oid, ok := objectID(userID)
	if !ok {
		return apperrors.ErrEnrollmentNotFound
	}

	filter := bson.M{"_id": oid, "courses_bought.course_id": progress.CourseID}
	update := bson.M{"$set": bson.M{
		"courses_bought.$.number_of_videos_watched": progress.NumberOfVideosWatched,
		"courses_bought.$.percentage_completed":     progress.PercentageCompleted,
		"updated_at": now(),
	}}
	res, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("error updating progress: %w", err)
	}
	if res.MatchedCount == 0 {
		return apperrors.ErrEnrollmentNotFound
	}
	return nil
}

// ListByEnrolledCourse returns every user owning courseID
func (r *UserRepository) ListByEnrolledCourse(ctx context.Context, courseID string) ([]*models.User, error) {
	cursor, err := r.coll.Find(ctx, bson.M{"courses_bought.course_id": courseID})
	if err != nil {
		return nil, fmt.Errorf("error querying roster: %w", err)
	}
	defer cursor.Close(ctx)

	users := []*models.User{}
	for cursor.Next(ctx) {
		var doc userDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("error decoding user: %w", err)
		}
		users = append(users, doc.model())
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("error iterating roster: %w", err)
	}
	return users, nil
}

// AddAchievements appends labels the user does not hold yet
func (r *UserRepository) AddAchievements(ctx context.Context, userID string, achievements ...string) error {
	oid, ok := objectID(userID)
	if !ok {
		return apperrors.ErrUserNotFound
	}
	update := bson.M{
		"$addToSet": bson.M{"achievements": bson.M{"$each": achievements}},
		"$set":      bson.M{"updated_at": now()},
	}
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": oid}, update)
	if err != nil {
		return fmt.Errorf("error storing achievements: %w", err)
	}
	if res.MatchedCount == 0 {
		return apperrors.ErrUserNotFound
	}
	return nil
}

// SetLevel stores the user's level
func (r *UserRepository) SetLevel(ctx context.Context, userID, level string) error {
	return r.updateByID(ctx, userID, bson.M{"level": level})
}
