// Package mongo stores users and courses as MongoDB documents.
// Purchases are embedded in the user document so enrollment is a single
// conditional update.
package mongo

import (
	"context"
	"fmt"
	"time"

	"github.com/yigit/coursemarket/internal/app/repositories"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	usersCollection   = "users"
	coursesCollection = "courses"
)

// NewRepositories wires both repositories over one database
func NewRepositories(db *mongo.Database) *repositories.Repositories {
	return &repositories.Repositories{
		Users:   NewUserRepository(db),
		Courses: NewCourseRepository(db),
	}
}

// EnsureIndexes creates the indexes the repositories rely on
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(usersCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true).SetName("users_email_key")},
		{Keys: bson.D{{Key: "courses_bought.course_id", Value: 1}}, Options: options.Index().SetName("users_courses_bought")},
	})
	if err != nil {
		return fmt.Errorf("failed to create user indexes: %w", err)
	}

	_, err = db.Collection(coursesCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "instructor.email", Value: 1}}, Options: options.Index().SetName("courses_instructor_email")},
		{Keys: bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}, Options: options.Index().SetName("courses_recent")},
	})
	if err != nil {
		return fmt.Errorf("failed to create course indexes: %w", err)
	}
	return nil
}

// objectID parses hex ids; ok is false for anything that is not an ObjectID
func objectID(id string) (primitive.ObjectID, bool) {
	oid, err := primitive.ObjectIDFromHex(id)
	return oid, err == nil
}

// now returns the current time at the precision MongoDB stores
func now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}
