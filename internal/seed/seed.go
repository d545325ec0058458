package seed

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/yigit/coursemarket/internal/app/models"
	"github.com/yigit/coursemarket/internal/app/repositories"
	"github.com/yigit/coursemarket/internal/pkg/apperrors"
	"github.com/yigit/coursemarket/internal/pkg/auth"
)

// Demo account created by CreateDemoData
const (
	DemoTeacherEmail    = "teacher@coursemarket.local"
	DemoTeacherUsername = "demo-teacher"
	DemoTeacherPassword = "teacher123"
	DemoCourseTitle     = "Getting Started with Go"
)

// CreateDemoData creates a demo teacher and one course authored by them.
// It does nothing for a teacher that already exists.
func CreateDemoData(ctx context.Context, repos *repositories.Repositories, lgr zerolog.Logger) error {
	lgr.Info().Msg("Checking/Creating demo data...")

	exists, err := repos.Users.EmailExists(ctx, DemoTeacherEmail)
	if err != nil {
		return fmt.Errorf("error checking demo teacher: %w", err)
	}
	if exists {
		lgr.Info().Str("email", DemoTeacherEmail).Msg("Demo teacher already exists, skipping seed")
		return nil
	}

	hash, err := auth.HashPassword(DemoTeacherPassword)
	if err != nil {
		return err
	}

	teacher := models.NewUser(DemoTeacherUsername, DemoTeacherEmail, hash, models.AccountTypeTeacher)
	if err := repos.Users.Create(ctx, teacher); err != nil {
		// Another instance seeded concurrently
		if errors.Is(err, apperrors.ErrEmailAlreadyExists) {
			return nil
		}
		return fmt.Errorf("error creating demo teacher: %w", err)
	}

	course := &models.Course{
		Title:          DemoCourseTitle,
		Description:    "A short tour of the Go toolchain, types and concurrency.",
		Tags:           []string{"go", "beginner"},
		NumberOfVideos: 4,
		GetPoints:      50,
		Instructor: models.Instructor{
			Name:   teacher.Username,
			Email:  teacher.Email,
			Avatar: teacher.Avatar,
		},
		Chapters: []models.Chapter{
			{
				Title: "Basics",
				Topics: []models.Topic{
					{Title: "Installing Go", Description: "Toolchain setup"},
					{Title: "Hello, world", Description: "Packages and main"},
				},
			},
			{
				Title: "Concurrency",
				Topics: []models.Topic{
					{Title: "Goroutines", Description: "Starting concurrent work"},
					{Title: "Channels", Description: "Communicating between goroutines"},
				},
			},
		},
	}
	if err := repos.Courses.Create(ctx, course); err != nil {
		return fmt.Errorf("error creating demo course: %w", err)
	}

	lgr.Info().
		Str("email", DemoTeacherEmail).
		Str("courseID", course.ID).
		Msg("Demo data created")
	return nil
}
