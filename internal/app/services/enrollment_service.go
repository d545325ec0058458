package services

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/yigit/coursemarket/internal/app/models"
	"github.com/yigit/coursemarket/internal/app/models/dto"
	"github.com/yigit/coursemarket/internal/app/repositories"
	"github.com/yigit/coursemarket/internal/pkg/apperrors"
	"github.com/yigit/coursemarket/internal/pkg/auth"
	"github.com/yigit/coursemarket/internal/pkg/events"
	"github.com/yigit/coursemarket/internal/pkg/validation"
)

// EnrollmentService handles purchases and progress tracking
type EnrollmentService struct {
	userRepo   repositories.UserRepository
	courseRepo repositories.CourseRepository
	publisher  events.Publisher
	now        func() time.Time
	logger     zerolog.Logger
}

// NewEnrollmentService creates a new EnrollmentService
func NewEnrollmentService(
	userRepo repositories.UserRepository,
	courseRepo repositories.CourseRepository,
	publisher events.Publisher,
	logger zerolog.Logger,
) *EnrollmentService {
	return &EnrollmentService{
		userRepo:   userRepo,
		courseRepo: courseRepo,
		publisher:  publisher,
		now:        time.Now,
		logger:     logger,
	}
}

func (s *EnrollmentService) publish(ctx context.Context, topic string, payload interface{}) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, topic, payload); err != nil {
		s.logger.Error().Err(err).Str("topic", topic).Msg("Failed to publish event")
	}
}

// BuyCourse enrolls the caller and awards the course points once.
// Buying an owned course succeeds without changing anything.
func (s *EnrollmentService) BuyCourse(ctx context.Context, caller auth.UserClaims, req *dto.BuyCourseRequest) (*dto.MessageResponse, error) {
	req.UserEmail = NormalizeEmail(req.UserEmail)
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	if req.UserEmail != "" && req.UserEmail != NormalizeEmail(caller.Email) {
		return nil, apperrors.NewForbiddenError("Permission denied")
	}

	user, err := s.userRepo.GetByID(ctx, caller.ID)
	if err != nil {
		return nil, err
	}
	course, err := s.courseRepo.GetByID(ctx, req.CourseID)
	if err != nil {
		return nil, err
	}

	progress := models.CourseProgress{
		CourseID:    course.ID,
		CourseTitle: course.Title,
	}
	enrolled, err := s.userRepo.Enroll(ctx, user.ID, progress, course.GetPoints)
	if err != nil {
		return nil, fmt.Errorf("error enrolling user: %w", err)
	}

	if enrolled {
		s.logger.Info().Str("userID", user.ID).Str("courseID", course.ID).Int("points", course.GetPoints).Msg("Course bought")
		s.publish(ctx, events.TopicCourseEnrolled, events.CourseEnrolled{
			UserID:      user.ID,
			CourseID:    course.ID,
			CourseTitle: course.Title,
			Points:      course.GetPoints,
			OccurredAt:  s.now().UTC(),
		})
	}

	return &dto.MessageResponse{Message: dto.MessageCourseBought}, nil
}

// RecordProgress stores how many videos of an owned course were watched.
// The count is clamped to the course's video total.
func (s *EnrollmentService) RecordProgress(ctx context.Context, caller auth.UserClaims, courseID string, req *dto.ProgressRequest) (*dto.ProgressResponse, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	course, err := s.courseRepo.GetByID(ctx, courseID)
	if err != nil {
		return nil, err
	}

	watched := req.NumberOfVideosWatched
	if watched > course.NumberOfVideos {
		watched = course.NumberOfVideos
	}
	if watched < 0 {
		watched = 0
	}

	progress := models.CourseProgress{
		CourseID:              course.ID,
		CourseTitle:           course.Title,
		NumberOfVideosWatched: watched,
		PercentageCompleted:   course.ProgressPercentage(watched),
	}
	if err := s.userRepo.UpdateProgress(ctx, caller.ID, progress); err != nil {
		return nil, err
	}

	s.publish(ctx, events.TopicCourseProgress, events.ProgressRecorded{
		UserID:                caller.ID,
		CourseID:              course.ID,
		NumberOfVideosWatched: watched,
		PercentageCompleted:   progress.PercentageCompleted,
		OccurredAt:            s.now().UTC(),
	})

	return &dto.ProgressResponse{
		Message:  dto.MessageProgressUpdated,
		Progress: progress,
	}, nil
}
