package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"
	"github.com/yigit/coursemarket/internal/app/models"
	"github.com/yigit/coursemarket/internal/app/models/dto"
	"github.com/yigit/coursemarket/internal/app/repositories"
	"github.com/yigit/coursemarket/internal/pkg/apperrors"
	"github.com/yigit/coursemarket/internal/pkg/filestorage"
	"github.com/yigit/coursemarket/internal/pkg/validation"
)

// RecommendedLimit caps the recommended course list
const RecommendedLimit = 12

const (
	thumbnailDir = "thumbnails"
	rosterSheet  = "Students"
)

// CourseService handles course catalog operations
type CourseService struct {
	courseRepo repositories.CourseRepository
	userRepo   repositories.UserRepository
	storage    filestorage.FileStorage
	logger     zerolog.Logger
}

// NewCourseService creates a new CourseService
func NewCourseService(
	courseRepo repositories.CourseRepository,
	userRepo repositories.UserRepository,
	storage filestorage.FileStorage,
	logger zerolog.Logger,
) *CourseService {
	return &CourseService{
		courseRepo: courseRepo,
		userRepo:   userRepo,
		storage:    storage,
		logger:     logger,
	}
}

// decodeCourseForm parses the JSON encoded tags and chapters fields
func decodeCourseForm(req *dto.CreateCourseRequest) ([]string, []models.Chapter, error) {
	tags := []string{}
	chapters := []models.Chapter{}
	var fields []apperrors.FieldError

	if s := strings.TrimSpace(req.Tags); s != "" {
		if err := json.Unmarshal([]byte(s), &tags); err != nil {
			fields = append(fields, apperrors.FieldError{Field: "tags", Message: "tags must be a JSON array of strings"})
		}
	}
	if s := strings.TrimSpace(req.Chapters); s != "" {
		if err := json.Unmarshal([]byte(s), &chapters); err != nil {
			fields = append(fields, apperrors.FieldError{Field: "chapters", Message: "chapters must be a JSON array of chapters"})
		}
	}
	if len(fields) > 0 {
		return nil, nil, apperrors.NewValidationError(fields...)
	}

	if tags == nil {
		tags = []string{}
	}
	if chapters == nil {
		chapters = []models.Chapter{}
	}
	for i := range chapters {
		if chapters[i].Topics == nil {
			chapters[i].Topics = []models.Topic{}
		}
	}
	return tags, chapters, nil
}

// CreateCourse stores a course authored by the caller. The instructor is a
// snapshot of the caller's profile at creation time.
func (s *CourseService) CreateCourse(ctx context.Context, callerEmail string, req *dto.CreateCourseRequest, thumbnail *dto.Upload) (*models.Course, error) {
	req.Title = strings.TrimSpace(req.Title)
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	tags, chapters, err := decodeCourseForm(req)
	if err != nil {
		return nil, err
	}

	creator, err := s.userRepo.GetByEmail(ctx, NormalizeEmail(callerEmail))
	if err != nil {
		return nil, err
	}

	var thumbnailURL string
	if thumbnail != nil && thumbnail.Content != nil {
		thumbnailURL, err = s.storage.Save(thumbnail.Filename, thumbnail.Content, thumbnailDir)
		if err != nil {
			return nil, fmt.Errorf("error saving thumbnail: %w", err)
		}
	}

	course := &models.Course{
		Title:          req.Title,
		Description:    req.Description,
		Tags:           tags,
		NumberOfVideos: req.NumberOfVideos,
		GetPoints:      req.GetPoints,
		Thumbnail:      thumbnailURL,
		Instructor: models.Instructor{
			Name:   creator.Username,
			Email:  creator.Email,
			Avatar: creator.Avatar,
		},
		Chapters: chapters,
	}

	if err := s.courseRepo.Create(ctx, course); err != nil {
		if thumbnailURL != "" {
			if delErr := s.storage.DeleteFile(thumbnailURL); delErr != nil {
				s.logger.Warn().Err(delErr).Str("thumbnail", thumbnailURL).Msg("Failed to remove orphaned thumbnail")
			}
		}
		return nil, fmt.Errorf("error creating course: %w", err)
	}

	s.logger.Info().Str("courseID", course.ID).Str("instructor", creator.Email).Msg("Course created")
	return course, nil
}

// ListCourses returns every course
func (s *CourseService) ListCourses(ctx context.Context) ([]*models.Course, error) {
	return s.courseRepo.List(ctx)
}

// GetCourse returns one course
func (s *CourseService) GetCourse(ctx context.Context, id string) (*models.Course, error) {
	return s.courseRepo.GetByID(ctx, id)
}

// ListEnrolledStudents projects the course roster. Only the four roster
// fields ever leave this method.
func (s *CourseService) ListEnrolledStudents(ctx context.Context, courseID string) ([]models.EnrolledStudent, error) {
	users, err := s.enrolledUsers(ctx, courseID)
	if err != nil {
		return nil, err
	}

	students := make([]models.EnrolledStudent, 0, len(users))
	for _, u := range users {
		students = append(students, models.EnrolledStudent{
			Username:      u.Username,
			Email:         u.Email,
			Level:         u.Level,
			LearnerPoints: u.LearnerPoints,
		})
	}
	return students, nil
}

func (s *CourseService) enrolledUsers(ctx context.Context, courseID string) ([]*models.User, error) {
	if _, err := s.courseRepo.GetByID(ctx, courseID); err != nil {
		return nil, err
	}
	users, err := s.userRepo.ListByEnrolledCourse(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("error listing enrolled students: %w", err)
	}
	return users, nil
}

// ExportRoster renders the roster as an xlsx workbook
func (s *CourseService) ExportRoster(ctx context.Context, courseID string) (*bytes.Buffer, error) {
	users, err := s.enrolledUsers(ctx, courseID)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			s.logger.Warn().Err(err).Msg("Failed to close workbook")
		}
	}()

	if err := f.SetSheetName("Sheet1", rosterSheet); err != nil {
		return nil, fmt.Errorf("error naming sheet: %w", err)
	}

	header := []interface{}{"Username", "Email", "Level", "Learner Points", "Progress %"}
	if err := f.SetSheetRow(rosterSheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("error writing header: %w", err)
	}
	if style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		_ = f.SetCellStyle(rosterSheet, "A1", "E1", style)
	}

	for i, u := range users {
		progress := 0.0
		if cp, ok := u.Enrollment(courseID); ok {
			progress = cp.PercentageCompleted
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		row := []interface{}{u.Username, u.Email, u.Level, u.LearnerPoints, progress}
		if err := f.SetSheetRow(rosterSheet, cell, &row); err != nil {
			return nil, fmt.Errorf("error writing roster row: %w", err)
		}
	}
	_ = f.SetColWidth(rosterSheet, "A", "B", 28)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("error rendering workbook: %w", err)
	}
	return buf, nil
}

// ListCreatedCourses returns the courses whose instructor snapshot has email
func (s *CourseService) ListCreatedCourses(ctx context.Context, email string) (*dto.CreatedCoursesResponse, error) {
	courses, err := s.courseRepo.ListByInstructorEmail(ctx, NormalizeEmail(email))
	if err != nil {
		return nil, fmt.Errorf("error listing created courses: %w", err)
	}
	return &dto.CreatedCoursesResponse{CreatedCourses: courses}, nil
}

// ListRecommended returns the newest courses
func (s *CourseService) ListRecommended(ctx context.Context) ([]*models.Course, error) {
	return s.courseRepo.ListRecent(ctx, RecommendedLimit)
}

// IsInstructor reports whether email authored the course
func (s *CourseService) IsInstructor(ctx context.Context, courseID, email string) (bool, error) {
	course, err := s.courseRepo.GetByID(ctx, courseID)
	if err != nil {
		return false, err
	}
	return strings.EqualFold(course.Instructor.Email, email), nil
}
