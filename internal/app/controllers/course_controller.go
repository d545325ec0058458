package controllers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/yigit/coursemarket/internal/app/models/dto"
	"github.com/yigit/coursemarket/internal/app/services"
	"github.com/yigit/coursemarket/internal/middleware"
	"github.com/yigit/coursemarket/internal/pkg/apperrors"
)

// MaxThumbnailSize bounds the uploaded course thumbnail
const MaxThumbnailSize = 5 << 20

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// CourseController handles course catalog and enrollment requests
type CourseController struct {
	courseService     *services.CourseService
	enrollmentService *services.EnrollmentService
	logger            zerolog.Logger
}

// NewCourseController creates a new CourseController
func NewCourseController(courseService *services.CourseService, enrollmentService *services.EnrollmentService, logger zerolog.Logger) *CourseController {
	return &CourseController{
		courseService:     courseService,
		enrollmentService: enrollmentService,
		logger:            logger,
	}
}

// CreateCourse handles the multipart course form
// @Summary Create a course
// @Description Creates a course authored by the caller. tags and chapters are JSON encoded form fields.
// @Tags courses
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param title formData string true "Course title"
// @Param thumbnail formData file false "Thumbnail image"
// @Success 201 {object} models.Course
// @Failure 400 {object} dto.ErrorResponse "Validation failed"
// @Failure 403 {object} dto.ErrorResponse "Permission denied"
// @Router /courses/create [post]
func (c *CourseController) CreateCourse(ctx *gin.Context) {
	claims, ok := middleware.GetClaims(ctx)
	if !ok {
		middleware.HandleAPIError(ctx, errMissingClaims)
		return
	}

	var req dto.CreateCourseRequest
	if err := ctx.ShouldBind(&req); err != nil {
		middleware.HandleBindError(ctx, err)
		return
	}

	var upload *dto.Upload
	fileHeader, err := ctx.FormFile("thumbnail")
	switch {
	case err == nil:
		if fileHeader.Size > MaxThumbnailSize {
			middleware.HandleAPIError(ctx, apperrors.NewValidationError(apperrors.FieldError{
				Field:   "thumbnail",
				Message: fmt.Sprintf("thumbnail must be at most %d bytes", MaxThumbnailSize),
			}))
			return
		}
		file, err := fileHeader.Open()
		if err != nil {
			middleware.HandleAPIError(ctx, fmt.Errorf("error opening thumbnail: %w", err))
			return
		}
		defer file.Close()
		upload = &dto.Upload{Filename: fileHeader.Filename, Size: fileHeader.Size, Content: file}
	case errors.Is(err, http.ErrMissingFile):
		// Thumbnail is optional
	default:
		middleware.HandleBindError(ctx, err)
		return
	}

	course, err := c.courseService.CreateCourse(ctx.Request.Context(), claims.User.Email, &req, upload)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, course)
}

// ListCourses returns every course
// @Summary List courses
// @Tags courses
// @Produce json
// @Success 200 {array} models.Course
// @Router /courses [get]
func (c *CourseController) ListCourses(ctx *gin.Context) {
	courses, err := c.courseService.ListCourses(ctx.Request.Context())
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, courses)
}

// GetCourse returns one course
// @Summary Get a course
// @Tags courses
// @Produce json
// @Param id path string true "Course ID"
// @Success 200 {object} models.Course
// @Failure 404 {object} dto.ErrorResponse "Course not found"
// @Router /courses/{id} [get]
func (c *CourseController) GetCourse(ctx *gin.Context) {
	course, err := c.courseService.GetCourse(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, course)
}

// BuyCourse enrolls the caller in a course
// @Summary Buy a course
// @Tags courses
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.BuyCourseRequest true "Course to buy"
// @Success 200 {object} dto.MessageResponse
// @Failure 403 {object} dto.ErrorResponse "Permission denied"
// @Failure 404 {object} dto.ErrorResponse "Course not found"
// @Router /courses/buy [post]
func (c *CourseController) BuyCourse(ctx *gin.Context) {
	claims, ok := middleware.GetClaims(ctx)
	if !ok {
		middleware.HandleAPIError(ctx, errMissingClaims)
		return
	}

	var req dto.BuyCourseRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		middleware.HandleBindError(ctx, err)
		return
	}

	resp, err := c.enrollmentService.BuyCourse(ctx.Request.Context(), claims.User, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, resp)
}

// RecordProgress stores the caller's watched video count
// @Summary Record course progress
// @Tags courses
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Course ID"
// @Param request body dto.ProgressRequest true "Watched videos"
// @Success 200 {object} dto.ProgressResponse
// @Failure 404 {object} dto.ErrorResponse "Enrollment not found"
// @Router /courses/{id}/progress [post]
func (c *CourseController) RecordProgress(ctx *gin.Context) {
	claims, ok := middleware.GetClaims(ctx)
	if !ok {
		middleware.HandleAPIError(ctx, errMissingClaims)
		return
	}

	var req dto.ProgressRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		middleware.HandleBindError(ctx, err)
		return
	}

	resp, err := c.enrollmentService.RecordProgress(ctx.Request.Context(), claims.User, ctx.Param("id"), &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, resp)
}

// ListEnrolledStudents returns the roster of a course
// @Summary Course roster
// @Tags courses
// @Produce json
// @Security BearerAuth
// @Param id path string true "Course ID"
// @Success 200 {array} models.EnrolledStudent
// @Failure 403 {object} dto.ErrorResponse "Permission denied"
// @Failure 404 {object} dto.ErrorResponse "Course not found"
// @Router /courses/{id}/students [get]
func (c *CourseController) ListEnrolledStudents(ctx *gin.Context) {
	students, err := c.courseService.ListEnrolledStudents(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, students)
}

// ExportRoster downloads the roster as an xlsx workbook
// @Summary Export course roster
// @Tags courses
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security BearerAuth
// @Param id path string true "Course ID"
// @Success 200 {file} file
// @Router /courses/{id}/students/export [get]
func (c *CourseController) ExportRoster(ctx *gin.Context) {
	courseID := ctx.Param("id")
	buf, err := c.courseService.ExportRoster(ctx.Request.Context(), courseID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="roster-%s.xlsx"`, courseID))
	ctx.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}
