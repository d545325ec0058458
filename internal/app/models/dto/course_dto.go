package dto

import (
	"io"

	"github.com/yigit/coursemarket/internal/app/models"
)

// CreateCourseRequest is the decoded multipart course form.
// Tags and Chapters arrive as JSON encoded strings.
type CreateCourseRequest struct {
	Title          string `form:"title" validate:"required"`
	Description    string `form:"description"`
	GetPoints      int    `form:"get_points" validate:"min=0"`
	NumberOfVideos int    `form:"number_of_videos" validate:"min=0"`
	Tags           string `form:"tags"`
	Chapters       string `form:"chapters"`
}

// Upload is an uploaded file handed to a service
type Upload struct {
	Filename string
	Size     int64
	Content  io.Reader
}

// BuyCourseRequest enrolls the caller in a course.
// UserEmail is optional and must match the caller when present.
type BuyCourseRequest struct {
	CourseID  string `json:"courseId" validate:"required"`
	UserEmail string `json:"userEmail,omitempty" validate:"omitempty,email"`
}

// ProgressRequest records how many videos of a course were watched
type ProgressRequest struct {
	NumberOfVideosWatched int `json:"number_of_videos_watched" validate:"min=0"`
}

// ProgressResponse echoes the updated progress record
type ProgressResponse struct {
	Message  string                `json:"message"`
	Progress models.CourseProgress `json:"progress"`
}

// CreatedCoursesResponse lists courses authored by one instructor
type CreatedCoursesResponse struct {
	CreatedCourses []*models.Course `json:"created_courses"`
}
