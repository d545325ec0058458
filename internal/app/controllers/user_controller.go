package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yigit/coursemarket/internal/app/services"
	"github.com/yigit/coursemarket/internal/middleware"
	"github.com/yigit/coursemarket/internal/pkg/apperrors"
)

// Claims missing after JWTAuth means the route was wired without it
var errMissingClaims = apperrors.ErrTokenInvalid

// UserController handles user-related operations
type UserController struct {
	userService   services.UserService
	courseService *services.CourseService
}

// NewUserController creates a new user controller
func NewUserController(userService services.UserService, courseService *services.CourseService) *UserController {
	return &UserController{
		userService:   userService,
		courseService: courseService,
	}
}

// GetUserByEmail retrieves a user by email
// @Summary Get user by email
// @Description Retrieves a user without credentials or reset state
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param email path string true "User email"
// @Success 200 {object} dto.UserResponse
// @Failure 404 {object} dto.ErrorResponse "User not found"
// @Router /users/user/{email} [get]
func (c *UserController) GetUserByEmail(ctx *gin.Context) {
	user, err := c.userService.GetUserByEmail(ctx.Request.Context(), ctx.Param("email"))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, user)
}

// GetCreatedCourses lists the courses an instructor authored
// @Summary Courses created by a user
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param email path string true "Instructor email"
// @Success 200 {object} dto.CreatedCoursesResponse
// @Router /users/created/{email} [get]
func (c *UserController) GetCreatedCourses(ctx *gin.Context) {
	resp, err := c.courseService.ListCreatedCourses(ctx.Request.Context(), ctx.Param("email"))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, resp)
}

// GetRecommended returns the newest courses
// @Summary Recommended courses
// @Tags users
// @Produce json
// @Success 200 {array} models.Course
// @Router /users/recommended [get]
func (c *UserController) GetRecommended(ctx *gin.Context) {
	courses, err := c.courseService.ListRecommended(ctx.Request.Context())
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, courses)
}
