package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	appauth "github.com/yigit/coursemarket/internal/app/auth"
	"github.com/yigit/coursemarket/internal/app/controllers"
	"github.com/yigit/coursemarket/internal/middleware"
	"github.com/yigit/coursemarket/internal/pkg/websocket"
)

// SetupRouter configures all application routes
func SetupRouter(
	router *gin.Engine,
	authController *controllers.AuthController,
	courseController *controllers.CourseController,
	userController *controllers.UserController,
	notificationHandler *websocket.Handler,
	authMiddleware *middleware.AuthMiddleware,
	rateLimiter *middleware.RateLimiter,
) {
	api := router.Group("/api")

	// --- Public Auth routes ---
	auth := api.Group("/auth")
	{
		limited := auth.Group("")
		limited.Use(middleware.RateLimitMiddleware(rateLimiter))
		{
			limited.POST("/register", authController.Register)
			limited.POST("/login", authController.Login)
			limited.POST("/forgot-password", authController.ForgotPassword)
			limited.POST("/reset-password", authController.ResetPassword)
		}

		authProtected := auth.Group("")
		authProtected.Use(authMiddleware.JWTAuth())
		{
			authProtected.GET("/me", authController.Me)
			authProtected.POST("/logout", authController.Logout)
		}
	}

	// --- Course routes ---
	courses := api.Group("/courses")
	{
		courses.GET("", courseController.ListCourses)
		courses.GET("/:id", courseController.GetCourse)

		coursesProtected := courses.Group("")
		coursesProtected.Use(authMiddleware.JWTAuth())
		{
			coursesProtected.POST("/create",
				authMiddleware.RequireCapability(appauth.CapabilityAuthorCourse, ""),
				courseController.CreateCourse)
			coursesProtected.POST("/buy", courseController.BuyCourse)
			coursesProtected.POST("/:id/progress", courseController.RecordProgress)

			// Roster routes are limited to the course's instructor
			roster := coursesProtected.Group("/:id/students")
			roster.Use(authMiddleware.RequireCapability(appauth.CapabilityViewRoster, "id"))
			{
				roster.GET("", courseController.ListEnrolledStudents)
				roster.GET("/export", courseController.ExportRoster)
			}
		}
	}

	// --- User routes ---
	users := api.Group("/users")
	{
		users.GET("/recommended", userController.GetRecommended)

		usersProtected := users.Group("")
		usersProtected.Use(authMiddleware.JWTAuth())
		{
			usersProtected.GET("/user/:email", userController.GetUserByEmail)
			usersProtected.GET("/created/:email", userController.GetCreatedCourses)
		}
	}

	// --- Live notifications ---
	api.GET("/notifications/ws", authMiddleware.JWTAuth(), notificationHandler.HandleConnection)

	// Health check endpoint (public)
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}
