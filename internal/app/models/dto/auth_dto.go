package dto

import (
	"time"

	"github.com/yigit/coursemarket/internal/app/models"
)

// RegisterRequest represents a registration form
type RegisterRequest struct {
	Username    string `json:"username" validate:"required"`
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=6,maxbytes=72"`
	AccountType string `json:"account_type" validate:"required,oneof=student teacher"`
}

// LoginRequest represents login credentials
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// ForgotPasswordRequest starts a password reset
type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// ResetPasswordRequest completes a password reset with the mailed code
type ResetPasswordRequest struct {
	Token       string `json:"token" validate:"required"`
	Email       string `json:"email" validate:"required,email"`
	NewPassword string `json:"newPassword" validate:"required,min=6,maxbytes=72"`
}

// UserResponse is a user without credentials or reset state
type UserResponse struct {
	ID            string                  `json:"id"`
	Username      string                  `json:"username"`
	Email         string                  `json:"email"`
	AccountType   models.AccountType      `json:"account_type"`
	LearnerPoints int                     `json:"learner_points"`
	Level         string                  `json:"level"`
	Achievements  []string                `json:"achievements"`
	CoursesBought []models.CourseProgress `json:"courses_bought"`
	Avatar        string                  `json:"avatar"`
	CreatedAt     time.Time               `json:"created_at"`
}

// NewUserResponse redacts a stored user
func NewUserResponse(u *models.User) *UserResponse {
	if u == nil {
		return nil
	}
	resp := &UserResponse{
		ID:            u.ID,
		Username:      u.Username,
		Email:         u.Email,
		AccountType:   u.AccountType,
		LearnerPoints: u.LearnerPoints,
		Level:         u.Level,
		Achievements:  u.Achievements,
		CoursesBought: u.CoursesBought,
		Avatar:        u.Avatar,
		CreatedAt:     u.CreatedAt,
	}
	if resp.Achievements == nil {
		resp.Achievements = []string{}
	}
	if resp.CoursesBought == nil {
		resp.CoursesBought = []models.CourseProgress{}
	}
	return resp
}

// AuthResponse is returned by register and login
type AuthResponse struct {
	Token string        `json:"token"`
	User  *UserResponse `json:"user"`
}
