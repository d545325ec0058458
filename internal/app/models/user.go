package models

import (
	"time"
)

// CourseProgress is a user's purchase and progress record for one course
type CourseProgress struct {
	CourseID              string  `json:"course_id" db:"course_id" example:"6650c3f1a2b4c5d6e7f80912"`
	PercentageCompleted   float64 `json:"percentage_completed" db:"percentage_completed" example:"40"`
	NumberOfVideosWatched int     `json:"number_of_videos_watched" db:"number_of_videos_watched" example:"4"`
	CourseTitle           string  `json:"course_title" db:"course_title" example:"Intro to Go"`
}

// User defines a marketplace account
type User struct {
	ID                   string           `json:"id" db:"id"`
	Username             string           `json:"username" db:"username" example:"ada"`
	Email                string           `json:"email" db:"email" example:"ada@example.com"`
	Password             string           `json:"-" db:"password"` // bcrypt hash
	AccountType          AccountType      `json:"account_type" db:"account_type" example:"student"`
	LearnerPoints        int              `json:"learner_points" db:"learner_points" example:"120"`
	Level                string           `json:"level" db:"level" example:"Beginner"`
	Achievements         []string         `json:"achievements" db:"achievements"`
	CoursesBought        []CourseProgress `json:"courses_bought" db:"-"`
	Avatar               string           `json:"avatar" db:"avatar"`
	ResetPasswordToken   *string          `json:"-" db:"reset_password_token"`
	ResetPasswordExpires *time.Time       `json:"-" db:"reset_password_expires"`
	CreatedAt            time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt            time.Time        `json:"updated_at" db:"updated_at"`
}

// NewUser returns a user with the defaults every fresh account starts with
func NewUser(username, email, passwordHash string, accountType AccountType) *User {
	return &User{
		Username:      username,
		Email:         email,
		Password:      passwordHash,
		AccountType:   accountType,
		LearnerPoints: 0,
		Level:         DefaultLevel,
		Achievements:  []string{},
		CoursesBought: []CourseProgress{},
		Avatar:        "",
	}
}

// Enrollment returns the progress record for courseID, if the user owns it
func (u *User) Enrollment(courseID string) (*CourseProgress, bool) {
	for i := range u.CoursesBought {
		if u.CoursesBought[i].CourseID == courseID {
			return &u.CoursesBought[i], true
		}
	}
	return nil, false
}

// HasAchievement reports whether label was already awarded
func (u *User) HasAchievement(label string) bool {
	for _, a := range u.Achievements {
		if a == label {
			return true
		}
	}
	return false
}

// EnrolledStudent is the roster projection of a user
type EnrolledStudent struct {
	Username      string `json:"username"`
	Email         string `json:"email"`
	Level         string `json:"level"`
	LearnerPoints int    `json:"learner_points"`
}
