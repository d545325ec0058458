// Package events carries domain events between services over watermill.
package events

import (
	"time"
)

// Topics
const (
	TopicCourseEnrolled = "course.enrolled"
	TopicCourseProgress = "course.progress"
)

// CourseEnrolled is published once per new purchase
type CourseEnrolled struct {
	UserID      string    `json:"user_id"`
	CourseID    string    `json:"course_id"`
	CourseTitle string    `json:"course_title"`
	Points      int       `json:"points"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// ProgressRecorded is published whenever a student reports watched videos
type ProgressRecorded struct {
	UserID                string    `json:"user_id"`
	CourseID              string    `json:"course_id"`
	NumberOfVideosWatched int       `json:"number_of_videos_watched"`
	PercentageCompleted   float64   `json:"percentage_completed"`
	OccurredAt            time.Time `json:"occurred_at"`
}
