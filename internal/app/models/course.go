package models

import "time"

// Instructor is the creator snapshot copied onto a course at creation time.
// It is never refreshed when the creator's profile changes.
type Instructor struct {
	Name   string `json:"name" db:"instructor_name"`
	Email  string `json:"email" db:"instructor_email"`
	Avatar string `json:"avatar" db:"instructor_avatar"`
}

// Topic is a single lesson inside a chapter
type Topic struct {
	Title          string `json:"title"`
	Description    string `json:"description"`
	VideoURL       string `json:"videoUrl"`
	VideoThumbnail string `json:"videoThumbnail"`
}

// Chapter groups topics
type Chapter struct {
	Title  string  `json:"title"`
	Topics []Topic `json:"topics"`
}

// Course is a purchasable unit of content
type Course struct {
	ID             string     `json:"id" db:"id"`
	Title          string     `json:"title" db:"title" example:"Intro to Go"`
	Description    string     `json:"description" db:"description"`
	Tags           []string   `json:"tags" db:"tags"`
	NumberOfVideos int        `json:"number_of_videos" db:"number_of_videos" example:"10"`
	GetPoints      int        `json:"get_points" db:"get_points" example:"50"`
	Thumbnail      string     `json:"thumbnail" db:"thumbnail"`
	Instructor     Instructor `json:"instructor"`
	Chapters       []Chapter  `json:"chapters" db:"chapters"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
}

// ProgressPercentage converts watched videos into a completion percentage
// clamped to [0, 100]. A course without videos reports 0.
func (c *Course) ProgressPercentage(watched int) float64 {
	if c.NumberOfVideos <= 0 || watched <= 0 {
		return 0
	}
	if watched >= c.NumberOfVideos {
		return 100
	}
	return float64(watched) / float64(c.NumberOfVideos) * 100
}
