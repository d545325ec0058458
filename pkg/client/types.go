package client

import "time"

// CourseProgress is the caller's purchase record for one course
type CourseProgress struct {
	CourseID              string  `json:"course_id"`
	PercentageCompleted   float64 `json:"percentage_completed"`
	NumberOfVideosWatched int     `json:"number_of_videos_watched"`
	CourseTitle           string  `json:"course_title"`
}

// User is an account as returned by the API
type User struct {
	ID            string           `json:"id"`
	Username      string           `json:"username"`
	Email         string           `json:"email"`
	AccountType   string           `json:"account_type"`
	LearnerPoints int              `json:"learner_points"`
	Level         string           `json:"level"`
	Achievements  []string         `json:"achievements"`
	CoursesBought []CourseProgress `json:"courses_bought"`
	Avatar        string           `json:"avatar"`
	CreatedAt     time.Time        `json:"created_at"`
}

// Progress returns the record for courseID when the user owns it
func (u *User) Progress(courseID string) (*CourseProgress, bool) {
	if u == nil {
		return nil, false
	}
	for i := range u.CoursesBought {
		if u.CoursesBought[i].CourseID == courseID {
			p := u.CoursesBought[i]
			return &p, true
		}
	}
	return nil, false
}

type Instructor struct {
	Name   string `json:"name"`
	Email  string `json:"email"`
	Avatar string `json:"avatar"`
}

type Topic struct {
	Title          string `json:"title"`
	Description    string `json:"description"`
	VideoURL       string `json:"videoUrl"`
	VideoThumbnail string `json:"videoThumbnail"`
}

type Chapter struct {
	Title  string  `json:"title"`
	Topics []Topic `json:"topics"`
}

// Course is a catalog entry
type Course struct {
	ID             string     `json:"id"`
	Title          string     `json:"title"`
	Description    string     `json:"description"`
	Tags           []string   `json:"tags"`
	NumberOfVideos int        `json:"number_of_videos"`
	GetPoints      int        `json:"get_points"`
	Thumbnail      string     `json:"thumbnail"`
	Instructor     Instructor `json:"instructor"`
	Chapters       []Chapter  `json:"chapters"`
	CreatedAt      time.Time  `json:"created_at"`
}

// CourseDetail is a course reconciled with the caller's account
type CourseDetail struct {
	Course   *Course
	Owned    bool
	Progress *CourseProgress
}

// RegisterRequest creates an account
type RegisterRequest struct {
	Username    string `json:"username"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	AccountType string `json:"account_type"`
}

type authResponse struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type errorResponse struct {
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}
