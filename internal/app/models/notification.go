package models

import "time"

// NotificationType classifies live feed entries
type NotificationType string

const (
	NotificationEnrollment  NotificationType = "enrollment"
	NotificationLevelUp     NotificationType = "level_up"
	NotificationAchievement NotificationType = "achievement"
)

// Notification is one entry of a user's live feed
type Notification struct {
	Type      NotificationType       `json:"type"`
	Title     string                 `json:"title"`
	Message   string                 `json:"message"`
	Data      map[string]interface{} `json:"data,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}
