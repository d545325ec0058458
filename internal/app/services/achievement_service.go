package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/yigit/coursemarket/internal/app/models"
	"github.com/yigit/coursemarket/internal/app/repositories"
	"github.com/yigit/coursemarket/internal/pkg/events"
)

// Notifier pushes a notification to one user's live feed
type Notifier interface {
	Notify(userID string, n models.Notification)
}

// EventSubscriber registers event handlers
type EventSubscriber interface {
	Subscribe(name, topic string, handler events.HandlerFunc)
}

type achievementRule struct {
	label   string
	earned  func(u *models.User) bool
	message string
}

var achievementRules = []achievementRule{
	{
		label:   models.AchievementFirstCourse,
		earned:  func(u *models.User) bool { return len(u.CoursesBought) >= 1 },
		message: "You bought your first course.",
	},
	{
		label:   models.AchievementAvidLearner,
		earned:  func(u *models.User) bool { return len(u.CoursesBought) >= 5 },
		message: "You own five courses.",
	},
	{
		label:   models.AchievementPointCollector,
		earned:  func(u *models.User) bool { return u.LearnerPoints >= 500 },
		message: "You collected 500 learner points.",
	},
	{
		label: models.AchievementCourseFinisher,
		earned: func(u *models.User) bool {
			for _, cp := range u.CoursesBought {
				if cp.PercentageCompleted >= 100 {
					return true
				}
			}
			return false
		},
		message: "You finished a course.",
	},
}

// AchievementService awards levels and achievements from enrollment events
type AchievementService struct {
	userRepo repositories.UserRepository
	notifier Notifier
	now      func() time.Time
	logger   zerolog.Logger
}

// NewAchievementService creates a new AchievementService. notifier may be nil.
func NewAchievementService(userRepo repositories.UserRepository, notifier Notifier, logger zerolog.Logger) *AchievementService {
	return &AchievementService{
		userRepo: userRepo,
		notifier: notifier,
		now:      time.Now,
		logger:   logger,
	}
}

// Register subscribes the service to the enrollment topics
func (s *AchievementService) Register(bus EventSubscriber) {
	bus.Subscribe("achievements_on_enrolled", events.TopicCourseEnrolled, s.HandleEnrolled)
	bus.Subscribe("achievements_on_progress", events.TopicCourseProgress, s.HandleProgress)
}

func (s *AchievementService) notify(userID string, n models.Notification) {
	if s.notifier == nil {
		return
	}
	n.Timestamp = s.now().UTC()
	s.notifier.Notify(userID, n)
}

// HandleEnrolled reacts to a course.enrolled event
func (s *AchievementService) HandleEnrolled(ctx context.Context, payload []byte) error {
	var evt events.CourseEnrolled
	if err := json.Unmarshal(payload, &evt); err != nil {
		return fmt.Errorf("invalid %s payload: %w", events.TopicCourseEnrolled, err)
	}

	s.notify(evt.UserID, models.Notification{
		Type:    models.NotificationEnrollment,
		Title:   "Course bought",
		Message: fmt.Sprintf("You are now enrolled in %s and earned %d points.", evt.CourseTitle, evt.Points),
		Data: map[string]interface{}{
			"course_id": evt.CourseID,
			"points":    evt.Points,
		},
	})

	return s.Evaluate(ctx, evt.UserID)
}

// HandleProgress reacts to a course.progress event
func (s *AchievementService) HandleProgress(ctx context.Context, payload []byte) error {
	var evt events.ProgressRecorded
	if err := json.Unmarshal(payload, &evt); err != nil {
		return fmt.Errorf("invalid %s payload: %w", events.TopicCourseProgress, err)
	}
	return s.Evaluate(ctx, evt.UserID)
}

// Evaluate stores any newly earned achievements and the current level
func (s *AchievementService) Evaluate(ctx context.Context, userID string) error {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	var awarded []achievementRule
	for _, rule := range achievementRules {
		if !user.HasAchievement(rule.label) && rule.earned(user) {
			awarded = append(awarded, rule)
		}
	}

	if len(awarded) > 0 {
		labels := make([]string, len(awarded))
		for i, rule := range awarded {
			labels[i] = rule.label
		}
		if err := s.userRepo.AddAchievements(ctx, user.ID, labels...); err != nil {
			return fmt.Errorf("error storing achievements: %w", err)
		}
		for _, rule := range awarded {
			s.notify(user.ID, models.Notification{
				Type:    models.NotificationAchievement,
				Title:   rule.label,
				Message: rule.message,
				Data:    map[string]interface{}{"achievement": rule.label},
			})
		}
		s.logger.Info().Str("userID", user.ID).Strs("achievements", labels).Msg("Achievements awarded")
	}

	level := models.LevelFor(user.LearnerPoints)
	if level != user.Level {
		if err := s.userRepo.SetLevel(ctx, user.ID, level); err != nil {
			return fmt.Errorf("error storing level: %w", err)
		}
		s.notify(user.ID, models.Notification{
			Type:    models.NotificationLevelUp,
			Title:   "New level",
			Message: fmt.Sprintf("You reached the %s level.", level),
			Data: map[string]interface{}{
				"level":          level,
				"learner_points": user.LearnerPoints,
			},
		})
	}

	return nil
}
