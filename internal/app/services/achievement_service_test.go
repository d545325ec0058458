package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/coursemarket/internal/app/models"
	"github.com/yigit/coursemarket/internal/app/models/dto"
	"github.com/yigit/coursemarket/internal/pkg/events"
)

func notificationTypes(notes []models.Notification) []models.NotificationType {
	types := make([]models.NotificationType, len(notes))
	for i, n := range notes {
		types[i] = n.Type
	}
	return types
}

func TestAchievementService_FirstCourseAndLevel(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.register(t, "prof", "prof@example.com", models.AccountTypeTeacher)
	course := env.createCourse(t, "prof@example.com", "Big", 150, 2)
	student := env.register(t, "amy", "amy@example.com", models.AccountTypeStudent)

	_, err := env.enrollments.BuyCourse(ctx, env.caller(student), &dto.BuyCourseRequest{CourseID: course.ID})
	require.NoError(t, err)
	require.NoError(t, env.achievement.Evaluate(ctx, student.User.ID))

	me, err := env.auth.GetCurrentUser(ctx, student.User.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{models.AchievementFirstCourse}, me.Achievements)
	assert.Equal(t, models.LevelIntermediate, me.Level)

	notes := env.notifier.For(student.User.ID)
	assert.Equal(t, []models.NotificationType{models.NotificationAchievement, models.NotificationLevelUp}, notificationTypes(notes))

	// evaluating again awards nothing new
	require.NoError(t, env.achievement.Evaluate(ctx, student.User.ID))
	assert.Len(t, env.notifier.For(student.User.ID), 2)
}

func TestAchievementService_AllRules(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.register(t, "prof", "prof@example.com", models.AccountTypeTeacher)
	student := env.register(t, "amy", "amy@example.com", models.AccountTypeStudent)
	caller := env.caller(student)

	var first *models.Course
	for i := 0; i < 5; i++ {
		c := env.createCourse(t, "prof@example.com", fmt.Sprintf("C%d", i), 150, 2)
		if first == nil {
			first = c
		}
		_, err := env.enrollments.BuyCourse(ctx, caller, &dto.BuyCourseRequest{CourseID: c.ID})
		require.NoError(t, err)
	}
	_, err := env.enrollments.RecordProgress(ctx, caller, first.ID, &dto.ProgressRequest{NumberOfVideosWatched: 2})
	require.NoError(t, err)

	require.NoError(t, env.achievement.Evaluate(ctx, student.User.ID))

	me, err := env.auth.GetCurrentUser(ctx, student.User.ID)
	require.NoError(t, err)
	assert.Equal(t, 750, me.LearnerPoints)
	assert.Equal(t, models.LevelExpert, me.Level)
	assert.Equal(t, []string{
		models.AchievementFirstCourse,
		models.AchievementAvidLearner,
		models.AchievementPointCollector,
		models.AchievementCourseFinisher,
	}, me.Achievements)
}

func TestAchievementService_HandlersRejectBadPayload(t *testing.T) {
	env := newTestEnv(t)
	assert.Error(t, env.achievement.HandleEnrolled(context.Background(), []byte("{")))
	assert.Error(t, env.achievement.HandleProgress(context.Background(), []byte("nope")))
}

func TestAchievementService_ConsumesBusEvents(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	bus := events.NewGoChannelBus()
	env.achievement.Register(bus)
	runCtx, cancel := context.WithCancel(ctx)
	go func() { _ = bus.Run(runCtx) }()
	t.Cleanup(func() {
		cancel()
		_ = bus.Close()
	})
	<-bus.Running()

	enrollments := NewEnrollmentService(env.repos.Users, env.repos.Courses, bus, zerolog.Nop())
	env.register(t, "prof", "prof@example.com", models.AccountTypeTeacher)
	course := env.createCourse(t, "prof@example.com", "Evented", 120, 1)
	student := env.register(t, "amy", "amy@example.com", models.AccountTypeStudent)

	_, err := enrollments.BuyCourse(ctx, env.caller(student), &dto.BuyCourseRequest{CourseID: course.ID})
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		me, err := env.auth.GetCurrentUser(ctx, student.User.ID)
		return err == nil && me.Level == models.LevelIntermediate && len(me.Achievements) == 1
	}, 5*time.Second, 20*time.Millisecond)

	notes := env.notifier.For(student.User.ID)
	require.NotEmpty(t, notes)
	assert.Equal(t, models.NotificationEnrollment, notes[0].Type)
	assert.Equal(t, course.ID, notes[0].Data["course_id"])
}
