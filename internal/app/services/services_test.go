package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"github.com/yigit/coursemarket/internal/app/models"
	"github.com/yigit/coursemarket/internal/app/models/dto"
	"github.com/yigit/coursemarket/internal/app/repositories"
	"github.com/yigit/coursemarket/internal/app/repositories/memory"
	"github.com/yigit/coursemarket/internal/pkg/auth"
	"github.com/yigit/coursemarket/internal/pkg/email"
	"github.com/yigit/coursemarket/internal/pkg/filestorage"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type publishedEvent struct {
	topic   string
	payload interface{}
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (p *recordingPublisher) Publish(_ context.Context, topic string, payload interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{topic: topic, payload: payload})
	return nil
}

func (p *recordingPublisher) Topics() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	topics := make([]string, len(p.events))
	for i, e := range p.events {
		topics[i] = e.topic
	}
	return topics
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent map[string][]models.Notification
}

func (n *recordingNotifier) Notify(userID string, note models.Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.sent == nil {
		n.sent = map[string][]models.Notification{}
	}
	n.sent[userID] = append(n.sent[userID], note)
}

func (n *recordingNotifier) For(userID string) []models.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]models.Notification(nil), n.sent[userID]...)
}

type testEnv struct {
	repos       *repositories.Repositories
	clock       *fakeClock
	mailer      *email.Recorder
	denyList    *auth.MemoryDenyList
	publisher   *recordingPublisher
	notifier    *recordingNotifier
	storage     *filestorage.LocalStorage
	auth        *AuthService
	courses     *CourseService
	enrollments *EnrollmentService
	achievement *AchievementService
	users       UserService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	repos := memory.NewRepositories(memory.Open())
	clock := &fakeClock{t: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	storage, err := filestorage.NewLocalStorage(t.TempDir(), "http://localhost:8080/uploads")
	require.NoError(t, err)

	env := &testEnv{
		repos:     repos,
		clock:     clock,
		mailer:    &email.Recorder{},
		denyList:  auth.NewMemoryDenyList(),
		publisher: &recordingPublisher{},
		notifier:  &recordingNotifier{},
		storage:   storage,
	}

	jwtService := auth.NewJWTService(auth.JWTConfig{SecretKey: "test-secret", TokenIssuer: "coursemarket-test"})
	env.auth = NewAuthService(repos.Users, jwtService, env.denyList, env.mailer, time.Hour, zerolog.Nop()).WithClock(clock.Now)
	env.courses = NewCourseService(repos.Courses, repos.Users, storage, zerolog.Nop())
	env.enrollments = NewEnrollmentService(repos.Users, repos.Courses, env.publisher, zerolog.Nop())
	env.achievement = NewAchievementService(repos.Users, env.notifier, zerolog.Nop())
	env.users = NewUserService(repos.Users, zerolog.Nop())
	return env
}

// register creates an account through the auth service
func (e *testEnv) register(t *testing.T, username, emailAddr string, accountType models.AccountType) *dto.AuthResponse {
	t.Helper()
	resp, err := e.auth.Register(context.Background(), &dto.RegisterRequest{
		Username:    username,
		Email:       emailAddr,
		Password:    "secret123",
		AccountType: string(accountType),
	})
	require.NoError(t, err)
	return resp
}

func (e *testEnv) caller(resp *dto.AuthResponse) auth.UserClaims {
	return auth.UserClaims{ID: resp.User.ID, Email: resp.User.Email, AccountType: string(resp.User.AccountType)}
}

// createCourse stores a course authored by teacherEmail
func (e *testEnv) createCourse(t *testing.T, teacherEmail, title string, points, videos int) *models.Course {
	t.Helper()
	c, err := e.courses.CreateCourse(context.Background(), teacherEmail, &dto.CreateCourseRequest{
		Title:          title,
		Description:    "about " + title,
		GetPoints:      points,
		NumberOfVideos: videos,
		Tags:           `["go"]`,
		Chapters:       `[{"title":"Intro","topics":[{"title":"Hello","description":"d","videoUrl":"https://v/1","videoThumbnail":"https://t/1"}]}]`,
	}, nil)
	require.NoError(t, err)
	return c
}
