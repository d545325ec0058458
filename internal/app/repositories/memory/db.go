package memory

import (
	"sync"

	"github.com/yigit/coursemarket/internal/app/models"
	"github.com/yigit/coursemarket/internal/app/repositories"
)

type (
	// DB is a process-local store used for development and tests
	DB struct {
		users   *userTable
		courses *courseTable
	}

	userTable struct {
		table   map[string]*models.User
		byEmail map[string]string
		mutex   sync.RWMutex
	}

	courseTable struct {
		table map[string]*models.Course
		order []string
		mutex sync.RWMutex
	}
)

// Open creates an empty store
func Open() *DB {
	return &DB{
		users: &userTable{
			table:   make(map[string]*models.User),
			byEmail: make(map[string]string),
		},
		courses: &courseTable{table: make(map[string]*models.Course)},
	}
}

// NewRepositories wires both repositories over one store
func NewRepositories(db *DB) *repositories.Repositories {
	return &repositories.Repositories{
		Users:   NewUserRepository(db),
		Courses: NewCourseRepository(db),
	}
}

func cloneUser(u *models.User) *models.User {
	c := *u
	c.Achievements = append([]string{}, u.Achievements...)
	c.CoursesBought = append([]models.CourseProgress{}, u.CoursesBought...)
	if u.ResetPasswordToken != nil {
		tok := *u.ResetPasswordToken
		c.ResetPasswordToken = &tok
	}
	if u.ResetPasswordExpires != nil {
		exp := *u.ResetPasswordExpires
		c.ResetPasswordExpires = &exp
	}
	return &c
}

func cloneCourse(c *models.Course) *models.Course {
	out := *c
	out.Tags = append([]string{}, c.Tags...)
	out.Chapters = make([]models.Chapter, len(c.Chapters))
	for i, ch := range c.Chapters {
		out.Chapters[i] = models.Chapter{Title: ch.Title, Topics: append([]models.Topic{}, ch.Topics...)}
	}
	return &out
}
