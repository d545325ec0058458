package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLevelFor(t *testing.T) {
	tests := []struct {
		points int
		want   string
	}{
		{0, LevelBeginner},
		{99, LevelBeginner},
		{100, LevelIntermediate},
		{299, LevelIntermediate},
		{300, LevelAdvanced},
		{699, LevelAdvanced},
		{700, LevelExpert},
		{5000, LevelExpert},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, LevelFor(tt.points), "points=%d", tt.points)
	}
}

func TestCourse_ProgressPercentage(t *testing.T) {
	c := &Course{NumberOfVideos: 4}
	assert.Equal(t, 0.0, c.ProgressPercentage(0))
	assert.Equal(t, 50.0, c.ProgressPercentage(2))
	assert.Equal(t, 100.0, c.ProgressPercentage(9))
	assert.Equal(t, 0.0, c.ProgressPercentage(-1))

	empty := &Course{}
	assert.Equal(t, 0.0, empty.ProgressPercentage(3))
}

func TestUser_Enrollment(t *testing.T) {
	u := NewUser("ada", "ada@example.com", "hash", AccountTypeStudent)
	assert.Equal(t, DefaultLevel, u.Level)
	assert.NotNil(t, u.Achievements)

	_, ok := u.Enrollment("c1")
	assert.False(t, ok)

	u.CoursesBought = append(u.CoursesBought, CourseProgress{CourseID: "c1", CourseTitle: "Go"})
	cp, ok := u.Enrollment("c1")
	assert.True(t, ok)
	cp.NumberOfVideosWatched = 3
	assert.Equal(t, 3, u.CoursesBought[0].NumberOfVideosWatched)

	assert.False(t, u.HasAchievement(AchievementFirstCourse))
	u.Achievements = append(u.Achievements, AchievementFirstCourse)
	assert.True(t, u.HasAchievement(AchievementFirstCourse))
}

func TestAccountType_IsValid(t *testing.T) {
	assert.True(t, AccountTypeStudent.IsValid())
	assert.True(t, AccountTypeTeacher.IsValid())
	assert.False(t, AccountType("admin").IsValid())
}
