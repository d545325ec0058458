package models

// AccountType defines the user role
type AccountType string

const (
	AccountTypeStudent AccountType = "student"
	AccountTypeTeacher AccountType = "teacher"
)

// IsValid reports whether t is one of the known account types
func (t AccountType) IsValid() bool {
	return t == AccountTypeStudent || t == AccountTypeTeacher
}

// Level names, lowest first
const (
	LevelBeginner     = "Beginner"
	LevelIntermediate = "Intermediate"
	LevelAdvanced     = "Advanced"
	LevelExpert       = "Expert"
)

// DefaultLevel is assigned to every new user
const DefaultLevel = LevelBeginner

// LevelFor maps learner points to a level name
func LevelFor(points int) string {
	switch {
	case points < 100:
		return LevelBeginner
	case points < 300:
		return LevelIntermediate
	case points < 700:
		return LevelAdvanced
	default:
		return LevelExpert
	}
}

// Achievement labels
const (
	AchievementFirstCourse    = "First Course"
	AchievementAvidLearner    = "Avid Learner"
	AchievementPointCollector = "Point Collector"
	AchievementCourseFinisher = "Course Finisher"
)
