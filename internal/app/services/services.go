package services

// Services defined in this package:
// - AuthService: registration, login, password reset and session tokens
// - CourseService: course catalog, rosters and roster export
// - EnrollmentService: course purchases and progress tracking
// - AchievementService: levels and achievements driven by enrollment events
// - UserService: user lookups
