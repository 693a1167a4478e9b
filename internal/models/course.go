package models

import "time"

// Course groups exercises and carries the context the analysis oracle
// receives alongside a student's code.
type Course struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Title      string    `gorm:"size:255;not null" json:"title"`
	Objectives string    `gorm:"type:text" json:"objectives"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Exercise is a programming exercise students submit code against.
type Exercise struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	CourseID    uint      `gorm:"not null;index" json:"course_id"`
	Title       string    `gorm:"size:255;not null" json:"title"`
	Description string    `gorm:"type:text" json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Course      Course    `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
}

// TestCase belongs to an exercise and is immutable after authoring.
// Hidden cases are still executed; they are only withheld from the
// reporting surface.
type TestCase struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	ExerciseID     uint      `gorm:"not null;index" json:"exercise_id"`
	Input          string    `gorm:"type:text" json:"input"`
	ExpectedOutput string    `gorm:"type:text" json:"expected_output"`
	Hidden         bool      `gorm:"default:false" json:"hidden"`
	Weight         float64   `gorm:"default:1" json:"weight"`
	CreatedAt      time.Time `json:"created_at"`
}

// ExerciseLanguage holds the per-language execution configuration for
// an exercise: judge limits and optional boilerplate wrapped around
// the student's code.
type ExerciseLanguage struct {
	ID              uint    `gorm:"primaryKey" json:"id"`
	ExerciseID      uint    `gorm:"not null;uniqueIndex:idx_exercise_language" json:"exercise_id"`
	LanguageID      int     `gorm:"not null;uniqueIndex:idx_exercise_language" json:"language_id"`
	CPUTimeLimitSec float64 `gorm:"default:2" json:"cpu_time_limit_sec"`
	MemoryLimitKB   int     `gorm:"default:128000" json:"memory_limit_kb"`
	Boilerplate     string  `gorm:"type:text" json:"boilerplate"`
}
