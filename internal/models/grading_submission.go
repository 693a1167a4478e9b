package models

import "time"

// GradingSubmissionStatus enumerates possible submission states.
const (
	GradingSubmissionStatusPending   = "pending"
	GradingSubmissionStatusCompleted = "completed"
	GradingSubmissionStatusFailed    = "failed"
)

// GradingSubmission represents a single grading attempt of a
// student's source code against an exercise. Source is immutable once
// created; status only ever moves pending -> completed/failed.
type GradingSubmission struct {
	ID         uint         `gorm:"primaryKey" json:"id"`
	StudentID  uint         `gorm:"not null;index" json:"student_id"`
	ExerciseID uint         `gorm:"not null;index" json:"exercise_id"`
	LanguageID int          `gorm:"not null" json:"language_id"`
	Source     string       `gorm:"type:text;not null" json:"source"`
	Status     string       `gorm:"size:32;not null" json:"status"`
	Score      *float64     `json:"score,omitempty"`
	CreatedAt  time.Time    `json:"created_at"`
	UpdatedAt  time.Time    `json:"updated_at"`
	Exercise   Exercise     `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	Results    []TestResult `gorm:"foreignKey:SubmissionID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"results,omitempty"`
}

// IsTerminal reports whether the submission has reached a final state.
func (s GradingSubmission) IsTerminal() bool {
	return s.Status == GradingSubmissionStatusCompleted || s.Status == GradingSubmissionStatusFailed
}
