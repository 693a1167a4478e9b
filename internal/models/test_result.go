package models

import "time"

// TestResult records the judge's outcome for one (submission, test
// case) pair. One row is created per test case at dispatch time with
// the judge's token; the reconciliation pass overwrites it exactly
// once with a terminal judge status.
type TestResult struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	SubmissionID uint      `gorm:"not null;index" json:"submission_id"`
	TestCaseID   uint      `gorm:"not null" json:"testcase_id"`
	Token        string    `gorm:"size:64;index" json:"token"`
	Status       string    `gorm:"size:64;not null" json:"status"`
	Stdout       string    `gorm:"type:text" json:"stdout"`
	Stderr       string    `gorm:"type:text" json:"stderr"`
	TimeSec      float64   `gorm:"default:0" json:"time_sec"`
	MemoryKB     int64     `gorm:"default:0" json:"memory_kb"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	TestCase     TestCase  `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
}
