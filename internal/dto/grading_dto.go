package dto

import (
	"time"

	"github.com/codyssea/codyssea-go-api/internal/models"
)

// GradingSubmissionRequest represents the payload for creating a
// grading submission.
type GradingSubmissionRequest struct {
	ExerciseID uint   `json:"exercise_id" validate:"required,gt=0"`
	LanguageID int    `json:"language_id" validate:"required,gt=0"`
	Source     string `json:"source" validate:"required,min=1"`
}

// GradingSubmissionResponse represents a grading submission to API
// consumers.
type GradingSubmissionResponse struct {
	ID         uint                 `json:"id"`
	ExerciseID uint                 `json:"exercise_id"`
	StudentID  uint                 `json:"student_id"`
	LanguageID int                  `json:"language_id"`
	Source     string               `json:"source,omitempty"`
	Status     string               `json:"status"`
	Score      *float64             `json:"score,omitempty"`
	Results    []TestResultResponse `json:"results,omitempty"`
	CreatedAt  time.Time            `json:"created_at"`
}

// TestResultResponse is the per-test-case view of a submission.
// Output of hidden test cases is withheld from this surface.
type TestResultResponse struct {
	TestCaseID uint    `json:"testcase_id"`
	Status     string  `json:"status"`
	Stdout     string  `json:"stdout,omitempty"`
	Stderr     string  `json:"stderr,omitempty"`
	TimeSec    float64 `json:"time_sec"`
	MemoryKB   int64   `json:"memory_kb"`
	Hidden     bool    `json:"hidden"`
}

// SubmissionStatsResponse carries the pass/fail counts for a submission.
type SubmissionStatsResponse struct {
	SubmissionID uint `json:"submission_id"`
	Passed       int  `json:"passed"`
	Total        int  `json:"total"`
}

// NewGradingSubmissionResponse builds a response DTO from a model.
func NewGradingSubmissionResponse(submission models.GradingSubmission, includeSource bool) GradingSubmissionResponse {
	response := GradingSubmissionResponse{
		ID:         submission.ID,
		ExerciseID: submission.ExerciseID,
		StudentID:  submission.StudentID,
		LanguageID: submission.LanguageID,
		Status:     submission.Status,
		Score:      submission.Score,
		CreatedAt:  submission.CreatedAt,
	}

	if includeSource {
		response.Source = submission.Source
	}

	if len(submission.Results) > 0 {
		results := make([]TestResultResponse, 0, len(submission.Results))
		for _, result := range submission.Results {
			results = append(results, NewTestResultResponse(result))
		}
		response.Results = results
	}

	return response
}

// NewTestResultResponse converts a TestResult model into a DTO,
// masking the output of hidden test cases.
func NewTestResultResponse(result models.TestResult) TestResultResponse {
	response := TestResultResponse{
		TestCaseID: result.TestCaseID,
		Status:     result.Status,
		TimeSec:    result.TimeSec,
		MemoryKB:   result.MemoryKB,
		Hidden:     result.TestCase.Hidden,
	}

	if !result.TestCase.Hidden {
		response.Stdout = result.Stdout
		response.Stderr = result.Stderr
	}

	return response
}
