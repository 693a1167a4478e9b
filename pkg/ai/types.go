package ai

import (
	"context"
	"fmt"
)

// KnownIssue is a previously recorded learning issue handed back to
// the oracle so it can distinguish recurring issues from new ones.
type KnownIssue struct {
	Type        string `json:"type"`
	Description string `json:"description"`
	Frequency   int    `json:"frequency"`
}

// AnalysisInput contains the artefacts the oracle needs to
// characterize learning issues from a graded submission.
type AnalysisInput struct {
	CourseTitle         string
	CourseObjectives    string
	ExerciseTitle       string
	ExerciseDescription string
	Language            string
	SubmissionSource    string
	KnownIssues         []KnownIssue
}

// ReportedIssue is one learning issue detected by the oracle.
type ReportedIssue struct {
	Type        string `json:"type"`
	Description string `json:"description"`
}

// AnalysisResult is the structured response returned by the oracle.
// An empty issue list means "no issues detected", never "clear all".
type AnalysisResult struct {
	Issues []ReportedIssue        `json:"issues"`
	Raw    map[string]interface{} `json:"raw,omitempty"`
}

// OracleError wraps a failed oracle invocation. Callers treat it as
// retryable.
type OracleError struct {
	Err error
}

func (e *OracleError) Error() string { return fmt.Sprintf("analysis oracle: %v", e.Err) }
func (e *OracleError) Unwrap() error { return e.Err }

// Analyzer describes an AI model capable of mining learning issues
// from submitted code.
type Analyzer interface {
	Analyze(ctx context.Context, input AnalysisInput) (AnalysisResult, error)
}
