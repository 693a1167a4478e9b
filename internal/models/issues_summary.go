package models

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"
)

// LearningIssue is one recurring conceptual difficulty inferred from
// a student's submissions. Issues accumulate: the frequency counter
// and related ids only ever grow.
type LearningIssue struct {
	Type        string    `json:"type"`
	Description string    `json:"description"`
	Frequency   int       `json:"frequency"`
	RelatedIDs  []uint    `json:"related_ids"`
	LastSeen    time.Time `json:"last_seen"`
}

// IssuesSummary is the durable per-(student, course) record of
// learning issues. Created lazily on the first detected issue and
// mutated additively forever; this subsystem never deletes it.
type IssuesSummary struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	StudentID uint           `gorm:"not null;uniqueIndex:idx_student_course" json:"student_id"`
	CourseID  uint           `gorm:"not null;uniqueIndex:idx_student_course" json:"course_id"`
	Issues    datatypes.JSON `json:"issues"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// IssueList decodes the stored issues blob. An empty blob decodes to
// an empty slice.
func (s IssuesSummary) IssueList() ([]LearningIssue, error) {
	if len(s.Issues) == 0 {
		return nil, nil
	}

	var issues []LearningIssue
	if err := json.Unmarshal(s.Issues, &issues); err != nil {
		return nil, fmt.Errorf("decode issues summary: %w", err)
	}
	return issues, nil
}

// SetIssueList encodes the issue slice back onto the summary.
func (s *IssuesSummary) SetIssueList(issues []LearningIssue) error {
	encoded, err := json.Marshal(issues)
	if err != nil {
		return fmt.Errorf("encode issues summary: %w", err)
	}
	s.Issues = datatypes.JSON(encoded)
	return nil
}
