package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/codyssea/codyssea-go-api/internal/models"
)

// IssuesSummaryRepository exposes read and upsert access to the
// per-(student, course) learning issues summary.
type IssuesSummaryRepository interface {
	GetByStudentCourse(ctx context.Context, studentID, courseID uint) (models.IssuesSummary, error)
	Save(ctx context.Context, summary *models.IssuesSummary) error
}

// NewIssuesSummaryRepository constructs an issues summary repository.
func NewIssuesSummaryRepository(db *gorm.DB) IssuesSummaryRepository {
	return &issuesSummaryRepository{db: db}
}

type issuesSummaryRepository struct {
	db *gorm.DB
}

func (r *issuesSummaryRepository) GetByStudentCourse(ctx context.Context, studentID, courseID uint) (models.IssuesSummary, error) {
	var summary models.IssuesSummary
	err := r.db.WithContext(ctx).
		Where("student_id = ? AND course_id = ?", studentID, courseID).
		First(&summary).Error
	if err != nil {
		return models.IssuesSummary{}, err
	}
	return summary, nil
}

// Save upserts the summary keyed by (student_id, course_id). The
// merged issue list is written as one atomic row write.
func (r *issuesSummaryRepository) Save(ctx context.Context, summary *models.IssuesSummary) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "student_id"}, {Name: "course_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"issues", "updated_at"}),
		}).
		Create(summary).Error
}
