package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/codyssea/codyssea-go-api/internal/models"
	"github.com/codyssea/codyssea-go-api/pkg/judge"
)

// GradingSubmissionRepository exposes persistence helpers for grading
// submissions and their per-test-case results.
type GradingSubmissionRepository interface {
	Create(ctx context.Context, submission *models.GradingSubmission) error
	Update(ctx context.Context, submission *models.GradingSubmission) error
	GetByID(ctx context.Context, id uint) (models.GradingSubmission, error)
	CreateResults(ctx context.Context, results []models.TestResult) error
	ListResults(ctx context.Context, submissionID uint) ([]models.TestResult, error)
	ApplyReconciliation(ctx context.Context, submission *models.GradingSubmission, results []models.TestResult) error
}

// NewGradingSubmissionRepository constructs a grading submission repository.
func NewGradingSubmissionRepository(db *gorm.DB) GradingSubmissionRepository {
	return &gradingSubmissionRepository{db: db}
}

type gradingSubmissionRepository struct {
	db *gorm.DB
}

func (r *gradingSubmissionRepository) Create(ctx context.Context, submission *models.GradingSubmission) error {
	return r.db.WithContext(ctx).Create(submission).Error
}

func (r *gradingSubmissionRepository) Update(ctx context.Context, submission *models.GradingSubmission) error {
	return r.db.WithContext(ctx).Save(submission).Error
}

func (r *gradingSubmissionRepository) GetByID(ctx context.Context, id uint) (models.GradingSubmission, error) {
	var submission models.GradingSubmission
	err := r.db.WithContext(ctx).
		Preload("Exercise").
		First(&submission, id).Error
	if err != nil {
		return models.GradingSubmission{}, err
	}
	return submission, nil
}

func (r *gradingSubmissionRepository) CreateResults(ctx context.Context, results []models.TestResult) error {
	if len(results) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&results).Error
}

func (r *gradingSubmissionRepository) ListResults(ctx context.Context, submissionID uint) ([]models.TestResult, error) {
	var results []models.TestResult
	err := r.db.WithContext(ctx).
		Preload("TestCase").
		Where("submission_id = ?", submissionID).
		Order("id").
		Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

// nonTerminalStatuses guards reconciliation writes: a result row is
// only overwritten while the judge has not settled it yet.
var nonTerminalStatuses = []string{judge.StatusInQueue, judge.StatusProcessing}

// ApplyReconciliation persists a batch of updated test results and
// the recomputed submission state in a single transaction. The
// submission row is re-read inside the transaction and terminal state
// never regresses, so concurrent re-deliveries of the same task
// cannot undo each other's writes; result rows are likewise only
// updated while still non-terminal. When another delivery has already
// reconciled the submission, the caller's copy is refreshed to the
// stored state and nothing is written.
func (r *gradingSubmissionRepository) ApplyReconciliation(ctx context.Context, submission *models.GradingSubmission, results []models.TestResult) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current models.GradingSubmission
		if err := tx.First(&current, submission.ID).Error; err != nil {
			return err
		}
		if current.IsTerminal() {
			*submission = current
			return nil
		}

		for i := range results {
			err := tx.Model(&models.TestResult{}).
				Where("id = ? AND status IN ?", results[i].ID, nonTerminalStatuses).
				Updates(map[string]interface{}{
					"status":    results[i].Status,
					"stdout":    results[i].Stdout,
					"stderr":    results[i].Stderr,
					"time_sec":  results[i].TimeSec,
					"memory_kb": results[i].MemoryKB,
				}).Error
			if err != nil {
				return err
			}
		}

		return tx.Save(submission).Error
	})
}
