package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/codyssea/codyssea-go-api/internal/models"
	"github.com/codyssea/codyssea-go-api/internal/repository"
	"github.com/codyssea/codyssea-go-api/internal/tasks"
	"github.com/codyssea/codyssea-go-api/pkg/judge"
)

// ReconcileService folds judge results back into durable submission
// state. It runs as a background task keyed by submission id and is
// idempotent under at-least-once delivery: reconciling an already
// terminal submission is a no-op.
//
// The service never loops internally. While any result is still
// queued on the judge it returns tasks.ErrRetry and relies on the
// task runtime to re-deliver with backoff, until either every result
// is terminal or the attempt budget runs out and the submission is
// left pending for operator attention.
type ReconcileService interface {
	Reconcile(ctx context.Context, submissionID uint) error
}

type reconcileService struct {
	submissions repository.GradingSubmissionRepository
	judge       judge.Client
	queue       tasks.Enqueuer
	logger      zerolog.Logger
}

// NewReconcileService constructs a reconciliation service.
func NewReconcileService(submissionRepo repository.GradingSubmissionRepository, judgeClient judge.Client, queue tasks.Enqueuer, logger zerolog.Logger) ReconcileService {
	return &reconcileService{
		submissions: submissionRepo,
		judge:       judgeClient,
		queue:       queue,
		logger:      logger.With().Str("component", "reconcile_service").Logger(),
	}
}

func (s *reconcileService) Reconcile(ctx context.Context, submissionID uint) error {
	submission, err := s.submissions.GetByID(ctx, submissionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrSubmissionNotFound
		}
		return tasks.Retryable(err)
	}

	results, err := s.submissions.ListResults(ctx, submissionID)
	if err != nil {
		return tasks.Retryable(err)
	}

	pending := make(map[string]int, len(results))
	tokens := make([]string, 0, len(results))
	for i, result := range results {
		if judge.Classify(result.Status) == judge.ClassQueued {
			pending[result.Token] = i
			tokens = append(tokens, result.Token)
		}
	}

	// A prior, possibly concurrent, run already reconciled everything.
	if len(tokens) == 0 {
		return nil
	}

	polled, err := s.judge.PollBatch(ctx, tokens)
	if err != nil {
		s.logger.Warn().Err(err).Uint("submission_id", submissionID).Msg("judge poll failed")
		return tasks.Retryable(err)
	}

	updated := make([]models.TestResult, 0, len(polled))
	for _, result := range polled {
		idx, ok := pending[result.Token]
		if !ok {
			// A malformed entry must not fail the rest of the batch.
			s.logger.Warn().Str("token", result.Token).Uint("submission_id", submissionID).Msg("poll returned unknown token")
			continue
		}
		if judge.Classify(result.Status) == judge.ClassQueued {
			continue
		}

		row := results[idx]
		row.Status = result.Status
		row.Stdout = result.Stdout
		row.Stderr = result.Stderr
		row.TimeSec = result.TimeSec
		row.MemoryKB = result.MemoryKB
		results[idx] = row
		updated = append(updated, row)
	}

	remaining := 0
	allPassed := true
	for _, result := range results {
		switch judge.Classify(result.Status) {
		case judge.ClassQueued:
			remaining++
		case judge.ClassFailure:
			allPassed = false
		}
	}

	if remaining > 0 {
		if len(updated) > 0 {
			if err := s.submissions.ApplyReconciliation(ctx, &submission, updated); err != nil {
				return tasks.Retryable(err)
			}
		}
		s.logger.Debug().Uint("submission_id", submissionID).Int("remaining", remaining).Msg("results still queued on judge")
		return tasks.ErrRetry
	}

	if allPassed {
		submission.Status = models.GradingSubmissionStatusCompleted
	} else {
		submission.Status = models.GradingSubmissionStatusFailed
	}
	score := aggregateScore(results)
	submission.Score = &score

	if err := s.submissions.ApplyReconciliation(ctx, &submission, updated); err != nil {
		return tasks.Retryable(err)
	}

	s.logger.Info().
		Uint("submission_id", submissionID).
		Str("status", submission.Status).
		Float64("score", score).
		Msg("submission reconciled")

	if err := s.queue.Enqueue(ctx, TaskAnalyze, fmt.Sprintf("%d", submissionID), TaskPayload{SubmissionID: submissionID}); err != nil {
		// Grading already landed; a lost analysis task skips one
		// issue-mining cycle, it does not fail the submission.
		s.logger.Error().Err(err).Uint("submission_id", submissionID).Msg("failed to enqueue issue analysis task")
	}

	return nil
}

// aggregateScore is the weighted share of passed test cases, on a
// 0-100 scale. Results carry their test case after a preloaded list
// read; a missing weight counts as 1.
func aggregateScore(results []models.TestResult) float64 {
	var total, passed float64
	for _, result := range results {
		weight := result.TestCase.Weight
		if weight <= 0 {
			weight = 1
		}
		total += weight
		if judge.Classify(result.Status) == judge.ClassSuccess {
			passed += weight
		}
	}
	if total == 0 {
		return 0
	}
	return passed / total * 100
}
