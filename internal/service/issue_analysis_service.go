package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/codyssea/codyssea-go-api/internal/models"
	"github.com/codyssea/codyssea-go-api/internal/observability"
	"github.com/codyssea/codyssea-go-api/internal/repository"
	"github.com/codyssea/codyssea-go-api/internal/tasks"
	"github.com/codyssea/codyssea-go-api/pkg/ai"
)

const issueLeaseTTL = 30 * time.Second

// IssueAnalysisService asks the analysis oracle to characterize
// learning issues from a graded submission and merges them into the
// student's durable per-course summary.
//
// The merge is read-modify-write on a single row, so instances for
// the same (student, course) must not run concurrently; a Redis lease
// serializes them, and lease contention is reported as a retryable
// condition to the task runtime.
type IssueAnalysisService interface {
	Analyze(ctx context.Context, submissionID uint) error
}

type issueAnalysisService struct {
	submissions repository.GradingSubmissionRepository
	exercises   repository.ExerciseRepository
	summaries   repository.IssuesSummaryRepository
	analyzer    ai.Analyzer
	redis       *redis.Client
	sanitizer   *bluemonday.Policy
	logger      zerolog.Logger
}

// NewIssueAnalysisService constructs an issue analysis service.
func NewIssueAnalysisService(submissionRepo repository.GradingSubmissionRepository, exerciseRepo repository.ExerciseRepository, summaryRepo repository.IssuesSummaryRepository, analyzer ai.Analyzer, redisClient *redis.Client, logger zerolog.Logger) IssueAnalysisService {
	return &issueAnalysisService{
		submissions: submissionRepo,
		exercises:   exerciseRepo,
		summaries:   summaryRepo,
		analyzer:    analyzer,
		redis:       redisClient,
		sanitizer:   bluemonday.StrictPolicy(),
		logger:      logger.With().Str("component", "issue_analysis_service").Logger(),
	}
}

func (s *issueAnalysisService) Analyze(ctx context.Context, submissionID uint) error {
	submission, err := s.submissions.GetByID(ctx, submissionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrSubmissionNotFound
		}
		return tasks.Retryable(err)
	}

	exercise := submission.Exercise
	course, err := s.exercises.GetCourse(ctx, exercise.CourseID)
	if err != nil {
		return tasks.Retryable(err)
	}

	release, err := s.acquireLease(ctx, submission.StudentID, course.ID)
	if err != nil {
		return err
	}
	defer release()

	summary, err := s.summaries.GetByStudentCourse(ctx, submission.StudentID, course.ID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return tasks.Retryable(err)
		}
		// Lazily created on the first detected issue.
		summary = models.IssuesSummary{StudentID: submission.StudentID, CourseID: course.ID}
	}

	existing, err := summary.IssueList()
	if err != nil {
		return err
	}

	known := make([]ai.KnownIssue, 0, len(existing))
	for _, issue := range existing {
		known = append(known, ai.KnownIssue{
			Type:        issue.Type,
			Description: issue.Description,
			Frequency:   issue.Frequency,
		})
	}

	result, err := s.analyzer.Analyze(ctx, ai.AnalysisInput{
		CourseTitle:         course.Title,
		CourseObjectives:    course.Objectives,
		ExerciseTitle:       exercise.Title,
		ExerciseDescription: exercise.Description,
		Language:            strconv.Itoa(submission.LanguageID),
		SubmissionSource:    submission.Source,
		KnownIssues:         known,
	})
	if err != nil {
		s.logger.Warn().Err(err).Uint("submission_id", submissionID).Msg("oracle invocation failed")
		return tasks.Retryable(err)
	}

	// An empty report means "no issues detected", never "clear all".
	if len(result.Issues) == 0 {
		return nil
	}

	reported := make([]ai.ReportedIssue, 0, len(result.Issues))
	for _, issue := range result.Issues {
		issue.Description = s.sanitizer.Sanitize(issue.Description)
		reported = append(reported, issue)
	}

	now := time.Now().UTC()
	merged, stats := mergeIssues(existing, reported, submissionID, now)

	if err := summary.SetIssueList(merged); err != nil {
		return err
	}
	summary.UpdatedAt = now

	if err := s.summaries.Save(ctx, &summary); err != nil {
		return tasks.Retryable(err)
	}

	observability.IssuesMerged().WithLabelValues("new").Add(float64(stats.New))
	observability.IssuesMerged().WithLabelValues("recurring").Add(float64(stats.Recurring))

	s.logger.Info().
		Uint("submission_id", submissionID).
		Uint("student_id", submission.StudentID).
		Uint("course_id", course.ID).
		Int("new", stats.New).
		Int("recurring", stats.Recurring).
		Msg("issue summary updated")

	return nil
}

// acquireLease takes the per-(student, course) mutual exclusion lease.
// A held lease is a transient condition: the task is re-delivered.
func (s *issueAnalysisService) acquireLease(ctx context.Context, studentID, courseID uint) (func(), error) {
	if s.redis == nil {
		return func() {}, nil
	}

	key := fmt.Sprintf("grading:issues:lease:%d:%d", studentID, courseID)
	ok, err := s.redis.SetNX(ctx, key, 1, issueLeaseTTL).Result()
	if err != nil {
		return nil, tasks.Retryable(err)
	}
	if !ok {
		return nil, tasks.ErrRetry
	}

	return func() {
		if err := s.redis.Del(context.WithoutCancel(ctx), key).Err(); err != nil {
			s.logger.Warn().Err(err).Str("key", key).Msg("failed to release issue lease")
		}
	}, nil
}
