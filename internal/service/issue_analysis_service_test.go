package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/codyssea/codyssea-go-api/internal/models"
	"github.com/codyssea/codyssea-go-api/internal/tasks"
	"github.com/codyssea/codyssea-go-api/pkg/ai"
)

type stubSummaryRepo struct {
	summary *models.IssuesSummary
	saved   *models.IssuesSummary
	err     error
}

func (s *stubSummaryRepo) GetByStudentCourse(ctx context.Context, studentID, courseID uint) (models.IssuesSummary, error) {
	if s.err != nil {
		return models.IssuesSummary{}, s.err
	}
	if s.summary == nil {
		return models.IssuesSummary{}, gorm.ErrRecordNotFound
	}
	return *s.summary, nil
}

func (s *stubSummaryRepo) Save(ctx context.Context, summary *models.IssuesSummary) error {
	if s.err != nil {
		return s.err
	}
	clone := *summary
	s.saved = &clone
	return nil
}

func seedGradedSubmission(t *testing.T, repo *stubSubmissionRepo) {
	t.Helper()
	score := 50.0
	require.NoError(t, repo.Create(context.Background(), &models.GradingSubmission{
		StudentID:  3,
		ExerciseID: 1,
		LanguageID: 71,
		Source:     "print(input())",
		Status:     models.GradingSubmissionStatusFailed,
		Score:      &score,
		Exercise:   models.Exercise{ID: 1, CourseID: 7, Title: "Sum", Description: "Add two numbers"},
	}))
}

func testRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestAnalyzeCreatesSummaryOnFirstIssue(t *testing.T) {
	submissions := newStubSubmissionRepo()
	seedGradedSubmission(t, submissions)
	exercises := twoCaseExerciseRepo()
	summaries := &stubSummaryRepo{}
	analyzer := &stubAnalyzer{result: ai.AnalysisResult{Issues: []ai.ReportedIssue{
		{Type: "off_by_one", Description: "loop bound excludes the last element"},
	}}}

	svc := NewIssueAnalysisService(submissions, exercises, summaries, analyzer, testRedis(t), zerolog.Nop())
	require.NoError(t, svc.Analyze(context.Background(), 1))

	require.Len(t, analyzer.inputs, 1)
	require.Equal(t, "Intro", analyzer.inputs[0].CourseTitle)
	require.Equal(t, "print(input())", analyzer.inputs[0].SubmissionSource)
	require.Empty(t, analyzer.inputs[0].KnownIssues)

	require.NotNil(t, summaries.saved)
	require.Equal(t, uint(3), summaries.saved.StudentID)
	require.Equal(t, uint(7), summaries.saved.CourseID)
	issues, err := summaries.saved.IssueList()
	require.NoError(t, err)
	require.Len(t, issues, 1)
	require.Equal(t, "off_by_one", issues[0].Type)
	require.Equal(t, []uint{1}, issues[0].RelatedIDs)
}

func TestAnalyzeMergesIntoExistingSummary(t *testing.T) {
	submissions := newStubSubmissionRepo()
	seedGradedSubmission(t, submissions)
	existing := models.IssuesSummary{StudentID: 3, CourseID: 7}
	require.NoError(t, existing.SetIssueList([]models.LearningIssue{
		{Type: "off_by_one", Description: "old", Frequency: 1, RelatedIDs: []uint{9}},
	}))
	summaries := &stubSummaryRepo{summary: &existing}
	analyzer := &stubAnalyzer{result: ai.AnalysisResult{Issues: []ai.ReportedIssue{
		{Type: "off_by_one", Description: "new wording"},
		{Type: "unchecked_input", Description: "reads stdin blindly"},
	}}}

	svc := NewIssueAnalysisService(submissions, twoCaseExerciseRepo(), summaries, analyzer, testRedis(t), zerolog.Nop())
	require.NoError(t, svc.Analyze(context.Background(), 1))

	require.Len(t, analyzer.inputs[0].KnownIssues, 1, "prior issues are fed back to the oracle")

	issues, err := summaries.saved.IssueList()
	require.NoError(t, err)
	require.Len(t, issues, 2)
	require.Equal(t, 2, issues[0].Frequency)
	require.Equal(t, []uint{9, 1}, issues[0].RelatedIDs)
}

func TestAnalyzeNoIssuesSkipsWrite(t *testing.T) {
	submissions := newStubSubmissionRepo()
	seedGradedSubmission(t, submissions)
	summaries := &stubSummaryRepo{}

	svc := NewIssueAnalysisService(submissions, twoCaseExerciseRepo(), summaries, &stubAnalyzer{}, testRedis(t), zerolog.Nop())
	require.NoError(t, svc.Analyze(context.Background(), 1))
	require.Nil(t, summaries.saved)
}

func TestAnalyzeOracleFailureIsRetryable(t *testing.T) {
	submissions := newStubSubmissionRepo()
	seedGradedSubmission(t, submissions)
	analyzer := &stubAnalyzer{err: &ai.OracleError{Err: errors.New("rate limited")}}

	svc := NewIssueAnalysisService(submissions, twoCaseExerciseRepo(), &stubSummaryRepo{}, analyzer, testRedis(t), zerolog.Nop())
	err := svc.Analyze(context.Background(), 1)
	require.Error(t, err)
	require.True(t, tasks.IsRetryable(err))
}

func TestAnalyzeHeldLeaseRequeues(t *testing.T) {
	submissions := newStubSubmissionRepo()
	seedGradedSubmission(t, submissions)
	client := testRedis(t)
	key := fmt.Sprintf("grading:issues:lease:%d:%d", 3, 7)
	require.NoError(t, client.SetNX(context.Background(), key, 1, issueLeaseTTL).Err())

	analyzer := &stubAnalyzer{}
	svc := NewIssueAnalysisService(submissions, twoCaseExerciseRepo(), &stubSummaryRepo{}, analyzer, client, zerolog.Nop())
	err := svc.Analyze(context.Background(), 1)
	require.ErrorIs(t, err, tasks.ErrRetry)
	require.Empty(t, analyzer.inputs, "the oracle is not consulted while the lease is held")
}

func TestAnalyzeReleasesLease(t *testing.T) {
	submissions := newStubSubmissionRepo()
	seedGradedSubmission(t, submissions)
	client := testRedis(t)

	svc := NewIssueAnalysisService(submissions, twoCaseExerciseRepo(), &stubSummaryRepo{}, &stubAnalyzer{}, client, zerolog.Nop())
	require.NoError(t, svc.Analyze(context.Background(), 1))

	exists, err := client.Exists(context.Background(), fmt.Sprintf("grading:issues:lease:%d:%d", 3, 7)).Result()
	require.NoError(t, err)
	require.Zero(t, exists)
}

func TestAnalyzeSanitizesOracleDescriptions(t *testing.T) {
	submissions := newStubSubmissionRepo()
	seedGradedSubmission(t, submissions)
	summaries := &stubSummaryRepo{}
	analyzer := &stubAnalyzer{result: ai.AnalysisResult{Issues: []ai.ReportedIssue{
		{Type: "off_by_one", Description: `<script>alert(1)</script>missing final element`},
	}}}

	svc := NewIssueAnalysisService(submissions, twoCaseExerciseRepo(), summaries, analyzer, testRedis(t), zerolog.Nop())
	require.NoError(t, svc.Analyze(context.Background(), 1))

	issues, err := summaries.saved.IssueList()
	require.NoError(t, err)
	require.Equal(t, "missing final element", issues[0].Description)
}
