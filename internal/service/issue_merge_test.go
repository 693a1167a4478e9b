package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/codyssea/codyssea-go-api/internal/models"
	"github.com/codyssea/codyssea-go-api/pkg/ai"
)

func TestMergeIssuesAppendsNewTypes(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	reported := []ai.ReportedIssue{
		{Type: "off_by_one", Description: "loop bound excludes the last element"},
		{Type: "unchecked_input", Description: "reads stdin without validation"},
	}

	merged, stats := mergeIssues(nil, reported, 10, now)
	require.Len(t, merged, 2)
	require.Equal(t, mergeStats{New: 2}, stats)
	require.Equal(t, 1, merged[0].Frequency)
	require.Equal(t, []uint{10}, merged[0].RelatedIDs)
	require.Equal(t, now, merged[0].LastSeen)
}

func TestMergeIssuesIncrementsRecurringType(t *testing.T) {
	then := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	now := then.AddDate(0, 1, 0)
	existing := []models.LearningIssue{
		{Type: "off_by_one", Description: "old wording", Frequency: 2, RelatedIDs: []uint{4, 7}, LastSeen: then},
	}
	reported := []ai.ReportedIssue{
		{Type: "off_by_one", Description: "fresh wording from the latest artifact"},
	}

	merged, stats := mergeIssues(existing, reported, 10, now)
	require.Len(t, merged, 1)
	require.Equal(t, mergeStats{Recurring: 1}, stats)
	require.Equal(t, 3, merged[0].Frequency)
	require.Equal(t, "fresh wording from the latest artifact", merged[0].Description, "description tracks the latest report")
	require.Equal(t, []uint{4, 7, 10}, merged[0].RelatedIDs)
	require.Equal(t, now, merged[0].LastSeen)
}

func TestMergeIssuesKeysByTypeOnly(t *testing.T) {
	// Two reports with the same type but different wording collapse
	// into one entry instead of piling up near-duplicates.
	now := time.Now().UTC()
	existing := []models.LearningIssue{
		{Type: "off_by_one", Description: "first phrasing", Frequency: 1, RelatedIDs: []uint{1}},
	}

	merged, stats := mergeIssues(existing, []ai.ReportedIssue{{Type: "off_by_one", Description: "second phrasing"}}, 2, now)
	require.Len(t, merged, 1)
	require.Equal(t, mergeStats{Recurring: 1}, stats)

	merged, stats = mergeIssues(merged, []ai.ReportedIssue{{Type: "off_by_one", Description: "third phrasing"}}, 3, now)
	require.Len(t, merged, 1)
	require.Equal(t, mergeStats{Recurring: 1}, stats)
	require.Equal(t, 3, merged[0].Frequency)
	require.Equal(t, []uint{1, 2, 3}, merged[0].RelatedIDs)
}

func TestMergeIssuesSameArtifactTwiceStillIncrements(t *testing.T) {
	// At-least-once delivery can merge the same artifact twice. The
	// frequency moves, the related set does not grow.
	now := time.Now().UTC()
	reported := []ai.ReportedIssue{{Type: "off_by_one", Description: "d"}}

	merged, _ := mergeIssues(nil, reported, 5, now)
	merged, stats := mergeIssues(merged, reported, 5, now)
	require.Equal(t, mergeStats{Recurring: 1}, stats)
	require.Equal(t, 2, merged[0].Frequency)
	require.Equal(t, []uint{5}, merged[0].RelatedIDs)
}

func TestMergeIssuesDoesNotMutateInputs(t *testing.T) {
	now := time.Now().UTC()
	existing := []models.LearningIssue{
		{Type: "off_by_one", Description: "original", Frequency: 1, RelatedIDs: []uint{1}},
	}

	_, _ = mergeIssues(existing, []ai.ReportedIssue{{Type: "off_by_one", Description: "changed"}}, 2, now)
	require.Equal(t, "original", existing[0].Description)
	require.Equal(t, 1, existing[0].Frequency)
	require.Equal(t, []uint{1}, existing[0].RelatedIDs)
}

func TestMergeIssuesEmptyReportKeepsExisting(t *testing.T) {
	existing := []models.LearningIssue{{Type: "off_by_one", Frequency: 4}}
	merged, stats := mergeIssues(existing, nil, 9, time.Now().UTC())
	require.Equal(t, existing, merged)
	require.Equal(t, mergeStats{}, stats)
}
