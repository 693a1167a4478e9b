package service

import (
	"time"

	"github.com/codyssea/codyssea-go-api/internal/models"
	"github.com/codyssea/codyssea-go-api/pkg/ai"
)

type mergeStats struct {
	New       int
	Recurring int
}

// mergeIssues folds oracle-reported issues into the existing issue
// list and returns a new slice; neither input is mutated. Issues are
// keyed by type: a reported type that already exists increments that
// entry's frequency, refreshes its description and last-seen
// timestamp, and unions the artifact id into its related set. A new
// type is appended with frequency 1. An empty report returns the
// existing list unchanged.
func mergeIssues(existing []models.LearningIssue, reported []ai.ReportedIssue, artifactID uint, now time.Time) ([]models.LearningIssue, mergeStats) {
	merged := make([]models.LearningIssue, len(existing))
	for i, issue := range existing {
		clone := issue
		clone.RelatedIDs = append([]uint(nil), issue.RelatedIDs...)
		merged[i] = clone
	}

	index := make(map[string]int, len(merged))
	for i, issue := range merged {
		index[issue.Type] = i
	}

	var stats mergeStats
	for _, report := range reported {
		if i, ok := index[report.Type]; ok {
			merged[i].Frequency++
			merged[i].Description = report.Description
			merged[i].LastSeen = now
			merged[i].RelatedIDs = unionID(merged[i].RelatedIDs, artifactID)
			stats.Recurring++
			continue
		}

		merged = append(merged, models.LearningIssue{
			Type:        report.Type,
			Description: report.Description,
			Frequency:   1,
			RelatedIDs:  []uint{artifactID},
			LastSeen:    now,
		})
		index[report.Type] = len(merged) - 1
		stats.New++
	}

	return merged, stats
}

func unionID(ids []uint, id uint) []uint {
	for _, existing := range ids {
		if existing == id {
			return ids
		}
	}
	return append(ids, id)
}
