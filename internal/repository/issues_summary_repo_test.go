package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/codyssea/codyssea-go-api/internal/models"
)

func TestIssuesSummaryRepositorySaveInsertsThenUpserts(t *testing.T) {
	db := setupTestDB(t)
	repo := NewIssuesSummaryRepository(db)
	ctx := context.Background()

	summary := models.IssuesSummary{StudentID: 3, CourseID: 7}
	require.NoError(t, summary.SetIssueList([]models.LearningIssue{
		{Type: "off_by_one", Description: "first", Frequency: 1, RelatedIDs: []uint{1}, LastSeen: time.Now().UTC()},
	}))
	require.NoError(t, repo.Save(ctx, &summary))

	updated := models.IssuesSummary{StudentID: 3, CourseID: 7}
	require.NoError(t, updated.SetIssueList([]models.LearningIssue{
		{Type: "off_by_one", Description: "second", Frequency: 2, RelatedIDs: []uint{1, 2}, LastSeen: time.Now().UTC()},
	}))
	require.NoError(t, repo.Save(ctx, &updated))

	var count int64
	require.NoError(t, db.Model(&models.IssuesSummary{}).Count(&count).Error)
	require.Equal(t, int64(1), count, "same (student, course) pair stays a single row")

	loaded, err := repo.GetByStudentCourse(ctx, 3, 7)
	require.NoError(t, err)
	issues, err := loaded.IssueList()
	require.NoError(t, err)
	require.Len(t, issues, 1)
	require.Equal(t, 2, issues[0].Frequency)
	require.Equal(t, "second", issues[0].Description)
}

func TestIssuesSummaryRepositoryScopesByStudentAndCourse(t *testing.T) {
	db := setupTestDB(t)
	repo := NewIssuesSummaryRepository(db)
	ctx := context.Background()

	first := models.IssuesSummary{StudentID: 3, CourseID: 7}
	require.NoError(t, first.SetIssueList([]models.LearningIssue{{Type: "a", Frequency: 1}}))
	require.NoError(t, repo.Save(ctx, &first))

	second := models.IssuesSummary{StudentID: 3, CourseID: 8}
	require.NoError(t, second.SetIssueList([]models.LearningIssue{{Type: "b", Frequency: 1}}))
	require.NoError(t, repo.Save(ctx, &second))

	loaded, err := repo.GetByStudentCourse(ctx, 3, 8)
	require.NoError(t, err)
	issues, err := loaded.IssueList()
	require.NoError(t, err)
	require.Equal(t, "b", issues[0].Type)

	_, err = repo.GetByStudentCourse(ctx, 4, 7)
	require.True(t, errors.Is(err, gorm.ErrRecordNotFound))
}
