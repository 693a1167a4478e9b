package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/codyssea/codyssea-go-api/internal/models"
)

// ExerciseRepository exposes read access to exercise authoring data.
// Exercises, test cases and language configurations are owned by the
// authoring side; the grading pipeline only reads them.
type ExerciseRepository interface {
	GetByID(ctx context.Context, id uint) (models.Exercise, error)
	GetCourse(ctx context.Context, id uint) (models.Course, error)
	ListTestCases(ctx context.Context, exerciseID uint) ([]models.TestCase, error)
	GetLanguage(ctx context.Context, exerciseID uint, languageID int) (models.ExerciseLanguage, error)
}

// NewExerciseRepository constructs an exercise repository.
func NewExerciseRepository(db *gorm.DB) ExerciseRepository {
	return &exerciseRepository{db: db}
}

type exerciseRepository struct {
	db *gorm.DB
}

func (r *exerciseRepository) GetByID(ctx context.Context, id uint) (models.Exercise, error) {
	var exercise models.Exercise
	err := r.db.WithContext(ctx).First(&exercise, id).Error
	if err != nil {
		return models.Exercise{}, err
	}
	return exercise, nil
}

func (r *exerciseRepository) GetCourse(ctx context.Context, id uint) (models.Course, error) {
	var course models.Course
	err := r.db.WithContext(ctx).First(&course, id).Error
	if err != nil {
		return models.Course{}, err
	}
	return course, nil
}

func (r *exerciseRepository) ListTestCases(ctx context.Context, exerciseID uint) ([]models.TestCase, error) {
	var cases []models.TestCase
	err := r.db.WithContext(ctx).
		Where("exercise_id = ?", exerciseID).
		Order("id").
		Find(&cases).Error
	if err != nil {
		return nil, err
	}
	return cases, nil
}

func (r *exerciseRepository) GetLanguage(ctx context.Context, exerciseID uint, languageID int) (models.ExerciseLanguage, error) {
	var lang models.ExerciseLanguage
	err := r.db.WithContext(ctx).
		Where("exercise_id = ? AND language_id = ?", exerciseID, languageID).
		First(&lang).Error
	if err != nil {
		return models.ExerciseLanguage{}, err
	}
	return lang, nil
}
