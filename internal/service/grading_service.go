package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/codyssea/codyssea-go-api/internal/dto"
	"github.com/codyssea/codyssea-go-api/internal/models"
	"github.com/codyssea/codyssea-go-api/internal/repository"
	"github.com/codyssea/codyssea-go-api/internal/tasks"
	"github.com/codyssea/codyssea-go-api/pkg/judge"
)

// Task kinds handled by the grading pipeline's background workers.
const (
	TaskReconcile = "grading.reconcile"
	TaskAnalyze   = "grading.analyze"
)

// boilerplate templates mark where the student's code is spliced in.
const sourceMarker = "{{source}}"

// ErrExerciseNotFound indicates the exercise is missing or has no test cases.
var ErrExerciseNotFound = errors.New("exercise not found")

// ErrSubmissionNotFound indicates the submission cannot be located.
var ErrSubmissionNotFound = errors.New("submission not found")

// ErrUnsupportedLanguage indicates the exercise has no configuration for the requested language.
var ErrUnsupportedLanguage = errors.New("unsupported language")

// TaskPayload identifies the submission a background task operates
// on. Both worker kinds share the shape.
type TaskPayload struct {
	SubmissionID uint `json:"submission_id"`
}

// GradingService exposes submission intake and read operations. The
// call returns as soon as the judge batch is dispatched; grading
// itself completes asynchronously.
type GradingService interface {
	Submit(ctx context.Context, studentID uint, payload dto.GradingSubmissionRequest) (dto.GradingSubmissionResponse, error)
	Get(ctx context.Context, id uint, viewerID uint, role string) (dto.GradingSubmissionResponse, error)
	Stats(ctx context.Context, id uint) (dto.SubmissionStatsResponse, error)
}

type gradingService struct {
	submissions repository.GradingSubmissionRepository
	exercises   repository.ExerciseRepository
	judge       judge.Client
	queue       tasks.Enqueuer
	validator   *validator.Validate
	logger      zerolog.Logger
}

// NewGradingService constructs a new grading service.
func NewGradingService(submissionRepo repository.GradingSubmissionRepository, exerciseRepo repository.ExerciseRepository, judgeClient judge.Client, queue tasks.Enqueuer, validate *validator.Validate, logger zerolog.Logger) GradingService {
	return &gradingService{
		submissions: submissionRepo,
		exercises:   exerciseRepo,
		judge:       judgeClient,
		queue:       queue,
		validator:   validate,
		logger:      logger.With().Str("component", "grading_service").Logger(),
	}
}

func (s *gradingService) Submit(ctx context.Context, studentID uint, payload dto.GradingSubmissionRequest) (dto.GradingSubmissionResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.GradingSubmissionResponse{}, err
	}

	if _, err := s.exercises.GetByID(ctx, payload.ExerciseID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.GradingSubmissionResponse{}, ErrExerciseNotFound
		}
		return dto.GradingSubmissionResponse{}, err
	}

	cases, err := s.exercises.ListTestCases(ctx, payload.ExerciseID)
	if err != nil {
		return dto.GradingSubmissionResponse{}, err
	}
	if len(cases) == 0 {
		return dto.GradingSubmissionResponse{}, ErrExerciseNotFound
	}

	lang, err := s.exercises.GetLanguage(ctx, payload.ExerciseID, payload.LanguageID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.GradingSubmissionResponse{}, ErrUnsupportedLanguage
		}
		return dto.GradingSubmissionResponse{}, err
	}

	submission := models.GradingSubmission{
		StudentID:  studentID,
		ExerciseID: payload.ExerciseID,
		LanguageID: payload.LanguageID,
		Source:     payload.Source,
		Status:     models.GradingSubmissionStatusPending,
	}
	if err := s.submissions.Create(ctx, &submission); err != nil {
		return dto.GradingSubmissionResponse{}, err
	}

	// Hidden cases are executed like public ones; they are only
	// withheld from the reporting surface.
	judgeCases := make([]judge.TestCase, 0, len(cases))
	for _, tc := range cases {
		judgeCases = append(judgeCases, judge.TestCase{
			Stdin:           tc.Input,
			ExpectedOutput:  tc.ExpectedOutput,
			CPUTimeLimitSec: lang.CPUTimeLimitSec,
			MemoryLimitKB:   lang.MemoryLimitKB,
		})
	}

	tokens, err := s.judge.SubmitBatch(ctx, applyBoilerplate(lang.Boilerplate, payload.Source), payload.LanguageID, judgeCases)
	if err != nil {
		s.logger.Error().Err(err).Uint("submission_id", submission.ID).Msg("judge dispatch failed")
		submission.Status = models.GradingSubmissionStatusFailed
		if updateErr := s.submissions.Update(ctx, &submission); updateErr != nil {
			return dto.GradingSubmissionResponse{}, updateErr
		}
		return dto.NewGradingSubmissionResponse(submission, true), nil
	}

	results := make([]models.TestResult, 0, len(cases))
	for i, tc := range cases {
		results = append(results, models.TestResult{
			SubmissionID: submission.ID,
			TestCaseID:   tc.ID,
			Token:        tokens[i],
			Status:       judge.StatusProcessing,
		})
	}
	if err := s.submissions.CreateResults(ctx, results); err != nil {
		s.logger.Error().Err(err).Uint("submission_id", submission.ID).Msg("failed to persist test results")
		s.markFailed(ctx, &submission)
		return dto.GradingSubmissionResponse{}, err
	}

	if err := s.queue.Enqueue(ctx, TaskReconcile, fmt.Sprintf("%d", submission.ID), TaskPayload{SubmissionID: submission.ID}); err != nil {
		s.logger.Error().Err(err).Uint("submission_id", submission.ID).Msg("failed to enqueue reconciliation task")
		s.markFailed(ctx, &submission)
		return dto.GradingSubmissionResponse{}, err
	}

	return dto.NewGradingSubmissionResponse(submission, true), nil
}

// markFailed parks the submission in its terminal failure state when
// intake cannot guarantee a reconciliation task will ever run for it.
func (s *gradingService) markFailed(ctx context.Context, submission *models.GradingSubmission) {
	submission.Status = models.GradingSubmissionStatusFailed
	if err := s.submissions.Update(ctx, submission); err != nil {
		s.logger.Error().Err(err).Uint("submission_id", submission.ID).Msg("failed to mark submission failed")
	}
}

func (s *gradingService) Get(ctx context.Context, id uint, viewerID uint, role string) (dto.GradingSubmissionResponse, error) {
	submission, err := s.submissions.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.GradingSubmissionResponse{}, ErrSubmissionNotFound
		}
		return dto.GradingSubmissionResponse{}, err
	}

	includeSource := s.canViewSource(viewerID, role, submission)
	if !includeSource {
		submission.Source = ""
	}

	results, err := s.submissions.ListResults(ctx, id)
	if err != nil {
		return dto.GradingSubmissionResponse{}, err
	}
	submission.Results = results

	return dto.NewGradingSubmissionResponse(submission, includeSource), nil
}

// Stats counts terminal-success results against the total. It is a
// pure read and remains valid while the submission is still pending,
// in which case it reports partial stats.
func (s *gradingService) Stats(ctx context.Context, id uint) (dto.SubmissionStatsResponse, error) {
	if _, err := s.submissions.GetByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SubmissionStatsResponse{}, ErrSubmissionNotFound
		}
		return dto.SubmissionStatsResponse{}, err
	}

	results, err := s.submissions.ListResults(ctx, id)
	if err != nil {
		return dto.SubmissionStatsResponse{}, err
	}

	passed := 0
	for _, result := range results {
		if judge.Classify(result.Status) == judge.ClassSuccess {
			passed++
		}
	}

	return dto.SubmissionStatsResponse{
		SubmissionID: id,
		Passed:       passed,
		Total:        len(results),
	}, nil
}

func (s *gradingService) canViewSource(viewerID uint, role string, submission models.GradingSubmission) bool {
	if viewerID != 0 && viewerID == submission.StudentID {
		return true
	}
	role = strings.ToLower(role)
	return role == "teacher" || role == "admin"
}

func applyBoilerplate(boilerplate, source string) string {
	if boilerplate == "" {
		return source
	}
	if !strings.Contains(boilerplate, sourceMarker) {
		return source
	}
	return strings.Replace(boilerplate, sourceMarker, source, 1)
}
