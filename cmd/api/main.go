package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/codyssea/codyssea-go-api/internal/config"
	"github.com/codyssea/codyssea-go-api/internal/database"
	"github.com/codyssea/codyssea-go-api/internal/handler"
	"github.com/codyssea/codyssea-go-api/internal/middleware"
	"github.com/codyssea/codyssea-go-api/internal/models"
	"github.com/codyssea/codyssea-go-api/internal/repository"
	"github.com/codyssea/codyssea-go-api/internal/router"
	"github.com/codyssea/codyssea-go-api/internal/service"
	"github.com/codyssea/codyssea-go-api/internal/tasks"
	"github.com/codyssea/codyssea-go-api/pkg/ai"
	"github.com/codyssea/codyssea-go-api/pkg/judge"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(
		&models.Course{}, &models.Exercise{}, &models.TestCase{}, &models.ExerciseLanguage{},
		&models.GradingSubmission{}, &models.TestResult{}, &models.IssuesSummary{},
	); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	redisClient, err := database.ConnectRedis(cfg.RedisURL)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer redisClient.Close()

	natsConn, err := database.ConnectNATS(cfg.NATSURL)
	if err != nil {
		log.Fatalf("failed to connect to nats: %v", err)
	}
	defer natsConn.Close()

	judgeClient, err := judge.NewClient(judge.Config{
		BaseURL: cfg.JudgeBaseURL,
		APIKey:  cfg.JudgeAPIKey,
		Timeout: cfg.JudgeTimeout,
		Logger:  logger,
	})
	if err != nil {
		log.Fatalf("failed to create judge client: %v", err)
	}

	analyzer, err := buildAnalyzer(cfg, logger)
	if err != nil {
		log.Fatalf("failed to create analyzer: %v", err)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	exerciseRepo := repository.NewExerciseRepository(db)
	submissionRepo := repository.NewGradingSubmissionRepository(db)
	summaryRepo := repository.NewIssuesSummaryRepository(db)

	runner, err := tasks.NewRunner(natsConn, cfg.TaskSubjectBase, tasks.RetryPolicy{
		MaxAttempts: cfg.TaskMaxAttempts,
		MinBackoff:  cfg.TaskMinBackoff,
		MaxBackoff:  cfg.TaskMaxBackoff,
	}, logger)
	if err != nil {
		log.Fatalf("failed to create task runner: %v", err)
	}

	gradingService := service.NewGradingService(submissionRepo, exerciseRepo, judgeClient, runner, validate, logger)
	reconcileService := service.NewReconcileService(submissionRepo, judgeClient, runner, logger)
	analysisService := service.NewIssueAnalysisService(submissionRepo, exerciseRepo, summaryRepo, analyzer, redisClient, logger)

	service.RegisterWorkers(runner, reconcileService, analysisService)

	workerCtx, stopWorkers := context.WithCancel(context.Background())
	defer stopWorkers()
	if err := runner.Start(workerCtx); err != nil {
		log.Fatalf("failed to start task runner: %v", err)
	}

	gradingHandler := handler.NewGradingHandler(gradingService, validate, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		GradingHandler: gradingHandler,
		JWTMiddleware:  middleware.JWTProtected(cfg.JWTSecret),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app, stopWorkers)
}

func buildAnalyzer(cfg config.Config, logger zerolog.Logger) (ai.Analyzer, error) {
	switch cfg.AIProvider {
	case "anthropic":
		analyzer, err := ai.NewAnthropicAnalyzer(ai.AnthropicConfig{APIKey: cfg.AnthropicAPIKey})
		if err != nil {
			return nil, err
		}
		return analyzer, nil
	default:
		analyzer, err := ai.NewOpenAIAnalyzer(ai.OpenAIConfig{APIKey: cfg.OpenAIAPIKey, Logger: logger})
		if err != nil {
			return nil, err
		}
		return analyzer, nil
	}
}

func waitForShutdown(app *fiber.App, stopWorkers context.CancelFunc) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	stopWorkers()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
