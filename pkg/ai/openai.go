package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	aiDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "codyssea",
		Subsystem: "ai",
		Name:      "analysis_duration_seconds",
		Help:      "Duration of AI issue analysis requests",
	}, []string{"model"})

	aiFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "codyssea",
		Subsystem: "ai",
		Name:      "analysis_failures_total",
		Help:      "Number of AI issue analysis failures",
	}, []string{"model"})
)

// OpenAIConfig defines configuration options for the OpenAI analyzer.
type OpenAIConfig struct {
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float32
	Logger      zerolog.Logger
}

// OpenAIAnalyzer implements Analyzer against the OpenAI chat completion API.
type OpenAIAnalyzer struct {
	client *openai.Client
	cfg    OpenAIConfig
	tracer trace.Tracer
	logger zerolog.Logger
}

// NewOpenAIAnalyzer builds a new analyzer using the provided configuration.
func NewOpenAIAnalyzer(cfg OpenAIConfig) (*OpenAIAnalyzer, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai api key is required")
	}

	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}

	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 512
	}

	tracer := otel.Tracer("github.com/codyssea/codyssea-go-api/pkg/ai/openai")
	logger := cfg.Logger
	if logger.GetLevel() == zerolog.Disabled {
		logger = zerolog.Nop()
	}

	config := openai.DefaultConfig(cfg.APIKey)
	client := openai.NewClientWithConfig(config)

	return &OpenAIAnalyzer{
		client: client,
		cfg:    cfg,
		tracer: tracer,
		logger: logger,
	}, nil
}

// Analyze sends the analysis request to OpenAI and parses the response.
func (a *OpenAIAnalyzer) Analyze(parent context.Context, input AnalysisInput) (AnalysisResult, error) {
	ctx, span := a.tracer.Start(parent, "openai.analyze", trace.WithAttributes(
		attribute.String("model", a.cfg.Model),
	))
	defer span.End()

	start := time.Now()
	request := openai.ChatCompletionRequest{
		Model:       a.cfg.Model,
		MaxTokens:   a.cfg.MaxTokens,
		Temperature: a.cfg.Temperature,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: analyzerSystemPrompt(),
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: buildUserPrompt(input),
			},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
	}

	resp, err := a.client.CreateChatCompletion(ctx, request)
	duration := time.Since(start)
	aiDuration.WithLabelValues(a.cfg.Model).Observe(duration.Seconds())
	if err != nil {
		aiFailures.WithLabelValues(a.cfg.Model).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return AnalysisResult{}, &OracleError{Err: err}
	}

	if len(resp.Choices) == 0 {
		err := fmt.Errorf("no choices returned from openai")
		aiFailures.WithLabelValues(a.cfg.Model).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return AnalysisResult{}, &OracleError{Err: err}
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	result, err := parseAnalysisResponse(content)
	if err != nil {
		aiFailures.WithLabelValues(a.cfg.Model).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return AnalysisResult{}, &OracleError{Err: err}
	}

	result.Raw = map[string]interface{}{
		"usage": resp.Usage,
	}

	return result, nil
}

func analyzerSystemPrompt() string {
	return "You are a programming tutor analysing a student's graded submission. Respond with a JSON object containing an iss" +
		"ues array; each issue has a type (short category tag such as knowledge_gap, syntax, logic, style) and a description. " +
		"Use the provided known issues to report recurring difficulties under the same type. Return an empty issues array whe" +
		"n the code shows no notable difficulty."
}

func buildUserPrompt(input AnalysisInput) string {
	builder := strings.Builder{}
	builder.WriteString("# Course\n")
	builder.WriteString(input.CourseTitle)
	builder.WriteString("\n\n## Objectives\n")
	builder.WriteString(input.CourseObjectives)
	builder.WriteString("\n\n## Exercise\n")
	builder.WriteString(input.ExerciseTitle)
	builder.WriteString("\n\n## Description\n")
	builder.WriteString(input.ExerciseDescription)
	builder.WriteString("\n\n## Language\n")
	builder.WriteString(input.Language)
	builder.WriteString("\n\n## Submission\n")
	builder.WriteString(input.SubmissionSource)
	if len(input.KnownIssues) > 0 {
		builder.WriteString("\n\n## Known Issues\n")
		encoded, err := json.Marshal(input.KnownIssues)
		if err == nil {
			builder.Write(encoded)
		}
	}
	builder.WriteString("\nReturn JSON.")
	return builder.String()
}

func parseAnalysisResponse(content string) (AnalysisResult, error) {
	type payload struct {
		Issues []ReportedIssue `json:"issues"`
	}

	var data payload
	if err := json.Unmarshal([]byte(content), &data); err != nil {
		return AnalysisResult{}, fmt.Errorf("parse analysis json: %w", err)
	}

	issues := make([]ReportedIssue, 0, len(data.Issues))
	for _, issue := range data.Issues {
		issue.Type = strings.TrimSpace(issue.Type)
		issue.Description = strings.TrimSpace(issue.Description)
		if issue.Type == "" {
			continue
		}
		issues = append(issues, issue)
	}

	return AnalysisResult{Issues: issues}, nil
}
