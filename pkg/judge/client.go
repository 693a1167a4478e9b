package judge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	judgeDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "codyssea",
		Subsystem: "judge",
		Name:      "request_duration_seconds",
		Help:      "Duration of batched judge API calls",
	}, []string{"operation"})

	judgeFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "codyssea",
		Subsystem: "judge",
		Name:      "request_failures_total",
		Help:      "Number of failed judge API calls",
	}, []string{"operation"})
)

// DispatchError wraps a transport or HTTP failure during batch
// submission. Dispatch has no partial-success semantics: when it is
// returned, no tokens were produced.
type DispatchError struct {
	Err error
}

func (e *DispatchError) Error() string { return fmt.Sprintf("judge dispatch: %v", e.Err) }
func (e *DispatchError) Unwrap() error { return e.Err }

// PollError wraps a transport or HTTP failure during a batched status
// query. Poll errors are retryable by the caller.
type PollError struct {
	Err error
}

func (e *PollError) Error() string { return fmt.Sprintf("judge poll: %v", e.Err) }
func (e *PollError) Unwrap() error { return e.Err }

// Client is the wire adapter to the external code-execution judge.
// It is stateless: both operations are single batched HTTP calls.
type Client interface {
	SubmitBatch(ctx context.Context, sourceCode string, languageID int, cases []TestCase) ([]string, error)
	PollBatch(ctx context.Context, tokens []string) ([]Result, error)
}

// Config defines configuration options for the judge client.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
	Logger  zerolog.Logger
}

type client struct {
	http    *http.Client
	baseURL string
	apiKey  string
	tracer  trace.Tracer
	logger  zerolog.Logger
}

// NewClient builds a judge client from the provided configuration.
func NewClient(cfg Config) (Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("judge base url is required")
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}

	return &client{
		http:    &http.Client{Timeout: cfg.Timeout},
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		tracer:  otel.Tracer("github.com/codyssea/codyssea-go-api/pkg/judge"),
		logger:  cfg.Logger.With().Str("component", "judge_client").Logger(),
	}, nil
}

// SubmitBatch submits one execution job per test case in a single
// batched call. The returned token slice is order-preserving with the
// input cases.
func (c *client) SubmitBatch(parent context.Context, sourceCode string, languageID int, cases []TestCase) ([]string, error) {
	ctx, span := c.tracer.Start(parent, "judge.submit_batch", trace.WithAttributes(
		attribute.Int("judge.language_id", languageID),
		attribute.Int("judge.batch_size", len(cases)),
	))
	defer span.End()

	payload := wireBatchRequest{Submissions: make([]wireSubmission, 0, len(cases))}
	for _, tc := range cases {
		payload.Submissions = append(payload.Submissions, wireSubmission{
			SourceCode:     sourceCode,
			LanguageID:     languageID,
			Stdin:          tc.Stdin,
			ExpectedOutput: tc.ExpectedOutput,
			CPUTimeLimit:   tc.CPUTimeLimitSec,
			MemoryLimit:    tc.MemoryLimitKB,
		})
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, &DispatchError{Err: err}
	}

	start := time.Now()
	endpoint := c.baseURL + "/submissions/batch?base64_encoded=false"
	data, err := c.do(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	judgeDuration.WithLabelValues("submit").Observe(time.Since(start).Seconds())
	if err != nil {
		judgeFailures.WithLabelValues("submit").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, &DispatchError{Err: err}
	}

	var created []wireToken
	if err := json.Unmarshal(data, &created); err != nil {
		judgeFailures.WithLabelValues("submit").Inc()
		span.RecordError(err)
		return nil, &DispatchError{Err: fmt.Errorf("decode batch response: %w", err)}
	}

	if len(created) != len(cases) {
		err := fmt.Errorf("expected %d tokens, got %d", len(cases), len(created))
		judgeFailures.WithLabelValues("submit").Inc()
		span.RecordError(err)
		return nil, &DispatchError{Err: err}
	}

	tokens := make([]string, 0, len(created))
	for _, t := range created {
		tokens = append(tokens, t.Token)
	}

	c.logger.Debug().Int("batch_size", len(tokens)).Msg("dispatched submission batch")
	return tokens, nil
}

// PollBatch issues a single batched status query for all tokens.
func (c *client) PollBatch(parent context.Context, tokens []string) ([]Result, error) {
	ctx, span := c.tracer.Start(parent, "judge.poll_batch", trace.WithAttributes(
		attribute.Int("judge.batch_size", len(tokens)),
	))
	defer span.End()

	if len(tokens) == 0 {
		return nil, nil
	}

	query := url.Values{}
	query.Set("tokens", strings.Join(tokens, ","))
	query.Set("fields", "token,status,stdout,stderr,time,memory")
	endpoint := c.baseURL + "/submissions/batch?" + query.Encode()

	start := time.Now()
	data, err := c.do(ctx, http.MethodGet, endpoint, nil)
	judgeDuration.WithLabelValues("poll").Observe(time.Since(start).Seconds())
	if err != nil {
		judgeFailures.WithLabelValues("poll").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, &PollError{Err: err}
	}

	var decoded wireBatchResponse
	if err := json.Unmarshal(data, &decoded); err != nil {
		judgeFailures.WithLabelValues("poll").Inc()
		span.RecordError(err)
		return nil, &PollError{Err: fmt.Errorf("decode poll response: %w", err)}
	}

	results := make([]Result, 0, len(decoded.Submissions))
	for _, sub := range decoded.Submissions {
		timeSec, _ := strconv.ParseFloat(strings.TrimSpace(sub.Time), 64)
		results = append(results, Result{
			Token:    sub.Token,
			Status:   sub.Status.Description,
			Stdout:   sub.Stdout,
			Stderr:   sub.Stderr,
			TimeSec:  timeSec,
			MemoryKB: sub.Memory,
		})
	}

	return results, nil
}

func (c *client) do(ctx context.Context, method, endpoint string, body io.Reader) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-Auth-Token", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("judge returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	return data, nil
}
