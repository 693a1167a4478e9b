package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the grading API service.
type Config struct {
	AppName          string
	AppEnv           string
	AppPort          string
	DatabaseURL      string
	RedisURL         string
	NATSURL          string
	JWTSecret        string
	TaskSubjectBase  string
	TaskMaxAttempts  int
	TaskMinBackoff   time.Duration
	TaskMaxBackoff   time.Duration
	JudgeBaseURL     string
	JudgeAPIKey      string
	JudgeTimeout     time.Duration
	AIProvider       string
	OpenAIAPIKey     string
	AnthropicAPIKey  string
	SubmitRateLimit  int
	SubmitRateWindow time.Duration
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("CODYSSEA")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "Codyssea API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("nats.url", "nats://127.0.0.1:4222")
	v.SetDefault("task.subject_base", "codyssea.grading")
	v.SetDefault("task.max_attempts", 10)
	v.SetDefault("task.min_backoff", "500ms")
	v.SetDefault("task.max_backoff", "30s")
	v.SetDefault("judge.timeout", "15s")
	v.SetDefault("ai.provider", "openai")
	v.SetDefault("submit.rate_limit", 5)
	v.SetDefault("submit.rate_window", "1m")

	minBackoff, err := time.ParseDuration(v.GetString("task.min_backoff"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid task min backoff: %w", err)
	}

	maxBackoff, err := time.ParseDuration(v.GetString("task.max_backoff"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid task max backoff: %w", err)
	}

	judgeTimeout, err := time.ParseDuration(v.GetString("judge.timeout"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid judge timeout: %w", err)
	}

	rateWindow, err := time.ParseDuration(v.GetString("submit.rate_window"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid submit rate window: %w", err)
	}

	cfg := Config{
		AppName:          v.GetString("app.name"),
		AppEnv:           v.GetString("app.env"),
		AppPort:          v.GetString("app.port"),
		DatabaseURL:      v.GetString("database.url"),
		RedisURL:         v.GetString("redis.url"),
		NATSURL:          v.GetString("nats.url"),
		JWTSecret:        v.GetString("jwt.secret"),
		TaskSubjectBase:  v.GetString("task.subject_base"),
		TaskMaxAttempts:  v.GetInt("task.max_attempts"),
		TaskMinBackoff:   minBackoff,
		TaskMaxBackoff:   maxBackoff,
		JudgeBaseURL:     v.GetString("judge.base_url"),
		JudgeAPIKey:      v.GetString("judge.api_key"),
		JudgeTimeout:     judgeTimeout,
		AIProvider:       strings.ToLower(v.GetString("ai.provider")),
		OpenAIAPIKey:     v.GetString("openai_api_key"),
		AnthropicAPIKey:  v.GetString("anthropic_api_key"),
		SubmitRateLimit:  v.GetInt("submit.rate_limit"),
		SubmitRateWindow: rateWindow,
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}

	if cfg.JudgeBaseURL == "" {
		return Config{}, fmt.Errorf("judge base url must be provided")
	}

	if cfg.TaskMaxAttempts <= 0 {
		cfg.TaskMaxAttempts = 10
	}

	return cfg, nil
}
