package contract_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/stretchr/testify/require"

	"github.com/codyssea/codyssea-go-api/internal/dto"
	"github.com/codyssea/codyssea-go-api/internal/handler"
)

type stubGradingService struct {
	response dto.GradingSubmissionResponse
}

func (s stubGradingService) Submit(context.Context, uint, dto.GradingSubmissionRequest) (dto.GradingSubmissionResponse, error) {
	return s.response, nil
}

func (s stubGradingService) Get(context.Context, uint, uint, string) (dto.GradingSubmissionResponse, error) {
	return s.response, nil
}

func (s stubGradingService) Stats(context.Context, uint) (dto.SubmissionStatsResponse, error) {
	return dto.SubmissionStatsResponse{SubmissionID: s.response.ID, Passed: 1, Total: 2}, nil
}

func TestGradingSubmissionContract(t *testing.T) {
	schemaPath, err := filepath.Abs(filepath.Join("..", "contracts", "submission.schema.json"))
	require.NoError(t, err)

	compiler := jsonschema.NewCompiler()
	schema, err := compiler.Compile("file://" + schemaPath)
	require.NoError(t, err)

	score := 50.0
	serviceStub := stubGradingService{response: dto.GradingSubmissionResponse{
		ID:         1,
		ExerciseID: 1,
		StudentID:  3,
		LanguageID: 71,
		Source:     "print(1)",
		Status:     "completed",
		Score:      &score,
		Results: []dto.TestResultResponse{
			{TestCaseID: 11, Status: "Accepted", Stdout: "3", TimeSec: 0.01, MemoryKB: 1024},
			{TestCaseID: 12, Status: "Wrong Answer", TimeSec: 0.02, MemoryKB: 2048, Hidden: true},
		},
		CreatedAt: time.Now().UTC(),
	}}

	gradingHandler := handler.NewGradingHandler(serviceStub, validator.New(validator.WithRequiredStructEnabled()), zerolog.Nop())

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("user_id", uint(3))
		c.Locals("user_role", "student")
		return c.Next()
	})
	gradingHandler.Register(app.Group("/api/v2/grading/submissions"))

	req := httptest.NewRequest(http.MethodGet, "/api/v2/grading/submissions/1", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var payload interface{}
	require.NoError(t, json.Unmarshal(body, &payload))
	require.NoError(t, schema.Validate(payload))
}
