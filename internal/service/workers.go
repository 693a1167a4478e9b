package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/codyssea/codyssea-go-api/internal/tasks"
)

// RegisterWorkers binds the background task kinds to their services.
// Call before starting the runner.
func RegisterWorkers(runner *tasks.Runner, reconcile ReconcileService, analysis IssueAnalysisService) {
	runner.Handle(TaskReconcile, func(ctx context.Context, msg tasks.Message) error {
		var payload TaskPayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			return fmt.Errorf("decode reconcile payload: %w", err)
		}
		return reconcile.Reconcile(ctx, payload.SubmissionID)
	})

	runner.Handle(TaskAnalyze, func(ctx context.Context, msg tasks.Message) error {
		var payload TaskPayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			return fmt.Errorf("decode analysis payload: %w", err)
		}
		return analysis.Analyze(ctx, payload.SubmissionID)
	})
}
