package tasks

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/velichkin/newsgrab/app/pipeline"
)

// ScrapeDueTask runs one bulk pass: select due sources, fan the pipeline out
// across them, log the aggregated report. Per-source failures live inside
// the report; only a failure to obtain the source list errors the task.
type ScrapeDueTask struct {
	Task
	orchestrator *pipeline.Orchestrator
}

func NewScrapeDueTask(orchestrator *pipeline.Orchestrator) *ScrapeDueTask {
	return &ScrapeDueTask{
		Task:         NewTask(TaskTypeScrapeDue, ""),
		orchestrator: orchestrator,
	}
}

func (t *ScrapeDueTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	report, err := t.orchestrator.RunBulk(ctx, false)
	if err != nil {
		return fmt.Errorf("bulk scrape failed: %w", err)
	}

	for _, result := range report.Results {
		if result.Outcome == pipeline.OutcomeFailed {
			slog.Error("Source scrape failed", "source", result.Source,
				"stage", string(result.Stage), "reason", result.Reason)
		}
	}

	slog.Info("Task completed",
		"type", t.GetType(),
		"duration", t.GetDuration(),
		"succeeded", report.Succeeded(),
		"failed", report.Failed(),
		"skipped", report.Skipped(),
		"created", report.TotalCreated(),
		"updated", report.TotalUpdated())

	return nil
}
