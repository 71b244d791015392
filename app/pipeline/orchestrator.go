package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/velichkin/newsgrab/app/database"
	"github.com/velichkin/newsgrab/app/sources"
)

// Orchestrator fans per-source pipelines out over a bounded worker pool and
// aggregates their settled outcomes into a run report. A failure in one
// source never prevents the others from being attempted.
type Orchestrator struct {
	registry    *sources.Registry
	sourceRepo  database.SourceRepository
	runner      *Runner
	workerCount int
	minInterval time.Duration
}

func NewOrchestrator(registry *sources.Registry, sourceRepo database.SourceRepository,
	runner *Runner, workerCount int, minInterval time.Duration) *Orchestrator {
	if workerCount < 1 {
		workerCount = 1
	}
	return &Orchestrator{
		registry:    registry,
		sourceRepo:  sourceRepo,
		runner:      runner,
		workerCount: workerCount,
		minInterval: minInterval,
	}
}

// RunBulk scrapes every enabled source that is due, or all of them when
// force is set. Sources not due are reported as skipped. The only fatal
// error is failing to obtain the source list itself.
func (o *Orchestrator) RunBulk(ctx context.Context, force bool) (*Report, error) {
	// Rule files are re-read every run so edited or added sources take
	// effect without a restart. A load error keeps the previous catalog.
	if err := o.registry.Run(); err != nil {
		slog.Warn("Failed to reload source rules, using cached catalog", "error", err)
	}

	enabled := o.registry.ListEnabled()

	var due []*sources.Source
	var notDue []*sources.Source

	if force {
		due = SelectAll(enabled)
	} else {
		records, err := o.loadRecords()
		if err != nil {
			return nil, fmt.Errorf("failed to load source records: %w", err)
		}

		now := time.Now().UTC()
		due = SelectDue(enabled, records, now, o.minInterval)

		dueSet := make(map[string]bool, len(due))
		for _, source := range due {
			dueSet[source.Name] = true
		}
		for _, source := range enabled {
			if !dueSet[source.Name] {
				notDue = append(notDue, source)
			}
		}
	}

	report := o.run(ctx, due)

	for _, source := range notDue {
		report.Results = append(report.Results, SourceResult{
			Source:  source.Name,
			Outcome: OutcomeSkipped,
			Reason:  "not due",
		})
	}

	return report, nil
}

// RunSource scrapes exactly one source regardless of staleness; it backs the
// administrative single-source trigger. The rule file is re-read so selector
// edits apply immediately. Unknown sources are an error, not a report entry.
func (o *Orchestrator) RunSource(ctx context.Context, sourceName string) (*Report, error) {
	source, err := o.registry.LoadSource(sourceName)
	if err != nil {
		return nil, err
	}

	return o.run(ctx, []*sources.Source{source}), nil
}

func (o *Orchestrator) run(ctx context.Context, due []*sources.Source) *Report {
	report := &Report{StartedAt: time.Now().UTC()}

	jobs := make(chan *sources.Source)
	results := make(chan SourceResult, len(due))

	var wg sync.WaitGroup
	for i := 0; i < o.workerCount; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for source := range jobs {
				results <- o.runner.Run(ctx, source, report.StartedAt)
			}
		}()
	}

	// Feed sources until the run is cancelled; sources never handed to a
	// worker settle as skipped, while in-flight ones finish on their own.
	dispatched := 0
feeding:
	for _, source := range due {
		select {
		case jobs <- source:
			dispatched++
		case <-ctx.Done():
			break feeding
		}
	}
	close(jobs)
	wg.Wait()
	close(results)

	for result := range results {
		report.Results = append(report.Results, result)
	}

	if dispatched < len(due) {
		settled := make(map[string]bool, len(report.Results))
		for _, result := range report.Results {
			settled[result.Source] = true
		}
		for _, source := range due {
			if !settled[source.Name] {
				report.Results = append(report.Results, SourceResult{
					Source:  source.Name,
					Outcome: OutcomeSkipped,
					Reason:  "run cancelled",
				})
			}
		}
	}

	report.FinishedAt = time.Now().UTC()
	return report
}

func (o *Orchestrator) loadRecords() (map[string]*database.SourceRecord, error) {
	list, err := o.sourceRepo.ListSources()
	if err != nil {
		return nil, err
	}

	records := make(map[string]*database.SourceRecord, len(list))
	for i := range list {
		records[list[i].Name] = &list[i]
	}
	return records, nil
}
