package pipeline

import (
	"time"
)

type Outcome string

const (
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeFailed    Outcome = "failed"
	OutcomeSkipped   Outcome = "skipped"
)

// Stage names a step of the per-source pipeline, used to attribute failures.
type Stage string

const (
	StageFetch     Stage = "fetch"
	StageExtract   Stage = "extract"
	StageNormalize Stage = "normalize"
	StageUpsert    Stage = "upsert"
)

// SourceResult is one source's settled outcome within a run. Exactly one
// result exists per attempted source; skipped sources carry an explicit
// skipped outcome so they are distinguishable from failures.
type SourceResult struct {
	Source         string  `json:"source"`
	Outcome        Outcome `json:"outcome"`
	Stage          Stage   `json:"stage,omitempty"`
	Reason         string  `json:"reason,omitempty"`
	CandidatesSeen int     `json:"candidates_seen"`
	Created        int     `json:"created"`
	Updated        int     `json:"updated"`
	Invalid        int     `json:"invalid,omitempty"`
}

// Report aggregates a whole scrape run.
type Report struct {
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
	Results    []SourceResult `json:"results"`
}

func (r *Report) Succeeded() int { return r.countOutcome(OutcomeSucceeded) }
func (r *Report) Failed() int    { return r.countOutcome(OutcomeFailed) }
func (r *Report) Skipped() int   { return r.countOutcome(OutcomeSkipped) }

func (r *Report) countOutcome(outcome Outcome) int {
	count := 0
	for _, result := range r.Results {
		if result.Outcome == outcome {
			count++
		}
	}
	return count
}

func (r *Report) TotalCreated() int {
	total := 0
	for _, result := range r.Results {
		total += result.Created
	}
	return total
}

func (r *Report) TotalUpdated() int {
	total := 0
	for _, result := range r.Results {
		total += result.Updated
	}
	return total
}

func (r *Report) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
