package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/velichkin/newsgrab/app/database"
	"github.com/velichkin/newsgrab/app/scrape"
	"github.com/velichkin/newsgrab/app/sources"
)

// Runner executes one source's pipeline as an independent unit of work:
// fetch, extract, normalize, upsert, strictly in that order. Any stage error
// settles the source as failed without touching last_scraped_at, so the
// source stays due and is retried on the next pass.
type Runner struct {
	fetcher    *scrape.Fetcher
	extractor  *scrape.Extractor
	normalizer *scrape.Normalizer
	sourceRepo database.SourceRepository
	storyRepo  database.StoryRepository
}

func NewRunner(fetcher *scrape.Fetcher, extractor *scrape.Extractor, normalizer *scrape.Normalizer,
	sourceRepo database.SourceRepository, storyRepo database.StoryRepository) *Runner {
	return &Runner{
		fetcher:    fetcher,
		extractor:  extractor,
		normalizer: normalizer,
		sourceRepo: sourceRepo,
		storyRepo:  storyRepo,
	}
}

func (r *Runner) Run(ctx context.Context, source *sources.Source, startedAt time.Time) SourceResult {
	result := SourceResult{Source: source.Name}

	data, err := r.fetcher.Run(ctx, source)
	if err != nil {
		return failed(result, StageFetch, err)
	}

	candidates, err := r.extractor.Run(source, data)
	if err != nil {
		return failed(result, StageExtract, err)
	}
	result.CandidatesSeen = len(candidates)

	for _, candidate := range candidates {
		fields, err := r.normalizer.Run(candidate, source)
		if err != nil {
			if errors.Is(err, scrape.ErrInvalidCandidate) {
				slog.Warn("Skipping invalid candidate", "source", source.Name,
					"url", candidate.URL, "error", err)
				result.Invalid++
				continue
			}
			return failed(result, StageNormalize, err)
		}

		existing, err := r.storyRepo.GetStoryByURL(fields.URL)
		if err != nil {
			return failed(result, StageUpsert, err)
		}

		if err := r.storyRepo.UpsertStory(fields, startedAt); err != nil {
			return failed(result, StageUpsert, err)
		}

		if existing == nil {
			result.Created++
		} else {
			result.Updated++
		}
	}

	// last_scraped_at advances only once the whole upsert stage is done.
	if err := r.sourceRepo.UpdateLastScraped(source.Name, startedAt); err != nil {
		return failed(result, StageUpsert, err)
	}

	result.Outcome = OutcomeSucceeded
	return result
}

func failed(result SourceResult, stage Stage, err error) SourceResult {
	result.Outcome = OutcomeFailed
	result.Stage = stage
	result.Reason = err.Error()
	return result
}
