package tasks

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/velichkin/newsgrab/app/database"
	"github.com/velichkin/newsgrab/app/scrape"
	"github.com/velichkin/newsgrab/app/sources"
)

// ExtractFullTextTask deep-fetches article pages for one source and
// backfills full_text. This task owns full_text; the listing pipeline never
// writes it.
type ExtractFullTextTask struct {
	Task
	Source     *sources.Source
	httpClient *http.Client
	extractor  *scrape.FullTextExtractor
	storyRepo  database.StoryRepository
	userAgent  string
}

func NewExtractFullTextTask(source *sources.Source, httpClient *http.Client,
	extractor *scrape.FullTextExtractor, storyRepo database.StoryRepository,
	userAgent string) *ExtractFullTextTask {
	return &ExtractFullTextTask{
		Task:       NewTask(TaskTypeExtractFullText, source.Name),
		Source:     source,
		httpClient: httpClient,
		extractor:  extractor,
		storyRepo:  storyRepo,
		userAgent:  userAgent,
	}
}

func (t *ExtractFullTextTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if !t.Source.Settings.ExtractFullText {
		slog.Debug("Full-text extraction disabled for source", "source", t.SourceName)
		return nil
	}

	stories, err := t.storyRepo.GetStoriesForExtraction(t.SourceName, t.Source.Settings.MaxItems)
	if err != nil {
		return fmt.Errorf("failed to get stories for extraction: %w", err)
	}

	if len(stories) == 0 {
		slog.Debug("No stories need full-text extraction", "source", t.SourceName)
		return nil
	}

	successCount := 0
	errorCount := 0

	for _, story := range stories {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := t.extractStory(ctx, story); err != nil {
			slog.Error("Failed to extract full text", "story_id", story.ID,
				"url", story.URL, "error", err)
			errorCount++

			now := time.Now().UTC()
			if err := t.storyRepo.UpdateExtractionStatus(story.ID, "failed", &now, err.Error()); err != nil {
				slog.Error("Failed to update extraction status", "story_id", story.ID, "error", err)
			}
		} else {
			successCount++
		}
	}

	slog.Info("Task completed",
		"type", t.GetType(),
		"source", t.SourceName,
		"duration", t.GetDuration(),
		"success", successCount,
		"errors", errorCount)

	return nil
}

func (t *ExtractFullTextTask) extractStory(ctx context.Context, story database.StoryForExtraction) error {
	if story.URL == "" {
		return fmt.Errorf("story has no URL")
	}

	data, err := t.fetchArticle(ctx, story.URL)
	if err != nil {
		return fmt.Errorf("failed to fetch article: %w", err)
	}

	fullText, err := t.extractor.Run(data)
	if err != nil {
		return fmt.Errorf("failed to extract content: %w", err)
	}

	now := time.Now().UTC()
	if err := t.storyRepo.UpdateFullTextAndStatus(story.ID, fullText, "success", &now, ""); err != nil {
		return fmt.Errorf("failed to store full text: %w", err)
	}

	slog.Debug("Full text extracted", "story_id", story.ID, "url", story.URL,
		"content_length", len(fullText))
	return nil
}

func (t *ExtractFullTextTask) fetchArticle(ctx context.Context, url string) ([]byte, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, time.Duration(t.Source.Settings.Timeout)*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(timeoutCtx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", t.userAgent)

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch URL: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	contentType := resp.Header.Get("Content-Type")
	if !strings.Contains(strings.ToLower(contentType), "text/html") {
		return nil, fmt.Errorf("content type is not HTML: %s", contentType)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return data, nil
}
