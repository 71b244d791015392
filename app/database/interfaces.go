package database

import (
	"time"
)

// StoryFields is the mutable slice of a story produced by one scrape pass.
// Externally-managed fields (archived, full text) are deliberately absent:
// the pipeline can never write them through an upsert.
type StoryFields struct {
	SourceName string
	URL        string
	Headline   string
	Summary    string
	Section    string
	Topic      string
	InPageRank int
	ImageURL   string
	Authors    []string
}

type SourceRepository interface {
	GetSource(name string) (*SourceRecord, error)
	ListSources() ([]SourceRecord, error)
	GetSourceCount() (int, error)

	UpsertSource(name, homepage string, enabled bool) error
	UpdateLastScraped(name string, scrapedAt time.Time) error
}

type StoryForExtraction struct {
	ID  string
	URL string
}

type StoryRepository interface {
	GetStoryByURL(url string) (*Story, error)
	GetStoriesBySource(sourceName string, limit int) ([]Story, error)
	GetStoryCount() (int, error)
	GetStoryStats(sourceName string) (total, archived int, err error)

	UpsertStory(fields StoryFields, scrapedAt time.Time) error

	GetStoriesForExtraction(sourceName string, limit int) ([]StoryForExtraction, error)
	UpdateExtractionStatus(storyID string, status string, extractedAt *time.Time, errorMsg string) error
	UpdateFullTextAndStatus(storyID string, fullText string, status string, extractedAt *time.Time, errorMsg string) error
}
