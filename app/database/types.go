package database

import (
	"time"
)

// SourceRecord is the store's per-source scrape state. The extraction rule
// itself lives in the registry; record and rule meet on the source name.
type SourceRecord struct {
	ID            string // Database UUID
	Name          string // Rule file name, the source identity
	Homepage      string
	LastScrapedAt *time.Time // nil means never scraped
	Enabled       bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Story is the canonical, deduplicated representation of one article, keyed
// by its canonical URL.
type Story struct {
	ID            string
	SourceName    string
	URL           string
	Headline      string
	Summary       string
	FullText      string
	Section       string
	Topic         string
	InPageRank    int
	ImageURL      string
	Authors       []string
	Archived      bool
	LastScrapedAt time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time

	ExtractionStatus   string // pending, success, failed, skipped
	ExtractionError    string
	ExtractionAttempts int
	ExtractedAt        *time.Time
}
