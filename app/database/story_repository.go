package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"
)

var _ StoryRepository = (*StoryRepositoryImpl)(nil)

type StoryRepositoryImpl struct {
	db *DB
}

func NewStoryRepository(db *DB) *StoryRepositoryImpl {
	return &StoryRepositoryImpl{db: db}
}

func (r *StoryRepositoryImpl) GetStoryByURL(url string) (*Story, error) {
	var story Story
	err := r.db.QueryRow(`
		SELECT id, source_name, url, COALESCE(headline, ''), COALESCE(summary, ''),
		       COALESCE(full_text, ''), COALESCE(section, ''), COALESCE(topic, ''),
		       in_page_rank, COALESCE(image_url, ''), COALESCE(authors, '{}'),
		       archived, last_scraped_at, created_at, updated_at,
		       extraction_status, COALESCE(extraction_error, ''), extraction_attempts, extracted_at
		FROM stories
		WHERE url = $1
	`, url).Scan(
		&story.ID, &story.SourceName, &story.URL, &story.Headline, &story.Summary,
		&story.FullText, &story.Section, &story.Topic,
		&story.InPageRank, &story.ImageURL, pq.Array(&story.Authors),
		&story.Archived, &story.LastScrapedAt, &story.CreatedAt, &story.UpdatedAt,
		&story.ExtractionStatus, &story.ExtractionError, &story.ExtractionAttempts, &story.ExtractedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get story by URL: %w", err)
	}

	return &story, nil
}

// UpsertStory merges one scrape-pass sighting into the store. The unique
// constraint on url is the dedup key: a concurrent insert of the same URL
// resolves into the update branch instead of erroring. The archived flag and
// full_text are never touched, and best-effort fields are not blanked when a
// later pass fails to extract them.
func (r *StoryRepositoryImpl) UpsertStory(fields StoryFields, scrapedAt time.Time) error {
	_, err := r.db.Exec(`
		INSERT INTO stories (
			source_name, url, headline, summary, section, topic,
			in_page_rank, image_url, authors, last_scraped_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (url) DO UPDATE SET
			headline = EXCLUDED.headline,
			summary = CASE WHEN EXCLUDED.summary <> '' THEN EXCLUDED.summary ELSE stories.summary END,
			section = EXCLUDED.section,
			topic = EXCLUDED.topic,
			in_page_rank = EXCLUDED.in_page_rank,
			image_url = CASE WHEN EXCLUDED.image_url <> '' THEN EXCLUDED.image_url ELSE stories.image_url END,
			authors = CASE WHEN cardinality(EXCLUDED.authors) > 0 THEN EXCLUDED.authors ELSE stories.authors END,
			last_scraped_at = EXCLUDED.last_scraped_at,
			updated_at = NOW()
	`, fields.SourceName, fields.URL, fields.Headline, fields.Summary,
		fields.Section, fields.Topic, fields.InPageRank, fields.ImageURL,
		pq.Array(fields.Authors), scrapedAt)

	if err != nil {
		return fmt.Errorf("failed to upsert story: %w", err)
	}

	return nil
}

func (r *StoryRepositoryImpl) GetStoriesBySource(sourceName string, limit int) ([]Story, error) {
	rows, err := r.db.Query(`
		SELECT id, source_name, url, COALESCE(headline, ''), COALESCE(summary, ''),
		       COALESCE(full_text, ''), COALESCE(section, ''), COALESCE(topic, ''),
		       in_page_rank, COALESCE(image_url, ''), COALESCE(authors, '{}'),
		       archived, last_scraped_at, created_at, updated_at,
		       extraction_status, COALESCE(extraction_error, ''), extraction_attempts, extracted_at
		FROM stories
		WHERE source_name = $1
		ORDER BY in_page_rank, last_scraped_at DESC
		LIMIT $2
	`, sourceName, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get stories: %w", err)
	}
	defer rows.Close()

	var stories []Story
	for rows.Next() {
		var story Story
		err := rows.Scan(
			&story.ID, &story.SourceName, &story.URL, &story.Headline, &story.Summary,
			&story.FullText, &story.Section, &story.Topic,
			&story.InPageRank, &story.ImageURL, pq.Array(&story.Authors),
			&story.Archived, &story.LastScrapedAt, &story.CreatedAt, &story.UpdatedAt,
			&story.ExtractionStatus, &story.ExtractionError, &story.ExtractionAttempts, &story.ExtractedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan story row: %w", err)
		}
		stories = append(stories, story)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating story rows: %w", err)
	}

	return stories, nil
}

func (r *StoryRepositoryImpl) GetStoryCount() (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM stories").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get story count: %w", err)
	}
	return count, nil
}

func (r *StoryRepositoryImpl) GetStoryStats(sourceName string) (int, int, error) {
	var total, archived int
	err := r.db.QueryRow(`
		SELECT
			COUNT(*) AS total,
			COALESCE(SUM(CASE WHEN archived THEN 1 ELSE 0 END), 0) AS archived
		FROM stories
		WHERE source_name = $1
	`, sourceName).Scan(&total, &archived)

	if err != nil {
		return 0, 0, fmt.Errorf("failed to get story stats: %w", err)
	}

	return total, archived, nil
}

// GetStoriesForExtraction returns unarchived stories still waiting for a
// full-text deep fetch, most prominent first.
func (r *StoryRepositoryImpl) GetStoriesForExtraction(sourceName string, limit int) ([]StoryForExtraction, error) {
	rows, err := r.db.Query(`
		SELECT id, url
		FROM stories
		WHERE source_name = $1
		  AND archived = false
		  AND extraction_status = 'pending'
		  AND extraction_attempts < 3
		ORDER BY in_page_rank
		LIMIT $2
	`, sourceName, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get stories for extraction: %w", err)
	}
	defer rows.Close()

	var stories []StoryForExtraction
	for rows.Next() {
		var story StoryForExtraction
		if err := rows.Scan(&story.ID, &story.URL); err != nil {
			return nil, fmt.Errorf("failed to scan story row: %w", err)
		}
		stories = append(stories, story)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating story rows: %w", err)
	}

	return stories, nil
}

func (r *StoryRepositoryImpl) UpdateExtractionStatus(storyID string, status string, extractedAt *time.Time, errorMsg string) error {
	_, err := r.db.Exec(`
		UPDATE stories
		SET extraction_status = $2, extracted_at = $3, extraction_error = $4,
		    extraction_attempts = extraction_attempts + 1
		WHERE id = $1
	`, storyID, status, extractedAt, errorMsg)

	if err != nil {
		return fmt.Errorf("failed to update extraction status: %w", err)
	}

	return nil
}

func (r *StoryRepositoryImpl) UpdateFullTextAndStatus(storyID string, fullText string, status string, extractedAt *time.Time, errorMsg string) error {
	_, err := r.db.Exec(`
		UPDATE stories
		SET full_text = $2, extraction_status = $3, extracted_at = $4, extraction_error = $5,
		    extraction_attempts = extraction_attempts + 1
		WHERE id = $1
	`, storyID, fullText, status, extractedAt, errorMsg)

	if err != nil {
		return fmt.Errorf("failed to update full text: %w", err)
	}

	return nil
}
