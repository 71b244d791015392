package database

import (
	"database/sql"
	"fmt"
	"time"
)

var _ SourceRepository = (*SourceRepositoryImpl)(nil)

type SourceRepositoryImpl struct {
	db *DB
}

func NewSourceRepository(db *DB) *SourceRepositoryImpl {
	return &SourceRepositoryImpl{db: db}
}

// UpsertSource registers a configured source, keyed by its name. Scrape
// state (last_scraped_at) is preserved across re-registration.
func (r *SourceRepositoryImpl) UpsertSource(name, homepage string, enabled bool) error {
	_, err := r.db.Exec(`
		INSERT INTO sources (name, homepage, enabled)
		VALUES ($1, $2, $3)
		ON CONFLICT (name) DO UPDATE SET
			homepage = EXCLUDED.homepage,
			enabled = EXCLUDED.enabled,
			updated_at = NOW()
	`, name, homepage, enabled)

	if err != nil {
		return fmt.Errorf("failed to upsert source: %w", err)
	}

	return nil
}

func (r *SourceRepositoryImpl) GetSource(name string) (*SourceRecord, error) {
	var record SourceRecord
	err := r.db.QueryRow(`
		SELECT id, name, homepage, last_scraped_at, enabled, created_at, updated_at
		FROM sources
		WHERE name = $1
	`, name).Scan(
		&record.ID, &record.Name, &record.Homepage, &record.LastScrapedAt,
		&record.Enabled, &record.CreatedAt, &record.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get source: %w", err)
	}

	return &record, nil
}

func (r *SourceRepositoryImpl) ListSources() ([]SourceRecord, error) {
	rows, err := r.db.Query(`
		SELECT id, name, homepage, last_scraped_at, enabled, created_at, updated_at
		FROM sources
		ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sources: %w", err)
	}
	defer rows.Close()

	var records []SourceRecord
	for rows.Next() {
		var record SourceRecord
		err := rows.Scan(
			&record.ID, &record.Name, &record.Homepage, &record.LastScrapedAt,
			&record.Enabled, &record.CreatedAt, &record.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan source row: %w", err)
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating source rows: %w", err)
	}

	return records, nil
}

// UpdateLastScraped marks a source as scraped at the given run start time.
// Called only after the source's upsert stage has completed.
func (r *SourceRepositoryImpl) UpdateLastScraped(name string, scrapedAt time.Time) error {
	_, err := r.db.Exec(`
		UPDATE sources
		SET last_scraped_at = $2, updated_at = NOW()
		WHERE name = $1
	`, name, scrapedAt)

	if err != nil {
		return fmt.Errorf("failed to update last scraped time: %w", err)
	}

	return nil
}

func (r *SourceRepositoryImpl) GetSourceCount() (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM sources").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get source count: %w", err)
	}
	return count, nil
}
