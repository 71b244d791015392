package pipeline

import (
	"fmt"
	"sync"
	"time"

	"github.com/velichkin/newsgrab/app/database"
)

// mockSourceRepo implements database.SourceRepository in memory.
type mockSourceRepo struct {
	mu      sync.Mutex
	records map[string]*database.SourceRecord
	listErr error
}

func newMockSourceRepo() *mockSourceRepo {
	return &mockSourceRepo{records: make(map[string]*database.SourceRecord)}
}

func (m *mockSourceRepo) GetSource(name string) (*database.SourceRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	record, ok := m.records[name]
	if !ok {
		return nil, nil
	}
	copied := *record
	return &copied, nil
}

func (m *mockSourceRepo) ListSources() ([]database.SourceRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	list := make([]database.SourceRecord, 0, len(m.records))
	for _, record := range m.records {
		list = append(list, *record)
	}
	return list, nil
}

func (m *mockSourceRepo) GetSourceCount() (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records), nil
}

func (m *mockSourceRepo) UpsertSource(name, homepage string, enabled bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.records[name]; ok {
		existing.Homepage = homepage
		existing.Enabled = enabled
		return nil
	}
	m.records[name] = &database.SourceRecord{Name: name, Homepage: homepage, Enabled: enabled}
	return nil
}

func (m *mockSourceRepo) UpdateLastScraped(name string, scrapedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	record, ok := m.records[name]
	if !ok {
		record = &database.SourceRecord{Name: name, Enabled: true}
		m.records[name] = record
	}
	at := scrapedAt
	record.LastScrapedAt = &at
	return nil
}

func (m *mockSourceRepo) lastScraped(name string) *time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	if record, ok := m.records[name]; ok {
		return record.LastScrapedAt
	}
	return nil
}

// mockStoryRepo implements database.StoryRepository in memory with the same
// merge semantics as the real upsert: keyed by URL, archived and full text
// untouched, best-effort fields never blanked.
type mockStoryRepo struct {
	mu        sync.Mutex
	stories   map[string]*database.Story
	upsertErr error
	nextID    int
}

func newMockStoryRepo() *mockStoryRepo {
	return &mockStoryRepo{stories: make(map[string]*database.Story)}
}

func (m *mockStoryRepo) GetStoryByURL(url string) (*database.Story, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	story, ok := m.stories[url]
	if !ok {
		return nil, nil
	}
	copied := *story
	return &copied, nil
}

func (m *mockStoryRepo) UpsertStory(fields database.StoryFields, scrapedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.upsertErr != nil {
		return m.upsertErr
	}

	if existing, ok := m.stories[fields.URL]; ok {
		existing.Headline = fields.Headline
		if fields.Summary != "" {
			existing.Summary = fields.Summary
		}
		existing.Section = fields.Section
		existing.Topic = fields.Topic
		existing.InPageRank = fields.InPageRank
		if fields.ImageURL != "" {
			existing.ImageURL = fields.ImageURL
		}
		if len(fields.Authors) > 0 {
			existing.Authors = fields.Authors
		}
		existing.LastScrapedAt = scrapedAt
		return nil
	}

	m.nextID++
	m.stories[fields.URL] = &database.Story{
		ID:               fmt.Sprintf("story-%d", m.nextID),
		SourceName:       fields.SourceName,
		URL:              fields.URL,
		Headline:         fields.Headline,
		Summary:          fields.Summary,
		Section:          fields.Section,
		Topic:            fields.Topic,
		InPageRank:       fields.InPageRank,
		ImageURL:         fields.ImageURL,
		Authors:          fields.Authors,
		Archived:         false,
		LastScrapedAt:    scrapedAt,
		ExtractionStatus: "pending",
	}
	return nil
}

func (m *mockStoryRepo) GetStoriesBySource(sourceName string, limit int) ([]database.Story, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var stories []database.Story
	for _, story := range m.stories {
		if story.SourceName == sourceName {
			stories = append(stories, *story)
		}
	}
	return stories, nil
}

func (m *mockStoryRepo) GetStoryCount() (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.stories), nil
}

func (m *mockStoryRepo) GetStoryStats(sourceName string) (int, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	total, archived := 0, 0
	for _, story := range m.stories {
		if story.SourceName == sourceName {
			total++
			if story.Archived {
				archived++
			}
		}
	}
	return total, archived, nil
}

func (m *mockStoryRepo) GetStoriesForExtraction(sourceName string, limit int) ([]database.StoryForExtraction, error) {
	return nil, nil
}

func (m *mockStoryRepo) UpdateExtractionStatus(storyID string, status string, extractedAt *time.Time, errorMsg string) error {
	return nil
}

func (m *mockStoryRepo) UpdateFullTextAndStatus(storyID string, fullText string, status string, extractedAt *time.Time, errorMsg string) error {
	return nil
}

func (m *mockStoryRepo) story(url string) *database.Story {
	m.mu.Lock()
	defer m.mu.Unlock()
	if story, ok := m.stories[url]; ok {
		copied := *story
		return &copied
	}
	return nil
}

func (m *mockStoryRepo) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.stories)
}
