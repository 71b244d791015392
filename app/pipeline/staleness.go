package pipeline

import (
	"time"

	"github.com/velichkin/newsgrab/app/database"
	"github.com/velichkin/newsgrab/app/sources"
)

// SelectDue returns the subsequence of sources due for a scrape: never
// scraped, unknown to the store, or last scraped at least the refresh
// interval ago. A source's own refresh_interval overrides minInterval when
// set. Order of the result carries no meaning.
func SelectDue(list []*sources.Source, records map[string]*database.SourceRecord,
	now time.Time, minInterval time.Duration) []*sources.Source {

	due := make([]*sources.Source, 0, len(list))
	for _, source := range list {
		record := records[source.Name]
		if record == nil || record.LastScrapedAt == nil {
			due = append(due, source)
			continue
		}

		interval := minInterval
		if source.Settings.RefreshInterval > 0 {
			interval = time.Duration(source.Settings.RefreshInterval) * time.Second
		}

		if now.Sub(*record.LastScrapedAt) >= interval {
			due = append(due, source)
		}
	}

	return due
}

// SelectAll bypasses the interval check; it backs the administrative
// full-refresh action.
func SelectAll(list []*sources.Source) []*sources.Source {
	all := make([]*sources.Source, 0, len(list))
	all = append(all, list...)
	return all
}
