package scrape

// Candidate is one article extracted from a single scrape pass. Candidates
// are ephemeral; they exist only between extraction and upsert.
type Candidate struct {
	URL      string
	Headline string
	Summary  string
	ImageURL string
	Authors  []string
	Position int // 0-based document order within the listing; first is most prominent
}
