package scrape

import (
	"fmt"
	"net/url"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/velichkin/newsgrab/app/database"
	"github.com/velichkin/newsgrab/app/sources"
)

// Query parameters stripped during URL canonicalization. Stripping happens at
// ingestion time so the unique-key invariant holds in the store.
var trackingParams = []string{
	"utm_source", "utm_medium", "utm_campaign", "utm_term", "utm_content",
	"fbclid", "gclid", "mc_cid", "mc_eid", "ref",
}

// Normalizer maps candidates into upsertable story fields: canonical URL,
// deterministic section/topic classification, cleaned author list. It never
// produces values for externally-managed fields (archived, full text).
type Normalizer struct {
	titleCaser cases.Caser
}

func NewNormalizer() *Normalizer {
	return &Normalizer{
		titleCaser: cases.Title(language.English),
	}
}

func (n *Normalizer) Run(candidate Candidate, source *sources.Source) (database.StoryFields, error) {
	canonical, err := CanonicalURL(candidate.URL, source.Homepage)
	if err != nil {
		return database.StoryFields{}, fmt.Errorf("%w: %v", ErrInvalidCandidate, err)
	}

	imageURL := ""
	if candidate.ImageURL != "" {
		if resolved, err := resolveURL(candidate.ImageURL, source.Homepage); err == nil {
			imageURL = resolved
		}
	}

	section, topic := n.classify(canonical, candidate.Headline, source.Classify)

	return database.StoryFields{
		SourceName: source.Name,
		URL:        canonical,
		Headline:   strings.TrimSpace(candidate.Headline),
		Summary:    strings.TrimSpace(candidate.Summary),
		Section:    section,
		Topic:      topic,
		InPageRank: candidate.Position,
		ImageURL:   imageURL,
		Authors:    cleanAuthors(candidate.Authors),
	}, nil
}

// CanonicalURL resolves raw against base, lower-cases scheme and host, drops
// the fragment, and strips tracking query parameters. Remaining parameters
// are re-encoded in sorted order so equal URLs compare equal as strings.
func CanonicalURL(raw, base string) (string, error) {
	resolved, err := resolveURL(raw, base)
	if err != nil {
		return "", err
	}

	u, err := url.Parse(resolved)
	if err != nil {
		return "", err
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("not an absolute URL: %s", raw)
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""

	query := u.Query()
	for _, param := range trackingParams {
		query.Del(param)
	}
	u.RawQuery = query.Encode()

	return u.String(), nil
}

func resolveURL(raw, base string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("empty URL")
	}

	ref, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("unparseable URL %q: %w", raw, err)
	}
	if ref.IsAbs() {
		return ref.String(), nil
	}

	baseURL, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("unparseable base URL %q: %w", base, err)
	}

	return baseURL.ResolveReference(ref).String(), nil
}

// classify is deterministic: the same candidate and rule always yield the
// same section and topic.
func (n *Normalizer) classify(canonical, headline string, rules sources.Classify) (string, string) {
	section := n.classifySection(canonical, rules)
	topic := classifyTopic(headline, rules.Topics)
	return section, topic
}

func (n *Normalizer) classifySection(canonical string, rules sources.Classify) string {
	u, err := url.Parse(canonical)
	if err != nil {
		return rules.DefaultSection
	}

	// Longest configured path prefix wins.
	best := ""
	for prefix := range rules.Sections {
		if strings.HasPrefix(u.Path, prefix) && len(prefix) > len(best) {
			best = prefix
		}
	}
	if best != "" {
		return rules.Sections[best]
	}

	if rules.DefaultSection != "" {
		return rules.DefaultSection
	}

	// Fall back to the first path segment, title-cased for display.
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(segments) > 1 && segments[0] != "" {
		return n.titleCaser.String(strings.ReplaceAll(segments[0], "-", " "))
	}

	return ""
}

func classifyTopic(headline string, topics map[string][]string) string {
	if len(topics) == 0 {
		return ""
	}

	lowered := strings.ToLower(headline)

	// Topic names are walked in sorted order so overlapping keyword sets
	// resolve the same way on every run.
	names := make([]string, 0, len(topics))
	for name := range topics {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		for _, keyword := range topics[name] {
			if strings.Contains(lowered, strings.ToLower(keyword)) {
				return name
			}
		}
	}

	return ""
}

func cleanAuthors(raw []string) []string {
	var authors []string
	seen := make(map[string]bool)

	for _, entry := range raw {
		entry = strings.TrimSpace(entry)
		entry = strings.TrimPrefix(entry, "By ")
		entry = strings.TrimPrefix(entry, "by ")

		for _, part := range splitAuthors(entry) {
			part = strings.TrimSpace(part)
			if part == "" || seen[part] {
				continue
			}
			seen[part] = true
			authors = append(authors, part)
		}
	}

	return authors
}

func splitAuthors(entry string) []string {
	entry = strings.ReplaceAll(entry, " and ", ",")
	entry = strings.ReplaceAll(entry, " & ", ",")
	return strings.Split(entry, ",")
}
