package scrape

import (
	"errors"
	"reflect"
	"testing"

	"github.com/velichkin/newsgrab/app/sources"
)

func TestCanonicalURL(t *testing.T) {
	base := "https://news.example.com"

	cases := []struct {
		name string
		raw  string
		want string
	}{
		{"lowercases scheme and host", "HTTPS://News.Example.COM/World/Story", "https://news.example.com/World/Story"},
		{"strips tracking params", "https://news.example.com/a?utm_source=tw&utm_medium=social&id=7", "https://news.example.com/a?id=7"},
		{"strips fbclid and gclid", "https://news.example.com/a?fbclid=x&gclid=y", "https://news.example.com/a"},
		{"drops fragment", "https://news.example.com/a#comments", "https://news.example.com/a"},
		{"resolves relative path", "/world/story-a", "https://news.example.com/world/story-a"},
		{"sorts remaining params", "https://news.example.com/a?z=1&b=2", "https://news.example.com/a?b=2&z=1"},
		{"keeps path case", "https://news.example.com/World/Story-A", "https://news.example.com/World/Story-A"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := CanonicalURL(tc.raw, base)
			if err != nil {
				t.Fatalf("Expected no error, got: %v", err)
			}
			if got != tc.want {
				t.Errorf("Expected %q, got: %q", tc.want, got)
			}
		})
	}
}

func TestCanonicalURLErrors(t *testing.T) {
	if _, err := CanonicalURL("", "https://news.example.com"); err == nil {
		t.Error("Expected error for empty URL")
	}
	if _, err := CanonicalURL("   ", "https://news.example.com"); err == nil {
		t.Error("Expected error for blank URL")
	}
	if _, err := CanonicalURL("/relative", "also-relative"); err == nil {
		t.Error("Expected error when resolution yields no absolute URL")
	}
}

func classifySource() *sources.Source {
	return &sources.Source{
		Name:     "example",
		Homepage: "https://news.example.com",
		Classify: sources.Classify{
			DefaultSection: "front",
			Sections: map[string]string{
				"/world":        "world",
				"/world/europe": "europe",
			},
			Topics: map[string][]string{
				"politics": {"election", "senate"},
				"tech":     {"startup"},
			},
		},
	}
}

func TestNormalizeClassification(t *testing.T) {
	normalizer := NewNormalizer()
	source := classifySource()

	fields, err := normalizer.Run(Candidate{
		URL:      "/world/europe/story?utm_source=x",
		Headline: "Senate Passes Budget",
		Position: 3,
	}, source)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if fields.URL != "https://news.example.com/world/europe/story" {
		t.Errorf("Expected canonical URL, got: %s", fields.URL)
	}
	// Longest configured prefix wins
	if fields.Section != "europe" {
		t.Errorf("Expected section 'europe', got: %s", fields.Section)
	}
	if fields.Topic != "politics" {
		t.Errorf("Expected topic 'politics', got: %s", fields.Topic)
	}
	if fields.InPageRank != 3 {
		t.Errorf("Expected in-page rank 3, got: %d", fields.InPageRank)
	}
	if fields.SourceName != "example" {
		t.Errorf("Expected source name 'example', got: %s", fields.SourceName)
	}
}

func TestNormalizeDefaultSection(t *testing.T) {
	normalizer := NewNormalizer()
	source := classifySource()

	fields, err := normalizer.Run(Candidate{URL: "/opinion/a", Headline: "A headline"}, source)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if fields.Section != "front" {
		t.Errorf("Expected default section 'front', got: %s", fields.Section)
	}
	if fields.Topic != "" {
		t.Errorf("Expected empty topic, got: %s", fields.Topic)
	}
}

func TestNormalizeSectionFallbackFromPath(t *testing.T) {
	normalizer := NewNormalizer()
	source := &sources.Source{
		Name:     "bare",
		Homepage: "https://news.example.com",
	}

	fields, err := normalizer.Run(Candidate{URL: "/business-news/q3-report", Headline: "Q3"}, source)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if fields.Section != "Business News" {
		t.Errorf("Expected derived section 'Business News', got: %s", fields.Section)
	}
}

func TestNormalizeDeterministic(t *testing.T) {
	normalizer := NewNormalizer()
	source := classifySource()

	candidate := Candidate{URL: "/world/story", Headline: "Startup wins election coverage award"}

	first, err := normalizer.Run(candidate, source)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	for i := 0; i < 20; i++ {
		again, err := normalizer.Run(candidate, source)
		if err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}
		if again.Section != first.Section || again.Topic != first.Topic {
			t.Fatalf("Classification must be deterministic: got %s/%s then %s/%s",
				first.Section, first.Topic, again.Section, again.Topic)
		}
	}
}

func TestNormalizeInvalidCandidate(t *testing.T) {
	normalizer := NewNormalizer()
	source := classifySource()

	_, err := normalizer.Run(Candidate{URL: "", Headline: "No URL"}, source)
	if !errors.Is(err, ErrInvalidCandidate) {
		t.Errorf("Expected ErrInvalidCandidate, got: %v", err)
	}
}

func TestNormalizeResolvesImageURL(t *testing.T) {
	normalizer := NewNormalizer()
	source := classifySource()

	fields, err := normalizer.Run(Candidate{
		URL:      "/world/a",
		Headline: "A",
		ImageURL: "/img/a.jpg",
	}, source)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if fields.ImageURL != "https://news.example.com/img/a.jpg" {
		t.Errorf("Expected resolved image URL, got: %s", fields.ImageURL)
	}
}

func TestCleanAuthors(t *testing.T) {
	cases := []struct {
		raw  []string
		want []string
	}{
		{[]string{"By Alice Adams"}, []string{"Alice Adams"}},
		{[]string{"By Alice Adams, Bob Brown and Carol Clark"}, []string{"Alice Adams", "Bob Brown", "Carol Clark"}},
		{[]string{"Alice Adams", "Alice Adams"}, []string{"Alice Adams"}},
		{[]string{"Alice Adams & Bob Brown"}, []string{"Alice Adams", "Bob Brown"}},
		{[]string{"  "}, nil},
		{nil, nil},
	}

	for _, tc := range cases {
		got := cleanAuthors(tc.raw)
		if !reflect.DeepEqual(got, tc.want) {
			t.Errorf("cleanAuthors(%v): expected %v, got %v", tc.raw, tc.want, got)
		}
	}
}
