package scrape

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"github.com/velichkin/newsgrab/app/sources"
)

// Extractor interprets a source's declarative rule against raw listing
// content and produces candidates in document order. Position 0 is the most
// prominent article on the page.
type Extractor struct {
	feedParser *gofeed.Parser
}

func NewExtractor() *Extractor {
	return &Extractor{
		feedParser: gofeed.NewParser(),
	}
}

func (e *Extractor) Run(source *sources.Source, data []byte) ([]Candidate, error) {
	var candidates []Candidate
	var err error

	switch source.Scrape.Kind {
	case sources.KindFeed:
		candidates, err = e.extractFeed(data)
	default:
		candidates, err = e.extractHTML(source.Scrape, data)
	}
	if err != nil {
		return nil, err
	}

	if max := source.Settings.MaxItems; max > 0 && len(candidates) > max {
		candidates = candidates[:max]
	}

	return candidates, nil
}

func (e *Extractor) extractHTML(rule sources.Rule, data []byte) ([]Candidate, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse document: %w", err)
	}

	region := doc.Find(rule.Region)
	if region.Length() == 0 {
		return nil, fmt.Errorf("%w: selector %q matched nothing", ErrStructureNotFound, rule.Region)
	}

	// A present region with zero items is a valid (if unusual) page.
	candidates := make([]Candidate, 0)
	region.Find(rule.Item).Each(func(i int, item *goquery.Selection) {
		candidate, ok := e.extractItem(rule.Fields, item)
		if !ok {
			return
		}
		candidate.Position = len(candidates)
		candidates = append(candidates, candidate)
	})

	return candidates, nil
}

// extractItem pulls one candidate out of a listing entry. URL and headline
// are required; everything else is best-effort.
func (e *Extractor) extractItem(fields sources.FieldRules, item *goquery.Selection) (Candidate, bool) {
	var candidate Candidate

	candidate.URL = fieldValue(item, fields.URL)
	candidate.Headline = fieldValue(item, fields.Headline)
	if candidate.URL == "" || candidate.Headline == "" {
		return Candidate{}, false
	}

	candidate.Summary = fieldValue(item, fields.Summary)
	candidate.ImageURL = fieldValue(item, fields.Image)

	if !fields.Authors.IsZero() {
		item.Find(fields.Authors.Selector).Each(func(_ int, sel *goquery.Selection) {
			if text := strings.TrimSpace(sel.Text()); text != "" {
				candidate.Authors = append(candidate.Authors, text)
			}
		})
	}

	return candidate, true
}

func fieldValue(item *goquery.Selection, rule sources.FieldRule) string {
	if rule.IsZero() {
		return ""
	}

	sel := item.Find(rule.Selector).First()
	if rule.Attr != "" {
		value, _ := sel.Attr(rule.Attr)
		return strings.TrimSpace(value)
	}
	return strings.TrimSpace(sel.Text())
}

func (e *Extractor) extractFeed(data []byte) ([]Candidate, error) {
	feed, err := e.feedParser.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStructureNotFound, err)
	}

	candidates := make([]Candidate, 0, len(feed.Items))
	for _, item := range feed.Items {
		if item == nil || item.Link == "" || item.Title == "" {
			continue
		}

		candidate := Candidate{
			URL:      item.Link,
			Headline: item.Title,
			Summary:  item.Description,
			Position: len(candidates),
		}

		if item.Image != nil {
			candidate.ImageURL = item.Image.URL
		}
		for _, author := range item.Authors {
			if author != nil && author.Name != "" {
				candidate.Authors = append(candidate.Authors, author.Name)
			}
		}

		candidates = append(candidates, candidate)
	}

	return candidates, nil
}
