package sources

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Rule kinds. An html rule walks the homepage listing with CSS selectors;
// a feed rule reads the source's RSS/Atom listing instead.
const (
	KindHTML = "html"
	KindFeed = "feed"
)

// Source is one configured news origin: where it lives, how its listing is
// extracted, and how its articles are classified.
type Source struct {
	Name     string   // Derived from filename (without .yml extension)
	Homepage string   `yaml:"homepage"`
	Scrape   Rule     `yaml:"scrape"`
	Settings Settings `yaml:"settings"`
	Classify Classify `yaml:"classify"`
}

// Rule is a declarative structural descriptor of a source's article listing.
// Adding a source is a configuration change, not a code change.
type Rule struct {
	Kind    string     `yaml:"kind"`
	FeedURL string     `yaml:"feed_url"` // feed kind only
	Region  string     `yaml:"region"`   // html kind: selector for the listing region
	Item    string     `yaml:"item"`     // html kind: selector for one article within the region
	Fields  FieldRules `yaml:"fields"`
}

type FieldRules struct {
	Headline FieldRule `yaml:"headline"`
	URL      FieldRule `yaml:"url"`
	Summary  FieldRule `yaml:"summary"`
	Image    FieldRule `yaml:"image"`
	Authors  FieldRule `yaml:"authors"`
}

// FieldRule selects one candidate field. In YAML it is either a bare selector
// string (take the element text) or a mapping with selector and attr.
type FieldRule struct {
	Selector string `yaml:"selector"`
	Attr     string `yaml:"attr"`
}

func (f *FieldRule) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		f.Selector = value.Value
		return nil
	}

	type plain FieldRule
	var p plain
	if err := value.Decode(&p); err != nil {
		return fmt.Errorf("invalid field rule: %w", err)
	}
	*f = FieldRule(p)
	return nil
}

func (f FieldRule) IsZero() bool {
	return f.Selector == ""
}

type Settings struct {
	Enabled         bool `yaml:"enabled"`
	RefreshInterval int  `yaml:"refresh_interval"` // seconds; 0 falls back to the global minimum
	MaxItems        int  `yaml:"max_items"`
	Timeout         int  `yaml:"timeout"` // seconds
	ExtractFullText bool `yaml:"extract_full_text"`
}

// Classify holds the source's deterministic section/topic mappings.
type Classify struct {
	DefaultSection string              `yaml:"default_section"`
	Sections       map[string]string   `yaml:"sections"` // URL path prefix -> section
	Topics         map[string][]string `yaml:"topics"`   // topic -> headline keywords
}
