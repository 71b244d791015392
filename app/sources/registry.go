package sources

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Registry is the catalog of configured sources, loaded from one YAML rule
// file per source. It is read-mostly; Run reloads the whole directory, so the
// catalog never outlives one load between runs.
type Registry struct {
	sourcesDir string
	cache      map[string]*Source
	mu         sync.RWMutex
}

func NewRegistry(sourcesDir string) *Registry {
	return &Registry{
		sourcesDir: sourcesDir,
		cache:      make(map[string]*Source),
	}
}

func (r *Registry) Run() error {
	if _, err := os.Stat(r.sourcesDir); os.IsNotExist(err) {
		return nil
	}

	files, err := filepath.Glob(filepath.Join(r.sourcesDir, "*.yml"))
	if err != nil {
		return fmt.Errorf("failed to find YML files: %w", err)
	}

	yamlFiles, err := filepath.Glob(filepath.Join(r.sourcesDir, "*.yaml"))
	if err != nil {
		return fmt.Errorf("failed to find YAML files: %w", err)
	}
	files = append(files, yamlFiles...)

	loaded := make(map[string]bool, len(files))
	for _, file := range files {
		fileName := filepath.Base(file)
		sourceName := strings.TrimSuffix(fileName, filepath.Ext(fileName))

		source, err := r.LoadSource(sourceName)
		if err != nil {
			return fmt.Errorf("error loading %s: %w", file, err)
		}
		loaded[sourceName] = true

		slog.Debug("Source rule loaded", "source", sourceName,
			"kind", source.Scrape.Kind, "enabled", source.Settings.Enabled)
	}

	// Drop cached sources whose rule file disappeared since the last load.
	r.mu.Lock()
	for name := range r.cache {
		if !loaded[name] {
			delete(r.cache, name)
			slog.Debug("Source rule removed", "source", name)
		}
	}
	r.mu.Unlock()

	return nil
}

func (r *Registry) LoadSource(sourceName string) (*Source, error) {
	ruleFile, err := r.findRuleFile(sourceName)
	if err != nil {
		return nil, err
	}

	source, err := r.parseSource(ruleFile)
	if err != nil {
		return nil, err
	}

	source.Name = sourceName

	if err := r.validateSource(source); err != nil {
		return nil, fmt.Errorf("invalid source rule %s: %w", ruleFile, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache[source.Name] = source

	return source, nil
}

// Get returns the source with the given name, or an error when no such
// source is configured.
func (r *Registry) Get(sourceName string) (*Source, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	source, ok := r.cache[sourceName]
	if !ok {
		return nil, fmt.Errorf("source '%s' not found", sourceName)
	}
	return source, nil
}

// List returns all configured sources ordered by name.
func (r *Registry) List() []*Source {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := make([]*Source, 0, len(r.cache))
	for _, s := range r.cache {
		list = append(list, s)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	return list
}

// ListEnabled returns all enabled sources ordered by name.
func (r *Registry) ListEnabled() []*Source {
	all := r.List()
	enabled := make([]*Source, 0, len(all))
	for _, s := range all {
		if s.Settings.Enabled {
			enabled = append(enabled, s)
		}
	}
	return enabled
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.cache)
}

func (r *Registry) findRuleFile(sourceName string) (string, error) {
	for _, ext := range []string{".yml", ".yaml"} {
		path := filepath.Join(r.sourcesDir, sourceName+ext)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("no rule file for source '%s' in %s", sourceName, r.sourcesDir)
}

func (r *Registry) parseSource(ruleFile string) (*Source, error) {
	data, err := os.ReadFile(ruleFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var source Source
	if err := yaml.Unmarshal(data, &source); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if source.Scrape.Kind == "" {
		source.Scrape.Kind = KindHTML
	}
	if source.Settings.MaxItems == 0 {
		source.Settings.MaxItems = 100
	}
	if source.Settings.Timeout == 0 {
		source.Settings.Timeout = 20
	}

	return &source, nil
}

func (r *Registry) validateSource(source *Source) error {
	if source == nil {
		return fmt.Errorf("source is nil")
	}

	if source.Name == "" {
		return fmt.Errorf("source name is required")
	}
	if source.Homepage == "" {
		return fmt.Errorf("homepage is required")
	}
	if u, err := url.Parse(source.Homepage); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("homepage must be an absolute URL: %s", source.Homepage)
	}

	switch source.Scrape.Kind {
	case KindHTML:
		if source.Scrape.Region == "" {
			return fmt.Errorf("scrape.region is required for html sources")
		}
		if source.Scrape.Item == "" {
			return fmt.Errorf("scrape.item is required for html sources")
		}
		if source.Scrape.Fields.URL.IsZero() {
			return fmt.Errorf("scrape.fields.url is required for html sources")
		}
		if source.Scrape.Fields.Headline.IsZero() {
			return fmt.Errorf("scrape.fields.headline is required for html sources")
		}
	case KindFeed:
		if source.Scrape.FeedURL == "" {
			return fmt.Errorf("scrape.feed_url is required for feed sources")
		}
	default:
		return fmt.Errorf("unknown scrape kind: %s", source.Scrape.Kind)
	}

	if source.Settings.RefreshInterval < 0 {
		return fmt.Errorf("refresh interval must be non-negative")
	}
	if source.Settings.Timeout < 0 {
		return fmt.Errorf("timeout must be non-negative")
	}

	return nil
}
