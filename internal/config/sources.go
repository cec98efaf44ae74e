package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/couchcryptid/outage-feed-etl/internal/domain"
)

// Adapter kinds.
const (
	KindFeed   = "feed"
	KindScrape = "scrape"
)

// Selectors override the scrape adapter's shape-matching heuristics. Any
// empty selector falls back to the heuristic.
type Selectors struct {
	Item   string `yaml:"item"`
	Title  string `yaml:"title"`
	Link   string `yaml:"link"`
	Date   string `yaml:"date"`
	Body   string `yaml:"body"`
	Window string `yaml:"window"` // prose describing a planned window
	Status string `yaml:"status"` // a PLANNED, UNPLANNED or RESTORED label
}

// SourceConfig is one entry of the sources file.
type SourceConfig struct {
	Name          string        `yaml:"name"`  // stable identifier, prefixes item IDs
	Label         string        `yaml:"label"` // display name
	Kind          string        `yaml:"kind"`  // feed | scrape
	URL           string        `yaml:"url"`
	Tier          string        `yaml:"tier"`   // OFFICIAL | MEDIA | COMMUNITY
	Domain        string        `yaml:"domain"` // POWER | EXAMS
	Fixture       string        `yaml:"fixture"`
	Keywords      []string      `yaml:"keywords"`
	Blacklist     []string      `yaml:"blacklist"`
	MaxItems      int           `yaml:"max_items"`
	MinConfidence float64       `yaml:"min_confidence"`
	VerifiedBy    string        `yaml:"verified_by"`
	Authority     bool          `yaml:"authority"` // highest-authority source, always wins dedup
	StaleAfter    time.Duration `yaml:"stale_after"`
	Selectors     Selectors     `yaml:"selectors"`
}

type sourcesFile struct {
	Sources []SourceConfig `yaml:"sources"`
}

// LoadSources reads and validates the static source list.
func LoadSources(path string) ([]SourceConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sources file: %w", err)
	}
	return ParseSources(data)
}

// ParseSources decodes and validates a sources document.
func ParseSources(data []byte) ([]SourceConfig, error) {
	var f sourcesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse sources file: %w", err)
	}
	if len(f.Sources) == 0 {
		return nil, errors.New("sources file lists no sources")
	}

	seen := make(map[string]bool, len(f.Sources))
	for i := range f.Sources {
		s := &f.Sources[i]
		if s.Name == "" {
			return nil, fmt.Errorf("source #%d: name is required", i+1)
		}
		if seen[s.Name] {
			return nil, fmt.Errorf("source %q: duplicate name", s.Name)
		}
		seen[s.Name] = true

		if s.Kind != KindFeed && s.Kind != KindScrape {
			return nil, fmt.Errorf("source %q: unknown kind %q", s.Name, s.Kind)
		}
		if s.URL == "" {
			return nil, fmt.Errorf("source %q: url is required", s.Name)
		}
		if _, ok := domain.ParseVertical(s.Domain); !ok {
			return nil, fmt.Errorf("source %q: unknown domain %q", s.Name, s.Domain)
		}
		if s.MinConfidence < 0 || s.MinConfidence > 1 {
			return nil, fmt.Errorf("source %q: min_confidence must be within [0, 1]", s.Name)
		}
		if s.MaxItems < 0 {
			return nil, fmt.Errorf("source %q: max_items must not be negative", s.Name)
		}
		if s.Fixture == "" {
			s.Fixture = s.Name
		}
	}
	return f.Sources, nil
}

// Source converts the entry into the domain description used for
// normalization. defaultMinConfidence applies when the entry sets none.
func (s SourceConfig) Source(defaultMinConfidence float64) domain.Source {
	v, _ := domain.ParseVertical(s.Domain)
	minConf := s.MinConfidence
	if minConf == 0 {
		minConf = defaultMinConfidence
	}
	return domain.Source{
		Name:          s.Name,
		Label:         s.Label,
		Tier:          domain.ParseTier(s.Tier),
		Vertical:      v,
		URL:           s.URL,
		VerifiedBy:    s.VerifiedBy,
		Authority:     s.Authority,
		MinConfidence: minConf,
		Keywords:      s.Keywords,
	}
}
