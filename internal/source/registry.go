package source

import (
	"fmt"

	"github.com/couchcryptid/outage-feed-etl/internal/config"
)

// Build constructs one adapter per configured source, in configuration order.
func Build(sources []config.SourceConfig, defaultMinConfidence float64) ([]Adapter, error) {
	adapters := make([]Adapter, 0, len(sources))
	for _, sc := range sources {
		a, err := New(sc, defaultMinConfidence)
		if err != nil {
			return nil, err
		}
		adapters = append(adapters, a)
	}
	return adapters, nil
}

// New constructs the adapter for a single source entry.
func New(sc config.SourceConfig, defaultMinConfidence float64) (Adapter, error) {
	switch sc.Kind {
	case config.KindFeed:
		return NewFeedAdapter(sc, defaultMinConfidence), nil
	case config.KindScrape:
		return NewScrapeAdapter(sc, defaultMinConfidence), nil
	default:
		return nil, fmt.Errorf("source %q: unknown kind %q", sc.Name, sc.Kind)
	}
}
