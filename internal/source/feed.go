package source

import (
	"bytes"
	"context"
	"fmt"

	"github.com/mmcdole/gofeed"

	"github.com/couchcryptid/outage-feed-etl/internal/config"
	"github.com/couchcryptid/outage-feed-etl/internal/domain"
)

// FeedAdapter reads an RSS or Atom document item by item.
type FeedAdapter struct {
	desc   Descriptor
	filter filter
}

// NewFeedAdapter builds a feed-style adapter for sc.
func NewFeedAdapter(sc config.SourceConfig, defaultMinConfidence float64) *FeedAdapter {
	return &FeedAdapter{
		desc: Descriptor{
			Source:  sc.Source(defaultMinConfidence),
			Kind:    config.KindFeed,
			Fixture: sc.Fixture,
		},
		filter: newFilter(sc),
	}
}

func (a *FeedAdapter) Descriptor() Descriptor { return a.desc }

// Collect fetches and parses the feed. It returns nil on any fetch or parse failure.
func (a *FeedAdapter) Collect(ctx context.Context, env Env) (out []domain.RawCandidate) {
	name := a.desc.Source.Name
	defer guard(name, env)

	body, err := env.Fetcher.Fetch(ctx, a.desc.Fixture, a.desc.Source.URL)
	if err != nil {
		env.fail(name, err)
		return nil
	}

	feed, err := gofeed.NewParser().Parse(bytes.NewReader(body))
	if err != nil {
		env.fail(name, fmt.Errorf("parse feed: %w", err))
		return nil
	}

	for _, it := range feed.Items {
		if a.filter.full(len(out)) {
			break
		}
		if it == nil {
			continue
		}
		summary := it.Description
		if summary == "" {
			summary = it.Content
		}
		if !a.filter.accept(it.Title + " " + summary) {
			continue
		}
		out = append(out, domain.RawCandidate{
			Title:        it.Title,
			Summary:      summary,
			URL:          feedLink(it),
			PublishedRaw: feedDate(it),
			Status:       feedStatus(it),
		})
	}
	return out
}

func feedLink(it *gofeed.Item) string {
	if it.Link != "" {
		return it.Link
	}
	if len(it.Links) > 0 {
		return it.Links[0]
	}
	return ""
}

// feedStatus returns the first category that names a status.
func feedStatus(it *gofeed.Item) string {
	for _, c := range it.Categories {
		if st := statusLabel(c); st != "" {
			return st
		}
	}
	return ""
}

// feedDate prefers the parser's own timestamp and falls back to the raw string.
func feedDate(it *gofeed.Item) string {
	switch {
	case it.PublishedParsed != nil:
		return domain.FormatCivil(*it.PublishedParsed)
	case it.UpdatedParsed != nil:
		return domain.FormatCivil(*it.UpdatedParsed)
	case it.Published != "":
		return it.Published
	default:
		return it.Updated
	}
}
