package source

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/couchcryptid/outage-feed-etl/internal/config"
	"github.com/couchcryptid/outage-feed-etl/internal/domain"
)

// DefaultStaleAfter is the age beyond which scraped cards are ignored.
const DefaultStaleAfter = 90 * 24 * time.Hour

const (
	cardSelector    = "article, .card, .post, .news-item, tr, li"
	headingSelector = "h1, h2, h3, h4, h5, .title"
	dateSelector    = "[class*=date], [class*=time], .published, .meta"
	windowSelector  = "[class*=window], .schedule"
	statusSelector  = "[class*=status]"
	minTitleLen     = 12
	maxTimestampLen = 40
)

// ScrapeAdapter extracts notices from an HTML listing page by shape-matching
// card-like nodes. Configured selectors override each heuristic.
type ScrapeAdapter struct {
	desc       Descriptor
	filter     filter
	selectors  config.Selectors
	staleAfter time.Duration
}

// NewScrapeAdapter builds a scrape-style adapter for sc.
func NewScrapeAdapter(sc config.SourceConfig, defaultMinConfidence float64) *ScrapeAdapter {
	stale := sc.StaleAfter
	if stale <= 0 {
		stale = DefaultStaleAfter
	}
	return &ScrapeAdapter{
		desc: Descriptor{
			Source:  sc.Source(defaultMinConfidence),
			Kind:    config.KindScrape,
			Fixture: sc.Fixture,
		},
		filter:     newFilter(sc),
		selectors:  sc.Selectors,
		staleAfter: stale,
	}
}

func (a *ScrapeAdapter) Descriptor() Descriptor { return a.desc }

// Collect fetches the page and returns one candidate per dated card. Cards
// without a resolvable date or older than the staleness limit are skipped.
func (a *ScrapeAdapter) Collect(ctx context.Context, env Env) (out []domain.RawCandidate) {
	name := a.desc.Source.Name
	defer guard(name, env)

	body, err := env.Fetcher.Fetch(ctx, a.desc.Fixture, a.desc.Source.URL)
	if err != nil {
		env.fail(name, err)
		return nil
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		env.fail(name, fmt.Errorf("parse html: %w", err))
		return nil
	}

	sel := a.selectors.Item
	if sel == "" {
		sel = cardSelector
	}

	cutoff := env.Now.Add(-a.staleAfter)
	seen := make(map[string]bool)
	doc.Find(sel).EachWithBreak(func(_ int, card *goquery.Selection) bool {
		if a.filter.full(len(out)) {
			return false
		}
		// Only innermost cards are read; a wrapper would merge its children.
		if a.selectors.Item == "" && card.Find(cardSelector).Length() > 0 {
			return true
		}

		c, ok := a.extract(card)
		if !ok {
			return true
		}
		published, ok := parseCardDate(c.PublishedRaw)
		if !ok || (!env.Now.IsZero() && published.Before(cutoff)) {
			return true
		}
		c.PublishedRaw = domain.FormatCivil(published)

		key := c.Title + "|" + c.URL
		if seen[key] || !a.filter.accept(c.Title+" "+c.Summary) {
			return true
		}
		seen[key] = true
		out = append(out, c)
		return true
	})
	return out
}

// extract shape-matches one card into a candidate with its raw date text.
func (a *ScrapeAdapter) extract(card *goquery.Selection) (domain.RawCandidate, bool) {
	link := firstMatch(card, a.selectors.Link, "a[href]")
	href, _ := link.Attr("href")

	title := squash(firstMatch(card, a.selectors.Title, headingSelector).Text())
	if title == "" {
		title = squash(link.Text())
	}
	if len(title) < minTitleLen {
		return domain.RawCandidate{}, false
	}

	summary := squash(firstMatch(card, a.selectors.Body, "p").Text())
	if summary == "" {
		summary = strings.TrimSpace(strings.TrimPrefix(squash(card.Text()), title))
	}

	return domain.RawCandidate{
		Title:        title,
		Summary:      summary,
		URL:          href,
		PublishedRaw: a.dateText(card),
		WindowText:   squash(firstMatch(card, a.selectors.Window, windowSelector).Text()),
		Status:       statusLabel(firstMatch(card, a.selectors.Status, statusSelector).Text()),
	}, true
}

// dateText finds the card's publication date: a configured selector, a
// <time datetime>, an element with a date-like class, or the card's own text.
func (a *ScrapeAdapter) dateText(card *goquery.Selection) string {
	if a.selectors.Date != "" {
		if s := card.Find(a.selectors.Date).First(); s.Length() > 0 {
			if v, ok := s.Attr("datetime"); ok && v != "" {
				return v
			}
			return squash(s.Text())
		}
	}
	if t := card.Find("time[datetime]").First(); t.Length() > 0 {
		if v, _ := t.Attr("datetime"); v != "" {
			return v
		}
	}
	if t := card.Find("time").First(); t.Length() > 0 {
		return squash(t.Text())
	}
	if d := card.Find(dateSelector).First(); d.Length() > 0 {
		return squash(d.Text())
	}
	return squash(card.Text())
}

// parseCardDate reads a short date string as a timestamp, and otherwise scans
// free text for the first calendar date.
func parseCardDate(raw string) (time.Time, bool) {
	if len(raw) <= maxTimestampLen {
		if t, err := domain.ParsePublished(raw); err == nil {
			return t, true
		}
	}
	return domain.FirstDate(raw)
}

func firstMatch(card *goquery.Selection, configured, fallback string) *goquery.Selection {
	if configured != "" {
		return card.Find(configured).First()
	}
	return card.Find(fallback).First()
}
