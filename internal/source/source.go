// Package source turns configured origins into raw candidates. Each adapter
// fetches one document, parses it item by item and never fails the run: every
// error is logged, reported through Env and swallowed.
package source

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode"

	"github.com/couchcryptid/outage-feed-etl/internal/config"
	"github.com/couchcryptid/outage-feed-etl/internal/domain"
)

// Adapter extracts raw candidates from one configured source.
type Adapter interface {
	Descriptor() Descriptor
	Collect(ctx context.Context, env Env) []domain.RawCandidate
}

// Descriptor is the static description of an adapter.
type Descriptor struct {
	Source  domain.Source
	Kind    string
	Fixture string
}

// Env carries the collaborators shared by every adapter in a run.
type Env struct {
	Fetcher *Fetcher
	Logger  *slog.Logger
	Now     time.Time
	// OnError, when set, receives every failure the adapter swallows.
	OnError func(error)
}

func (e Env) fail(name string, err error) {
	e.Logger.Warn("adapter failed", "adapter", name, "error", err)
	if e.OnError != nil {
		e.OnError(err)
	}
}

// filter holds the per-source keyword and blacklist terms, lower-cased.
type filter struct {
	keywords  []string
	blacklist []string
	maxItems  int
}

func newFilter(sc config.SourceConfig) filter {
	return filter{
		keywords:  lowerAll(sc.Keywords),
		blacklist: lowerAll(sc.Blacklist),
		maxItems:  sc.MaxItems,
	}
}

// accept reports whether text passes the keyword and blacklist filters. An
// empty keyword list accepts everything and leaves relevance to the classifier.
func (f filter) accept(text string) bool {
	lower := strings.ToLower(text)
	for _, b := range f.blacklist {
		if strings.Contains(lower, b) {
			return false
		}
	}
	if len(f.keywords) == 0 {
		return true
	}
	for _, k := range f.keywords {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}

func (f filter) full(n int) bool {
	return f.maxItems > 0 && n >= f.maxItems
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// guard converts a parser panic into a reported failure.
func guard(name string, env Env) {
	if r := recover(); r != nil {
		env.fail(name, fmt.Errorf("panic while parsing: %v", r))
	}
}

func squash(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// statusLabel returns the first word of s that names a status, or "".
func statusLabel(s string) string {
	words := strings.FieldsFunc(s, func(r rune) bool { return !unicode.IsLetter(r) })
	for _, w := range words {
		if st, ok := domain.ParseStatus(w); ok {
			return string(st)
		}
	}
	return ""
}
