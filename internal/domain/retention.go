package domain

import (
	"log/slog"
	"sort"
	"time"
)

// DefaultRetention is how long an item stays in the feed after publication.
const DefaultRetention = 30 * 24 * time.Hour

// Retain drops items older than retention relative to now, except PLANNED
// items whose window has not started yet. Items without a publication time
// are dropped and logged. It returns the kept items and the number dropped.
func Retain(items []Item, now time.Time, retention time.Duration, logger *slog.Logger) ([]Item, int) {
	if retention <= 0 {
		retention = DefaultRetention
	}
	cutoff := now.Add(-retention)

	kept := make([]Item, 0, len(items))
	dropped := 0
	for _, it := range items {
		if it.PublishedAt.IsZero() {
			logger.Warn("dropping item without publication time",
				"item_id", it.ID,
				"source", it.Source,
				"title", it.Title,
			)
			dropped++
			continue
		}
		if it.PublishedAt.Before(cutoff) && !upcoming(it, now) {
			dropped++
			continue
		}
		kept = append(kept, it)
	}
	return kept, dropped
}

func upcoming(it Item, now time.Time) bool {
	return it.Status == StatusPlanned && it.PlannedWindow != nil && it.PlannedWindow.Start.After(now)
}

// Rank orders items in place: PLANNED first by ascending window start, with
// windowless PLANNED items after those that have one, then everything else by
// descending publication time. Ties fall back to ID so output is deterministic.
func Rank(items []Item) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		ap, bp := a.Status == StatusPlanned, b.Status == StatusPlanned
		if ap != bp {
			return ap
		}
		if ap {
			aw, bw := a.PlannedWindow != nil, b.PlannedWindow != nil
			if aw != bw {
				return aw
			}
			if aw && !a.PlannedWindow.Start.Equal(b.PlannedWindow.Start) {
				return a.PlannedWindow.Start.Before(b.PlannedWindow.Start)
			}
		}
		if !a.PublishedAt.Equal(b.PublishedAt) {
			return a.PublishedAt.After(b.PublishedAt)
		}
		return a.ID < b.ID
	})
}

// LatestOfficialByDomain returns the most recent OFFICIAL publication time per vertical.
func LatestOfficialByDomain(items []Item) map[Vertical]time.Time {
	latest := make(map[Vertical]time.Time)
	for _, it := range items {
		if it.Tier != TierOfficial || it.PublishedAt.IsZero() {
			continue
		}
		if cur, ok := latest[it.Domain]; !ok || it.PublishedAt.After(cur) {
			latest[it.Domain] = it.PublishedAt.In(CivilZone)
		}
	}
	return latest
}

// NewPayload assembles the terminal artifact. items must already be ranked.
func NewPayload(runID string, generatedAt time.Time, items []Item) *Payload {
	if items == nil {
		items = []Item{}
	}
	return &Payload{
		RunID:                  runID,
		GeneratedAt:            generatedAt.In(CivilZone),
		Items:                  items,
		LatestOfficialByDomain: LatestOfficialByDomain(items),
	}
}
