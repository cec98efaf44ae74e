package domain

import (
	"context"
	"log/slog"
	"time"
)

// Verdict is the outcome of running an item through the probabilistic tier.
type Verdict string

const (
	VerdictKept          Verdict = "kept"
	VerdictIrrelevant    Verdict = "irrelevant"
	VerdictLowConfidence Verdict = "low_confidence"
	VerdictFallback      Verdict = "fallback"
	VerdictSkipped       Verdict = "skipped"
)

// EnrichWithJudgment consults judge for an item the heuristics already kept.
// A nil judge or a failed call leaves the heuristic result in place
// (graceful degradation). A successful verdict below minConfidence drops the
// item even when its keywords matched.
func EnrichWithJudgment(ctx context.Context, it *Item, judge Judge, minConfidence float64, logger *slog.Logger) Verdict {
	if judge == nil {
		return VerdictSkipped
	}

	j, err := judge.Judge(ctx, it.Domain, it.Title, it.Summary)
	if err != nil {
		logger.Warn("classifier unavailable, using heuristics",
			"item_id", it.ID,
			"source", it.Source,
			"error", err,
		)
		return VerdictFallback
	}
	if !j.IsRelevant {
		return VerdictIrrelevant
	}
	if j.Confidence < minConfidence {
		return VerdictLowConfidence
	}

	c := j.Confidence
	it.Confidence = &c
	it.AffectedAreas = unionAreas(it.AffectedAreas, j.AffectedAreas)

	// A judge may spot scheduled work the vocabulary missed, never the reverse.
	if it.Domain == VerticalPower && it.Status == StatusUnplanned && j.Status == StatusPlanned {
		it.Status = StatusPlanned
		text := it.Text()
		if it.WindowText != "" {
			text = it.WindowText + " " + text
		}
		it.PlannedWindow = ExtractWindow(text, it.PublishedAt)
	}
	return VerdictKept
}

// EnrichWithWindow asks extractor for a window when a PLANNED item has none.
// Only windows starting strictly after now are accepted; anything else is
// treated as a hallucinated past event and discarded.
func EnrichWithWindow(ctx context.Context, it *Item, extractor WindowExtractor, now time.Time, logger *slog.Logger) bool {
	if extractor == nil || it.Status != StatusPlanned || it.PlannedWindow != nil {
		return false
	}

	text := it.Text()
	if it.WindowText != "" {
		text = it.WindowText + " " + text
	}
	w, err := extractor.ExtractWindow(ctx, text, now)
	if err != nil {
		logger.Warn("window extraction failed",
			"item_id", it.ID,
			"source", it.Source,
			"error", err,
		)
		return false
	}
	if w == nil || !w.Start.After(now) {
		return false
	}
	it.PlannedWindow = NewWindow(w.Start, w.End)
	return true
}
