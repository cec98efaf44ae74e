package domain

import (
	"context"
	"time"
)

// Judgment is a probabilistic relevance verdict for one item.
type Judgment struct {
	IsRelevant    bool
	Confidence    float64 // 0.0–1.0
	Reason        string
	AffectedAreas []string
	// Status is the status suggested by the judge, empty when it offered none.
	Status Status
}

// Judge scores an item's relevance with an external text-classification service.
type Judge interface {
	Judge(ctx context.Context, v Vertical, title, summary string) (Judgment, error)
}

// WindowExtractor asks an external service for a planned window in prose the
// heuristic extractor could not read.
type WindowExtractor interface {
	ExtractWindow(ctx context.Context, text string, now time.Time) (*Window, error)
}
