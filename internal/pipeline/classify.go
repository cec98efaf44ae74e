package pipeline

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/couchcryptid/outage-feed-etl/internal/domain"
	"github.com/couchcryptid/outage-feed-etl/internal/observability"
)

// Classifier runs the heuristic tier over every item and, when configured,
// the probabilistic tier over the survivors with bounded concurrency.
type Classifier struct {
	judge       domain.Judge
	windows     domain.WindowExtractor
	concurrency int
	logger      *slog.Logger
	metrics     *observability.Metrics
}

// NewClassifier creates a Classifier. Pass a nil judge and extractor to run
// on heuristics alone.
func NewClassifier(judge domain.Judge, windows domain.WindowExtractor, concurrency int, logger *slog.Logger, metrics *observability.Metrics) *Classifier {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Classifier{
		judge:       judge,
		windows:     windows,
		concurrency: concurrency,
		logger:      logger,
		metrics:     metrics,
	}
}

// classifyResult counts the items each tier removed.
type classifyResult struct {
	items      []domain.Item
	heuristic  int
	classifier int
}

// Classify returns the kept items in input order. sources supplies the
// per-source keywords and confidence threshold.
func (c *Classifier) Classify(ctx context.Context, items []domain.Item, sources map[string]domain.Source, now time.Time) (classifyResult, error) {
	var res classifyResult

	relevant := make([]domain.Item, 0, len(items))
	for _, it := range items {
		if !domain.ApplyHeuristics(&it, sources[it.Source].Keywords) {
			res.heuristic++
			continue
		}
		relevant = append(relevant, it)
	}

	if c.judge == nil && c.windows == nil {
		res.items = relevant
		return res, nil
	}

	// Each goroutine owns one slot, so output order never depends on timing.
	keep := make([]bool, len(relevant))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for i := range relevant {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			it := &relevant[i]
			verdict := domain.EnrichWithJudgment(gctx, it, c.judge, sources[it.Source].MinConfidence, c.logger)
			c.metrics.ClassifierVerdicts.WithLabelValues(string(verdict)).Inc()

			switch verdict {
			case domain.VerdictIrrelevant, domain.VerdictLowConfidence:
				c.logger.Debug("classifier dropped item",
					"item_id", it.ID,
					"source", it.Source,
					"verdict", verdict,
				)
				return nil
			}
			domain.EnrichWithWindow(gctx, it, c.windows, now, c.logger)
			keep[i] = true
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return res, err
	}

	res.items = make([]domain.Item, 0, len(relevant))
	for i, it := range relevant {
		if keep[i] {
			res.items = append(res.items, it)
			continue
		}
		res.classifier++
	}
	return res, nil
}
