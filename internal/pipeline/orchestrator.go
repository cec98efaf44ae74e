package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"

	"github.com/couchcryptid/outage-feed-etl/internal/domain"
	"github.com/couchcryptid/outage-feed-etl/internal/observability"
	"github.com/couchcryptid/outage-feed-etl/internal/source"
)

// ErrRunAborted is returned when the run deadline expires before the payload
// is fully assembled. Nothing is published and the previous payload stays current.
var ErrRunAborted = errors.New("run aborted")

// Publisher receives every completed payload.
type Publisher interface {
	Name() string
	Publish(ctx context.Context, p *domain.Payload) error
}

// Options are the immutable run parameters.
type Options struct {
	AdapterConcurrency int
	AdapterTimeout     time.Duration
	RunTimeout         time.Duration
	Retention          time.Duration
	Dedup              domain.DedupOptions
}

// Orchestrator drives one batch run through every stage and holds the last
// published payload.
type Orchestrator struct {
	adapters   []source.Adapter
	sources    map[string]domain.Source
	fetcher    *source.Fetcher
	classifier *Classifier
	publishers []Publisher
	opts       Options
	clock      clockwork.Clock
	logger     *slog.Logger
	metrics    *observability.Metrics

	stage   atomic.Int32
	current atomic.Pointer[domain.Payload]
}

// New creates an Orchestrator over a fixed adapter set.
func New(
	adapters []source.Adapter,
	fetcher *source.Fetcher,
	classifier *Classifier,
	publishers []Publisher,
	opts Options,
	clock clockwork.Clock,
	logger *slog.Logger,
	metrics *observability.Metrics,
) *Orchestrator {
	if opts.AdapterConcurrency <= 0 {
		opts.AdapterConcurrency = 4
	}
	if opts.AdapterTimeout <= 0 {
		opts.AdapterTimeout = 20 * time.Second
	}
	if opts.RunTimeout <= 0 {
		opts.RunTimeout = 2 * time.Minute
	}
	if opts.Dedup.Threshold <= 0 {
		opts.Dedup = domain.DefaultDedupOptions()
	}

	sources := make(map[string]domain.Source, len(adapters))
	for _, a := range adapters {
		src := a.Descriptor().Source
		sources[src.Name] = src
	}
	return &Orchestrator{
		adapters:   adapters,
		sources:    sources,
		fetcher:    fetcher,
		classifier: classifier,
		publishers: publishers,
		opts:       opts,
		clock:      clock,
		logger:     logger,
		metrics:    metrics,
	}
}

// Current returns the last published payload, or nil before the first run completes.
func (o *Orchestrator) Current() *domain.Payload {
	return o.current.Load()
}

// Stage returns the stage of the run in progress.
func (o *Orchestrator) Stage() Stage {
	return Stage(o.stage.Load())
}

// CheckReadiness returns nil once a payload has been published.
func (o *Orchestrator) CheckReadiness(_ context.Context) error {
	if o.current.Load() == nil {
		return errors.New("no payload has been published yet")
	}
	return nil
}

// Run executes one batch pass. Only an aborted run or failed publishers
// produce an error; the payload and diagnostics are returned whenever the
// payload was assembled.
func (o *Orchestrator) Run(ctx context.Context) (*domain.Payload, *Diagnostics, error) {
	start := o.clock.Now()
	now := start.In(domain.CivilZone)
	diag := newDiagnostics(uuid.NewString())
	logger := o.logger.With("run_id", diag.RunID)
	defer o.enter(logger, StageIdle)

	runCtx, cancel := context.WithTimeout(ctx, o.opts.RunTimeout)
	defer cancel()

	logger.Info("run started", "adapters", len(o.adapters))

	o.enter(logger, StageFetching)
	batches := o.fetch(runCtx, now, diag, logger)
	if err := o.checkDeadline(runCtx, StageFetching); err != nil {
		return nil, o.finish(diag, start, logger, "aborted"), err
	}

	o.enter(logger, StageAggregating)
	candidates := aggregate(o.adapters, batches)

	o.enter(logger, StageNormalizing)
	items := o.normalize(candidates, diag, logger)

	o.enter(logger, StageClassifying)
	classified, err := o.classifier.Classify(runCtx, items, o.sources, now)
	if err == nil {
		err = o.checkDeadline(runCtx, StageClassifying)
	}
	if err != nil {
		return nil, o.finish(diag, start, logger, "aborted"), o.abortErr(err)
	}
	o.drop(diag, "heuristic", classified.heuristic)
	o.drop(diag, "classifier", classified.classifier)
	items = classified.items

	o.enter(logger, StageDeduplicating)
	before := len(items)
	items = domain.Deduplicate(items, o.opts.Dedup)
	o.drop(diag, "dedup", before-len(items))

	o.enter(logger, StageFiltering)
	items, dropped := domain.Retain(items, now, o.opts.Retention, logger)
	o.drop(diag, "retention", dropped)

	o.enter(logger, StageSorting)
	domain.Rank(items)
	if err := o.checkDeadline(runCtx, StageSorting); err != nil {
		return nil, o.finish(diag, start, logger, "aborted"), err
	}

	payload := domain.NewPayload(diag.RunID, now, items)
	o.current.Store(payload)
	o.enter(logger, StagePublished)

	// Publishing uses the caller's context so a late run deadline cannot
	// leave some publishers updated and others not.
	pubErr := o.publish(ctx, payload, logger)

	o.metrics.PayloadItems.Set(float64(len(payload.Items)))
	outcome := "published"
	if pubErr != nil {
		outcome = "publish_error"
	} else {
		o.metrics.LastSuccess.Set(float64(o.clock.Now().Unix()))
	}
	return payload, o.finish(diag, start, logger, outcome), pubErr
}

// fetch runs every adapter with bounded concurrency. Results land in
// per-adapter slots so completion order never matters.
func (o *Orchestrator) fetch(ctx context.Context, now time.Time, diag *Diagnostics, logger *slog.Logger) [][]domain.RawCandidate {
	batches := make([][]domain.RawCandidate, len(o.adapters))
	reports := make([]AdapterReport, len(o.adapters))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.opts.AdapterConcurrency)
	for i, a := range o.adapters {
		g.Go(func() error {
			name := a.Descriptor().Source.Name
			actx, cancel := context.WithTimeout(gctx, o.opts.AdapterTimeout)
			defer cancel()

			env := source.Env{
				Fetcher: o.fetcher,
				Logger:  logger.With("adapter", name),
				Now:     now,
				OnError: func(err error) {
					reports[i].Errors = append(reports[i].Errors, err.Error())
					o.metrics.AdapterErrors.WithLabelValues(name).Inc()
				},
			}
			t0 := time.Now()
			batches[i] = a.Collect(actx, env)
			reports[i].Duration = time.Since(t0)
			o.metrics.AdapterDuration.WithLabelValues(name).Observe(reports[i].Duration.Seconds())
			return nil
		})
	}
	_ = g.Wait() // adapters never return errors

	for i, a := range o.adapters {
		name := a.Descriptor().Source.Name
		r := reports[i]
		r.Count = len(batches[i])
		for _, c := range batches[i] {
			if len(r.Samples) == maxSamples {
				break
			}
			r.Samples = append(r.Samples, c.Title)
		}
		diag.Adapters[name] = r
		o.metrics.AdapterItems.WithLabelValues(name).Set(float64(r.Count))
	}
	return batches
}

type sourcedCandidate struct {
	source domain.Source
	raw    domain.RawCandidate
}

// aggregate flattens adapter batches in configuration order.
func aggregate(adapters []source.Adapter, batches [][]domain.RawCandidate) []sourcedCandidate {
	var out []sourcedCandidate
	for i, a := range adapters {
		src := a.Descriptor().Source
		for _, raw := range batches[i] {
			out = append(out, sourcedCandidate{source: src, raw: raw})
		}
	}
	return out
}

func (o *Orchestrator) normalize(candidates []sourcedCandidate, diag *Diagnostics, logger *slog.Logger) []domain.Item {
	items := make([]domain.Item, 0, len(candidates))
	for _, c := range candidates {
		it, err := domain.Normalize(c.source, c.raw)
		if err != nil {
			logger.Debug("normalize failed, skipping candidate",
				"source", c.source.Name,
				"url", c.raw.URL,
				"error", err,
			)
			o.drop(diag, "normalize", 1)
			continue
		}
		items = append(items, it)
	}
	return items
}

// publish hands the payload to every publisher and joins their failures.
func (o *Orchestrator) publish(ctx context.Context, p *domain.Payload, logger *slog.Logger) error {
	var errs []error
	for _, pub := range o.publishers {
		if err := pub.Publish(ctx, p); err != nil {
			logger.Error("publish failed", "publisher", pub.Name(), "error", err)
			o.metrics.PublishErrors.WithLabelValues(pub.Name()).Inc()
			errs = append(errs, fmt.Errorf("%s: %w", pub.Name(), err))
		}
	}
	return errors.Join(errs...)
}

func (o *Orchestrator) checkDeadline(ctx context.Context, stage Stage) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w during %s: %w", ErrRunAborted, stage, err)
	}
	return nil
}

func (o *Orchestrator) abortErr(err error) error {
	if errors.Is(err, ErrRunAborted) {
		return err
	}
	return fmt.Errorf("%w during %s: %w", ErrRunAborted, StageClassifying, err)
}

func (o *Orchestrator) enter(logger *slog.Logger, s Stage) {
	o.stage.Store(int32(s))
	o.metrics.Stage.Set(float64(s))
	logger.Debug("stage transition", "stage", s.String())
}

func (o *Orchestrator) drop(diag *Diagnostics, stage string, n int) {
	if n <= 0 {
		return
	}
	diag.Dropped[stage] += n
	o.metrics.ItemsDropped.WithLabelValues(stage).Add(float64(n))
}

func (o *Orchestrator) finish(diag *Diagnostics, start time.Time, logger *slog.Logger, outcome string) *Diagnostics {
	diag.Duration = o.clock.Since(start)
	o.metrics.Runs.WithLabelValues(outcome).Inc()
	o.metrics.RunDuration.Observe(diag.Duration.Seconds())
	diag.log(logger)
	logger.Info("run finished", "outcome", outcome)
	return diag
}
