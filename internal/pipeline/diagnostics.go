package pipeline

import (
	"log/slog"
	"sort"
	"time"
)

const maxSamples = 3

// AdapterReport summarizes what one adapter produced in a run.
type AdapterReport struct {
	Count    int
	Errors   []string
	Duration time.Duration
	Samples  []string // up to three raw titles
}

// Diagnostics is the per-run report, always logged when a run finishes.
type Diagnostics struct {
	RunID    string
	Adapters map[string]AdapterReport
	Dropped  map[string]int // by stage
	Duration time.Duration
}

func newDiagnostics(runID string) *Diagnostics {
	return &Diagnostics{
		RunID:    runID,
		Adapters: make(map[string]AdapterReport),
		Dropped:  make(map[string]int),
	}
}

func (d *Diagnostics) log(logger *slog.Logger) {
	names := make([]string, 0, len(d.Adapters))
	for name := range d.Adapters {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		r := d.Adapters[name]
		attrs := []any{
			"run_id", d.RunID,
			"adapter", name,
			"count", r.Count,
			"duration", r.Duration,
			"samples", r.Samples,
		}
		if len(r.Errors) > 0 {
			attrs = append(attrs, "errors", r.Errors)
			logger.Warn("adapter report", attrs...)
			continue
		}
		logger.Info("adapter report", attrs...)
	}
	logger.Info("run diagnostics",
		"run_id", d.RunID,
		"dropped", d.Dropped,
		"duration", d.Duration,
	)
}
