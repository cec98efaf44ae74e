package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "outage_feed"

// Metrics holds the Prometheus counters, histograms, and gauges for the ingestion run.
type Metrics struct {
	Runs          *prometheus.CounterVec // labels: outcome={published,aborted,publish_error}
	RunDuration   prometheus.Histogram
	Stage         prometheus.Gauge // numeric pipeline.Stage of the current run
	LastSuccess   prometheus.Gauge // unix seconds of the last published payload
	PayloadItems  prometheus.Gauge
	ItemsDropped  *prometheus.CounterVec // labels: stage={normalize,heuristic,classifier,dedup,retention}
	SchedulerLive prometheus.Gauge

	// Adapter metrics.
	AdapterItems    *prometheus.GaugeVec   // labels: adapter
	AdapterErrors   *prometheus.CounterVec // labels: adapter
	AdapterDuration *prometheus.HistogramVec

	// Probabilistic classifier metrics.
	ClassifierRequests *prometheus.CounterVec   // labels: call={judge,window}, outcome={success,error}
	ClassifierVerdicts *prometheus.CounterVec   // labels: verdict
	ClassifierCache    *prometheus.CounterVec   // labels: result={hit,miss}
	ClassifierDuration *prometheus.HistogramVec // labels: call
	ClassifierEnabled  prometheus.Gauge

	// Publisher metrics.
	PublishErrors *prometheus.CounterVec // labels: publisher
}

var (
	runDurationBuckets = []float64{0.5, 1, 2.5, 5, 10, 20, 30, 60, 120}
	adapterBuckets     = []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20}
	classifierBuckets  = []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15}
)

// NewMetrics creates and registers all pipeline metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(m.collectors()...)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		Runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Ingestion runs by outcome.",
		}, []string{"outcome"}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of a complete ingestion run.",
			Buckets:   runDurationBuckets,
		}),
		Stage: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_stage",
			Help:      "Current orchestrator stage (0 = idle).",
		}),
		LastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successfully published payload.",
		}),
		PayloadItems: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "payload_items",
			Help:      "Number of items in the current payload.",
		}),
		ItemsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "items_dropped_total",
			Help:      "Items removed from a run, by pipeline stage.",
		}, []string{"stage"}),
		SchedulerLive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "scheduler_running",
			Help:      "1 when the scheduler is active, 0 when shut down.",
		}),
		AdapterItems: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "adapter_items",
			Help:      "Raw candidates returned by each adapter in the last run.",
		}, []string{"adapter"}),
		AdapterErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "adapter_errors_total",
			Help:      "Adapter fetch or parse failures.",
		}, []string{"adapter"}),
		AdapterDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "adapter_duration_seconds",
			Help:      "Time spent collecting from each adapter.",
			Buckets:   adapterBuckets,
		}, []string{"adapter"}),
		ClassifierRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "classifier_requests_total",
			Help:      "Classifier API requests by call and outcome.",
		}, []string{"call", "outcome"}),
		ClassifierVerdicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "classifier_verdicts_total",
			Help:      "Classification stage outcomes per item.",
		}, []string{"verdict"}),
		ClassifierCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "classifier_cache_total",
			Help:      "Classifier cache lookups by result.",
		}, []string{"result"}),
		ClassifierDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "classifier_api_duration_seconds",
			Help:      "Classifier API request duration in seconds.",
			Buckets:   classifierBuckets,
		}, []string{"call"}),
		ClassifierEnabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "classifier_enabled",
			Help:      "1 when the probabilistic classifier is enabled, 0 otherwise.",
		}),
		PublishErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publish_errors_total",
			Help:      "Payload publish failures by publisher.",
		}, []string{"publisher"}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.Runs,
		m.RunDuration,
		m.Stage,
		m.LastSuccess,
		m.PayloadItems,
		m.ItemsDropped,
		m.SchedulerLive,
		m.AdapterItems,
		m.AdapterErrors,
		m.AdapterDuration,
		m.ClassifierRequests,
		m.ClassifierVerdicts,
		m.ClassifierCache,
		m.ClassifierDuration,
		m.ClassifierEnabled,
		m.PublishErrors,
	}
}
