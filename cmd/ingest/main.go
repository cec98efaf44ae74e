package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/outage-feed-etl/internal/adapter/filestore"
	"github.com/couchcryptid/outage-feed-etl/internal/adapter/httpadapter"
	kafkaadapter "github.com/couchcryptid/outage-feed-etl/internal/adapter/kafka"
	"github.com/couchcryptid/outage-feed-etl/internal/adapter/llm"
	"github.com/couchcryptid/outage-feed-etl/internal/config"
	"github.com/couchcryptid/outage-feed-etl/internal/domain"
	"github.com/couchcryptid/outage-feed-etl/internal/observability"
	"github.com/couchcryptid/outage-feed-etl/internal/pipeline"
	"github.com/couchcryptid/outage-feed-etl/internal/source"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()
	clock := clockwork.NewRealClock()

	sources, err := config.LoadSources(cfg.SourcesFile)
	if err != nil {
		logger.Error("failed to load sources", "path", cfg.SourcesFile, "error", err)
		os.Exit(1)
	}
	adapters, err := source.Build(sources, cfg.MinConfidence)
	if err != nil {
		logger.Error("failed to build adapters", "error", err)
		os.Exit(1)
	}

	fetcher := source.NewFetcher(source.FetcherOptions{
		UserAgent:   cfg.UserAgent,
		Timeout:     cfg.AdapterTimeout,
		MaxRetries:  2,
		Offline:     cfg.Offline,
		FixturesDir: cfg.FixturesDir,
	})

	// Probabilistic classifier (feature-flagged via LLM_ENABLED / LLM_API_KEY).
	var (
		judge   domain.Judge
		windows domain.WindowExtractor
	)
	if cfg.LLMEnabled {
		client, err := llm.New(llm.Config{
			APIKey:  cfg.LLMAPIKey,
			BaseURL: cfg.LLMBaseURL,
			Model:   cfg.LLMModel,
			Timeout: cfg.LLMTimeout,
		}, metrics, logger)
		if err != nil {
			logger.Error("failed to create classifier client", "error", err)
			os.Exit(1)
		}
		judge = llm.NewCachedJudge(client, cfg.LLMCacheSize, cfg.LLMCacheTTL, clock, metrics)
		windows = client
		metrics.ClassifierEnabled.Set(1)
		logger.Info("classifier enabled",
			"model", cfg.LLMModel,
			"cache_size", cfg.LLMCacheSize,
			"cache_ttl", cfg.LLMCacheTTL,
		)
	} else {
		logger.Info("classifier disabled, using heuristics only")
	}
	classifier := pipeline.NewClassifier(judge, windows, cfg.ClassifyConcurrency, logger, metrics)

	publishers := []pipeline.Publisher{filestore.New(cfg.PayloadPath, logger)}
	var writer *kafkaadapter.Writer
	if cfg.KafkaEnabled {
		writer = kafkaadapter.NewWriter(cfg, logger)
		publishers = append(publishers, writer)
	}

	orch := pipeline.New(adapters, fetcher, classifier, publishers, pipeline.Options{
		AdapterConcurrency: cfg.AdapterConcurrency,
		AdapterTimeout:     cfg.AdapterTimeout,
		RunTimeout:         cfg.RunTimeout,
		Retention:          cfg.Retention,
		Dedup:              cfg.DedupOptions(),
	}, clock, logger, metrics)
	scheduler := pipeline.NewScheduler(orch, cfg.RunInterval, cfg.RunOnce, clock, logger, metrics)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("starting",
		"sources", len(adapters),
		"offline", cfg.Offline,
		"run_once", cfg.RunOnce,
		"interval", cfg.RunInterval,
	)

	if cfg.RunOnce {
		err := scheduler.Start(ctx)
		closeWriter(writer, logger)
		if err != nil {
			logger.Error("run failed", "error", err)
			os.Exit(1)
		}
		return
	}

	srv := httpadapter.NewServer(cfg.HTTPAddr, orch, orch, logger)

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start scheduled runs.
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := scheduler.Start(ctx); err != nil {
			logger.Error("scheduler error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	select {
	case <-done:
	case <-shutdownCtx.Done():
		logger.Warn("run still in progress at shutdown deadline")
	}
	closeWriter(writer, logger)

	logger.Info("shutdown complete")
}

func closeWriter(w *kafkaadapter.Writer, logger *slog.Logger) {
	if w == nil {
		return
	}
	if err := w.Close(); err != nil {
		logger.Error("kafka writer close error", "error", err)
	}
}
