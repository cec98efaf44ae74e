package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"

	"github.com/couchcryptid/outage-feed-etl/internal/domain"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Source list and fetch behaviour.
	SourcesFile        string
	Offline            bool
	FixturesDir        string
	UserAgent          string
	AdapterConcurrency int
	AdapterTimeout     time.Duration

	// Run scheduling.
	RunTimeout  time.Duration
	RunInterval time.Duration
	RunOnce     bool

	// Pipeline parameters.
	Retention           time.Duration
	SimilarityThreshold float64
	TieBreak            map[domain.Vertical]domain.TieBreak
	MinConfidence       float64

	// Probabilistic classifier configuration.
	LLMAPIKey           string
	LLMEnabled          bool
	LLMBaseURL          string
	LLMModel            string
	LLMTimeout          time.Duration
	LLMCacheSize        int
	LLMCacheTTL         time.Duration
	ClassifyConcurrency int

	// Payload publishers.
	PayloadPath  string
	KafkaEnabled bool
	KafkaBrokers []string
	KafkaTopic   string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		SourcesFile: sharedcfg.EnvOrDefault("SOURCES_FILE", "config/sources.yaml"),
		Offline:     os.Getenv("OFFLINE") == "true",
		FixturesDir: sharedcfg.EnvOrDefault("FIXTURES_DIR", "testdata/fixtures"),
		UserAgent:   sharedcfg.EnvOrDefault("USER_AGENT", "outage-feed-etl/1.0 (+https://github.com/couchcryptid/outage-feed-etl)"),

		RunOnce: os.Getenv("RUN_ONCE") == "true",

		LLMAPIKey:  os.Getenv("LLM_API_KEY"),
		LLMBaseURL: sharedcfg.EnvOrDefault("LLM_BASE_URL", "https://openrouter.ai/api/v1"),
		LLMModel:   sharedcfg.EnvOrDefault("LLM_MODEL", "openai/gpt-4o-mini"),

		PayloadPath:  sharedcfg.EnvOrDefault("PAYLOAD_PATH", "data/payload.json"),
		KafkaEnabled: os.Getenv("KAFKA_ENABLED") == "true",
		KafkaBrokers: sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaTopic:   sharedcfg.EnvOrDefault("KAFKA_SINK_TOPIC", "outage-feed-items"),
	}

	durations := []struct {
		key  string
		def  string
		dest *time.Duration
	}{
		{"ADAPTER_TIMEOUT", "20s", &cfg.AdapterTimeout},
		{"RUN_TIMEOUT", "2m", &cfg.RunTimeout},
		{"RUN_INTERVAL", "15m", &cfg.RunInterval},
		{"LLM_TIMEOUT", "15s", &cfg.LLMTimeout},
		{"LLM_CACHE_TTL", "6h", &cfg.LLMCacheTTL},
	}
	for _, d := range durations {
		v, err := parseDuration(d.key, d.def)
		if err != nil {
			return nil, err
		}
		*d.dest = v
	}

	ints := []struct {
		key  string
		def  int
		dest *int
	}{
		{"ADAPTER_CONCURRENCY", 4, &cfg.AdapterConcurrency},
		{"CLASSIFY_CONCURRENCY", 4, &cfg.ClassifyConcurrency},
		{"LLM_CACHE_SIZE", 1000, &cfg.LLMCacheSize},
	}
	for _, n := range ints {
		v, err := parsePositiveInt(n.key, n.def)
		if err != nil {
			return nil, err
		}
		*n.dest = v
	}

	retentionDays, err := parsePositiveInt("RETENTION_DAYS", 30)
	if err != nil {
		return nil, err
	}
	cfg.Retention = time.Duration(retentionDays) * 24 * time.Hour

	if cfg.SimilarityThreshold, err = parseFraction("SIMILARITY_THRESHOLD", domain.DefaultSimilarityThreshold); err != nil {
		return nil, err
	}
	if cfg.MinConfidence, err = parseFraction("MIN_CONFIDENCE", 0.65); err != nil {
		return nil, err
	}

	cfg.TieBreak = make(map[domain.Vertical]domain.TieBreak, 2)
	for key, v := range map[string]domain.Vertical{
		"DEDUP_TIEBREAK_POWER": domain.VerticalPower,
		"DEDUP_TIEBREAK_EXAMS": domain.VerticalExams,
	} {
		def := domain.DefaultDedupOptions().TieBreak[v]
		p, err := domain.ParseTieBreak(sharedcfg.EnvOrDefault(key, string(def)))
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", key, err)
		}
		cfg.TieBreak[v] = p
	}

	cfg.LLMEnabled = cfg.LLMAPIKey != ""
	if v := os.Getenv("LLM_ENABLED"); v != "" {
		cfg.LLMEnabled = v == "true"
	}

	if cfg.LLMEnabled && cfg.LLMAPIKey == "" {
		return nil, errors.New("LLM_ENABLED is true but LLM_API_KEY is not set")
	}
	if cfg.Offline && cfg.FixturesDir == "" {
		return nil, errors.New("OFFLINE is true but FIXTURES_DIR is empty")
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_BROKERS is required when KAFKA_ENABLED is true")
	}
	if cfg.KafkaEnabled && cfg.KafkaTopic == "" {
		return nil, errors.New("KAFKA_SINK_TOPIC is required when KAFKA_ENABLED is true")
	}
	if cfg.AdapterTimeout >= cfg.RunTimeout {
		return nil, errors.New("ADAPTER_TIMEOUT must be shorter than RUN_TIMEOUT")
	}

	return cfg, nil
}

// DedupOptions returns the dedup parameters for the pipeline.
func (c *Config) DedupOptions() domain.DedupOptions {
	return domain.DedupOptions{Threshold: c.SimilarityThreshold, TieBreak: c.TieBreak}
}

func parseDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parsePositiveInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s: must be a positive integer", key)
	}
	return n, nil
}

func parseFraction(key string, def float64) (float64, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f <= 0 || f > 1 {
		return 0, fmt.Errorf("invalid %s: must be in (0, 1]", key)
	}
	return f, nil
}
