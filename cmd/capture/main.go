// Command capture fetches every configured source once and stores the raw
// documents as offline fixtures, then replays them through the adapters to
// report how many candidates each fixture yields.
//
// Usage:
//
//	go run ./cmd/capture \
//	  -sources config/sources.yaml \
//	  -out testdata/fixtures \
//	  -only tcn,punch
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/couchcryptid/outage-feed-etl/internal/config"
	"github.com/couchcryptid/outage-feed-etl/internal/domain"
	"github.com/couchcryptid/outage-feed-etl/internal/source"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	sourcesFile := flag.String("sources", "config/sources.yaml", "path to the sources file")
	outDir := flag.String("out", "testdata/fixtures", "directory to write fixtures into")
	only := flag.String("only", "", "comma-separated source names to capture (default all)")
	timeout := flag.Duration("timeout", 30*time.Second, "per-source fetch timeout")
	flag.Parse()

	sources, err := config.LoadSources(*sourcesFile)
	if err != nil {
		return err
	}
	adapters, err := source.Build(sources, 0.65)
	if err != nil {
		return err
	}
	selected := selectAdapters(adapters, *only)
	if len(selected) == 0 {
		return fmt.Errorf("no sources match -only %q", *only)
	}

	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		return err
	}

	online := source.NewFetcher(source.FetcherOptions{Timeout: *timeout, MaxRetries: 2})
	failed := 0
	for _, a := range selected {
		d := a.Descriptor()
		ctx, cancel := context.WithTimeout(context.Background(), *timeout)
		body, err := online.Fetch(ctx, d.Fixture, d.Source.URL)
		cancel()
		if err != nil {
			log.Printf("%s: fetch failed: %v", d.Source.Name, err)
			failed++
			continue
		}

		path := filepath.Join(*outDir, d.Fixture+fixtureExt(d.Kind))
		if err := os.WriteFile(path, body, 0o600); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
		log.Printf("%s: wrote %s (%d bytes)", d.Source.Name, path, len(body))
	}

	replay(selected, *outDir)

	if failed > 0 {
		return fmt.Errorf("%d of %d sources failed", failed, len(selected))
	}
	return nil
}

func selectAdapters(adapters []source.Adapter, only string) []source.Adapter {
	if only == "" {
		return adapters
	}
	want := map[string]bool{}
	for _, name := range strings.Split(only, ",") {
		want[strings.TrimSpace(name)] = true
	}
	var out []source.Adapter
	for _, a := range adapters {
		if want[a.Descriptor().Source.Name] {
			out = append(out, a)
		}
	}
	return out
}

func fixtureExt(kind string) string {
	if kind == config.KindFeed {
		return ".xml"
	}
	return ".html"
}

// replay runs each adapter against the fixtures just written.
func replay(adapters []source.Adapter, dir string) {
	offline := source.NewFetcher(source.FetcherOptions{Offline: true, FixturesDir: dir})
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	env := source.Env{
		Fetcher: offline,
		Logger:  logger,
		Now:     time.Now().In(domain.CivilZone),
	}

	fmt.Println()
	fmt.Printf("  %-16s %-8s %s\n", "SOURCE", "KIND", "CANDIDATES")
	for _, a := range adapters {
		d := a.Descriptor()
		candidates := a.Collect(context.Background(), env)
		fmt.Printf("  %-16s %-8s %d\n", d.Source.Name, d.Kind, len(candidates))
		for i, c := range candidates {
			if i == 3 {
				break
			}
			fmt.Printf("      - %s\n", c.Title)
		}
	}
}
