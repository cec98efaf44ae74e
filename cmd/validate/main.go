// Command validate checks a published payload file against the feed's
// invariants: item integrity, window sanity, civil-time offsets, ordering,
// retention and the per-domain freshness map.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -payload data/payload.json \
//	  -retention-days 30
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/couchcryptid/outage-feed-etl/internal/adapter/filestore"
	"github.com/couchcryptid/outage-feed-etl/internal/domain"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	payloadPath := flag.String("payload", "data/payload.json", "path to the published payload")
	retentionDays := flag.Int("retention-days", 30, "retention window the payload was built with")
	flag.Parse()

	if *retentionDays <= 0 {
		flag.Usage()
		os.Exit(1)
	}
	if code := run(*payloadPath, time.Duration(*retentionDays)*24*time.Hour); code != 0 {
		os.Exit(code)
	}
}

func run(path string, retention time.Duration) int {
	fmt.Println("=== Outage Feed Payload Validation ===")
	fmt.Println()

	p, err := filestore.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		return 1
	}

	phases := validate(p, retention)

	allPassed := true
	for _, ph := range phases {
		status := "\033[32mPASS\033[0m"
		if !ph.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(ph.errors))
			allPassed = false
		}
		fmt.Printf("  %-36s %s\n", ph.name, status)
	}

	fmt.Println()
	fmt.Printf("Run %s generated %s: %d items\n", p.RunID, domain.FormatCivil(p.GeneratedAt), len(p.Items))

	for _, ph := range phases {
		if ph.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", ph.name)
		for i, e := range ph.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

func validate(p *domain.Payload, retention time.Duration) []*phase {
	return []*phase{
		validateEnvelope(p),
		validateItems(p.Items),
		validateWindows(p.Items),
		validateOrdering(p.Items),
		validateRetention(p, retention),
		validateFreshness(p),
	}
}

// ── Phases ──

func validateEnvelope(p *domain.Payload) *phase {
	ph := &phase{name: "Envelope"}
	if p.RunID == "" {
		ph.errorf("runId is empty")
	}
	if p.GeneratedAt.IsZero() {
		ph.errorf("generatedAt is missing")
	} else if !isCivil(p.GeneratedAt) {
		ph.errorf("generatedAt %s is not at offset %s", p.GeneratedAt.Format(time.RFC3339), domain.CivilOffset)
	}
	if p.Items == nil {
		ph.errorf("items is null, expected an array")
	}
	return ph
}

func validateItems(items []domain.Item) *phase {
	ph := &phase{name: "Item integrity"}
	seen := make(map[string]bool, len(items))
	for i, it := range items {
		ref := fmt.Sprintf("item %d (%s)", i, it.ID)
		if it.ID == "" {
			ph.errorf("item %d: id is empty", i)
		} else if seen[it.ID] {
			ph.errorf("%s: duplicate id", ref)
		}
		seen[it.ID] = true

		if it.Title == "" {
			ph.errorf("%s: title is empty", ref)
		}
		if it.Source == "" {
			ph.errorf("%s: source is empty", ref)
		}
		if it.OfficialURL == "" {
			ph.errorf("%s: officialUrl is empty", ref)
		}
		if it.AffectedAreas == nil {
			ph.errorf("%s: affectedAreas is null", ref)
		}
		if _, ok := domain.ParseVertical(string(it.Domain)); !ok {
			ph.errorf("%s: unknown domain %q", ref, it.Domain)
		}
		if domain.ParseTier(string(it.Tier)) != it.Tier {
			ph.errorf("%s: unknown tier %q", ref, it.Tier)
		}
		switch it.Domain {
		case domain.VerticalPower:
			if _, ok := domain.ParseStatus(string(it.Status)); !ok {
				ph.errorf("%s: POWER item has status %q", ref, it.Status)
			}
		case domain.VerticalExams:
			if it.Status != "" {
				ph.errorf("%s: EXAMS item has status %q", ref, it.Status)
			}
		}
		if it.PublishedAt.IsZero() {
			ph.errorf("%s: publishedAt is missing", ref)
		} else if !isCivil(it.PublishedAt) {
			ph.errorf("%s: publishedAt %s is not at offset %s", ref, it.PublishedAt.Format(time.RFC3339), domain.CivilOffset)
		}
		if it.Confidence != nil && (*it.Confidence < 0 || *it.Confidence > 1) {
			ph.errorf("%s: confidence %.2f outside [0, 1]", ref, *it.Confidence)
		}
	}
	return ph
}

func validateWindows(items []domain.Item) *phase {
	ph := &phase{name: "Planned windows"}
	for i, it := range items {
		w := it.PlannedWindow
		if w == nil {
			continue
		}
		ref := fmt.Sprintf("item %d (%s)", i, it.ID)
		if it.Status != domain.StatusPlanned {
			ph.errorf("%s: window on a %q item", ref, it.Status)
		}
		if w.Timezone != domain.CivilOffset {
			ph.errorf("%s: window timezone %q", ref, w.Timezone)
		}
		if !isCivil(w.Start) {
			ph.errorf("%s: window start not at offset %s", ref, domain.CivilOffset)
		}
		if w.End != nil && w.End.Before(w.Start) {
			ph.errorf("%s: window ends %s before it starts %s", ref,
				domain.FormatCivil(*w.End), domain.FormatCivil(w.Start))
		}
	}
	return ph
}

func validateOrdering(items []domain.Item) *phase {
	ph := &phase{name: "Ordering"}
	ranked := make([]domain.Item, len(items))
	copy(ranked, items)
	domain.Rank(ranked)
	for i := range items {
		if items[i].ID != ranked[i].ID {
			ph.errorf("position %d: got %s, expected %s", i, items[i].ID, ranked[i].ID)
			break
		}
	}
	return ph
}

func validateRetention(p *domain.Payload, retention time.Duration) *phase {
	ph := &phase{name: "Retention"}
	kept, dropped := domain.Retain(p.Items, p.GeneratedAt, retention, slog.New(slog.DiscardHandler))
	if dropped == 0 {
		return ph
	}
	keep := make(map[string]bool, len(kept))
	for _, it := range kept {
		keep[it.ID] = true
	}
	for _, it := range p.Items {
		if !keep[it.ID] {
			ph.errorf("item %s published %s is outside the %s window", it.ID, domain.FormatCivil(it.PublishedAt), retention)
		}
	}
	return ph
}

func validateFreshness(p *domain.Payload) *phase {
	ph := &phase{name: "Latest official by domain"}
	want := domain.LatestOfficialByDomain(p.Items)
	for v, t := range want {
		got, ok := p.LatestOfficialByDomain[v]
		if !ok {
			ph.errorf("%s: missing, expected %s", v, domain.FormatCivil(t))
			continue
		}
		if !got.Equal(t) {
			ph.errorf("%s: got %s, expected %s", v, domain.FormatCivil(got), domain.FormatCivil(t))
		}
	}
	for v := range p.LatestOfficialByDomain {
		if _, ok := want[v]; !ok {
			ph.errorf("%s: present but no OFFICIAL item supports it", v)
		}
	}
	return ph
}

func isCivil(t time.Time) bool {
	_, offset := t.Zone()
	_, civil := time.Time{}.In(domain.CivilZone).Zone()
	return offset == civil
}
