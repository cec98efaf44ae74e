package domain

import (
	"strings"
	"time"
)

// Tier is the provenance class of a source, used to arbitrate conflicting duplicates.
type Tier string

const (
	TierOfficial  Tier = "OFFICIAL"
	TierMedia     Tier = "MEDIA"
	TierCommunity Tier = "COMMUNITY"
	TierUnknown   Tier = "UNKNOWN"
)

// ParseTier maps a configured tier name to a Tier. Unrecognized values map to TierUnknown.
func ParseTier(s string) Tier {
	switch Tier(strings.ToUpper(strings.TrimSpace(s))) {
	case TierOfficial:
		return TierOfficial
	case TierMedia:
		return TierMedia
	case TierCommunity:
		return TierCommunity
	default:
		return TierUnknown
	}
}

// rank orders tiers for representative selection. COMMUNITY and UNKNOWN share the lowest rank.
func (t Tier) rank() int {
	switch t {
	case TierOfficial:
		return 2
	case TierMedia:
		return 1
	default:
		return 0
	}
}

// Vertical is the category grouping an item belongs to. Serialized as "domain".
type Vertical string

const (
	VerticalPower Vertical = "POWER"
	VerticalExams Vertical = "EXAMS"
)

// ParseVertical maps a configured vertical name to a Vertical.
func ParseVertical(s string) (Vertical, bool) {
	switch Vertical(strings.ToUpper(strings.TrimSpace(s))) {
	case VerticalPower:
		return VerticalPower, true
	case VerticalExams:
		return VerticalExams, true
	default:
		return "", false
	}
}

// Status is the lifecycle state of a POWER item. EXAMS items leave it empty.
type Status string

const (
	StatusPlanned   Status = "PLANNED"
	StatusUnplanned Status = "UNPLANNED"
	StatusRestored  Status = "RESTORED"
)

// ParseStatus accepts the three known statuses case-insensitively.
func ParseStatus(s string) (Status, bool) {
	switch Status(strings.ToUpper(strings.TrimSpace(s))) {
	case StatusPlanned:
		return StatusPlanned, true
	case StatusUnplanned:
		return StatusUnplanned, true
	case StatusRestored:
		return StatusRestored, true
	default:
		return "", false
	}
}

// Window is an explicit planned interruption range. End is nil when unknown
// and never precedes Start.
type Window struct {
	Start    time.Time  `json:"start"`
	End      *time.Time `json:"end,omitempty"`
	Timezone string     `json:"timezone"`
}

// NewWindow builds a Window in the civil zone, discarding an end that precedes start.
func NewWindow(start time.Time, end *time.Time) *Window {
	w := &Window{Start: start.In(CivilZone), Timezone: CivilOffset}
	if end != nil && !end.Before(start) {
		e := end.In(CivilZone)
		w.End = &e
	}
	return w
}

// Source describes one configured origin of reports. It is immutable for the
// lifetime of a run.
type Source struct {
	Name          string
	Label         string
	Tier          Tier
	Vertical      Vertical
	URL           string
	VerifiedBy    string
	Authority     bool
	MinConfidence float64
	Keywords      []string
}

// RawCandidate is what an adapter extracts from a fetched document before
// normalization. Every field is source-formatted free text.
type RawCandidate struct {
	Title        string
	Summary      string
	URL          string
	PublishedRaw string
	WindowText   string
	Status       string
}

// Item is the canonical unit flowing through classification, dedup, retention and ranking.
type Item struct {
	ID            string    `json:"id"`
	Source        string    `json:"source"`
	SourceLabel   string    `json:"sourceLabel"`
	Tier          Tier      `json:"tier"`
	Domain        Vertical  `json:"domain"`
	Title         string    `json:"title"`
	Summary       string    `json:"summary"`
	PublishedAt   time.Time `json:"publishedAt"`
	Status        Status    `json:"status,omitempty"`
	PlannedWindow *Window   `json:"plannedWindow,omitempty"`
	AffectedAreas []string  `json:"affectedAreas"`
	VerifiedBy    string    `json:"verifiedBy,omitempty"`
	Confidence    *float64  `json:"confidence,omitempty"`
	OfficialURL   string    `json:"officialUrl"`

	// Authority marks items from the designated highest-authority source.
	Authority bool `json:"-"`
	// WindowText carries adapter-supplied prose describing a planned window.
	WindowText string `json:"-"`
}

// Text returns the title and summary joined for keyword and window scanning.
func (it Item) Text() string {
	if it.Summary == "" {
		return it.Title
	}
	return it.Title + " " + it.Summary
}

// Payload is the terminal artifact of one run. It replaces the previous payload wholesale.
type Payload struct {
	RunID                  string                 `json:"runId"`
	GeneratedAt            time.Time              `json:"generatedAt"`
	Items                  []Item                 `json:"items"`
	LatestOfficialByDomain map[Vertical]time.Time `json:"latestOfficialByDomain"`
}
