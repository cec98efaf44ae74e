package domain

import (
	"fmt"
	"sort"
	"strings"
	"unicode"
)

// DefaultSimilarityThreshold is the token-Jaccard score at or above which two
// items are treated as the same event.
const DefaultSimilarityThreshold = 0.7

// TieBreak selects between two same-tier candidates for a cluster's representative.
type TieBreak string

const (
	// TieBreakEarliest keeps the first report of an event.
	TieBreakEarliest TieBreak = "earliest"
	// TieBreakRichest keeps the report with the longer description.
	TieBreakRichest TieBreak = "richest"
)

// ParseTieBreak validates a configured tie-break policy name.
func ParseTieBreak(s string) (TieBreak, error) {
	switch TieBreak(strings.ToLower(strings.TrimSpace(s))) {
	case TieBreakEarliest:
		return TieBreakEarliest, nil
	case TieBreakRichest:
		return TieBreakRichest, nil
	default:
		return "", fmt.Errorf("unknown tie-break policy %q", s)
	}
}

// DedupOptions parameterizes Deduplicate.
type DedupOptions struct {
	Threshold float64
	// TieBreak holds the policy per vertical. Verticals without an entry use TieBreakEarliest.
	TieBreak map[Vertical]TieBreak
}

// DefaultDedupOptions mirrors how each vertical has historically been merged:
// outage reports keep the first report, exam news keeps the fullest one.
func DefaultDedupOptions() DedupOptions {
	return DedupOptions{
		Threshold: DefaultSimilarityThreshold,
		TieBreak: map[Vertical]TieBreak{
			VerticalPower: TieBreakEarliest,
			VerticalExams: TieBreakRichest,
		},
	}
}

type cluster struct {
	rep     Item
	members int
}

// Deduplicate collapses near-duplicate items into one representative per
// cluster using greedy single-pass clustering. Items are compared only within
// the same vertical. Input order does not affect the result: items are first
// ordered by publication time, source and ID.
func Deduplicate(items []Item, opts DedupOptions) []Item {
	if opts.Threshold <= 0 {
		opts.Threshold = DefaultSimilarityThreshold
	}

	ordered := make([]Item, len(items))
	copy(ordered, items)
	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if !a.PublishedAt.Equal(b.PublishedAt) {
			return a.PublishedAt.Before(b.PublishedAt)
		}
		if a.Source != b.Source {
			return a.Source < b.Source
		}
		return a.ID < b.ID
	})

	var clusters []*cluster
	for _, it := range ordered {
		best, bestScore := -1, 0.0
		for i, c := range clusters {
			if c.rep.Domain != it.Domain {
				continue
			}
			score := Similarity(c.rep, it)
			if score >= opts.Threshold && score > bestScore {
				best, bestScore = i, score
			}
		}

		if best < 0 {
			clusters = append(clusters, &cluster{rep: it, members: 1})
			continue
		}

		c := clusters[best]
		c.members++
		if prefer(it, c.rep, opts.policy(it.Domain)) {
			c.rep = merge(it, c.rep)
		} else {
			c.rep = merge(c.rep, it)
		}
	}

	out := make([]Item, len(clusters))
	for i, c := range clusters {
		out[i] = c.rep
	}
	return out
}

func (o DedupOptions) policy(v Vertical) TieBreak {
	if p, ok := o.TieBreak[v]; ok {
		return p
	}
	return TieBreakEarliest
}

// prefer reports whether candidate should replace current as representative.
// Authority beats tier, and tier beats the tie-break policy. Within the same
// authority and tier a dated report always beats an undated one.
func prefer(candidate, current Item, policy TieBreak) bool {
	if candidate.Authority != current.Authority {
		return candidate.Authority
	}
	if cr, rr := candidate.Tier.rank(), current.Tier.rank(); cr != rr {
		return cr > rr
	}
	if cz, rz := candidate.PublishedAt.IsZero(), current.PublishedAt.IsZero(); cz != rz {
		return rz
	}
	switch policy {
	case TieBreakRichest:
		if lc, lr := len(candidate.Summary), len(current.Summary); lc != lr {
			return lc > lr
		}
		return len(candidate.Title) > len(current.Title)
	default:
		return candidate.PublishedAt.Before(current.PublishedAt)
	}
}

// merge folds the suppressed item's complementary fields into the winner.
// An undated winner takes the loser's publication time.
func merge(winner, loser Item) Item {
	if winner.PublishedAt.IsZero() {
		winner.PublishedAt = loser.PublishedAt
	}
	winner.AffectedAreas = unionAreas(winner.AffectedAreas, loser.AffectedAreas)
	if winner.Status == StatusPlanned && winner.PlannedWindow == nil && loser.PlannedWindow != nil {
		w := *loser.PlannedWindow
		winner.PlannedWindow = &w
	}
	if loser.Confidence != nil && (winner.Confidence == nil || *loser.Confidence > *winner.Confidence) {
		c := *loser.Confidence
		winner.Confidence = &c
	}
	if winner.VerifiedBy == "" {
		winner.VerifiedBy = loser.VerifiedBy
	}
	return winner
}

func unionAreas(a, b []string) []string {
	out := make([]string, 0, len(a)+len(b))
	seen := make(map[string]bool, len(a)+len(b))
	for _, list := range [][]string{a, b} {
		for _, area := range list {
			key := strings.ToLower(strings.TrimSpace(area))
			if key == "" || seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, area)
		}
	}
	return out
}

// Similarity is the token-Jaccard score between two items: titles alone, or
// title plus summary when both carry one, whichever is higher.
func Similarity(a, b Item) float64 {
	score := Jaccard(tokenSet(a.Title), tokenSet(b.Title))
	if a.Summary != "" && b.Summary != "" {
		if s := Jaccard(tokenSet(a.Text()), tokenSet(b.Text())); s > score {
			score = s
		}
	}
	return score
}

// Jaccard returns |a ∩ b| / |a ∪ b|, or 0 when both sets are empty.
func Jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	inter := 0
	for t := range a {
		if _, ok := b[t]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}

// tokenSet lower-cases s, strips punctuation and returns its distinct words.
func tokenSet(s string) map[string]struct{} {
	words := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}
