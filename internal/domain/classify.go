package domain

import (
	"regexp"
	"strings"
)

var (
	plannedVocabulary = []string{
		"maintenance", "scheduled", "planned", "upgrade", "upgrading",
		"shutdown", "shut down", "switch off", "switched off", "outage notice",
		"interruption notice", "will be interrupted", "line work",
		"rehabilitation", "routine work",
	}
	restoredVocabulary = []string{
		"restored", "restoration", "back on", "resumed", "power is back",
		"supply has been restored", "normalcy", "reconnected",
	}

	// DefaultKeywords are the relevance vocabularies per vertical, used when a
	// source configures none of its own.
	DefaultKeywords = map[Vertical][]string{
		VerticalPower: {
			"power", "outage", "grid", "electricity", "supply", "feeder",
			"transformer", "substation", "blackout", "load shedding", "disco",
			"transmission", "distribution", "kv", "interruption",
		},
		VerticalExams: {
			"exam", "examination", "result", "results", "timetable", "registration",
			"candidates", "utme", "ssce", "waec", "neco", "jamb", "cbt", "syllabus",
		},
	}

	plannedRe  = vocabularyRe(plannedVocabulary)
	restoredRe = vocabularyRe(restoredVocabulary)
)

// vocabularyRe builds a case-insensitive whole-word matcher over a phrase list.
func vocabularyRe(words []string) *regexp.Regexp {
	quoted := make([]string, len(words))
	for i, w := range words {
		quoted[i] = regexp.QuoteMeta(w)
	}
	return regexp.MustCompile(`(?i)\b(?:` + strings.Join(quoted, "|") + `)\b`)
}

// ClassifyStatus assigns a status from free text. Scheduled-work vocabulary
// is checked before restoration vocabulary, and anything else is treated as a
// live incident.
func ClassifyStatus(text string) Status {
	switch {
	case plannedRe.MatchString(text):
		return StatusPlanned
	case restoredRe.MatchString(text):
		return StatusRestored
	default:
		return StatusUnplanned
	}
}

// IsRelevant reports whether text mentions any keyword of the vertical. A
// non-empty keywords list replaces the vertical's defaults.
func IsRelevant(v Vertical, text string, keywords []string) bool {
	if len(keywords) == 0 {
		keywords = DefaultKeywords[v]
	}
	if len(keywords) == 0 {
		return true
	}
	lower := strings.ToLower(text)
	for _, k := range keywords {
		if matchesWord(lower, strings.ToLower(k)) {
			return true
		}
	}
	return false
}

// ApplyHeuristics classifies an item in place and reports whether it is
// relevant at all. A status supplied by the adapter wins over the vocabulary
// scan. Only PLANNED items carry a window.
func ApplyHeuristics(it *Item, keywords []string) bool {
	if !IsRelevant(it.Domain, it.Text(), keywords) {
		return false
	}
	if it.Domain != VerticalPower {
		it.Status = ""
		it.PlannedWindow = nil
		return true
	}

	if it.Status == "" {
		it.Status = ClassifyStatus(it.Text())
	}
	if it.Status != StatusPlanned {
		it.PlannedWindow = nil
		return true
	}
	if it.PlannedWindow == nil {
		text := it.Text()
		if it.WindowText != "" {
			text = it.WindowText + " " + text
		}
		it.PlannedWindow = ExtractWindow(text, it.PublishedAt)
	}
	return true
}

// matchesWord reports whether word occurs in text on word boundaries.
func matchesWord(text, word string) bool {
	for from := 0; ; {
		i := strings.Index(text[from:], word)
		if i < 0 {
			return false
		}
		start := from + i
		end := start + len(word)
		if (start == 0 || !isWordByte(text[start-1])) && (end == len(text) || !isWordByte(text[end])) {
			return true
		}
		from = start + 1
	}
}

func isWordByte(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= '0' && b <= '9' || b == '_'
}
