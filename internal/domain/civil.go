package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// CivilOffset is the fixed UTC offset of the target region. The region does not
// observe DST, so a fixed zone stands in for a rules-based one.
const CivilOffset = "+01:00"

// CivilZone is the fixed +01:00 zone every instant is resolved into.
var CivilZone = time.FixedZone("WAT", 60*60)

// ErrNoPublishTime is returned when a source provides no usable publication time.
var ErrNoPublishTime = errors.New("no publication time")

// FormatCivil renders t at the civil offset with full nanosecond precision.
func FormatCivil(t time.Time) string {
	return t.In(CivilZone).Format(time.RFC3339Nano)
}

// ParseCivil is the inverse of FormatCivil.
func ParseCivil(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse civil time %q: %w", s, err)
	}
	return t.In(CivilZone), nil
}

// ParsePublished resolves a source-formatted publication timestamp into the civil zone.
// Numeric dates are read day-first, the convention of every configured source.
// Strings without an explicit offset are taken as civil wall-clock time.
func ParsePublished(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, ErrNoPublishTime
	}

	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return t.In(CivilZone), nil
	}
	if m := dmySlashRe.FindStringSubmatch(raw); m != nil && strings.TrimSpace(m[0]) == raw {
		if d, ok := civilDate(atoi(m[3]), atoi(m[2]), atoi(m[1])); ok {
			return d, nil
		}
	}
	if m := dmyDashRe.FindStringSubmatch(raw); m != nil && strings.TrimSpace(m[0]) == raw {
		if d, ok := civilDate(atoi(m[3]), atoi(m[2]), atoi(m[1])); ok {
			return d, nil
		}
	}

	t, err := dateparse.ParseIn(raw, CivilZone)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse publication time %q: %w", raw, err)
	}
	return t.In(CivilZone), nil
}
