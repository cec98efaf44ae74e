package domain

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

const (
	defaultStartHour = 9
	defaultEndHour   = 17
)

var (
	// isoDateTimeRe matches 2025-10-12T08:00, with optional seconds and offset.
	isoDateTimeRe = regexp.MustCompile(`\b(\d{4}-\d{2}-\d{2})T(\d{2}:\d{2})(?::\d{2}(?:\.\d+)?)?(Z|[+-]\d{2}:\d{2})?`)

	// isoDateRe matches 2025-10-12.
	isoDateRe = regexp.MustCompile(`\b(\d{4})-(\d{2})-(\d{2})\b`)

	// dmySlashRe and dmyDashRe match day-first numeric dates: 12/10/2025, 12-10-25.
	dmySlashRe = regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})/(\d{4}|\d{2})\b`)
	dmyDashRe  = regexp.MustCompile(`\b(\d{1,2})-(\d{1,2})-(\d{4}|\d{2})\b`)

	// dayRangeMonthYearRe matches "12th-14th October 2025" and "12 to 14 Oct 2025".
	dayRangeMonthYearRe = regexp.MustCompile(`(?i)\b(\d{1,2})(?:st|nd|rd|th)?\s*(?:-|–|to)\s*(\d{1,2})(?:st|nd|rd|th)?\s+(?:of\s+)?([a-z]{3,9})\.?,?\s+(\d{4}|\d{2})\b`)

	// dayMonthYearRe matches "5 March 2026", "5th of Mar, 26".
	dayMonthYearRe = regexp.MustCompile(`(?i)\b(\d{1,2})(?:st|nd|rd|th)?\s+(?:of\s+)?([a-z]{3,9})\.?,?\s+(\d{4}|\d{2})\b`)

	// monthDayYearRe matches "October 12, 2025".
	monthDayYearRe = regexp.MustCompile(`(?i)\b([a-z]{3,9})\.?\s+(\d{1,2})(?:st|nd|rd|th)?,?\s+(\d{4})\b`)

	// Yearless forms, resolved against the publication year.
	dayMonthRe = regexp.MustCompile(`(?i)\b(\d{1,2})(?:st|nd|rd|th)?\s+(?:of\s+)?([a-z]{3,9})\b`)
	monthDayRe = regexp.MustCompile(`(?i)\b([a-z]{3,9})\.?\s+(\d{1,2})(?:st|nd|rd|th)?\b`)

	relativeDayRe = regexp.MustCompile(`(?i)\b(today|tomorrow)\b`)

	// clockRe matches a candidate time token. Tokens carrying neither minutes nor
	// an am/pm marker are rejected after matching.
	clockPattern = `(\d{1,2})(?::([0-5]\d))?\s*(?:([ap])\.?m\b\.?)?`
	clockRe      = regexp.MustCompile(`(?i)\b` + clockPattern)
	clockRangeRe = regexp.MustCompile(`(?i)\b` + clockPattern + `\s*(?:to|-|–)\s*` + clockPattern)
)

var monthsByPrefix = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March,
	"apr": time.April, "may": time.May, "jun": time.June,
	"jul": time.July, "aug": time.August, "sep": time.September,
	"oct": time.October, "nov": time.November, "dec": time.December,
}

// clock is a wall-clock time of day in the civil zone.
type clock struct {
	hour, min int
}

type dateMatch struct {
	pos  int
	date time.Time
}

// ExtractWindow derives a planned window from free text. publishedAt, when
// non-zero, resolves yearless and relative dates. It returns nil when the
// text carries no calendar date.
func ExtractWindow(text string, publishedAt time.Time) *Window {
	dates, rest := findDates(text, publishedAt)
	if len(dates) == 0 {
		return nil
	}

	startDay, endDay := dates[0], dates[0]
	if len(dates) > 1 {
		endDay = dates[1]
	}

	if from, to, ok := findClockRange(rest); ok {
		start := at(startDay, from, clock{hour: defaultStartHour})
		end := at(endDay, to, clock{hour: defaultEndHour})
		return NewWindow(start, &end)
	}

	clocks := findClocks(rest)
	if len(dates) > 1 {
		var from, to *clock
		if len(clocks) > 0 {
			from = &clocks[0]
		}
		if len(clocks) > 1 {
			to = &clocks[1]
		}
		start := at(startDay, from, clock{hour: defaultStartHour})
		end := at(endDay, to, clock{hour: defaultEndHour})
		return NewWindow(start, &end)
	}

	var from *clock
	if len(clocks) > 0 {
		from = &clocks[0]
	}
	return NewWindow(at(startDay, from, clock{hour: defaultStartHour}), nil)
}

// FirstDate returns the first calendar date written in text, at midnight in
// the civil zone. Yearless and relative forms are not recognized.
func FirstDate(text string) (time.Time, bool) {
	dates, _ := findDates(text, time.Time{})
	if len(dates) == 0 {
		return time.Time{}, false
	}
	return dates[0], true
}

// findDates returns the distinct calendar dates in order of appearance and the
// text with every date match blanked out, so date digits are never read as times.
// The time of an ISO datetime is kept in the text, converted to the civil zone.
func findDates(text string, publishedAt time.Time) ([]time.Time, string) {
	buf := []byte(text)
	var found []dateMatch

	for _, idx := range isoDateTimeRe.FindAllStringSubmatchIndex(text, -1) {
		t, ok := parseISODateTime(submatches(text, idx))
		if !ok {
			continue
		}
		found = append(found, dateMatch{pos: idx[0], date: civilMidnight(t)})
		blank(buf, idx[0], idx[1])
		copy(buf[idx[4]:idx[5]], t.Format("15:04"))
	}

	scan := func(re *regexp.Regexp, resolve func(m []string, start, end int) []time.Time) {
		s := string(buf)
		for _, idx := range re.FindAllStringSubmatchIndex(s, -1) {
			// "12 Oct 10:00" must not read 10 as a two-digit year.
			if idx[1]+1 < len(buf) && buf[idx[1]] == ':' && buf[idx[1]+1] >= '0' && buf[idx[1]+1] <= '9' {
				continue
			}
			dates := resolve(submatches(s, idx), idx[0], idx[1])
			if len(dates) == 0 {
				continue
			}
			for _, d := range dates {
				found = append(found, dateMatch{pos: idx[0], date: d})
			}
			blank(buf, idx[0], idx[1])
		}
	}
	one := func(d time.Time, ok bool) []time.Time {
		if !ok {
			return nil
		}
		return []time.Time{d}
	}

	scan(isoDateRe, func(m []string, _, _ int) []time.Time {
		return one(civilDate(atoi(m[1]), atoi(m[2]), atoi(m[3])))
	})
	scan(dmySlashRe, func(m []string, _, _ int) []time.Time {
		return one(civilDate(atoi(m[3]), atoi(m[2]), atoi(m[1])))
	})
	scan(dmyDashRe, func(m []string, _, _ int) []time.Time {
		return one(civilDate(atoi(m[3]), atoi(m[2]), atoi(m[1])))
	})
	scan(dayRangeMonthYearRe, func(m []string, _, _ int) []time.Time {
		month, ok := parseMonth(m[3])
		if !ok {
			return nil
		}
		from, okFrom := civilDate(atoi(m[4]), int(month), atoi(m[1]))
		to, okTo := civilDate(atoi(m[4]), int(month), atoi(m[2]))
		if !okFrom || !okTo || to.Before(from) {
			return nil
		}
		return []time.Time{from, to}
	})
	scan(dayMonthYearRe, func(m []string, _, _ int) []time.Time {
		month, ok := parseMonth(m[2])
		if !ok {
			return nil
		}
		return one(civilDate(atoi(m[3]), int(month), atoi(m[1])))
	})
	scan(monthDayYearRe, func(m []string, _, _ int) []time.Time {
		month, ok := parseMonth(m[1])
		if !ok {
			return nil
		}
		return one(civilDate(atoi(m[3]), int(month), atoi(m[2])))
	})

	if !publishedAt.IsZero() {
		pub := publishedAt.In(CivilZone)
		scan(dayMonthRe, func(m []string, _, end int) []time.Time {
			month, ok := parseMonthName(m[2])
			if !ok || (month == time.May && modalMay(m[2], nextIsBareNumber(buf, end))) {
				return nil
			}
			return one(yearlessDate(pub, month, atoi(m[1])))
		})
		scan(monthDayRe, func(m []string, start, _ int) []time.Time {
			month, ok := parseMonthName(m[1])
			if !ok || (month == time.May && modalMay(m[1], prevIsBareNumber(buf, start))) {
				return nil
			}
			return one(yearlessDate(pub, month, atoi(m[2])))
		})
		scan(relativeDayRe, func(m []string, _, _ int) []time.Time {
			d := civilMidnight(pub)
			if strings.EqualFold(m[1], "tomorrow") {
				d = d.AddDate(0, 0, 1)
			}
			return []time.Time{d}
		})
	}

	sort.SliceStable(found, func(i, j int) bool { return found[i].pos < found[j].pos })

	dates := make([]time.Time, 0, len(found))
	for _, f := range found {
		if len(dates) > 0 && containsDate(dates, f.date) {
			continue
		}
		dates = append(dates, f.date)
	}
	return dates, string(buf)
}

// parseISODateTime reads the date, clock and optional offset groups of an
// isoDateTimeRe match. A missing offset means civil time.
func parseISODateTime(m []string) (time.Time, bool) {
	if m[3] == "" {
		t, err := time.ParseInLocation("2006-01-02T15:04", m[1]+"T"+m[2], CivilZone)
		return t, err == nil
	}
	t, err := time.Parse(time.RFC3339, m[1]+"T"+m[2]+":00"+m[3])
	if err != nil {
		return time.Time{}, false
	}
	return t.In(CivilZone), true
}

// modalMay reports whether a yearless "may" is the verb rather than the
// month: it is written in lower case, or sits next to a bare number as in
// "line 3 may 2".
func modalMay(word string, numberBeside bool) bool {
	return word == strings.ToLower(word) || numberBeside
}

// nextIsBareNumber reports whether the first token after end is a number that
// is not part of a time such as 10:00 or 9am.
func nextIsBareNumber(buf []byte, end int) bool {
	i := end
	for i < len(buf) && isSpace(buf[i]) {
		i++
	}
	j := i
	for j < len(buf) && isDigit(buf[j]) {
		j++
	}
	if j == i {
		return false
	}
	return j == len(buf) || !(buf[j] == ':' || isLetter(buf[j]))
}

// prevIsBareNumber is nextIsBareNumber for the token before start.
func prevIsBareNumber(buf []byte, start int) bool {
	j := start
	for j > 0 && isSpace(buf[j-1]) {
		j--
	}
	i := j
	for i > 0 && isDigit(buf[i-1]) {
		i--
	}
	if i == j {
		return false
	}
	return i == 0 || !(buf[i-1] == ':' || isLetter(buf[i-1]))
}

func isSpace(b byte) bool  { return b == ' ' || b == '\t' || b == '\n' || b == '\r' }
func isDigit(b byte) bool  { return b >= '0' && b <= '9' }
func isLetter(b byte) bool { return (b|0x20) >= 'a' && (b|0x20) <= 'z' }

func civilMidnight(t time.Time) time.Time {
	t = t.In(CivilZone)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, CivilZone)
}

// findClockRange returns the two ends of the first range token in which at
// least one end is a valid time. An invalid end is returned as nil.
func findClockRange(text string) (*clock, *clock, bool) {
	for _, m := range clockRangeRe.FindAllStringSubmatch(text, -1) {
		from, okFrom := parseClock(m[1], m[2], m[3])
		to, okTo := parseClock(m[4], m[5], m[6])
		if !okFrom && !okTo {
			continue
		}
		var fp, tp *clock
		if okFrom {
			fp = &from
		}
		if okTo {
			tp = &to
		}
		return fp, tp, true
	}
	return nil, nil, false
}

func findClocks(text string) []clock {
	var out []clock
	for _, m := range clockRe.FindAllStringSubmatch(text, -1) {
		if c, ok := parseClock(m[1], m[2], m[3]); ok {
			out = append(out, c)
		}
	}
	return out
}

// parseClock validates a time token. A bare number with neither minutes nor
// an am/pm marker is ambiguous and rejected.
func parseClock(hourStr, minStr, meridiem string) (clock, bool) {
	if hourStr == "" || (minStr == "" && meridiem == "") {
		return clock{}, false
	}
	hour := atoi(hourStr)
	minute := 0
	if minStr != "" {
		minute = atoi(minStr)
	}

	switch strings.ToLower(meridiem) {
	case "a":
		if hour < 1 || hour > 12 {
			return clock{}, false
		}
		if hour == 12 {
			hour = 0
		}
	case "p":
		if hour < 1 || hour > 12 {
			return clock{}, false
		}
		if hour != 12 {
			hour += 12
		}
	default:
		if hour > 23 {
			return clock{}, false
		}
	}
	return clock{hour: hour, min: minute}, true
}

// civilDate builds midnight of a calendar date in the civil zone, rejecting
// dates that time.Date would normalize (31/02) and expanding two-digit years.
func civilDate(year, month, day int) (time.Time, bool) {
	if year < 100 {
		year += 2000
	}
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, false
	}
	d := time.Date(year, time.Month(month), day, 0, 0, 0, 0, CivilZone)
	if d.Day() != day || int(d.Month()) != month {
		return time.Time{}, false
	}
	return d, true
}

// yearlessDate resolves "12 Oct" against the publication year, rolling forward
// a year when the result would land more than half a year before publication.
func yearlessDate(pub time.Time, month time.Month, day int) (time.Time, bool) {
	d, ok := civilDate(pub.Year(), int(month), day)
	if !ok {
		return time.Time{}, false
	}
	if pub.Sub(d) > 180*24*time.Hour {
		return civilDate(pub.Year()+1, int(month), day)
	}
	return d, true
}

// parseMonth matches a month name by its first three letters, case-insensitively.
func parseMonth(name string) (time.Month, bool) {
	if len(name) < 3 {
		return 0, false
	}
	m, ok := monthsByPrefix[strings.ToLower(name[:3])]
	return m, ok
}

// parseMonthName is the stricter form used for yearless dates, where a loose
// prefix match would turn words like "junction" into June.
func parseMonthName(name string) (time.Month, bool) {
	m, ok := parseMonth(name)
	if !ok {
		return 0, false
	}
	return m, strings.HasPrefix(strings.ToLower(m.String()), strings.ToLower(name))
}

func at(day time.Time, c *clock, fallback clock) time.Time {
	if c == nil {
		c = &fallback
	}
	return time.Date(day.Year(), day.Month(), day.Day(), c.hour, c.min, 0, 0, CivilZone)
}

func containsDate(dates []time.Time, d time.Time) bool {
	for _, x := range dates {
		if x.Equal(d) {
			return true
		}
	}
	return false
}

func submatches(s string, idx []int) []string {
	out := make([]string, len(idx)/2)
	for i := range out {
		if idx[2*i] >= 0 {
			out[i] = s[idx[2*i]:idx[2*i+1]]
		}
	}
	return out
}

func blank(buf []byte, from, to int) {
	for i := from; i < to; i++ {
		buf[i] = ' '
	}
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
