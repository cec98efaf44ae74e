package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func utc(y int, m time.Month, d, h, min int) time.Time {
	return time.Date(y, m, d, h, min, 0, 0, time.UTC)
}

func requireWindow(t *testing.T, w *Window, start time.Time, end *time.Time) {
	t.Helper()
	require.NotNil(t, w)
	assert.True(t, start.Equal(w.Start), "start: got %s want %s", w.Start, start)
	assert.Equal(t, CivilOffset, w.Timezone)
	if end == nil {
		assert.Nil(t, w.End, "expected no end")
		return
	}
	require.NotNil(t, w.End)
	assert.True(t, end.Equal(*w.End), "end: got %s want %s", *w.End, *end)
}

func ptr[T any](v T) *T { return &v }

func TestExtractWindow_TimeRangeWithNumericDate(t *testing.T) {
	w := ExtractWindow("Maintenance scheduled from 8:00am to 5:00pm on 12/10/2025.", time.Time{})

	requireWindow(t, w, utc(2025, 10, 12, 7, 0), ptr(utc(2025, 10, 12, 16, 0)))
}

func TestExtractWindow_SingleNamedDate(t *testing.T) {
	w := ExtractWindow("Work will occur on 5 March 2026 for network upgrade.", time.Time{})

	requireWindow(t, w, utc(2026, 3, 5, 8, 0), nil)
}

func TestExtractWindow(t *testing.T) {
	pub := time.Date(2025, 10, 10, 9, 0, 0, 0, CivilZone)

	tests := []struct {
		name  string
		text  string
		pub   time.Time
		start time.Time
		end   *time.Time
	}{
		{
			name:  "iso date with 24h range",
			text:  "Outage 2025-11-02 10:00 - 14:30 for line work",
			start: utc(2025, 11, 2, 9, 0),
			end:   ptr(utc(2025, 11, 2, 13, 30)),
		},
		{
			name:  "dash date with en dash range",
			text:  "Shutdown 02-11-2025, 9am – 3pm",
			start: utc(2025, 11, 2, 8, 0),
			end:   ptr(utc(2025, 11, 2, 14, 0)),
		},
		{
			name:  "two digit year expanded",
			text:  "Upgrade on 12/10/25",
			start: utc(2025, 10, 12, 8, 0),
		},
		{
			name:  "month matched on first three letters",
			text:  "Planned work on 3 SEPTEMBER 2025",
			start: utc(2025, 9, 3, 8, 0),
		},
		{
			name:  "abbreviated month with ordinal",
			text:  "Works on the 21st of Nov. 2025",
			start: utc(2025, 11, 21, 8, 0),
		},
		{
			name:  "month first date",
			text:  "Scheduled for October 12, 2025",
			start: utc(2025, 10, 12, 8, 0),
		},
		{
			name:  "range missing end time defaults to 17:00",
			text:  "From 10:00 to 5 on 12/10/2025",
			start: utc(2025, 10, 12, 9, 0),
			end:   ptr(utc(2025, 10, 12, 16, 0)),
		},
		{
			name:  "range missing start time defaults to 09:00",
			text:  "Between 8 - 2:00pm on 12/10/2025",
			start: utc(2025, 10, 12, 8, 0),
			end:   ptr(utc(2025, 10, 12, 13, 0)),
		},
		{
			name:  "two dates use default times",
			text:  "Maintenance from 12/10/2025 until 14/10/2025",
			start: utc(2025, 10, 12, 8, 0),
			end:   ptr(utc(2025, 10, 14, 16, 0)),
		},
		{
			name:  "two dates with standalone times",
			text:  "Starts 12 Oct 2025 at 7:30am and ends 13 Oct 2025 at 6pm",
			start: utc(2025, 10, 12, 6, 30),
			end:   ptr(utc(2025, 10, 13, 17, 0)),
		},
		{
			name:  "single date with standalone time",
			text:  "Shutdown on 12/10/2025 starting 11:15am",
			start: utc(2025, 10, 12, 10, 15),
		},
		{
			name:  "bare number is not a time",
			text:  "Shutdown on 12/10/2025 affecting 8 feeders",
			start: utc(2025, 10, 12, 8, 0),
		},
		{
			name:  "yearless date resolved against publication",
			text:  "Feeder X maintenance 12 Oct",
			pub:   pub,
			start: utc(2025, 10, 12, 8, 0),
		},
		{
			name:  "yearless date rolls into next year",
			text:  "Upgrade works on Jan 4",
			pub:   time.Date(2025, 12, 20, 9, 0, 0, 0, CivilZone),
			start: utc(2026, 1, 4, 8, 0),
		},
		{
			name:  "tomorrow is relative to publication",
			text:  "Supply will be interrupted tomorrow 10:00am to 4:00pm",
			pub:   pub,
			start: utc(2025, 10, 11, 9, 0),
			end:   ptr(utc(2025, 10, 11, 15, 0)),
		},
		{
			name:  "iso datetime range",
			text:  "Outage 2025-10-12T08:00:00+01:00 to 2025-10-12T17:00:00+01:00",
			start: utc(2025, 10, 12, 7, 0),
			end:   ptr(utc(2025, 10, 12, 16, 0)),
		},
		{
			name:  "iso datetime in another offset",
			text:  "Outage from 2025-10-12T07:00Z",
			start: utc(2025, 10, 12, 7, 0),
		},
		{
			name:  "day range with ordinals",
			text:  "Works 12th-14th October 2025",
			start: utc(2025, 10, 12, 8, 0),
			end:   ptr(utc(2025, 10, 14, 16, 0)),
		},
		{
			name:  "day range with clock range",
			text:  "Outage 12 to 14 Oct 2025, 10:00am to 4:00pm",
			start: utc(2025, 10, 12, 9, 0),
			end:   ptr(utc(2025, 10, 14, 15, 0)),
		},
		{
			name:  "capitalised May is a month",
			text:  "Line work on 12 May",
			pub:   pub,
			start: utc(2025, 5, 12, 8, 0),
		},
		{
			name:  "repeated date counts once",
			text:  "12/10/2025: maintenance. Reminder: 12 October 2025, 8:00am to 1:00pm",
			start: utc(2025, 10, 12, 7, 0),
			end:   ptr(utc(2025, 10, 12, 12, 0)),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := ExtractWindow(tt.text, tt.pub)
			requireWindow(t, w, tt.start, tt.end)
		})
	}
}

func TestExtractWindow_NoWindow(t *testing.T) {
	tests := []struct {
		name string
		text string
		pub  time.Time
	}{
		{"no date", "Power outage reported in Lekki from 8:00am to 5:00pm", time.Time{}},
		{"yearless without publication time", "Feeder X maintenance 12 Oct", time.Time{}},
		{"impossible date", "Shutdown on 31/02/2025", time.Time{}},
		{"invalid month", "Shutdown on 12/13/2025", time.Time{}},
		{"empty", "", time.Time{}},
		{"word resembling a month", "4 junctions closed", time.Date(2025, 1, 1, 0, 0, 0, 0, CivilZone)},
		{"modal may between numbers", "The 132kV line 3 may 2 be affected", time.Date(2025, 10, 10, 9, 0, 0, 0, CivilZone)},
		{"capitalised May between bare numbers", "Line 3 May 2 be affected", time.Date(2025, 10, 10, 9, 0, 0, 0, CivilZone)},
		{"lower-case may", "Supply may 5 feeders", time.Date(2025, 10, 10, 9, 0, 0, 0, CivilZone)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Nil(t, ExtractWindow(tt.text, tt.pub))
		})
	}
}

func TestExtractWindow_InvertedEndDropped(t *testing.T) {
	w := ExtractWindow("Outage on 12/10/2025 from 5:00pm to 8:00am", time.Time{})

	requireWindow(t, w, utc(2025, 10, 12, 16, 0), nil)
}

func TestExtractWindow_EndNeverBeforeStart(t *testing.T) {
	texts := []string{
		"Outage on 12/10/2025 from 5:00pm to 8:00am",
		"Works 14/10/2025 through 12/10/2025",
		"Maintenance 12/10/2025 10:00 - 09:59",
		"Maintenance from 8:00am to 5:00pm on 12/10/2025.",
		"Shutdown 1 Jan 2026 11pm to 12 Jan 2026 1am",
	}
	for _, text := range texts {
		w := ExtractWindow(text, time.Time{})
		require.NotNil(t, w, text)
		if w.End != nil {
			assert.False(t, w.End.Before(w.Start), text)
		}
	}
}

func TestParseClock(t *testing.T) {
	tests := []struct {
		name   string
		hour   string
		min    string
		mer    string
		want   clock
		wantOK bool
	}{
		{"colon 24h", "14", "30", "", clock{14, 30}, true},
		{"am", "8", "", "a", clock{8, 0}, true},
		{"pm", "5", "00", "p", clock{17, 0}, true},
		{"noon", "12", "", "p", clock{12, 0}, true},
		{"midnight", "12", "", "a", clock{0, 0}, true},
		{"bare number rejected", "8", "", "", clock{}, false},
		{"hour too large for meridiem", "13", "", "p", clock{}, false},
		{"hour too large", "25", "00", "", clock{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parseClock(tt.hour, tt.min, tt.mer)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFirstDate(t *testing.T) {
	d, ok := FirstDate("Posted 12th October 2025 by the press desk, updated 14/10/2025")
	require.True(t, ok)
	assert.True(t, d.Equal(time.Date(2025, 10, 12, 0, 0, 0, 0, CivilZone)))

	d, ok = FirstDate("Updated 2025-10-12T23:30:00Z")
	require.True(t, ok)
	assert.True(t, d.Equal(time.Date(2025, 10, 13, 0, 0, 0, 0, CivilZone)), "civil date of a UTC timestamp")

	_, ok = FirstDate("Posted yesterday")
	assert.False(t, ok)
}
