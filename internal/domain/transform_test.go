package domain

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testSourceName = "ikedc"
	testSourceURL  = "https://www.ikejaelectric.com/news"
)

func testSource() Source {
	return Source{
		Name:          testSourceName,
		Label:         "Ikeja Electric",
		Tier:          TierOfficial,
		Vertical:      VerticalPower,
		URL:           testSourceURL,
		VerifiedBy:    "IKEDC",
		MinConfidence: 0.65,
	}
}

func TestNormalize(t *testing.T) {
	t.Run("full candidate", func(t *testing.T) {
		raw := RawCandidate{
			Title:        "  Planned <b>outage</b>:   Feeder X  ",
			Summary:      "<p>Supply to Alausa &amp; Agidingbi will be interrupted.</p><script>track()</script>",
			URL:          "/news/feeder-x?utm_source=twitter#top",
			PublishedRaw: "2025-10-10T09:15:00Z",
			Status:       "planned",
		}
		it, err := Normalize(testSource(), raw)

		require.NoError(t, err)
		assert.Equal(t, "Planned outage: Feeder X", it.Title)
		assert.Equal(t, "Supply to Alausa & Agidingbi will be interrupted.", it.Summary)
		assert.Equal(t, "https://www.ikejaelectric.com/news/feeder-x", it.OfficialURL)
		assert.True(t, time.Date(2025, 10, 10, 10, 15, 0, 0, CivilZone).Equal(it.PublishedAt))
		assert.Equal(t, "+01:00", it.PublishedAt.Format("-07:00"))
		assert.Equal(t, StatusPlanned, it.Status)
		assert.Equal(t, TierOfficial, it.Tier)
		assert.Equal(t, VerticalPower, it.Domain)
		assert.Equal(t, "Ikeja Electric", it.SourceLabel)
		assert.Equal(t, "IKEDC", it.VerifiedBy)
		assert.NotNil(t, it.AffectedAreas)
		assert.True(t, strings.HasPrefix(it.ID, testSourceName+"-"))
	})

	t.Run("empty title", func(t *testing.T) {
		_, err := Normalize(testSource(), RawCandidate{Title: "<br/>  "})
		require.ErrorIs(t, err, ErrEmptyTitle)
	})

	t.Run("unparseable publish time leaves zero", func(t *testing.T) {
		it, err := Normalize(testSource(), RawCandidate{Title: "Outage", PublishedRaw: "sometime last week"})
		require.NoError(t, err)
		assert.True(t, it.PublishedAt.IsZero())
	})

	t.Run("status ignored outside POWER", func(t *testing.T) {
		src := testSource()
		src.Vertical = VerticalExams
		it, err := Normalize(src, RawCandidate{Title: "WAEC results out", Status: "PLANNED"})
		require.NoError(t, err)
		assert.Empty(t, it.Status)
	})

	t.Run("label falls back to name", func(t *testing.T) {
		src := testSource()
		src.Label = ""
		it, err := Normalize(src, RawCandidate{Title: "Outage"})
		require.NoError(t, err)
		assert.Equal(t, testSourceName, it.SourceLabel)
	})
}

func TestNormalize_IdempotentID(t *testing.T) {
	a := RawCandidate{Title: "Outage in Ikeja", URL: "https://WWW.ikejaelectric.com/news/a/?b=2&a=1", PublishedRaw: "12/10/2025"}
	b := RawCandidate{Title: "Outage in Ikeja (updated)", URL: "https://www.ikejaelectric.com/news/a?a=1&b=2#x", PublishedRaw: "2025-10-12T00:00:00+01:00"}

	itA, err := Normalize(testSource(), a)
	require.NoError(t, err)
	itB, err := Normalize(testSource(), b)
	require.NoError(t, err)
	again, err := Normalize(testSource(), a)
	require.NoError(t, err)

	assert.Equal(t, itA.ID, itB.ID, "same source, canonical URL and publish time")
	assert.Equal(t, itA.ID, again.ID)

	other := testSource()
	other.Name = "ekedc"
	itC, err := Normalize(other, a)
	require.NoError(t, err)
	assert.NotEqual(t, itA.ID, itC.ID)
}

func TestGenerateID(t *testing.T) {
	t.Run("includes source prefix", func(t *testing.T) {
		id := generateID("tcn", "https://tcn.org.ng/a", "2025-10-12T09:00:00+01:00")
		assert.True(t, strings.HasPrefix(id, "tcn-"))
		assert.Len(t, id, len("tcn-")+16)
	})

	t.Run("different inputs produce different IDs", func(t *testing.T) {
		id1 := generateID("tcn", "https://tcn.org.ng/a", "2025-10-12T09:00:00+01:00")
		id2 := generateID("tcn", "https://tcn.org.ng/a", "2025-10-12T09:00:01+01:00")
		assert.NotEqual(t, id1, id2)
	})

	t.Run("empty source", func(t *testing.T) {
		id := generateID("", "https://tcn.org.ng/a", "")
		assert.Len(t, id, 16)
	})
}

func TestCleanText(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		expected string
	}{
		{"plain", "  a   b\n c ", "a b c"},
		{"tags", "<div><h2>Title</h2><p>Body text</p></div>", "Title Body text"},
		{"entities", "Tom &amp; Jerry &#8211; live", "Tom & Jerry – live"},
		{"script and style dropped", "<style>.x{}</style>keep<script>var a=1</script>", "keep"},
		{"line breaks separate words", "one<br>two<br/>three", "one two three"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CleanText(tt.in))
		})
	}
}

func TestCanonicalURL(t *testing.T) {
	tests := []struct {
		name     string
		ref      string
		base     string
		expected string
	}{
		{"absolute untouched", "https://tcn.org.ng/news/1", "", "https://tcn.org.ng/news/1"},
		{"relative resolved", "/news/1", "https://tcn.org.ng/press", "https://tcn.org.ng/news/1"},
		{"host lower-cased", "HTTPS://TCN.org.ng/News", "", "https://tcn.org.ng/News"},
		{"fragment removed", "https://tcn.org.ng/a#comments", "", "https://tcn.org.ng/a"},
		{"tracking removed and query sorted", "https://tcn.org.ng/a?utm_medium=x&z=1&fbclid=abc&b=2", "", "https://tcn.org.ng/a?b=2&z=1"},
		{"trailing slash trimmed", "https://tcn.org.ng/a/", "", "https://tcn.org.ng/a"},
		{"root slash kept", "https://tcn.org.ng/", "", "https://tcn.org.ng/"},
		{"default port dropped", "https://tcn.org.ng:443/a", "", "https://tcn.org.ng/a"},
		{"empty ref uses base", "", "https://tcn.org.ng/press/", "https://tcn.org.ng/press"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CanonicalURL(tt.ref, tt.base))
		})
	}
}

func TestParsePublished(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected time.Time
	}{
		{"rfc3339 utc", "2025-10-12T07:00:00Z", time.Date(2025, 10, 12, 8, 0, 0, 0, CivilZone)},
		{"day first slash", "12/10/2025", time.Date(2025, 10, 12, 0, 0, 0, 0, CivilZone)},
		{"day first dash short year", "5-3-26", time.Date(2026, 3, 5, 0, 0, 0, 0, CivilZone)},
		{"rfc1123", "Sun, 12 Oct 2025 07:00:00 GMT", time.Date(2025, 10, 12, 8, 0, 0, 0, CivilZone)},
		{"wall clock without offset", "2025-10-12 08:00:00", time.Date(2025, 10, 12, 8, 0, 0, 0, CivilZone)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParsePublished(tt.raw)
			require.NoError(t, err)
			assert.True(t, tt.expected.Equal(got), "got %s want %s", got, tt.expected)
			assert.Equal(t, CivilZone, got.Location())
		})
	}

	t.Run("empty", func(t *testing.T) {
		_, err := ParsePublished("   ")
		require.ErrorIs(t, err, ErrNoPublishTime)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := ParsePublished("not a date at all")
		require.Error(t, err)
	})
}

func TestCivilRoundTrip(t *testing.T) {
	instants := []time.Time{
		time.Date(2025, 10, 12, 7, 0, 0, 0, time.UTC),
		time.Date(2026, 3, 5, 23, 59, 59, 999999999, time.UTC),
		time.Date(2024, 2, 29, 12, 30, 0, 123456789, time.FixedZone("X", -5*3600)),
	}
	for _, in := range instants {
		s := FormatCivil(in)
		assert.True(t, strings.HasSuffix(s, "+01:00"), s)

		out, err := ParseCivil(s)
		require.NoError(t, err)
		assert.True(t, in.Equal(out), "round trip of %s produced %s", in, out)
	}

	_, err := ParseCivil("12/10/2025")
	require.Error(t, err)
}
