package domain

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type stubJudge struct {
	judgment Judgment
	err      error
	calls    int
}

func (s *stubJudge) Judge(_ context.Context, _ Vertical, _, _ string) (Judgment, error) {
	s.calls++
	return s.judgment, s.err
}

type stubExtractor struct {
	window *Window
	err    error
	calls  int
}

func (s *stubExtractor) ExtractWindow(_ context.Context, _ string, _ time.Time) (*Window, error) {
	s.calls++
	return s.window, s.err
}

func powerItem() Item {
	return Item{
		ID:            "ikedc-1",
		Source:        "ikedc",
		Domain:        VerticalPower,
		Title:         "Power outage in Ikeja",
		Summary:       "Feeder tripped this morning",
		Status:        StatusUnplanned,
		AffectedAreas: []string{"Ikeja"},
	}
}

func TestEnrichWithJudgment(t *testing.T) {
	t.Run("nil judge keeps heuristic result", func(t *testing.T) {
		it := powerItem()
		assert.Equal(t, VerdictSkipped, EnrichWithJudgment(context.Background(), &it, nil, 0.65, discardLogger()))
		assert.Nil(t, it.Confidence)
	})

	t.Run("judge failure falls back", func(t *testing.T) {
		it := powerItem()
		j := &stubJudge{err: errors.New("connection refused")}
		assert.Equal(t, VerdictFallback, EnrichWithJudgment(context.Background(), &it, j, 0.65, discardLogger()))
		assert.Equal(t, 1, j.calls)
		assert.Nil(t, it.Confidence)
	})

	t.Run("low confidence drops despite keywords", func(t *testing.T) {
		it := powerItem()
		require.True(t, IsRelevant(it.Domain, it.Text(), nil))
		j := &stubJudge{judgment: Judgment{IsRelevant: true, Confidence: 0.5}}
		assert.Equal(t, VerdictLowConfidence, EnrichWithJudgment(context.Background(), &it, j, 0.65, discardLogger()))
	})

	t.Run("irrelevant verdict drops", func(t *testing.T) {
		it := powerItem()
		j := &stubJudge{judgment: Judgment{IsRelevant: false, Confidence: 0.99}}
		assert.Equal(t, VerdictIrrelevant, EnrichWithJudgment(context.Background(), &it, j, 0.65, discardLogger()))
	})

	t.Run("accepted verdict enriches item", func(t *testing.T) {
		it := powerItem()
		j := &stubJudge{judgment: Judgment{IsRelevant: true, Confidence: 0.8, AffectedAreas: []string{"ikeja", "Ogba"}}}
		assert.Equal(t, VerdictKept, EnrichWithJudgment(context.Background(), &it, j, 0.65, discardLogger()))
		require.NotNil(t, it.Confidence)
		assert.InDelta(t, 0.8, *it.Confidence, 1e-9)
		assert.Equal(t, []string{"Ikeja", "Ogba"}, it.AffectedAreas)
		assert.Equal(t, StatusUnplanned, it.Status)
	})

	t.Run("threshold is inclusive", func(t *testing.T) {
		it := powerItem()
		j := &stubJudge{judgment: Judgment{IsRelevant: true, Confidence: 0.65}}
		assert.Equal(t, VerdictKept, EnrichWithJudgment(context.Background(), &it, j, 0.65, discardLogger()))
	})

	t.Run("judge can promote to planned", func(t *testing.T) {
		it := powerItem()
		it.Summary = "Crews will work on the line on 12/10/2025"
		j := &stubJudge{judgment: Judgment{IsRelevant: true, Confidence: 0.9, Status: StatusPlanned}}
		assert.Equal(t, VerdictKept, EnrichWithJudgment(context.Background(), &it, j, 0.65, discardLogger()))
		assert.Equal(t, StatusPlanned, it.Status)
		assert.NotNil(t, it.PlannedWindow)
	})
}

func TestEnrichWithWindow(t *testing.T) {
	now := time.Date(2025, 10, 10, 12, 0, 0, 0, CivilZone)
	planned := func() Item {
		it := powerItem()
		it.Status = StatusPlanned
		return it
	}

	t.Run("future window accepted", func(t *testing.T) {
		it := planned()
		end := now.Add(30 * time.Hour)
		ex := &stubExtractor{window: &Window{Start: now.Add(24 * time.Hour), End: &end}}
		assert.True(t, EnrichWithWindow(context.Background(), &it, ex, now, discardLogger()))
		require.NotNil(t, it.PlannedWindow)
		assert.Equal(t, CivilOffset, it.PlannedWindow.Timezone)
		require.NotNil(t, it.PlannedWindow.End)
	})

	t.Run("past window discarded", func(t *testing.T) {
		it := planned()
		ex := &stubExtractor{window: &Window{Start: now.Add(-time.Hour)}}
		assert.False(t, EnrichWithWindow(context.Background(), &it, ex, now, discardLogger()))
		assert.Nil(t, it.PlannedWindow)
	})

	t.Run("start equal to now discarded", func(t *testing.T) {
		it := planned()
		ex := &stubExtractor{window: &Window{Start: now}}
		assert.False(t, EnrichWithWindow(context.Background(), &it, ex, now, discardLogger()))
	})

	t.Run("inverted end dropped", func(t *testing.T) {
		it := planned()
		end := now.Add(time.Hour)
		ex := &stubExtractor{window: &Window{Start: now.Add(2 * time.Hour), End: &end}}
		assert.True(t, EnrichWithWindow(context.Background(), &it, ex, now, discardLogger()))
		assert.Nil(t, it.PlannedWindow.End)
	})

	t.Run("not called when heuristic window exists", func(t *testing.T) {
		it := planned()
		it.PlannedWindow = NewWindow(now.Add(time.Hour), nil)
		ex := &stubExtractor{}
		assert.False(t, EnrichWithWindow(context.Background(), &it, ex, now, discardLogger()))
		assert.Zero(t, ex.calls)
	})

	t.Run("not called for unplanned", func(t *testing.T) {
		it := powerItem()
		ex := &stubExtractor{}
		assert.False(t, EnrichWithWindow(context.Background(), &it, ex, now, discardLogger()))
		assert.Zero(t, ex.calls)
	})

	t.Run("extractor error tolerated", func(t *testing.T) {
		it := planned()
		ex := &stubExtractor{err: errors.New("timeout")}
		assert.False(t, EnrichWithWindow(context.Background(), &it, ex, now, discardLogger()))
		assert.Nil(t, it.PlannedWindow)
	})
}
