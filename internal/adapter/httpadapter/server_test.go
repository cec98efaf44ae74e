package httpadapter_test

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/outage-feed-etl/internal/adapter/httpadapter"
	"github.com/couchcryptid/outage-feed-etl/internal/domain"
)

type mockReadiness struct {
	err error
}

func (m *mockReadiness) CheckReadiness(_ context.Context) error { return m.err }

type mockPayloads struct {
	payload *domain.Payload
}

func (m *mockPayloads) Current() *domain.Payload { return m.payload }

func testPayload() *domain.Payload {
	published := time.Date(2025, 10, 9, 10, 0, 0, 0, domain.CivilZone)
	items := []domain.Item{
		{ID: "tcn-1", Source: "tcn", Tier: domain.TierOfficial, Domain: domain.VerticalPower, Title: "Grid restored", PublishedAt: published, Status: domain.StatusRestored, AffectedAreas: []string{}},
		{ID: "jamb-1", Source: "jamb", Tier: domain.TierOfficial, Domain: domain.VerticalExams, Title: "UTME results out", PublishedAt: published, AffectedAreas: []string{}},
	}
	return domain.NewPayload("run-1", published.Add(2*time.Hour), items)
}

func newTestServer(readyErr error, p *domain.Payload) *httpadapter.Server {
	return httpadapter.NewServer(":0", &mockReadiness{err: readyErr}, &mockPayloads{payload: p}, slog.Default())
}

func get(srv *httpadapter.Server, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealthzReturns200(t *testing.T) {
	rec := get(newTestServer(nil, nil), "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadyzReturns200WhenReady(t *testing.T) {
	rec := get(newTestServer(nil, testPayload()), "/readyz")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadyzReturns503WhenNotReady(t *testing.T) {
	rec := get(newTestServer(fmt.Errorf("no payload has been published yet"), nil), "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	rec := get(newTestServer(nil, nil), "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestPayloadReturns503BeforeFirstRun(t *testing.T) {
	rec := get(newTestServer(nil, nil), "/v1/payload")

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "not ready", body["status"])
}

func TestPayloadReturnsCurrentPayload(t *testing.T) {
	rec := get(newTestServer(nil, testPayload()), "/v1/payload")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body struct {
		RunID       string `json:"runId"`
		GeneratedAt string `json:"generatedAt"`
		Items       []struct {
			ID     string `json:"id"`
			Domain string `json:"domain"`
		} `json:"items"`
		LatestOfficialByDomain map[string]string `json:"latestOfficialByDomain"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "run-1", body.RunID)
	assert.Equal(t, "2025-10-09T12:00:00+01:00", body.GeneratedAt)
	require.Len(t, body.Items, 2)
	assert.Equal(t, "tcn-1", body.Items[0].ID)
	assert.Len(t, body.LatestOfficialByDomain, 2)
}

func TestPayloadFiltersByDomain(t *testing.T) {
	rec := get(newTestServer(nil, testPayload()), "/v1/payload?domain=exams")

	require.Equal(t, http.StatusOK, rec.Code)
	var body domain.Payload
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Items, 1)
	assert.Equal(t, "jamb-1", body.Items[0].ID)
	assert.Contains(t, body.LatestOfficialByDomain, domain.VerticalExams)
	assert.NotContains(t, body.LatestOfficialByDomain, domain.VerticalPower)
}

func TestPayloadRejectsUnknownDomain(t *testing.T) {
	rec := get(newTestServer(nil, testPayload()), "/v1/payload?domain=water")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
