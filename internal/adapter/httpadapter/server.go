package httpadapter

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/outage-feed-etl/internal/domain"
)

// PayloadSource returns the last published payload, or nil before the first run.
type PayloadSource interface {
	Current() *domain.Payload
}

// Server exposes health, readiness, metrics and the current payload over HTTP.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics and
// /v1/payload routes.
func NewServer(addr string, ready sharedobs.ReadinessChecker, payloads PayloadSource, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		logger: logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(ready))
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /v1/payload", s.handlePayload(payloads))

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

// handlePayload serves the current payload. An optional domain query
// parameter narrows the items to one vertical.
func (s *Server) handlePayload(payloads PayloadSource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p := payloads.Current()
		if p == nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"error":  "no payload has been published yet",
			})
			return
		}

		if q := r.URL.Query().Get("domain"); q != "" {
			v, ok := domain.ParseVertical(q)
			if !ok {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown domain " + q})
				return
			}
			p = filterDomain(p, v)
		}

		w.Header().Set("Cache-Control", "no-cache")
		writeJSON(w, http.StatusOK, p)
	}
}

func filterDomain(p *domain.Payload, v domain.Vertical) *domain.Payload {
	items := make([]domain.Item, 0, len(p.Items))
	for _, it := range p.Items {
		if it.Domain == v {
			items = append(items, it)
		}
	}
	out := *p
	out.Items = items
	out.LatestOfficialByDomain = make(map[domain.Vertical]time.Time, 1)
	if t, ok := p.LatestOfficialByDomain[v]; ok {
		out.LatestOfficialByDomain[v] = t
	}
	return &out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response
}
