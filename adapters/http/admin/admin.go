// Package admin provides the admin and observability HTTP endpoint.
package admin

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/artpar/datagate/ports"
	"github.com/artpar/datagate/registry"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Server provides admin API endpoints.
type Server struct {
	registry *registry.Registry
	calls    ports.CallStore
	gatherer prometheus.Gatherer
	logger   zerolog.Logger
	version  string
	started  time.Time
}

// Deps contains dependencies for the admin server.
type Deps struct {
	Registry *registry.Registry
	Calls    ports.CallStore     // nil disables the call endpoints
	Gatherer prometheus.Gatherer // nil falls back to the default gatherer
	Logger   zerolog.Logger
	Version  string
}

// NewServer creates a new admin server.
func NewServer(deps Deps) *Server {
	gatherer := deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	return &Server{
		registry: deps.Registry,
		calls:    deps.Calls,
		gatherer: gatherer,
		logger:   deps.Logger,
		version:  deps.Version,
		started:  time.Now(),
	}
}

// Router returns the admin API router.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()

	r.Get("/healthz", s.Healthz)
	r.Method("GET", "/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	r.Route("/v1", func(r chi.Router) {
		r.Get("/resources", s.ListResources)
		r.Get("/resources/{id}", s.GetResource)
		r.Get("/calls/recent", s.RecentCalls)
		r.Get("/calls/summary", s.CallSummary)
	})

	return r
}

// Healthz reports process liveness.
func (s *Server) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"version":        s.version,
		"uptime_seconds": int64(time.Since(s.started).Seconds()),
		"resources":      s.registry.Len(),
	})
}

// ResourceInfo describes one registered resource.
type ResourceInfo struct {
	ID         string   `json:"id"`
	Domain     string   `json:"domain"`
	Name       string   `json:"name"`
	Operations []string `json:"operations"`
}

// ListResources returns all registered resources.
func (s *Server) ListResources(w http.ResponseWriter, r *http.Request) {
	handlers := s.registry.List()

	resources := make([]ResourceInfo, 0, len(handlers))
	for _, h := range handlers {
		resources = append(resources, ResourceInfo{
			ID:         h.ID(),
			Domain:     h.Domain(),
			Name:       h.Name(),
			Operations: h.Supports(),
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{"resources": resources})
}

// GetResource returns a single registered resource by "domain:name" id.
func (s *Server) GetResource(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	h, ok := s.registry.ByID(id)
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", "No resource registered under "+id)
		return
	}

	writeJSON(w, http.StatusOK, ResourceInfo{
		ID:         h.ID(),
		Domain:     h.Domain(),
		Name:       h.Name(),
		Operations: h.Supports(),
	})
}

// RecentCalls returns the latest call events.
func (s *Server) RecentCalls(w http.ResponseWriter, r *http.Request) {
	if s.calls == nil {
		writeError(w, http.StatusServiceUnavailable, "store_unavailable", "Call store is not configured")
		return
	}

	resource := r.URL.Query().Get("resource")
	limit := parseIntQuery(r, "limit", 50)

	events, err := s.calls.GetRecent(r.Context(), resource, limit)
	if err != nil {
		s.logger.Error().Err(err).Msg("query recent calls")
		writeError(w, http.StatusInternalServerError, "store_error", "Failed to query call events")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"events": events})
}

// CallSummary returns aggregated call activity for a resource.
func (s *Server) CallSummary(w http.ResponseWriter, r *http.Request) {
	if s.calls == nil {
		writeError(w, http.StatusServiceUnavailable, "store_unavailable", "Call store is not configured")
		return
	}

	resource := r.URL.Query().Get("resource")
	if resource == "" {
		writeError(w, http.StatusBadRequest, "missing_resource", "Query parameter 'resource' is required")
		return
	}

	now := time.Now().UTC()
	start, end, err := parsePeriod(r, now)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_period", err.Error())
		return
	}

	summary, err := s.calls.GetSummary(r.Context(), resource, start, end)
	if err != nil {
		s.logger.Error().Err(err).Msg("query call summary")
		writeError(w, http.StatusInternalServerError, "store_error", "Failed to query call summary")
		return
	}

	writeJSON(w, http.StatusOK, summary)
}

// parsePeriod resolves the start/end pair from explicit RFC3339 bounds
// or a named period (day, week, month). Default is the last day.
func parsePeriod(r *http.Request, now time.Time) (time.Time, time.Time, error) {
	startStr := r.URL.Query().Get("start")
	endStr := r.URL.Query().Get("end")

	if startStr != "" && endStr != "" {
		start, err := time.Parse(time.RFC3339, startStr)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		end, err := time.Parse(time.RFC3339, endStr)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		return start, end, nil
	}

	switch r.URL.Query().Get("period") {
	case "", "day":
		return now.AddDate(0, 0, -1), now, nil
	case "week":
		return now.AddDate(0, 0, -7), now, nil
	case "month":
		return now.AddDate(0, -1, 0), now, nil
	default:
		return now.AddDate(0, 0, -1), now, nil
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
	})
}

func parseIntQuery(r *http.Request, name string, defaultVal int) int {
	s := r.URL.Query().Get(name)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil || v <= 0 {
		return defaultVal
	}
	return v
}
