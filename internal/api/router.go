package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)

	// API v1 routes (all read-only, no auth required)
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/metrics", s.handleMetrics)
		r.Get("/registry", s.handleRegistry)
	})

	// Unknown routes get the structured error shape too.
	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		writeError(w, http.StatusNotFound, ErrCodeNotFound, "no such resource: "+req.URL.Path)
	})

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
		"devices": s.bridge.DeviceCount(),
	})
}

// RegistrySummary reports what the bridge currently knows about the hub.
type RegistrySummary struct {
	Devices   int    `json:"devices"`
	Entities  int    `json:"entities"`
	States    int    `json:"states"`
	Areas     int    `json:"areas"`
	Labels    int    `json:"labels"`
	LastSync  string `json:"last_sync"`
	Exposed   int    `json:"exposed_devices"`
	HubOnline bool   `json:"hub_online"`
}

// handleRegistry returns a summary of the cached hub registries.
func (s *Server) handleRegistry(w http.ResponseWriter, _ *http.Request) {
	reg := s.bridge.Registry()
	devices, entities, states, areas, labels := reg.Counts()
	stats := s.bridge.Stats()

	writeJSON(w, http.StatusOK, RegistrySummary{
		Devices:   devices,
		Entities:  entities,
		States:    states,
		Areas:     areas,
		Labels:    labels,
		LastSync:  reg.LastSync().UTC().Format("2006-01-02T15:04:05Z07:00"),
		Exposed:   s.bridge.DeviceCount(),
		HubOnline: stats.HubConnected,
	})
}
