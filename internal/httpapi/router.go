// Package httpapi exposes the sync engine to the dashboard application:
// per-type status, manual sync triggers, conflict resolution, audit log
// queries and configuration export.
package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/launchpress/contentsync/internal/auth"
	"github.com/launchpress/contentsync/internal/engine"
	"github.com/launchpress/contentsync/internal/store"
)

// Server holds dependencies for HTTP handlers
type Server struct {
	Engine   *engine.Orchestrator
	Resolver *engine.Resolver
	Audit    store.AuditLog
}

// errorResp is the uniform error body.
type errorResp struct {
	Error string `json:"error"`
}

// writeJSON writes a JSON response with the given status code
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode json response")
	}
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, errorResp{Error: msg})
}

// parseLimit parses a limit query param with default and max
func parseLimit(q string, def, max int) int {
	if q == "" {
		return def
	}
	n, err := strconv.Atoi(q)
	if err != nil || n <= 0 {
		return def
	}
	if n > max {
		return max
	}
	return n
}

// Routes creates the HTTP router with all engine endpoints
func (s *Server) Routes(jwt auth.JWTCfg) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(CorrelationMiddleware)

	// Health check (unauthenticated)
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(200)
		w.Write([]byte("ok"))
	})

	// All engine endpoints require authentication
	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(jwt))

		r.Get("/v1/sync/status", s.GetStatuses)
		r.Post("/v1/sync/run", s.RunFullSync)
		r.Post("/v1/sync/{type}/run", s.RunTypeSync)
		r.Post("/v1/sync/items/{type}/{id}", s.ForceItemSync)

		r.Get("/v1/sync/conflicts", s.ListConflicts)
		r.Post("/v1/sync/conflicts/{id}/resolve", s.ResolveConflict)

		r.Get("/v1/sync/logs", s.GetLogs)
		r.Get("/v1/sync/config", s.ExportConfig)

		r.Post("/v1/sync/auto/start", s.StartAutoSync)
		r.Post("/v1/sync/auto/stop", s.StopAutoSync)
	})

	log.Info().Msg("HTTP routes registered")
	return r
}
