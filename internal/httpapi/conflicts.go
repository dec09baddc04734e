package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/launchpress/contentsync/internal/domain"
)

// ListConflicts handles GET /v1/sync/conflicts?resolved=true|false
func (s *Server) ListConflicts(w http.ResponseWriter, r *http.Request) {
	var resolved *bool
	if q := r.URL.Query().Get("resolved"); q != "" {
		b, err := strconv.ParseBool(q)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid resolved filter")
			return
		}
		resolved = &b
	}

	conflicts, err := s.Resolver.Conflicts(r.Context(), resolved)
	if err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("failed to list conflicts")
		writeError(w, http.StatusInternalServerError, "failed to list conflicts")
		return
	}
	writeJSON(w, http.StatusOK, conflicts)
}

type resolveReq struct {
	Resolution domain.Resolution `json:"resolution"`
}

// ResolveConflict handles POST /v1/sync/conflicts/{id}/resolve
func (s *Server) ResolveConflict(w http.ResponseWriter, r *http.Request) {
	conflictID := chi.URLParam(r, "id")

	var req resolveReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	switch req.Resolution {
	case domain.ResolutionLocal, domain.ResolutionRemote, domain.ResolutionMerge:
	default:
		writeError(w, http.StatusBadRequest, "resolution must be local, remote or merge")
		return
	}

	if err := s.Resolver.Resolve(r.Context(), conflictID, req.Resolution); err != nil {
		switch {
		case errors.Is(err, domain.ErrConflictNotFound):
			writeError(w, http.StatusNotFound, err.Error())
		case errors.Is(err, domain.ErrAlreadyResolved):
			writeError(w, http.StatusConflict, err.Error())
		default:
			// Write-back failed; the conflict stays open and retryable.
			log.Ctx(r.Context()).Error().Err(err).Str("conflict_id", conflictID).
				Msg("conflict resolution failed")
			writeError(w, http.StatusBadGateway, err.Error())
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"resolution": req.Resolution,
	})
}
