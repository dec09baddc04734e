package httpapi

import (
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/launchpress/contentsync/internal/domain"
	"github.com/launchpress/contentsync/internal/store"
)

// GetLogs handles GET /v1/sync/logs?type=&status=&limit=
// Entries come back newest-first, bounded by the audit log's retention.
func (s *Server) GetLogs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	f := store.LogFilter{
		Type:   domain.ItemType(q.Get("type")),
		Status: domain.LogStatus(q.Get("status")),
		Limit:  parseLimit(q.Get("limit"), 100, store.MaxLogEntries),
	}
	if f.Type != "" && !f.Type.Valid() {
		writeError(w, http.StatusBadRequest, "unknown type filter")
		return
	}

	entries, err := s.Audit.Query(r.Context(), f)
	if err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("failed to query audit log")
		writeError(w, http.StatusInternalServerError, "failed to query logs")
		return
	}
	writeJSON(w, http.StatusOK, entries)
}
