package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/launchpress/contentsync/internal/domain"
)

// GetStatuses handles GET /v1/sync/status
func (s *Server) GetStatuses(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Engine.Statuses())
}

// RunFullSync handles POST /v1/sync/run. It runs synchronously so the
// dashboard gets the per-type results in one round trip.
func (s *Server) RunFullSync(w http.ResponseWriter, r *http.Request) {
	res := s.Engine.PerformFullSync(r.Context())
	writeJSON(w, http.StatusOK, res)
}

// RunTypeSync handles POST /v1/sync/{type}/run
func (s *Server) RunTypeSync(w http.ResponseWriter, r *http.Request) {
	typ := domain.ItemType(chi.URLParam(r, "type"))

	res, err := s.Engine.SyncByType(r.Context(), typ)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrUnknownType):
			writeError(w, http.StatusNotFound, err.Error())
		case errors.Is(err, domain.ErrSyncInProgress):
			writeError(w, http.StatusConflict, err.Error())
		default:
			log.Ctx(r.Context()).Error().Err(err).Str("type", string(typ)).Msg("type sync failed")
			writeError(w, http.StatusInternalServerError, "sync failed")
		}
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type forceSyncReq struct {
	Direction domain.Direction `json:"direction"`
}

// ForceItemSync handles POST /v1/sync/items/{type}/{id}
func (s *Server) ForceItemSync(w http.ResponseWriter, r *http.Request) {
	typ := domain.ItemType(chi.URLParam(r, "type"))
	itemID := chi.URLParam(r, "id")

	var req forceSyncReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.Direction == "" {
		req.Direction = domain.DirectionBidirectional
	}

	if err := s.Engine.ForceSyncItem(r.Context(), typ, itemID, req.Direction); err != nil {
		switch {
		case errors.Is(err, domain.ErrUnknownType), errors.Is(err, domain.ErrItemNotFound):
			writeError(w, http.StatusNotFound, err.Error())
		case errors.Is(err, domain.ErrUnknownDirection):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			log.Ctx(r.Context()).Error().Err(err).Str("type", string(typ)).
				Str("item_id", itemID).Msg("force sync failed")
			writeError(w, http.StatusBadGateway, err.Error())
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// ExportConfig handles GET /v1/sync/config
func (s *Server) ExportConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := s.Engine.ExportConfig(r.Context())
	if err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("config export failed")
		writeError(w, http.StatusInternalServerError, "export failed")
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

type autoSyncReq struct {
	IntervalMinutes int `json:"intervalMinutes"`
}

// StartAutoSync handles POST /v1/sync/auto/start
func (s *Server) StartAutoSync(w http.ResponseWriter, r *http.Request) {
	var req autoSyncReq
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid json")
			return
		}
	}

	s.Engine.StartAutoSync(time.Duration(req.IntervalMinutes) * time.Minute)
	writeJSON(w, http.StatusOK, map[string]any{"running": true})
}

// StopAutoSync handles POST /v1/sync/auto/stop
func (s *Server) StopAutoSync(w http.ResponseWriter, r *http.Request) {
	s.Engine.StopAutoSync()
	writeJSON(w, http.StatusOK, map[string]any{"running": false})
}
