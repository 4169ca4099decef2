package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/deye-ha-bridge/internal/entity"
)

// handleListEntities returns all announced entities, optionally filtered by
// Home Assistant component type via ?component=sensor.
func (s *Server) handleListEntities(w http.ResponseWriter, r *http.Request) {
	component := r.URL.Query().Get("component")

	records, err := s.store.ListAnnouncements(r.Context(), component)
	if err != nil {
		s.logger.Error("failed to list entities", "error", err)
		writeInternalError(w, "failed to list entities")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"entities": records,
		"count":    len(records),
	})
}

// handleGetEntity returns one announced entity by unique id.
func (s *Server) handleGetEntity(w http.ResponseWriter, r *http.Request) {
	uniqueID := chi.URLParam(r, "uniqueID")

	record, err := s.store.GetAnnouncement(r.Context(), uniqueID)
	if err != nil {
		if errors.Is(err, entity.ErrNotFound) {
			writeNotFound(w, "entity not found: "+uniqueID)
			return
		}
		s.logger.Error("failed to get entity", "unique_id", uniqueID, "error", err)
		writeInternalError(w, "failed to get entity")
		return
	}

	writeJSON(w, http.StatusOK, record)
}

// handleEntityHistory returns recent observations for an entity, newest
// first. The ?limit= parameter caps the number of rows; the store applies
// its own default and maximum.
func (s *Server) handleEntityHistory(w http.ResponseWriter, r *http.Request) {
	uniqueID := chi.URLParam(r, "uniqueID")

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeBadRequest(w, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	// Distinguish "never announced" from "announced but quiet".
	if _, err := s.store.GetAnnouncement(r.Context(), uniqueID); err != nil {
		if errors.Is(err, entity.ErrNotFound) {
			writeNotFound(w, "entity not found: "+uniqueID)
			return
		}
		s.logger.Error("failed to get entity", "unique_id", uniqueID, "error", err)
		writeInternalError(w, "failed to get entity")
		return
	}

	history, err := s.store.GetHistory(r.Context(), uniqueID, limit)
	if err != nil {
		s.logger.Error("failed to get entity history", "unique_id", uniqueID, "error", err)
		writeInternalError(w, "failed to get entity history")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"unique_id": uniqueID,
		"history":   history,
		"count":     len(history),
	})
}
