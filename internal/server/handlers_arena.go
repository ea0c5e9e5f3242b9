package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/claude/gymbro/internal/storage"
)

const maxRivalBodyBytes = 1 << 10

func (s *Server) handleArenaRivals(w http.ResponseWriter, r *http.Request) {
	arena, err := storage.BuildArena(r.Context(), s.db, userIDFromContext(r))
	if err != nil {
		s.log.Error("loading arena", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, arena)
}

// normalizeUsername strips surrounding blanks and one leading "@".
func normalizeUsername(v string) string {
	return strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(v), "@"))
}

func (s *Server) handleArenaSearch(w http.ResponseWriter, r *http.Request) {
	q := normalizeUsername(r.URL.Query().Get("username"))
	if q == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "username is required"})
		return
	}

	users, err := s.db.SearchUsers(r.Context(), userIDFromContext(r), q)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if users == nil {
		users = []storage.UserProfile{}
	}
	writeJSON(w, http.StatusOK, users)
}

type addRivalRequest struct {
	RivalID int `json:"rival_id"`
}

func (s *Server) handleAddRival(w http.ResponseWriter, r *http.Request) {
	var req addRivalRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, maxRivalBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	if req.RivalID <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "rival_id must be a positive user ID"})
		return
	}

	err := s.db.AddRival(r.Context(), userIDFromContext(r), req.RivalID)
	switch {
	case errors.Is(err, storage.ErrSelfRival):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, storage.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "user not found"})
	case err != nil:
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}
