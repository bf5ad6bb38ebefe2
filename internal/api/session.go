package api

import (
	"net/http"

	"github.com/lectern/lectern/internal/log"
	"github.com/lectern/lectern/internal/session"
)

type sessionHandler struct {
	sessions *session.Store
	logger   log.Logger
}

// SessionResponse is the POST /api/sessions reply.
type SessionResponse struct {
	SessionID string `json:"session_id"`
}

func (h *sessionHandler) create(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusCreated, SessionResponse{SessionID: h.sessions.Create()}, h.logger)
}

func (h *sessionHandler) clear(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing_id", "session ID required", h.logger)
		return
	}
	h.sessions.Clear(id)
	w.WriteHeader(http.StatusNoContent)
}
