package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/lectern/lectern/internal/course"
	"github.com/lectern/lectern/internal/log"
)

// maxQueryBytes bounds the request body to keep hostile payloads out of the
// JSON decoder.
const maxQueryBytes = 64 * 1024

type queryHandler struct {
	assistant Assistant
	logger    log.Logger
}

// QueryRequest is the POST /api/query body.
type QueryRequest struct {
	Query     string `json:"query"`
	SessionID string `json:"session_id,omitempty"`
}

// QueryResponse is the POST /api/query reply.
type QueryResponse struct {
	Answer    string          `json:"answer"`
	Sources   []course.Source `json:"sources"`
	SessionID string          `json:"session_id"`
}

// query answers a question. A request without a session id gets a new
// session so the client can continue the conversation.
func (h *queryHandler) query(w http.ResponseWriter, r *http.Request) {
	var req QueryRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxQueryBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "invalid JSON body", h.logger)
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeError(w, http.StatusBadRequest, "missing_query", "query is required", h.logger)
		return
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = h.assistant.Sessions().Create()
	}

	answer, sources, err := h.assistant.Query(r.Context(), req.Query, sessionID)
	if err != nil {
		h.logger.Error("query failed", "error", err)
		writeError(w, http.StatusInternalServerError, "query_failed", "failed to generate an answer", h.logger)
		return
	}

	if sources == nil {
		sources = []course.Source{}
	}
	writeJSON(w, http.StatusOK, QueryResponse{
		Answer:    answer,
		Sources:   sources,
		SessionID: sessionID,
	}, h.logger)
}
