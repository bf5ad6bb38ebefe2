// Package api serves the JSON HTTP interface: querying the assistant,
// browsing the course catalog, and managing conversation sessions.
package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/lectern/lectern/internal/course"
	"github.com/lectern/lectern/internal/log"
	"github.com/lectern/lectern/internal/session"
)

// Assistant is the slice of the application facade the server needs.
// *rag.System satisfies it.
type Assistant interface {
	Query(ctx context.Context, text, sessionID string) (string, []course.Source, error)
	Analytics(ctx context.Context) (int, []string, error)
	Sessions() *session.Store
}

// ServerConfig configures the API server.
type ServerConfig struct {
	Assistant Assistant  // Required
	Logger    log.Logger // nil = no-op logger
	RateBurst int        // Rate limiter burst per IP (0 = default 60)
}

// Server is the JSON API HTTP server.
type Server struct {
	handler http.Handler
}

// NewServer creates an API server with all routes configured.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Assistant == nil {
		return nil, errors.New("assistant is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNop()
	}

	qh := &queryHandler{assistant: cfg.Assistant, logger: logger}
	ch := &coursesHandler{assistant: cfg.Assistant, logger: logger}
	sh := &sessionHandler{sessions: cfg.Assistant.Sessions(), logger: logger}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/query", qh.query)
	mux.HandleFunc("GET /api/courses", ch.list)
	mux.HandleFunc("POST /api/sessions", sh.create)
	mux.HandleFunc("DELETE /api/sessions/{id}", sh.clear)

	burst := cfg.RateBurst
	if burst <= 0 {
		burst = 60
	}
	rl := newRateLimiter(1.0, burst)

	// Middleware stack, outermost first: Recovery → Logging → RateLimit.
	var handler http.Handler = mux
	handler = rateLimitMiddleware(rl, logger)(handler)
	handler = loggingMiddleware(logger)(handler)
	handler = recoveryMiddleware(logger)(handler)

	// Health stays outside the middleware stack so probes are never
	// rate limited.
	topMux := http.NewServeMux()
	topMux.HandleFunc("GET /health", health)
	topMux.Handle("/", handler)

	return &Server{handler: topMux}, nil
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}
