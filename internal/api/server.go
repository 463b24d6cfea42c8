// Package api is the JSON HTTP surface of sabio.
//
// Routes:
//   - POST /ask       — RAG pipeline (search + LLM answer + sources)
//   - POST /kb-ask    — knowledge box's own generative answer + sources
//   - GET  /download/{resource_id}/{file_id} — streaming file proxy
//   - GET  /health, /ready — probes, outside the middleware stack
package api

import (
	"errors"
	"net/http"

	"github.com/sabio-ai/sabio/internal/kb"
	"github.com/sabio-ai/sabio/internal/log"
)

// ServerConfig contains configuration for creating the API server.
type ServerConfig struct {
	Logger      log.Logger
	Agent       askAgent       // required
	KB          *kb.Client     // required
	Model       string         // echoed in /ask responses
	KBID        string         // echoed in responses
	CORSOrigins []string       // allowed origins for CORS
	TrustProxy  bool           // trust X-Real-IP/X-Forwarded-For
	RateBurst   int            // rate limiter burst per IP (0 = default 60)
	IsDev       bool           // disables HSTS
}

// Server is the JSON API HTTP server.
type Server struct {
	mux *http.ServeMux
}

// NewServer creates a new API server with all routes configured.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Agent == nil {
		return nil, errors.New("agent is required")
	}
	if cfg.KB == nil {
		return nil, errors.New("knowledge-box client is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNop()
	}

	ah := &askHandler{
		agent:  cfg.Agent,
		kb:     cfg.KB,
		model:  cfg.Model,
		kbID:   cfg.KBID,
		logger: logger,
	}
	dh := &downloadHandler{kb: cfg.KB, logger: logger}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /ask", ah.ask)
	mux.HandleFunc("POST /kb-ask", ah.kbAsk)
	mux.HandleFunc("GET /download/{resource_id}/{file_id}", dh.download)

	burst := cfg.RateBurst
	if burst <= 0 {
		burst = 60
	}
	rl := newRateLimiter(1.0, burst)

	// Middleware stack (outermost first):
	//   Recovery → RequestID → Logging → CORS → RateLimit → Routes
	// RequestID before Logging so request_id appears in log attributes;
	// CORS before RateLimit so preflight OPTIONS gets proper headers.
	var handler http.Handler = mux
	handler = rateLimitMiddleware(rl, cfg.TrustProxy, logger)(handler)
	handler = corsMiddleware(cfg.CORSOrigins)(handler)
	handler = loggingMiddleware(logger)(handler)
	handler = requestIDMiddleware()(handler)
	handler = recoveryMiddleware(logger)(handler)

	isDev := cfg.IsDev
	final := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		setSecurityHeaders(w, isDev)
		handler.ServeHTTP(w, r)
	})

	// Health probes bypass the middleware stack.
	topMux := http.NewServeMux()
	topMux.HandleFunc("GET /health", health(logger))
	topMux.HandleFunc("GET /ready", readiness(logger))
	topMux.Handle("/", final)

	return &Server{mux: topMux}, nil
}

// Handler returns the server as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}
