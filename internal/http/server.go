// Package http exposes the pipeline over a JSON API. The transport stays
// thin: handlers decode the request, call the service, and encode the result.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"bilancio/internal/pipeline"
)

type Server struct {
	http.Server
	svc          *pipeline.Service
	rateLimiter  *rateLimiter
	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, svc *pipeline.Service) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		svc:         svc,
		rateLimiter: newRateLimiter(60, time.Minute),
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)

	mux.HandleFunc("POST /reload", s.withMiddleware(s.handleReload))
	mux.HandleFunc("GET /transactions", s.withMiddleware(s.handleListTransactions))
	mux.HandleFunc("GET /subscriptions", s.withMiddleware(s.handleListSubscriptions))
	mux.HandleFunc("GET /insights", s.withMiddleware(s.handleListInsights))
	mux.HandleFunc("GET /contributions/prorated", s.withMiddleware(s.handleProratedContributions))

	mux.HandleFunc("GET /overrides", s.withMiddleware(s.handleListOverrides))
	mux.HandleFunc("POST /overrides", s.withMiddleware(s.handleAddOverride))
	mux.HandleFunc("DELETE /overrides/{id}", s.withMiddleware(s.handleRemoveOverride))

	mux.HandleFunc("GET /keywords", s.withMiddleware(s.handleListKeywords))
	mux.HandleFunc("POST /keywords", s.withMiddleware(s.handleAddKeyword))
	mux.HandleFunc("DELETE /keywords/{id}", s.withMiddleware(s.handleRemoveKeyword))

	mux.HandleFunc("GET /contributions", s.withMiddleware(s.handleListContributions))
	mux.HandleFunc("POST /contributions", s.withMiddleware(s.handleAddContribution))
	mux.HandleFunc("DELETE /contributions/{id}", s.withMiddleware(s.handleRemoveContribution))

	return s
}

// Shutdown stops the listener and the rate limiter cleanup goroutine.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if s.rateLimiter != nil {
			s.rateLimiter.shutdown()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
