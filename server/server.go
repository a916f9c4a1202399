// Package server exposes the OAuth2 authorization flow and the calendar
// refresh endpoint over HTTP.
package server

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/cyp0633/schedsync/callback"
	"github.com/cyp0633/schedsync/internal/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server routes requests to the orchestrator and the store behind it.
type Server struct {
	orchestrator *callback.Orchestrator
	health       func(context.Context) error
	logger       *slog.Logger
	router       chi.Router
}

// Option configures a Server.
type Option func(*Server)

// WithHealthCheck makes /healthz report 503 while check fails.
func WithHealthCheck(check func(context.Context) error) Option {
	return func(s *Server) { s.health = check }
}

// WithLogger sets the logger for handler failures.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// New builds the router.
func New(o *callback.Orchestrator, opts ...Option) *Server {
	s := &Server{orchestrator: o}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware())

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", metrics.Handler())

	r.Route("/oauth2/{service}", func(r chi.Router) {
		r.Get("/", s.handleAuthorize)
		r.Get("/callback", s.handleCallback)
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(s.appAuth("schedsync"))
		r.Post("/group", s.handleCreateGroup)
		r.Post("/integrations/{id}/calendars", s.handleCalendars)
	})

	return r
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.health(ctx); err != nil {
			s.logError(r, "health check failed", err)
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// logError records err with the request id; clients only see message.
func (s *Server) logError(r *http.Request, message string, err error) {
	s.logger.ErrorContext(r.Context(), message,
		"error", err,
		"request_id", middleware.GetReqID(r.Context()),
		"method", r.Method,
		"path", r.URL.Path)
}
