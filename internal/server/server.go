// Package server is the HTTP transport: the chi mux, its middleware
// chain, and the adapter that maps wire requests onto pipeline runs.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Options configures the transport.
type Options struct {
	Bind string
	Port int
	// RequestTimeout bounds each request's context. Zero disables it.
	RequestTimeout time.Duration
}

// Server owns the listener lifecycle around the handler.
type Server struct {
	Router *chi.Mux
	opts   Options
	logger *slog.Logger
	http   *http.Server
}

// New builds the middleware chain and mounts the pipeline handler as the
// catch-all; route resolution belongs to the pipeline router, not chi.
func New(opts Options, handler http.Handler, logger *slog.Logger) *Server {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(logger))
	if opts.RequestTimeout > 0 {
		r.Use(TimeoutMiddleware(opts.RequestTimeout))
	}
	r.Use(middleware.Recoverer)
	r.Use(func(next http.Handler) http.Handler {
		return otelhttp.NewHandler(next, "oxweb")
	})

	r.Handle("/*", handler)

	return &Server{
		Router: r,
		opts:   opts,
		logger: logger,
	}
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return fmt.Sprintf("%s:%d", s.opts.Bind, s.opts.Port)
}

// Start listens and serves until Shutdown or a listener error.
func (s *Server) Start() error {
	s.http = &http.Server{
		Addr:    s.Addr(),
		Handler: s.Router,
	}
	s.logger.Info("starting server", slog.String("addr", s.Addr()))
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests and stops the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	s.logger.Info("shutting down server")
	return s.http.Shutdown(ctx)
}
