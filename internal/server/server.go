// Package server exposes the engine over HTTP: spreadsheet uploads, filter
// discovery and the two report families.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/gyeh/lossreport/internal/engine"
)

const defaultMaxUpload = 32 << 20

// Options configures a Server.
type Options struct {
	MaxUploadBytes int64
	Metrics        *Metrics
}

// Server is the HTTP transport over one engine.
type Server struct {
	eng       *engine.Engine
	log       zerolog.Logger
	metrics   *Metrics
	validate  *validator.Validate
	maxUpload int64
}

// New returns a server over eng. A nil Metrics gets a private registry.
func New(eng *engine.Engine, log zerolog.Logger, opts Options) *Server {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = defaultMaxUpload
	}
	if opts.Metrics == nil {
		opts.Metrics = NewMetrics()
	}
	return &Server{
		eng:       eng,
		log:       log.With().Str("component", "http").Logger(),
		metrics:   opts.Metrics,
		validate:  validator.New(),
		maxUpload: opts.MaxUploadBytes,
	}
}

// Metrics returns the server's collectors.
func (s *Server) Metrics() *Metrics {
	return s.metrics
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.log))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.health)
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	r.Group(func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))
		r.Post("/upload/{feed}", s.upload)
		r.Get("/filters", s.filters)
		r.Get("/report/primas", s.trend)
		r.Get("/report/gastos", s.distribution)
	})
	return r
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", addr).Msg("listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	s.log.Info().Msg("server stopped")
	return nil
}
