// Package server provides the HTTP server and routing for the frontier
// service.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	appconfig "github.com/aristath/frontier/internal/config"
	"github.com/aristath/frontier/internal/modules/charts"
	"github.com/aristath/frontier/internal/modules/history"
	"github.com/aristath/frontier/internal/modules/results"
	"github.com/aristath/frontier/internal/modules/runs"
)

// Config holds server configuration
type Config struct {
	Log        zerolog.Logger
	AppConfig  *appconfig.Config
	RunService *runs.Service
	History    *history.Repository
	Results    *results.Repository
	Charts     *charts.Service
}

// Server represents the HTTP server
type Server struct {
	router *chi.Mux
	server *http.Server
	log    zerolog.Logger
}

// New creates a new HTTP server with all routes registered.
func New(cfg Config) *Server {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	h := newHandler(cfg)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.handleHealth)

		r.Post("/prices", h.handleIngestPrices)
		r.Get("/tickers", h.handleListTickers)

		r.Post("/runs", h.handleCreateRun)
		r.Route("/runs/{id}", func(r chi.Router) {
			r.Get("/", h.handleGetRun)
			r.Get("/trials", h.handleGetTrials)
			r.Get("/frontier", h.handleGetFrontier)
			r.Get("/frontier.png", h.handleGetFrontierChart)
			r.Get("/optimal", h.handleGetOptimal)
		})
	})

	return &Server{
		router: r,
		server: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.AppConfig.Port),
			Handler:      r,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 5 * time.Minute, // runs can take a while
		},
		log: cfg.Log.With().Str("component", "server").Logger(),
	}
}

// Router exposes the mux, mainly for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// Start begins listening for HTTP requests. Blocks until shutdown.
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.server.Addr).Msg("HTTP server listening")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server failed: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}
