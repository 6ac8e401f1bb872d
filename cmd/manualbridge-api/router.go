// Package main provides the API router setup.
package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/manualbridge/manualbridge/cmd/manualbridge-api/handlers"
	"github.com/manualbridge/manualbridge/cmd/manualbridge-api/middleware"
	"github.com/manualbridge/manualbridge/internal/answer"
	"github.com/manualbridge/manualbridge/internal/config"
	"github.com/manualbridge/manualbridge/internal/ingest"
	"github.com/manualbridge/manualbridge/internal/observability"
)

// Services holds the wired application services the router exposes.
type Services struct {
	Pipeline *ingest.Pipeline
	Answer   *answer.Service
}

// NewRouter creates the main API router with all routes configured.
func NewRouter(logger *observability.Logger, cfg *config.Config, services Services) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS([]string{"*"}))
	r.Use(chimiddleware.Timeout(cfg.Server.RequestTimeout))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"healthy","service":"manualbridge"}`))
	})

	r.Get("/ready", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ready"}`))
	})

	ingestionHandler := handlers.NewIngestionHandler(logger, services.Pipeline)
	qaHandler := handlers.NewQAHandler(logger, services.Answer)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/ingest", ingestionHandler.Ingest)
		r.Get("/documents", ingestionHandler.Documents)
		r.Post("/ask", qaHandler.Ask)
		r.Post("/ask/stream", qaHandler.AskStream)
	})

	return r
}
