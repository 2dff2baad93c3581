package api

import (
	"log/slog"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/iconidentify/groupgrab/internal/api/handler"
	mw "github.com/iconidentify/groupgrab/internal/api/middleware"
)

// NewRouter creates the HTTP router with all routes configured.
func NewRouter(
	eventHandler *handler.EventHandler,
	linksHandler *handler.LinksHandler,
	activityHandler *handler.ActivityHandler,
	healthHandler *handler.HealthHandler,
	apiKey string,
	logger *slog.Logger,
) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.CleanPath) // Normalize paths (e.g., //ready -> /ready)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(mw.Logger(logger))
	r.Use(mw.Recovery(logger))
	r.Use(middleware.Timeout(15 * time.Minute))

	// Health endpoints (no auth)
	r.Get("/health", healthHandler.Live)
	r.Get("/ready", healthHandler.Ready)

	// API v1 (authenticated)
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(mw.APIKeyAuth(apiKey))

		r.Get("/stats", healthHandler.Stats)

		// Chat bridge webhook
		r.Post("/events", eventHandler.Submit)

		r.Get("/links", linksHandler.List)
		r.Get("/links/check", linksHandler.Check)

		// Recently processed URLs, newest first
		r.Get("/activity", activityHandler.Recent)
	})

	return r
}
