// Package router provides HTTP routing configuration using Chi.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cksdxz1007/cloudflare-cert/internal/api/handler"
	"github.com/cksdxz1007/cloudflare-cert/internal/api/middleware"
	"github.com/cksdxz1007/cloudflare-cert/internal/config"
)

// Config holds router configuration.
type Config struct {
	Version    string
	ConfigPath string
	Cfg        *config.Config
}

// New creates a new Chi router with all routes configured.
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health endpoints
	healthHandler := handler.NewHealthHandler(cfg.Version, cfg.ConfigPath)
	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)

	// Read-only status API
	domainHandler := handler.NewDomainHandler(cfg.Cfg)
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/domains", func(r chi.Router) {
			r.Get("/", domainHandler.List)
			r.Get("/{domain}", domainHandler.Get)
		})
	})

	return r
}
