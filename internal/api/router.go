// Package api provides the HTTP API for Nocturna.
package api

import (
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/nocturna-project/nocturna/internal/anomaly"
	"github.com/nocturna-project/nocturna/internal/api/handler"
	"github.com/nocturna-project/nocturna/internal/api/middleware"
	"github.com/nocturna-project/nocturna/internal/auth"
	"github.com/nocturna-project/nocturna/internal/cache"
	"github.com/nocturna-project/nocturna/internal/correlation"
	"github.com/nocturna-project/nocturna/internal/impact"
	"github.com/nocturna-project/nocturna/internal/seasonal"
	"github.com/nocturna-project/nocturna/internal/trend"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Version     string
	BuildTime   string
	Logger      zerolog.Logger
	ServiceName string
	Metrics     *middleware.Metrics

	JWTService *auth.JWTService

	CorrelationService *correlation.Service
	TrendService       *trend.Service
	AnomalyService     *anomaly.Service
	SeasonalService    *seasonal.Service
	ImpactService      *impact.Service

	Cache       cache.Store
	ReadyChecks []handler.ReadyCheck
}

// NewRouter creates a new chi router with all API routes configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "nocturna-api"
	}

	// Global middleware - order matters
	r.Use(middleware.RequestID)            // Generate/propagate request ID first
	r.Use(middleware.Tracing(serviceName)) // Distributed tracing
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware()) // HTTP metrics
	}
	r.Use(middleware.Logger(cfg.Logger))   // Structured logging
	r.Use(middleware.Recovery(cfg.Logger)) // Panic recovery
	r.Use(chimiddleware.RealIP)            // Real IP extraction

	opsHandler := handler.NewOpsHandler(cfg.Version, cfg.BuildTime, cfg.ReadyChecks...)
	analyticsHandler := handler.NewAnalyticsHandler(
		cfg.CorrelationService, cfg.TrendService, cfg.AnomalyService, cfg.SeasonalService)
	impactHandler := handler.NewImpactHandler(cfg.ImpactService)
	adminHandler := handler.NewAdminHandler(cfg.Cache, cfg.Logger)

	adminAuth := middleware.AdminAuth(cfg.JWTService)

	adminRateLimit := middleware.RateLimitByIP(middleware.AdminRateLimit)         // 10 req/min
	expensiveRateLimit := middleware.RateLimitByIP(middleware.ExpensiveRateLimit) // 30 req/min
	standardRateLimit := middleware.RateLimitByIP(middleware.StandardRateLimit)   // 100 req/min

	r.Route("/v1", func(r chi.Router) {
		// Ops endpoints (public)
		r.Route("/ops", func(r chi.Router) {
			r.Get("/health", opsHandler.HealthCheck)
			r.Get("/ready", opsHandler.ReadinessCheck)
		})

		// Analytics endpoints - expensive compute gets strict rate limiting
		r.Route("/analytics", func(r chi.Router) {
			r.With(standardRateLimit).Get("/correlation", analyticsHandler.Correlation)
			r.With(expensiveRateLimit).Get("/trend", analyticsHandler.Trend)
			r.With(standardRateLimit).Get("/anomaly", analyticsHandler.Anomaly)
			r.With(expensiveRateLimit).Get("/seasonal", analyticsHandler.Seasonal)
			r.With(expensiveRateLimit).Get("/hotspots", analyticsHandler.Hotspots)
		})

		// Impact endpoints - standard rate limiting
		r.Route("/impact", func(r chi.Router) {
			r.Use(standardRateLimit)
			r.Get("/ecological", impactHandler.Ecological)
			r.Get("/energy", impactHandler.Energy)
		})

		// Admin endpoints (authenticated) - for internal operations
		r.Route("/admin", func(r chi.Router) {
			r.Use(adminAuth)
			r.Use(adminRateLimit)
			r.Post("/cache/invalidate", adminHandler.InvalidateCache)
		})
	})

	return r
}
