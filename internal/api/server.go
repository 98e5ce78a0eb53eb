package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/opensource-finance/claimcast/internal/domain"
)

// Server represents the HTTP API server.
type Server struct {
	router  *chi.Mux
	handler *Handler
	server  *http.Server
	config  domain.ServerConfig
}

// NewServer creates a new API server.
func NewServer(cfg domain.ServerConfig, deps Dependencies) *Server {
	handler := NewHandler(deps)
	router := chi.NewRouter()

	// Global middleware stack
	router.Use(CORSMiddleware)
	router.Use(RecoverMiddleware)
	router.Use(TracingMiddleware)
	router.Use(LoggingMiddleware)
	router.Use(middleware.RealIP)
	router.Use(middleware.Compress(5))

	// Health endpoints (no tenant required)
	router.Get("/health", handler.Health)
	router.Get("/ready", handler.Ready)

	router.Group(func(r chi.Router) {
		r.Use(TenantMiddleware)
		if cfg.RateLimit > 0 {
			r.Use(NewRateLimiter(cfg.RateLimit, cfg.RateBurst).Middleware)
		}

		// Forecasting
		r.Post("/forecast", handler.Forecast)
		r.Post("/forecast/batch", handler.ForecastBatch)
		r.Get("/forecasts/{id}", handler.GetForecast)

		// Stored customer history
		r.Route("/customers/{id}", func(r chi.Router) {
			r.Get("/history", handler.GetHistory)
			r.Put("/history", handler.PutHistory)
			r.Post("/forecast", handler.CustomerForecast)
			r.Get("/forecasts", handler.ListCustomerForecasts)
		})

		// Tenant thresholds
		r.Get("/thresholds", handler.GetThresholds)
		r.Put("/thresholds", handler.PutThresholds)

		// Rule management
		r.Get("/rules", handler.ListRules)
		r.Get("/rules/{id}", handler.GetRule)
		r.Post("/rules", handler.CreateRule)
		r.Post("/rules/reload", handler.ReloadRules)

		// Guideline management
		r.Get("/guidelines", handler.ListGuidelines)
		r.Get("/guidelines/{id}", handler.GetGuideline)
		r.Post("/guidelines", handler.CreateGuideline)
		r.Put("/guidelines/{id}", handler.UpdateGuideline)
		r.Delete("/guidelines/{id}", handler.DeleteGuideline)
		r.Post("/guidelines/reload", handler.ReloadGuidelines)
	})

	return &Server{
		router:  router,
		handler: handler,
		config:  cfg,
	}
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  time.Duration(s.config.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(s.config.WriteTimeout) * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the Chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Handler returns the handler for testing.
func (s *Server) Handler() *Handler {
	return s.handler
}
