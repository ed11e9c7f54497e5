// Package server exposes the engine's HTTP and WebSocket API.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/pricewaze/pricewaze-backend/internal/server/handler"
	"github.com/pricewaze/pricewaze-backend/internal/server/middleware"
	"github.com/pricewaze/pricewaze-backend/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string
	APIKey      string // if empty, authentication is disabled
}

// Handlers aggregates the HTTP handlers the server registers.
type Handlers struct {
	Health    *handler.HealthHandler
	Signals   *handler.SignalHandler
	Fairness  *handler.FairnessHandler
	Market    *handler.MarketHandler
	Coherence *handler.CoherenceHandler
}

// Server is the HTTP + WebSocket API server for the decision engine.
type Server struct {
	httpServer *http.Server
	mux        *http.ServeMux
	logger     *slog.Logger
}

// NewServer creates a Server with all routes registered and middleware
// (logging, CORS, auth) wired in.
func NewServer(cfg Config, handlers Handlers, wsHub *ws.Hub, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	// Health check.
	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)

	// Signal intake and state reads.
	mux.HandleFunc("POST /api/signals/report", handlers.Signals.Report)
	mux.HandleFunc("POST /api/signals/recompute", handlers.Signals.Recompute)
	mux.HandleFunc("GET /api/signals/edges", handlers.Signals.ListEdges)
	mux.HandleFunc("GET /api/properties/{id}/signals", handlers.Signals.ListStates)

	// Fairness.
	mux.HandleFunc("GET /api/offers/{id}/fairness", handlers.Fairness.AssessOffer)
	mux.HandleFunc("GET /api/properties/{id}/fairness", handlers.Fairness.AssessAmount)

	// Market dynamics, pressure, wait-risk.
	mux.HandleFunc("GET /api/zones/{id}/dynamics", handlers.Market.ZoneDynamics)
	mux.HandleFunc("GET /api/properties/{id}/pressure", handlers.Market.PropertyPressure)
	mux.HandleFunc("GET /api/properties/{id}/wait-risk", handlers.Market.WaitRisk)

	// Negotiation coherence.
	mux.HandleFunc("GET /api/offers/{id}/coherence", handlers.Coherence.Latest)
	mux.HandleFunc("POST /api/offers/{id}/coherence/recalculate", handlers.Coherence.Recalculate)
	mux.HandleFunc("GET /api/offers/{id}/alerts", handlers.Coherence.Alerts)

	if wsHub != nil {
		mux.HandleFunc("GET /ws", wsHub.HandleWS)
	}

	var h http.Handler = mux
	h = middleware.Auth(cfg.APIKey)(h)
	h = middleware.Logging(logger)(h)
	h = middleware.CORS(cfg.CORSOrigins)(h)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: srv,
		mux:        mux,
		logger:     logger,
	}
}

// Start begins listening for HTTP requests. It blocks until the server stops.
func (s *Server) Start() error {
	s.logger.Info("server: starting", slog.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server, waiting for in-flight requests
// within the context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
