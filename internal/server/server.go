// Package server
//
// @title QoS Dashboard Gateway API
// @version 1.0
// @description Authenticated pass-through to the location-stats analytics API
// @host localhost:8080
// @BasePath /
package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/qos-dev/qosdash/internal/config"
	"github.com/qos-dev/qosdash/internal/upstream"
)

const (
	breakerMaxFailures = 5
	breakerOpenTimeout = 30 * time.Second
)

// Server represents the HTTP gateway. It holds no per-user state; the only
// shared values are the configuration and the upstream client.
type Server struct {
	router   *gin.Engine
	config   *config.Config
	logger   zerolog.Logger
	upstream *upstream.Client
	version  string
}

// New creates a new server instance
func New(cfg *config.Config, zlog zerolog.Logger, version string) *Server {
	opts := []upstream.Option{
		upstream.WithLogger(zlog),
		upstream.WithTimeout(cfg.Upstream.Timeout),
	}
	if cfg.Upstream.BreakerEnabled {
		opts = append(opts, upstream.WithCircuitBreaker(breakerMaxFailures, breakerOpenTimeout))
	}

	server := &Server{
		config:   cfg,
		logger:   zlog,
		upstream: upstream.New(cfg.Upstream.BaseURL, opts...),
		version:  version,
	}

	server.setupRouter()

	return server
}

// setupRouter configures the Gin router with routes and middleware
func (s *Server) setupRouter() {
	gin.SetMode(gin.ReleaseMode)

	s.router = gin.New()

	s.router.Use(gin.Recovery())
	s.router.Use(requestIDMiddleware())
	s.router.Use(s.loggingMiddleware())
	s.router.Use(cors.New(s.corsConfig()))

	// Operational endpoints (no auth required)
	s.router.GET("/health", s.healthCheck)
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	s.router.GET("/api/ping", s.ping)

	// Location stats, each call authenticated by forwarding the caller's token
	stats := s.router.Group("/api/analytics/location-stats")
	{
		stats.GET("/summary", s.getSummaryStats)
		stats.GET("/district", s.getDistrictStats)
		stats.GET("/quest", s.getQuestStats)
		stats.GET("/time", s.getTimeStats)
	}
}

func (s *Server) corsConfig() cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "HEAD", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Length", "Content-Type", "Authorization"},
		ExposeHeaders: []string{"Content-Length", requestIDHeader},
		MaxAge:        12 * time.Hour,
	}

	if slices.Contains(s.config.Server.CORSAllowedOrigins, "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = s.config.Server.CORSAllowedOrigins
		cfg.AllowCredentials = true
	}

	return cfg
}

// Handler exposes the router, mainly for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// @Router /health [get]
// @Success 200 {object} map[string]interface{}
func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "online",
		"timestamp": time.Now().UTC(),
		"service":   "qosdash-gateway",
		"version":   s.version,
	})
}

// @Router /api/ping [get]
// @Success 200 {object} map[string]interface{}
func (s *Server) ping(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": s.config.Server.PingMessage})
}

// Start runs the HTTP server until SIGINT/SIGTERM, then shuts down gracefully.
func (s *Server) Start() error {
	addr := s.config.Addr()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", addr).Str("upstream", s.config.Upstream.BaseURL).Msg("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		s.logger.Error().Err(err).Msg("HTTP server error")
		return err
	case <-sigChan:
		s.logger.Info().Msg("Received shutdown signal, shutting down gracefully...")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Error().Err(err).Msg("Error shutting down HTTP server")
		return err
	}

	s.logger.Info().Msg("Server shutdown complete")
	return nil
}
