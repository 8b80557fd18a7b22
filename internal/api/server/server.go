package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/feral-file/marketplace-mirror/internal/api/middleware"
	"github.com/feral-file/marketplace-mirror/internal/logger"
	"github.com/feral-file/marketplace-mirror/internal/mirror"
)

const (
	pathHealth  = "/healthz"
	pathReady   = "/readyz"
	pathMetrics = "/metrics"
)

// Config holds the server configuration
type Config struct {
	Debug        bool
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// StatusProvider reports the lifecycle stage of the mirror
type StatusProvider interface {
	Phase() mirror.Phase
}

// Server exposes liveness, readiness and prometheus metrics of the mirror
type Server struct {
	config     Config
	status     StatusProvider
	httpServer *http.Server
}

// New creates a new status server
func New(cfg Config, status StatusProvider) *Server {
	s := &Server{
		config: cfg,
		status: status,
	}
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      s.Handler(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
	return s
}

// Handler builds the router
func (s *Server) Handler() http.Handler {
	// Set Gin mode based on debug flag
	if s.config.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(middleware.Recovery())
	router.Use(middleware.Logger(pathHealth, pathReady, pathMetrics))

	router.GET(pathHealth, s.health)
	router.GET(pathReady, s.ready)
	router.GET(pathMetrics, gin.WrapH(promhttp.Handler()))

	return router
}

// health reports liveness; a failed mirror is not alive
func (s *Server) health(c *gin.Context) {
	phase := s.status.Phase()
	status := http.StatusOK
	if phase == mirror.PhaseFailed {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{"phase": phase})
}

// ready reports whether the mirror is caught up and following live events
func (s *Server) ready(c *gin.Context) {
	phase := s.status.Phase()
	status := http.StatusServiceUnavailable
	if phase == mirror.PhaseReconciling {
		status = http.StatusOK
	}
	c.JSON(status, gin.H{"phase": phase})
}

// Start starts the HTTP server and blocks until it is shut down.
// Start after Shutdown returns immediately.
func (s *Server) Start() error {
	logger.Info("Starting status server",
		zap.String("address", s.httpServer.Addr),
	)

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	logger.Info("Shutting down status server")

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}

	return nil
}
