package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/crivus/quiziq/internal/adapter"
	"github.com/crivus/quiziq/internal/api/middleware"
	"github.com/crivus/quiziq/internal/api/rest"
	"github.com/crivus/quiziq/internal/ingest"
	"github.com/crivus/quiziq/internal/logger"
	"github.com/crivus/quiziq/internal/policy"
	"github.com/crivus/quiziq/internal/ratelimit"
	"github.com/crivus/quiziq/internal/registry"
	"github.com/crivus/quiziq/internal/report"
	"github.com/crivus/quiziq/internal/stats"
	"github.com/crivus/quiziq/internal/store"
)

// Config holds the server configuration
type Config struct {
	Debug        bool
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	JWTPublicKey string
}

// Server wraps the HTTP server
type Server struct {
	config     Config
	store      store.Store
	limiter    ratelimit.Limiter
	renderer   adapter.DocumentRenderer
	clock      adapter.Clock
	httpServer *http.Server
}

// New creates a new API server
func New(cfg Config, store store.Store, limiter ratelimit.Limiter, renderer adapter.DocumentRenderer, clock adapter.Clock) *Server {
	return &Server{
		config:   cfg,
		store:    store,
		limiter:  limiter,
		renderer: renderer,
		clock:    clock,
	}
}

// Start initializes and starts the HTTP server
func (s *Server) Start() error {
	// Set Gin mode based on debug flag
	if s.config.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	// Create Gin router
	router := gin.New()

	// Setup middleware
	router.Use(middleware.Recovery())
	router.Use(middleware.Logger())
	router.Use(middleware.SetupCORS())

	// Wire domain services
	policies := policy.NewService(s.store)
	statsService := stats.NewService(s.store)
	handler := rest.NewHandler(
		ingest.NewPipeline(s.store, policies, s.limiter),
		registry.NewService(s.store, policies, s.clock),
		statsService,
		report.NewService(statsService, s.store, s.renderer),
		policies,
		s.store,
		s.clock,
	)

	// Setup REST routes
	rest.SetupRoutes(router, handler, middleware.AuthConfig{JWTPublicKey: s.config.JWTPublicKey})

	// Create HTTP server
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}

	logger.Info("Starting API server",
		zap.String("address", addr),
	)

	// Start server
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	logger.Info("Shutting down API server")

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			return fmt.Errorf("failed to shutdown server: %w", err)
		}
	}

	return nil
}
