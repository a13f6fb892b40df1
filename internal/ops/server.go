// Package ops serves the liveness and readiness probes of the ledger processor.
package ops

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/savings-fund-ledger/internal/config"
)

// Check reports whether one dependency is usable
type Check func(ctx context.Context) error

// Server handles probe requests
type Server struct {
	logger     *slog.Logger
	httpServer *http.Server
	httpRouter *gin.Engine
}

// NewServer creates the probe server. Every check must pass for /ready to report ready.
func NewServer(log *slog.Logger, cfg *config.Config, checks map[string]Check) *Server {
	if cfg.Application.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	httpRouter := gin.New()
	setupRouter(log, httpRouter, checks)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      httpRouter,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return &Server{
		logger:     log,
		httpServer: httpServer,
		httpRouter: httpRouter,
	}
}

// Start blocks serving requests until Stop is called
func (s *Server) Start() error {
	s.logger.Info("starting ops HTTP server", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start ops HTTP server: %w", err)
	}
	return nil
}

// Stop gracefully shuts down the server within ctx
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("stopping ops HTTP server")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to stop ops HTTP server: %w", err)
	}
	return nil
}
