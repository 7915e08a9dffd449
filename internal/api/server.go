// Package api serves the pipeline over HTTP.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/synheart/synheart-stress/internal/metrics"
	"github.com/synheart/synheart-stress/internal/pipeline"
)

// Config holds the API server configuration
type Config struct {
	Host string
	Port int
	// CORSOrigins is a comma-separated allow list; empty allows any origin.
	CORSOrigins string
}

// Server is the REST front of a pipeline.Service.
type Server struct {
	config  Config
	service *pipeline.Service
	metrics *metrics.Registry
	app     *fiber.App
	started time.Time
}

// NewServer wires routes for service. reg may be nil, in which case
// /metrics answers 404.
func NewServer(config Config, service *pipeline.Service, reg *metrics.Registry) *Server {
	s := &Server{
		config:  config,
		service: service,
		metrics: reg,
		started: time.Now(),
	}

	app := fiber.New(fiber.Config{
		AppName:               "synheart-stress",
		DisableStartupMessage: true,
		ErrorHandler:          s.handleError,
	})

	origins := strings.TrimSpace(config.CORSOrigins)
	if origins == "" {
		origins = "*"
	}
	app.Use(cors.New(cors.Config{AllowOrigins: origins}))

	app.Get("/", s.handleRoot)
	app.Get("/health", s.handleHealth)
	if reg != nil {
		app.Get("/metrics", s.handleMetrics)
	}

	api := app.Group("/api")
	api.Get("/profiles", s.handleProfiles)

	data := api.Group("/biometric-data")
	data.Get("/", s.handleCurrent)
	data.Get("/history", s.handleHistory)
	data.Get("/range", s.handleRange)
	data.Get("/trend", s.handleTrend)

	s.app = app
	return s
}

// App exposes the fiber app, mainly for app.Test.
func (s *Server) App() *fiber.App {
	return s.app
}

// Start serves until ctx is cancelled, or returns the listen error.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		slog.Info("api: listening", "addr", s.GetAddress())
		if err := s.app.Listen(fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)); err != nil {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		return s.Shutdown()
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("api server failed: %w", err)
		}
		return nil
	}
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown() error {
	return s.app.ShutdownWithTimeout(5 * time.Second)
}

// GetAddress returns the server address
func (s *Server) GetAddress() string {
	return fmt.Sprintf("http://%s:%d", s.config.Host, s.config.Port)
}
