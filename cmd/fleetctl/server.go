// Package main wires the control plane's components into a running server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/agentfleet/controlplane/api/handlers"
	"github.com/agentfleet/controlplane/capability"
	"github.com/agentfleet/controlplane/config"
	"github.com/agentfleet/controlplane/discovery"
	"github.com/agentfleet/controlplane/events"
	"github.com/agentfleet/controlplane/health"
	"github.com/agentfleet/controlplane/internal/metrics"
	"github.com/agentfleet/controlplane/internal/server"
	"github.com/agentfleet/controlplane/internal/telemetry"
	"github.com/agentfleet/controlplane/lifecycle"
	"github.com/agentfleet/controlplane/scheduler"
)

// Server is the fleetctl control plane: the component graph plus the HTTP
// and metrics listeners built on top of it.
type Server struct {
	cfg    *config.Config
	logger *zap.Logger
	otel   *telemetry.Providers

	httpManager    *server.Manager
	metricsManager *server.Manager

	bus          *events.Bus
	capabilities *capability.Registry
	discovery    *discovery.Registry
	health       *health.Checker
	lifecycle    *lifecycle.Manager
	scheduler    *scheduler.Scheduler

	metricsCollector *metrics.Collector

	wg sync.WaitGroup
}

// NewServer creates a server from a validated config. otel may be nil if
// telemetry initialization failed or is disabled.
func NewServer(cfg *config.Config, logger *zap.Logger, otel *telemetry.Providers) *Server {
	return &Server{cfg: cfg, logger: logger, otel: otel}
}

// Start wires the component graph, builds the HTTP API, and starts both
// the API and metrics listeners.
func (s *Server) Start() error {
	s.metricsCollector = metrics.NewCollector("fleetctl", s.logger)

	s.initComponents()

	if err := s.startHTTPServer(); err != nil {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	if err := s.startMetricsServer(); err != nil {
		return fmt.Errorf("failed to start metrics server: %w", err)
	}

	s.logger.Info("all servers started",
		zap.Int("http_port", s.cfg.Server.HTTPPort),
		zap.Int("metrics_port", s.cfg.Server.MetricsPort),
	)

	return nil
}

// initComponents builds the registration, discovery, health, lifecycle,
// and scheduler components that the HTTP API delegates to.
func (s *Server) initComponents() {
	s.bus = events.NewBus(s.logger)
	s.capabilities = capability.New(s.logger)
	s.discovery = discovery.New(s.capabilities, s.logger)
	s.health = health.NewChecker(s.discovery, s.bus, s.logger, s.cfg.Health.ToHealthConfig())
	s.lifecycle = lifecycle.NewManager(s.bus, s.logger, s.cfg.Lifecycle.ToLifecycleConfig(), lifecycle.Hooks{})
	s.scheduler = scheduler.New(s.discovery, s.bus, s.logger, s.cfg.Scheduler.ToSchedulerConfig())

	s.logger.Info("components initialized")
}

// startHTTPServer mounts the fleet API behind the standard middleware
// chain and starts listening.
func (s *Server) startHTTPServer() error {
	router := handlers.NewRouter(handlers.Registry{
		Discovery:    s.discovery,
		Capabilities: s.capabilities,
		Health:       s.health,
		Lifecycle:    s.lifecycle,
		Scheduler:    s.scheduler,
		Metrics:      s.metricsCollector,
	}, s.logger)

	var handler http.Handler = router
	handler = Chain(handler,
		Recovery(s.logger),
		SecurityHeaders(),
		RequestID(),
		RequestLogger(s.logger),
		MetricsMiddleware(s.metricsCollector),
		OTelTracing(),
		CORS(nil),
		RateLimiter(context.Background(), 50, 100, s.logger),
	)

	serverConfig := server.Config{
		Addr:            fmt.Sprintf(":%d", s.cfg.Server.HTTPPort),
		ReadTimeout:     s.cfg.Server.ReadTimeout,
		WriteTimeout:    s.cfg.Server.WriteTimeout,
		IdleTimeout:     2 * s.cfg.Server.ReadTimeout,
		MaxHeaderBytes:  1 << 20,
		ShutdownTimeout: s.cfg.Server.ShutdownTimeout,
	}

	s.httpManager = server.NewManager(handler, serverConfig, s.logger)

	if err := s.httpManager.Start(); err != nil {
		return err
	}

	s.logger.Info("HTTP server started", zap.Int("port", s.cfg.Server.HTTPPort))
	return nil
}

// startMetricsServer exposes the Prometheus scrape endpoint on its own port.
func (s *Server) startMetricsServer() error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	serverConfig := server.Config{
		Addr:            fmt.Sprintf(":%d", s.cfg.Server.MetricsPort),
		ReadTimeout:     s.cfg.Server.ReadTimeout,
		WriteTimeout:    s.cfg.Server.WriteTimeout,
		ShutdownTimeout: s.cfg.Server.ShutdownTimeout,
	}

	s.metricsManager = server.NewManager(mux, serverConfig, s.logger)

	if err := s.metricsManager.Start(); err != nil {
		return err
	}

	s.logger.Info("metrics server started", zap.Int("port", s.cfg.Server.MetricsPort))
	return nil
}

// WaitForShutdown blocks until a shutdown signal or server error arrives,
// then tears everything down.
func (s *Server) WaitForShutdown() {
	if s.httpManager != nil {
		s.httpManager.WaitForShutdown()
	}
	s.Shutdown()
}

// Shutdown gracefully stops every listener and background goroutine.
func (s *Server) Shutdown() {
	s.logger.Info("starting graceful shutdown")

	ctx := context.Background()

	if s.health != nil {
		s.health.Close()
	}

	if s.httpManager != nil {
		if err := s.httpManager.Shutdown(ctx); err != nil {
			s.logger.Error("HTTP server shutdown error", zap.Error(err))
		}
	}

	if s.metricsManager != nil {
		if err := s.metricsManager.Shutdown(ctx); err != nil {
			s.logger.Error("metrics server shutdown error", zap.Error(err))
		}
	}

	if s.otel != nil {
		if err := s.otel.Shutdown(ctx); err != nil {
			s.logger.Error("telemetry shutdown error", zap.Error(err))
		}
	}

	s.wg.Wait()

	s.logger.Info("graceful shutdown completed")
}
