// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-passkey.
//
// go-passkey is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

package rest

import (
	"context"
	"crypto"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jeremyhahn/go-passkey/internal/config"
	"github.com/jeremyhahn/go-passkey/pkg/logging"
	"github.com/jeremyhahn/go-passkey/pkg/metrics"
	"github.com/jeremyhahn/go-passkey/pkg/passkey"
	passkeyhttp "github.com/jeremyhahn/go-passkey/pkg/passkey/http"
)

// ServerParams holds the dependencies for the REST server.
type ServerParams struct {
	// Config is the server configuration (required).
	Config *config.Config

	// Logger is the structured logger. Defaults to a logger built from
	// the logging section of the configuration.
	Logger *slog.Logger

	// Directory resolves login hints to user handles for targeted
	// authentication (optional). Without it every login is discoverable.
	Directory passkey.UserDirectory

	// Registry is the credential registry (optional). Defaults to a new
	// in-memory registry. Callers provide one to seed credentials
	// registered out of band.
	Registry passkey.CredentialRegistry

	// SigningKey overrides the claim token signing key (optional).
	SigningKey crypto.PrivateKey

	// Version is reported by the health endpoints.
	Version string
}

// Server is the passkey authentication REST server.
type Server struct {
	server      *http.Server
	coordinator *passkey.Coordinator
	challenges  *passkey.MemoryChallengeStore
	registry    passkey.CredentialRegistry
	cfg         *config.Config
	tlsConfig   *tls.Config
	logger      *slog.Logger
	version     string
	startedAt   time.Time
	stopSweep   context.CancelFunc
	stopGauge   context.CancelFunc
}

// NewServer assembles a REST server from the configuration.
func NewServer(params ServerParams) (*Server, error) {
	if params.Config == nil {
		return nil, fmt.Errorf("config is required")
	}
	cfg := params.Config

	log := params.Logger
	if log == nil {
		log = logging.NewLogger(logging.Config{
			Level:  cfg.Logging.Level,
			Format: cfg.Logging.Format,
		})
	}

	version := params.Version
	if version == "" {
		version = "dev"
	}

	registry := params.Registry
	if registry == nil {
		registry = passkey.NewMemoryCredentialRegistry()
	}

	challenges := passkey.NewMemoryChallengeStore()

	tokenGenerator, err := buildTokenGenerator(&cfg.Token, params.SigningKey)
	if err != nil {
		return nil, fmt.Errorf("failed to configure claim tokens: %w", err)
	}

	rpConfig := &passkey.Config{
		RPID:                    cfg.RelyingParty.ID,
		RPDisplayName:           cfg.RelyingParty.DisplayName,
		RPOrigins:               cfg.RelyingParty.Origins,
		ChallengeTTL:            cfg.RelyingParty.ChallengeTTL,
		ChallengeSize:           cfg.RelyingParty.ChallengeSize,
		RequireUserVerification: cfg.RelyingParty.RequireUserVerification,
	}

	coordinator, err := passkey.NewCoordinator(passkey.CoordinatorParams{
		Config:         rpConfig,
		Challenges:     newInstrumentedChallengeStore(challenges),
		Credentials:    registry,
		Directory:      params.Directory,
		TokenGenerator: tokenGenerator,
		Events:         newSecurityEventSink(log),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create coordinator: %w", err)
	}

	tlsConfig, err := cfg.Server.TLS.LoadTLSConfig()
	if err != nil {
		return nil, err
	}

	server := &Server{
		coordinator: coordinator,
		challenges:  challenges,
		registry:    registry,
		cfg:         cfg,
		tlsConfig:   tlsConfig,
		logger:      log,
		version:     version,
		startedAt:   time.Now(),
	}

	server.server = &http.Server{
		Addr:         cfg.Address(),
		Handler:      server.setupRouter(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
		TLSConfig:    tlsConfig,
	}

	return server, nil
}

// setupRouter configures the chi router with all routes and middleware.
func (s *Server) setupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(s.RecoveryMiddleware())
	r.Use(s.CorrelationMiddleware())
	r.Use(s.LoggingMiddleware())
	if s.cfg.Metrics.Enabled {
		r.Use(metrics.HTTPMiddleware)
	}

	// Legacy health endpoint alongside the Kubernetes-style probes
	r.Get("/healthz", s.LivenessHandler)
	r.Get("/health/live", s.LivenessHandler)
	r.Get("/health/ready", s.ReadinessHandler)

	if s.cfg.Metrics.Enabled {
		r.Handle(s.cfg.Metrics.Path, promhttp.Handler())
	}

	r.Route("/api/v1/auth", func(r chi.Router) {
		if s.cfg.Metrics.Enabled {
			r.Use(authenticationMetricsMiddleware)
		}
		handler := passkeyhttp.NewHandler(s.coordinator).WithLogger(s.logger)
		passkeyhttp.MountChi(r, handler)
	})

	return r
}

// Start starts the REST server and blocks until it stops.
func (s *Server) Start() error {
	sweepCtx, cancelSweep := context.WithCancel(context.Background())
	s.stopSweep = cancelSweep
	s.challenges.StartSweepRoutine(sweepCtx, s.cfg.RelyingParty.ChallengeTTL)

	if s.cfg.Metrics.Enabled {
		metrics.Enable()
		gaugeCtx, cancelGauge := context.WithCancel(context.Background())
		s.stopGauge = cancelGauge
		s.startPendingChallengeGauge(gaugeCtx)
		metrics.StartResourceCollector(gaugeCtx, 15*time.Second)
	}

	if s.tlsConfig != nil {
		s.logger.Info("Starting HTTPS server",
			slog.String("address", s.server.Addr),
			slog.String("rp_id", s.cfg.RelyingParty.ID))

		if err := s.server.ListenAndServeTLS("", ""); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("failed to start HTTPS server: %w", err)
		}
		return nil
	}

	s.logger.Info("Starting HTTP server",
		slog.String("address", s.server.Addr),
		slog.String("rp_id", s.cfg.RelyingParty.ID))

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}
	return nil
}

// Stop gracefully stops the REST server.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Shutting down server")

	if s.stopSweep != nil {
		s.stopSweep()
	}
	if s.stopGauge != nil {
		s.stopGauge()
	}

	if err := s.server.Shutdown(ctx); err != nil {
		s.logger.Error("Failed to shutdown server", slog.Any("error", err))
		return fmt.Errorf("failed to shutdown server: %w", err)
	}

	s.logger.Info("Server stopped")
	return nil
}

// Handler returns the configured HTTP handler for testing.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Coordinator returns the authentication coordinator.
func (s *Server) Coordinator() *passkey.Coordinator {
	return s.coordinator
}

// Registry returns the credential registry for out-of-band enrollment.
func (s *Server) Registry() passkey.CredentialRegistry {
	return s.registry
}
