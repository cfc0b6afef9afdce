package server

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gkobilansky/ab-advisor/internal/advisor"
	"github.com/gkobilansky/ab-advisor/internal/decision"
	"github.com/gkobilansky/ab-advisor/internal/logging"
	"github.com/gkobilansky/ab-advisor/internal/store"
)

const shutdownTimeout = 5 * time.Second

type Options struct {
	Port int
	// Token guards the experiment routes. Empty generates one.
	Token string
	// TokenFile, when set, receives the token on Start so the token command can print it.
	TokenFile string
	Logger    *slog.Logger
}

type Server struct {
	store     store.Store
	advisor   *advisor.Service
	engine    *decision.Engine
	logger    *slog.Logger
	port      int
	token     string
	tokenFile string
	router    *http.ServeMux
	registry  *prometheus.Registry
	metrics   *metrics
	startTime time.Time
}

func New(s store.Store, opts Options) (*Server, error) {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	token := opts.Token
	if token == "" {
		var err error
		if token, err = GenerateToken(); err != nil {
			return nil, err
		}
	}

	registry := prometheus.NewRegistry()
	srv := &Server{
		store:     s,
		advisor:   advisor.New(s, logger),
		engine:    decision.NewEngine(),
		logger:    logger,
		port:      opts.Port,
		token:     token,
		tokenFile: opts.TokenFile,
		router:    http.NewServeMux(),
		registry:  registry,
		metrics:   newMetrics(registry),
		startTime: time.Now(),
	}

	srv.setupRoutes()
	return srv, nil
}

func (s *Server) setupRoutes() {
	// Public endpoints
	s.handle("GET /health", s.handleHealth)
	s.handle("POST /api/decide", s.handleDecide)
	s.router.Handle("GET /metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))

	// Experiment endpoints (protected)
	s.handle("GET /api/experiments", s.auth(s.handleListExperiments))
	s.handle("POST /api/experiments", s.auth(s.handleCreateExperiment))
	s.handle("GET /api/experiments/{name}", s.auth(s.handleGetExperiment))
	s.handle("POST /api/experiments/{name}/counts", s.auth(s.handleRecordCounts))
	s.handle("GET /api/experiments/{name}/decision", s.auth(s.handleDecision))
}

// handle registers an instrumented handler under pattern.
func (s *Server) handle(pattern string, h http.HandlerFunc) {
	s.router.Handle(pattern, s.metrics.instrument(pattern, h))
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	// Write token to file for the token command
	if s.tokenFile != "" {
		if err := os.WriteFile(s.tokenFile, []byte(s.token), 0600); err != nil {
			s.logger.Warn("failed to write token file", "path", s.tokenFile, "error", err)
		}
	}

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", "addr", httpServer.Addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down: %w", err)
	}
	return nil
}

func (s *Server) Token() string {
	return s.token
}

func (s *Server) Port() int {
	return s.port
}

func (s *Server) StartTime() time.Time {
	return s.startTime
}

// Handler is the full handler chain, including request logging.
func (s *Server) Handler() http.Handler {
	return s.logRequests(s.router)
}

// GenerateToken returns a random 32-character hex token.
func GenerateToken() (string, error) {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return hex.EncodeToString(bytes), nil
}
