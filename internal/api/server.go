// Package api exposes the analysis pipeline over HTTP.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/Andrew-Sencil/GBP/internal/analyzer"
	"github.com/Andrew-Sencil/GBP/internal/config"
	"github.com/Andrew-Sencil/GBP/internal/domain"
	"github.com/Andrew-Sencil/GBP/internal/monitoring"
	"github.com/Andrew-Sencil/GBP/internal/narrative"
)

// Pipeline is the analysis entrypoint the handlers call into.
type Pipeline interface {
	Analyze(ctx context.Context, in analyzer.Input) (*domain.AnalysisBundle, error)
	Narrative(ctx context.Context, placeID string, choice narrative.ModelChoice) (string, error)
}

// AnalysisReader serves stored analysis bundles.
type AnalysisReader interface {
	GetAnalysis(ctx context.Context, placeID string) (*domain.AnalysisBundle, error)
}

// Pinger is a health-checkable dependency.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server holds the dependencies for the HTTP server.
type Server struct {
	config     *config.Config
	router     http.Handler
	httpServer *http.Server
	pipeline   Pipeline
	store      AnalysisReader
	pgPing     Pinger
	redisPing  Pinger
	metrics    *monitoring.Metrics
	validate   *validator.Validate
	logger     *zap.Logger
}

func NewServer(cfg *config.Config, p Pipeline, store AnalysisReader, pgPing, redisPing Pinger, m *monitoring.Metrics, l *zap.Logger) *Server {
	s := &Server{
		config:    cfg,
		pipeline:  p,
		store:     store,
		pgPing:    pgPing,
		redisPing: redisPing,
		metrics:   m,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
		logger:    l,
	}
	s.router = s.setupRouter()
	return s
}

func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:        fmt.Sprintf(":%s", s.config.ServerPort),
		Handler:     s.router,
		ReadTimeout: 10 * time.Second,
		// Analyses hold the connection while the scrape budget runs down, so
		// the write timeout has to outlast it.
		WriteTimeout: time.Duration(s.config.ScrapeBudget+60) * time.Second,
	}
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}
