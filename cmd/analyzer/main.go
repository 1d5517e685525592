package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/Andrew-Sencil/GBP/internal/analyzer"
	"github.com/Andrew-Sencil/GBP/internal/api"
	"github.com/Andrew-Sencil/GBP/internal/config"
	"github.com/Andrew-Sencil/GBP/internal/monitoring"
	"github.com/Andrew-Sencil/GBP/internal/narrative"
	"github.com/Andrew-Sencil/GBP/internal/provider"
	"github.com/Andrew-Sencil/GBP/internal/recency"
	"github.com/Andrew-Sencil/GBP/internal/scoring"
	"github.com/Andrew-Sencil/GBP/internal/scraper"
	"github.com/Andrew-Sencil/GBP/internal/storage"
)

func main() {
	// Initialize structured logger
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	// Load configuration; a bad weight table or pool sizing dies here,
	// before any request is served.
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("could not load config", zap.Error(err))
	}

	// Initialize Storage Layer
	pgStore, err := storage.NewPostgresStore(cfg.PostgresURL)
	if err != nil {
		logger.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer pgStore.Close()
	redisStore := storage.NewRedisStore(cfg.RedisAddr)
	defer redisStore.Close()

	// Initialize Monitoring
	metrics := monitoring.NewMetrics(prometheus.DefaultRegisterer)

	// Initialize Scoring Engine
	engine, err := scoring.NewEngine(scoring.Weights{
		Posts:         cfg.WeightPosts,
		Photos:        cfg.WeightPhotos,
		ReviewRecency: cfg.WeightReviewRecency,
		Rating:        cfg.WeightRating,
		ReviewVolume:  cfg.WeightReviewVolume,
		Profile:       cfg.WeightProfile,
		Contact:       cfg.WeightContact,
	}, scoring.Targets{
		Posts:            cfg.TargetPosts,
		OwnerPhotos:      cfg.TargetOwnerPhotos,
		CustomerPhotos:   cfg.TargetCustomerPhotos,
		RecentReviews:    cfg.TargetRecentReviews,
		ReviewVolume:     cfg.TargetReviewVolume,
		Attributes:       cfg.TargetAttributes,
		DescriptionBonus: cfg.DescriptionBonus,
	}, logger)
	if err != nil {
		logger.Fatal("invalid scoring configuration", zap.Error(err))
	}

	// Initialize Attribution Scraper
	identities := scraper.NewIdentityPool(splitList(cfg.UserAgents), splitList(cfg.Proxies))
	classifier := scraper.NewChromeClassifier(cfg.Headless,
		time.Duration(cfg.NavTimeout)*time.Second, identities, logger)
	supervisor := scraper.NewSupervisor(classifier, scraper.PoolConfig{
		PoolSize:       cfg.PoolSize,
		PerUnitTimeout: time.Duration(cfg.PerUnitTimeout) * time.Second,
		MaxRetries:     cfg.MaxRetriesPerUnit,
		MaxRespawns:    cfg.MaxRespawnsPerWorker,
		Budget:         time.Duration(cfg.ScrapeBudget) * time.Second,
	}, metrics, logger)
	photoScraper := scraper.NewPhotoScraper(supervisor, cfg.AnalysisLimit, logger)

	// Initialize External Clients
	providerClient := provider.NewClient(cfg.ProviderBaseURL, cfg.ProviderAPIKey,
		time.Duration(cfg.ProviderTimeout)*time.Second, cfg.ProviderPageLimit, logger)
	narrativeClient := narrative.NewClient(cfg.NarrativeBaseURL, cfg.NarrativeAPIKey,
		cfg.NarrativeModelFast, cfg.NarrativeModelDeep, cfg.NarrativePromptPath,
		time.Duration(cfg.NarrativeTimeout)*time.Second, logger)

	// Initialize Core Pipeline
	pipeline := analyzer.New(providerClient, photoScraper,
		recency.New(cfg.RecencyWindowDays, logger), engine,
		pgStore, redisStore, narrativeClient,
		time.Duration(cfg.DedupeTTLHours)*time.Hour, metrics, logger)

	// Initialize API Server
	server := api.NewServer(cfg, pipeline, pgStore, pgStore, redisStore, metrics, logger)

	// Graceful Shutdown
	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("could not start server", zap.Error(err))
		}
	}()

	logger.Info("server started", zap.String("port", cfg.ServerPort))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server exiting")
}

// splitList parses a comma-separated env value into its nonempty entries.
func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
