// Command smoke scores a listing end to end without the HTTP service.
// With --input it scores a fixture payload offline using a stubbed
// classifier; with --live it runs the real provider and browser stages.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Andrew-Sencil/GBP/internal/config"
	"github.com/Andrew-Sencil/GBP/internal/domain"
	"github.com/Andrew-Sencil/GBP/internal/monitoring"
	"github.com/Andrew-Sencil/GBP/internal/provider"
	"github.com/Andrew-Sencil/GBP/internal/recency"
	"github.com/Andrew-Sencil/GBP/internal/scoring"
	"github.com/Andrew-Sencil/GBP/internal/scraper"
)

var (
	inputPath     string
	businessTitle string
	query         string
	placeID       string
	live          bool
)

func main() {
	root := &cobra.Command{
		Use:   "smoke",
		Short: "Score a business listing and print the breakdown",
		RunE:  run,
	}
	root.Flags().StringVar(&inputPath, "input", "", "path to a raw listing payload JSON file (offline mode)")
	root.Flags().StringVar(&businessTitle, "business-title", "", "override the business title used for attribution matching")
	root.Flags().StringVar(&query, "query", "", "free-text listing query (live mode)")
	root.Flags().StringVar(&placeID, "place-id", "", "provider place ID (live mode)")
	root.Flags().BoolVar(&live, "live", false, "fetch from the provider and drive a real browser")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	logger := zap.NewNop()
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	raw, err := loadPayload(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}

	rec, err := provider.Normalize(raw)
	if err != nil {
		return err
	}
	if businessTitle != "" {
		rec.Title = businessTitle
	}

	now := time.Now()
	filter := recency.New(cfg.RecencyWindowDays, logger)
	recentPosts := filter.CountWithin(now, rec.PostTimestamps)
	recentReviews := filter.CountWithin(now, rec.ReviewTimestamps)

	summary := classifyPhotos(cmd.Context(), cfg, rec, logger)

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
		return err
	}

	result := engine.Score(scoring.InputsFrom(*rec, summary, recentPosts, recentReviews))
	printResult(rec, summary, recentPosts, recentReviews, result)
	return nil
}

func loadPayload(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*provider.RawListing, error) {
	if inputPath != "" {
		data, err := os.ReadFile(inputPath)
		if err != nil {
			return nil, fmt.Errorf("reading payload: %w", err)
		}
		var raw provider.RawListing
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("decoding payload: %w", err)
		}
		return &raw, nil
	}

	if !live {
		return nil, fmt.Errorf("either --input or --live with --query/--place-id is required")
	}
	client := provider.NewClient(cfg.ProviderBaseURL, cfg.ProviderAPIKey,
		time.Duration(cfg.ProviderTimeout)*time.Second, cfg.ProviderPageLimit, logger)
	if placeID != "" {
		return client.FetchByPlaceID(ctx, placeID)
	}
	if query != "" {
		return client.FetchByQuery(ctx, query)
	}
	return nil, fmt.Errorf("live mode needs --query or --place-id")
}

func classifyPhotos(ctx context.Context, cfg *config.Config, rec *domain.BusinessRecord, logger *zap.Logger) domain.AttributionSummary {
	var classifier scraper.Classifier = stubClassifier{}
	if live {
		identities := scraper.NewIdentityPool(nil, nil)
		classifier = scraper.NewChromeClassifier(cfg.Headless,
			time.Duration(cfg.NavTimeout)*time.Second, identities, logger)
	}

	supervisor := scraper.NewSupervisor(classifier, scraper.PoolConfig{
		PoolSize:       cfg.PoolSize,
		PerUnitTimeout: time.Duration(cfg.PerUnitTimeout) * time.Second,
		MaxRetries:     cfg.MaxRetriesPerUnit,
		MaxRespawns:    cfg.MaxRespawnsPerWorker,
		Budget:         time.Duration(cfg.ScrapeBudget) * time.Second,
	}, monitoring.NewMetrics(prometheus.NewRegistry()), logger)

	return scraper.NewPhotoScraper(supervisor, cfg.AnalysisLimit, logger).Analyze(ctx, rec)
}

// stubClassifier reads the verdict out of the photo URL so fixtures can
// exercise the pool without a browser: URLs containing "owner" or
// "customer" classify accordingly, anything else is unknown.
type stubClassifier struct{}

func (stubClassifier) NewSession(_ context.Context, _ string) (scraper.Session, error) {
	return stubSession{}, nil
}

type stubSession struct{}

func (stubSession) Classify(_ context.Context, unit domain.PhotoUnit) (domain.UploaderVerdict, error) {
	switch {
	case strings.Contains(unit.URL, "owner"):
		return domain.VerdictOwner, nil
	case strings.Contains(unit.URL, "customer"):
		return domain.VerdictCustomer, nil
	}
	return domain.VerdictUnknown, nil
}

func (stubSession) Close() {}

func printResult(rec *domain.BusinessRecord, summary domain.AttributionSummary,
	recentPosts, recentReviews int, result domain.ScoreResult) {
	fmt.Printf("Business: %s (%s)\n", rec.Title, rec.PlaceID)
	fmt.Printf("Photos analyzed: %d (owner %d, customer %d, unknown %d)\n",
		summary.TotalAnalyzed, summary.OwnerCount, summary.CustomerCount, summary.UnknownCount)
	fmt.Printf("Recent posts: %d, recent reviews: %d\n\n", recentPosts, recentReviews)

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "CATEGORY\tVALUE\tWEIGHT\tCONTRIBUTION")
	for _, sub := range result.SubScores {
		fmt.Fprintf(w, "%s\t%.1f\t%.2f\t%.2f\n", sub.Name, sub.Value, sub.Weight, sub.Value*sub.Weight)
	}
	w.Flush()

	fmt.Printf("\nFinal score: %.1f / 10\n", result.FinalScore)
}
