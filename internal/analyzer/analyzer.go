// Package analyzer runs the full listing-health pipeline: fetch, normalize,
// count recent activity, classify photos, score, persist, and optionally
// narrate.
package analyzer

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Andrew-Sencil/GBP/internal/domain"
	"github.com/Andrew-Sencil/GBP/internal/monitoring"
	"github.com/Andrew-Sencil/GBP/internal/narrative"
	"github.com/Andrew-Sencil/GBP/internal/provider"
	"github.com/Andrew-Sencil/GBP/internal/recency"
	"github.com/Andrew-Sencil/GBP/internal/scoring"
)

// Provider fetches raw listing payloads.
type Provider interface {
	FetchByQuery(ctx context.Context, query string) (*provider.RawListing, error)
	FetchByPlaceID(ctx context.Context, placeID string) (*provider.RawListing, error)
}

// PhotoScraper runs the attribution stage. It never fails: partial summaries
// stand in for whatever the budget cut off.
type PhotoScraper interface {
	Analyze(ctx context.Context, rec *domain.BusinessRecord) domain.AttributionSummary
}

// Scorer turns run artifacts into the final score.
type Scorer interface {
	Score(in scoring.Inputs) domain.ScoreResult
}

// Store is the durable analysis record.
type Store interface {
	SaveAnalysis(ctx context.Context, b *domain.AnalysisBundle) error
	GetAnalysis(ctx context.Context, placeID string) (*domain.AnalysisBundle, error)
	UpdateNarrative(ctx context.Context, placeID, narrative string) error
}

// Cache debounces repeat analyses and serves their cached bundles.
type Cache interface {
	MarkAnalyzed(ctx context.Context, placeID string, ttl time.Duration) error
	IsRecentlyAnalyzed(ctx context.Context, placeID string) (bool, error)
	CacheBundle(ctx context.Context, b *domain.AnalysisBundle, ttl time.Duration) error
	GetCachedBundle(ctx context.Context, placeID string) (*domain.AnalysisBundle, error)
	CacheQueryPlaceID(ctx context.Context, query, placeID string, ttl time.Duration) error
	LookupQueryPlaceID(ctx context.Context, query string) (string, error)
}

// NarrativeClient generates the optional prose assessment.
type NarrativeClient interface {
	Generate(ctx context.Context, b *domain.AnalysisBundle, choice narrative.ModelChoice) (string, error)
}

// Input identifies one listing to analyze. Exactly one of Query and PlaceID
// is set; the API layer enforces that before the pipeline runs.
type Input struct {
	Query            string
	PlaceID          string
	Force            bool
	IncludeNarrative bool
	NarrativeModel   narrative.ModelChoice
	Overrides        provider.Overrides
}

// Analyzer wires the pipeline stages together. One instance serves all
// requests; every run gets its own ID, logger and record.
type Analyzer struct {
	provider  Provider
	scraper   PhotoScraper
	recency   *recency.Filter
	scorer    Scorer
	store     Store
	cache     Cache
	narrative NarrativeClient
	dedupeTTL time.Duration
	metrics   *monitoring.Metrics
	logger    *zap.Logger

	now func() time.Time
}

func New(p Provider, sc PhotoScraper, rf *recency.Filter, e Scorer, st Store, c Cache,
	n NarrativeClient, dedupeTTL time.Duration, m *monitoring.Metrics, logger *zap.Logger) *Analyzer {
	return &Analyzer{
		provider:  p,
		scraper:   sc,
		recency:   rf,
		scorer:    e,
		store:     st,
		cache:     c,
		narrative: n,
		dedupeTTL: dedupeTTL,
		metrics:   m,
		logger:    logger,
		now:       time.Now,
	}
}

// Analyze runs the pipeline for one listing and returns the full bundle.
// Scraping shortfalls degrade the photo-balance signal, never the run;
// only acquisition failures surface as errors.
func (a *Analyzer) Analyze(ctx context.Context, in Input) (*domain.AnalysisBundle, error) {
	runID := uuid.NewString()
	started := a.now()
	log := a.logger.With(zap.String("run_id", runID))

	if !in.Force {
		if cached := a.lookupRecent(ctx, log, in); cached != nil {
			a.metrics.IncAnalyses("cached")
			return cached, nil
		}
	}

	raw, err := a.fetch(ctx, in)
	if err != nil {
		a.metrics.IncAnalyses("acquisition_failed")
		return nil, err
	}

	rec, err := provider.Normalize(raw)
	if err != nil {
		a.metrics.IncAnalyses("acquisition_failed")
		return nil, err
	}
	provider.ApplyOverrides(rec, in.Overrides)
	log = log.With(zap.String("place_id", rec.PlaceID))
	log.Info("listing acquired",
		zap.String("title", rec.Title),
		zap.Int("photos", len(rec.PhotoURLs)),
		zap.Int("reviews", rec.ReviewsCount))

	recentPosts := a.recency.CountWithin(started, rec.PostTimestamps)
	recentReviews := a.recency.CountWithin(started, rec.ReviewTimestamps)

	attribution := a.scraper.Analyze(ctx, rec)

	score := a.scorer.Score(scoring.InputsFrom(*rec, attribution, recentPosts, recentReviews))

	bundle := &domain.AnalysisBundle{
		RunID:             runID,
		Business:          *rec,
		Attribution:       attribution,
		RecentPostCount:   recentPosts,
		RecentReviewCount: recentReviews,
		Score:             score,
		AnalyzedAt:        started,
	}

	if in.IncludeNarrative {
		text, err := a.narrative.Generate(ctx, bundle, in.NarrativeModel)
		if err != nil {
			log.Warn("narrative generation degraded to fallback", zap.Error(err))
		}
		bundle.Narrative = text
	}

	a.finalize(ctx, log, in, bundle)

	a.metrics.IncAnalyses("completed")
	a.metrics.ObserveAnalysisDuration(a.now().Sub(started))
	log.Info("analysis complete",
		zap.Float64("final_score", score.FinalScore),
		zap.Int("photos_analyzed", attribution.TotalAnalyzed),
		zap.Duration("took", a.now().Sub(started)))
	return bundle, nil
}

// Narrative generates (and stores) a narrative for an already-analyzed
// place. Returns domain.ErrNotFound when the place was never analyzed.
func (a *Analyzer) Narrative(ctx context.Context, placeID string, choice narrative.ModelChoice) (string, error) {
	bundle, err := a.store.GetAnalysis(ctx, placeID)
	if err != nil {
		return "", err
	}

	text, genErr := a.narrative.Generate(ctx, bundle, choice)
	if genErr != nil {
		a.logger.Warn("narrative generation degraded to fallback",
			zap.String("place_id", placeID), zap.Error(genErr))
		return text, nil
	}

	if err := a.store.UpdateNarrative(ctx, placeID, text); err != nil {
		a.logger.Warn("could not store narrative",
			zap.String("place_id", placeID), zap.Error(err))
	}
	return text, nil
}

// lookupRecent serves a repeat request from the cache. Any miss or cache
// error falls through to a fresh run.
func (a *Analyzer) lookupRecent(ctx context.Context, log *zap.Logger, in Input) *domain.AnalysisBundle {
	placeID := in.PlaceID
	if placeID == "" && in.Query != "" {
		resolved, err := a.cache.LookupQueryPlaceID(ctx, in.Query)
		if err != nil {
			if !errors.Is(err, domain.ErrNotFound) {
				log.Warn("query cache lookup failed", zap.Error(err))
			}
			return nil
		}
		placeID = resolved
	}
	if placeID == "" {
		return nil
	}

	recent, err := a.cache.IsRecentlyAnalyzed(ctx, placeID)
	if err != nil {
		log.Warn("dedup check failed", zap.Error(err))
		return nil
	}
	if !recent {
		return nil
	}

	bundle, err := a.cache.GetCachedBundle(ctx, placeID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			log.Warn("bundle cache read failed", zap.Error(err))
		}
		return nil
	}
	log.Info("serving recent analysis from cache", zap.String("place_id", placeID))
	return bundle
}

func (a *Analyzer) fetch(ctx context.Context, in Input) (*provider.RawListing, error) {
	if in.PlaceID != "" {
		return a.provider.FetchByPlaceID(ctx, in.PlaceID)
	}
	if in.Query != "" {
		return a.provider.FetchByQuery(ctx, in.Query)
	}
	return nil, domain.NewAcquisitionError("neither query nor place id supplied", nil)
}

// finalize persists and caches the bundle. Storage trouble is logged, not
// returned: the caller already has a complete result in hand.
func (a *Analyzer) finalize(ctx context.Context, log *zap.Logger, in Input, bundle *domain.AnalysisBundle) {
	placeID := bundle.Business.PlaceID
	if placeID == "" {
		log.Warn("listing has no place id, skipping persistence and dedup")
		return
	}

	if err := a.store.SaveAnalysis(ctx, bundle); err != nil {
		log.Error("could not persist analysis", zap.Error(err))
	}
	if err := a.cache.CacheBundle(ctx, bundle, a.dedupeTTL); err != nil {
		log.Warn("could not cache bundle", zap.Error(err))
	}
	if err := a.cache.MarkAnalyzed(ctx, placeID, a.dedupeTTL); err != nil {
		log.Warn("could not mark place analyzed", zap.Error(err))
	}
	if in.Query != "" {
		if err := a.cache.CacheQueryPlaceID(ctx, in.Query, placeID, a.dedupeTTL); err != nil {
			log.Warn("could not cache query resolution", zap.Error(err))
		}
	}
}
