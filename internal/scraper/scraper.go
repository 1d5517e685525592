package scraper

import (
	"context"

	"go.uber.org/zap"

	"github.com/Andrew-Sencil/GBP/internal/domain"
)

// PhotoScraper runs the attribution stage over one business's photo set,
// truncated to the analysis limit.
type PhotoScraper struct {
	supervisor *Supervisor
	limit      int
	logger     *zap.Logger
}

func NewPhotoScraper(supervisor *Supervisor, analysisLimit int, logger *zap.Logger) *PhotoScraper {
	return &PhotoScraper{supervisor: supervisor, limit: analysisLimit, logger: logger}
}

// Analyze classifies up to the analysis limit of the record's photos.
// It always returns a summary; partial results under budget pressure are
// the supervisor's problem, not the caller's.
func (p *PhotoScraper) Analyze(ctx context.Context, rec *domain.BusinessRecord) domain.AttributionSummary {
	urls := rec.PhotoURLs
	if len(urls) > p.limit {
		urls = urls[:p.limit]
	}

	units := make([]domain.PhotoUnit, len(urls))
	for i, u := range urls {
		units[i] = domain.PhotoUnit{URL: u, Index: i}
	}

	p.logger.Info("starting photo attribution",
		zap.String("business", rec.Title),
		zap.Int("analyzing", len(units)),
		zap.Int("available", len(rec.PhotoURLs)))

	return p.supervisor.Run(ctx, rec.Title, units)
}
