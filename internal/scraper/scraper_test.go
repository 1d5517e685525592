package scraper

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/Andrew-Sencil/GBP/internal/domain"
)

func recordWithPhotos(n int) *domain.BusinessRecord {
	rec := &domain.BusinessRecord{Title: "Joe's Diner"}
	for i := 0; i < n; i++ {
		rec.PhotoURLs = append(rec.PhotoURLs, "https://photos.example/full/"+string(rune('a'+i%26)))
	}
	return rec
}

func TestAnalyzeUsesEveryPhotoUnderTheLimit(t *testing.T) {
	f := newFakeClassifier(func(ctx context.Context, unit domain.PhotoUnit, attempt int) (domain.UploaderVerdict, error) {
		return domain.VerdictCustomer, nil
	})
	sup := newTestSupervisor(t, f, testPoolConfig())
	scraper := NewPhotoScraper(sup, 100, zap.NewNop())

	summary := scraper.Analyze(context.Background(), recordWithPhotos(60))

	assert.Equal(t, 60, summary.TotalAnalyzed, "no padding up to the limit")
	assertSummaryInvariant(t, summary)
}

func TestAnalyzeTruncatesToTheLimit(t *testing.T) {
	f := newFakeClassifier(func(ctx context.Context, unit domain.PhotoUnit, attempt int) (domain.UploaderVerdict, error) {
		return domain.VerdictOwner, nil
	})
	sup := newTestSupervisor(t, f, testPoolConfig())
	scraper := NewPhotoScraper(sup, 25, zap.NewNop())

	summary := scraper.Analyze(context.Background(), recordWithPhotos(80))

	assert.Equal(t, 25, summary.TotalAnalyzed)
	assertSummaryInvariant(t, summary)
}

func TestAnalyzeNoPhotos(t *testing.T) {
	f := newFakeClassifier(func(ctx context.Context, unit domain.PhotoUnit, attempt int) (domain.UploaderVerdict, error) {
		return domain.VerdictOwner, nil
	})
	sup := newTestSupervisor(t, f, testPoolConfig())
	scraper := NewPhotoScraper(sup, 100, zap.NewNop())

	summary := scraper.Analyze(context.Background(), &domain.BusinessRecord{Title: "Joe's Diner"})

	assert.Zero(t, summary.TotalAnalyzed)
	assert.Zero(t, f.launchCount())
}
