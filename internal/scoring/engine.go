// Package scoring turns normalized listing signals into the 0-10 health
// score. Scoring is pure: same inputs, same weights, same result.
package scoring

import (
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/Andrew-Sencil/GBP/internal/domain"
)

// Subscore names as they appear in API responses and stored breakdowns.
const (
	NamePostsRecency  = "posts_recency"
	NamePhotoBalance  = "photo_balance"
	NameReviewRecency = "review_recency"
	NameStarRating    = "star_rating"
	NameReviewVolume  = "review_volume"
	NameProfile       = "profile_completeness"
	NameContact       = "contact_completeness"
)

// Weights is the contribution of each subscore to the final score.
// They must be non-negative and sum to 1.0.
type Weights struct {
	Posts         float64
	Photos        float64
	ReviewRecency float64
	Rating        float64
	ReviewVolume  float64
	Profile       float64
	Contact       float64
}

// Targets are the "full marks" thresholds each raw count is normalized
// against. Values at or above a target earn the full 10 for that component.
type Targets struct {
	Posts            int
	OwnerPhotos      int
	CustomerPhotos   int
	RecentReviews    int
	ReviewVolume     int
	Attributes       int
	DescriptionBonus float64
}

// Inputs are the signals one scoring pass consumes.
type Inputs struct {
	RecentPostCount    int
	OwnerPhotoCount    int
	CustomerPhotoCount int
	RecentReviewCount  int
	Rating             float64
	ReviewsCount       int
	AttributesCount    int
	HasDescription     bool
	HasName            bool
	HasAddress         bool
	HasPhone           bool
	HasWebsite         bool
}

// InputsFrom maps a run's artifacts onto scoring inputs. Photos with unknown
// provenance count toward neither side of the balance.
func InputsFrom(rec domain.BusinessRecord, att domain.AttributionSummary, recentPosts, recentReviews int) Inputs {
	return Inputs{
		RecentPostCount:    recentPosts,
		OwnerPhotoCount:    att.OwnerCount,
		CustomerPhotoCount: att.CustomerCount,
		RecentReviewCount:  recentReviews,
		Rating:             rec.Rating,
		ReviewsCount:       rec.ReviewsCount,
		AttributesCount:    rec.AttributesCount,
		HasDescription:     rec.Description != "",
		HasName:            rec.Title != "",
		HasAddress:         rec.Address != "",
		HasPhone:           rec.Phone != "",
		HasWebsite:         rec.Website != "",
	}
}

// Engine computes scores under a fixed, validated weight table.
type Engine struct {
	weights Weights
	targets Targets
	logger  *zap.Logger
}

// NewEngine validates the weight table and targets up front so a
// misconfigured deployment fails before it scores anything.
func NewEngine(w Weights, t Targets, logger *zap.Logger) (*Engine, error) {
	all := []struct {
		name  string
		value float64
	}{
		{NamePostsRecency, w.Posts},
		{NamePhotoBalance, w.Photos},
		{NameReviewRecency, w.ReviewRecency},
		{NameStarRating, w.Rating},
		{NameReviewVolume, w.ReviewVolume},
		{NameProfile, w.Profile},
		{NameContact, w.Contact},
	}
	sum := 0.0
	for _, entry := range all {
		if entry.value < 0 {
			return nil, fmt.Errorf("scoring: weight %s must not be negative, got %v", entry.name, entry.value)
		}
		sum += entry.value
	}
	if math.Abs(sum-1.0) > 1e-6 {
		return nil, fmt.Errorf("scoring: weights must sum to 1.0, got %v", sum)
	}

	targets := map[string]int{
		"posts":           t.Posts,
		"owner photos":    t.OwnerPhotos,
		"customer photos": t.CustomerPhotos,
		"recent reviews":  t.RecentReviews,
		"review volume":   t.ReviewVolume,
		"attributes":      t.Attributes,
	}
	for name, v := range targets {
		if v < 1 {
			return nil, fmt.Errorf("scoring: %s target must be at least 1, got %d", name, v)
		}
	}

	return &Engine{weights: w, targets: t, logger: logger}, nil
}

// Score computes the weighted health score. Every subscore lands in [0,10];
// missing signals score 0 for their component and nothing more.
func (e *Engine) Score(in Inputs) domain.ScoreResult {
	if in.Rating == 0 {
		e.logger.Debug("no rating on record, star rating scores zero")
	}
	if in.AttributesCount == 0 {
		e.logger.Debug("no attributes on record, profile completeness starts at zero")
	}

	subs := []domain.SubScore{
		{Name: NamePostsRecency, Value: ratioOf(in.RecentPostCount, e.targets.Posts), Weight: e.weights.Posts},
		{Name: NamePhotoBalance, Value: e.photoBalance(in), Weight: e.weights.Photos},
		{Name: NameReviewRecency, Value: ratioOf(in.RecentReviewCount, e.targets.RecentReviews), Weight: e.weights.ReviewRecency},
		{Name: NameStarRating, Value: clamp(in.Rating/5.0*10.0, 0, 10), Weight: e.weights.Rating},
		{Name: NameReviewVolume, Value: ratioOf(in.ReviewsCount, e.targets.ReviewVolume), Weight: e.weights.ReviewVolume},
		{Name: NameProfile, Value: e.profileScore(in), Weight: e.weights.Profile},
		{Name: NameContact, Value: contactScore(in), Weight: e.weights.Contact},
	}

	total := 0.0
	for _, s := range subs {
		total += s.Value * s.Weight
	}

	return domain.ScoreResult{
		FinalScore: roundToTenth(clamp(total, 0, 10)),
		SubScores:  subs,
	}
}

// photoBalance averages owner and customer sides so one flood of photos
// cannot mask the other side being empty.
func (e *Engine) photoBalance(in Inputs) float64 {
	owner := ratioOf(in.OwnerPhotoCount, e.targets.OwnerPhotos)
	customer := ratioOf(in.CustomerPhotoCount, e.targets.CustomerPhotos)
	return (owner + customer) / 2
}

func (e *Engine) profileScore(in Inputs) float64 {
	score := ratioOf(in.AttributesCount, e.targets.Attributes)
	if in.HasDescription {
		score += e.targets.DescriptionBonus
	}
	return clamp(score, 0, 10)
}

func contactScore(in Inputs) float64 {
	present := 0
	for _, ok := range []bool{in.HasName, in.HasAddress, in.HasPhone, in.HasWebsite} {
		if ok {
			present++
		}
	}
	return float64(present) / 4.0 * 10.0
}

// ratioOf normalizes a count against its target onto the 0-10 scale,
// saturating at the target.
func ratioOf(count, target int) float64 {
	if count <= 0 {
		return 0
	}
	r := float64(count) / float64(target)
	if r > 1 {
		r = 1
	}
	return r * 10
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}

// roundToTenth rounds half away from zero to one decimal place.
func roundToTenth(v float64) float64 {
	return math.Round(v*10) / 10
}
