package domain

import "time"

// UploaderVerdict is the provenance assigned to a single photo.
type UploaderVerdict string

const (
	VerdictOwner    UploaderVerdict = "owner"
	VerdictCustomer UploaderVerdict = "customer"
	VerdictUnknown  UploaderVerdict = "unknown"
)

// BusinessRecord is the normalized view of one listing. It is built once by
// the normalizer and treated as read-only by everything downstream.
type BusinessRecord struct {
	PlaceID          string            `json:"place_id"`
	Title            string            `json:"title"`
	Address          string            `json:"address"`
	Phone            string            `json:"phone"`
	Website          string            `json:"website"`
	Description      string            `json:"description"`
	AttributesCount  int               `json:"attributes_count"`
	Rating           float64           `json:"rating"`
	ReviewsCount     int               `json:"reviews_count"`
	SocialLinks      map[string]string `json:"social_links,omitempty"`
	PostTimestamps   []string          `json:"post_timestamps,omitempty"`
	ReviewTimestamps []string          `json:"review_timestamps,omitempty"`
	PhotoURLs        []string          `json:"photo_urls,omitempty"`
}

// PhotoUnit is a single photo handed to the attribution pool. Index is the
// photo's position in the listing's original ordering.
type PhotoUnit struct {
	URL   string
	Index int
}

// AttributionSummary tallies the verdicts for one analysis run.
// OwnerCount + CustomerCount + UnknownCount always equals TotalAnalyzed.
type AttributionSummary struct {
	OwnerCount    int `json:"owner_count"`
	CustomerCount int `json:"customer_count"`
	UnknownCount  int `json:"unknown_count"`
	TotalAnalyzed int `json:"total_analyzed"`
}

// Add folds one verdict into the summary.
func (s *AttributionSummary) Add(v UploaderVerdict) {
	switch v {
	case VerdictOwner:
		s.OwnerCount++
	case VerdictCustomer:
		s.CustomerCount++
	default:
		s.UnknownCount++
	}
	s.TotalAnalyzed++
}

// SubScore is one weighted component of the final score. Value is on the
// 0-10 scale before weighting.
type SubScore struct {
	Name   string  `json:"name"`
	Value  float64 `json:"value"`
	Weight float64 `json:"weight"`
}

// ScoreResult is the scoring engine's output: the 0-10 final score rounded
// to one decimal plus the ordered component breakdown.
type ScoreResult struct {
	FinalScore float64    `json:"final_score"`
	SubScores  []SubScore `json:"sub_scores"`
}

// AnalysisBundle is the full outcome of one pipeline run: what was analyzed,
// what the photos looked like, and how the listing scored.
type AnalysisBundle struct {
	RunID             string             `json:"run_id"`
	Business          BusinessRecord     `json:"business"`
	Attribution       AttributionSummary `json:"attribution"`
	RecentPostCount   int                `json:"recent_post_count"`
	RecentReviewCount int                `json:"recent_review_count"`
	Score             ScoreResult        `json:"score"`
	Narrative         string             `json:"narrative,omitempty"`
	AnalyzedAt        time.Time          `json:"analyzed_at"`
}
