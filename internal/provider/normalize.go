package provider

import (
	"strings"

	"github.com/Andrew-Sencil/GBP/internal/domain"
)

// Overrides are caller-supplied values that trump whatever the provider
// returned. Nil means "keep the fetched value".
type Overrides struct {
	Address      *string
	Phone        *string
	Rating       *float64
	ReviewsCount *int
}

// Normalize turns a raw provider payload into the canonical BusinessRecord.
// It fails only when the payload identifies nothing: both title and place ID
// absent or blank. Every other gap defaults to a zero value.
func Normalize(raw *RawListing) (*domain.BusinessRecord, error) {
	title := derefTrim(raw.Title)
	placeID := derefTrim(raw.PlaceID)
	if title == "" && placeID == "" {
		return nil, domain.NewAcquisitionError("payload carries neither title nor place id", nil)
	}

	rec := &domain.BusinessRecord{
		PlaceID:         placeID,
		Title:           title,
		Address:         derefTrim(raw.Address),
		Phone:           derefTrim(raw.Phone),
		Website:         derefTrim(raw.Website),
		Description:     derefTrim(raw.Description),
		AttributesCount: countAttributes(raw.Extensions),
		Rating:          clampRating(deref(raw.Rating)),
		ReviewsCount:    floorZero(deref(raw.Reviews)),
		SocialLinks:     collectSocials(raw.Profiles),
	}

	for _, post := range raw.Posts {
		if ts := derefTrim(post.PostedAt); ts != "" {
			rec.PostTimestamps = append(rec.PostTimestamps, ts)
		}
	}
	for _, review := range raw.UserReviews {
		if ts := derefTrim(review.Date); ts != "" {
			rec.ReviewTimestamps = append(rec.ReviewTimestamps, ts)
		}
	}
	for _, img := range raw.Images {
		if u := derefTrim(img.Image); u != "" {
			rec.PhotoURLs = append(rec.PhotoURLs, u)
		}
	}

	return rec, nil
}

// ApplyOverrides rewrites the record with caller-supplied values, keeping
// the same clamping rules normalization applies.
func ApplyOverrides(rec *domain.BusinessRecord, o Overrides) {
	if o.Address != nil {
		rec.Address = strings.TrimSpace(*o.Address)
	}
	if o.Phone != nil {
		rec.Phone = strings.TrimSpace(*o.Phone)
	}
	if o.Rating != nil {
		rec.Rating = clampRating(*o.Rating)
	}
	if o.ReviewsCount != nil {
		rec.ReviewsCount = floorZero(*o.ReviewsCount)
	}
}

// collectSocials dedupes profile links by platform name. Later entries win
// so a knowledge-panel refresh replaces stale listing links.
func collectSocials(profiles []RawProfile) map[string]string {
	if len(profiles) == 0 {
		return nil
	}
	links := make(map[string]string)
	for _, p := range profiles {
		name := strings.ToLower(derefTrim(p.Name))
		link := derefTrim(p.Link)
		if name == "" || link == "" {
			continue
		}
		links[name] = link
	}
	if len(links) == 0 {
		return nil
	}
	return links
}

// countAttributes counts the populated attribute values across all
// extension groups.
func countAttributes(groups []map[string][]string) int {
	count := 0
	for _, group := range groups {
		for _, values := range group {
			count += len(values)
		}
	}
	return count
}

func deref[T any](p *T) T {
	if p == nil {
		var zero T
		return zero
	}
	return *p
}

func derefTrim(p *string) string {
	if p == nil {
		return ""
	}
	return strings.TrimSpace(*p)
}

func clampRating(r float64) float64 {
	if r < 0 {
		return 0
	}
	if r > 5 {
		return 5
	}
	return r
}

func floorZero(n int) int {
	if n < 0 {
		return 0
	}
	return n
}
