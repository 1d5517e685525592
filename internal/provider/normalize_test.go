package provider

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Andrew-Sencil/GBP/internal/domain"
)

func strPtr(s string) *string     { return &s }
func floatPtr(f float64) *float64 { return &f }
func intPtr(n int) *int           { return &n }

func TestNormalizeRequiresIdentity(t *testing.T) {
	tests := []struct {
		name    string
		raw     *RawListing
		wantErr bool
	}{
		{"both missing", &RawListing{}, true},
		{"both blank", &RawListing{Title: strPtr("  "), PlaceID: strPtr("")}, true},
		{"title only", &RawListing{Title: strPtr("Joe's Diner")}, false},
		{"place id only", &RawListing{PlaceID: strPtr("ChIJabc123")}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := Normalize(tt.raw)
			if tt.wantErr {
				require.Error(t, err)
				var acqErr *domain.AcquisitionError
				assert.True(t, errors.As(err, &acqErr))
				return
			}
			require.NoError(t, err)
			require.NotNil(t, rec)
		})
	}
}

func TestNormalizeDefaultsMissingFields(t *testing.T) {
	rec, err := Normalize(&RawListing{Title: strPtr("Joe's Diner")})
	require.NoError(t, err)

	assert.Equal(t, "Joe's Diner", rec.Title)
	assert.Empty(t, rec.PlaceID)
	assert.Empty(t, rec.Address)
	assert.Empty(t, rec.Phone)
	assert.Empty(t, rec.Website)
	assert.Empty(t, rec.Description)
	assert.Zero(t, rec.Rating)
	assert.Zero(t, rec.ReviewsCount)
	assert.Zero(t, rec.AttributesCount)
	assert.Nil(t, rec.SocialLinks)
	assert.Empty(t, rec.PhotoURLs)
}

func TestNormalizeClampsNumbers(t *testing.T) {
	rec, err := Normalize(&RawListing{
		Title:   strPtr("Joe's Diner"),
		Rating:  floatPtr(7.2),
		Reviews: intPtr(-4),
	})
	require.NoError(t, err)
	assert.Equal(t, 5.0, rec.Rating)
	assert.Zero(t, rec.ReviewsCount)

	rec, err = Normalize(&RawListing{
		Title:  strPtr("Joe's Diner"),
		Rating: floatPtr(-1.0),
	})
	require.NoError(t, err)
	assert.Zero(t, rec.Rating)
}

func TestNormalizeSocialDedup(t *testing.T) {
	raw := &RawListing{
		Title: strPtr("Joe's Diner"),
		Profiles: []RawProfile{
			{Name: strPtr("Facebook"), Link: strPtr("https://facebook.com/old")},
			{Name: strPtr("Instagram"), Link: strPtr("https://instagram.com/joes")},
			{Name: strPtr("facebook"), Link: strPtr("https://facebook.com/new")},
			{Name: strPtr(""), Link: strPtr("https://nowhere.example")},
			{Name: strPtr("X"), Link: nil},
		},
	}

	rec, err := Normalize(raw)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"facebook":  "https://facebook.com/new",
		"instagram": "https://instagram.com/joes",
	}, rec.SocialLinks)
}

func TestNormalizeCollectsTimestampsAndPhotos(t *testing.T) {
	raw := &RawListing{
		Title: strPtr("Joe's Diner"),
		Posts: []RawPost{
			{PostedAt: strPtr("3 days ago")},
			{PostedAt: strPtr("")},
			{PostedAt: nil},
			{PostedAt: strPtr("2025-05-01")},
		},
		UserReviews: []RawReview{
			{Date: strPtr("a week ago")},
			{Date: nil},
		},
		Images: []RawImage{
			{Image: strPtr("https://photos.example/1.jpg")},
			{Image: strPtr(" ")},
			{Image: strPtr("https://photos.example/2.jpg")},
		},
	}

	rec, err := Normalize(raw)
	require.NoError(t, err)
	assert.Equal(t, []string{"3 days ago", "2025-05-01"}, rec.PostTimestamps)
	assert.Equal(t, []string{"a week ago"}, rec.ReviewTimestamps)
	assert.Equal(t, []string{"https://photos.example/1.jpg", "https://photos.example/2.jpg"}, rec.PhotoURLs)
}

func TestNormalizeCountsAttributes(t *testing.T) {
	raw := &RawListing{
		Title: strPtr("Joe's Diner"),
		Extensions: []map[string][]string{
			{"service_options": {"dine_in", "takeout", "delivery"}},
			{"accessibility": {"wheelchair_entrance"}, "payments": {"credit_cards", "nfc"}},
		},
	}
	rec, err := Normalize(raw)
	require.NoError(t, err)
	assert.Equal(t, 6, rec.AttributesCount)
}

func TestApplyOverrides(t *testing.T) {
	rec := &domain.BusinessRecord{
		Title:        "Joe's Diner",
		Address:      "1 Old Rd",
		Phone:        "555-0100",
		Rating:       4.0,
		ReviewsCount: 50,
	}

	ApplyOverrides(rec, Overrides{
		Address: strPtr("2 New Ave "),
		Rating:  floatPtr(9.0),
	})

	assert.Equal(t, "2 New Ave", rec.Address)
	assert.Equal(t, "555-0100", rec.Phone)
	assert.Equal(t, 5.0, rec.Rating, "override ratings clamp like fetched ones")
	assert.Equal(t, 50, rec.ReviewsCount)
}
