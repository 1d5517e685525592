package provider

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Andrew-Sencil/GBP/internal/domain"
)

// fakeProvider routes requests by engine the way the real endpoint does and
// records what was asked of it.
type fakeProvider struct {
	mu          sync.Mutex
	reviewPages int
	postCalls   int
	kgCalls     int
	searches    []map[string]string
}

func (f *fakeProvider) handler(t *testing.T, listing RawListing, reviewPageCount int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()

		q := r.URL.Query()
		require.NotEmpty(t, q.Get("api_key"))

		switch q.Get("engine") {
		case "google_maps":
			f.searches = append(f.searches, map[string]string{
				"q": q.Get("q"), "place_id": q.Get("place_id"),
			})
			json.NewEncoder(w).Encode(searchResponse{PlaceResults: &listing})
		case "google_maps_reviews":
			f.reviewPages++
			resp := reviewsResponse{
				Reviews: []RawReview{{Date: strPtr("a week ago")}, {Date: strPtr("2 months ago")}},
			}
			if f.reviewPages < reviewPageCount {
				resp.Pagination.NextPageToken = "tok"
			}
			json.NewEncoder(w).Encode(resp)
		case "google_maps_posts":
			f.postCalls++
			json.NewEncoder(w).Encode(postsResponse{Posts: []RawPost{{PostedAt: strPtr("3 days ago")}}})
		case "knowledge_graph":
			f.kgCalls++
			resp := knowledgeResponse{}
			resp.KnowledgeGraph.Profiles = []RawProfile{
				{Name: strPtr("Instagram"), Link: strPtr("https://instagram.com/joes")},
			}
			json.NewEncoder(w).Encode(resp)
		default:
			t.Errorf("unexpected engine %q", q.Get("engine"))
		}
	}
}

func newTestClient(serverURL string) *Client {
	return NewClient(serverURL, "test-key", 5*time.Second, 3, zap.NewNop())
}

func TestFetchByPlaceIDEnriches(t *testing.T) {
	fake := &fakeProvider{}
	listing := RawListing{
		PlaceID: strPtr("ChIJ123"),
		Title:   strPtr("Joe's Diner"),
		Profiles: []RawProfile{
			{Name: strPtr("Facebook"), Link: strPtr("https://facebook.com/joes")},
		},
	}
	srv := httptest.NewServer(fake.handler(t, listing, 2))
	defer srv.Close()

	got, err := newTestClient(srv.URL).FetchByPlaceID(context.Background(), "ChIJ123")
	require.NoError(t, err)

	assert.Equal(t, "ChIJ123", *got.PlaceID)
	assert.Len(t, got.UserReviews, 4, "two pages of two reviews each")
	assert.Len(t, got.Posts, 1)
	assert.Equal(t, 2, fake.reviewPages)
	assert.Equal(t, 1, fake.postCalls)
	assert.Zero(t, fake.kgCalls, "profiles present, no knowledge fallback")
	assert.Equal(t, "ChIJ123", fake.searches[0]["place_id"])
}

func TestFetchReviewsHonorsPageLimit(t *testing.T) {
	fake := &fakeProvider{}
	listing := RawListing{PlaceID: strPtr("ChIJ123"), Title: strPtr("Joe's Diner"),
		Profiles: []RawProfile{{Name: strPtr("Facebook"), Link: strPtr("https://facebook.com/joes")}}}
	// The fake would keep paging forever; the client must stop at its limit.
	srv := httptest.NewServer(fake.handler(t, listing, 1000))
	defer srv.Close()

	got, err := newTestClient(srv.URL).FetchByPlaceID(context.Background(), "ChIJ123")
	require.NoError(t, err)
	assert.Equal(t, 3, fake.reviewPages)
	assert.Len(t, got.UserReviews, 6)
}

func TestFetchByQueryKnowledgeFallback(t *testing.T) {
	fake := &fakeProvider{}
	listing := RawListing{PlaceID: strPtr("ChIJ123"), Title: strPtr("Joe's Diner")}
	srv := httptest.NewServer(fake.handler(t, listing, 1))
	defer srv.Close()

	got, err := newTestClient(srv.URL).FetchByQuery(context.Background(), "joes diner oakland")
	require.NoError(t, err)

	assert.Equal(t, 1, fake.kgCalls)
	require.Len(t, got.Profiles, 1)
	assert.Equal(t, "Instagram", *got.Profiles[0].Name)
	assert.Equal(t, "joes diner oakland", fake.searches[0]["q"])
}

func TestFetchListingNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(searchResponse{})
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).FetchByQuery(context.Background(), "nowhere")
	assert.ErrorIs(t, err, domain.ErrListingNotFound)
}

func TestFetchListingProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(searchResponse{Error: "invalid api key"})
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).FetchByQuery(context.Background(), "joes diner")
	require.Error(t, err)
	var acqErr *domain.AcquisitionError
	assert.True(t, errors.As(err, &acqErr))
}

func TestFetchListingBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).FetchByQuery(context.Background(), "joes diner")
	require.Error(t, err)
	var acqErr *domain.AcquisitionError
	assert.True(t, errors.As(err, &acqErr))
}

func TestEnrichmentFailureIsNotFatal(t *testing.T) {
	var searched bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("engine") == "google_maps" {
			searched = true
			json.NewEncoder(w).Encode(searchResponse{PlaceResults: &RawListing{
				PlaceID: strPtr("ChIJ123"), Title: strPtr("Joe's Diner"),
				Profiles: []RawProfile{{Name: strPtr("Facebook"), Link: strPtr("https://facebook.com/joes")}},
			}})
			return
		}
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	got, err := newTestClient(srv.URL).FetchByPlaceID(context.Background(), "ChIJ123")
	require.NoError(t, err)
	assert.True(t, searched)
	assert.Empty(t, got.UserReviews)
	assert.Empty(t, got.Posts)
}
