// Package provider fetches raw listing payloads from the map-search data
// provider and normalizes them into BusinessRecords.
package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/Andrew-Sencil/GBP/internal/domain"
)

// Client talks to the provider's search API. One instance is shared across
// runs; it holds no per-run state.
type Client struct {
	baseURL    string
	apiKey     string
	pageLimit  int
	httpClient *http.Client
	logger     *zap.Logger
}

func NewClient(baseURL, apiKey string, timeout time.Duration, pageLimit int, logger *zap.Logger) *Client {
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		pageLimit:  pageLimit,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// FetchByQuery looks a listing up by free-text query and enriches it with
// reviews, posts and social profiles.
func (c *Client) FetchByQuery(ctx context.Context, query string) (*RawListing, error) {
	params := url.Values{}
	params.Set("engine", "google_maps")
	params.Set("q", query)
	return c.fetchListing(ctx, params)
}

// FetchByPlaceID looks a listing up by its provider place ID.
func (c *Client) FetchByPlaceID(ctx context.Context, placeID string) (*RawListing, error) {
	params := url.Values{}
	params.Set("engine", "google_maps")
	params.Set("place_id", placeID)
	return c.fetchListing(ctx, params)
}

func (c *Client) fetchListing(ctx context.Context, params url.Values) (*RawListing, error) {
	var resp searchResponse
	if err := c.get(ctx, params, &resp); err != nil {
		return nil, err
	}
	if resp.Error != "" {
		return nil, domain.NewAcquisitionError("provider rejected search", fmt.Errorf("%s", resp.Error))
	}

	listing := resp.PlaceResults
	if listing == nil {
		if len(resp.LocalResults) == 0 {
			return nil, domain.ErrListingNotFound
		}
		listing = &resp.LocalResults[0]
	}

	c.enrich(ctx, listing)
	return listing, nil
}

// enrich fills in the review history, post history and social profiles the
// search payload does not carry. Enrichment failures are logged and leave
// the listing partially filled; the search result alone is enough to score.
func (c *Client) enrich(ctx context.Context, listing *RawListing) {
	placeID := ""
	if listing.PlaceID != nil {
		placeID = *listing.PlaceID
	}
	if placeID != "" {
		reviews, err := c.fetchReviews(ctx, placeID)
		if err != nil {
			c.logger.Warn("review history fetch failed", zap.String("place_id", placeID), zap.Error(err))
		} else {
			listing.UserReviews = append(listing.UserReviews, reviews...)
		}

		posts, err := c.fetchPosts(ctx, placeID)
		if err != nil {
			c.logger.Warn("post history fetch failed", zap.String("place_id", placeID), zap.Error(err))
		} else {
			listing.Posts = append(listing.Posts, posts...)
		}
	}

	if len(listing.Profiles) == 0 && listing.Title != nil && *listing.Title != "" {
		profiles, err := c.fetchKnowledgeProfiles(ctx, *listing.Title)
		if err != nil {
			c.logger.Warn("knowledge panel fetch failed", zap.String("title", *listing.Title), zap.Error(err))
		} else {
			listing.Profiles = profiles
		}
	}
}

// fetchReviews pages through the review feed until the provider stops
// handing out tokens or the page limit is reached.
func (c *Client) fetchReviews(ctx context.Context, placeID string) ([]RawReview, error) {
	var all []RawReview
	token := ""
	for page := 0; page < c.pageLimit; page++ {
		params := url.Values{}
		params.Set("engine", "google_maps_reviews")
		params.Set("place_id", placeID)
		params.Set("sort_by", "newestFirst")
		if token != "" {
			params.Set("next_page_token", token)
		}

		var resp reviewsResponse
		if err := c.get(ctx, params, &resp); err != nil {
			return all, err
		}
		if resp.Error != "" {
			return all, fmt.Errorf("provider rejected reviews page %d: %s", page, resp.Error)
		}

		all = append(all, resp.Reviews...)
		token = resp.Pagination.NextPageToken
		if token == "" {
			break
		}
	}
	return all, nil
}

func (c *Client) fetchPosts(ctx context.Context, placeID string) ([]RawPost, error) {
	params := url.Values{}
	params.Set("engine", "google_maps_posts")
	params.Set("place_id", placeID)

	var resp postsResponse
	if err := c.get(ctx, params, &resp); err != nil {
		return nil, err
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("provider rejected posts: %s", resp.Error)
	}
	return resp.Posts, nil
}

// fetchKnowledgeProfiles is the fallback social lookup when the listing
// payload carries no profile links.
func (c *Client) fetchKnowledgeProfiles(ctx context.Context, title string) ([]RawProfile, error) {
	params := url.Values{}
	params.Set("engine", "knowledge_graph")
	params.Set("q", title)

	var resp knowledgeResponse
	if err := c.get(ctx, params, &resp); err != nil {
		return nil, err
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("provider rejected knowledge lookup: %s", resp.Error)
	}
	return resp.KnowledgeGraph.Profiles, nil
}

func (c *Client) get(ctx context.Context, params url.Values, out any) error {
	params.Set("api_key", c.apiKey)
	endpoint := fmt.Sprintf("%s/search.json?%s", c.baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return domain.NewAcquisitionError("building provider request", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.NewAcquisitionError("calling provider", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.NewAcquisitionError(
			fmt.Sprintf("provider returned status %d", resp.StatusCode), nil)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return domain.NewAcquisitionError("decoding provider response", err)
	}
	return nil
}
