package provider

// RawListing is the provider's view of one listing before normalization.
// Every field the provider may omit is a pointer or a slice so absence stays
// distinguishable from a zero value.
type RawListing struct {
	PlaceID     *string               `json:"place_id"`
	Title       *string               `json:"title"`
	Address     *string               `json:"address"`
	Phone       *string               `json:"phone"`
	Website     *string               `json:"website"`
	Description *string               `json:"description"`
	Rating      *float64              `json:"rating"`
	Reviews     *int                  `json:"reviews"`
	Extensions  []map[string][]string `json:"extensions,omitempty"`
	Profiles    []RawProfile          `json:"profiles,omitempty"`
	Posts       []RawPost             `json:"posts,omitempty"`
	UserReviews []RawReview           `json:"user_reviews,omitempty"`
	Images      []RawImage            `json:"images,omitempty"`
}

// RawProfile is one social profile link from the listing or the knowledge
// panel.
type RawProfile struct {
	Name *string `json:"name"`
	Link *string `json:"link"`
}

// RawPost is one listing update post. PostedAt keeps the provider's native
// formatting, absolute or relative.
type RawPost struct {
	Title    *string `json:"title"`
	PostedAt *string `json:"posted_at"`
}

// RawReview is one review entry. Only the date matters to scoring.
type RawReview struct {
	Date   *string  `json:"date"`
	Rating *float64 `json:"rating"`
}

// RawImage is one listing photo reference.
type RawImage struct {
	Title *string `json:"title"`
	Image *string `json:"image"`
}

type searchResponse struct {
	PlaceResults *RawListing  `json:"place_results"`
	LocalResults []RawListing `json:"local_results"`
	Error        string       `json:"error"`
}

type reviewsResponse struct {
	Reviews    []RawReview `json:"reviews"`
	Pagination struct {
		NextPageToken string `json:"next_page_token"`
	} `json:"serpapi_pagination"`
	Error string `json:"error"`
}

type postsResponse struct {
	Posts []RawPost `json:"posts"`
	Error string    `json:"error"`
}

type knowledgeResponse struct {
	KnowledgeGraph struct {
		Profiles []RawProfile `json:"profiles"`
	} `json:"knowledge_graph"`
	Error string `json:"error"`
}
