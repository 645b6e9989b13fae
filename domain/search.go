package domain

// WebCandidate is one scored row from the web candidate query.
type WebCandidate struct {
	Title        string
	Description  string
	URL          string
	TokenScore   float64
	MatchedTerms int
}

// NewsCandidate is one scored row from the news candidate query,
// with its feed metadata joined in.
type NewsCandidate struct {
	Title        string
	Description  string
	URL          string
	TokenScore   float64
	MatchedTerms int
	Feed         *NewsFeed
	Author       string
	PublishedAt  *string
}

type WebSearchItem struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	URL         string  `json:"url"`
	Score       float64 `json:"score"`
}

type NewsFeedView struct {
	FeedURL            *string  `json:"feed_url"`
	HomeURL            *string  `json:"home_url"`
	Name               *string  `json:"name"`
	Link               *string  `json:"link"`
	Image              *string  `json:"image"`
	DiscoveredByURL    *string  `json:"discovered_by_url"`
	LastPublished      *string  `json:"last_published"`
	LastFetched        *string  `json:"last_fetched"`
	NextFetchAt        *string  `json:"next_fetch_at"`
	PublishRatePerHour *float64 `json:"publish_rate_per_hour"`
}

type NewsSearchItem struct {
	Title       string        `json:"title"`
	Description string        `json:"description"`
	URL         string        `json:"url"`
	Score       float64       `json:"score"`
	Feed        *NewsFeedView `json:"feed"`
	Author      *string       `json:"author"`
	PublishedAt *string       `json:"published_at"`
}

type SearchResults struct {
	Web  []WebSearchItem  `json:"web"`
	News []NewsSearchItem `json:"news"`
}

type SearchResponse struct {
	Results SearchResults `json:"results"`
	Count   int           `json:"count"`
}
