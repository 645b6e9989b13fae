package domain

import "time"

type NewsFeed struct {
	FeedURL            string
	HomeURL            string
	Name               string
	Link               string
	Image              string
	DiscoveredByURL    string
	LastPublished      *time.Time
	LastFetched        *time.Time
	NextFetchAt        *time.Time
	PublishRatePerHour float64
}

type NewsArticle struct {
	URL         string
	FeedURL     string
	Title       string
	Description string
	Image       string
	Content     string
	Author      string
	PublishedAt *time.Time
	UpdatedAt   *time.Time
}
