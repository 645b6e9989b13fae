package search

import (
	"context"
	"errors"
	"sort"
	"time"

	"search-engine/domain"
	"search-engine/logger"

	"github.com/jackc/pgx/v5/pgconn"
)

const newsBonus = 8.0

// Store is the candidate retrieval surface the service queries.
type Store interface {
	WebCandidates(ctx context.Context, terms []string, limit int) ([]domain.WebCandidate, error)
	WebCandidatesASCII(ctx context.Context, terms []string, limit int) ([]domain.WebCandidate, error)
	NewsCandidates(ctx context.Context, terms []string, limit int) ([]domain.NewsCandidate, error)
}

// Service executes web and news searches.
type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

// Search runs the web and news searches for one query and combines
// them into a single response.
func (s *Service) Search(ctx context.Context, q string, limit, offset int) (domain.SearchResponse, error) {
	resp := domain.SearchResponse{
		Results: domain.SearchResults{
			Web:  []domain.WebSearchItem{},
			News: []domain.NewsSearchItem{},
		},
	}

	qc := newQueryContext(q, limit, offset)
	if qc == nil {
		return resp, nil
	}

	web, webCount, err := s.webSearch(ctx, qc, limit, offset)
	if err != nil {
		return resp, err
	}
	news, newsCount, err := s.newsSearch(ctx, qc, limit, offset)
	if err != nil {
		return resp, err
	}

	resp.Results.Web = web
	resp.Results.News = news
	resp.Count = webCount + newsCount
	return resp, nil
}

func (s *Service) webSearch(ctx context.Context, qc *queryContext, limit, offset int) ([]domain.WebSearchItem, int, error) {
	candidates, err := s.store.WebCandidates(ctx, qc.terms, qc.candidateLimit)
	if err != nil {
		if !isEncodingError(err) {
			return nil, 0, err
		}
		logger.Logger.Warn("web search hit undecodable rows, retrying with ascii encoding", "error", err)
		return s.webSearchASCII(ctx, qc, limit, offset)
	}

	ranked := make([]domain.WebSearchItem, 0, len(candidates))
	for _, c := range candidates {
		ranked = append(ranked, domain.WebSearchItem{
			Title:       c.Title,
			Description: c.Description,
			URL:         c.URL,
			Score:       qc.intentScore(c.TokenScore, c.MatchedTerms, c.Title, c.Description, c.URL),
		})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].URL < ranked[j].URL
	})

	page := pageOf(ranked, offset, limit)
	return page, approximateCount(len(ranked), offset, len(page)), nil
}

// webSearchASCII is the degraded path for corpora holding rows the
// normal decode rejects. Only numeric columns survive, so results are
// skeletons ranked by the damped base and coverage score alone.
func (s *Service) webSearchASCII(ctx context.Context, qc *queryContext, limit, offset int) ([]domain.WebSearchItem, int, error) {
	candidates, err := s.store.WebCandidatesASCII(ctx, qc.terms, qc.candidateLimit)
	if err != nil {
		return nil, 0, err
	}

	ranked := make([]domain.WebSearchItem, 0, len(candidates))
	for _, c := range candidates {
		ranked = append(ranked, domain.WebSearchItem{
			Score: baseScore(c.TokenScore) + qc.coverageBonus(c.MatchedTerms),
		})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})

	page := pageOf(ranked, offset, limit)
	return page, approximateCount(len(ranked), offset, len(page)), nil
}

func (s *Service) newsSearch(ctx context.Context, qc *queryContext, limit, offset int) ([]domain.NewsSearchItem, int, error) {
	candidates, err := s.store.NewsCandidates(ctx, qc.terms, qc.candidateLimit)
	if err != nil {
		return nil, 0, err
	}

	ranked := make([]domain.NewsSearchItem, 0, len(candidates))
	for _, c := range candidates {
		item := domain.NewsSearchItem{
			Title:       c.Title,
			Description: c.Description,
			URL:         c.URL,
			Score:       qc.intentScore(c.TokenScore, c.MatchedTerms, c.Title, c.Description, c.URL) + newsBonus,
			Feed:        feedView(c.Feed),
			PublishedAt: c.PublishedAt,
		}
		if c.Author != "" {
			author := c.Author
			item.Author = &author
		}
		ranked = append(ranked, item)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].URL < ranked[j].URL
	})

	page := pageOf(ranked, offset, limit)
	return page, approximateCount(len(ranked), offset, len(page)), nil
}

func feedView(feed *domain.NewsFeed) *domain.NewsFeedView {
	if feed == nil {
		return nil
	}
	rate := feed.PublishRatePerHour
	return &domain.NewsFeedView{
		FeedURL:            strPtr(feed.FeedURL),
		HomeURL:            strPtr(feed.HomeURL),
		Name:               strPtr(feed.Name),
		Link:               strPtr(feed.Link),
		Image:              strPtr(feed.Image),
		DiscoveredByURL:    strPtr(feed.DiscoveredByURL),
		LastPublished:      timePtr(feed.LastPublished),
		LastFetched:        timePtr(feed.LastFetched),
		NextFetchAt:        timePtr(feed.NextFetchAt),
		PublishRatePerHour: &rate,
	}
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func timePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	formatted := t.Format(time.RFC3339)
	return &formatted
}

func pageOf[T any](items []T, offset, limit int) []T {
	if offset >= len(items) {
		return []T{}
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}

// approximateCount reports at least as many results as the caller has
// already seen through paging.
func approximateCount(ranked, offset, pageLen int) int {
	if seen := offset + pageLen; seen > ranked {
		return seen
	}
	return ranked
}

// Postgres raises SQLSTATE 22021 when a stored value cannot be encoded
// for the client.
func isEncodingError(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "22021"
}
