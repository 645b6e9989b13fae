package crawler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"search-engine/domain"
	"search-engine/logger"
	"search-engine/ratelimit"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	logger.Init()
}

type fakeStore struct {
	statuses    map[string]string
	saved       []*domain.Document
	savedTokens [][]domain.TokenGroup
	feeds       []string
	newsURLs    map[string]bool
	backfilled  map[string]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		statuses:   map[string]string{},
		newsURLs:   map[string]bool{},
		backfilled: map[string]string{},
	}
}

func (f *fakeStore) Claim(ctx context.Context, limit int) ([]domain.QueueItem, error) {
	return nil, nil
}

func (f *fakeStore) MarkStatus(ctx context.Context, url, status string) error {
	f.statuses[url] = status
	return nil
}

func (f *fakeStore) SaveCrawledDocument(ctx context.Context, doc *domain.Document, tokens []domain.TokenGroup, outlinks []string) (int64, error) {
	f.saved = append(f.saved, doc)
	f.savedTokens = append(f.savedTokens, tokens)
	return int64(len(f.saved)), nil
}

func (f *fakeStore) RegisterFeed(ctx context.Context, feedURL, homeURL, discoveredBy string) error {
	f.feeds = append(f.feeds, feedURL)
	return nil
}

func (f *fakeStore) IsNewsArticle(ctx context.Context, url string) (bool, error) {
	return f.newsURLs[url], nil
}

func (f *fakeStore) BackfillArticleContent(ctx context.Context, url, content string) (bool, error) {
	f.backfilled[url] = content
	return true, nil
}

func newTestWorker(store Store) *Worker {
	fetcher := NewFetcher("test-agent/1.0", 5*time.Second)
	limiter := ratelimit.NewDomainLimiter(1000)
	return NewWorker(store, fetcher, limiter, 2, 4)
}

func TestWorkerProcess_StateMachine(t *testing.T) {
	validBody := `<html><head><title>Title</title>
		<meta name="description" content="Desc here"></head><body><article><p>` +
		strings.Repeat("substantial body content ", 20) +
		`</p></article><a href="/next">next</a></body></html>`

	mux := http.NewServeMux()
	mux.HandleFunc("/ok", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(validBody))
	})
	mux.HandleFunc("/gone", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	mux.HandleFunc("/feed", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(`<rss version="2.0"></rss>`))
	})
	mux.HandleFunc("/binary", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
	})
	mux.HandleFunc("/thin", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><head><title>t</title></head><body>tiny</body></html>`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	tests := []struct {
		name       string
		path       string
		wantStatus string
	}{
		{"valid page is done", "/ok", domain.StatusDone},
		{"http 404 is non-success", "/gone", domain.StatusNonSuccessStatus},
		{"feed is registered and done", "/feed", domain.StatusDone},
		{"non-html is processing error", "/binary", domain.StatusProcessingError},
		{"thin page is validation error", "/thin", domain.StatusValidationError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeStore()
			worker := newTestWorker(store)
			url := srv.URL + tt.path

			worker.Process(context.Background(), domain.QueueItem{URL: url})

			assert.Equal(t, tt.wantStatus, store.statuses[url])
		})
	}
}

func TestWorkerProcess_FetchFault(t *testing.T) {
	store := newFakeStore()
	worker := newTestWorker(store)
	url := "http://127.0.0.1:1/unreachable"

	worker.Process(context.Background(), domain.QueueItem{URL: url})

	assert.Equal(t, domain.StatusProcessingError, store.statuses[url])
}

func TestWorkerProcess_PersistsDocumentAndTokens(t *testing.T) {
	body := `<html><head><title>Go Concurrency Patterns</title>
		<meta name="description" content="Pipelines and cancellation"></head>
		<body><article><p>` + strings.Repeat("worker pools and pipelines ", 20) + `</p></article></body></html>`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(body))
	}))
	defer srv.Close()

	store := newFakeStore()
	worker := newTestWorker(store)

	worker.Process(context.Background(), domain.QueueItem{URL: srv.URL + "/post"})

	require.Len(t, store.saved, 1)
	doc := store.saved[0]
	assert.Equal(t, "Go Concurrency Patterns", doc.Title)
	assert.Positive(t, doc.WordCount)
	assert.GreaterOrEqual(t, doc.QualityScore, 0.0)
	assert.LessOrEqual(t, doc.QualityScore, 1.0)

	require.Len(t, store.savedTokens, 1)
	fields := make(map[int]bool)
	for _, group := range store.savedTokens[0] {
		fields[group.Field] = true
	}
	assert.True(t, fields[domain.FieldTitle])
	assert.True(t, fields[domain.FieldDescription])
	assert.True(t, fields[domain.FieldBody])
}

func TestWorkerProcess_BackfillsNewsContent(t *testing.T) {
	body := `<html><head><title>Launch</title>
		<meta name="description" content="It shipped"></head>
		<body><article><p>` + strings.Repeat("full article text ", 20) + `</p></article></body></html>`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(body))
	}))
	defer srv.Close()

	store := newFakeStore()
	url := srv.URL + "/article"
	store.newsURLs[url] = true
	worker := newTestWorker(store)

	worker.Process(context.Background(), domain.QueueItem{URL: url})

	assert.Equal(t, domain.StatusDone, store.statuses[url])
	assert.Contains(t, store.backfilled[url], "full article text")
}

func TestQuality(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		outlinks int
		want     float64
	}{
		{"empty content", "", 0, 0.0},
		{"dense long page", strings.Repeat("word ", 300), 0, 1.0},
		{"link farm floors at zero", strings.Repeat("word ", 10), 100, 0.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Quality(tt.content, tt.outlinks), 1e-9)
		})
	}

	t.Run("link penalty caps at 0.4", func(t *testing.T) {
		content := strings.Repeat("word ", 300)
		assert.InDelta(t, 0.6, Quality(content, 10000), 1e-9)
	})

	t.Run("density scales with word count", func(t *testing.T) {
		content := strings.Repeat("word ", 150)
		assert.InDelta(t, 0.5, Quality(content, 0), 1e-9)
	})
}

func TestFreshness(t *testing.T) {
	now := time.Now().UTC()

	t.Run("no timestamps gets the floor", func(t *testing.T) {
		assert.InDelta(t, 0.1, Freshness(nil, nil), 1e-9)
	})

	t.Run("fresh page scores near one", func(t *testing.T) {
		ts := now.Add(-1 * time.Hour)
		assert.Greater(t, Freshness(&ts, nil), 0.99)
	})

	t.Run("year-old page scores zero", func(t *testing.T) {
		ts := now.Add(-400 * 24 * time.Hour)
		assert.InDelta(t, 0.0, Freshness(nil, &ts), 1e-9)
	})

	t.Run("updated_at wins over published_at", func(t *testing.T) {
		old := now.Add(-300 * 24 * time.Hour)
		recent := now.Add(-2 * time.Hour)
		assert.Greater(t, Freshness(&recent, &old), Freshness(nil, &old))
	})
}
