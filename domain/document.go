package domain

import "time"

// Crawl queue statuses. These mirror the crawl_status enum in the schema.
const (
	StatusQueued           = "queued"
	StatusInProgress       = "in_progress"
	StatusDone             = "done"
	StatusValidationError  = "validation_error"
	StatusNonSuccessStatus = "non_success_status_error"
	StatusProcessingError  = "processing_error"
)

// Token field constants.
const (
	FieldTitle       = 1
	FieldDescription = 2
	FieldBody        = 4
)

// Token source types.
const (
	SourceWeb  = 1
	SourceNews = 2
)

type Document struct {
	ID             int64
	URL            string
	CanonicalURL   string
	Title          string
	Description    string
	Content        string
	PublishedAt    *time.Time
	UpdatedAt      *time.Time
	WordCount      int
	QualityScore   float64
	FreshnessScore float64
	Status         string
	CreatedAt      time.Time
}

type QueueItem struct {
	URL    string
	Domain string
}

// TokenGroup carries the term frequencies for one field of a document.
type TokenGroup struct {
	Field int
	Terms map[string]int
}
