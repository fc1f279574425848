package lead

import (
	"context"
	"time"
)

// Fetcher fetches a URL and returns the body plus metadata.
type Fetcher interface {
	Fetch(ctx context.Context, request FetchRequest) (FetchResponse, error)
}

// Searcher issues a text query against a public search engine and
// returns a ranked list of result URLs/domains.
type Searcher interface {
	Search(ctx context.Context, query string) ([]SearchResult, error)
}

// Store persists signals and lead events by identity. The pipeline
// requires nothing beyond read/write-by-identity semantics.
type Store interface {
	CreateSignal(ctx context.Context, sig Signal) error
	GetSignal(ctx context.Context, id string) (Signal, error)
	CreateLeadEvent(ctx context.Context, ev LeadEvent) error
	GetLeadEvent(ctx context.Context, id string) (LeadEvent, error)
	UpdateLeadEvent(ctx context.Context, ev LeadEvent) error
	ListLeadEventsByStatus(ctx context.Context, statuses []EnrichmentStatus, limit int) ([]LeadEvent, error)
}

// Dispatcher hands a fully enriched lead event to the outbound
// collaborator and reports the outcome.
type Dispatcher interface {
	Dispatch(ctx context.Context, ev LeadEvent) (DispatchOutcome, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}
