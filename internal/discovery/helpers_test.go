package discovery

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hossagent/leadscout/internal/guard"
	"github.com/hossagent/leadscout/internal/lead"
	"github.com/hossagent/leadscout/internal/metrics"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

// stubFetcher serves canned bodies by URL prefix and records calls.
type stubFetcher struct {
	pages map[string]string
	calls []string
}

func (f *stubFetcher) Fetch(_ context.Context, req lead.FetchRequest) (lead.FetchResponse, error) {
	f.calls = append(f.calls, req.URL)
	for prefix, body := range f.pages {
		if strings.HasPrefix(req.URL, prefix) {
			return lead.FetchResponse{URL: req.URL, StatusCode: 200, Body: []byte(body)}, nil
		}
	}
	return lead.FetchResponse{}, lead.NewDiscoveryError(lead.FailNetwork, "fetch "+req.URL, errors.New("no such page"))
}

// stubSearcher returns canned results and records queries.
type stubSearcher struct {
	results []lead.SearchResult
	err     error
	queries []string
}

func (s *stubSearcher) Search(_ context.Context, query string) ([]lead.SearchResult, error) {
	s.queries = append(s.queries, query)
	if s.err != nil {
		return nil, s.err
	}
	return s.results, nil
}

func testClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)}
}

func testGuard(clk lead.Clock) *guard.Guard {
	metrics.Init()
	return guard.New(guard.Config{FailureThreshold: 3, Cooldown: 5 * time.Minute}, clk, zap.NewNop())
}
