// Package search implements the Searcher interface by scraping the
// DuckDuckGo HTML endpoint through the shared Fetcher.
package search

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hossagent/leadscout/internal/extract"
	"github.com/hossagent/leadscout/internal/guard"
	"github.com/hossagent/leadscout/internal/lead"
)

// Dependency name used for guard bookkeeping and operator tooling.
const Dependency = "duckduckgo"

const endpoint = "https://html.duckduckgo.com/html/"

// DuckDuckGo scrapes the JS-free HTML search endpoint. All calls pass
// through the rate guard; three consecutive failures open the breaker.
type DuckDuckGo struct {
	fetcher    lead.Fetcher
	guard      *guard.Guard
	logger     *zap.Logger
	maxResults int
}

// New builds a guarded DuckDuckGo searcher.
func New(fetcher lead.Fetcher, g *guard.Guard, logger *zap.Logger) *DuckDuckGo {
	return &DuckDuckGo{fetcher: fetcher, guard: g, logger: logger, maxResults: 10}
}

// Search issues a query and returns ranked result URLs with their
// normalized domains. Returns CircuitOpenError without a network call
// when the breaker is open.
func (d *DuckDuckGo) Search(ctx context.Context, query string) ([]lead.SearchResult, error) {
	if err := d.guard.Acquire(ctx, Dependency); err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := d.fetcher.Fetch(ctx, lead.FetchRequest{
		URL:  endpoint,
		Form: map[string]string{"q": query, "b": ""},
	})
	if err != nil {
		d.guard.Failure(Dependency)
		return nil, fmt.Errorf("duckduckgo search %q: %w", query, err)
	}

	results := d.parseResults(resp.Body)
	d.guard.Success(Dependency)
	d.logger.Debug("search completed",
		zap.String("query", query),
		zap.Int("results", len(results)),
		zap.Duration("duration", time.Since(start)),
	)
	return results, nil
}

func (d *DuckDuckGo) parseResults(body []byte) []lead.SearchResult {
	page, err := extract.ParsePage(body, endpoint)
	if err != nil {
		return nil
	}
	var out []lead.SearchResult
	seen := make(map[string]struct{})
	for _, link := range page.Links {
		target := resolveResultURL(link)
		if target == "" {
			continue
		}
		domain := lead.NormalizeDomain(target)
		if domain == "" || domain == "duckduckgo.com" {
			continue
		}
		if _, dup := seen[target]; dup {
			continue
		}
		seen[target] = struct{}{}
		out = append(out, lead.SearchResult{URL: target, Domain: domain})
		if len(out) >= d.maxResults {
			break
		}
	}
	return out
}

// resolveResultURL unwraps DuckDuckGo's redirect links, which carry the
// real target in a uddg query parameter. Plain external links pass
// through; internal navigation links are dropped.
func resolveResultURL(link string) string {
	u, err := url.Parse(link)
	if err != nil {
		return ""
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	if host == "duckduckgo.com" || strings.HasSuffix(host, ".duckduckgo.com") {
		// Query().Get already percent-decodes the redirect target.
		if target := u.Query().Get("uddg"); target != "" {
			if strings.HasPrefix(target, "http://") || strings.HasPrefix(target, "https://") {
				return target
			}
		}
		return ""
	}
	return link
}
