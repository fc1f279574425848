// Package collyfetcher implements the Fetcher interface using gocolly.
package collyfetcher

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/hossagent/leadscout/internal/lead"
	"github.com/hossagent/leadscout/internal/metrics"
)

// Default client identities rotated across requests.
var defaultUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Safari/605.1.15",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:127.0) Gecko/20100101 Firefox/127.0",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/125.0.0.0 Safari/537.36",
}

// Phrases that mark a bot challenge rather than real page content.
var botChallengeMarkers = []string{
	"captcha",
	"cf-browser-verification",
	"checking your browser",
	"verify you are a human",
	"access denied",
	"unusual traffic",
}

// Config controls collector behavior.
type Config struct {
	UserAgents []string
	Timeout    time.Duration
	MaxBody    int
}

// Fetcher implements lead.Fetcher using the Colly collector, with a
// rotating client identity per request.
type Fetcher struct {
	cfg           Config
	baseCollector *colly.Collector
}

// New builds a Fetcher.
func New(cfg Config) *Fetcher {
	if len(cfg.UserAgents) == 0 {
		cfg.UserAgents = defaultUserAgents
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxBody <= 0 {
		cfg.MaxBody = 2 * 1024 * 1024
	}
	c := colly.NewCollector(colly.Async(false))
	c.IgnoreRobotsTxt = true
	c.WithTransport(newHTTPTransport())
	return &Fetcher{cfg: cfg, baseCollector: c}
}

// Fetch executes a single HTTP request. A non-nil Form makes it a POST
// with a URL-encoded body. Failures come back as typed discovery
// errors so callers can feed the circuit breaker.
func (f *Fetcher) Fetch(ctx context.Context, request lead.FetchRequest) (lead.FetchResponse, error) {
	var (
		result   lead.FetchResponse
		fetchErr error
	)
	start := time.Now()
	collector := f.buildCollector(request, start, &result, &fetchErr)

	if err := f.runCollector(ctx, collector, request, &fetchErr); err != nil {
		metrics.ObserveFetch("error", time.Since(start))
		return lead.FetchResponse{}, err
	}
	if err := classifyResponse(result); err != nil {
		metrics.ObserveFetch(string(lead.KindOf(err)), time.Since(start))
		return lead.FetchResponse{}, err
	}
	metrics.ObserveFetch("ok", time.Since(start))
	return result, nil
}

func (f *Fetcher) buildCollector(
	request lead.FetchRequest,
	start time.Time,
	result *lead.FetchResponse,
	fetchErr *error,
) *colly.Collector {
	collector := f.baseCollector.Clone()
	collector.UserAgent = f.cfg.UserAgents[rand.Intn(len(f.cfg.UserAgents))]
	collector.MaxBodySize = f.cfg.MaxBody
	collector.SetRequestTimeout(f.cfg.Timeout)
	collector.WithTransport(newHTTPTransport())

	collector.OnRequest(func(r *colly.Request) {
		for key, v := range request.Headers {
			r.Headers.Set(key, v)
		}
	})
	collector.OnResponse(func(r *colly.Response) {
		*result = lead.FetchResponse{
			URL:        r.Request.URL.String(),
			StatusCode: r.StatusCode,
			Body:       append([]byte(nil), r.Body...),
			Duration:   time.Since(start),
		}
	})
	collector.OnError(func(r *colly.Response, err error) {
		if r != nil && r.StatusCode > 0 {
			*result = lead.FetchResponse{
				URL:        request.URL,
				StatusCode: r.StatusCode,
				Body:       append([]byte(nil), r.Body...),
				Duration:   time.Since(start),
			}
		}
		*fetchErr = err
	})
	return collector
}

func (f *Fetcher) runCollector(ctx context.Context, collector *colly.Collector, request lead.FetchRequest, fetchErr *error) error {
	done := make(chan error, 1)
	go func() {
		if request.Form != nil {
			done <- collector.Post(request.URL, request.Form)
			return
		}
		done <- collector.Visit(request.URL)
	}()

	select {
	case <-ctx.Done():
		return lead.NewDiscoveryError(lead.FailTimeout, "fetch "+request.URL, ctx.Err())
	case err := <-done:
		if err == nil && *fetchErr != nil {
			err = *fetchErr
		}
		if err != nil {
			return classifyTransportError(request.URL, err)
		}
		return nil
	}
}

// classifyTransportError maps transport failures onto the error
// taxonomy. Status-code failures surface through colly as errors too.
func classifyTransportError(url string, err error) error {
	op := "fetch " + url
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return lead.NewDiscoveryError(lead.FailTimeout, op, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return lead.NewDiscoveryError(lead.FailTimeout, op, err)
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "Too Many Requests"), strings.Contains(msg, "429"):
		return lead.NewDiscoveryError(lead.FailRateLimited, op, err)
	case strings.Contains(msg, "Forbidden"), strings.Contains(msg, "403"):
		return lead.NewDiscoveryError(lead.FailBlocked, op, err)
	}
	return lead.NewDiscoveryError(lead.FailNetwork, op, err)
}

// classifyResponse rejects responses whose body is a bot challenge.
func classifyResponse(resp lead.FetchResponse) error {
	op := "fetch " + resp.URL
	if resp.StatusCode == http.StatusTooManyRequests {
		return lead.NewDiscoveryError(lead.FailRateLimited, op, fmt.Errorf("status %d", resp.StatusCode))
	}
	if resp.StatusCode >= 400 {
		return lead.NewDiscoveryError(lead.FailNetwork, op, fmt.Errorf("status %d", resp.StatusCode))
	}
	head := strings.ToLower(string(resp.Body[:min(len(resp.Body), 4096)]))
	for _, marker := range botChallengeMarkers {
		if strings.Contains(head, marker) {
			return lead.NewDiscoveryError(lead.FailBlocked, op, fmt.Errorf("bot challenge: %q", marker))
		}
	}
	return nil
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
