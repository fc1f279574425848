package discovery

import (
	"context"
	"sort"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/hossagent/leadscout/internal/extract"
	"github.com/hossagent/leadscout/internal/guard"
	"github.com/hossagent/leadscout/internal/lead"
	"github.com/hossagent/leadscout/internal/metrics"
	"github.com/hossagent/leadscout/internal/missionlog"
)

// EmailResult is the outcome of one email resolution attempt.
type EmailResult struct {
	Found      bool
	Email      string
	Confidence float64
	Source     string
	Candidates []lead.EmailCandidate
	Attempts   int
}

// EmailConfig tunes the email engine.
type EmailConfig struct {
	// MaxPages caps fetched pages per entity, homepage included.
	MaxPages int
	// CacheTTL bounds how long a domain's result is reused.
	CacheTTL time.Duration
}

// EmailEngine resolves a contact email for a known domain by scraping
// the homepage and likely contact pages, with role-based guesses as a
// last resort.
type EmailEngine struct {
	cfg     EmailConfig
	fetcher lead.Fetcher
	guard   *guard.Guard
	logger  *zap.Logger
	cache   *Cache[EmailResult]

	attempts  atomic.Int64
	successes atomic.Int64
}

// NewEmailEngine builds an EmailEngine.
func NewEmailEngine(cfg EmailConfig, fetcher lead.Fetcher, g *guard.Guard, clock lead.Clock, logger *zap.Logger) *EmailEngine {
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = 8
	}
	return &EmailEngine{
		cfg:     cfg,
		fetcher: fetcher,
		guard:   g,
		logger:  logger,
		cache:   NewCache[EmailResult](cfg.CacheTTL, clock),
	}
}

// Resolve finds the best contact email for the domain. A known email
// hint short-circuits everything; a fresh cached result is returned
// without network calls.
func (e *EmailEngine) Resolve(ctx context.Context, domain string, hints lead.Hints, log *missionlog.Log) EmailResult {
	e.attempts.Add(1)

	if hints.Email != "" && extract.ValidEmail(hints.Email) && !extract.DeniedEmail(hints.Email) {
		res := EmailResult{
			Found:      true,
			Email:      hints.Email,
			Confidence: 0.95,
			Source:     extract.EmailSourceSignal,
		}
		e.successes.Add(1)
		return res
	}
	if domain == "" {
		return EmailResult{}
	}

	if cached, ok := e.cache.Get(domain); ok {
		log.Add(missionlog.PhaseEmail, "cache_lookup", domain, missionlog.OutcomeCached, "", 0)
		if cached.Found {
			e.successes.Add(1)
		}
		return cached
	}

	res := e.scrape(ctx, domain, log)
	if !res.Found {
		// Last resort: synthesize role-based guesses at low confidence.
		guesses := extract.GuessEmails(domain)
		res.Candidates = scoreEmailCandidates(guesses, domain, "")
		if len(res.Candidates) > 0 {
			best := res.Candidates[0]
			res = EmailResult{
				Found:      true,
				Email:      best.Email,
				Confidence: best.Confidence,
				Source:     best.Source,
				Candidates: res.Candidates,
				Attempts:   res.Attempts,
			}
			log.Add(missionlog.PhaseEmail, "guess", best.Email, missionlog.OutcomeSuccess, "role-based fallback", 0)
		}
	}

	e.cache.Put(domain, res)
	if res.Found {
		e.successes.Add(1)
		metrics.ObserveDiscoverySuccess("email", res.Source)
		e.logger.Info("email resolved",
			zap.String("domain", domain),
			zap.String("source", res.Source),
			zap.Float64("confidence", res.Confidence),
		)
	}
	return res
}

// scrape walks the homepage and contact paths, stopping at the first
// page that yields any candidate.
func (e *EmailEngine) scrape(ctx context.Context, domain string, log *missionlog.Log) EmailResult {
	base := "https://" + domain
	urls := []string{base + "/"}
	for _, path := range extract.ContactPaths {
		urls = append(urls, base+path)
	}
	if len(urls) > e.cfg.MaxPages {
		urls = urls[:e.cfg.MaxPages]
	}

	attempts := 0
	for _, pageURL := range urls {
		if log.HasAttempted(missionlog.PhaseEmail, "page_scrape", pageURL) {
			continue
		}
		metrics.ObserveDiscoveryAttempt("email", string(extract.ClassifyPage(pageURL)))
		attempts++
		start := time.Now()

		if err := e.guard.Acquire(ctx, webDependency); err != nil {
			log.Add(missionlog.PhaseEmail, "page_scrape", pageURL, missionlog.OutcomeError, err.Error(), 0)
			if lead.IsCircuitOpen(err) {
				break
			}
			continue
		}
		resp, err := e.fetcher.Fetch(ctx, lead.FetchRequest{URL: pageURL})
		if err != nil {
			if lead.Transient(err) {
				e.guard.Failure(webDependency)
			}
			log.Add(missionlog.PhaseEmail, "page_scrape", pageURL, missionlog.OutcomeError, err.Error(), time.Since(start))
			continue
		}
		e.guard.Success(webDependency)

		page, err := extract.ParsePage(resp.Body, resp.URL)
		if err != nil {
			log.Add(missionlog.PhaseEmail, "page_scrape", pageURL, missionlog.OutcomeError, err.Error(), time.Since(start))
			continue
		}
		matches := extract.Emails(page)
		if len(matches) == 0 {
			log.Add(missionlog.PhaseEmail, "page_scrape", pageURL, missionlog.OutcomeNoResult, "", time.Since(start))
			continue
		}

		candidates := scoreEmailCandidates(matches, domain, pageURL)
		best := candidates[0]
		log.Add(missionlog.PhaseEmail, "page_scrape", pageURL, missionlog.OutcomeSuccess, best.Email, time.Since(start))
		return EmailResult{
			Found:      true,
			Email:      best.Email,
			Confidence: best.Confidence,
			Source:     best.Source,
			Candidates: candidates,
			Attempts:   attempts,
		}
	}
	return EmailResult{Attempts: attempts}
}

// Source trust bonuses for email confidence.
var emailSourceBonus = map[string]float64{
	extract.EmailSourceMailto: 0.15,
	extract.EmailSourceSchema: 0.10,
	extract.EmailSourceText:   0.05,
	extract.EmailSourceGuess:  -0.45,
}

// scoreEmailCandidates converts raw matches into scored candidates and
// orders them: domain-matching first, then role-based, then the rest,
// each bucket by confidence descending.
func scoreEmailCandidates(matches []extract.EmailMatch, domain, sourceURL string) []lead.EmailCandidate {
	out := make([]lead.EmailCandidate, 0, len(matches))
	for _, m := range matches {
		c := lead.EmailCandidate{
			Raw:         m.Email,
			Email:       m.Email,
			Source:      m.Source,
			SourceURL:   sourceURL,
			DomainMatch: extract.EmailDomain(m.Email) == domain,
			Generic:     extract.RoleBased(m.Email),
		}
		confidence := 0.5
		if c.DomainMatch {
			confidence += 0.25
		}
		if extract.PersonLike(m.Email) {
			confidence += 0.1
		} else if c.Generic {
			confidence += 0.05
		}
		confidence += emailSourceBonus[m.Source]
		c.Confidence = clampUnit(confidence)
		out = append(out, c)
	}

	bucket := func(c lead.EmailCandidate) int {
		switch {
		case c.DomainMatch:
			return 0
		case c.Generic:
			return 1
		default:
			return 2
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		bi, bj := bucket(out[i]), bucket(out[j])
		if bi != bj {
			return bi < bj
		}
		return out[i].Confidence > out[j].Confidence
	})
	return out
}

// Status reports engine counters for operator tooling.
func (e *EmailEngine) Status() EngineStatus {
	return EngineStatus{
		Engine:    "email",
		Attempts:  e.attempts.Load(),
		Successes: e.successes.Load(),
		CacheSize: e.cache.Len(),
	}
}

func clampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 0.99 {
		return 0.99
	}
	return v
}
