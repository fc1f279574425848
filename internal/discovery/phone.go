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

// PhoneResult is the outcome of one phone resolution attempt.
type PhoneResult struct {
	Found      bool
	Best       lead.PhoneCandidate
	Candidates []lead.PhoneCandidate
	Attempts   int
}

// PhoneConfig tunes the phone engine.
type PhoneConfig struct {
	// MaxPages caps fetched pages per domain, homepage included.
	MaxPages int
	// CacheTTL bounds how long a domain's result is reused.
	CacheTTL time.Duration
	// LocalAreaCodes earn a locality bonus.
	LocalAreaCodes []string
	// ReuseThreshold is the cross-domain observation count above which
	// a number is penalized as shared/generic.
	ReuseThreshold int
}

// Base confidence per extraction source.
var phoneSourceBase = map[string]float64{
	extract.PhoneSourceTel:    0.8,
	extract.PhoneSourceSchema: 0.9,
	extract.PhoneSourceFooter: 0.6,
	extract.PhoneSourceBody:   0.3,
}

// Body matches on contact/about pages carry more weight than on
// arbitrary pages.
var phoneBodyByPageType = map[extract.PageType]float64{
	extract.PageContact: 0.8,
	extract.PageAbout:   0.7,
}

// PhoneEngine resolves phone numbers for a known domain from tel:
// links, structured data and page text.
type PhoneEngine struct {
	cfg      PhoneConfig
	fetcher  lead.Fetcher
	guard    *guard.Guard
	logger   *zap.Logger
	cache    *Cache[PhoneResult]
	registry *PhoneRegistry
	local    map[string]struct{}

	attempts  atomic.Int64
	successes atomic.Int64
}

// NewPhoneEngine builds a PhoneEngine sharing the given observation
// registry.
func NewPhoneEngine(cfg PhoneConfig, fetcher lead.Fetcher, g *guard.Guard, registry *PhoneRegistry, clock lead.Clock, logger *zap.Logger) *PhoneEngine {
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = 4
	}
	if cfg.ReuseThreshold <= 0 {
		cfg.ReuseThreshold = 4
	}
	local := make(map[string]struct{}, len(cfg.LocalAreaCodes))
	for _, code := range cfg.LocalAreaCodes {
		local[code] = struct{}{}
	}
	return &PhoneEngine{
		cfg:      cfg,
		fetcher:  fetcher,
		guard:    g,
		logger:   logger,
		cache:    NewCache[PhoneResult](cfg.CacheTTL, clock),
		registry: registry,
		local:    local,
	}
}

// Resolve returns all phones discovered for the domain, deduplicated
// by normalized form, plus a designated best phone.
func (e *PhoneEngine) Resolve(ctx context.Context, domain string, log *missionlog.Log) PhoneResult {
	e.attempts.Add(1)
	if domain == "" {
		return PhoneResult{}
	}

	if cached, ok := e.cache.Get(domain); ok {
		log.Add(missionlog.PhasePhone, "cache_lookup", domain, missionlog.OutcomeCached, "", 0)
		if cached.Found {
			e.successes.Add(1)
		}
		return cached
	}

	res := e.scrape(ctx, domain, log)
	e.cache.Put(domain, res)
	if res.Found {
		e.successes.Add(1)
		metrics.ObserveDiscoverySuccess("phone", res.Best.Source)
		e.logger.Info("phone resolved",
			zap.String("domain", domain),
			zap.String("phone", res.Best.E164),
			zap.String("type", string(res.Best.Type)),
			zap.Float64("confidence", res.Best.Confidence),
		)
	}
	return res
}

func (e *PhoneEngine) scrape(ctx context.Context, domain string, log *missionlog.Log) PhoneResult {
	base := "https://" + domain
	urls := []string{base + "/", base + "/contact", base + "/contact-us", base + "/about"}
	if len(urls) > e.cfg.MaxPages {
		urls = urls[:e.cfg.MaxPages]
	}

	// Deduplicate by normalized form, keeping the most trusted source.
	byNumber := make(map[string]lead.PhoneCandidate)
	attempts := 0
	for _, pageURL := range urls {
		if log.HasAttempted(missionlog.PhasePhone, "page_scrape", pageURL) {
			continue
		}
		pageType := extract.ClassifyPage(pageURL)
		metrics.ObserveDiscoveryAttempt("phone", string(pageType))
		attempts++
		start := time.Now()

		if err := e.guard.Acquire(ctx, webDependency); err != nil {
			log.Add(missionlog.PhasePhone, "page_scrape", pageURL, missionlog.OutcomeError, err.Error(), 0)
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
			log.Add(missionlog.PhasePhone, "page_scrape", pageURL, missionlog.OutcomeError, err.Error(), time.Since(start))
			continue
		}
		e.guard.Success(webDependency)

		page, err := extract.ParsePage(resp.Body, resp.URL)
		if err != nil {
			log.Add(missionlog.PhasePhone, "page_scrape", pageURL, missionlog.OutcomeError, err.Error(), time.Since(start))
			continue
		}

		found := 0
		for _, m := range extract.Phones(page) {
			e164, ok := extract.NormalizePhone(m.Raw)
			if !ok {
				continue
			}
			found++
			baseConf := phoneSourceBase[m.Source]
			if m.Source == extract.PhoneSourceBody {
				if boosted, ok := phoneBodyByPageType[pageType]; ok {
					baseConf = boosted
				}
			}
			existing, seen := byNumber[e164]
			if seen && existing.Confidence >= baseConf {
				continue
			}
			byNumber[e164] = lead.PhoneCandidate{
				Raw:        m.Raw,
				E164:       e164,
				Confidence: baseConf,
				Source:     m.Source,
				SourceURL:  pageURL,
				Type:       extract.ClassifyPhone(e164),
			}
		}
		if found > 0 {
			log.Add(missionlog.PhasePhone, "page_scrape", pageURL, missionlog.OutcomeSuccess, "", time.Since(start))
		} else {
			log.Add(missionlog.PhasePhone, "page_scrape", pageURL, missionlog.OutcomeNoResult, "", time.Since(start))
		}
	}

	if len(byNumber) == 0 {
		return PhoneResult{Attempts: attempts}
	}

	candidates := make([]lead.PhoneCandidate, 0, len(byNumber))
	for _, c := range byNumber {
		e.registry.Observe(c.E164, domain)
		c.Confidence = e.adjustConfidence(c)
		candidates = append(candidates, c)
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].Confidence > candidates[j].Confidence
	})

	best, ok := pickBest(candidates)
	if !ok {
		return PhoneResult{Candidates: candidates, Attempts: attempts}
	}
	return PhoneResult{Found: true, Best: best, Candidates: candidates, Attempts: attempts}
}

// adjustConfidence applies type, locality and reuse adjustments.
func (e *PhoneEngine) adjustConfidence(c lead.PhoneCandidate) float64 {
	confidence := c.Confidence
	switch c.Type {
	case lead.PhoneTollFree:
		confidence -= 0.5
	case lead.PhoneMobile:
		confidence += 0.1
	}
	if _, local := e.local[extract.AreaCode(c.E164)]; local {
		confidence += 0.1
	}
	if e.registry.DomainCount(c.E164) > e.cfg.ReuseThreshold {
		confidence -= 0.3
	}
	return clampUnit(confidence)
}

// pickBest prefers the highest-confidence non-toll-free candidate,
// falling back to toll-free only when nothing else exists.
func pickBest(sorted []lead.PhoneCandidate) (lead.PhoneCandidate, bool) {
	for _, c := range sorted {
		if c.Type != lead.PhoneTollFree {
			return c, true
		}
	}
	if len(sorted) > 0 {
		return sorted[0], true
	}
	return lead.PhoneCandidate{}, false
}

// ReverseLookup resolves a phone to a domain only when exactly one
// domain has ever been observed for it.
func (e *PhoneEngine) ReverseLookup(e164 string) (string, bool) {
	return e.registry.ReverseLookup(e164)
}

// Status reports engine counters for operator tooling.
func (e *PhoneEngine) Status() EngineStatus {
	return EngineStatus{
		Engine:    "phone",
		Attempts:  e.attempts.Load(),
		Successes: e.successes.Load(),
		CacheSize: e.cache.Len(),
	}
}
