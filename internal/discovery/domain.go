package discovery

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/hossagent/leadscout/internal/extract"
	"github.com/hossagent/leadscout/internal/guard"
	"github.com/hossagent/leadscout/internal/lead"
	"github.com/hossagent/leadscout/internal/metrics"
	"github.com/hossagent/leadscout/internal/missionlog"
)

// Guard dependency name for arbitrary company/news websites.
const webDependency = "web"

// Domain resolution methods, one per layer outcome.
const (
	MethodExistingField = "existing_field"
	MethodEmailField    = "email_field"
	MethodSourceURL     = "source_url"
	MethodArticleLink   = "article_link"
	MethodGuess         = "guess"
	MethodSearch        = "search"
)

// Providers whose mailboxes say nothing about a company's own domain.
var freemailDomains = map[string]struct{}{
	"gmail.com": {}, "yahoo.com": {}, "hotmail.com": {}, "outlook.com": {},
	"aol.com": {}, "icloud.com": {}, "msn.com": {}, "live.com": {},
	"comcast.net": {}, "bellsouth.net": {}, "att.net": {}, "protonmail.com": {},
}

// DomainResult is the outcome of one domain resolution attempt.
type DomainResult struct {
	Found      bool
	Domain     string
	Confidence float64
	Method     string
	Attempts   int
}

// DomainConfig tunes the domain engine.
type DomainConfig struct {
	// MaxArticleLinks bounds how many outbound links from a news page
	// are considered as candidates.
	MaxArticleLinks int
	// CacheTTL bounds how long a resolved domain is reused.
	CacheTTL time.Duration
}

// DomainEngine resolves a company domain through three layers, short-
// circuiting on the first success: existing fields, source-URL
// resolution, then guess-and-verify plus search fallback.
type DomainEngine struct {
	cfg       DomainConfig
	fetcher   lead.Fetcher
	searcher  lead.Searcher
	guard     *guard.Guard
	blocklist *lead.Blocklist
	logger    *zap.Logger
	cache     *Cache[DomainResult]

	attempts  atomic.Int64
	successes atomic.Int64
}

// NewDomainEngine builds a DomainEngine.
func NewDomainEngine(
	cfg DomainConfig,
	fetcher lead.Fetcher,
	searcher lead.Searcher,
	g *guard.Guard,
	blocklist *lead.Blocklist,
	clock lead.Clock,
	logger *zap.Logger,
) *DomainEngine {
	if cfg.MaxArticleLinks <= 0 {
		cfg.MaxArticleLinks = 10
	}
	return &DomainEngine{
		cfg:       cfg,
		fetcher:   fetcher,
		searcher:  searcher,
		guard:     g,
		blocklist: blocklist,
		logger:    logger,
		cache:     NewCache[DomainResult](cfg.CacheTTL, clock),
	}
}

// Resolve runs the layered strategy. The mission log suppresses any
// network call already attempted in the current pass.
func (e *DomainEngine) Resolve(ctx context.Context, hints lead.Hints, log *missionlog.Log) DomainResult {
	e.attempts.Add(1)

	companyName := hints.CompanyName
	if companyName == "" {
		companyName = extract.CompanyNameFromText(hints.Summary)
	}
	sourceURL := hints.SourceURL
	if sourceURL == "" {
		sourceURL = extract.FirstURL(hints.Summary)
	}

	key := strings.Join([]string{lead.NormalizeDomain(hints.Domain), hints.Email, companyName, sourceURL}, "|")
	if cached, ok := e.cache.Get(key); ok {
		log.Add(missionlog.PhaseDomain, "cache_lookup", key, missionlog.OutcomeCached, "", 0)
		e.successes.Add(1)
		return cached
	}

	attempts := 0
	layers := []func(context.Context, lead.Hints, string, string, *missionlog.Log, *int) DomainResult{
		e.fromExistingFields,
		e.fromSourceURL,
		e.fromGuessAndSearch,
	}
	for _, layer := range layers {
		if res := layer(ctx, hints, companyName, sourceURL, log, &attempts); res.Found {
			res.Attempts = attempts
			e.successes.Add(1)
			e.cache.Put(key, res)
			metrics.ObserveDiscoverySuccess("domain", res.Method)
			e.logger.Info("domain resolved",
				zap.String("domain", res.Domain),
				zap.String("method", res.Method),
				zap.Float64("confidence", res.Confidence),
			)
			return res
		}
	}
	return DomainResult{Attempts: attempts}
}

// fromExistingFields accepts a usable domain already present on the
// entity, corroborated by the email hint or the company name.
func (e *DomainEngine) fromExistingFields(_ context.Context, hints lead.Hints, companyName, _ string, log *missionlog.Log, _ *int) DomainResult {
	metrics.ObserveDiscoveryAttempt("domain", "existing_fields")

	if domain := lead.NormalizeDomain(hints.Domain); domain != "" && e.usable(domain) {
		confidence := 0.8
		method := MethodExistingField
		if emailDomain := extract.EmailDomain(hints.Email); emailDomain == domain {
			confidence = 0.9
		} else if companyName != "" {
			if ok, overlap := lead.DomainMatchesCompany(domain, companyName); ok {
				confidence = 0.6 + 0.3*overlap
			}
		}
		log.Add(missionlog.PhaseDomain, "existing_field", domain, missionlog.OutcomeSuccess, method, 0)
		return DomainResult{Found: true, Domain: domain, Confidence: confidence, Method: method}
	}

	if emailDomain := extract.EmailDomain(hints.Email); emailDomain != "" {
		if _, freemail := freemailDomains[emailDomain]; !freemail && e.usable(emailDomain) {
			log.Add(missionlog.PhaseDomain, "existing_field", emailDomain, missionlog.OutcomeSuccess, MethodEmailField, 0)
			return DomainResult{Found: true, Domain: emailDomain, Confidence: 0.85, Method: MethodEmailField}
		}
	}
	return DomainResult{}
}

// fromSourceURL accepts the signal's source URL when it is itself a
// company site, or scrapes a news article's outbound links for the one
// matching the company name.
func (e *DomainEngine) fromSourceURL(ctx context.Context, _ lead.Hints, companyName, sourceURL string, log *missionlog.Log, attempts *int) DomainResult {
	if sourceURL == "" {
		return DomainResult{}
	}
	metrics.ObserveDiscoveryAttempt("domain", "source_url")

	sourceDomain := lead.NormalizeDomain(sourceURL)
	if sourceDomain == "" {
		return DomainResult{}
	}
	if e.usable(sourceDomain) {
		log.Add(missionlog.PhaseDomain, "source_url", sourceURL, missionlog.OutcomeSuccess, "", 0)
		return DomainResult{Found: true, Domain: sourceDomain, Confidence: 0.8, Method: MethodSourceURL}
	}

	// News/aggregator page: look for the company site among its links.
	if log.HasAttempted(missionlog.PhaseDomain, "page_scrape", sourceURL) {
		return DomainResult{}
	}
	*attempts++
	page, err := e.fetchPage(ctx, sourceURL)
	if err != nil {
		log.Add(missionlog.PhaseDomain, "page_scrape", sourceURL, missionlog.OutcomeError, err.Error(), 0)
		return DomainResult{}
	}

	candidates := e.linkCandidates(page.Links, sourceDomain)
	if len(candidates) == 0 {
		log.Add(missionlog.PhaseDomain, "page_scrape", sourceURL, missionlog.OutcomeNoResult, "", 0)
		return DomainResult{}
	}
	if companyName != "" {
		if best, overlap := bestNameMatch(candidates, companyName); best != "" {
			log.Add(missionlog.PhaseDomain, "page_scrape", sourceURL, missionlog.OutcomeSuccess, best, 0)
			return DomainResult{Found: true, Domain: best, Confidence: 0.6 + 0.3*overlap, Method: MethodArticleLink}
		}
	}
	if len(candidates) == 1 {
		log.Add(missionlog.PhaseDomain, "page_scrape", sourceURL, missionlog.OutcomeSuccess, candidates[0], 0)
		return DomainResult{Found: true, Domain: candidates[0], Confidence: 0.6, Method: MethodArticleLink}
	}
	log.Add(missionlog.PhaseDomain, "page_scrape", sourceURL, missionlog.OutcomeNoResult, "ambiguous links", 0)
	return DomainResult{}
}

// fromGuessAndSearch slugifies the company name into a candidate
// domain and verifies it, then falls back to a search query.
func (e *DomainEngine) fromGuessAndSearch(ctx context.Context, hints lead.Hints, companyName, _ string, log *missionlog.Log, attempts *int) DomainResult {
	if companyName == "" {
		return DomainResult{}
	}

	if slug := lead.SlugifyCompanyName(companyName); slug != "" {
		guess := slug + ".com"
		if e.usable(guess) && !log.HasAttempted(missionlog.PhaseDomain, "guess", guess) {
			metrics.ObserveDiscoveryAttempt("domain", "guess")
			*attempts++
			page, err := e.fetchPage(ctx, "https://"+guess+"/")
			switch {
			case err != nil:
				log.Add(missionlog.PhaseDomain, "guess", guess, missionlog.OutcomeError, err.Error(), 0)
			case pageMentionsCompany(page, companyName):
				log.Add(missionlog.PhaseDomain, "guess", guess, missionlog.OutcomeSuccess, "verified", 0)
				return DomainResult{Found: true, Domain: guess, Confidence: 0.85, Method: MethodGuess}
			default:
				log.Add(missionlog.PhaseDomain, "guess", guess, missionlog.OutcomeSuccess, "resolvable", 0)
				return DomainResult{Found: true, Domain: guess, Confidence: 0.6, Method: MethodGuess}
			}
		}
	}

	query := buildSearchQuery(companyName, hints.Geography, hints.Niche)
	if log.HasAttempted(missionlog.PhaseDomain, "search", query) {
		log.Add(missionlog.PhaseDomain, "search", query, missionlog.OutcomeCached, "already attempted this pass", 0)
		return DomainResult{}
	}
	metrics.ObserveDiscoveryAttempt("domain", "search")
	*attempts++
	start := time.Now()
	results, err := e.searcher.Search(ctx, query)
	if err != nil {
		log.Add(missionlog.PhaseDomain, "search", query, missionlog.OutcomeError, err.Error(), time.Since(start))
		return DomainResult{}
	}

	var candidates []string
	for _, r := range results {
		if e.usable(r.Domain) {
			candidates = append(candidates, r.Domain)
		}
	}
	if len(candidates) == 0 {
		log.Add(missionlog.PhaseDomain, "search", query, missionlog.OutcomeNoResult, "", time.Since(start))
		return DomainResult{}
	}
	if best, overlap := bestNameMatch(candidates, companyName); best != "" {
		log.Add(missionlog.PhaseDomain, "search", query, missionlog.OutcomeSuccess, best, time.Since(start))
		return DomainResult{Found: true, Domain: best, Confidence: 0.5 + 0.3*overlap, Method: MethodSearch}
	}
	log.Add(missionlog.PhaseDomain, "search", query, missionlog.OutcomeSuccess, candidates[0], time.Since(start))
	return DomainResult{Found: true, Domain: candidates[0], Confidence: 0.5, Method: MethodSearch}
}

// usable reports whether a domain could be a company's own site.
func (e *DomainEngine) usable(domain string) bool {
	return domain != "" && !e.blocklist.IsBlocked(domain) && lead.HasValidTLD(domain)
}

// fetchPage runs one guarded page fetch and parses the result.
func (e *DomainEngine) fetchPage(ctx context.Context, url string) (*extract.Page, error) {
	if err := e.guard.Acquire(ctx, webDependency); err != nil {
		return nil, err
	}
	resp, err := e.fetcher.Fetch(ctx, lead.FetchRequest{URL: url})
	if err != nil {
		if lead.Transient(err) {
			e.guard.Failure(webDependency)
		}
		return nil, err
	}
	e.guard.Success(webDependency)
	page, err := extract.ParsePage(resp.Body, resp.URL)
	if err != nil {
		return nil, lead.NewDiscoveryError(lead.FailParse, "parse "+url, err)
	}
	return page, nil
}

// linkCandidates normalizes outbound links into candidate domains,
// dropping blocked hosts and the page's own domain.
func (e *DomainEngine) linkCandidates(links []string, sourceDomain string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, link := range links {
		if len(out) >= e.cfg.MaxArticleLinks {
			break
		}
		domain := lead.NormalizeDomain(link)
		if domain == "" || domain == sourceDomain || !e.usable(domain) {
			continue
		}
		if _, dup := seen[domain]; dup {
			continue
		}
		seen[domain] = struct{}{}
		out = append(out, domain)
	}
	return out
}

// Status reports engine counters for operator tooling.
func (e *DomainEngine) Status() EngineStatus {
	return EngineStatus{
		Engine:    "domain",
		Attempts:  e.attempts.Load(),
		Successes: e.successes.Load(),
		CacheSize: e.cache.Len(),
	}
}

// EngineStatus is a point-in-time snapshot of one engine's counters.
type EngineStatus struct {
	Engine    string `json:"engine"`
	Attempts  int64  `json:"attempts"`
	Successes int64  `json:"successes"`
	CacheSize int    `json:"cache_size,omitempty"`
}

func bestNameMatch(candidates []string, companyName string) (string, float64) {
	best := ""
	bestOverlap := 0.0
	for _, c := range candidates {
		if ok, overlap := lead.DomainMatchesCompany(c, companyName); ok && overlap > bestOverlap {
			best, bestOverlap = c, overlap
		}
	}
	return best, bestOverlap
}

func pageMentionsCompany(page *extract.Page, companyName string) bool {
	haystack := strings.ToLower(page.Title + " " + page.BodyText)
	tokens := lead.TokenizeCompanyName(companyName)
	if len(tokens) == 0 {
		return false
	}
	matches := 0
	for _, tok := range tokens {
		if strings.Contains(haystack, tok) {
			matches++
		}
	}
	return float64(matches)/float64(len(tokens)) >= 0.5
}

func buildSearchQuery(companyName, geography, niche string) string {
	parts := []string{fmt.Sprintf("%q", companyName)}
	if geography != "" {
		parts = append(parts, geography)
	}
	if niche != "" {
		parts = append(parts, niche)
	}
	return strings.Join(parts, " ")
}
