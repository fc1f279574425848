package lead

import (
	"net/url"
	"regexp"
	"sort"
	"strings"
)

// Domains that can never be a company's own site: social networks,
// news outlets, directories, generic platforms.
var defaultBlockedDomains = []string{
	"facebook.com", "fb.com", "instagram.com", "twitter.com", "x.com",
	"linkedin.com", "youtube.com", "tiktok.com", "pinterest.com",
	"yelp.com", "angi.com", "angieslist.com", "homeadvisor.com",
	"thumbtack.com", "houzz.com", "tripadvisor.com", "bbb.org",
	"google.com", "maps.google.com", "news.google.com", "bing.com",
	"yahoo.com", "msn.com", "aol.com",
	"reddit.com", "quora.com", "medium.com", "substack.com",
	"prnewswire.com", "businesswire.com", "globenewswire.com",
	"reuters.com", "bloomberg.com", "wsj.com", "nytimes.com",
	"cnn.com", "foxnews.com", "nbcnews.com", "cbsnews.com", "abcnews.com",
	"local10.com", "wsvn.com", "nbcmiami.com", "cbsmiami.com",
	"miamiherald.com", "sun-sentinel.com", "palmbeachpost.com",
	"southfloridabusinessjournal.com", "bizjournals.com",
	"wikipedia.org", "wikimedia.org",
	"amazon.com", "ebay.com", "etsy.com", "shopify.com",
	"craigslist.org", "nextdoor.com",
	"glassdoor.com", "indeed.com", "ziprecruiter.com",
	"patch.com", "axios.com", "huffpost.com",
	"wix.com", "squarespace.com", "godaddy.com", "wordpress.com",
	"mailchimp.com", "constantcontact.com",
}

// Hostname shapes that mark local news outlets not on the exact list.
var newsDomainPatterns = []*regexp.Regexp{
	regexp.MustCompile(`.*news.*\.com$`),
	regexp.MustCompile(`.*herald.*\.com$`),
	regexp.MustCompile(`.*times.*\.com$`),
	regexp.MustCompile(`.*tribune.*\.com$`),
	regexp.MustCompile(`.*journal.*\.com$`),
	regexp.MustCompile(`.*gazette.*\.com$`),
	regexp.MustCompile(`.*observer.*\.com$`),
	regexp.MustCompile(`.*daily.*\.com$`),
	regexp.MustCompile(`.*weekly.*\.com$`),
	regexp.MustCompile(`.*local\d+\.com$`),
}

var validTLDs = map[string]struct{}{
	".com": {}, ".net": {}, ".org": {}, ".biz": {}, ".co": {}, ".io": {},
	".us": {}, ".info": {}, ".pro": {}, ".me": {}, ".tv": {}, ".cc": {},
	".co.uk": {}, ".ca": {}, ".mx": {}, ".br": {},
}

var (
	portSuffixRe   = regexp.MustCompile(`:\d+$`)
	nonAlnumRe     = regexp.MustCompile(`[^a-z0-9\s]`)
	nonAlnumTight  = regexp.MustCompile(`[^a-z0-9]`)
	legalSuffixRe  = regexp.MustCompile(`(?i)\s+(inc|llc|corp|co|ltd|llp|pllc|pc|pa|plc|lp|incorporated|corporation|company)\.?$`)
	ampersandRe    = regexp.MustCompile(`\s+&\s+|\s+and\s+`)
	nameStopwords  = map[string]struct{}{"the": {}, "a": {}, "an": {}, "of": {}, "in": {}, "at": {}, "on": {}, "for": {}, "by": {}, "to": {}, "and": {}, "or": {}}
)

// Blocklist matches hostnames against exact entries, subdomain suffixes
// and news-outlet hostname patterns.
type Blocklist struct {
	exact    map[string]struct{}
	patterns []*regexp.Regexp
}

// NewBlocklist builds a Blocklist from host entries plus the built-in
// news patterns. Empty entries fall back to the default blocked set.
func NewBlocklist(hosts []string) *Blocklist {
	if len(hosts) == 0 {
		hosts = defaultBlockedDomains
	}
	bl := &Blocklist{
		exact:    make(map[string]struct{}, len(hosts)),
		patterns: newsDomainPatterns,
	}
	for _, raw := range hosts {
		value := strings.TrimSpace(strings.ToLower(raw))
		if value != "" {
			bl.exact[value] = struct{}{}
		}
	}
	return bl
}

// IsBlocked reports whether the domain is a social/news/directory host
// that can never resolve as a company's own site.
func (b *Blocklist) IsBlocked(domain string) bool {
	if b == nil {
		return false
	}
	domain = strings.TrimSpace(strings.ToLower(domain))
	if domain == "" {
		return true
	}
	if _, ok := b.exact[domain]; ok {
		return true
	}
	for blocked := range b.exact {
		if strings.HasSuffix(domain, "."+blocked) {
			return true
		}
	}
	for _, p := range b.patterns {
		if p.MatchString(domain) {
			return true
		}
	}
	return false
}

// NormalizeDomain extracts a lowercase, no-www domain from a URL or bare
// domain string. Returns "" for anything that does not look like a domain.
// Idempotent: NormalizeDomain(NormalizeDomain(x)) == NormalizeDomain(x).
func NormalizeDomain(urlOrDomain string) string {
	s := strings.ToLower(strings.TrimSpace(urlOrDomain))
	if s == "" {
		return ""
	}
	if strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://") {
		u, err := url.Parse(s)
		if err != nil {
			return ""
		}
		s = u.Host
	} else {
		s = strings.SplitN(s, "/", 2)[0]
	}
	s = strings.TrimPrefix(s, "www.")
	s = portSuffixRe.ReplaceAllString(s, "")
	if s == "" || !strings.Contains(s, ".") {
		return ""
	}
	return s
}

// HasValidTLD reports whether the domain ends in a plausible public TLD.
func HasValidTLD(domain string) bool {
	if domain == "" {
		return false
	}
	for tld := range validTLDs {
		if strings.HasSuffix(domain, tld) {
			return true
		}
	}
	// Short unknown TLDs (<= 3 chars) are accepted as plausible.
	parts := strings.Split(domain, ".")
	if len(parts) >= 2 {
		last := parts[len(parts)-1]
		if len(last) > 0 && len(last) <= 3 {
			return true
		}
	}
	return false
}

// TokenizeCompanyName strips legal suffixes and punctuation from a
// company name and returns its meaningful lowercase tokens.
func TokenizeCompanyName(name string) []string {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return nil
	}
	name = ampersandRe.ReplaceAllString(name, " ")
	name = nonAlnumRe.ReplaceAllString(name, " ")
	// Stacked suffixes like "Company Inc" strip one at a time.
	for {
		stripped := legalSuffixRe.ReplaceAllString(strings.TrimSpace(name), "")
		if stripped == name {
			break
		}
		name = stripped
	}

	seen := make(map[string]struct{})
	var tokens []string
	for _, tok := range strings.Fields(name) {
		if len(tok) < 2 {
			continue
		}
		if _, stop := nameStopwords[tok]; stop {
			continue
		}
		if _, dup := seen[tok]; dup {
			continue
		}
		seen[tok] = struct{}{}
		tokens = append(tokens, tok)
	}
	return tokens
}

// DomainMatchesCompany scores how well a domain label matches a company
// name. A domain matches when at least half the company tokens appear as
// substrings of the label, or exactly when the concatenated tokens equal
// the label.
func DomainMatchesCompany(domain, companyName string) (bool, float64) {
	if domain == "" || companyName == "" {
		return false, 0
	}
	label := strings.SplitN(strings.TrimPrefix(strings.ToLower(domain), "www."), ".", 2)[0]
	tokens := TokenizeCompanyName(companyName)
	if len(tokens) == 0 {
		return false, 0
	}

	matches := 0
	for _, tok := range tokens {
		if strings.Contains(label, tok) {
			matches++
		}
	}
	if matches == 0 {
		return false, 0
	}
	confidence := float64(matches) / float64(len(tokens))

	sorted := append([]string(nil), tokens...)
	sort.Strings(sorted)
	combined := strings.Join(sorted, "")
	slug := nonAlnumTight.ReplaceAllString(label, "")
	if slug == combined || strings.Contains(slug, combined) {
		confidence = 1.0
	}
	return confidence >= 0.5, confidence
}

// SlugifyCompanyName guesses a bare domain label from a company name,
// preserving the original token order. Returns "" when the name yields
// fewer than three usable characters.
func SlugifyCompanyName(name string) string {
	tokens := TokenizeCompanyName(name)
	if len(tokens) == 0 {
		return ""
	}
	lower := strings.ToLower(name)
	sort.SliceStable(tokens, func(i, j int) bool {
		return strings.Index(lower, tokens[i]) < strings.Index(lower, tokens[j])
	})
	slug := strings.Join(tokens, "")
	if len(slug) < 3 {
		return ""
	}
	return slug
}
