package extract

import (
	"regexp"
	"strings"
)

// Email candidate sources, in descending trust order.
const (
	EmailSourceSignal = "signal"
	EmailSourceMailto = "mailto"
	EmailSourceSchema = "schema"
	EmailSourceText   = "text"
	EmailSourceGuess  = "guess"
)

// EmailMatch is one raw email extracted from a page.
type EmailMatch struct {
	Email  string
	Source string
}

var emailRe = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)

// Addresses that are never a real contact channel.
var emailDenyPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^(no-?reply|do-?not-?reply|donotreply)@`),
	regexp.MustCompile(`(?i)^(test|example|sample|demo|user|email|your-?email|someone|name)@`),
	regexp.MustCompile(`(?i)@(example|test|sample|domain|yourdomain|email|sentry|wixpress)\.`),
	regexp.MustCompile(`(?i)@.*\.(png|jpg|jpeg|gif|svg|webp|css|js)$`),
	regexp.MustCompile(`(?i)^(privacy|abuse|postmaster|mailer-daemon|unsubscribe)@`),
	regexp.MustCompile(`^[0-9a-f]{16,}@`),
}

// Role-based local parts, most useful first; also the guess fallback order.
var RolePrefixes = []string{"info", "contact", "office", "sales", "service", "hello", "admin", "support"}

// Emails returns every email candidate found on the page, mailto links
// first, then structured data, then free-text matches. Denylisted
// addresses are dropped.
func Emails(p *Page) []EmailMatch {
	var out []EmailMatch
	seen := make(map[string]struct{})
	add := func(raw, source string) {
		email := strings.ToLower(strings.TrimSpace(raw))
		if !ValidEmail(email) || DeniedEmail(email) {
			return
		}
		if _, dup := seen[email]; dup {
			return
		}
		seen[email] = struct{}{}
		out = append(out, EmailMatch{Email: email, Source: source})
	}

	for _, e := range p.MailtoEmails {
		add(e, EmailSourceMailto)
	}
	for _, e := range p.SchemaEmails {
		add(e, EmailSourceSchema)
	}
	for _, e := range emailRe.FindAllString(p.BodyText, -1) {
		add(e, EmailSourceText)
	}
	return out
}

// ValidEmail reports whether the string is shaped like a single email.
func ValidEmail(email string) bool {
	return emailRe.FindString(email) == email && strings.Count(email, "@") == 1
}

// DeniedEmail reports whether the address matches the placeholder /
// platform-noise denylist.
func DeniedEmail(email string) bool {
	for _, p := range emailDenyPatterns {
		if p.MatchString(email) {
			return true
		}
	}
	return false
}

// RoleBased reports whether the local part is a well-known role inbox.
func RoleBased(email string) bool {
	local := localPart(email)
	for _, prefix := range RolePrefixes {
		if local == prefix {
			return true
		}
	}
	return false
}

// PersonLike reports whether the local part looks like an individual's
// address rather than a shared inbox.
func PersonLike(email string) bool {
	local := localPart(email)
	if local == "" || RoleBased(email) {
		return false
	}
	if strings.Contains(local, ".") || strings.Contains(local, "_") {
		return true
	}
	// First-name style addresses: short, alphabetic, not a role word.
	if len(local) >= 3 && len(local) <= 12 && isAlpha(local) {
		return true
	}
	return false
}

// GuessEmails synthesizes role-based addresses for a domain as a last
// resort when scraping found nothing.
func GuessEmails(domain string) []EmailMatch {
	out := make([]EmailMatch, 0, len(RolePrefixes))
	for _, prefix := range RolePrefixes {
		out = append(out, EmailMatch{Email: prefix + "@" + domain, Source: EmailSourceGuess})
	}
	return out
}

// EmailDomain returns the part after the @, lowercased.
func EmailDomain(email string) string {
	at := strings.LastIndexByte(email, '@')
	if at < 0 {
		return ""
	}
	return strings.ToLower(email[at+1:])
}

func localPart(email string) string {
	at := strings.IndexByte(email, '@')
	if at < 0 {
		return ""
	}
	return strings.ToLower(email[:at])
}

func isAlpha(s string) bool {
	for _, r := range s {
		if r < 'a' || r > 'z' {
			return false
		}
	}
	return true
}
