package extract

import (
	"regexp"
	"strings"

	"github.com/hossagent/leadscout/internal/lead"
)

// Phone candidate sources, each with its own trust level in scoring.
const (
	PhoneSourceTel    = "tel_link"
	PhoneSourceSchema = "schema"
	PhoneSourceFooter = "footer"
	PhoneSourceBody   = "body"
)

// PhoneMatch is one raw phone number extracted from a page.
type PhoneMatch struct {
	Raw    string
	Source string
}

var phoneRe = regexp.MustCompile(`(?:\+?1[\s.\-]?)?\(?\d{3}\)?[\s.\-]?\d{3}[\s.\-]?\d{4}`)

var tollFreeAreaCodes = map[string]struct{}{
	"800": {}, "888": {}, "877": {}, "866": {}, "855": {}, "844": {}, "833": {}, "822": {},
}

// Overlay area codes skew heavily toward mobile assignments.
var mobileHeavyAreaCodes = map[string]struct{}{
	"786": {}, "754": {}, "448": {}, "645": {}, "656": {}, "324": {}, "321": {},
}

// Phones returns every raw phone candidate found on the page, tagged by
// extraction source. Duplicates across sources are retained; the engine
// deduplicates after normalization so the most trusted source wins.
func Phones(p *Page) []PhoneMatch {
	var out []PhoneMatch
	for _, raw := range p.TelNumbers {
		out = append(out, PhoneMatch{Raw: raw, Source: PhoneSourceTel})
	}
	for _, raw := range p.SchemaPhones {
		out = append(out, PhoneMatch{Raw: raw, Source: PhoneSourceSchema})
	}
	for _, raw := range phoneRe.FindAllString(p.FooterText, -1) {
		out = append(out, PhoneMatch{Raw: raw, Source: PhoneSourceFooter})
	}
	for _, raw := range phoneRe.FindAllString(p.BodyText, -1) {
		out = append(out, PhoneMatch{Raw: raw, Source: PhoneSourceBody})
	}
	return out
}

// NormalizePhone reduces a raw match to E.164 (+1XXXXXXXXXX). It
// rejects anything that is not a plausible 10-digit US number: bad
// area-code/exchange leading digits, degenerate digit patterns, and
// fictional 555-01xx numbers. Toll-free numbers pass normalization and
// are handled by classification.
func NormalizePhone(raw string) (string, bool) {
	var digits strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	d := digits.String()
	if len(d) == 11 && d[0] == '1' {
		d = d[1:]
	}
	if len(d) != 10 {
		return "", false
	}
	if d[0] == '0' || d[0] == '1' {
		return "", false
	}
	if d[3] == '0' || d[3] == '1' {
		return "", false
	}
	if allSameDigits(d) || sequentialDigits(d) {
		return "", false
	}
	// Fictional range 555-01xx.
	if d[3:6] == "555" && d[6:8] == "01" {
		return "", false
	}
	return "+1" + d, true
}

// ValidPhone reports whether a raw number normalizes to a usable
// subscriber number. Toll-free numbers fail here; they are never a
// direct line to the business.
func ValidPhone(raw string) bool {
	e164, ok := NormalizePhone(raw)
	if !ok {
		return false
	}
	return ClassifyPhone(e164) != lead.PhoneTollFree
}

// ClassifyPhone maps an E.164 number to a phone type via its area code.
func ClassifyPhone(e164 string) lead.PhoneType {
	if len(e164) != 12 || !strings.HasPrefix(e164, "+1") {
		return lead.PhoneUnknown
	}
	area := e164[2:5]
	if _, ok := tollFreeAreaCodes[area]; ok {
		return lead.PhoneTollFree
	}
	if _, ok := mobileHeavyAreaCodes[area]; ok {
		return lead.PhoneMobile
	}
	return lead.PhoneLandline
}

// AreaCode returns the three-digit area code of an E.164 number.
func AreaCode(e164 string) string {
	if len(e164) != 12 || !strings.HasPrefix(e164, "+1") {
		return ""
	}
	return e164[2:5]
}

func allSameDigits(d string) bool {
	for i := 1; i < len(d); i++ {
		if d[i] != d[0] {
			return false
		}
	}
	return true
}

func sequentialDigits(d string) bool {
	asc, desc := true, true
	for i := 1; i < len(d); i++ {
		if d[i] != d[i-1]+1 {
			asc = false
		}
		if d[i] != d[i-1]-1 {
			desc = false
		}
	}
	return asc || desc
}
