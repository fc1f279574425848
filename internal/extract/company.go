package extract

import (
	"regexp"
	"strings"
)

var (
	quotedNameRe = regexp.MustCompile(`[\x{201C}"']([A-Z][A-Za-z0-9&'\. \-]{2,60})[\x{201D}"']`)
	suffixNameRe = regexp.MustCompile(`\b([A-Z][A-Za-z0-9&'\-]+(?: [A-Z][A-Za-z0-9&'\-]+){0,4})[,]? (?:Inc|LLC|Corp|Co|Ltd|LLP|PLLC)\b\.?`)
	actionNameRe = regexp.MustCompile(`\b([A-Z][A-Za-z0-9&'\-]+(?: [A-Z][A-Za-z0-9&'\-]+){1,4}) (?:announced|announces|launches|launched|opens|opened|expands|is hiring|hires|acquired|acquires)\b`)
	urlInTextRe  = regexp.MustCompile(`https?://[^\s<>"')\]]+`)
)

// Words that mark a capitalized phrase as not being a business name.
var poisonNameWords = map[string]struct{}{
	"county": {}, "city": {}, "state": {}, "department": {}, "police": {},
	"fire": {}, "school": {}, "university": {}, "hospital": {},
	"hurricane": {}, "storm": {}, "weather": {}, "tropical": {},
	"monday": {}, "tuesday": {}, "wednesday": {}, "thursday": {},
	"friday": {}, "saturday": {}, "sunday": {},
	"january": {}, "february": {}, "march": {}, "april": {}, "june": {},
	"july": {}, "august": {}, "september": {}, "october": {},
	"november": {}, "december": {},
	"florida": {}, "miami": {}, "broward": {}, "dade": {},
	"breaking": {}, "update": {}, "news": {},
}

// CompanyNameFromText extracts a likely company name from free text.
// Quoted names win, then names followed by a legal suffix, then
// capitalized phrases in an announcement position. Returns "" rather
// than guessing when nothing passes the poison filter.
func CompanyNameFromText(text string) string {
	if m := quotedNameRe.FindStringSubmatch(text); m != nil {
		if name := cleanCandidateName(m[1]); name != "" {
			return name
		}
	}
	if m := suffixNameRe.FindStringSubmatch(text); m != nil {
		if name := cleanCandidateName(m[1]); name != "" {
			return name
		}
	}
	if m := actionNameRe.FindStringSubmatch(text); m != nil {
		if name := cleanCandidateName(m[1]); name != "" {
			return name
		}
	}
	return ""
}

func cleanCandidateName(candidate string) string {
	candidate = strings.TrimSpace(candidate)
	words := strings.Fields(candidate)
	if len(words) == 0 || len(words) > 6 {
		return ""
	}
	for _, w := range words {
		if _, poison := poisonNameWords[strings.ToLower(strings.Trim(w, ".,"))]; poison {
			return ""
		}
	}
	// Single generic words are too weak to act on.
	if len(words) == 1 && len(words[0]) < 4 {
		return ""
	}
	return candidate
}

// FirstURL returns the first http(s) URL embedded in free text, or "".
func FirstURL(text string) string {
	m := urlInTextRe.FindString(text)
	return strings.TrimRight(m, ".,;")
}
