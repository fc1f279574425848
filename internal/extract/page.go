// Package extract provides pure parsing of fetched pages and free text
// into typed contact candidates. No I/O happens here.
package extract

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

// Page is the parsed, extraction-ready view of one fetched HTML page.
type Page struct {
	// Links holds absolute outbound anchor URLs, document order,
	// deduplicated, mailto/tel/javascript schemes excluded.
	Links []string
	// MailtoEmails holds addresses from mailto: anchors.
	MailtoEmails []string
	// TelNumbers holds raw values from tel: anchors.
	TelNumbers []string
	// SchemaEmails/SchemaPhones hold contact fields from JSON-LD blocks.
	SchemaEmails []string
	SchemaPhones []string
	// FooterText is the visible text inside footer elements.
	FooterText string
	// BodyText is all visible text, whitespace-collapsed.
	BodyText string
	// Title is the document title.
	Title string
}

// ParsePage parses an HTML document. baseURL resolves relative links;
// pass "" to keep only absolute ones.
func ParsePage(body []byte, baseURL string) (*Page, error) {
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	var base *url.URL
	if baseURL != "" {
		base, _ = url.Parse(baseURL)
	}

	p := &Page{}
	seen := make(map[string]struct{})
	var bodyText, footerText strings.Builder
	var walk func(n *html.Node, inFooter, inSkipped bool)
	walk = func(n *html.Node, inFooter, inSkipped bool) {
		switch n.Type {
		case html.ElementNode:
			switch n.Data {
			case "script":
				if attr(n, "type") == "application/ld+json" && n.FirstChild != nil {
					p.collectSchema(n.FirstChild.Data)
				}
				inSkipped = true
			case "style", "noscript":
				inSkipped = true
			case "footer":
				inFooter = true
			case "title":
				if n.FirstChild != nil && p.Title == "" {
					p.Title = strings.TrimSpace(n.FirstChild.Data)
				}
			case "a":
				p.collectAnchor(attr(n, "href"), base, seen)
			}
		case html.TextNode:
			if !inSkipped {
				text := strings.TrimSpace(n.Data)
				if text != "" {
					bodyText.WriteString(text)
					bodyText.WriteByte(' ')
					if inFooter {
						footerText.WriteString(text)
						footerText.WriteByte(' ')
					}
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c, inFooter, inSkipped)
		}
	}
	walk(doc, false, false)

	p.BodyText = strings.TrimSpace(bodyText.String())
	p.FooterText = strings.TrimSpace(footerText.String())
	return p, nil
}

func (p *Page) collectAnchor(href string, base *url.URL, seen map[string]struct{}) {
	href = strings.TrimSpace(href)
	if href == "" {
		return
	}
	lower := strings.ToLower(href)
	switch {
	case strings.HasPrefix(lower, "mailto:"):
		addr := strings.SplitN(href[len("mailto:"):], "?", 2)[0]
		addr = strings.ToLower(strings.TrimSpace(addr))
		if addr != "" {
			p.MailtoEmails = appendUnique(p.MailtoEmails, addr)
		}
		return
	case strings.HasPrefix(lower, "tel:"):
		num := strings.TrimSpace(href[len("tel:"):])
		if num != "" {
			p.TelNumbers = appendUnique(p.TelNumbers, num)
		}
		return
	case strings.HasPrefix(lower, "javascript:"), strings.HasPrefix(lower, "#"):
		return
	}

	u, err := url.Parse(href)
	if err != nil {
		return
	}
	if base != nil {
		u = base.ResolveReference(u)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return
	}
	abs := u.String()
	if _, dup := seen[abs]; dup {
		return
	}
	seen[abs] = struct{}{}
	p.Links = append(p.Links, abs)
}

// collectSchema pulls email/telephone fields out of a JSON-LD block,
// descending nested objects and arrays.
func (p *Page) collectSchema(raw string) {
	var doc any
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return
	}
	var descend func(v any)
	descend = func(v any) {
		switch t := v.(type) {
		case map[string]any:
			for key, val := range t {
				switch strings.ToLower(key) {
				case "email":
					if s, ok := val.(string); ok && s != "" {
						s = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), "mailto:"))
						p.SchemaEmails = appendUnique(p.SchemaEmails, s)
						continue
					}
				case "telephone":
					if s, ok := val.(string); ok && s != "" {
						p.SchemaPhones = appendUnique(p.SchemaPhones, strings.TrimSpace(s))
						continue
					}
				}
				descend(val)
			}
		case []any:
			for _, item := range t {
				descend(item)
			}
		}
	}
	descend(doc)
}

func attr(n *html.Node, name string) string {
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val
		}
	}
	return ""
}

func appendUnique(list []string, v string) []string {
	for _, existing := range list {
		if existing == v {
			return list
		}
	}
	return append(list, v)
}

// PageType classifies a URL by its path for extraction weighting.
type PageType string

// Page types ordered by contact-info likelihood.
const (
	PageContact PageType = "contact"
	PageAbout   PageType = "about"
	PageHome    PageType = "home"
	PageOther   PageType = "other"
)

// ClassifyPage infers the page type from the URL path.
func ClassifyPage(rawURL string) PageType {
	u, err := url.Parse(rawURL)
	if err != nil {
		return PageOther
	}
	path := strings.ToLower(strings.Trim(u.Path, "/"))
	switch {
	case path == "":
		return PageHome
	case strings.Contains(path, "contact"), strings.Contains(path, "reach-us"),
		strings.Contains(path, "get-in-touch"), strings.Contains(path, "quote"),
		strings.Contains(path, "estimate"):
		return PageContact
	case strings.Contains(path, "about"), strings.Contains(path, "team"),
		strings.Contains(path, "staff"), strings.Contains(path, "our-story"),
		strings.Contains(path, "company"):
		return PageAbout
	}
	return PageOther
}

// ContactPaths is the bounded list of likely contact page paths the
// email engine probes after the homepage.
var ContactPaths = []string{
	"/contact", "/contact-us", "/contactus", "/about", "/about-us",
	"/team", "/get-a-quote", "/support",
}
