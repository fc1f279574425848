package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePage = `<!DOCTYPE html>
<html>
<head>
<title>Cool Running Air - Miami HVAC</title>
<script type="application/ld+json">
{"@type":"LocalBusiness","name":"Cool Running Air","email":"office@coolrunningair.com","telephone":"(305) 555-2368"}
</script>
<style>body { color: red; }</style>
</head>
<body>
<p>Call us for all your AC needs in Miami.</p>
<a href="/about">About</a>
<a href="https://www.facebook.com/coolrunningair">Facebook</a>
<a href="mailto:info@coolrunningair.com?subject=Quote">Email us</a>
<a href="tel:+13055552368">Call now</a>
<a href="javascript:void(0)">noop</a>
<a href="#top">top</a>
<footer>
<p>Cool Running Air &middot; 305-555-2368 &middot; Miami, FL</p>
</footer>
</body>
</html>`

func TestParsePage(t *testing.T) {
	p, err := ParsePage([]byte(samplePage), "https://coolrunningair.com/")
	require.NoError(t, err)

	assert.Equal(t, "Cool Running Air - Miami HVAC", p.Title)
	assert.Equal(t, []string{
		"https://coolrunningair.com/about",
		"https://www.facebook.com/coolrunningair",
	}, p.Links)
	assert.Equal(t, []string{"info@coolrunningair.com"}, p.MailtoEmails)
	assert.Equal(t, []string{"+13055552368"}, p.TelNumbers)
	assert.Equal(t, []string{"office@coolrunningair.com"}, p.SchemaEmails)
	assert.Equal(t, []string{"(305) 555-2368"}, p.SchemaPhones)
	assert.Contains(t, p.FooterText, "305-555-2368")
	assert.NotContains(t, p.BodyText, "color: red")
	assert.Contains(t, p.BodyText, "Call us for all your AC needs")
}

func TestParsePageRelativeLinksWithoutBase(t *testing.T) {
	p, err := ParsePage([]byte(`<a href="/about">x</a><a href="https://example.com/a">y</a>`), "")
	require.NoError(t, err)
	// Relative links without a base cannot be resolved to http(s).
	assert.Equal(t, []string{"https://example.com/a"}, p.Links)
}

func TestClassifyPage(t *testing.T) {
	cases := []struct {
		url  string
		want PageType
	}{
		{"https://example.com/", PageHome},
		{"https://example.com", PageHome},
		{"https://example.com/contact-us", PageContact},
		{"https://example.com/get-a-quote", PageContact},
		{"https://example.com/about/team", PageAbout},
		{"https://example.com/blog/post-1", PageOther},
	}
	for _, tc := range cases {
		if got := ClassifyPage(tc.url); got != tc.want {
			t.Fatalf("ClassifyPage(%q) = %s, want %s", tc.url, got, tc.want)
		}
	}
}
