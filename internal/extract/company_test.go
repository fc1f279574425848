package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompanyNameFromText(t *testing.T) {
	cases := []struct {
		text string
		want string
	}{
		{`Local HVAC firm "Cool Running Air" is expanding into Broward`, "Cool Running Air"},
		{`Acme Cooling LLC announced a second Miami location`, "Acme Cooling"},
		{`Sunshine Plumbing Co. opened a new office`, "Sunshine Plumbing"},
		{`Palm Breeze Roofing announces hurricane-readiness inspections`, "Palm Breeze Roofing"},
		{`Hurricane Andrew caused widespread damage`, ""},
		{`Miami-Dade County announced new permits`, ""},
		{`nothing capitalized here`, ""},
		{``, ""},
	}
	for _, tc := range cases {
		if got := CompanyNameFromText(tc.text); got != tc.want {
			t.Fatalf("CompanyNameFromText(%q) = %q, want %q", tc.text, got, tc.want)
		}
	}
}

func TestFirstURL(t *testing.T) {
	assert.Equal(t,
		"https://www.local10.com/news/hvac-expansion",
		FirstURL("See https://www.local10.com/news/hvac-expansion. More at the site."))
	assert.Equal(t, "", FirstURL("no links here"))
}
