package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hossagent/leadscout/internal/lead"
)

func TestNormalizePhone(t *testing.T) {
	cases := []struct {
		raw  string
		want string
		ok   bool
	}{
		{"(305) 555-1234", "+13055551234", true},
		{"305-555-1234", "+13055551234", true},
		{"+1 305.555.1234", "+13055551234", true},
		{"1-305-555-1234", "+13055551234", true},
		{"+13055551234", "+13055551234", true},
		{"5555555555", "", false},   // all same digits
		{"1111111111", "", false},   // leading 1
		{"0123456789", "", false},   // leading 0
		{"3050551234", "", false},   // exchange leading 0
		{"3055550123", "", false},   // fictional 555-01xx
		{"305555123", "", false},    // too short
		{"30555512345", "", false},  // 11 digits, no leading 1
		{"", "", false},
	}
	for _, tc := range cases {
		got, ok := NormalizePhone(tc.raw)
		if ok != tc.ok || got != tc.want {
			t.Fatalf("NormalizePhone(%q) = (%q, %v), want (%q, %v)", tc.raw, got, ok, tc.want, tc.ok)
		}
	}
}

func TestNormalizePhoneIdempotent(t *testing.T) {
	once, ok := NormalizePhone("(305) 555-1234")
	require.True(t, ok)
	twice, ok := NormalizePhone(once)
	require.True(t, ok)
	assert.Equal(t, once, twice)
}

func TestValidPhoneRejectsTollFree(t *testing.T) {
	for _, raw := range []string{"8005551234", "8885551234", "8775551234", "8665551234", "8335551234"} {
		assert.False(t, ValidPhone(raw), raw)
	}
	assert.True(t, ValidPhone("3055551234"))
}

func TestClassifyPhone(t *testing.T) {
	assert.Equal(t, lead.PhoneTollFree, ClassifyPhone("+18005551234"))
	assert.Equal(t, lead.PhoneMobile, ClassifyPhone("+17865551234"))
	assert.Equal(t, lead.PhoneLandline, ClassifyPhone("+13055551234"))
	assert.Equal(t, lead.PhoneUnknown, ClassifyPhone("3055551234"))
}

func TestPhonesSourceTagging(t *testing.T) {
	p := &Page{
		TelNumbers:   []string{"+13055552368"},
		SchemaPhones: []string{"(305) 555-2368"},
		FooterText:   "Call 954-555-8800 today",
		BodyText:     "Our office line is (561) 555-9000.",
	}
	got := Phones(p)
	require.Len(t, got, 4)
	assert.Equal(t, PhoneSourceTel, got[0].Source)
	assert.Equal(t, PhoneSourceSchema, got[1].Source)
	assert.Equal(t, PhoneSourceFooter, got[2].Source)
	assert.Equal(t, PhoneSourceBody, got[3].Source)
}

func TestAreaCode(t *testing.T) {
	assert.Equal(t, "305", AreaCode("+13055551234"))
	assert.Equal(t, "", AreaCode("3055551234"))
}
