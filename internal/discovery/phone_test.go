package discovery

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hossagent/leadscout/internal/extract"
	"github.com/hossagent/leadscout/internal/lead"
	"github.com/hossagent/leadscout/internal/missionlog"
)

func newPhoneEngine(f *stubFetcher) (*PhoneEngine, *PhoneRegistry, *fakeClock) {
	clk := testClock()
	registry := NewPhoneRegistry(24*time.Hour, clk)
	e := NewPhoneEngine(PhoneConfig{
		MaxPages:       4,
		CacheTTL:       24 * time.Hour,
		LocalAreaCodes: []string{"305", "786", "954", "754", "561", "772"},
		ReuseThreshold: 4,
	}, f, testGuard(clk), registry, clk, zap.NewNop())
	return e, registry, clk
}

func TestResolvePhonesTelLinkPreferred(t *testing.T) {
	f := &stubFetcher{pages: map[string]string{
		"https://coolrunningair.com/": `<html><body>
<a href="tel:+13055552368">Call</a>
<p>Or dial (305) 555-2368 anytime.</p>
</body></html>`,
	}}
	e, _, _ := newPhoneEngine(f)

	res := e.Resolve(context.Background(), "coolrunningair.com", missionlog.New())
	require.True(t, res.Found)
	assert.Equal(t, "+13055552368", res.Best.E164)
	assert.Equal(t, extract.PhoneSourceTel, res.Best.Source)
	// tel 0.8 base + 0.1 local area code.
	assert.InDelta(t, 0.9, res.Best.Confidence, 1e-9)
	assert.Equal(t, lead.PhoneLandline, res.Best.Type)
	// Same number from body text did not create a second candidate.
	require.Len(t, res.Candidates, 1)
}

func TestResolvePhonesTollFreePenalizedButKept(t *testing.T) {
	f := &stubFetcher{pages: map[string]string{
		"https://coolrunningair.com/": `<html><body>
<a href="tel:+18005551234">Toll free</a>
<footer>Local line: 954-555-8800</footer>
</body></html>`,
	}}
	e, _, _ := newPhoneEngine(f)

	res := e.Resolve(context.Background(), "coolrunningair.com", missionlog.New())
	require.True(t, res.Found)
	// Footer local number wins over the higher-base toll-free line.
	assert.Equal(t, "+19545558800", res.Best.E164)
	assert.Equal(t, lead.PhoneLandline, res.Best.Type)
	require.Len(t, res.Candidates, 2)

	var tollFree *lead.PhoneCandidate
	for i := range res.Candidates {
		if res.Candidates[i].Type == lead.PhoneTollFree {
			tollFree = &res.Candidates[i]
		}
	}
	require.NotNil(t, tollFree)
	// tel 0.8 base - 0.5 toll-free penalty.
	assert.InDelta(t, 0.3, tollFree.Confidence, 1e-9)
}

func TestResolvePhonesTollFreeOnlyFallback(t *testing.T) {
	f := &stubFetcher{pages: map[string]string{
		"https://coolrunningair.com/": `<html><body><a href="tel:+18005551234">Call</a></body></html>`,
	}}
	e, _, _ := newPhoneEngine(f)

	res := e.Resolve(context.Background(), "coolrunningair.com", missionlog.New())
	require.True(t, res.Found)
	assert.Equal(t, lead.PhoneTollFree, res.Best.Type)
}

func TestResolvePhonesMobileBonus(t *testing.T) {
	f := &stubFetcher{pages: map[string]string{
		"https://coolrunningair.com/": `<html><body><a href="tel:+17865552368">Call</a></body></html>`,
	}}
	e, _, _ := newPhoneEngine(f)

	res := e.Resolve(context.Background(), "coolrunningair.com", missionlog.New())
	require.True(t, res.Found)
	assert.Equal(t, lead.PhoneMobile, res.Best.Type)
	// tel 0.8 + 0.1 mobile + 0.1 local, clamped.
	assert.InDelta(t, 0.99, res.Best.Confidence, 1e-9)
}

func TestResolvePhonesCrossDomainReusePenalty(t *testing.T) {
	page := `<html><body><a href="tel:+13055552368">Call</a></body></html>`
	f := &stubFetcher{pages: map[string]string{
		"https://a1.com/": page, "https://a2.com/": page, "https://a3.com/": page,
		"https://a4.com/": page, "https://a5.com/": page, "https://a6.com/": page,
	}}
	e, registry, _ := newPhoneEngine(f)
	ctx := context.Background()

	first := e.Resolve(ctx, "a1.com", missionlog.New())
	require.True(t, first.Found)
	baseline := first.Best.Confidence

	for _, d := range []string{"a2.com", "a3.com", "a4.com", "a5.com"} {
		_ = e.Resolve(ctx, d, missionlog.New())
	}
	require.Equal(t, 5, registry.DomainCount("+13055552368"))

	// Sixth domain crosses the reuse threshold.
	last := e.Resolve(ctx, "a6.com", missionlog.New())
	require.True(t, last.Found)
	assert.InDelta(t, baseline-0.3, last.Best.Confidence, 1e-9)
}

func TestReverseLookup(t *testing.T) {
	f := &stubFetcher{pages: map[string]string{
		"https://coolrunningair.com/": `<html><body><a href="tel:+13055552368">Call</a></body></html>`,
		"https://othersite.com/":      `<html><body><a href="tel:+13055552368">Call</a></body></html>`,
	}}
	e, _, _ := newPhoneEngine(f)
	ctx := context.Background()

	_ = e.Resolve(ctx, "coolrunningair.com", missionlog.New())
	domain, ok := e.ReverseLookup("+13055552368")
	require.True(t, ok)
	assert.Equal(t, "coolrunningair.com", domain)

	// A second observed domain makes the lookup ambiguous.
	_ = e.Resolve(ctx, "othersite.com", missionlog.New())
	_, ok = e.ReverseLookup("+13055552368")
	assert.False(t, ok)

	_, ok = e.ReverseLookup("+19995550000")
	assert.False(t, ok)
}

func TestResolvePhonesCache(t *testing.T) {
	f := &stubFetcher{pages: map[string]string{
		"https://coolrunningair.com/": `<html><body><a href="tel:+13055552368">Call</a></body></html>`,
	}}
	e, _, _ := newPhoneEngine(f)
	ctx := context.Background()

	first := e.Resolve(ctx, "coolrunningair.com", missionlog.New())
	require.True(t, first.Found)
	calls := len(f.calls)

	second := e.Resolve(ctx, "coolrunningair.com", missionlog.New())
	require.True(t, second.Found)
	assert.Equal(t, calls, len(f.calls))
}

func TestPhoneEngineStatus(t *testing.T) {
	f := &stubFetcher{}
	e, _, _ := newPhoneEngine(f)
	_ = e.Resolve(context.Background(), "nosuchsite.example", missionlog.New())

	st := e.Status()
	assert.Equal(t, "phone", st.Engine)
	assert.Equal(t, int64(1), st.Attempts)
	assert.Equal(t, int64(0), st.Successes)
}
