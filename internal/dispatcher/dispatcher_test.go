package dispatcher

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hossagent/leadscout/internal/lead"
)

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

func newOutbound(cfg Config) *Outbound {
	return New(cfg, fixedClock{now: time.Unix(1700000000, 0).UTC()}, zap.NewNop())
}

func TestDispatchSent(t *testing.T) {
	d := newOutbound(Config{})
	ev := lead.LeadEvent{
		ID:              "ev-1",
		Email:           "jane.doe@coolrunningair.com",
		EmailConfidence: 0.9,
	}

	outcome, err := d.Dispatch(context.Background(), ev)
	require.NoError(t, err)
	assert.Equal(t, lead.DispatchSent, outcome)

	_, ok := d.SentAt("ev-1")
	assert.True(t, ok)
}

func TestDispatchBlockedWithoutContact(t *testing.T) {
	d := newOutbound(Config{})
	outcome, err := d.Dispatch(context.Background(), lead.LeadEvent{ID: "ev-1"})
	require.NoError(t, err)
	assert.Equal(t, lead.DispatchBlocked, outcome)
}

func TestDispatchSuppression(t *testing.T) {
	d := newOutbound(Config{Suppressed: []string{"Bad@Example.com", "blockedco.com"}})

	outcome, err := d.Dispatch(context.Background(), lead.LeadEvent{
		ID: "ev-1", Email: "bad@example.com", EmailConfidence: 0.9,
	})
	require.NoError(t, err)
	assert.Equal(t, lead.DispatchBlocked, outcome)

	outcome, err = d.Dispatch(context.Background(), lead.LeadEvent{
		ID: "ev-2", Email: "jane@blockedco.com", EmailConfidence: 0.9,
	})
	require.NoError(t, err)
	assert.Equal(t, lead.DispatchBlocked, outcome)
}

func TestDispatchRoleInboxConfidenceFloor(t *testing.T) {
	d := newOutbound(Config{MinRoleConfidence: 0.7})

	outcome, err := d.Dispatch(context.Background(), lead.LeadEvent{
		ID: "ev-1", Email: "info@coolrunningair.com", EmailConfidence: 0.5,
	})
	require.NoError(t, err)
	assert.Equal(t, lead.DispatchBlocked, outcome)

	outcome, err = d.Dispatch(context.Background(), lead.LeadEvent{
		ID: "ev-2", Email: "info@coolrunningair.com", EmailConfidence: 0.8,
	})
	require.NoError(t, err)
	assert.Equal(t, lead.DispatchSent, outcome)

	// The floor only applies to role inboxes.
	outcome, err = d.Dispatch(context.Background(), lead.LeadEvent{
		ID: "ev-3", Email: "jane.doe@coolrunningair.com", EmailConfidence: 0.5,
	})
	require.NoError(t, err)
	assert.Equal(t, lead.DispatchSent, outcome)

	// Phone-only events pass straight through.
	outcome, err = d.Dispatch(context.Background(), lead.LeadEvent{
		ID: "ev-4", Phone: "+13055551234",
	})
	require.NoError(t, err)
	assert.Equal(t, lead.DispatchSent, outcome)
}
