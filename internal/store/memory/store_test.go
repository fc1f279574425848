package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hossagent/leadscout/internal/lead"
)

func TestSignalRoundTrip(t *testing.T) {
	s := New()
	ctx := context.Background()

	sig := lead.Signal{ID: "sig-1", Summary: "hello", CreatedAt: time.Now().UTC()}
	require.NoError(t, s.CreateSignal(ctx, sig))
	assert.Error(t, s.CreateSignal(ctx, sig))

	got, err := s.GetSignal(ctx, "sig-1")
	require.NoError(t, err)
	assert.Equal(t, sig, got)

	_, err = s.GetSignal(ctx, "missing")
	assert.ErrorIs(t, err, lead.ErrNotFound)
}

func TestLeadEventLifecycle(t *testing.T) {
	s := New()
	ctx := context.Background()

	ev := lead.LeadEvent{ID: "ev-1", Status: lead.StatusUnenriched, CreatedAt: time.Now().UTC()}
	require.NoError(t, s.CreateLeadEvent(ctx, ev))

	ev.Status = lead.StatusWithDomainNoEmail
	ev.Domain = "coolrunningair.com"
	require.NoError(t, s.UpdateLeadEvent(ctx, ev))

	got, err := s.GetLeadEvent(ctx, "ev-1")
	require.NoError(t, err)
	assert.Equal(t, lead.StatusWithDomainNoEmail, got.Status)
	assert.Equal(t, "coolrunningair.com", got.Domain)

	assert.ErrorIs(t, s.UpdateLeadEvent(ctx, lead.LeadEvent{ID: "missing"}), lead.ErrNotFound)
}

func TestListLeadEventsByStatus(t *testing.T) {
	s := New()
	ctx := context.Background()
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	for i, st := range []lead.EnrichmentStatus{
		lead.StatusUnenriched,
		lead.StatusWithDomainNoEmail,
		lead.StatusUnenriched,
		lead.StatusArchived,
	} {
		require.NoError(t, s.CreateLeadEvent(ctx, lead.LeadEvent{
			ID:        string(rune('a' + i)),
			Status:    st,
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
		}))
	}

	got, err := s.ListLeadEventsByStatus(ctx, []lead.EnrichmentStatus{lead.StatusUnenriched}, 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	// Oldest first.
	assert.Equal(t, "a", got[0].ID)
	assert.Equal(t, "c", got[1].ID)

	capped, err := s.ListLeadEventsByStatus(ctx, []lead.EnrichmentStatus{lead.StatusUnenriched}, 1)
	require.NoError(t, err)
	assert.Len(t, capped, 1)
}
