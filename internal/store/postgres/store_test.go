package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hossagent/leadscout/internal/lead"
)

func newMockStore(t *testing.T) (*Store, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	store, err := NewWithPool(mock)
	require.NoError(t, err)
	return store, mock
}

func TestCreateSignalInsertsRow(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	now := time.Unix(1700000000, 0).UTC()

	sig := lead.Signal{
		ID:         "sig-1",
		SourceType: "rss",
		Summary:    "Cool Running Air expands into Broward",
		SourceURL:  "https://www.local10.com/news/article",
		Geography:  "Miami",
		Niche:      "HVAC",
		CreatedAt:  now,
	}

	mock.ExpectExec("INSERT INTO signals").
		WithArgs(
			sig.ID,
			sig.SourceType,
			sig.Summary,
			sig.SourceURL,
			sig.Geography,
			sig.Niche,
			sig.RawPayload,
			sig.CreatedAt,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, store.CreateSignal(context.Background(), sig))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetSignalNotFound(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)

	mock.ExpectQuery("FROM signals").
		WithArgs("missing").
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "source_type", "summary", "source_url",
			"geography", "niche", "raw_payload", "created_at",
		}))

	_, err := store.GetSignal(context.Background(), "missing")
	assert.ErrorIs(t, err, lead.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLeadEventInsertAndGet(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	now := time.Unix(1700000000, 0).UTC()

	ev := lead.LeadEvent{
		ID:          "ev-1",
		SignalID:    "sig-1",
		CompanyName: "Cool Running Air",
		Domain:      "coolrunningair.com",
		Status:      lead.StatusWithDomainNoEmail,

		DomainConfidence:   0.8,
		EnrichmentAttempts: 1,
		MissionLog:         []byte(`{"pass":1}`),
		CreatedAt:          now,
	}

	mock.ExpectExec("INSERT INTO lead_events").
		WithArgs(leadEventArgs(ev)...).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	require.NoError(t, store.CreateLeadEvent(context.Background(), ev))

	mock.ExpectQuery("FROM lead_events").
		WithArgs("ev-1").
		WillReturnRows(leadEventRows(ev))

	got, err := store.GetLeadEvent(context.Background(), "ev-1")
	require.NoError(t, err)
	assert.Equal(t, ev, got)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateLeadEventNotFound(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	ev := lead.LeadEvent{ID: "ev-missing", Status: lead.StatusUnenriched}

	mock.ExpectExec("UPDATE lead_events").
		WithArgs(leadEventArgs(ev)...).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := store.UpdateLeadEvent(context.Background(), ev)
	assert.ErrorIs(t, err, lead.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListLeadEventsByStatus(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	now := time.Unix(1700000000, 0).UTC()

	a := lead.LeadEvent{ID: "ev-a", Status: lead.StatusUnenriched, CreatedAt: now}
	b := lead.LeadEvent{ID: "ev-b", Status: lead.StatusUnenriched, CreatedAt: now.Add(time.Hour)}

	rows := leadEventRows(a)
	addLeadEventRow(rows, b)

	mock.ExpectQuery("FROM lead_events").
		WithArgs([]string{string(lead.StatusUnenriched)}, 10).
		WillReturnRows(rows)

	got, err := store.ListLeadEventsByStatus(
		context.Background(),
		[]lead.EnrichmentStatus{lead.StatusUnenriched},
		10,
	)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "ev-a", got[0].ID)
	assert.Equal(t, "ev-b", got[1].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func leadEventRows(ev lead.LeadEvent) *pgxmock.Rows {
	rows := pgxmock.NewRows([]string{
		"id", "signal_id", "company_name", "domain", "email", "phone",
		"source_url", "summary", "geography", "niche", "category", "status",
		"domain_confidence", "email_confidence", "phone_confidence",
		"enrichment_attempts", "last_enriched_at", "outbound_ready",
		"mission_log", "created_at",
	})
	addLeadEventRow(rows, ev)
	return rows
}

func addLeadEventRow(rows *pgxmock.Rows, ev lead.LeadEvent) {
	rows.AddRow(
		ev.ID, ev.SignalID, ev.CompanyName, ev.Domain, ev.Email, ev.Phone,
		ev.SourceURL, ev.Summary, ev.Geography, ev.Niche, ev.Category, string(ev.Status),
		ev.DomainConfidence, ev.EmailConfidence, ev.PhoneConfidence,
		ev.EnrichmentAttempts, ev.LastEnrichedAt, ev.OutboundReady,
		ev.MissionLog, ev.CreatedAt,
	)
}
