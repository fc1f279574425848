package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hossagent/leadscout/internal/discovery"
	"github.com/hossagent/leadscout/internal/guard"
	"github.com/hossagent/leadscout/internal/lead"
	"github.com/hossagent/leadscout/internal/metrics"
	"github.com/hossagent/leadscout/internal/store/memory"
)

type stubProcessor struct {
	scored lead.ScoredSignal
	event  *lead.LeadEvent
	err    error
}

func (s *stubProcessor) ProcessSignal(_ context.Context, sig lead.Signal) (lead.ScoredSignal, *lead.LeadEvent, error) {
	scored := s.scored
	scored.Signal = sig
	scored.Signal.ID = "sig-1"
	return scored, s.event, s.err
}

type stubReporter struct{ status discovery.EngineStatus }

func (s stubReporter) Status() discovery.EngineStatus { return s.status }

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func newTestServer(t *testing.T, processor SignalProcessor, store lead.Store) (*Server, *guard.Guard) {
	t.Helper()
	metrics.Init()
	g := guard.New(guard.Config{FailureThreshold: 3, Cooldown: 5 * time.Minute}, realClock{}, zap.NewNop())
	engines := []StatusReporter{
		stubReporter{status: discovery.EngineStatus{Engine: "domain", Attempts: 10, Successes: 7}},
		stubReporter{status: discovery.EngineStatus{Engine: "email", Attempts: 5, Successes: 2, CacheSize: 3}},
	}
	return NewServer(processor, store, g, engines, zap.NewNop()), g
}

func TestHealthz(t *testing.T) {
	s, _ := newTestServer(t, &stubProcessor{}, memory.New())

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestIngestSignalQualifies(t *testing.T) {
	processor := &stubProcessor{
		scored: lead.ScoredSignal{Score: 87.5, Category: "GROWTH_SIGNAL", Qualifies: true},
		event:  &lead.LeadEvent{ID: "ev-1", Status: lead.StatusUnenriched},
	}
	s, _ := newTestServer(t, processor, memory.New())

	body, _ := json.Marshal(map[string]string{
		"source_type": "rss",
		"summary":     "Cool Running Air is hiring five new techs in Miami",
		"geography":   "Miami",
		"niche":       "HVAC",
	})
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/signals", bytes.NewReader(body)))

	require.Equal(t, http.StatusAccepted, rec.Code)
	var resp struct {
		SignalID    string  `json:"signal_id"`
		Score       float64 `json:"score"`
		Qualifies   bool    `json:"qualifies"`
		LeadEventID string  `json:"lead_event_id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "sig-1", resp.SignalID)
	assert.True(t, resp.Qualifies)
	assert.Equal(t, "ev-1", resp.LeadEventID)
}

func TestIngestSignalRejectsBadInput(t *testing.T) {
	s, _ := newTestServer(t, &stubProcessor{}, memory.New())

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/signals", bytes.NewReader([]byte("{not json"))))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	body, _ := json.Marshal(map[string]string{"geography": "Miami"})
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/signals", bytes.NewReader(body)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetLeadEvent(t *testing.T) {
	store := memory.New()
	require.NoError(t, store.CreateLeadEvent(context.Background(), lead.LeadEvent{
		ID:     "ev-1",
		Domain: "coolrunningair.com",
		Status: lead.StatusWithDomainNoEmail,
	}))
	s, _ := newTestServer(t, &stubProcessor{}, store)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/leads/ev-1", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var ev lead.LeadEvent
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ev))
	assert.Equal(t, "coolrunningair.com", ev.Domain)

	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/leads/missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestEngineStatus(t *testing.T) {
	s, _ := newTestServer(t, &stubProcessor{}, memory.New())

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/engines/status", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Engines []discovery.EngineStatus `json:"engines"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Engines, 2)
	assert.Equal(t, "domain", resp.Engines[0].Engine)
	assert.Equal(t, int64(7), resp.Engines[0].Successes)
}

func TestGuardStatusAndReset(t *testing.T) {
	s, g := newTestServer(t, &stubProcessor{}, memory.New())

	// Trip the breaker.
	for i := 0; i < 3; i++ {
		g.Failure("duckduckgo")
	}

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/guards", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Dependencies []guard.Status `json:"dependencies"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Dependencies, 1)
	assert.True(t, resp.Dependencies[0].Open)

	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/guards/duckduckgo/reset", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/guards", nil))
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Dependencies, 1)
	assert.False(t, resp.Dependencies[0].Open)
}

func TestMetricsEndpoint(t *testing.T) {
	s, _ := newTestServer(t, &stubProcessor{}, memory.New())

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	metrics.SetCircuitOpen("duckduckgo", false)
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, rec.Body.String(), "leadscout_circuit_open")
}
