// Package enrich drives lead events through the discovery state machine.
package enrich

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hossagent/leadscout/internal/discovery"
	"github.com/hossagent/leadscout/internal/lead"
	"github.com/hossagent/leadscout/internal/metrics"
	"github.com/hossagent/leadscout/internal/missionlog"
	"github.com/hossagent/leadscout/internal/signal"
)

// DomainResolver resolves a company domain from whatever is known.
type DomainResolver interface {
	Resolve(ctx context.Context, hints lead.Hints, log *missionlog.Log) discovery.DomainResult
}

// EmailResolver resolves a contact email for a known domain.
type EmailResolver interface {
	Resolve(ctx context.Context, domain string, hints lead.Hints, log *missionlog.Log) discovery.EmailResult
}

// PhoneResolver resolves phone candidates for a known domain.
type PhoneResolver interface {
	Resolve(ctx context.Context, domain string, log *missionlog.Log) discovery.PhoneResult
}

// Config tunes batch processing.
type Config struct {
	// BatchSize caps entities per run. Zero means 50.
	BatchSize int
	// Concurrency bounds the worker pool. Zero means 4.
	Concurrency int
	// StalenessWindow archives entities that never reached
	// ENRICHED_NO_OUTBOUND within it. Zero means 30 days.
	StalenessWindow time.Duration
}

// PassResult labels the outcome of one orchestrator pass over an entity.
type PassResult string

// Pass outcomes.
const (
	PassAdvanced   PassResult = "advanced"
	PassUnchanged  PassResult = "unchanged"
	PassArchived   PassResult = "archived"
	PassDispatched PassResult = "dispatched"
	PassError      PassResult = "error"
)

// BatchStats summarizes one batch run.
type BatchStats struct {
	Processed int
	Outcomes  map[PassResult]int
}

// Orchestrator owns lifecycle state for lead events. It is the only
// writer of EnrichmentStatus.
type Orchestrator struct {
	cfg        Config
	store      lead.Store
	scorer     *signal.Scorer
	domains    DomainResolver
	emails     EmailResolver
	phones     PhoneResolver
	dispatcher lead.Dispatcher
	clock      lead.Clock
	logger     *zap.Logger
}

// New builds an Orchestrator.
func New(
	cfg Config,
	store lead.Store,
	scorer *signal.Scorer,
	domains DomainResolver,
	emails EmailResolver,
	phones PhoneResolver,
	dispatcher lead.Dispatcher,
	clock lead.Clock,
	logger *zap.Logger,
) *Orchestrator {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if cfg.StalenessWindow <= 0 {
		cfg.StalenessWindow = 30 * 24 * time.Hour
	}
	return &Orchestrator{
		cfg:        cfg,
		store:      store,
		scorer:     scorer,
		domains:    domains,
		emails:     emails,
		phones:     phones,
		dispatcher: dispatcher,
		clock:      clock,
		logger:     logger,
	}
}

// ProcessSignal scores an incoming signal, persists it, and opens a lead
// event when the score qualifies. The returned event is nil when the
// signal does not qualify.
func (o *Orchestrator) ProcessSignal(ctx context.Context, sig lead.Signal) (lead.ScoredSignal, *lead.LeadEvent, error) {
	if sig.ID == "" {
		sig.ID = uuid.NewString()
	}
	if sig.CreatedAt.IsZero() {
		sig.CreatedAt = o.clock.Now()
	}
	scored := o.scorer.Score(sig)

	if err := o.store.CreateSignal(ctx, sig); err != nil {
		return scored, nil, fmt.Errorf("persist signal: %w", err)
	}
	if !scored.Qualifies {
		return scored, nil, nil
	}

	ev := lead.LeadEvent{
		ID:        uuid.NewString(),
		SignalID:  sig.ID,
		SourceURL: sig.SourceURL,
		Summary:   sig.Summary,
		Geography: sig.Geography,
		Niche:     sig.Niche,
		Category:  scored.Category,
		Status:    lead.StatusUnenriched,
		CreatedAt: o.clock.Now(),
	}
	if err := o.store.CreateLeadEvent(ctx, ev); err != nil {
		return scored, nil, fmt.Errorf("persist lead event: %w", err)
	}
	o.logger.Info("lead event opened",
		zap.String("lead_event_id", ev.ID),
		zap.String("category", scored.Category),
		zap.Float64("score", scored.Score),
	)
	return scored, &ev, nil
}

// activeStatuses are the states a batch run pulls work from.
var activeStatuses = []lead.EnrichmentStatus{
	lead.StatusUnenriched,
	lead.StatusWithDomainNoEmail,
	lead.StatusWithPhoneOnly,
	lead.StatusEnrichedNoOutbound,
}

// RunBatch processes up to BatchSize active entities with a bounded
// worker pool. Per-entity failures are recorded and never abort the run.
func (o *Orchestrator) RunBatch(ctx context.Context) (BatchStats, error) {
	events, err := o.store.ListLeadEventsByStatus(ctx, activeStatuses, o.cfg.BatchSize)
	if err != nil {
		return BatchStats{}, fmt.Errorf("list active lead events: %w", err)
	}

	stats := BatchStats{Outcomes: make(map[PassResult]int)}
	counts := make(map[lead.EnrichmentStatus]int)
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.cfg.Concurrency)
	for _, ev := range events {
		g.Go(func() error {
			updated, result := o.ProcessEvent(gctx, ev)
			metrics.ObserveEnrichmentPass(string(result))
			mu.Lock()
			stats.Processed++
			stats.Outcomes[result]++
			counts[updated.Status]++
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return stats, err
	}

	for status, n := range counts {
		metrics.SetLeadEvents(string(status), n)
	}
	o.logger.Info("enrichment batch complete",
		zap.Int("processed", stats.Processed),
		zap.Int("advanced", stats.Outcomes[PassAdvanced]),
		zap.Int("archived", stats.Outcomes[PassArchived]),
		zap.Int("dispatched", stats.Outcomes[PassDispatched]),
		zap.Int("errors", stats.Outcomes[PassError]),
	)
	return stats, nil
}

// ProcessEvent runs one orchestrator pass over a single entity and
// persists the outcome. Discovery failures leave the state unchanged;
// only store failures surface as PassError.
func (o *Orchestrator) ProcessEvent(ctx context.Context, ev lead.LeadEvent) (lead.LeadEvent, PassResult) {
	if ev.Status.Terminal() {
		return ev, PassUnchanged
	}

	if result, archived := o.archiveIfStale(ctx, &ev); archived {
		return ev, result
	}

	log, err := missionlog.Parse(ev.MissionLog)
	if err != nil {
		// A corrupt log is dropped, not fatal.
		o.logger.Warn("mission log unreadable, starting fresh",
			zap.String("lead_event_id", ev.ID), zap.Error(err))
		log = missionlog.New()
	}
	if log.Len() > 0 {
		log.StartNewPass()
	}

	before := ev.Status
	result := o.advance(ctx, &ev, log)
	if result == PassUnchanged && ev.Status != before {
		result = PassAdvanced
	}

	ev.EnrichmentAttempts++
	now := o.clock.Now()
	ev.LastEnrichedAt = &now
	if data, err := log.Marshal(); err == nil {
		ev.MissionLog = data
	}

	if err := o.store.UpdateLeadEvent(ctx, ev); err != nil {
		o.logger.Error("persist lead event failed",
			zap.String("lead_event_id", ev.ID), zap.Error(err))
		return ev, PassError
	}
	if ev.Status != before {
		o.logger.Info("lead event transitioned",
			zap.String("lead_event_id", ev.ID),
			zap.String("from", string(before)),
			zap.String("to", string(ev.Status)),
		)
	}
	return ev, result
}

// archiveIfStale moves an entity that never reached ENRICHED_NO_OUTBOUND
// past the staleness window into ARCHIVED.
func (o *Orchestrator) archiveIfStale(ctx context.Context, ev *lead.LeadEvent) (PassResult, bool) {
	if ev.Status == lead.StatusEnrichedNoOutbound {
		return "", false
	}
	if o.clock.Now().Sub(ev.CreatedAt) <= o.cfg.StalenessWindow {
		return "", false
	}
	ev.Status = lead.StatusArchived
	if err := o.store.UpdateLeadEvent(ctx, *ev); err != nil {
		o.logger.Error("archive lead event failed",
			zap.String("lead_event_id", ev.ID), zap.Error(err))
		return PassError, true
	}
	o.logger.Info("lead event archived",
		zap.String("lead_event_id", ev.ID),
		zap.Duration("age", o.clock.Now().Sub(ev.CreatedAt)),
	)
	return PassArchived, true
}

// advance applies one state-machine step. It mutates ev in place and
// reports what happened; the caller persists.
func (o *Orchestrator) advance(ctx context.Context, ev *lead.LeadEvent, log *missionlog.Log) PassResult {
	switch ev.Status {
	case lead.StatusUnenriched:
		return o.fromUnenriched(ctx, ev, log)
	case lead.StatusWithDomainNoEmail, lead.StatusWithPhoneOnly:
		return o.fromPartial(ctx, ev, log)
	case lead.StatusEnrichedNoOutbound:
		return o.dispatch(ctx, ev)
	}
	return PassUnchanged
}

func (o *Orchestrator) fromUnenriched(ctx context.Context, ev *lead.LeadEvent, log *missionlog.Log) PassResult {
	res := o.domains.Resolve(ctx, lead.HintsFromEvent(*ev), log)
	if !res.Found {
		return PassUnchanged
	}
	ev.Domain = res.Domain
	ev.DomainConfidence = res.Confidence
	ev.Status = lead.StatusWithDomainNoEmail
	return o.fromPartial(ctx, ev, log)
}

// fromPartial tries email against the known domain, with phone discovery
// run opportunistically regardless of the email outcome.
func (o *Orchestrator) fromPartial(ctx context.Context, ev *lead.LeadEvent, log *missionlog.Log) PassResult {
	emailRes := o.emails.Resolve(ctx, ev.Domain, lead.HintsFromEvent(*ev), log)
	o.discoverPhone(ctx, ev, log)

	if !emailRes.Found {
		if ev.Email == "" && ev.Phone != "" {
			ev.Status = lead.StatusWithPhoneOnly
		}
		return PassUnchanged
	}

	ev.Email = emailRes.Email
	ev.EmailConfidence = emailRes.Confidence
	ev.Status = lead.StatusEnrichedNoOutbound
	ev.OutboundReady = true
	return o.dispatch(ctx, ev)
}

func (o *Orchestrator) discoverPhone(ctx context.Context, ev *lead.LeadEvent, log *missionlog.Log) {
	if ev.Domain == "" {
		return
	}
	res := o.phones.Resolve(ctx, ev.Domain, log)
	if !res.Found {
		return
	}
	if ev.Phone == "" || res.Best.Confidence > ev.PhoneConfidence {
		ev.Phone = res.Best.E164
		ev.PhoneConfidence = res.Best.Confidence
	}
}

// dispatch hands a ready entity to the outbound collaborator. Blocked
// and retryable outcomes keep the entity in ENRICHED_NO_OUTBOUND.
func (o *Orchestrator) dispatch(ctx context.Context, ev *lead.LeadEvent) PassResult {
	outcome, err := o.dispatcher.Dispatch(ctx, *ev)
	if err != nil {
		metrics.ObserveDispatch("error")
		o.logger.Warn("outbound dispatch failed",
			zap.String("lead_event_id", ev.ID), zap.Error(err))
		return PassUnchanged
	}
	metrics.ObserveDispatch(string(outcome))
	if outcome == lead.DispatchSent {
		ev.Status = lead.StatusOutboundSent
		return PassDispatched
	}
	o.logger.Info("outbound dispatch deferred",
		zap.String("lead_event_id", ev.ID),
		zap.String("outcome", string(outcome)),
	)
	return PassUnchanged
}
