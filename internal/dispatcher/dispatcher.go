// Package dispatcher hands enriched lead events to the outbound channel.
package dispatcher

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hossagent/leadscout/internal/extract"
	"github.com/hossagent/leadscout/internal/lead"
)

// Config tunes outbound gating.
type Config struct {
	// Suppressed lists do-not-contact emails and domains.
	Suppressed []string
	// MinRoleConfidence blocks role inboxes (info@, sales@, ...) below
	// this email confidence. Zero disables the gate.
	MinRoleConfidence float64
}

// Outbound is the in-process outbound-dispatch collaborator. It gates
// on suppression and confidence; the actual send channel sits behind it.
type Outbound struct {
	cfg        Config
	suppressed map[string]struct{}
	clock      lead.Clock
	logger     *zap.Logger

	mu   sync.Mutex
	sent map[string]time.Time
}

// New creates an Outbound dispatcher.
func New(cfg Config, clock lead.Clock, logger *zap.Logger) *Outbound {
	suppressed := make(map[string]struct{}, len(cfg.Suppressed))
	for _, s := range cfg.Suppressed {
		suppressed[strings.ToLower(strings.TrimSpace(s))] = struct{}{}
	}
	return &Outbound{
		cfg:        cfg,
		suppressed: suppressed,
		clock:      clock,
		logger:     logger,
		sent:       make(map[string]time.Time),
	}
}

// Dispatch reports sent, blocked, or retryable for the given event.
// Blocked means a standing condition (suppression, weak role inbox);
// retryable means the event is usable but could not go out now.
func (d *Outbound) Dispatch(_ context.Context, ev lead.LeadEvent) (lead.DispatchOutcome, error) {
	if ev.Email == "" && ev.Phone == "" {
		return lead.DispatchBlocked, nil
	}
	if ev.Email != "" {
		email := strings.ToLower(ev.Email)
		if _, ok := d.suppressed[email]; ok {
			d.logger.Info("dispatch blocked by suppression",
				zap.String("lead_event_id", ev.ID))
			return lead.DispatchBlocked, nil
		}
		if _, ok := d.suppressed[extract.EmailDomain(email)]; ok {
			d.logger.Info("dispatch blocked by domain suppression",
				zap.String("lead_event_id", ev.ID))
			return lead.DispatchBlocked, nil
		}
		if d.cfg.MinRoleConfidence > 0 &&
			extract.RoleBased(email) &&
			ev.EmailConfidence < d.cfg.MinRoleConfidence {
			d.logger.Info("dispatch blocked, role inbox below confidence floor",
				zap.String("lead_event_id", ev.ID),
				zap.Float64("confidence", ev.EmailConfidence),
			)
			return lead.DispatchBlocked, nil
		}
	}

	d.mu.Lock()
	d.sent[ev.ID] = d.clock.Now()
	d.mu.Unlock()
	d.logger.Info("lead event dispatched",
		zap.String("lead_event_id", ev.ID),
		zap.String("category", ev.Category),
	)
	return lead.DispatchSent, nil
}

// SentAt returns when the event was dispatched, if it was.
func (d *Outbound) SentAt(id string) (time.Time, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	at, ok := d.sent[id]
	return at, ok
}
