// Package memory provides an in-memory Store for tests and local runs.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/hossagent/leadscout/internal/lead"
)

// Store keeps signals and lead events in process memory. Safe for
// concurrent use.
type Store struct {
	mu      sync.RWMutex
	signals map[string]lead.Signal
	events  map[string]lead.LeadEvent
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		signals: make(map[string]lead.Signal),
		events:  make(map[string]lead.LeadEvent),
	}
}

// CreateSignal stores a new signal.
func (s *Store) CreateSignal(_ context.Context, sig lead.Signal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.signals[sig.ID]; exists {
		return fmt.Errorf("signal %s already exists", sig.ID)
	}
	s.signals[sig.ID] = sig
	return nil
}

// GetSignal returns a signal by identity.
func (s *Store) GetSignal(_ context.Context, id string) (lead.Signal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sig, ok := s.signals[id]
	if !ok {
		return lead.Signal{}, fmt.Errorf("signal %s: %w", id, lead.ErrNotFound)
	}
	return sig, nil
}

// CreateLeadEvent stores a new lead event.
func (s *Store) CreateLeadEvent(_ context.Context, ev lead.LeadEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.events[ev.ID]; exists {
		return fmt.Errorf("lead event %s already exists", ev.ID)
	}
	s.events[ev.ID] = ev
	return nil
}

// GetLeadEvent returns a lead event by identity.
func (s *Store) GetLeadEvent(_ context.Context, id string) (lead.LeadEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ev, ok := s.events[id]
	if !ok {
		return lead.LeadEvent{}, fmt.Errorf("lead event %s: %w", id, lead.ErrNotFound)
	}
	return ev, nil
}

// UpdateLeadEvent replaces an existing lead event.
func (s *Store) UpdateLeadEvent(_ context.Context, ev lead.LeadEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.events[ev.ID]; !exists {
		return fmt.Errorf("lead event %s: %w", ev.ID, lead.ErrNotFound)
	}
	s.events[ev.ID] = ev
	return nil
}

// ListLeadEventsByStatus returns up to limit events in any of the given
// states, oldest first.
func (s *Store) ListLeadEventsByStatus(_ context.Context, statuses []lead.EnrichmentStatus, limit int) ([]lead.LeadEvent, error) {
	wanted := make(map[lead.EnrichmentStatus]struct{}, len(statuses))
	for _, st := range statuses {
		wanted[st] = struct{}{}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []lead.LeadEvent
	for _, ev := range s.events {
		if _, ok := wanted[ev.Status]; ok {
			out = append(out, ev)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
