// Package missionlog records every discovery attempt made for a lead
// event so that later passes never repeat work already done.
package missionlog

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"
)

// Phases of the discovery pipeline.
const (
	PhaseDomain = "DOMAIN"
	PhaseEmail  = "EMAIL"
	PhasePhone  = "PHONE"
)

// Outcomes recorded per attempt.
const (
	OutcomeSuccess  = "success"
	OutcomeNoResult = "no_result"
	OutcomeError    = "error"
	OutcomeCached   = "cached"
)

// Entry is one immutable attempt record.
type Entry struct {
	Timestamp time.Time     `json:"ts"`
	Pass      int           `json:"pass"`
	Phase     string        `json:"phase"`
	Action    string        `json:"action"`
	Query     string        `json:"query,omitempty"`
	Outcome   string        `json:"outcome"`
	Notes     string        `json:"notes,omitempty"`
	Duration  time.Duration `json:"duration_ns,omitempty"`
}

// Log is an append-only attempt log scoped to one lead event. Safe for
// concurrent use; entries are never rewritten or deleted.
type Log struct {
	mu      sync.RWMutex
	entries []Entry
	pass    int
}

// New returns an empty log starting at pass 1.
func New() *Log {
	return &Log{pass: 1}
}

// serialized is the JSON wire form of a Log.
type serialized struct {
	Pass    int     `json:"pass"`
	Entries []Entry `json:"entries"`
}

// Parse restores a log from its serialized form. Empty input yields a
// fresh log.
func Parse(data []byte) (*Log, error) {
	if len(data) == 0 {
		return New(), nil
	}
	var s serialized
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse mission log: %w", err)
	}
	if s.Pass < 1 {
		s.Pass = 1
	}
	return &Log{entries: s.Entries, pass: s.Pass}, nil
}

// Marshal serializes the log for persistence on the lead event.
func (l *Log) Marshal() ([]byte, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	data, err := json.Marshal(serialized{Pass: l.pass, Entries: l.entries})
	if err != nil {
		return nil, fmt.Errorf("marshal mission log: %w", err)
	}
	return data, nil
}

// Add appends an attempt record stamped with the current pass.
func (l *Log) Add(phase, action, query, outcome, notes string, duration time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, Entry{
		Timestamp: time.Now().UTC(),
		Pass:      l.pass,
		Phase:     phase,
		Action:    action,
		Query:     query,
		Outcome:   outcome,
		Notes:     notes,
		Duration:  duration,
	})
}

// HasAttempted reports whether the (phase, action, query) tuple was
// already tried during the current pass. Engines must consult this
// before any network call and skip the call when it returns true.
func (l *Log) HasAttempted(phase, action, query string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for i := len(l.entries) - 1; i >= 0; i-- {
		e := l.entries[i]
		if e.Pass < l.pass {
			break
		}
		if e.Phase == phase && e.Action == action && e.Query == query {
			return true
		}
	}
	return false
}

// HasSucceeded reports whether any attempt in the given phase ever
// succeeded, across all passes. An empty action matches any action.
func (l *Log) HasSucceeded(phase, action string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, e := range l.entries {
		if e.Phase != phase || e.Outcome != OutcomeSuccess {
			continue
		}
		if action == "" || e.Action == action {
			return true
		}
	}
	return false
}

// StartNewPass increments and returns the pass number. Attempts from
// earlier passes no longer suppress retries.
func (l *Log) StartNewPass() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.pass++
	return l.pass
}

// Pass returns the current pass number.
func (l *Log) Pass() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.pass
}

// Len returns the number of recorded attempts.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// Entries returns a copy of all recorded attempts in order.
func (l *Log) Entries() []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Summary returns per-phase attempt/success counts for operator views.
func (l *Log) Summary() map[string]PhaseSummary {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make(map[string]PhaseSummary)
	for _, e := range l.entries {
		s := out[e.Phase]
		s.Attempts++
		if e.Outcome == OutcomeSuccess {
			s.Successes++
		}
		out[e.Phase] = s
	}
	return out
}

// PhaseSummary aggregates attempts within one phase.
type PhaseSummary struct {
	Attempts  int `json:"attempts"`
	Successes int `json:"successes"`
}

// Condensed returns a compact human-readable view of the log, one line
// per attempt, most recent last.
func (l *Log) Condensed() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var b strings.Builder
	for _, e := range l.entries {
		fmt.Fprintf(&b, "p%d %s/%s %s", e.Pass, e.Phase, e.Action, e.Outcome)
		if e.Query != "" {
			fmt.Fprintf(&b, " q=%q", e.Query)
		}
		b.WriteByte('\n')
	}
	return b.String()
}
