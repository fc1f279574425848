// Package postgres provides Postgres-backed persistence for signals
// and lead events.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hossagent/leadscout/internal/lead"
)

// Config controls the Postgres connection pool.
type Config struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type pool interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	QueryRow(context.Context, string, ...any) pgx.Row
	Close()
}

// Store implements lead.Store on top of a pgx connection pool.
type Store struct {
	pool pool
}

// New creates a Postgres-backed Store using the provided config.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	p, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &Store{pool: p}, nil
}

// NewWithPool constructs a Store from an existing pool (primarily for testing).
func NewWithPool(p pool) (*Store, error) {
	if p == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &Store{pool: p}, nil
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

const insertSignalQuery = `
INSERT INTO signals (
	id,
	source_type,
	summary,
	source_url,
	geography,
	niche,
	raw_payload,
	created_at
) VALUES (
	$1,$2,$3,$4,$5,$6,$7,$8
)`

// CreateSignal inserts a signal row.
func (s *Store) CreateSignal(ctx context.Context, sig lead.Signal) error {
	if sig.ID == "" {
		return fmt.Errorf("signal id is required")
	}
	args := []any{
		sig.ID,
		sig.SourceType,
		sig.Summary,
		sig.SourceURL,
		sig.Geography,
		sig.Niche,
		sig.RawPayload,
		sig.CreatedAt,
	}
	if _, err := s.pool.Exec(ctx, insertSignalQuery, args...); err != nil {
		return fmt.Errorf("insert signal: %w", err)
	}
	return nil
}

const selectSignalQuery = `
SELECT id, source_type, summary, source_url, geography, niche, raw_payload, created_at
FROM signals
WHERE id = $1`

// GetSignal returns a signal by identity.
func (s *Store) GetSignal(ctx context.Context, id string) (lead.Signal, error) {
	var sig lead.Signal
	row := s.pool.QueryRow(ctx, selectSignalQuery, id)
	err := row.Scan(
		&sig.ID,
		&sig.SourceType,
		&sig.Summary,
		&sig.SourceURL,
		&sig.Geography,
		&sig.Niche,
		&sig.RawPayload,
		&sig.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return lead.Signal{}, fmt.Errorf("signal %s: %w", id, lead.ErrNotFound)
	}
	if err != nil {
		return lead.Signal{}, fmt.Errorf("select signal: %w", err)
	}
	return sig, nil
}

const leadEventColumns = `
	id,
	signal_id,
	company_name,
	domain,
	email,
	phone,
	source_url,
	summary,
	geography,
	niche,
	category,
	status,
	domain_confidence,
	email_confidence,
	phone_confidence,
	enrichment_attempts,
	last_enriched_at,
	outbound_ready,
	mission_log,
	created_at`

const insertLeadEventQuery = `
INSERT INTO lead_events (` + leadEventColumns + `
) VALUES (
	$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20
)`

// CreateLeadEvent inserts a lead event row.
func (s *Store) CreateLeadEvent(ctx context.Context, ev lead.LeadEvent) error {
	if ev.ID == "" {
		return fmt.Errorf("lead event id is required")
	}
	if _, err := s.pool.Exec(ctx, insertLeadEventQuery, leadEventArgs(ev)...); err != nil {
		return fmt.Errorf("insert lead event: %w", err)
	}
	return nil
}

const selectLeadEventQuery = `
SELECT` + leadEventColumns + `
FROM lead_events
WHERE id = $1`

// GetLeadEvent returns a lead event by identity.
func (s *Store) GetLeadEvent(ctx context.Context, id string) (lead.LeadEvent, error) {
	row := s.pool.QueryRow(ctx, selectLeadEventQuery, id)
	ev, err := scanLeadEvent(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return lead.LeadEvent{}, fmt.Errorf("lead event %s: %w", id, lead.ErrNotFound)
	}
	if err != nil {
		return lead.LeadEvent{}, fmt.Errorf("select lead event: %w", err)
	}
	return ev, nil
}

const updateLeadEventQuery = `
UPDATE lead_events SET
	signal_id = $2,
	company_name = $3,
	domain = $4,
	email = $5,
	phone = $6,
	source_url = $7,
	summary = $8,
	geography = $9,
	niche = $10,
	category = $11,
	status = $12,
	domain_confidence = $13,
	email_confidence = $14,
	phone_confidence = $15,
	enrichment_attempts = $16,
	last_enriched_at = $17,
	outbound_ready = $18,
	mission_log = $19,
	created_at = $20
WHERE id = $1`

// UpdateLeadEvent replaces an existing lead event row.
func (s *Store) UpdateLeadEvent(ctx context.Context, ev lead.LeadEvent) error {
	tag, err := s.pool.Exec(ctx, updateLeadEventQuery, leadEventArgs(ev)...)
	if err != nil {
		return fmt.Errorf("update lead event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("lead event %s: %w", ev.ID, lead.ErrNotFound)
	}
	return nil
}

const listLeadEventsQuery = `
SELECT` + leadEventColumns + `
FROM lead_events
WHERE status = ANY($1)
ORDER BY created_at ASC
LIMIT $2`

// ListLeadEventsByStatus returns up to limit events in any of the given
// states, oldest first. A limit of zero or less means no cap.
func (s *Store) ListLeadEventsByStatus(ctx context.Context, statuses []lead.EnrichmentStatus, limit int) ([]lead.LeadEvent, error) {
	names := make([]string, 0, len(statuses))
	for _, st := range statuses {
		names = append(names, string(st))
	}
	var lim any
	if limit > 0 {
		lim = limit
	}
	rows, err := s.pool.Query(ctx, listLeadEventsQuery, names, lim)
	if err != nil {
		return nil, fmt.Errorf("list lead events: %w", err)
	}
	defer rows.Close()

	var out []lead.LeadEvent
	for rows.Next() {
		ev, err := scanLeadEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan lead event: %w", err)
		}
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list lead events: %w", err)
	}
	return out, nil
}

func leadEventArgs(ev lead.LeadEvent) []any {
	return []any{
		ev.ID,
		ev.SignalID,
		ev.CompanyName,
		ev.Domain,
		ev.Email,
		ev.Phone,
		ev.SourceURL,
		ev.Summary,
		ev.Geography,
		ev.Niche,
		ev.Category,
		string(ev.Status),
		ev.DomainConfidence,
		ev.EmailConfidence,
		ev.PhoneConfidence,
		ev.EnrichmentAttempts,
		ev.LastEnrichedAt,
		ev.OutboundReady,
		ev.MissionLog,
		ev.CreatedAt,
	}
}

func scanLeadEvent(row pgx.Row) (lead.LeadEvent, error) {
	var ev lead.LeadEvent
	var status string
	err := row.Scan(
		&ev.ID,
		&ev.SignalID,
		&ev.CompanyName,
		&ev.Domain,
		&ev.Email,
		&ev.Phone,
		&ev.SourceURL,
		&ev.Summary,
		&ev.Geography,
		&ev.Niche,
		&ev.Category,
		&status,
		&ev.DomainConfidence,
		&ev.EmailConfidence,
		&ev.PhoneConfidence,
		&ev.EnrichmentAttempts,
		&ev.LastEnrichedAt,
		&ev.OutboundReady,
		&ev.MissionLog,
		&ev.CreatedAt,
	)
	if err != nil {
		return lead.LeadEvent{}, err
	}
	ev.Status = lead.EnrichmentStatus(status)
	return ev, nil
}
