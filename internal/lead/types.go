// Package lead defines core types shared across the discovery pipeline.
package lead

import (
	"time"
)

// EnrichmentStatus represents the lifecycle state of a LeadEvent.
type EnrichmentStatus string

// Lifecycle states persisted on the lead event.
const (
	StatusUnenriched        EnrichmentStatus = "UNENRICHED"
	StatusWithDomainNoEmail EnrichmentStatus = "WITH_DOMAIN_NO_EMAIL"
	StatusWithPhoneOnly     EnrichmentStatus = "WITH_PHONE_ONLY"
	StatusEnrichedNoOutbound EnrichmentStatus = "ENRICHED_NO_OUTBOUND"
	StatusOutboundSent      EnrichmentStatus = "OUTBOUND_SENT"
	StatusArchived          EnrichmentStatus = "ARCHIVED"
)

// Terminal reports whether no further enrichment work applies to the state.
func (s EnrichmentStatus) Terminal() bool {
	return s == StatusOutboundSent || s == StatusArchived
}

// Signal is one observed fact about a company, produced by external
// ingestion sources and consumed exactly once by the signal scorer.
type Signal struct {
	ID         string    `json:"id"`
	SourceType string    `json:"source_type"`
	Summary    string    `json:"summary"`
	SourceURL  string    `json:"source_url,omitempty"`
	Geography  string    `json:"geography,omitempty"`
	Niche      string    `json:"niche,omitempty"`
	RawPayload []byte    `json:"raw_payload,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// ScoredSignal is a Signal plus its targeting score.
type ScoredSignal struct {
	Signal    Signal  `json:"signal"`
	Score     float64 `json:"score"`
	Category  string  `json:"category"`
	Qualifies bool    `json:"qualifies"`
}

// LeadEvent is the enrichment work item tracking one company's
// contact-resolution lifecycle. It is mutated only by the orchestrator
// and the discovery engines it invokes.
type LeadEvent struct {
	ID          string           `json:"id"`
	SignalID    string           `json:"signal_id,omitempty"`
	CompanyName string           `json:"company_name,omitempty"`
	Domain      string           `json:"domain,omitempty"`
	Email       string           `json:"email,omitempty"`
	Phone       string           `json:"phone,omitempty"`
	SourceURL   string           `json:"source_url,omitempty"`
	Summary     string           `json:"summary,omitempty"`
	Geography   string           `json:"geography,omitempty"`
	Niche       string           `json:"niche,omitempty"`
	Category    string           `json:"category,omitempty"`
	Status      EnrichmentStatus `json:"status"`

	// Confidence fields are only set together with the resolved value.
	DomainConfidence float64 `json:"domain_confidence,omitempty"`
	EmailConfidence  float64 `json:"email_confidence,omitempty"`
	PhoneConfidence  float64 `json:"phone_confidence,omitempty"`

	EnrichmentAttempts int        `json:"enrichment_attempts"`
	LastEnrichedAt     *time.Time `json:"last_enriched_at,omitempty"`
	OutboundReady      bool       `json:"outbound_ready"`
	MissionLog         []byte     `json:"mission_log,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
}

// Hints carries whatever is already known about an entity going into a
// discovery layer. Empty strings mean "unknown"; precedence over the
// fields lives in the engines, not in callers.
type Hints struct {
	Domain      string
	Email       string
	CompanyName string
	SourceURL   string
	Summary     string
	Geography   string
	Niche       string
}

// HintsFromEvent builds discovery hints from the known lead event fields.
func HintsFromEvent(ev LeadEvent) Hints {
	return Hints{
		Domain:      ev.Domain,
		Email:       ev.Email,
		CompanyName: ev.CompanyName,
		SourceURL:   ev.SourceURL,
		Summary:     ev.Summary,
		Geography:   ev.Geography,
		Niche:       ev.Niche,
	}
}

// PhoneType classifies a discovered phone number by its area code.
type PhoneType string

// Phone classifications.
const (
	PhoneMobile   PhoneType = "mobile"
	PhoneLandline PhoneType = "landline"
	PhoneVoIP     PhoneType = "voip"
	PhoneTollFree PhoneType = "tollfree"
	PhoneUnknown  PhoneType = "unknown"
)

// DomainCandidate is a single resolved domain with provenance.
type DomainCandidate struct {
	Raw        string  `json:"raw"`
	Domain     string  `json:"domain"`
	Confidence float64 `json:"confidence"`
	Source     string  `json:"source"`
	NameMatch  bool    `json:"name_match"`
}

// EmailCandidate is a single resolved email address with provenance.
type EmailCandidate struct {
	Raw         string  `json:"raw"`
	Email       string  `json:"email"`
	Confidence  float64 `json:"confidence"`
	Source      string  `json:"source"`
	SourceURL   string  `json:"source_url,omitempty"`
	DomainMatch bool    `json:"domain_match"`
	Generic     bool    `json:"generic"`
}

// PhoneCandidate is a single resolved phone number with provenance.
type PhoneCandidate struct {
	Raw        string    `json:"raw"`
	E164       string    `json:"e164"`
	Confidence float64   `json:"confidence"`
	Source     string    `json:"source"`
	SourceURL  string    `json:"source_url,omitempty"`
	Type       PhoneType `json:"type"`
}

// FetchRequest captures everything needed to fetch a URL. Form being
// non-nil makes the request a POST with URL-encoded body.
type FetchRequest struct {
	URL     string
	Form    map[string]string
	Headers map[string]string
}

// FetchResponse is the result returned by a Fetcher implementation.
type FetchResponse struct {
	URL        string
	StatusCode int
	Body       []byte
	Duration   time.Duration
}

// SearchResult is one ranked hit from a Searcher.
type SearchResult struct {
	URL    string
	Domain string
}

// DispatchOutcome is reported back by the outbound-dispatch collaborator.
type DispatchOutcome string

// Dispatch outcomes.
const (
	DispatchSent      DispatchOutcome = "sent"
	DispatchBlocked   DispatchOutcome = "blocked"
	DispatchRetryable DispatchOutcome = "retryable"
)
