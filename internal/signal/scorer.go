// Package signal scores inbound raw signals against configured
// targeting to decide whether an entity enters the enrichment pipeline.
package signal

import (
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hossagent/leadscout/internal/lead"
	"github.com/hossagent/leadscout/internal/metrics"
)

// Signal categories in descending urgency order.
const (
	CategoryHurricaneSeason      = "HURRICANE_SEASON"
	CategoryReputationChange     = "REPUTATION_CHANGE"
	CategoryCompetitorShift      = "COMPETITOR_SHIFT"
	CategoryGrowthSignal         = "GROWTH_SIGNAL"
	CategoryPriceMove            = "PRICE_MOVE"
	CategoryBilingualOpportunity = "BILINGUAL_OPPORTUNITY"
	CategoryOpportunity          = "OPPORTUNITY"
)

// categoryWeights maps a category to its urgency weight on a 0-100 scale.
var categoryWeights = map[string]float64{
	CategoryHurricaneSeason:      75,
	CategoryReputationChange:     70,
	CategoryCompetitorShift:      65,
	CategoryGrowthSignal:         60,
	CategoryPriceMove:            60,
	CategoryBilingualOpportunity: 55,
	CategoryOpportunity:          50,
}

// categoryKeywords drives category inference from signal free text.
// First bucket with a hit wins; order encodes priority.
var categoryKeywords = []struct {
	category string
	keywords []string
}{
	{CategoryHurricaneSeason, []string{"hurricane", "tropical storm", "storm season", "storm damage", "flood"}},
	{CategoryReputationChange, []string{"review", "rating", "reputation", "complaint", "bbb", "one star", "1-star"}},
	{CategoryCompetitorShift, []string{"competitor", "rival", "acquired", "acquisition", "merger", "market share", "closing", "shut down"}},
	{CategoryGrowthSignal, []string{"hiring", "expansion", "expanding", "growth", "new location", "new office", "funding", "now open", "grand opening", "job posting", "job opening"}},
	{CategoryPriceMove, []string{"price increase", "raising prices", "price hike", "rate increase", "cost increase", "pricing"}},
	{CategoryBilingualOpportunity, []string{"spanish", "bilingual", "en español", "espanol", "hispanic"}},
}

// Scoring weights for the four terms of the signal score.
const (
	categoryTermWeight = 0.30
	recencyTermWeight  = 0.25
	geographyBonus     = 25.0
	nicheBonus         = 20.0
)

// Targeting holds the geographic/vertical focus and qualification
// threshold the scorer evaluates against.
type Targeting struct {
	Geographies []string
	Niches      []string
	Threshold   float64

	// RecencyWindow is the half-life of the recency decay term.
	RecencyWindow time.Duration
}

// Scorer scores signals. Deterministic given inputs aside from the
// recency term, which uses the injected clock.
type Scorer struct {
	targeting Targeting
	clock     lead.Clock
	logger    *zap.Logger
}

// NewScorer builds a Scorer for the given targeting.
func NewScorer(targeting Targeting, clock lead.Clock, logger *zap.Logger) *Scorer {
	if targeting.Threshold == 0 {
		targeting.Threshold = 65
	}
	if targeting.RecencyWindow <= 0 {
		targeting.RecencyWindow = 72 * time.Hour
	}
	return &Scorer{targeting: targeting, clock: clock, logger: logger}
}

// Score computes the 0-100 targeting score for a signal and whether it
// qualifies for enrichment.
func (s *Scorer) Score(sig lead.Signal) lead.ScoredSignal {
	category := InferCategory(sig.Summary)

	score := categoryWeights[category] * categoryTermWeight
	score += s.recencyTerm(sig.CreatedAt) * recencyTermWeight
	if matchesAny(sig.Geography, s.targeting.Geographies) {
		score += geographyBonus
	}
	if matchesAny(sig.Niche, s.targeting.Niches) {
		score += nicheBonus
	}
	score = clamp(score, 0, 100)

	scored := lead.ScoredSignal{
		Signal:    sig,
		Score:     score,
		Category:  category,
		Qualifies: score >= s.targeting.Threshold,
	}
	metrics.ObserveSignalScored(category, scored.Qualifies)
	s.logger.Debug("signal scored",
		zap.String("signal_id", sig.ID),
		zap.String("category", category),
		zap.Float64("score", score),
		zap.Bool("qualifies", scored.Qualifies),
	)
	return scored
}

// recencyTerm returns 0-100, halving every RecencyWindow of signal age.
func (s *Scorer) recencyTerm(createdAt time.Time) float64 {
	if createdAt.IsZero() {
		return 0
	}
	age := s.clock.Now().Sub(createdAt)
	if age < 0 {
		age = 0
	}
	halfLives := float64(age) / float64(s.targeting.RecencyWindow)
	return 100 * math.Pow(0.5, halfLives)
}

// InferCategory maps signal free text to a category via keyword
// buckets, falling back to the default opportunity category.
func InferCategory(summary string) string {
	text := strings.ToLower(summary)
	for _, bucket := range categoryKeywords {
		for _, kw := range bucket.keywords {
			if strings.Contains(text, kw) {
				return bucket.category
			}
		}
	}
	return CategoryOpportunity
}

func matchesAny(value string, targets []string) bool {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return false
	}
	for _, t := range targets {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if strings.Contains(value, t) || strings.Contains(t, value) {
			return true
		}
	}
	return false
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
