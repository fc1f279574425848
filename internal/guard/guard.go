// Package guard implements per-dependency rate limiting and circuit
// breaking for the discovery engines' external calls.
package guard

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/hossagent/leadscout/internal/lead"
	"github.com/hossagent/leadscout/internal/metrics"
)

// Config holds rate guard configuration shared by all dependencies.
type Config struct {
	// FailureThreshold consecutive failures open the breaker.
	FailureThreshold int
	// Cooldown is how long an open breaker refuses calls.
	Cooldown time.Duration
	// RatePerSecond and Burst feed the token bucket per dependency.
	RatePerSecond float64
	Burst         int
	// DelayMin/DelayMax bound the jittered politeness delay between
	// consecutive calls to the same dependency.
	DelayMin time.Duration
	DelayMax time.Duration
}

type dependencyState struct {
	limiter      *rate.Limiter
	consecutive  int
	openedAt     time.Time
	totalCalls   int
	totalFailed  int
	lastCallAt   time.Time
}

// Guard tracks consecutive failures per external dependency and
// enforces a cooldown window before further calls are attempted. Safe
// for concurrent use across enrichment workers.
type Guard struct {
	mu     sync.Mutex
	cfg    Config
	deps   map[string]*dependencyState
	clock  lead.Clock
	logger *zap.Logger

	// sleep is swappable for tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// New builds a Guard with the given config.
func New(cfg Config, clock lead.Clock, logger *zap.Logger) *Guard {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 3
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 5 * time.Minute
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	return &Guard{
		cfg:    cfg,
		deps:   make(map[string]*dependencyState),
		clock:  clock,
		logger: logger,
		sleep:  sleepCtx,
	}
}

func (g *Guard) state(dependency string) *dependencyState {
	st, ok := g.deps[dependency]
	if !ok {
		limit := rate.Limit(g.cfg.RatePerSecond)
		if g.cfg.RatePerSecond <= 0 {
			limit = rate.Inf
		}
		st = &dependencyState{limiter: rate.NewLimiter(limit, g.cfg.Burst)}
		g.deps[dependency] = st
	}
	return st
}

// Acquire blocks until the dependency may be called, or returns a
// CircuitOpenError without any network attempt when the breaker is
// open. Callers must report the call's outcome via Success or Failure.
func (g *Guard) Acquire(ctx context.Context, dependency string) error {
	g.mu.Lock()
	st := g.state(dependency)
	now := g.clock.Now()

	if st.consecutive >= g.cfg.FailureThreshold {
		elapsed := now.Sub(st.openedAt)
		if elapsed < g.cfg.Cooldown {
			g.mu.Unlock()
			metrics.SetCircuitOpen(dependency, true)
			return &lead.CircuitOpenError{
				Dependency: dependency,
				RetryAfter: g.cfg.Cooldown - elapsed,
			}
		}
		// Cooldown elapsed; close and allow a probe call.
		st.consecutive = 0
		metrics.SetCircuitOpen(dependency, false)
		g.logger.Info("circuit closed after cooldown", zap.String("dependency", dependency))
	}

	delay := g.politenessDelay(st, now)
	st.totalCalls++
	st.lastCallAt = now
	limiter := st.limiter
	g.mu.Unlock()

	if delay > 0 {
		start := time.Now()
		if err := g.sleep(ctx, delay); err != nil {
			return fmt.Errorf("politeness delay: %w", err)
		}
		metrics.ObservePolitenessDelay(dependency, time.Since(start))
	}
	if err := limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}
	return nil
}

// politenessDelay returns a jittered delay when the previous call to
// the dependency was recent. Caller holds the mutex.
func (g *Guard) politenessDelay(st *dependencyState, now time.Time) time.Duration {
	if g.cfg.DelayMax <= 0 || st.lastCallAt.IsZero() {
		return 0
	}
	if now.Sub(st.lastCallAt) >= g.cfg.DelayMax {
		return 0
	}
	span := g.cfg.DelayMax - g.cfg.DelayMin
	if span <= 0 {
		return g.cfg.DelayMin
	}
	return g.cfg.DelayMin + time.Duration(rand.Int63n(int64(span)))
}

// Success records a successful call, resetting the failure streak.
func (g *Guard) Success(dependency string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	st := g.state(dependency)
	st.consecutive = 0
	metrics.SetCircuitOpen(dependency, false)
}

// Failure records a failed call. Crossing the threshold opens the
// breaker for the cooldown window.
func (g *Guard) Failure(dependency string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	st := g.state(dependency)
	st.consecutive++
	st.totalFailed++
	if st.consecutive == g.cfg.FailureThreshold {
		st.openedAt = g.clock.Now()
		metrics.SetCircuitOpen(dependency, true)
		g.logger.Warn("circuit opened",
			zap.String("dependency", dependency),
			zap.Int("consecutive_failures", st.consecutive),
			zap.Duration("cooldown", g.cfg.Cooldown),
		)
	}
}

// Reset closes the breaker for a dependency immediately.
func (g *Guard) Reset(dependency string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	st := g.state(dependency)
	st.consecutive = 0
	st.openedAt = time.Time{}
	metrics.SetCircuitOpen(dependency, false)
	g.logger.Info("circuit reset", zap.String("dependency", dependency))
}

// Status describes one dependency's guard state for operator tooling.
type Status struct {
	Dependency          string        `json:"dependency"`
	Open                bool          `json:"open"`
	ConsecutiveFailures int           `json:"consecutive_failures"`
	RetryAfter          time.Duration `json:"retry_after,omitempty"`
	TotalCalls          int           `json:"total_calls"`
	TotalFailed         int           `json:"total_failed"`
}

// StatusAll reports the guard state of every known dependency.
func (g *Guard) StatusAll() []Status {
	g.mu.Lock()
	defer g.mu.Unlock()
	now := g.clock.Now()
	out := make([]Status, 0, len(g.deps))
	for name, st := range g.deps {
		s := Status{
			Dependency:          name,
			ConsecutiveFailures: st.consecutive,
			TotalCalls:          st.totalCalls,
			TotalFailed:         st.totalFailed,
		}
		if st.consecutive >= g.cfg.FailureThreshold {
			remaining := g.cfg.Cooldown - now.Sub(st.openedAt)
			if remaining > 0 {
				s.Open = true
				s.RetryAfter = remaining
			}
		}
		out = append(out, s)
	}
	return out
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
