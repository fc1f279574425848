// Package discovery implements the layered domain, email and phone
// resolution engines.
package discovery

import (
	"sync"
	"time"

	"github.com/hossagent/leadscout/internal/lead"
)

// Cache is a process-wide TTL cache keyed by string. Safe for
// concurrent use; expired entries are dropped lazily.
type Cache[V any] struct {
	mu      sync.Mutex
	ttl     time.Duration
	clock   lead.Clock
	entries map[string]cacheEntry[V]
}

type cacheEntry[V any] struct {
	value    V
	storedAt time.Time
}

// NewCache builds a cache with the given TTL.
func NewCache[V any](ttl time.Duration, clock lead.Clock) *Cache[V] {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Cache[V]{ttl: ttl, clock: clock, entries: make(map[string]cacheEntry[V])}
}

// Get returns the cached value for key if present and fresh.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		var zero V
		return zero, false
	}
	if c.clock.Now().Sub(e.storedAt) > c.ttl {
		delete(c.entries, key)
		var zero V
		return zero, false
	}
	return e.value, true
}

// Put stores a value, evicting any expired entries along the way.
func (c *Cache[V]) Put(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.clock.Now()
	for k, e := range c.entries {
		if now.Sub(e.storedAt) > c.ttl {
			delete(c.entries, k)
		}
	}
	c.entries[key] = cacheEntry[V]{value: value, storedAt: now}
}

// Len returns the number of stored entries, fresh or not.
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// PhoneRegistry tracks which domains each phone number has been seen
// on. Cross-domain reuse marks shared/generic numbers; a unique
// observation enables reverse lookup.
type PhoneRegistry struct {
	mu    sync.Mutex
	ttl   time.Duration
	clock lead.Clock
	seen  map[string]map[string]time.Time
}

// NewPhoneRegistry builds a registry with the given observation TTL.
func NewPhoneRegistry(ttl time.Duration, clock lead.Clock) *PhoneRegistry {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &PhoneRegistry{ttl: ttl, clock: clock, seen: make(map[string]map[string]time.Time)}
}

// Observe records that the phone was seen on the domain.
func (r *PhoneRegistry) Observe(e164, domain string) {
	if e164 == "" || domain == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	domains, ok := r.seen[e164]
	if !ok {
		domains = make(map[string]time.Time)
		r.seen[e164] = domains
	}
	domains[domain] = r.clock.Now()
}

// DomainCount returns how many distinct domains the phone has been
// observed on within the TTL.
func (r *PhoneRegistry) DomainCount(e164 string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.fresh(e164))
}

// ReverseLookup returns the domain a phone belongs to, but only when
// exactly one domain has ever been observed for it. ok is false when
// the phone is unknown or ambiguous.
func (r *PhoneRegistry) ReverseLookup(e164 string) (domain string, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	domains := r.fresh(e164)
	if len(domains) != 1 {
		return "", false
	}
	for d := range domains {
		return d, true
	}
	return "", false
}

// fresh prunes expired observations and returns the rest. Caller holds
// the mutex.
func (r *PhoneRegistry) fresh(e164 string) map[string]time.Time {
	domains := r.seen[e164]
	now := r.clock.Now()
	for d, at := range domains {
		if now.Sub(at) > r.ttl {
			delete(domains, d)
		}
	}
	if len(domains) == 0 {
		delete(r.seen, e164)
	}
	return domains
}
