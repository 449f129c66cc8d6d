package router

import (
	"sync"
	"time"

	"github.com/ShayCichocki/squad/pkg/models"
)

// BreakerState is the circuit state for one (provider, tier) pair.
type BreakerState string

const (
	// BreakerClosed passes attempts through normally.
	BreakerClosed BreakerState = "closed"
	// BreakerOpen short-circuits attempts for a cooldown period.
	BreakerOpen BreakerState = "open"
	// BreakerHalfOpen allows a single probe attempt after cooldown.
	BreakerHalfOpen BreakerState = "half_open"
)

// BreakerConfig tunes the circuit-breaker state machine.
type BreakerConfig struct {
	// FailureThreshold is the number of consecutive recoverable
	// failures that opens the breaker.
	FailureThreshold int
	// Window bounds the failure streak: a streak older than the window
	// is reset before counting a new failure.
	Window time.Duration
	// Cooldown is the initial open period.
	Cooldown time.Duration
	// MaxCooldown caps the doubled cooldown after failed probes.
	MaxCooldown time.Duration
}

// DefaultBreakerConfig returns the standard breaker tuning.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		FailureThreshold: 5,
		Window:           time.Minute,
		Cooldown:         30 * time.Second,
		MaxCooldown:      8 * time.Minute,
	}
}

// breakerKey identifies one (provider, tier) pair.
type breakerKey struct {
	provider string
	tier     models.Tier
}

// breakerEntry is the per-pair state. Each entry has its own lock so
// concurrent agents updating the same pair serialize without blocking
// unrelated pairs.
type breakerEntry struct {
	mu          sync.Mutex
	state       BreakerState
	failures    int
	streakStart time.Time
	openedAt    time.Time
	cooldown    time.Duration
	probing     bool
}

// CircuitBreakerTable tracks circuit state per (provider, tier) pair.
// It is constructor-injected into the TierRouter; tests build a fresh
// table per case instead of resetting shared state.
type CircuitBreakerTable struct {
	cfg BreakerConfig

	mu      sync.RWMutex
	entries map[breakerKey]*breakerEntry

	// now is swappable for tests.
	now func() time.Time
}

// NewCircuitBreakerTable creates a table with the given tuning.
func NewCircuitBreakerTable(cfg BreakerConfig) *CircuitBreakerTable {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 30 * time.Second
	}
	if cfg.MaxCooldown < cfg.Cooldown {
		cfg.MaxCooldown = 8 * time.Minute
	}
	if cfg.Window <= 0 {
		cfg.Window = time.Minute
	}
	return &CircuitBreakerTable{
		cfg:     cfg,
		entries: make(map[breakerKey]*breakerEntry),
		now:     time.Now,
	}
}

// entry returns the state for a pair, creating a closed entry on first use.
func (t *CircuitBreakerTable) entry(provider string, tier models.Tier) *breakerEntry {
	key := breakerKey{provider: provider, tier: tier}

	t.mu.RLock()
	e, ok := t.entries[key]
	t.mu.RUnlock()
	if ok {
		return e
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if e, ok = t.entries[key]; ok {
		return e
	}
	e = &breakerEntry{state: BreakerClosed, cooldown: t.cfg.Cooldown}
	t.entries[key] = e
	return e
}

// Allow reports whether an attempt against the pair may invoke the
// runtime. When the breaker is open and the cooldown has not elapsed it
// returns false: the caller records a short-circuited recoverable-failure
// attempt without calling the runtime. After cooldown exactly one caller
// is admitted as the half-open probe.
func (t *CircuitBreakerTable) Allow(provider string, tier models.Tier) bool {
	e := t.entry(provider, tier)
	e.mu.Lock()
	defer e.mu.Unlock()

	switch e.state {
	case BreakerClosed:
		return true
	case BreakerOpen:
		if t.now().Sub(e.openedAt) < e.cooldown {
			return false
		}
		e.state = BreakerHalfOpen
		e.probing = true
		return true
	case BreakerHalfOpen:
		if e.probing {
			// A probe is already in flight.
			return false
		}
		e.probing = true
		return true
	default:
		return true
	}
}

// RecordSuccess reports a successful attempt against the pair.
// A successful half-open probe closes the breaker and resets the cooldown.
func (t *CircuitBreakerTable) RecordSuccess(provider string, tier models.Tier) {
	e := t.entry(provider, tier)
	e.mu.Lock()
	defer e.mu.Unlock()

	e.state = BreakerClosed
	e.failures = 0
	e.probing = false
	e.cooldown = t.cfg.Cooldown
}

// RecordFailure reports a recoverable failure against the pair. Fatal
// failures are not fed to the breaker: they say nothing about provider
// health. A failed half-open probe re-opens the breaker and doubles the
// cooldown up to the configured maximum.
func (t *CircuitBreakerTable) RecordFailure(provider string, tier models.Tier) {
	e := t.entry(provider, tier)
	e.mu.Lock()
	defer e.mu.Unlock()

	now := t.now()

	switch e.state {
	case BreakerHalfOpen:
		e.state = BreakerOpen
		e.openedAt = now
		e.probing = false
		e.cooldown = min(e.cooldown*2, t.cfg.MaxCooldown)
		e.failures = 0
	case BreakerOpen:
		// Short-circuited attempts land here; the breaker is already
		// open so there is nothing to count.
	default:
		if e.failures == 0 || now.Sub(e.streakStart) > t.cfg.Window {
			e.failures = 0
			e.streakStart = now
		}
		e.failures++
		if e.failures >= t.cfg.FailureThreshold {
			e.state = BreakerOpen
			e.openedAt = now
			e.failures = 0
		}
	}
}

// RecordFatal reports a fatal attempt outcome against the pair. Fatal
// errors say nothing about provider health, so a closed or open breaker
// is untouched — but a half-open probe must still settle: the probe slot
// is released and the breaker re-opens on its current cooldown, so the
// next probe goes to a healthier request.
func (t *CircuitBreakerTable) RecordFatal(provider string, tier models.Tier) {
	e := t.entry(provider, tier)
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != BreakerHalfOpen {
		return
	}
	e.state = BreakerOpen
	e.openedAt = t.now()
	e.probing = false
	e.failures = 0
}

// State returns the current state for a pair. Used for observability and
// tests; routing decisions go through Allow.
func (t *CircuitBreakerTable) State(provider string, tier models.Tier) BreakerState {
	e := t.entry(provider, tier)
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}
