package providers

import (
	"container/list"
	"fmt"
	"sync"
	"time"
)

// HealthConfig configures a HealthTracker's circuit-breaking thresholds.
type HealthConfig struct {
	// FailureThreshold is the consecutive-failure count at which a
	// provider's circuit opens.
	FailureThreshold int
	// Cooldown is how long a circuit stays open before a half-open trial
	// is allowed.
	Cooldown time.Duration
	// MaxEntries bounds the number of tracked provider keys; the
	// least-recently-mutated entry is evicted on overflow.
	MaxEntries int
}

// DefaultHealthConfig returns the tracker defaults: 3 consecutive failures
// open the circuit, a 60s cooldown before a half-open trial, and up to 100
// tracked provider keys.
func DefaultHealthConfig() HealthConfig {
	return HealthConfig{
		FailureThreshold: 3,
		Cooldown:         60 * time.Second,
		MaxEntries:       100,
	}
}

// providerState is the per-key state tracked by HealthTracker.
type providerState struct {
	failureCount int
	lastError    error
	openSince    time.Time // zero value means the circuit is closed
	elem         *list.Element
}

// HealthTracker is a per-provider circuit breaker. Operations on a single
// key are serialized under the tracker's lock; distinct keys never contend
// with each other beyond that single shared lock, which is cheap enough for
// the call volumes this module deals with.
type HealthTracker struct {
	cfg HealthConfig

	mu       sync.Mutex
	states   map[string]*providerState
	lru      *list.List // front = most-recently-mutated
}

// NewHealthTracker creates a HealthTracker with the given configuration.
// Zero-valued fields fall back to DefaultHealthConfig's values.
func NewHealthTracker(cfg HealthConfig) *HealthTracker {
	def := DefaultHealthConfig()
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = def.FailureThreshold
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = def.Cooldown
	}
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = def.MaxEntries
	}
	return &HealthTracker{
		cfg:    cfg,
		states: make(map[string]*providerState),
		lru:    list.New(),
	}
}

// touch returns the state for key, creating it if absent, and moves it to
// the front of the LRU list. Must be called with mu held.
func (h *HealthTracker) touch(key string) *providerState {
	if st, ok := h.states[key]; ok {
		h.lru.MoveToFront(st.elem)
		return st
	}

	if len(h.states) >= h.cfg.MaxEntries {
		h.evictOldest()
	}

	st := &providerState{}
	st.elem = h.lru.PushFront(key)
	h.states[key] = st
	return st
}

// evictOldest removes the least-recently-mutated entry. Must be called with
// mu held.
func (h *HealthTracker) evictOldest() {
	back := h.lru.Back()
	if back == nil {
		return
	}
	key := back.Value.(string)
	h.lru.Remove(back)
	delete(h.states, key)
}

// RecordSuccess resets a provider's failure count and closes its circuit.
func (h *HealthTracker) RecordSuccess(name string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	st := h.touch(name)
	st.failureCount = 0
	st.lastError = nil
	st.openSince = time.Time{}
}

// RecordFailure increments a provider's failure count and opens its circuit
// once the configured threshold is reached.
func (h *HealthTracker) RecordFailure(name string, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	st := h.touch(name)
	st.failureCount++
	st.lastError = err
	if st.failureCount >= h.cfg.FailureThreshold && st.openSince.IsZero() {
		st.openSince = time.Now()
	}
}

// ShouldTryError reports why a call to a provider is currently refused.
type ShouldTryError struct {
	Provider  string
	Remaining time.Duration
}

func (e *ShouldTryError) Error() string {
	return fmt.Sprintf("provider %q circuit open, retry in %s", e.Provider, e.Remaining)
}

// ShouldTry reports whether a call to the named provider should be
// attempted. A non-nil error means the circuit is open and names how long
// until the next half-open trial is allowed.
func (h *HealthTracker) ShouldTry(name string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	st := h.touch(name)
	if st.openSince.IsZero() {
		return nil
	}

	elapsed := time.Since(st.openSince)
	if elapsed >= h.cfg.Cooldown {
		// Half-open trial: calls are allowed through until the next
		// RecordSuccess/RecordFailure call fully closes or re-opens it.
		return nil
	}

	return &ShouldTryError{Provider: name, Remaining: h.cfg.Cooldown - elapsed}
}

// Status reports a snapshot of a provider's tracked health.
type Status struct {
	Name         string
	FailureCount int
	LastError    error
	Open         bool
	OpenSince    time.Time
}

// Status returns a snapshot of the named provider's current state without
// mutating its LRU position.
func (h *HealthTracker) Status(name string) Status {
	h.mu.Lock()
	defer h.mu.Unlock()

	st, ok := h.states[name]
	if !ok {
		return Status{Name: name}
	}
	return Status{
		Name:         name,
		FailureCount: st.failureCount,
		LastError:    st.lastError,
		Open:         !st.openSince.IsZero(),
		OpenSince:    st.openSince,
	}
}
