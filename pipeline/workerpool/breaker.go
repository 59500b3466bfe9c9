package workerpool

import (
	"sync"
	"time"
)

// BreakerState is one of the three circuit breaker states.
type BreakerState string

const (
	StateClosed   BreakerState = "closed"
	StateOpen     BreakerState = "open"
	StateHalfOpen BreakerState = "half_open"
)

// BreakerConfig tunes the failure/cooldown thresholds. Zero values fall
// back to DefaultBreakerConfig.
type BreakerConfig struct {
	FailureThreshold int           // consecutive failures before opening
	SuccessThreshold int           // consecutive half-open successes before closing
	Cooldown         time.Duration // how long a breaker stays open before trying half-open
}

// DefaultBreakerConfig opens after 5 consecutive failures, half-opens after
// a 30s cooldown, and needs 2 consecutive successes to fully close.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{FailureThreshold: 5, SuccessThreshold: 2, Cooldown: 30 * time.Second}
}

type providerState struct {
	mu                  sync.Mutex
	state               BreakerState
	consecutiveFailures int
	consecutiveSuccess  int
	openedAt            time.Time
}

// CircuitBreaker tracks one closed/open/half-open state machine per
// provider name. It is read and written concurrently from the worker pool,
// so each provider gets its own lock rather than one global lock.
type CircuitBreaker struct {
	cfg   BreakerConfig
	mu    sync.Mutex
	byKey map[string]*providerState
	now   func() time.Time
}

// NewCircuitBreaker returns a CircuitBreaker using cfg (DefaultBreakerConfig
// if cfg is the zero value).
func NewCircuitBreaker(cfg BreakerConfig) *CircuitBreaker {
	if cfg.FailureThreshold == 0 {
		cfg = DefaultBreakerConfig()
	}
	return &CircuitBreaker{cfg: cfg, byKey: make(map[string]*providerState), now: time.Now}
}

func (b *CircuitBreaker) stateFor(provider string) *providerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	s, ok := b.byKey[provider]
	if !ok {
		s = &providerState{state: StateClosed}
		b.byKey[provider] = s
	}
	return s
}

// IsOpen reports whether provider's breaker currently blocks execution. A
// breaker whose cooldown has elapsed transitions to half-open and returns
// false. While half-open every call returns false, so trial requests are not
// limited in number until RecordSuccess closes the breaker or RecordFailure
// reopens it.
func (b *CircuitBreaker) IsOpen(provider string) bool {
	s := b.stateFor(provider)
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateOpen {
		if b.now().Sub(s.openedAt) >= b.cfg.Cooldown {
			s.state = StateHalfOpen
			s.consecutiveSuccess = 0
			return false
		}
		return true
	}
	return false
}

// RecordSuccess registers a successful call against provider.
func (b *CircuitBreaker) RecordSuccess(provider string) {
	s := b.stateFor(provider)
	s.mu.Lock()
	defer s.mu.Unlock()

	s.consecutiveFailures = 0
	switch s.state {
	case StateHalfOpen:
		s.consecutiveSuccess++
		if s.consecutiveSuccess >= b.cfg.SuccessThreshold {
			s.state = StateClosed
		}
	case StateOpen:
		s.state = StateHalfOpen
		s.consecutiveSuccess = 1
	}
}

// RecordFailure registers a failed call against provider.
func (b *CircuitBreaker) RecordFailure(provider string) {
	s := b.stateFor(provider)
	s.mu.Lock()
	defer s.mu.Unlock()

	s.consecutiveSuccess = 0
	switch s.state {
	case StateHalfOpen:
		s.state = StateOpen
		s.openedAt = b.now()
	case StateClosed:
		s.consecutiveFailures++
		if s.consecutiveFailures >= b.cfg.FailureThreshold {
			s.state = StateOpen
			s.openedAt = b.now()
		}
	}
}

// State returns provider's current state, for diagnostics and tests.
func (b *CircuitBreaker) State(provider string) BreakerState {
	s := b.stateFor(provider)
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}
