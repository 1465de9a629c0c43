package health

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/omarluq/playground-relay/internal/chat"
)

// Tracker manages per-provider circuit breakers.
type Tracker struct {
	circuits map[chat.ProviderKind]*CircuitBreaker
	logger   *zerolog.Logger
	config   CircuitBreakerConfig
	mu       sync.RWMutex
}

// NewTracker creates a new Tracker with the given configuration.
func NewTracker(cfg CircuitBreakerConfig, logger *zerolog.Logger) *Tracker {
	return &Tracker{
		circuits: make(map[chat.ProviderKind]*CircuitBreaker),
		config:   cfg,
		logger:   logger,
	}
}

// GetOrCreateCircuit returns the circuit breaker for a provider, creating it if necessary.
func (t *Tracker) GetOrCreateCircuit(kind chat.ProviderKind) *CircuitBreaker {
	t.mu.RLock()
	cb, exists := t.circuits[kind]
	t.mu.RUnlock()

	if exists {
		return cb
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if cb, exists = t.circuits[kind]; exists {
		return cb
	}

	cb = NewCircuitBreaker(kind, t.config, t.logger)
	t.circuits[kind] = cb

	if t.logger != nil {
		t.logger.Debug().
			Str("provider", string(kind)).
			Msg("created circuit breaker")
	}

	return cb
}

// Guard admits one upstream call for kind. When breakers are disabled it
// always admits and the returned func is a no-op.
func (t *Tracker) Guard(kind chat.ProviderKind) (done func(err error), err error) {
	if !t.config.IsEnabled() {
		return func(error) {}, nil
	}
	return t.GetOrCreateCircuit(kind).Allow()
}

// GetState returns the state of a provider's breaker, StateClosed when none exists yet.
func (t *Tracker) GetState(kind chat.ProviderKind) State {
	t.mu.RLock()
	cb, exists := t.circuits[kind]
	t.mu.RUnlock()

	if !exists {
		return StateClosed
	}
	return cb.State()
}

// AllStates returns a snapshot of all provider circuit states.
func (t *Tracker) AllStates() map[chat.ProviderKind]State {
	t.mu.RLock()
	defer t.mu.RUnlock()

	states := make(map[chat.ProviderKind]State, len(t.circuits))
	for kind, cb := range t.circuits {
		states[kind] = cb.State()
	}
	return states
}
