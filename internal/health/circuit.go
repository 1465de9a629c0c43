package health

import (
	"context"
	"errors"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"

	"github.com/omarluq/playground-relay/internal/chat"
)

// State represents the circuit breaker state.
type State = gobreaker.State

// Circuit breaker state constants.
const (
	StateClosed   = gobreaker.StateClosed
	StateOpen     = gobreaker.StateOpen
	StateHalfOpen = gobreaker.StateHalfOpen
)

// CircuitBreaker wraps a gobreaker TwoStepCircuitBreaker for one provider.
type CircuitBreaker struct {
	cb   *gobreaker.TwoStepCircuitBreaker[struct{}]
	kind chat.ProviderKind
}

// NewCircuitBreaker creates a breaker for the given provider kind.
func NewCircuitBreaker(kind chat.ProviderKind, cfg CircuitBreakerConfig, logger *zerolog.Logger) *CircuitBreaker {
	halfOpenProbes := cfg.GetHalfOpenProbes()
	failureThreshold := cfg.GetFailureThreshold()

	settings := gobreaker.Settings{
		Name:        string(kind),
		MaxRequests: uint32(halfOpenProbes), //nolint:gosec // getter never returns a negative value
		Timeout:     cfg.GetOpenDuration(),
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= uint32(failureThreshold) //nolint:gosec // getter never returns a negative value
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			if logger == nil {
				return
			}
			event := logger.Info()
			if to == gobreaker.StateOpen {
				event = logger.Warn()
			}
			event.
				Str("provider", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state change")
		},
		IsSuccessful: func(err error) bool {
			return !CountsAsFailure(err)
		},
	}

	return &CircuitBreaker{
		cb:   gobreaker.NewTwoStepCircuitBreaker[struct{}](settings),
		kind: kind,
	}
}

// Allow checks if a request may go upstream. The returned done func must be
// called exactly once with the outcome of the connect phase.
func (c *CircuitBreaker) Allow() (done func(err error), err error) {
	d, err := c.cb.Allow()
	if err != nil {
		return nil, ErrCircuitOpen
	}
	return d, nil
}

// State returns the current circuit breaker state.
func (c *CircuitBreaker) State() State {
	return c.cb.State()
}

// Kind returns the provider kind the breaker guards.
func (c *CircuitBreaker) Kind() chat.ProviderKind {
	return c.kind
}

// CountsAsFailure reports whether a connect-time outcome should count against
// the provider. Caller mistakes (missing credentials, bad requests, 4xx other
// than 429) and cancellations by the caller do not.
func CountsAsFailure(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}

	var ce *chat.Error
	if !errors.As(err, &ce) {
		return true
	}

	switch ce.Kind {
	case chat.KindTransportFailure:
		return true
	case chat.KindUpstreamRejected:
		return ce.HTTPStatus >= http.StatusInternalServerError || ce.HTTPStatus == http.StatusTooManyRequests
	default:
		return false
	}
}
