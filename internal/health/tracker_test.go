package health_test

import (
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omarluq/playground-relay/internal/chat"
	"github.com/omarluq/playground-relay/internal/health"
)

func TestTrackerGetOrCreateCircuitReturnsSame(t *testing.T) {
	t.Parallel()
	logger := zerolog.Nop()
	tracker := health.NewTracker(health.CircuitBreakerConfig{}, &logger)

	var wg sync.WaitGroup
	breakers := make([]*health.CircuitBreaker, 16)
	for i := range breakers {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			breakers[i] = tracker.GetOrCreateCircuit(chat.ProviderAnthropic)
		}(i)
	}
	wg.Wait()

	for _, b := range breakers {
		assert.Same(t, breakers[0], b)
	}
}

func TestTrackerGuardIsolatesProviders(t *testing.T) {
	t.Parallel()
	logger := zerolog.Nop()
	tracker := health.NewTracker(health.CircuitBreakerConfig{FailureThreshold: 1}, &logger)

	assert.Equal(t, health.StateClosed, tracker.GetState(chat.ProviderGemini))

	done, err := tracker.Guard(chat.ProviderGemini)
	require.NoError(t, err)
	done(chat.NewError(chat.KindTransportFailure, "dns"))

	_, err = tracker.Guard(chat.ProviderGemini)
	require.ErrorIs(t, err, health.ErrCircuitOpen)

	done, err = tracker.Guard(chat.ProviderAnthropic)
	require.NoError(t, err)
	done(nil)

	states := tracker.AllStates()
	assert.Equal(t, health.StateOpen, states[chat.ProviderGemini])
	assert.Equal(t, health.StateClosed, states[chat.ProviderAnthropic])
}

func TestTrackerGuardDisabled(t *testing.T) {
	t.Parallel()
	logger := zerolog.Nop()
	disabled := false
	tracker := health.NewTracker(health.CircuitBreakerConfig{Enabled: &disabled, FailureThreshold: 1}, &logger)

	for i := 0; i < 3; i++ {
		done, err := tracker.Guard(chat.ProviderOpenAICompatible)
		require.NoError(t, err)
		done(errors.New("boom"))
	}
	assert.Empty(t, tracker.AllStates())
}
