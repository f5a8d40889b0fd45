package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func failingCall(_ context.Context) (string, error) {
	return "", eris.New("status 500: model unavailable")
}

func okCall(_ context.Context) (string, error) {
	return "ok", nil
}

func TestExecuteVal_PassesThroughWhenClosed(t *testing.T) {
	cb := NewCircuitBreaker(DefaultCircuitBreakerConfig())

	got, err := ExecuteVal(context.Background(), cb, okCall)
	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, CircuitClosed, cb.State())
}

func TestExecuteVal_OpensAfterThreshold(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{FailureThreshold: 3, ResetTimeout: time.Hour})

	for i := 0; i < 3; i++ {
		_, err := ExecuteVal(context.Background(), cb, failingCall)
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrCircuitOpen)
	}
	require.Equal(t, CircuitOpen, cb.State())

	// Open circuit rejects without invoking the call.
	calls := 0
	_, err := ExecuteVal(context.Background(), cb, func(_ context.Context) (string, error) {
		calls++
		return "", nil
	})
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Zero(t, calls)
}

func TestExecuteVal_SuccessResetsFailureCount(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{FailureThreshold: 3, ResetTimeout: time.Hour})

	for i := 0; i < 5; i++ {
		_, _ = ExecuteVal(context.Background(), cb, failingCall)
		_, err := ExecuteVal(context.Background(), cb, okCall)
		require.NoError(t, err)
	}
	assert.Equal(t, CircuitClosed, cb.State())
}

func TestExecuteVal_HalfOpenProbeCloses(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{FailureThreshold: 2, ResetTimeout: 10 * time.Second})
	now := time.Now()
	cb.nowFunc = func() time.Time { return now }

	_, _ = ExecuteVal(context.Background(), cb, failingCall)
	_, _ = ExecuteVal(context.Background(), cb, failingCall)
	require.Equal(t, CircuitOpen, cb.State())

	now = now.Add(11 * time.Second)
	assert.Equal(t, CircuitHalfOpen, cb.State())

	got, err := ExecuteVal(context.Background(), cb, okCall)
	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, CircuitClosed, cb.State())
}

func TestExecuteVal_HalfOpenProbeFailureReopens(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{FailureThreshold: 2, ResetTimeout: 10 * time.Second})
	now := time.Now()
	cb.nowFunc = func() time.Time { return now }

	_, _ = ExecuteVal(context.Background(), cb, failingCall)
	_, _ = ExecuteVal(context.Background(), cb, failingCall)
	now = now.Add(11 * time.Second)

	_, err := ExecuteVal(context.Background(), cb, failingCall)
	require.Error(t, err)
	assert.Equal(t, CircuitOpen, cb.State())

	_, err = ExecuteVal(context.Background(), cb, okCall)
	assert.ErrorIs(t, err, ErrCircuitOpen)
}

func TestExecuteVal_ShouldTripFilter(t *testing.T) {
	clientErr := eris.New("status 404: file not found")
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		FailureThreshold: 2,
		ResetTimeout:     time.Hour,
		ShouldTrip: func(err error) bool {
			return !errors.Is(err, clientErr)
		},
	})

	for i := 0; i < 5; i++ {
		_, _ = ExecuteVal(context.Background(), cb, func(_ context.Context) (string, error) {
			return "", clientErr
		})
	}
	assert.Equal(t, CircuitClosed, cb.State())

	_, _ = ExecuteVal(context.Background(), cb, failingCall)
	_, _ = ExecuteVal(context.Background(), cb, failingCall)
	assert.Equal(t, CircuitOpen, cb.State())
}

func TestCircuitBreaker_OnStateChange(t *testing.T) {
	var transitions []string
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		FailureThreshold: 1,
		ResetTimeout:     10 * time.Second,
		OnStateChange: func(from, to CircuitState) {
			transitions = append(transitions, from.String()+"->"+to.String())
		},
	})
	now := time.Now()
	cb.nowFunc = func() time.Time { return now }

	_, _ = ExecuteVal(context.Background(), cb, failingCall)
	now = now.Add(11 * time.Second)
	_, _ = ExecuteVal(context.Background(), cb, okCall)

	assert.Equal(t, []string{"closed->open", "open->half-open", "half-open->closed"}, transitions)
}

func TestFromCircuitConfig(t *testing.T) {
	def := FromCircuitConfig(0, 0)
	assert.Equal(t, DefaultCircuitBreakerConfig().FailureThreshold, def.FailureThreshold)
	assert.Equal(t, DefaultCircuitBreakerConfig().ResetTimeout, def.ResetTimeout)

	cfg := FromCircuitConfig(8, 60)
	assert.Equal(t, 8, cfg.FailureThreshold)
	assert.Equal(t, time.Minute, cfg.ResetTimeout)
}
