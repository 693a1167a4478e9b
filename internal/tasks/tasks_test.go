package tasks

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRetryPolicyBackoffDoublesAndCaps(t *testing.T) {
	policy := RetryPolicy{MaxAttempts: 10, MinBackoff: time.Second, MaxBackoff: 10 * time.Second}

	require.Equal(t, time.Second, policy.Backoff(1))
	require.Equal(t, 2*time.Second, policy.Backoff(2))
	require.Equal(t, 4*time.Second, policy.Backoff(3))
	require.Equal(t, 8*time.Second, policy.Backoff(4))
	require.Equal(t, 10*time.Second, policy.Backoff(5))
	require.Equal(t, 10*time.Second, policy.Backoff(20))
}

func TestRetryPolicyBackoffZeroMin(t *testing.T) {
	policy := RetryPolicy{MaxAttempts: 3}
	require.Equal(t, time.Duration(0), policy.Backoff(1))
	require.Equal(t, time.Duration(0), policy.Backoff(5))
}

func TestIsRetryable(t *testing.T) {
	require.True(t, IsRetryable(ErrRetry))
	require.True(t, IsRetryable(fmt.Errorf("wrapped: %w", ErrRetry)))
	require.True(t, IsRetryable(Retryable(errors.New("transient"))))
	require.False(t, IsRetryable(errors.New("permanent")))
	require.False(t, IsRetryable(nil))
}

func TestRetryableNilStaysNil(t *testing.T) {
	require.NoError(t, Retryable(nil))
}

func TestRetryableUnwraps(t *testing.T) {
	cause := errors.New("connection reset")
	err := Retryable(cause)
	require.ErrorIs(t, err, cause)
}
