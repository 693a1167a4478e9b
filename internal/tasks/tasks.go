package tasks

import (
	"errors"
	"fmt"
	"time"
)

// RetryPolicy bounds how often a failed or rescheduled task is
// re-delivered. It is carried explicitly on the runner rather than
// read from ambient state so tests can inject deterministic policies.
type RetryPolicy struct {
	MaxAttempts int
	MinBackoff  time.Duration
	MaxBackoff  time.Duration
}

// DefaultRetryPolicy matches the judge's typical queue latency: a
// handful of quick polls, then settling at the backoff ceiling.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 10,
		MinBackoff:  500 * time.Millisecond,
		MaxBackoff:  30 * time.Second,
	}
}

// Backoff returns the delay before re-delivering a task on the given
// attempt (1-based). The delay doubles from MinBackoff and is capped
// at MaxBackoff.
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	if p.MinBackoff <= 0 {
		return 0
	}

	delay := p.MinBackoff
	for i := 1; i < attempt; i++ {
		if p.MaxBackoff > 0 && delay >= p.MaxBackoff {
			return p.MaxBackoff
		}
		if p.MaxBackoff > 0 && delay > p.MaxBackoff/2 {
			return p.MaxBackoff
		}
		delay *= 2
	}
	if p.MaxBackoff > 0 && delay > p.MaxBackoff {
		return p.MaxBackoff
	}
	return delay
}

// ErrRetry signals that the task made no permanent progress and must
// be re-delivered after backoff. Returning it does not mark the task
// failed; exhausting the attempt budget dead-letters it.
var ErrRetry = errors.New("task retry requested")

// RetryableError wraps a transient failure so the runner re-delivers
// the task instead of dead-lettering it immediately.
type RetryableError struct {
	Err error
}

func (e *RetryableError) Error() string { return fmt.Sprintf("retryable: %v", e.Err) }
func (e *RetryableError) Unwrap() error { return e.Err }

// Retryable wraps err as a retryable task failure. A nil err stays nil.
func Retryable(err error) error {
	if err == nil {
		return nil
	}
	return &RetryableError{Err: err}
}

// IsRetryable reports whether the runner should re-deliver after err.
func IsRetryable(err error) bool {
	if errors.Is(err, ErrRetry) {
		return true
	}
	var retryable *RetryableError
	return errors.As(err, &retryable)
}
