package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Default retry settings.
const (
	// DefaultAttempts is the total number of attempts, including the
	// first.
	DefaultAttempts = 3

	// DefaultMinInterval is the base delay before the first retry.
	DefaultMinInterval = 500 * time.Millisecond

	// DefaultMaxInterval caps the delay between attempts.
	DefaultMaxInterval = 8 * time.Second
)

// Operation is a retryable unit of work. It returns nil on success.
type Operation func() error

// PermanentFunc reports whether an error must not be retried.
type PermanentFunc func(error) bool

// Config controls the retry loop.
type Config struct {
	// Attempts is the total number of attempts, including the first.
	// Zero is treated as one attempt.
	Attempts uint64

	// MinInterval is the base delay before the first retry. Subsequent
	// delays double up to MaxInterval, with randomization applied.
	MinInterval time.Duration

	// MaxInterval caps the delay between attempts.
	MaxInterval time.Duration

	// OnRetry, when non-nil, is called after each failed attempt that
	// will be retried, with the attempt's error and the upcoming delay.
	// Used for debug logging; it must not block.
	OnRetry func(err error, next time.Duration)
}

// DefaultConfig returns the recommended retry settings.
func DefaultConfig() Config {
	return Config{
		Attempts:    DefaultAttempts,
		MinInterval: DefaultMinInterval,
		MaxInterval: DefaultMaxInterval,
	}
}

// Do runs op under the configured exponential-backoff loop.
//
// All errors are retried up to the attempt ceiling except those the
// permanent function classifies as permanent; permanent may be nil, in
// which case every error is retried. The returned error is always the
// operation's own error: the last attempt's error when the ceiling is
// reached, the triggering error when permanent stops the loop, or the
// context's error when ctx is cancelled during a backoff sleep.
func Do(ctx context.Context, cfg Config, op Operation, permanent PermanentFunc) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = cfg.MinInterval
	b.MaxInterval = cfg.MaxInterval
	// The interval doubles per attempt; the library's randomization keeps
	// each sleep within [0.5, 1.5] of the current interval.
	b.Multiplier = 2

	attempts := cfg.Attempts
	if attempts == 0 {
		attempts = 1
	}
	bo := backoff.WithContext(backoff.WithMaxRetries(b, attempts-1), ctx)

	wrapped := func() error {
		err := op()
		if err == nil {
			return nil
		}
		if permanent != nil && permanent(err) {
			// backoff unwraps Permanent before returning, so the caller
			// sees the original error.
			return backoff.Permanent(err)
		}
		return err
	}

	var notify backoff.Notify
	if cfg.OnRetry != nil {
		notify = backoff.Notify(cfg.OnRetry)
	}

	return backoff.RetryNotify(wrapped, bo, notify)
}
