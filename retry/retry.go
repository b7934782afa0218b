package retry

import (
	"context"
	"math/rand/v2"
	"time"
)

const (
	defaultMaxAttempts = 3
	defaultBaseDelay   = time.Second
	defaultMaxJitter   = time.Millisecond * 500
)

type (
	// SleepFn blocks for the given duration, or until the context is done
	SleepFn func(ctx context.Context, d time.Duration) error

	// JitterFn returns a random delay in [0, max)
	JitterFn func(max time.Duration) time.Duration
)

// Policy is a reusable exponential-backoff retry policy.
// The delay before attempt n+1 is 2^n * baseDelay, plus random jitter
type Policy struct {
	maxAttempts int
	baseDelay   time.Duration
	maxJitter   time.Duration

	sleep  SleepFn
	jitter JitterFn
}

// NewPolicy creates a new retry policy.
// Defaults to 3 attempts, a 1s base delay, and up to 500ms of jitter
func NewPolicy(opts ...Option) *Policy {
	p := &Policy{
		maxAttempts: defaultMaxAttempts,
		baseDelay:   defaultBaseDelay,
		maxJitter:   defaultMaxJitter,
		sleep:       sleepContext,
		jitter:      randomJitter,
	}

	// Apply the options
	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Do runs fn up to the configured number of attempts, sleeping with
// backoff between failures. There is no sleep after the final attempt;
// the last observed error is returned if every attempt fails
func (p *Policy) Do(ctx context.Context, fn func(context.Context) error) error {
	var lastErr error

	for attempt := 0; attempt < p.maxAttempts; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}

		lastErr = err

		if attempt == p.maxAttempts-1 {
			break // no wait after the final attempt
		}

		delay := p.baseDelay * (1 << attempt)
		if p.maxJitter > 0 {
			delay += p.jitter(p.maxJitter)
		}

		if err := p.sleep(ctx, delay); err != nil {
			return err
		}
	}

	return lastErr
}

// sleepContext blocks for d, aborting early if the context is canceled
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// randomJitter returns a uniformly random duration in [0, max)
func randomJitter(max time.Duration) time.Duration {
	return time.Duration(rand.Int64N(int64(max)))
}
