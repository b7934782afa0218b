package retry

import "time"

type Option func(p *Policy)

// WithMaxAttempts specifies the total number of attempts (including the first)
func WithMaxAttempts(attempts int) Option {
	return func(p *Policy) {
		p.maxAttempts = attempts
	}
}

// WithBaseDelay specifies the base backoff delay
func WithBaseDelay(d time.Duration) Option {
	return func(p *Policy) {
		p.baseDelay = d
	}
}

// WithMaxJitter specifies the upper bound for the random jitter
// added to each backoff delay. Zero disables jitter
func WithMaxJitter(d time.Duration) Option {
	return func(p *Policy) {
		p.maxJitter = d
	}
}

// WithSleep specifies the sleep function, so tests can avoid real delays
func WithSleep(sleep SleepFn) Option {
	return func(p *Policy) {
		p.sleep = sleep
	}
}

// WithJitter specifies the jitter source
func WithJitter(jitter JitterFn) Option {
	return func(p *Policy) {
		p.jitter = jitter
	}
}
