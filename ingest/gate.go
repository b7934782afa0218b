package ingest

import (
	"sync"
	"time"
)

// DefaultMinInterval is the minimum time between admitted run starts
const DefaultMinInterval = time.Minute

// Gate is a process-wide cooldown on run starts. The last-start
// timestamp is updated on admission, before the run's actual work
// begins, so overlapping triggers during a long ingestion are also
// rejected. The guarantee holds for a single process only
type Gate struct {
	lastStart   time.Time
	now         func() time.Time
	minInterval time.Duration

	mu sync.Mutex
}

// NewGate creates a new run gate with the given cooldown interval
func NewGate(minInterval time.Duration, opts ...GateOption) *Gate {
	g := &Gate{
		minInterval: minInterval,
		now: func() time.Time {
			return time.Now().UTC()
		},
	}

	// Apply the options
	for _, opt := range opts {
		opt(g)
	}

	return g
}

// Admit attempts to admit a run trigger. On rejection, it returns
// how long the caller should wait before retrying
func (g *Gate) Admit() (time.Duration, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()

	if !g.lastStart.IsZero() {
		if elapsed := now.Sub(g.lastStart); elapsed < g.minInterval {
			return g.minInterval - elapsed, false
		}
	}

	g.lastStart = now

	return 0, true
}

type GateOption func(g *Gate)

// WithGateClock specifies the gate's time source,
// so tests can control time without real delays
func WithGateClock(now func() time.Time) GateOption {
	return func(g *Gate) {
		g.now = now
	}
}
