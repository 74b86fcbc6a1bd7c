package timer

import (
	"context"
	"errors"
	"time"
)

// DefaultClockHz is the CPU frequency of the reference board.
const DefaultClockHz = 12_000_000

// ErrInvalidClock indicates a zero frequency or interval.
var ErrInvalidClock = errors.New("invalid clock")

// Advancer consumes CPU cycles.
type Advancer interface {
	Advance(cycles uint64) int
}

// Clock converts wall time into CPU cycles for an Advancer.
type Clock struct {
	target   Advancer
	hz       uint64
	interval time.Duration
	now      func() time.Time

	// remainder of hz*ns not yet worth a full cycle, in cycle-nanoseconds.
	rem uint64
}

// NewClock creates a clock feeding target at hz, waking every interval.
func NewClock(target Advancer, hz uint64, interval time.Duration) (*Clock, error) {
	if hz == 0 || interval <= 0 {
		return nil, ErrInvalidClock
	}
	return &Clock{
		target:   target,
		hz:       hz,
		interval: interval,
		now:      time.Now,
	}, nil
}

// Run advances the target until ctx is cancelled. It returns ctx.Err().
// All overflow callbacks of the target run on the calling goroutine.
func (c *Clock) Run(ctx context.Context) error {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	last := c.now()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			now := c.now()
			c.Step(now.Sub(last))
			last = now
		}
	}
}

// Step advances the target by the cycles in elapsed and returns the
// number of overflows.
func (c *Clock) Step(elapsed time.Duration) int {
	if elapsed <= 0 {
		return 0
	}
	c.rem += uint64(elapsed.Nanoseconds()) * c.hz
	cycles := c.rem / uint64(time.Second)
	c.rem %= uint64(time.Second)
	return c.target.Advance(cycles)
}
