package timer

import "sync/atomic"

// Timer is the hardware timer as seen by the playback engine.
type Timer interface {
	// Init resets the timer to a stopped state with a zero count.
	Init()
	// AttachOverflow installs the overflow callback.
	AttachOverflow(fn func())
	// SetPrescaler selects the clock source; Stopped halts the timer.
	SetPrescaler(p Prescaler)
	// SetCount writes the counter register.
	SetCount(v uint8)
}

// Counter8 is an emulated 8-bit up-counter with overflow callback.
//
// Control registers are atomics so the main loop can start and stop the
// timer while another goroutine advances it. Advance itself must only be
// called from one goroutine at a time.
type Counter8 struct {
	control   atomic.Uint32
	count     atomic.Uint32
	overflow  atomic.Pointer[func()]
	overflows atomic.Uint64

	// acc holds CPU cycles not yet worth a full count.
	acc uint64
}

var _ Timer = (*Counter8)(nil)

// NewCounter8 returns a stopped counter.
func NewCounter8() *Counter8 {
	return &Counter8{}
}

// Init implements Timer.
func (c *Counter8) Init() {
	c.control.Store(uint32(Stopped))
	c.count.Store(0)
	c.overflows.Store(0)
	c.acc = 0
}

// AttachOverflow implements Timer.
func (c *Counter8) AttachOverflow(fn func()) {
	if fn == nil {
		c.overflow.Store(nil)
		return
	}
	c.overflow.Store(&fn)
}

// SetPrescaler implements Timer.
func (c *Counter8) SetPrescaler(p Prescaler) {
	c.control.Store(uint32(p))
}

// SetCount implements Timer.
func (c *Counter8) SetCount(v uint8) {
	c.count.Store(uint32(v))
}

// Prescaler returns the selected clock source.
func (c *Counter8) Prescaler() Prescaler {
	return Prescaler(c.control.Load())
}

// Running reports whether the counter has a clock source.
func (c *Counter8) Running() bool {
	return c.Prescaler().Divisor() != 0
}

// Count returns the counter register.
func (c *Counter8) Count() uint8 {
	return uint8(c.count.Load())
}

// Overflows returns the number of overflows since Init.
func (c *Counter8) Overflows() uint64 {
	return c.overflows.Load()
}

// Advance feeds cycles CPU cycles into the counter and returns how many
// overflows occurred. The overflow callback runs synchronously for each
// one; it may rewrite the count or stop the timer, which takes effect for
// the remaining cycles.
func (c *Counter8) Advance(cycles uint64) int {
	div := c.Prescaler().Divisor()
	if div == 0 {
		c.acc = 0
		return 0
	}

	c.acc += cycles
	steps := c.acc / div
	c.acc -= steps * div

	fired := 0
	for steps > 0 {
		cnt := uint64(c.count.Load() & 0xFF)
		toWrap := 256 - cnt
		if steps < toWrap {
			c.count.Store(uint32(cnt + steps))
			break
		}
		steps -= toWrap
		c.count.Store(0)
		c.overflows.Add(1)
		fired++

		if fn := c.overflow.Load(); fn != nil {
			(*fn)()
		}

		next := c.Prescaler().Divisor()
		if next == 0 {
			c.acc = 0
			break
		}
		if next != div {
			// Leftover counts were measured with the old divisor.
			steps = steps * div / next
			div = next
		}
	}
	return fired
}
