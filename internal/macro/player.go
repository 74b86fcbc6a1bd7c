package macro

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dshills/keymacro/internal/store"
	"github.com/dshills/keymacro/internal/timer"
)

// Defaults matching the reference board: 12 MHz, clk/64, reload 6.
const (
	DefaultTicksPer100ms = 75
	DefaultReload        = 6
	DefaultPrescaler     = timer.Div64
)

// Construction errors.
var (
	ErrNilTable     = errors.New("macro table is nil")
	ErrNilSink      = errors.New("key sink is nil")
	ErrNilTimer     = errors.New("timer is nil")
	ErrInvalidTicks = errors.New("ticks per 100ms must be positive")
	ErrTimerStopped = errors.New("running prescaler cannot be stopped")
)

// Hooks are optional notifications from the main loop. They run
// synchronously inside Start, PollFrame and Cancel.
type Hooks struct {
	// OnStart is called after a session opens, before any key is decoded.
	OnStart func(s Session)
	// OnFinish is called after a session closes.
	OnFinish func(s Session, reason EndReason)
}

// Player is the playback scheduler. It owns the session state machine and
// bridges the fixed-period timer tick to the decoder's delay windows.
type Player struct {
	table   *store.Table
	decoder *Decoder
	timer   timer.Timer

	ticksPer100ms int
	reload        uint8
	running       timer.Prescaler
	hooks         Hooks
	newID         func() string
	now           func() time.Time

	sess session
}

// Option configures a Player.
type Option func(*Player)

// WithTicksPer100ms sets how many timer ticks make one delay unit.
func WithTicksPer100ms(n int) Option {
	return func(p *Player) {
		p.ticksPer100ms = n
	}
}

// WithReload sets the counter value written on every overflow.
func WithReload(v uint8) Option {
	return func(p *Player) {
		p.reload = v
	}
}

// WithPrescaler sets the clock source used while a session runs.
func WithPrescaler(ps timer.Prescaler) Option {
	return func(p *Player) {
		p.running = ps
	}
}

// WithHooks installs session notifications.
func WithHooks(h Hooks) Option {
	return func(p *Player) {
		p.hooks = h
	}
}

// WithIDGenerator replaces the session ID source.
func WithIDGenerator(fn func() string) Option {
	return func(p *Player) {
		p.newID = fn
	}
}

// NewPlayer creates a player that decodes table into sink, paced by tmr.
// Call Init before any other method.
func NewPlayer(table *store.Table, sink KeySink, tmr timer.Timer, opts ...Option) (*Player, error) {
	if table == nil {
		return nil, ErrNilTable
	}
	if sink == nil {
		return nil, ErrNilSink
	}
	if tmr == nil {
		return nil, ErrNilTimer
	}

	p := &Player{
		table:         table,
		timer:         tmr,
		ticksPer100ms: DefaultTicksPer100ms,
		reload:        DefaultReload,
		running:       DefaultPrescaler,
		newID:         uuid.NewString,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}

	if p.ticksPer100ms <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidTicks, p.ticksPer100ms)
	}
	if p.running.Divisor() == 0 {
		return nil, ErrTimerStopped
	}

	p.decoder = NewDecoder(table, sink, p.ticksPer100ms)
	return p, nil
}

// Init prepares the timer: reset, attach OnTick as the overflow callback,
// and leave it stopped until a session starts.
func (p *Player) Init() {
	p.timer.Init()
	p.timer.AttachOverflow(p.OnTick)
	p.stopTimer()
}

// HasMacroAt reports whether slot starts with a valid key. It does not
// depend on the session state.
func (p *Player) HasMacroAt(slot int) bool {
	return p.table.Programmed(slot)
}

// Start begins playback of slot. It does nothing while a session is
// active. Keys up to the first delay are pushed before Start returns; the
// timer only runs if the macro is still going after that first batch.
func (p *Player) Start(slot int) {
	if p.sess.active.Load() {
		return
	}

	p.sess.reset(p.newID(), slot, p.now())
	p.sess.active.Store(true)
	if p.hooks.OnStart != nil {
		p.hooks.OnStart(p.sess.snapshot())
	}

	p.advance()

	if p.sess.active.Load() {
		p.startTimer()
	}
}

// OnTick is the timer overflow handler. It rearms the counter and, while a
// session is active, counts one tick. It never touches the store or sink.
func (p *Player) OnTick() {
	p.timer.SetCount(p.reload)
	if p.sess.active.Load() {
		p.sess.elapsed.Add(1)
	}
}

// PollFrame runs the decoder once the pending delay has elapsed. Call it
// once per main-loop iteration.
func (p *Player) PollFrame() {
	if !p.sess.active.Load() {
		return
	}
	if p.sess.elapsed.Load() >= int64(p.sess.pending) {
		p.advance()
	}
}

// IsActive reports whether a session is running. The input loop must
// suppress normal key processing and other macro triggers while true.
func (p *Player) IsActive() bool {
	return p.sess.active.Load()
}

// Cancel ends the active session. It reports false if none was running.
func (p *Player) Cancel() bool {
	if !p.sess.active.Load() {
		return false
	}
	p.close(EndCancelled)
	return true
}

// Session returns a snapshot of the current or last session.
func (p *Player) Session() Session {
	return p.sess.snapshot()
}

// TicksPer100ms returns the delay unit in ticks.
func (p *Player) TicksPer100ms() int {
	return p.ticksPer100ms
}

// Table returns the macro table being played.
func (p *Player) Table() *store.Table {
	return p.table
}

func (p *Player) advance() {
	if reason := p.decoder.Advance(&p.sess); reason != EndNone {
		p.close(reason)
	}
}

func (p *Player) close(reason EndReason) {
	p.stopTimer()
	p.sess.active.Store(false)
	if p.hooks.OnFinish != nil {
		p.hooks.OnFinish(p.sess.snapshot(), reason)
	}
}

func (p *Player) startTimer() {
	p.timer.SetCount(p.reload)
	p.timer.SetPrescaler(p.running)
}

func (p *Player) stopTimer() {
	p.timer.SetPrescaler(timer.Stopped)
}
