package app

import (
	"time"

	"github.com/dshills/keymacro/internal/config"
	"github.com/dshills/keymacro/internal/keymap"
	"github.com/dshills/keymacro/internal/timer"
)

// Simulator runs an Application without a wall clock. Time only moves when
// Tick is called, in whole timer overflow periods, so playback is
// reproducible.
type Simulator struct {
	app           *Application
	rec           *Recorder
	cyclesPerTick uint64
	clockHz       uint64
	ticks         int64
}

// NewSimulator builds an Application for deterministic stepping.
func NewSimulator(cfg config.Config, opts ...Option) (*Simulator, error) {
	rec := &Recorder{}
	app, err := New(cfg, append(opts, WithOutput(rec))...)
	if err != nil {
		return nil, err
	}
	return &Simulator{
		app:           app,
		rec:           rec,
		cyclesPerTick: timer.CyclesPerOverflow(cfg.Prescaler(), uint8(cfg.Timer.Reload)),
		clockHz:       uint64(cfg.Timer.ClockHz),
	}, nil
}

// App returns the simulated application.
func (s *Simulator) App() *Application { return s.app }

// Start triggers slot. See Application.Trigger.
func (s *Simulator) Start(slot int) bool { return s.app.Trigger(slot) }

// Cancel stops the active session.
func (s *Simulator) Cancel() bool { return s.app.Cancel() }

// Tick advances simulated time by n timer periods and returns the number of
// overflows that fired. A stopped timer does not fire.
func (s *Simulator) Tick(n int) int {
	if n <= 0 {
		return 0
	}
	s.ticks += int64(n)
	return s.app.counter.Advance(uint64(n) * s.cyclesPerTick)
}

// Poll runs one main loop iteration.
func (s *Simulator) Poll() { s.app.Frame() }

// Step runs n iterations of one tick followed by a poll.
func (s *Simulator) Step(n int) {
	for i := 0; i < n; i++ {
		s.Tick(1)
		s.Poll()
	}
}

// RunUntilIdle steps until no session is active or maxTicks have passed.
// It returns the ticks used and whether playback went idle.
func (s *Simulator) RunUntilIdle(maxTicks int) (int, bool) {
	used := 0
	for s.app.player.IsActive() {
		if used >= maxTicks {
			return used, false
		}
		s.Step(1)
		used++
	}
	return used, true
}

// Active reports whether a session is running.
func (s *Simulator) Active() bool { return s.app.player.IsActive() }

// HasMacro reports whether slot is programmed.
func (s *Simulator) HasMacro(slot int) bool { return s.app.player.HasMacroAt(slot) }

// DrainKeys returns the keys emitted since the last drain and forgets all
// recorded events.
func (s *Simulator) DrainKeys() []keymap.Index {
	keys := s.rec.Keys()
	s.rec.Reset()
	return keys
}

// Events returns the events recorded since the last drain.
func (s *Simulator) Events() []Event { return s.rec.Events() }

// Ticks returns the simulated time in timer periods.
func (s *Simulator) Ticks() int64 { return s.ticks }

// Elapsed returns the simulated time.
func (s *Simulator) Elapsed() time.Duration {
	if s.clockHz == 0 {
		return 0
	}
	cycles := uint64(s.ticks) * s.cyclesPerTick
	secs, rem := cycles/s.clockHz, cycles%s.clockHz
	return time.Duration(secs)*time.Second + time.Duration(rem*uint64(time.Second)/s.clockHz)
}

// TicksPer100ms returns the player's delay unit.
func (s *Simulator) TicksPer100ms() int { return s.app.player.TicksPer100ms() }

// Close releases the application.
func (s *Simulator) Close() error { return s.app.Close() }
