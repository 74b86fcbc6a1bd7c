package macro

import (
	"errors"
	"fmt"
	"testing"

	"github.com/dshills/keymacro/internal/store"
	"github.com/dshills/keymacro/internal/timer"
)

// fakeTimer records every call the player makes.
type fakeTimer struct {
	inits     int
	overflow  func()
	prescaler timer.Prescaler
	count     uint8
	history   []timer.Prescaler
}

func (f *fakeTimer) Init()                    { f.inits++; f.prescaler = timer.Stopped; f.count = 0 }
func (f *fakeTimer) AttachOverflow(fn func()) { f.overflow = fn }
func (f *fakeTimer) SetCount(v uint8)         { f.count = v }
func (f *fakeTimer) SetPrescaler(p timer.Prescaler) {
	f.prescaler = p
	f.history = append(f.history, p)
}

// fire simulates n timer overflows.
func (f *fakeTimer) fire(n int) {
	for i := 0; i < n; i++ {
		f.overflow()
	}
}

type recordSink struct {
	keys  []uint8
	limit int
}

func (s *recordSink) Push(key uint8) bool {
	if s.limit > 0 && len(s.keys) >= s.limit {
		return false
	}
	s.keys = append(s.keys, key)
	return true
}

// slotImage lays out slots of size bytes. Unlisted bytes are erased.
func slotImage(size int, slots ...[]store.Entry) store.Memory {
	mem := store.NewErased(size * len(slots))
	for i, entries := range slots {
		for j, e := range entries {
			mem[i*size+2*j] = e.Key
			mem[i*size+2*j+1] = e.DownDelay
		}
	}
	return mem
}

type fixture struct {
	player *Player
	sink   *recordSink
	timer  *fakeTimer
}

func newFixture(t *testing.T, size int, mem store.Memory, opts ...Option) *fixture {
	t.Helper()

	table, err := store.NewTable(mem, 0, size)
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}
	f := &fixture{sink: &recordSink{}, timer: &fakeTimer{}}

	ids := 0
	opts = append([]Option{WithIDGenerator(func() string {
		ids++
		return fmt.Sprintf("session-%d", ids)
	})}, opts...)

	f.player, err = NewPlayer(table, f.sink, f.timer, opts...)
	if err != nil {
		t.Fatalf("NewPlayer: %v", err)
	}
	f.player.Init()
	return f
}

func keysEqual(a, b []uint8) bool {
	return string(a) == string(b)
}

// ==================== HasMacroAt ====================

func TestHasMacroAtFirstByte(t *testing.T) {
	for b := 0; b < 256; b++ {
		mem := store.Memory{uint8(b), 0, 255, 0}
		f := newFixture(t, 4, mem)

		want := b != 0 && b != 255
		if got := f.player.HasMacroAt(0); got != want {
			t.Errorf("HasMacroAt with first byte %d = %v, want %v", b, got, want)
		}
	}
}

func TestHasMacroAtIgnoresSession(t *testing.T) {
	mem := slotImage(4,
		[]store.Entry{{Key: 4, DownDelay: 1}},
		[]store.Entry{{Key: 255}},
	)
	f := newFixture(t, 4, mem)

	f.player.Start(0)
	if !f.player.IsActive() {
		t.Fatal("session should be active")
	}
	if !f.player.HasMacroAt(0) || f.player.HasMacroAt(1) {
		t.Error("HasMacroAt should not depend on session state")
	}
	if f.player.HasMacroAt(9) {
		t.Error("slot beyond the image should read as empty")
	}
}

// ==================== Start / PollFrame ====================

func TestStartPushesImmediateKeys(t *testing.T) {
	mem := slotImage(8, []store.Entry{
		{Key: 10, DownDelay: 0},
		{Key: 11, DownDelay: 0},
		{Key: 12, DownDelay: 5},
		{Key: 255, DownDelay: 0},
	})
	f := newFixture(t, 8, mem)

	f.player.Start(0)

	if want := []uint8{10, 11, 12}; !keysEqual(f.sink.keys, want) {
		t.Errorf("keys after Start = %v, want %v", f.sink.keys, want)
	}
	if !f.player.IsActive() {
		t.Error("session should stay active while a delay is pending")
	}

	s := f.player.Session()
	if s.PendingDelayTicks != 5*DefaultTicksPer100ms {
		t.Errorf("PendingDelayTicks = %d, want %d", s.PendingDelayTicks, 5*DefaultTicksPer100ms)
	}
	if s.Cursor != 6 {
		t.Errorf("Cursor = %d, want 6", s.Cursor)
	}
	if s.ID != "session-1" {
		t.Errorf("ID = %q, want session-1", s.ID)
	}
	if f.timer.prescaler != DefaultPrescaler {
		t.Errorf("timer prescaler = %v, want %v", f.timer.prescaler, DefaultPrescaler)
	}
	if f.timer.count != DefaultReload {
		t.Errorf("timer count = %d, want reload %d", f.timer.count, DefaultReload)
	}
}

func TestPollFrameWaitsForDelay(t *testing.T) {
	mem := slotImage(8, []store.Entry{
		{Key: 10, DownDelay: 0},
		{Key: 11, DownDelay: 0},
		{Key: 12, DownDelay: 5},
		{Key: 255, DownDelay: 0},
	})
	f := newFixture(t, 8, mem)
	f.player.Start(0)
	pending := f.player.Session().PendingDelayTicks

	f.timer.fire(pending - 1)
	for i := 0; i < 10; i++ {
		f.player.PollFrame()
	}
	if len(f.sink.keys) != 3 {
		t.Errorf("keys before delay elapsed = %v, want 3 keys", f.sink.keys)
	}
	if !f.player.IsActive() {
		t.Fatal("session ended before delay elapsed")
	}
	if got := f.player.Session().ElapsedTicks; got != pending-1 {
		t.Errorf("ElapsedTicks = %d, want %d", got, pending-1)
	}

	f.timer.fire(1)
	f.player.PollFrame()

	if f.player.IsActive() {
		t.Error("session should end at the terminator")
	}
	if f.timer.prescaler != timer.Stopped {
		t.Errorf("timer prescaler = %v, want stopped", f.timer.prescaler)
	}

	for i := 0; i < 5; i++ {
		f.timer.fire(1000)
		f.player.PollFrame()
	}
	if len(f.sink.keys) != 3 {
		t.Errorf("keys after termination = %v, want no further keys", f.sink.keys)
	}
}

func TestPollFrameOvershootStillAdvancesOnce(t *testing.T) {
	mem := slotImage(8, []store.Entry{
		{Key: 4, DownDelay: 1},
		{Key: 5, DownDelay: 1},
		{Key: 6, DownDelay: 1},
	})
	f := newFixture(t, 8, mem, WithTicksPer100ms(10))
	f.player.Start(0)

	f.timer.fire(35)
	f.player.PollFrame()

	if want := []uint8{4, 5}; !keysEqual(f.sink.keys, want) {
		t.Errorf("keys = %v, want %v (one decode per poll)", f.sink.keys, want)
	}
	if got := f.player.Session().ElapsedTicks; got != 0 {
		t.Errorf("ElapsedTicks after decode = %d, want 0", got)
	}
}

func TestStartWhileActiveIsIgnored(t *testing.T) {
	mem := slotImage(8,
		[]store.Entry{{Key: 4, DownDelay: 2}, {Key: 5, DownDelay: 0}},
		[]store.Entry{{Key: 9, DownDelay: 0}},
	)
	f := newFixture(t, 8, mem)
	f.player.Start(0)
	before := f.player.Session()

	f.player.Start(1)

	after := f.player.Session()
	if after != before {
		t.Errorf("Session changed by second Start: %+v -> %+v", before, after)
	}
	if want := []uint8{4}; !keysEqual(f.sink.keys, want) {
		t.Errorf("keys = %v, want %v", f.sink.keys, want)
	}
}

func TestStartFullSlotExhausts(t *testing.T) {
	mem := slotImage(8, []store.Entry{
		{Key: 4}, {Key: 5}, {Key: 6}, {Key: 7},
	})

	var reason EndReason
	f := newFixture(t, 8, mem, WithHooks(Hooks{
		OnFinish: func(_ Session, r EndReason) { reason = r },
	}))
	f.player.Start(0)

	if want := []uint8{4, 5, 6, 7}; !keysEqual(f.sink.keys, want) {
		t.Errorf("keys = %v, want %v", f.sink.keys, want)
	}
	if f.player.IsActive() {
		t.Error("session should end when the slot is exhausted")
	}
	if reason != EndExhausted {
		t.Errorf("end reason = %v, want %v", reason, EndExhausted)
	}
	if got := f.player.Session().Cursor; got != 8 {
		t.Errorf("Cursor = %d, want slot size 8", got)
	}
	for _, p := range f.timer.history {
		if p != timer.Stopped {
			t.Errorf("timer was started (%v) for a macro without delays", p)
		}
	}
}

func TestTerminatorEndsSession(t *testing.T) {
	tests := []struct {
		name string
		key  uint8
	}{
		{"absent", 0},
		{"terminator", 255},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mem := slotImage(8, []store.Entry{{Key: 4}, {Key: tt.key}, {Key: 5}})

			var reason EndReason
			f := newFixture(t, 8, mem, WithHooks(Hooks{
				OnFinish: func(_ Session, r EndReason) { reason = r },
			}))
			f.player.Start(0)

			if want := []uint8{4}; !keysEqual(f.sink.keys, want) {
				t.Errorf("keys = %v, want %v", f.sink.keys, want)
			}
			if reason != EndTerminator {
				t.Errorf("end reason = %v, want %v", reason, EndTerminator)
			}
		})
	}
}

func TestStartEmptySlot(t *testing.T) {
	f := newFixture(t, 4, store.Memory{4, 0, 0, 0})

	f.player.Start(7)

	if f.player.IsActive() {
		t.Error("erased slot should end immediately")
	}
	if len(f.sink.keys) != 0 {
		t.Errorf("keys = %v, want none", f.sink.keys)
	}
}

func TestDelayAfterLastEntryOfSlot(t *testing.T) {
	mem := slotImage(4, []store.Entry{{Key: 4}, {Key: 5, DownDelay: 1}})
	f := newFixture(t, 4, mem)

	f.player.Start(0)
	if !f.player.IsActive() {
		t.Fatal("delay on the last entry should keep the session open")
	}

	f.timer.fire(DefaultTicksPer100ms)
	f.player.PollFrame()

	if f.player.IsActive() {
		t.Error("session should end by exhaustion after the delay")
	}
	if want := []uint8{4, 5}; !keysEqual(f.sink.keys, want) {
		t.Errorf("keys = %v, want %v", f.sink.keys, want)
	}
}

func TestIsDownBitIgnored(t *testing.T) {
	mem := slotImage(8, []store.Entry{
		{Key: 4, DownDelay: 0x80},
		{Key: 5, DownDelay: 0x81},
	})
	f := newFixture(t, 8, mem, WithTicksPer100ms(3))
	f.player.Start(0)

	if want := []uint8{4, 5}; !keysEqual(f.sink.keys, want) {
		t.Errorf("keys = %v, want %v", f.sink.keys, want)
	}
	if got := f.player.Session().PendingDelayTicks; got != 3 {
		t.Errorf("PendingDelayTicks = %d, want 3 (bit 7 masked)", got)
	}
}

func TestMaxDelay(t *testing.T) {
	mem := slotImage(4, []store.Entry{{Key: 4, DownDelay: 0x7F}})
	f := newFixture(t, 4, mem)
	f.player.Start(0)

	if got := f.player.Session().PendingDelayTicks; got != 127*DefaultTicksPer100ms {
		t.Errorf("PendingDelayTicks = %d, want %d", got, 127*DefaultTicksPer100ms)
	}
}

// ==================== Ticks ====================

func TestOnTickInactive(t *testing.T) {
	f := newFixture(t, 4, store.Memory{4, 0, 255, 0})

	f.timer.count = 200
	f.player.OnTick()

	if f.timer.count != DefaultReload {
		t.Errorf("OnTick should rearm the counter: count = %d", f.timer.count)
	}
	if got := f.player.Session().ElapsedTicks; got != 0 {
		t.Errorf("ElapsedTicks while inactive = %d, want 0", got)
	}
}

func TestIdempotentAfterTermination(t *testing.T) {
	mem := slotImage(4, []store.Entry{{Key: 4, DownDelay: 1}})
	f := newFixture(t, 4, mem)
	f.player.Start(0)
	f.timer.fire(DefaultTicksPer100ms)
	f.player.PollFrame()

	if f.player.IsActive() {
		t.Fatal("session should have ended")
	}
	for i := 0; i < 100; i++ {
		f.player.OnTick()
		f.player.PollFrame()
		if f.player.IsActive() {
			t.Fatalf("session reactivated after %d ticks", i)
		}
	}
	if got := f.player.Session().ElapsedTicks; got != 0 {
		t.Errorf("ElapsedTicks after termination = %d, want 0", got)
	}
}

func TestRestartAfterTermination(t *testing.T) {
	mem := slotImage(4,
		[]store.Entry{{Key: 4}},
		[]store.Entry{{Key: 5}},
	)
	f := newFixture(t, 4, mem)

	f.player.Start(0)
	f.player.Start(1)

	if want := []uint8{4, 5}; !keysEqual(f.sink.keys, want) {
		t.Errorf("keys = %v, want %v", f.sink.keys, want)
	}
	s := f.player.Session()
	if s.Slot != 1 || s.ID != "session-2" {
		t.Errorf("Session = %+v, want slot 1 session-2", s)
	}
}

func TestPlaybackWithCounter(t *testing.T) {
	mem := slotImage(8, []store.Entry{
		{Key: 4, DownDelay: 2},
		{Key: 5, DownDelay: 0},
		{Key: 6, DownDelay: 0},
	})
	table, err := store.NewTable(mem, 0, 8)
	if err != nil {
		t.Fatal(err)
	}
	counter := timer.NewCounter8()
	sink := &recordSink{}

	p, err := NewPlayer(table, sink, counter)
	if err != nil {
		t.Fatalf("NewPlayer: %v", err)
	}
	p.Init()
	p.Start(0)

	if !counter.Running() {
		t.Fatal("counter should run while a delay is pending")
	}

	period := timer.CyclesPerOverflow(DefaultPrescaler, DefaultReload)
	counter.Advance(period * uint64(2*DefaultTicksPer100ms-1))
	p.PollFrame()
	if len(sink.keys) != 1 {
		t.Fatalf("keys after 199ms = %v, want 1 key", sink.keys)
	}

	counter.Advance(period)
	p.PollFrame()
	if want := []uint8{4, 5, 6}; !keysEqual(sink.keys, want) {
		t.Errorf("keys = %v, want %v", sink.keys, want)
	}
	if p.IsActive() || counter.Running() {
		t.Error("session and counter should be stopped")
	}
}

// ==================== Cancel / Hooks ====================

func TestCancel(t *testing.T) {
	mem := slotImage(4, []store.Entry{{Key: 4, DownDelay: 1}, {Key: 5}})

	var reason EndReason
	f := newFixture(t, 4, mem, WithHooks(Hooks{
		OnFinish: func(_ Session, r EndReason) { reason = r },
	}))

	if f.player.Cancel() {
		t.Error("Cancel with no session should return false")
	}

	f.player.Start(0)
	if !f.player.Cancel() {
		t.Fatal("Cancel should end the active session")
	}
	if f.player.IsActive() || reason != EndCancelled {
		t.Errorf("active=%v reason=%v, want inactive cancelled", f.player.IsActive(), reason)
	}
	if f.timer.prescaler != timer.Stopped {
		t.Error("Cancel should stop the timer")
	}

	f.timer.fire(1000)
	f.player.PollFrame()
	if want := []uint8{4}; !keysEqual(f.sink.keys, want) {
		t.Errorf("keys = %v, want %v", f.sink.keys, want)
	}
}

func TestHooksOrder(t *testing.T) {
	mem := slotImage(4, []store.Entry{{Key: 4}, {Key: 5}})

	var events []string
	sink := &recordSink{}
	table, _ := store.NewTable(mem, 0, 4)
	p, err := NewPlayer(table, sinkFunc(func(k uint8) bool {
		events = append(events, fmt.Sprintf("key %d", k))
		return sink.Push(k)
	}), &fakeTimer{}, WithHooks(Hooks{
		OnStart: func(s Session) {
			events = append(events, fmt.Sprintf("start %d active=%v", s.Slot, s.Active))
		},
		OnFinish: func(s Session, r EndReason) {
			events = append(events, fmt.Sprintf("finish %v keys=%d active=%v", r, s.Keys, s.Active))
		},
	}))
	if err != nil {
		t.Fatal(err)
	}
	p.Init()
	p.Start(0)

	want := []string{
		"start 0 active=true",
		"key 4",
		"key 5",
		"finish exhausted keys=2 active=false",
	}
	if fmt.Sprint(events) != fmt.Sprint(want) {
		t.Errorf("events = %q, want %q", events, want)
	}
}

type sinkFunc func(uint8) bool

func (f sinkFunc) Push(k uint8) bool { return f(k) }

func TestDroppedKeysCounted(t *testing.T) {
	mem := slotImage(8, []store.Entry{{Key: 4}, {Key: 5}, {Key: 6}})
	f := newFixture(t, 8, mem)
	f.sink.limit = 1

	f.player.Start(0)

	s := f.player.Session()
	if s.Keys != 1 || s.Dropped != 2 {
		t.Errorf("Keys=%d Dropped=%d, want 1 and 2", s.Keys, s.Dropped)
	}
}

// ==================== Construction ====================

func TestNewPlayerValidation(t *testing.T) {
	table, _ := store.NewTable(store.Memory{}, 0, 4)

	tests := []struct {
		name  string
		table *store.Table
		sink  KeySink
		tmr   timer.Timer
		opts  []Option
		want  error
	}{
		{"nil table", nil, &recordSink{}, &fakeTimer{}, nil, ErrNilTable},
		{"nil sink", table, nil, &fakeTimer{}, nil, ErrNilSink},
		{"nil timer", table, &recordSink{}, nil, nil, ErrNilTimer},
		{"zero ticks", table, &recordSink{}, &fakeTimer{}, []Option{WithTicksPer100ms(0)}, ErrInvalidTicks},
		{"stopped prescaler", table, &recordSink{}, &fakeTimer{}, []Option{WithPrescaler(timer.Stopped)}, ErrTimerStopped},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewPlayer(tt.table, tt.sink, tt.tmr, tt.opts...)
			if !errors.Is(err, tt.want) {
				t.Errorf("NewPlayer() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestInitStopsTimer(t *testing.T) {
	f := newFixture(t, 4, store.Memory{})

	if f.timer.inits != 1 {
		t.Errorf("timer Init calls = %d, want 1", f.timer.inits)
	}
	if f.timer.overflow == nil {
		t.Error("Init should attach the overflow callback")
	}
	if f.timer.prescaler != timer.Stopped {
		t.Errorf("prescaler after Init = %v, want stopped", f.timer.prescaler)
	}
}

func TestEndReasonString(t *testing.T) {
	tests := []struct {
		r    EndReason
		want string
	}{
		{EndNone, "running"},
		{EndTerminator, "terminator"},
		{EndExhausted, "exhausted"},
		{EndCancelled, "cancelled"},
		{EndReason(9), "EndReason(9)"},
	}
	for _, tt := range tests {
		if got := tt.r.String(); got != tt.want {
			t.Errorf("EndReason(%d).String() = %q, want %q", int(tt.r), got, tt.want)
		}
	}
}
