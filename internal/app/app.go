// Package app wires the macro player to its collaborators and runs the
// firmware main loop: an emulated timer driven from wall time, the output
// key queue, and the outputs that observe playback.
package app

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dshills/keymacro/internal/config"
	"github.com/dshills/keymacro/internal/keymap"
	"github.com/dshills/keymacro/internal/keyqueue"
	"github.com/dshills/keymacro/internal/macro"
	"github.com/dshills/keymacro/internal/store"
	"github.com/dshills/keymacro/internal/timer"
)

// Application is the firmware main loop around a macro.Player.
//
// Trigger, Cancel and Frame belong to the main loop and must be called from
// one goroutine. The emulated timer may run on another (see Run).
type Application struct {
	cfg     config.Config
	log     *Logger
	metrics *Metrics

	store    store.Store
	reloader *store.Reloader
	table    *store.Table
	counter  *timer.Counter8
	clock    *timer.Clock
	queue    *keyqueue.Queue
	player   *macro.Player

	outputs []Output
	current macro.Session
	pending []Event
	now     func() time.Time

	running atomic.Bool
}

// Option configures an Application.
type Option func(*Application)

// WithLogger sets the logger. The default discards output.
func WithLogger(l *Logger) Option {
	return func(app *Application) {
		if l != nil {
			app.log = l
		}
	}
}

// WithOutput adds an output that receives every playback event.
func WithOutput(out Output) Option {
	return func(app *Application) {
		if out != nil {
			app.outputs = append(app.outputs, out)
		}
	}
}

// WithStore plays from s instead of loading the configured image.
func WithStore(s store.Store) Option {
	return func(app *Application) {
		app.store = s
	}
}

// WithMetrics sets the metrics tracker.
func WithMetrics(m *Metrics) Option {
	return func(app *Application) {
		if m != nil {
			app.metrics = m
		}
	}
}

// New creates an Application from a validated configuration.
func New(cfg config.Config, opts ...Option) (*Application, error) {
	app := &Application{
		cfg:     cfg,
		log:     NullLogger,
		metrics: NewMetrics(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(app)
	}

	if err := app.bootstrap(); err != nil {
		if app.reloader != nil {
			app.reloader.Close()
		}
		return nil, err
	}
	return app, nil
}

// bootstrap initializes all components in dependency order.
func (app *Application) bootstrap() error {
	// 1. Macro store
	if err := app.openStore(); err != nil {
		return err
	}

	// 2. Slot table
	table, err := store.NewTable(app.store, app.cfg.Store.Base, app.cfg.Store.SlotSize)
	if err != nil {
		return &InitError{Component: "table", Err: err}
	}
	app.table = table

	// 3. Output queue
	app.queue = keyqueue.New(app.cfg.Queue.Capacity)

	// 4. Timer and player
	app.counter = timer.NewCounter8()
	app.player, err = macro.NewPlayer(table, app.queue, app.counter,
		macro.WithTicksPer100ms(app.cfg.TicksPer100ms()),
		macro.WithReload(uint8(app.cfg.Timer.Reload)),
		macro.WithPrescaler(app.cfg.Prescaler()),
		macro.WithHooks(macro.Hooks{
			OnStart:  app.sessionStarted,
			OnFinish: app.sessionFinished,
		}),
	)
	if err != nil {
		return &InitError{Component: "player", Err: err}
	}
	app.player.Init()

	// 5. Wall clock for the timer
	app.clock, err = timer.NewClock(app.counter, uint64(app.cfg.Timer.ClockHz), app.cfg.Resolution())
	if err != nil {
		return &InitError{Component: "clock", Err: err}
	}

	app.log.WithComponent("app").Debug("ready: %d slots of %d bytes, %d ticks per 100ms",
		app.cfg.Store.Slots, app.cfg.Store.SlotSize, app.player.TicksPer100ms())
	return nil
}

func (app *Application) openStore() error {
	if app.store != nil {
		return nil
	}

	path := app.cfg.Store.Image
	if path == "" {
		return &InitError{Component: "store", Err: ErrNoImage}
	}

	if app.cfg.Store.Watch {
		r, err := store.NewReloader(path, app.cfg.Store.SlotSize)
		if err != nil {
			return NewOperationError("load", path, err)
		}
		app.reloader = r
		app.store = r
		return nil
	}

	mem, err := store.LoadImage(path, app.cfg.Store.SlotSize)
	if err != nil {
		return NewOperationError("load", path, err)
	}
	app.store = mem
	return nil
}

// Trigger asks for playback of slot, like a macro key press. It reports
// whether a session started. Triggers are dropped while a session is
// active, and unprogrammed or out-of-range slots are ignored.
func (app *Application) Trigger(slot int) bool {
	log := app.log.WithComponent("player").WithField("slot", slot)

	if slot < 0 || slot >= app.cfg.Store.Slots {
		log.Warn("trigger ignored: %v", ErrInvalidSlot)
		return false
	}
	if app.player.IsActive() {
		app.metrics.RecordTriggerDropped()
		log.Debug("trigger dropped: session %s active", app.current.ID)
		return false
	}
	if !app.player.HasMacroAt(slot) {
		log.Debug("trigger ignored: slot empty")
		return false
	}

	app.player.Start(slot)
	app.flush()
	return true
}

// Cancel stops the active session. It reports false if none was running.
func (app *Application) Cancel() bool {
	if !app.player.Cancel() {
		return false
	}
	app.flush()
	return true
}

// Frame runs one main loop iteration: poll the player, then deliver queued
// keys and finished sessions to the outputs.
func (app *Application) Frame() {
	start := app.now()
	app.player.PollFrame()
	app.flush()
	app.metrics.RecordFrame(app.now().Sub(start))
}

// Request is a main loop command sent to Run.
type Request struct {
	// Cancel stops the active session instead of triggering Slot.
	Cancel bool
	// Slot is the macro slot to trigger.
	Slot int
	// Started, if non-nil, receives the result of the trigger or cancel.
	// It must have room for one value; Run never blocks on it.
	Started chan<- bool
}

// TriggerRequest returns a request that triggers slot.
func TriggerRequest(slot int) Request { return Request{Slot: slot} }

// CancelRequest returns a request that cancels the active session.
func CancelRequest() Request { return Request{Cancel: true} }

// Run drives the timer from wall time and runs the main loop until ctx is
// cancelled. Requests are handled between frames; a closed requests channel
// is ignored. An active session is cancelled on return.
func (app *Application) Run(ctx context.Context, requests <-chan Request) error {
	if !app.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer app.running.Store(false)

	log := app.log.WithComponent("app")

	if app.reloader != nil {
		if err := app.reloader.Watch(app.imageReloaded); err != nil {
			return NewOperationError("watch", app.reloader.Path(), err)
		}
		log.Info("watching %s", app.reloader.Path())
	}

	clockCtx, stopClock := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = app.clock.Run(clockCtx)
	}()

	frames := time.NewTicker(app.cfg.FrameInterval())
	defer frames.Stop()

	log.Info("main loop started")
	for {
		select {
		case <-ctx.Done():
			stopClock()
			wg.Wait()
			app.Cancel()
			log.Info("main loop stopped")
			return nil

		case req, ok := <-requests:
			if !ok {
				requests = nil
				continue
			}
			if req.Cancel {
				ok = app.Cancel()
			} else {
				ok = app.Trigger(req.Slot)
			}
			if req.Started != nil {
				select {
				case req.Started <- ok:
				default:
				}
			}

		case <-frames.C:
			app.Frame()
		}
	}
}

// IsRunning returns true while Run is executing.
func (app *Application) IsRunning() bool {
	return app.running.Load()
}

// Close releases the store watcher.
func (app *Application) Close() error {
	if app.reloader != nil {
		return app.reloader.Close()
	}
	return nil
}

// SlotInfo describes one slot for listings.
type SlotInfo struct {
	Slot       int
	Programmed bool
	// Entries up to and excluding the terminator.
	Entries []store.Entry
}

// Slots describes every configured slot.
func (app *Application) Slots() []SlotInfo {
	out := make([]SlotInfo, 0, app.cfg.Store.Slots)
	for i := 0; i < app.cfg.Store.Slots; i++ {
		out = append(out, SlotInfo{
			Slot:       i,
			Programmed: app.player.HasMacroAt(i),
			Entries:    app.table.Entries(i),
		})
	}
	return out
}

// Player returns the macro player.
func (app *Application) Player() *macro.Player { return app.player }

// Counter returns the emulated playback timer.
func (app *Application) Counter() *timer.Counter8 { return app.counter }

// Queue returns the output key queue.
func (app *Application) Queue() *keyqueue.Queue { return app.queue }

// Table returns the slot table.
func (app *Application) Table() *store.Table { return app.table }

// Config returns the configuration the application was built with.
func (app *Application) Config() config.Config { return app.cfg }

// Logger returns the application's logger.
func (app *Application) Logger() *Logger { return app.log }

// Metrics returns the application's metrics.
func (app *Application) Metrics() *Metrics { return app.metrics }

func (app *Application) sessionStarted(s macro.Session) {
	app.current = s
	if app.reloader != nil {
		app.reloader.Hold()
	}
	app.metrics.RecordSessionStarted()
	app.log.WithComponent("player").WithFields(map[string]any{
		"session": s.ID,
		"slot":    s.Slot,
	}).Info("session started")
	app.emit(Event{Kind: EventSessionStarted, Session: s})
}

// sessionFinished defers the event until the session's keys are drained.
func (app *Application) sessionFinished(s macro.Session, reason macro.EndReason) {
	app.current = s
	if app.reloader != nil && app.reloader.Release() {
		app.log.WithComponent("store").WithField("path", app.reloader.Path()).Info("staged image applied")
	}
	app.metrics.RecordSessionFinished(reason == macro.EndCancelled)
	if s.Dropped > 0 {
		app.metrics.RecordKeysDropped(s.Dropped)
	}

	log := app.log.WithComponent("player").WithFields(map[string]any{
		"session": s.ID,
		"slot":    s.Slot,
		"keys":    s.Keys,
	})
	if s.Dropped > 0 {
		log.Warn("session %s: %d keys dropped, queue full", reason, s.Dropped)
	} else {
		log.Info("session %s", reason)
	}
	app.pending = append(app.pending, Event{Kind: EventSessionFinished, Session: s, Reason: reason})
}

func (app *Application) flush() {
	keys := app.queue.Drain()
	for _, k := range keys {
		app.emit(Event{Kind: EventKey, Session: app.current, Key: keymap.Index(k)})
	}
	app.metrics.RecordKeys(len(keys))

	pending := app.pending
	app.pending = nil
	for _, ev := range pending {
		app.emit(ev)
	}
}

func (app *Application) emit(ev Event) {
	ev.Time = app.now()
	for _, out := range app.outputs {
		out.Emit(ev)
	}
}

func (app *Application) imageReloaded(err error) {
	app.metrics.RecordReload(err)
	log := app.log.WithComponent("store").WithField("path", app.reloader.Path())
	if err != nil {
		log.Error("reload failed, keeping previous image: %v", err)
		return
	}
	if app.reloader.Pending() {
		log.Info("image reloaded (%d), applied when the session ends", app.reloader.Reloads())
		return
	}
	log.Info("image reloaded (%d)", app.reloader.Reloads())
}

// InitError represents an initialization error.
type InitError struct {
	Component string
	Err       error
}

func (e *InitError) Error() string {
	return "init " + e.Component + ": " + e.Err.Error()
}

func (e *InitError) Unwrap() error {
	return e.Err
}

// Is matches ErrInitialization.
func (e *InitError) Is(target error) bool {
	return target == ErrInitialization
}
