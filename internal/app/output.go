package app

import (
	"sync"
	"time"

	"github.com/dshills/keymacro/internal/keymap"
	"github.com/dshills/keymacro/internal/macro"
)

// EventKind identifies a playback event.
type EventKind int

const (
	// EventSessionStarted is emitted when a trigger opens a session.
	EventSessionStarted EventKind = iota
	// EventKey is emitted for every key drained from the output queue.
	EventKey
	// EventSessionFinished is emitted after the last key of a session.
	EventSessionFinished
)

// String returns the event kind name used in traces.
func (k EventKind) String() string {
	switch k {
	case EventSessionStarted:
		return "session_started"
	case EventKey:
		return "key"
	case EventSessionFinished:
		return "session_finished"
	default:
		return "unknown"
	}
}

// Event is one observable playback step.
type Event struct {
	Kind EventKind
	// Session is the session snapshot the event belongs to.
	Session macro.Session
	// Key is set for EventKey.
	Key keymap.Index
	// Reason is set for EventSessionFinished.
	Reason macro.EndReason
	// Time is when the event was emitted.
	Time time.Time
}

// Output receives playback events from the main loop. Emit is called from
// the goroutine driving Trigger and Frame, in order.
type Output interface {
	Emit(ev Event)
}

// OutputFunc adapts a function to Output.
type OutputFunc func(ev Event)

// Emit calls f(ev).
func (f OutputFunc) Emit(ev Event) { f(ev) }

// Recorder is an Output that keeps every event in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// Emit records ev.
func (r *Recorder) Emit(ev Event) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Keys returns the recorded key events in order.
func (r *Recorder) Keys() []keymap.Index {
	r.mu.Lock()
	defer r.mu.Unlock()
	var keys []keymap.Index
	for _, ev := range r.events {
		if ev.Kind == EventKey {
			keys = append(keys, ev.Key)
		}
	}
	return keys
}

// Reset discards the recorded events.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.events = nil
	r.mu.Unlock()
}
