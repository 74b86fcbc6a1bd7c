package macro

import (
	"fmt"
	"sync/atomic"
	"time"
)

// EndReason describes why a session ended.
type EndReason int

const (
	// EndNone means the session is still running.
	EndNone EndReason = iota
	// EndTerminator means a key index of 0 or 255 was read.
	EndTerminator
	// EndExhausted means the cursor reached the end of the slot.
	EndExhausted
	// EndCancelled means Cancel was called.
	EndCancelled
)

// String returns the reason name.
func (r EndReason) String() string {
	switch r {
	case EndNone:
		return "running"
	case EndTerminator:
		return "terminator"
	case EndExhausted:
		return "exhausted"
	case EndCancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("EndReason(%d)", int(r))
	}
}

// Session is a snapshot of playback state.
type Session struct {
	// ID identifies the session in logs and traces.
	ID string
	// Slot is the macro slot being played.
	Slot int
	// Cursor is the byte offset of the next entry within the slot.
	Cursor int
	// PendingDelayTicks is the delay window armed by the last entry.
	PendingDelayTicks int
	// ElapsedTicks counts ticks since the last decode.
	ElapsedTicks int
	// Active is true while the session is running.
	Active bool
	// Keys is the number of keys accepted by the sink.
	Keys int
	// Dropped is the number of keys the sink rejected.
	Dropped int
	// StartedAt is when Start opened the session.
	StartedAt time.Time
}

// session is the live playback record owned by a Player.
//
// elapsed is written by the tick context and the decoder; active is read by
// the tick context. Everything else belongs to the main loop.
type session struct {
	active  atomic.Bool
	elapsed atomic.Int64

	id        string
	slot      int
	cursor    int
	pending   int
	keys      int
	dropped   int
	startedAt time.Time
}

func (s *session) reset(id string, slot int, now time.Time) {
	s.id = id
	s.slot = slot
	s.cursor = 0
	s.pending = 0
	s.keys = 0
	s.dropped = 0
	s.startedAt = now
	s.elapsed.Store(0)
}

func (s *session) snapshot() Session {
	return Session{
		ID:                s.id,
		Slot:              s.slot,
		Cursor:            s.cursor,
		PendingDelayTicks: s.pending,
		ElapsedTicks:      int(s.elapsed.Load()),
		Active:            s.active.Load(),
		Keys:              s.keys,
		Dropped:           s.dropped,
		StartedAt:         s.startedAt,
	}
}
