package macro

import "github.com/dshills/keymacro/internal/store"

// KeySink receives decoded key indices.
type KeySink interface {
	// Push queues key. It returns false if the key was dropped.
	Push(key uint8) bool
}

// Decoder walks the entries of a slot and pushes keys to a sink.
type Decoder struct {
	table         *store.Table
	sink          KeySink
	ticksPer100ms int
}

// NewDecoder creates a decoder reading table and writing to sink.
// Delays are converted to ticks at ticksPer100ms ticks per unit.
func NewDecoder(table *store.Table, sink KeySink, ticksPer100ms int) *Decoder {
	return &Decoder{
		table:         table,
		sink:          sink,
		ticksPer100ms: ticksPer100ms,
	}
}

// Advance decodes entries from the session cursor until an entry asks for
// a delay or the macro ends. It returns EndNone when a delay was armed,
// otherwise why the macro ended. Every call starts a new delay window.
func (d *Decoder) Advance(s *session) EndReason {
	s.elapsed.Store(0)
	s.pending = 0

	size := d.table.SlotSize()
	for {
		if s.cursor >= size {
			return EndExhausted
		}

		e := d.table.Entry(s.slot, s.cursor)
		s.cursor += store.EntrySize

		if !e.Valid() {
			return EndTerminator
		}

		if d.sink.Push(e.Key) {
			s.keys++
		} else {
			s.dropped++
		}

		// The is-down bit is reserved; every entry is a plain key event.
		if delay := int(e.Delay()); delay > 0 {
			s.pending = delay * d.ticksPer100ms
			return EndNone
		}
	}
}
