package store

import "fmt"

// Erased is the value read from unprogrammed storage.
const Erased uint8 = 0xFF

// Entry field encoding.
const (
	// KeyAbsent is the reserved key index 0.
	KeyAbsent uint8 = 0
	// KeyTerminator ends a macro and marks an empty slot.
	KeyTerminator uint8 = 255
	// DelayMask selects the delay bits of the down/delay byte.
	DelayMask uint8 = 0x7F
	// DownFlag is the reserved is-down bit of the down/delay byte.
	DownFlag uint8 = 0x80
	// EntrySize is the number of bytes per entry.
	EntrySize = 2
)

// Store is a read-only, byte-addressable memory region.
type Store interface {
	// ByteAt returns the byte at addr. Reads never fail.
	ByteAt(addr int) uint8
}

// Memory is an in-memory Store. Reads outside the slice return Erased.
type Memory []byte

// ByteAt implements Store.
func (m Memory) ByteAt(addr int) uint8 {
	if addr < 0 || addr >= len(m) {
		return Erased
	}
	return m[addr]
}

// NewErased returns a Memory of size bytes filled with Erased.
func NewErased(size int) Memory {
	m := make(Memory, size)
	for i := range m {
		m[i] = Erased
	}
	return m
}

// Entry is one decoded (key index, down/delay) pair.
type Entry struct {
	Key       uint8
	DownDelay uint8
}

// Valid reports whether the key index is a real key (1-254).
func (e Entry) Valid() bool {
	return e.Key != KeyAbsent && e.Key != KeyTerminator
}

// Delay returns the delay in 100 ms units (0-127).
func (e Entry) Delay() uint8 {
	return e.DownDelay & DelayMask
}

// IsDown returns the reserved is-down bit. Playback does not use it.
func (e Entry) IsDown() bool {
	return e.DownDelay&DownFlag != 0
}

// String returns a compact representation for logs.
func (e Entry) String() string {
	return fmt.Sprintf("{key=%d delay=%d down=%t}", e.Key, e.Delay(), e.IsDown())
}

// Table lays fixed-size macro slots over a Store.
type Table struct {
	store    Store
	base     int
	slotSize int
}

// NewTable creates a Table with slots of slotSize bytes starting at base.
// slotSize must be positive and even so entries never straddle two slots.
func NewTable(s Store, base, slotSize int) (*Table, error) {
	if slotSize < EntrySize || slotSize%EntrySize != 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSlotSize, slotSize)
	}
	if base < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidBase, base)
	}
	return &Table{store: s, base: base, slotSize: slotSize}, nil
}

// SlotSize returns the record size in bytes.
func (t *Table) SlotSize() int {
	return t.slotSize
}

// EntriesPerSlot returns how many entries fit in one slot.
func (t *Table) EntriesPerSlot() int {
	return t.slotSize / EntrySize
}

// Addr returns the absolute address of offset within slot.
func (t *Table) Addr(slot, offset int) int {
	return t.base + slot*t.slotSize + offset
}

// Entry reads the entry at byte offset within slot.
// Slots outside the backing store read as erased.
func (t *Table) Entry(slot, offset int) Entry {
	if slot < 0 {
		return Entry{Key: Erased, DownDelay: Erased}
	}
	addr := t.Addr(slot, offset)
	return Entry{
		Key:       t.store.ByteAt(addr),
		DownDelay: t.store.ByteAt(addr + 1),
	}
}

// FirstKey returns the first key byte of slot.
func (t *Table) FirstKey(slot int) uint8 {
	if slot < 0 {
		return Erased
	}
	return t.store.ByteAt(t.Addr(slot, 0))
}

// Programmed reports whether slot starts with a valid key.
func (t *Table) Programmed(slot int) bool {
	k := t.FirstKey(slot)
	return k != KeyAbsent && k != KeyTerminator
}

// Entries decodes slot up to its terminator or the end of the record.
// The result does not include the terminator.
func (t *Table) Entries(slot int) []Entry {
	var out []Entry
	for off := 0; off < t.slotSize; off += EntrySize {
		e := t.Entry(slot, off)
		if !e.Valid() {
			break
		}
		out = append(out, e)
	}
	return out
}
