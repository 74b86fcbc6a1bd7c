package store

import (
	"errors"
	"testing"
)

func TestMemoryByteAt(t *testing.T) {
	m := Memory{1, 2, 3}

	tests := []struct {
		addr int
		want uint8
	}{
		{0, 1},
		{2, 3},
		{3, Erased},
		{100, Erased},
		{-1, Erased},
	}

	for _, tt := range tests {
		if got := m.ByteAt(tt.addr); got != tt.want {
			t.Errorf("ByteAt(%d) = %d, want %d", tt.addr, got, tt.want)
		}
	}
}

func TestNewErased(t *testing.T) {
	m := NewErased(8)
	if len(m) != 8 {
		t.Fatalf("len = %d, want 8", len(m))
	}
	for i, b := range m {
		if b != Erased {
			t.Errorf("m[%d] = %#x, want %#x", i, b, Erased)
		}
	}
}

func TestEntryFields(t *testing.T) {
	tests := []struct {
		name   string
		entry  Entry
		valid  bool
		delay  uint8
		isDown bool
	}{
		{"plain", Entry{Key: 4, DownDelay: 0}, true, 0, false},
		{"delay", Entry{Key: 4, DownDelay: 5}, true, 5, false},
		{"down flag", Entry{Key: 4, DownDelay: 0x85}, true, 5, true},
		{"max delay", Entry{Key: 254, DownDelay: 0x7F}, true, 127, false},
		{"absent", Entry{Key: 0, DownDelay: 3}, false, 3, false},
		{"terminator", Entry{Key: 255, DownDelay: 0xFF}, false, 127, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.entry.Valid(); got != tt.valid {
				t.Errorf("Valid() = %v, want %v", got, tt.valid)
			}
			if got := tt.entry.Delay(); got != tt.delay {
				t.Errorf("Delay() = %d, want %d", got, tt.delay)
			}
			if got := tt.entry.IsDown(); got != tt.isDown {
				t.Errorf("IsDown() = %v, want %v", got, tt.isDown)
			}
		})
	}
}

func TestNewTableValidation(t *testing.T) {
	tests := []struct {
		base, size int
		want       error
	}{
		{0, 0, ErrInvalidSlotSize},
		{0, -2, ErrInvalidSlotSize},
		{0, 7, ErrInvalidSlotSize},
		{-1, 8, ErrInvalidBase},
		{0, 2, nil},
		{16, 120, nil},
	}

	for _, tt := range tests {
		_, err := NewTable(Memory{}, tt.base, tt.size)
		if !errors.Is(err, tt.want) {
			t.Errorf("NewTable(base=%d, size=%d) error = %v, want %v", tt.base, tt.size, err, tt.want)
		}
	}
}

func TestTableAddressing(t *testing.T) {
	// Two slots of 4 bytes after a 2-byte header.
	mem := Memory{
		0xAA, 0xBB,
		10, 0, 11, 3,
		255, 0, 0, 0,
	}
	table, err := NewTable(mem, 2, 4)
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}

	if got := table.Addr(1, 2); got != 8 {
		t.Errorf("Addr(1, 2) = %d, want 8", got)
	}
	if got := table.Entry(0, 2); got != (Entry{Key: 11, DownDelay: 3}) {
		t.Errorf("Entry(0, 2) = %v, want {11 3}", got)
	}
	if got := table.FirstKey(1); got != 255 {
		t.Errorf("FirstKey(1) = %d, want 255", got)
	}
	if got := table.FirstKey(5); got != Erased {
		t.Errorf("FirstKey(5) = %d, want erased", got)
	}
	if got := table.FirstKey(-1); got != Erased {
		t.Errorf("FirstKey(-1) = %d, want erased", got)
	}
	if table.EntriesPerSlot() != 2 {
		t.Errorf("EntriesPerSlot() = %d, want 2", table.EntriesPerSlot())
	}
}

func TestTableProgrammed(t *testing.T) {
	mem := Memory{0, 0, 255, 0, 1, 0, 254, 0}
	table, err := NewTable(mem, 0, 2)
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}

	want := []bool{false, false, true, true, false}
	for slot, w := range want {
		if got := table.Programmed(slot); got != w {
			t.Errorf("Programmed(%d) = %v, want %v", slot, got, w)
		}
	}
}

func TestTableEntries(t *testing.T) {
	mem := Memory{
		4, 0, 5, 2, 255, 0, 6, 0,
		7, 0, 8, 0, 9, 0, 10, 1,
	}
	table, err := NewTable(mem, 0, 8)
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}

	if got := table.Entries(0); len(got) != 2 {
		t.Errorf("Entries(0) returned %d entries, want 2", len(got))
	}
	got := table.Entries(1)
	if len(got) != 4 {
		t.Fatalf("Entries(1) returned %d entries, want 4", len(got))
	}
	if got[3].Delay() != 1 {
		t.Errorf("Entries(1)[3].Delay() = %d, want 1", got[3].Delay())
	}
	if got := table.Entries(2); len(got) != 0 {
		t.Errorf("Entries(2) on erased slot returned %d entries, want 0", len(got))
	}
}
