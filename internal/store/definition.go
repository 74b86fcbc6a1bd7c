package store

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/dshills/keymacro/internal/keymap"
)

// MaxDelay is the largest delay an entry can carry, in 100 ms units.
const MaxDelay = int(DelayMask)

// Definition errors.
var (
	ErrDelayRange       = errors.New("delay out of range")
	ErrNegativeSlot     = errors.New("negative slot index")
	ErrSlotSizeMismatch = errors.New("slot size mismatch")
)

// Definition is a human-editable description of a macro region.
//
// Example (YAML):
//
//	slot_size: 16
//	slots:
//	  - slot: 0
//	    name: greeting
//	    entries:
//	      - {key: H}
//	      - {key: I, delay: 5}
type Definition struct {
	SlotSize int       `yaml:"slot_size" toml:"slot_size"`
	Base     int       `yaml:"base" toml:"base"`
	Slots    []SlotDef `yaml:"slots" toml:"slots"`
}

// SlotDef describes one slot.
type SlotDef struct {
	Slot    int        `yaml:"slot" toml:"slot"`
	Name    string     `yaml:"name,omitempty" toml:"name,omitempty"`
	Entries []EntryDef `yaml:"entries" toml:"entries"`
}

// EntryDef describes one entry. Key is parsed with keymap.Parse.
type EntryDef struct {
	Key   string `yaml:"key" toml:"key"`
	Delay int    `yaml:"delay,omitempty" toml:"delay,omitempty"`
	Down  bool   `yaml:"down,omitempty" toml:"down,omitempty"`
}

// ParseDefinition decodes a definition. The format is chosen from the
// extension of name (.yaml, .yml or .toml).
func ParseDefinition(name string, r io.Reader) (*Definition, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading definition %s: %w", name, err)
	}

	var def Definition
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&def); err != nil && !errors.Is(err, io.EOF) {
			return nil, &DefinitionError{Path: name, Slot: -1, Entry: -1, Err: err}
		}
	case ".toml":
		if err := toml.Unmarshal(data, &def); err != nil {
			return nil, &DefinitionError{Path: name, Slot: -1, Entry: -1, Err: err}
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, name)
	}
	return &def, nil
}

// IsDefinitionFile reports whether path has a definition extension.
func IsDefinitionFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", ".toml":
		return true
	}
	return false
}

// Build encodes the definition into a store image. slotSize is used when
// the definition leaves slot_size unset; a conflicting value is an error.
// Unused bytes stay erased. Slots shorter than the record end with a
// terminator entry.
func (d *Definition) Build(slotSize int) (Memory, error) {
	if d.SlotSize != 0 {
		if slotSize != 0 && d.SlotSize != slotSize {
			return nil, fmt.Errorf("%w: definition %d, configured %d", ErrSlotSizeMismatch, d.SlotSize, slotSize)
		}
		slotSize = d.SlotSize
	}
	table, err := NewTable(nil, d.Base, slotSize)
	if err != nil {
		return nil, err
	}

	last := -1
	seen := make(map[int]bool, len(d.Slots))
	for _, s := range d.Slots {
		if s.Slot < 0 {
			return nil, &DefinitionError{Slot: s.Slot, Entry: -1, Err: ErrNegativeSlot}
		}
		if seen[s.Slot] {
			return nil, &DefinitionError{Slot: s.Slot, Entry: -1, Err: ErrDuplicateSlot}
		}
		seen[s.Slot] = true
		if s.Slot > last {
			last = s.Slot
		}
	}

	mem := NewErased(table.Addr(last+1, 0))
	for _, s := range d.Slots {
		if err := encodeSlot(mem, table, s); err != nil {
			return nil, err
		}
	}
	return mem, nil
}

func encodeSlot(mem Memory, t *Table, s SlotDef) error {
	if len(s.Entries)*EntrySize > t.SlotSize() {
		return &DefinitionError{
			Slot:  s.Slot,
			Entry: -1,
			Err:   fmt.Errorf("%w: %d entries, room for %d", ErrSlotOverflow, len(s.Entries), t.EntriesPerSlot()),
		}
	}

	off := 0
	for i, e := range s.Entries {
		key, err := keymap.Parse(e.Key)
		if err != nil {
			return &DefinitionError{Slot: s.Slot, Entry: i, Err: err}
		}
		if e.Delay < 0 || e.Delay > MaxDelay {
			return &DefinitionError{Slot: s.Slot, Entry: i, Err: fmt.Errorf("%w: %d", ErrDelayRange, e.Delay)}
		}

		dd := uint8(e.Delay)
		if e.Down {
			dd |= DownFlag
		}
		addr := t.Addr(s.Slot, off)
		mem[addr] = uint8(key)
		mem[addr+1] = dd
		off += EntrySize
	}

	if off < t.SlotSize() {
		addr := t.Addr(s.Slot, off)
		mem[addr] = KeyTerminator
		mem[addr+1] = 0
	}
	return nil
}
