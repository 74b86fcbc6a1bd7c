package keymap

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Index is a one-byte key identifier as stored in a macro entry.
type Index uint8

const (
	// None is the reserved "absent" index.
	None Index = 0
	// Terminator marks the end of a macro and an empty slot.
	Terminator Index = 255
)

// Parse errors.
var (
	ErrEmptyName   = errors.New("empty key name")
	ErrUnknownName = errors.New("unknown key name")
	ErrReserved    = errors.New("reserved key index")
)

// Valid reports whether i identifies a real key (1-254).
func (i Index) Valid() bool {
	return i != None && i != Terminator
}

// String returns the key name, or K<n> for indices without a name.
func (i Index) String() string {
	if name, ok := names[i]; ok {
		return name
	}
	return fmt.Sprintf("K%d", uint8(i))
}

// Name returns the display name for a raw key byte.
func Name(b uint8) string {
	return Index(b).String()
}

// Lookup resolves a key name (case-insensitive) to its index.
func Lookup(name string) (Index, bool) {
	idx, ok := byName[strings.ToLower(strings.TrimSpace(name))]
	return idx, ok
}

// Parse resolves a key name or number into a valid index.
//
// Supported forms:
//   - Key names: "A", "enter", "LShift", "F5"
//   - Fallback names produced by String: "K200"
//   - Hex or multi-digit numbers: "0x28", "200"
//
// Names win over numbers, so "4" is the 4 key (index 33), not index 4.
func Parse(spec string) (Index, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return None, ErrEmptyName
	}

	if idx, ok := Lookup(spec); ok {
		return idx, nil
	}

	num := spec
	if len(num) > 1 && (num[0] == 'K' || num[0] == 'k') {
		num = num[1:]
	}
	n, err := strconv.ParseUint(num, 0, 8)
	if err != nil {
		return None, fmt.Errorf("%w: %q", ErrUnknownName, spec)
	}

	idx := Index(n)
	if !idx.Valid() {
		return None, fmt.Errorf("%w: %d", ErrReserved, n)
	}
	return idx, nil
}
