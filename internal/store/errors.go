package store

import (
	"errors"
	"fmt"
)

// Errors returned by store operations.
var (
	// ErrInvalidSlotSize indicates a slot size that is zero, negative or odd.
	ErrInvalidSlotSize = errors.New("invalid slot size")

	// ErrInvalidBase indicates a negative base address.
	ErrInvalidBase = errors.New("invalid base address")

	// ErrUnsupportedFormat indicates a file extension the loader does not know.
	ErrUnsupportedFormat = errors.New("unsupported image format")

	// ErrSlotOverflow indicates a definition whose entries do not fit a slot.
	ErrSlotOverflow = errors.New("slot overflow")

	// ErrDuplicateSlot indicates the same slot defined twice.
	ErrDuplicateSlot = errors.New("duplicate slot")
)

// DefinitionError describes an invalid macro definition.
type DefinitionError struct {
	// Path is the definition file, or "<reader>".
	Path string
	// Slot is the slot being encoded, -1 if not slot specific.
	Slot int
	// Entry is the entry position within the slot, -1 if not entry specific.
	Entry int
	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *DefinitionError) Error() string {
	src := "definition"
	if e.Path != "" {
		src = "definition " + e.Path
	}
	switch {
	case e.Slot >= 0 && e.Entry >= 0:
		return fmt.Sprintf("%s: slot %d entry %d: %v", src, e.Slot, e.Entry, e.Err)
	case e.Slot >= 0:
		return fmt.Sprintf("%s: slot %d: %v", src, e.Slot, e.Err)
	default:
		return fmt.Sprintf("%s: %v", src, e.Err)
	}
}

// Unwrap returns the underlying error.
func (e *DefinitionError) Unwrap() error {
	return e.Err
}
