// Package store provides read-only access to the macro region of
// persistent storage.
//
// The region is a sequence of fixed-size records, one per macro slot.
// Slot i occupies bytes [base+i*SlotSize, base+(i+1)*SlotSize). Each slot is
// a list of two-byte entries:
//
//	byte 0: key index   (0 = absent, 255 = terminator, 1-254 = key)
//	byte 1: down/delay  (bit 7 = reserved "is-down" flag,
//	                     bits 6-0 = delay in 100 ms units)
//
// A Store is the raw byte-addressable memory; a Table lays the slot
// convention over it and hands out typed entries so callers never do the
// address arithmetic themselves.
//
// Images can be loaded from raw binary files or built from YAML/TOML macro
// definitions. A Reloader swaps the image in place when its file changes on
// disk.
package store
