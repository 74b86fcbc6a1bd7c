// Package keymap names the key indices carried by macro entries.
//
// A key index is the one-byte identifier stored in a macro slot. Indices
// follow the USB HID keyboard usage table, so index 4 is A, 40 is Enter and
// 224-231 are the modifier keys. Index 0 and 255 are never valid keys: they
// terminate a macro.
//
// The package is used for display (monitor, trace, logs) and for resolving
// key names written in macro definition files.
package keymap
