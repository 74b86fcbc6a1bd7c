package keymap

import (
	"strconv"
	"strings"
)

// Named key indices (USB HID keyboard usage page).
const (
	A Index = 0x04 + iota
	B
	C
	D
	E
	F
	G
	H
	I
	J
	K
	L
	M
	N
	O
	P
	Q
	R
	S
	T
	U
	V
	W
	X
	Y
	Z
	Digit1
	Digit2
	Digit3
	Digit4
	Digit5
	Digit6
	Digit7
	Digit8
	Digit9
	Digit0
	Enter
	Escape
	Backspace
	Tab
	Space
	Minus
	Equal
	LeftBracket
	RightBracket
	Backslash
	NonUSHash
	Semicolon
	Quote
	Grave
	Comma
	Period
	Slash
	CapsLock
	F1
	F2
	F3
	F4
	F5
	F6
	F7
	F8
	F9
	F10
	F11
	F12
	PrintScreen
	ScrollLock
	Pause
	Insert
	Home
	PageUp
	Delete
	End
	PageDown
	Right
	Left
	Down
	Up
	NumLock
)

// Modifier key indices.
const (
	LeftCtrl Index = 0xE0 + iota
	LeftShift
	LeftAlt
	LeftGUI
	RightCtrl
	RightShift
	RightAlt
	RightGUI
)

var names = map[Index]string{
	Enter:        "Enter",
	Escape:       "Escape",
	Backspace:    "Backspace",
	Tab:          "Tab",
	Space:        "Space",
	Minus:        "Minus",
	Equal:        "Equal",
	LeftBracket:  "LeftBracket",
	RightBracket: "RightBracket",
	Backslash:    "Backslash",
	NonUSHash:    "NonUSHash",
	Semicolon:    "Semicolon",
	Quote:        "Quote",
	Grave:        "Grave",
	Comma:        "Comma",
	Period:       "Period",
	Slash:        "Slash",
	CapsLock:     "CapsLock",
	PrintScreen:  "PrintScreen",
	ScrollLock:   "ScrollLock",
	Pause:        "Pause",
	Insert:       "Insert",
	Home:         "Home",
	PageUp:       "PageUp",
	Delete:       "Delete",
	End:          "End",
	PageDown:     "PageDown",
	Right:        "Right",
	Left:         "Left",
	Down:         "Down",
	Up:           "Up",
	NumLock:      "NumLock",
	LeftCtrl:     "LCtrl",
	LeftShift:    "LShift",
	LeftAlt:      "LAlt",
	LeftGUI:      "LGui",
	RightCtrl:    "RCtrl",
	RightShift:   "RShift",
	RightAlt:     "RAlt",
	RightGUI:     "RGui",
}

// byName maps lowercase names and aliases to indices.
var byName = map[string]Index{}

func init() {
	for i := A; i <= Z; i++ {
		names[i] = string(rune('A' + int(i-A)))
	}
	for i := Digit1; i <= Digit9; i++ {
		names[i] = strconv.Itoa(int(i-Digit1) + 1)
	}
	names[Digit0] = "0"
	for i := F1; i <= F12; i++ {
		names[i] = "F" + strconv.Itoa(int(i-F1)+1)
	}

	for idx, name := range names {
		byName[strings.ToLower(name)] = idx
	}

	aliases := map[string]Index{
		"return": Enter,
		"esc":    Escape,
		"bs":     Backspace,
		"del":    Delete,
		"ins":    Insert,
		"pgup":   PageUp,
		"pgdn":   PageDown,
		"ctrl":   LeftCtrl,
		"shift":  LeftShift,
		"alt":    LeftAlt,
		"gui":    LeftGUI,
		"cmd":    LeftGUI,
		"win":    LeftGUI,
	}
	for i := Digit1; i <= Digit0; i++ {
		aliases["digit"+names[i]] = i
	}
	for name, idx := range aliases {
		byName[name] = idx
	}
}
