package scancode

import "strings"

// ModifierSet is the set of modifier keys and lock states in effect.
type ModifierSet uint16

const (
	// ModNone indicates no modifiers.
	ModNone ModifierSet = 0

	// LeftShift indicates the left Shift key.
	LeftShift ModifierSet = 1 << (iota - 1)

	// RightShift indicates the right Shift key.
	RightShift

	// LeftCtrl indicates the left Control key.
	LeftCtrl

	// RightCtrl indicates the right Control key.
	RightCtrl

	// LeftAlt indicates the left Alt key.
	LeftAlt

	// RightAlt indicates the right Alt key (AltGr).
	RightAlt

	// CapsLock indicates caps lock is on.
	CapsLock

	// NumLock indicates num lock is on.
	NumLock

	// ScrollLock indicates scroll lock is on.
	ScrollLock
)

// Keyboard LED bits, as sent with the set-LEDs command.
const (
	LEDScrollLock byte = 0x01
	LEDNumLock    byte = 0x02
	LEDCapsLock   byte = 0x04
)

// Has returns true if m contains all of mod.
func (m ModifierSet) Has(mod ModifierSet) bool {
	return m&mod == mod && mod != ModNone
}

// With returns m with mod added.
func (m ModifierSet) With(mod ModifierSet) ModifierSet {
	return m | mod
}

// Without returns m with mod removed.
func (m ModifierSet) Without(mod ModifierSet) ModifierSet {
	return m &^ mod
}

// IsEmpty returns true if no modifiers are set.
func (m ModifierSet) IsEmpty() bool {
	return m == ModNone
}

// Shift returns true if either Shift key is held.
func (m ModifierSet) Shift() bool {
	return m&(LeftShift|RightShift) != 0
}

// Ctrl returns true if either Control key is held.
func (m ModifierSet) Ctrl() bool {
	return m&(LeftCtrl|RightCtrl) != 0
}

// Alt returns true if either Alt key is held.
func (m ModifierSet) Alt() bool {
	return m&(LeftAlt|RightAlt) != 0
}

// LEDs returns the LED byte matching the lock states in m.
func (m ModifierSet) LEDs() byte {
	var leds byte
	if m.Has(ScrollLock) {
		leds |= LEDScrollLock
	}
	if m.Has(NumLock) {
		leds |= LEDNumLock
	}
	if m.Has(CapsLock) {
		leds |= LEDCapsLock
	}
	return leds
}

var modifierNames = []struct {
	mod  ModifierSet
	name string
}{
	{LeftCtrl, "LCtrl"},
	{RightCtrl, "RCtrl"},
	{LeftAlt, "LAlt"},
	{RightAlt, "RAlt"},
	{LeftShift, "LShift"},
	{RightShift, "RShift"},
	{CapsLock, "Caps"},
	{NumLock, "Num"},
	{ScrollLock, "Scroll"},
}

// String returns a representation like "LCtrl+LShift+Caps".
func (m ModifierSet) String() string {
	if m == ModNone {
		return ""
	}
	var parts []string
	for _, n := range modifierNames {
		if m.Has(n.mod) {
			parts = append(parts, n.name)
		}
	}
	return strings.Join(parts, "+")
}
