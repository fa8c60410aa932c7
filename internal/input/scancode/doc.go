// Package scancode translates PC scancode set 1 into ASCII.
//
// A scancode byte carries a make/break flag in its high bit and a key number
// in the low seven bits. Translate maps a key number plus the current
// ModifierSet to an ASCII byte (0 when the key has no printable meaning).
// Tracker maintains the ModifierSet from the stream of decoded scancodes:
// shift, ctrl and alt follow the key state, while caps, num and scroll lock
// toggle on every press.
package scancode
