package keyboard

import (
	"fmt"

	"github.com/dshills/ttycore/internal/input/scancode"
)

// Event is one decoded key transition.
type Event struct {
	// Scancode is the key number with the release bit stripped.
	Scancode byte

	// ASCII is the translated character, or 0 if the key has none.
	ASCII byte

	// State is Pressed or Released.
	State scancode.State

	// Modifiers is the modifier state before this key was applied.
	Modifiers scancode.ModifierSet
}

// Pressed returns true for make events.
func (e Event) Pressed() bool {
	return e.State == scancode.Pressed
}

// Printable returns true if the event carries a character.
func (e Event) Printable() bool {
	return e.ASCII != 0
}

// String returns a debug representation of the event.
func (e Event) String() string {
	if e.ASCII >= 0x20 && e.ASCII < 0x7F {
		return fmt.Sprintf("%#02x %s %q %s", e.Scancode, e.State, e.ASCII, e.Modifiers)
	}
	return fmt.Sprintf("%#02x %s %#02x %s", e.Scancode, e.State, e.ASCII, e.Modifiers)
}

// Handler receives every event before it is queued. It runs in interrupt
// context and must not block.
type Handler interface {
	HandleKey(ev Event)
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ev Event)

// HandleKey calls f.
func (f HandlerFunc) HandleKey(ev Event) { f(ev) }
