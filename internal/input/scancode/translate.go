package scancode

// State is the make/break state of a key.
type State uint8

const (
	// Pressed is a make code.
	Pressed State = iota
	// Released is a break code.
	Released
)

// String returns the state name.
func (s State) String() string {
	if s == Released {
		return "released"
	}
	return "pressed"
}

// Decode splits a raw scancode byte into its key number and state.
func Decode(raw byte) (code byte, state State) {
	if raw&ReleaseBit != 0 {
		return raw &^ ReleaseBit, Released
	}
	return raw, Pressed
}

// Translate returns the ASCII byte for key number code under mods, or 0.
//
// Either shift key selects the shifted table. Caps lock then inverts the
// case of letters only, so shift with caps lock yields lowercase. Num lock
// overrides the keypad navigation keys with digits regardless of shift.
func Translate(code byte, mods ModifierSet) byte {
	if code >= 128 {
		return 0
	}

	var ch byte
	if mods.Shift() {
		ch = shifted[code]
	} else {
		ch = unshifted[code]
	}

	if mods.Has(CapsLock) {
		switch {
		case ch >= 'a' && ch <= 'z':
			ch -= 'a' - 'A'
		case ch >= 'A' && ch <= 'Z':
			ch += 'a' - 'A'
		}
	}

	if mods.Has(NumLock) {
		if d, ok := numpad[code]; ok {
			ch = d
		}
	}
	return ch
}

// IsExtended reports whether code is one of the keys that may arrive with
// an 0xE0 prefix.
func IsExtended(code byte) bool {
	for _, c := range extended {
		if c == code {
			return true
		}
	}
	return false
}

// Encode returns the key number that produces ch and whether shift must be
// held. Main-block keys are preferred over keypad keys.
func Encode(ch byte) (code byte, shift bool, ok bool) {
	ref, ok := reverse[ch]
	return ref.code, ref.shift, ok
}

// Tracker maintains the modifier state from a stream of decoded scancodes.
// It is not safe for concurrent use.
type Tracker struct {
	mods ModifierSet
}

// NewTracker creates a tracker starting from initial.
func NewTracker(initial ModifierSet) *Tracker {
	return &Tracker{mods: initial}
}

// Modifiers returns the current modifier set.
func (t *Tracker) Modifiers() ModifierSet {
	return t.mods
}

// Set replaces the modifier set.
func (t *Tracker) Set(mods ModifierSet) {
	t.mods = mods
}

// Update applies one decoded scancode and reports whether a lock state
// toggled. Lock keys toggle on every press, including auto-repeat.
func (t *Tracker) Update(code byte, state State) (toggled bool) {
	pressed := state == Pressed
	switch code {
	case CodeLeftShift:
		t.level(LeftShift, pressed)
	case CodeRightShift:
		t.level(RightShift, pressed)
	case CodeCtrl:
		t.level(LeftCtrl, pressed)
	case CodeAlt:
		t.level(LeftAlt, pressed)
	case CodeCapsLock:
		return t.toggle(CapsLock, pressed)
	case CodeNumLock:
		return t.toggle(NumLock, pressed)
	case CodeScrollLock:
		return t.toggle(ScrollLock, pressed)
	}
	return false
}

func (t *Tracker) level(mod ModifierSet, pressed bool) {
	if pressed {
		t.mods = t.mods.With(mod)
	} else {
		t.mods = t.mods.Without(mod)
	}
}

func (t *Tracker) toggle(mod ModifierSet, pressed bool) bool {
	if !pressed {
		return false
	}
	t.mods ^= mod
	return true
}
