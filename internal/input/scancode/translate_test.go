package scancode

import "testing"

func TestTranslate(t *testing.T) {
	tests := []struct {
		name string
		code byte
		mods ModifierSet
		want byte
	}{
		{"plain a", 0x1E, ModNone, 'a'},
		{"shift a", 0x1E, LeftShift, 'A'},
		{"right shift a", 0x1E, RightShift, 'A'},
		{"caps a", 0x1E, CapsLock, 'A'},
		{"shift caps a", 0x1E, LeftShift | CapsLock, 'a'},
		{"caps digit", 0x02, CapsLock, '1'},
		{"shift digit", 0x02, LeftShift, '!'},
		{"enter", 0x1C, ModNone, '\n'},
		{"backspace", 0x0E, ModNone, '\b'},
		{"tab", 0x0F, ModNone, '\t'},
		{"space", 0x39, ModNone, ' '},
		{"keypad home no numlock", 0x47, ModNone, 0},
		{"keypad home numlock", 0x47, NumLock, '7'},
		{"keypad del numlock", 0x53, NumLock, '.'},
		{"keypad insert numlock shifted", 0x52, NumLock | LeftShift, '0'},
		// Keypad '-', '5' and '+' follow the hardware codes 0x4A, 0x4C
		// and 0x4E, not 0x50, 0x52 and 0x54 where Down, Insert and SysRq
		// live.
		{"keypad 5", 0x4C, ModNone, '5'},
		{"keypad minus", 0x4A, ModNone, '-'},
		{"keypad plus", 0x4E, ModNone, '+'},
		{"shift keypad plus", 0x4E, LeftShift, '+'},
		{"down arrow", 0x50, ModNone, 0},
		{"insert", 0x52, ModNone, 0},
		{"sysrq", 0x54, ModNone, 0},
		{"keypad 2 numlock", 0x50, NumLock, '2'},
		{"escape", 0x01, ModNone, 0},
		{"function key", 0x3B, ModNone, 0},
		{"out of range", 0x80, ModNone, 0},
		{"max", 0xFF, LeftShift, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Translate(tt.code, tt.mods); got != tt.want {
				t.Errorf("Translate(%#x, %v) = %q, want %q", tt.code, tt.mods, got, tt.want)
			}
		})
	}
}

func TestTranslateLettersCaseInvert(t *testing.T) {
	for code := byte(0); code < 128; code++ {
		plain := Translate(code, ModNone)
		if plain < 'a' || plain > 'z' {
			continue
		}
		if got := Translate(code, CapsLock); got != plain-32 {
			t.Errorf("caps %#x: got %q", code, got)
		}
		if got := Translate(code, CapsLock|LeftShift); got != plain {
			t.Errorf("caps+shift %#x: got %q", code, got)
		}
	}
}

func TestDecode(t *testing.T) {
	code, state := Decode(0x1E)
	if code != 0x1E || state != Pressed {
		t.Errorf("Decode(0x1E) = %#x, %v", code, state)
	}
	code, state = Decode(0x9E)
	if code != 0x1E || state != Released {
		t.Errorf("Decode(0x9E) = %#x, %v", code, state)
	}
}

func TestIsExtended(t *testing.T) {
	for _, c := range []byte{0x1C, 0x1D, 0x35, 0x37, 0x38, 0x46, 0x47, 0x48, 0x49, 0x4B, 0x4D, 0x4F, 0x50, 0x51, 0x52, 0x53} {
		if !IsExtended(c) {
			t.Errorf("expected %#x to be extended", c)
		}
	}
	for _, c := range []byte{0x00, 0x1E, 0x2A, 0x4A, 0x4C, 0x4E, 0x54} {
		if IsExtended(c) {
			t.Errorf("expected %#x not to be extended", c)
		}
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	for ch := byte(0x20); ch < 0x7F; ch++ {
		code, shift, ok := Encode(ch)
		if !ok {
			t.Errorf("no key for %q", ch)
			continue
		}
		var mods ModifierSet
		if shift {
			mods = LeftShift
		}
		if got := Translate(code, mods); got != ch {
			t.Errorf("Encode(%q) = %#x shift=%v, translates back to %q", ch, code, shift, got)
		}
	}
}

func TestEncodePrefersMainBlock(t *testing.T) {
	code, shift, _ := Encode('5')
	if code != 0x06 || shift {
		t.Errorf("expected main row 5, got %#x shift=%v", code, shift)
	}
}

func TestTrackerLevelModifiers(t *testing.T) {
	tr := NewTracker(ModNone)

	tr.Update(CodeLeftShift, Pressed)
	if !tr.Modifiers().Has(LeftShift) {
		t.Error("expected left shift held")
	}
	tr.Update(CodeRightShift, Pressed)
	tr.Update(CodeLeftShift, Released)
	if !tr.Modifiers().Shift() {
		t.Error("expected right shift still held")
	}
	tr.Update(CodeRightShift, Released)
	if tr.Modifiers().Shift() {
		t.Error("expected no shift")
	}

	tr.Update(CodeCtrl, Pressed)
	tr.Update(CodeAlt, Pressed)
	if !tr.Modifiers().Ctrl() || !tr.Modifiers().Alt() {
		t.Error("expected ctrl and alt held")
	}
}

func TestTrackerLockToggles(t *testing.T) {
	tr := NewTracker(ModNone)

	if !tr.Update(CodeCapsLock, Pressed) {
		t.Error("expected toggle on press")
	}
	if tr.Update(CodeCapsLock, Released) {
		t.Error("release must not toggle")
	}
	if !tr.Modifiers().Has(CapsLock) {
		t.Fatal("expected caps lock on")
	}

	// Auto-repeat sends another press and toggles back off.
	tr.Update(CodeCapsLock, Pressed)
	if tr.Modifiers().Has(CapsLock) {
		t.Error("expected caps lock off after repeat")
	}

	tr.Update(CodeNumLock, Pressed)
	tr.Update(CodeScrollLock, Pressed)
	if got := tr.Modifiers().LEDs(); got != LEDNumLock|LEDScrollLock {
		t.Errorf("expected LEDs %#x, got %#x", LEDNumLock|LEDScrollLock, got)
	}
}

func TestModifierSetString(t *testing.T) {
	tests := []struct {
		mods ModifierSet
		want string
	}{
		{ModNone, ""},
		{LeftShift, "LShift"},
		{LeftCtrl | LeftShift, "LCtrl+LShift"},
		{CapsLock | NumLock, "Caps+Num"},
	}
	for _, tt := range tests {
		if got := tt.mods.String(); got != tt.want {
			t.Errorf("String(%d) = %q, want %q", tt.mods, got, tt.want)
		}
	}
}
