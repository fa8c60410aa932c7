// Package hostkbd turns host terminal key events into PS/2 scancode set 1
// byte streams, so a simulated keyboard controller can be driven from a
// real keyboard.
package hostkbd

import (
	"errors"
	"sync"

	"github.com/gdamore/tcell/v2"

	"github.com/dshills/ttycore/internal/input/scancode"
)

// ErrUnmapped is returned for keys with no set 1 scancode.
var ErrUnmapped = errors.New("key has no scancode")

// Keypad navigation codes. Without num lock they carry no character.
const (
	codeHome     byte = 0x47
	codeUp       byte = 0x48
	codePageUp   byte = 0x49
	codeLeft     byte = 0x4B
	codeRight    byte = 0x4D
	codeEnd      byte = 0x4F
	codeDown     byte = 0x50
	codePageDown byte = 0x51
	codeInsert   byte = 0x52
	codeDelete   byte = 0x53
)

var namedKeys = map[tcell.Key]byte{
	tcell.KeyEnter:      scancode.CodeEnter,
	tcell.KeyTab:        scancode.CodeTab,
	tcell.KeyBackspace:  scancode.CodeBackspace,
	tcell.KeyBackspace2: scancode.CodeBackspace,
	tcell.KeyEscape:     scancode.CodeEscape,
	tcell.KeyF11:        scancode.CodeF11,
	tcell.KeyF12:        scancode.CodeF12,
	tcell.KeyHome:       codeHome,
	tcell.KeyUp:         codeUp,
	tcell.KeyPgUp:       codePageUp,
	tcell.KeyLeft:       codeLeft,
	tcell.KeyRight:      codeRight,
	tcell.KeyEnd:        codeEnd,
	tcell.KeyDown:       codeDown,
	tcell.KeyPgDn:       codePageDown,
	tcell.KeyInsert:     codeInsert,
	tcell.KeyDelete:     codeDelete,
}

// Translate returns the make and break codes for ev, wrapped in the make
// and break codes of its modifiers.
func Translate(ev *tcell.EventKey) ([]byte, error) {
	code, shift, ctrl, err := keyCode(ev)
	if err != nil {
		return nil, err
	}
	mods := ev.Modifiers()
	if mods&tcell.ModCtrl != 0 {
		ctrl = true
	}

	var held []byte
	if ctrl {
		held = append(held, scancode.CodeCtrl)
	}
	if mods&tcell.ModAlt != 0 {
		held = append(held, scancode.CodeAlt)
	}
	if shift {
		held = append(held, scancode.CodeLeftShift)
	}

	seq := make([]byte, 0, 2*len(held)+2)
	seq = append(seq, held...)
	seq = append(seq, code, code|scancode.ReleaseBit)
	for i := len(held) - 1; i >= 0; i-- {
		seq = append(seq, held[i]|scancode.ReleaseBit)
	}
	return seq, nil
}

func keyCode(ev *tcell.EventKey) (code byte, shift, ctrl bool, err error) {
	k := ev.Key()
	if c, ok := namedKeys[k]; ok {
		return c, false, false, nil
	}
	switch {
	case k == tcell.KeyRune:
		r := ev.Rune()
		if r < 0x20 || r > 0x7E {
			return 0, false, false, ErrUnmapped
		}
		c, shift, ok := scancode.Encode(byte(r))
		if !ok {
			return 0, false, false, ErrUnmapped
		}
		return c, shift, false, nil
	case k >= tcell.KeyF1 && k <= tcell.KeyF10:
		return scancode.CodeF1 + byte(k-tcell.KeyF1), false, false, nil
	case k >= tcell.KeyCtrlA && k <= tcell.KeyCtrlZ:
		c, _, ok := scancode.Encode(byte('a' + (k - tcell.KeyCtrlA)))
		if !ok {
			return 0, false, false, ErrUnmapped
		}
		return c, false, true, nil
	}
	return 0, false, false, ErrUnmapped
}

// Injector accepts raw scancodes.
type Injector interface {
	InjectScancodes(codes ...byte) error
}

// Stats counts bridged keys.
type Stats struct {
	Keys     uint64
	Codes    uint64
	Unmapped uint64
}

// Bridge forwards host key events to an Injector.
type Bridge struct {
	mu    sync.Mutex
	dst   Injector
	stats Stats
}

// NewBridge creates a bridge feeding dst.
func NewBridge(dst Injector) *Bridge {
	return &Bridge{dst: dst}
}

// HandleEvent translates and injects ev. Unmapped keys are counted and
// reported with ErrUnmapped.
func (b *Bridge) HandleEvent(ev *tcell.EventKey) error {
	seq, err := Translate(ev)
	b.mu.Lock()
	if err != nil {
		b.stats.Unmapped++
		b.mu.Unlock()
		return err
	}
	b.stats.Keys++
	b.stats.Codes += uint64(len(seq))
	b.mu.Unlock()
	return b.dst.InjectScancodes(seq...)
}

// Stats returns the bridge counters.
func (b *Bridge) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stats
}
