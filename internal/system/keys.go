package system

import (
	"github.com/dshills/ttycore/internal/input/keyboard"
	"github.com/dshills/ttycore/internal/input/scancode"
	"github.com/dshills/ttycore/internal/terminal"
)

// MaxSwitchKeys is the number of Alt+F<n> terminal switch keys.
const MaxSwitchKeys = 8

// handleKey runs in interrupt context. Alt+F1..F8 switch to the terminal
// in that slot; everything else goes to the current TTY.
func (s *System) handleKey(ev keyboard.Event) {
	if n, ok := switchKey(ev); ok {
		if err := s.SwitchTo(n); err != nil {
			s.logger.WithError(err).WithField("slot", n).Debug("terminal switch ignored")
		}
		return
	}
	s.ttys.HandleKey(ev)
}

func switchKey(ev keyboard.Event) (int, bool) {
	if !ev.Pressed() || !ev.Modifiers.Alt() {
		return 0, false
	}
	if ev.Scancode < scancode.CodeF1 || ev.Scancode >= scancode.CodeF1+MaxSwitchKeys {
		return 0, false
	}
	return int(ev.Scancode - scancode.CodeF1), true
}

// SwitchTo makes the terminal in slot n (in List order) active and
// focused.
func (s *System) SwitchTo(n int) error {
	list := s.terminals.List()
	if n < 0 || n >= len(list) {
		return terminal.ErrNotFound
	}
	t := s.terminals.FindByID(list[n].ID)
	if t == nil {
		return terminal.ErrNotFound
	}
	return s.terminals.SwitchTo(t)
}
