package tty

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/smallnest/ringbuffer"

	"github.com/dshills/ttycore/internal/input/keyboard"
)

// Flow control characters.
const (
	charXON  byte = 0x11
	charXOFF byte = 0x13
	charDEL  byte = 0x7F
)

// Read copies up to len(p) bytes of pending input into p. It never
// blocks: with no input it returns 0.
func (m *Manager) Read(minor int, p []byte) (int, error) {
	if len(p) == 0 {
		return 0, ErrInvalidArgument
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	d, err := m.readyLocked(minor)
	if err != nil {
		return 0, err
	}
	n, err := d.input.Read(p)
	if err != nil && !errors.Is(err, ringbuffer.ErrIsEmpty) {
		return n, err
	}
	d.stats.BytesRead += uint64(n)
	return n, nil
}

// Write sends p through output processing one byte at a time. On failure
// it returns the number of bytes accepted before the failing byte.
func (m *Manager) Write(minor int, p []byte) (int, error) {
	if len(p) == 0 {
		return 0, ErrInvalidArgument
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	d, err := m.readyLocked(minor)
	if err != nil {
		return 0, err
	}
	for i, b := range p {
		if err := m.outputLocked(d, b); err != nil {
			return i, err
		}
	}
	return len(p), nil
}

// PutChar writes a single byte.
func (m *Manager) PutChar(minor int, ch byte) error {
	_, err := m.Write(minor, []byte{ch})
	return err
}

// Printf writes formatted output.
func (m *Manager) Printf(minor int, format string, args ...any) (int, error) {
	s := fmt.Sprintf(format, args...)
	if s == "" {
		return 0, nil
	}
	return m.Write(minor, []byte(s))
}

// InputChar feeds one character to the device's line discipline.
func (m *Manager) InputChar(minor int, ch byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	d, err := m.readyLocked(minor)
	if err != nil {
		return err
	}
	m.inputLocked(d, ch)
	return nil
}

// HandleKey delivers pressed keys that carry a character to the
// foreground device. Ctrl with a letter produces the control character.
func (m *Manager) HandleKey(ev keyboard.Event) {
	if !ev.Pressed() || ev.ASCII == 0 {
		return
	}
	ch := ev.ASCII
	if ev.Modifiers.Ctrl() {
		ch = controlChar(ch)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.validMinor(m.current) {
		return
	}
	d := m.devices[m.current]
	if d == nil || d.state != StateReady {
		return
	}
	m.inputLocked(d, ch)
}

func (m *Manager) readyLocked(minor int) (*Device, error) {
	d, err := m.lookupLocked(minor)
	if err != nil {
		return nil, err
	}
	if d.state != StateReady {
		return nil, fmt.Errorf("%s is %s: %w", d.name, d.state, ErrNotReady)
	}
	return d, nil
}

func (m *Manager) inputLocked(d *Device, ch byte) {
	d.stats.CharactersProcessed++

	if d.config.FlowControl {
		switch ch {
		case charXOFF:
			d.stopped = true
			return
		case charXON:
			d.stopped = false
			if err := m.drainOutputLocked(d); err != nil {
				m.logger.WithError(err).WithField("tty", d.name).Warn("output drain failed")
			}
			return
		}
	}

	if d.mode == ModeRaw {
		m.queueInputLocked(d, ch)
		return
	}

	if d.config.Signals {
		if sig, ok := signalFor(ch); ok {
			m.signalLocked(d, sig, ch)
			return
		}
	}

	if !d.config.Canonical {
		m.queueInputLocked(d, ch)
		m.echoLocked(d, ch)
		return
	}

	switch ch {
	case '\r', '\n':
		m.echoNewlineLocked(d)
		for _, c := range d.line {
			m.queueInputLocked(d, c)
		}
		m.queueInputLocked(d, '\n')
		d.line = d.line[:0]
		d.stats.LinesProcessed++
	case '\b', charDEL:
		if len(d.line) > 0 {
			d.line = d.line[:len(d.line)-1]
			m.echoLocked(d, '\b', ' ', '\b')
		}
	default:
		if len(d.line) < m.maxLineLength-1 {
			d.line = append(d.line, ch)
			m.echoLocked(d, ch)
		}
	}
}

func (m *Manager) signalLocked(d *Device, sig Signal, ch byte) {
	d.line = d.line[:0]
	m.echoLocked(d, '^', ch+'@')
	m.echoNewlineLocked(d)
	m.logger.WithFields(logrus.Fields{"tty": d.name, "signal": sig.String()}).Debug("tty signal")
	if m.signals != nil {
		m.signals.HandleSignal(d.minor, sig)
	}
}

func (m *Manager) queueInputLocked(d *Device, ch byte) {
	if err := d.input.WriteByte(ch); err != nil {
		d.stats.InputDropped++
	}
}

func (m *Manager) echoLocked(d *Device, chars ...byte) {
	if !d.config.Echo {
		return
	}
	for _, c := range chars {
		if err := m.outputLocked(d, c); err != nil {
			return
		}
	}
}

// echoNewlineLocked echoes a line end as CR LF. With CR-LF translation on,
// output processing supplies the CR.
func (m *Manager) echoNewlineLocked(d *Device) {
	if d.config.CRLF {
		m.echoLocked(d, '\n')
	} else {
		m.echoLocked(d, '\r', '\n')
	}
}

func (m *Manager) writeStringLocked(d *Device, s string) {
	for i := 0; i < len(s); i++ {
		if err := m.outputLocked(d, s[i]); err != nil {
			return
		}
	}
}

// outputLocked accepts one output byte. While stopped by flow control the
// byte is held in the output buffer.
func (m *Manager) outputLocked(d *Device, b byte) error {
	if d.stopped {
		if err := d.output.WriteByte(b); err != nil {
			return fmt.Errorf("%s: %w", d.name, ErrWouldBlock)
		}
		d.stats.BytesWritten++
		return nil
	}
	d.stats.BytesWritten++
	return m.processOutputLocked(d, b)
}

func (m *Manager) drainOutputLocked(d *Device) error {
	for !d.stopped {
		b, err := d.output.ReadByte()
		if err != nil {
			return nil
		}
		if err := m.processOutputLocked(d, b); err != nil {
			return err
		}
	}
	return nil
}

func (m *Manager) processOutputLocked(d *Device, b byte) error {
	if d.config.CRLF && b == '\n' {
		if err := m.emitLocked(d, '\r'); err != nil {
			return err
		}
	}
	if d.config.TabExpand && b == '\t' {
		for n := TabWidth - d.cursor.X%TabWidth; n > 0; n-- {
			if err := m.emitLocked(d, ' '); err != nil {
				return err
			}
		}
		return nil
	}
	return m.emitLocked(d, b)
}

func (m *Manager) emitLocked(d *Device, b byte) error {
	pos, err := d.backend.Put(d, b)
	if err != nil {
		d.state = StateError
		m.logger.WithError(err).WithField("tty", d.name).Warn("tty backend failed")
		return fmt.Errorf("%s: %w", d.name, err)
	}
	d.cursor = pos
	return nil
}

func signalFor(ch byte) (Signal, bool) {
	switch ch {
	case 0x03:
		return SignalInterrupt, true
	case 0x1C:
		return SignalQuit, true
	case 0x1A:
		return SignalSuspend, true
	}
	return 0, false
}

func controlChar(ch byte) byte {
	switch {
	case ch >= 'a' && ch <= 'z', ch >= 'A' && ch <= 'Z':
		return ch & 0x1F
	case ch == '[', ch == '\\', ch == ']':
		return ch & 0x1F
	}
	return ch
}
