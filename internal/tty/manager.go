package tty

import (
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/smallnest/ringbuffer"

	"github.com/dshills/ttycore/internal/display"
	"github.com/dshills/ttycore/internal/logging"
)

// Signal is a job-control character recognised by the line discipline.
type Signal int

const (
	SignalInterrupt Signal = iota
	SignalQuit
	SignalSuspend
)

// String returns the conventional signal name.
func (s Signal) String() string {
	switch s {
	case SignalInterrupt:
		return "SIGINT"
	case SignalQuit:
		return "SIGQUIT"
	case SignalSuspend:
		return "SIGTSTP"
	default:
		return fmt.Sprintf("Signal(%d)", int(s))
	}
}

// SignalHandler receives signals generated by device input. It is called
// with the manager locked and must not call back into it.
type SignalHandler interface {
	HandleSignal(minor int, sig Signal)
}

// SignalHandlerFunc adapts a function to SignalHandler.
type SignalHandlerFunc func(minor int, sig Signal)

// HandleSignal calls f.
func (f SignalHandlerFunc) HandleSignal(minor int, sig Signal) { f(minor, sig) }

// Manager owns the device table. It is safe for concurrent use.
type Manager struct {
	mu      sync.Mutex
	devices []*Device
	current int

	bufferSize    int
	maxLineLength int
	defaults      Config
	fg, bg        display.Color
	banner        string
	signals       SignalHandler
	logger        *logrus.Entry
}

// Option configures a Manager.
type Option func(*Manager)

// WithMaxDevices sets the size of the device table.
func WithMaxDevices(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.devices = make([]*Device, n)
		}
	}
}

// WithBufferSize sets the input and output buffer capacity.
func WithBufferSize(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.bufferSize = n
		}
	}
}

// WithMaxLineLength sets the cooked-mode line buffer size. A line holds
// at most n-1 characters.
func WithMaxLineLength(n int) Option {
	return func(m *Manager) {
		if n > 1 {
			m.maxLineLength = n
		}
	}
}

// WithDefaultConfig sets the discipline flags of new devices.
func WithDefaultConfig(cfg Config) Option {
	return func(m *Manager) { m.defaults = cfg }
}

// WithDefaultColors sets the colors of new devices.
func WithDefaultColors(fg, bg display.Color) Option {
	return func(m *Manager) { m.fg, m.bg = fg, bg }
}

// WithBanner sets a message printed when the foreground device is opened.
// The format receives the device name.
func WithBanner(format string) Option {
	return func(m *Manager) { m.banner = format }
}

// WithSignalHandler sets the receiver of input-generated signals.
func WithSignalHandler(h SignalHandler) Option {
	return func(m *Manager) { m.signals = h }
}

// WithLogger sets the manager logger.
func WithLogger(l *logrus.Entry) Option {
	return func(m *Manager) { m.logger = l }
}

// NewManager creates an empty device table.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		devices:       make([]*Device, DefaultMaxDevices),
		current:       -1,
		bufferSize:    DefaultBufferSize,
		maxLineLength: DefaultMaxLineLength,
		defaults:      DefaultConfig(),
		fg:            display.DefaultForeground,
		bg:            display.DefaultBackground,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.logger == nil {
		m.logger = logging.Discard()
	}
	return m
}

// MaxDevices returns the size of the device table.
func (m *Manager) MaxDevices() int {
	return len(m.devices)
}

// Register creates a Closed device at minor rendered by backend. The first
// device registered becomes the foreground device. Names longer than
// MaxNameLength-1 bytes are truncated.
func (m *Manager) Register(name string, minor int, backend Backend) error {
	if name == "" || backend == nil {
		return ErrInvalidArgument
	}
	if len(name) > MaxNameLength-1 {
		name = name[:MaxNameLength-1]
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.validMinor(minor) {
		return fmt.Errorf("register minor %d: %w", minor, ErrInvalidArgument)
	}
	if d := m.devices[minor]; d != nil {
		if d.state != StateClosed {
			return fmt.Errorf("register %s: %w", name, ErrBusy)
		}
		return fmt.Errorf("register %s: %w", name, ErrExists)
	}

	d := &Device{
		name:          name,
		minor:         minor,
		state:         StateClosed,
		mode:          ModeCooked,
		config:        m.defaults,
		backend:       backend,
		line:          make([]byte, 0, m.maxLineLength),
		input:         ringbuffer.New(m.bufferSize),
		output:        ringbuffer.New(m.bufferSize),
		fg:            m.fg,
		bg:            m.bg,
		cursorVisible: true,
	}
	if m.current < 0 {
		m.current = minor
		d.current = true
	}
	m.devices[minor] = d
	m.logger.WithFields(logrus.Fields{"tty": name, "minor": minor, "kind": backend.Kind()}).Debug("tty registered")
	return nil
}

// Unregister removes a Closed device.
func (m *Manager) Unregister(minor int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	d, err := m.lookupLocked(minor)
	if err != nil {
		return err
	}
	if d.state != StateClosed {
		return fmt.Errorf("unregister %s: %w", d.name, ErrBusy)
	}
	d.backend.Release(d)
	m.devices[minor] = nil
	if m.current == minor {
		m.current = -1
	}
	m.logger.WithField("tty", d.name).Debug("tty unregistered")
	return nil
}

// Open opens a Closed device. The device becomes Ready if it is the
// foreground device and stays Open otherwise.
func (m *Manager) Open(minor int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	d, err := m.lookupLocked(minor)
	if err != nil {
		return err
	}
	if d.state != StateClosed {
		return fmt.Errorf("open %s: %w", d.name, ErrBusy)
	}
	m.openLocked(d)
	return nil
}

func (m *Manager) openLocked(d *Device) {
	d.flushInput()
	d.flushOutput()
	d.stopped = false
	d.state = StateOpen
	if d.current {
		d.state = StateReady
		if m.banner != "" {
			m.writeStringLocked(d, "\n"+fmt.Sprintf(m.banner, d.name)+"\n")
		}
	}
	m.logger.WithFields(logrus.Fields{"tty": d.name, "state": d.state}).Debug("tty opened")
}

// Close flushes a device and returns it to Closed. Closing a Closed
// device is a no-op.
func (m *Manager) Close(minor int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	d, err := m.lookupLocked(minor)
	if err != nil {
		return err
	}
	if d.state == StateClosed {
		return nil
	}
	d.flushInput()
	d.flushOutput()
	d.stopped = false
	d.state = StateClosed
	m.logger.WithField("tty", d.name).Debug("tty closed")
	return nil
}

// Switch makes minor the foreground device. The outgoing device's screen
// and cursor are saved and the incoming device's are restored. A Closed
// device is opened; an Open device becomes Ready.
func (m *Manager) Switch(minor int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	d, err := m.lookupLocked(minor)
	if err != nil {
		return err
	}

	if m.current != minor {
		if m.validMinor(m.current) {
			if old := m.devices[m.current]; old != nil {
				old.backend.Deactivate(old)
				old.current = false
			}
		}
		m.current = minor
		d.current = true
		d.backend.Activate(d)
	}

	switch d.state {
	case StateClosed:
		m.openLocked(d)
	case StateOpen:
		d.state = StateReady
	}
	m.logger.WithField("tty", d.name).Debug("tty switched")
	return nil
}

// Current returns the foreground minor, or -1 if none.
func (m *Manager) Current() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Info returns a snapshot of a registered device.
func (m *Manager) Info(minor int) (Info, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, err := m.lookupLocked(minor)
	if err != nil {
		return Info{}, err
	}
	return d.info(), nil
}

// List returns snapshots of all registered devices ordered by minor.
func (m *Manager) List() []Info {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Info
	for _, d := range m.devices {
		if d != nil {
			out = append(out, d.info())
		}
	}
	return out
}

// State returns a device's lifecycle state.
func (m *Manager) State(minor int) (State, error) {
	info, err := m.Info(minor)
	return info.State, err
}

// Stats returns a device's counters.
func (m *Manager) Stats(minor int) (Stats, error) {
	info, err := m.Info(minor)
	return info.Stats, err
}

// SetMode sets the input discipline.
func (m *Manager) SetMode(minor int, mode Mode) error {
	return m.withOpen(minor, func(d *Device) error {
		if mode != ModeCooked && mode != ModeRaw {
			return ErrInvalidArgument
		}
		if d.mode != mode {
			d.line = d.line[:0]
		}
		d.mode = mode
		return nil
	})
}

// Mode returns the input discipline.
func (m *Manager) Mode(minor int) (Mode, error) {
	var mode Mode
	err := m.withOpen(minor, func(d *Device) error {
		mode = d.mode
		return nil
	})
	return mode, err
}

// SetConfig replaces the discipline flags. Disabling flow control
// releases stopped output.
func (m *Manager) SetConfig(minor int, cfg Config) error {
	return m.withOpen(minor, func(d *Device) error {
		d.config = cfg
		if !cfg.FlowControl && d.stopped {
			d.stopped = false
			return m.drainOutputLocked(d)
		}
		return nil
	})
}

// Config returns the discipline flags.
func (m *Manager) Config(minor int) (Config, error) {
	var cfg Config
	err := m.withOpen(minor, func(d *Device) error {
		cfg = d.config
		return nil
	})
	return cfg, err
}

// SetColor sets the device's drawing colors.
func (m *Manager) SetColor(minor int, fg, bg display.Color) error {
	if !fg.Valid() || !bg.Valid() {
		return ErrInvalidArgument
	}
	return m.withOpen(minor, func(d *Device) error {
		d.fg, d.bg = fg, bg
		d.backend.SetColors(d, fg, bg)
		return nil
	})
}

// Colors returns the device's drawing colors.
func (m *Manager) Colors(minor int) (fg, bg display.Color, err error) {
	err = m.withOpen(minor, func(d *Device) error {
		fg, bg = d.fg, d.bg
		return nil
	})
	return fg, bg, err
}

// Clear blanks the device screen and homes the cursor.
func (m *Manager) Clear(minor int) error {
	return m.withOpen(minor, func(d *Device) error {
		d.cursor = d.backend.Clear(d)
		return nil
	})
}

// SetCursor moves the device cursor. The position is clamped to the screen.
func (m *Manager) SetCursor(minor, x, y int) error {
	return m.withOpen(minor, func(d *Device) error {
		d.cursor = d.backend.MoveCursor(d, Position{X: x, Y: y})
		return nil
	})
}

// Cursor returns the device cursor.
func (m *Manager) Cursor(minor int) (Position, error) {
	var pos Position
	err := m.withOpen(minor, func(d *Device) error {
		pos = d.cursor
		return nil
	})
	return pos, err
}

// SetCursorVisible shows or hides the device cursor.
func (m *Manager) SetCursorVisible(minor int, visible bool) error {
	return m.withOpen(minor, func(d *Device) error {
		d.cursorVisible = visible
		d.backend.SetCursorVisible(d, visible)
		return nil
	})
}

// Flush discards pending input, pending output and the line buffer.
func (m *Manager) Flush(minor int) error {
	return m.withOpen(minor, func(d *Device) error {
		d.flushInput()
		d.flushOutput()
		return nil
	})
}

// FlushInput discards pending input and the line buffer.
func (m *Manager) FlushInput(minor int) error {
	return m.withOpen(minor, func(d *Device) error {
		d.flushInput()
		return nil
	})
}

// FlushOutput discards output held by flow control.
func (m *Manager) FlushOutput(minor int) error {
	return m.withOpen(minor, func(d *Device) error {
		d.flushOutput()
		return nil
	})
}

// HasData reports whether Read would return bytes.
func (m *Manager) HasData(minor int) bool {
	var ok bool
	_ = m.withOpen(minor, func(d *Device) error {
		ok = d.input.Length() > 0
		return nil
	})
	return ok
}

// withOpen runs fn on a registered device that is not Closed.
func (m *Manager) withOpen(minor int, fn func(d *Device) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, err := m.lookupLocked(minor)
	if err != nil {
		return err
	}
	if d.state == StateClosed {
		return fmt.Errorf("%s: %w", d.name, ErrNotReady)
	}
	return fn(d)
}

func (m *Manager) lookupLocked(minor int) (*Device, error) {
	if !m.validMinor(minor) || m.devices[minor] == nil {
		return nil, fmt.Errorf("minor %d: %w", minor, ErrInvalidArgument)
	}
	return m.devices[minor], nil
}

func (m *Manager) validMinor(minor int) bool {
	return minor >= 0 && minor < len(m.devices)
}
