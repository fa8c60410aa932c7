package tty

import (
	"fmt"

	"github.com/smallnest/ringbuffer"

	"github.com/dshills/ttycore/internal/display"
)

// Limits of the device table.
const (
	DefaultMaxDevices    = 8
	DefaultBufferSize    = 4096
	DefaultMaxLineLength = 1024
	MaxNameLength        = 16
	TabWidth             = 8
)

// State is the lifecycle state of a device.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateReady
	StateError
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateReady:
		return "ready"
	case StateError:
		return "error"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Mode selects the input discipline.
type Mode int

const (
	// ModeCooked is line-buffered input with editing and echo.
	ModeCooked Mode = iota
	// ModeRaw delivers every character immediately.
	ModeRaw
)

// String returns the mode name.
func (m Mode) String() string {
	if m == ModeRaw {
		return "raw"
	}
	return "cooked"
}

// ParseMode parses "cooked" or "raw".
func ParseMode(s string) (Mode, error) {
	switch s {
	case "cooked", "":
		return ModeCooked, nil
	case "raw":
		return ModeRaw, nil
	}
	return ModeCooked, fmt.Errorf("unknown tty mode %q: %w", s, ErrInvalidArgument)
}

// Config holds the line discipline flags.
type Config struct {
	Echo        bool
	Canonical   bool
	Signals     bool
	CRLF        bool
	TabExpand   bool
	FlowControl bool
}

// DefaultConfig returns echo, canonical, signals, CR-LF and tab expansion
// enabled, flow control disabled.
func DefaultConfig() Config {
	return Config{
		Echo:      true,
		Canonical: true,
		Signals:   true,
		CRLF:      true,
		TabExpand: true,
	}
}

// Position is a cursor position.
type Position struct {
	X, Y int
}

// Stats holds per-device counters.
type Stats struct {
	BytesRead           uint64
	BytesWritten        uint64
	LinesProcessed      uint64
	CharactersProcessed uint64
	InputDropped        uint64
}

// Info is a snapshot of a device's public state.
type Info struct {
	Name          string
	Minor         int
	Kind          string
	State         State
	Mode          Mode
	Config        Config
	Foreground    display.Color
	Background    display.Color
	Cursor        Position
	CursorVisible bool
	Current       bool
	Stopped       bool
	Stats         Stats
}

// Device is one TTY. Its fields are owned by the Manager; backends read
// them through the accessor methods while the manager is locked.
type Device struct {
	name    string
	minor   int
	state   State
	mode    Mode
	config  Config
	backend Backend

	line    []byte
	input   *ringbuffer.RingBuffer
	output  *ringbuffer.RingBuffer
	stopped bool

	fg, bg        display.Color
	cursor        Position
	cursorVisible bool
	current       bool

	stats Stats
}

// Name returns the device name.
func (d *Device) Name() string { return d.name }

// Minor returns the device minor number.
func (d *Device) Minor() int { return d.minor }

// IsForeground reports whether the device is bound to the display.
func (d *Device) IsForeground() bool { return d.current }

// Colors returns the device's foreground and background colors.
func (d *Device) Colors() (fg, bg display.Color) { return d.fg, d.bg }

// Cursor returns the device's cursor.
func (d *Device) Cursor() Position { return d.cursor }

// CursorVisible reports whether the device shows its cursor.
func (d *Device) CursorVisible() bool { return d.cursorVisible }

func (d *Device) info() Info {
	kind := ""
	if d.backend != nil {
		kind = d.backend.Kind()
	}
	return Info{
		Name:          d.name,
		Minor:         d.minor,
		Kind:          kind,
		State:         d.state,
		Mode:          d.mode,
		Config:        d.config,
		Foreground:    d.fg,
		Background:    d.bg,
		Cursor:        d.cursor,
		CursorVisible: d.cursorVisible,
		Current:       d.current,
		Stopped:       d.stopped,
		Stats:         d.stats,
	}
}

func (d *Device) flushInput() {
	d.input.Reset()
	d.line = d.line[:0]
}

func (d *Device) flushOutput() {
	d.output.Reset()
}
