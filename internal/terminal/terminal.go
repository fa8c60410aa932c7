package terminal

import (
	"fmt"
	"strings"

	"github.com/dshills/ttycore/internal/display"
)

// MaxNameLength bounds terminal names, including room for a terminator.
const MaxNameLength = 32

// Type is the kind of terminal.
type Type int

const (
	TypeConsole Type = iota
	TypeSerial
	TypeNetwork
	TypeVirtual
)

var typeNames = [...]string{"console", "serial", "network", "virtual"}

// String returns the type name.
func (t Type) String() string {
	if t >= 0 && int(t) < len(typeNames) {
		return typeNames[t]
	}
	return fmt.Sprintf("Type(%d)", int(t))
}

// ParseType parses a type name.
func ParseType(s string) (Type, error) {
	for i, name := range typeNames {
		if strings.EqualFold(s, name) {
			return Type(i), nil
		}
	}
	return TypeConsole, fmt.Errorf("unknown terminal type %q: %w", s, ErrInvalidArgument)
}

// State is the lifecycle state of a terminal slot.
type State int

const (
	StateInactive State = iota
	StateActive
	StateFocused
	StateSuspended
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateInactive:
		return "inactive"
	case StateActive:
		return "active"
	case StateFocused:
		return "focused"
	case StateSuspended:
		return "suspended"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Features are the per-terminal behaviour flags.
type Features struct {
	AutoWrap       bool
	InsertMode     bool
	CursorVisible  bool
	BellEnabled    bool
	HistoryEnabled bool
}

// DefaultFeatures returns every feature on except insert mode.
func DefaultFeatures() Features {
	return Features{
		AutoWrap:       true,
		CursorVisible:  true,
		BellEnabled:    true,
		HistoryEnabled: true,
	}
}

// Terminal is a handle to one registry slot. The handle goes stale when
// the terminal is destroyed; a later terminal in the same slot gets a new
// handle and ID.
type Terminal struct {
	id    string
	name  string
	typ   Type
	minor int
	slot  int

	// Guarded by the registry lock.
	state                State
	width, height        int
	defaultFG, defaultBG display.Color
	fg, bg               display.Color
	features             Features
	parser               *Parser
	history              *History
	sessionID            uint32
	bells                uint64
}

// ID returns the unique identifier of this terminal incarnation.
func (t *Terminal) ID() string { return t.id }

// Name returns the terminal name.
func (t *Terminal) Name() string { return t.name }

// Type returns the terminal type.
func (t *Terminal) Type() Type { return t.typ }

// Minor returns the bound TTY minor.
func (t *Terminal) Minor() int { return t.minor }

// Info is a snapshot of a terminal.
type Info struct {
	ID                   string
	Name                 string
	Type                 Type
	State                State
	Slot                 int
	Minor                int
	Width, Height        int
	DefaultFG, DefaultBG display.Color
	FG, BG               display.Color
	Features             Features
	SessionID            uint32
	Bells                uint64
	EscapeState          ParserState
}

func (t *Terminal) info() Info {
	return Info{
		ID:          t.id,
		Name:        t.name,
		Type:        t.typ,
		State:       t.state,
		Slot:        t.slot,
		Minor:       t.minor,
		Width:       t.width,
		Height:      t.height,
		DefaultFG:   t.defaultFG,
		DefaultBG:   t.defaultBG,
		FG:          t.fg,
		BG:          t.bg,
		Features:    t.features,
		SessionID:   t.sessionID,
		Bells:       t.bells,
		EscapeState: t.parser.State(),
	}
}

// dispatcher applies parser actions to a terminal's device. It runs with
// the registry locked.
type dispatcher struct {
	r *Registry
	t *Terminal
}

func (d dispatcher) MoveCursorRelative(dx, dy int) {
	pos, err := d.r.ttys.Cursor(d.t.minor)
	if err != nil {
		return
	}
	d.MoveCursorTo(pos.X+dx, pos.Y+dy)
}

func (d dispatcher) MoveCursorTo(x, y int) {
	x = clamp(x, 0, d.t.width-1)
	y = clamp(y, 0, d.t.height-1)
	if err := d.r.ttys.SetCursor(d.t.minor, x, y); err != nil {
		d.r.logger.WithError(err).WithField("terminal", d.t.name).Debug("cursor move failed")
	}
}

func (d dispatcher) EraseDisplay(mode int) {
	if mode != 2 {
		return
	}
	if err := d.r.ttys.Clear(d.t.minor); err != nil {
		d.r.logger.WithError(err).WithField("terminal", d.t.name).Debug("clear failed")
	}
}

// EraseLine is reserved.
func (d dispatcher) EraseLine(int) {}

func (d dispatcher) SelectGraphic(params []int) {
	fg, bg := d.t.fg, d.t.bg
	for _, p := range params {
		switch {
		case p == 0:
			fg, bg = d.t.defaultFG, d.t.defaultBG
		case p >= 30 && p <= 37:
			fg = display.Color(p - 30)
		case p >= 40 && p <= 47:
			bg = display.Color(p - 40)
		}
	}
	if fg == d.t.fg && bg == d.t.bg {
		return
	}
	d.t.fg, d.t.bg = fg, bg
	if err := d.r.ttys.SetColor(d.t.minor, fg, bg); err != nil {
		d.r.logger.WithError(err).WithField("terminal", d.t.name).Debug("color change failed")
	}
}

func (d dispatcher) Bell() {
	_ = d.r.bellLocked(d.t)
}

func clamp(v, lo, hi int) int {
	if hi < lo {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
