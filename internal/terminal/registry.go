package terminal

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/dshills/ttycore/internal/display"
	"github.com/dshills/ttycore/internal/logging"
	"github.com/dshills/ttycore/internal/tty"
)

// EventPublisher publishes terminal events. Publish is called with the
// registry locked and must not call back into it.
type EventPublisher interface {
	Publish(eventType string, data map[string]any)
}

// Event types published by the registry.
const (
	EventCreated        = "terminal.created"
	EventDestroyed      = "terminal.destroyed"
	EventStateChanged   = "terminal.state"
	EventFocus          = "terminal.focus"
	EventBell           = "terminal.bell"
	EventSessionCreated = "session.created"
	EventSessionEnded   = "session.destroyed"
)

// Registry owns a fixed set of terminal slots bound to TTY devices. It
// tracks the active terminal, whose device is on the display, and the
// focused terminal. It is safe for concurrent use.
type Registry struct {
	mu   sync.Mutex
	ttys *tty.Manager

	slots   []*Terminal
	active  int
	focused int

	sessions      []*Session
	nextSessionID uint32

	backend     tty.Backend
	screen      *display.Surface
	width       int
	height      int
	fg, bg      display.Color
	features    Features
	historySize int
	events      EventPublisher
	logger      *logrus.Entry
	closed      bool
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithSlots sets the number of terminal slots.
func WithSlots(n int) RegistryOption {
	return func(r *Registry) {
		if n > 0 {
			r.slots = make([]*Terminal, n)
		}
	}
}

// WithBackend sets the backend used to register TTY devices on demand.
func WithBackend(b tty.Backend) RegistryOption {
	return func(r *Registry) { r.backend = b }
}

// WithScreen sets the physical display. The focused terminal's history
// is fed from rows scrolling off it.
func WithScreen(s *display.Surface) RegistryOption {
	return func(r *Registry) { r.screen = s }
}

// WithSize sets the size of new terminals.
func WithSize(width, height int) RegistryOption {
	return func(r *Registry) {
		if width > 0 && height > 0 {
			r.width, r.height = width, height
		}
	}
}

// WithDefaultColors sets the default colors of new terminals.
func WithDefaultColors(fg, bg display.Color) RegistryOption {
	return func(r *Registry) { r.fg, r.bg = fg, bg }
}

// WithFeatures sets the features of new terminals.
func WithFeatures(f Features) RegistryOption {
	return func(r *Registry) { r.features = f }
}

// WithHistorySize sets the scrollback length of new terminals.
func WithHistorySize(n int) RegistryOption {
	return func(r *Registry) {
		if n > 0 {
			r.historySize = n
		}
	}
}

// WithEventPublisher sets the receiver of terminal events.
func WithEventPublisher(p EventPublisher) RegistryOption {
	return func(r *Registry) { r.events = p }
}

// WithRegistryLogger sets the registry logger.
func WithRegistryLogger(l *logrus.Entry) RegistryOption {
	return func(r *Registry) { r.logger = l }
}

// NewRegistry creates a registry over ttys. It has one slot per TTY minor
// unless WithSlots says otherwise.
func NewRegistry(ttys *tty.Manager, opts ...RegistryOption) *Registry {
	r := &Registry{
		ttys:          ttys,
		slots:         make([]*Terminal, ttys.MaxDevices()),
		active:        -1,
		focused:       -1,
		nextSessionID: 1,
		fg:            display.DefaultForeground,
		bg:            display.DefaultBackground,
		features:      DefaultFeatures(),
		historySize:   DefaultHistorySize,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.width == 0 {
		if r.screen != nil {
			r.width, r.height = r.screen.Size()
		} else {
			r.width, r.height = display.DefaultWidth, display.DefaultHeight
		}
	}
	if r.logger == nil {
		r.logger = logging.Discard()
	}
	return r
}

// Create binds a new terminal to a TTY minor in the first free slot and
// opens the device, registering it first if needed. The first terminal
// created becomes focused; later ones are Active.
func (r *Registry) Create(name string, typ Type, minor int) (*Terminal, error) {
	if name == "" || minor < 0 || minor >= r.ttys.MaxDevices() {
		return nil, ErrInvalidArgument
	}
	if len(name) > MaxNameLength-1 {
		name = name[:MaxNameLength-1]
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, ErrClosed
	}

	slot := -1
	for i, t := range r.slots {
		if t == nil {
			if slot < 0 {
				slot = i
			}
			continue
		}
		if t.minor == minor {
			return nil, fmt.Errorf("tty%d bound to %s: %w", minor, t.name, ErrBusy)
		}
	}
	if slot < 0 {
		return nil, ErrNoSlot
	}

	opened, err := r.attachLocked(minor)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", name, err)
	}

	t := &Terminal{
		id:        uuid.New().String(),
		name:      name,
		typ:       typ,
		minor:     minor,
		slot:      slot,
		state:     StateActive,
		width:     r.width,
		height:    r.height,
		defaultFG: r.fg,
		defaultBG: r.bg,
		fg:        r.fg,
		bg:        r.bg,
		features:  r.features,
		history:   NewHistory(r.historySize),
	}
	t.parser = NewParser(dispatcher{r: r, t: t})
	t.parser.SetUnknownCallback(func(seq string) {
		r.logger.WithFields(logrus.Fields{"terminal": t.name, "sequence": fmt.Sprintf("%q", seq)}).Debug("unsupported escape sequence")
	})
	r.slots[slot] = t

	if err := r.ttys.SetColor(minor, t.fg, t.bg); err != nil {
		r.logger.WithError(err).WithField("terminal", name).Debug("initial colors not applied")
	}
	if err := r.ttys.SetCursorVisible(minor, t.features.CursorVisible); err != nil {
		r.logger.WithError(err).WithField("terminal", name).Debug("initial cursor not applied")
	}

	r.publishEvent(EventCreated, map[string]any{
		"id":    t.id,
		"name":  t.name,
		"type":  t.typ.String(),
		"minor": minor,
	})

	if r.active < 0 {
		if err := r.switchLocked(t); err != nil {
			r.abandonLocked(t, opened)
			return nil, fmt.Errorf("focus %s: %w", name, err)
		}
	}
	r.logger.WithFields(logrus.Fields{"terminal": name, "minor": minor, "slot": slot}).Debug("terminal created")
	return t, nil
}

// attachLocked makes sure the device exists and is not Closed. It reports
// whether it opened the device.
func (r *Registry) attachLocked(minor int) (bool, error) {
	info, err := r.ttys.Info(minor)
	if errors.Is(err, tty.ErrInvalidArgument) && r.backend != nil {
		if err := r.ttys.Register(fmt.Sprintf("tty%d", minor), minor, r.backend); err != nil {
			return false, err
		}
		info, err = r.ttys.Info(minor)
	}
	if err != nil {
		return false, err
	}
	if info.State != tty.StateClosed {
		return false, nil
	}
	if err := r.ttys.Open(minor); err != nil {
		return false, err
	}
	return true, nil
}

// abandonLocked undoes a Create that failed after the slot was filled.
// The device is closed only if Create opened it, and the created event is
// retracted with a destroyed event.
func (r *Registry) abandonLocked(t *Terminal, opened bool) {
	if opened {
		if err := r.ttys.Close(t.minor); err != nil {
			r.logger.WithError(err).WithField("terminal", t.name).Warn("tty close failed")
		}
	}
	t.state = StateInactive
	r.slots[t.slot] = nil
	r.publishEvent(EventDestroyed, map[string]any{
		"id":    t.id,
		"name":  t.name,
		"state": StateActive.String(),
	})
}

// Destroy closes the terminal's device, ends its sessions and frees the
// slot. The active or focused terminal cannot be destroyed.
func (r *Registry) Destroy(t *Terminal) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.lookupLocked(t); err != nil {
		return err
	}
	if t.slot == r.active || t.slot == r.focused {
		return fmt.Errorf("destroy %s: %w", t.name, ErrBusy)
	}
	r.destroyLocked(t)
	return nil
}

func (r *Registry) destroyLocked(t *Terminal) {
	if err := r.ttys.Close(t.minor); err != nil {
		r.logger.WithError(err).WithField("terminal", t.name).Warn("tty close failed")
	}
	r.endSessionsLocked(t)
	old := t.state
	t.state = StateInactive
	r.slots[t.slot] = nil
	if r.active == t.slot {
		r.active = -1
	}
	if r.focused == t.slot {
		r.focused = -1
	}
	r.publishEvent(EventDestroyed, map[string]any{
		"id":    t.id,
		"name":  t.name,
		"state": old.String(),
	})
	r.logger.WithField("terminal", t.name).Debug("terminal destroyed")
}

// SwitchTo puts t on the display. The previously focused terminal becomes
// Active; t's device is opened if it was Closed and t becomes Focused.
func (r *Registry) SwitchTo(t *Terminal) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.lookupLocked(t); err != nil {
		return err
	}
	if t.state == StateSuspended {
		return fmt.Errorf("switch to %s: %w", t.name, ErrSuspended)
	}
	return r.switchLocked(t)
}

func (r *Registry) switchLocked(t *Terminal) error {
	if err := r.ttys.Switch(t.minor); err != nil {
		return err
	}
	for _, other := range r.slots {
		if other != nil && other != t && other.state == StateFocused {
			r.setStateLocked(other, StateActive)
		}
	}
	r.setStateLocked(t, StateFocused)
	r.active, r.focused = t.slot, t.slot
	r.bindHistoryLocked(t)
	return nil
}

// bindHistoryLocked routes rows scrolling off the display into the
// history of t.
func (r *Registry) bindHistoryLocked(t *Terminal) {
	if r.screen == nil {
		return
	}
	if t.features.HistoryEnabled {
		r.screen.OnScroll(t.history.AddRow)
	} else {
		r.screen.OnScroll(nil)
	}
}

// SetFocus marks t as the focused terminal without changing the display.
// The previously focused terminal drops back to Active.
func (r *Registry) SetFocus(t *Terminal) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.lookupLocked(t); err != nil {
		return err
	}
	if t.state == StateSuspended {
		return fmt.Errorf("focus %s: %w", t.name, ErrSuspended)
	}
	for _, other := range r.slots {
		if other != nil && other != t && other.state == StateFocused {
			r.setStateLocked(other, StateActive)
		}
	}
	r.setStateLocked(t, StateFocused)
	r.focused = t.slot
	r.publishEvent(EventFocus, map[string]any{"id": t.id, "name": t.name})
	return nil
}

// Active returns the terminal on the display, or nil.
func (r *Registry) Active() *Terminal {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.slotLocked(r.active)
}

// Focused returns the focused terminal, or nil.
func (r *Registry) Focused() *Terminal {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.slotLocked(r.focused)
}

func (r *Registry) slotLocked(i int) *Terminal {
	if i < 0 || i >= len(r.slots) {
		return nil
	}
	return r.slots[i]
}

// FindByName returns the live terminal called name, or nil.
func (r *Registry) FindByName(name string) *Terminal {
	return r.find(func(t *Terminal) bool { return t.name == name })
}

// FindByTTY returns the live terminal bound to minor, or nil.
func (r *Registry) FindByTTY(minor int) *Terminal {
	return r.find(func(t *Terminal) bool { return t.minor == minor })
}

// FindByID returns the live terminal with the given ID, or nil.
func (r *Registry) FindByID(id string) *Terminal {
	return r.find(func(t *Terminal) bool { return t.id == id })
}

func (r *Registry) find(match func(*Terminal) bool) *Terminal {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.slots {
		if t != nil && t.state != StateInactive && match(t) {
			return t
		}
	}
	return nil
}

// Write interprets escape sequences in data and forwards every other byte
// to the terminal's device. Bytes preceding a sequence reach the device
// before the sequence takes effect. On failure the count covers the bytes
// consumed before the failing one.
func (r *Registry) Write(t *Terminal, data []byte) (int, error) {
	if len(data) == 0 {
		return 0, ErrInvalidArgument
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.lookupLocked(t); err != nil {
		return 0, err
	}
	if t.state == StateSuspended {
		return 0, ErrSuspended
	}

	run := 0
	for i, b := range data {
		if !t.parser.Intercepts(b) {
			continue
		}
		if i > run {
			if n, err := r.ttys.Write(t.minor, data[run:i]); err != nil {
				return run + n, err
			}
		}
		t.parser.Feed(b)
		run = i + 1
	}
	if run < len(data) {
		if n, err := r.ttys.Write(t.minor, data[run:]); err != nil {
			return run + n, err
		}
	}
	return len(data), nil
}

// Read reads pending input from the terminal's device.
func (r *Registry) Read(t *Terminal, p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.lookupLocked(t); err != nil {
		return 0, err
	}
	if t.state == StateSuspended {
		return 0, ErrSuspended
	}
	return r.ttys.Read(t.minor, p)
}

// Printf writes formatted output through Write.
func (r *Registry) Printf(t *Terminal, format string, args ...any) (int, error) {
	s := fmt.Sprintf(format, args...)
	if s == "" {
		return 0, nil
	}
	return r.Write(t, []byte(s))
}

// SetSize sets the bounds used for cursor movement.
func (r *Registry) SetSize(t *Terminal, width, height int) error {
	if width <= 0 || height <= 0 {
		return ErrInvalidSize
	}
	return r.with(t, func(t *Terminal) error {
		t.width, t.height = width, height
		return nil
	})
}

// SetColors sets the terminal's default and current colors.
func (r *Registry) SetColors(t *Terminal, fg, bg display.Color) error {
	if !fg.Valid() || !bg.Valid() {
		return ErrInvalidArgument
	}
	return r.with(t, func(t *Terminal) error {
		t.defaultFG, t.defaultBG = fg, bg
		t.fg, t.bg = fg, bg
		return r.ttys.SetColor(t.minor, fg, bg)
	})
}

// ClearScreen blanks the terminal's screen.
func (r *Registry) ClearScreen(t *Terminal) error {
	return r.with(t, func(t *Terminal) error {
		return r.ttys.Clear(t.minor)
	})
}

// MoveCursor moves the cursor, clamped to the terminal size.
func (r *Registry) MoveCursor(t *Terminal, x, y int) error {
	if x < 0 || y < 0 {
		return ErrInvalidArgument
	}
	return r.with(t, func(t *Terminal) error {
		return r.ttys.SetCursor(t.minor, clamp(x, 0, t.width-1), clamp(y, 0, t.height-1))
	})
}

// Cursor returns the terminal's cursor.
func (r *Registry) Cursor(t *Terminal) (tty.Position, error) {
	var pos tty.Position
	err := r.with(t, func(t *Terminal) error {
		var err error
		pos, err = r.ttys.Cursor(t.minor)
		return err
	})
	return pos, err
}

// ShowCursor makes the cursor visible.
func (r *Registry) ShowCursor(t *Terminal) error {
	return r.setCursorVisible(t, true)
}

// HideCursor hides the cursor.
func (r *Registry) HideCursor(t *Terminal) error {
	return r.setCursorVisible(t, false)
}

func (r *Registry) setCursorVisible(t *Terminal, visible bool) error {
	return r.with(t, func(t *Terminal) error {
		t.features.CursorVisible = visible
		return r.ttys.SetCursorVisible(t.minor, visible)
	})
}

// Bell rings the terminal bell.
func (r *Registry) Bell(t *Terminal) error {
	return r.with(t, r.bellLocked)
}

func (r *Registry) bellLocked(t *Terminal) error {
	if !t.features.BellEnabled {
		return ErrBellDisabled
	}
	t.bells++
	r.publishEvent(EventBell, map[string]any{"id": t.id, "name": t.name})
	return nil
}

// Suspend stops I/O on a terminal that is not on the display.
func (r *Registry) Suspend(t *Terminal) error {
	return r.with(t, func(t *Terminal) error {
		if t.slot == r.active {
			return fmt.Errorf("suspend %s: %w", t.name, ErrBusy)
		}
		r.setStateLocked(t, StateSuspended)
		return nil
	})
}

// Resume returns a suspended terminal to Active.
func (r *Registry) Resume(t *Terminal) error {
	return r.with(t, func(t *Terminal) error {
		if t.state == StateSuspended {
			r.setStateLocked(t, StateActive)
		}
		return nil
	})
}

// SetFeatures replaces the terminal's feature flags.
func (r *Registry) SetFeatures(t *Terminal, f Features) error {
	return r.with(t, func(t *Terminal) error {
		cursorChanged := t.features.CursorVisible != f.CursorVisible
		t.features = f
		if t.slot == r.active {
			r.bindHistoryLocked(t)
		}
		if cursorChanged {
			return r.ttys.SetCursorVisible(t.minor, f.CursorVisible)
		}
		return nil
	})
}

// Features returns the terminal's feature flags.
func (r *Registry) Features(t *Terminal) (Features, error) {
	var f Features
	err := r.with(t, func(t *Terminal) error {
		f = t.features
		return nil
	})
	return f, err
}

// History returns the terminal's scrollback.
func (r *Registry) History(t *Terminal) (*History, error) {
	var h *History
	err := r.with(t, func(t *Terminal) error {
		h = t.history
		return nil
	})
	return h, err
}

// Info returns a snapshot of t.
func (r *Registry) Info(t *Terminal) (Info, error) {
	var info Info
	err := r.with(t, func(t *Terminal) error {
		info = t.info()
		return nil
	})
	return info, err
}

// List returns snapshots of every live terminal ordered by slot.
func (r *Registry) List() []Info {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Info
	for _, t := range r.slots {
		if t != nil {
			out = append(out, t.info())
		}
	}
	return out
}

// Count returns the number of live terminals.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, t := range r.slots {
		if t != nil {
			n++
		}
	}
	return n
}

// Close destroys every terminal and rejects further calls.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	for _, t := range r.slots {
		if t != nil {
			r.destroyLocked(t)
		}
	}
	if r.screen != nil {
		r.screen.OnScroll(nil)
	}
	r.closed = true
	return nil
}

func (r *Registry) with(t *Terminal, fn func(t *Terminal) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.lookupLocked(t); err != nil {
		return err
	}
	return fn(t)
}

func (r *Registry) lookupLocked(t *Terminal) error {
	if r.closed {
		return ErrClosed
	}
	if t == nil {
		return ErrInvalidArgument
	}
	if t.slot < 0 || t.slot >= len(r.slots) || r.slots[t.slot] != t {
		return fmt.Errorf("%s: %w", t.name, ErrNotFound)
	}
	return nil
}

func (r *Registry) setStateLocked(t *Terminal, state State) {
	if t.state == state {
		return
	}
	old := t.state
	t.state = state
	r.publishEvent(EventStateChanged, map[string]any{
		"id":   t.id,
		"name": t.name,
		"from": old.String(),
		"to":   state.String(),
	})
}

// publishEvent publishes an event if a publisher is configured.
func (r *Registry) publishEvent(eventType string, data map[string]any) {
	if r.events == nil {
		return
	}
	if data == nil {
		data = make(map[string]any)
	}
	data["timestamp"] = time.Now().UnixMilli()
	r.events.Publish(eventType, data)
}
