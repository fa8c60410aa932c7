package keyboard

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/dshills/ttycore/internal/hal"
	"github.com/dshills/ttycore/internal/input/scancode"
	"github.com/dshills/ttycore/internal/logging"
)

// Stats holds driver counters.
type Stats struct {
	Interrupts uint64
	Spurious   uint64
	Events     uint64
	Dropped    uint64
}

// Driver is the keyboard interrupt handler and event source.
type Driver struct {
	ctrl   *Controller
	ic     hal.InterruptController
	queue  *Queue
	logger *logrus.Entry

	queueSize  int
	pause      hal.Pauser
	readyPolls int
	resetPolls int
	initial    scancode.ModifierSet

	mu         sync.Mutex
	tracker    *scancode.Tracker
	leds       byte
	handler    Handler
	vector     uint8
	installed  bool
	interrupts uint64
	spurious   uint64
	events     uint64
}

// Option configures a Driver.
type Option func(*Driver)

// WithQueueSize sets the event queue capacity.
func WithQueueSize(n int) Option {
	return func(d *Driver) { d.queueSize = n }
}

// WithLogger sets the driver logger.
func WithLogger(l *logrus.Entry) Option {
	return func(d *Driver) { d.logger = l }
}

// WithPauser sets the busy-wait pause used while polling the controller.
func WithPauser(p hal.Pauser) Option {
	return func(d *Driver) { d.pause = p }
}

// WithPollLimits sets the ready-wait and reset-response iteration limits.
func WithPollLimits(ready, reset int) Option {
	return func(d *Driver) {
		d.readyPolls = ready
		d.resetPolls = reset
	}
}

// WithModifiers sets the lock state applied by Init, e.g. NumLock.
func WithModifiers(m scancode.ModifierSet) Option {
	return func(d *Driver) { d.initial = m }
}

// New creates a driver talking to the controller on io. Queue mutation is
// guarded by masking interrupts on ic.
func New(io hal.PortIO, ic hal.InterruptController, opts ...Option) *Driver {
	d := &Driver{ic: ic}
	for _, opt := range opts {
		opt(d)
	}
	if d.logger == nil {
		d.logger = logging.Discard()
	}
	d.ctrl = NewController(io, d.pause, d.readyPolls, d.resetPolls)
	d.queue = NewQueue(d.queueSize, hal.NewIRQLock(ic))
	d.tracker = scancode.NewTracker(d.initial)
	d.leds = d.initial.LEDs()
	return d
}

// Init clears driver state, resets and enables the keyboard, and pushes
// the initial LED state.
func (d *Driver) Init() error {
	d.queue.Flush()
	d.mu.Lock()
	d.tracker.Set(d.initial)
	d.leds = d.initial.LEDs()
	leds := d.leds
	d.mu.Unlock()

	d.ctrl.Drain()
	if err := d.ctrl.Reset(); err != nil {
		return fmt.Errorf("keyboard init: %w", err)
	}
	if err := d.ctrl.Enable(); err != nil {
		return fmt.Errorf("keyboard init: %w", err)
	}
	if err := d.ctrl.SetLEDs(leds); err != nil {
		return fmt.Errorf("keyboard init: %w", err)
	}
	d.logger.WithField("leds", leds).Debug("keyboard initialized")
	return nil
}

// Install registers the driver as the handler for vector.
func (d *Driver) Install(vector uint8) {
	d.mu.Lock()
	d.vector = vector
	d.installed = true
	d.mu.Unlock()
	if d.ic != nil {
		d.ic.SetHandler(vector, d)
	}
}

// Uninstall removes the driver from its interrupt vector.
func (d *Driver) Uninstall() {
	d.mu.Lock()
	vector, installed := d.vector, d.installed
	d.installed = false
	d.mu.Unlock()
	if installed && d.ic != nil {
		d.ic.SetHandler(vector, nil)
	}
}

// HandleInterrupt services one keyboard interrupt.
func (d *Driver) HandleInterrupt() {
	if !d.ctrl.OutputFull() {
		d.mu.Lock()
		d.spurious++
		d.mu.Unlock()
		return
	}
	d.process(d.ctrl.ReadData())
}

func (d *Driver) process(raw byte) {
	code, state := scancode.Decode(raw)

	d.mu.Lock()
	d.interrupts++
	before := d.tracker.Modifiers()
	toggled := d.tracker.Update(code, state)
	after := d.tracker.Modifiers()
	ev := Event{
		Scancode:  code,
		ASCII:     scancode.Translate(code, after),
		State:     state,
		Modifiers: before,
	}
	if toggled {
		d.leds ^= (before ^ after).LEDs()
	}
	leds := d.leds
	h := d.handler
	d.events++
	d.mu.Unlock()

	if toggled {
		if err := d.ctrl.SetLEDs(leds); err != nil {
			d.logger.WithError(err).Warn("failed to update keyboard LEDs")
		}
	}
	if h != nil {
		h.HandleKey(ev)
	}
	if d.queue.Push(ev) {
		d.logger.Debug("keyboard queue full, dropped oldest event")
	}
}

// ReadEvent pops the oldest queued event. It never blocks.
func (d *Driver) ReadEvent() (Event, error) {
	return d.queue.Pop()
}

// HasEvent returns true if an event is queued.
func (d *Driver) HasEvent() bool {
	return d.queue.HasEvent()
}

// WaitEvent polls the queue until an event arrives or ctx is done.
func (d *Driver) WaitEvent(ctx context.Context) (Event, error) {
	pause := d.pause
	if pause == nil {
		pause = hal.NopPauser
	}
	for {
		if ev, err := d.queue.Pop(); err == nil {
			return ev, nil
		}
		if err := ctx.Err(); err != nil {
			return Event{}, err
		}
		pause.Pause()
	}
}

// Flush discards all queued events.
func (d *Driver) Flush() {
	d.queue.Flush()
}

// Modifiers returns the current modifier state.
func (d *Driver) Modifiers() scancode.ModifierSet {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.tracker.Modifiers()
}

// LEDs returns the last LED state sent to the keyboard.
func (d *Driver) LEDs() byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.leds
}

// SetLEDs records and sends a new LED state.
func (d *Driver) SetLEDs(leds byte) error {
	d.mu.Lock()
	d.leds = leds
	d.mu.Unlock()
	return d.ctrl.SetLEDs(leds)
}

// SetRepeatRate sets the typematic delay and rate.
func (d *Driver) SetRepeatRate(delay, rate uint8) error {
	return d.ctrl.SetRepeatRate(delay, rate)
}

// Enable starts keyboard scanning.
func (d *Driver) Enable() error {
	return d.ctrl.Enable()
}

// Disable stops keyboard scanning.
func (d *Driver) Disable() error {
	return d.ctrl.Disable()
}

// SetHandler installs h, replacing any previous handler.
func (d *Driver) SetHandler(h Handler) {
	d.mu.Lock()
	d.handler = h
	d.mu.Unlock()
}

// RemoveHandler removes the handler.
func (d *Driver) RemoveHandler() {
	d.SetHandler(nil)
}

// Controller returns the underlying controller.
func (d *Driver) Controller() *Controller {
	return d.ctrl
}

// Stats returns a snapshot of the driver counters.
func (d *Driver) Stats() Stats {
	d.mu.Lock()
	s := Stats{
		Interrupts: d.interrupts,
		Spurious:   d.spurious,
		Events:     d.events,
	}
	d.mu.Unlock()
	s.Dropped = d.queue.Dropped()
	return s
}
