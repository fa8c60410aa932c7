package system

import (
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/dshills/ttycore/internal/config"
	"github.com/dshills/ttycore/internal/display"
	"github.com/dshills/ttycore/internal/hal"
	"github.com/dshills/ttycore/internal/input/keyboard"
	"github.com/dshills/ttycore/internal/input/scancode"
	"github.com/dshills/ttycore/internal/logging"
	"github.com/dshills/ttycore/internal/terminal"
	"github.com/dshills/ttycore/internal/tty"
)

// System is one assembled terminal I/O stack.
type System struct {
	mu sync.Mutex

	cfg    *config.Config
	logger *logrus.Entry

	io  hal.PortIO
	ic  hal.InterruptController
	pic *hal.PIC
	bus *hal.Bus

	screen    *display.Surface
	console   *tty.Console
	ttys      *tty.Manager
	keyboard  *keyboard.Driver
	terminals *terminal.Registry
	events    *Events
	signals   tty.SignalHandler
	mode      tty.Mode

	initialized bool
	shutdown    bool
}

// Option configures a System.
type Option func(*System)

// WithHardware runs the system on external port I/O and interrupt
// controller implementations instead of the simulated bus.
func WithHardware(io hal.PortIO, ic hal.InterruptController) Option {
	return func(s *System) {
		if io != nil && ic != nil {
			s.io, s.ic = io, ic
		}
	}
}

// WithLogger sets the parent logger. Components log under it with their
// own component name.
func WithLogger(l *logrus.Entry) Option {
	return func(s *System) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithSignalHandler receives signals raised by TTY input.
func WithSignalHandler(h tty.SignalHandler) Option {
	return func(s *System) { s.signals = h }
}

// New assembles a system from cfg. Nothing touches the hardware until
// Init.
func New(cfg *config.Config, opts ...Option) (*System, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	mode, err := tty.ParseMode(cfg.TTY.Mode)
	if err != nil {
		return nil, err
	}

	s := &System{
		cfg:    cfg,
		logger: logging.Discard(),
		mode:   mode,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.io == nil {
		s.pic = hal.NewPIC()
		s.bus = hal.NewBus(s.pic)
		s.io, s.ic = s.bus, s.pic
	}

	fg, bg := cfg.Colors()
	s.screen = display.New(
		display.WithSize(cfg.Display.Width, cfg.Display.Height),
		display.WithTabSize(cfg.Display.TabSize),
		display.WithAutoScroll(cfg.Display.AutoScroll),
		display.WithAttr(display.MakeAttr(fg, bg)),
		display.WithCursorDevice(display.NewCRTC(s.io)),
	)
	s.console = tty.NewConsole(s.screen)

	ttyOpts := []tty.Option{
		tty.WithMaxDevices(cfg.TTY.Count),
		tty.WithBufferSize(cfg.TTY.BufferSize),
		tty.WithMaxLineLength(cfg.TTY.MaxLineLength),
		tty.WithDefaultConfig(cfg.Discipline()),
		tty.WithDefaultColors(fg, bg),
		tty.WithSignalHandler(tty.SignalHandlerFunc(s.handleSignal)),
		tty.WithLogger(logging.Component(s.logger, "tty")),
	}
	if cfg.TTY.Banner != "" {
		ttyOpts = append(ttyOpts, tty.WithBanner(cfg.TTY.Banner))
	}
	s.ttys = tty.NewManager(ttyOpts...)

	var initial scancode.ModifierSet
	if cfg.Keyboard.NumLock {
		initial = initial.With(scancode.NumLock)
	}
	s.keyboard = keyboard.New(s.io, s.ic,
		keyboard.WithQueueSize(cfg.Keyboard.QueueSize),
		keyboard.WithModifiers(initial),
		keyboard.WithLogger(logging.Component(s.logger, "keyboard")),
	)

	s.events = newEvents(logging.Component(s.logger, "events"))
	s.terminals = terminal.NewRegistry(s.ttys,
		terminal.WithBackend(s.console),
		terminal.WithScreen(s.screen),
		terminal.WithSize(cfg.Display.Width, cfg.Display.Height),
		terminal.WithDefaultColors(fg, bg),
		terminal.WithFeatures(cfg.Features()),
		terminal.WithHistorySize(cfg.Terminal.HistorySize),
		terminal.WithEventPublisher(s.events),
		terminal.WithRegistryLogger(logging.Component(s.logger, "terminal")),
	)
	return s, nil
}

// Init brings up the keyboard, registers every TTY device and creates
// the configured terminals.
func (s *System) Init() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.shutdown {
		return ErrShutdown
	}
	if s.initialized {
		return ErrAlreadyInitialized
	}

	if err := s.keyboard.Init(); err != nil {
		return err
	}
	if d, r := s.cfg.Keyboard.RepeatDelay, s.cfg.Keyboard.RepeatRate; d != 0 || r != 0 {
		if err := s.keyboard.SetRepeatRate(uint8(d), uint8(r)); err != nil {
			return fmt.Errorf("keyboard repeat rate: %w", err)
		}
	}

	for minor := 0; minor < s.cfg.TTY.Count; minor++ {
		if err := s.ttys.Register(fmt.Sprintf("tty%d", minor), minor, s.console); err != nil {
			return fmt.Errorf("register tty%d: %w", minor, err)
		}
	}

	for _, spec := range s.cfg.Terminal.Terminals {
		typ, err := terminal.ParseType(spec.Type)
		if err != nil {
			return err
		}
		if _, err := s.terminals.Create(spec.Name, typ, spec.TTY); err != nil {
			return fmt.Errorf("create terminal %s: %w", spec.Name, err)
		}
		if err := s.ttys.SetMode(spec.TTY, s.mode); err != nil {
			return fmt.Errorf("terminal %s: %w", spec.Name, err)
		}
	}

	s.keyboard.SetHandler(keyboard.HandlerFunc(s.handleKey))
	s.keyboard.Install(hal.KeyboardVector)
	s.initialized = true

	s.logger.WithFields(logrus.Fields{
		"ttys":      s.cfg.TTY.Count,
		"terminals": s.terminals.Count(),
		"width":     s.cfg.Display.Width,
		"height":    s.cfg.Display.Height,
	}).Info("system initialized")
	return nil
}

// Shutdown removes the keyboard handler, destroys every terminal and
// closes every TTY device. It is safe to call more than once.
func (s *System) Shutdown() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.shutdown {
		return nil
	}
	s.shutdown = true

	s.keyboard.Uninstall()
	s.keyboard.RemoveHandler()

	var errs []error
	if err := s.terminals.Close(); err != nil {
		errs = append(errs, err)
	}
	for _, info := range s.ttys.List() {
		if info.State == tty.StateClosed {
			continue
		}
		if err := s.ttys.Close(info.Minor); err != nil {
			errs = append(errs, err)
		}
	}
	if err := s.keyboard.Disable(); err != nil && !errors.Is(err, keyboard.ErrTimeout) {
		errs = append(errs, err)
	}
	s.logger.Info("system shut down")
	return errors.Join(errs...)
}

// Apply reconfigures a running system from a reloaded configuration.
// Settings that fix the shape of the system (sizes, device count,
// buffers) need a restart and are ignored.
func (s *System) Apply(cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	mode, err := tty.ParseMode(cfg.TTY.Mode)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.readyLocked(); err != nil {
		return err
	}

	var errs []error
	for _, info := range s.ttys.List() {
		if info.State == tty.StateClosed {
			continue
		}
		if err := s.ttys.SetConfig(info.Minor, cfg.Discipline()); err != nil {
			errs = append(errs, err)
		}
		if err := s.ttys.SetMode(info.Minor, mode); err != nil {
			errs = append(errs, err)
		}
	}

	features := cfg.Features()
	for _, info := range s.terminals.List() {
		t := s.terminals.FindByID(info.ID)
		if t == nil {
			continue
		}
		f := info.Features
		f.AutoWrap = features.AutoWrap
		f.BellEnabled = features.BellEnabled
		f.HistoryEnabled = features.HistoryEnabled
		if err := s.terminals.SetFeatures(t, f); err != nil {
			errs = append(errs, err)
		}
	}

	if s.logger.Logger != nil {
		s.logger.Logger.SetLevel(logging.ParseLevel(cfg.Log.Level))
	}
	s.cfg = cfg
	s.mode = mode
	s.logger.Info("configuration applied")
	return errors.Join(errs...)
}

func (s *System) readyLocked() error {
	if s.shutdown {
		return ErrShutdown
	}
	if !s.initialized {
		return ErrNotInitialized
	}
	return nil
}

// Config returns the configuration in effect.
func (s *System) Config() *config.Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

// Screen returns the display surface.
func (s *System) Screen() *display.Surface { return s.screen }

// TTYs returns the TTY manager.
func (s *System) TTYs() *tty.Manager { return s.ttys }

// Terminals returns the terminal registry.
func (s *System) Terminals() *terminal.Registry { return s.terminals }

// Keyboard returns the keyboard driver.
func (s *System) Keyboard() *keyboard.Driver { return s.keyboard }

// Events returns the terminal event fan-out.
func (s *System) Events() *Events { return s.events }

// Bus returns the simulated bus, or nil on external hardware.
func (s *System) Bus() *hal.Bus { return s.bus }

// PIC returns the simulated interrupt controller, or nil on external
// hardware.
func (s *System) PIC() *hal.PIC { return s.pic }

// Logger returns the system logger.
func (s *System) Logger() *logrus.Entry { return s.logger }

// InjectScancodes feeds raw scancodes to the simulated keyboard. Each
// byte raises a keyboard interrupt.
func (s *System) InjectScancodes(codes ...byte) error {
	if s.bus == nil {
		return ErrNoBus
	}
	s.mu.Lock()
	err := s.readyLocked()
	s.mu.Unlock()
	if err != nil {
		return err
	}
	s.bus.InjectScancode(codes...)
	return nil
}

func (s *System) handleSignal(minor int, sig tty.Signal) {
	s.logger.WithFields(logrus.Fields{"tty": minor, "signal": sig.String()}).Info("signal")
	if s.signals != nil {
		s.signals.HandleSignal(minor, sig)
	}
}
