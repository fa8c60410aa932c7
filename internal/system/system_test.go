package system

import (
	"errors"
	"sync"
	"testing"

	"github.com/dshills/ttycore/internal/config"
	"github.com/dshills/ttycore/internal/display"
	"github.com/dshills/ttycore/internal/hal"
	"github.com/dshills/ttycore/internal/input/scancode"
	"github.com/dshills/ttycore/internal/terminal"
	"github.com/dshills/ttycore/internal/tty"
)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Display.Width = 20
	cfg.Display.Height = 5
	cfg.Terminal.Terminals = []config.TerminalSpec{
		{Name: "console", Type: "console", TTY: 0},
		{Name: "aux", Type: "virtual", TTY: 1},
	}
	return cfg
}

func newSystem(t *testing.T, cfg *config.Config, opts ...Option) *System {
	t.Helper()
	if cfg == nil {
		cfg = testConfig()
	}
	s, err := New(cfg, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := s.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	t.Cleanup(func() { _ = s.Shutdown() })
	return s
}

// typeText injects make and break codes for every character of text.
func typeText(t *testing.T, s *System, text string) {
	t.Helper()
	for i := 0; i < len(text); i++ {
		code, shift, ok := scancode.Encode(text[i])
		if !ok {
			t.Fatalf("no scancode for %q", text[i])
		}
		var seq []byte
		if shift {
			seq = append(seq, scancode.CodeLeftShift)
		}
		seq = append(seq, code, code|scancode.ReleaseBit)
		if shift {
			seq = append(seq, scancode.CodeLeftShift|scancode.ReleaseBit)
		}
		if err := s.InjectScancodes(seq...); err != nil {
			t.Fatalf("InjectScancodes: %v", err)
		}
	}
}

func TestInit(t *testing.T) {
	s := newSystem(t, nil)

	if got := s.Terminals().Count(); got != 2 {
		t.Errorf("Count() = %d, want 2", got)
	}
	focused := s.Terminals().Focused()
	if focused == nil || focused.Name() != "console" {
		t.Fatalf("Focused() = %v, want console", focused)
	}
	if got := len(s.TTYs().List()); got != 4 {
		t.Errorf("registered ttys = %d, want 4", got)
	}
	if !s.Bus().Scanning() {
		t.Error("keyboard scanning should be enabled")
	}
	if w, h := s.Screen().Size(); w != 20 || h != 5 {
		t.Errorf("screen size = %dx%d, want 20x5", w, h)
	}
	if got := s.Events().Count(terminal.EventCreated); got != 2 {
		t.Errorf("created events = %d, want 2", got)
	}
}

func TestInitTwice(t *testing.T) {
	s := newSystem(t, nil)
	if err := s.Init(); !errors.Is(err, ErrAlreadyInitialized) {
		t.Errorf("second Init = %v, want ErrAlreadyInitialized", err)
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.TTY.Count = 0
	if _, err := New(cfg); !errors.Is(err, config.ErrValidationFailed) {
		t.Errorf("New = %v, want ErrValidationFailed", err)
	}
}

func TestNewDefaultConfig(t *testing.T) {
	s, err := New(nil)
	if err != nil {
		t.Fatalf("New(nil): %v", err)
	}
	if w, h := s.Screen().Size(); w != display.DefaultWidth || h != display.DefaultHeight {
		t.Errorf("screen size = %dx%d", w, h)
	}
	if err := s.InjectScancodes(0x1E); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("InjectScancodes before Init = %v, want ErrNotInitialized", err)
	}
}

func TestTypingReachesTerminal(t *testing.T) {
	s := newSystem(t, nil)
	typeText(t, s, "ls -l\n")

	focused := s.Terminals().Focused()
	buf := make([]byte, 32)
	n, err := s.Terminals().Read(focused, buf)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got := string(buf[:n]); got != "ls -l\n" {
		t.Errorf("Read = %q, want %q", got, "ls -l\n")
	}
	if got := s.Screen().Row(0); got != "ls -l" {
		t.Errorf("echoed row = %q, want %q", got, "ls -l")
	}
	if got := s.Keyboard().Stats().Events; got != 12 {
		t.Errorf("keyboard events = %d, want 12", got)
	}
}

func TestShiftedTyping(t *testing.T) {
	s := newSystem(t, nil)
	typeText(t, s, "Hi!\n")

	buf := make([]byte, 8)
	n, _ := s.Terminals().Read(s.Terminals().Focused(), buf)
	if got := string(buf[:n]); got != "Hi!\n" {
		t.Errorf("Read = %q, want %q", got, "Hi!\n")
	}
}

func TestAltFunctionKeySwitches(t *testing.T) {
	s := newSystem(t, nil)
	f2 := scancode.CodeF1 + 1
	if err := s.InjectScancodes(scancode.CodeAlt, f2, f2|scancode.ReleaseBit, scancode.CodeAlt|scancode.ReleaseBit); err != nil {
		t.Fatalf("InjectScancodes: %v", err)
	}
	if got := s.Terminals().Focused(); got == nil || got.Name() != "aux" {
		t.Fatalf("Focused() = %v, want aux", got)
	}
	if got := s.TTYs().Current(); got != 1 {
		t.Errorf("Current() = %d, want 1", got)
	}

	typeText(t, s, "x\n")
	buf := make([]byte, 8)
	n, _ := s.Terminals().Read(s.Terminals().Focused(), buf)
	if got := string(buf[:n]); got != "x\n" {
		t.Errorf("aux Read = %q, want %q", got, "x\n")
	}

	// F8 has no terminal.
	f8 := scancode.CodeF1 + 7
	_ = s.InjectScancodes(scancode.CodeAlt, f8, f8|scancode.ReleaseBit, scancode.CodeAlt|scancode.ReleaseBit)
	if got := s.Terminals().Focused(); got == nil || got.Name() != "aux" {
		t.Errorf("Focused() after Alt+F8 = %v, want aux", got)
	}
}

func TestSwitchTo(t *testing.T) {
	s := newSystem(t, nil)
	if err := s.SwitchTo(1); err != nil {
		t.Fatalf("SwitchTo(1): %v", err)
	}
	if err := s.SwitchTo(5); !errors.Is(err, terminal.ErrNotFound) {
		t.Errorf("SwitchTo(5) = %v, want ErrNotFound", err)
	}
}

func TestEscapeOutput(t *testing.T) {
	s := newSystem(t, nil)
	focused := s.Terminals().Focused()
	if _, err := s.Terminals().Write(focused, []byte("\x1b[31mhi")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	cell, ok := s.Screen().Cell(0, 0)
	if !ok || cell.Char != 'h' {
		t.Fatalf("Cell(0,0) = %+v", cell)
	}
	if got := cell.Attr.Foreground(); got != display.Blue {
		t.Errorf("foreground = %v, want %v", got, display.Blue)
	}
}

func TestSignals(t *testing.T) {
	var mu sync.Mutex
	var got []tty.Signal
	s := newSystem(t, nil, WithSignalHandler(tty.SignalHandlerFunc(func(minor int, sig tty.Signal) {
		mu.Lock()
		defer mu.Unlock()
		if minor == 0 {
			got = append(got, sig)
		}
	})))

	c, _, _ := scancode.Encode('c')
	if err := s.InjectScancodes(scancode.CodeCtrl, c, c|scancode.ReleaseBit, scancode.CodeCtrl|scancode.ReleaseBit); err != nil {
		t.Fatalf("InjectScancodes: %v", err)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(got) != 1 || got[0] != tty.SignalInterrupt {
		t.Errorf("signals = %v, want [SIGINT]", got)
	}
}

func TestNumLockLED(t *testing.T) {
	cfg := testConfig()
	cfg.Keyboard.NumLock = true
	s := newSystem(t, cfg)
	if got := s.Bus().LEDs(); got != scancode.LEDNumLock {
		t.Errorf("LEDs = %#x, want %#x", got, scancode.LEDNumLock)
	}
}

func TestRepeatRate(t *testing.T) {
	cfg := testConfig()
	cfg.Keyboard.RepeatDelay = 1
	cfg.Keyboard.RepeatRate = 4
	s := newSystem(t, cfg)
	if got := s.Bus().RepeatRate(); got != 1<<5|4 {
		t.Errorf("RepeatRate = %#x, want %#x", got, 1<<5|4)
	}
}

func TestRawMode(t *testing.T) {
	cfg := testConfig()
	cfg.TTY.Mode = "raw"
	s := newSystem(t, cfg)
	mode, err := s.TTYs().Mode(0)
	if err != nil || mode != tty.ModeRaw {
		t.Errorf("Mode(0) = %v, %v; want raw", mode, err)
	}
}

func TestApply(t *testing.T) {
	s := newSystem(t, nil)

	cfg := testConfig()
	cfg.TTY.Echo = false
	cfg.Terminal.Bell = false
	if err := s.Apply(cfg); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	for _, minor := range []int{0, 1} {
		tc, err := s.TTYs().Config(minor)
		if err != nil {
			t.Fatalf("Config(%d): %v", minor, err)
		}
		if tc.Echo {
			t.Errorf("tty%d echo still on", minor)
		}
	}
	f, err := s.Terminals().Features(s.Terminals().Focused())
	if err != nil {
		t.Fatalf("Features: %v", err)
	}
	if f.BellEnabled {
		t.Error("bell still enabled")
	}
	if !f.CursorVisible {
		t.Error("Apply should keep cursor visibility")
	}
	if s.Config() != cfg {
		t.Error("Config() should return the applied configuration")
	}

	bad := testConfig()
	bad.Display.Width = 0
	if err := s.Apply(bad); !errors.Is(err, config.ErrValidationFailed) {
		t.Errorf("Apply(bad) = %v, want ErrValidationFailed", err)
	}
}

func TestShutdown(t *testing.T) {
	s := newSystem(t, nil)
	if err := s.Shutdown(); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if err := s.Shutdown(); err != nil {
		t.Errorf("second Shutdown: %v", err)
	}
	for _, info := range s.TTYs().List() {
		if info.State != tty.StateClosed {
			t.Errorf("%s state = %v after shutdown", info.Name, info.State)
		}
	}
	if err := s.InjectScancodes(0x1E); !errors.Is(err, ErrShutdown) {
		t.Errorf("InjectScancodes after shutdown = %v, want ErrShutdown", err)
	}
	if err := s.Init(); !errors.Is(err, ErrShutdown) {
		t.Errorf("Init after shutdown = %v, want ErrShutdown", err)
	}
	if got := s.Events().Count(terminal.EventDestroyed); got != 2 {
		t.Errorf("destroyed events = %d, want 2", got)
	}
}

func TestExternalHardware(t *testing.T) {
	pic := hal.NewPIC()
	bus := hal.NewBus(pic)
	s := newSystem(t, nil, WithHardware(bus, pic))
	if s.Bus() != nil {
		t.Error("Bus() should be nil on external hardware")
	}
	if err := s.InjectScancodes(0x1E); !errors.Is(err, ErrNoBus) {
		t.Errorf("InjectScancodes = %v, want ErrNoBus", err)
	}

	bus.InjectScancode(0x1E, 0x9E, scancode.CodeEnter, scancode.CodeEnter|scancode.ReleaseBit)
	buf := make([]byte, 4)
	n, _ := s.Terminals().Read(s.Terminals().Focused(), buf)
	if got := string(buf[:n]); got != "a\n" {
		t.Errorf("Read = %q, want %q", got, "a\n")
	}
}

func TestEventSubscribers(t *testing.T) {
	s := newSystem(t, nil)
	var events []string
	s.Events().Subscribe(func(eventType string, data map[string]any) {
		events = append(events, eventType)
	})
	if err := s.Terminals().Bell(s.Terminals().Focused()); err != nil {
		t.Fatalf("Bell: %v", err)
	}
	if len(events) != 1 || events[0] != terminal.EventBell {
		t.Errorf("events = %v, want [%s]", events, terminal.EventBell)
	}
}
