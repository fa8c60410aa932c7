package keyboard

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dshills/ttycore/internal/hal"
	"github.com/dshills/ttycore/internal/input/scancode"
)

func newTestDriver(t *testing.T, opts ...Option) (*Driver, *hal.Bus, *hal.PIC) {
	t.Helper()
	pic := hal.NewPIC()
	bus := hal.NewBus(pic)
	opts = append([]Option{WithPollLimits(50, 50)}, opts...)
	d := New(bus, pic, opts...)
	if err := d.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	d.Install(hal.KeyboardVector)
	return d, bus, pic
}

func TestDriverInit(t *testing.T) {
	_, bus, _ := newTestDriver(t)
	cmds := bus.Commands()
	want := []byte{CmdReset, CmdEnable, CmdSetLEDs}
	if len(cmds) != len(want) {
		t.Fatalf("expected commands %v, got %v", want, cmds)
	}
	for i := range want {
		if cmds[i] != want[i] {
			t.Errorf("command %d: expected %#x, got %#x", i, want[i], cmds[i])
		}
	}
	if !bus.Scanning() {
		t.Error("expected scanning enabled")
	}
}

func TestDriverInitNumLock(t *testing.T) {
	d, bus, _ := newTestDriver(t, WithModifiers(scancode.NumLock))
	if bus.LEDs() != scancode.LEDNumLock {
		t.Errorf("expected num lock LED, got %#x", bus.LEDs())
	}
	if !d.Modifiers().Has(scancode.NumLock) {
		t.Error("expected num lock modifier")
	}
}

func TestDriverInitSelfTestFailure(t *testing.T) {
	pic := hal.NewPIC()
	bus := hal.NewBus(pic)
	bus.SetResetResponse(0xFA, 0xFC)
	d := New(bus, pic, WithPollLimits(50, 50))
	if err := d.Init(); !errors.Is(err, ErrSelfTest) {
		t.Errorf("expected ErrSelfTest, got %v", err)
	}
}

func TestDriverInitTimeout(t *testing.T) {
	pic := hal.NewPIC()
	bus := hal.NewBus(pic)
	bus.SetResetResponse()
	d := New(bus, pic, WithPollLimits(50, 50))
	if err := d.Init(); !errors.Is(err, ErrTimeout) {
		t.Errorf("expected ErrTimeout, got %v", err)
	}
}

func TestDriverTranslatesKeys(t *testing.T) {
	d, bus, _ := newTestDriver(t)

	// a, shift+a
	bus.InjectScancode(0x1E, 0x9E, 0x2A, 0x1E, 0x9E, 0xAA)

	want := []struct {
		code  byte
		ascii byte
		state scancode.State
	}{
		{0x1E, 'a', scancode.Pressed},
		{0x1E, 'a', scancode.Released},
		{0x2A, 0, scancode.Pressed},
		{0x1E, 'A', scancode.Pressed},
		{0x1E, 'A', scancode.Released},
		{0x2A, 0, scancode.Released},
	}
	for i, w := range want {
		ev, err := d.ReadEvent()
		if err != nil {
			t.Fatalf("event %d: %v", i, err)
		}
		if ev.Scancode != w.code || ev.ASCII != w.ascii || ev.State != w.state {
			t.Errorf("event %d: got %v", i, ev)
		}
	}
	if d.HasEvent() {
		t.Error("expected queue drained")
	}
}

func TestDriverEventModifiersPrecedeUpdate(t *testing.T) {
	d, bus, _ := newTestDriver(t)

	bus.InjectScancode(0x2A)
	ev, _ := d.ReadEvent()
	if ev.Modifiers.Shift() {
		t.Error("shift press should report modifiers from before the press")
	}
	if !d.Modifiers().Shift() {
		t.Error("expected shift held after press")
	}
}

func TestDriverCapsLockUpdatesLEDs(t *testing.T) {
	d, bus, _ := newTestDriver(t)

	bus.InjectScancode(0x3A, 0xBA)
	if bus.LEDs() != scancode.LEDCapsLock {
		t.Errorf("expected caps LED, got %#x", bus.LEDs())
	}
	if d.LEDs() != scancode.LEDCapsLock {
		t.Errorf("expected driver LEDs caps, got %#x", d.LEDs())
	}

	d.Flush()
	bus.InjectScancode(0x1E)
	ev, _ := d.ReadEvent()
	if ev.ASCII != 'A' {
		t.Errorf("expected 'A' with caps lock, got %q", ev.ASCII)
	}

	bus.InjectScancode(0x3A)
	if bus.LEDs() != 0 {
		t.Errorf("expected LEDs off, got %#x", bus.LEDs())
	}
}

func TestDriverHandlerRunsBeforeQueue(t *testing.T) {
	d, bus, _ := newTestDriver(t)

	var seen []Event
	queuedAtCall := -1
	d.SetHandler(HandlerFunc(func(ev Event) {
		seen = append(seen, ev)
		queuedAtCall = d.queue.Len()
	}))

	bus.InjectScancode(0x10)
	if len(seen) != 1 || seen[0].ASCII != 'q' {
		t.Fatalf("handler got %v", seen)
	}
	if queuedAtCall != 0 {
		t.Errorf("handler should run before queueing, queue had %d", queuedAtCall)
	}
	if !d.HasEvent() {
		t.Error("event should still be queued")
	}

	d.RemoveHandler()
	bus.InjectScancode(0x11)
	if len(seen) != 1 {
		t.Error("removed handler was called")
	}
}

func TestDriverSpuriousInterrupt(t *testing.T) {
	d, _, pic := newTestDriver(t)
	pic.Raise(hal.KeyboardVector)
	if d.Stats().Spurious != 1 {
		t.Errorf("expected 1 spurious interrupt, got %d", d.Stats().Spurious)
	}
	if d.HasEvent() {
		t.Error("spurious interrupt produced an event")
	}
}

func TestDriverUninstall(t *testing.T) {
	d, bus, _ := newTestDriver(t)
	d.Uninstall()
	bus.InjectScancode(0x1E)
	if d.HasEvent() {
		t.Error("uninstalled driver received an event")
	}
}

func TestDriverWaitEvent(t *testing.T) {
	d, bus, _ := newTestDriver(t)
	bus.InjectScancode(0x1E)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	ev, err := d.WaitEvent(ctx)
	if err != nil || ev.ASCII != 'a' {
		t.Errorf("WaitEvent = %v, %v", ev, err)
	}

	cancel()
	if _, err := d.WaitEvent(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestControllerRepeatRate(t *testing.T) {
	bus := hal.NewBus(nil)
	c := NewController(bus, nil, 10, 10)

	if err := c.SetRepeatRate(1, 11); err != nil {
		t.Fatalf("SetRepeatRate: %v", err)
	}
	if bus.RepeatRate() != 1<<5|11 {
		t.Errorf("expected %#x, got %#x", 1<<5|11, bus.RepeatRate())
	}

	tests := []struct{ delay, rate uint8 }{{4, 0}, {0, 32}}
	for _, tt := range tests {
		if err := c.SetRepeatRate(tt.delay, tt.rate); !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("SetRepeatRate(%d, %d) = %v, want ErrInvalidArgument", tt.delay, tt.rate, err)
		}
	}
}

func TestControllerTimeout(t *testing.T) {
	bus := hal.NewBus(nil)
	bus.SetInputBusy(true)
	pauses := 0
	c := NewController(bus, hal.PauseFunc(func() { pauses++ }), 25, 10)

	if err := c.SetLEDs(0x07); !errors.Is(err, ErrTimeout) {
		t.Errorf("expected ErrTimeout, got %v", err)
	}
	if pauses != 25 {
		t.Errorf("expected 25 polls, got %d", pauses)
	}
	if err := c.Enable(); !errors.Is(err, ErrTimeout) {
		t.Errorf("expected ErrTimeout from Enable, got %v", err)
	}
}
