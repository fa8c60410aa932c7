package terminal

import (
	"errors"
	"reflect"
	"testing"

	"github.com/google/uuid"

	"github.com/dshills/ttycore/internal/display"
	"github.com/dshills/ttycore/internal/tty"
)

type recordingPublisher struct {
	events []string
}

func (p *recordingPublisher) Publish(eventType string, data map[string]any) {
	p.events = append(p.events, eventType)
}

func newTestRegistry(t *testing.T, opts ...RegistryOption) (*Registry, *tty.Manager, *display.Surface) {
	t.Helper()
	screen := display.New(display.WithSize(20, 5))
	ttys := tty.NewManager(tty.WithMaxDevices(4))
	opts = append([]RegistryOption{
		WithBackend(tty.NewConsole(screen)),
		WithScreen(screen),
	}, opts...)
	return NewRegistry(ttys, opts...), ttys, screen
}

func mustCreate(t *testing.T, r *Registry, name string, minor int) *Terminal {
	t.Helper()
	term, err := r.Create(name, TypeConsole, minor)
	if err != nil {
		t.Fatalf("Create(%s): %v", name, err)
	}
	return term
}

func mustWrite(t *testing.T, r *Registry, term *Terminal, s string) {
	t.Helper()
	n, err := r.Write(term, []byte(s))
	if err != nil {
		t.Fatalf("Write(%q): %v", s, err)
	}
	if n != len(s) {
		t.Fatalf("Write(%q) = %d", s, n)
	}
}

func TestCreateFirstTerminalIsFocused(t *testing.T) {
	r, ttys, _ := newTestRegistry(t)
	console := mustCreate(t, r, "console", 0)

	if _, err := uuid.Parse(console.ID()); err != nil {
		t.Errorf("expected uuid id, got %q", console.ID())
	}
	if r.Active() != console || r.Focused() != console {
		t.Error("first terminal should be active and focused")
	}
	info, _ := r.Info(console)
	if info.State != StateFocused || info.Width != 20 || info.Height != 5 {
		t.Errorf("unexpected info %+v", info)
	}
	if state, _ := ttys.State(0); state != tty.StateReady {
		t.Errorf("expected tty0 ready, got %v", state)
	}
	if ttys.Current() != 0 {
		t.Errorf("expected tty0 current, got %d", ttys.Current())
	}

	second := mustCreate(t, r, "second", 1)
	if info, _ := r.Info(second); info.State != StateActive {
		t.Errorf("expected second terminal active, got %v", info.State)
	}
	if state, _ := ttys.State(1); state != tty.StateOpen {
		t.Errorf("expected tty1 open, got %v", state)
	}
}

func TestCreateErrors(t *testing.T) {
	r, _, _ := newTestRegistry(t, WithSlots(2))
	mustCreate(t, r, "a", 0)

	if _, err := r.Create("", TypeConsole, 1); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument for empty name, got %v", err)
	}
	if _, err := r.Create("x", TypeConsole, 9); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument for bad minor, got %v", err)
	}
	if _, err := r.Create("dup", TypeConsole, 0); !errors.Is(err, ErrBusy) {
		t.Errorf("expected ErrBusy for bound minor, got %v", err)
	}
	mustCreate(t, r, "b", 1)
	if _, err := r.Create("c", TypeConsole, 2); !errors.Is(err, ErrNoSlot) {
		t.Errorf("expected ErrNoSlot, got %v", err)
	}
}

func TestCreateRollback(t *testing.T) {
	pub := &recordingPublisher{}
	r, ttys, _ := newTestRegistry(t, WithEventPublisher(pub))
	mustCreate(t, r, "console", 0)

	second := mustCreate(t, r, "second", 1)
	r.mu.Lock()
	r.abandonLocked(second, true)
	r.mu.Unlock()

	if state, _ := ttys.State(1); state != tty.StateClosed {
		t.Errorf("device opened by Create should be closed, got %v", state)
	}
	if r.FindByName("second") != nil {
		t.Error("abandoned terminal still registered")
	}
	if got := pub.events[len(pub.events)-1]; got != EventDestroyed {
		t.Errorf("expected created event to be retracted, last event %s", got)
	}

	if err := ttys.Register("tty3", 3, r.backend); err != nil {
		t.Fatal(err)
	}
	if err := ttys.Open(3); err != nil {
		t.Fatal(err)
	}
	r.mu.Lock()
	opened, err := r.attachLocked(3)
	r.mu.Unlock()
	if err != nil || opened {
		t.Fatalf("attachLocked on open device = %v, %v; want false, nil", opened, err)
	}
	third := mustCreate(t, r, "third", 3)
	r.mu.Lock()
	r.abandonLocked(third, false)
	r.mu.Unlock()
	if state, _ := ttys.State(3); state == tty.StateClosed {
		t.Error("device opened elsewhere was closed by rollback")
	}
}

func TestCreateWithoutBackend(t *testing.T) {
	ttys := tty.NewManager()
	r := NewRegistry(ttys)
	if _, err := r.Create("console", TypeConsole, 0); !errors.Is(err, tty.ErrInvalidArgument) {
		t.Errorf("expected unregistered device error, got %v", err)
	}
	if r.Count() != 0 {
		t.Errorf("failed create should not take a slot")
	}
}

func TestWritePlainText(t *testing.T) {
	r, _, screen := newTestRegistry(t)
	term := mustCreate(t, r, "console", 0)
	mustWrite(t, r, term, "hello\nworld")
	if screen.Row(0) != "hello" || screen.Row(1) != "world" {
		t.Errorf("unexpected screen %q", screen.Text())
	}
}

func TestWriteClearScreen(t *testing.T) {
	r, _, screen := newTestRegistry(t)
	term := mustCreate(t, r, "console", 0)
	mustWrite(t, r, term, "xyz")
	mustWrite(t, r, term, "\x1b[2J")

	if got := screen.Text(); got != "\n\n\n\n" {
		t.Errorf("expected blank screen, got %q", got)
	}
	if x, y := screen.Cursor(); x != 0 || y != 0 {
		t.Errorf("expected cursor (0,0), got (%d,%d)", x, y)
	}
}

func TestWriteCursorPosition(t *testing.T) {
	r, _, screen := newTestRegistry(t)
	term := mustCreate(t, r, "console", 0)
	mustWrite(t, r, term, "\x1b[5;10H")

	pos, _ := r.Cursor(term)
	if pos != (tty.Position{X: 9, Y: 4}) {
		t.Errorf("expected (9,4), got %+v", pos)
	}
	if x, y := screen.Cursor(); x != 9 || y != 4 {
		t.Errorf("expected screen cursor (9,4), got (%d,%d)", x, y)
	}

	mustWrite(t, r, term, "X")
	if c, _ := screen.Cell(9, 4); c.Char != 'X' {
		t.Errorf("expected X at (9,4), got %q", c.Char)
	}
}

func TestWriteCursorClamping(t *testing.T) {
	r, _, _ := newTestRegistry(t)
	term := mustCreate(t, r, "console", 0)

	tests := []struct {
		seq  string
		want tty.Position
	}{
		{"\x1b[99;99H", tty.Position{X: 19, Y: 4}},
		{"\x1b[10A", tty.Position{X: 19, Y: 0}},
		{"\x1b[3D", tty.Position{X: 16, Y: 0}},
		{"\x1b[9C", tty.Position{X: 19, Y: 0}},
		{"\x1b[2B", tty.Position{X: 19, Y: 2}},
		{"\x1b[0;0H", tty.Position{X: 0, Y: 0}},
		{"\x1b[9223372036854775807C", tty.Position{X: 19, Y: 0}},
		{"\x1b[9223372036854775807B", tty.Position{X: 19, Y: 4}},
		{"\x1b[9223372036854775807D", tty.Position{X: 0, Y: 4}},
	}
	for _, tt := range tests {
		mustWrite(t, r, term, tt.seq)
		if pos, _ := r.Cursor(term); pos != tt.want {
			t.Errorf("%q: expected %+v, got %+v", tt.seq, tt.want, pos)
		}
	}
}

func TestWriteEscapeNotRendered(t *testing.T) {
	r, _, screen := newTestRegistry(t)
	term := mustCreate(t, r, "console", 0)
	mustWrite(t, r, term, "a\x1b[1Cb")
	if got := screen.Row(0); got != "a b" {
		t.Errorf("expected %q, got %q", "a b", got)
	}

	mustWrite(t, r, term, "\x1b[")
	mustWrite(t, r, term, "2J")
	if got := screen.Row(0); got != "" {
		t.Errorf("split sequence should clear, got %q", got)
	}
}

func TestWriteColors(t *testing.T) {
	r, _, screen := newTestRegistry(t)
	term := mustCreate(t, r, "console", 0)

	// Parameters index the VGA palette directly.
	mustWrite(t, r, term, "\x1b[31;44mX\x1b[0mY\x1b[47mZ")

	cx, _ := screen.Cell(0, 0)
	cy, _ := screen.Cell(1, 0)
	cz, _ := screen.Cell(2, 0)
	if want := display.MakeAttr(display.Blue, display.Red); cx.Attr != want {
		t.Errorf("X: expected attr %#x, got %#x", want, cx.Attr)
	}
	if cy.Attr != display.DefaultAttr {
		t.Errorf("Y: expected default attr, got %#x", cy.Attr)
	}
	if want := display.MakeAttr(display.LightGrey, display.LightGrey); cz.Attr != want {
		t.Errorf("Z: expected attr %#x, got %#x", want, cz.Attr)
	}

	info, _ := r.Info(term)
	if info.DefaultFG != display.LightGrey || info.DefaultBG != display.Black {
		t.Errorf("SGR must not change defaults, got %v/%v", info.DefaultFG, info.DefaultBG)
	}
}

func TestSetColorsChangesDefaults(t *testing.T) {
	r, _, screen := newTestRegistry(t)
	term := mustCreate(t, r, "console", 0)
	if err := r.SetColors(term, display.White, display.Blue); err != nil {
		t.Fatal(err)
	}
	mustWrite(t, r, term, "\x1b[32m\x1b[0mA")
	c, _ := screen.Cell(0, 0)
	if c.Attr != display.MakeAttr(display.White, display.Blue) {
		t.Errorf("reset should restore the terminal defaults, got %#x", c.Attr)
	}
	if err := r.SetColors(term, display.Color(20), display.Blue); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestBell(t *testing.T) {
	pub := &recordingPublisher{}
	r, _, screen := newTestRegistry(t, WithEventPublisher(pub))
	term := mustCreate(t, r, "console", 0)

	mustWrite(t, r, term, "\a")
	if info, _ := r.Info(term); info.Bells != 1 {
		t.Errorf("expected 1 bell, got %d", info.Bells)
	}
	if screen.Row(0) != "" {
		t.Error("BEL should not render")
	}

	f := DefaultFeatures()
	f.BellEnabled = false
	_ = r.SetFeatures(term, f)
	if err := r.Bell(term); !errors.Is(err, ErrBellDisabled) {
		t.Errorf("expected ErrBellDisabled, got %v", err)
	}
	mustWrite(t, r, term, "\a")
	if info, _ := r.Info(term); info.Bells != 1 {
		t.Errorf("disabled bell should not ring, got %d", info.Bells)
	}

	found := false
	for _, e := range pub.events {
		if e == EventBell {
			found = true
		}
	}
	if !found {
		t.Errorf("expected bell event in %v", pub.events)
	}
}

func TestSwitchTo(t *testing.T) {
	r, ttys, screen := newTestRegistry(t)
	t0 := mustCreate(t, r, "console", 0)
	t1 := mustCreate(t, r, "second", 1)

	mustWrite(t, r, t0, "one")
	if err := r.SwitchTo(t1); err != nil {
		t.Fatal(err)
	}

	if info, _ := r.Info(t0); info.State != StateActive {
		t.Errorf("previous terminal should be active, got %v", info.State)
	}
	if info, _ := r.Info(t1); info.State != StateFocused {
		t.Errorf("target should be focused, got %v", info.State)
	}
	if r.Active() != t1 || r.Focused() != t1 {
		t.Error("indices not updated")
	}
	if state, _ := ttys.State(1); state != tty.StateReady {
		t.Errorf("expected tty1 ready, got %v", state)
	}
	if screen.Row(0) != "" {
		t.Errorf("expected blank screen for new terminal, got %q", screen.Row(0))
	}

	mustWrite(t, r, t1, "two")
	_ = r.SwitchTo(t0)
	if got := screen.Row(0); got != "one" {
		t.Errorf("expected %q restored, got %q", "one", got)
	}
}

func TestSwitchToOpensClosedDevice(t *testing.T) {
	r, ttys, _ := newTestRegistry(t)
	mustCreate(t, r, "console", 0)
	t1 := mustCreate(t, r, "second", 1)
	_ = ttys.Close(1)

	if err := r.SwitchTo(t1); err != nil {
		t.Fatal(err)
	}
	if state, _ := ttys.State(1); state != tty.StateReady {
		t.Errorf("expected device opened and ready, got %v", state)
	}
	if info, _ := r.Info(t1); info.State != StateFocused {
		t.Errorf("expected focused, got %v", info.State)
	}
}

func TestWriteBackgroundNotReady(t *testing.T) {
	r, _, _ := newTestRegistry(t)
	mustCreate(t, r, "console", 0)
	t1 := mustCreate(t, r, "second", 1)
	n, err := r.Write(t1, []byte("x"))
	if !errors.Is(err, tty.ErrNotReady) || n != 0 {
		t.Errorf("expected ErrNotReady, got %d, %v", n, err)
	}
}

func TestDestroy(t *testing.T) {
	pub := &recordingPublisher{}
	r, ttys, _ := newTestRegistry(t, WithEventPublisher(pub))
	t0 := mustCreate(t, r, "console", 0)
	t1 := mustCreate(t, r, "second", 1)

	if err := r.Destroy(t0); !errors.Is(err, ErrBusy) {
		t.Errorf("expected ErrBusy destroying focused terminal, got %v", err)
	}
	if err := r.Destroy(t1); err != nil {
		t.Fatal(err)
	}
	if state, _ := ttys.State(1); state != tty.StateClosed {
		t.Errorf("expected tty1 closed, got %v", state)
	}
	if r.FindByName("second") != nil {
		t.Error("destroyed terminal still found")
	}
	if _, err := r.Write(t1, []byte("x")); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound on stale handle, got %v", err)
	}
	if err := r.Destroy(t1); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	again := mustCreate(t, r, "second", 1)
	if again.ID() == t1.ID() {
		t.Error("recreated terminal should get a new id")
	}
	if info, _ := r.Info(again); info.Slot != 1 {
		t.Errorf("expected slot reuse, got %d", info.Slot)
	}
	if pub.events[len(pub.events)-1] != EventCreated {
		t.Errorf("unexpected events %v", pub.events)
	}
}

func TestFind(t *testing.T) {
	r, _, _ := newTestRegistry(t)
	t0 := mustCreate(t, r, "console", 0)
	t1 := mustCreate(t, r, "serial", 2)

	if r.FindByName("serial") != t1 || r.FindByName("nope") != nil {
		t.Error("FindByName")
	}
	if r.FindByTTY(0) != t0 || r.FindByTTY(1) != nil {
		t.Error("FindByTTY")
	}
	if r.FindByID(t1.ID()) != t1 {
		t.Error("FindByID")
	}
	list := r.List()
	if len(list) != 2 || list[0].Name != "console" || list[1].Minor != 2 {
		t.Errorf("unexpected list %+v", list)
	}
}

func TestSetFocus(t *testing.T) {
	r, _, _ := newTestRegistry(t)
	t0 := mustCreate(t, r, "console", 0)
	t1 := mustCreate(t, r, "second", 1)

	if err := r.SetFocus(t1); err != nil {
		t.Fatal(err)
	}
	if r.Focused() != t1 || r.Active() != t0 {
		t.Error("SetFocus should move focus only")
	}
	for _, tt := range []struct {
		term *Terminal
		want State
	}{
		{t0, StateActive},
		{t1, StateFocused},
	} {
		if info, _ := r.Info(tt.term); info.State != tt.want {
			t.Errorf("%s: expected state %v, got %v", tt.term.Name(), tt.want, info.State)
		}
	}
	if err := r.Destroy(t1); !errors.Is(err, ErrBusy) {
		t.Errorf("expected ErrBusy destroying focused terminal, got %v", err)
	}
}

func TestSuspendResume(t *testing.T) {
	r, _, _ := newTestRegistry(t)
	t0 := mustCreate(t, r, "console", 0)
	t1 := mustCreate(t, r, "second", 1)

	if err := r.Suspend(t0); !errors.Is(err, ErrBusy) {
		t.Errorf("expected ErrBusy suspending active terminal, got %v", err)
	}
	if err := r.Suspend(t1); err != nil {
		t.Fatal(err)
	}
	if _, err := r.Write(t1, []byte("x")); !errors.Is(err, ErrSuspended) {
		t.Errorf("expected ErrSuspended, got %v", err)
	}
	if err := r.SwitchTo(t1); !errors.Is(err, ErrSuspended) {
		t.Errorf("expected ErrSuspended, got %v", err)
	}
	_ = r.Resume(t1)
	if info, _ := r.Info(t1); info.State != StateActive {
		t.Errorf("expected active after resume, got %v", info.State)
	}
}

func TestSetSize(t *testing.T) {
	r, _, _ := newTestRegistry(t)
	term := mustCreate(t, r, "console", 0)
	if err := r.SetSize(term, 0, 5); !errors.Is(err, ErrInvalidSize) {
		t.Errorf("expected ErrInvalidSize, got %v", err)
	}
	_ = r.SetSize(term, 10, 3)
	mustWrite(t, r, term, "\x1b[99;99H")
	if pos, _ := r.Cursor(term); pos != (tty.Position{X: 9, Y: 2}) {
		t.Errorf("expected (9,2), got %+v", pos)
	}
	_ = r.MoveCursor(term, 50, 1)
	if pos, _ := r.Cursor(term); pos != (tty.Position{X: 9, Y: 1}) {
		t.Errorf("expected (9,1), got %+v", pos)
	}
	if err := r.MoveCursor(term, -1, 0); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestCursorVisibility(t *testing.T) {
	r, _, screen := newTestRegistry(t)
	term := mustCreate(t, r, "console", 0)
	_ = r.HideCursor(term)
	if screen.CursorVisible() {
		t.Error("expected hidden cursor")
	}
	if f, _ := r.Features(term); f.CursorVisible {
		t.Error("expected feature flag cleared")
	}
	_ = r.ShowCursor(term)
	if !screen.CursorVisible() {
		t.Error("expected visible cursor")
	}
}

func TestClearScreen(t *testing.T) {
	r, _, screen := newTestRegistry(t)
	term := mustCreate(t, r, "console", 0)
	mustWrite(t, r, term, "junk")
	_ = r.ClearScreen(term)
	if screen.Row(0) != "" {
		t.Errorf("expected blank row, got %q", screen.Row(0))
	}
}

func TestReadAndPrintf(t *testing.T) {
	r, ttys, screen := newTestRegistry(t)
	term := mustCreate(t, r, "console", 0)

	for _, c := range []byte("hi\n") {
		_ = ttys.InputChar(0, c)
	}
	buf := make([]byte, 16)
	n, err := r.Read(term, buf)
	if err != nil || string(buf[:n]) != "hi\n" {
		t.Errorf("Read = %q, %v", buf[:n], err)
	}

	if _, err := r.Printf(term, "\x1b[2J%s=%d", "n", 7); err != nil {
		t.Fatal(err)
	}
	if got := screen.Row(0); got != "n=7" {
		t.Errorf("expected %q, got %q", "n=7", got)
	}
}

func TestHistoryCapturesScrolledRows(t *testing.T) {
	r, _, _ := newTestRegistry(t)
	term := mustCreate(t, r, "console", 0)
	for _, line := range []string{"l0", "l1", "l2", "l3", "l4", "l5", "l6"} {
		mustWrite(t, r, term, line+"\n")
	}
	h, _ := r.History(term)
	if got := h.Lines(); !reflect.DeepEqual(got, []string{"l0", "l1", "l2"}) {
		t.Errorf("unexpected history %q", got)
	}
}

func TestHistoryDisabled(t *testing.T) {
	f := DefaultFeatures()
	f.HistoryEnabled = false
	r, _, _ := newTestRegistry(t, WithFeatures(f))
	term := mustCreate(t, r, "console", 0)
	for i := 0; i < 8; i++ {
		mustWrite(t, r, term, "x\n")
	}
	if h, _ := r.History(term); h.Len() != 0 {
		t.Errorf("expected empty history, got %d lines", h.Len())
	}
}

func TestStateEvents(t *testing.T) {
	pub := &recordingPublisher{}
	r, _, _ := newTestRegistry(t, WithEventPublisher(pub))
	t0 := mustCreate(t, r, "console", 0)
	t1 := mustCreate(t, r, "second", 1)
	_ = r.SwitchTo(t1)
	_ = r.SwitchTo(t0)

	want := []string{
		EventCreated, EventStateChanged,
		EventCreated,
		EventStateChanged, EventStateChanged,
		EventStateChanged, EventStateChanged,
	}
	if !reflect.DeepEqual(pub.events, want) {
		t.Errorf("expected %v, got %v", want, pub.events)
	}
}

func TestClose(t *testing.T) {
	r, ttys, _ := newTestRegistry(t)
	t0 := mustCreate(t, r, "console", 0)
	mustCreate(t, r, "second", 1)

	if err := r.Close(); err != nil {
		t.Fatal(err)
	}
	for minor := 0; minor < 2; minor++ {
		if state, _ := ttys.State(minor); state != tty.StateClosed {
			t.Errorf("tty%d: expected closed, got %v", minor, state)
		}
	}
	if _, err := r.Create("x", TypeConsole, 2); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
	if _, err := r.Write(t0, []byte("x")); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
	if r.Active() != nil {
		t.Error("expected no active terminal")
	}
}

func TestParseType(t *testing.T) {
	if typ, err := ParseType("Serial"); err != nil || typ != TypeSerial {
		t.Errorf("ParseType = %v, %v", typ, err)
	}
	if _, err := ParseType("pigeon"); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument, got %v", err)
	}
}
