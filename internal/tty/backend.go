package tty

import "github.com/dshills/ttycore/internal/display"

// Backend renders a device's processed output. Each device kind supplies
// its own implementation at registration time. Methods are called with the
// manager locked and must not call back into it.
type Backend interface {
	// Kind names the device kind, e.g. "console".
	Kind() string
	// Put renders b and returns the cursor afterwards.
	Put(d *Device, b byte) (Position, error)
	// Clear blanks the device screen and returns the cursor afterwards.
	Clear(d *Device) Position
	// MoveCursor moves the cursor and returns the clamped position.
	MoveCursor(d *Device, pos Position) Position
	// SetColors changes the drawing colors.
	SetColors(d *Device, fg, bg display.Color)
	// SetCursorVisible shows or hides the cursor.
	SetCursorVisible(d *Device, visible bool)
	// Activate binds the device to the display.
	Activate(d *Device)
	// Deactivate unbinds the device from the display.
	Deactivate(d *Device)
	// Release drops any state held for the device.
	Release(d *Device)
}

// Console renders devices onto a shared display surface. The foreground
// device draws on the surface directly; every other device draws on a
// private off-screen surface that is copied in when it is activated.
type Console struct {
	screen  *display.Surface
	shadows map[int]*display.Surface
}

// NewConsole creates a console backend for screen.
func NewConsole(screen *display.Surface) *Console {
	return &Console{
		screen:  screen,
		shadows: make(map[int]*display.Surface),
	}
}

// Kind implements Backend.
func (c *Console) Kind() string { return "console" }

// Screen returns the physical display surface.
func (c *Console) Screen() *display.Surface { return c.screen }

func (c *Console) surface(d *Device) *display.Surface {
	if d.IsForeground() {
		return c.screen
	}
	s, ok := c.shadows[d.Minor()]
	if !ok {
		fg, bg := d.Colors()
		w, h := c.screen.Size()
		s = display.New(display.WithSize(w, h), display.WithAttr(display.MakeAttr(fg, bg)))
		pos := d.Cursor()
		s.SetCursor(pos.X, pos.Y)
		c.shadows[d.Minor()] = s
	}
	return s
}

func cursorOf(s *display.Surface) Position {
	x, y := s.Cursor()
	return Position{X: x, Y: y}
}

// Put implements Backend.
func (c *Console) Put(d *Device, b byte) (Position, error) {
	s := c.surface(d)
	s.PutChar(b)
	return cursorOf(s), nil
}

// Clear implements Backend.
func (c *Console) Clear(d *Device) Position {
	s := c.surface(d)
	s.Clear()
	return cursorOf(s)
}

// MoveCursor implements Backend.
func (c *Console) MoveCursor(d *Device, pos Position) Position {
	s := c.surface(d)
	s.SetCursor(pos.X, pos.Y)
	return cursorOf(s)
}

// SetColors implements Backend.
func (c *Console) SetColors(d *Device, fg, bg display.Color) {
	c.surface(d).SetColor(fg, bg)
}

// SetCursorVisible implements Backend.
func (c *Console) SetCursorVisible(d *Device, visible bool) {
	s := c.surface(d)
	if visible {
		s.ShowCursor()
	} else {
		s.HideCursor()
	}
}

// Activate copies the device's off-screen contents onto the display.
func (c *Console) Activate(d *Device) {
	fg, bg := d.Colors()
	shadow, ok := c.shadows[d.Minor()]
	if !ok {
		c.screen.SetColor(fg, bg)
		c.screen.Clear()
		pos := d.Cursor()
		c.screen.SetCursor(pos.X, pos.Y)
		if d.CursorVisible() {
			c.screen.ShowCursor()
		} else {
			c.screen.HideCursor()
		}
		return
	}
	delete(c.shadows, d.Minor())
	snap := shadow.Snapshot()
	snap.Attr = display.MakeAttr(fg, bg)
	snap.X, snap.Y = d.Cursor().X, d.Cursor().Y
	snap.CursorVisible = d.CursorVisible()
	c.screen.Restore(snap)
}

// Deactivate saves the display contents off-screen for the device.
func (c *Console) Deactivate(d *Device) {
	w, h := c.screen.Size()
	shadow := display.New(display.WithSize(w, h))
	shadow.Restore(c.screen.Snapshot())
	c.shadows[d.Minor()] = shadow
}

// Release implements Backend.
func (c *Console) Release(d *Device) {
	delete(c.shadows, d.Minor())
}
