package display

import "github.com/dshills/ttycore/internal/hal"

// CursorDevice is the hardware cursor a Surface keeps in sync.
type CursorDevice interface {
	SetCursorOffset(offset uint16)
	SetCursorVisible(visible bool)
}

// CRTC drives the VGA hardware cursor through the CRT controller registers.
type CRTC struct {
	io hal.PortIO
}

// NewCRTC returns a cursor device on io.
func NewCRTC(io hal.PortIO) *CRTC {
	return &CRTC{io: io}
}

// SetCursorOffset moves the cursor to a linear cell offset.
func (c *CRTC) SetCursorOffset(offset uint16) {
	c.write(hal.CRTCCursorHigh, byte(offset>>8))
	c.write(hal.CRTCCursorLow, byte(offset))
}

// SetCursorVisible enables or disables the cursor. The enabled shape is an
// underline on scan lines 14-15.
func (c *CRTC) SetCursorVisible(visible bool) {
	if !visible {
		c.write(hal.CRTCCursorStart, 0x20)
		return
	}
	c.write(hal.CRTCCursorStart, c.read(hal.CRTCCursorStart)&0xC0|0x0E)
	c.write(hal.CRTCCursorEnd, c.read(hal.CRTCCursorEnd)&0xE0|0x0F)
}

func (c *CRTC) write(reg, value byte) {
	c.io.Out(hal.CRTCIndexPort, reg)
	c.io.Out(hal.CRTCDataPort, value)
}

func (c *CRTC) read(reg byte) byte {
	c.io.Out(hal.CRTCIndexPort, reg)
	return c.io.In(hal.CRTCDataPort)
}
