package keyboard

import (
	"fmt"

	"github.com/dshills/ttycore/internal/hal"
)

// Keyboard command bytes.
const (
	CmdSetLEDs      byte = 0xED
	CmdEcho         byte = 0xEE
	CmdSetScancode  byte = 0xF0
	CmdSendID       byte = 0xF2
	CmdSetRate      byte = 0xF3
	CmdEnable       byte = 0xF4
	CmdDisable      byte = 0xF5
	CmdSetDefault   byte = 0xF6
	CmdReset        byte = 0xFF
	respSelfTestOK  byte = 0xAA
	respSelfTestErr byte = 0xFC
)

// Polling limits used when none are configured.
const (
	DefaultReadyPolls = 100000
	DefaultResetPolls = 1000
)

// Typematic parameter limits.
const (
	MaxRepeatDelay = 3
	MaxRepeatRate  = 31
)

// Controller issues commands to the keyboard through the 8042 ports.
type Controller struct {
	io         hal.PortIO
	pause      hal.Pauser
	readyPolls int
	resetPolls int
}

// NewController creates a controller on io. A nil pause spins without
// yielding; limits <= 0 use the defaults.
func NewController(io hal.PortIO, pause hal.Pauser, readyPolls, resetPolls int) *Controller {
	if pause == nil {
		pause = hal.NopPauser
	}
	if readyPolls <= 0 {
		readyPolls = DefaultReadyPolls
	}
	if resetPolls <= 0 {
		resetPolls = DefaultResetPolls
	}
	return &Controller{
		io:         io,
		pause:      pause,
		readyPolls: readyPolls,
		resetPolls: resetPolls,
	}
}

// Status returns the controller status byte.
func (c *Controller) Status() byte {
	return c.io.In(hal.KeyboardStatusPort)
}

// OutputFull reports whether a byte is waiting on the data port.
func (c *Controller) OutputFull() bool {
	return c.Status()&hal.StatusOutputFull != 0
}

// InputFull reports whether the controller is still busy with the last write.
func (c *Controller) InputFull() bool {
	return c.Status()&hal.StatusInputFull != 0
}

// ReadData reads the data port.
func (c *Controller) ReadData() byte {
	return c.io.In(hal.KeyboardDataPort)
}

// WaitReady polls until the controller can accept a byte.
func (c *Controller) WaitReady() error {
	for i := 0; i < c.readyPolls; i++ {
		if !c.InputFull() {
			return nil
		}
		c.pause.Pause()
	}
	return ErrTimeout
}

// Command waits for the controller and writes cmd.
func (c *Controller) Command(cmd byte) error {
	if err := c.WaitReady(); err != nil {
		return fmt.Errorf("command %#02x: %w", cmd, err)
	}
	c.io.Out(hal.KeyboardCommandPort, cmd)
	return nil
}

// CommandWithData writes cmd followed by its parameter byte.
func (c *Controller) CommandWithData(cmd, data byte) error {
	if err := c.Command(cmd); err != nil {
		return err
	}
	if err := c.WaitReady(); err != nil {
		return fmt.Errorf("command %#02x data: %w", cmd, err)
	}
	c.io.Out(hal.KeyboardDataPort, data)
	return nil
}

// Reset resets the keyboard and waits for its self-test result.
// Bytes other than pass or fail, such as the ACK, are skipped.
func (c *Controller) Reset() error {
	if err := c.Command(CmdReset); err != nil {
		return err
	}
	for i := 0; i < c.resetPolls; i++ {
		if c.OutputFull() {
			switch c.ReadData() {
			case respSelfTestOK:
				return nil
			case respSelfTestErr:
				return ErrSelfTest
			}
		}
		c.pause.Pause()
	}
	return fmt.Errorf("reset: %w", ErrTimeout)
}

// Enable starts scanning.
func (c *Controller) Enable() error {
	return c.Command(CmdEnable)
}

// Disable stops scanning.
func (c *Controller) Disable() error {
	return c.Command(CmdDisable)
}

// SetLEDs sets the lock LEDs.
func (c *Controller) SetLEDs(leds byte) error {
	return c.CommandWithData(CmdSetLEDs, leds)
}

// SetRepeatRate sets the typematic delay (0-3) and rate (0-31).
func (c *Controller) SetRepeatRate(delay, rate uint8) error {
	if delay > MaxRepeatDelay || rate > MaxRepeatRate {
		return fmt.Errorf("repeat delay %d rate %d: %w", delay, rate, ErrInvalidArgument)
	}
	return c.CommandWithData(CmdSetRate, delay<<5|rate)
}

// Drain discards any bytes waiting on the data port.
func (c *Controller) Drain() int {
	n := 0
	for i := 0; i < c.resetPolls && c.OutputFull(); i++ {
		c.ReadData()
		n++
	}
	return n
}
