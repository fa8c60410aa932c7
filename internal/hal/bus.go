package hal

import "sync"

// Keyboard controller responses produced by the simulated device.
const (
	respAck      byte = 0xFA
	respSelfTest byte = 0xAA
	respEcho     byte = 0xEE
)

// Bus is an in-memory PortIO with a PS/2 keyboard controller on ports
// 0x60/0x64 and the VGA CRTC index/data pair on 0x3D4/0x3D5. Writes to any
// other port are latched and read back unchanged.
type Bus struct {
	mu sync.Mutex

	pic    *PIC
	vector uint8

	// keyboard controller
	out           []byte
	inputBusy     bool
	expect        byte
	leds          byte
	rate          byte
	scanning      bool
	resetResponse []byte
	commands      []byte

	// CRT controller
	crtcIndex byte
	crtc      [32]byte

	latched map[uint16]byte
}

// NewBus creates a bus. When pic is non-nil every injected scancode raises
// KeyboardVector on it.
func NewBus(pic *PIC) *Bus {
	return &Bus{
		pic:           pic,
		vector:        KeyboardVector,
		resetResponse: []byte{respAck, respSelfTest},
		latched:       make(map[uint16]byte),
	}
}

// In implements PortIO.
func (b *Bus) In(port uint16) byte {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch port {
	case KeyboardDataPort:
		if len(b.out) == 0 {
			return 0
		}
		v := b.out[0]
		b.out = b.out[1:]
		return v
	case KeyboardStatusPort:
		var status byte
		if len(b.out) > 0 {
			status |= StatusOutputFull
		}
		if b.inputBusy {
			status |= StatusInputFull
		}
		return status
	case CRTCIndexPort:
		return b.crtcIndex
	case CRTCDataPort:
		return b.crtc[b.crtcIndex&31]
	}
	return b.latched[port]
}

// Out implements PortIO.
func (b *Bus) Out(port uint16, value byte) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch port {
	case KeyboardCommandPort:
		b.command(value)
	case KeyboardDataPort:
		b.data(value)
	case CRTCIndexPort:
		b.crtcIndex = value
	case CRTCDataPort:
		b.crtc[b.crtcIndex&31] = value
	default:
		b.latched[port] = value
	}
}

func (b *Bus) command(cmd byte) {
	b.commands = append(b.commands, cmd)
	switch cmd {
	case 0xFF: // reset
		b.out = append(b.out, b.resetResponse...)
		b.leds = 0
		b.scanning = true
	case 0xED, 0xF3: // parameter follows on the data port
		b.expect = cmd
	case 0xEE:
		b.out = append(b.out, respEcho)
	case 0xF2:
		b.out = append(b.out, respAck, 0xAB, 0x83)
	case 0xF4:
		b.scanning = true
	case 0xF5:
		b.scanning = false
	case 0xF6:
		b.rate = 0
		b.scanning = true
	}
}

func (b *Bus) data(v byte) {
	switch b.expect {
	case 0xED:
		b.leds = v
	case 0xF3:
		b.rate = v
	}
	b.expect = 0
}

// InjectScancode queues raw scancodes as if keys were pressed and raises
// one keyboard interrupt per byte.
func (b *Bus) InjectScancode(codes ...byte) {
	for _, c := range codes {
		b.mu.Lock()
		b.out = append(b.out, c)
		pic, vector := b.pic, b.vector
		b.mu.Unlock()
		if pic != nil {
			pic.Raise(vector)
		}
	}
}

// SetInputBusy forces the controller's input-buffer-full status bit.
func (b *Bus) SetInputBusy(busy bool) {
	b.mu.Lock()
	b.inputBusy = busy
	b.mu.Unlock()
}

// SetResetResponse sets the bytes produced by a reset command.
// No bytes simulates a keyboard that never answers.
func (b *Bus) SetResetResponse(resp ...byte) {
	b.mu.Lock()
	b.resetResponse = append([]byte(nil), resp...)
	b.mu.Unlock()
}

// LEDs returns the last LED byte sent to the keyboard.
func (b *Bus) LEDs() byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.leds
}

// RepeatRate returns the last typematic byte sent to the keyboard.
func (b *Bus) RepeatRate() byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.rate
}

// Scanning reports whether the keyboard is enabled.
func (b *Bus) Scanning() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.scanning
}

// Commands returns every command byte written to the controller.
func (b *Bus) Commands() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]byte(nil), b.commands...)
}

// PendingOutput returns the number of bytes waiting in the output buffer.
func (b *Bus) PendingOutput() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.out)
}

// CRTC returns the value of a CRT controller register.
func (b *Bus) CRTC(index byte) byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.crtc[index&31]
}

// CursorOffset returns the hardware cursor position as a linear cell offset.
func (b *Bus) CursorOffset() uint16 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return uint16(b.crtc[CRTCCursorHigh])<<8 | uint16(b.crtc[CRTCCursorLow])
}
