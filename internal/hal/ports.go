package hal

// PS/2 keyboard controller ports and status bits.
const (
	KeyboardDataPort    uint16 = 0x60
	KeyboardStatusPort  uint16 = 0x64
	KeyboardCommandPort uint16 = 0x64

	StatusOutputFull byte = 0x01
	StatusInputFull  byte = 0x02
)

// VGA CRT controller ports and registers.
const (
	CRTCIndexPort uint16 = 0x3D4
	CRTCDataPort  uint16 = 0x3D5

	CRTCCursorStart byte = 0x0A
	CRTCCursorEnd   byte = 0x0B
	CRTCCursorHigh  byte = 0x0E
	CRTCCursorLow   byte = 0x0F
)

// KeyboardVector is IRQ1 after the PIC has been remapped to 0x20.
const KeyboardVector uint8 = 0x21
