// Package hal defines the small hardware surface the terminal subsystem
// depends on and provides a simulated implementation of it.
//
// The rest of ttycore never touches hardware directly. It needs four things:
//
//   - PortIO: read and write 8-bit I/O ports
//   - InterruptController: mask/unmask interrupts and register vector handlers
//   - Pauser: a pause primitive for bounded busy-wait loops
//   - IRQLock: a lock that masks interrupts for the duration of a critical section
//
// Bus and PIC implement PortIO and InterruptController in memory. Bus models
// an 8042 keyboard controller on ports 0x60/0x64 and the VGA CRTC index/data
// registers on ports 0x3D4/0x3D5, which is enough to drive the keyboard and
// display code end to end in tests and in the demo binary.
package hal
