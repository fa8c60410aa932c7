// Package display implements the VGA text-mode display surface.
//
// A Surface is a fixed grid of character cells, each holding an ASCII byte
// and a VGA attribute byte, plus one cursor. PutChar interprets the control
// characters \n, \r, \t and \b and renders the printable range ' '..'~';
// everything else is ignored. Writing past the last column wraps, and
// writing past the last row scrolls when auto-scroll is enabled.
//
// After every character the hardware cursor, if a CursorDevice is attached,
// is moved to match. NewCRTC provides one backed by the VGA CRT controller
// ports.
//
// Surface is safe for concurrent use.
package display
