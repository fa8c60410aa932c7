// Package tty implements TTY devices and their line discipline.
//
// A Manager owns a fixed table of devices indexed by minor number. Exactly
// one device is the foreground device bound to the physical display; the
// keyboard feeds characters to it through Manager.HandleKey.
//
// Input runs through the line discipline. In cooked mode characters are
// collected in a line buffer with backspace editing and optional echo, and
// a completed line (terminated by CR or LF) is copied to the input buffer
// with a trailing newline. In raw mode every character goes straight to
// the input buffer. Read never blocks.
//
// Output runs through CR-LF translation and tab expansion before the
// device's Backend renders it. With flow control enabled, XOFF (Ctrl+S)
// holds output in the output buffer until XON (Ctrl+Q).
//
// Device lifecycle:
//
//	Register -> Closed -> Open -> Ready (when foreground) -> Close -> Closed -> Unregister
package tty
