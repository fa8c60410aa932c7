package terminal

import "errors"

// Sentinel errors for the terminal package.
var (
	// ErrNoSlot is returned when every terminal slot is in use.
	ErrNoSlot = errors.New("no free terminal slot")

	// ErrNotFound is returned for terminals or sessions that do not exist.
	ErrNotFound = errors.New("terminal not found")

	// ErrInvalidArgument is returned for malformed requests.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrInvalidSize is returned when a terminal size is invalid.
	ErrInvalidSize = errors.New("invalid terminal size")

	// ErrBusy is returned when the operation conflicts with the focused
	// terminal or a device already bound to another terminal.
	ErrBusy = errors.New("terminal busy")

	// ErrSuspended is returned for I/O on a suspended terminal.
	ErrSuspended = errors.New("terminal suspended")

	// ErrBellDisabled is returned by Bell when the bell feature is off.
	ErrBellDisabled = errors.New("bell disabled")

	// ErrClosed is returned after the registry has been closed.
	ErrClosed = errors.New("terminal registry is closed")
)
