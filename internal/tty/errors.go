package tty

import "errors"

// Sentinel errors for the tty package.
var (
	// ErrInvalidArgument is returned for bad minors, unregistered devices
	// and empty buffers.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrNotReady is returned when the device state does not allow the
	// operation.
	ErrNotReady = errors.New("tty not ready")

	// ErrBusy is returned when a device is in use.
	ErrBusy = errors.New("tty busy")

	// ErrExists is returned when registering over an existing device.
	ErrExists = errors.New("tty already registered")

	// ErrWouldBlock is returned when stopped output fills the output buffer.
	ErrWouldBlock = errors.New("tty output buffer full")
)
