package keyboard

import "errors"

// Sentinel errors for the keyboard package.
var (
	// ErrEmpty is returned when reading from an empty event queue.
	ErrEmpty = errors.New("keyboard queue is empty")

	// ErrTimeout is returned when the controller does not become ready
	// within the polling limit.
	ErrTimeout = errors.New("keyboard controller timeout")

	// ErrSelfTest is returned when the keyboard reports a failed self test.
	ErrSelfTest = errors.New("keyboard self test failed")

	// ErrInvalidArgument is returned for out-of-range command parameters.
	ErrInvalidArgument = errors.New("invalid argument")
)
