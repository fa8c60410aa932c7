package script

import "errors"

var (
	// ErrClosed is returned when running on a closed Runtime.
	ErrClosed = errors.New("script runtime closed")

	// ErrTimeout is returned when a script runs past its deadline.
	ErrTimeout = errors.New("script timeout")
)
