package system

import "errors"

var (
	// ErrNotInitialized is returned before Init succeeds.
	ErrNotInitialized = errors.New("system not initialized")

	// ErrAlreadyInitialized is returned by a second Init.
	ErrAlreadyInitialized = errors.New("system already initialized")

	// ErrShutdown is returned after Shutdown.
	ErrShutdown = errors.New("system shut down")

	// ErrNoBus is returned when the system runs on external hardware and
	// an operation needs the simulated bus.
	ErrNoBus = errors.New("no simulated bus")
)
