package hal

import "sync"

// PortIO reads and writes 8-bit I/O ports.
type PortIO interface {
	In(port uint16) byte
	Out(port uint16, value byte)
}

// Handler services one interrupt vector.
type Handler interface {
	HandleInterrupt()
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func()

// HandleInterrupt calls f.
func (f HandlerFunc) HandleInterrupt() { f() }

// IRQState is the interrupt state saved by Disable.
type IRQState bool

// InterruptController masks interrupts and dispatches interrupt vectors.
type InterruptController interface {
	// Disable masks interrupts and returns the previous state.
	Disable() IRQState
	// Restore undoes a matching Disable.
	Restore(state IRQState)
	// SetHandler registers h for vector. A nil h removes the handler.
	SetHandler(vector uint8, h Handler)
}

// Pauser is called once per iteration of a busy-wait loop.
type Pauser interface {
	Pause()
}

// PauseFunc adapts a function to the Pauser interface.
type PauseFunc func()

// Pause calls f.
func (f PauseFunc) Pause() { f() }

// NopPauser returns immediately.
var NopPauser Pauser = PauseFunc(func() {})

// IRQLock serialises access to state shared with interrupt handlers.
// Lock masks interrupts before taking the mutex; Unlock releases the mutex
// before restoring the saved interrupt state.
type IRQLock struct {
	ic InterruptController
	mu sync.Mutex
}

// NewIRQLock returns a lock that masks interrupts through ic.
// A nil ic degrades to a plain mutex.
func NewIRQLock(ic InterruptController) *IRQLock {
	return &IRQLock{ic: ic}
}

// Lock masks interrupts and acquires the lock.
func (l *IRQLock) Lock() IRQState {
	var state IRQState
	if l.ic != nil {
		state = l.ic.Disable()
	}
	l.mu.Lock()
	return state
}

// Unlock releases the lock and restores the interrupt state returned by Lock.
func (l *IRQLock) Unlock(state IRQState) {
	l.mu.Unlock()
	if l.ic != nil {
		l.ic.Restore(state)
	}
}
