package hal

import "sync"

// PIC is an in-memory interrupt controller for a single simulated CPU.
//
// Raised vectors are delivered synchronously on the raising goroutine while
// interrupts are unmasked. While masked they stay pending and are delivered
// by the Restore call that unmasks them. Only one goroutine delivers at a
// time, so handlers never nest.
type PIC struct {
	mu          sync.Mutex
	handlers    map[uint8]Handler
	masked      int
	pending     []uint8
	dispatching bool
	delivered   uint64
	spurious    uint64
}

// NewPIC creates an unmasked interrupt controller with no handlers.
func NewPIC() *PIC {
	return &PIC{handlers: make(map[uint8]Handler)}
}

// Disable masks interrupts. Calls nest.
func (p *PIC) Disable() IRQState {
	p.mu.Lock()
	prev := p.masked == 0
	p.masked++
	p.mu.Unlock()
	return IRQState(prev)
}

// Restore undoes one Disable and delivers pending vectors once unmasked.
func (p *PIC) Restore(IRQState) {
	p.mu.Lock()
	if p.masked > 0 {
		p.masked--
	}
	p.mu.Unlock()
	p.drain()
}

// SetHandler registers h for vector.
func (p *PIC) SetHandler(vector uint8, h Handler) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if h == nil {
		delete(p.handlers, vector)
		return
	}
	p.handlers[vector] = h
}

// Raise signals vector.
func (p *PIC) Raise(vector uint8) {
	p.mu.Lock()
	p.pending = append(p.pending, vector)
	p.mu.Unlock()
	p.drain()
}

// Masked reports whether interrupts are currently masked.
func (p *PIC) Masked() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.masked > 0
}

// Pending returns the number of vectors waiting for delivery.
func (p *PIC) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pending)
}

// Stats returns the number of delivered and spurious (unhandled) interrupts.
func (p *PIC) Stats() (delivered, spurious uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.delivered, p.spurious
}

func (p *PIC) drain() {
	p.mu.Lock()
	if p.dispatching {
		p.mu.Unlock()
		return
	}
	p.dispatching = true
	for p.masked == 0 && len(p.pending) > 0 {
		vector := p.pending[0]
		p.pending = p.pending[1:]
		h := p.handlers[vector]
		if h == nil {
			p.spurious++
			continue
		}
		p.delivered++
		p.mu.Unlock()
		h.HandleInterrupt()
		p.mu.Lock()
	}
	p.dispatching = false
	p.mu.Unlock()
}
