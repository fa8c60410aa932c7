package keyboard

import "github.com/dshills/ttycore/internal/hal"

// DefaultQueueSize is the default event queue capacity.
const DefaultQueueSize = 256

// Queue is a fixed-capacity FIFO of events shared between the interrupt
// handler and foreground readers. When full, Push discards the oldest event.
// All mutation happens under an IRQLock.
type Queue struct {
	lock    *hal.IRQLock
	events  []Event
	head    int
	count   int
	dropped uint64
}

// NewQueue creates a queue. Capacity <= 0 uses DefaultQueueSize.
func NewQueue(capacity int, lock *hal.IRQLock) *Queue {
	if capacity <= 0 {
		capacity = DefaultQueueSize
	}
	if lock == nil {
		lock = hal.NewIRQLock(nil)
	}
	return &Queue{
		lock:   lock,
		events: make([]Event, capacity),
	}
}

// Push appends ev and reports whether the oldest event was discarded.
func (q *Queue) Push(ev Event) (dropped bool) {
	state := q.lock.Lock()
	defer q.lock.Unlock(state)

	if q.count == len(q.events) {
		q.head = (q.head + 1) % len(q.events)
		q.count--
		q.dropped++
		dropped = true
	}
	q.events[(q.head+q.count)%len(q.events)] = ev
	q.count++
	return dropped
}

// Pop removes and returns the oldest event.
func (q *Queue) Pop() (Event, error) {
	state := q.lock.Lock()
	defer q.lock.Unlock(state)

	if q.count == 0 {
		return Event{}, ErrEmpty
	}
	ev := q.events[q.head]
	q.head = (q.head + 1) % len(q.events)
	q.count--
	return ev, nil
}

// HasEvent returns true if at least one event is queued.
func (q *Queue) HasEvent() bool {
	return q.Len() > 0
}

// Len returns the number of queued events.
func (q *Queue) Len() int {
	state := q.lock.Lock()
	defer q.lock.Unlock(state)
	return q.count
}

// Cap returns the queue capacity.
func (q *Queue) Cap() int {
	return len(q.events)
}

// Dropped returns how many events have been discarded on overflow.
func (q *Queue) Dropped() uint64 {
	state := q.lock.Lock()
	defer q.lock.Unlock(state)
	return q.dropped
}

// Flush discards all queued events.
func (q *Queue) Flush() {
	state := q.lock.Lock()
	defer q.lock.Unlock(state)
	q.head = 0
	q.count = 0
}
