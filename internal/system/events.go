package system

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// EventFunc receives a published event. It is called with the terminal
// registry locked and must not call back into it.
type EventFunc func(eventType string, data map[string]any)

// Events fans terminal events out to subscribers and logs them.
type Events struct {
	mu     sync.RWMutex
	subs   []EventFunc
	counts map[string]int
	logger *logrus.Entry
}

func newEvents(logger *logrus.Entry) *Events {
	return &Events{
		counts: make(map[string]int),
		logger: logger,
	}
}

// Subscribe adds fn to the subscriber list.
func (e *Events) Subscribe(fn EventFunc) {
	if fn == nil {
		return
	}
	e.mu.Lock()
	e.subs = append(e.subs, fn)
	e.mu.Unlock()
}

// Publish implements terminal.EventPublisher.
func (e *Events) Publish(eventType string, data map[string]any) {
	e.mu.Lock()
	e.counts[eventType]++
	subs := e.subs
	e.mu.Unlock()

	e.logger.WithField("event", eventType).WithFields(logrus.Fields(data)).Debug("terminal event")
	for _, fn := range subs {
		fn(eventType, data)
	}
}

// Count returns how many events of a type were published.
func (e *Events) Count(eventType string) int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.counts[eventType]
}
