package event

import "sync"

// Collector buffers emitted events in memory. It is intended for tests
// and for callers that post-process events themselves.
type Collector struct {
	mu     sync.Mutex
	events []Event
}

// Emit records evt.
func (c *Collector) Emit(evt Event) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, evt)
}

// Events returns a copy of all recorded events in emission order.
func (c *Collector) Events() []Event {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Event, len(c.events))
	copy(out, c.events)
	return out
}

var _ Emitter = (*Collector)(nil)
