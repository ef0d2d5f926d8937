package scenegraph

import (
	"sync"

	"github.com/stardustxr/client-go/aspect"
)

// EventChannel is the per-aspect event sink: single-producer (the receiver
// loop), single-consumer (whatever goroutine polls a node's aspect for
// events), unbounded, and non-blocking on both ends — push never blocks
// the receiver loop, and Poll never blocks the consumer (I4: events
// surface in the order frames were read off the stream).
type EventChannel struct {
	mu     sync.Mutex
	events []aspect.Event
}

func newEventChannel() *EventChannel {
	return &EventChannel{}
}

func (c *EventChannel) push(e aspect.Event) {
	c.mu.Lock()
	c.events = append(c.events, e)
	c.mu.Unlock()
}

// Poll returns and removes the oldest queued event, or (nil, false) if
// empty.
func (c *EventChannel) Poll() (aspect.Event, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.events) == 0 {
		return nil, false
	}
	e := c.events[0]
	c.events = c.events[1:]
	return e, true
}

// Len reports how many events are currently queued, for diagnostics.
func (c *EventChannel) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.events)
}
