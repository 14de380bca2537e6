package events

import (
	"context"
	"sync"
)

// Sink receives events. Publishing is best effort: callers log and ignore errors.
type Sink interface {
	Publish(ctx context.Context, e Event) error
}

type NopSink struct{}

func (NopSink) Publish(context.Context, Event) error { return nil }

// CollectingSink keeps every event in memory.
type CollectingSink struct {
	mu     sync.Mutex
	events []Event
}

func (c *CollectingSink) Publish(_ context.Context, e Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
	return nil
}

func (c *CollectingSink) Events() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Event{}, c.events...)
}

func (c *CollectingSink) OfType(t EventType) []Event {
	var ret []Event
	for _, e := range c.Events() {
		if e.Type == t {
			ret = append(ret, e)
		}
	}
	return ret
}
