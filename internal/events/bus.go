package events

import (
	"github.com/kelindar/event"
)

// Bus wraps kelindar/event dispatcher for event broadcasting
type Bus struct {
	dispatcher *event.Dispatcher
}

// New creates a new event bus
func New() *Bus {
	return &Bus{
		dispatcher: event.NewDispatcher(),
	}
}

// Publish publishes an event to all subscribers
// Usage: bus.Publish(JobStartedEvent{...})
func (b *Bus) Publish(ev Event) {
	// Use type switch to call the generic Publish with the correct type
	switch e := ev.(type) {
	case JobCreatedEvent:
		event.Publish(b.dispatcher, e)
	case JobStartedEvent:
		event.Publish(b.dispatcher, e)
	case JobStateChangedEvent:
		event.Publish(b.dispatcher, e)
	case JobProgressEvent:
		event.Publish(b.dispatcher, e)
	case JobFinishedEvent:
		event.Publish(b.dispatcher, e)
	case JobMediaInfoEvent:
		event.Publish(b.dispatcher, e)
	case JobMetricsEvent:
		event.Publish(b.dispatcher, e)
	case LogEntryEvent:
		event.Publish(b.dispatcher, e)
	}
}

// Subscribe subscribes to events with a handler function
// The handler type determines which events it receives (type inference)
// Returns an unsubscribe function
// Usage: unsub := bus.Subscribe(func(e JobStartedEvent) { ... })
func (b *Bus) Subscribe(handler any) func() {
	// kelindar/event needs the concrete type at the call site, so each
	// event type gets its own case.
	switch h := handler.(type) {
	case func(JobCreatedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(JobStartedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(JobStateChangedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(JobProgressEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(JobFinishedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(JobMediaInfoEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(JobMetricsEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(LogEntryEvent):
		return event.Subscribe(b.dispatcher, h)
	default:
		// Return a no-op function if handler type is not recognized
		return func() {}
	}
}
