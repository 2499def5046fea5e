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
// Usage: bus.Publish(BatteryChangedEvent{...})
func (b *Bus) Publish(ev Event) {
	// kelindar/event is generic over the concrete type
	switch e := ev.(type) {
	case CapsLockChangedEvent:
		event.Publish(b.dispatcher, e)
	case BatteryChangedEvent:
		event.Publish(b.dispatcher, e)
	case LinkChangedEvent:
		event.Publish(b.dispatcher, e)
	case BootCompleteEvent:
		event.Publish(b.dispatcher, e)
	case EndpointChangedEvent:
		event.Publish(b.dispatcher, e)
	case IndicateRequestedEvent:
		event.Publish(b.dispatcher, e)
	case IntentRenderedEvent:
		event.Publish(b.dispatcher, e)
	case SpamModeChangedEvent:
		event.Publish(b.dispatcher, e)
	case LogEntryEvent:
		event.Publish(b.dispatcher, e)
	}
}

// Subscribe subscribes to events with a handler function
// The handler type determines which events it receives
// Returns an unsubscribe function
// Usage: unsub := bus.Subscribe(func(e LinkChangedEvent) { ... })
func (b *Bus) Subscribe(handler any) func() {
	switch h := handler.(type) {
	case func(CapsLockChangedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(BatteryChangedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(LinkChangedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(BootCompleteEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(EndpointChangedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(IndicateRequestedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(IntentRenderedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(SpamModeChangedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(LogEntryEvent):
		return event.Subscribe(b.dispatcher, h)
	default:
		// Return a no-op function if handler type is not recognized
		return func() {}
	}
}
