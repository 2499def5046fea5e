package events

import "github.com/kelindar/event"

// SubscribeToChannel forwards events of type T into ch for select-loop
// consumers such as SSE handlers. Events are dropped while ch is full so a
// slow client never blocks a publisher.
func SubscribeToChannel[T Event](bus *Bus, ch chan<- any) func() {
	return event.Subscribe(bus.dispatcher, func(e T) {
		select {
		case ch <- e:
		default:
		}
	})
}

// SubscribeIndicatorEvents forwards every signal, request, render and spam
// event into ch. The returned function removes all of them.
func SubscribeIndicatorEvents(bus *Bus, ch chan<- any) func() {
	unsubs := []func(){
		SubscribeToChannel[BatteryChangedEvent](bus, ch),
		SubscribeToChannel[LinkChangedEvent](bus, ch),
		SubscribeToChannel[CapsLockChangedEvent](bus, ch),
		SubscribeToChannel[BootCompleteEvent](bus, ch),
		SubscribeToChannel[EndpointChangedEvent](bus, ch),
		SubscribeToChannel[IndicateRequestedEvent](bus, ch),
		SubscribeToChannel[IntentRenderedEvent](bus, ch),
		SubscribeToChannel[SpamModeChangedEvent](bus, ch),
	}
	return func() {
		for _, unsub := range unsubs {
			unsub()
		}
	}
}
