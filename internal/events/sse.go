package events

import "github.com/kelindar/event"

// SubscribeToChannel forwards bus events of type T into ch so a
// select-driven consumer, like the SSE handlers, can drain them.
// Sends never block: a full channel means the consumer is behind,
// and stale events are dropped rather than stalling the dispatcher.
// The returned func cancels the subscription.
func SubscribeToChannel[T Event](bus *Bus, ch chan<- any) func() {
	return event.Subscribe(bus.dispatcher, func(e T) {
		select {
		case ch <- e:
		default:
		}
	})
}
