package events

// EventHandler defines a function type where its input type is the generic type. A returned error stops the event
// from reaching the remaining handlers and is reported to the publisher.
type EventHandler[T any] func(T) error

// EventEmitter describes a provider which can subscribe EventHandler methods for callback when the event type (generic)
// is published. It additionally provides methods for publishing events. An EventEmitter is not safe for concurrent use.
type EventEmitter[T any] struct {
	// subscriptions defines the EventHandler methods which should be invoked when a new event is published to this
	// emitter, in the order they were subscribed.
	subscriptions []EventHandler[T]
}

// Publish emits the provided event by calling every EventHandler subscribed. Returns the first error returned by a
// handler, after which no further handlers are called.
func (e *EventEmitter[T]) Publish(event T) error {
	for _, subscription := range e.subscriptions {
		if err := subscription(event); err != nil {
			return err
		}
	}
	return nil
}

// Subscribe adds an EventHandler to the list of subscribed EventHandler objects for this emitter. When an event is
// published, the callback will be triggered with the event data.
func (e *EventEmitter[T]) Subscribe(callback EventHandler[T]) {
	e.subscriptions = append(e.subscriptions, callback)
}

// SubscriptionCount returns the amount of EventHandler objects subscribed to this emitter.
func (e *EventEmitter[T]) SubscriptionCount() int {
	return len(e.subscriptions)
}
