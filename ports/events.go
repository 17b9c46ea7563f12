package ports

import "cloneops/domain/run"

// EventPublisher is the write side of the in-process run event channel. The
// coordinator publishes; it never holds a reference to consumers.
type EventPublisher interface {
	Publish(evt run.Event)
}

// EventSubscriber is the read side. Subscribe returns a receive channel and
// a cancel func that unregisters and closes it. Delivery is at-least-once
// per subscriber with no reordering within a single (title, idx) stream.
type EventSubscriber interface {
	Subscribe(buffer int) (<-chan run.Event, func())
}

// EventBus is both halves, passed by reference into the coordinator and
// aggregator constructors.
type EventBus interface {
	EventPublisher
	EventSubscriber
}
