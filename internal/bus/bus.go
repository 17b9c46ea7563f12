package bus

import (
	"sync"

	"cloneops/domain/run"
)

// Bus is an in-process publish/subscribe channel for run events. It replaces
// ambient cross-component signaling with an explicit dependency handed into
// the coordinator and aggregator constructors.
//
// Delivery is at-least-once per subscriber and publish order is preserved
// per subscriber, which covers the required no-reordering guarantee within a
// single (title, idx) stream.
type Bus struct {
	mu       sync.RWMutex
	subs     map[int]*subscriber
	nextID   int
	closed   bool
	stop     chan struct{}
	stopOnce sync.Once
}

// subscriber pairs the delivery channel with a done signal. Cancel closes
// done before taking the write lock, so a publisher stalled on a full
// channel can move on and release the read lock that cancel is waiting for.
type subscriber struct {
	ch   chan run.Event
	done chan struct{}
}

// New creates an empty bus.
func New() *Bus {
	return &Bus{subs: make(map[int]*subscriber), stop: make(chan struct{})}
}

// Subscribe registers a consumer. The returned cancel func unregisters and
// closes the channel; it is safe to call more than once.
func (b *Bus) Subscribe(buffer int) (<-chan run.Event, func()) {
	if buffer < 1 {
		buffer = 1
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	sub := &subscriber{ch: make(chan run.Event, buffer), done: make(chan struct{})}
	if b.closed {
		close(sub.ch)
		return sub.ch, func() {}
	}
	b.subs[id] = sub

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			close(sub.done)
			b.mu.Lock()
			defer b.mu.Unlock()
			if _, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(sub.ch)
			}
		})
	}
	return sub.ch, cancel
}

// Publish delivers the event to every current subscriber. Sends block when
// a live subscriber's buffer is full rather than dropping: consumers are
// in-process and must not miss run lifecycle events. A subscriber that has
// started canceling is skipped via its done signal.
func (b *Bus) Publish(evt run.Event) {
	// Channels only close under the write lock, so every send target stays
	// open while the read lock is held.
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, sub := range b.subs {
		select {
		case sub.ch <- evt:
		case <-sub.done:
		case <-b.stop:
			return
		}
	}
}

// Close unregisters every subscriber and rejects future subscriptions.
func (b *Bus) Close() {
	// Release any publisher mid-delivery before taking the write lock.
	b.stopOnce.Do(func() { close(b.stop) })
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, sub := range b.subs {
		delete(b.subs, id)
		close(sub.ch)
	}
}
