package bus

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
)

const (
	// DefaultHistorySize is the number of recent events to retain.
	DefaultHistorySize = 1000

	// DefaultChannelBuffer is the buffer size for subscriber channels.
	DefaultChannelBuffer = 256
)

// ErrClosed is returned by operations on a closed bus.
var ErrClosed = errors.New("bus is closed")

// SubscriptionID is a unique identifier for event subscriptions.
type SubscriptionID string

type subscription struct {
	id        SubscriptionID
	eventType EventType
	handler   func(Event)
	ch        chan Event
}

// Bus is a thread-safe pub/sub hub with wildcard subscriptions and a bounded
// event history. Each subscriber runs on its own goroutine; a subscriber
// whose buffer is full misses the event and the drop is counted.
type Bus struct {
	mu     sync.RWMutex
	subs   map[SubscriptionID]*subscription
	nextID uint64

	history     []Event
	historyMu   sync.RWMutex
	historySize int

	buffer  int
	dropped atomic.Uint64
	wg      sync.WaitGroup
	closed  bool
}

// NewBus creates a bus with default history and buffer sizes.
func NewBus() *Bus {
	return NewBusWithConfig(DefaultHistorySize, DefaultChannelBuffer)
}

// NewBusWithConfig creates a bus with custom history and per-subscriber
// buffer sizes.
func NewBusWithConfig(historySize, buffer int) *Bus {
	return &Bus{
		subs:        make(map[SubscriptionID]*subscription),
		history:     make([]Event, 0, historySize),
		historySize: historySize,
		buffer:      buffer,
	}
}

// Subscribe registers a handler for a specific event type.
// Use EventType("") to subscribe to all events (wildcard).
func (b *Bus) Subscribe(eventType EventType, handler func(Event)) (SubscriptionID, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return "", ErrClosed
	}

	b.nextID++
	sub := &subscription{
		id:        SubscriptionID(fmt.Sprintf("sub_%d", b.nextID)),
		eventType: eventType,
		handler:   handler,
		ch:        make(chan Event, b.buffer),
	}
	b.subs[sub.id] = sub

	b.wg.Add(1)
	go b.run(sub)

	return sub.id, nil
}

// run delivers events until the subscription channel is closed and drained.
func (b *Bus) run(sub *subscription) {
	defer b.wg.Done()
	for e := range sub.ch {
		sub.handler(e)
	}
}

// Unsubscribe removes a subscription. Events already queued for it are
// still delivered.
func (b *Bus) Unsubscribe(id SubscriptionID) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrClosed
	}
	sub, ok := b.subs[id]
	if !ok {
		return fmt.Errorf("subscription %s not found", id)
	}
	delete(b.subs, id)
	close(sub.ch)
	return nil
}

// Publish records the event in history and queues it for every matching
// subscriber.
func (b *Bus) Publish(event Event) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return ErrClosed
	}

	b.addToHistory(event)

	for _, sub := range b.subs {
		if sub.eventType != "" && sub.eventType != event.Type {
			continue
		}
		select {
		case sub.ch <- event:
		default:
			b.dropped.Add(1)
		}
	}
	return nil
}

func (b *Bus) addToHistory(event Event) {
	b.historyMu.Lock()
	defer b.historyMu.Unlock()

	b.history = append(b.history, event)
	if len(b.history) > b.historySize {
		b.history = b.history[len(b.history)-b.historySize:]
	}
}

// History returns a copy of the recent event history, oldest first.
func (b *Bus) History() []Event {
	b.historyMu.RLock()
	defer b.historyMu.RUnlock()

	out := make([]Event, len(b.history))
	copy(out, b.history)
	return out
}

// HistoryFor returns the retained events of one session, oldest first.
func (b *Bus) HistoryFor(sessionID string) []Event {
	b.historyMu.RLock()
	defer b.historyMu.RUnlock()

	var out []Event
	for _, e := range b.history {
		if e.SessionID == sessionID {
			out = append(out, e)
		}
	}
	return out
}

// SubscriptionsCount returns the number of active subscriptions.
func (b *Bus) SubscriptionsCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Dropped returns how many deliveries were skipped because a subscriber
// buffer was full.
func (b *Bus) Dropped() uint64 { return b.dropped.Load() }

// Close stops accepting events, delivers everything already queued and
// waits for all subscriber goroutines to return.
func (b *Bus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return ErrClosed
	}
	b.closed = true
	for id, sub := range b.subs {
		close(sub.ch)
		delete(b.subs, id)
	}
	b.mu.Unlock()

	b.wg.Wait()
	return nil
}
