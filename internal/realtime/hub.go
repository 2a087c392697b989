package realtime

import (
	"log/slog"
	"sync"

	"github.com/MrJamesThe3rd/comanda/internal/transaction"
)

const defaultBuffer = 64

// Hub fans change events out to subscribers and watchers.
//
// Subscriptions are buffered and never stall the publisher: when a buffer is full the
// event is dropped and the subscription's Gaps channel is signalled so the consumer can
// resynchronise from the store. Watchers are called synchronously for every event and
// never miss one.
type Hub struct {
	mu       sync.RWMutex
	subs     map[int]*Subscription
	watchers map[int]func(transaction.Change)
	nextID   int
	closed   bool
}

func NewHub() *Hub {
	return &Hub{
		subs:     make(map[int]*Subscription),
		watchers: make(map[int]func(transaction.Change)),
	}
}

// Subscription is a buffered stream of changes.
type Subscription struct {
	// C delivers changes in publish order. It is closed by Close or when the hub closes.
	C <-chan transaction.Change
	// Gaps holds a value after C dropped at least one change.
	Gaps <-chan struct{}

	c     chan transaction.Change
	gaps  chan struct{}
	close func()
}

// Close unsubscribes and closes C. It is safe to call more than once.
func (s *Subscription) Close() {
	s.close()
}

// Subscribe registers a new subscription with the given buffer size.
func (h *Hub) Subscribe(buffer int) *Subscription {
	if buffer <= 0 {
		buffer = defaultBuffer
	}

	sub := &Subscription{
		c:    make(chan transaction.Change, buffer),
		gaps: make(chan struct{}, 1),
	}
	sub.C = sub.c
	sub.Gaps = sub.gaps

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		close(sub.c)
		sub.close = func() {}

		return sub
	}

	id := h.nextID
	h.nextID++
	h.subs[id] = sub

	var once sync.Once

	sub.close = func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()

			if _, ok := h.subs[id]; ok {
				delete(h.subs, id)
				close(sub.c)
			}
		})
	}

	return sub
}

// Watch calls fn for every published change until the returned function is called.
// fn runs on the publisher's goroutine and must not call back into the hub.
func (h *Hub) Watch(fn func(transaction.Change)) func() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return func() {}
	}

	id := h.nextID
	h.nextID++
	h.watchers[id] = fn

	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()

		delete(h.watchers, id)
	}
}

func (h *Hub) Publish(ch transaction.Change) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, fn := range h.watchers {
		fn(ch)
	}

	for id, sub := range h.subs {
		select {
		case sub.c <- ch:
		default:
			slog.Warn("dropping change for slow subscriber", "subscriber", id, "op", ch.Op, "id", ch.ID)

			select {
			case sub.gaps <- struct{}{}:
			default:
			}
		}
	}
}

// Close closes every subscription and drops every watcher.
// Later subscriptions get a closed channel.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}

	h.closed = true

	for id, sub := range h.subs {
		delete(h.subs, id)
		close(sub.c)
	}

	clear(h.watchers)
}
