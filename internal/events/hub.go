// Package events fans change events out to in-process subscribers and, when
// configured, to a RabbitMQ exchange.
package events

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/hiring-pipeline/internal/pipeline"
	"github.com/jonathan/hiring-pipeline/internal/types"
)

// DefaultBufferSize is the per-subscriber queue length.
const DefaultBufferSize = 64

// Filter selects events for a subscriber. A nil Filter accepts everything.
type Filter func(ev types.ChangeEvent) bool

// ForApplication returns a Filter matching events for one application. Resync
// events always pass.
func ForApplication(id uuid.UUID) Filter {
	return func(ev types.ChangeEvent) bool {
		return ev.EntityKind == types.EntityAll || ev.ApplicationID == id
	}
}

// Subscription receives events from a Hub until Close is called.
type Subscription struct {
	C <-chan types.ChangeEvent

	hub    *Hub
	ch     chan types.ChangeEvent
	filter Filter
	// dropped is set when an event could not be queued; the next delivery is
	// a resync marker instead.
	dropped bool
}

// Close unsubscribes and closes C.
func (s *Subscription) Close() {
	s.hub.remove(s)
}

// Hub is an in-process publish/subscribe broker. Publish never blocks: a
// subscriber whose queue is full loses events and receives a single
// EntityAll event once space frees up.
type Hub struct {
	mu     sync.Mutex
	subs   map[*Subscription]struct{}
	buffer int
	now    func() time.Time
}

var _ pipeline.Publisher = (*Hub)(nil)

// NewHub creates a Hub. A bufferSize of 0 or less uses DefaultBufferSize.
func NewHub(bufferSize int) *Hub {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	return &Hub{
		subs:   make(map[*Subscription]struct{}),
		buffer: bufferSize,
		now:    time.Now,
	}
}

// Subscribe registers a subscriber.
func (h *Hub) Subscribe(filter Filter) *Subscription {
	ch := make(chan types.ChangeEvent, h.buffer)
	sub := &Subscription{C: ch, hub: h, ch: ch, filter: filter}

	h.mu.Lock()
	h.subs[sub] = struct{}{}
	h.mu.Unlock()
	return sub
}

// Publish delivers ev to every matching subscriber.
func (h *Hub) Publish(_ context.Context, ev types.ChangeEvent) {
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = h.now()
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.subs {
		if sub.filter != nil && !sub.filter(ev) {
			continue
		}
		h.deliver(sub, ev)
	}
}

// Subscribers returns the number of open subscriptions.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// deliver must be called with h.mu held.
func (h *Hub) deliver(sub *Subscription, ev types.ChangeEvent) {
	if sub.dropped {
		resync := types.ChangeEvent{EntityKind: types.EntityAll, OccurredAt: ev.OccurredAt}
		select {
		case sub.ch <- resync:
			sub.dropped = false
		default:
		}
		return
	}
	select {
	case sub.ch <- ev:
	default:
		sub.dropped = true
	}
}

func (h *Hub) remove(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[sub]; !ok {
		return
	}
	delete(h.subs, sub)
	close(sub.ch)
}

// Close closes every subscription.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.subs {
		delete(h.subs, sub)
		close(sub.ch)
	}
}

// Multi publishes to several publishers in order.
type Multi []pipeline.Publisher

// Publish forwards ev to every publisher.
func (m Multi) Publish(ctx context.Context, ev types.ChangeEvent) {
	for _, p := range m {
		if p != nil {
			p.Publish(ctx, ev)
		}
	}
}
