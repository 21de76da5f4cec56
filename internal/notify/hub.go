// Package notify fans punch events out to dashboards.  Delivery is best
// effort everywhere: a slow or failed subscriber never blocks a commit.
package notify

import (
	"context"
	"sync"

	"github.com/civicdesk/rollcall/internal/rollcall/types"
)

const defaultSubscriberBuffer = 32

// Hub is the in-process broadcaster behind the SSE endpoint.
type Hub struct {
	mu     sync.RWMutex
	subs   map[chan types.PunchEvent]struct{}
	buffer int
	closed bool
}

func NewHub() *Hub {
	return &Hub{
		subs:   make(map[chan types.PunchEvent]struct{}),
		buffer: defaultSubscriberBuffer,
	}
}

// Subscribe returns a channel of events and a cancel func that must be
// called once the caller stops reading.
func (h *Hub) Subscribe() (<-chan types.PunchEvent, func()) {
	ch := make(chan types.PunchEvent, h.buffer)

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if _, ok := h.subs[ch]; ok {
				delete(h.subs, ch)
				close(ch)
			}
		})
	}
}

// Publish delivers ev to every subscriber with room in its buffer; full
// subscribers miss the event.
func (h *Hub) Publish(_ context.Context, ev types.PunchEvent) error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subs {
		select {
		case ch <- ev:
		default:
		}
	}
	return nil
}

func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Close ends every subscription.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for ch := range h.subs {
		close(ch)
		delete(h.subs, ch)
	}
}
