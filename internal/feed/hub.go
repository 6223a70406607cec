// Package feed fans classified events out to every live consumer: the
// terminal UI, websocket clients, and the transcript recorder.
package feed

import (
	"sync"
	"sync/atomic"

	"github.com/loopscope/loopscope/internal/stream"
)

const subscriberBuffer = 256

// Hub broadcasts events to all subscribers. A slow consumer loses events
// rather than stalling the pipeline; there is no delivery guarantee.
type Hub struct {
	mu          sync.RWMutex
	subscribers []chan *stream.Event
	closed      bool
	dropped     atomic.Int64
}

// New creates an empty hub.
func New() *Hub {
	return &Hub{}
}

// Subscribe returns a buffered channel that receives every event published
// after the call. The channel is closed when the hub closes.
func (h *Hub) Subscribe() <-chan *stream.Event {
	ch := make(chan *stream.Event, subscriberBuffer)
	h.mu.Lock()
	if h.closed {
		close(ch)
	} else {
		h.subscribers = append(h.subscribers, ch)
	}
	h.mu.Unlock()
	return ch
}

// Unsubscribe removes and closes a channel previously returned by
// Subscribe. Harmless if the channel is unknown or the hub is closed.
func (h *Hub) Unsubscribe(sub <-chan *stream.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	for i, ch := range h.subscribers {
		if ch == sub {
			h.subscribers = append(h.subscribers[:i], h.subscribers[i+1:]...)
			close(ch)
			return
		}
	}
}

// Publish delivers ev to all subscribers, dropping it for any whose buffer
// is full.
func (h *Hub) Publish(ev *stream.Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		return
	}
	for _, ch := range h.subscribers {
		select {
		case ch <- ev:
		default:
			h.dropped.Add(1)
		}
	}
}

// Dropped returns how many deliveries were discarded for slow consumers.
func (h *Hub) Dropped() int64 {
	return h.dropped.Load()
}

// Subscribers returns the number of live subscriptions.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

// Close closes every subscriber channel. Publish and Subscribe afterwards
// are safe no-ops.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for _, ch := range h.subscribers {
		close(ch)
	}
	h.subscribers = nil
}
