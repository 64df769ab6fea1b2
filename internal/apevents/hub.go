// Package apevents is the local event bus: it receives per-AP
// notifications from the management-socket subscriptions, normalizes them,
// and fans them out to the observation store, the replication transport,
// and any local observers (the control RPC websocket, metrics).
package apevents

import (
	"sync"
	"time"

	"steerd.dev/steerd/internal/wire"
)

// EventType categorizes a normalized bus event.
type EventType string

const (
	EventProbe    EventType = "probe"
	EventAuth     EventType = "auth"
	EventAssoc    EventType = "assoc"
	EventDeauth   EventType = "deauth"
	EventDecision EventType = "decision"
)

// Event is the message published on the bus after a handler normalizes and
// acts on an incoming AP notification.
type Event struct {
	Type      EventType
	Timestamp time.Time
	BSSID     wire.MacAddr
	Client    wire.MacAddr
	Data      any
}

// Hub is a typed pub/sub bus: subscribers register for one or more event
// types (or all events via Subscribe with no types) and receive a buffered,
// non-blocking fan-out.
type Hub struct {
	mu   sync.RWMutex
	subs map[EventType][]chan Event
	all  []chan Event

	published uint64
	dropped   uint64
}

// NewHub constructs an empty Hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[EventType][]chan Event)}
}

// Subscribe returns a channel fed by events of the given types, or every
// event if types is empty.
func (h *Hub) Subscribe(bufSize int, types ...EventType) <-chan Event {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan Event, bufSize)
	if len(types) == 0 {
		h.all = append(h.all, ch)
		return ch
	}
	for _, t := range types {
		h.subs[t] = append(h.subs[t], ch)
	}
	return ch
}

// Publish fans e out to every matching subscriber without blocking; a
// subscriber whose buffer is full is skipped and counted as dropped.
func (h *Hub) Publish(e Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	h.published++
	for _, ch := range h.subs[e.Type] {
		select {
		case ch <- e:
		default:
			h.dropped++
		}
	}
	for _, ch := range h.all {
		select {
		case ch <- e:
		default:
			h.dropped++
		}
	}
}

// Stats reports lifetime publish/drop counters.
func (h *Hub) Stats() (published, dropped uint64) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.published, h.dropped
}
