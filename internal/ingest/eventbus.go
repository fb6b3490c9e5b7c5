// Package ingest feeds alignment jobs into the worker pool from sources
// other than the HTTP API: a drop-directory watcher and MQTT. It also owns
// the event bus that fans completed-job events out to SSE subscribers.
package ingest

import (
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/speechlab/align-engine/internal/api"
	"github.com/speechlab/align-engine/internal/metrics"
)

// EventBus provides pub-sub event distribution for SSE subscribers.
// It maintains a ring buffer for replay on reconnect.
type EventBus struct {
	mu          sync.RWMutex
	subscribers map[uint64]subscriber
	nextID      uint64
	seq         atomic.Uint64

	// Ring buffer for Last-Event-ID replay
	ring     []api.SSEEvent
	ringSize int
	ringHead int
	ringMu   sync.RWMutex
}

type subscriber struct {
	ch     chan api.SSEEvent
	filter api.EventFilter
}

// NewEventBus creates an event bus with the given ring buffer size.
func NewEventBus(ringSize int) *EventBus {
	return &EventBus{
		subscribers: make(map[uint64]subscriber),
		ring:        make([]api.SSEEvent, ringSize),
		ringSize:    ringSize,
	}
}

// Subscribe registers a new subscriber and returns a channel and cancel function.
func (eb *EventBus) Subscribe(filter api.EventFilter) (<-chan api.SSEEvent, func()) {
	eb.mu.Lock()
	id := eb.nextID
	eb.nextID++
	ch := make(chan api.SSEEvent, 64)
	eb.subscribers[id] = subscriber{ch: ch, filter: filter}
	eb.mu.Unlock()

	cancel := func() {
		eb.mu.Lock()
		delete(eb.subscribers, id)
		eb.mu.Unlock()
	}
	return ch, cancel
}

// SubscriberCount returns the number of active subscribers.
func (eb *EventBus) SubscriberCount() int {
	eb.mu.RLock()
	defer eb.mu.RUnlock()
	return len(eb.subscribers)
}

// ReplaySince returns buffered events newer than the given event ID. When
// the ID is unknown (overwritten by ring wrap, or from a previous process)
// all buffered events are returned so the client doesn't silently miss
// everything.
func (eb *EventBus) ReplaySince(lastEventID string, filter api.EventFilter) []api.SSEEvent {
	eb.ringMu.RLock()
	defer eb.ringMu.RUnlock()

	skipUntil := lastEventID
	if skipUntil != "" && !eb.ringContains(skipUntil) {
		skipUntil = ""
	}

	var events []api.SSEEvent
	found := skipUntil == ""
	for i := 0; i < eb.ringSize; i++ {
		idx := (eb.ringHead + i) % eb.ringSize
		e := eb.ring[idx]
		if e.ID == "" {
			continue
		}
		if !found {
			if e.ID == skipUntil {
				found = true
			}
			continue
		}
		if filter.Matches(e) {
			events = append(events, e)
		}
	}
	return events
}

// ringContains reports whether an event ID is still in the ring buffer.
// Callers must hold ringMu.
func (eb *EventBus) ringContains(id string) bool {
	for i := 0; i < eb.ringSize; i++ {
		if eb.ring[i].ID == id {
			return true
		}
	}
	return false
}

// EventData holds the fields needed to publish an SSE event.
type EventData struct {
	Type    string // event type, e.g. "transcript"
	Source  string // job source: "http", "mqtt", "watcher"
	Payload any
}

// Publish sends an event to all matching subscribers and adds it to the ring buffer.
func (eb *EventBus) Publish(e EventData) {
	data, err := json.Marshal(e.Payload)
	if err != nil {
		return
	}

	seq := eb.seq.Add(1)
	event := api.SSEEvent{
		ID:        fmt.Sprintf("%d-%d", time.Now().UnixMilli(), seq),
		Type:      e.Type,
		Source:    e.Source,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Data:      data,
	}

	eb.ringMu.Lock()
	eb.ring[eb.ringHead] = event
	eb.ringHead = (eb.ringHead + 1) % eb.ringSize
	eb.ringMu.Unlock()

	metrics.SSEEventsPublishedTotal.Inc()

	eb.mu.RLock()
	for _, sub := range eb.subscribers {
		if sub.filter.Matches(event) {
			select {
			case sub.ch <- event:
			default:
				// Drop if subscriber is slow
			}
		}
	}
	eb.mu.RUnlock()
}
