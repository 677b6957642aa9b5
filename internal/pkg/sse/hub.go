package sse

import (
	"sync"
)

// Event represents an SSE event to be sent to subscribers
type Event struct {
	Topic string
	Event string
	Data  interface{}
}

// Hub fans events out to the subscribers of a topic
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan Event]struct{}
	buffer      int
}

// NewHub creates a hub whose subscriber channels hold up to buffer pending events
func NewHub(buffer int) *Hub {
	if buffer < 1 {
		buffer = 10
	}
	return &Hub{
		subscribers: make(map[string]map[chan Event]struct{}),
		buffer:      buffer,
	}
}

// Subscribe registers a subscriber on topic and returns its channel and a cleanup function.
// Cleanup closes the channel and is safe to call more than once.
func (h *Hub) Subscribe(topic string) (<-chan Event, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan Event, h.buffer)

	if h.subscribers[topic] == nil {
		h.subscribers[topic] = make(map[chan Event]struct{})
	}
	h.subscribers[topic][ch] = struct{}{}

	var once sync.Once
	cleanup := func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.subscribers[topic], ch)
			close(ch)
			if len(h.subscribers[topic]) == 0 {
				delete(h.subscribers, topic)
			}
		})
	}

	return ch, cleanup
}

// Publish sends an event to every subscriber of topic. Slow subscribers miss events
// instead of blocking the publisher.
func (h *Hub) Publish(topic string, event Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	event.Topic = topic
	for ch := range h.subscribers[topic] {
		select {
		case ch <- event:
		default:
		}
	}
}

// PublishToMany sends an event to several topics
func (h *Hub) PublishToMany(topics []string, event Event) {
	for _, topic := range topics {
		h.Publish(topic, event)
	}
}

// SubscriberCount returns the number of active subscribers of topic
func (h *Hub) SubscriberCount(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.subscribers[topic])
}

// TotalSubscribers returns the number of active subscribers across all topics
func (h *Hub) TotalSubscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	total := 0
	for _, subs := range h.subscribers {
		total += len(subs)
	}
	return total
}
