package web

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/tmaia/tvctl/internal/ssap"
	"github.com/tmaia/tvctl/internal/tv"
)

// Event is one state change pushed by the TV, republished to dashboard
// consumers over the live-update stream.
type Event struct {
	Resource string          `json:"resource"`
	Payload  json.RawMessage `json:"payload"`
}

// consumerQueueSize bounds each SSE consumer's queue. A consumer that falls
// this far behind loses events rather than slowing the others.
const consumerQueueSize = 16

// Broker fans decoded subscription events out to any number of consumers.
type Broker struct {
	mu        sync.Mutex
	consumers map[chan Event]struct{}
}

func NewBroker() *Broker {
	return &Broker{consumers: make(map[chan Event]struct{})}
}

// Subscribe registers a consumer. The returned cancel func must be called
// when the consumer goes away.
func (b *Broker) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, consumerQueueSize)

	b.mu.Lock()
	b.consumers[ch] = struct{}{}
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		delete(b.consumers, ch)
		b.mu.Unlock()
	}
	return ch, cancel
}

// Publish delivers an event to every consumer without blocking.
func (b *Broker) Publish(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.consumers {
		select {
		case ch <- ev:
		default:
			slog.Debug("dropping event for slow stream consumer", "resource", ev.Resource)
		}
	}
}

// ConsumerCount reports the number of attached consumers.
func (b *Broker) ConsumerCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.consumers)
}

// feedHandler adapts a TV subscription push into a broker event.
func (b *Broker) feedHandler(resource string) tv.EventHandler {
	return func(msg *ssap.Message) {
		b.Publish(Event{Resource: resource, Payload: msg.Payload})
	}
}

// startFeeds subscribes to the resources the dashboard watches live. The
// subscriptions die with the connection, so this runs after every successful
// connect.
func (s *Server) startFeeds() {
	feeds := []struct {
		resource string
		uri      ssap.URI
	}{
		{"volume", ssap.URIGetVolume},
		{"foreground_app", ssap.URIForegroundApp},
		{"power_state", ssap.URIPowerState},
	}

	for _, f := range feeds {
		if _, err := s.tv.Subscribe(f.uri, s.broker.feedHandler(f.resource)); err != nil {
			slog.Warn("live feed subscription failed", "resource", f.resource, "error", err)
		}
	}
}

// handleEvents streams broker events to the browser as server-sent events.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	flusher.Flush()

	ch, cancel := s.broker.Subscribe()
	defer cancel()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev := <-ch:
			data, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Resource, data)
			flusher.Flush()
		}
	}
}
