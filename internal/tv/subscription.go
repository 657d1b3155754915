package tv

import (
	"log/slog"
	"sync"

	"github.com/tmaia/tvctl/internal/ssap"
)

// EventHandler is invoked once per pushed event, in receive-loop order, for
// the lifetime of a subscription.
type EventHandler func(msg *ssap.Message)

// subQueueSize bounds the per-subscription delivery queue. When a handler
// falls this far behind, further events are dropped rather than stalling the
// receive loop.
const subQueueSize = 16

// subscription is a standing registration for push events. Events are drained
// by a dedicated goroutine so a slow or blocking handler cannot delay frame
// decode or delivery to other subscriptions.
type subscription struct {
	id      string
	uri     ssap.URI
	handler EventHandler

	queue chan *ssap.Message
	done  chan struct{}
	once  sync.Once
}

func newSubscription(id string, uri ssap.URI, handler EventHandler) *subscription {
	s := &subscription{
		id:      id,
		uri:     uri,
		handler: handler,
		queue:   make(chan *ssap.Message, subQueueSize),
		done:    make(chan struct{}),
	}
	go s.run()
	return s
}

// enqueue hands an event to the delivery goroutine without blocking.
func (s *subscription) enqueue(msg *ssap.Message) {
	select {
	case s.queue <- msg:
	default:
		slog.Warn("subscription queue full, dropping event", "id", s.id, "uri", s.uri)
		eventsDropped.Inc()
	}
}

// deactivate stops delivery. Queued but undelivered events are discarded.
// Safe to call more than once.
func (s *subscription) deactivate() {
	s.once.Do(func() { close(s.done) })
}

func (s *subscription) run() {
	for {
		select {
		case <-s.done:
			return
		case msg := <-s.queue:
			s.invoke(msg)
		}
	}
}

// invoke calls the handler, containing any panic so one bad handler cannot
// break delivery to others.
func (s *subscription) invoke(msg *ssap.Message) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("subscription handler panicked", "id", s.id, "uri", s.uri, "panic", r)
		}
	}()
	s.handler(msg)
}
