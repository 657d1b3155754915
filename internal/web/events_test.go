package web

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tmaia/tvctl/internal/ssap"
)

func TestBrokerFanOut(t *testing.T) {
	b := NewBroker()

	ch1, cancel1 := b.Subscribe()
	ch2, cancel2 := b.Subscribe()
	defer cancel1()
	defer cancel2()
	assert.Equal(t, 2, b.ConsumerCount())

	ev := Event{Resource: "volume", Payload: json.RawMessage(`{"volume":11}`)}
	b.Publish(ev)

	for i, ch := range []<-chan Event{ch1, ch2} {
		select {
		case got := <-ch:
			assert.Equal(t, "volume", got.Resource)
		case <-time.After(time.Second):
			t.Fatalf("consumer %d received nothing", i)
		}
	}
}

func TestBrokerCancelDetaches(t *testing.T) {
	b := NewBroker()
	ch, cancel := b.Subscribe()
	cancel()
	assert.Equal(t, 0, b.ConsumerCount())

	b.Publish(Event{Resource: "volume"})
	select {
	case <-ch:
		t.Fatal("cancelled consumer still received an event")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestBrokerDropsForSlowConsumer(t *testing.T) {
	b := NewBroker()
	ch, cancel := b.Subscribe()
	defer cancel()

	// Overfill the queue; Publish must never block.
	done := make(chan struct{})
	go func() {
		for i := 0; i < consumerQueueSize*2; i++ {
			b.Publish(Event{Resource: "volume"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a full consumer queue")
	}

	// The consumer still gets the queued prefix.
	received := 0
	for {
		select {
		case <-ch:
			received++
			continue
		default:
		}
		break
	}
	assert.Equal(t, consumerQueueSize, received)
}

func TestFeedHandlerRepublishesPayload(t *testing.T) {
	b := NewBroker()
	ch, cancel := b.Subscribe()
	defer cancel()

	handler := b.feedHandler("volume")
	handler(&ssap.Message{
		Type:    ssap.TypeResponse,
		ID:      "sub-1",
		Payload: json.RawMessage(`{"volume":42,"muted":false}`),
	})

	select {
	case ev := <-ch:
		require.Equal(t, "volume", ev.Resource)
		var p struct {
			Volume int `json:"volume"`
		}
		require.NoError(t, json.Unmarshal(ev.Payload, &p))
		assert.Equal(t, 42, p.Volume)
	case <-time.After(time.Second):
		t.Fatal("no event republished")
	}
}
