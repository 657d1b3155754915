package tv

import (
	"fmt"
	"sync"

	"github.com/tmaia/tvctl/internal/ssap"
)

// completionKind selects the shape of a pending completion. Requests resolve
// exactly once; the registration handshake receives a sequence of frames
// (zero or more acknowledgements, then a terminal registered/error).
type completionKind int

const (
	singleShot completionKind = iota
	multiFrame
)

// handshakeQueueSize bounds the multi-frame queue. The TV sends at most a
// couple of intermediate acknowledgements before the terminal frame.
const handshakeQueueSize = 8

// pending is one in-flight completion slot. frames carries matched inbound
// frames; cancel is closed when the connection is torn down so waiters fail
// with ErrConnectionLost instead of hanging.
type pending struct {
	kind   completionKind
	frames chan *ssap.Message
	cancel chan struct{}
}

// pendingTable correlates outstanding ids to their completion slots.
// All mutations are serialized behind a single mutex; dispatch happens on the
// receive loop while add/remove happen on caller goroutines.
type pendingTable struct {
	mu      sync.Mutex
	entries map[string]*pending
}

func newPendingTable() *pendingTable {
	return &pendingTable{entries: make(map[string]*pending)}
}

// add inserts a new completion slot. A duplicate id is a caller bug, not a
// runtime condition: ids are generated unique per outstanding message.
func (t *pendingTable) add(id string, kind completionKind) (*pending, error) {
	size := 1
	if kind == multiFrame {
		size = handshakeQueueSize
	}
	p := &pending{
		kind:   kind,
		frames: make(chan *ssap.Message, size),
		cancel: make(chan struct{}),
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if _, exists := t.entries[id]; exists {
		return nil, fmt.Errorf("duplicate pending id %q", id)
	}
	t.entries[id] = p
	return p, nil
}

// remove drops an entry, typically after the caller's deadline won the race.
// A frame arriving later for the reaped id is simply dropped by dispatch.
func (t *pendingTable) remove(id string) {
	t.mu.Lock()
	delete(t.entries, id)
	t.mu.Unlock()
}

// dispatch delivers an inbound frame to its completion slot. Single-shot
// entries are removed before delivery so an id can never complete twice.
// Returns false when the id has no live entry.
func (t *pendingTable) dispatch(msg *ssap.Message) bool {
	t.mu.Lock()
	p, ok := t.entries[msg.ID]
	if ok && p.kind == singleShot {
		delete(t.entries, msg.ID)
	}
	t.mu.Unlock()

	if !ok {
		return false
	}

	select {
	case p.frames <- msg:
		return true
	default:
		// Queue full: only reachable for a misbehaving multi-frame peer.
		return false
	}
}

// failAll cancels every outstanding entry and clears the table. Called on
// connection teardown so no waiter is left hanging.
func (t *pendingTable) failAll() {
	t.mu.Lock()
	entries := t.entries
	t.entries = make(map[string]*pending)
	t.mu.Unlock()

	for _, p := range entries {
		close(p.cancel)
	}
}

// size reports the number of live entries.
func (t *pendingTable) size() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}
