package tv

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/tmaia/tvctl/internal/ssap"
)

// State represents the lifecycle state of the TV connection.
type State string

const (
	StateDisconnected    State = "disconnected"
	StateConnecting      State = "connecting"
	StateAwaitingPairing State = "awaiting_pairing"
	StateReady           State = "ready"
)

// CredentialStore persists the opaque pairing credential issued by the TV.
// A cached key is replayed on connect so the on-screen approval prompt is
// skipped after the first pairing.
type CredentialStore interface {
	ClientKey(host string) string
	SetClientKey(host, key string) error
}

// Options configures a Client.
type Options struct {
	Host string
	Port int // default 3001

	// DisableTLS switches to a plaintext ws:// connection. The default is
	// wss:// with certificate validation disabled; the TV presents a
	// self-signed certificate.
	DisableTLS bool

	// DialTimeout bounds opening the transport. Default 10s.
	DialTimeout time.Duration

	// HandshakeTimeout bounds the pairing handshake. A human may be approving
	// the prompt on screen, so this is much longer than RequestTimeout.
	// Default 30s.
	HandshakeTimeout time.Duration

	// RequestTimeout bounds an individual request. Default 10s.
	RequestTimeout time.Duration

	// Creds persists the pairing credential across runs. Nil disables
	// persistence, forcing interactive pairing on every connect.
	Creds CredentialStore
}

// Client is an SSAP protocol client for a single TV. It owns one persistent
// WebSocket connection, a receive loop that correlates inbound frames to
// pending requests and subscriptions, and the pairing handshake.
//
// A Client is safe for concurrent use; many callers can have requests in
// flight over the one connection.
type Client struct {
	opts Options
	url  string

	mu      sync.Mutex // guards state, conn, pointer
	state   State
	conn    *websocket.Conn
	pointer *pointerSocket

	writeMu sync.Mutex // serializes writes to conn

	pend *pendingTable

	subsMu sync.Mutex
	subs   map[string]*subscription
}

// New creates a disconnected client. Call Connect before issuing operations.
func New(opts Options) *Client {
	if opts.Port == 0 {
		opts.Port = 3001
	}
	if opts.DialTimeout == 0 {
		opts.DialTimeout = 10 * time.Second
	}
	if opts.HandshakeTimeout == 0 {
		opts.HandshakeTimeout = 30 * time.Second
	}
	if opts.RequestTimeout == 0 {
		opts.RequestTimeout = 10 * time.Second
	}

	scheme := "wss"
	if opts.DisableTLS {
		scheme = "ws"
	}

	return &Client{
		opts:  opts,
		url:   fmt.Sprintf("%s://%s:%d", scheme, opts.Host, opts.Port),
		state: StateDisconnected,
		pend:  newPendingTable(),
		subs:  make(map[string]*subscription),
	}
}

// State returns the current connection state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// IsConnected reports whether the client is paired and ready for operations.
func (c *Client) IsConnected() bool {
	return c.State() == StateReady
}

// Host returns the configured TV host.
func (c *Client) Host() string { return c.opts.Host }

// Connect opens the transport, starts the receive loop and runs the pairing
// handshake. An unreachable host or a denied pairing is reported as an error,
// never a panic. Connect does not retry; that is the caller's policy.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateDisconnected {
		state := c.state
		c.mu.Unlock()
		return fmt.Errorf("connect: client is %s", state)
	}
	c.state = StateConnecting
	c.mu.Unlock()

	dialer := websocket.Dialer{
		HandshakeTimeout: c.opts.DialTimeout,
	}
	if !c.opts.DisableTLS {
		dialer.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	conn, _, err := dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		c.mu.Lock()
		c.state = StateDisconnected
		c.mu.Unlock()
		return fmt.Errorf("dial %s: %w", c.url, err)
	}
	slog.Info("connected to TV", "url", c.url)

	c.mu.Lock()
	c.conn = conn
	c.state = StateAwaitingPairing
	c.mu.Unlock()

	go c.readLoop(conn)

	if err := c.register(ctx); err != nil {
		c.teardown()
		return err
	}

	// The receive loop may have torn the connection down while the terminal
	// frame was in flight; only then is the handshake not a success.
	c.mu.Lock()
	if c.state != StateAwaitingPairing {
		c.mu.Unlock()
		return ErrConnectionLost
	}
	c.state = StateReady
	c.mu.Unlock()

	setConnectionState(1)
	slog.Info("registered with TV", "host", c.opts.Host)
	return nil
}

// register runs the pairing handshake: one register frame out, then a
// sequence of inbound frames sharing its id. Intermediate response frames are
// the TV acknowledging the prompt; the terminal frame is registered or error.
func (c *Client) register(ctx context.Context) error {
	id := newID()
	p, err := c.pend.add(id, multiFrame)
	if err != nil {
		return err
	}
	defer c.pend.remove(id)

	clientKey := ""
	if c.opts.Creds != nil {
		clientKey = c.opts.Creds.ClientKey(c.opts.Host)
	}

	data, err := ssap.MarshalRegister(id, clientKey)
	if err != nil {
		return err
	}
	if err := c.write(data); err != nil {
		return fmt.Errorf("send register: %w", err)
	}

	timer := time.NewTimer(c.opts.HandshakeTimeout)
	defer timer.Stop()

	for {
		select {
		case msg := <-p.frames:
			switch msg.Type {
			case ssap.TypeRegistered:
				if key := ssap.RegisteredClientKey(msg.Payload); key != "" && c.opts.Creds != nil {
					if err := c.opts.Creds.SetClientKey(c.opts.Host, key); err != nil {
						slog.Error("failed to persist client key", "host", c.opts.Host, "error", err)
					}
				}
				return nil
			case ssap.TypeError:
				return &PairingError{Status: msg.Error}
			default:
				// Provisional ack before the on-screen prompt resolves.
				slog.Info("pairing acknowledged, waiting for approval on TV", "type", msg.Type)
			}
		case <-p.cancel:
			return ErrConnectionLost
		case <-timer.C:
			return fmt.Errorf("pairing approval: %w", ErrTimeout)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Disconnect closes the connection and fails every outstanding request with
// ErrConnectionLost. Idempotent.
func (c *Client) Disconnect() {
	c.teardown()
}

// teardown is the single cleanup path, shared by Disconnect, handshake
// failure and receive-loop exit.
func (c *Client) teardown() {
	c.mu.Lock()
	if c.state == StateDisconnected {
		c.mu.Unlock()
		return
	}
	c.state = StateDisconnected
	conn := c.conn
	c.conn = nil
	ptr := c.pointer
	c.pointer = nil
	c.mu.Unlock()

	if conn != nil {
		_ = conn.Close()
	}
	if ptr != nil {
		ptr.close()
	}

	c.pend.failAll()

	c.subsMu.Lock()
	for _, s := range c.subs {
		s.deactivate()
	}
	c.subs = make(map[string]*subscription)
	c.subsMu.Unlock()

	setConnectionState(0)
	slog.Info("disconnected from TV", "host", c.opts.Host)
}

// readLoop decodes inbound frames and routes them by id for the lifetime of
// the connection. A single malformed frame is logged and skipped; a transport
// error ends the loop and triggers the same cleanup as Disconnect.
func (c *Client) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if c.State() != StateDisconnected {
				slog.Warn("TV connection closed", "host", c.opts.Host, "error", err)
			}
			break
		}
		framesIn.Inc()

		msg, err := ssap.ParseMessage(data)
		if err != nil {
			decodeErrors.Inc()
			slog.Warn("dropping malformed frame", "error", err)
			continue
		}
		c.route(msg)
	}
	c.teardown()
}

// route resolves a decoded frame against the correlation table, then the
// subscription table. Frames for reaped ids are dropped.
func (c *Client) route(msg *ssap.Message) {
	if c.pend.dispatch(msg) {
		return
	}

	c.subsMu.Lock()
	sub, ok := c.subs[msg.ID]
	c.subsMu.Unlock()
	if ok {
		sub.enqueue(msg)
		return
	}

	slog.Debug("frame for unknown id dropped", "id", msg.ID, "type", msg.Type)
}

// Request sends one SSAP request and waits for its response, the configured
// timeout, or connection loss, whichever comes first. A timeout cancels only
// this caller's wait; the connection stays up.
func (c *Client) Request(ctx context.Context, uri ssap.URI, payload any) (json.RawMessage, error) {
	if !c.IsConnected() {
		return nil, ErrNotConnected
	}

	id := newID()
	p, err := c.pend.add(id, singleShot)
	if err != nil {
		return nil, err
	}

	data, err := ssap.MarshalRequest(id, uri, payload)
	if err != nil {
		c.pend.remove(id)
		return nil, err
	}
	if err := c.write(data); err != nil {
		c.pend.remove(id)
		return nil, fmt.Errorf("send %s: %w", uri, err)
	}

	requestsInflight.Inc()
	defer requestsInflight.Dec()

	timer := time.NewTimer(c.opts.RequestTimeout)
	defer timer.Stop()

	select {
	case msg := <-p.frames:
		if msg.Type == ssap.TypeError {
			return nil, &DeviceError{Status: msg.Error, Payload: msg.Payload}
		}
		return msg.Payload, nil
	case <-p.cancel:
		return nil, ErrConnectionLost
	case <-timer.C:
		c.pend.remove(id)
		return nil, fmt.Errorf("%s: %w after %s", uri, ErrTimeout, c.opts.RequestTimeout)
	case <-ctx.Done():
		c.pend.remove(id)
		return nil, ctx.Err()
	}
}

// Subscribe registers handler for push events on the given resource and
// returns the subscription id for later cancellation. The handler runs off
// the receive loop; panics are contained and logged.
func (c *Client) Subscribe(uri ssap.URI, handler EventHandler) (string, error) {
	if !c.IsConnected() {
		return "", ErrNotConnected
	}

	id := newID()
	data, err := ssap.MarshalSubscribe(id, uri)
	if err != nil {
		return "", err
	}

	sub := newSubscription(id, uri, handler)
	c.subsMu.Lock()
	c.subs[id] = sub
	c.subsMu.Unlock()

	if err := c.write(data); err != nil {
		c.subsMu.Lock()
		delete(c.subs, id)
		c.subsMu.Unlock()
		sub.deactivate()
		return "", fmt.Errorf("send subscribe %s: %w", uri, err)
	}
	return id, nil
}

// Unsubscribe tears down a subscription established by Subscribe.
func (c *Client) Unsubscribe(id string) error {
	c.subsMu.Lock()
	sub, ok := c.subs[id]
	delete(c.subs, id)
	c.subsMu.Unlock()

	if !ok {
		return fmt.Errorf("unknown subscription %q", id)
	}
	sub.deactivate()

	// Best effort: the TV drops subscriptions on disconnect anyway.
	if data, err := ssap.MarshalUnsubscribe(id); err == nil {
		_ = c.write(data)
	}
	return nil
}

// write serializes frame writes to the shared connection.
func (c *Client) write(data []byte) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return err
	}
	framesOut.Inc()
	return nil
}

// newID returns a short token unique among concurrently outstanding ids.
func newID() string {
	return uuid.NewString()[:8]
}
