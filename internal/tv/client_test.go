package tv

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tmaia/tvctl/internal/ssap"
)

// mockTV is a scripted peer speaking the TV's side of the protocol over a
// plaintext websocket.
type mockTV struct {
	t   *testing.T
	srv *httptest.Server

	// approve controls the pairing outcome. When true the handshake ends in a
	// registered frame carrying clientKey, after one intermediate ack.
	approve   bool
	clientKey string

	// onRequest answers request frames. Returning false swallows the frame,
	// simulating a TV that never answers.
	onRequest func(conn *websocket.Conn, msg *ssap.Message) bool

	mu        sync.Mutex
	conns     []*websocket.Conn
	registers []json.RawMessage // payloads of received register frames
}

func newMockTV(t *testing.T) *mockTV {
	m := &mockTV{t: t, approve: true, clientKey: "test-client-key"}
	upgrader := websocket.Upgrader{}

	m.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		m.mu.Lock()
		m.conns = append(m.conns, conn)
		m.mu.Unlock()
		m.serve(conn)
	}))
	t.Cleanup(m.srv.Close)
	return m
}

func (m *mockTV) serve(conn *websocket.Conn) {
	defer conn.Close()
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var msg ssap.Message
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}

		switch msg.Type {
		case ssap.TypeRegister:
			m.mu.Lock()
			m.registers = append(m.registers, msg.Payload)
			m.mu.Unlock()

			if !m.approve {
				m.send(conn, map[string]any{"type": "error", "id": msg.ID, "error": "403 pairing denied"})
				continue
			}
			// Prompt ack first, then the terminal frame, like real firmware.
			m.send(conn, map[string]any{"type": "response", "id": msg.ID, "payload": map[string]any{"pairingType": "PROMPT"}})
			m.send(conn, map[string]any{"type": "registered", "id": msg.ID, "payload": map[string]any{"client-key": m.clientKey}})
		case ssap.TypeRequest:
			if m.onRequest != nil && !m.onRequest(conn, &msg) {
				continue
			}
			m.send(conn, map[string]any{"type": "response", "id": msg.ID, "payload": map[string]any{"returnValue": true}})
		}
	}
}

func (m *mockTV) send(conn *websocket.Conn, v any) {
	data, err := json.Marshal(v)
	require.NoError(m.t, err)
	_ = conn.WriteMessage(websocket.TextMessage, data)
}

// push sends a frame on the first live connection, outside the read loop.
func (m *mockTV) push(v any) {
	m.mu.Lock()
	conn := m.conns[len(m.conns)-1]
	m.mu.Unlock()
	m.send(conn, v)
}

func (m *mockTV) dropConnections() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.conns {
		_ = c.Close()
	}
}

func (m *mockTV) lastRegister() map[string]any {
	m.mu.Lock()
	defer m.mu.Unlock()
	require.NotEmpty(m.t, m.registers)
	var payload map[string]any
	require.NoError(m.t, json.Unmarshal(m.registers[len(m.registers)-1], &payload))
	return payload
}

func (m *mockTV) hostPort() (string, int) {
	host, portStr, err := net.SplitHostPort(m.srv.Listener.Addr().String())
	require.NoError(m.t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(m.t, err)
	return host, port
}

// memStore is an in-memory CredentialStore.
type memStore struct {
	mu   sync.Mutex
	keys map[string]string
}

func newMemStore() *memStore { return &memStore{keys: make(map[string]string)} }

func (s *memStore) ClientKey(host string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.keys[host]
}

func (s *memStore) SetClientKey(host, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys[host] = key
	return nil
}

func newTestClient(m *mockTV, creds CredentialStore) *Client {
	host, port := m.hostPort()
	return New(Options{
		Host:           host,
		Port:           port,
		DisableTLS:     true,
		RequestTimeout: 2 * time.Second,
		Creds:          creds,
	})
}

func TestClient_ConnectPairsAndPersistsKey(t *testing.T) {
	m := newMockTV(t)
	creds := newMemStore()
	c := newTestClient(m, creds)
	defer c.Disconnect()

	require.NoError(t, c.Connect(context.Background()))
	assert.Equal(t, StateReady, c.State())
	assert.True(t, c.IsConnected())

	host, _ := m.hostPort()
	assert.Equal(t, "test-client-key", creds.ClientKey(host))

	// First pairing carries no key.
	_, hadKey := m.lastRegister()["client-key"]
	assert.False(t, hadKey)
}

func TestClient_ConnectReplaysCachedKey(t *testing.T) {
	m := newMockTV(t)
	creds := newMemStore()
	host, _ := m.hostPort()
	require.NoError(t, creds.SetClientKey(host, "cached-key"))

	c := newTestClient(m, creds)
	defer c.Disconnect()
	require.NoError(t, c.Connect(context.Background()))

	assert.Equal(t, "cached-key", m.lastRegister()["client-key"])
}

func TestClient_DeniedPairing(t *testing.T) {
	m := newMockTV(t)
	m.approve = false
	creds := newMemStore()
	c := newTestClient(m, creds)

	err := c.Connect(context.Background())
	require.Error(t, err)

	var pairErr *PairingError
	require.True(t, errors.As(err, &pairErr))
	assert.Contains(t, pairErr.Status, "denied")

	// A denied pairing leaves no credential and a clean slate for retry.
	host, _ := m.hostPort()
	assert.Empty(t, creds.ClientKey(host))
	assert.Equal(t, StateDisconnected, c.State())
}

func TestClient_ConnectUnreachableHost(t *testing.T) {
	c := New(Options{
		Host:        "127.0.0.1",
		Port:        1, // nothing listens here
		DisableTLS:  true,
		DialTimeout: 500 * time.Millisecond,
	})

	err := c.Connect(context.Background())
	require.Error(t, err)
	assert.Equal(t, StateDisconnected, c.State())
}

func TestClient_RequestBeforeConnect(t *testing.T) {
	c := New(Options{Host: "127.0.0.1", DisableTLS: true})

	start := time.Now()
	_, err := c.Request(context.Background(), ssap.URIGetVolume, nil)
	assert.ErrorIs(t, err, ErrNotConnected)
	assert.Less(t, time.Since(start), time.Second, "must fail fast, not wait for a timeout")
}

func TestClient_VolumeRoundTrip(t *testing.T) {
	m := newMockTV(t)
	volume := 0
	m.onRequest = func(conn *websocket.Conn, msg *ssap.Message) bool {
		switch msg.URI {
		case ssap.URISetVolume:
			var p struct {
				Volume int `json:"volume"`
			}
			require.NoError(t, json.Unmarshal(msg.Payload, &p))
			volume = p.Volume
			m.send(conn, map[string]any{"type": "response", "id": msg.ID, "payload": map[string]any{"returnValue": true}})
		case ssap.URIGetVolume:
			m.send(conn, map[string]any{"type": "response", "id": msg.ID, "payload": map[string]any{"returnValue": true, "volume": volume, "muted": false}})
		}
		return false
	}

	c := newTestClient(m, nil)
	defer c.Disconnect()
	require.NoError(t, c.Connect(context.Background()))

	require.NoError(t, c.SetVolume(context.Background(), 15))
	vs, err := c.GetVolume(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 15, vs.Volume)
	assert.False(t, vs.Muted)
}

func TestClient_ConcurrentRequestCorrelation(t *testing.T) {
	m := newMockTV(t)
	m.onRequest = func(conn *websocket.Conn, msg *ssap.Message) bool {
		// Echo the request payload back so each caller can verify it got its
		// own answer and nobody else's.
		m.send(conn, map[string]any{"type": "response", "id": msg.ID, "payload": json.RawMessage(msg.Payload)})
		return false
	}

	c := newTestClient(m, nil)
	defer c.Disconnect()
	require.NoError(t, c.Connect(context.Background()))

	const n = 20
	var wg sync.WaitGroup
	errs := make([]error, n)
	got := make([]int, n)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			raw, err := c.Request(context.Background(), ssap.URIToast, map[string]any{"marker": i})
			if err != nil {
				errs[i] = err
				return
			}
			var p struct {
				Marker int `json:"marker"`
			}
			errs[i] = json.Unmarshal(raw, &p)
			got[i] = p.Marker
		}(i)
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		require.NoError(t, errs[i], "request %d", i)
		assert.Equal(t, i, got[i], "request %d resolved with another request's response", i)
	}
	assert.Equal(t, 0, c.pend.size())
}

func TestClient_DeviceError(t *testing.T) {
	m := newMockTV(t)
	m.onRequest = func(conn *websocket.Conn, msg *ssap.Message) bool {
		m.send(conn, map[string]any{"type": "error", "id": msg.ID, "error": "500 Application error"})
		return false
	}

	c := newTestClient(m, nil)
	defer c.Disconnect()
	require.NoError(t, c.Connect(context.Background()))

	_, err := c.Request(context.Background(), ssap.URILaunchApp, map[string]any{"id": "nope"})
	var devErr *DeviceError
	require.True(t, errors.As(err, &devErr))
	assert.Contains(t, devErr.Status, "500")
}

func TestClient_RequestTimeoutLeavesConnectionHealthy(t *testing.T) {
	m := newMockTV(t)
	m.onRequest = func(conn *websocket.Conn, msg *ssap.Message) bool {
		// Swallow the slow URI, answer everything else.
		return msg.URI != ssap.URIPowerOff
	}

	host, port := m.hostPort()
	c := New(Options{
		Host:           host,
		Port:           port,
		DisableTLS:     true,
		RequestTimeout: 100 * time.Millisecond,
	})
	defer c.Disconnect()
	require.NoError(t, c.Connect(context.Background()))

	err := c.PowerOff(context.Background())
	assert.ErrorIs(t, err, ErrTimeout)

	// The timeout cancelled one wait, not the connection.
	assert.True(t, c.IsConnected())
	_, err = c.Request(context.Background(), ssap.URIGetVolume, nil)
	assert.NoError(t, err)
	assert.Equal(t, 0, c.pend.size(), "timed-out entry must be reaped")
}

func TestClient_ConnectionLossFailsInflightRequests(t *testing.T) {
	m := newMockTV(t)
	m.onRequest = func(conn *websocket.Conn, msg *ssap.Message) bool {
		return false // never answer
	}

	c := newTestClient(m, nil)
	require.NoError(t, c.Connect(context.Background()))

	errCh := make(chan error, 1)
	go func() {
		_, err := c.Request(context.Background(), ssap.URIGetVolume, nil)
		errCh <- err
	}()

	// Let the request get in flight, then kill the transport.
	time.Sleep(50 * time.Millisecond)
	m.dropConnections()

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, ErrConnectionLost)
	case <-time.After(2 * time.Second):
		t.Fatal("request did not fail after connection loss")
	}

	require.Eventually(t, func() bool {
		return c.State() == StateDisconnected
	}, 2*time.Second, 10*time.Millisecond)

	// Operations after the loss fail fast.
	_, err := c.Request(context.Background(), ssap.URIGetVolume, nil)
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestClient_SubscriptionDeliversEvents(t *testing.T) {
	m := newMockTV(t)
	c := newTestClient(m, nil)
	defer c.Disconnect()
	require.NoError(t, c.Connect(context.Background()))

	events := make(chan *ssap.Message, 4)
	id, err := c.Subscribe(ssap.URIGetVolume, func(msg *ssap.Message) {
		events <- msg
	})
	require.NoError(t, err)

	m.push(map[string]any{"type": "response", "id": id, "payload": map[string]any{"volume": 11}})
	m.push(map[string]any{"type": "response", "id": id, "payload": map[string]any{"volume": 12}})

	for want := 11; want <= 12; want++ {
		select {
		case msg := <-events:
			var p struct {
				Volume int `json:"volume"`
			}
			require.NoError(t, json.Unmarshal(msg.Payload, &p))
			assert.Equal(t, want, p.Volume)
		case <-time.After(2 * time.Second):
			t.Fatalf("event %d not delivered", want)
		}
	}
}

func TestClient_SubscriptionHandlerPanicIsContained(t *testing.T) {
	m := newMockTV(t)
	c := newTestClient(m, nil)
	defer c.Disconnect()
	require.NoError(t, c.Connect(context.Background()))

	calls := make(chan struct{}, 4)
	id, err := c.Subscribe(ssap.URIGetVolume, func(msg *ssap.Message) {
		calls <- struct{}{}
		panic("handler bug")
	})
	require.NoError(t, err)

	m.push(map[string]any{"type": "response", "id": id, "payload": map[string]any{}})
	m.push(map[string]any{"type": "response", "id": id, "payload": map[string]any{}})

	// Both events arrive despite the first panic, and the client survives.
	for i := 0; i < 2; i++ {
		select {
		case <-calls:
		case <-time.After(2 * time.Second):
			t.Fatalf("event %d not delivered after panic", i)
		}
	}
	assert.True(t, c.IsConnected())
}

func TestClient_Unsubscribe(t *testing.T) {
	m := newMockTV(t)
	c := newTestClient(m, nil)
	defer c.Disconnect()
	require.NoError(t, c.Connect(context.Background()))

	id, err := c.Subscribe(ssap.URIGetVolume, func(*ssap.Message) {})
	require.NoError(t, err)
	require.NoError(t, c.Unsubscribe(id))

	assert.Error(t, c.Unsubscribe(id), "second unsubscribe must report an unknown id")
}

func TestClient_DisconnectIsIdempotent(t *testing.T) {
	m := newMockTV(t)
	c := newTestClient(m, nil)
	require.NoError(t, c.Connect(context.Background()))

	c.Disconnect()
	c.Disconnect()
	assert.Equal(t, StateDisconnected, c.State())

	// A disconnected client can connect again.
	require.NoError(t, c.Connect(context.Background()))
	assert.True(t, c.IsConnected())
	c.Disconnect()
}
