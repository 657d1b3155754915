package tv

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/tmaia/tvctl/internal/ssap"
)

// pointerSocket is the secondary WebSocket the TV exposes for remote-control
// input. Unlike the SSAP channel it is write-only and line-oriented: each
// command is a block of "key:value" lines terminated by a blank line.
type pointerSocket struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (p *pointerSocket) send(fields ...string) error {
	var b strings.Builder
	for _, f := range fields {
		b.WriteString(f)
		b.WriteByte('\n')
	}
	b.WriteByte('\n')

	p.mu.Lock()
	defer p.mu.Unlock()
	return p.conn.WriteMessage(websocket.TextMessage, []byte(b.String()))
}

func (p *pointerSocket) close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	_ = p.conn.Close()
}

// pointerConn returns the cached pointer socket, dialing it on first use.
// The socket path comes from the TV itself and is only valid for the current
// session, so a failed dial is not cached.
func (c *Client) pointerConn(ctx context.Context) (*pointerSocket, error) {
	c.mu.Lock()
	if c.pointer != nil {
		p := c.pointer
		c.mu.Unlock()
		return p, nil
	}
	c.mu.Unlock()

	var body struct {
		SocketPath string `json:"socketPath"`
	}
	if err := c.requestInto(ctx, ssap.URIPointerSocket, nil, &body); err != nil {
		return nil, err
	}
	if body.SocketPath == "" {
		return nil, fmt.Errorf("TV returned empty pointer socket path")
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: c.opts.DialTimeout,
		TLSClientConfig:  &tls.Config{InsecureSkipVerify: true},
	}
	conn, _, err := dialer.DialContext(ctx, body.SocketPath, nil)
	if err != nil {
		return nil, fmt.Errorf("dial pointer socket: %w", err)
	}

	p := &pointerSocket{conn: conn}
	c.mu.Lock()
	if c.state != StateReady {
		// Lost the main connection while dialing.
		c.mu.Unlock()
		p.close()
		return nil, ErrConnectionLost
	}
	if c.pointer != nil {
		// Another caller won the race; keep theirs.
		existing := c.pointer
		c.mu.Unlock()
		p.close()
		return existing, nil
	}
	c.pointer = p
	c.mu.Unlock()
	return p, nil
}

// dropPointer discards the cached pointer socket after a write error so the
// next call redials.
func (c *Client) dropPointer(p *pointerSocket) {
	c.mu.Lock()
	if c.pointer == p {
		c.pointer = nil
	}
	c.mu.Unlock()
	p.close()
}

func (c *Client) pointerSend(ctx context.Context, fields ...string) error {
	if !c.IsConnected() {
		return ErrNotConnected
	}
	p, err := c.pointerConn(ctx)
	if err != nil {
		return err
	}
	if err := p.send(fields...); err != nil {
		c.dropPointer(p)
		return fmt.Errorf("pointer send: %w", err)
	}
	return nil
}

// SendButton presses a remote-control button, e.g. "UP", "ENTER", "BACK".
func (c *Client) SendButton(ctx context.Context, name string) error {
	return c.pointerSend(ctx, "type:button", "name:"+strings.ToUpper(name))
}

// PointerMove moves the on-screen cursor by the given deltas.
func (c *Client) PointerMove(ctx context.Context, dx, dy int) error {
	return c.pointerSend(ctx,
		"type:move",
		fmt.Sprintf("dx:%d", dx),
		fmt.Sprintf("dy:%d", dy),
		"down:0",
	)
}

// PointerClick clicks at the current cursor position.
func (c *Client) PointerClick(ctx context.Context) error {
	return c.pointerSend(ctx, "type:click")
}

// PointerScroll scrolls vertically by dy.
func (c *Client) PointerScroll(ctx context.Context, dy int) error {
	return c.pointerSend(ctx,
		"type:scroll",
		"dx:0",
		fmt.Sprintf("dy:%d", dy),
	)
}
