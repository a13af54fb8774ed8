// Package client is a websocket client for the relay, used by the probe
// command and by the transport tests.
package client

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"whiteboard-relay/internal/codec"
	"whiteboard-relay/internal/domain"
)

const (
	handshakeTimeout = 10 * time.Second
	writeWait        = 10 * time.Second
)

type options struct {
	subprotocol string
	header      http.Header
}

// Option configures Dial
type Option func(*options)

// WithSubprotocol: offers the named wire format during the handshake
func WithSubprotocol(name string) Option {
	return func(o *options) { o.subprotocol = name }
}

// WithHeader: extra handshake headers, such as Origin
func WithHeader(h http.Header) Option {
	return func(o *options) { o.header = h }
}

// Client is one relay connection. Send and Close may be called from any
// goroutine; Receive and Run from one reader only.
type Client struct {
	ws    *websocket.Conn
	codec codec.Codec

	mu     sync.Mutex
	closed bool
}

// Dial connects to a relay websocket URL
func Dial(ctx context.Context, url string, opts ...Option) (*Client, error) {
	o := options{subprotocol: codec.SubprotocolJSON}
	for _, opt := range opts {
		opt(&o)
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: handshakeTimeout,
		Subprotocols:     []string{o.subprotocol},
	}
	ws, resp, err := dialer.DialContext(ctx, url, o.header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s: %w (status %d)", url, err, resp.StatusCode)
		}
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}

	return &Client{ws: ws, codec: codec.ForSubprotocol(ws.Subprotocol())}, nil
}

// Codec: the wire format the relay agreed to
func (c *Client) Codec() codec.Codec { return c.codec }

// Send writes one event
func (c *Client) Send(env *domain.Envelope) error {
	data, err := c.codec.Marshal(env)
	if err != nil {
		return fmt.Errorf("encode %s: %w", env.Type, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return websocket.ErrCloseSent
	}
	c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	return c.ws.WriteMessage(c.codec.FrameType(), data)
}

// Receive blocks for the next event
func (c *Client) Receive() (*domain.Envelope, error) {
	_, data, err := c.ws.ReadMessage()
	if err != nil {
		return nil, err
	}
	var env domain.Envelope
	if err := c.codec.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode event: %w", err)
	}
	return &env, nil
}

// SetReadDeadline bounds the next Receive
func (c *Client) SetReadDeadline(t time.Time) error {
	return c.ws.SetReadDeadline(t)
}

// Run hands every received event to fn until ctx ends or the connection
// drops. Undecodable frames are skipped.
func (c *Client) Run(ctx context.Context, fn func(*domain.Envelope)) error {
	stop := context.AfterFunc(ctx, func() { c.Close() })
	defer stop()

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return err
		}
		var env domain.Envelope
		if err := c.codec.Unmarshal(data, &env); err != nil {
			continue
		}
		fn(&env)
	}
}

// Close sends a close frame and releases the socket
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true

	c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	_ = c.ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	return c.ws.Close()
}
