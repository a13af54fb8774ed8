// Package connection holds the relay's view of one live client
// session: its identity, the rooms it has joined and its outbound queue.
package connection

import (
	"errors"
	"sort"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"whiteboard-relay/internal/codec"
)

// Options configures a Connection's outbound queue and inbound budget
type Options struct {
	QueueSize int
	Overflow  Policy
	// CoalesceCursors lets a newer cursor sample replace a pending one
	CoalesceCursors bool
	// MessagesPerSecond and Burst bound inbound cursor samples; zero disables the limit
	MessagesPerSecond float64
	Burst             int
}

// Connection represents one connected client
type Connection struct {
	id       string
	identity string
	codec    codec.Codec
	queue    *Queue
	limiter  *rate.Limiter
	coalesce bool

	mu         sync.Mutex
	rooms      map[string]string // room -> identity joined with
	lastCursor time.Time
}

// New: creates a connection. identity is the default presence identity
// and falls back to id when empty.
func New(id, identity string, cdc codec.Codec, opts Options) *Connection {
	if identity == "" {
		identity = id
	}
	if cdc == nil {
		cdc = codec.JSON
	}
	var limiter *rate.Limiter
	if opts.MessagesPerSecond > 0 {
		burst := opts.Burst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.MessagesPerSecond), burst)
	}
	return &Connection{
		id:       id,
		identity: identity,
		codec:    cdc,
		queue:    NewQueue(opts.QueueSize, opts.Overflow),
		limiter:  limiter,
		coalesce: opts.CoalesceCursors,
		rooms:    make(map[string]string),
	}
}

func (c *Connection) ID() string         { return c.id }
func (c *Connection) Identity() string   { return c.identity }
func (c *Connection) Codec() codec.Codec { return c.codec }
func (c *Connection) Queue() *Queue      { return c.queue }

// Send: encodes the frame with this connection's codec and enqueues it.
// Never blocks. Under the disconnect policy an overflow closes the
// connection.
func (c *Connection) Send(f *codec.Frame) error {
	data, err := f.Encode(c.codec)
	if err != nil {
		return err
	}
	key := ""
	if c.coalesce {
		key = f.SupersedeKey()
	}
	return c.queue.Push(data, key)
}

// Allow: consumes one unit of the inbound message budget
func (c *Connection) Allow() bool {
	if c.limiter == nil {
		return true
	}
	return c.limiter.Allow()
}

// CursorDue: reports whether a cursor sample at now is outside the
// throttle interval since the last accepted sample, recording it if so
func (c *Connection) CursorDue(now time.Time, interval time.Duration) bool {
	if interval <= 0 {
		return true
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.lastCursor.IsZero() && now.Sub(c.lastCursor) < interval {
		return false
	}
	c.lastCursor = now
	return true
}

// TrackRoom: records membership in the reverse index. Returns false if
// the room was already tracked, leaving the original identity in place.
func (c *Connection) TrackRoom(room, identity string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.rooms[room]; ok {
		return false
	}
	c.rooms[room] = identity
	return true
}

// UntrackRoom: drops a room from the reverse index, returning the
// identity it was joined with
func (c *Connection) UntrackRoom(room string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	identity, ok := c.rooms[room]
	delete(c.rooms, room)
	return identity, ok
}

// RoomIdentity: identity the connection joined room with
func (c *Connection) RoomIdentity(room string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	identity, ok := c.rooms[room]
	return identity, ok
}

// Rooms: snapshot of joined rooms, sorted
func (c *Connection) Rooms() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	rooms := make([]string, 0, len(c.rooms))
	for r := range c.rooms {
		rooms = append(rooms, r)
	}
	sort.Strings(rooms)
	return rooms
}

// Close: closes the outbound queue. Safe to call more than once.
func (c *Connection) Close() bool {
	return c.queue.Close()
}

// Done is closed once the connection is closed
func (c *Connection) Done() <-chan struct{} {
	return c.queue.Done()
}

// IsClosedErr reports whether err means the recipient is gone
func IsClosedErr(err error) bool {
	return errors.Is(err, ErrClosed) || errors.Is(err, ErrOverflow)
}
