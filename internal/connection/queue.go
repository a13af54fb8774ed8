package connection

import (
	"errors"
	"fmt"
	"sync"
)

// Policy: what a full outbound queue does with one more event
type Policy string

const (
	// DropOldest evicts the oldest pending event to make room
	DropOldest Policy = "drop-oldest"
	// DropNewest discards the event being pushed
	DropNewest Policy = "drop-newest"
	// Disconnect closes the queue, and with it the connection
	Disconnect Policy = "disconnect"
)

var (
	ErrClosed   = errors.New("connection closed")
	ErrDropped  = errors.New("outbound queue full, event dropped")
	ErrOverflow = errors.New("outbound queue overflow, connection closed")
)

// ParsePolicy: validates a configured overflow policy name
func ParsePolicy(name string) (Policy, error) {
	switch p := Policy(name); p {
	case DropOldest, DropNewest, Disconnect:
		return p, nil
	}
	return "", fmt.Errorf("unknown overflow policy %q (want %s, %s or %s)", name, DropOldest, DropNewest, Disconnect)
}

type entry struct {
	key  string
	data []byte
}

// Queue is a bounded FIFO of encoded frames for one connection.
// Push never blocks; a single writer drains it with Pop.
type Queue struct {
	mu       sync.Mutex
	entries  []entry
	capacity int
	policy   Policy
	closed   bool
	dropped  uint64

	ready chan struct{}
	done  chan struct{}
}

func NewQueue(capacity int, policy Policy) *Queue {
	if capacity < 1 {
		capacity = 1
	}
	if policy == "" {
		policy = DropOldest
	}
	return &Queue{
		entries:  make([]entry, 0, capacity),
		capacity: capacity,
		policy:   policy,
		ready:    make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
}

// Push: appends data. A non-empty key supersedes any pending entry with
// the same key; the new entry goes to the tail so it stays ordered
// after everything pushed before it.
func (q *Queue) Push(data []byte, key string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrClosed
	}

	if key != "" {
		for i := range q.entries {
			if q.entries[i].key == key {
				q.removeAt(i)
				q.dropped++
				break
			}
		}
	}

	if len(q.entries) >= q.capacity {
		switch q.policy {
		case DropNewest:
			q.dropped++
			return ErrDropped
		case Disconnect:
			q.closeLocked()
			return ErrOverflow
		default:
			q.removeAt(0)
			q.dropped++
		}
	}

	q.entries = append(q.entries, entry{key: key, data: data})

	select {
	case q.ready <- struct{}{}:
	default:
	}
	return nil
}

// Pop: removes and returns the oldest entry
func (q *Queue) Pop() ([]byte, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.entries) == 0 {
		return nil, false
	}
	data := q.entries[0].data
	q.removeAt(0)
	return data, true
}

func (q *Queue) removeAt(i int) {
	copy(q.entries[i:], q.entries[i+1:])
	q.entries[len(q.entries)-1] = entry{}
	q.entries = q.entries[:len(q.entries)-1]
}

// Close: stops accepting pushes and releases the writer. Returns false
// if the queue was already closed.
func (q *Queue) Close() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closeLocked()
}

func (q *Queue) closeLocked() bool {
	if q.closed {
		return false
	}
	q.closed = true
	q.entries = nil
	close(q.done)
	return true
}

// Ready is signalled after a push; drain with Pop until it reports false
func (q *Queue) Ready() <-chan struct{} { return q.ready }

// Done is closed when the queue closes
func (q *Queue) Done() <-chan struct{} { return q.done }

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// Dropped counts events lost to overflow or superseded by a newer one
func (q *Queue) Dropped() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}
