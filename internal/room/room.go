package room

import (
	"time"

	"github.com/lucasb-eyer/go-colorful"

	"whiteboard-relay/internal/codec"
)

const goldenRatio = 0.618033988749895

// Target is anything a room can deliver frames to
type Target interface {
	ID() string
	Send(f *codec.Frame) error
}

// Member is one connection's membership in one room
type Member struct {
	Conn     Target
	Identity string
	Color    string
	JoinedAt time.Time
}

// Room is pure membership bookkeeping: it holds no drawing state.
// Guarded by the owning Registry's lock.
type Room struct {
	ID        string
	members   map[string]Member // connID -> member
	colors    map[string]string // identity -> cursor color, stable for the room's lifetime
	colorSeq  int
	CreatedAt time.Time
}

func newRoom(id string, now time.Time) *Room {
	return &Room{
		ID:        id,
		members:   make(map[string]Member),
		colors:    make(map[string]string),
		CreatedAt: now,
	}
}

// colorFor: returns the identity's color, assigning the next one on first use
func (r *Room) colorFor(identity string) string {
	if c, ok := r.colors[identity]; ok {
		return c
	}
	// golden-ratio hue sequence
	hue := float64(r.colorSeq) * goldenRatio
	hue -= float64(int(hue))
	r.colorSeq++

	c := colorful.Hsl(hue*360, 0.85, 0.55).Hex()
	r.colors[identity] = c
	return c
}

// others: snapshot of members excluding connID
func (r *Room) others(connID string) []Member {
	out := make([]Member, 0, len(r.members))
	for id, m := range r.members {
		if id != connID {
			out = append(out, m)
		}
	}
	return out
}
