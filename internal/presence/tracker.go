// Package presence drives room membership for connections and turns
// every membership change into presence notifications for the rest of
// the room.
package presence

import (
	"fmt"
	"log/slog"

	"whiteboard-relay/internal/codec"
	"whiteboard-relay/internal/connection"
	"whiteboard-relay/internal/domain"
	"whiteboard-relay/internal/room"
)

// Tracker owns the join/leave lifecycle. Calls for one connection must
// come from a single goroutine (its read loop); different connections
// may call concurrently.
type Tracker struct {
	registry    *room.Registry
	broadcaster *room.Broadcaster
	logger      *slog.Logger
}

func NewTracker(registry *room.Registry, broadcaster *room.Broadcaster, logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{registry: registry, broadcaster: broadcaster, logger: logger}
}

// Join: adds conn to roomID. identity defaults to the connection's own.
// The caller gets a joined ack; other members hear presence only when
// membership actually changed.
func (t *Tracker) Join(conn *connection.Connection, roomID, identity string) error {
	if identity == "" {
		identity = conn.Identity()
	}

	member, others, added, err := t.registry.Add(roomID, conn, identity)
	if err != nil {
		return fmt.Errorf("join %s: %w", roomID, err)
	}
	conn.TrackRoom(roomID, member.Identity)

	if err := conn.Send(codec.NewFrame(domain.Joined(roomID, member.Identity))); err != nil {
		t.logger.Debug("joined ack not delivered", "connId", conn.ID(), "room", roomID, "error", err)
	}
	if !added {
		return nil
	}

	t.broadcaster.Broadcast(others, codec.NewFrame(domain.Presence(roomID, member.Identity, true)))
	t.logger.Info("joined room", "room", roomID, "connId", conn.ID(), "userId", member.Identity, "members", len(others)+1)
	return nil
}

// Leave: removes conn from roomID. Returns false when conn was not a member.
func (t *Tracker) Leave(conn *connection.Connection, roomID, identity string) bool {
	return t.leave(conn, roomID, identity, true)
}

// Disconnect: implicit leave for every room conn belongs to, without
// acks. Visits only the rooms on conn's own index. A second call finds
// nothing to do.
func (t *Tracker) Disconnect(conn *connection.Connection) int {
	left := 0
	for _, roomID := range conn.Rooms() {
		if t.leave(conn, roomID, "", false) {
			left++
		}
	}
	if left > 0 {
		t.logger.Info("connection cleaned up", "connId", conn.ID(), "rooms", left)
	}
	return left
}

func (t *Tracker) leave(conn *connection.Connection, roomID, identity string, ack bool) bool {
	conn.UntrackRoom(roomID)
	removed, others, ok := t.registry.Remove(roomID, conn.ID())
	if !ok {
		return false
	}
	if identity == "" {
		identity = removed.Identity
	}

	if ack {
		if err := conn.Send(codec.NewFrame(domain.Left(roomID))); err != nil {
			t.logger.Debug("left ack not delivered", "connId", conn.ID(), "room", roomID, "error", err)
		}
	}
	t.broadcaster.Broadcast(others, codec.NewFrame(domain.Presence(roomID, identity, false)))
	t.logger.Info("left room", "room", roomID, "connId", conn.ID(), "userId", identity, "members", len(others))
	return true
}

// Occupancy: member count per live room
func (t *Tracker) Occupancy() map[string]int {
	return t.registry.Occupancy()
}
