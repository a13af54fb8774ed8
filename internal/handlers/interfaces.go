package handlers

import (
	"whiteboard-relay/internal/codec"
	"whiteboard-relay/internal/connection"
	"whiteboard-relay/internal/room"
)

// Broadcaster fans one frame out to a membership snapshot
type Broadcaster interface {
	Broadcast(members []room.Member, f *codec.Frame) int
}

// RoomMembers defines the registry lookups the relay needs
type RoomMembers interface {
	Members(roomID, excludeID string) []room.Member
	Member(roomID, connID string) (room.Member, bool)
}

// Membership defines the join/leave lifecycle
type Membership interface {
	Join(conn *connection.Connection, roomID, identity string) error
	Leave(conn *connection.Connection, roomID, identity string) bool
}
