package handlers

import (
	"fmt"

	"whiteboard-relay/internal/codec"
	"whiteboard-relay/internal/connection"
	"whiteboard-relay/internal/domain"
)

// StrokeHandler: relays completed strokes and canvas clears
type StrokeHandler struct {
	rooms       RoomMembers
	broadcaster Broadcaster
}

func NewStrokeHandler(rooms RoomMembers, broadcaster Broadcaster) *StrokeHandler {
	return &StrokeHandler{rooms: rooms, broadcaster: broadcaster}
}

// HandleDraw: draw events from members go to everyone else in the room
func (h *StrokeHandler) HandleDraw(conn *connection.Connection, env *domain.Envelope) error {
	if env.Stroke == nil || len(env.Stroke.Points) == 0 {
		return fmt.Errorf("draw in %s: empty stroke", env.Room)
	}
	userID, ok := conn.RoomIdentity(env.Room)
	if !ok {
		return fmt.Errorf("draw in %s: %w", env.Room, ErrNotMember)
	}

	others := h.rooms.Members(env.Room, conn.ID())
	h.broadcaster.Broadcast(others, codec.NewFrame(domain.Draw(env.Room, userID, env.Stroke)))
	return nil
}

// HandleClear: clear events from members go to everyone else in the room
func (h *StrokeHandler) HandleClear(conn *connection.Connection, env *domain.Envelope) error {
	userID, ok := conn.RoomIdentity(env.Room)
	if !ok {
		return fmt.Errorf("clear in %s: %w", env.Room, ErrNotMember)
	}

	others := h.rooms.Members(env.Room, conn.ID())
	h.broadcaster.Broadcast(others, codec.NewFrame(domain.Clear(env.Room, userID)))
	return nil
}
