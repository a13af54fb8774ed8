package handlers

import (
	"fmt"
	"time"

	"whiteboard-relay/internal/codec"
	"whiteboard-relay/internal/connection"
	"whiteboard-relay/internal/domain"
)

// CursorHandler handles cursor position samples
type CursorHandler struct {
	rooms       RoomMembers
	broadcaster Broadcaster
	interval    time.Duration
	now         func() time.Time
}

func NewCursorHandler(rooms RoomMembers, broadcaster Broadcaster, interval time.Duration) *CursorHandler {
	return &CursorHandler{
		rooms:       rooms,
		broadcaster: broadcaster,
		interval:    interval,
		now:         time.Now,
	}
}

// Handle relays a cursor sample with the sender's room color.
// Samples over the connection's budget or inside the throttle interval
// are dropped; other event types never consume the budget.
func (h *CursorHandler) Handle(conn *connection.Connection, env *domain.Envelope) error {
	member, ok := h.rooms.Member(env.Room, conn.ID())
	if !ok {
		return fmt.Errorf("cursor in %s: %w", env.Room, ErrNotMember)
	}
	if !conn.Allow() {
		return fmt.Errorf("cursor in %s: %w", env.Room, ErrRateLimited)
	}
	if !conn.CursorDue(h.now(), h.interval) {
		return nil
	}

	userID := env.UserID
	if userID == "" {
		userID = member.Identity
	}

	others := h.rooms.Members(env.Room, conn.ID())
	h.broadcaster.Broadcast(others, codec.NewFrame(domain.Cursor(env.Room, userID, *env.X, *env.Y, member.Color)))
	return nil
}
