package handlers

import (
	"errors"
	"fmt"
	"time"

	"whiteboard-relay/internal/connection"
	"whiteboard-relay/internal/domain"
	"whiteboard-relay/internal/payload"
)

var (
	ErrUnknownType = errors.New("unknown event type")
	ErrNotMember   = errors.New("sender is not a member of the room")
	ErrRateLimited = errors.New("cursor budget exceeded")
)

// Options: relay tuning
type Options struct {
	// CursorInterval throttles cursor samples per connection; 0 relays all
	CursorInterval time.Duration
}

// MessageRouter routes incoming frames to the appropriate handler.
// Nothing is ever written back to the sender from here; returned errors
// exist for logging only.
type MessageRouter struct {
	validator     *payload.Validator
	members       Membership
	strokeHandler *StrokeHandler
	cursorHandler *CursorHandler
}

func NewMessageRouter(
	validator *payload.Validator,
	rooms RoomMembers,
	members Membership,
	broadcaster Broadcaster,
	opts Options,
) *MessageRouter {
	return &MessageRouter{
		validator:     validator,
		members:       members,
		strokeHandler: NewStrokeHandler(rooms, broadcaster),
		cursorHandler: NewCursorHandler(rooms, broadcaster, opts.CursorInterval),
	}
}

// Route: decode, validate and dispatch one inbound frame
func (mr *MessageRouter) Route(conn *connection.Connection, msg []byte) error {
	var env domain.Envelope
	if err := conn.Codec().Unmarshal(msg, &env); err != nil {
		return fmt.Errorf("%w: decode: %v", payload.ErrMalformed, err)
	}

	switch env.Type {
	case domain.TypeJoin, domain.TypeLeave:
		if env.Room == "" {
			env.Room = domain.DefaultRoom
		}
	case domain.TypeDraw, domain.TypeClear, domain.TypeCursor:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownType, env.Type)
	}

	if err := mr.validator.Check(&env); err != nil {
		return err
	}
	mr.validator.Sanitize(&env)

	switch env.Type {
	case domain.TypeJoin:
		return mr.members.Join(conn, env.Room, env.UserID)
	case domain.TypeLeave:
		mr.members.Leave(conn, env.Room, env.UserID)
		return nil
	case domain.TypeDraw:
		return mr.strokeHandler.HandleDraw(conn, &env)
	case domain.TypeClear:
		return mr.strokeHandler.HandleClear(conn, &env)
	default:
		return mr.cursorHandler.Handle(conn, &env)
	}
}

// Join: adds conn to roomID outside of the message path, used for the
// room named on the connect URL. roomID is validated like a join event.
func (mr *MessageRouter) Join(conn *connection.Connection, roomID, identity string) error {
	env := domain.Envelope{Type: domain.TypeJoin, Room: roomID, UserID: identity}
	if env.Room == "" {
		env.Room = domain.DefaultRoom
	}
	if err := mr.validator.Check(&env); err != nil {
		return err
	}
	mr.validator.Sanitize(&env)
	return mr.members.Join(conn, env.Room, env.UserID)
}
