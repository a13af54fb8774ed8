package domain

// Event types carried in Envelope.Type
const (
	TypeJoin     = "join"
	TypeJoined   = "joined"
	TypeLeave    = "leave"
	TypeLeft     = "left"
	TypePresence = "presence"
	TypeDraw     = "draw"
	TypeClear    = "clear"
	TypeCursor   = "cursor"
)

// DefaultRoom is used by join and leave when no room is given
const DefaultRoom = "default"

// Envelope is the flat wire shape shared by every event.
// Optional numeric and boolean fields are pointers so that zero values
// (x=0, joined=false) survive encoding.
type Envelope struct {
	Type   string   `json:"type"`
	Room   string   `json:"room,omitempty"`
	UserID string   `json:"userId,omitempty"`
	Joined *bool    `json:"joined,omitempty"`
	Stroke *Stroke  `json:"stroke,omitempty"`
	X      *float64 `json:"x,omitempty"`
	Y      *float64 `json:"y,omitempty"`
	Color  string   `json:"color,omitempty"`
}

// Joined: ack sent to a connection after it joins a room
func Joined(room, userID string) *Envelope {
	return &Envelope{Type: TypeJoined, Room: room, UserID: userID}
}

// Left: ack sent to a connection after it leaves a room
func Left(room string) *Envelope {
	return &Envelope{Type: TypeLeft, Room: room}
}

// Presence: membership change seen by the other members of a room
func Presence(room, userID string, joined bool) *Envelope {
	return &Envelope{Type: TypePresence, Room: room, UserID: userID, Joined: &joined}
}

// Draw: a completed stroke relayed to the other members
func Draw(room, userID string, stroke *Stroke) *Envelope {
	return &Envelope{Type: TypeDraw, Room: room, UserID: userID, Stroke: stroke}
}

// Clear: canvas reset relayed to the other members
func Clear(room, userID string) *Envelope {
	return &Envelope{Type: TypeClear, Room: room, UserID: userID}
}

// Cursor: one pointer sample relayed to the other members
func Cursor(room, userID string, x, y float64, color string) *Envelope {
	return &Envelope{Type: TypeCursor, Room: room, UserID: userID, X: &x, Y: &y, Color: color}
}

// IsJoined reports the presence flag, false when absent
func (e *Envelope) IsJoined() bool {
	return e.Joined != nil && *e.Joined
}
