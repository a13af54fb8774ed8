package whiteboard

import (
	"errors"
	"image"
	"sort"
	"sync"

	"whiteboard-relay/internal/domain"
)

// ErrDetached is returned when an event needs a relay connection and
// none is attached
var ErrDetached = errors.New("board not attached to a relay")

// State of the pointer state machine
type State int

const (
	Idle State = iota
	Capturing
)

func (s State) String() string {
	if s == Capturing {
		return "capturing"
	}
	return "idle"
}

// Sender delivers events to the relay
type Sender interface {
	Send(env *domain.Envelope) error
}

// Style applies to strokes started after it is set
type Style struct {
	Color     string
	Tool      domain.Tool
	LineWidth float64
}

// Cursor: last known pointer of a remote member
type Cursor struct {
	X, Y  float64
	Color string
}

// Board is one room's whiteboard on the client. Pointer methods come from
// the input loop and Apply from the network loop; both may run at once.
type Board struct {
	mu sync.Mutex

	room   string
	style  Style
	sender Sender
	joined bool
	self   string

	canvas *Canvas
	// base is the canvas as it was before the stroke in progress
	base    *Canvas
	state   State
	current *domain.Stroke

	peers   map[string]struct{}
	cursors map[string]Cursor
}

func NewBoard(room string, canvas *Canvas, style Style) *Board {
	if room == "" {
		room = domain.DefaultRoom
	}
	if style.Tool == "" {
		style.Tool = domain.ToolPen
	}
	if style.LineWidth <= 0 {
		style.LineWidth = 2
	}
	return &Board{
		room:    room,
		style:   style,
		canvas:  canvas,
		peers:   make(map[string]struct{}),
		cursors: make(map[string]Cursor),
	}
}

func (b *Board) Room() string { return b.room }

// Attach: (re)joins the room over sender. Local ink is kept; only
// events from now on arrive.
func (b *Board) Attach(sender Sender, identity string) error {
	b.mu.Lock()
	b.sender = sender
	b.joined = false
	clear(b.peers)
	clear(b.cursors)
	b.mu.Unlock()

	return sender.Send(&domain.Envelope{Type: domain.TypeJoin, Room: b.room, UserID: identity})
}

// Detach: leaves the room and forgets the sender
func (b *Board) Detach() error {
	b.mu.Lock()
	sender := b.sender
	b.sender = nil
	b.joined = false
	clear(b.peers)
	clear(b.cursors)
	b.mu.Unlock()

	if sender == nil {
		return nil
	}
	return sender.Send(&domain.Envelope{Type: domain.TypeLeave, Room: b.room})
}

func (b *Board) SetStyle(style Style) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if style.Tool == "" {
		style.Tool = domain.ToolPen
	}
	if style.LineWidth <= 0 {
		style.LineWidth = b.style.LineWidth
	}
	b.style = style
}

func (b *Board) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// PointerDown starts a stroke and renders its first dot
func (b *Board) PointerDown(x, y float64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == Capturing {
		return
	}
	b.state = Capturing
	b.base = b.canvas.Clone()
	b.current = &domain.Stroke{
		Points:    []domain.Point{{X: x, Y: y}},
		Color:     b.style.Color,
		Tool:      b.style.Tool,
		LineWidth: b.style.LineWidth,
	}
	b.canvas.Draw(b.current)
}

// PointerMove extends the stroke while capturing, with no network
// traffic. While idle it sends a cursor sample.
func (b *Board) PointerMove(x, y float64) error {
	b.mu.Lock()
	if b.state == Capturing {
		last := b.current.Points[len(b.current.Points)-1]
		p := domain.Point{X: x, Y: y}
		b.current.Points = append(b.current.Points, p)
		b.canvas.Draw(&domain.Stroke{
			Points:    []domain.Point{last, p},
			Color:     b.current.Color,
			Tool:      b.current.Tool,
			LineWidth: b.current.LineWidth,
		})
		b.mu.Unlock()
		return nil
	}
	sender, room := b.sender, b.room
	b.mu.Unlock()

	if sender == nil {
		return nil
	}
	return sender.Send(&domain.Envelope{Type: domain.TypeCursor, Room: room, X: &x, Y: &y})
}

// PointerUp finishes the stroke and sends it once
func (b *Board) PointerUp() error {
	b.mu.Lock()
	if b.state != Capturing {
		b.mu.Unlock()
		return nil
	}
	stroke := b.current
	b.state = Idle
	b.current = nil

	// the preview was drawn segment by segment; redraw in one pass so
	// local pixels match what receivers render
	b.canvas.copyFrom(b.base)
	b.canvas.Draw(stroke)
	b.base = nil

	sender, room := b.sender, b.room
	b.mu.Unlock()

	if sender == nil {
		return ErrDetached
	}
	return sender.Send(domain.Draw(room, "", stroke.Clone()))
}

// Clear resets the canvas and tells the room
func (b *Board) Clear() error {
	b.mu.Lock()
	b.canvas.Clear()
	if b.base != nil {
		b.base.Clear()
	}
	sender, room := b.sender, b.room
	b.mu.Unlock()

	if sender == nil {
		return ErrDetached
	}
	return sender.Send(domain.Clear(room, ""))
}

// Apply: one event from the relay. Events for other rooms are ignored.
// Remote draw and clear are rendered and never re-sent.
func (b *Board) Apply(env *domain.Envelope) bool {
	if env == nil || env.Room != b.room {
		return false
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	switch env.Type {
	case domain.TypeJoined:
		b.joined = true
		b.self = env.UserID
	case domain.TypeLeft:
		b.joined = false
		clear(b.peers)
		clear(b.cursors)
	case domain.TypePresence:
		if env.IsJoined() {
			b.peers[env.UserID] = struct{}{}
		} else {
			delete(b.peers, env.UserID)
			delete(b.cursors, env.UserID)
		}
	case domain.TypeDraw:
		if env.Stroke == nil {
			return false
		}
		b.canvas.Draw(env.Stroke)
		if b.base != nil {
			b.base.Draw(env.Stroke)
		}
	case domain.TypeClear:
		b.canvas.Clear()
		if b.base != nil {
			b.base.Clear()
		}
	case domain.TypeCursor:
		if env.X == nil || env.Y == nil {
			return false
		}
		b.cursors[env.UserID] = Cursor{X: *env.X, Y: *env.Y, Color: env.Color}
	default:
		return false
	}
	return true
}

// Joined reports whether the relay acknowledged the join, and as whom
func (b *Board) Joined() (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.self, b.joined
}

// Peers: identities seen joining since the board joined, sorted
func (b *Board) Peers() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, 0, len(b.peers))
	for id := range b.peers {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func (b *Board) Cursors() map[string]Cursor {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make(map[string]Cursor, len(b.cursors))
	for id, c := range b.cursors {
		out[id] = c
	}
	return out
}

func (b *Board) Image() *image.RGBA {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.canvas.Image()
}

func (b *Board) Blank() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.canvas.Blank()
}

func (b *Board) Fingerprint() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.canvas.Fingerprint()
}
