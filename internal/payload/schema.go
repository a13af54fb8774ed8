package payload

import "whiteboard-relay/internal/domain"

// Validation limits
const (
	MaxRoomLength     = 128
	MaxIdentityLength = 128
	MaxColorLength    = 50
	MaxToolLength     = 32
	MaxPointsInStroke = 10000
	MaxCoordinate     = 1000000
	MaxLineWidth      = 1000
)

// Per-event schemas. Envelopes are copied into these before
// validation so the wire types stay free of validation tags.

type membershipSchema struct {
	Room   string `validate:"required,roomid"`
	UserID string `validate:"max=128"`
}

type pointSchema struct {
	X float64 `validate:"min=-1000000,max=1000000"`
	Y float64 `validate:"min=-1000000,max=1000000"`
}

type strokeSchema struct {
	Points    []pointSchema `validate:"required,min=1,max=10000,dive"`
	Color     string        `validate:"max=50"`
	Tool      string        `validate:"max=32"`
	LineWidth float64       `validate:"min=0,max=1000"`
}

type drawSchema struct {
	Room   string        `validate:"required,roomid"`
	Stroke *strokeSchema `validate:"required"`
}

type clearSchema struct {
	Room string `validate:"required,roomid"`
}

type cursorSchema struct {
	Room   string   `validate:"required,roomid"`
	X      *float64 `validate:"required,min=-1000000,max=1000000"`
	Y      *float64 `validate:"required,min=-1000000,max=1000000"`
	UserID string   `validate:"max=128"`
}

// schemaFor: copies env into the schema for its type, nil for unknown types
func schemaFor(env *domain.Envelope) any {
	switch env.Type {
	case domain.TypeJoin, domain.TypeLeave:
		return &membershipSchema{Room: env.Room, UserID: env.UserID}
	case domain.TypeDraw:
		s := &drawSchema{Room: env.Room}
		if env.Stroke != nil {
			points := make([]pointSchema, len(env.Stroke.Points))
			for i, p := range env.Stroke.Points {
				points[i] = pointSchema{X: p.X, Y: p.Y}
			}
			s.Stroke = &strokeSchema{
				Points:    points,
				Color:     env.Stroke.Color,
				Tool:      string(env.Stroke.Tool),
				LineWidth: env.Stroke.LineWidth,
			}
		}
		return s
	case domain.TypeClear:
		return &clearSchema{Room: env.Room}
	case domain.TypeCursor:
		return &cursorSchema{Room: env.Room, X: env.X, Y: env.Y, UserID: env.UserID}
	default:
		return nil
	}
}
