package domain

// Tool selects how a stroke is composited onto the canvas
type Tool string

const (
	ToolPen    Tool = "pen"
	ToolEraser Tool = "eraser"
)

// Point is a canvas coordinate
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Stroke is one complete pen or eraser gesture, pointer-down to pointer-up.
// A transmitted stroke always has at least one point.
type Stroke struct {
	Points    []Point `json:"points"`
	Color     string  `json:"color"`
	Tool      Tool    `json:"tool"`
	LineWidth float64 `json:"lineWidth"`
}

// Erases reports whether the stroke removes existing pixels
func (s *Stroke) Erases() bool {
	return s.Tool == ToolEraser
}

// Clone returns a deep copy safe to hand to another goroutine
func (s *Stroke) Clone() *Stroke {
	if s == nil {
		return nil
	}
	c := *s
	c.Points = append([]Point(nil), s.Points...)
	return &c
}
