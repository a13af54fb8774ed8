// Package whiteboard is the client side of the relay: a raster canvas and
// the pointer state machine that turns local input into relay events and
// applies remote events to the canvas.
package whiteboard

import (
	"encoding/hex"
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/zeebo/blake3"
	"golang.org/x/image/vector"

	"whiteboard-relay/internal/domain"
)

// discSides approximates round caps and joins
const discSides = 32

// Canvas is an ink layer over an opaque background. It is not safe for
// concurrent use; Board serializes access.
type Canvas struct {
	bounds     image.Rectangle
	background color.RGBA
	ink        *image.RGBA
}

// NewCanvas: blank w x h canvas. A nil background is white.
func NewCanvas(w, h int, background color.Color) *Canvas {
	if background == nil {
		background = color.White
	}
	r, g, b, _ := background.RGBA()
	bounds := image.Rect(0, 0, w, h)
	return &Canvas{
		bounds:     bounds,
		background: color.RGBA{R: uint8(r >> 8), G: uint8(g >> 8), B: uint8(b >> 8), A: 0xff},
		ink:        image.NewRGBA(bounds),
	}
}

func (c *Canvas) Bounds() image.Rectangle { return c.bounds }

// Draw composites a stroke. Pen strokes paint over existing ink; eraser
// strokes remove it.
func (c *Canvas) Draw(s *domain.Stroke) {
	if s == nil || len(s.Points) == 0 {
		return
	}
	mask := c.coverage(s.Points, s.LineWidth/2)
	if s.Erases() {
		c.erase(mask)
		return
	}
	src := image.NewUniform(parseColor(s.Color))
	draw.DrawMask(c.ink, c.bounds, src, image.Point{}, mask, image.Point{}, draw.Over)
}

// erase: destination-out, ink *= 1 - coverage
func (c *Canvas) erase(mask *image.Alpha) {
	for i, m := range mask.Pix {
		if m == 0 {
			continue
		}
		keep := uint32(0xff - m)
		px := c.ink.Pix[i*4 : i*4+4 : i*4+4]
		for j := range px {
			px[j] = uint8(uint32(px[j]) * keep / 0xff)
		}
	}
}

// coverage rasterizes a round-capped, round-joined polyline of the given
// radius. Every sub-path winds the same way so overlaps saturate instead
// of cancelling.
func (c *Canvas) coverage(points []domain.Point, radius float64) *image.Alpha {
	if radius < 0.5 {
		radius = 0.5
	}
	w, h := c.bounds.Dx(), c.bounds.Dy()
	z := vector.NewRasterizer(w, h)

	for i, p := range points {
		addDisc(z, p, radius)
		if i > 0 {
			addSegment(z, points[i-1], p, radius)
		}
	}

	mask := image.NewAlpha(c.bounds)
	z.Draw(mask, c.bounds, image.Opaque, image.Point{})
	return mask
}

func addDisc(z *vector.Rasterizer, center domain.Point, radius float64) {
	pts := make([]domain.Point, discSides)
	for i := range pts {
		theta := 2 * math.Pi * float64(i) / discSides
		pts[i] = domain.Point{X: center.X + radius*math.Cos(theta), Y: center.Y + radius*math.Sin(theta)}
	}
	addPolygon(z, pts)
}

func addSegment(z *vector.Rasterizer, a, b domain.Point, radius float64) {
	dx, dy := b.X-a.X, b.Y-a.Y
	length := math.Hypot(dx, dy)
	if length == 0 {
		return
	}
	nx, ny := -dy/length*radius, dx/length*radius
	addPolygon(z, []domain.Point{
		{X: a.X + nx, Y: a.Y + ny},
		{X: b.X + nx, Y: b.Y + ny},
		{X: b.X - nx, Y: b.Y - ny},
		{X: a.X - nx, Y: a.Y - ny},
	})
}

// addPolygon adds a closed sub-path with positive signed area
func addPolygon(z *vector.Rasterizer, pts []domain.Point) {
	area := 0.0
	for i, p := range pts {
		q := pts[(i+1)%len(pts)]
		area += p.X*q.Y - q.X*p.Y
	}
	if area < 0 {
		for i, j := 0, len(pts)-1; i < j; i, j = i+1, j-1 {
			pts[i], pts[j] = pts[j], pts[i]
		}
	}

	z.MoveTo(float32(pts[0].X), float32(pts[0].Y))
	for _, p := range pts[1:] {
		z.LineTo(float32(p.X), float32(p.Y))
	}
	z.ClosePath()
}

// Clear removes all ink
func (c *Canvas) Clear() {
	clear(c.ink.Pix)
}

// Blank reports whether no ink is left
func (c *Canvas) Blank() bool {
	for i := 3; i < len(c.ink.Pix); i += 4 {
		if c.ink.Pix[i] != 0 {
			return false
		}
	}
	return true
}

// Image: the ink composited over the background
func (c *Canvas) Image() *image.RGBA {
	out := image.NewRGBA(c.bounds)
	draw.Draw(out, c.bounds, image.NewUniform(c.background), image.Point{}, draw.Src)
	draw.Draw(out, c.bounds, c.ink, image.Point{}, draw.Over)
	return out
}

// Fingerprint: blake3 of the composited pixels. Two canvases that look
// the same have the same fingerprint.
func (c *Canvas) Fingerprint() string {
	sum := blake3.Sum256(c.Image().Pix)
	return hex.EncodeToString(sum[:])
}

// Clone: independent copy
func (c *Canvas) Clone() *Canvas {
	ink := image.NewRGBA(c.bounds)
	copy(ink.Pix, c.ink.Pix)
	return &Canvas{bounds: c.bounds, background: c.background, ink: ink}
}

// copyFrom: replaces the ink with src's
func (c *Canvas) copyFrom(src *Canvas) {
	copy(c.ink.Pix, src.ink.Pix)
}

// parseColor: CSS hex color, black if unparseable
func parseColor(s string) color.RGBA {
	col, err := colorful.Hex(s)
	if err != nil {
		return color.RGBA{A: 0xff}
	}
	r, g, b := col.RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 0xff}
}
