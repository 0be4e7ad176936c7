package render

import (
	"image"
	"image/color"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
)

// Luminance values for the 8-bit grey canvas.
const (
	Black uint8 = 0
	White uint8 = 255
)

// Measurer reports the rendered size of text in a face.
type Measurer interface {
	Measure(text string, face font.Face) (w, h int)
}

// Graphics is everything the layout pass needs from a drawing surface.
// Text positions are the top-left corner of the text box.
type Graphics interface {
	Measurer
	Bounds() image.Rectangle
	DrawText(pt image.Point, text string, face font.Face, gray uint8)
	DrawLine(p1, p2 image.Point, gray uint8, width int)
	DrawRect(r image.Rectangle, gray uint8)
}

// Canvas is a Graphics backed by an *image.Gray.
type Canvas struct {
	img *image.Gray
}

// NewCanvas allocates a w x h canvas. Pixels start at 0 (black); the
// renderer paints the background itself.
func NewCanvas(w, h int) *Canvas {
	return &Canvas{img: image.NewGray(image.Rect(0, 0, w, h))}
}

// Image returns the backing image.
func (c *Canvas) Image() *image.Gray { return c.img }

// Bounds returns the canvas rectangle.
func (c *Canvas) Bounds() image.Rectangle { return c.img.Rect }

// Measure returns the advance width of text and the face line height
// (ascent + descent), so rows of one face always stack evenly.
func (c *Canvas) Measure(text string, face font.Face) (int, int) {
	return font.MeasureString(face, text).Ceil(), faceHeight(face)
}

func faceHeight(face font.Face) int {
	m := face.Metrics()
	return (m.Ascent + m.Descent).Ceil()
}

// DrawText draws text with its top-left corner at pt.
func (c *Canvas) DrawText(pt image.Point, text string, face font.Face, gray uint8) {
	d := font.Drawer{
		Dst:  c.img,
		Src:  image.NewUniform(color.Gray{Y: gray}),
		Face: face,
		Dot:  fixed.P(pt.X, pt.Y+face.Metrics().Ascent.Ceil()),
	}
	d.DrawString(text)
}

// DrawRect fills r, clipped to the canvas.
func (c *Canvas) DrawRect(r image.Rectangle, gray uint8) {
	r = r.Intersect(c.img.Rect)
	if r.Empty() {
		return
	}
	draw.Draw(c.img, r, image.NewUniform(color.Gray{Y: gray}), image.Point{}, draw.Src)
}

// DrawLine draws a Bresenham line, stamping a width x width square per step.
func (c *Canvas) DrawLine(p1, p2 image.Point, gray uint8, width int) {
	if width < 1 {
		width = 1
	}
	half := width / 2
	stamp := func(x, y int) {
		c.DrawRect(image.Rect(x-half, y-half, x-half+width, y-half+width), gray)
	}

	x0, y0, x1, y1 := p1.X, p1.Y, p2.X, p2.Y
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx, sy := -1, -1
	if x0 < x1 {
		sx = 1
	}
	if y0 < y1 {
		sy = 1
	}
	err := dx + dy
	for {
		stamp(x0, y0)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
