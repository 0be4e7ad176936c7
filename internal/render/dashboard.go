// Package render lays out the dashboard onto a fixed-size grey canvas.
//
// The layout pass is a straight sequence of steps. Each step receives the
// current vertical cursor and returns the advanced one; nothing else carries
// state between steps.
package render

import (
	"image"
	"time"

	"golang.org/x/image/font"

	"inkdash/internal/model"
)

// Layout constants, in pixels.
const (
	topMargin     = 60
	titleGap      = 30
	timeGap       = 10
	dateGap       = 40
	sideMargin    = 80
	dividerWidth  = 3
	dividerGap    = 30
	sectionGap    = 20
	rowGap        = 20
	lineGap       = 6
	columnGap     = 20
	bottomMargin  = 60
	defaultTitle  = "Dashboard"
	sectionTitle  = "Upcoming events"
	noEventsTitle = "No upcoming events"
)

// Go layouts for the clock, the header date and the per-row start.
const (
	ClockLayout = "15:04"
	DateLayout  = "Mon 02 Jan 2006"
	RowLayout   = "Mon 02 Jan 15:04"
)

// Options configures a Renderer.
type Options struct {
	Width  int
	Height int
	// Title is the header line; empty means "Dashboard".
	Title string
	Fonts Fonts
}

// Summary describes what one render pass drew.
type Summary struct {
	// Rows is the number of event rows drawn.
	Rows int `json:"rows"`
	// Omitted counts trailing events dropped because they did not fit.
	Omitted int `json:"omitted"`
	// Cursor is the final vertical offset.
	Cursor int `json:"cursor"`
}

// Renderer draws the dashboard. It holds configuration only and is safe to
// reuse across passes.
type Renderer struct {
	width  int
	height int
	title  string
	fonts  Fonts
}

// New builds a Renderer, filling unset faces with the built-in font.
func New(opts Options) *Renderer {
	if opts.Title == "" {
		opts.Title = defaultTitle
	}
	fonts := opts.Fonts
	def := DefaultFonts()
	if fonts.Title == nil {
		fonts.Title = def.Title
	}
	if fonts.Time == nil {
		fonts.Time = def.Time
	}
	if fonts.Date == nil {
		fonts.Date = def.Date
	}
	if fonts.Section == nil {
		fonts.Section = def.Section
	}
	if fonts.Event == nil {
		fonts.Event = def.Event
	}
	return &Renderer{width: opts.Width, height: opts.Height, title: opts.Title, fonts: fonts}
}

// RenderImage allocates a canvas of the configured size and renders onto it.
func (r *Renderer) RenderImage(now time.Time, events []model.Event) (*image.Gray, Summary) {
	c := NewCanvas(r.width, r.height)
	sum := r.Render(c, now, events)
	return c.Image(), sum
}

// Render runs one layout pass on g. Events are drawn in the given order;
// once a row would cross the bottom margin, it and all later events are
// omitted.
func (r *Renderer) Render(g Graphics, now time.Time, events []model.Event) Summary {
	g.DrawRect(g.Bounds(), White)

	y := topMargin
	y = r.header(g, now, y)
	y = r.divider(g, y)

	if len(events) == 0 {
		return Summary{Cursor: r.centered(g, noEventsTitle, r.fonts.Date, y, 0)}
	}

	y = r.centered(g, sectionTitle, r.fonts.Section, y, sectionGap)

	sum := Summary{}
	for i, ev := range events {
		next, ok := r.eventRow(g, ev, y)
		if !ok {
			sum.Omitted = len(events) - i
			break
		}
		y = next
		sum.Rows++
	}
	sum.Cursor = y
	return sum
}

func (r *Renderer) header(g Graphics, now time.Time, y int) int {
	y = r.centered(g, r.title, r.fonts.Title, y, titleGap)
	y = r.centered(g, now.Format(ClockLayout), r.fonts.Time, y, timeGap)
	return r.centered(g, now.Format(DateLayout), r.fonts.Date, y, dateGap)
}

func (r *Renderer) divider(g Graphics, y int) int {
	b := g.Bounds()
	g.DrawLine(image.Pt(b.Min.X+sideMargin, y), image.Pt(b.Max.X-sideMargin, y), Black, dividerWidth)
	return y + dividerGap
}

// centered draws one horizontally centered line and returns the cursor
// below it plus gap.
func (r *Renderer) centered(g Graphics, text string, face font.Face, y, gap int) int {
	b := g.Bounds()
	w, h := g.Measure(text, face)
	x := b.Min.X + (b.Dx()-w)/2
	if x < b.Min.X {
		x = b.Min.X
	}
	g.DrawText(image.Pt(x, y), text, face, Black)
	return y + h + gap
}

// eventRow draws the start fragment and the wrapped title side by side. It
// reports false, drawing nothing, when the row would cross the bottom margin.
func (r *Renderer) eventRow(g Graphics, ev model.Event, y int) (int, bool) {
	b := g.Bounds()
	face := r.fonts.Event

	when := ev.Start.Format(RowLayout)
	whenW, whenH := g.Measure(when, face)
	left := b.Min.X + sideMargin
	titleX := left + whenW + columnGap

	lines := Wrap(g, ev.Title, face, b.Max.X-sideMargin-titleX)
	heights := make([]int, len(lines))
	block := 0
	for i, line := range lines {
		_, heights[i] = g.Measure(line, face)
		block += heights[i]
		if i > 0 {
			block += lineGap
		}
	}

	rowH := max(whenH, block)
	if y+rowH > b.Max.Y-bottomMargin {
		return y, false
	}

	g.DrawText(image.Pt(left, y), when, face, Black)
	ly := y
	for i, line := range lines {
		g.DrawText(image.Pt(titleX, ly), line, face, Black)
		ly += heights[i] + lineGap
	}
	return y + rowH + rowGap, true
}
