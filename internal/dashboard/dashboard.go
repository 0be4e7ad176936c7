// Package dashboard ties one refresh together: fetch upcoming events, lay
// them out, post-process the raster and write the artifact.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
	"time"

	"inkdash/internal/artifact"
	"inkdash/internal/config"
	"inkdash/internal/convert"
	appLog "inkdash/internal/log"
	"inkdash/internal/model"
	"inkdash/internal/render"
	"inkdash/internal/source"
)

// Result describes one successful refresh.
type Result struct {
	Events     []model.Event  `json:"events"`
	Summary    render.Summary `json:"summary"`
	Path       string         `json:"path"`
	RenderedAt time.Time      `json:"rendered_at"`

	// Frame is the final raster as written, after quantization and rotation.
	Frame *image.Gray `json:"-"`
}

// Pipeline runs refreshes against one source and renderer. Run may be called
// from several goroutines; refreshes are serialized.
type Pipeline struct {
	cfg      *config.Config
	src      source.Source
	renderer *render.Renderer
	now      func() time.Time

	runMu sync.Mutex

	mu   sync.RWMutex
	last *Result
}

// New builds a pipeline from explicit parts.
func New(cfg *config.Config, src source.Source, r *render.Renderer) *Pipeline {
	return &Pipeline{cfg: cfg, src: src, renderer: r, now: time.Now}
}

// FromConfig wires the configured source, fonts and renderer.
func FromConfig(ctx context.Context, cfg *config.Config) (*Pipeline, error) {
	if cfg == nil {
		return nil, errors.New("dashboard: config is nil")
	}
	src, err := source.New(ctx, cfg.Source)
	if err != nil {
		return nil, fmt.Errorf("dashboard: %w", err)
	}
	r := render.New(render.Options{
		Width:  cfg.Canvas.Width,
		Height: cfg.Canvas.Height,
		Title:  cfg.Title,
		Fonts:  render.LoadFonts(cfg.Fonts.Regular, cfg.Fonts.Bold),
	})
	return New(cfg, src, r), nil
}

// Run performs one refresh. A source failure aborts before anything is
// written, so the previous artifact stays in place.
func (p *Pipeline) Run(ctx context.Context) (Result, error) {
	p.runMu.Lock()
	defer p.runMu.Unlock()

	loc := p.cfg.Location()
	now := p.now().In(loc)

	events, err := p.src.FetchUpcoming(ctx, p.cfg.MaxEvents, loc)
	if err != nil {
		return Result{}, fmt.Errorf("dashboard: fetch events: %w", err)
	}

	img, sum := p.renderer.RenderImage(now, events)
	if sum.Omitted > 0 {
		appLog.Warn("events did not fit on the canvas", "drawn", sum.Rows, "omitted", sum.Omitted)
	}

	frame := convert.Quantize(img, p.cfg.Canvas.GreyLevels)
	frame, err = convert.Rotate(frame, p.cfg.Canvas.Rotate)
	if err != nil {
		return Result{}, fmt.Errorf("dashboard: %w", err)
	}

	if err := artifact.WriteImage(p.cfg.Output, frame); err != nil {
		return Result{}, fmt.Errorf("dashboard: %w", err)
	}

	res := Result{
		Events:     events,
		Summary:    sum,
		Path:       p.cfg.Output,
		RenderedAt: now,
		Frame:      frame,
	}
	p.mu.Lock()
	p.last = &res
	p.mu.Unlock()

	appLog.Info("dashboard rendered", "path", res.Path, "events", len(events), "rows", sum.Rows)
	return res, nil
}

// Last returns the most recent successful result.
func (p *Pipeline) Last() (Result, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.last == nil {
		return Result{}, false
	}
	return *p.last, true
}
