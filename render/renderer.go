// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"image"
	"image/color"
	"math"

	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"

	"github.com/gogpu/spectro"
	"github.com/gogpu/spectro/chunk"
)

// Default colours.
var (
	// DefaultLoadingColor fills chunks whose tile is not available yet.
	DefaultLoadingColor color.Color = color.RGBA{R: 0x2a, G: 0x2a, B: 0x2e, A: 0xff}

	// DefaultErrorColor fills chunks whose tile failed to load.
	DefaultErrorColor color.Color = color.RGBA{R: 0x7f, G: 0x1d, B: 0x1d, A: 0xff}

	// DefaultValidColor highlights a zoom selection that can be committed.
	DefaultValidColor color.Color = color.NRGBA{R: 0x3b, G: 0x82, B: 0xf6, A: 0x55}

	// DefaultInvalidColor highlights a zoom selection that is too small.
	DefaultInvalidColor color.Color = color.NRGBA{R: 0xef, G: 0x44, B: 0x44, A: 0x55}
)

// Option configures a Renderer.
type Option func(*Renderer)

// WithLoadingColor sets the placeholder colour for chunks still loading.
func WithLoadingColor(c color.Color) Option {
	return func(r *Renderer) { r.loading = c }
}

// WithErrorColor sets the colour for chunks that failed to load.
func WithErrorColor(c color.Color) Option {
	return func(r *Renderer) { r.failed = c }
}

// WithBackground sets the colour the canvas is cleared to each frame.
func WithBackground(c color.Color) Option {
	return func(r *Renderer) { r.background = c }
}

// WithSelectionColors sets the highlight colours for zoom selections.
func WithSelectionColors(valid, invalid color.Color) Option {
	return func(r *Renderer) {
		r.valid = valid
		r.invalid = invalid
	}
}

// WithInterpolator sets the resampling kernel used to scale tiles.
// The default is draw.ApproxBiLinear; draw.NearestNeighbor is exact
// when the tile and viewport resolutions match.
func WithInterpolator(i draw.Interpolator) Option {
	return func(r *Renderer) {
		if i != nil {
			r.interp = i
		}
	}
}

// Renderer composites chunk tiles onto a canvas. A Renderer holds no
// per-frame state and may be shared.
type Renderer struct {
	loading    color.Color
	failed     color.Color
	background color.Color
	valid      color.Color
	invalid    color.Color
	interp     draw.Interpolator
}

// New creates a renderer with the given options.
func New(opts ...Option) *Renderer {
	r := &Renderer{
		loading:    DefaultLoadingColor,
		failed:     DefaultErrorColor,
		background: color.Transparent,
		valid:      DefaultValidColor,
		invalid:    DefaultInvalidColor,
		interp:     draw.ApproxBiLinear,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Stats counts what one Render call drew.
type Stats struct {
	Drawn   int // chunks drawn from their tile
	Loading int // chunks drawn as loading placeholders
	Failed  int // chunks drawn as error regions
	Skipped int // chunks outside the viewport
}

// Render clears dst and draws every chunk that overlaps window.
// dst's bounds are the viewport; freqRange is the frequency extent every tile
// covers, top row first.
func (r *Renderer) Render(dst draw.Image, window spectro.Window, freqRange spectro.Interval, chunks []chunk.Snapshot) Stats {
	bounds := dst.Bounds()
	draw.Draw(dst, bounds, image.NewUniform(r.background), image.Point{}, draw.Src)

	var st Stats
	fInt, ok := freqRange.Intersect(window.Freq)
	if !ok {
		st.Skipped = len(chunks)
		return st
	}

	vp := viewport{window: window, bounds: bounds}
	for _, s := range chunks {
		tInt, ok := s.Chunk.Interval.Intersect(window.Time)
		if !ok {
			st.Skipped++
			continue
		}
		visible := spectro.Window{Time: tInt, Freq: fInt}
		dr := vp.rect(visible)
		if dr.Empty() {
			st.Skipped++
			continue
		}

		switch {
		case s.State.IsError:
			fill(dst, dr, r.failed)
			st.Failed++
		case s.State.IsLoading || s.Image == nil:
			fill(dst, dr, r.loading)
			st.Loading++
		default:
			r.drawTile(dst, dr, vp, s, freqRange, visible)
			st.Drawn++
		}
	}
	return st
}

// Highlight draws a zoom selection rectangle over dst, which is assumed to
// show window.
func (r *Renderer) Highlight(dst draw.Image, window, selection spectro.Window, valid bool) {
	vp := viewport{window: window, bounds: dst.Bounds()}
	dr := vp.rect(selection).Intersect(dst.Bounds())
	if dr.Empty() {
		return
	}
	c := r.invalid
	if valid {
		c = r.valid
	}
	draw.Draw(dst, dr, image.NewUniform(c), image.Point{}, draw.Over)
}

// drawTile maps visible into the chunk's buffer to find the source
// rectangle and scales it into dr.
func (r *Renderer) drawTile(dst draw.Image, dr image.Rectangle, vp viewport, s chunk.Snapshot, freqRange spectro.Interval, visible spectro.Window) {
	sb := s.Image.Bounds()
	buf := s.Chunk.Buffer
	if buf.Span() <= 0 || freqRange.Span() <= 0 || sb.Empty() {
		fill(dst, dr, r.loading)
		return
	}

	// Source pixels per second and per hertz.
	srcPerSec := float64(sb.Dx()) / buf.Span()
	srcPerHz := float64(sb.Dy()) / freqRange.Span()

	// Source rectangle of the visible part, widened to whole pixels.
	sx0 := float64(sb.Min.X) + (visible.Time.Min-buf.Min)*srcPerSec
	sx1 := float64(sb.Min.X) + (visible.Time.Max-buf.Min)*srcPerSec
	sy0 := float64(sb.Min.Y) + (freqRange.Max-visible.Freq.Max)*srcPerHz
	sy1 := float64(sb.Min.Y) + (freqRange.Max-visible.Freq.Min)*srcPerHz
	sr := image.Rect(
		int(math.Floor(sx0)), int(math.Floor(sy0)),
		int(math.Ceil(sx1)), int(math.Ceil(sy1)),
	).Intersect(sb)
	if sr.Empty() {
		fill(dst, dr, r.loading)
		return
	}

	// Source → destination affine transform: a pure scale and translation.
	dstPerSec := float64(vp.bounds.Dx()) / vp.window.Time.Span()
	dstPerHz := float64(vp.bounds.Dy()) / vp.window.Freq.Span()
	ax := dstPerSec / srcPerSec
	ay := dstPerHz / srcPerHz
	bx := float64(vp.bounds.Min.X) + (buf.Min-vp.window.Time.Min)*dstPerSec - float64(sb.Min.X)*ax
	by := float64(vp.bounds.Min.Y) + (vp.window.Freq.Max-freqRange.Max)*dstPerHz - float64(sb.Min.Y)*ay
	s2d := f64.Aff3{ax, 0, bx, 0, ay, by}

	r.interp.Transform(clip(dst, dr), s2d, s.Image, sr, draw.Src, nil)
}

// viewport converts data-space rectangles to canvas rectangles.
type viewport struct {
	window spectro.Window
	bounds image.Rectangle
}

// rect returns the canvas rectangle covering w. Edges are rounded to the
// nearest pixel so that rectangles sharing a data-space edge share a pixel
// edge.
func (v viewport) rect(w spectro.Window) image.Rectangle {
	size := spectro.Sz(float64(v.bounds.Dx()), float64(v.bounds.Dy()))
	x0 := spectro.ScaleTimeToX(w.Time.Min, v.window, size.Width)
	x1 := spectro.ScaleTimeToX(w.Time.Max, v.window, size.Width)
	y0 := spectro.ScaleFreqToY(w.Freq.Max, v.window, size.Height)
	y1 := spectro.ScaleFreqToY(w.Freq.Min, v.window, size.Height)
	return image.Rect(
		v.bounds.Min.X+int(math.Round(x0)), v.bounds.Min.Y+int(math.Round(y0)),
		v.bounds.Min.X+int(math.Round(x1)), v.bounds.Min.Y+int(math.Round(y1)),
	)
}

func fill(dst draw.Image, r image.Rectangle, c color.Color) {
	draw.Draw(dst, r, image.NewUniform(c), image.Point{}, draw.Src)
}

// clip returns dst restricted to r when dst supports sub-images, so that
// interpolation never spills into a neighbouring chunk.
func clip(dst draw.Image, r image.Rectangle) draw.Image {
	type subImager interface {
		SubImage(image.Rectangle) image.Image
	}
	if s, ok := dst.(subImager); ok {
		if sub, ok := s.SubImage(r).(draw.Image); ok {
			return sub
		}
	}
	return dst
}
