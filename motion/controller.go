// Package motion turns pointer and wheel input into window updates.
//
// A Controller holds the visible window and its bounds. It has three modes:
// in Drag mode a pointer drag pans the window, in Zoom mode a drag selects
// a rectangle that becomes the new window on release, and Idle ignores
// pointer input. Wheel input is handled in every mode.
package motion

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/gogpu/spectro"
)

// ErrInvalidSelection is reported for a zoom rectangle smaller than the
// configured minimum.
var ErrInvalidSelection = errors.New("motion: invalid zoom selection")

// Mode is the pointer interaction mode.
type Mode uint8

const (
	// Drag pans the window.
	Drag Mode = iota
	// Zoom selects a rectangle to zoom into.
	Zoom
	// Idle ignores pointer input.
	Idle
)

func (m Mode) String() string {
	switch m {
	case Drag:
		return "drag"
	case Zoom:
		return "zoom"
	case Idle:
		return "idle"
	default:
		return fmt.Sprintf("Mode(%d)", m)
	}
}

// ScrollEvent is a wheel event. Deltas are in pixels; positive DeltaY is a
// wheel rotation towards the user.
type ScrollEvent struct {
	DeltaX, DeltaY   float64
	Shift, Ctrl, Alt bool
}

// Selection is the state of an in-progress zoom selection.
type Selection struct {
	// Active is true between PointerDown and PointerUp in Zoom mode.
	Active bool
	// Window is the candidate rectangle in data space, after aspect
	// correction.
	Window spectro.Window
	// Err is nil for a selection that would be committed on release.
	Err error
}

// Valid reports whether the selection can be committed.
func (s Selection) Valid() bool { return s.Active && s.Err == nil }

// Controller is safe for concurrent use.
type Controller struct {
	mu sync.Mutex

	opts    options
	bounds  spectro.Window
	initial spectro.Window
	window  spectro.Window
	size    spectro.Size
	mode    Mode
	history []spectro.Window

	pressed     bool
	startPixel  spectro.Point
	startWindow spectro.Window
	selection   Selection
}

// New creates a controller for a canvas of the given size. The initial
// window is constrained to bounds.
func New(bounds, initial spectro.Window, size spectro.Size, opts ...Option) *Controller {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	w := spectro.AdjustWindowToBounds(initial, bounds)
	return &Controller{
		opts:    o,
		bounds:  bounds,
		initial: w,
		window:  w,
		size:    size,
	}
}

// Window returns the current window.
func (c *Controller) Window() spectro.Window {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.window
}

// Bounds returns the navigable bounds.
func (c *Controller) Bounds() spectro.Window {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.bounds
}

// Size returns the canvas size.
func (c *Controller) Size() spectro.Size {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.size
}

// SetSize updates the canvas size, for example after a resize.
func (c *Controller) SetSize(size spectro.Size) {
	c.mu.Lock()
	c.size = size
	c.mu.Unlock()
}

// Mode returns the pointer mode.
func (c *Controller) Mode() Mode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

// SetMode changes the pointer mode and abandons any gesture in progress.
func (c *Controller) SetMode(m Mode) {
	c.mu.Lock()
	c.mode = m
	c.pressed = false
	c.selection = Selection{}
	c.mu.Unlock()
}

// FixedAspect reports whether zoom selections keep the window aspect ratio.
func (c *Controller) FixedAspect() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.opts.fixedAspect
}

// SetFixedAspect toggles the aspect ratio lock.
func (c *Controller) SetFixedAspect(fixed bool) {
	c.mu.Lock()
	c.opts.fixedAspect = fixed
	c.mu.Unlock()
}

// Selection returns the current zoom selection.
func (c *Controller) Selection() Selection {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selection
}

// SetBounds replaces the bounds and constrains the current window to them.
// History is cleared and the constrained window becomes the reset target.
func (c *Controller) SetBounds(bounds spectro.Window) {
	c.mu.Lock()
	c.bounds = bounds
	c.history = nil
	c.initial = spectro.AdjustWindowToBounds(c.initial, bounds)
	w := c.setWindowLocked(c.window)
	c.mu.Unlock()
	c.notify(w)
}

// SetWindow moves to w, constrained to the bounds.
func (c *Controller) SetWindow(w spectro.Window) spectro.Window {
	c.mu.Lock()
	w = c.setWindowLocked(w)
	c.mu.Unlock()
	c.notify(w)
	return w
}

// Back restores the window before the last committed zoom. It returns false
// when there is no history.
func (c *Controller) Back() bool {
	c.mu.Lock()
	n := len(c.history)
	if n == 0 {
		c.mu.Unlock()
		return false
	}
	prev := c.history[n-1]
	c.history = c.history[:n-1]
	w := c.setWindowLocked(prev)
	c.mu.Unlock()
	c.notify(w)
	return true
}

// Reset restores the initial window and clears history.
func (c *Controller) Reset() {
	c.mu.Lock()
	c.history = nil
	w := c.setWindowLocked(c.initial)
	c.mu.Unlock()
	c.notify(w)
}

// PointerDown starts a gesture at pixel position p.
func (c *Controller) PointerDown(p spectro.Point) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.mode == Idle {
		return
	}
	c.pressed = true
	c.startPixel = p
	c.startWindow = c.window
	if c.mode == Zoom {
		c.selection = c.selectLocked(p)
	}
}

// PointerMove continues a gesture. In Drag mode the window is shifted from
// where it was at PointerDown so the data under the pointer follows it.
func (c *Controller) PointerMove(p spectro.Point) {
	c.mu.Lock()
	if !c.pressed {
		c.mu.Unlock()
		return
	}
	switch c.mode {
	case Drag:
		shift := spectro.PixelDeltaToShift(p.Sub(c.startPixel), c.startWindow, c.size)
		w := c.setWindowLocked(spectro.ShiftWindow(c.startWindow, shift))
		c.mu.Unlock()
		c.notify(w)
		return
	case Zoom:
		c.selection = c.selectLocked(p)
	}
	c.mu.Unlock()
}

// PointerUp ends a gesture. A valid zoom selection is committed, pushed
// onto the history and the mode reverts to Drag. An invalid selection is
// discarded and Zoom mode is kept.
func (c *Controller) PointerUp(p spectro.Point) {
	c.mu.Lock()
	if !c.pressed {
		c.mu.Unlock()
		return
	}
	c.pressed = false
	if c.mode != Zoom {
		c.mu.Unlock()
		return
	}
	sel := c.selectLocked(p)
	c.selection = Selection{}
	if !sel.Valid() {
		c.mu.Unlock()
		spectro.Logger().Debug("motion: zoom selection rejected", "err", sel.Err)
		return
	}
	c.history = append(c.history, c.window)
	w := c.setWindowLocked(sel.Window)
	c.mode = Drag
	c.mu.Unlock()
	c.notify(w)
}

// selectLocked computes the selection from the press position to p.
func (c *Controller) selectLocked(p spectro.Point) Selection {
	a := spectro.ScalePixelsToWindow(c.startPixel, c.startWindow, c.size)
	b := spectro.ScalePixelsToWindow(p, c.startWindow, c.size)
	if c.opts.fixedAspect {
		b = fixAspect(a, b, c.startWindow.AspectRatio())
	}
	w := spectro.Window{Time: spectro.Iv(a.X, b.X), Freq: spectro.Iv(a.Y, b.Y)}
	sel := Selection{Active: true, Window: w}
	if w.Time.Span() <= c.opts.minTimeZoom || w.Freq.Span() <= c.opts.minFreqZoom {
		sel.Err = fmt.Errorf("%w: %v smaller than %gs x %gHz",
			ErrInvalidSelection, w, c.opts.minTimeZoom, c.opts.minFreqZoom)
	}
	return sel
}

// fixAspect moves the corner b so that the rectangle anchored at a has the
// given time/frequency ratio. The shorter axis is extended in the direction
// the pointer moved.
func fixAspect(a, b spectro.Point, ratio float64) spectro.Point {
	if ratio <= 0 || math.IsInf(ratio, 0) || math.IsNaN(ratio) {
		return b
	}
	dt, df := b.X-a.X, b.Y-a.Y
	ts, fs := math.Abs(dt), math.Abs(df)
	if ts == 0 && fs == 0 {
		return b
	}
	if ts < fs*ratio {
		return spectro.Point{X: a.X + sign(dt)*fs*ratio, Y: b.Y}
	}
	return spectro.Point{X: b.X, Y: a.Y + sign(df)*ts/ratio}
}

func sign(v float64) float64 {
	if v < 0 {
		return -1
	}
	return 1
}

// Scroll applies a wheel event:
//
//	no modifier  pan both axes
//	shift        pan time
//	ctrl         pan frequency
//	shift+alt    zoom time
//	ctrl+alt     zoom frequency
func (c *Controller) Scroll(ev ScrollEvent) {
	c.mu.Lock()
	w := c.window
	tspan, fspan := w.Time.Span(), w.Freq.Span()
	primary := ev.DeltaY
	if primary == 0 {
		primary = ev.DeltaX
	}

	switch {
	case ev.Shift && ev.Alt:
		w = c.zoomLocked(w, math.Exp(primary*c.opts.scrollZoomRate), 1)
	case ev.Ctrl && ev.Alt:
		w = c.zoomLocked(w, 1, math.Exp(primary*c.opts.scrollZoomRate))
	case ev.Shift:
		w = spectro.ShiftWindow(w, spectro.Point{X: ratio(primary, c.size.Width) * tspan})
	case ev.Ctrl:
		w = spectro.ShiftWindow(w, spectro.Point{Y: -ratio(primary, c.size.Height) * fspan})
	default:
		w = spectro.ShiftWindow(w, spectro.Point{
			X: ratio(ev.DeltaX, c.size.Width) * tspan,
			Y: -ratio(ev.DeltaY, c.size.Height) * fspan,
		})
	}
	if w == c.window {
		c.mu.Unlock()
		return
	}
	w = c.setWindowLocked(w)
	c.mu.Unlock()
	c.notify(w)
}

func ratio(delta, extent float64) float64 {
	if extent == 0 {
		return 0
	}
	return delta / extent
}

// zoomLocked scales w about its center. An axis that would shrink below the
// minimum zoom is left unchanged.
func (c *Controller) zoomLocked(w spectro.Window, tf, ff float64) spectro.Window {
	if w.Time.Span()*tf <= c.opts.minTimeZoom {
		tf = 1
	}
	if w.Freq.Span()*ff <= c.opts.minFreqZoom {
		ff = 1
	}
	return spectro.ScaleWindow(w, tf, ff)
}

func (c *Controller) setWindowLocked(w spectro.Window) spectro.Window {
	c.window = spectro.AdjustWindowToBounds(w, c.bounds)
	return c.window
}

func (c *Controller) notify(w spectro.Window) {
	if c.opts.onChange != nil {
		c.opts.onChange(w)
	}
}
