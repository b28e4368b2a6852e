// Package viewer wires the motion controller, the viewport loader and the
// stitched renderer into a single spectrogram view.
//
// Every window change made through the controller is passed to the loader
// synchronously, so the next Render already sees the chunks the new window
// needs (ready, loading or failed).
package viewer

import (
	"context"
	"errors"
	"image"
	"image/draw"

	"github.com/gogpu/spectro"
	"github.com/gogpu/spectro/cache"
	"github.com/gogpu/spectro/chunk"
	"github.com/gogpu/spectro/edit"
	"github.com/gogpu/spectro/loader"
	"github.com/gogpu/spectro/motion"
	"github.com/gogpu/spectro/render"
	"github.com/gogpu/spectro/tile"
)

// ErrNoFetcher is returned by New when Config.Fetcher is nil.
var ErrNoFetcher = errors.New("viewer: no tile fetcher")

// Config describes a view.
type Config struct {
	Recording loader.Recording
	Params    chunk.Parameters
	Fetcher   tile.Fetcher

	// Size is the canvas size in pixels.
	Size spectro.Size

	// TaskTime limits navigation. The zero interval means the whole
	// recording.
	TaskTime spectro.Interval

	// MaxTimeSpan limits the initial window width in seconds. Zero shows
	// the whole task.
	MaxTimeSpan float64

	// Cache is shared between views of the same recording. A private
	// cache is created when nil.
	Cache *cache.TileCache

	LoaderOptions []loader.Option
	MotionOptions []motion.Option
	RenderOptions []render.Option
}

// Viewer is a spectrogram view. It is safe for concurrent use.
type Viewer struct {
	ctx      context.Context
	task     spectro.Interval
	loader   *loader.Loader
	motion   *motion.Controller
	renderer *render.Renderer
}

// New builds a view and starts loading the initial window. Loads run
// detached from ctx cancellation; ctx only carries values.
func New(ctx context.Context, cfg Config) (*Viewer, error) {
	if cfg.Fetcher == nil {
		return nil, ErrNoFetcher
	}
	tiles := cfg.Cache
	if tiles == nil {
		tiles = cache.New()
	}
	task := cfg.TaskTime
	if task.Span() <= 0 {
		task = spectro.Interval{Min: 0, Max: cfg.Recording.Duration}
	}

	ld, err := loader.New(cfg.Recording, cfg.Params, tiles, cfg.Fetcher, cfg.LoaderOptions...)
	if err != nil {
		return nil, err
	}
	v := &Viewer{
		ctx:      ctx,
		task:     task,
		loader:   ld,
		renderer: render.New(cfg.RenderOptions...),
	}

	bounds := v.bounds()
	opts := append([]motion.Option{}, cfg.MotionOptions...)
	opts = append(opts, motion.WithOnChange(v.windowChanged))
	v.motion = motion.New(bounds, spectro.InitialWindow(bounds, cfg.MaxTimeSpan), cfg.Size, opts...)

	ld.Update(ctx, v.motion.Window())
	return v, nil
}

func (v *Viewer) bounds() spectro.Window {
	return spectro.Window{Time: v.task, Freq: v.loader.FreqRange()}
}

func (v *Viewer) windowChanged(w spectro.Window) {
	v.loader.Update(v.ctx, w)
}

// Controller returns the motion controller. Pointer and wheel events sent
// to it update the loader.
func (v *Viewer) Controller() *motion.Controller { return v.motion }

// Loader returns the viewport loader.
func (v *Viewer) Loader() *loader.Loader { return v.loader }

// Window returns the visible window.
func (v *Viewer) Window() spectro.Window { return v.motion.Window() }

// Bounds returns the navigable bounds.
func (v *Viewer) Bounds() spectro.Window { return v.motion.Bounds() }

// Editor returns a geometry editor for the current window and canvas.
func (v *Viewer) Editor() edit.Editor {
	return edit.Editor{Window: v.motion.Window(), Size: v.motion.Size()}
}

// SetParameters switches processing parameters. The bounds follow the new
// Nyquist frequency and loading restarts for the current window.
func (v *Viewer) SetParameters(params chunk.Parameters) error {
	if err := v.loader.SetParameters(params); err != nil {
		return err
	}
	v.motion.SetBounds(v.bounds())
	return nil
}

// Resize changes the canvas size.
func (v *Viewer) Resize(size spectro.Size) {
	v.motion.SetSize(size)
}

// Wait blocks until in-flight tile loads have finished.
func (v *Viewer) Wait() { v.loader.Wait() }

// Render draws the current window into dst, followed by the zoom selection
// if one is in progress.
func (v *Viewer) Render(dst draw.Image) render.Stats {
	w := v.motion.Window()
	stats := v.renderer.Render(dst, w, v.loader.FreqRange(), v.loader.Snapshot())
	if sel := v.motion.Selection(); sel.Active {
		v.renderer.Highlight(dst, w, sel.Window, sel.Valid())
	}
	return stats
}

// Frame renders into a new image of the canvas size.
func (v *Viewer) Frame() (*image.RGBA, render.Stats) {
	size := v.motion.Size()
	img := image.NewRGBA(image.Rect(0, 0, int(size.Width), int(size.Height)))
	return img, v.Render(img)
}
