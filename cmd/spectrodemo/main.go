// Command spectrodemo renders a viewport of a synthetic recording.
//
// It starts an in-process tile service, opens a view, pans it, stores a
// bounding box annotation and draws the annotation's edit handles over the
// stitched spectrogram.
package main

import (
	"context"
	"flag"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"log"
	"log/slog"
	"os"

	"github.com/gogpu/spectro"
	"github.com/gogpu/spectro/annotation"
	"github.com/gogpu/spectro/annotation/sqlitestore"
	"github.com/gogpu/spectro/chunk"
	"github.com/gogpu/spectro/edit"
	"github.com/gogpu/spectro/geometry"
	"github.com/gogpu/spectro/loader"
	"github.com/gogpu/spectro/spectrotest"
	"github.com/gogpu/spectro/tile"
	"github.com/gogpu/spectro/viewer"
)

func main() {
	var (
		width    = flag.Int("width", 800, "image width")
		height   = flag.Int("height", 400, "image height")
		duration = flag.Float64("duration", 30, "recording duration in seconds")
		rate     = flag.Float64("samplerate", 48000, "recording sample rate")
		span     = flag.Float64("span", 5, "visible time span in seconds")
		pan      = flag.Float64("pan", 0.5, "pan distance in canvas widths")
		dbPath   = flag.String("db", "", "SQLite annotation database (in-memory store when empty)")
		output   = flag.String("output", "spectrogram.png", "output file")
		verbose  = flag.Bool("v", false, "log tile and cache activity")
	)
	flag.Parse()

	if *verbose {
		spectro.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
	}

	rec := spectrotest.Recording{
		ID:         "demo",
		Duration:   *duration,
		Samplerate: *rate,
		Signal: spectrotest.Mix(
			spectrotest.Chirp(200, *rate/2*0.9, *duration),
			spectrotest.Tone(*rate/8),
		),
	}
	srv := spectrotest.NewServer(rec)
	defer srv.Close()

	client, err := tile.NewClient(srv.URL)
	if err != nil {
		log.Fatalf("Failed to create tile client: %v", err)
	}

	ctx := context.Background()
	v, err := viewer.New(ctx, viewer.Config{
		Recording:   loader.Recording{ID: rec.ID, Duration: rec.Duration, Samplerate: rec.Samplerate},
		Params:      chunk.Parameters{AutoSTFT: true, MinDB: -100, MaxDB: 0},
		Fetcher:     client,
		Size:        spectro.Sz(float64(*width), float64(*height)),
		MaxTimeSpan: *span,
	})
	if err != nil {
		log.Fatalf("Failed to open view: %v", err)
	}

	ctl := v.Controller()
	from := spectro.Pt(float64(*width), float64(*height)/2)
	to := from.Sub(spectro.Pt(*pan*float64(*width), 0))
	ctl.PointerDown(from)
	ctl.PointerMove(to)
	ctl.PointerUp(to)
	v.Wait()

	store, closeStore, err := openStore(*dbPath)
	if err != nil {
		log.Fatalf("Failed to open annotation store: %v", err)
	}
	defer closeStore()

	w := v.Window()
	box := &annotation.Annotation{
		RecordingID: rec.ID,
		Geometry: geometry.BoundingBox{Coordinates: [4]float64{
			w.Time.Min + w.Time.Span()*0.3, w.Freq.Span() * 0.2,
			w.Time.Min + w.Time.Span()*0.6, w.Freq.Span() * 0.5,
		}},
		Tags: []string{"demo"},
	}
	if err := store.Create(ctx, box); err != nil {
		log.Fatalf("Failed to store annotation: %v", err)
	}
	anns, err := store.ListByRecording(ctx, rec.ID)
	if err != nil {
		log.Fatalf("Failed to list annotations: %v", err)
	}

	img, stats := v.Frame()
	drawHandles(img, v.Editor(), annotation.Visible(anns, w))

	if err := savePNG(*output, img); err != nil {
		log.Fatalf("Failed to save: %v", err)
	}
	log.Printf("Viewport %v saved to %s (%dx%d): %d drawn, %d loading, %d failed, %d tile requests\n",
		w, *output, *width, *height, stats.Drawn, stats.Loading, stats.Failed, srv.Requests())
}

func openStore(path string) (annotation.Store, func(), error) {
	if path == "" {
		return annotation.NewMemoryStore(), func() {}, nil
	}
	s, err := sqlitestore.Open(path)
	if err != nil {
		return nil, nil, err
	}
	return s, func() { _ = s.Close() }, nil
}

// drawHandles marks keypoints with squares and edge midpoints with dots.
func drawHandles(dst draw.Image, ed edit.Editor, anns []*annotation.Annotation) {
	keypoint := image.NewUniform(color.RGBA{R: 0xfa, G: 0xcc, B: 0x15, A: 0xff})
	edge := image.NewUniform(color.RGBA{R: 0x22, G: 0xd3, B: 0xee, A: 0xff})
	mark := func(p spectro.Point, r int, src image.Image) {
		x, y := int(p.X), int(p.Y)
		draw.Draw(dst, image.Rect(x-r, y-r, x+r+1, y+r+1), src, image.Point{}, draw.Src)
	}
	for _, a := range anns {
		for _, el := range ed.Elements(a.Geometry) {
			switch el.Type {
			case edit.Keypoint:
				mark(el.Coords[0], 3, keypoint)
			case edit.Edge:
				mark(el.Coords[0].Add(el.Coords[1]).Mul(0.5), 1, edge)
			}
		}
	}
}

func savePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
