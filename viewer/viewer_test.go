package viewer

import (
	"context"
	"errors"
	"testing"

	"github.com/gogpu/spectro"
	"github.com/gogpu/spectro/cache"
	"github.com/gogpu/spectro/chunk"
	"github.com/gogpu/spectro/loader"
	"github.com/gogpu/spectro/motion"
	"github.com/gogpu/spectro/spectrotest"
	"github.com/gogpu/spectro/tile"
)

var params = chunk.Parameters{
	WindowSizeSamples: 1024,
	OverlapPercent:    75,
	Samplerate:        48000,
}

func newViewer(t *testing.T, srv *spectrotest.Server, opts ...motion.Option) *Viewer {
	t.Helper()
	c, err := tile.NewClient(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	v, err := New(context.Background(), Config{
		Recording:     loader.Recording{ID: "rec", Duration: 10, Samplerate: 48000},
		Params:        params,
		Fetcher:       c,
		Size:          spectro.Sz(300, 100),
		MaxTimeSpan:   3,
		MotionOptions: opts,
	})
	if err != nil {
		t.Fatal(err)
	}
	return v
}

func recording() spectrotest.Recording {
	return spectrotest.Recording{
		ID: "rec", Duration: 10, Samplerate: 48000,
		Signal: spectrotest.Chirp(500, 20000, 10),
	}
}

func TestInitialWindowLoads(t *testing.T) {
	srv := spectrotest.NewServer(recording())
	defer srv.Close()
	v := newViewer(t, srv)

	if got, want := v.Window(), spectro.Win(0, 3, 0, 24000); got != want {
		t.Errorf("Window() = %v, want %v", got, want)
	}

	v.Wait()
	_, stats := v.Frame()
	if stats.Drawn != 2 || stats.Loading != 0 || stats.Failed != 0 {
		t.Errorf("stats = %+v, want 2 drawn", stats)
	}
	// Two visible chunks plus one prefetched.
	if got := srv.Requests(); got != 3 {
		t.Errorf("requests = %d, want 3", got)
	}
}

func TestLoadingIsVisibleBeforeTilesArrive(t *testing.T) {
	srv := spectrotest.NewServer(recording())
	defer srv.Close()
	v := newViewer(t, srv)

	_, stats := v.Frame()
	if stats.Drawn+stats.Loading != 2 {
		t.Errorf("stats = %+v, want 2 chunks drawn or loading", stats)
	}
	v.Wait()
}

func TestPanToFailedChunk(t *testing.T) {
	srv := spectrotest.NewServer(recording())
	defer srv.Close()
	srv.FailSegmentsContaining(9.9)
	v := newViewer(t, srv)
	v.Wait()

	// Dragging left by two canvas widths moves 6s later.
	ctl := v.Controller()
	ctl.PointerDown(spectro.Pt(300, 50))
	ctl.PointerMove(spectro.Pt(-300, 50))
	ctl.PointerUp(spectro.Pt(-300, 50))

	if got := v.Window().Time; got != spectro.Iv(6, 9) {
		t.Fatalf("time after drag = %v, want [6, 9]", got)
	}
	v.Wait()
	_, stats := v.Frame()
	if stats.Failed != 1 || stats.Drawn != 1 {
		t.Errorf("stats = %+v, want 1 drawn and 1 failed", stats)
	}
	if srv.Failures() != 1 {
		t.Errorf("failures = %d, want 1", srv.Failures())
	}
}

func TestZoomSelectionIsHighlighted(t *testing.T) {
	srv := spectrotest.NewServer(recording())
	defer srv.Close()
	v := newViewer(t, srv)
	v.Wait()

	ctl := v.Controller()
	ctl.SetMode(motion.Zoom)
	ctl.PointerDown(spectro.Pt(10, 10))
	ctl.PointerMove(spectro.Pt(100, 60))

	img, _ := v.Frame()
	// Tiles are grayscale; the valid highlight tints them blue.
	r, _, b, _ := img.At(50, 30).RGBA()
	if b <= r {
		t.Errorf("pixel inside selection not highlighted: r=%d b=%d", r, b)
	}

	ctl.PointerUp(spectro.Pt(100, 60))
	want := spectro.Win(0.1, 1, 9600, 21600)
	got := v.Window()
	if !approxWindow(got, want) {
		t.Errorf("window after zoom = %v, want %v", got, want)
	}
}

func approxWindow(a, b spectro.Window) bool {
	const eps = 1e-9
	d := func(x, y float64) bool { return x-y < eps && y-x < eps }
	return d(a.Time.Min, b.Time.Min) && d(a.Time.Max, b.Time.Max) &&
		d(a.Freq.Min, b.Freq.Min) && d(a.Freq.Max, b.Freq.Max)
}

func TestSetParametersFollowsNyquist(t *testing.T) {
	srv := spectrotest.NewServer(recording())
	defer srv.Close()
	v := newViewer(t, srv)
	v.Wait()

	p := params
	p.Resample = true
	p.Samplerate = 16000
	if err := v.SetParameters(p); err != nil {
		t.Fatal(err)
	}
	if got := v.Bounds().Freq; got != spectro.Iv(0, 8000) {
		t.Errorf("bounds freq = %v, want [0, 8000]", got)
	}
	if got := v.Window().Freq; got.Max > 8000 {
		t.Errorf("window freq %v exceeds new Nyquist", got)
	}
	v.Wait()
	if _, stats := v.Frame(); stats.Loading != 0 || stats.Drawn == 0 {
		t.Errorf("stats after parameter change = %+v", stats)
	}
}

func TestSharedCache(t *testing.T) {
	srv := spectrotest.NewServer(recording())
	defer srv.Close()
	c, err := tile.NewClient(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	shared := cache.New()
	cfg := Config{
		Recording:   loader.Recording{ID: "rec", Duration: 10, Samplerate: 48000},
		Params:      params,
		Fetcher:     c,
		Size:        spectro.Sz(300, 100),
		MaxTimeSpan: 3,
		Cache:       shared,
	}
	a, err := New(context.Background(), cfg)
	if err != nil {
		t.Fatal(err)
	}
	a.Wait()
	before := srv.Requests()

	b, err := New(context.Background(), cfg)
	if err != nil {
		t.Fatal(err)
	}
	if _, stats := b.Frame(); stats.Drawn != 2 {
		t.Errorf("second view stats = %+v, want 2 drawn from cache", stats)
	}
	if srv.Requests() != before {
		t.Errorf("second view fetched %d tiles", srv.Requests()-before)
	}
}

func TestNewRequiresFetcher(t *testing.T) {
	_, err := New(context.Background(), Config{Params: params})
	if !errors.Is(err, ErrNoFetcher) {
		t.Errorf("New() err = %v, want ErrNoFetcher", err)
	}
}
