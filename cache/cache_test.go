package cache

import (
	"context"
	"errors"
	"image"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gogpu/spectro"
	"github.com/gogpu/spectro/chunk"
)

// tileOf returns an RGBA image of w×1 pixels, i.e. 4*w bytes.
func tileOf(w int) image.Image {
	return image.NewRGBA(image.Rect(0, 0, w, 1))
}

func keyAt(t float64) Key {
	return NewKey("rec-1", spectro.Win(t, t+1, 0, 24000), chunk.Parameters{WindowSizeSamples: 1024, OverlapPercent: 75})
}

func constLoader(img image.Image, calls *atomic.Int32) Loader {
	return func(context.Context) (image.Image, error) {
		calls.Add(1)
		return img, nil
	}
}

func TestKeySignature(t *testing.T) {
	p := chunk.Parameters{WindowSizeSamples: 1024}
	a := NewKey("r", spectro.Win(0, 1, 0, 100), p)
	b := NewKey("r", spectro.Win(0, 1, 0, 100), p)
	if a.String() != b.String() || a.Hash() != b.Hash() {
		t.Error("equal keys must have equal signatures")
	}
	c := NewKey("r", spectro.Win(0, 1.5, 0, 100), p)
	if a.String() == c.String() {
		t.Error("different windows must have different signatures")
	}
	d := NewKey("other", spectro.Win(0, 1, 0, 100), p)
	if a.String() == d.String() {
		t.Error("different recordings must have different signatures")
	}
}

func TestGetOrLoadCachesResult(t *testing.T) {
	c := New()
	var calls atomic.Int32
	img := tileOf(10)

	for range 3 {
		got, err := c.GetOrLoad(context.Background(), keyAt(0), constLoader(img, &calls))
		if err != nil {
			t.Fatalf("GetOrLoad: %v", err)
		}
		if got != img {
			t.Fatal("GetOrLoad returned a different image")
		}
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("loader called %d times, want 1", n)
	}
	if c.Len() != 1 || c.Bytes() != 40 {
		t.Errorf("Len, Bytes = %d, %d; want 1, 40", c.Len(), c.Bytes())
	}
	st := c.Stats()
	if st.Hits != 2 || st.Misses != 1 || st.Loads != 1 {
		t.Errorf("Stats = %+v", st)
	}
}

func TestGetOrLoadDeduplicatesConcurrentLoads(t *testing.T) {
	c := New()
	var calls atomic.Int32
	release := make(chan struct{})
	started := make(chan struct{})

	load := func(context.Context) (image.Image, error) {
		if calls.Add(1) == 1 {
			close(started)
		}
		<-release
		return tileOf(4), nil
	}

	const callers = 8
	var wg sync.WaitGroup
	results := make([]image.Image, callers)
	errs := make([]error, callers)

	wg.Add(1)
	go func() {
		defer wg.Done()
		results[0], errs[0] = c.GetOrLoad(context.Background(), keyAt(0), load)
	}()
	<-started
	for i := 1; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = c.GetOrLoad(context.Background(), keyAt(0), load)
		}()
	}
	// Give the followers a moment to join the in-flight load.
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	if n := calls.Load(); n != 1 {
		t.Errorf("loader called %d times, want 1", n)
	}
	for i := range callers {
		if errs[i] != nil {
			t.Errorf("caller %d: %v", i, errs[i])
		}
		if results[i] != results[0] {
			t.Errorf("caller %d got a different image", i)
		}
	}
}

func TestGetOrLoadFailureNotCached(t *testing.T) {
	c := New()
	boom := errors.New("network down")
	var calls atomic.Int32

	fail := func(context.Context) (image.Image, error) {
		calls.Add(1)
		return nil, boom
	}
	if _, err := c.GetOrLoad(context.Background(), keyAt(0), fail); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}
	if c.Len() != 0 {
		t.Errorf("failed load was cached")
	}

	img := tileOf(1)
	got, err := c.GetOrLoad(context.Background(), keyAt(0), constLoader(img, &calls))
	if err != nil || got != img {
		t.Fatalf("retry = %v, %v", got, err)
	}
	if n := calls.Load(); n != 2 {
		t.Errorf("loader called %d times, want 2", n)
	}
	if st := c.Stats(); st.Failures != 1 {
		t.Errorf("Failures = %d, want 1", st.Failures)
	}
}

func TestGetOrLoadFailurePropagatesToAllWaiters(t *testing.T) {
	c := New()
	boom := errors.New("decode failed")
	release := make(chan struct{})
	started := make(chan struct{})
	var once sync.Once

	load := func(context.Context) (image.Image, error) {
		once.Do(func() { close(started) })
		<-release
		return nil, boom
	}

	errs := make(chan error, 2)
	go func() {
		_, err := c.GetOrLoad(context.Background(), keyAt(3), load)
		errs <- err
	}()
	<-started
	go func() {
		_, err := c.GetOrLoad(context.Background(), keyAt(3), load)
		errs <- err
	}()
	time.Sleep(20 * time.Millisecond)
	close(release)

	for range 2 {
		if err := <-errs; !errors.Is(err, boom) {
			t.Errorf("waiter err = %v, want %v", err, boom)
		}
	}
}

func TestGetOrLoadCancelledWaiterStillPopulates(t *testing.T) {
	c := New()
	release := make(chan struct{})
	done := make(chan struct{})
	img := tileOf(2)

	load := func(ctx context.Context) (image.Image, error) {
		defer close(done)
		<-release
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return img, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() {
		_, err := c.GetOrLoad(ctx, keyAt(0), load)
		errc <- err
	}()
	time.Sleep(10 * time.Millisecond)
	cancel()
	if err := <-errc; !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}

	close(release)
	<-done
	// The store happens right after the loader returns.
	deadline := time.Now().Add(time.Second)
	for !c.Contains(keyAt(0)) {
		if time.Now().After(deadline) {
			t.Fatal("abandoned load did not populate the cache")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestEvictionLeastRecentlyUsed(t *testing.T) {
	// Three 40-byte tiles fit in 120 bytes; the fourth forces one eviction.
	c := New(WithMaxBytes(120))
	var calls atomic.Int32
	ctx := context.Background()

	for i := range 3 {
		if _, err := c.GetOrLoad(ctx, keyAt(float64(i)), constLoader(tileOf(10), &calls)); err != nil {
			t.Fatal(err)
		}
	}
	// Touch key 0 so key 1 becomes the least recently used.
	if _, ok := c.Get(keyAt(0)); !ok {
		t.Fatal("key 0 missing")
	}
	if _, err := c.GetOrLoad(ctx, keyAt(3), constLoader(tileOf(10), &calls)); err != nil {
		t.Fatal(err)
	}

	if c.Contains(keyAt(1)) {
		t.Error("least recently used key 1 should have been evicted")
	}
	for _, k := range []float64{0, 2, 3} {
		if !c.Contains(keyAt(k)) {
			t.Errorf("key %v should still be cached", k)
		}
	}
	if c.Bytes() > c.MaxBytes() {
		t.Errorf("Bytes = %d exceeds budget %d", c.Bytes(), c.MaxBytes())
	}
	if st := c.Stats(); st.Evictions != 1 {
		t.Errorf("Evictions = %d, want 1", st.Evictions)
	}
}

func TestEvictionKeepsNewestOversizeEntry(t *testing.T) {
	c := New(WithMaxBytes(16))
	var calls atomic.Int32
	if _, err := c.GetOrLoad(context.Background(), keyAt(0), constLoader(tileOf(1), &calls)); err != nil {
		t.Fatal(err)
	}
	if _, err := c.GetOrLoad(context.Background(), keyAt(1), constLoader(tileOf(100), &calls)); err != nil {
		t.Fatal(err)
	}
	if !c.Contains(keyAt(1)) {
		t.Error("newest entry must never be evicted")
	}
	if c.Contains(keyAt(0)) {
		t.Error("older entry should make room")
	}
}

func TestMaxAgeMakesEntriesStale(t *testing.T) {
	now := time.Unix(1000, 0)
	c := New(WithMaxAge(time.Minute), WithClock(func() time.Time { return now }))
	var calls atomic.Int32
	ctx := context.Background()

	if _, err := c.GetOrLoad(ctx, keyAt(0), constLoader(tileOf(1), &calls)); err != nil {
		t.Fatal(err)
	}
	now = now.Add(30 * time.Second)
	if _, err := c.GetOrLoad(ctx, keyAt(0), constLoader(tileOf(1), &calls)); err != nil {
		t.Fatal(err)
	}
	if calls.Load() != 1 {
		t.Fatalf("fresh entry reloaded")
	}
	now = now.Add(2 * time.Minute)
	if c.Contains(keyAt(0)) {
		t.Error("entry should be stale")
	}
	if _, err := c.GetOrLoad(ctx, keyAt(0), constLoader(tileOf(1), &calls)); err != nil {
		t.Fatal(err)
	}
	if calls.Load() != 2 {
		t.Errorf("stale entry not reloaded, calls = %d", calls.Load())
	}
}

func TestDeleteAndPurge(t *testing.T) {
	c := New()
	var calls atomic.Int32
	for i := range 3 {
		_, _ = c.GetOrLoad(context.Background(), keyAt(float64(i)), constLoader(tileOf(1), &calls))
	}
	if !c.Delete(keyAt(1)) {
		t.Error("Delete existing returned false")
	}
	if c.Delete(keyAt(1)) {
		t.Error("Delete missing returned true")
	}
	if c.Len() != 2 || c.Bytes() != 8 {
		t.Errorf("Len, Bytes = %d, %d; want 2, 8", c.Len(), c.Bytes())
	}
	c.Purge()
	if c.Len() != 0 || c.Bytes() != 0 {
		t.Errorf("after Purge Len, Bytes = %d, %d", c.Len(), c.Bytes())
	}
	c.ResetStats()
	if st := c.Stats(); st.Hits != 0 || st.Misses != 0 || st.Loads != 0 {
		t.Errorf("ResetStats left %+v", st)
	}
}

func TestImageBytes(t *testing.T) {
	tests := []struct {
		name string
		img  image.Image
		want int64
	}{
		{"nil", nil, 0},
		{"rgba", image.NewRGBA(image.Rect(0, 0, 3, 2)), 24},
		{"gray", image.NewGray(image.Rect(0, 0, 3, 2)), 6},
		{"gray16", image.NewGray16(image.Rect(0, 0, 3, 2)), 12},
		{"ycbcr", image.NewYCbCr(image.Rect(0, 0, 4, 4), image.YCbCrSubsampleRatio420), 16 + 4 + 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ImageBytes(tt.img); got != tt.want {
				t.Errorf("ImageBytes = %d, want %d", got, tt.want)
			}
		})
	}
}
