// Package loader keeps the chunks around the current window resident.
//
// On every window or parameter change the Loader works out which chunks are
// visible, adds a prefetch margin, and asks the tile cache for every chunk in
// that set that has not been attempted yet. Each chunk is fetched for its
// buffered interval. Load state is tracked per chunk; failed chunks stay
// failed until the parameters change.
package loader

import (
	"context"
	"image"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/gogpu/spectro"
	"github.com/gogpu/spectro/cache"
	"github.com/gogpu/spectro/chunk"
	"github.com/gogpu/spectro/tile"
)

// DefaultConcurrency is the default number of simultaneous tile fetches.
const DefaultConcurrency = 4

// Recording describes the audio a loader serves tiles for.
type Recording struct {
	ID         string
	Duration   float64 // seconds
	Samplerate float64 // native sample rate in Hz
}

// Option configures a Loader.
type Option func(*options)

type options struct {
	kind          tile.Kind
	margin        int
	concurrency   int64
	planner       *chunk.Planner
	onFullyLoaded func()
}

// WithKind selects spectrogram or waveform tiles. Waveforms default to no
// prefetch margin since they are cheap to render and dense to request.
func WithKind(k tile.Kind) Option {
	return func(o *options) {
		o.kind = k
		if k == tile.Waveform {
			o.margin = 0
		}
	}
}

// WithPrefetch sets how many chunks beyond each side of the visible range are
// loaded. Negative values are ignored.
func WithPrefetch(margin int) Option {
	return func(o *options) {
		if margin >= 0 {
			o.margin = margin
		}
	}
}

// WithConcurrency limits the number of simultaneous fetches. Non-positive
// values are ignored.
func WithConcurrency(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.concurrency = int64(n)
		}
	}
}

// WithPlanner sets the chunk planner.
func WithPlanner(p *chunk.Planner) Option {
	return func(o *options) {
		if p != nil {
			o.planner = p
		}
	}
}

// WithOnFullyLoaded registers fn to be called each time every visible chunk
// becomes ready. fn runs without the loader's lock held and may call back
// into the loader.
func WithOnFullyLoaded(fn func()) Option {
	return func(o *options) {
		o.onFullyLoaded = fn
	}
}

// planKey identifies a chunk plan. A new plan is computed only when it changes.
type planKey struct {
	duration float64
	stft     chunk.STFT
}

// Loader tracks per-chunk load state for one recording. It is safe for
// concurrent use.
type Loader struct {
	opts    options
	rec     Recording
	tiles   *cache.TileCache
	fetcher tile.Fetcher
	sem     *semaphore.Weighted
	wg      sync.WaitGroup

	mu       sync.Mutex
	params   chunk.Parameters
	plan     planKey
	chunks   []chunk.Chunk
	states   []chunk.State
	gen      uint64
	window   spectro.Window
	hasView  bool
	visFirst int
	visLast  int
	visOK    bool
	notified bool
}

// New creates a loader for rec. tiles resolves chunk requests through
// fetcher. It fails only if params cannot be resolved for rec.
func New(rec Recording, params chunk.Parameters, tiles *cache.TileCache, fetcher tile.Fetcher, opts ...Option) (*Loader, error) {
	o := options{
		kind:        tile.Spectrogram,
		margin:      1,
		concurrency: DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.planner == nil {
		o.planner = chunk.NewPlanner()
	}

	l := &Loader{
		opts:    o,
		rec:     rec,
		tiles:   tiles,
		fetcher: fetcher,
		sem:     semaphore.NewWeighted(o.concurrency),
	}
	if err := l.SetParameters(params); err != nil {
		return nil, err
	}
	return l, nil
}

// SetParameters switches to new processing parameters. Every chunk is reset
// to unready; the chunk plan is recomputed only if the effective STFT
// changed. Loads still in flight for the old parameters complete into the
// cache but no longer affect chunk state. Call Update to start loading.
func (l *Loader) SetParameters(params chunk.Parameters) error {
	stft, err := params.Resolve(l.rec.Samplerate)
	if err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	key := planKey{duration: l.rec.Duration, stft: stft}
	if l.chunks == nil || key != l.plan {
		l.plan = key
		l.chunks = l.opts.planner.Plan(l.rec.Duration, stft)
	}
	l.params = params
	l.states = make([]chunk.State, len(l.chunks))
	l.gen++
	l.notified = false
	l.visOK = false

	spectro.Logger().Info("loader: parameters changed",
		"recording", l.rec.ID, "chunks", len(l.chunks), "window_size", stft.WindowSize)
	return nil
}

// Parameters returns the current processing parameters.
func (l *Loader) Parameters() chunk.Parameters {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.params
}

// FreqRange returns the frequency range covered by every tile: 0..Nyquist of
// the effective sample rate.
func (l *Loader) FreqRange() spectro.Interval {
	l.mu.Lock()
	defer l.mu.Unlock()
	return spectro.Interval{Min: 0, Max: l.plan.stft.Nyquist()}
}

// Chunks returns the current chunk plan. The slice must not be modified.
func (l *Loader) Chunks() []chunk.Chunk {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.chunks
}

// States returns a copy of the per-chunk load states, indexed by chunk index.
func (l *Loader) States() []chunk.State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]chunk.State(nil), l.states...)
}

// Visible returns the index range of the chunks overlapping the last window
// passed to Update.
func (l *Loader) Visible() (first, last int, ok bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.visFirst, l.visLast, l.visOK
}

// FullyLoaded reports whether every visible chunk is ready.
func (l *Loader) FullyLoaded() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.fullyLoadedLocked()
}

// Update records window as the current viewport and starts loading every
// chunk in the visible range plus the prefetch margin that has not been
// attempted yet. It does not block on the loads.
//
// Loads are detached from ctx cancellation: a chunk that scrolls out of view
// still finishes loading into the cache.
func (l *Loader) Update(ctx context.Context, window spectro.Window) {
	ctx = context.WithoutCancel(ctx)

	l.mu.Lock()
	l.window = window
	l.hasView = true

	first, last, ok := chunk.Visible(l.chunks, window.Time)
	if ok != l.visOK || first != l.visFirst || last != l.visLast {
		l.notified = false
	}
	l.visFirst, l.visLast, l.visOK = first, last, ok

	type job struct {
		c   chunk.Chunk
		key cache.Key
	}
	var jobs []job
	if ok {
		lo, hi := chunk.Expand(first, last, l.opts.margin, len(l.chunks))
		for i := lo; i <= hi; i++ {
			key := l.keyLocked(l.chunks[i])
			st := &l.states[i]
			if st.IsReady && !l.tiles.Contains(key) {
				// Evicted since it loaded; fetch it again.
				*st = chunk.State{}
			}
			if !st.Idle() {
				continue
			}
			if l.tiles.Contains(key) {
				*st = chunk.State{IsReady: true}
				continue
			}
			*st = chunk.State{IsLoading: true}
			jobs = append(jobs, job{c: l.chunks[i], key: key})
		}
	}
	gen := l.gen
	params := l.params
	notify := l.takeNotificationLocked()
	l.mu.Unlock()

	for _, j := range jobs {
		req := tile.Request{
			RecordingID: l.rec.ID,
			Segment:     j.c.Buffer,
			Params:      params,
			Kind:        l.opts.kind,
		}
		l.wg.Add(1)
		go l.load(ctx, gen, j.c.Index, j.key, req)
	}
	if notify != nil {
		notify()
	}
}

// Wait blocks until every load started so far has finished.
func (l *Loader) Wait() {
	l.wg.Wait()
}

// Snapshot returns the chunks that overlap the current window and have
// been attempted, with their states and any cached image, ordered by index.
func (l *Loader) Snapshot() []chunk.Snapshot {
	l.mu.Lock()
	if !l.hasView || !l.visOK {
		l.mu.Unlock()
		return nil
	}
	type item struct {
		c   chunk.Chunk
		st  chunk.State
		key cache.Key
	}
	items := make([]item, 0, l.visLast-l.visFirst+1)
	for i := l.visFirst; i <= l.visLast; i++ {
		if l.states[i].Idle() {
			continue
		}
		items = append(items, item{c: l.chunks[i], st: l.states[i], key: l.keyLocked(l.chunks[i])})
	}
	l.mu.Unlock()

	out := make([]chunk.Snapshot, len(items))
	for i, it := range items {
		var img image.Image
		if it.st.IsReady {
			img, _ = l.tiles.Get(it.key)
		}
		out[i] = chunk.Snapshot{Chunk: it.c, State: it.st, Image: img}
	}
	return out
}

func (l *Loader) load(ctx context.Context, gen uint64, index int, key cache.Key, req tile.Request) {
	defer l.wg.Done()

	_, err := l.tiles.GetOrLoad(ctx, key, func(ctx context.Context) (image.Image, error) {
		if err := l.sem.Acquire(ctx, 1); err != nil {
			return nil, err
		}
		defer l.sem.Release(1)
		return l.fetcher.Fetch(ctx, req)
	})

	l.mu.Lock()
	if gen != l.gen {
		l.mu.Unlock()
		return
	}
	if err != nil {
		spectro.Logger().Warn("loader: chunk failed",
			"recording", l.rec.ID, "chunk", index, "segment", req.Segment.String(), "err", err)
		l.states[index] = chunk.State{IsError: true}
	} else {
		l.states[index] = chunk.State{IsReady: true}
	}
	notify := l.takeNotificationLocked()
	l.mu.Unlock()

	if notify != nil {
		notify()
	}
}

// keyLocked returns the cache key of c's buffered tile.
// Caller must hold l.mu.
func (l *Loader) keyLocked(c chunk.Chunk) cache.Key {
	w := spectro.Window{
		Time: c.Buffer,
		Freq: spectro.Interval{Min: 0, Max: l.plan.stft.Nyquist()},
	}
	k := cache.NewKey(l.rec.ID, w, l.params)
	k.Params = l.opts.kind.String() + "|" + k.Params
	return k
}

// Caller must hold l.mu.
func (l *Loader) fullyLoadedLocked() bool {
	if !l.visOK {
		return false
	}
	for i := l.visFirst; i <= l.visLast; i++ {
		if !l.states[i].IsReady {
			return false
		}
	}
	return true
}

// takeNotificationLocked returns the fully-loaded callback if it is due,
// marking it delivered for the current visible range.
// Caller must hold l.mu.
func (l *Loader) takeNotificationLocked() func() {
	if l.notified || l.opts.onFullyLoaded == nil || !l.fullyLoadedLocked() {
		return nil
	}
	l.notified = true
	return l.opts.onFullyLoaded
}
