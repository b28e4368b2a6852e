package parallel

import (
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
)

func TestNewDefaultsToGOMAXPROCS(t *testing.T) {
	for _, n := range []int{0, -3} {
		p := New(n)
		if got, want := p.Workers(), runtime.GOMAXPROCS(0); got != want {
			t.Errorf("New(%d).Workers() = %d, want %d", n, got, want)
		}
		p.Close()
	}
}

func TestRangeCoversEveryIndexOnce(t *testing.T) {
	p := New(4)
	defer p.Close()

	tests := []struct{ n, batch int }{
		{100, 7},
		{5, 10},
		{64, 1},
		{1, 0},
	}
	for _, tt := range tests {
		hits := make([]atomic.Int32, tt.n)
		p.Range(tt.n, tt.batch, func(_, lo, hi int) {
			for i := lo; i < hi; i++ {
				hits[i].Add(1)
			}
		})
		for i := range hits {
			if got := hits[i].Load(); got != 1 {
				t.Errorf("Range(%d, %d): index %d hit %d times", tt.n, tt.batch, i, got)
			}
		}
	}
}

func TestRangeWorkerIndex(t *testing.T) {
	p := New(3)
	defer p.Close()

	var mu sync.Mutex
	seen := map[int]bool{}
	p.Range(300, 1, func(w, _, _ int) {
		if w < 0 || w >= 3 {
			t.Errorf("worker index %d out of range", w)
		}
		mu.Lock()
		seen[w] = true
		mu.Unlock()
	})
	if len(seen) == 0 {
		t.Errorf("no worker ran")
	}
}

func TestRangeConcurrentCallers(t *testing.T) {
	p := New(2)
	defer p.Close()

	var total atomic.Int64
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.Range(50, 3, func(_, lo, hi int) { total.Add(int64(hi - lo)) })
		}()
	}
	wg.Wait()
	if got := total.Load(); got != 400 {
		t.Errorf("total = %d, want 400", got)
	}
}

func TestRangeAfterClose(t *testing.T) {
	p := New(2)
	p.Close()
	p.Close()

	var got int
	p.Range(10, 3, func(w, lo, hi int) {
		if w != 0 {
			t.Errorf("worker = %d after Close, want 0", w)
		}
		got += hi - lo
	})
	if got != 10 {
		t.Errorf("covered %d indices after Close, want 10", got)
	}
}

func TestRangeEmpty(t *testing.T) {
	p := New(1)
	defer p.Close()
	p.Range(0, 4, func(int, int, int) { t.Errorf("fn called for empty range") })
}
