// Package parallel runs batches of independent index ranges on a fixed set
// of goroutines.
package parallel

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// task is a half-open index range [lo, hi).
type task struct {
	lo, hi int
	fn     func(worker, lo, hi int)
	done   *sync.WaitGroup
}

// Pool distributes index ranges across workers. Each worker pulls from its
// own queue first and steals from the others when it runs dry, which keeps
// uneven ranges balanced.
//
// Work functions receive the worker index so they can keep per-worker
// scratch state without locking.
//
// Pool is safe for concurrent use.
type Pool struct {
	workers int
	queues  []chan task
	done    chan struct{}
	wg      sync.WaitGroup
	running atomic.Bool
}

// New starts a pool. Non-positive workers means GOMAXPROCS.
func New(workers int) *Pool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	size := max(workers*4, 8)

	p := &Pool{
		workers: workers,
		queues:  make([]chan task, workers),
		done:    make(chan struct{}),
	}
	for i := range workers {
		p.queues[i] = make(chan task, size)
	}
	p.running.Store(true)

	p.wg.Add(workers)
	for i := range workers {
		go p.worker(i)
	}
	return p
}

// Workers returns the number of workers.
func (p *Pool) Workers() int { return p.workers }

func (p *Pool) worker(id int) {
	defer p.wg.Done()
	own := p.queues[id]
	for {
		select {
		case <-p.done:
			p.drain(id, own)
			return
		case t := <-own:
			t.run(id)
		default:
			if t, ok := p.steal(id); ok {
				t.run(id)
				continue
			}
			select {
			case <-p.done:
				p.drain(id, own)
				return
			case t := <-own:
				t.run(id)
			}
		}
	}
}

func (t task) run(worker int) {
	defer t.done.Done()
	t.fn(worker, t.lo, t.hi)
}

func (p *Pool) drain(id int, q chan task) {
	for {
		select {
		case t := <-q:
			t.run(id)
		default:
			return
		}
	}
}

func (p *Pool) steal(id int) (task, bool) {
	for i := range p.workers {
		if i == id {
			continue
		}
		select {
		case t := <-p.queues[i]:
			return t, true
		default:
		}
	}
	return task{}, false
}

// Range splits [0, n) into ranges of at most batch indices, runs fn on each
// and waits for all of them. fn must not call Range on the same pool, and
// Range must not race with Close.
// After Close, Range runs fn on the caller's goroutine as worker 0.
func (p *Pool) Range(n, batch int, fn func(worker, lo, hi int)) {
	if n <= 0 {
		return
	}
	batch = max(batch, 1)
	if !p.running.Load() {
		fn(0, 0, n)
		return
	}

	var wg sync.WaitGroup
	for i, lo := 0, 0; lo < n; i, lo = i+1, lo+batch {
		t := task{lo: lo, hi: min(lo+batch, n), fn: fn, done: &wg}
		wg.Add(1)
		select {
		case p.queues[i%p.workers] <- t:
		case <-p.done:
			wg.Done()
			fn(0, t.lo, t.hi)
		}
	}
	wg.Wait()
}

// Close stops the workers after the queued ranges finish. It is safe to
// call more than once.
func (p *Pool) Close() {
	if !p.running.CompareAndSwap(true, false) {
		return
	}
	close(p.done)
	p.wg.Wait()
}
