package runtime

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/dgravesa/go-parallel/parallel"
)

// Backend names a parallel-for implementation.
type Backend string

// Available backends
const (
	BackendPool       Backend = "pool"
	BackendGoParallel Backend = "goparallel"
	BackendSequential Backend = "sequential"
)

// ErrUnknownBackend is returned for backend names not in Backends.
var ErrUnknownBackend = errors.New("unknown backend")

// Backends lists every backend NewExecutor understands.
func Backends() []Backend {
	return []Backend{BackendPool, BackendGoParallel, BackendSequential}
}

// ParseBackend resolves a backend name, case-insensitively.
func ParseBackend(name string) (Backend, error) {
	b := Backend(strings.ToLower(strings.TrimSpace(name)))
	for _, known := range Backends() {
		if b == known {
			return b, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownBackend, name)
}

// Executor runs independent work items in parallel.
//
// For calls body exactly once for every i in [0, n) and returns only after
// all calls have finished. Bodies must not depend on one another or on the
// order they run in.
type Executor interface {
	For(n int, body func(i int))
	Workers() int
	Close() error
}

// NewExecutor creates the executor for backend with the given worker count.
// A non-positive workers value is rejected except for the sequential backend.
func NewExecutor(b Backend, workers int) (Executor, error) {
	if b == BackendSequential {
		return Sequential{}, nil
	}
	if workers <= 0 {
		return nil, fmt.Errorf("backend %s needs at least one worker, got %d", b, workers)
	}
	switch b {
	case BackendPool:
		return NewPool(workers), nil
	case BackendGoParallel:
		return GoParallel{workers: workers}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, string(b))
	}
}

// Sequential runs every item on the calling goroutine, in index order.
type Sequential struct{}

func (Sequential) For(n int, body func(i int)) {
	for i := 0; i < n; i++ {
		body(i)
	}
}

func (Sequential) Workers() int { return 1 }
func (Sequential) Close() error { return nil }

// GoParallel delegates to go-parallel's bounded goroutine loop.
type GoParallel struct {
	workers int
}

func (g GoParallel) For(n int, body func(i int)) {
	if n <= 0 {
		return
	}
	parallel.WithNumGoroutines(g.workers).For(n, func(i, _ int) {
		body(i)
	})
}

func (g GoParallel) Workers() int { return g.workers }
func (g GoParallel) Close() error { return nil }

// task is a contiguous index range handed to one pool worker.
type task struct {
	lo, hi int
	body   func(i int)
	done   *sync.WaitGroup
}

// Pool keeps a fixed set of worker goroutines alive across calls and feeds
// them index ranges over a channel.
type Pool struct {
	workers int
	tasks   chan task
	wg      sync.WaitGroup
	once    sync.Once
}

// NewPool starts workers goroutines. Callers must Close the pool.
func NewPool(workers int) *Pool {
	if workers < 1 {
		workers = 1
	}
	p := &Pool{
		workers: workers,
		tasks:   make(chan task, workers),
	}
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	return p
}

// worker drains ranges until the pool closes
func (p *Pool) worker() {
	defer p.wg.Done()
	for t := range p.tasks {
		for i := t.lo; i < t.hi; i++ {
			t.body(i)
		}
		t.done.Done()
	}
}

// For splits [0, n) into about four ranges per worker and blocks until
// every range has run. It must not be called after Close, and bodies must
// not call For on the same pool.
func (p *Pool) For(n int, body func(i int)) {
	if n <= 0 {
		return
	}
	chunks := p.workers * 4
	size := (n + chunks - 1) / chunks
	if size < 1 {
		size = 1
	}

	var done sync.WaitGroup
	for lo := 0; lo < n; lo += size {
		hi := lo + size
		if hi > n {
			hi = n
		}
		done.Add(1)
		p.tasks <- task{lo: lo, hi: hi, body: body, done: &done}
	}
	done.Wait()
}

func (p *Pool) Workers() int { return p.workers }

// Close stops the workers and waits for them to exit. It is safe to call
// more than once.
func (p *Pool) Close() error {
	p.once.Do(func() {
		close(p.tasks)
		p.wg.Wait()
	})
	return nil
}
