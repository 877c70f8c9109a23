// Package runtime implements the parallel path of the blackhole pipeline.
//
// An Engine owns an Executor and runs the two data-parallel regions of a
// frame on it:
//   - Integrate: one work item per satellite, each running every sub-step of
//     the frame for that satellite
//   - Colorize: one work item per framebuffer row
//
// Each region ends in a barrier, so when Integrate returns every satellite
// has been advanced and when Colorize returns every pixel has been written.
// Work items write only their own slot and read the satellite slice, so no
// locking is needed inside a region.
//
// Executors are interchangeable. A persistent goroutine pool, go-parallel's
// bounded loop and a plain sequential loop all produce identical results,
// because every item runs the same kernels code on its own data.
package runtime

import (
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/sbl8/blackhole/core"
	"github.com/sbl8/blackhole/kernels"
)

// EngineOptions configures engine behavior
type EngineOptions struct {
	Workers     int
	Backend     Backend
	EnableStats bool
}

// DefaultEngineOptions uses one pool worker per CPU.
func DefaultEngineOptions() EngineOptions {
	return EngineOptions{
		Workers:     runtime.NumCPU(),
		Backend:     BackendPool,
		EnableStats: false,
	}
}

// ExecutionStats tracks runtime performance metrics
type ExecutionStats struct {
	Integrations     int64
	Colorizations    int64
	IntegrateLatency time.Duration // running average
	ColorizeLatency  time.Duration // running average
	SatellitesMoved  int64
	PixelsShaded     int64
}

// Engine runs the integrator and the colorizer on an Executor.
type Engine struct {
	exec  Executor
	opts  EngineOptions
	stats ExecutionStats
	mu    sync.RWMutex
}

// NewEngine creates an engine with its own executor. A nil opts uses
// DefaultEngineOptions; zero fields fall back to their defaults.
func NewEngine(opts *EngineOptions) (*Engine, error) {
	o := DefaultEngineOptions()
	if opts != nil {
		if opts.Workers > 0 {
			o.Workers = opts.Workers
		}
		if opts.Backend != "" {
			o.Backend = opts.Backend
		}
		o.EnableStats = opts.EnableStats
	}

	exec, err := NewExecutor(o.Backend, o.Workers)
	if err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}
	o.Workers = exec.Workers()
	return &Engine{exec: exec, opts: o}, nil
}

// NewEngineWith wraps an existing executor. The engine takes ownership and
// closes it on Close.
func NewEngineWith(exec Executor, enableStats bool) *Engine {
	return &Engine{
		exec: exec,
		opts: EngineOptions{Workers: exec.Workers(), EnableStats: enableStats},
	}
}

// Options returns the resolved options.
func (e *Engine) Options() EngineOptions {
	return e.opts
}

// Integrate advances every satellite by one frame in place. Satellites are
// distributed across workers; sub-steps of one satellite always run in order
// on a single worker.
func (e *Engine) Integrate(sats []core.Satellite, p core.Params) error {
	if err := p.Validate(); err != nil {
		return err
	}
	start := time.Now()

	center := p.Center()
	e.exec.For(len(sats), func(i int) {
		kernels.Advance(&sats[i], center, p)
	})

	e.record(start, &e.stats.Integrations, &e.stats.IntegrateLatency, &e.stats.SatellitesMoved, int64(len(sats)))
	return nil
}

// Colorize writes every pixel of f from the current satellite positions.
// Rows are distributed across workers.
func (e *Engine) Colorize(sats []core.Satellite, f *core.Frame, p core.Params) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if err := f.Validate(); err != nil {
		return err
	}
	if !f.Fits(p) {
		return fmt.Errorf("frame is %dx%d, params want %dx%d", f.Width, f.Height, p.Width, p.Height)
	}
	start := time.Now()

	e.exec.For(f.Height, func(y int) {
		kernels.ShadeRow(y, f, sats, p.Radius)
	})

	e.record(start, &e.stats.Colorizations, &e.stats.ColorizeLatency, &e.stats.PixelsShaded, int64(f.Len()))
	return nil
}

// record updates one counter and its running average latency.
func (e *Engine) record(start time.Time, count *int64, avg *time.Duration, items *int64, n int64) {
	if !e.opts.EnableStats {
		return
	}
	duration := time.Since(start)

	e.mu.Lock()
	defer e.mu.Unlock()

	*count++
	*items += n
	if *count == 1 {
		*avg = duration
	} else {
		*avg = time.Duration((int64(*avg)*(*count-1) + int64(duration)) / *count)
	}
}

// Stats returns current execution statistics
func (e *Engine) Stats() ExecutionStats {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.stats
}

// Workers returns the executor's worker count.
func (e *Engine) Workers() int {
	return e.exec.Workers()
}

// Close releases the executor.
func (e *Engine) Close() error {
	return e.exec.Close()
}
