// Package sim drives the pipeline one frame at a time.
//
// A Simulation is the context object for a run. It owns the satellites, the
// framebuffer, the frame counter and the engine, and hands them explicitly
// to the integrator, the colorizer, the oracle and the verifier.
//
// On the first VerifyFrames frames the satellites are copied before the
// parallel integrator starts. The oracle integrates that copy on its own
// goroutine while the engine works on the live slice, then colorizes into a
// private frame. The verifier compares the two. Divergence is logged and
// returned in the FrameResult; it never stops the run.
package sim

import (
	"errors"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"go.uber.org/multierr"

	"github.com/sbl8/blackhole/core"
	"github.com/sbl8/blackhole/oracle"
	"github.com/sbl8/blackhole/runtime"
	"github.com/sbl8/blackhole/verify"
)

// DefaultVerifyFrames is how many leading frames are checked against the oracle.
const DefaultVerifyFrames = 2

// Observer is notified after every frame. sats and frame are only valid for
// the duration of the call.
type Observer interface {
	ObserveFrame(res *FrameResult, sats []core.Satellite, frame *core.Frame) error
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(res *FrameResult, sats []core.Satellite, frame *core.Frame) error

func (f ObserverFunc) ObserveFrame(res *FrameResult, sats []core.Satellite, frame *core.Frame) error {
	return f(res, sats, frame)
}

// Options configures a Simulation.
type Options struct {
	Params       core.Params
	Engine       runtime.EngineOptions
	Tolerance    float32
	VerifyFrames int
	Logger       *log.Logger
	Observers    []Observer

	TimingWindow int // frames kept in the timing rings
	ReportEvery  int // log rolling averages every n frames, 0 disables
}

// DefaultOptions returns the reference run configuration.
func DefaultOptions() Options {
	return Options{
		Params:       core.DefaultParams(),
		Engine:       runtime.DefaultEngineOptions(),
		Tolerance:    verify.DefaultTolerance,
		VerifyFrames: DefaultVerifyFrames,
		Logger:       log.New(os.Stderr, "", log.LstdFlags),
		TimingWindow: 60,
	}
}

// FrameResult describes one completed frame.
type FrameResult struct {
	Frame    uint64
	Verified bool
	Report   verify.Report // empty unless Verified
	Singular error         // non-finite satellites, see core.CheckFinite

	Total    time.Duration
	Moving   time.Duration
	Coloring time.Duration
}

// TimingLine formats the per-frame timing report.
func (r *FrameResult) TimingLine() string {
	return fmt.Sprintf("Total frametime: %dms, satellite moving: %dms, space coloring: %dms.",
		r.Total.Milliseconds(), r.Moving.Milliseconds(), r.Coloring.Milliseconds())
}

// OK reports whether the frame verified cleanly (or was not verified) and
// every satellite is finite.
func (r *FrameResult) OK() bool {
	return r.Singular == nil && r.Report.OK()
}

// Simulation is the state of one run.
type Simulation struct {
	params    core.Params
	opts      Options
	engine    *runtime.Engine
	verifier  *verify.Verifier
	refFrames *runtime.FramePool
	log       *log.Logger

	sats    []core.Satellite
	frame   *core.Frame
	frameNo uint64

	Frametime Durations
	Moving    Durations
	Coloring  Durations
}

// New creates a simulation that owns sats.
func New(opts Options, sats []core.Satellite) (*Simulation, error) {
	p := opts.Params
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if len(sats) != p.SatelliteCount {
		return nil, fmt.Errorf("%w: got %d satellites, params want %d", core.ErrInvalidParams, len(sats), p.SatelliteCount)
	}
	if opts.VerifyFrames < 0 {
		return nil, fmt.Errorf("verify frames must not be negative, got %d", opts.VerifyFrames)
	}
	verifier, err := verify.New(opts.Tolerance)
	if err != nil {
		return nil, err
	}

	engine, err := runtime.NewEngine(&opts.Engine)
	if err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	s := &Simulation{
		params:    p,
		opts:      opts,
		engine:    engine,
		verifier:  verifier,
		refFrames: runtime.NewFramePool(1, p.Width, p.Height),
		log:       logger,
		sats:      sats,
		frame:     core.NewFrame(p.Width, p.Height),
	}

	window := opts.TimingWindow
	s.Frametime.Init(window, opts.ReportEvery, func(db *Durations, n int) {
		s.log.Printf("frames %d: average frametime %v, satellite moving %v, space coloring %v",
			n, db.Average(), s.Moving.Average(), s.Coloring.Average())
	})
	s.Moving.Init(window, 0, nil)
	s.Coloring.Init(window, 0, nil)
	return s, nil
}

// Step runs one frame. The returned error is non-nil when the engine rejects
// its input or an observer fails; verification failures and singular
// satellites are reported in the FrameResult instead. The frame counter
// advances whenever a result is returned.
func (s *Simulation) Step() (*FrameResult, error) {
	res := &FrameResult{Frame: s.frameNo}
	verifying := s.frameNo < uint64(s.opts.VerifyFrames)
	start := time.Now()

	var (
		backup    []core.Satellite
		oracleErr error
		wg        sync.WaitGroup
	)
	if verifying {
		backup = core.CloneSatellites(s.sats)
		wg.Add(1)
		go func() {
			defer wg.Done()
			oracleErr = oracle.Integrate(backup, s.params)
		}()
	}

	moveStart := time.Now()
	err := s.engine.Integrate(s.sats, s.params)
	res.Moving = time.Since(moveStart)
	if err != nil {
		wg.Wait()
		return nil, fmt.Errorf("frame %d: integrate: %w", s.frameNo, err)
	}

	colorStart := time.Now()
	if err := s.engine.Colorize(s.sats, s.frame, s.params); err != nil {
		wg.Wait()
		return nil, fmt.Errorf("frame %d: colorize: %w", s.frameNo, err)
	}
	res.Coloring = time.Since(colorStart)

	if res.Singular = core.CheckFinite(s.sats); res.Singular != nil {
		s.log.Printf("frame %d: %v", s.frameNo, res.Singular)
	}

	if verifying {
		wg.Wait()
		if oracleErr != nil {
			return nil, fmt.Errorf("frame %d: reference integrate: %w", s.frameNo, oracleErr)
		}
		if err := s.check(res, backup); err != nil {
			return nil, err
		}
	}

	res.Total = time.Since(start)
	s.Moving.Collect(res.Moving)
	s.Coloring.Collect(res.Coloring)
	s.Frametime.Collect(res.Total)
	s.log.Print(res.TimingLine())

	s.frameNo++
	return res, s.notify(res)
}

// check colorizes the oracle's satellites into a private frame and compares.
func (s *Simulation) check(res *FrameResult, ref []core.Satellite) error {
	refFrame := s.refFrames.Get()
	defer s.refFrames.Put(refFrame)

	if err := oracle.Colorize(ref, refFrame, s.params); err != nil {
		return fmt.Errorf("frame %d: reference colorize: %w", s.frameNo, err)
	}

	res.Verified = true
	res.Report = s.verifier.Verify(s.sats, ref, s.frame, refFrame)
	for _, v := range res.Report.Violations {
		s.log.Print(v)
	}
	if res.Report.OK() {
		s.log.Print(res.Report.String())
	}
	return nil
}

func (s *Simulation) notify(res *FrameResult) error {
	var err error
	for _, o := range s.opts.Observers {
		err = multierr.Append(err, o.ObserveFrame(res, s.sats, s.frame))
	}
	return err
}

// ErrEngine marks a Run that stopped because a frame could not be computed.
var ErrEngine = errors.New("frame could not be computed")

// Run steps frames times. Observer failures are collected and the run goes
// on; an engine failure stops it.
func (s *Simulation) Run(frames int) error {
	var errs error
	for i := 0; i < frames; i++ {
		res, err := s.Step()
		if res == nil {
			return multierr.Append(errs, fmt.Errorf("%w: %w", ErrEngine, err))
		}
		errs = multierr.Append(errs, err)
	}
	return errs
}

// Satellites returns the live satellite slice. It must not be modified
// while a Step is running.
func (s *Simulation) Satellites() []core.Satellite {
	return s.sats
}

// Frame returns the framebuffer of the last completed frame.
func (s *Simulation) Frame() *core.Frame {
	return s.frame
}

// FrameNumber returns the index of the next frame to run.
func (s *Simulation) FrameNumber() uint64 {
	return s.frameNo
}

// Params returns the run constants.
func (s *Simulation) Params() core.Params {
	return s.params
}

// Stats exposes the engine counters.
func (s *Simulation) Stats() runtime.ExecutionStats {
	return s.engine.Stats()
}

// Close releases the engine.
func (s *Simulation) Close() error {
	return s.engine.Close()
}
