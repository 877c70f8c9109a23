// Package blackhole simulates satellites orbiting a fixed attractor and
// colors the surrounding space by weighted satellite proximity.
//
// Each frame moves every satellite with many forward-Euler sub-steps, then
// shades every pixel of a framebuffer. Both stages run on a parallel engine.
// A sequential oracle recomputes the leading frames from a snapshot taken
// before the move, and a verifier compares the two results.
//
// # Architecture Overview
//
//   - core: Satellites, colors, frames, run constants, seeded generation and
//     the binary snapshot codec
//   - kernels: Per-satellite physics and per-pixel shading shared by both paths
//   - runtime: Executors (worker pool, go-parallel, sequential) and the Engine
//   - oracle: Sequential reference integrator and colorizer
//   - verify: Bitwise satellite and tolerance-bound pixel comparison
//   - sim: Per-frame driver, timing and observers
//   - store: SQLite run recorder
//   - snapshot: PNG frames and satellite state on a billy filesystem
//   - cmd: Command-line tools (blackhole, bhperf)
//
// # Basic Usage
//
//	opts := sim.DefaultOptions()
//	s, err := sim.New(opts, core.Generate(opts.Params, seed))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer s.Close()
//
//	if err := s.Run(10); err != nil {
//	    log.Fatal(err)
//	}
//
// Every frame logs
//
//	Total frametime: 412ms, satellite moving: 380ms, space coloring: 31ms.
//
// and every verified frame logs either "Error check passed!" or the first
// violation found.
package blackhole
