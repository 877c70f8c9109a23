// Package oracle is the sequential reference for the parallel engine.
//
// It runs the same kernels as runtime.Engine on a single goroutine. The
// integrator keeps explicit float64 temporaries for the whole satellite set
// and walks sub-steps in the outer loop, satellites in the inner loop. Each
// satellite still sees its own sub-steps in order, so the result is
// bit-identical to the parallel path, which runs all sub-steps of one
// satellite before moving on.
//
// The oracle must be handed its own copy of the satellites. It never touches
// memory owned by the parallel path.
package oracle

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/sbl8/blackhole/core"
	"github.com/sbl8/blackhole/kernels"
)

// Integrate advances sats by one frame in place.
func Integrate(sats []core.Satellite, p core.Params) error {
	if err := p.Validate(); err != nil {
		return err
	}

	pos := make([]r2.Vec, len(sats))
	vel := make([]r2.Vec, len(sats))
	for i := range sats {
		pos[i] = sats[i].Position.R2()
		vel[i] = sats[i].Velocity.R2()
	}

	center := p.Center()
	dt := p.Step()
	for k := 0; k < p.SubSteps; k++ {
		for i := range sats {
			pos[i], vel[i] = kernels.Substep(pos[i], vel[i], center, p.Gravity, dt, p.MinDistance)
		}
	}

	// narrow once
	for i := range sats {
		sats[i].Position = core.FromR2(pos[i])
		sats[i].Velocity = core.FromR2(vel[i])
	}
	return nil
}

// Colorize writes every pixel of f in index order.
func Colorize(sats []core.Satellite, f *core.Frame, p core.Params) error {
	if err := f.Validate(); err != nil {
		return err
	}
	if !f.Fits(p) {
		return fmt.Errorf("%w: frame is %dx%d, grid is %dx%d", core.ErrInvalidParams, f.Width, f.Height, p.Width, p.Height)
	}
	for i := range f.Pixels {
		f.Pixels[i] = kernels.Shade(i, f.Width, sats, p.Radius)
	}
	return nil
}
