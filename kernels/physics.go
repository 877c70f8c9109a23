// Package kernels holds the per-item math shared by the parallel engine and
// the sequential oracle.
//
// Every function here is pure: it reads its arguments and writes only the
// value it returns or the single output slot it is handed. That lets any
// executor fan the work out without locks, and lets the oracle reuse the
// exact same arithmetic so the two paths cannot drift apart.
//
// Two kernels exist:
//   - Physics: Substep and Advance run forward-Euler integration of one
//     satellite around the attractor in float64, narrowing to float32 once
//     per frame.
//   - Shading: Shade and ShadeRow compute pixel colors in float32 with the
//     two-pass hit / weighted-blend algorithm.
package kernels

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/sbl8/blackhole/core"
)

// Substep performs one forward-Euler increment of a satellite orbiting
// center under an inverse-square pull of strength g.
//
// The velocity is updated first and the position then moves by the new
// velocity. A positive minDist caps the pull at its strength at that
// distance, and a satellite exactly on the center feels no pull. With zero
// the law is unguarded and a satellite on the center yields NaN.
//
// Substep is kept out of line so every caller executes the same
// instruction sequence and produces bit-identical results.
//
//go:noinline
func Substep(pos, vel, center r2.Vec, g, dt, minDist float64) (r2.Vec, r2.Vec) {
	toCenter := r2.Sub(pos, center)
	dist2 := r2.Norm2(toCenter)
	dist := math.Sqrt(dist2)
	dir := r2.Vec{X: toCenter.X / dist, Y: toCenter.Y / dist}
	if minDist > 0 && dist < minDist {
		if dist == 0 {
			dir = r2.Vec{}
		}
		dist2 = minDist * minDist
	}
	accel := g / dist2

	vel = r2.Sub(vel, r2.Scale(accel*dt, dir))
	pos = r2.Add(pos, r2.Scale(dt, vel))
	return pos, vel
}

// Advance integrates one satellite through a whole frame: p.SubSteps
// increments of p.Step() each, accumulated in float64 and stored back as
// float32 once.
func Advance(s *core.Satellite, center r2.Vec, p core.Params) {
	pos, vel := s.Position.R2(), s.Velocity.R2()
	dt := p.Step()
	for k := 0; k < p.SubSteps; k++ {
		pos, vel = Substep(pos, vel, center, p.Gravity, dt, p.MinDistance)
	}
	s.Position = core.FromR2(pos)
	s.Velocity = core.FromR2(vel)
}
