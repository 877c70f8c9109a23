// Package core provides the state primitives shared by every stage of the
// blackhole pipeline.
//
// The package owns the data that flows between the physics integrator, the
// pixel colorizer, the reference oracle and the verifier:
//   - Satellite: identifier color, position and velocity, stored in float32
//   - Frame: a row-major framebuffer of float32 RGB colors
//   - Params: the run constants (grid size, radius, gravity, sub-steps)
//   - Vec2: float32 vector math, bridged to gonum's float64 r2.Vec
//
// Satellites are stored in single precision at rest. Any accumulation over many
// increments happens in float64 inside the kernels and is narrowed back to
// float32 exactly once per frame.
//
// Nothing in this package keeps process-wide state; callers own their slices and
// frames and pass them explicitly.
package core

import (
	"errors"
	"fmt"
	"math"

	"go.uber.org/multierr"
)

// ErrSingularity reports a satellite whose state became non-finite, which
// happens when a satellite reaches the attractor exactly.
var ErrSingularity = errors.New("satellite state is not finite")

// Color is a linear RGB triple. Channels are nominally in [0,1] but are never
// clamped by the pipeline.
type Color struct {
	R, G, B float32
}

// White is the color of a pixel that hits a satellite.
var White = Color{R: 1, G: 1, B: 1}

// Satellite is a point mass orbiting the attractor.
type Satellite struct {
	Identifier Color
	Position   Vec2
	Velocity   Vec2
}

// Finite reports whether the position and velocity are all finite numbers.
func (s *Satellite) Finite() bool {
	for _, v := range [...]float32{s.Position.X, s.Position.Y, s.Velocity.X, s.Velocity.Y} {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return true
}

// CloneSatellites returns an exclusive copy of src. The copy is the backup
// snapshot handed to the oracle on verification frames.
func CloneSatellites(src []Satellite) []Satellite {
	if src == nil {
		return nil
	}
	dst := make([]Satellite, len(src))
	copy(dst, src)
	return dst
}

// CheckFinite returns one ErrSingularity per satellite whose state is no longer
// finite, combined into a single error.
func CheckFinite(sats []Satellite) error {
	var err error
	for i := range sats {
		if !sats[i].Finite() {
			err = multierr.Append(err, fmt.Errorf("satellite %d: %w", i, ErrSingularity))
		}
	}
	return err
}
