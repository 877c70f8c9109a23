package core

import (
	"math"

	"golang.org/x/exp/rand"
)

// Orbit generation ranges.
const (
	minMargin     = 50
	maxMargin     = 320
	orbitSpeed    = 0.06
	orbitSpeedJit = 0.01
)

// Generate creates p.SatelliteCount satellites from seed. The same seed and
// params always produce bit-identical satellites.
//
// Each satellite gets a reddish identifier and a position pulled 50..320 units
// from the grid center, mirrored into all four quadrants by index. Velocity is
// tangential to the center-ward vector, with every even index orbiting in the
// opposite direction.
func Generate(p Params, seed uint64) []Satellite {
	rnd := rand.New(rand.NewSource(seed))
	uniform := func(min, max float32) float32 {
		return rnd.Float32()*(max-min) + min
	}

	cx := float32(p.Width / 2)
	cy := float32(p.Height / 2)
	center := Vec2{X: cx, Y: cy}

	sats := make([]Satellite, p.SatelliteCount)
	for i := range sats {
		id := Color{
			R: uniform(0, 0.15) + 0.1,
			G: uniform(0, 0.14),
			B: uniform(0, 0.16),
		}

		pos := Vec2{
			X: cx - uniform(minMargin, maxMargin),
			Y: cy - uniform(minMargin, maxMargin),
		}
		if (i/2)%2 != 0 {
			pos.X = float32(p.Width) - pos.X
		}
		if i >= p.SatelliteCount/2 {
			pos.Y = float32(p.Height) - pos.Y
		}

		toCenter := pos.Sub(center)
		speed := (orbitSpeed + float64(uniform(-orbitSpeedJit, orbitSpeedJit))) /
			math.Sqrt(float64(toCenter.Len2()))
		vel := Vec2{
			X: float32(speed * float64(-toCenter.Y)),
			Y: float32(speed * float64(toCenter.X)),
		}
		if i%2 == 0 {
			vel.X, vel.Y = -vel.X, -vel.Y
		}

		sats[i] = Satellite{Identifier: id, Position: pos, Velocity: vel}
	}
	return sats
}
