package kernels

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/sbl8/blackhole/core"
)

func testParams(subSteps int) core.Params {
	p := core.DefaultParams()
	p.SubSteps = subSteps
	return p
}

// integrate runs steps sub-steps over total time t without narrowing.
func integrate(pos, vel, center r2.Vec, t float64, steps int) (r2.Vec, r2.Vec) {
	dt := t / float64(steps)
	for k := 0; k < steps; k++ {
		pos, vel = Substep(pos, vel, center, 1, dt, 0)
	}
	return pos, vel
}

func TestSubstepPullsTowardCenter(t *testing.T) {
	t.Parallel()
	center := r2.Vec{X: 512, Y: 512}
	pos := r2.Vec{X: 612, Y: 512}
	var vel r2.Vec

	prev := r2.Norm(r2.Sub(pos, center))
	for k := 0; k < 1000; k++ {
		pos, vel = Substep(pos, vel, center, 1, 0.01, 0)
		d := r2.Norm(r2.Sub(pos, center))
		require.Less(t, d, prev, "step %d moved away from center", k)
		prev = d
	}
	assert.Less(t, vel.X, 0.0)
	assert.Equal(t, 0.0, vel.Y)
}

func TestAdvanceZeroVelocity(t *testing.T) {
	t.Parallel()
	p := testParams(10000)
	sat := core.Satellite{Position: core.Vec2{X: 612, Y: 512}}

	Advance(&sat, p.Center(), p)

	assert.Less(t, sat.Position.X, float32(612), "position should move toward the center")
	assert.Greater(t, sat.Position.X, float32(512))
	assert.Equal(t, float32(512), sat.Position.Y)
	assert.Less(t, sat.Velocity.X, float32(0), "velocity should point at the center")
	assert.Equal(t, float32(0), sat.Velocity.Y)

	// v = -g/r² * t for a short fall
	assert.InDelta(t, -32.0/10000.0, float64(sat.Velocity.X), 1e-5)
}

func TestAdvanceOnAttractor(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name       string
		minDist    float64
		wantFinite bool
	}{
		{name: "unguarded law is singular", minDist: 0, wantFinite: false},
		{name: "floor keeps state finite", minDist: 1, wantFinite: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := testParams(100)
			p.MinDistance = tt.minDist
			sats := []core.Satellite{{Position: core.Vec2{X: 512, Y: 512}}}

			Advance(&sats[0], p.Center(), p)

			err := core.CheckFinite(sats)
			if tt.wantFinite {
				require.NoError(t, err)
				assert.Equal(t, core.Vec2{X: 512, Y: 512}, sats[0].Position)
			} else {
				assert.ErrorIs(t, err, core.ErrSingularity)
				assert.True(t, math.IsNaN(float64(sats[0].Position.X)))
			}
		})
	}
}

func TestMinDistanceFloor(t *testing.T) {
	t.Parallel()
	center := r2.Vec{}
	pos := r2.Vec{X: 0.5}

	_, free := Substep(pos, r2.Vec{}, center, 1, 1, 0)
	_, floored := Substep(pos, r2.Vec{}, center, 1, 1, 2)

	assert.InDelta(t, -4.0, free.X, 1e-12)
	assert.InDelta(t, -0.25, floored.X, 1e-12)

	// beyond the floor the law is untouched
	_, far := Substep(r2.Vec{X: 4}, r2.Vec{}, center, 1, 1, 2)
	assert.InDelta(t, -1.0/16, far.X, 1e-12)
}

func TestEulerConsistency(t *testing.T) {
	t.Parallel()
	center := r2.Vec{X: 512, Y: 512}
	pos := r2.Vec{X: 562, Y: 512}
	vel := r2.Vec{Y: math.Sqrt(1.0 / 50)}
	const total = 320.0

	fine, _ := integrate(pos, vel, center, total, 100000)
	coarse, _ := integrate(pos, vel, center, total, 1000)
	mid, _ := integrate(pos, vel, center, total, 10000)

	errCoarse := r2.Norm(r2.Sub(coarse, fine))
	errMid := r2.Norm(r2.Sub(mid, fine))

	require.Greater(t, errCoarse, 0.0)
	assert.Less(t, errMid, errCoarse/5, "finer sub-stepping should converge")
	assert.Less(t, errMid, 1e-2)
}

func TestAdvanceDeterministic(t *testing.T) {
	t.Parallel()
	p := testParams(5000)
	a := core.Generate(p, 11)
	b := core.CloneSatellites(a)

	for i := range a {
		Advance(&a[i], p.Center(), p)
		Advance(&b[i], p.Center(), p)
	}
	assert.Equal(t, a, b)
}

func BenchmarkAdvance(b *testing.B) {
	p := testParams(core.DefaultSubSteps)
	sats := core.Generate(p, 1)
	center := p.Center()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Advance(&sats[i%len(sats)], center, p)
	}
}
