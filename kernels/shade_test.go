package kernels

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sbl8/blackhole/core"
)

const side = 64

func satAt(x, y float32, id core.Color) core.Satellite {
	return core.Satellite{Identifier: id, Position: core.Vec2{X: x, Y: y}}
}

func TestShadeHitRadius(t *testing.T) {
	t.Parallel()
	red := core.Color{R: 0.2}
	sats := []core.Satellite{satAt(10, 10, red)}
	pixel := 14*side + 13 // (13, 14) is exactly 5 away

	tests := []struct {
		name    string
		radius  float32
		wantHit bool
	}{
		{name: "distance equals radius", radius: 5, wantHit: false},
		{name: "just inside", radius: 5.0001, wantHit: true},
		{name: "outside", radius: 4.9, wantHit: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Shade(pixel, side, sats, tt.radius)
			if tt.wantHit {
				assert.Equal(t, core.White, got)
			} else {
				assert.NotEqual(t, core.White, got)
			}
		})
	}
}

func TestShadeOverlappingHits(t *testing.T) {
	t.Parallel()
	pixel := 20*side + 20
	sats := []core.Satellite{
		satAt(21, 20, core.Color{R: 0.1}),
		// sits on the pixel: a blend pass would divide by zero here
		satAt(20, 20, core.Color{G: 0.1}),
	}

	got := Shade(pixel, side, sats, 3.16)
	assert.Equal(t, core.White, got)
	assert.False(t, math.IsNaN(float64(got.R)))
}

func TestShadeSingleSatellite(t *testing.T) {
	t.Parallel()
	id := core.Color{R: 0.2, G: 0.1, B: 0.05}
	sats := []core.Satellite{satAt(5, 5, id)}

	// nearest seed plus a full-weight blend of the same color
	got := Shade(40*side+40, side, sats, 3.16)
	assert.InDelta(t, 4*id.R, got.R, 1e-5)
	assert.InDelta(t, 4*id.G, got.G, 1e-5)
	assert.InDelta(t, 4*id.B, got.B, 1e-5)
	assert.Greater(t, got.R, float32(0.5), "channels are not clamped")
}

func TestShadeWeightLinearity(t *testing.T) {
	t.Parallel()
	id := core.Color{R: 0.15, G: 0.07, B: 0.11}
	one := []core.Satellite{satAt(30.5, 17.25, id)}
	two := []core.Satellite{one[0], one[0]}

	for pixel := 0; pixel < side*side; pixel += 7 {
		a := Shade(pixel, side, one, 3.16)
		b := Shade(pixel, side, two, 3.16)
		require.InDelta(t, a.R, b.R, 1e-6, "pixel %d", pixel)
		require.InDelta(t, a.G, b.G, 1e-6, "pixel %d", pixel)
		require.InDelta(t, a.B, b.B, 1e-6, "pixel %d", pixel)
	}
}

func TestShadeNearestSeed(t *testing.T) {
	t.Parallel()
	near := core.Color{R: 0.25}
	far := core.Color{B: 0.16}
	pixel := 10*side + 10

	// equal distances keep the earlier satellite
	tie := []core.Satellite{satAt(20, 10, near), satAt(0, 10, far)}
	flipped := []core.Satellite{satAt(0, 10, far), satAt(20, 10, near)}

	a := Shade(pixel, side, tie, 1)
	b := Shade(pixel, side, flipped, 1)
	// blend contributions are identical, so only the seed differs
	assert.InDelta(t, a.R-b.R, near.R, 1e-6)
	assert.InDelta(t, b.B-a.B, far.B, 1e-6)
}

func TestShadeZeroRadiusOnSatellite(t *testing.T) {
	t.Parallel()
	// with no hit radius nothing short-circuits the coincident pixel
	sats := []core.Satellite{satAt(3, 0, core.Color{R: 0.1})}
	got := Shade(3, side, sats, 0)
	assert.True(t, math.IsNaN(float64(got.R)))
}

func TestShadeRowWritesOnlyItsRow(t *testing.T) {
	t.Parallel()
	sats := core.Generate(core.DefaultParams(), 3)
	for i := range sats {
		sats[i].Position.X /= 16
		sats[i].Position.Y /= 16
	}
	f := core.NewFrame(side, side)
	sentinel := core.Color{R: -1, G: -1, B: -1}
	for i := range f.Pixels {
		f.Pixels[i] = sentinel
	}

	ShadeRow(5, f, sats, 1)

	for i, c := range f.Pixels {
		_, y := f.Coords(i)
		if y == 5 {
			assert.Equal(t, Shade(i, side, sats, 1), c)
		} else {
			require.Equal(t, sentinel, c, "pixel %d outside row 5 touched", i)
		}
	}
}

func BenchmarkShadeRow(b *testing.B) {
	p := core.DefaultParams()
	sats := core.Generate(p, 1)
	f := core.NewFrame(p.Width, p.Height)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		ShadeRow(i%p.Height, f, sats, p.Radius)
	}
}
