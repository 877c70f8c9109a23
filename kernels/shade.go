package kernels

import (
	"github.com/chewxy/math32"

	"github.com/sbl8/blackhole/core"
)

// blendScale brightens the weighted blend. Channels may exceed 1.
const blendScale = 3.0

// Shade returns the color of the pixel at row-major index pixel in a grid of
// the given width.
//
// Pass 1 walks sats in array order. The first satellite closer than radius
// (strictly) turns the pixel White and ends the scan. Otherwise each
// satellite adds 1/dist⁴ to the total weight and the nearest one (earliest
// on ties) seeds the color.
//
// Pass 2 adds every identifier scaled by its share of the total weight,
// again in array order. Nothing is clamped.
func Shade(pixel, width int, sats []core.Satellite, radius float32) core.Color {
	at := core.Vec2{X: float32(pixel % width), Y: float32(pixel / width)}

	var (
		c       core.Color
		weights float32
		nearest = math32.Inf(1)
	)
	for j := range sats {
		dist := at.Sub(sats[j].Position).Len()
		if dist < radius {
			return core.White
		}
		weights += 1 / (dist * dist * dist * dist)
		if dist < nearest {
			nearest = dist
			c = sats[j].Identifier
		}
	}

	for j := range sats {
		dist2 := at.Sub(sats[j].Position).Len2()
		w := 1 / (dist2 * dist2)
		id := sats[j].Identifier
		c.R += id.R * w / weights * blendScale
		c.G += id.G * w / weights * blendScale
		c.B += id.B * w / weights * blendScale
	}
	return c
}

// ShadeRow colors row y of f. It writes only that row.
func ShadeRow(y int, f *core.Frame, sats []core.Satellite, radius float32) {
	row := f.Row(y)
	base := y * f.Width
	for x := range row {
		row[x] = Shade(base+x, f.Width, sats, radius)
	}
}
