package core

import (
	"github.com/chewxy/math32"
	"gonum.org/v1/gonum/spatial/r2"
)

// Vec2 is the float32 storage form of a 2D vector.
type Vec2 struct {
	X, Y float32
}

// Sub returns v - o.
func (v Vec2) Sub(o Vec2) Vec2 {
	return Vec2{X: v.X - o.X, Y: v.Y - o.Y}
}

// Len2 returns the squared length of v.
func (v Vec2) Len2() float32 {
	return v.X*v.X + v.Y*v.Y
}

// Len returns the length of v.
func (v Vec2) Len() float32 {
	return math32.Sqrt(v.Len2())
}

// R2 widens v to float64.
func (v Vec2) R2() r2.Vec {
	return r2.Vec{X: float64(v.X), Y: float64(v.Y)}
}

// FromR2 narrows a float64 vector to storage precision.
func FromR2(p r2.Vec) Vec2 {
	return Vec2{X: float32(p.X), Y: float32(p.Y)}
}
