package core

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/spatial/r2"
)

// Reference run constants.
const (
	DefaultWidth          = 1024
	DefaultHeight         = 1024
	DefaultSatelliteCount = 64
	DefaultRadius         = 3.16
	DefaultGravity        = 1.0
	DefaultDeltaTime      = 32
	DefaultSubSteps       = 100000
)

// ErrInvalidParams is wrapped by every Params validation failure.
var ErrInvalidParams = errors.New("invalid params")

// Params holds the constants the integrator and colorizer depend on.
type Params struct {
	Width          int
	Height         int
	SatelliteCount int
	Radius         float32 // hit radius around each satellite
	Gravity        float64
	DeltaTime      float64 // elapsed time per frame
	SubSteps       int     // forward-Euler increments per frame

	// MinDistance floors the satellite-to-attractor distance when positive.
	// Zero keeps the unguarded inverse-square law, under which a satellite
	// sitting on the attractor turns non-finite.
	MinDistance float64
}

// DefaultParams returns the reference configuration.
func DefaultParams() Params {
	return Params{
		Width:          DefaultWidth,
		Height:         DefaultHeight,
		SatelliteCount: DefaultSatelliteCount,
		Radius:         DefaultRadius,
		Gravity:        DefaultGravity,
		DeltaTime:      DefaultDeltaTime,
		SubSteps:       DefaultSubSteps,
	}
}

// Validate reports the first inconsistent field.
func (p Params) Validate() error {
	switch {
	case p.Width <= 0 || p.Height <= 0:
		return fmt.Errorf("%w: grid %dx%d", ErrInvalidParams, p.Width, p.Height)
	case p.SatelliteCount <= 0:
		return fmt.Errorf("%w: satellite count %d", ErrInvalidParams, p.SatelliteCount)
	case p.SubSteps < 1:
		return fmt.Errorf("%w: sub-steps %d", ErrInvalidParams, p.SubSteps)
	case p.Radius < 0:
		return fmt.Errorf("%w: radius %v", ErrInvalidParams, p.Radius)
	case p.MinDistance < 0:
		return fmt.Errorf("%w: min distance %v", ErrInvalidParams, p.MinDistance)
	}
	return nil
}

// Center returns the attractor position, the integer center of the grid.
func (p Params) Center() r2.Vec {
	return r2.Vec{X: float64(p.Width / 2), Y: float64(p.Height / 2)}
}

// Step returns the duration of one sub-step.
func (p Params) Step() float64 {
	return p.DeltaTime / float64(p.SubSteps)
}
