// Package verify compares the parallel pipeline against the oracle.
//
// Satellites must match bit for bit: both paths run the same per-satellite
// recurrence, so any difference is a defect. Pixels are compared per channel
// against a configurable absolute tolerance, and only the first pixel
// outside it is reported.
package verify

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/chewxy/math32"
	"go.uber.org/multierr"

	"github.com/sbl8/blackhole/core"
)

// DefaultTolerance is the largest per-channel pixel difference accepted.
const DefaultTolerance float32 = 0.08

// ErrDivergence is wrapped by every error produced from a Report.
var ErrDivergence = errors.New("parallel output diverges from reference")

// Kind classifies a Violation.
type Kind uint8

const (
	KindSatellite Kind = iota + 1 // satellite state differs
	KindPixel                     // pixel outside tolerance
	KindShape                     // buffers differ in length or size
)

func (k Kind) String() string {
	switch k {
	case KindSatellite:
		return "satellite"
	case KindPixel:
		return "pixel"
	case KindShape:
		return "shape"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// Violation is one detected divergence.
type Violation struct {
	Kind  Kind
	Index int // satellite index or linear pixel index
	X, Y  int // pixel coordinates, KindPixel only

	Parallel, Reference core.Color // pixel colors, KindPixel only
	Diff                float32    // largest channel difference, KindPixel only

	Detail string // KindShape only
}

func (v Violation) String() string {
	switch v.Kind {
	case KindSatellite:
		return fmt.Sprintf("Incorrect satellite data of satellite: %d", v.Index)
	case KindPixel:
		return fmt.Sprintf("Buggy pixel at (x=%d, y=%d)", v.X, v.Y)
	default:
		return fmt.Sprintf("Mismatched %s", v.Detail)
	}
}

// Verifier holds the comparison policy. The zero value demands exact
// pixel equality.
type Verifier struct {
	Tolerance float32
}

// New returns a Verifier with the given pixel tolerance.
func New(tolerance float32) (*Verifier, error) {
	if tolerance < 0 || math32.IsNaN(tolerance) {
		return nil, fmt.Errorf("tolerance must be a non-negative number, got %v", tolerance)
	}
	return &Verifier{Tolerance: tolerance}, nil
}

// Satellites reports every index whose state differs from ref in any bit.
func (v *Verifier) Satellites(par, ref []core.Satellite) []Violation {
	if len(par) != len(ref) {
		return []Violation{{
			Kind:   KindShape,
			Index:  -1,
			Detail: fmt.Sprintf("satellite count: parallel %d, reference %d", len(par), len(ref)),
		}}
	}

	var out []Violation
	for i := range par {
		if !sameBits(&par[i], &ref[i]) {
			out = append(out, Violation{Kind: KindSatellite, Index: i})
		}
	}
	return out
}

// Pixels returns the first pixel whose channels differ from ref by more
// than the tolerance, or nil. A difference exactly equal to the tolerance
// passes; a NaN difference fails.
func (v *Verifier) Pixels(par, ref *core.Frame) []Violation {
	if par.Width != ref.Width || par.Height != ref.Height || len(par.Pixels) != len(ref.Pixels) {
		return []Violation{{
			Kind:   KindShape,
			Index:  -1,
			Detail: fmt.Sprintf("frame size: parallel %dx%d, reference %dx%d", par.Width, par.Height, ref.Width, ref.Height),
		}}
	}

	for i := range ref.Pixels {
		p, r := par.Pixels[i], ref.Pixels[i]
		diff := maxDiff(p, r)
		if diff <= v.Tolerance {
			continue
		}
		x, y := ref.Coords(i)
		return []Violation{{
			Kind:      KindPixel,
			Index:     i,
			X:         x,
			Y:         y,
			Parallel:  p,
			Reference: r,
			Diff:      diff,
		}}
	}
	return nil
}

// Verify runs both checks.
func (v *Verifier) Verify(parSats, refSats []core.Satellite, parPixels, refPixels *core.Frame) Report {
	var r Report
	r.Violations = append(r.Violations, v.Satellites(parSats, refSats)...)
	r.Violations = append(r.Violations, v.Pixels(parPixels, refPixels)...)
	return r
}

// maxDiff returns the largest absolute channel difference, or NaN if any
// channel difference is NaN.
func maxDiff(a, b core.Color) float32 {
	var m float32
	for _, d := range [...]float32{a.R - b.R, a.G - b.G, a.B - b.B} {
		d = math32.Abs(d)
		if math32.IsNaN(d) {
			return d
		}
		if d > m {
			m = d
		}
	}
	return m
}

func sameBits(a, b *core.Satellite) bool {
	return bitsOf(a) == bitsOf(b)
}

func bitsOf(s *core.Satellite) [7]uint32 {
	return [7]uint32{
		math.Float32bits(s.Identifier.R),
		math.Float32bits(s.Identifier.G),
		math.Float32bits(s.Identifier.B),
		math.Float32bits(s.Position.X),
		math.Float32bits(s.Position.Y),
		math.Float32bits(s.Velocity.X),
		math.Float32bits(s.Velocity.Y),
	}
}

// Report collects the violations of one verification frame.
type Report struct {
	Violations []Violation
}

// OK reports whether no violation was found.
func (r Report) OK() bool {
	return len(r.Violations) == 0
}

// Err combines all violations into one error wrapping ErrDivergence, or
// returns nil.
func (r Report) Err() error {
	var err error
	for _, v := range r.Violations {
		err = multierr.Append(err, fmt.Errorf("%w: %s", ErrDivergence, v))
	}
	return err
}

// Count returns the number of violations of kind k.
func (r Report) Count(k Kind) int {
	n := 0
	for _, v := range r.Violations {
		if v.Kind == k {
			n++
		}
	}
	return n
}

func (r Report) String() string {
	if r.OK() {
		return "Error check passed!"
	}
	lines := make([]string, len(r.Violations))
	for i, v := range r.Violations {
		lines[i] = v.String()
	}
	return strings.Join(lines, "\n")
}
