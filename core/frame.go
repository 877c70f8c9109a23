package core

import "fmt"

// Frame is a row-major framebuffer with one Color per pixel.
type Frame struct {
	Width  int
	Height int
	Pixels []Color
}

// NewFrame allocates a zeroed frame of the given size.
func NewFrame(width, height int) *Frame {
	if width < 0 || height < 0 {
		width, height = 0, 0
	}
	return &Frame{
		Width:  width,
		Height: height,
		Pixels: make([]Color, width*height),
	}
}

// Len returns the number of pixels.
func (f *Frame) Len() int {
	return len(f.Pixels)
}

// Index returns the linear index of pixel (x, y).
func (f *Frame) Index(x, y int) int {
	return y*f.Width + x
}

// Coords returns the (x, y) coordinates of linear index i.
func (f *Frame) Coords(i int) (x, y int) {
	return i % f.Width, i / f.Width
}

// At returns the color at (x, y).
func (f *Frame) At(x, y int) Color {
	return f.Pixels[f.Index(x, y)]
}

// Row returns the pixels of row y.
func (f *Frame) Row(y int) []Color {
	start := y * f.Width
	return f.Pixels[start : start+f.Width]
}

// Clone returns a deep copy of f.
func (f *Frame) Clone() *Frame {
	c := &Frame{Width: f.Width, Height: f.Height, Pixels: make([]Color, len(f.Pixels))}
	copy(c.Pixels, f.Pixels)
	return c
}

// Validate checks that the pixel slice matches the declared dimensions.
func (f *Frame) Validate() error {
	if f == nil {
		return fmt.Errorf("frame is nil")
	}
	if f.Width <= 0 || f.Height <= 0 {
		return fmt.Errorf("frame has invalid size %dx%d", f.Width, f.Height)
	}
	if len(f.Pixels) != f.Width*f.Height {
		return fmt.Errorf("frame holds %d pixels, want %d", len(f.Pixels), f.Width*f.Height)
	}
	return nil
}

// Fits reports whether f has the grid size described by p.
func (f *Frame) Fits(p Params) bool {
	return f.Width == p.Width && f.Height == p.Height && len(f.Pixels) == p.Width*p.Height
}
