// Package snapshot writes frames and satellite state to a billy filesystem.
//
// Frames are encoded as PNG. The pipeline never clamps colors, so channels
// are clamped to [0,1] only here, at the point where they leave the
// float32 domain. Satellite state is written in the core binary snapshot
// format and can be read back to resume or replay a run.
package snapshot

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"

	"github.com/chewxy/math32"
	"go.uber.org/multierr"
	billy "gopkg.in/src-d/go-billy.v4"
	"gopkg.in/src-d/go-billy.v4/util"

	"github.com/sbl8/blackhole/core"
	"github.com/sbl8/blackhole/sim"
)

// FrameName is the file a frame image is written to.
func FrameName(frame uint64) string {
	return fmt.Sprintf("frame-%06d.png", frame)
}

// StateName is the file a satellite snapshot is written to.
func StateName(frame uint64) string {
	return fmt.Sprintf("satellites-%06d.bin", frame)
}

// Writer saves every Every-th frame. It implements sim.Observer.
type Writer struct {
	FS         billy.Filesystem
	Every      int  // values below 1 save every frame
	SkipImages bool // write satellite state only
}

// ObserveFrame writes the image and the post-integration satellites of
// res.Frame if it is due.
func (w *Writer) ObserveFrame(res *sim.FrameResult, sats []core.Satellite, frame *core.Frame) error {
	every := uint64(w.Every)
	if every < 1 {
		every = 1
	}
	if res.Frame%every != 0 {
		return nil
	}

	var err error
	if !w.SkipImages {
		err = multierr.Append(err, WriteFrame(w.FS, FrameName(res.Frame), frame))
	}
	err = multierr.Append(err, WriteSatellites(w.FS, StateName(res.Frame), sats))
	return err
}

// WriteFrame encodes f as PNG into name.
func WriteFrame(fs billy.Filesystem, name string, f *core.Frame) (err error) {
	if err := f.Validate(); err != nil {
		return err
	}
	file, err := fs.Create(name)
	if err != nil {
		return fmt.Errorf("snapshot: %w", err)
	}
	defer func() {
		err = multierr.Append(err, file.Close())
	}()
	return EncodePNG(file, f)
}

// EncodePNG writes f to out as an 8-bit PNG.
func EncodePNG(out io.Writer, f *core.Frame) error {
	return png.Encode(out, Image(f))
}

// Image converts f to an 8-bit image, clamping every channel.
func Image(f *core.Frame) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, f.Width, f.Height))
	for i, c := range f.Pixels {
		x, y := f.Coords(i)
		img.SetNRGBA(x, y, color.NRGBA{R: channel(c.R), G: channel(c.G), B: channel(c.B), A: 0xff})
	}
	return img
}

// channel maps [0,1] to [0,255]; NaN maps to 0.
func channel(v float32) uint8 {
	if math32.IsNaN(v) || v <= 0 {
		return 0
	}
	if v >= 1 {
		return 0xff
	}
	return uint8(v*255 + 0.5)
}

// WriteSatellites stores sats in the binary snapshot format.
func WriteSatellites(fs billy.Filesystem, name string, sats []core.Satellite) error {
	data, err := core.SerializeSatellites(sats)
	if err != nil {
		return fmt.Errorf("snapshot: %w", err)
	}
	if err := util.WriteFile(fs, name, data, 0o644); err != nil {
		return fmt.Errorf("snapshot: %w", err)
	}
	return nil
}

// ReadSatellites loads a snapshot written by WriteSatellites.
func ReadSatellites(fs billy.Filesystem, name string) ([]core.Satellite, error) {
	file, err := fs.Open(name)
	if err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("snapshot: read %s: %w", name, err)
	}
	sats, err := core.DeserializeSatellites(data)
	if err != nil {
		return nil, fmt.Errorf("snapshot: %s: %w", name, err)
	}
	return sats, nil
}
