package runtime

import "github.com/sbl8/blackhole/core"

// FramePool manages reusable framebuffers of one size
type FramePool struct {
	frames chan *core.Frame
	width  int
	height int
}

// NewFramePool creates a pool holding up to poolSize frames.
func NewFramePool(poolSize, width, height int) *FramePool {
	if poolSize < 1 {
		poolSize = 1
	}
	return &FramePool{
		frames: make(chan *core.Frame, poolSize),
		width:  width,
		height: height,
	}
}

// Get returns a pooled frame or allocates a new one. Pixel contents are
// whatever the previous user left behind.
func (fp *FramePool) Get() *core.Frame {
	select {
	case f := <-fp.frames:
		return f
	default:
		return core.NewFrame(fp.width, fp.height)
	}
}

// Put returns f to the pool. Frames of a different size are dropped.
func (fp *FramePool) Put(f *core.Frame) {
	if f == nil || f.Width != fp.width || f.Height != fp.height || len(f.Pixels) != fp.width*fp.height {
		return
	}
	select {
	case fp.frames <- f:
	default:
		// pool full
	}
}
