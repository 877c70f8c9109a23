package runtime

import (
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sbl8/blackhole/core"
)

func smallParams() core.Params {
	p := core.DefaultParams()
	p.Width, p.Height = 160, 128
	p.SatelliteCount = 16
	p.SubSteps = 2000
	return p
}

// smallSatellites scales generated orbits into a small grid.
func smallSatellites(p core.Params, seed uint64) []core.Satellite {
	ref := core.DefaultParams()
	ref.SatelliteCount = p.SatelliteCount
	sats := core.Generate(ref, seed)
	for i := range sats {
		sats[i].Position.X = (sats[i].Position.X-float32(ref.Width/2))/6 + float32(p.Width/2)
		sats[i].Position.Y = (sats[i].Position.Y-float32(ref.Height/2))/6 + float32(p.Height/2)
	}
	return sats
}

func TestParseBackend(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in      string
		want    Backend
		wantErr bool
	}{
		{in: "pool", want: BackendPool},
		{in: " GoParallel ", want: BackendGoParallel},
		{in: "sequential", want: BackendSequential},
		{in: "opencl", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseBackend(tt.in)
		if tt.wantErr {
			if !errors.Is(err, ErrUnknownBackend) {
				t.Errorf("ParseBackend(%q) error = %v, want ErrUnknownBackend", tt.in, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("ParseBackend(%q) = %q, %v; want %q", tt.in, got, err, tt.want)
		}
	}
}

func TestNewExecutorRejectsBadWorkers(t *testing.T) {
	t.Parallel()
	if _, err := NewExecutor(BackendPool, 0); err == nil {
		t.Error("pool with zero workers should fail")
	}
	if _, err := NewExecutor(BackendGoParallel, -1); err == nil {
		t.Error("goparallel with negative workers should fail")
	}
	exec, err := NewExecutor(BackendSequential, 0)
	if err != nil {
		t.Fatalf("sequential: %v", err)
	}
	if exec.Workers() != 1 {
		t.Errorf("sequential workers = %d, want 1", exec.Workers())
	}
}

func TestExecutorsVisitEveryIndexOnce(t *testing.T) {
	t.Parallel()
	for _, b := range Backends() {
		for _, n := range []int{0, 1, 7, 64, 1024, 5000} {
			exec, err := NewExecutor(b, 3)
			require.NoError(t, err)

			hits := make([]int32, n)
			exec.For(n, func(i int) {
				atomic.AddInt32(&hits[i], 1)
			})
			for i, h := range hits {
				require.Equal(t, int32(1), h, "backend %s n=%d index %d", b, n, i)
			}
			require.NoError(t, exec.Close())
		}
	}
}

func TestPoolReuseAndClose(t *testing.T) {
	t.Parallel()
	p := NewPool(4)
	var total int64
	for round := 0; round < 50; round++ {
		p.For(100, func(i int) {
			atomic.AddInt64(&total, int64(i))
		})
	}
	assert.Equal(t, int64(50*4950), total)
	assert.NoError(t, p.Close())
	assert.NoError(t, p.Close(), "double close must be safe")
}

func TestEngineBackendsAgree(t *testing.T) {
	t.Parallel()
	p := smallParams()
	initial := smallSatellites(p, 5)

	var (
		refSats  []core.Satellite
		refFrame *core.Frame
	)
	for _, b := range Backends() {
		e, err := NewEngine(&EngineOptions{Workers: 4, Backend: b})
		require.NoError(t, err)

		sats := core.CloneSatellites(initial)
		f := core.NewFrame(p.Width, p.Height)
		require.NoError(t, e.Integrate(sats, p))
		require.NoError(t, e.Colorize(sats, f, p))
		require.NoError(t, e.Close())

		if refSats == nil {
			refSats, refFrame = sats, f
			continue
		}
		assert.Equal(t, refSats, sats, "backend %s satellites", b)
		assert.Equal(t, refFrame.Pixels, f.Pixels, "backend %s pixels", b)
	}
	assert.NotEqual(t, initial, refSats, "integration should move satellites")
}

func TestEngineColorizeRejectsMismatchedFrame(t *testing.T) {
	t.Parallel()
	p := smallParams()
	e, err := NewEngine(&EngineOptions{Workers: 2})
	require.NoError(t, err)
	defer e.Close()

	sats := smallSatellites(p, 1)
	assert.Error(t, e.Colorize(sats, core.NewFrame(p.Height, p.Width), p))
	assert.Error(t, e.Colorize(sats, &core.Frame{Width: p.Width, Height: p.Height}, p))

	bad := p
	bad.SubSteps = 0
	assert.ErrorIs(t, e.Integrate(sats, bad), core.ErrInvalidParams)
}

func TestEngineStats(t *testing.T) {
	t.Parallel()
	p := smallParams()
	p.SubSteps = 10

	e, err := NewEngine(&EngineOptions{Workers: 2, EnableStats: true})
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}
	defer e.Close()

	if s := e.Stats(); s.Integrations != 0 || s.Colorizations != 0 {
		t.Fatalf("initial stats not zero: %+v", s)
	}

	sats := smallSatellites(p, 2)
	f := core.NewFrame(p.Width, p.Height)
	for i := 0; i < 3; i++ {
		if err := e.Integrate(sats, p); err != nil {
			t.Fatalf("Integrate: %v", err)
		}
	}
	if err := e.Colorize(sats, f, p); err != nil {
		t.Fatalf("Colorize: %v", err)
	}

	s := e.Stats()
	if s.Integrations != 3 {
		t.Errorf("Expected 3 integrations, got %d", s.Integrations)
	}
	if s.Colorizations != 1 {
		t.Errorf("Expected 1 colorization, got %d", s.Colorizations)
	}
	if s.SatellitesMoved != int64(3*len(sats)) {
		t.Errorf("SatellitesMoved = %d", s.SatellitesMoved)
	}
	if s.PixelsShaded != int64(p.Width*p.Height) {
		t.Errorf("PixelsShaded = %d", s.PixelsShaded)
	}
}

func TestEngineDefaults(t *testing.T) {
	t.Parallel()
	e, err := NewEngine(nil)
	require.NoError(t, err)
	defer e.Close()

	opts := e.Options()
	assert.Greater(t, opts.Workers, 0)
	assert.Equal(t, BackendPool, opts.Backend)
	assert.Equal(t, opts.Workers, e.Workers())

	_, err = NewEngine(&EngineOptions{Backend: "cuda"})
	assert.ErrorIs(t, err, ErrUnknownBackend)
}

func TestFramePool(t *testing.T) {
	t.Parallel()
	fp := NewFramePool(2, 8, 4)

	f := fp.Get()
	require.NoError(t, f.Validate())
	assert.Equal(t, 8, f.Width)

	f.Pixels[0] = core.White
	fp.Put(f)
	again := fp.Get()
	assert.Same(t, f, again, "pooled frame should be reused")

	fp.Put(core.NewFrame(4, 8)) // wrong shape, dropped
	fresh := fp.Get()
	assert.Equal(t, 8, fresh.Width)
	assert.NotSame(t, f, fresh)
}

func BenchmarkEngineIntegrate(b *testing.B) {
	p := core.DefaultParams()
	p.SubSteps = 10000
	sats := core.Generate(p, 1)

	for _, backend := range Backends() {
		b.Run(string(backend), func(b *testing.B) {
			e, err := NewEngine(&EngineOptions{Backend: backend})
			if err != nil {
				b.Fatalf("NewEngine failed: %v", err)
			}
			defer e.Close()

			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if err := e.Integrate(sats, p); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkEngineColorize(b *testing.B) {
	p := core.DefaultParams()
	sats := core.Generate(p, 1)
	f := core.NewFrame(p.Width, p.Height)

	for _, backend := range Backends() {
		b.Run(string(backend), func(b *testing.B) {
			e, err := NewEngine(&EngineOptions{Backend: backend})
			if err != nil {
				b.Fatalf("NewEngine failed: %v", err)
			}
			defer e.Close()

			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if err := e.Colorize(sats, f, p); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}
