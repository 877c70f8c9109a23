package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"gopkg.in/src-d/go-billy.v4/osfs"

	"github.com/sbl8/blackhole/core"
	bhruntime "github.com/sbl8/blackhole/runtime"
	"github.com/sbl8/blackhole/sim"
	"github.com/sbl8/blackhole/snapshot"
	"github.com/sbl8/blackhole/store"
	"github.com/sbl8/blackhole/verify"
)

const version = "1.0.0"

func main() {
	var (
		seed        = flag.Uint64("seed", 0, "Seed for satellite generation (0 picks one from the clock)")
		frames      = flag.Int("frames", 10, "Number of frames to simulate")
		width       = flag.Int("width", core.DefaultWidth, "Grid width in pixels")
		height      = flag.Int("height", core.DefaultHeight, "Grid height in pixels")
		count       = flag.Int("count", core.DefaultSatelliteCount, "Number of satellites")
		steps       = flag.Int("steps", core.DefaultSubSteps, "Physics sub-steps per frame")
		dt          = flag.Float64("dt", core.DefaultDeltaTime, "Elapsed time per frame")
		gravity     = flag.Float64("gravity", core.DefaultGravity, "Gravitational constant")
		radius      = flag.Float64("radius", core.DefaultRadius, "Satellite hit radius in pixels")
		minDistance = flag.Float64("min-distance", 0, "Floor for the attractor distance (0 keeps the singular law)")
		workers     = flag.Int("workers", runtime.NumCPU(), "Number of worker goroutines")
		backendName = flag.String("backend", string(bhruntime.BackendPool), "Parallel backend: pool, goparallel, sequential")
		tolerance   = flag.Float64("tolerance", float64(verify.DefaultTolerance), "Per-channel pixel tolerance against the reference")
		verifyN     = flag.Int("verify", sim.DefaultVerifyFrames, "Number of leading frames checked against the reference")
		outDir      = flag.String("out", "", "Directory for PNG frames and satellite snapshots")
		every       = flag.Int("every", 1, "Write a snapshot every n frames")
		stateOnly   = flag.Bool("state-only", false, "Write satellite snapshots without images")
		dbPath      = flag.String("db", "", "SQLite database recording frame timings and violations")
		load        = flag.String("load", "", "Start from a satellite snapshot instead of generating")
		report      = flag.Int("report", 0, "Log rolling timing averages every n frames")
		verbose     = flag.Bool("verbose", false, "Enable verbose output")
		showVersion = flag.Bool("version", false, "Show version information")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("blackhole - satellite simulator v%s\n", version)
		fmt.Printf("Built with Go %s\n", runtime.Version())
		return
	}

	backend, err := bhruntime.ParseBackend(*backendName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(1)
	}

	params := core.DefaultParams()
	params.Width = *width
	params.Height = *height
	params.SatelliteCount = *count
	params.SubSteps = *steps
	params.DeltaTime = *dt
	params.Gravity = *gravity
	params.Radius = float32(*radius)
	params.MinDistance = *minDistance

	if *seed == 0 {
		*seed = uint64(time.Now().UnixNano())
	}

	var sats []core.Satellite
	if *load != "" {
		fs := osfs.New(filepath.Dir(*load))
		sats, err = snapshot.ReadSatellites(fs, filepath.Base(*load))
		if err != nil {
			log.Fatalf("Failed to load satellites: %v", err)
		}
		params.SatelliteCount = len(sats)
		log.Printf("Loaded %d satellites from %s", len(sats), *load)
	} else {
		if err := params.Validate(); err != nil {
			log.Fatalf("Invalid configuration: %v", err)
		}
		sats = core.Generate(params, *seed)
		log.Printf("Generated %d satellites with seed %d", len(sats), *seed)
	}

	opts := sim.DefaultOptions()
	opts.Params = params
	opts.Engine = bhruntime.EngineOptions{Workers: *workers, Backend: backend, EnableStats: *verbose}
	opts.Tolerance = float32(*tolerance)
	opts.VerifyFrames = *verifyN
	opts.ReportEvery = *report

	if *outDir != "" {
		opts.Observers = append(opts.Observers, &snapshot.Writer{
			FS:         osfs.New(*outDir),
			Every:      *every,
			SkipImages: *stateOnly,
		})
	}

	if *dbPath != "" {
		st, err := store.Open(*dbPath)
		if err != nil {
			log.Fatalf("Failed to open database: %v", err)
		}
		defer st.Close()

		runID, err := st.BeginRun(store.RunInfo{
			Seed:      *seed,
			Params:    params,
			Backend:   string(backend),
			Workers:   *workers,
			Tolerance: opts.Tolerance,
		})
		if err != nil {
			log.Fatalf("Failed to record run: %v", err)
		}
		if *verbose {
			fmt.Printf("Recording run %d in %s\n", runID, *dbPath)
		}
		opts.Observers = append(opts.Observers, st)
	}

	s, err := sim.New(opts, sats)
	if err != nil {
		log.Fatalf("Failed to create simulation: %v", err)
	}
	defer s.Close()

	if *verbose {
		fmt.Printf("Simulating %d satellites on a %dx%d grid, %d sub-steps per frame\n",
			len(sats), params.Width, params.Height, params.SubSteps)
		fmt.Printf("Backend %s with %d workers\n", backend, *workers)
	}

	diverged := 0
	for i := 0; i < *frames; i++ {
		res, err := s.Step()
		if res == nil {
			log.Fatalf("Frame %d failed: %v", i, err)
		}
		if err != nil {
			log.Printf("Warning: %v", err)
		}
		if !res.OK() {
			diverged++
		}
	}

	fmt.Printf("%d frames, %d with divergence or singular state, average frametime %v\n",
		s.FrameNumber(), diverged, s.Frametime.Average())

	if *verbose {
		stats := s.Stats()
		fmt.Printf("Integrations: %d (avg %v), colorizations: %d (avg %v)\n",
			stats.Integrations, stats.IntegrateLatency, stats.Colorizations, stats.ColorizeLatency)
	}
}
