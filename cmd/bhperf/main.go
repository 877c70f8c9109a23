package main

import (
	"flag"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/sbl8/blackhole/core"
	"github.com/sbl8/blackhole/oracle"
	bhruntime "github.com/sbl8/blackhole/runtime"
	"github.com/sbl8/blackhole/verify"
)

var (
	testType   = flag.String("test", "all", "Test type: all, integrate, colorize, verify")
	size       = flag.Int("size", 512, "Grid width and height")
	count      = flag.Int("count", core.DefaultSatelliteCount, "Number of satellites")
	steps      = flag.Int("steps", 10000, "Physics sub-steps per frame")
	iter       = flag.Int("iter", 5, "Number of frames per measurement")
	workerList = flag.String("workers", "", "Comma separated worker counts (default 1 up to NumCPU)")
	seed       = flag.Uint64("seed", 1, "Seed for satellite generation")
	verbose    = flag.Bool("verbose", false, "Verbose output")
)

func main() {
	flag.Parse()

	workers, err := parseWorkers(*workerList)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid -workers: %v\n", err)
		os.Exit(1)
	}

	params := core.DefaultParams()
	params.Width, params.Height = *size, *size
	params.SatelliteCount = *count
	params.SubSteps = *steps
	if err := params.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Blackhole Performance Analysis Tool\n")
	fmt.Printf("===================================\n")
	fmt.Printf("Go Version: %s\n", runtime.Version())
	fmt.Printf("OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	fmt.Printf("CPUs: %d\n", runtime.NumCPU())
	fmt.Printf("Grid: %dx%d, satellites: %d, sub-steps: %d\n", params.Width, params.Height, params.SatelliteCount, params.SubSteps)
	fmt.Printf("Iterations: %d\n", *iter)
	fmt.Printf("\n")

	sats := core.Generate(params, *seed)

	switch *testType {
	case "all":
		fmt.Printf("Running comprehensive performance tests...\n\n")
		runIntegrateTests(params, sats, workers)
		runColorizeTests(params, sats, workers)
		runVerifyTest(params, sats, workers)
	case "integrate":
		runIntegrateTests(params, sats, workers)
	case "colorize":
		runColorizeTests(params, sats, workers)
	case "verify":
		runVerifyTest(params, sats, workers)
	default:
		fmt.Printf("Unknown test type: %s\n", *testType)
		os.Exit(1)
	}
}

func parseWorkers(list string) ([]int, error) {
	if list == "" {
		var out []int
		for n := 1; n < runtime.NumCPU(); n *= 2 {
			out = append(out, n)
		}
		return append(out, runtime.NumCPU()), nil
	}
	var out []int
	for _, field := range strings.Split(list, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(field))
		if err != nil {
			return nil, err
		}
		if n < 1 {
			return nil, fmt.Errorf("worker count %d", n)
		}
		out = append(out, n)
	}
	return out, nil
}

// timeFrames runs fn iter times on a fresh copy of sats.
func timeFrames(sats []core.Satellite, fn func([]core.Satellite) error) (time.Duration, error) {
	work := core.CloneSatellites(sats)
	start := time.Now()
	for i := 0; i < *iter; i++ {
		if err := fn(work); err != nil {
			return 0, err
		}
	}
	return time.Since(start), nil
}

func eachEngine(workers []int, fn func(name string, e *bhruntime.Engine)) {
	for _, b := range bhruntime.Backends() {
		ws := workers
		if b == bhruntime.BackendSequential {
			ws = []int{1}
		}
		for _, w := range ws {
			e, err := bhruntime.NewEngine(&bhruntime.EngineOptions{Workers: w, Backend: b})
			if err != nil {
				fmt.Printf("%s/%d: %v\n", b, w, err)
				continue
			}
			fn(fmt.Sprintf("%s/%d", b, w), e)
			e.Close()
		}
	}
}

func runIntegrateTests(p core.Params, sats []core.Satellite, workers []int) {
	fmt.Printf("Satellite Moving Performance\n")
	fmt.Printf("----------------------------\n")

	base, err := timeFrames(sats, func(s []core.Satellite) error { return oracle.Integrate(s, p) })
	if err != nil {
		fmt.Printf("reference: %v\n", err)
		return
	}
	updates := float64(p.SatelliteCount) * float64(p.SubSteps) * float64(*iter)
	fmt.Printf("%-15s: %v (%.2f Mupdates/s)\n", "reference", base, updates/base.Seconds()/1e6)

	eachEngine(workers, func(name string, e *bhruntime.Engine) {
		d, err := timeFrames(sats, func(s []core.Satellite) error { return e.Integrate(s, p) })
		if err != nil {
			fmt.Printf("%-15s: %v\n", name, err)
			return
		}
		fmt.Printf("%-15s: %v (%.2f Mupdates/s, %.2fx)\n", name, d, updates/d.Seconds()/1e6, float64(base)/float64(d))
	})
	fmt.Printf("\n")
}

func runColorizeTests(p core.Params, sats []core.Satellite, workers []int) {
	fmt.Printf("Space Coloring Performance\n")
	fmt.Printf("--------------------------\n")

	f := core.NewFrame(p.Width, p.Height)
	base, err := timeFrames(sats, func(s []core.Satellite) error { return oracle.Colorize(s, f, p) })
	if err != nil {
		fmt.Printf("reference: %v\n", err)
		return
	}
	pixels := float64(p.Width*p.Height) * float64(*iter)
	fmt.Printf("%-15s: %v (%.2f Mpixels/s)\n", "reference", base, pixels/base.Seconds()/1e6)

	eachEngine(workers, func(name string, e *bhruntime.Engine) {
		d, err := timeFrames(sats, func(s []core.Satellite) error { return e.Colorize(s, f, p) })
		if err != nil {
			fmt.Printf("%-15s: %v\n", name, err)
			return
		}
		fmt.Printf("%-15s: %v (%.2f Mpixels/s, %.2fx)\n", name, d, pixels/d.Seconds()/1e6, float64(base)/float64(d))
	})
	fmt.Printf("\n")
}

// runVerifyTest checks one frame of every engine against the reference.
func runVerifyTest(p core.Params, sats []core.Satellite, workers []int) {
	fmt.Printf("Reference Agreement\n")
	fmt.Printf("-------------------\n")

	ref := core.CloneSatellites(sats)
	refFrame := core.NewFrame(p.Width, p.Height)
	if err := oracle.Integrate(ref, p); err != nil {
		fmt.Printf("reference: %v\n", err)
		return
	}
	if err := oracle.Colorize(ref, refFrame, p); err != nil {
		fmt.Printf("reference: %v\n", err)
		return
	}

	v, _ := verify.New(verify.DefaultTolerance)
	eachEngine(workers, func(name string, e *bhruntime.Engine) {
		par := core.CloneSatellites(sats)
		f := core.NewFrame(p.Width, p.Height)
		if err := e.Integrate(par, p); err != nil {
			fmt.Printf("%-15s: %v\n", name, err)
			return
		}
		if err := e.Colorize(par, f, p); err != nil {
			fmt.Printf("%-15s: %v\n", name, err)
			return
		}
		report := v.Verify(par, ref, f, refFrame)
		fmt.Printf("%-15s: %s\n", name, report)
		if *verbose && !report.OK() {
			for _, viol := range report.Violations {
				fmt.Printf("  %s\n", viol)
			}
		}
	})
	fmt.Printf("\n")
}
