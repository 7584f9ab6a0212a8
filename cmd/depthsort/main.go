// Command depthsort runs the particle depth sort headless and reports
// per-frame timing.
package main

import (
	"context"
	"flag"
	"math/rand"
	"os"
	"os/signal"
	"time"

	"github.com/gekko3d/depthsort"
	"github.com/gekko3d/depthsort/sortrt/core"
	"github.com/gekko3d/depthsort/sortrt/gpu"
	"github.com/go-gl/mathgl/mgl32"
)

func main() {
	var (
		radix   = flag.Int("radix", depthsort.DefaultRadix, "grid side; particles = radix*radix")
		backend = flag.String("backend", "cpu", "compute backend: cpu or gpu")
		frames  = flag.Int("frames", 60, "frames to run")
		workers = flag.Int("workers", 0, "cpu workers (0 = GOMAXPROCS)")
		debug   = flag.Bool("debug", false, "enable debug logging")
		noSort  = flag.Bool("nosort", false, "skip the depth sort")
		seed    = flag.Int64("seed", 1, "particle seed")
		pngOut  = flag.String("png", "", "write the last frame's depth map to this file")
	)
	flag.Parse()

	logger := depthsort.NewDefaultLogger("depthsort", *debug)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	b := depthsort.NewPipelineBuilder().
		WithRadix(*radix).
		WithWorkers(*workers).
		WithLogger(logger)

	switch *backend {
	case "cpu":
	case "gpu":
		dev, err := gpu.NewDevice(gpu.Options{MaxRadix: *radix, Logger: logger})
		if err != nil {
			logger.Errorf("failed to open gpu device: %v", err)
			os.Exit(1)
		}
		defer dev.Release()
		b = b.WithDevice(dev)
	default:
		logger.Errorf("unknown backend %q", *backend)
		os.Exit(2)
	}

	if err := run(ctx, b, logger, *frames, !*noSort, *seed, *pngOut); err != nil {
		logger.Errorf("%v", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, b *depthsort.PipelineBuilder, logger depthsort.Logger, frames int, zSort bool, seed int64, pngOut string) error {
	p, err := b.Build()
	if err != nil {
		return err
	}
	defer p.Release()

	radix := p.Engine().Radix()
	positions := depthsort.RandomPositions(radix*radix, depthsort.DefaultBounds, rand.New(rand.NewSource(seed)))
	if err := p.SetPositions(ctx, positions); err != nil {
		return err
	}

	cam := depthsort.NewCamera()
	var (
		grid  *depthsort.Grid
		total time.Duration
	)
	for i := 0; i < frames; i++ {
		cam.Orbit(0.01, 0)
		start := time.Now()
		grid, err = p.Frame(ctx, cam.Transform(1, mgl32.Ident4()), zSort)
		if err != nil {
			return err
		}
		dt := time.Since(start)
		total += dt
		logger.Debugf("frame %d: %s", i, dt)
	}
	if frames > 0 {
		logger.Infof("%d frames, %d particles, %d passes/frame, avg %s",
			frames, radix*radix, core.PassCount(radix*radix), total/time.Duration(frames))
		logger.Debugf("%s", p.Profiler())
	}

	if pngOut == "" || grid == nil {
		return nil
	}
	elems, err := grid.Read(ctx)
	if err != nil {
		return err
	}
	f, err := os.Create(pngOut)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := depthsort.WriteDepthPNG(f, elems, radix, max(1, 1024/radix)); err != nil {
		return err
	}
	logger.Infof("depth map written to %s", pngOut)
	return nil
}
