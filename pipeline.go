package depthsort

import (
	"context"
	"fmt"

	"github.com/gekko3d/depthsort/sortrt/core"
	"github.com/gekko3d/depthsort/sortrt/cpu"
	"github.com/go-gl/mathgl/mgl32"
)

// DefaultRadix gives 512x512 = 262144 particles.
const DefaultRadix = 512

// Pipeline is the per-frame chain: positions are transformed into the sort
// engine's live grid, which is then optionally sorted. The returned grid is
// what the draw stage samples through LookupCoords.
type Pipeline struct {
	dev        core.Device
	ownsDevice bool

	copy      *CopyStage
	transform *TransformStage
	positions *Grid
	sorter    *Engine

	frames int
	prof   *Profiler
	log    Logger
}

type PipelineBuilder struct {
	radix   int
	workers int
	order   Order
	dev     core.Device
	log     Logger
}

// NewPipelineBuilder starts from a DefaultRadix grid on a CPU device with
// back-to-front (Descending clip-space z) ordering.
func NewPipelineBuilder() *PipelineBuilder {
	return &PipelineBuilder{
		radix: DefaultRadix,
		order: Descending,
	}
}

func (b *PipelineBuilder) WithRadix(radix int) *PipelineBuilder {
	b.radix = radix
	return b
}

// WithDevice supplies the compute device. The pipeline does not release it.
func (b *PipelineBuilder) WithDevice(dev core.Device) *PipelineBuilder {
	b.dev = dev
	return b
}

// WithWorkers sizes the default CPU device; ignored when WithDevice is used.
func (b *PipelineBuilder) WithWorkers(workers int) *PipelineBuilder {
	b.workers = workers
	return b
}

func (b *PipelineBuilder) WithOrder(o Order) *PipelineBuilder {
	b.order = o
	return b
}

func (b *PipelineBuilder) WithLogger(l Logger) *PipelineBuilder {
	b.log = l
	return b
}

func (b *PipelineBuilder) Build() (*Pipeline, error) {
	if !core.IsPowerOfTwo(b.radix) {
		return nil, fmt.Errorf("%w: got %d", ErrNotPowerOfTwo, b.radix)
	}
	p := &Pipeline{
		dev:  b.dev,
		prof: NewProfiler(),
		log:  orNop(b.log),
	}
	if p.dev == nil {
		p.dev = cpu.NewDevice(b.workers)
		p.ownsDevice = true
	}
	p.copy = NewCopyStage(p.log)
	p.transform = NewTransformStage(p.log)

	var err error
	if p.positions, err = NewGrid(p.dev, "positions", b.radix); err != nil {
		p.Release()
		return nil, err
	}
	if p.sorter, err = NewEngine(p.dev, b.radix, WithOrder(b.order), WithLogger(p.log)); err != nil {
		p.Release()
		return nil, err
	}
	p.log.Infof("pipeline: %d particles on %s, %s", b.radix*b.radix, p.dev.Name(), b.order)
	return p, nil
}

func (p *Pipeline) Device() core.Device  { return p.dev }
func (p *Pipeline) Engine() *Engine      { return p.sorter }
func (p *Pipeline) Positions() *Grid     { return p.positions }
func (p *Pipeline) Frames() int          { return p.frames }
func (p *Pipeline) Profiler() *Profiler  { return p.prof }

// SetPositions seeds the position grid, zero-padding a short slice.
func (p *Pipeline) SetPositions(ctx context.Context, positions []Element) error {
	_, err := p.copy.Copy(ctx, positions, p.positions)
	return err
}

// Frame transforms every position by m into the sort engine and sorts when
// zSort is set. The returned grid stays valid until the next Frame.
func (p *Pipeline) Frame(ctx context.Context, m mgl32.Mat4, zSort bool) (*Grid, error) {
	p.prof.Begin("transform")
	err := p.sorter.Load(ctx, func(ctx context.Context, dst *Grid) error {
		_, err := p.transform.Transform(ctx, p.positions, m, dst)
		return err
	})
	p.prof.End("transform")
	if err != nil {
		return nil, err
	}

	grid := p.sorter.Live()
	if zSort {
		before := p.sorter.Passes()
		p.prof.Begin("sort")
		grid, err = p.sorter.SortAll(ctx)
		p.prof.End("sort")
		if err != nil {
			return nil, err
		}
		p.prof.SetCount("passes", p.sorter.Passes()-before)
	}
	p.frames++
	p.prof.EndFrame()
	return grid, nil
}

func (p *Pipeline) Release() {
	if p.sorter != nil {
		p.sorter.Release()
		p.sorter = nil
	}
	if p.positions != nil {
		p.positions.Release()
		p.positions = nil
	}
	if p.ownsDevice && p.dev != nil {
		p.dev.Release()
	}
	p.dev = nil
}
