package depthsort

import (
	"context"
	"testing"

	"github.com/gekko3d/depthsort/sortrt/core"
	"github.com/gekko3d/depthsort/sortrt/cpu"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPipeline(t *testing.T, radix int) *Pipeline {
	t.Helper()
	p, err := NewPipelineBuilder().WithRadix(radix).WithWorkers(2).Build()
	require.NoError(t, err)
	t.Cleanup(p.Release)
	return p
}

func TestPipelineBuilder_Defaults(t *testing.T) {
	b := NewPipelineBuilder()
	assert.Equal(t, DefaultRadix, b.radix)
	assert.Equal(t, Descending, b.order)

	p := newPipeline(t, 8)
	assert.Equal(t, Descending, p.Engine().Order())
	if dev, ok := p.Device().(*cpu.Device); assert.True(t, ok) {
		assert.Equal(t, 2, dev.Workers())
	}
}

func TestPipelineBuilder_RejectsBadRadix(t *testing.T) {
	_, err := NewPipelineBuilder().WithRadix(12).Build()
	assert.ErrorIs(t, err, ErrNotPowerOfTwo)
}

func TestPipeline_FrameSortsBackToFront(t *testing.T) {
	ctx := context.Background()
	p := newPipeline(t, 16)
	positions := RandomPositions(256, DefaultBounds, newRand(11))
	require.NoError(t, p.SetPositions(ctx, positions))

	m := NewCamera().Transform(1, mgl32.Ident4())
	grid, err := p.Frame(ctx, m, true)
	require.NoError(t, err)
	assert.Same(t, p.Engine().Live(), grid)
	assert.Equal(t, 1, p.Frames())

	out, err := grid.Read(ctx)
	require.NoError(t, err)
	for i := 1; i < len(out); i++ {
		require.GreaterOrEqual(t, out[i-1][2], out[i][2], "index %d", i)
	}

	want := make([]Element, len(positions))
	for i, pos := range positions {
		want[i] = core.TransformAt(pos, m)
	}
	assert.Equal(t, multiset(want), multiset(out))
}

func TestPipeline_FrameWithoutSort(t *testing.T) {
	ctx := context.Background()
	p := newPipeline(t, 4)
	positions := RandomPositions(10, DefaultBounds, newRand(5))
	require.NoError(t, p.SetPositions(ctx, positions))

	m := mgl32.Translate3D(0, 0, -25)
	grid, err := p.Frame(ctx, m, false)
	require.NoError(t, err)
	assert.Equal(t, 0, p.Engine().Passes())

	out, err := grid.Read(ctx)
	require.NoError(t, err)
	for i, pos := range positions {
		assert.Equal(t, core.TransformAt(pos, m), out[i], "cell %d", i)
	}
	// padded cells are transformed zero vectors
	assert.Equal(t, Element{0, 0, -25, 1}, out[15])
}

func TestPipeline_RepeatedFramesKeepPositions(t *testing.T) {
	ctx := context.Background()
	p := newPipeline(t, 4)
	require.NoError(t, p.SetPositions(ctx, RandomPositions(16, DefaultBounds, newRand(2))))

	cam := NewCamera()
	var first []Element
	for i := 0; i < 3; i++ {
		grid, err := p.Frame(ctx, cam.Transform(1, mgl32.Ident4()), true)
		require.NoError(t, err)
		out, err := grid.Read(ctx)
		require.NoError(t, err)
		if first == nil {
			first = out
			continue
		}
		assert.Equal(t, first, out, "frame %d", i)
	}
	assert.Equal(t, 3, p.Frames())
	assert.Equal(t, 3*core.PassCount(16), p.Engine().Passes())
}

func TestPipeline_SharedDeviceIsNotReleased(t *testing.T) {
	dev := cpu.NewDevice(1)
	p, err := NewPipelineBuilder().WithRadix(2).WithDevice(dev).Build()
	require.NoError(t, err)
	p.Release()

	g, err := NewGrid(dev, "after", 2)
	require.NoError(t, err)
	g.Release()
}

func TestPipeline_ProfilesFrames(t *testing.T) {
	ctx := context.Background()
	p := newPipeline(t, 4)
	require.NoError(t, p.SetPositions(ctx, RandomPositions(16, DefaultBounds, newRand(1))))

	_, err := p.Frame(ctx, mgl32.Ident4(), true)
	require.NoError(t, err)
	_, err = p.Frame(ctx, mgl32.Ident4(), false)
	require.NoError(t, err)

	prof := p.Profiler()
	assert.Equal(t, 2, prof.Frames())
	assert.Equal(t, core.PassCount(16), prof.Count("passes"))
	assert.Contains(t, prof.String(), "transform")
	assert.Contains(t, prof.String(), "sort")
}
