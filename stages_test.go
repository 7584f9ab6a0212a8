package depthsort

import (
	"context"
	"testing"

	"github.com/gekko3d/depthsort/sortrt/cpu"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGrid(t *testing.T, dev *cpu.Device, name string, radix int) *Grid {
	t.Helper()
	g, err := NewGrid(dev, name, radix)
	require.NoError(t, err)
	t.Cleanup(g.Release)
	return g
}

func TestCopyStage_PadsWithZero(t *testing.T) {
	ctx := context.Background()
	dev := cpu.NewDevice(1)
	dst := newGrid(t, dev, "dst", 4)
	stage := NewCopyStage(nil)

	src := []Element{{1, 2, 3, 1}, {4, 5, 6, 1}}
	got, err := stage.Copy(ctx, src, dst)
	require.NoError(t, err)
	assert.Same(t, dst, got)
	assert.True(t, dst.NeedsUpload())

	out, err := dst.Read(ctx)
	require.NoError(t, err)
	assert.False(t, dst.NeedsUpload())
	require.Len(t, out, 16)
	assert.Equal(t, src, out[:2])
	for i, e := range out[2:] {
		assert.Equal(t, Element{}, e, "cell %d", i+2)
	}
}

func TestCopyStage_ExactFitIsUnchanged(t *testing.T) {
	ctx := context.Background()
	dst := newGrid(t, cpu.NewDevice(1), "dst", 2)
	src := []Element{{1, 1, 1, 1}, {2, 2, 2, 2}, {3, 3, 3, 3}, {4, 4, 4, 4}}

	_, err := NewCopyStage(nil).Copy(ctx, src, dst)
	require.NoError(t, err)
	out, err := dst.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, src, out)
}

func TestCopyStage_RejectsOversize(t *testing.T) {
	dst := newGrid(t, cpu.NewDevice(1), "dst", 2)
	_, err := NewCopyStage(nil).Copy(context.Background(), make([]Element, 5), dst)
	assert.ErrorIs(t, err, ErrSizeMismatch)
	assert.False(t, dst.NeedsUpload())
}

func TestCopyStage_CopyGrid(t *testing.T) {
	ctx := context.Background()
	dev := cpu.NewDevice(2)
	src := newGrid(t, dev, "src", 4)
	dst := newGrid(t, dev, "dst", 4)
	stage := NewCopyStage(nil)

	in := randomElements(16, 8)
	_, err := stage.Copy(ctx, in, src)
	require.NoError(t, err)
	_, err = stage.CopyGrid(ctx, src, dst)
	require.NoError(t, err)

	out, err := dst.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, in, out)

	_, err = stage.CopyGrid(ctx, src, src)
	assert.ErrorIs(t, err, ErrSizeMismatch)
}

func TestTransformStage_IdentityKeepsPositions(t *testing.T) {
	ctx := context.Background()
	dev := cpu.NewDevice(1)
	in := newGrid(t, dev, "in", 4)
	out := newGrid(t, dev, "out", 4)

	positions := RandomPositions(16, DefaultBounds, newRand(3))
	_, err := NewCopyStage(nil).Copy(ctx, positions, in)
	require.NoError(t, err)

	got, err := NewTransformStage(nil).Transform(ctx, in, mgl32.Ident4(), out)
	require.NoError(t, err)
	assert.Same(t, out, got)

	res, err := out.Read(ctx)
	require.NoError(t, err)
	for i := range positions {
		assert.Equal(t, positions[i].Vec3(), res[i].Vec3(), "cell %d", i)
		assert.Equal(t, float32(1), res[i][3])
	}
}

func TestTransformStage_IgnoresInputW(t *testing.T) {
	ctx := context.Background()
	dev := cpu.NewDevice(1)
	in := newGrid(t, dev, "in", 1)
	out := newGrid(t, dev, "out", 1)

	_, err := NewCopyStage(nil).Copy(ctx, []Element{{1, 2, 3, 0}}, in)
	require.NoError(t, err)
	_, err = NewTransformStage(nil).Transform(ctx, in, mgl32.Translate3D(10, 0, -1), out)
	require.NoError(t, err)

	res, err := out.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, Element{11, 2, 2, 1}, res[0])
}

func TestTransformStage_ShapeMismatch(t *testing.T) {
	dev := cpu.NewDevice(1)
	small := newGrid(t, dev, "small", 2)
	big := newGrid(t, dev, "big", 4)
	stage := NewTransformStage(nil)

	_, err := stage.Transform(context.Background(), small, mgl32.Ident4(), big)
	assert.ErrorIs(t, err, ErrSizeMismatch)

	other := newGrid(t, cpu.NewDevice(1), "other", 2)
	_, err = stage.Transform(context.Background(), small, mgl32.Ident4(), other)
	assert.ErrorIs(t, err, ErrSizeMismatch)
}

func TestTransformStage_CancelledLeavesOutput(t *testing.T) {
	dev := cpu.NewDevice(1)
	in := newGrid(t, dev, "in", 2)
	out := newGrid(t, dev, "out", 2)
	prev := []Element{{9, 9, 9, 9}}
	_, err := NewCopyStage(nil).Copy(context.Background(), prev, out)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = NewTransformStage(nil).Transform(ctx, in, mgl32.Ident4(), out)
	assert.ErrorIs(t, err, context.Canceled)

	res, err := out.Read(context.Background())
	require.NoError(t, err)
	assert.Equal(t, prev[0], res[0])
}

func TestGrid_ReleasedRejectsUse(t *testing.T) {
	g, err := NewGrid(cpu.NewDevice(1), "g", 2)
	require.NoError(t, err)
	g.Release()

	_, err = g.Read(context.Background())
	assert.ErrorIs(t, err, ErrReleased)
	_, err = NewCopyStage(nil).Copy(context.Background(), nil, g)
	assert.ErrorIs(t, err, ErrReleased)
}

func TestGrid_RejectsNonPowerOfTwo(t *testing.T) {
	_, err := NewGrid(cpu.NewDevice(1), "g", 6)
	assert.ErrorIs(t, err, ErrNotPowerOfTwo)
}
