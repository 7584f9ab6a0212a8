package depthsort

import (
	"math/rand"
	"testing"

	"github.com/gekko3d/depthsort/sortrt/core"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRand(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}

func TestRandomPositions_InsideBounds(t *testing.T) {
	b := Bounds{Min: mgl32.Vec3{-1, 0, 10}, Max: mgl32.Vec3{1, 4, 12}}
	pos := RandomPositions(1000, b, newRand(1))
	require.Len(t, pos, 1000)
	for i, p := range pos {
		for a := 0; a < 3; a++ {
			if p[a] < b.Min[a] || p[a] >= b.Max[a] {
				t.Fatalf("position %d axis %d = %v outside [%v, %v)", i, a, p[a], b.Min[a], b.Max[a])
			}
		}
		assert.Equal(t, float32(1), p[3])
	}
}

func TestRandomPositions_Deterministic(t *testing.T) {
	a := RandomPositions(64, DefaultBounds, newRand(7))
	b := RandomPositions(64, DefaultBounds, newRand(7))
	assert.Equal(t, a, b)
}

func TestLookupCoords(t *testing.T) {
	coords := LookupCoords(4)
	require.Len(t, coords, 16)
	assert.Equal(t, mgl32.Vec2{0.125, 0.125}, coords[0])
	assert.Equal(t, mgl32.Vec2{0.875, 0.125}, coords[3])
	assert.Equal(t, mgl32.Vec2{0.125, 0.375}, coords[4])
	assert.Equal(t, mgl32.Vec2{0.875, 0.875}, coords[15])

	for i, c := range coords {
		cell := core.CellOf(i, 4)
		assert.Equal(t, cell.U, int(c[0]*4), "u of %d", i)
		assert.Equal(t, cell.V, int(c[1]*4), "v of %d", i)
	}
}
