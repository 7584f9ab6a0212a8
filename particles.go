package depthsort

import (
	"math/rand"

	"github.com/gekko3d/depthsort/sortrt/core"
	"github.com/go-gl/mathgl/mgl32"
)

// Bounds is an axis-aligned box particles are scattered in.
type Bounds struct {
	Min, Max mgl32.Vec3
}

// DefaultBounds is the 10-unit cube centred on the origin.
var DefaultBounds = Bounds{
	Min: mgl32.Vec3{-5, -5, -5},
	Max: mgl32.Vec3{5, 5, 5},
}

// RandomPositions returns n positions uniformly distributed in b with w = 1.
func RandomPositions(n int, b Bounds, rng *rand.Rand) []Element {
	size := b.Max.Sub(b.Min)
	out := make([]Element, n)
	for i := range out {
		out[i] = Element{
			rng.Float32()*size[0] + b.Min[0],
			rng.Float32()*size[1] + b.Min[1],
			rng.Float32()*size[2] + b.Min[2],
			1,
		}
	}
	return out
}

// LookupCoords returns the per-particle texel-centre coordinate for every
// cell of a radix x radix grid. Draw index i must read cell CellOf(i, radix);
// this is the table the draw stage bakes into its particle geometry.
func LookupCoords(radix int) []mgl32.Vec2 {
	n := radix * radix
	out := make([]mgl32.Vec2, n)
	for i := range out {
		out[i] = core.LookupCoord(i, radix)
	}
	return out
}
