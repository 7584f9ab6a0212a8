package core

import (
	"math/bits"

	"github.com/go-gl/mathgl/mgl32"
)

// Element is one buffer cell: (x, y, z, w).
// In a position buffer xyz is the world position and w is 1.
// In a transformed buffer z is the depth used as sort key.
type Element = mgl32.Vec4

// Cell addresses one texel of a square grid.
type Cell struct {
	U, V int
}

// CellOf maps linear index i to its grid cell for a grid of side radix.
func CellOf(i, radix int) Cell {
	return Cell{U: i % radix, V: i / radix}
}

// IndexOf is the inverse of CellOf.
func IndexOf(c Cell, radix int) int {
	return c.U + c.V*radix
}

// LookupCoord returns the normalized texel-center coordinate the draw stage
// uses to fetch particle i from the grid.
func LookupCoord(i, radix int) mgl32.Vec2 {
	c := CellOf(i, radix)
	half := 0.5 / float32(radix)
	return mgl32.Vec2{
		float32(c.U)/float32(radix) + half,
		float32(c.V)/float32(radix) + half,
	}
}

func IsPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}

// Log2 returns log2(n) for a power of two n.
func Log2(n int) int {
	return bits.TrailingZeros(uint(n))
}

// Pad copies src into a new slice of length n, zero-filling missing entries.
// Entries past n are ignored; callers validate length beforehand.
func Pad(src []Element, n int) []Element {
	out := make([]Element, n)
	copy(out, src)
	return out
}

// Less orders a (at index ia) before b (at index ib) by z.
// Equal or unordered keys fall back to the index so both halves of a
// compare-exchange pair agree on which element is the lower one.
func Less(a Element, ia int, b Element, ib int) bool {
	if a[2] < b[2] {
		return true
	}
	if b[2] < a[2] {
		return false
	}
	return ia < ib
}
