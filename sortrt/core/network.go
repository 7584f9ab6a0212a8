package core

import "fmt"

// Order selects the direction of the finished sort along the linear index.
type Order int

const (
	// Ascending leaves the smallest z at index 0.
	Ascending Order = iota
	// Descending leaves the largest z at index 0. With clip-space depth this is
	// back-to-front draw order.
	Descending
)

func (o Order) String() string {
	if o == Descending {
		return "descending"
	}
	return "ascending"
}

// PassParams describes one compare-exchange pass of the bitonic network.
//
// Stepno is the block size that alternates sort direction, Offset is the
// distance between compared elements and Stage is the partner selection
// period (always 2*Offset).
type PassParams struct {
	Stepno int
	Offset int
	Stage  int
}

func (p PassParams) String() string {
	return fmt.Sprintf("stepno=%d offset=%d stage=%d", p.Stepno, p.Offset, p.Stage)
}

// Exceeds reports whether p lies past the end of the network for n elements.
// This is the only termination test used by the sort loops.
func (p PassParams) Exceeds(n int) bool {
	return p.Stepno > n
}

// DeriveNetworkParameters maps a flat pass counter to the pass triple.
//
// The counter is decomposed into (rank, d) by subtracting rank+1 for
// increasing rank; rank is the stage index and d the sub-stage index.
func DeriveNetworkParameters(step int) PassParams {
	rest := step
	rank := 0
	for ; rank < rest; rank++ {
		rest -= rank + 1
	}
	offset := 1 << (rank - rest)
	return PassParams{
		Stepno: 1 << (rank + 1),
		Offset: offset,
		Stage:  2 * offset,
	}
}

// Network enumerates every pass for n elements (n a power of two) as the
// classic nested loop: block size 2..n, comparison distance halving to 1.
// It yields the same triples in the same order as DeriveNetworkParameters.
func Network(n int) []PassParams {
	passes := make([]PassParams, 0, PassCount(n))
	for stepno := 2; stepno <= n; stepno <<= 1 {
		for offset := stepno >> 1; offset >= 1; offset >>= 1 {
			passes = append(passes, PassParams{Stepno: stepno, Offset: offset, Stage: 2 * offset})
		}
	}
	return passes
}

// PassCount is log2(n)·(log2(n)+1)/2.
func PassCount(n int) int {
	k := Log2(n)
	return k * (k + 1) / 2
}

// Partner returns the index element e is compared against and whether the
// partner sits above e (csign = +1).
func Partner(e int, p PassParams) (int, bool) {
	if e%p.Stage < p.Offset {
		return e + p.Offset, true
	}
	return e - p.Offset, false
}

// Forward reports cdir = +1 for element e.
func Forward(e int, p PassParams) bool {
	return (e/p.Stepno)%2 == 0
}

// SelectAt computes the value written to alternate[e] for one pass over src.
// It only reads src, so every index can be evaluated independently.
// When csign == cdir the element keeps the larger key for Descending and the
// smaller one for Ascending.
func SelectAt(src []Element, e int, p PassParams, order Order) Element {
	pi, up := Partner(e, p)
	pi %= len(src)
	a, b := src[e], src[pi]
	lo, hi := a, b
	if !Less(a, e, b, pi) {
		lo, hi = b, a
	}
	if (up == Forward(e, p)) == (order == Descending) {
		return hi
	}
	return lo
}
