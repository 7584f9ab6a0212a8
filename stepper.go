package depthsort

import (
	"context"

	"github.com/gekko3d/depthsort/sortrt/core"
)

// Stepper walks the bitonic network one pass at a time so callers can
// interleave other work or stop early. It derives each pass from its own
// counter and ends when the derived block size exceeds the element count.
//
//	st := eng.Steps()
//	for st.Next(ctx) {
//		draw(st.Grid())
//	}
//	if err := st.Err(); err != nil { ... }
type Stepper struct {
	eng    *Engine
	step   int
	params PassParams
	grid   *Grid
	done   bool
	err    error
}

// Next applies the next pass. It returns false once the network is complete
// or a pass failed; Err tells the two apart.
func (s *Stepper) Next(ctx context.Context) bool {
	if s.done || s.err != nil {
		return false
	}
	p := core.DeriveNetworkParameters(s.step)
	if p.Exceeds(s.eng.n) {
		s.done = true
		return false
	}
	if err := s.eng.ApplyPass(ctx, p); err != nil {
		s.err = err
		return false
	}
	s.params = p
	s.grid = s.eng.Live()
	s.step++
	return true
}

// Grid is the live grid after the last successful Next.
func (s *Stepper) Grid() *Grid { return s.grid }

// Params are the parameters of the last applied pass.
func (s *Stepper) Params() PassParams { return s.params }

// Step is the number of passes this cursor has applied.
func (s *Stepper) Step() int { return s.step }

func (s *Stepper) Done() bool { return s.done }
func (s *Stepper) Err() error { return s.err }

// Remaining is the number of passes left before the network completes.
func (s *Stepper) Remaining() int {
	return max(core.PassCount(s.eng.n)-s.step, 0)
}
