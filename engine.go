package depthsort

import (
	"context"
	"fmt"
	"time"

	"github.com/gekko3d/depthsort/sortrt/core"
)

// Engine sorts a radix x radix grid by the z component of its Elements with a
// bitonic network.
//
// The engine owns two grids. One is live and holds the authoritative state;
// each pass reads the live grid, writes the other one and then flips the live
// indicator. Only the live grid is ever handed out, and only between passes.
// An Engine is driven by a single owner and is not safe for concurrent use.
type Engine struct {
	radix int
	n     int
	dev   core.Device
	order Order

	grids [2]*Grid
	live  int

	passes int
	copy   *CopyStage
	log    Logger
}

type EngineOption func(*Engine)

// WithOrder selects the finished direction. The default is Ascending.
func WithOrder(o Order) EngineOption {
	return func(e *Engine) { e.order = o }
}

func WithLogger(l Logger) EngineOption {
	return func(e *Engine) { e.log = orNop(l) }
}

// NewEngine allocates both grids on dev. radix must be a power of two.
func NewEngine(dev core.Device, radix int, opts ...EngineOption) (*Engine, error) {
	if !core.IsPowerOfTwo(radix) {
		return nil, fmt.Errorf("%w: got %d", ErrNotPowerOfTwo, radix)
	}
	e := &Engine{
		radix: radix,
		n:     radix * radix,
		dev:   dev,
		order: Ascending,
		log:   NewNopLogger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.copy = NewCopyStage(e.log)

	var err error
	if e.grids[0], err = NewGrid(dev, "sort-current", radix); err != nil {
		return nil, err
	}
	if e.grids[1], err = NewGrid(dev, "sort-alternate", radix); err != nil {
		e.grids[0].Release()
		return nil, err
	}
	e.log.Debugf("engine: %dx%d grid (%d elements, %d passes) on %s",
		radix, radix, e.n, core.PassCount(e.n), dev.Name())
	return e, nil
}

func (e *Engine) Radix() int   { return e.radix }
func (e *Engine) Len() int     { return e.n }
func (e *Engine) Order() Order { return e.order }

// Passes is the number of passes applied since construction.
func (e *Engine) Passes() int { return e.passes }

// Live returns the grid holding the current state. The reference stays valid
// until the next pass.
func (e *Engine) Live() *Grid { return e.grids[e.live] }

func (e *Engine) alternate() *Grid { return e.grids[1-e.live] }

func (e *Engine) released() bool { return e.grids[0] == nil }

// Seed copies src into the live grid, zero-padding up to Len().
func (e *Engine) Seed(ctx context.Context, src []Element) error {
	if e.released() {
		return ErrReleased
	}
	_, err := e.copy.Copy(ctx, src, e.Live())
	return err
}

// Load lets a stage fill the live grid in place, typically
// TransformStage.Transform. The grid must not be retained by fill.
func (e *Engine) Load(ctx context.Context, fill func(ctx context.Context, dst *Grid) error) error {
	if e.released() {
		return ErrReleased
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return fill(ctx, e.Live())
}

// Read returns the live grid in linear index order.
func (e *Engine) Read(ctx context.Context) ([]Element, error) {
	if e.released() {
		return nil, ErrReleased
	}
	return e.Live().Read(ctx)
}

func (e *Engine) validate(p PassParams) error {
	ok := core.IsPowerOfTwo(p.Offset) && p.Stage == 2*p.Offset &&
		core.IsPowerOfTwo(p.Stepno) && p.Stage <= p.Stepno && p.Stepno <= e.n
	if !ok {
		return fmt.Errorf("%w: pass %v on %d elements", ErrInvalidPass, p, e.n)
	}
	return nil
}

// ApplyPass runs one compare-exchange sweep and swaps the grids. If the
// sweep fails the live grid is left as it was.
func (e *Engine) ApplyPass(ctx context.Context, p PassParams) error {
	if e.released() {
		return ErrReleased
	}
	if err := e.validate(p); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	cur, alt := e.Live(), e.alternate()
	if err := cur.sync(); err != nil {
		return err
	}
	if err := e.dev.Pass(ctx, cur.buf, alt.buf, p, e.order); err != nil {
		return fmt.Errorf("bitonic pass %d (%v): %w", e.passes, p, err)
	}
	alt.staged = nil
	alt.needsUpload = false
	e.live = 1 - e.live
	e.passes++
	return nil
}

// SortAll runs the whole network and returns the live grid, sorted by z in
// linear index order. Passes are derived from a flat counter until the block
// size exceeds Len(). Cancellation is honored between passes.
func (e *Engine) SortAll(ctx context.Context) (*Grid, error) {
	if e.released() {
		return nil, ErrReleased
	}
	start := time.Now()
	st := e.Steps()
	for st.Next(ctx) {
	}
	if err := st.Err(); err != nil {
		return nil, err
	}
	e.log.Debugf("engine: sorted %d elements %s in %d passes (%s)",
		e.n, e.order, st.Step(), time.Since(start))
	return e.Live(), nil
}

// Steps returns a fresh cursor over the network. Each Next applies one pass.
func (e *Engine) Steps() *Stepper {
	return &Stepper{eng: e}
}

func (e *Engine) Release() {
	for i, g := range e.grids {
		if g != nil {
			g.Release()
			e.grids[i] = nil
		}
	}
}
