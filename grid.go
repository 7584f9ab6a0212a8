package depthsort

import (
	"context"
	"fmt"

	"github.com/gekko3d/depthsort/sortrt/core"
	"github.com/google/uuid"
)

type (
	Element    = core.Element
	Cell       = core.Cell
	PassParams = core.PassParams
	Order      = core.Order
)

const (
	Ascending  = core.Ascending
	Descending = core.Descending
)

// Grid is a square device buffer of Radix()² Elements addressed through the
// linear→cell mapping of core.CellOf.
//
// Host data written by the copy stage is staged and uploaded before the grid's
// next device use.
type Grid struct {
	id    uuid.UUID
	name  string
	radix int
	dev   core.Device
	buf   core.Buffer

	staged      []Element
	needsUpload bool
}

// NewGrid allocates a radix x radix grid on dev.
func NewGrid(dev core.Device, name string, radix int) (*Grid, error) {
	if !core.IsPowerOfTwo(radix) {
		return nil, fmt.Errorf("%w: got %d", ErrNotPowerOfTwo, radix)
	}
	id := uuid.New()
	buf, err := dev.NewBuffer(fmt.Sprintf("%s %s", name, id), radix)
	if err != nil {
		return nil, fmt.Errorf("allocate grid %s: %w", name, err)
	}
	return &Grid{id: id, name: name, radix: radix, dev: dev, buf: buf}, nil
}

func (g *Grid) ID() uuid.UUID       { return g.id }
func (g *Grid) Name() string        { return g.name }
func (g *Grid) Radix() int          { return g.radix }
func (g *Grid) Len() int            { return g.radix * g.radix }
func (g *Grid) Buffer() core.Buffer { return g.buf }
func (g *Grid) NeedsUpload() bool   { return g.needsUpload }

func (g *Grid) String() string {
	return fmt.Sprintf("%s(%dx%d %s)", g.name, g.radix, g.radix, g.id)
}

func (g *Grid) stage(data []Element) {
	g.staged = data
	g.needsUpload = true
}

// sync pushes staged host data to the device.
func (g *Grid) sync() error {
	if g.buf == nil {
		return fmt.Errorf("%w: grid %s", ErrReleased, g.name)
	}
	if !g.needsUpload {
		return nil
	}
	if err := g.dev.Write(g.buf, g.staged); err != nil {
		return fmt.Errorf("upload grid %s: %w", g.name, err)
	}
	g.staged = nil
	g.needsUpload = false
	return nil
}

// Read returns the grid content in linear index order.
func (g *Grid) Read(ctx context.Context) ([]Element, error) {
	if err := g.sync(); err != nil {
		return nil, err
	}
	return g.dev.Read(ctx, g.buf)
}

func (g *Grid) Release() {
	if g.buf != nil {
		g.buf.Release()
		g.buf = nil
	}
	g.staged = nil
	g.needsUpload = false
}

func sameShape(a, b *Grid) error {
	if a.dev != b.dev {
		return fmt.Errorf("%w: %s and %s live on different devices", ErrSizeMismatch, a.name, b.name)
	}
	if a.radix != b.radix {
		return fmt.Errorf("%w: %s is %d wide, %s is %d wide", ErrSizeMismatch, a.name, a.radix, b.name, b.radix)
	}
	if a == b {
		return fmt.Errorf("%w: %s read and written in one sweep", ErrSizeMismatch, a.name)
	}
	return nil
}
