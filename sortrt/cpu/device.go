// Package cpu runs grid sweeps on goroutines.
//
// Each sweep is split into contiguous index chunks, one goroutine per chunk,
// bounded by the configured worker count. errgroup.Wait is the barrier that
// separates consecutive passes.
package cpu

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"github.com/gekko3d/depthsort/sortrt/core"
	"github.com/go-gl/mathgl/mgl32"
	"golang.org/x/sync/errgroup"
)

// minChunk keeps tiny grids from being split into goroutine-sized slivers.
const minChunk = 1024

var ErrForeignBuffer = errors.New("cpu: buffer does not belong to this device")

var _ core.Device = (*Device)(nil)

type Buffer struct {
	label    string
	radix    int
	data     []core.Element
	owner    *Device
	released bool
}

func (b *Buffer) Label() string { return b.label }
func (b *Buffer) Radix() int    { return b.radix }

func (b *Buffer) Release() {
	b.released = true
	b.data = nil
}

type Device struct {
	workers int
}

// NewDevice creates a CPU device. If workers is 0 or negative, GOMAXPROCS is used.
func NewDevice(workers int) *Device {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Device{workers: workers}
}

func (d *Device) Name() string { return fmt.Sprintf("cpu(%d workers)", d.workers) }

func (d *Device) Workers() int { return d.workers }

func (d *Device) NewBuffer(label string, radix int) (core.Buffer, error) {
	if !core.IsPowerOfTwo(radix) {
		return nil, fmt.Errorf("cpu: radix %d is not a power of two", radix)
	}
	return &Buffer{
		label: label,
		radix: radix,
		data:  make([]core.Element, radix*radix),
		owner: d,
	}, nil
}

func (d *Device) own(b core.Buffer) (*Buffer, error) {
	cb, ok := b.(*Buffer)
	if !ok || cb.owner != d {
		return nil, ErrForeignBuffer
	}
	if cb.released {
		return nil, fmt.Errorf("cpu: buffer %q already released", cb.label)
	}
	return cb, nil
}

func (d *Device) pair(src, dst core.Buffer) (*Buffer, *Buffer, error) {
	s, err := d.own(src)
	if err != nil {
		return nil, nil, err
	}
	t, err := d.own(dst)
	if err != nil {
		return nil, nil, err
	}
	if s == t {
		return nil, nil, fmt.Errorf("cpu: sweep reads and writes %q", s.label)
	}
	if s.radix != t.radix {
		return nil, nil, fmt.Errorf("cpu: radix mismatch %d != %d", s.radix, t.radix)
	}
	return s, t, nil
}

func (d *Device) Write(dst core.Buffer, data []core.Element) error {
	b, err := d.own(dst)
	if err != nil {
		return err
	}
	if len(data) != len(b.data) {
		return fmt.Errorf("cpu: write of %d elements into %q (%d)", len(data), b.label, len(b.data))
	}
	copy(b.data, data)
	return nil
}

func (d *Device) Read(ctx context.Context, src core.Buffer) ([]core.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b, err := d.own(src)
	if err != nil {
		return nil, err
	}
	return append([]core.Element(nil), b.data...), nil
}

func (d *Device) Copy(ctx context.Context, src, dst core.Buffer) error {
	s, t, err := d.pair(src, dst)
	if err != nil {
		return err
	}
	return d.sweep(ctx, len(s.data), func(lo, hi int) {
		copy(t.data[lo:hi], s.data[lo:hi])
	})
}

func (d *Device) Transform(ctx context.Context, src core.Buffer, m mgl32.Mat4, dst core.Buffer) error {
	s, t, err := d.pair(src, dst)
	if err != nil {
		return err
	}
	return d.sweep(ctx, len(s.data), func(lo, hi int) {
		for i := lo; i < hi; i++ {
			t.data[i] = core.TransformAt(s.data[i], m)
		}
	})
}

func (d *Device) Pass(ctx context.Context, src, dst core.Buffer, p core.PassParams, order core.Order) error {
	s, t, err := d.pair(src, dst)
	if err != nil {
		return err
	}
	return d.sweep(ctx, len(s.data), func(lo, hi int) {
		for e := lo; e < hi; e++ {
			t.data[e] = core.SelectAt(s.data, e, p, order)
		}
	})
}

// Release is a no-op; buffers are garbage collected.
func (d *Device) Release() {}

// sweep runs fn over [0, n) in chunks. Cancellation is only observed before
// the first chunk is scheduled so a started sweep always completes.
func (d *Device) sweep(ctx context.Context, n int, fn func(lo, hi int)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	chunk := (n + d.workers - 1) / d.workers
	if chunk < minChunk {
		chunk = minChunk
	}
	if chunk >= n {
		fn(0, n)
		return nil
	}

	var g errgroup.Group
	g.SetLimit(d.workers)
	for lo := 0; lo < n; lo += chunk {
		hi := min(lo+chunk, n)
		g.Go(func() error {
			fn(lo, hi)
			return nil
		})
	}
	return g.Wait()
}
