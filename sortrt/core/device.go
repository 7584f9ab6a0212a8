package core

import (
	"context"

	"github.com/go-gl/mathgl/mgl32"
)

// Buffer is a device-resident square grid of Elements.
type Buffer interface {
	Label() string
	Radix() int
	Release()
}

// Device is the parallel compute surface that runs full-buffer sweeps.
//
// Every sweep reads src and writes dst; the two must be distinct buffers of
// the same radix. A sweep either completes or returns an error; ctx is checked
// before the sweep starts, never in the middle of one.
type Device interface {
	Name() string
	NewBuffer(label string, radix int) (Buffer, error)
	// Write uploads len(data) == Radix()² elements.
	Write(dst Buffer, data []Element) error
	// Read returns the buffer content in linear index order.
	Read(ctx context.Context, src Buffer) ([]Element, error)
	Copy(ctx context.Context, src, dst Buffer) error
	Transform(ctx context.Context, src Buffer, m mgl32.Mat4, dst Buffer) error
	Pass(ctx context.Context, src, dst Buffer, p PassParams, order Order) error
	Release()
}

// TransformAt computes m·(x, y, z, 1) for one element.
func TransformAt(e Element, m mgl32.Mat4) Element {
	return m.Mul4x1(mgl32.Vec4{e[0], e[1], e[2], 1})
}
