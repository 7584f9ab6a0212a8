package gpu

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/gekko3d/depthsort/sortrt/core"
)

var ErrForeignBuffer = errors.New("gpu: buffer does not belong to this device")

// Buffer is a storage buffer holding radix² vec4<f32> elements.
type Buffer struct {
	label string
	radix int
	Buf   *wgpu.Buffer
	owner *Device
}

func (b *Buffer) Label() string { return b.label }
func (b *Buffer) Radix() int    { return b.radix }

func (b *Buffer) Release() {
	if b.Buf == nil {
		return
	}
	if b.owner != nil {
		b.owner.forget(b.Buf)
	}
	b.Buf.Release()
	b.Buf = nil
}

func (d *Device) NewBuffer(label string, radix int) (core.Buffer, error) {
	if !core.IsPowerOfTwo(radix) {
		return nil, fmt.Errorf("gpu: radix %d is not a power of two", radix)
	}
	size := uint64(radix) * uint64(radix) * elementSize
	if size > d.maxBytes {
		return nil, fmt.Errorf("%w: %q needs %d bytes, limit is %d", ErrUnsupported, label, size, d.maxBytes)
	}
	buf, err := d.Device.CreateBuffer(&wgpu.BufferDescriptor{
		Label:            label,
		Size:             size,
		Usage:            wgpu.BufferUsageStorage | wgpu.BufferUsageCopyDst | wgpu.BufferUsageCopySrc,
		MappedAtCreation: false,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create grid buffer %q: %w", label, err)
	}
	return &Buffer{label: label, radix: radix, Buf: buf, owner: d}, nil
}

// forget drops cached bind groups that reference buf.
func (d *Device) forget(buf *wgpu.Buffer) {
	for k, bg := range d.bindGroups {
		if k.src == buf || k.dst == buf {
			bg.Release()
			delete(d.bindGroups, k)
		}
	}
}

func (d *Device) own(b core.Buffer) (*Buffer, error) {
	gb, ok := b.(*Buffer)
	if !ok || gb.owner != d {
		return nil, ErrForeignBuffer
	}
	if gb.Buf == nil {
		return nil, fmt.Errorf("gpu: buffer %q already released", gb.label)
	}
	return gb, nil
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
		return nil, nil, fmt.Errorf("gpu: sweep reads and writes %q", s.label)
	}
	if s.radix != t.radix {
		return nil, nil, fmt.Errorf("gpu: radix mismatch %d != %d", s.radix, t.radix)
	}
	return s, t, nil
}

func (d *Device) Write(dst core.Buffer, data []core.Element) error {
	b, err := d.own(dst)
	if err != nil {
		return err
	}
	if len(data) != b.radix*b.radix {
		return fmt.Errorf("gpu: write of %d elements into %q (%d)", len(data), b.label, b.radix*b.radix)
	}
	d.Queue.WriteBuffer(b.Buf, 0, encodeElements(data))
	return nil
}

// Read copies src into a mappable staging buffer and blocks until the map
// completes.
func (d *Device) Read(ctx context.Context, src core.Buffer) ([]core.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b, err := d.own(src)
	if err != nil {
		return nil, err
	}
	size := b.Buf.GetSize()

	staging, err := d.Device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: b.label + " Readback",
		Size:  size,
		Usage: wgpu.BufferUsageCopyDst | wgpu.BufferUsageMapRead,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readback buffer: %w", err)
	}
	defer staging.Release()

	encoder, err := d.Device.CreateCommandEncoder(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create readback encoder: %w", err)
	}
	encoder.CopyBufferToBuffer(b.Buf, 0, staging, 0, size)
	cmdBuf, err := encoder.Finish(nil)
	encoder.Release()
	if err != nil {
		return nil, fmt.Errorf("failed to finish readback encoder: %w", err)
	}
	d.Queue.Submit(cmdBuf)
	cmdBuf.Release()

	mapped := make(chan wgpu.BufferMapAsyncStatus, 1)
	staging.MapAsync(wgpu.MapModeRead, 0, size, func(status wgpu.BufferMapAsyncStatus) {
		mapped <- status
	})

	var status wgpu.BufferMapAsyncStatus
	for waiting := true; waiting; {
		d.Device.Poll(true, nil)
		select {
		case status = <-mapped:
			waiting = false
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
	}
	if status != wgpu.BufferMapAsyncStatusSuccess {
		return nil, fmt.Errorf("gpu: map %q failed with status %v", b.label, status)
	}

	out := decodeElements(staging.GetMappedRange(0, uint(size)))
	staging.Unmap()
	return out, nil
}

func encodeElements(data []core.Element) []byte {
	buf := make([]byte, len(data)*elementSize)
	for i, e := range data {
		off := i * elementSize
		for c := 0; c < 4; c++ {
			binary.LittleEndian.PutUint32(buf[off+c*4:], math.Float32bits(e[c]))
		}
	}
	return buf
}

func decodeElements(raw []byte) []core.Element {
	out := make([]core.Element, len(raw)/elementSize)
	for i := range out {
		off := i * elementSize
		for c := 0; c < 4; c++ {
			out[i][c] = math.Float32frombits(binary.LittleEndian.Uint32(raw[off+c*4:]))
		}
	}
	return out
}
