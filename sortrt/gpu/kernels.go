package gpu

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/gekko3d/depthsort/sortrt/core"
	"github.com/go-gl/mathgl/mgl32"
)

func (d *Device) Copy(ctx context.Context, src, dst core.Buffer) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s, t, err := d.pair(src, dst)
	if err != nil {
		return err
	}
	d.Queue.WriteBuffer(d.GridParamsBuf, 0, encodeGridParams(s.radix, core.PassParams{}, core.Ascending))
	return d.dispatch(kernelCopy, s, t)
}

func (d *Device) Transform(ctx context.Context, src core.Buffer, m mgl32.Mat4, dst core.Buffer) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s, t, err := d.pair(src, dst)
	if err != nil {
		return err
	}
	d.Queue.WriteBuffer(d.TransformParamsBuf, 0, encodeTransformParams(s.radix, m))
	return d.dispatch(kernelTransform, s, t)
}

func (d *Device) Pass(ctx context.Context, src, dst core.Buffer, p core.PassParams, order core.Order) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s, t, err := d.pair(src, dst)
	if err != nil {
		return err
	}
	d.Queue.WriteBuffer(d.GridParamsBuf, 0, encodeGridParams(s.radix, p, order))
	return d.dispatch(kernelBitonic, s, t)
}

func (d *Device) pipeline(k kernel) (*wgpu.ComputePipeline, *wgpu.Buffer, string) {
	switch k {
	case kernelTransform:
		return d.TransformPipeline, d.TransformParamsBuf, "Transform"
	case kernelBitonic:
		return d.BitonicPipeline, d.GridParamsBuf, "Bitonic"
	default:
		return d.CopyPipeline, d.GridParamsBuf, "Copy"
	}
}

func (d *Device) bindGroup(k kernel, src, dst *Buffer) (*wgpu.BindGroup, error) {
	key := bindKey{kernel: k, src: src.Buf, dst: dst.Buf}
	if bg, ok := d.bindGroups[key]; ok {
		return bg, nil
	}
	pipeline, params, label := d.pipeline(k)
	bg, err := d.Device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  fmt.Sprintf("%s %s->%s", label, src.label, dst.label),
		Layout: pipeline.GetBindGroupLayout(0),
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: src.Buf, Size: wgpu.WholeSize},
			{Binding: 1, Buffer: dst.Buf, Size: wgpu.WholeSize},
			{Binding: 2, Buffer: params, Size: wgpu.WholeSize},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create %s bind group: %w", label, err)
	}
	d.bindGroups[key] = bg
	return bg, nil
}

// dispatch records and submits one full-grid sweep.
func (d *Device) dispatch(k kernel, src, dst *Buffer) error {
	bg, err := d.bindGroup(k, src, dst)
	if err != nil {
		return err
	}
	pipeline, _, label := d.pipeline(k)

	encoder, err := d.Device.CreateCommandEncoder(nil)
	if err != nil {
		return fmt.Errorf("failed to create %s encoder: %w", label, err)
	}
	defer encoder.Release()

	groups := (uint32(src.radix) + workgroupSide - 1) / workgroupSide
	computePass := encoder.BeginComputePass(nil)
	computePass.SetPipeline(pipeline)
	computePass.SetBindGroup(0, bg, nil)
	computePass.DispatchWorkgroups(groups, groups, 1)
	computePass.End()
	computePass.Release()

	cmdBuf, err := encoder.Finish(nil)
	if err != nil {
		return fmt.Errorf("failed to finish %s encoder: %w", label, err)
	}
	d.Queue.Submit(cmdBuf)
	cmdBuf.Release()
	return nil
}

// GridParams {
//   radix, stepno, offset, stage: u32; -- 16
//   descending: u32;                   -- 20
// } -> 32 bytes (padded)
func encodeGridParams(radix int, p core.PassParams, order core.Order) []byte {
	buf := make([]byte, gridParamsSize)
	binary.LittleEndian.PutUint32(buf[0:], uint32(radix))
	binary.LittleEndian.PutUint32(buf[4:], uint32(p.Stepno))
	binary.LittleEndian.PutUint32(buf[8:], uint32(p.Offset))
	binary.LittleEndian.PutUint32(buf[12:], uint32(p.Stage))
	if order == core.Descending {
		binary.LittleEndian.PutUint32(buf[16:], 1)
	}
	return buf
}

// TransformParams {
//   transform: mat4x4<f32>; -- 64, column major like mgl32
//   radix: u32;             -- 68
// } -> 80 bytes (padded)
func encodeTransformParams(radix int, m mgl32.Mat4) []byte {
	buf := make([]byte, xformParamsSize)
	for i, v := range m {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	binary.LittleEndian.PutUint32(buf[64:], uint32(radix))
	return buf
}
