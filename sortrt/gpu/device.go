// Package gpu runs grid sweeps as WebGPU compute dispatches.
//
// Grids live in storage buffers of vec4<f32>, laid out in linear index order
// (row v, column u). Every sweep is a single 8x8-workgroup dispatch over the
// radix x radix grid, submitted on its own so consecutive passes are ordered
// on the queue timeline.
package gpu

import (
	"errors"
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/gekko3d/depthsort/sortrt/core"
	"github.com/gekko3d/depthsort/sortrt/shaders"
)

// defaultStorageBindingSize is the WebGPU default maxStorageBufferBindingSize.
// Devices are requested without raised limits so this caps the grid size.
const defaultStorageBindingSize = 128 << 20

const (
	elementSize     = 16 // vec4<f32>
	gridParamsSize  = 32
	xformParamsSize = 80
	workgroupSide   = 8
)

var ErrUnsupported = errors.New("gpu: float storage buffers unavailable")

var _ core.Device = (*Device)(nil)

type Logger interface {
	Infof(format string, args ...any)
	Debugf(format string, args ...any)
}

type Options struct {
	PowerPreference wgpu.PowerPreference
	// MaxRadix is the largest grid the caller will allocate; it is validated
	// against the adapter limits at construction.
	MaxRadix int
	Logger   Logger
}

type kernel int

const (
	kernelCopy kernel = iota
	kernelTransform
	kernelBitonic
)

type bindKey struct {
	kernel kernel
	src    *wgpu.Buffer
	dst    *wgpu.Buffer
}

type Device struct {
	Instance *wgpu.Instance
	Adapter  *wgpu.Adapter
	Device   *wgpu.Device
	Queue    *wgpu.Queue

	CopyPipeline      *wgpu.ComputePipeline
	TransformPipeline *wgpu.ComputePipeline
	BitonicPipeline   *wgpu.ComputePipeline

	GridParamsBuf      *wgpu.Buffer
	TransformParamsBuf *wgpu.Buffer

	bindGroups map[bindKey]*wgpu.BindGroup
	maxBytes   uint64
	log        Logger
}

// NewDevice acquires a headless adapter and device and builds the compute
// pipelines. A missing adapter or an adapter that cannot bind a MaxRadix²
// grid is reported as ErrUnsupported.
func NewDevice(opts Options) (*Device, error) {
	if opts.PowerPreference == 0 {
		opts.PowerPreference = wgpu.PowerPreferenceHighPerformance
	}
	if opts.Logger == nil {
		opts.Logger = nopLogger{}
	}

	d := &Device{
		bindGroups: make(map[bindKey]*wgpu.BindGroup),
		log:        opts.Logger,
	}
	d.Instance = wgpu.CreateInstance(nil)

	adapter, err := d.Instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		PowerPreference: opts.PowerPreference,
	})
	if err != nil {
		d.Release()
		return nil, fmt.Errorf("%w: request adapter: %v", ErrUnsupported, err)
	}
	d.Adapter = adapter

	limits := adapter.GetLimits()
	d.maxBytes = min(uint64(limits.Limits.MaxStorageBufferBindingSize), defaultStorageBindingSize)
	if opts.MaxRadix > 0 {
		need := uint64(opts.MaxRadix) * uint64(opts.MaxRadix) * elementSize
		if need > d.maxBytes {
			d.Release()
			return nil, fmt.Errorf("%w: radix %d needs %d bytes, storage binding limit is %d",
				ErrUnsupported, opts.MaxRadix, need, d.maxBytes)
		}
	}

	d.Device, err = adapter.RequestDevice(&wgpu.DeviceDescriptor{
		Label:            "DepthSort Device",
		RequiredFeatures: nil,
		RequiredLimits:   nil,
	})
	if err != nil {
		d.Release()
		return nil, fmt.Errorf("%w: request device: %v", ErrUnsupported, err)
	}
	d.Queue = d.Device.GetQueue()

	if err := d.createPipelines(); err != nil {
		d.Release()
		return nil, err
	}
	if err := d.createParamBuffers(); err != nil {
		d.Release()
		return nil, err
	}

	d.log.Infof("gpu device ready (storage binding limit %d bytes)", d.maxBytes)
	return d, nil
}

func (d *Device) Name() string { return "gpu(webgpu)" }

func (d *Device) createPipeline(label, code string) (*wgpu.ComputePipeline, error) {
	module, err := d.Device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          label + " CS",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: code},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create %s shader module: %w", label, err)
	}
	defer module.Release()

	pipeline, err := d.Device.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
		Label: label + " Pipeline",
		Compute: wgpu.ProgrammableStageDescriptor{
			Module:     module,
			EntryPoint: "main",
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create %s pipeline: %w", label, err)
	}
	return pipeline, nil
}

func (d *Device) createPipelines() error {
	var err error
	if d.CopyPipeline, err = d.createPipeline("Copy", shaders.CopyWGSL); err != nil {
		return err
	}
	if d.TransformPipeline, err = d.createPipeline("Transform", shaders.TransformWGSL); err != nil {
		return err
	}
	if d.BitonicPipeline, err = d.createPipeline("Bitonic", shaders.BitonicWGSL); err != nil {
		return err
	}
	return nil
}

func (d *Device) createParamBuffers() error {
	var err error
	d.GridParamsBuf, err = d.Device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "GridParamsBuf",
		Size:  gridParamsSize,
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("failed to create grid params buffer: %w", err)
	}
	d.TransformParamsBuf, err = d.Device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "TransformParamsBuf",
		Size:  xformParamsSize,
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("failed to create transform params buffer: %w", err)
	}
	return nil
}

// Release frees every GPU object owned by the device. Buffers created by
// NewBuffer must be released by their owner first.
func (d *Device) Release() {
	for k, bg := range d.bindGroups {
		bg.Release()
		delete(d.bindGroups, k)
	}
	for _, buf := range []**wgpu.Buffer{&d.GridParamsBuf, &d.TransformParamsBuf} {
		if *buf != nil {
			(*buf).Release()
			*buf = nil
		}
	}
	for _, p := range []**wgpu.ComputePipeline{&d.CopyPipeline, &d.TransformPipeline, &d.BitonicPipeline} {
		if *p != nil {
			(*p).Release()
			*p = nil
		}
	}
	if d.Queue != nil {
		d.Queue.Release()
		d.Queue = nil
	}
	if d.Device != nil {
		d.Device.Release()
		d.Device = nil
	}
	if d.Adapter != nil {
		d.Adapter.Release()
		d.Adapter = nil
	}
	if d.Instance != nil {
		d.Instance.Release()
		d.Instance = nil
	}
}

type nopLogger struct{}

func (nopLogger) Infof(format string, args ...any)  {}
func (nopLogger) Debugf(format string, args ...any) {}
