// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package softdevice implements gpucore.Device on the CPU.
//
// Buffers, transfer buffers and textures are plain byte slices; copy passes
// are memcpy. Compute dispatches run a Go kernel registered for the
// pipeline's code (see WithKernel); dispatches of unregistered code are
// recorded but touch no data. Command buffers execute at Submit, so
// submission order is execution order.
//
// The device tracks live resources, records every dispatch, and can be
// told to fail the nth call of an operation, which makes it the test double
// for gpucore.Device.
package softdevice

import (
	"fmt"
	"slices"
	"sync"

	"github.com/gogpu/gpuflow"
	"github.com/gogpu/gpuflow/gpucore"
	"github.com/gogpu/gpuflow/kernels"
)

// Op names a device operation for fault injection and call logging.
type Op string

const (
	OpCreateComputePipeline Op = "CreateComputePipeline"
	OpCreateBuffer          Op = "CreateBuffer"
	OpCreateTransferBuffer  Op = "CreateTransferBuffer"
	OpCreateTexture         Op = "CreateTexture"
	OpCreateSampler         Op = "CreateSampler"
	OpAcquireCommandBuffer  Op = "AcquireCommandBuffer"
	OpSubmit                Op = "Submit"
)

// Kernel is a CPU implementation of a compute kernel.
type Kernel func(d *Dispatch) error

// Dispatch is the state visible to a Kernel for one dispatch.
type Dispatch struct {
	Groups   [3]uint32
	Threads  [3]uint32
	Uniforms map[uint32][]byte
	Samplers []kernels.Sampler2D
	Storage  [][]byte
}

// DispatchRecord describes a recorded dispatch.
type DispatchRecord struct {
	Pipeline gpucore.ComputePipelineID
	Groups   [3]uint32
	Uniforms map[uint32][]byte
	Storage  []gpucore.BufferID
	Samplers []gpucore.TextureSamplerBinding
}

// LiveCounts is the number of unreleased resources per kind.
type LiveCounts struct {
	Pipelines       int
	Buffers         int
	TransferBuffers int
	Textures        int
	Samplers        int
}

// Total returns the number of unreleased resources.
func (c LiveCounts) Total() int {
	return c.Pipelines + c.Buffers + c.TransferBuffers + c.Textures + c.Samplers
}

type pipeline struct {
	desc   gpucore.ComputePipelineDesc
	kernel Kernel
}

type buffer struct {
	desc gpucore.BufferDesc
	data []byte
}

type transferBuffer struct {
	desc gpucore.TransferBufferDesc
	data []byte
}

type texture struct {
	desc gpucore.TextureDesc
	pix  []byte
}

// Device is a CPU implementation of gpucore.Device.
type Device struct {
	mu     sync.Mutex
	driver string
	nextID uint64

	kernels map[kernels.Hash]Kernel

	pipelines       map[gpucore.ComputePipelineID]*pipeline
	buffers         map[gpucore.BufferID]*buffer
	transferBuffers map[gpucore.TransferBufferID]*transferBuffer
	textures        map[gpucore.TextureID]*texture
	samplers        map[gpucore.SamplerID]gpucore.SamplerDesc

	failAt   map[Op]int
	opCount  map[Op]int
	calls    []Op
	records  []DispatchRecord
	submits  int
	badFrees int
}

var _ gpucore.Device = (*Device)(nil)

// Option configures a Device.
type Option func(*Device)

// WithDriver sets the name returned by Driver. The default is "software".
func WithDriver(name string) Option {
	return func(d *Device) { d.driver = name }
}

// WithKernel registers k as the CPU implementation of pipelines built
// from code.
func WithKernel(code []byte, k Kernel) Option {
	return func(d *Device) { d.kernels[kernels.HashOf(code)] = k }
}

// WithTessellateKernel registers the CPU reference of the grid
// displacement kernel for pipelines built from code.
func WithTessellateKernel(code []byte) Option {
	return WithKernel(code, TessellateKernel)
}

// FailNth makes the nth call (1-based) of op fail.
func FailNth(op Op, n int) Option {
	return func(d *Device) { d.failAt[op] = n }
}

// New creates a CPU device.
func New(opts ...Option) *Device {
	d := &Device{
		driver:          gpucore.DriverSoftware,
		nextID:          1,
		kernels:         make(map[kernels.Hash]Kernel),
		pipelines:       make(map[gpucore.ComputePipelineID]*pipeline),
		buffers:         make(map[gpucore.BufferID]*buffer),
		transferBuffers: make(map[gpucore.TransferBufferID]*transferBuffer),
		textures:        make(map[gpucore.TextureID]*texture),
		samplers:        make(map[gpucore.SamplerID]gpucore.SamplerDesc),
		failAt:          make(map[Op]int),
		opCount:         make(map[Op]int),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// call logs op and reports whether it should fail. Caller holds d.mu.
func (d *Device) call(op Op) error {
	d.calls = append(d.calls, op)
	d.opCount[op]++
	if n, ok := d.failAt[op]; ok && d.opCount[op] == n {
		return fmt.Errorf("softdevice: injected %s failure (call %d)", op, n)
	}
	return nil
}

func (d *Device) newID() uint64 {
	id := d.nextID
	d.nextID++
	return id
}

// Driver implements gpucore.Device.
func (d *Device) Driver() string { return d.driver }

// CreateComputePipeline implements gpucore.Device.
func (d *Device) CreateComputePipeline(desc *gpucore.ComputePipelineDesc) (gpucore.ComputePipelineID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.call(OpCreateComputePipeline); err != nil {
		return gpucore.InvalidID, err
	}
	if err := desc.Validate(); err != nil {
		return gpucore.InvalidID, err
	}
	want, _ := gpucore.KernelFormatFor(d.driver)
	if desc.Format != want {
		return gpucore.InvalidID, fmt.Errorf("%w: %s on %s driver", gpucore.ErrUnsupportedFormat, desc.Format, d.driver)
	}
	p := &pipeline{desc: *desc, kernel: d.kernels[kernels.HashOf(desc.Code)]}
	p.desc.Code = slices.Clone(desc.Code)
	id := gpucore.ComputePipelineID(d.newID())
	d.pipelines[id] = p
	gpuflow.Logger().Debug("softdevice: pipeline created", "id", id, "label", desc.Label, "cpu_kernel", p.kernel != nil)
	return id, nil
}

// ReleaseComputePipeline implements gpucore.Device.
func (d *Device) ReleaseComputePipeline(id gpucore.ComputePipelineID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if id == gpucore.InvalidID {
		return
	}
	if _, ok := d.pipelines[id]; !ok {
		d.badFrees++
		return
	}
	delete(d.pipelines, id)
}

// CreateBuffer implements gpucore.Device.
func (d *Device) CreateBuffer(desc *gpucore.BufferDesc) (gpucore.BufferID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.call(OpCreateBuffer); err != nil {
		return gpucore.InvalidID, err
	}
	if desc.Size == 0 {
		return gpucore.InvalidID, fmt.Errorf("softdevice: buffer %q has zero size", desc.Label)
	}
	id := gpucore.BufferID(d.newID())
	d.buffers[id] = &buffer{desc: *desc, data: make([]byte, desc.Size)}
	return id, nil
}

// ReleaseBuffer implements gpucore.Device.
func (d *Device) ReleaseBuffer(id gpucore.BufferID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if id == gpucore.InvalidID {
		return
	}
	if _, ok := d.buffers[id]; !ok {
		d.badFrees++
		return
	}
	delete(d.buffers, id)
}

// CreateTransferBuffer implements gpucore.Device.
func (d *Device) CreateTransferBuffer(desc *gpucore.TransferBufferDesc) (gpucore.TransferBufferID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.call(OpCreateTransferBuffer); err != nil {
		return gpucore.InvalidID, err
	}
	if desc.Size == 0 {
		return gpucore.InvalidID, fmt.Errorf("softdevice: transfer buffer %q has zero size", desc.Label)
	}
	id := gpucore.TransferBufferID(d.newID())
	d.transferBuffers[id] = &transferBuffer{desc: *desc, data: make([]byte, desc.Size)}
	return id, nil
}

// WriteTransferBuffer implements gpucore.Device.
func (d *Device) WriteTransferBuffer(id gpucore.TransferBufferID, offset uint32, data []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	tb, ok := d.transferBuffers[id]
	if !ok {
		return fmt.Errorf("%w: transfer buffer %d", gpucore.ErrResourceNotFound, id)
	}
	if int(offset)+len(data) > len(tb.data) {
		return fmt.Errorf("softdevice: write of %d bytes at %d overflows transfer buffer of %d", len(data), offset, len(tb.data))
	}
	copy(tb.data[offset:], data)
	return nil
}

// ReadTransferBuffer implements gpucore.Device.
func (d *Device) ReadTransferBuffer(id gpucore.TransferBufferID, offset uint32, dst []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	tb, ok := d.transferBuffers[id]
	if !ok {
		return fmt.Errorf("%w: transfer buffer %d", gpucore.ErrResourceNotFound, id)
	}
	if int(offset)+len(dst) > len(tb.data) {
		return fmt.Errorf("softdevice: read of %d bytes at %d overflows transfer buffer of %d", len(dst), offset, len(tb.data))
	}
	copy(dst, tb.data[offset:])
	return nil
}

// ReleaseTransferBuffer implements gpucore.Device.
func (d *Device) ReleaseTransferBuffer(id gpucore.TransferBufferID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if id == gpucore.InvalidID {
		return
	}
	if _, ok := d.transferBuffers[id]; !ok {
		d.badFrees++
		return
	}
	delete(d.transferBuffers, id)
}

// CreateTexture implements gpucore.Device.
func (d *Device) CreateTexture(desc *gpucore.TextureDesc) (gpucore.TextureID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.call(OpCreateTexture); err != nil {
		return gpucore.InvalidID, err
	}
	bpp := desc.Format.BytesPerPixel()
	if bpp == 0 || desc.Width == 0 || desc.Height == 0 {
		return gpucore.InvalidID, fmt.Errorf("softdevice: invalid texture %q (%dx%d, format %d)", desc.Label, desc.Width, desc.Height, desc.Format)
	}
	id := gpucore.TextureID(d.newID())
	d.textures[id] = &texture{desc: *desc, pix: make([]byte, int(desc.Width)*int(desc.Height)*bpp)}
	return id, nil
}

// ReleaseTexture implements gpucore.Device.
func (d *Device) ReleaseTexture(id gpucore.TextureID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if id == gpucore.InvalidID {
		return
	}
	if _, ok := d.textures[id]; !ok {
		d.badFrees++
		return
	}
	delete(d.textures, id)
}

// CreateSampler implements gpucore.Device.
func (d *Device) CreateSampler(desc *gpucore.SamplerDesc) (gpucore.SamplerID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.call(OpCreateSampler); err != nil {
		return gpucore.InvalidID, err
	}
	id := gpucore.SamplerID(d.newID())
	d.samplers[id] = *desc
	return id, nil
}

// ReleaseSampler implements gpucore.Device.
func (d *Device) ReleaseSampler(id gpucore.SamplerID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if id == gpucore.InvalidID {
		return
	}
	if _, ok := d.samplers[id]; !ok {
		d.badFrees++
		return
	}
	delete(d.samplers, id)
}

// AcquireCommandBuffer implements gpucore.Device.
func (d *Device) AcquireCommandBuffer() (gpucore.CommandBuffer, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.call(OpAcquireCommandBuffer); err != nil {
		return nil, err
	}
	return &commandBuffer{dev: d, uniforms: make(map[uint32][]byte)}, nil
}

// WaitIdle implements gpucore.Device. Work completes at Submit, so there
// is nothing to wait for.
func (d *Device) WaitIdle() error { return nil }

// ============================================================================
// Introspection
// ============================================================================

// Live returns the number of unreleased resources.
func (d *Device) Live() LiveCounts {
	d.mu.Lock()
	defer d.mu.Unlock()
	return LiveCounts{
		Pipelines:       len(d.pipelines),
		Buffers:         len(d.buffers),
		TransferBuffers: len(d.transferBuffers),
		Textures:        len(d.textures),
		Samplers:        len(d.samplers),
	}
}

// Calls returns the logged create/acquire/submit calls in order.
func (d *Device) Calls() []Op {
	d.mu.Lock()
	defer d.mu.Unlock()
	return slices.Clone(d.calls)
}

// Dispatches returns the executed dispatches in order.
func (d *Device) Dispatches() []DispatchRecord {
	d.mu.Lock()
	defer d.mu.Unlock()
	return slices.Clone(d.records)
}

// Submissions returns the number of successfully submitted command buffers.
func (d *Device) Submissions() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.submits
}

// BadReleases returns the number of releases of unknown or already
// released handles.
func (d *Device) BadReleases() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.badFrees
}

// BufferData returns a copy of a buffer's contents.
func (d *Device) BufferData(id gpucore.BufferID) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	b, ok := d.buffers[id]
	if !ok {
		return nil, fmt.Errorf("%w: buffer %d", gpucore.ErrResourceNotFound, id)
	}
	return slices.Clone(b.data), nil
}

// BufferDesc returns the description a buffer was created with.
func (d *Device) BufferDesc(id gpucore.BufferID) (gpucore.BufferDesc, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	b, ok := d.buffers[id]
	if !ok {
		return gpucore.BufferDesc{}, false
	}
	return b.desc, true
}

// PipelineDesc returns the description a pipeline was created with.
func (d *Device) PipelineDesc(id gpucore.ComputePipelineID) (gpucore.ComputePipelineDesc, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	p, ok := d.pipelines[id]
	if !ok {
		return gpucore.ComputePipelineDesc{}, false
	}
	return p.desc, true
}

// TextureData returns a copy of a texture's texels.
func (d *Device) TextureData(id gpucore.TextureID) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	t, ok := d.textures[id]
	if !ok {
		return nil, fmt.Errorf("%w: texture %d", gpucore.ErrResourceNotFound, id)
	}
	return slices.Clone(t.pix), nil
}

// SamplerDesc returns the description a sampler was created with.
func (d *Device) SamplerDesc(id gpucore.SamplerID) (gpucore.SamplerDesc, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	s, ok := d.samplers[id]
	return s, ok
}
