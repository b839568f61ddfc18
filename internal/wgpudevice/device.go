// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package wgpudevice implements gpucore.Device on the gogpu/wgpu HAL.
//
// The device owns a single queue. Command buffers are encoded with one HAL
// command encoder each and submitted to that queue, so submission order is
// execution order. Resources released while submitted work may still use
// them are destroyed once the queue reports that work complete.
//
// Kernels must be SPIR-V. The bind group layout of a pipeline follows the
// binding numbering documented on bindingSlots.
package wgpudevice

import (
	"errors"
	"fmt"
	"sync"
	"unsafe"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	// Import Vulkan backend so it registers via init().
	_ "github.com/gogpu/wgpu/hal/vulkan"

	"github.com/gogpu/gpuflow"
	"github.com/gogpu/gpuflow/gpucore"
	"github.com/gogpu/gpuflow/kernels"
)

// ErrNoAdapter is returned by Open when no GPU adapter is available.
var ErrNoAdapter = errors.New("wgpudevice: no GPU adapters found")

type pipeline struct {
	desc     gpucore.ComputePipelineDesc
	shader   hal.ShaderModule
	bindings hal.BindGroupLayout
	layout   hal.PipelineLayout
	pipeline hal.ComputePipeline
}

type buffer struct {
	desc gpucore.BufferDesc
	buf  hal.Buffer
}

// transferBuffer is a host-visible staging buffer.
type transferBuffer struct {
	desc gpucore.TransferBufferDesc
	buf  hal.Buffer
}

type texture struct {
	desc gpucore.TextureDesc
	tex  hal.Texture
	view hal.TextureView
}

// retired is work to run once submission index has completed.
type retired struct {
	index uint64
	fn    func()
}

// Device is a gpucore.Device backed by a HAL device and queue.
type Device struct {
	mu sync.Mutex

	instance hal.Instance
	device   hal.Device
	queue    hal.Queue
	driver   string
	adapter  string
	external bool

	nextID    uint64
	submitted uint64
	pending   []retired

	pipelines       map[gpucore.ComputePipelineID]*pipeline
	buffers         map[gpucore.BufferID]*buffer
	transferBuffers map[gpucore.TransferBufferID]*transferBuffer
	textures        map[gpucore.TextureID]*texture
	samplers        map[gpucore.SamplerID]hal.Sampler
}

var _ gpucore.Device = (*Device)(nil)

// Option configures Open.
type Option func(*openConfig)

type openConfig struct {
	backend gputypes.Backend
	prefer  []gputypes.DeviceType
}

// WithBackend selects the HAL backend Open instantiates. The backend must
// be registered, either by this package (Vulkan) or by a blank import of
// another hal backend package. Kernels are still compiled to SPIR-V.
func WithBackend(b gputypes.Backend) Option {
	return func(c *openConfig) { c.backend = b }
}

// PreferDeviceTypes sets the adapter types Open looks for, in order. The
// default prefers discrete, then integrated GPUs, and falls back to the
// first adapter.
func PreferDeviceTypes(types ...gputypes.DeviceType) Option {
	return func(c *openConfig) { c.prefer = types }
}

func newDevice(device hal.Device, queue hal.Queue) *Device {
	return &Device{
		device:          device,
		queue:           queue,
		driver:          gpucore.DriverVulkan,
		nextID:          1,
		pipelines:       make(map[gpucore.ComputePipelineID]*pipeline),
		buffers:         make(map[gpucore.BufferID]*buffer),
		transferBuffers: make(map[gpucore.TransferBufferID]*transferBuffer),
		textures:        make(map[gpucore.TextureID]*texture),
		samplers:        make(map[gpucore.SamplerID]hal.Sampler),
	}
}

// Open creates a HAL instance (Vulkan unless WithBackend says otherwise),
// selects an adapter and opens a device.
func Open(opts ...Option) (*Device, error) {
	cfg := openConfig{
		backend: gputypes.BackendVulkan,
		prefer:  []gputypes.DeviceType{gputypes.DeviceTypeDiscreteGPU, gputypes.DeviceTypeIntegratedGPU},
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	backend, ok := hal.GetBackend(cfg.backend)
	if !ok {
		return nil, fmt.Errorf("wgpudevice: %s backend not available", cfg.backend)
	}
	instance, err := backend.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return nil, fmt.Errorf("wgpudevice: create instance: %w", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return nil, ErrNoAdapter
	}
	selected := selectAdapter(adapters, cfg.prefer)
	open, err := selected.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		return nil, fmt.Errorf("wgpudevice: open device: %w", err)
	}

	d := newDevice(open.Device, open.Queue)
	d.instance = instance
	d.adapter = selected.Info.Name
	gpuflow.Logger().Info("wgpudevice: device opened",
		"adapter", selected.Info.Name, "type", selected.Info.DeviceType.String(), "backend", cfg.backend.String())
	return d, nil
}

func selectAdapter(adapters []hal.ExposedAdapter, prefer []gputypes.DeviceType) *hal.ExposedAdapter {
	for _, t := range prefer {
		for i := range adapters {
			if adapters[i].Info.DeviceType == t {
				return &adapters[i]
			}
		}
	}
	return &adapters[0]
}

// FromProvider wraps the device and queue of an external provider, such
// as a gogpu application. The provider must also implement
// HalDevice() any and HalQueue() any returning hal.Device and hal.Queue.
// Close does not destroy the shared device.
func FromProvider(provider gpucontext.DeviceProvider) (*Device, error) {
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return nil, fmt.Errorf("wgpudevice: provider does not expose HAL types")
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return nil, fmt.Errorf("wgpudevice: provider HalDevice is not hal.Device")
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, fmt.Errorf("wgpudevice: provider HalQueue is not hal.Queue")
	}

	d := newDevice(device, queue)
	d.external = true
	info := provider.AdapterInfo()
	d.adapter = info.Name
	gpuflow.Logger().Info("wgpudevice: using shared device", "adapter", info.Name, "type", info.Type.String())
	return d, nil
}

// Driver implements gpucore.Device.
func (d *Device) Driver() string { return d.driver }

// Adapter returns the name of the adapter the device runs on.
func (d *Device) Adapter() string { return d.adapter }

func (d *Device) newID() uint64 {
	id := d.nextID
	d.nextID++
	return id
}

// retire runs fn now if no submitted work may still use the resource it
// destroys, and otherwise once the latest submission completes.
// Caller holds d.mu.
func (d *Device) retire(fn func()) {
	if d.submitted == 0 || d.queue.PollCompleted() >= d.submitted {
		fn()
		return
	}
	d.pending = append(d.pending, retired{index: d.submitted, fn: fn})
}

// reclaim runs retired work whose submission has completed.
// Caller holds d.mu.
func (d *Device) reclaim() {
	if len(d.pending) == 0 {
		return
	}
	done := d.queue.PollCompleted()
	keep := d.pending[:0]
	for _, r := range d.pending {
		if r.index <= done {
			r.fn()
		} else {
			keep = append(keep, r)
		}
	}
	d.pending = keep
}

// CreateComputePipeline implements gpucore.Device.
func (d *Device) CreateComputePipeline(desc *gpucore.ComputePipelineDesc) (gpucore.ComputePipelineID, error) {
	if err := desc.Validate(); err != nil {
		return gpucore.InvalidID, err
	}
	if desc.Format != gpucore.ShaderFormatSPIRV {
		return gpucore.InvalidID, fmt.Errorf("%w: %s on %s driver", gpucore.ErrUnsupportedFormat, desc.Format, d.driver)
	}
	words, err := kernels.SPIRVWords(desc.Code)
	if err != nil {
		return gpucore.InvalidID, err
	}
	entries, err := layoutEntries(desc)
	if err != nil {
		return gpucore.InvalidID, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.device == nil {
		return gpucore.InvalidID, gpucore.ErrDeviceClosed
	}

	p := &pipeline{desc: *desc}
	p.shader, err = d.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  desc.Label,
		Source: hal.ShaderSource{SPIRV: words},
	})
	if err != nil {
		return gpucore.InvalidID, fmt.Errorf("create shader module: %w", err)
	}
	p.bindings, err = d.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label:   desc.Label + "_bind_layout",
		Entries: entries,
	})
	if err != nil {
		d.destroyPipeline(p)
		return gpucore.InvalidID, fmt.Errorf("create bind group layout: %w", err)
	}
	p.layout, err = d.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            desc.Label + "_pipe_layout",
		BindGroupLayouts: []hal.BindGroupLayout{p.bindings},
	})
	if err != nil {
		d.destroyPipeline(p)
		return gpucore.InvalidID, fmt.Errorf("create pipeline layout: %w", err)
	}
	p.pipeline, err = d.device.CreateComputePipeline(&hal.ComputePipelineDescriptor{
		Label:   desc.Label,
		Layout:  p.layout,
		Compute: hal.ComputeState{Module: p.shader, EntryPoint: desc.EntryPoint},
	})
	if err != nil {
		d.destroyPipeline(p)
		return gpucore.InvalidID, fmt.Errorf("create compute pipeline: %w", err)
	}

	id := gpucore.ComputePipelineID(d.newID())
	d.pipelines[id] = p
	return id, nil
}

func (d *Device) destroyPipeline(p *pipeline) {
	if p.pipeline != nil {
		d.device.DestroyComputePipeline(p.pipeline)
	}
	if p.layout != nil {
		d.device.DestroyPipelineLayout(p.layout)
	}
	if p.bindings != nil {
		d.device.DestroyBindGroupLayout(p.bindings)
	}
	if p.shader != nil {
		d.device.DestroyShaderModule(p.shader)
	}
}

// ReleaseComputePipeline implements gpucore.Device.
func (d *Device) ReleaseComputePipeline(id gpucore.ComputePipelineID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	p, ok := d.pipelines[id]
	if !ok {
		return
	}
	delete(d.pipelines, id)
	d.retire(func() { d.destroyPipeline(p) })
}

// CreateBuffer implements gpucore.Device.
func (d *Device) CreateBuffer(desc *gpucore.BufferDesc) (gpucore.BufferID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.device == nil {
		return gpucore.InvalidID, gpucore.ErrDeviceClosed
	}
	buf, err := d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: desc.Label,
		Size:  uint64(desc.Size),
		Usage: bufferUsage(desc.Usage),
	})
	if err != nil {
		return gpucore.InvalidID, fmt.Errorf("create buffer %q: %w", desc.Label, err)
	}
	id := gpucore.BufferID(d.newID())
	d.buffers[id] = &buffer{desc: *desc, buf: buf}
	return id, nil
}

// ReleaseBuffer implements gpucore.Device.
func (d *Device) ReleaseBuffer(id gpucore.BufferID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	b, ok := d.buffers[id]
	if !ok {
		return
	}
	delete(d.buffers, id)
	d.retire(func() { d.device.DestroyBuffer(b.buf) })
}

// CreateTransferBuffer implements gpucore.Device.
func (d *Device) CreateTransferBuffer(desc *gpucore.TransferBufferDesc) (gpucore.TransferBufferID, error) {
	usage := gputypes.BufferUsageMapWrite | gputypes.BufferUsageCopySrc
	if desc.Usage == gpucore.TransferBufferUsageDownload {
		usage = gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.device == nil {
		return gpucore.InvalidID, gpucore.ErrDeviceClosed
	}
	buf, err := d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: desc.Label,
		Size:  uint64(desc.Size),
		Usage: usage,
	})
	if err != nil {
		return gpucore.InvalidID, fmt.Errorf("create transfer buffer %q: %w", desc.Label, err)
	}
	id := gpucore.TransferBufferID(d.newID())
	d.transferBuffers[id] = &transferBuffer{desc: *desc, buf: buf}
	return id, nil
}

// mapped maps size bytes of tb at offset and calls fn with the mapping.
// Caller holds d.mu.
func (d *Device) mapped(id gpucore.TransferBufferID, offset uint32, size int, fn func([]byte)) error {
	tb, ok := d.transferBuffers[id]
	if !ok {
		return fmt.Errorf("%w: transfer buffer %d", gpucore.ErrResourceNotFound, id)
	}
	if int(offset)+size > int(tb.desc.Size) {
		return fmt.Errorf("wgpudevice: %d bytes at %d overflow transfer buffer of %d", size, offset, tb.desc.Size)
	}
	if size == 0 {
		return nil
	}
	m, err := d.device.MapBuffer(tb.buf, uint64(offset), uint64(size))
	if err != nil {
		return fmt.Errorf("map transfer buffer: %w", err)
	}
	fn(unsafe.Slice((*byte)(m.Ptr), size)) //nolint:gosec // mapping covers size bytes
	return d.device.UnmapBuffer(tb.buf)
}

// WriteTransferBuffer implements gpucore.Device. It waits for submitted
// work first, since that work may still read the staging memory.
func (d *Device) WriteTransferBuffer(id gpucore.TransferBufferID, offset uint32, data []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.waitLocked(); err != nil {
		return err
	}
	return d.mapped(id, offset, len(data), func(dst []byte) { copy(dst, data) })
}

// ReadTransferBuffer implements gpucore.Device. It waits for submitted
// work to complete before reading.
func (d *Device) ReadTransferBuffer(id gpucore.TransferBufferID, offset uint32, dst []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.waitLocked(); err != nil {
		return err
	}
	return d.mapped(id, offset, len(dst), func(src []byte) { copy(dst, src) })
}

// ReleaseTransferBuffer implements gpucore.Device.
func (d *Device) ReleaseTransferBuffer(id gpucore.TransferBufferID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	tb, ok := d.transferBuffers[id]
	if !ok {
		return
	}
	delete(d.transferBuffers, id)
	d.retire(func() { d.device.DestroyBuffer(tb.buf) })
}

// CreateTexture implements gpucore.Device.
func (d *Device) CreateTexture(desc *gpucore.TextureDesc) (gpucore.TextureID, error) {
	format, err := textureFormat(desc.Format)
	if err != nil {
		return gpucore.InvalidID, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.device == nil {
		return gpucore.InvalidID, gpucore.ErrDeviceClosed
	}
	tex, err := d.device.CreateTexture(&hal.TextureDescriptor{
		Label:         desc.Label,
		Size:          hal.Extent3D{Width: desc.Width, Height: desc.Height, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        format,
		Usage:         textureUsage(desc.Usage),
	})
	if err != nil {
		return gpucore.InvalidID, fmt.Errorf("create texture %q: %w", desc.Label, err)
	}
	view, err := d.device.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label:           desc.Label + "_view",
		Format:          format,
		Dimension:       gputypes.TextureViewDimension2D,
		Aspect:          gputypes.TextureAspectAll,
		MipLevelCount:   1,
		ArrayLayerCount: 1,
	})
	if err != nil {
		d.device.DestroyTexture(tex)
		return gpucore.InvalidID, fmt.Errorf("create texture view %q: %w", desc.Label, err)
	}
	id := gpucore.TextureID(d.newID())
	d.textures[id] = &texture{desc: *desc, tex: tex, view: view}
	return id, nil
}

// ReleaseTexture implements gpucore.Device.
func (d *Device) ReleaseTexture(id gpucore.TextureID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	t, ok := d.textures[id]
	if !ok {
		return
	}
	delete(d.textures, id)
	d.retire(func() {
		d.device.DestroyTextureView(t.view)
		d.device.DestroyTexture(t.tex)
	})
}

// CreateSampler implements gpucore.Device.
func (d *Device) CreateSampler(desc *gpucore.SamplerDesc) (gpucore.SamplerID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.device == nil {
		return gpucore.InvalidID, gpucore.ErrDeviceClosed
	}
	s, err := d.device.CreateSampler(&hal.SamplerDescriptor{
		Label:        desc.Label,
		AddressModeU: addressMode(desc.AddressModeU),
		AddressModeV: addressMode(desc.AddressModeV),
		AddressModeW: addressMode(desc.AddressModeW),
		MagFilter:    filterMode(desc.MagFilter),
		MinFilter:    filterMode(desc.MinFilter),
		MipmapFilter: filterMode(desc.MipmapFilter),
		LodMaxClamp:  32,
		Anisotropy:   1,
	})
	if err != nil {
		return gpucore.InvalidID, fmt.Errorf("create sampler %q: %w", desc.Label, err)
	}
	id := gpucore.SamplerID(d.newID())
	d.samplers[id] = s
	return id, nil
}

// ReleaseSampler implements gpucore.Device.
func (d *Device) ReleaseSampler(id gpucore.SamplerID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	s, ok := d.samplers[id]
	if !ok {
		return
	}
	delete(d.samplers, id)
	d.retire(func() { d.device.DestroySampler(s) })
}

// WaitIdle implements gpucore.Device.
func (d *Device) WaitIdle() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.waitLocked()
}

func (d *Device) waitLocked() error {
	if d.device == nil || d.submitted == 0 {
		return nil
	}
	if err := d.device.WaitIdle(); err != nil {
		return fmt.Errorf("wgpudevice: wait idle: %w", err)
	}
	d.reclaim()
	return nil
}

// Close waits for submitted work, destroys every live resource and, unless
// the device came from a provider, the device and instance.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.device == nil {
		return nil
	}
	err := d.waitLocked()
	for _, r := range d.pending {
		r.fn()
	}
	d.pending = nil
	for id, p := range d.pipelines {
		d.destroyPipeline(p)
		delete(d.pipelines, id)
	}
	for id, b := range d.buffers {
		d.device.DestroyBuffer(b.buf)
		delete(d.buffers, id)
	}
	for id, tb := range d.transferBuffers {
		d.device.DestroyBuffer(tb.buf)
		delete(d.transferBuffers, id)
	}
	for id, t := range d.textures {
		d.device.DestroyTextureView(t.view)
		d.device.DestroyTexture(t.tex)
		delete(d.textures, id)
	}
	for id, s := range d.samplers {
		d.device.DestroySampler(s)
		delete(d.samplers, id)
	}
	if !d.external {
		d.device.Destroy()
		if d.instance != nil {
			d.instance.Destroy()
		}
	}
	d.device, d.queue, d.instance = nil, nil, nil
	return err
}
