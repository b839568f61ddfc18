// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package wgpudevice

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/gpuflow/gpucore"
)

// commandBuffer encodes into one HAL command encoder. Errors raised while
// recording are kept and returned by Submit.
type commandBuffer struct {
	dev       *Device
	encoder   hal.CommandEncoder
	uniforms  map[uint32][]byte
	transient []func()
	open      bool
	done      bool
	err       error
}

// AcquireCommandBuffer implements gpucore.Device.
func (d *Device) AcquireCommandBuffer() (gpucore.CommandBuffer, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.device == nil {
		return nil, gpucore.ErrDeviceClosed
	}
	d.reclaim()
	enc, err := d.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "gpuflow_commands"})
	if err != nil {
		return nil, fmt.Errorf("create command encoder: %w", err)
	}
	if err := enc.BeginEncoding("gpuflow"); err != nil {
		return nil, fmt.Errorf("begin encoding: %w", err)
	}
	return &commandBuffer{dev: d, encoder: enc, uniforms: make(map[uint32][]byte)}, nil
}

func (cb *commandBuffer) fail(err error) {
	if cb.err == nil {
		cb.err = err
	}
}

func (cb *commandBuffer) begin() error {
	if cb.done {
		return gpucore.ErrSubmitted
	}
	if cb.open {
		return gpucore.ErrPassActive
	}
	cb.open = true
	return nil
}

func (cb *commandBuffer) BeginCopyPass() (gpucore.CopyPass, error) {
	if err := cb.begin(); err != nil {
		return nil, err
	}
	return &copyPass{cb: cb}, nil
}

func (cb *commandBuffer) BeginComputePass(storage []gpucore.StorageBufferReadWriteBinding) (gpucore.ComputePass, error) {
	if err := cb.begin(); err != nil {
		return nil, err
	}
	cb.dev.mu.Lock()
	bufs := make([]*buffer, 0, len(storage))
	for _, s := range storage {
		b, ok := cb.dev.buffers[s.Buffer]
		if !ok {
			cb.dev.mu.Unlock()
			cb.open = false
			return nil, fmt.Errorf("%w: storage buffer %d", gpucore.ErrResourceNotFound, s.Buffer)
		}
		bufs = append(bufs, b)
	}
	cb.dev.mu.Unlock()
	enc := cb.encoder.BeginComputePass(&hal.ComputePassDescriptor{Label: "gpuflow_compute"})
	return &computePass{cb: cb, enc: enc, storage: bufs}, nil
}

func (cb *commandBuffer) PushComputeUniformData(slot uint32, data []byte) {
	cb.uniforms[slot] = append([]byte(nil), data...)
}

// Submit implements gpucore.CommandBuffer. Bind groups and uniform
// buffers created for the recorded dispatches are destroyed when the
// submission completes.
func (cb *commandBuffer) Submit() error {
	if cb.done {
		return gpucore.ErrSubmitted
	}
	if cb.open {
		return gpucore.ErrPassActive
	}
	cb.done = true
	d := cb.dev
	d.mu.Lock()
	defer d.mu.Unlock()

	if cb.err != nil {
		cb.encoder.DiscardEncoding()
		cb.freeTransient()
		return cb.err
	}
	cmd, err := cb.encoder.EndEncoding()
	if err != nil {
		cb.freeTransient()
		return fmt.Errorf("end encoding: %w", err)
	}
	index, err := d.queue.Submit([]hal.CommandBuffer{cmd})
	if err != nil {
		d.device.FreeCommandBuffer(cmd)
		cb.freeTransient()
		return fmt.Errorf("submit: %w", err)
	}
	d.submitted = index
	transient := cb.transient
	cb.transient = nil
	d.retire(func() {
		d.device.FreeCommandBuffer(cmd)
		for _, fn := range transient {
			fn()
		}
	})
	return nil
}

func (cb *commandBuffer) Cancel() {
	if cb.done {
		return
	}
	cb.done = true
	cb.encoder.DiscardEncoding()
	cb.dev.mu.Lock()
	cb.freeTransient()
	cb.dev.mu.Unlock()
}

// freeTransient destroys per-submission objects. Caller holds dev.mu.
func (cb *commandBuffer) freeTransient() {
	for _, fn := range cb.transient {
		fn()
	}
	cb.transient = nil
}

// ============================================================================
// Copy pass
// ============================================================================

type copyPass struct {
	cb *commandBuffer
}

func (p *copyPass) UploadToBuffer(src gpucore.TransferBufferLocation, dst gpucore.BufferRegion, _ bool) {
	d := p.cb.dev
	d.mu.Lock()
	tb, okSrc := d.transferBuffers[src.TransferBuffer]
	b, okDst := d.buffers[dst.Buffer]
	d.mu.Unlock()
	if !okSrc || !okDst {
		p.cb.fail(fmt.Errorf("%w: upload %d -> %d", gpucore.ErrResourceNotFound, src.TransferBuffer, dst.Buffer))
		return
	}
	p.cb.encoder.CopyBufferToBuffer(tb.buf, b.buf, []hal.BufferCopy{
		{SrcOffset: uint64(src.Offset), DstOffset: uint64(dst.Offset), Size: uint64(dst.Size)},
	})
}

func (p *copyPass) UploadToTexture(src gpucore.TextureTransferInfo, dst gpucore.TextureRegion, _ bool) {
	d := p.cb.dev
	d.mu.Lock()
	tb, okSrc := d.transferBuffers[src.TransferBuffer]
	t, okDst := d.textures[dst.Texture]
	d.mu.Unlock()
	if !okSrc || !okDst {
		p.cb.fail(fmt.Errorf("%w: texture upload %d -> %d", gpucore.ErrResourceNotFound, src.TransferBuffer, dst.Texture))
		return
	}
	rowPixels := src.PixelsPerRow
	if rowPixels == 0 {
		rowPixels = dst.W
	}
	rows := src.RowsPerLayer
	if rows == 0 {
		rows = dst.H
	}
	p.cb.encoder.CopyBufferToTexture(tb.buf, t.tex, []hal.BufferTextureCopy{{
		BufferLayout: hal.ImageDataLayout{
			Offset:       uint64(src.Offset),
			BytesPerRow:  rowPixels * uint32(t.desc.Format.BytesPerPixel()),
			RowsPerImage: rows,
		},
		TextureBase: hal.ImageCopyTexture{
			Texture: t.tex,
			Origin:  hal.Origin3D{X: dst.X, Y: dst.Y},
			Aspect:  gputypes.TextureAspectAll,
		},
		Size: hal.Extent3D{Width: dst.W, Height: dst.H, DepthOrArrayLayers: 1},
	}})
}

func (p *copyPass) DownloadFromBuffer(src gpucore.BufferRegion, dst gpucore.TransferBufferLocation) {
	d := p.cb.dev
	d.mu.Lock()
	b, okSrc := d.buffers[src.Buffer]
	tb, okDst := d.transferBuffers[dst.TransferBuffer]
	d.mu.Unlock()
	if !okSrc || !okDst {
		p.cb.fail(fmt.Errorf("%w: download %d -> %d", gpucore.ErrResourceNotFound, src.Buffer, dst.TransferBuffer))
		return
	}
	p.cb.encoder.CopyBufferToBuffer(b.buf, tb.buf, []hal.BufferCopy{
		{SrcOffset: uint64(src.Offset), DstOffset: uint64(dst.Offset), Size: uint64(src.Size)},
	})
}

func (p *copyPass) End() { p.cb.open = false }

// ============================================================================
// Compute pass
// ============================================================================

type computePass struct {
	cb       *commandBuffer
	enc      hal.ComputePassEncoder
	storage  []*buffer
	pipeline *pipeline
	samplers []gpucore.TextureSamplerBinding
}

func (p *computePass) BindPipeline(id gpucore.ComputePipelineID) {
	d := p.cb.dev
	d.mu.Lock()
	pl, ok := d.pipelines[id]
	d.mu.Unlock()
	if !ok {
		p.cb.fail(fmt.Errorf("%w: pipeline %d", gpucore.ErrResourceNotFound, id))
		return
	}
	p.pipeline = pl
	p.enc.SetPipeline(pl.pipeline)
}

func (p *computePass) BindSamplers(first uint32, bindings []gpucore.TextureSamplerBinding) {
	need := int(first) + len(bindings)
	if len(p.samplers) < need {
		p.samplers = append(p.samplers, make([]gpucore.TextureSamplerBinding, need-len(p.samplers))...)
	}
	copy(p.samplers[first:], bindings)
}

// Dispatch creates a bind group for the bound resources and the pushed
// uniform data, then records the dispatch.
func (p *computePass) Dispatch(x, y, z uint32) {
	if p.pipeline == nil {
		p.cb.fail(fmt.Errorf("wgpudevice: dispatch without a bound pipeline"))
		return
	}
	group, err := p.bindGroup()
	if err != nil {
		p.cb.fail(err)
		return
	}
	p.enc.SetBindGroup(0, group, nil)
	p.enc.Dispatch(x, y, z)
}

func (p *computePass) bindGroup() (hal.BindGroup, error) {
	d := p.cb.dev
	d.mu.Lock()
	defer d.mu.Unlock()

	desc := &p.pipeline.desc
	s := slotsOf(desc)
	if s.roStorage > 0 {
		return nil, fmt.Errorf("%w: read-only storage buffers", gpucore.ErrUnsupportedFormat)
	}
	if uint32(len(p.samplers)) < s.samplers || uint32(len(p.storage)) < s.rwStorage {
		return nil, fmt.Errorf("wgpudevice: pipeline %q needs %d samplers and %d storage buffers, %d and %d bound",
			desc.Label, s.samplers, s.rwStorage, len(p.samplers), len(p.storage))
	}

	entries := make([]gputypes.BindGroupEntry, 0, s.count())
	for i := range s.samplers {
		b := p.samplers[i]
		t, ok := d.textures[b.Texture]
		if !ok {
			return nil, fmt.Errorf("%w: texture %d", gpucore.ErrResourceNotFound, b.Texture)
		}
		smp, ok := d.samplers[b.Sampler]
		if !ok {
			return nil, fmt.Errorf("%w: sampler %d", gpucore.ErrResourceNotFound, b.Sampler)
		}
		entries = append(entries,
			gputypes.BindGroupEntry{Binding: s.texture(i), Resource: gputypes.TextureViewBinding{TextureView: t.view.NativeHandle()}},
			gputypes.BindGroupEntry{Binding: s.sampler(i), Resource: gputypes.SamplerBinding{Sampler: smp.NativeHandle()}},
		)
	}
	for i := range s.rwStorage {
		b := p.storage[i]
		entries = append(entries, gputypes.BindGroupEntry{
			Binding:  s.rwBuffer(i),
			Resource: gputypes.BufferBinding{Buffer: b.buf.NativeHandle(), Size: uint64(b.desc.Size)},
		})
	}
	for i := range s.uniforms {
		data, ok := p.cb.uniforms[i]
		if !ok {
			return nil, fmt.Errorf("wgpudevice: uniform slot %d not pushed", i)
		}
		ub, err := d.device.CreateBuffer(&hal.BufferDescriptor{
			Label: fmt.Sprintf("%s_uniform%d", desc.Label, i),
			Size:  uint64(len(data)),
			Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
		})
		if err != nil {
			return nil, fmt.Errorf("create uniform buffer: %w", err)
		}
		p.cb.transient = append(p.cb.transient, func() { d.device.DestroyBuffer(ub) })
		if err := d.queue.WriteBuffer(ub, 0, data); err != nil {
			return nil, fmt.Errorf("write uniform buffer: %w", err)
		}
		entries = append(entries, gputypes.BindGroupEntry{
			Binding:  s.uniform(i),
			Resource: gputypes.BufferBinding{Buffer: ub.NativeHandle(), Size: uint64(len(data))},
		})
	}

	group, err := d.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:   desc.Label + "_bind",
		Layout:  p.pipeline.bindings,
		Entries: entries,
	})
	if err != nil {
		return nil, fmt.Errorf("create bind group: %w", err)
	}
	p.cb.transient = append(p.cb.transient, func() { d.device.DestroyBindGroup(group) })
	return group, nil
}

func (p *computePass) End() {
	p.enc.End()
	p.cb.open = false
}
