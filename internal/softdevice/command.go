// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package softdevice

import (
	"fmt"
	"maps"
	"slices"

	"github.com/gogpu/gpuflow/gpucore"
	"github.com/gogpu/gpuflow/kernels"
)

// command runs against the device with d.mu held.
type command func(d *Device) error

type commandBuffer struct {
	dev       *Device
	cmds      []command
	uniforms  map[uint32][]byte
	open      bool
	submitted bool
	err       error
}

func (cb *commandBuffer) record(c command) {
	cb.cmds = append(cb.cmds, c)
}

func (cb *commandBuffer) BeginCopyPass() (gpucore.CopyPass, error) {
	if cb.submitted {
		return nil, gpucore.ErrSubmitted
	}
	if cb.open {
		return nil, gpucore.ErrPassActive
	}
	cb.open = true
	return &copyPass{cb: cb}, nil
}

func (cb *commandBuffer) BeginComputePass(storage []gpucore.StorageBufferReadWriteBinding) (gpucore.ComputePass, error) {
	if cb.submitted {
		return nil, gpucore.ErrSubmitted
	}
	if cb.open {
		return nil, gpucore.ErrPassActive
	}
	cb.open = true
	return &computePass{cb: cb, storage: slices.Clone(storage)}, nil
}

func (cb *commandBuffer) PushComputeUniformData(slot uint32, data []byte) {
	cb.uniforms[slot] = slices.Clone(data)
}

func (cb *commandBuffer) Submit() error {
	if cb.submitted {
		return gpucore.ErrSubmitted
	}
	if cb.open {
		return gpucore.ErrPassActive
	}
	cb.submitted = true

	d := cb.dev
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.call(OpSubmit); err != nil {
		return err
	}
	for _, c := range cb.cmds {
		if err := c(d); err != nil {
			return fmt.Errorf("softdevice: submit: %w", err)
		}
	}
	d.submits++
	return nil
}

func (cb *commandBuffer) Cancel() {
	cb.submitted = true
	cb.cmds = nil
}

// ============================================================================
// Copy pass
// ============================================================================

type copyPass struct {
	cb *commandBuffer
}

func (p *copyPass) UploadToBuffer(src gpucore.TransferBufferLocation, dst gpucore.BufferRegion, _ bool) {
	p.cb.record(func(d *Device) error {
		tb, ok := d.transferBuffers[src.TransferBuffer]
		if !ok {
			return fmt.Errorf("%w: transfer buffer %d", gpucore.ErrResourceNotFound, src.TransferBuffer)
		}
		b, ok := d.buffers[dst.Buffer]
		if !ok {
			return fmt.Errorf("%w: buffer %d", gpucore.ErrResourceNotFound, dst.Buffer)
		}
		if int(src.Offset)+int(dst.Size) > len(tb.data) || int(dst.Offset)+int(dst.Size) > len(b.data) {
			return fmt.Errorf("upload of %d bytes out of range", dst.Size)
		}
		copy(b.data[dst.Offset:dst.Offset+dst.Size], tb.data[src.Offset:])
		return nil
	})
}

func (p *copyPass) UploadToTexture(src gpucore.TextureTransferInfo, dst gpucore.TextureRegion, _ bool) {
	p.cb.record(func(d *Device) error {
		tb, ok := d.transferBuffers[src.TransferBuffer]
		if !ok {
			return fmt.Errorf("%w: transfer buffer %d", gpucore.ErrResourceNotFound, src.TransferBuffer)
		}
		t, ok := d.textures[dst.Texture]
		if !ok {
			return fmt.Errorf("%w: texture %d", gpucore.ErrResourceNotFound, dst.Texture)
		}
		if dst.X+dst.W > t.desc.Width || dst.Y+dst.H > t.desc.Height {
			return fmt.Errorf("texture region %dx%d+%d+%d exceeds %dx%d", dst.W, dst.H, dst.X, dst.Y, t.desc.Width, t.desc.Height)
		}
		bpp := uint32(t.desc.Format.BytesPerPixel())
		srcRow := src.PixelsPerRow
		if srcRow == 0 {
			srcRow = dst.W
		}
		for y := range dst.H {
			from := src.Offset + y*srcRow*bpp
			to := ((dst.Y+y)*t.desc.Width + dst.X) * bpp
			n := dst.W * bpp
			if int(from+n) > len(tb.data) {
				return fmt.Errorf("texture upload reads past transfer buffer")
			}
			copy(t.pix[to:to+n], tb.data[from:from+n])
		}
		return nil
	})
}

func (p *copyPass) DownloadFromBuffer(src gpucore.BufferRegion, dst gpucore.TransferBufferLocation) {
	p.cb.record(func(d *Device) error {
		b, ok := d.buffers[src.Buffer]
		if !ok {
			return fmt.Errorf("%w: buffer %d", gpucore.ErrResourceNotFound, src.Buffer)
		}
		tb, ok := d.transferBuffers[dst.TransferBuffer]
		if !ok {
			return fmt.Errorf("%w: transfer buffer %d", gpucore.ErrResourceNotFound, dst.TransferBuffer)
		}
		if int(src.Offset+src.Size) > len(b.data) || int(dst.Offset+src.Size) > len(tb.data) {
			return fmt.Errorf("download of %d bytes out of range", src.Size)
		}
		copy(tb.data[dst.Offset:], b.data[src.Offset:src.Offset+src.Size])
		return nil
	})
}

func (p *copyPass) End() { p.cb.open = false }

// ============================================================================
// Compute pass
// ============================================================================

type computePass struct {
	cb       *commandBuffer
	storage  []gpucore.StorageBufferReadWriteBinding
	pipeline gpucore.ComputePipelineID
	samplers []gpucore.TextureSamplerBinding
}

func (p *computePass) BindPipeline(id gpucore.ComputePipelineID) { p.pipeline = id }

func (p *computePass) BindSamplers(first uint32, bindings []gpucore.TextureSamplerBinding) {
	need := int(first) + len(bindings)
	if len(p.samplers) < need {
		p.samplers = append(p.samplers, make([]gpucore.TextureSamplerBinding, need-len(p.samplers))...)
	}
	copy(p.samplers[first:], bindings)
}

func (p *computePass) Dispatch(x, y, z uint32) {
	rec := DispatchRecord{
		Pipeline: p.pipeline,
		Groups:   [3]uint32{x, y, z},
		Uniforms: maps.Clone(p.cb.uniforms),
		Samplers: slices.Clone(p.samplers),
	}
	for _, s := range p.storage {
		rec.Storage = append(rec.Storage, s.Buffer)
	}
	p.cb.record(func(d *Device) error { return d.dispatch(rec) })
}

func (p *computePass) End() { p.cb.open = false }

// dispatch validates bindings against the pipeline layout and runs the
// registered kernel. Caller holds d.mu.
func (d *Device) dispatch(rec DispatchRecord) error {
	pl, ok := d.pipelines[rec.Pipeline]
	if !ok {
		return fmt.Errorf("%w: pipeline %d", gpucore.ErrResourceNotFound, rec.Pipeline)
	}
	if uint32(len(rec.Samplers)) < pl.desc.NumSamplers {
		return fmt.Errorf("pipeline %d needs %d samplers, %d bound", rec.Pipeline, pl.desc.NumSamplers, len(rec.Samplers))
	}
	if uint32(len(rec.Storage)) < pl.desc.NumReadWriteStorageBuffers {
		return fmt.Errorf("pipeline %d needs %d storage buffers, %d bound", rec.Pipeline, pl.desc.NumReadWriteStorageBuffers, len(rec.Storage))
	}
	for slot := range pl.desc.NumUniformBuffers {
		if _, ok := rec.Uniforms[slot]; !ok {
			return fmt.Errorf("pipeline %d uniform slot %d not pushed", rec.Pipeline, slot)
		}
	}

	dc := &Dispatch{
		Groups:   rec.Groups,
		Threads:  [3]uint32{pl.desc.ThreadCountX, pl.desc.ThreadCountY, pl.desc.ThreadCountZ},
		Uniforms: rec.Uniforms,
	}
	for _, s := range rec.Samplers {
		t, ok := d.textures[s.Texture]
		if !ok {
			return fmt.Errorf("%w: texture %d", gpucore.ErrResourceNotFound, s.Texture)
		}
		if _, ok := d.samplers[s.Sampler]; !ok {
			return fmt.Errorf("%w: sampler %d", gpucore.ErrResourceNotFound, s.Sampler)
		}
		dc.Samplers = append(dc.Samplers, &kernels.RGBA8Texture{
			Width:  int(t.desc.Width),
			Height: int(t.desc.Height),
			Pix:    t.pix,
		})
	}
	for _, id := range rec.Storage {
		b, ok := d.buffers[id]
		if !ok {
			return fmt.Errorf("%w: buffer %d", gpucore.ErrResourceNotFound, id)
		}
		if !b.desc.Usage.Has(gpucore.BufferUsageComputeStorageWrite) {
			return fmt.Errorf("buffer %d bound for storage writes without ComputeStorageWrite usage", id)
		}
		dc.Storage = append(dc.Storage, b.data)
	}

	d.records = append(d.records, rec)
	if pl.kernel == nil {
		return nil
	}
	return pl.kernel(dc)
}

// TessellateKernel runs the CPU reference of the grid displacement kernel:
// uniform slot 0, sampler 0, storage buffer 0.
func TessellateKernel(dc *Dispatch) error {
	params, err := kernels.DecodeTessParams(dc.Uniforms[0])
	if err != nil {
		return err
	}
	var tex kernels.Sampler2D
	if len(dc.Samplers) > 0 {
		tex = dc.Samplers[0]
	}
	if len(dc.Storage) == 0 {
		return fmt.Errorf("tessellate kernel: no storage buffer bound")
	}
	out := dc.Storage[0]
	nx := dc.Groups[0] * dc.Threads[0]
	ny := dc.Groups[1] * dc.Threads[1]
	for gy := range ny {
		for gx := range nx {
			kernels.TessellateInvocation(gx, gy, params, tex, out)
		}
	}
	return nil
}
