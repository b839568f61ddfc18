// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package wgpudevice

import (
	"fmt"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/gpuflow/gpucore"
)

// Binding slots of a compute pipeline, in declaration order: one texture
// and sampler pair per sampler, then read-only storage buffers, then
// read-write storage buffers, then uniform buffers. Kernels declare their
// bindings in group 0 with these numbers.
type bindingSlots struct {
	samplers  uint32
	roStorage uint32
	rwStorage uint32
	uniforms  uint32
}

func slotsOf(desc *gpucore.ComputePipelineDesc) bindingSlots {
	return bindingSlots{
		samplers:  desc.NumSamplers,
		roStorage: desc.NumReadOnlyStorageBuffers,
		rwStorage: desc.NumReadWriteStorageBuffers,
		uniforms:  desc.NumUniformBuffers,
	}
}

func (s bindingSlots) texture(i uint32) uint32 { return 2 * i }
func (s bindingSlots) sampler(i uint32) uint32 { return 2*i + 1 }
func (s bindingSlots) roBuffer(i uint32) uint32 { return 2*s.samplers + i }
func (s bindingSlots) rwBuffer(i uint32) uint32 { return 2*s.samplers + s.roStorage + i }
func (s bindingSlots) uniform(i uint32) uint32 { return 2*s.samplers + s.roStorage + s.rwStorage + i }
func (s bindingSlots) count() uint32 { return s.uniform(s.uniforms) }

// layoutEntries builds the bind group layout of a compute pipeline.
func layoutEntries(desc *gpucore.ComputePipelineDesc) ([]gputypes.BindGroupLayoutEntry, error) {
	if desc.NumReadOnlyStorageTextures > 0 || desc.NumReadWriteStorageTextures > 0 {
		return nil, fmt.Errorf("%w: storage textures", gpucore.ErrUnsupportedFormat)
	}
	s := slotsOf(desc)
	entries := make([]gputypes.BindGroupLayoutEntry, 0, s.count())
	for i := range s.samplers {
		entries = append(entries,
			gputypes.BindGroupLayoutEntry{
				Binding:    s.texture(i),
				Visibility: gputypes.ShaderStageCompute,
				Texture: &gputypes.TextureBindingLayout{
					SampleType:    gputypes.TextureSampleTypeFloat,
					ViewDimension: gputypes.TextureViewDimension2D,
				},
			},
			gputypes.BindGroupLayoutEntry{
				Binding:    s.sampler(i),
				Visibility: gputypes.ShaderStageCompute,
				Sampler:    &gputypes.SamplerBindingLayout{Type: gputypes.SamplerBindingTypeFiltering},
			},
		)
	}
	buffer := func(binding uint32, typ gputypes.BufferBindingType) gputypes.BindGroupLayoutEntry {
		return gputypes.BindGroupLayoutEntry{
			Binding:    binding,
			Visibility: gputypes.ShaderStageCompute,
			Buffer:     &gputypes.BufferBindingLayout{Type: typ},
		}
	}
	for i := range s.roStorage {
		entries = append(entries, buffer(s.roBuffer(i), gputypes.BufferBindingTypeReadOnlyStorage))
	}
	for i := range s.rwStorage {
		entries = append(entries, buffer(s.rwBuffer(i), gputypes.BufferBindingTypeStorage))
	}
	for i := range s.uniforms {
		entries = append(entries, buffer(s.uniform(i), gputypes.BufferBindingTypeUniform))
	}
	return entries, nil
}

// bufferUsage maps device buffer usage to wgpu usage. Every buffer can be
// a copy destination so uploads and downloads need no extra flags.
func bufferUsage(u gpucore.BufferUsage) gputypes.BufferUsage {
	out := gputypes.BufferUsageCopyDst | gputypes.BufferUsageCopySrc
	if u.Has(gpucore.BufferUsageVertex) {
		out |= gputypes.BufferUsageVertex
	}
	if u.Has(gpucore.BufferUsageIndex) {
		out |= gputypes.BufferUsageIndex
	}
	if u.Has(gpucore.BufferUsageIndirect) {
		out |= gputypes.BufferUsageIndirect
	}
	if u&(gpucore.BufferUsageGraphicsStorageRead|gpucore.BufferUsageComputeStorageRead|gpucore.BufferUsageComputeStorageWrite) != 0 {
		out |= gputypes.BufferUsageStorage
	}
	return out
}

func textureUsage(u gpucore.TextureUsage) gputypes.TextureUsage {
	out := gputypes.TextureUsageCopyDst | gputypes.TextureUsageCopySrc
	if u&gpucore.TextureUsageSampler != 0 {
		out |= gputypes.TextureUsageTextureBinding
	}
	if u&(gpucore.TextureUsageComputeStorageRead|gpucore.TextureUsageComputeStorageWrite) != 0 {
		out |= gputypes.TextureUsageStorageBinding
	}
	return out
}

func textureFormat(f gpucore.TextureFormat) (gputypes.TextureFormat, error) {
	switch f {
	case gpucore.TextureFormatRGBA8Unorm:
		return gputypes.TextureFormatRGBA8Unorm, nil
	case gpucore.TextureFormatR32Float:
		return gputypes.TextureFormatR32Float, nil
	default:
		return 0, fmt.Errorf("%w: texture format %d", gpucore.ErrUnsupportedFormat, f)
	}
}

func filterMode(f gpucore.Filter) gputypes.FilterMode {
	if f == gpucore.FilterLinear {
		return gputypes.FilterModeLinear
	}
	return gputypes.FilterModeNearest
}

func addressMode(m gpucore.AddressMode) gputypes.AddressMode {
	switch m {
	case gpucore.AddressModeMirroredRepeat:
		return gputypes.AddressModeMirrorRepeat
	case gpucore.AddressModeClampToEdge:
		return gputypes.AddressModeClampToEdge
	default:
		return gputypes.AddressModeRepeat
	}
}
