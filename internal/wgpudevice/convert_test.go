// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package wgpudevice

import (
	"errors"
	"testing"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/gpuflow/gpucore"
)

func TestLayoutEntriesTessellate(t *testing.T) {
	desc := &gpucore.ComputePipelineDesc{
		NumSamplers:                1,
		NumReadWriteStorageBuffers: 1,
		NumUniformBuffers:          1,
	}
	entries, err := layoutEntries(desc)
	if err != nil {
		t.Fatalf("layoutEntries: %v", err)
	}
	if len(entries) != 4 {
		t.Fatalf("got %d entries, want 4", len(entries))
	}

	if e := entries[0]; e.Binding != 0 || e.Texture == nil || e.Texture.SampleType != gputypes.TextureSampleTypeFloat {
		t.Errorf("entry 0 = %+v, want float texture at binding 0", e)
	}
	if e := entries[1]; e.Binding != 1 || e.Sampler == nil || e.Sampler.Type != gputypes.SamplerBindingTypeFiltering {
		t.Errorf("entry 1 = %+v, want filtering sampler at binding 1", e)
	}
	if e := entries[2]; e.Binding != 2 || e.Buffer == nil || e.Buffer.Type != gputypes.BufferBindingTypeStorage {
		t.Errorf("entry 2 = %+v, want storage buffer at binding 2", e)
	}
	if e := entries[3]; e.Binding != 3 || e.Buffer == nil || e.Buffer.Type != gputypes.BufferBindingTypeUniform {
		t.Errorf("entry 3 = %+v, want uniform buffer at binding 3", e)
	}
	for i, e := range entries {
		if e.Visibility != gputypes.ShaderStageCompute {
			t.Errorf("entry %d visibility = %v, want compute", i, e.Visibility)
		}
	}
}

func TestBindingSlots(t *testing.T) {
	s := bindingSlots{samplers: 2, roStorage: 1, rwStorage: 2, uniforms: 1}
	tests := []struct {
		name string
		got  uint32
		want uint32
	}{
		{"texture0", s.texture(0), 0},
		{"sampler0", s.sampler(0), 1},
		{"texture1", s.texture(1), 2},
		{"sampler1", s.sampler(1), 3},
		{"ro0", s.roBuffer(0), 4},
		{"rw0", s.rwBuffer(0), 5},
		{"rw1", s.rwBuffer(1), 6},
		{"uniform0", s.uniform(0), 7},
		{"count", s.count(), 8},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %d, want %d", tt.name, tt.got, tt.want)
		}
	}
}

func TestLayoutEntriesRejectsStorageTextures(t *testing.T) {
	for _, desc := range []*gpucore.ComputePipelineDesc{
		{NumReadOnlyStorageTextures: 1},
		{NumReadWriteStorageTextures: 1},
	} {
		if _, err := layoutEntries(desc); !errors.Is(err, gpucore.ErrUnsupportedFormat) {
			t.Errorf("layoutEntries(%+v) err = %v, want ErrUnsupportedFormat", desc, err)
		}
	}
}

func TestBufferUsage(t *testing.T) {
	copyBoth := gputypes.BufferUsageCopyDst | gputypes.BufferUsageCopySrc
	tests := []struct {
		in   gpucore.BufferUsage
		want gputypes.BufferUsage
	}{
		{0, copyBoth},
		{gpucore.BufferUsageIndex, copyBoth | gputypes.BufferUsageIndex},
		{gpucore.BufferUsageVertex | gpucore.BufferUsageComputeStorageWrite,
			copyBoth | gputypes.BufferUsageVertex | gputypes.BufferUsageStorage},
		{gpucore.BufferUsageComputeStorageRead, copyBoth | gputypes.BufferUsageStorage},
		{gpucore.BufferUsageIndirect, copyBoth | gputypes.BufferUsageIndirect},
	}
	for _, tt := range tests {
		if got := bufferUsage(tt.in); got != tt.want {
			t.Errorf("bufferUsage(%b) = %b, want %b", tt.in, got, tt.want)
		}
	}
}

func TestTextureUsage(t *testing.T) {
	got := textureUsage(gpucore.TextureUsageSampler)
	if got&gputypes.TextureUsageTextureBinding == 0 || got&gputypes.TextureUsageCopyDst == 0 {
		t.Errorf("sampler usage = %b, want texture binding and copy dst", got)
	}
	if got&gputypes.TextureUsageStorageBinding != 0 {
		t.Errorf("sampler usage = %b, unexpected storage binding", got)
	}
	if got := textureUsage(gpucore.TextureUsageComputeStorageWrite); got&gputypes.TextureUsageStorageBinding == 0 {
		t.Errorf("storage usage = %b, want storage binding", got)
	}
}

func TestTextureFormat(t *testing.T) {
	if f, err := textureFormat(gpucore.TextureFormatRGBA8Unorm); err != nil || f != gputypes.TextureFormatRGBA8Unorm {
		t.Errorf("RGBA8 = %v, %v", f, err)
	}
	if f, err := textureFormat(gpucore.TextureFormatR32Float); err != nil || f != gputypes.TextureFormatR32Float {
		t.Errorf("R32F = %v, %v", f, err)
	}
	if _, err := textureFormat(gpucore.TextureFormat(99)); !errors.Is(err, gpucore.ErrUnsupportedFormat) {
		t.Errorf("unknown format err = %v, want ErrUnsupportedFormat", err)
	}
}

func TestSamplerModes(t *testing.T) {
	if filterMode(gpucore.FilterLinear) != gputypes.FilterModeLinear {
		t.Error("linear filter not mapped")
	}
	if filterMode(gpucore.FilterNearest) != gputypes.FilterModeNearest {
		t.Error("nearest filter not mapped")
	}
	modes := map[gpucore.AddressMode]gputypes.AddressMode{
		gpucore.AddressModeRepeat:         gputypes.AddressModeRepeat,
		gpucore.AddressModeMirroredRepeat: gputypes.AddressModeMirrorRepeat,
		gpucore.AddressModeClampToEdge:    gputypes.AddressModeClampToEdge,
	}
	for in, want := range modes {
		if got := addressMode(in); got != want {
			t.Errorf("addressMode(%d) = %v, want %v", in, got, want)
		}
	}
}
