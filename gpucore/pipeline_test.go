// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package gpucore

import (
	"errors"
	"testing"
)

func TestKernelFormatFor(t *testing.T) {
	tests := []struct {
		driver    string
		wantFmt   ShaderFormat
		wantEntry string
	}{
		{DriverMetal, ShaderFormatMSL, "main0"},
		{DriverVulkan, ShaderFormatSPIRV, "main"},
		{DriverSoftware, ShaderFormatSPIRV, "main"},
		{"direct3d12", ShaderFormatSPIRV, "main"},
		{"", ShaderFormatSPIRV, "main"},
	}
	for _, tt := range tests {
		t.Run(tt.driver, func(t *testing.T) {
			f, entry := KernelFormatFor(tt.driver)
			if f != tt.wantFmt || entry != tt.wantEntry {
				t.Errorf("KernelFormatFor(%q) = (%v, %q), want (%v, %q)", tt.driver, f, entry, tt.wantFmt, tt.wantEntry)
			}
		})
	}
}

func TestWorkgroupCount(t *testing.T) {
	tests := []struct {
		n, threads, want uint32
	}{
		{5, 8, 1},
		{8, 8, 1},
		{9, 8, 2},
		{65, 8, 9},
		{257, 8, 33},
		{1, 1, 1},
		{10, 0, 0},
	}
	for _, tt := range tests {
		if got := WorkgroupCount(tt.n, tt.threads); got != tt.want {
			t.Errorf("WorkgroupCount(%d, %d) = %d, want %d", tt.n, tt.threads, got, tt.want)
		}
	}
}

func TestComputePipelineDescValidate(t *testing.T) {
	valid := ComputePipelineDesc{
		Code:         []byte{0x03, 0x02, 0x23, 0x07},
		EntryPoint:   "main",
		Format:       ShaderFormatSPIRV,
		ThreadCountX: 8,
		ThreadCountY: 8,
		ThreadCountZ: 1,
	}

	tests := []struct {
		name    string
		mutate  func(d *ComputePipelineDesc)
		wantErr error
	}{
		{"valid", func(*ComputePipelineDesc) {}, nil},
		{"empty code", func(d *ComputePipelineDesc) { d.Code = nil }, ErrEmptyKernel},
		{"no entry", func(d *ComputePipelineDesc) { d.EntryPoint = "" }, ErrNoEntryPoint},
		{"zero z", func(d *ComputePipelineDesc) { d.ThreadCountZ = 0 }, ErrInvalidThreadCount},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := valid
			tt.mutate(&d)
			err := d.Validate()
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestUsageStrings(t *testing.T) {
	if got := TransferBufferUsageUpload.String(); got != "Upload" {
		t.Errorf("TransferBufferUsageUpload.String() = %q", got)
	}
	if got := ShaderFormatMSL.String(); got != "MSL" {
		t.Errorf("ShaderFormatMSL.String() = %q", got)
	}
	if got := ShaderFormat(0).String(); got != "Unknown" {
		t.Errorf("ShaderFormat(0).String() = %q", got)
	}
	u := BufferUsageVertex | BufferUsageComputeStorageWrite
	if !u.Has(BufferUsageVertex) || u.Has(BufferUsageIndex) {
		t.Errorf("BufferUsage.Has() mismatch for %b", u)
	}
}
