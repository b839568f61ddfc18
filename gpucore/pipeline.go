// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package gpucore

import (
	"errors"
	"fmt"
)

// Pipeline validation errors.
var (
	// ErrEmptyKernel is returned when a pipeline description has no code.
	ErrEmptyKernel = errors.New("gpucore: kernel code is empty")

	// ErrInvalidThreadCount is returned when a thread-group dimension is zero.
	ErrInvalidThreadCount = errors.New("gpucore: thread count must be positive")

	// ErrNoEntryPoint is returned when a pipeline description has no entry point.
	ErrNoEntryPoint = errors.New("gpucore: entry point is empty")
)

// ComputePipelineDesc describes a compute pipeline: the kernel binary, its
// encoding and entry point, the resource binding counts, and the workgroup
// size the kernel was compiled with.
//
// Binding order is fixed: sampled texture/sampler pairs first, then
// read-write storage buffers, then uniform buffers.
type ComputePipelineDesc struct {
	Label      string
	Code       []byte
	EntryPoint string
	Format     ShaderFormat

	NumSamplers                 uint32
	NumReadOnlyStorageTextures  uint32
	NumReadOnlyStorageBuffers   uint32
	NumReadWriteStorageTextures uint32
	NumReadWriteStorageBuffers  uint32
	NumUniformBuffers           uint32

	ThreadCountX uint32
	ThreadCountY uint32
	ThreadCountZ uint32
}

// Validate checks the description for values no device accepts.
func (d *ComputePipelineDesc) Validate() error {
	if len(d.Code) == 0 {
		return ErrEmptyKernel
	}
	if d.EntryPoint == "" {
		return ErrNoEntryPoint
	}
	if d.ThreadCountX == 0 || d.ThreadCountY == 0 || d.ThreadCountZ == 0 {
		return fmt.Errorf("%w: %dx%dx%d", ErrInvalidThreadCount, d.ThreadCountX, d.ThreadCountY, d.ThreadCountZ)
	}
	return nil
}

// WorkgroupCount returns the number of workgroups needed to cover n
// invocations with groups of size threads: ceil(n / threads).
func WorkgroupCount(n, threads uint32) uint32 {
	if threads == 0 {
		return 0
	}
	return (n + threads - 1) / threads
}
