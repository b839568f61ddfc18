// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package gpucore

import "errors"

// Device errors shared by implementations.
var (
	// ErrResourceNotFound is returned when an ID does not name a live resource.
	ErrResourceNotFound = errors.New("gpucore: resource not found")

	// ErrUnsupportedFormat is returned when a kernel encoding does not match the driver.
	ErrUnsupportedFormat = errors.New("gpucore: unsupported kernel format")

	// ErrPassActive is returned when a pass is begun while another is open,
	// or a command buffer is submitted with an open pass.
	ErrPassActive = errors.New("gpucore: a pass is already active")

	// ErrSubmitted is returned when a command buffer is used after Submit.
	ErrSubmitted = errors.New("gpucore: command buffer already submitted")

	// ErrDeviceClosed is returned by operations on a closed device.
	ErrDeviceClosed = errors.New("gpucore: device closed")
)

// Device abstracts a GPU: resource creation and release, and command
// buffer acquisition.
//
// Every Create method returns a handle that must be released exactly once
// with the matching Release method. Release of InvalidID is a no-op.
// Command buffers submitted to one device execute in submission order.
type Device interface {
	// Driver returns the backend driver name, e.g. "vulkan", "metal" or "software".
	Driver() string

	// CreateComputePipeline builds a compute pipeline from a kernel binary.
	CreateComputePipeline(desc *ComputePipelineDesc) (ComputePipelineID, error)

	// ReleaseComputePipeline releases a compute pipeline.
	ReleaseComputePipeline(id ComputePipelineID)

	// CreateBuffer allocates a device buffer.
	CreateBuffer(desc *BufferDesc) (BufferID, error)

	// ReleaseBuffer releases a device buffer.
	ReleaseBuffer(id BufferID)

	// CreateTransferBuffer allocates a host-visible staging buffer.
	CreateTransferBuffer(desc *TransferBufferDesc) (TransferBufferID, error)

	// WriteTransferBuffer copies data into a transfer buffer at offset.
	// It stands in for map, memcpy, unmap.
	WriteTransferBuffer(id TransferBufferID, offset uint32, data []byte) error

	// ReadTransferBuffer copies len(dst) bytes out of a transfer buffer at offset.
	ReadTransferBuffer(id TransferBufferID, offset uint32, dst []byte) error

	// ReleaseTransferBuffer releases a transfer buffer.
	ReleaseTransferBuffer(id TransferBufferID)

	// CreateTexture allocates a 2D texture.
	CreateTexture(desc *TextureDesc) (TextureID, error)

	// ReleaseTexture releases a texture.
	ReleaseTexture(id TextureID)

	// CreateSampler creates a sampler.
	CreateSampler(desc *SamplerDesc) (SamplerID, error)

	// ReleaseSampler releases a sampler.
	ReleaseSampler(id SamplerID)

	// AcquireCommandBuffer returns a new command buffer for recording.
	AcquireCommandBuffer() (CommandBuffer, error)

	// WaitIdle blocks until all submitted command buffers have completed.
	WaitIdle() error
}

// CommandBuffer records copy and compute passes for one submission.
// At most one pass may be open at a time.
type CommandBuffer interface {
	// BeginCopyPass opens a copy pass.
	BeginCopyPass() (CopyPass, error)

	// BeginComputePass opens a compute pass with the given buffers bound
	// for read-write storage access.
	BeginComputePass(storage []StorageBufferReadWriteBinding) (ComputePass, error)

	// PushComputeUniformData sets the uniform block at slot for subsequent
	// dispatches recorded into this command buffer.
	PushComputeUniformData(slot uint32, data []byte)

	// Submit hands the command buffer to the queue. The command buffer must
	// not be used afterwards.
	Submit() error

	// Cancel discards a command buffer that will not be submitted.
	Cancel()
}

// CopyPass records transfers from transfer buffers into device resources.
type CopyPass interface {
	// UploadToBuffer copies src.Size bytes from a transfer buffer into dst.
	UploadToBuffer(src TransferBufferLocation, dst BufferRegion, cycle bool)

	// UploadToTexture copies texel data from a transfer buffer into dst.
	UploadToTexture(src TextureTransferInfo, dst TextureRegion, cycle bool)

	// DownloadFromBuffer copies src.Size bytes from a device buffer into a
	// transfer buffer.
	DownloadFromBuffer(src BufferRegion, dst TransferBufferLocation)

	// End closes the pass.
	End()
}

// ComputePass records compute dispatches.
type ComputePass interface {
	// BindPipeline selects the compute pipeline for subsequent dispatches.
	BindPipeline(id ComputePipelineID)

	// BindSamplers binds texture/sampler pairs starting at slot first.
	BindSamplers(first uint32, bindings []TextureSamplerBinding)

	// Dispatch launches x*y*z workgroups.
	Dispatch(x, y, z uint32)

	// End closes the pass.
	End()
}
