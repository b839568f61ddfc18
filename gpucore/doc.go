// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package gpucore provides the device abstraction used by gpuflow steps.
//
// This package defines the [Device] interface, which abstracts over GPU
// backend implementations so the same step logic works with:
//   - gogpu/wgpu (Pure Go WebGPU via HAL, see internal/wgpudevice)
//   - a CPU reference device used for tests and headless runs (internal/softdevice)
//
// # Architecture
//
//	            +-------------------+
//	            |   workflow steps  |
//	            | (compute, texture)|
//	            +---------+---------+
//	                      |
//	            +---------v---------+
//	            |  gpucore.Device   |
//	            +---------+---------+
//	                      |
//	       +--------------+--------------+
//	       |                             |
//	+------v-------+             +-------v------+
//	|  wgpudevice  |             |  softdevice  |
//	| (hal.Device) |             |  (CPU, Go)   |
//	+--------------+             +--------------+
//
// # Resource Management
//
// GPU resources are referenced via opaque IDs ([BufferID], [TextureID],
// [SamplerID], [ComputePipelineID], [TransferBufferID]). Each Create call is
// paired with exactly one Release call. Devices track the mapping between
// IDs and backend objects; [InvalidID] never names a live resource.
//
// # Command Recording
//
// Work is recorded into a [CommandBuffer] acquired from the device. A command
// buffer holds copy passes ([CopyPass]) and compute passes ([ComputePass]) and
// is handed to the queue with Submit. Submission is asynchronous, but command
// buffers submitted to one device execute in submission order: a dispatch
// recorded after an upload observes the uploaded data without an explicit
// fence. [Device.WaitIdle] blocks until all submitted work has completed.
//
// # Kernel Formats
//
// Devices accept compute kernels in exactly one binary encoding, reported
// through [Device.Driver]: the "metal" driver takes MSL with entry point
// "main0", every other driver takes SPIR-V with entry point "main". See
// [KernelFormatFor].
//
// # Thread Safety
//
// Device implementations are safe for concurrent use. A CommandBuffer and
// the passes recorded into it belong to one goroutine.
package gpucore
