// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package gpuflow provides workflow steps that orchestrate GPU compute work:
// building compute pipelines from kernel binaries, allocating device buffers,
// and dispatching a kernel that displaces a tessellated grid.
//
// # Overview
//
// A workflow is a sequence of independently pluggable steps that share a
// run context. Each step reads device handles and values written by earlier
// steps, talks to the GPU through the [gpucore.Device] abstraction, and
// writes new handles back.
//
// The module is organized into:
//   - gpucore: device abstraction (buffers, textures, samplers, pipelines, passes)
//   - workflow: run context, step definitions, parameter and port resolvers, registry
//   - compute: compute.pipeline.create, compute.tessellate.dispatch, compute.tessellate
//   - texture: texture.load, producer of displacement inputs
//   - kernels: embedded WGSL tessellation kernel and its CPU reference
//   - internal/wgpudevice: gpucore.Device over gogpu/wgpu HAL (Vulkan, noop)
//   - internal/softdevice: CPU reference device
//   - cmd/gpuflow: command line runner for workflow files and kernels
//
// # Quick Start
//
//	reg := workflow.NewRegistry()
//	compute.Register(reg)
//	texture.Register(reg)
//
//	rc := workflow.NewContext()
//	defer rc.Close()
//	rc.SetDevice(workflow.DeviceKey, dev)
//
//	err := workflow.NewRunner(reg).Run(ctx, rc, steps)
//
// # Logging
//
// gpuflow produces no log output by default. Call [SetLogger] to enable it.
//
// [gpucore.Device]: https://pkg.go.dev/github.com/gogpu/gpuflow/gpucore#Device
package gpuflow
