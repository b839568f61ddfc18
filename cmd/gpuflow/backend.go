// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gogpu/gputypes"

	// Register the noop backend for --backend=noop.
	_ "github.com/gogpu/wgpu/hal/noop"

	"github.com/gogpu/gpuflow/gpucore"
	"github.com/gogpu/gpuflow/internal/softdevice"
	"github.com/gogpu/gpuflow/internal/wgpudevice"
	"github.com/gogpu/gpuflow/kernels"
)

// Backend names accepted by --backend.
const (
	backendSoftware = "software"
	backendVulkan   = "vulkan"
	backendNoop     = "noop"
)

// openBackend opens the named device. The returned close function must be
// called after every resource of the device has been released.
func openBackend(name string) (gpucore.Device, func() error, error) {
	switch name {
	case "", backendSoftware:
		spirv, err := kernels.TessellateSPIRV()
		if err != nil {
			return nil, nil, err
		}
		dev := softdevice.New(softdevice.WithTessellateKernel(spirv))
		return dev, func() error { return nil }, nil
	case backendVulkan:
		dev, err := wgpudevice.Open()
		if err != nil {
			return nil, nil, err
		}
		return dev, dev.Close, nil
	case backendNoop:
		dev, err := wgpudevice.Open(wgpudevice.WithBackend(gputypes.BackendEmpty))
		if err != nil {
			return nil, nil, err
		}
		return dev, dev.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown backend %q (want %s, %s or %s)", name, backendSoftware, backendVulkan, backendNoop)
	}
}

// builtinKernel writes the embedded tessellation kernel to dir and returns
// its path.
func builtinKernel(dir string) (string, error) {
	path := filepath.Join(dir, "tessellate.wgsl")
	if err := os.WriteFile(path, []byte(kernels.TessellateWGSL()), 0o600); err != nil {
		return "", fmt.Errorf("write builtin kernel: %w", err)
	}
	return path, nil
}
