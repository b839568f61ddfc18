// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package compute

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/gogpu/gpuflow/gpucore"
	"github.com/gogpu/gpuflow/kernels"
	"github.com/gogpu/gpuflow/workflow"
)

// Kernel is a kernel binary ready for pipeline creation.
type Kernel struct {
	Path       string
	Code       []byte
	Format     gpucore.ShaderFormat
	EntryPoint string
}

// LoadKernel reads the kernel at path for a device with the given driver.
//
// Binary kernels are passed through in the driver's encoding: MSL with
// entry point "main0" on "metal", SPIR-V with entry point "main" elsewhere.
// Files with the ".wgsl" extension are compiled in-process to the driver's
// encoding first.
func LoadKernel(path, driver string) (*Kernel, error) {
	resolved := workflow.ExpandHome(path)
	data, err := os.ReadFile(resolved)
	if err != nil {
		return nil, workflow.Errorf(workflow.KindIO, "failed to open kernel '%s': %w", resolved, err)
	}
	if len(data) == 0 {
		return nil, workflow.Errorf(workflow.KindIO, "kernel '%s' is empty", resolved)
	}

	format, entry := gpucore.KernelFormatFor(driver)
	k := &Kernel{Path: resolved, Code: data, Format: format, EntryPoint: entry}
	if !strings.EqualFold(filepath.Ext(resolved), ".wgsl") {
		return k, nil
	}

	switch format {
	case gpucore.ShaderFormatMSL:
		src, name, err := kernels.CompileWGSLToMSL(string(data), "main")
		if err != nil {
			return nil, workflow.Errorf(workflow.KindIO, "kernel '%s': %w", resolved, err)
		}
		k.Code, k.EntryPoint = []byte(src), name
	default:
		spirv, err := kernels.CompileWGSL(string(data))
		if err != nil {
			return nil, workflow.Errorf(workflow.KindIO, "kernel '%s': %w", resolved, err)
		}
		k.Code = spirv
	}
	return k, nil
}
