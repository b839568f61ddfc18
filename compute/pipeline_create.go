// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package compute

import (
	"context"
	"fmt"

	"github.com/gogpu/gpuflow"
	"github.com/gogpu/gpuflow/gpucore"
	"github.com/gogpu/gpuflow/workflow"
)

// Plugin ids of the compute steps.
const (
	PluginPipelineCreate     = "compute.pipeline.create"
	PluginTessellateDispatch = "compute.tessellate.dispatch"
	PluginTessellate         = "compute.tessellate"
)

// PipelineCreateStep loads a compute kernel and stores a reusable compute
// pipeline in the run context.
//
// Input port "shader_path" names a context string holding the kernel path.
// Parameters: num_samplers (1), num_storage_buffers (1), num_uniforms (1),
// threadcount_x/y/z (8/8/1), pipeline_key ("compute_pipeline").
type PipelineCreateStep struct{}

var _ workflow.Step = PipelineCreateStep{}

func (PipelineCreateStep) PluginID() string { return PluginPipelineCreate }

func (PipelineCreateStep) Ports() []workflow.PortSpec {
	return []workflow.PortSpec{
		{Name: "shader_path", Direction: workflow.In, Type: workflow.TypeString, Required: true},
	}
}

// pipelineLayout is the binding and workgroup configuration of a pipeline.
type pipelineLayout struct {
	samplers, storage, uniforms int
	threads                     [3]int
}

func (l pipelineLayout) String() string {
	return fmt.Sprintf("threads=%dx%dx%d, samplers=%d, storage=%d, uniforms=%d",
		l.threads[0], l.threads[1], l.threads[2], l.samplers, l.storage, l.uniforms)
}

// fusedLayout is the fixed layout of the tessellation kernel.
var fusedLayout = pipelineLayout{samplers: 1, storage: 1, uniforms: 1, threads: [3]int{8, 8, 1}}

func resolveLayout(def *workflow.StepDefinition) (pipelineLayout, error) {
	params := workflow.ParamsOf(def)
	var l pipelineLayout
	ints := []struct {
		name string
		def  int
		dst  *int
		min  int
	}{
		{"num_samplers", 1, &l.samplers, 0},
		{"num_storage_buffers", 1, &l.storage, 0},
		{"num_uniforms", 1, &l.uniforms, 0},
		{"threadcount_x", 8, &l.threads[0], 1},
		{"threadcount_y", 8, &l.threads[1], 1},
		{"threadcount_z", 1, &l.threads[2], 1},
	}
	for _, p := range ints {
		v, err := params.Int(p.name, p.def)
		if err != nil {
			return l, err
		}
		if v < p.min {
			return l, workflow.Errorf(workflow.KindLogic, "parameter '%s' must be >= %d, got %d", p.name, p.min, v)
		}
		*p.dst = v
	}
	return l, nil
}

// createPipeline builds a compute pipeline from k with layout l.
func createPipeline(dev gpucore.Device, k *Kernel, l pipelineLayout, label string) (gpucore.ComputePipelineID, error) {
	id, err := dev.CreateComputePipeline(&gpucore.ComputePipelineDesc{
		Label:                      label,
		Code:                       k.Code,
		EntryPoint:                 k.EntryPoint,
		Format:                     k.Format,
		NumSamplers:                uint32(l.samplers),
		NumReadWriteStorageBuffers: uint32(l.storage),
		NumUniformBuffers:          uint32(l.uniforms),
		ThreadCountX:               uint32(l.threads[0]),
		ThreadCountY:               uint32(l.threads[1]),
		ThreadCountZ:               uint32(l.threads[2]),
	})
	if err != nil {
		return gpucore.InvalidID, workflow.Errorf(workflow.KindResourceCreation,
			"failed to create compute pipeline from '%s': %w", k.Path, err)
	}
	return id, nil
}

// Execute implements workflow.Step.
func (s PipelineCreateStep) Execute(ctx context.Context, def *workflow.StepDefinition, rc *workflow.Context) error {
	err := s.execute(ctx, def, rc)
	return workflow.Annotate(PluginPipelineCreate, workflow.KindResourceCreation, err)
}

func (PipelineCreateStep) execute(ctx context.Context, def *workflow.StepDefinition, rc *workflow.Context) error {
	layout, err := resolveLayout(def)
	if err != nil {
		return err
	}
	key, err := workflow.ParamsOf(def).String("pipeline_key", workflow.DefaultPipelineKey)
	if err != nil {
		return err
	}
	if key == "" || key == workflow.DeviceKey {
		return workflow.Errorf(workflow.KindConfiguration, "invalid pipeline_key '%s'", key)
	}

	pathKey, err := workflow.PortsOf(def).RequiredInput("shader_path")
	if err != nil {
		return err
	}
	path, err := rc.String(pathKey)
	if err != nil {
		return workflow.Errorf(workflow.KindConfiguration, "shader_path not found in context key '%s'", pathKey)
	}
	dev, err := rc.Device(workflow.DeviceKey)
	if err != nil {
		return workflow.Errorf(workflow.KindConfiguration, "GPU device not found in context")
	}
	if err := rc.CheckStore(workflow.TypePipeline, key); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return workflow.Canceled("cancelled before pipeline creation", err)
	}

	k, err := LoadKernel(path, dev.Driver())
	if err != nil {
		return err
	}
	id, err := createPipeline(dev, k, layout, key)
	if err != nil {
		return err
	}
	rc.SetPipeline(key, dev, id)

	gpuflow.StepLogger(PluginPipelineCreate, def.ID).Info("compute pipeline created",
		"key", key, "path", k.Path, "format", k.Format.String(), "layout", layout.String())
	return nil
}
