// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package compute

import (
	"context"

	"github.com/gogpu/gpuflow"
	"github.com/gogpu/gpuflow/gpucore"
	"github.com/gogpu/gpuflow/workflow"
)

// TessellateDispatchStep generates a displaced grid mesh with a pipeline
// created earlier by PipelineCreateStep. The pipeline is borrowed from the
// run context and never released by this step.
//
// Input port "displacement_texture" names a texture base key; the step
// reads "<key>_gpu" and "<key>_sampler". Parameters: width (10), depth (5),
// subdivisions (64), displacement_strength (0.1), uv_scale_x/y (1),
// name ("tessellated"), pipeline_key ("compute_pipeline").
type TessellateDispatchStep struct{}

var _ workflow.Step = TessellateDispatchStep{}

func (TessellateDispatchStep) PluginID() string { return PluginTessellateDispatch }

func (TessellateDispatchStep) Ports() []workflow.PortSpec {
	return []workflow.PortSpec{
		{Name: "displacement_texture", Direction: workflow.In, Type: workflow.TypeTexture, Required: true},
	}
}

// Execute implements workflow.Step.
func (s TessellateDispatchStep) Execute(ctx context.Context, def *workflow.StepDefinition, rc *workflow.Context) error {
	err := s.execute(ctx, def, rc)
	return workflow.Annotate(PluginTessellateDispatch, workflow.KindResourceCreation, err)
}

func (TessellateDispatchStep) execute(ctx context.Context, def *workflow.StepDefinition, rc *workflow.Context) error {
	params, name, err := resolveTessParams(def)
	if err != nil {
		return err
	}
	pipelineKey, err := workflow.ParamsOf(def).String("pipeline_key", workflow.DefaultPipelineKey)
	if err != nil {
		return err
	}

	texKey, err := workflow.PortsOf(def).RequiredInput("displacement_texture")
	if err != nil {
		return err
	}
	dev, disp, err := lookupDisplacement(rc, texKey)
	if err != nil {
		return err
	}
	pipeline, err := rc.Pipeline(pipelineKey)
	if err != nil {
		return workflow.Errorf(workflow.KindConfiguration,
			"compute pipeline '%s' not found in context (run compute.pipeline.create first)", pipelineKey)
	}
	if err := checkMeshKeys(rc, name); err != nil {
		return err
	}

	mesh, err := Tessellate(ctx, &TessellateRequest{
		Device:       dev,
		Pipeline:     pipeline,
		Ownership:    Borrowed,
		Displacement: disp,
		Params:       params,
		Label:        name,
	})
	if err != nil {
		return err
	}
	keys := storeMesh(rc, dev, name, mesh)

	gpuflow.StepLogger(PluginTessellateDispatch, def.ID).Info("tessellated mesh created",
		"name", keys.Base, "vertices", mesh.VertexCount, "indices", mesh.IndexCount,
		"subdivisions", params.Subdivisions, "displacement", params.DisplacementStrength,
		"pipeline", pipelineKey)
	return nil
}

// lookupDisplacement resolves the device and the displacement texture and
// sampler stored under the texture key family of texKey.
func lookupDisplacement(rc *workflow.Context, texKey string) (gpucore.Device, gpucore.TextureSamplerBinding, error) {
	var none gpucore.TextureSamplerBinding
	dev, err := rc.Device(workflow.DeviceKey)
	if err != nil {
		return nil, none, workflow.Errorf(workflow.KindConfiguration, "GPU device not found in context")
	}
	keys := workflow.TextureKeys(texKey)
	tex, err := rc.Texture(keys.Texture)
	if err != nil {
		return nil, none, workflow.Errorf(workflow.KindConfiguration, "displacement texture '%s' not found in context", keys.Texture)
	}
	smp, err := rc.Sampler(keys.Sampler)
	if err != nil {
		return nil, none, workflow.Errorf(workflow.KindConfiguration, "displacement sampler '%s' not found in context", keys.Sampler)
	}
	return dev, gpucore.TextureSamplerBinding{Texture: tex, Sampler: smp}, nil
}
