// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package compute

import (
	"context"

	"github.com/gogpu/gpuflow"
	"github.com/gogpu/gpuflow/workflow"
)

// TessellateStep generates a displaced grid mesh with a single-use
// pipeline: it loads the kernel, creates the pipeline with the fixed
// tessellation layout (1 sampler, 1 storage buffer, 1 uniform, 8x8x1
// threads), dispatches, and releases the pipeline.
//
// Input ports "displacement_texture" (texture base key) and
// "compute_shader_path" (context string). Parameters are those of
// TessellateDispatchStep without pipeline_key.
type TessellateStep struct{}

var _ workflow.Step = TessellateStep{}

func (TessellateStep) PluginID() string { return PluginTessellate }

func (TessellateStep) Ports() []workflow.PortSpec {
	return []workflow.PortSpec{
		{Name: "displacement_texture", Direction: workflow.In, Type: workflow.TypeTexture, Required: true},
		{Name: "compute_shader_path", Direction: workflow.In, Type: workflow.TypeString, Required: true},
	}
}

// Execute implements workflow.Step.
func (s TessellateStep) Execute(ctx context.Context, def *workflow.StepDefinition, rc *workflow.Context) error {
	err := s.execute(ctx, def, rc)
	return workflow.Annotate(PluginTessellate, workflow.KindResourceCreation, err)
}

func (TessellateStep) execute(ctx context.Context, def *workflow.StepDefinition, rc *workflow.Context) error {
	params, name, err := resolveTessParams(def)
	if err != nil {
		return err
	}
	if _, err := NewGrid(params.Subdivisions); err != nil {
		return err
	}

	ports := workflow.PortsOf(def)
	texKey, err := ports.RequiredInput("displacement_texture")
	if err != nil {
		return err
	}
	shaderKey, err := ports.RequiredInput("compute_shader_path")
	if err != nil {
		return err
	}
	path, err := rc.String(shaderKey)
	if err != nil {
		return workflow.Errorf(workflow.KindConfiguration, "compute_shader_path not found in context key '%s'", shaderKey)
	}
	dev, disp, err := lookupDisplacement(rc, texKey)
	if err != nil {
		return err
	}
	if err := checkMeshKeys(rc, name); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return workflow.Canceled("cancelled before pipeline creation", err)
	}

	k, err := LoadKernel(path, dev.Driver())
	if err != nil {
		return err
	}
	pipeline, err := createPipeline(dev, k, fusedLayout, name+"_tessellate")
	if err != nil {
		return err
	}

	mesh, err := Tessellate(ctx, &TessellateRequest{
		Device:       dev,
		Pipeline:     pipeline,
		Ownership:    OwnedReleaseAfterUse,
		Displacement: disp,
		Params:       params,
		Label:        name,
	})
	if err != nil {
		return err
	}
	keys := storeMesh(rc, dev, name, mesh)

	gpuflow.StepLogger(PluginTessellate, def.ID).Info("tessellated mesh created",
		"name", keys.Base, "vertices", mesh.VertexCount, "indices", mesh.IndexCount,
		"subdivisions", params.Subdivisions, "displacement", params.DisplacementStrength,
		"kernel", k.Path)
	return nil
}
