// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package compute

import (
	"context"

	"github.com/gogpu/gpuflow"
	"github.com/gogpu/gpuflow/gpucore"
	"github.com/gogpu/gpuflow/workflow"
)

// PipelineOwnership says who releases the pipeline a dispatch uses.
type PipelineOwnership uint8

const (
	// Borrowed pipelines belong to the run context and outlive the dispatch.
	Borrowed PipelineOwnership = iota

	// OwnedReleaseAfterUse pipelines are released by Tessellate right after
	// the dispatch is submitted, and on every error path.
	OwnedReleaseAfterUse
)

func (o PipelineOwnership) String() string {
	switch o {
	case Borrowed:
		return "borrowed"
	case OwnedReleaseAfterUse:
		return "owned_release_after_use"
	default:
		return "unknown"
	}
}

// TessellateRequest is the input of one tessellation dispatch.
type TessellateRequest struct {
	Device       gpucore.Device
	Pipeline     gpucore.ComputePipelineID
	Ownership    PipelineOwnership
	Displacement gpucore.TextureSamplerBinding
	Params       TessParams
	Label        string
}

// MeshArtifact is a generated mesh. Its buffers belong to the caller,
// normally the run context.
type MeshArtifact struct {
	VertexBuffer gpucore.BufferID
	IndexBuffer  gpucore.BufferID
	VertexCount  uint32
	IndexCount   uint32
	VertexStride uint32
	Grid         Grid
	Metadata     workflow.Metadata
}

// Tessellate allocates the vertex and index buffers of an N x N grid,
// uploads the host-generated indices, and dispatches the displacement
// kernel to fill the vertices.
//
// The upload and the dispatch are separate submissions with no fence in
// between; the device executes them in submission order. Any partially
// allocated buffers are released on error. An OwnedReleaseAfterUse
// pipeline is released before Tessellate returns, whatever the outcome.
func Tessellate(ctx context.Context, req *TessellateRequest) (*MeshArtifact, error) {
	dev := req.Device
	log := gpuflow.Logger()
	if req.Ownership == OwnedReleaseAfterUse {
		defer func() {
			dev.ReleaseComputePipeline(req.Pipeline)
			log.Debug("compute: single-use pipeline released", "pipeline", req.Pipeline)
		}()
	}

	grid, err := NewGrid(req.Params.Subdivisions)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, workflow.Canceled("cancelled before allocation", err)
	}

	r := gpucore.NewReleaser(dev)
	defer r.Run()

	vb, err := dev.CreateBuffer(&gpucore.BufferDesc{
		Label: req.Label + "_vb",
		Usage: gpucore.BufferUsageVertex | gpucore.BufferUsageComputeStorageWrite,
		Size:  grid.VertexBytes(),
	})
	if err != nil {
		return nil, workflow.Errorf(workflow.KindResourceCreation, "failed to create vertex buffer: %w", err)
	}
	r.Buffer(vb)

	ib, err := dev.CreateBuffer(&gpucore.BufferDesc{
		Label: req.Label + "_ib",
		Usage: gpucore.BufferUsageIndex,
		Size:  grid.IndexBytes(),
	})
	if err != nil {
		return nil, workflow.Errorf(workflow.KindResourceCreation, "failed to create index buffer: %w", err)
	}
	r.Buffer(ib)

	if err := uploadIndices(dev, ib, IndexBytesLE(grid.Indices())); err != nil {
		return nil, err
	}
	log.Debug("compute: indices uploaded", "buffer", ib, "indices", grid.IndexCount)

	if err := dispatchTessellation(dev, req, vb, grid); err != nil {
		return nil, err
	}
	log.Debug("compute: tessellation dispatched",
		"pipeline", req.Pipeline, "groups_x", grid.Workgroups[0], "groups_y", grid.Workgroups[1])

	r.Disarm()
	p := req.Params
	return &MeshArtifact{
		VertexBuffer: vb,
		IndexBuffer:  ib,
		VertexCount:  grid.VertexCount,
		IndexCount:   grid.IndexCount,
		VertexStride: VertexStride,
		Grid:         grid,
		Metadata: workflow.Metadata{
			"vertex_count":          grid.VertexCount,
			"index_count":           grid.IndexCount,
			"stride":                uint32(VertexStride),
			"width":                 p.Width,
			"depth":                 p.Depth,
			"subdivisions":          p.Subdivisions,
			"displacement_strength": p.DisplacementStrength,
			"uv_scale_x":            p.UVScaleX,
			"uv_scale_y":            p.UVScaleY,
			"compute_tessellated":   true,
			"pipeline_ownership":    req.Ownership.String(),
		},
	}, nil
}

// uploadIndices stages data in a transfer buffer, copies it into ib and
// submits. The transfer buffer is released once the copy is submitted.
func uploadIndices(dev gpucore.Device, ib gpucore.BufferID, data []byte) error {
	size := uint32(len(data))
	tb, err := dev.CreateTransferBuffer(&gpucore.TransferBufferDesc{
		Label: "tessellate_index_upload",
		Usage: gpucore.TransferBufferUsageUpload,
		Size:  size,
	})
	if err != nil {
		return workflow.Errorf(workflow.KindResourceCreation, "failed to create index transfer buffer: %w", err)
	}
	defer dev.ReleaseTransferBuffer(tb)

	if err := dev.WriteTransferBuffer(tb, 0, data); err != nil {
		return workflow.Errorf(workflow.KindResourceCreation, "failed to map index transfer buffer: %w", err)
	}

	cb, err := dev.AcquireCommandBuffer()
	if err != nil {
		return workflow.Errorf(workflow.KindResourceCreation, "failed to acquire command buffer for upload: %w", err)
	}
	cp, err := cb.BeginCopyPass()
	if err != nil {
		cb.Cancel()
		return workflow.Errorf(workflow.KindResourceCreation, "failed to begin copy pass: %w", err)
	}
	cp.UploadToBuffer(
		gpucore.TransferBufferLocation{TransferBuffer: tb},
		gpucore.BufferRegion{Buffer: ib, Size: size},
		false,
	)
	cp.End()
	if err := cb.Submit(); err != nil {
		return workflow.Errorf(workflow.KindResourceCreation, "failed to submit index upload: %w", err)
	}
	return nil
}

// dispatchTessellation records and submits the compute pass that fills vb.
func dispatchTessellation(dev gpucore.Device, req *TessellateRequest, vb gpucore.BufferID, grid Grid) error {
	cb, err := dev.AcquireCommandBuffer()
	if err != nil {
		return workflow.Errorf(workflow.KindResourceCreation, "failed to acquire command buffer for dispatch: %w", err)
	}
	pass, err := cb.BeginComputePass([]gpucore.StorageBufferReadWriteBinding{{Buffer: vb, Cycle: true}})
	if err != nil {
		cb.Cancel()
		return workflow.Errorf(workflow.KindResourceCreation, "failed to begin compute pass: %w", err)
	}
	pass.BindPipeline(req.Pipeline)
	pass.BindSamplers(0, []gpucore.TextureSamplerBinding{req.Displacement})
	cb.PushComputeUniformData(0, req.Params.Bytes())
	pass.Dispatch(grid.Workgroups[0], grid.Workgroups[1], grid.Workgroups[2])
	pass.End()
	if err := cb.Submit(); err != nil {
		return workflow.Errorf(workflow.KindResourceCreation, "failed to submit tessellation dispatch: %w", err)
	}
	return nil
}

// checkMeshKeys verifies that the mesh called name can be stored without
// replacing an entry of another variant.
func checkMeshKeys(rc *workflow.Context, name string) error {
	keys := workflow.MeshKeys(name)
	if err := rc.CheckStore(workflow.TypeBuffer, keys.VertexBuffer, keys.IndexBuffer); err != nil {
		return err
	}
	return rc.CheckStore(workflow.TypeMetadata, keys.Base)
}

// storeMesh writes the mesh buffers and metadata into rc under the plane
// key family for name. rc owns the buffers afterwards.
func storeMesh(rc *workflow.Context, dev gpucore.Device, name string, m *MeshArtifact) workflow.MeshKeySet {
	keys := workflow.MeshKeys(name)
	rc.SetBuffer(keys.VertexBuffer, dev, m.VertexBuffer)
	rc.SetBuffer(keys.IndexBuffer, dev, m.IndexBuffer)
	rc.SetMetadata(keys.Base, m.Metadata)
	return keys
}
