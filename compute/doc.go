// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package compute implements the GPU compute workflow steps:
//
//   - compute.pipeline.create loads a kernel binary and stores a reusable
//     compute pipeline in the run context.
//   - compute.tessellate.dispatch uses a stored pipeline to generate a
//     displaced grid mesh.
//   - compute.tessellate creates a single-use pipeline, generates the mesh,
//     and releases the pipeline right after dispatch.
//
// Both tessellation steps share one dispatch routine, [Tessellate], which
// differs only in [PipelineOwnership]. Generated vertex and index buffers
// are stored in the run context under the plane key family
// ("plane_<name>_vb", "plane_<name>_ib", "plane_<name>") and are owned by
// the context from then on.
package compute
