// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package compute

import (
	"encoding/binary"

	"github.com/gogpu/gpuflow/gpucore"
	"github.com/gogpu/gpuflow/kernels"
	"github.com/gogpu/gpuflow/workflow"
)

const (
	// VertexStride is the byte size of one vertex: float3 position, float2 uv.
	VertexStride = kernels.TessellateVertexStride

	// IndexSize is the byte size of one index.
	IndexSize = 2

	// MaxSubdivisions is the largest grid whose vertices are addressable by
	// 16-bit indices: (255+1)^2 = 65536.
	MaxSubdivisions = 255

	workgroupSize = 8
)

// Grid holds the derived sizes of an N x N tessellated grid.
type Grid struct {
	Subdivisions uint32
	VertsPerSide uint32
	VertexCount  uint32
	IndexCount   uint32
	Workgroups   [3]uint32
}

// NewGrid derives the grid sizes for n subdivisions per side.
// n must be in [1, MaxSubdivisions].
func NewGrid(n int) (Grid, error) {
	if n < 1 {
		return Grid{}, workflow.Errorf(workflow.KindLogic, "subdivisions must be >= 1, got %d", n)
	}
	if n > MaxSubdivisions {
		return Grid{}, workflow.Errorf(workflow.KindLogic,
			"subdivisions %d exceeds %d: %d vertices do not fit 16-bit indices", n, MaxSubdivisions, (n+1)*(n+1))
	}
	v := uint32(n) + 1
	groups := gpucore.WorkgroupCount(v, workgroupSize)
	return Grid{
		Subdivisions: uint32(n),
		VertsPerSide: v,
		VertexCount:  v * v,
		IndexCount:   6 * uint32(n) * uint32(n),
		Workgroups:   [3]uint32{groups, groups, 1},
	}, nil
}

// VertexBytes returns the vertex buffer size.
func (g Grid) VertexBytes() uint32 { return g.VertexCount * VertexStride }

// IndexBytes returns the index buffer size.
func (g Grid) IndexBytes() uint32 { return g.IndexCount * IndexSize }

// Indices returns the triangle list for the grid in row-major cell order.
// Each cell (ix, iy) emits (tl, bl, tr) and (tr, bl, br), where
// tl = iy*(N+1)+ix, tr = tl+1, bl = (iy+1)*(N+1)+ix, br = bl+1.
func (g Grid) Indices() []uint16 {
	n := g.Subdivisions
	v := g.VertsPerSide
	out := make([]uint16, 0, g.IndexCount)
	for iy := range n {
		for ix := range n {
			tl := iy*v + ix
			tr := tl + 1
			bl := (iy+1)*v + ix
			br := bl + 1
			out = append(out,
				uint16(tl), uint16(bl), uint16(tr),
				uint16(tr), uint16(bl), uint16(br))
		}
	}
	return out
}

// IndexBytesLE encodes indices as little-endian uint16.
func IndexBytesLE(indices []uint16) []byte {
	b := make([]byte, len(indices)*IndexSize)
	for i, x := range indices {
		binary.LittleEndian.PutUint16(b[i*IndexSize:], x)
	}
	return b
}
