// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package compute

import (
	"encoding/binary"
	"math"

	"github.com/gogpu/gpuflow/kernels"
	"github.com/gogpu/gpuflow/workflow"
)

// Tessellation parameter defaults.
const (
	DefaultWidth                = 10.0
	DefaultDepth                = 5.0
	DefaultSubdivisions         = 64
	DefaultDisplacementStrength = 0.1
	DefaultUVScale              = 1.0
	DefaultMeshName             = "tessellated"
)

// TessParams are the tessellation parameters of one mesh.
type TessParams struct {
	Width                float32
	Depth                float32
	Subdivisions         int
	DisplacementStrength float32
	UVScaleX             float32
	UVScaleY             float32
}

// DefaultTessParams returns the parameter defaults.
func DefaultTessParams() TessParams {
	return TessParams{
		Width:                DefaultWidth,
		Depth:                DefaultDepth,
		Subdivisions:         DefaultSubdivisions,
		DisplacementStrength: DefaultDisplacementStrength,
		UVScaleX:             DefaultUVScale,
		UVScaleY:             DefaultUVScale,
	}
}

// Bytes encodes the kernel uniform block: width, depth, displacement
// strength, uv scale x, uv scale y as float32, subdivisions as uint32, then
// 8 bytes of padding. 32 bytes, little-endian.
func (p TessParams) Bytes() []byte {
	buf := make([]byte, kernels.TessellateUniformSize)
	binary.LittleEndian.PutUint32(buf[0:4], math.Float32bits(p.Width))
	binary.LittleEndian.PutUint32(buf[4:8], math.Float32bits(p.Depth))
	binary.LittleEndian.PutUint32(buf[8:12], math.Float32bits(p.DisplacementStrength))
	binary.LittleEndian.PutUint32(buf[12:16], math.Float32bits(p.UVScaleX))
	binary.LittleEndian.PutUint32(buf[16:20], math.Float32bits(p.UVScaleY))
	binary.LittleEndian.PutUint32(buf[20:24], uint32(p.Subdivisions))
	return buf
}

// resolveTessParams reads the tessellation parameters and the mesh name
// from a step definition.
func resolveTessParams(def *workflow.StepDefinition) (TessParams, string, error) {
	params := workflow.ParamsOf(def)
	d := DefaultTessParams()

	width, err := params.Number("width", float64(d.Width))
	if err != nil {
		return TessParams{}, "", err
	}
	depth, err := params.Number("depth", float64(d.Depth))
	if err != nil {
		return TessParams{}, "", err
	}
	subdiv, err := params.Int("subdivisions", d.Subdivisions)
	if err != nil {
		return TessParams{}, "", err
	}
	strength, err := params.Number("displacement_strength", float64(d.DisplacementStrength))
	if err != nil {
		return TessParams{}, "", err
	}
	uvx, err := params.Number("uv_scale_x", float64(d.UVScaleX))
	if err != nil {
		return TessParams{}, "", err
	}
	uvy, err := params.Number("uv_scale_y", float64(d.UVScaleY))
	if err != nil {
		return TessParams{}, "", err
	}
	name, err := params.String("name", DefaultMeshName)
	if err != nil {
		return TessParams{}, "", err
	}
	return TessParams{
		Width:                float32(width),
		Depth:                float32(depth),
		Subdivisions:         subdiv,
		DisplacementStrength: float32(strength),
		UVScaleX:             float32(uvx),
		UVScaleY:             float32(uvy),
	}, name, nil
}
