// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package kernels

import (
	"encoding/binary"
	"fmt"

	"github.com/chewxy/math32"
)

// TessParams mirrors the kernel's uniform block.
type TessParams struct {
	Width                float32
	Depth                float32
	DisplacementStrength float32
	UVScaleX             float32
	UVScaleY             float32
	Subdivisions         uint32
}

// DecodeTessParams reads the 32-byte little-endian uniform block.
func DecodeTessParams(b []byte) (TessParams, error) {
	if len(b) < TessellateUniformSize {
		return TessParams{}, fmt.Errorf("kernels: uniform block is %d bytes, want %d", len(b), TessellateUniformSize)
	}
	f := func(off int) float32 { return math32.Float32frombits(binary.LittleEndian.Uint32(b[off:])) }
	return TessParams{
		Width:                f(0),
		Depth:                f(4),
		DisplacementStrength: f(8),
		UVScaleX:             f(12),
		UVScaleY:             f(16),
		Subdivisions:         binary.LittleEndian.Uint32(b[20:]),
	}, nil
}

// Sampler2D samples a bound texture at mip level 0.
type Sampler2D interface {
	SampleLevel0(u, v float32) [4]float32
}

// TessellateInvocation is the CPU reference of one kernel invocation at
// global id (gx, gy). It writes one vertex into vertices and does nothing
// for ids outside the grid.
func TessellateInvocation(gx, gy uint32, p TessParams, tex Sampler2D, vertices []byte) {
	vertsPerSide := p.Subdivisions + 1
	if gx >= vertsPerSide || gy >= vertsPerSide || p.Subdivisions == 0 {
		return
	}
	n := float32(p.Subdivisions)
	fx := float32(gx) / n
	fz := float32(gy) / n
	u := fx * p.UVScaleX
	v := fz * p.UVScaleY
	var h float32
	if tex != nil {
		h = tex.SampleLevel0(u, v)[0]
	}

	base := int(gy*vertsPerSide+gx) * TessellateVertexStride
	if base+TessellateVertexStride > len(vertices) {
		return
	}
	out := [5]float32{
		-0.5*p.Width + fx*p.Width,
		h * p.DisplacementStrength,
		-0.5*p.Depth + fz*p.Depth,
		u,
		v,
	}
	for i, x := range out {
		binary.LittleEndian.PutUint32(vertices[base+i*4:], math32.Float32bits(x))
	}
}

// RGBA8Texture is an in-memory RGBA8 texture sampled with bilinear
// filtering and repeat addressing.
type RGBA8Texture struct {
	Width, Height int
	Pix           []byte
}

func (t *RGBA8Texture) texel(x, y int) [4]float32 {
	x = wrap(x, t.Width)
	y = wrap(y, t.Height)
	i := (y*t.Width + x) * 4
	if i+4 > len(t.Pix) {
		return [4]float32{}
	}
	return [4]float32{
		float32(t.Pix[i]) / 255,
		float32(t.Pix[i+1]) / 255,
		float32(t.Pix[i+2]) / 255,
		float32(t.Pix[i+3]) / 255,
	}
}

func wrap(i, n int) int {
	i %= n
	if i < 0 {
		i += n
	}
	return i
}

// SampleLevel0 implements Sampler2D.
func (t *RGBA8Texture) SampleLevel0(u, v float32) [4]float32 {
	if t.Width == 0 || t.Height == 0 {
		return [4]float32{}
	}
	x := u*float32(t.Width) - 0.5
	y := v*float32(t.Height) - 0.5
	x0 := math32.Floor(x)
	y0 := math32.Floor(y)
	ax := x - x0
	ay := y - y0
	ix, iy := int(x0), int(y0)

	c00 := t.texel(ix, iy)
	c10 := t.texel(ix+1, iy)
	c01 := t.texel(ix, iy+1)
	c11 := t.texel(ix+1, iy+1)
	var out [4]float32
	for c := range out {
		top := c00[c] + (c10[c]-c00[c])*ax
		bot := c01[c] + (c11[c]-c01[c])*ax
		out[c] = top + (bot-top)*ay
	}
	return out
}
