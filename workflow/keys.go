// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package workflow

// DeviceKey is the context key of the GPU device.
const DeviceKey = "gpu_device"

// DefaultPipelineKey is the context key used for compute pipelines when a
// step does not name one.
const DefaultPipelineKey = "compute_pipeline"

// meshPrefix is shared with the plane generator so consumers of planes
// can draw tessellated meshes unchanged.
const meshPrefix = "plane_"

// MeshKeySet names the context entries of a generated mesh.
type MeshKeySet struct {
	Base         string
	VertexBuffer string
	IndexBuffer  string
}

// MeshKeys returns the context keys for a mesh called name:
// "plane_<name>_vb", "plane_<name>_ib" and "plane_<name>" for metadata.
func MeshKeys(name string) MeshKeySet {
	base := meshPrefix + name
	return MeshKeySet{
		Base:         base,
		VertexBuffer: base + "_vb",
		IndexBuffer:  base + "_ib",
	}
}

// TextureKeySet names the context entries of a loaded texture.
type TextureKeySet struct {
	Base    string
	Texture string
	Sampler string
}

// TextureKeys returns the context keys for a texture stored under base:
// "<base>_gpu", "<base>_sampler" and "<base>" for metadata.
func TextureKeys(base string) TextureKeySet {
	return TextureKeySet{
		Base:    base,
		Texture: base + "_gpu",
		Sampler: base + "_sampler",
	}
}
