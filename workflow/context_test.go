// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package workflow

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/gpuflow/gpucore"
)

// releaseRecorder is a gpucore.Device that only records releases.
// Calling any other method panics through the nil embedded interface.
type releaseRecorder struct {
	gpucore.Device
	released []string
}

func (r *releaseRecorder) ReleaseComputePipeline(id gpucore.ComputePipelineID) {
	r.released = append(r.released, "pipeline")
}
func (r *releaseRecorder) ReleaseBuffer(id gpucore.BufferID) {
	r.released = append(r.released, "buffer")
}
func (r *releaseRecorder) ReleaseSampler(id gpucore.SamplerID) {
	r.released = append(r.released, "sampler")
}
func (r *releaseRecorder) ReleaseTexture(id gpucore.TextureID) {
	r.released = append(r.released, "texture")
}

func TestContextTypedAccessors(t *testing.T) {
	dev := &releaseRecorder{}
	rc := NewContext()
	rc.SetDevice(DeviceKey, dev)
	rc.SetPipeline("pipe", dev, 7)
	rc.SetBuffer("buf", dev, 8)
	rc.SetSampler("smp", dev, 9)
	rc.SetTexture("tex", dev, 10)
	rc.SetString("path", "/tmp/k.spv")
	rc.SetNumber("n", 4)
	rc.SetMetadata("meta", Metadata{"valid": true})

	gotDev, err := rc.Device(DeviceKey)
	require.NoError(t, err)
	assert.Same(t, dev, gotDev)

	p, err := rc.Pipeline("pipe")
	require.NoError(t, err)
	assert.Equal(t, gpucore.ComputePipelineID(7), p)

	b, err := rc.Buffer("buf")
	require.NoError(t, err)
	assert.Equal(t, gpucore.BufferID(8), b)

	s, err := rc.Sampler("smp")
	require.NoError(t, err)
	assert.Equal(t, gpucore.SamplerID(9), s)

	tex, err := rc.Texture("tex")
	require.NoError(t, err)
	assert.Equal(t, gpucore.TextureID(10), tex)

	str, err := rc.String("path")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/k.spv", str)

	n, err := rc.Number("n")
	require.NoError(t, err)
	assert.Equal(t, 4.0, n)

	m, err := rc.Metadata("meta")
	require.NoError(t, err)
	assert.Equal(t, true, m["valid"])

	assert.Equal(t, []string{DeviceKey, "pipe", "buf", "smp", "tex", "path", "n", "meta"}, rc.Keys())
}

func TestContextMissingAndMismatch(t *testing.T) {
	rc := NewContext()
	rc.SetString("s", "x")

	_, err := rc.Device(DeviceKey)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConfiguration))
	assert.Contains(t, err.Error(), "gpu_device")

	_, err = rc.Buffer("s")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConfiguration))
	assert.Contains(t, err.Error(), "is String, want Buffer")

	rc.SetDevice("nil_dev", nil)
	_, err = rc.Device("nil_dev")
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestContextReplaceReleasesPrevious(t *testing.T) {
	dev := &releaseRecorder{}
	rc := NewContext()

	rc.SetBuffer("vb", dev, 1)
	rc.SetBuffer("vb", dev, 1)
	assert.Empty(t, dev.released, "re-storing the same handle must not release it")

	rc.SetBuffer("vb", dev, 2)
	assert.Equal(t, []string{"buffer"}, dev.released)

	rc.SetString("vb", "gone")
	assert.Equal(t, []string{"buffer", "buffer"}, dev.released)
}

func TestContextCheckStore(t *testing.T) {
	dev := &releaseRecorder{}
	rc := NewContext()
	rc.SetPipeline("plane_m", dev, 1)
	rc.SetBuffer("plane_m_vb", dev, 2)

	require.NoError(t, rc.CheckStore(TypeBuffer, "plane_m_vb", "plane_m_ib"))
	require.NoError(t, rc.CheckStore(TypeMetadata))

	err := rc.CheckStore(TypeBuffer, "plane_m_ib", "plane_m")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConfiguration)
	assert.EqualError(t, err, "context key 'plane_m' holds a Pipeline, cannot store a Buffer")

	_, err = rc.Pipeline("plane_m")
	assert.NoError(t, err)
	assert.Empty(t, dev.released)
}

func TestContextCloseReleasesInReverseOrder(t *testing.T) {
	dev := &releaseRecorder{}
	rc := NewContext()
	rc.SetDevice(DeviceKey, dev)
	rc.SetTexture("t", dev, 1)
	rc.SetSampler("s", dev, 2)
	rc.SetPipeline("p", dev, 3)
	rc.SetBuffer("b", dev, 4)
	rc.SetString("name", "x")

	rc.Close()
	assert.Equal(t, []string{"buffer", "pipeline", "sampler", "texture"}, dev.released)
	assert.Equal(t, 0, rc.Len())

	rc.Close()
	assert.Len(t, dev.released, 4)
}

func TestContextTakeTransfersOwnership(t *testing.T) {
	dev := &releaseRecorder{}
	rc := NewContext()
	rc.SetPipeline("p", dev, 3)

	v, ok := rc.Take("p")
	require.True(t, ok)
	assert.Equal(t, PipelineValue{Device: dev, ID: 3}, v)
	rc.Close()
	assert.Empty(t, dev.released)

	rc.SetBuffer("b", dev, 5)
	rc.Delete("b")
	assert.Equal(t, []string{"buffer"}, dev.released)
	assert.False(t, rc.Has("b"))
}

func TestLookupGeneric(t *testing.T) {
	rc := NewContext()
	rc.SetNumber("n", 2.5)

	v, err := Lookup[NumberValue](rc, "n")
	require.NoError(t, err)
	assert.Equal(t, NumberValue(2.5), v)

	_, err = Lookup[StringValue](rc, "n")
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestMeshAndTextureKeys(t *testing.T) {
	mk := MeshKeys("terrain")
	assert.Equal(t, MeshKeySet{Base: "plane_terrain", VertexBuffer: "plane_terrain_vb", IndexBuffer: "plane_terrain_ib"}, mk)

	tk := TextureKeys("heightmap")
	assert.Equal(t, TextureKeySet{Base: "heightmap", Texture: "heightmap_gpu", Sampler: "heightmap_sampler"}, tk)
}
