// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package main

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/gpuflow"
	"github.com/gogpu/gpuflow/kernels"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Cleanup(func() { gpuflow.SetLogger(nil) })
	var out, errOut bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

// writeHeightmap writes a uniform grey PNG and returns its path.
func writeHeightmap(t *testing.T, dir string, grey uint8) string {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 4, 4))
	for i := range img.Pix {
		img.Pix[i] = grey
	}
	path := filepath.Join(dir, "height.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())
	return path
}

func vertexAt(data []byte, i int) [5]float32 {
	var v [5]float32
	for c := range v {
		v[c] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*20+c*4:]))
	}
	return v
}

func TestGridCommand(t *testing.T) {
	out, err := execute(t, "grid", "64")
	require.NoError(t, err)
	assert.Contains(t, out, "vertices:     4,225 (84,500 bytes)")
	assert.Contains(t, out, "indices:      24,576 (49,152 bytes)")
	assert.Contains(t, out, "workgroups:   9 x 9 x 1")
}

func TestGridCommandRejects(t *testing.T) {
	_, err := execute(t, "grid", "0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "subdivisions must be >= 1")

	_, err = execute(t, "grid", "256")
	require.Error(t, err)

	_, err = execute(t, "grid", "many")
	require.Error(t, err)
}

func TestRunSoftware(t *testing.T) {
	dir := t.TempDir()
	img := writeHeightmap(t, dir, 255)
	meshPath := filepath.Join(dir, "mesh.bin")

	out, err := execute(t, "run", "--image", img, "--subdivisions", "4", "--strength", "2", "-o", meshPath)
	require.NoError(t, err)
	assert.Contains(t, out, "texture height: 4x4")
	assert.Contains(t, out, "mesh plane_tessellated: 25 vertices, 96 indices, 4x4 grid, pipeline borrowed")
	assert.Contains(t, out, "wrote 500 bytes")

	data, err := os.ReadFile(meshPath)
	require.NoError(t, err)
	require.Len(t, data, 25*20)
	first := vertexAt(data, 0)
	assert.InDelta(t, -5, first[0], 1e-5)
	assert.InDelta(t, 2, first[1], 1e-4)
	assert.InDelta(t, -2.5, first[2], 1e-5)
	last := vertexAt(data, 24)
	assert.InDelta(t, 5, last[0], 1e-5)
	assert.InDelta(t, 2.5, last[2], 1e-5)
	assert.InDelta(t, 1, last[3], 1e-6)
}

func TestRunFused(t *testing.T) {
	dir := t.TempDir()
	img := writeHeightmap(t, dir, 0)

	out, err := execute(t, "run", "--image", img, "--fused", "--name", "terrain", "--subdivisions", "8")
	require.NoError(t, err)
	assert.Contains(t, out, "mesh plane_terrain: 81 vertices, 384 indices, 8x8 grid, pipeline owned_release_after_use")
}

func TestRunNoopBackend(t *testing.T) {
	img := writeHeightmap(t, t.TempDir(), 128)
	out, err := execute(t, "run", "--backend", "noop", "--image", img, "--subdivisions", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "mesh plane_tessellated: 9 vertices, 24 indices")
}

func TestRunErrors(t *testing.T) {
	_, err := execute(t, "run")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--image is required")

	img := writeHeightmap(t, t.TempDir(), 128)
	_, err = execute(t, "run", "--image", img, "--backend", "opengl")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown backend")

	_, err = execute(t, "run", "--image", img, "--subdivisions", "0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "subdivisions must be >= 1, got 0")

	_, err = execute(t, "run", "--image", filepath.Join(t.TempDir(), "missing.png"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load image")

	_, err = execute(t, "--log-level", "loud", "grid", "4")
	require.Error(t, err)
}

func TestRunConfig(t *testing.T) {
	dir := t.TempDir()
	img := writeHeightmap(t, dir, 255)
	kernel := filepath.Join(dir, "tess.wgsl")
	require.NoError(t, os.WriteFile(kernel, []byte(kernels.TessellateWGSL()), 0o600))

	cfg := `backend: software
mesh: ground
values:
  img: ` + img + `
  kern: ` + kernel + `
steps:
  - id: load
    plugin: texture.load
    inputs: {image_path: img}
    outputs: {texture: hm}
  - plugin: compute.pipeline.create
    inputs: {shader_path: kern}
    parameters: {pipeline_key: tess, num_samplers: 1, num_storage_buffers: 1, num_uniforms: 1, threadcount_x: 8, threadcount_y: 8}
  - plugin: compute.tessellate.dispatch
    inputs: {displacement_texture: hm}
    parameters: {pipeline_key: tess, name: ground, subdivisions: 3, width: 6, depth: 6}
`
	cfgPath := filepath.Join(dir, "workflow.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0o600))
	meshPath := filepath.Join(dir, "ground.bin")

	out, err := execute(t, "--config", cfgPath, "run", "-o", meshPath)
	require.NoError(t, err)
	assert.Contains(t, out, "mesh plane_ground: 16 vertices, 54 indices")

	data, err := os.ReadFile(meshPath)
	require.NoError(t, err)
	require.Len(t, data, 16*20)
	assert.InDelta(t, -3, vertexAt(data, 0)[0], 1e-5)
}

func TestLoadConfigErrors(t *testing.T) {
	dir := t.TempDir()
	write := func(name, body string) string {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
		return p
	}

	_, err := loadConfig(write("empty.yaml", "backend: software\n"))
	assert.ErrorIs(t, err, errNoSteps)

	_, err = loadConfig(write("unknown.yaml", "backend: software\nsteeps: []\n"))
	assert.Error(t, err)

	_, err = loadConfig(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	cfg, err := loadConfig(write("nested.yaml", "steps:\n  - plugin: texture.load\n    parameters: {max_dimension: {w: 1}}\n"))
	require.NoError(t, err)
	_, err = cfg.definitions()
	assert.ErrorContains(t, err, "parameter 'max_dimension'")

	cfg, err = loadConfig(write("noplugin.yaml", "steps:\n  - id: x\n"))
	require.NoError(t, err)
	_, err = cfg.definitions()
	assert.ErrorContains(t, err, "has no plugin")
}

func TestFlagWorkflow(t *testing.T) {
	opts := tessOptions{name: "m", subdivisions: 4, width: 1, depth: 1, strength: 1, uvScaleX: 1, uvScaleY: 1}

	split := flagWorkflow("img.png", "k.wgsl", opts)
	defs, err := split.definitions()
	require.NoError(t, err)
	require.Len(t, defs, 3)
	assert.Equal(t, "texture.load", defs[0].PluginID)
	assert.Equal(t, "compute.pipeline.create", defs[1].PluginID)
	assert.Equal(t, "compute.tessellate.dispatch", defs[2].PluginID)
	assert.Equal(t, keyHeight, defs[2].Inputs["displacement_texture"])

	opts.fused = true
	fused := flagWorkflow("img.png", "k.wgsl", opts)
	defs, err = fused.definitions()
	require.NoError(t, err)
	require.Len(t, defs, 2)
	assert.Equal(t, "compute.tessellate", defs[1].PluginID)
	assert.Equal(t, keyKernelPath, defs[1].Inputs["compute_shader_path"])
}

func TestCompileCommand(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "tess.wgsl")
	require.NoError(t, os.WriteFile(src, []byte(kernels.TessellateWGSL()), 0o600))

	out, err := execute(t, "compile", src)
	require.NoError(t, err)
	assert.Contains(t, out, "tess.spv")
	spirv, err := os.ReadFile(filepath.Join(dir, "tess.spv"))
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(spirv), 4)
	assert.Equal(t, uint32(0x07230203), binary.LittleEndian.Uint32(spirv))

	mslPath := filepath.Join(dir, "out.metal")
	out, err = execute(t, "compile", src, "--target", "msl", "-o", mslPath)
	require.NoError(t, err)
	assert.Contains(t, out, "entry point main ->")
	msl, err := os.ReadFile(mslPath)
	require.NoError(t, err)
	assert.Contains(t, string(msl), "kernel")

	_, err = execute(t, "compile", src, "--target", "hlsl")
	assert.Error(t, err)
	_, err = execute(t, "compile", filepath.Join(dir, "missing.wgsl"))
	assert.Error(t, err)
}
