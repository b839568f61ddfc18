// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/gogpu/gpuflow/compute"
	"github.com/gogpu/gpuflow/gpucore"
	"github.com/gogpu/gpuflow/texture"
	"github.com/gogpu/gpuflow/workflow"
)

type runFlags struct {
	backend string
	image   string
	kernel  string
	output  string
	tess    tessOptions
}

func newRunCmd(root *rootFlags) *cobra.Command {
	flags := &runFlags{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a tessellation workflow",
		Long: "Run loads a displacement image and tessellates a grid mesh with it.\n" +
			"With --config the steps come from a workflow file; otherwise they are\n" +
			"built from the flags.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWorkflow(cmd, root, flags)
		},
	}

	d := compute.DefaultTessParams()
	f := cmd.Flags()
	f.StringVar(&flags.backend, "backend", backendSoftware, "Device backend: software, vulkan or noop")
	f.StringVar(&flags.image, "image", "", "Displacement image (required without --config)")
	f.StringVar(&flags.kernel, "kernel", "", "Tessellation kernel, .wgsl or binary (default: built-in)")
	f.StringVarP(&flags.output, "output", "o", "", "Write the vertex buffer of the mesh to this file")
	f.StringVar(&flags.tess.name, "name", compute.DefaultMeshName, "Mesh name")
	f.Float64Var(&flags.tess.width, "width", float64(d.Width), "Plane width")
	f.Float64Var(&flags.tess.depth, "depth", float64(d.Depth), "Plane depth")
	f.IntVar(&flags.tess.subdivisions, "subdivisions", d.Subdivisions, "Grid subdivisions per side (1-255)")
	f.Float64Var(&flags.tess.strength, "strength", float64(d.DisplacementStrength), "Displacement strength")
	f.Float64Var(&flags.tess.uvScaleX, "uv-scale-x", float64(d.UVScaleX), "Texture coordinate scale along X")
	f.Float64Var(&flags.tess.uvScaleY, "uv-scale-y", float64(d.UVScaleY), "Texture coordinate scale along Z")
	f.IntVar(&flags.tess.maxDimension, "max-dimension", 0, "Scale images larger than this down (0 keeps the size)")
	f.BoolVar(&flags.tess.fused, "fused", false, "Use the single-step compute.tessellate with a single-use pipeline")
	return cmd
}

func runWorkflow(cmd *cobra.Command, root *rootFlags, flags *runFlags) error {
	cfg, cleanup, err := resolveConfig(cmd, root, flags)
	if err != nil {
		return err
	}
	defer cleanup()

	defs, err := cfg.definitions()
	if err != nil {
		return err
	}
	reg := workflow.NewRegistry()
	if err := texture.Register(reg); err != nil {
		return err
	}
	if err := compute.Register(reg); err != nil {
		return err
	}

	dev, closeDev, err := openBackend(cfg.Backend)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := closeDev(); cerr != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "close device: %v\n", cerr)
		}
	}()

	rc := workflow.NewContext()
	defer rc.Close()
	rc.SetDevice(workflow.DeviceKey, dev)
	for k, v := range cfg.Values {
		rc.SetString(k, v)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()
	if err := workflow.NewRunner(reg).Run(ctx, rc, defs); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	printSummary(out, rc)
	if cfg.Output == "" {
		return nil
	}
	n, err := writeMesh(rc, dev, cfg.Mesh, cfg.Output)
	if err != nil {
		return err
	}
	message.NewPrinter(language.English).Fprintf(out, "wrote %d bytes to %s\n", n, cfg.Output)
	return nil
}

// resolveConfig loads the workflow file or builds the workflow from flags.
// Flags set explicitly override backend and output of a workflow file.
func resolveConfig(cmd *cobra.Command, root *rootFlags, flags *runFlags) (*Config, func(), error) {
	cleanup := func() {}
	var cfg *Config
	if root.config != "" {
		c, err := loadConfig(root.config)
		if err != nil {
			return nil, cleanup, err
		}
		cfg = c
		if cmd.Flags().Changed("backend") || cfg.Backend == "" {
			cfg.Backend = flags.backend
		}
		if cmd.Flags().Changed("output") {
			cfg.Output = flags.output
		}
		if cfg.Mesh == "" {
			cfg.Mesh = compute.DefaultMeshName
		}
		return cfg, cleanup, nil
	}

	if flags.image == "" {
		return nil, cleanup, errors.New("--image is required without --config")
	}
	kernel := flags.kernel
	if kernel == "" {
		dir, err := os.MkdirTemp("", "gpuflow")
		if err != nil {
			return nil, cleanup, fmt.Errorf("create temp dir: %w", err)
		}
		cleanup = func() { _ = os.RemoveAll(dir) }
		if kernel, err = builtinKernel(dir); err != nil {
			cleanup()
			return nil, func() {}, err
		}
	}
	cfg = flagWorkflow(flags.image, kernel, flags.tess)
	cfg.Backend = flags.backend
	cfg.Output = flags.output
	return cfg, cleanup, nil
}

// printSummary lists the textures and meshes held in rc.
func printSummary(w io.Writer, rc *workflow.Context) {
	p := message.NewPrinter(language.English)
	for _, key := range rc.Keys() {
		meta, err := rc.Metadata(key)
		if err != nil {
			continue
		}
		switch {
		case meta["compute_tessellated"] == true:
			p.Fprintf(w, "mesh %s: %d vertices, %d indices, %dx%d grid, pipeline %v\n",
				key, meta["vertex_count"], meta["index_count"],
				meta["subdivisions"], meta["subdivisions"], meta["pipeline_ownership"])
		case meta["channels"] != nil:
			p.Fprintf(w, "texture %s: %dx%d %v from %v\n",
				key, meta["width"], meta["height"], meta["format"], meta["path"])
		}
	}
}

// writeMesh reads back the vertex buffer of the named mesh and writes it
// to path.
func writeMesh(rc *workflow.Context, dev gpucore.Device, name, path string) (int, error) {
	keys := workflow.MeshKeys(name)
	vb, err := rc.Buffer(keys.VertexBuffer)
	if err != nil {
		return 0, fmt.Errorf("mesh '%s' not found: %w", name, err)
	}
	meta, err := rc.Metadata(keys.Base)
	if err != nil {
		return 0, fmt.Errorf("mesh '%s' has no metadata: %w", name, err)
	}
	count, _ := meta["vertex_count"].(uint32)
	stride, _ := meta["stride"].(uint32)
	data, err := gpucore.ReadBuffer(dev, vb, 0, count*stride)
	if err != nil {
		return 0, err
	}
	if err := os.WriteFile(filepath.Clean(path), data, 0o644); err != nil { //nolint:gosec // mesh output is not secret
		return 0, fmt.Errorf("write mesh: %w", err)
	}
	return len(data), nil
}
