// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/gogpu/gpuflow/compute"
	"github.com/gogpu/gpuflow/texture"
	"github.com/gogpu/gpuflow/workflow"
)

// Config is a workflow file. Values are string context entries set before
// the first step runs, typically file paths read through input ports.
//
//	backend: software
//	values:
//	  height_path: ~/terrain/height.png
//	  kernel_path: ~/kernels/tessellate.wgsl
//	steps:
//	  - id: load
//	    plugin: texture.load
//	    inputs: {image_path: height_path}
//	    outputs: {texture: height}
//	  - plugin: compute.tessellate
//	    inputs: {displacement_texture: height, compute_shader_path: kernel_path}
//	    parameters: {subdivisions: 128, displacement_strength: 3}
type Config struct {
	Backend string            `yaml:"backend"`
	Output  string            `yaml:"output"`
	Mesh    string            `yaml:"mesh"`
	Values  map[string]string `yaml:"values"`
	Steps   []StepConfig      `yaml:"steps"`
}

// StepConfig is one step of a workflow file.
type StepConfig struct {
	ID         string            `yaml:"id"`
	Plugin     string            `yaml:"plugin"`
	Parameters map[string]any    `yaml:"parameters"`
	Inputs     map[string]string `yaml:"inputs"`
	Outputs    map[string]string `yaml:"outputs"`
}

var errNoSteps = errors.New("config: workflow has no steps")

func loadConfig(path string) (*Config, error) {
	f, err := os.Open(filepath.Clean(workflow.ExpandHome(path)))
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	var cfg Config
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if len(cfg.Steps) == 0 {
		return nil, errNoSteps
	}
	return &cfg, nil
}

// definitions converts the configured steps. Steps without an id are
// named after their plugin and position.
func (c *Config) definitions() ([]*workflow.StepDefinition, error) {
	defs := make([]*workflow.StepDefinition, 0, len(c.Steps))
	for i, s := range c.Steps {
		if s.Plugin == "" {
			return nil, fmt.Errorf("config: step %d has no plugin", i)
		}
		id := s.ID
		if id == "" {
			id = fmt.Sprintf("%s#%d", s.Plugin, i)
		}
		params := make(map[string]workflow.Param, len(s.Parameters))
		names := make([]string, 0, len(s.Parameters))
		for name := range s.Parameters {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			p, err := workflow.ParamFromAny(s.Parameters[name])
			if err != nil {
				return nil, fmt.Errorf("config: step '%s' parameter '%s': %w", id, name, err)
			}
			params[name] = p
		}
		defs = append(defs, &workflow.StepDefinition{
			ID:         id,
			PluginID:   s.Plugin,
			Parameters: params,
			Inputs:     s.Inputs,
			Outputs:    s.Outputs,
		})
	}
	return defs, nil
}

// Context keys of the workflow built from command line flags.
const (
	keyImagePath  = "height_path"
	keyKernelPath = "kernel_path"
	keyHeight     = "height"
)

// tessOptions are the tessellation flags of the run command.
type tessOptions struct {
	name         string
	width        float64
	depth        float64
	subdivisions int
	strength     float64
	uvScaleX     float64
	uvScaleY     float64
	maxDimension int
	fused        bool
}

// flagWorkflow builds texture.load followed by either the fused step or
// pipeline creation plus dispatch.
func flagWorkflow(imagePath, kernelPath string, o tessOptions) *Config {
	tess := map[string]any{
		"name":                  o.name,
		"width":                 o.width,
		"depth":                 o.depth,
		"subdivisions":          o.subdivisions,
		"displacement_strength": o.strength,
		"uv_scale_x":            o.uvScaleX,
		"uv_scale_y":            o.uvScaleY,
	}
	cfg := &Config{
		Mesh:   o.name,
		Values: map[string]string{keyImagePath: imagePath, keyKernelPath: kernelPath},
		Steps: []StepConfig{{
			ID:         "load",
			Plugin:     texture.PluginLoad,
			Parameters: map[string]any{"max_dimension": o.maxDimension},
			Inputs:     map[string]string{"image_path": keyImagePath},
			Outputs:    map[string]string{"texture": keyHeight},
		}},
	}
	if o.fused {
		cfg.Steps = append(cfg.Steps, StepConfig{
			ID:         "tessellate",
			Plugin:     compute.PluginTessellate,
			Parameters: tess,
			Inputs:     map[string]string{"displacement_texture": keyHeight, "compute_shader_path": keyKernelPath},
		})
		return cfg
	}
	cfg.Steps = append(cfg.Steps,
		StepConfig{
			ID:         "pipeline",
			Plugin:     compute.PluginPipelineCreate,
			Parameters: map[string]any{"num_samplers": 1, "num_storage_buffers": 1, "num_uniforms": 1, "threadcount_x": 8, "threadcount_y": 8, "threadcount_z": 1},
			Inputs:     map[string]string{"shader_path": keyKernelPath},
		},
		StepConfig{
			ID:         "dispatch",
			Plugin:     compute.PluginTessellateDispatch,
			Parameters: tess,
			Inputs:     map[string]string{"displacement_texture": keyHeight},
		},
	)
	return cfg
}
