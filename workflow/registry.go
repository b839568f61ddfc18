// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package workflow

import (
	"fmt"
	"slices"
	"sort"
	"sync"

	"github.com/gogpu/gpuflow"
)

// Registry maps plugin ids to steps.
type Registry struct {
	mu    sync.RWMutex
	steps map[string]Step
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{steps: make(map[string]Step)}
}

// Register adds a step. Registering a plugin id twice is an error.
func (r *Registry) Register(s Step) error {
	id := s.PluginID()
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.steps[id]; exists {
		return fmt.Errorf("workflow: step '%s' already registered", id)
	}
	gpuflow.Logger().Debug("workflow: registering step", "plugin", id)
	r.steps[id] = s
	return nil
}

// Lookup returns the step registered under pluginID.
func (r *Registry) Lookup(pluginID string) (Step, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.steps[pluginID]
	return s, ok
}

// PluginIDs returns the registered plugin ids, sorted.
func (r *Registry) PluginIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.steps))
	for id := range r.steps {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Validate checks def against the ports declared by its step: the plugin
// must be registered, required ports must be wired, and no undeclared port
// may be wired.
func (r *Registry) Validate(def *StepDefinition) error {
	s, ok := r.Lookup(def.PluginID)
	if !ok {
		return Errorf(KindConfiguration, "workflow step '%s' uses unknown plugin '%s'", def.ID, def.PluginID)
	}
	specs := s.Ports()
	for _, spec := range specs {
		wired := def.Inputs
		if spec.Direction == Out {
			wired = def.Outputs
		}
		if spec.Required && wired[spec.Name] == "" {
			return Annotate(def.PluginID, KindConfiguration,
				Errorf(KindConfiguration, "workflow step '%s' missing %s '%s'", def.ID, spec.Direction, spec.Name))
		}
	}
	for _, dir := range []Direction{In, Out} {
		wired := def.Inputs
		if dir == Out {
			wired = def.Outputs
		}
		for name := range wired {
			declared := slices.ContainsFunc(specs, func(p PortSpec) bool {
				return p.Name == name && p.Direction == dir
			})
			if !declared {
				return Annotate(def.PluginID, KindConfiguration,
					Errorf(KindConfiguration, "workflow step '%s' wires undeclared %s '%s'", def.ID, dir, name))
			}
		}
	}
	return nil
}
