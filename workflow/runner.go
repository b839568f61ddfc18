// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/gogpu/gpuflow"
)

// Runner executes step definitions strictly in order against one context.
// Ordering and wiring are decided by the caller.
type Runner struct {
	reg *Registry
}

// NewRunner creates a runner resolving plugins through reg.
func NewRunner(reg *Registry) *Runner {
	return &Runner{reg: reg}
}

// Run validates every definition, then executes them in order. It stops at
// the first failing step and returns its error. Cancellation of ctx is
// checked before each step.
//
// Run does not close rc; resources created by completed steps stay in rc
// until the caller closes it.
func (r *Runner) Run(ctx context.Context, rc *Context, defs []*StepDefinition) error {
	for _, def := range defs {
		if err := r.reg.Validate(def); err != nil {
			return err
		}
	}
	for _, def := range defs {
		if err := ctx.Err(); err != nil {
			return Canceled(fmt.Sprintf("workflow: run cancelled before step '%s'", def.ID), err)
		}
		s, _ := r.reg.Lookup(def.PluginID)
		start := time.Now()
		if err := s.Execute(ctx, def, rc); err != nil {
			gpuflow.StepLogger(def.PluginID, def.ID).Debug("workflow: step failed", "err", err)
			return Annotate(def.PluginID, KindResourceCreation, err)
		}
		gpuflow.StepLogger(def.PluginID, def.ID).Debug("workflow: step done", "elapsed", time.Since(start))
	}
	return nil
}
