// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package workflow

import "context"

// Step is one pluggable unit of workflow work.
//
// Execute reads its parameters and ports from def, reads prerequisite
// handles from rc, performs device work, and writes its results back into
// rc. Any returned error is fatal to the step.
type Step interface {
	PluginID() string
	Ports() []PortSpec
	Execute(ctx context.Context, def *StepDefinition, rc *Context) error
}
