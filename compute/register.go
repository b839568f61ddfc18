// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package compute

import "github.com/gogpu/gpuflow/workflow"

// Register installs the compute steps in reg.
func Register(reg *workflow.Registry) error {
	for _, s := range []workflow.Step{PipelineCreateStep{}, TessellateDispatchStep{}, TessellateStep{}} {
		if err := reg.Register(s); err != nil {
			return err
		}
	}
	return nil
}
