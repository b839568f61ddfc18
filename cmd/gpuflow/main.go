// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Command gpuflow runs GPU compute workflows: it loads a displacement
// image, builds the tessellation pipeline and generates a displaced grid
// mesh on the chosen backend.
//
// Usage:
//
//	gpuflow run --image=<path> [--backend=software|vulkan|noop] [--fused] [-o mesh.bin]
//	gpuflow run --config=<workflow.yaml>
//	gpuflow compile <kernel.wgsl> [-o out.spv] [--target=spirv|msl]
//	gpuflow grid <subdivisions>
package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gogpu/gpuflow"
)

// version is set at build time via -ldflags.
var version = "dev"

type rootFlags struct {
	logLevel string
	config   string
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}
	root := &cobra.Command{
		Use:   "gpuflow",
		Short: "GPU compute workflow runner",
		Long:  "gpuflow loads displacement textures, creates compute pipelines\nand dispatches grid tessellation on a GPU or the CPU reference device.",
		CompletionOptions: cobra.CompletionOptions{
			HiddenDefaultCmd: true,
		},
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			level, err := parseLevel(flags.logLevel)
			if err != nil {
				return err
			}
			gpuflow.SetLogger(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))
			return nil
		},
	}
	root.Version = version

	pf := root.PersistentFlags()
	pf.StringVar(&flags.logLevel, "log-level", "warn", "Log level: debug, info, warn, error")
	pf.StringVar(&flags.config, "config", "", "Workflow config file (YAML)")

	root.AddCommand(newRunCmd(flags))
	root.AddCommand(newCompileCmd())
	root.AddCommand(newGridCmd())
	return root
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(s))); err != nil {
		return 0, fmt.Errorf("invalid --log-level %q", s)
	}
	return level, nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
