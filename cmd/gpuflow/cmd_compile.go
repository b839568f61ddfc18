// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gogpu/gpuflow/kernels"
	"github.com/gogpu/gpuflow/workflow"
)

type compileFlags struct {
	output string
	target string
}

func newCompileCmd() *cobra.Command {
	flags := &compileFlags{}
	cmd := &cobra.Command{
		Use:   "compile <kernel.wgsl>",
		Short: "Compile a WGSL kernel to SPIR-V or MSL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(cmd, flags, args[0])
		},
	}
	f := cmd.Flags()
	f.StringVarP(&flags.output, "output", "o", "", "Output file (default: input with .spv or .metal extension)")
	f.StringVar(&flags.target, "target", "spirv", "Target: spirv or msl")
	return cmd
}

func runCompile(cmd *cobra.Command, flags *compileFlags, input string) error {
	src, err := os.ReadFile(filepath.Clean(workflow.ExpandHome(input)))
	if err != nil {
		return fmt.Errorf("read kernel: %w", err)
	}

	var out []byte
	var ext string
	switch strings.ToLower(flags.target) {
	case "spirv", "spv":
		out, err = kernels.CompileWGSL(string(src))
		ext = ".spv"
	case "msl", "metal":
		var msl, entry string
		msl, entry, err = kernels.CompileWGSLToMSL(string(src), "main")
		out, ext = []byte(msl), ".metal"
		if err == nil {
			fmt.Fprintf(cmd.OutOrStdout(), "entry point main -> %s\n", entry)
		}
	default:
		return fmt.Errorf("unknown target %q (want spirv or msl)", flags.target)
	}
	if err != nil {
		return err
	}

	dst := flags.output
	if dst == "" {
		dst = strings.TrimSuffix(input, filepath.Ext(input)) + ext
	}
	if err := os.WriteFile(filepath.Clean(dst), out, 0o644); err != nil { //nolint:gosec // kernels are not secret
		return fmt.Errorf("write kernel: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %d bytes\n", dst, len(out))
	return nil
}
