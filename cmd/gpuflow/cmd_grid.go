// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/gogpu/gpuflow/compute"
)

func newGridCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "grid <subdivisions>",
		Short: "Show vertex, index and workgroup counts of a grid",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("subdivisions must be an integer: %w", err)
			}
			g, err := compute.NewGrid(n)
			if err != nil {
				return err
			}
			p := message.NewPrinter(language.English)
			out := cmd.OutOrStdout()
			p.Fprintf(out, "subdivisions: %d\n", g.Subdivisions)
			p.Fprintf(out, "vertices:     %d (%d bytes)\n", g.VertexCount, g.VertexBytes())
			p.Fprintf(out, "indices:      %d (%d bytes)\n", g.IndexCount, g.IndexBytes())
			p.Fprintf(out, "workgroups:   %d x %d x %d\n", g.Workgroups[0], g.Workgroups[1], g.Workgroups[2])
			return nil
		},
	}
}
