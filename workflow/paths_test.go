// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package workflow

import (
	"testing"

	"github.com/mitchellh/go-homedir"
)

func TestExpandHome(t *testing.T) {
	t.Setenv("HOME", "/home/gpu")
	homedir.Reset()
	t.Cleanup(homedir.Reset)

	tests := []struct {
		in, want string
	}{
		{"~/kernels/tess.spv", "/home/gpu/kernels/tess.spv"},
		{"~", "/home/gpu"},
		{"~kernels", "/home/gpukernels"},
		{"/abs/tess.spv", "/abs/tess.spv"},
		{"rel/~/tess.spv", "rel/~/tess.spv"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := ExpandHome(tt.in); got != tt.want {
			t.Errorf("ExpandHome(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
