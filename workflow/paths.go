// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package workflow

import (
	"strings"

	"github.com/mitchellh/go-homedir"
)

// ExpandHome replaces a leading "~" with the user's home directory followed
// by the remainder of the path. Other paths, and all paths when the home
// directory is unknown, are returned unchanged.
func ExpandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := homedir.Dir()
	if err != nil || home == "" {
		return path
	}
	return home + path[1:]
}
