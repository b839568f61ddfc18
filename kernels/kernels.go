// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package kernels holds the compute kernels shipped with gpuflow and the
// helpers to compile them.
//
// Kernels are written in WGSL and compiled to SPIR-V in-process with
// gogpu/naga. Each kernel also has a CPU reference that reads the same
// uniform block and writes the same output layout; the software device
// runs the reference when a dispatch uses the kernel.
package kernels

import (
	"crypto/sha256"
	_ "embed"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/gogpu/naga"
	"github.com/gogpu/naga/msl"
)

//go:embed tessellate.wgsl
var tessellateSource string

// TessellateWGSL returns the WGSL source of the grid displacement kernel.
func TessellateWGSL() string {
	return tessellateSource
}

// Tessellate kernel binding layout and workgroup size.
const (
	TessellateThreadsX = 8
	TessellateThreadsY = 8
	TessellateThreadsZ = 1

	// TessellateVertexStride is the byte size of one output vertex.
	TessellateVertexStride = 20

	// TessellateUniformSize is the byte size of the uniform block.
	TessellateUniformSize = 32
)

// ErrInvalidSPIRV is returned when a SPIR-V blob is not a whole number of words.
var ErrInvalidSPIRV = errors.New("kernels: SPIR-V length is not a multiple of 4")

// CompileWGSL compiles WGSL source to SPIR-V bytes.
func CompileWGSL(source string) ([]byte, error) {
	spirv, err := naga.Compile(source)
	if err != nil {
		return nil, fmt.Errorf("kernels: compile WGSL: %w", err)
	}
	return spirv, nil
}

// CompileWGSLToMSL compiles WGSL source to Metal Shading Language. It
// returns the MSL source and the generated name of entryPoint.
func CompileWGSLToMSL(source, entryPoint string) (string, string, error) {
	ast, err := naga.Parse(source)
	if err != nil {
		return "", "", fmt.Errorf("kernels: parse WGSL: %w", err)
	}
	module, err := naga.LowerWithSource(ast, source)
	if err != nil {
		return "", "", fmt.Errorf("kernels: lower WGSL: %w", err)
	}
	code, info, err := msl.Compile(module, msl.DefaultOptions())
	if err != nil {
		return "", "", fmt.Errorf("kernels: generate MSL: %w", err)
	}
	name, ok := info.EntryPointNames[entryPoint]
	if !ok {
		return "", "", fmt.Errorf("kernels: entry point %q not found in WGSL module", entryPoint)
	}
	return code, name, nil
}

// TessellateSPIRV compiles the embedded tessellation kernel to SPIR-V.
func TessellateSPIRV() ([]byte, error) {
	return CompileWGSL(tessellateSource)
}

// SPIRVWords reinterprets little-endian SPIR-V bytes as 32-bit words.
func SPIRVWords(spirv []byte) ([]uint32, error) {
	if len(spirv)%4 != 0 {
		return nil, fmt.Errorf("%w (%d bytes)", ErrInvalidSPIRV, len(spirv))
	}
	words := make([]uint32, len(spirv)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(spirv[i*4:])
	}
	return words, nil
}

// Hash identifies a kernel binary. The software device uses it to map
// pipeline code to a CPU reference.
type Hash [sha256.Size]byte

// HashOf returns the hash of a kernel binary.
func HashOf(code []byte) Hash {
	return sha256.Sum256(code)
}
