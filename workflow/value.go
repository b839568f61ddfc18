// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package workflow

import "github.com/gogpu/gpuflow/gpucore"

// ValueType names the variant held by a context [Value].
type ValueType uint8

const (
	TypeDevice ValueType = iota + 1
	TypePipeline
	TypeBuffer
	TypeSampler
	TypeTexture
	TypeString
	TypeNumber
	TypeMetadata
)

var valueTypeNames = [...]string{
	TypeDevice:   "Device",
	TypePipeline: "Pipeline",
	TypeBuffer:   "Buffer",
	TypeSampler:  "Sampler",
	TypeTexture:  "Texture",
	TypeString:   "String",
	TypeNumber:   "Number",
	TypeMetadata: "Metadata",
}

func (t ValueType) String() string {
	if int(t) < len(valueTypeNames) && valueTypeNames[t] != "" {
		return valueTypeNames[t]
	}
	return "Unknown"
}

// Value is a context entry. The set of implementations is closed:
// DeviceValue, PipelineValue, BufferValue, SamplerValue, TextureValue,
// StringValue, NumberValue and MetadataValue.
type Value interface {
	Type() ValueType
	sealed()
}

// owned is implemented by values that hold a device resource the context
// releases when the entry is replaced, deleted or the context is closed.
type owned interface {
	Value
	release()
	same(Value) bool
}

// DeviceValue holds the GPU device. The context never closes it.
type DeviceValue struct {
	Device gpucore.Device
}

// PipelineValue holds a compute pipeline created on Device.
type PipelineValue struct {
	Device gpucore.Device
	ID     gpucore.ComputePipelineID
}

// BufferValue holds a device buffer created on Device.
type BufferValue struct {
	Device gpucore.Device
	ID     gpucore.BufferID
}

// SamplerValue holds a sampler created on Device.
type SamplerValue struct {
	Device gpucore.Device
	ID     gpucore.SamplerID
}

// TextureValue holds a texture created on Device.
type TextureValue struct {
	Device gpucore.Device
	ID     gpucore.TextureID
}

// StringValue holds a string.
type StringValue string

// NumberValue holds a number.
type NumberValue float64

// Metadata is a descriptive record stored next to generated resources.
type Metadata map[string]any

// MetadataValue holds a Metadata record.
type MetadataValue struct {
	Metadata Metadata
}

func (DeviceValue) Type() ValueType   { return TypeDevice }
func (PipelineValue) Type() ValueType { return TypePipeline }
func (BufferValue) Type() ValueType   { return TypeBuffer }
func (SamplerValue) Type() ValueType  { return TypeSampler }
func (TextureValue) Type() ValueType  { return TypeTexture }
func (StringValue) Type() ValueType   { return TypeString }
func (NumberValue) Type() ValueType   { return TypeNumber }
func (MetadataValue) Type() ValueType { return TypeMetadata }

func (DeviceValue) sealed()   {}
func (PipelineValue) sealed() {}
func (BufferValue) sealed()   {}
func (SamplerValue) sealed()  {}
func (TextureValue) sealed()  {}
func (StringValue) sealed()   {}
func (NumberValue) sealed()   {}
func (MetadataValue) sealed() {}

func (v PipelineValue) release() {
	if v.Device != nil && v.ID != gpucore.InvalidID {
		v.Device.ReleaseComputePipeline(v.ID)
	}
}

func (v BufferValue) release() {
	if v.Device != nil && v.ID != gpucore.InvalidID {
		v.Device.ReleaseBuffer(v.ID)
	}
}

func (v SamplerValue) release() {
	if v.Device != nil && v.ID != gpucore.InvalidID {
		v.Device.ReleaseSampler(v.ID)
	}
}

func (v TextureValue) release() {
	if v.Device != nil && v.ID != gpucore.InvalidID {
		v.Device.ReleaseTexture(v.ID)
	}
}

func (v PipelineValue) same(o Value) bool {
	p, ok := o.(PipelineValue)
	return ok && p == v
}

func (v BufferValue) same(o Value) bool {
	b, ok := o.(BufferValue)
	return ok && b == v
}

func (v SamplerValue) same(o Value) bool {
	s, ok := o.(SamplerValue)
	return ok && s == v
}

func (v TextureValue) same(o Value) bool {
	t, ok := o.(TextureValue)
	return ok && t == v
}
