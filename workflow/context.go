// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package workflow

import (
	"slices"
	"sync"

	"github.com/gogpu/gpuflow"
	"github.com/gogpu/gpuflow/gpucore"
)

// Context is the run context shared by the steps of one workflow run.
//
// Entries are keyed by string and hold a closed set of [Value] variants.
// Device resources stored in the context (pipelines, buffers, samplers,
// textures) are owned by it: replacing or deleting an entry releases the
// previous resource, and Close releases every remaining one in reverse
// insertion order.
//
// Context is safe for concurrent use, although steps of one run access it
// sequentially.
type Context struct {
	mu      sync.RWMutex
	entries map[string]Value
	order   []string
}

// NewContext creates an empty run context.
func NewContext() *Context {
	return &Context{entries: make(map[string]Value)}
}

// Set stores v under key. If key held a different device resource, that
// resource is released; steps guard their writes with CheckStore.
func (c *Context) Set(key string, v Value) {
	c.mu.Lock()
	prev, had := c.entries[key]
	c.entries[key] = v
	if had {
		c.order = slices.DeleteFunc(c.order, func(k string) bool { return k == key })
	}
	c.order = append(c.order, key)
	c.mu.Unlock()

	if had {
		if o, ok := prev.(owned); ok && !o.same(v) {
			gpuflow.Logger().Debug("workflow: releasing replaced context entry", "key", key, "type", prev.Type())
			o.release()
		}
	}
}

// CheckStore reports whether a value of type t may be stored under each of
// keys. A key must be absent or already hold a t; a key holding another
// variant is a configuration error. Steps call CheckStore before they
// allocate anything, so a rejected write leaves the device untouched.
func (c *Context) CheckStore(t ValueType, keys ...string) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, k := range keys {
		if v, ok := c.entries[k]; ok && v.Type() != t {
			return Errorf(KindConfiguration, "context key '%s' holds a %s, cannot store a %s", k, v.Type(), t)
		}
	}
	return nil
}

// Get returns the value stored under key.
func (c *Context) Get(key string) (Value, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.entries[key]
	return v, ok
}

// Has reports whether key is present.
func (c *Context) Has(key string) bool {
	_, ok := c.Get(key)
	return ok
}

// Delete removes key, releasing the device resource it held.
func (c *Context) Delete(key string) {
	if v, ok := c.Take(key); ok {
		if o, ok := v.(owned); ok {
			o.release()
		}
	}
}

// Take removes key without releasing its resource and returns the value.
// Ownership of the resource passes to the caller.
func (c *Context) Take(key string) (Value, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	delete(c.entries, key)
	c.order = slices.DeleteFunc(c.order, func(k string) bool { return k == key })
	return v, true
}

// Keys returns the keys in insertion order.
func (c *Context) Keys() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.order)
}

// Len returns the number of entries.
func (c *Context) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Close releases every owned device resource in reverse insertion order
// and empties the context. Devices themselves are not closed. The context
// stays usable; closing an empty context is a no-op.
func (c *Context) Close() {
	c.mu.Lock()
	order := c.order
	entries := c.entries
	c.order = nil
	c.entries = make(map[string]Value)
	c.mu.Unlock()
	if len(order) == 0 {
		return
	}

	released := 0
	for i := len(order) - 1; i >= 0; i-- {
		if o, ok := entries[order[i]].(owned); ok {
			o.release()
			released++
		}
	}
	gpuflow.Logger().Debug("workflow: context closed", "entries", len(order), "released", released)
}

// Lookup returns the value under key as variant T. A missing key or a
// variant mismatch is a configuration error.
func Lookup[T Value](c *Context, key string) (T, error) {
	var zero T
	v, ok := c.Get(key)
	if !ok {
		return zero, Errorf(KindConfiguration, "missing context entry '%s'", key)
	}
	t, ok := v.(T)
	if !ok {
		return zero, Errorf(KindConfiguration, "context entry '%s' is %s, want %s", key, v.Type(), zero.Type())
	}
	return t, nil
}

// SetDevice stores a device handle.
func (c *Context) SetDevice(key string, dev gpucore.Device) {
	c.Set(key, DeviceValue{Device: dev})
}

// Device returns the device stored under key.
func (c *Context) Device(key string) (gpucore.Device, error) {
	v, err := Lookup[DeviceValue](c, key)
	if err != nil {
		return nil, err
	}
	if v.Device == nil {
		return nil, Errorf(KindConfiguration, "context entry '%s' holds a nil device", key)
	}
	return v.Device, nil
}

// SetPipeline stores a compute pipeline owned by the context.
func (c *Context) SetPipeline(key string, dev gpucore.Device, id gpucore.ComputePipelineID) {
	c.Set(key, PipelineValue{Device: dev, ID: id})
}

// Pipeline returns the compute pipeline stored under key.
func (c *Context) Pipeline(key string) (gpucore.ComputePipelineID, error) {
	v, err := Lookup[PipelineValue](c, key)
	return v.ID, err
}

// SetBuffer stores a device buffer owned by the context.
func (c *Context) SetBuffer(key string, dev gpucore.Device, id gpucore.BufferID) {
	c.Set(key, BufferValue{Device: dev, ID: id})
}

// Buffer returns the device buffer stored under key.
func (c *Context) Buffer(key string) (gpucore.BufferID, error) {
	v, err := Lookup[BufferValue](c, key)
	return v.ID, err
}

// SetSampler stores a sampler owned by the context.
func (c *Context) SetSampler(key string, dev gpucore.Device, id gpucore.SamplerID) {
	c.Set(key, SamplerValue{Device: dev, ID: id})
}

// Sampler returns the sampler stored under key.
func (c *Context) Sampler(key string) (gpucore.SamplerID, error) {
	v, err := Lookup[SamplerValue](c, key)
	return v.ID, err
}

// SetTexture stores a texture owned by the context.
func (c *Context) SetTexture(key string, dev gpucore.Device, id gpucore.TextureID) {
	c.Set(key, TextureValue{Device: dev, ID: id})
}

// Texture returns the texture stored under key.
func (c *Context) Texture(key string) (gpucore.TextureID, error) {
	v, err := Lookup[TextureValue](c, key)
	return v.ID, err
}

// SetString stores a string.
func (c *Context) SetString(key, s string) {
	c.Set(key, StringValue(s))
}

// String returns the string stored under key.
func (c *Context) String(key string) (string, error) {
	v, err := Lookup[StringValue](c, key)
	return string(v), err
}

// SetNumber stores a number.
func (c *Context) SetNumber(key string, n float64) {
	c.Set(key, NumberValue(n))
}

// Number returns the number stored under key.
func (c *Context) Number(key string) (float64, error) {
	v, err := Lookup[NumberValue](c, key)
	return float64(v), err
}

// SetMetadata stores a metadata record.
func (c *Context) SetMetadata(key string, m Metadata) {
	c.Set(key, MetadataValue{Metadata: m})
}

// Metadata returns the metadata record stored under key.
func (c *Context) Metadata(key string) (Metadata, error) {
	v, err := Lookup[MetadataValue](c, key)
	return v.Metadata, err
}
