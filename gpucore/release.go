// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package gpucore

// Releaser collects resources acquired during one operation and releases
// them newest first unless disarmed. Use with defer:
//
//	r := gpucore.NewReleaser(dev)
//	defer r.Run()
//	... r.Buffer(id) ...
//	r.Disarm() // on success
type Releaser struct {
	dev   Device
	fns   []func()
	armed bool
}

// NewReleaser returns an armed Releaser for resources of dev.
func NewReleaser(dev Device) *Releaser {
	return &Releaser{dev: dev, armed: true}
}

// Add registers fn to run on release.
func (r *Releaser) Add(fn func()) {
	r.fns = append(r.fns, fn)
}

func (r *Releaser) Buffer(id BufferID) {
	r.Add(func() { r.dev.ReleaseBuffer(id) })
}

func (r *Releaser) TransferBuffer(id TransferBufferID) {
	r.Add(func() { r.dev.ReleaseTransferBuffer(id) })
}

func (r *Releaser) Texture(id TextureID) {
	r.Add(func() { r.dev.ReleaseTexture(id) })
}

func (r *Releaser) Sampler(id SamplerID) {
	r.Add(func() { r.dev.ReleaseSampler(id) })
}

func (r *Releaser) Pipeline(id ComputePipelineID) {
	r.Add(func() { r.dev.ReleaseComputePipeline(id) })
}

// Disarm keeps the collected resources alive.
func (r *Releaser) Disarm() { r.armed = false }

// Run releases everything collected, newest first, if still armed.
func (r *Releaser) Run() {
	if !r.armed {
		return
	}
	for i := len(r.fns) - 1; i >= 0; i-- {
		r.fns[i]()
	}
	r.fns = nil
}
