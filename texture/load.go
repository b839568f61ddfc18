// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package texture provides the texture.load workflow step, which decodes an
// image file and uploads it as a sampled device texture.
package texture

import (
	"context"

	"github.com/gogpu/gpuflow"
	"github.com/gogpu/gpuflow/gpucore"
	"github.com/gogpu/gpuflow/workflow"
)

// PluginLoad is the plugin id of LoadStep.
const PluginLoad = "texture.load"

// LoadStep decodes an image and stores it as an RGBA8 texture with a
// linear, repeating sampler.
//
// Input port "image_path" names a context string holding the image path;
// "~" is expanded. Output port "texture" names the base key K: the step
// writes K+"_gpu", K+"_sampler" and metadata under K. Parameter
// max_dimension (0) scales larger images down to fit.
type LoadStep struct{}

var _ workflow.Step = LoadStep{}

func (LoadStep) PluginID() string { return PluginLoad }

func (LoadStep) Ports() []workflow.PortSpec {
	return []workflow.PortSpec{
		{Name: "image_path", Direction: workflow.In, Type: workflow.TypeString, Required: true},
		{Name: "texture", Direction: workflow.Out, Type: workflow.TypeTexture, Required: true},
	}
}

// Execute implements workflow.Step.
func (s LoadStep) Execute(ctx context.Context, def *workflow.StepDefinition, rc *workflow.Context) error {
	return workflow.Annotate(PluginLoad, workflow.KindResourceCreation, s.execute(ctx, def, rc))
}

func (LoadStep) execute(ctx context.Context, def *workflow.StepDefinition, rc *workflow.Context) error {
	ports := workflow.PortsOf(def)
	pathKey, err := ports.RequiredInput("image_path")
	if err != nil {
		return err
	}
	outKey, err := ports.RequiredOutput("texture")
	if err != nil {
		return err
	}
	maxDim, err := workflow.ParamsOf(def).Int("max_dimension", 0)
	if err != nil {
		return err
	}

	path, err := rc.String(pathKey)
	if err != nil {
		return workflow.Errorf(workflow.KindConfiguration, "image_path not found in context key '%s'", pathKey)
	}
	keys := workflow.TextureKeys(outKey)
	if err := rc.CheckStore(workflow.TypeTexture, keys.Texture); err != nil {
		return err
	}
	if err := rc.CheckStore(workflow.TypeSampler, keys.Sampler); err != nil {
		return err
	}
	if err := rc.CheckStore(workflow.TypeMetadata, keys.Base); err != nil {
		return err
	}
	resolved := workflow.ExpandHome(path)
	log := gpuflow.StepLogger(PluginLoad, def.ID)
	log.Debug("loading texture", "path", resolved)

	img, err := Decode(resolved, maxDim)
	if err != nil {
		return workflow.Errorf(workflow.KindIO, "failed to load image '%s': %w", resolved, err)
	}

	dev, err := rc.Device(workflow.DeviceKey)
	if err != nil {
		return workflow.Errorf(workflow.KindConfiguration, "GPU device not found in context")
	}
	if err := ctx.Err(); err != nil {
		return workflow.Canceled("cancelled before upload", err)
	}

	tex, smp, err := Upload(dev, img, outKey)
	if err != nil {
		return err
	}

	rc.SetTexture(keys.Texture, dev, tex)
	rc.SetSampler(keys.Sampler, dev, smp)
	rc.SetMetadata(keys.Base, workflow.Metadata{
		"valid":    true,
		"width":    img.Width,
		"height":   img.Height,
		"channels": 4,
		"path":     resolved,
		"format":   img.Format,
	})

	log.Info("texture loaded", "path", resolved, "width", img.Width, "height", img.Height, "bytes", len(img.Pix))
	return nil
}

// Upload creates a sampled RGBA8 texture holding img and a linear,
// repeating sampler for it. Nothing stays allocated on error.
func Upload(dev gpucore.Device, img *Image, label string) (gpucore.TextureID, gpucore.SamplerID, error) {
	r := gpucore.NewReleaser(dev)
	defer r.Run()

	w, h := uint32(img.Width), uint32(img.Height)
	tex, err := dev.CreateTexture(&gpucore.TextureDesc{
		Label:  label + "_gpu",
		Format: gpucore.TextureFormatRGBA8Unorm,
		Usage:  gpucore.TextureUsageSampler,
		Width:  w,
		Height: h,
	})
	if err != nil {
		return gpucore.InvalidID, gpucore.InvalidID, workflow.Errorf(workflow.KindResourceCreation, "failed to create texture: %w", err)
	}
	r.Texture(tex)

	tb, err := dev.CreateTransferBuffer(&gpucore.TransferBufferDesc{
		Label: label + "_upload",
		Usage: gpucore.TransferBufferUsageUpload,
		Size:  uint32(len(img.Pix)),
	})
	if err != nil {
		return gpucore.InvalidID, gpucore.InvalidID, workflow.Errorf(workflow.KindResourceCreation, "failed to create transfer buffer: %w", err)
	}
	defer dev.ReleaseTransferBuffer(tb)
	if err := dev.WriteTransferBuffer(tb, 0, img.Pix); err != nil {
		return gpucore.InvalidID, gpucore.InvalidID, workflow.Errorf(workflow.KindResourceCreation, "failed to map transfer buffer: %w", err)
	}

	cb, err := dev.AcquireCommandBuffer()
	if err != nil {
		return gpucore.InvalidID, gpucore.InvalidID, workflow.Errorf(workflow.KindResourceCreation, "failed to acquire command buffer: %w", err)
	}
	cp, err := cb.BeginCopyPass()
	if err != nil {
		cb.Cancel()
		return gpucore.InvalidID, gpucore.InvalidID, workflow.Errorf(workflow.KindResourceCreation, "failed to begin copy pass: %w", err)
	}
	cp.UploadToTexture(
		gpucore.TextureTransferInfo{TransferBuffer: tb, PixelsPerRow: w, RowsPerLayer: h},
		gpucore.TextureRegion{Texture: tex, W: w, H: h},
		false,
	)
	cp.End()
	if err := cb.Submit(); err != nil {
		return gpucore.InvalidID, gpucore.InvalidID, workflow.Errorf(workflow.KindResourceCreation, "failed to submit texture upload: %w", err)
	}

	smp, err := dev.CreateSampler(&gpucore.SamplerDesc{
		Label:        label + "_sampler",
		MinFilter:    gpucore.FilterLinear,
		MagFilter:    gpucore.FilterLinear,
		MipmapFilter: gpucore.FilterLinear,
		AddressModeU: gpucore.AddressModeRepeat,
		AddressModeV: gpucore.AddressModeRepeat,
		AddressModeW: gpucore.AddressModeRepeat,
	})
	if err != nil {
		return gpucore.InvalidID, gpucore.InvalidID, workflow.Errorf(workflow.KindResourceCreation, "failed to create sampler: %w", err)
	}

	r.Disarm()
	return tex, smp, nil
}

// Register installs the texture steps in reg.
func Register(reg *workflow.Registry) error {
	return reg.Register(LoadStep{})
}
