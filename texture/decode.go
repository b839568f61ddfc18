// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package texture

import (
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // register GIF decoder
	_ "image/jpeg" // register JPEG decoder
	_ "image/png"  // register PNG decoder
	"os"
	"path/filepath"

	xdraw "golang.org/x/image/draw"

	_ "golang.org/x/image/bmp"  // register BMP decoder
	_ "golang.org/x/image/tiff" // register TIFF decoder
	_ "golang.org/x/image/webp" // register WebP decoder
)

// ErrEmptyImage is returned for images with no pixels.
var ErrEmptyImage = errors.New("texture: image has no pixels")

// Image is a decoded image in tightly packed, non-premultiplied RGBA8.
type Image struct {
	Width  int
	Height int
	Pix    []byte
	Format string
}

// Decode reads the image at path. PNG, JPEG, GIF, BMP, TIFF and WebP are
// recognized by content. Images larger than maxDim on either side are
// scaled down to fit, preserving aspect ratio; maxDim <= 0 disables
// scaling.
func Decode(path string, maxDim int) (*Image, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("texture: open file: %w", err)
	}
	defer func() { _ = f.Close() }()

	src, format, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("texture: decode: %w", err)
	}
	b := src.Bounds()
	if b.Empty() {
		return nil, ErrEmptyImage
	}

	w, h := fit(b.Dx(), b.Dy(), maxDim)
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	if w == b.Dx() && h == b.Dy() {
		xdraw.Draw(dst, dst.Bounds(), src, b.Min, xdraw.Src)
	} else {
		xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, b, xdraw.Src, nil)
	}
	return &Image{Width: w, Height: h, Pix: dst.Pix, Format: format}, nil
}

// fit returns w x h scaled down so neither side exceeds maxDim.
func fit(w, h, maxDim int) (int, int) {
	if maxDim <= 0 || (w <= maxDim && h <= maxDim) {
		return w, h
	}
	if w >= h {
		return maxDim, max(1, h*maxDim/w)
	}
	return max(1, w*maxDim/h), maxDim
}
