// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package gpucore

// Resource IDs
//
// These opaque IDs represent GPU resources. Each device implementation
// maintains a mapping between IDs and actual backend resources.

// BufferID is an opaque handle to a device buffer.
type BufferID uint64

// TransferBufferID is an opaque handle to a host-visible staging buffer.
type TransferBufferID uint64

// TextureID is an opaque handle to a texture.
type TextureID uint64

// SamplerID is an opaque handle to a sampler.
type SamplerID uint64

// ComputePipelineID is an opaque handle to a compute pipeline.
type ComputePipelineID uint64

// InvalidID is the zero value, representing an invalid/null resource.
const InvalidID = 0

// BufferUsage is a bitmask specifying how a device buffer will be used.
type BufferUsage uint32

// Buffer usage flags.
const (
	// BufferUsageVertex indicates the buffer can be bound as a vertex buffer.
	BufferUsageVertex BufferUsage = 1 << 0

	// BufferUsageIndex indicates the buffer can be bound as an index buffer.
	BufferUsageIndex BufferUsage = 1 << 1

	// BufferUsageIndirect indicates the buffer can hold indirect draw/dispatch arguments.
	BufferUsageIndirect BufferUsage = 1 << 2

	// BufferUsageGraphicsStorageRead indicates read-only storage access from graphics stages.
	BufferUsageGraphicsStorageRead BufferUsage = 1 << 3

	// BufferUsageComputeStorageRead indicates read-only storage access from compute kernels.
	BufferUsageComputeStorageRead BufferUsage = 1 << 4

	// BufferUsageComputeStorageWrite indicates read-write storage access from compute kernels.
	BufferUsageComputeStorageWrite BufferUsage = 1 << 5
)

// Has reports whether all bits of flag are set in u.
func (u BufferUsage) Has(flag BufferUsage) bool {
	return u&flag == flag
}

// TransferBufferUsage specifies the direction of a transfer buffer.
type TransferBufferUsage uint8

const (
	// TransferBufferUsageUpload stages host data for copies into device resources.
	TransferBufferUsageUpload TransferBufferUsage = iota

	// TransferBufferUsageDownload receives device data for host readback.
	TransferBufferUsageDownload
)

// String returns the transfer direction name.
func (u TransferBufferUsage) String() string {
	switch u {
	case TransferBufferUsageUpload:
		return "Upload"
	case TransferBufferUsageDownload:
		return "Download"
	default:
		return unknownStr
	}
}

// TextureFormat specifies the pixel format of a texture.
type TextureFormat uint32

// Texture formats.
const (
	// TextureFormatRGBA8Unorm is 8-bit RGBA, normalized unsigned integer.
	TextureFormatRGBA8Unorm TextureFormat = iota + 1

	// TextureFormatR32Float is a single 32-bit float channel.
	TextureFormatR32Float
)

// BytesPerPixel returns the size of one texel in bytes.
func (f TextureFormat) BytesPerPixel() int {
	switch f {
	case TextureFormatRGBA8Unorm, TextureFormatR32Float:
		return 4
	default:
		return 0
	}
}

// TextureUsage is a bitmask specifying how a texture will be used.
type TextureUsage uint32

// Texture usage flags.
const (
	// TextureUsageSampler indicates the texture can be sampled by shaders.
	TextureUsageSampler TextureUsage = 1 << 0

	// TextureUsageComputeStorageRead indicates read-only storage access from compute kernels.
	TextureUsageComputeStorageRead TextureUsage = 1 << 1

	// TextureUsageComputeStorageWrite indicates write access from compute kernels.
	TextureUsageComputeStorageWrite TextureUsage = 1 << 2
)

// Filter specifies texel filtering.
type Filter uint8

const (
	// FilterNearest selects the closest texel.
	FilterNearest Filter = iota

	// FilterLinear blends neighboring texels.
	FilterLinear
)

// AddressMode specifies how coordinates outside [0, 1] are handled.
type AddressMode uint8

const (
	// AddressModeRepeat wraps coordinates.
	AddressModeRepeat AddressMode = iota

	// AddressModeMirroredRepeat wraps coordinates, mirroring every other tile.
	AddressModeMirroredRepeat

	// AddressModeClampToEdge clamps coordinates to the edge texels.
	AddressModeClampToEdge
)

// ShaderFormat is the binary encoding of a compute kernel.
type ShaderFormat uint8

const (
	// ShaderFormatSPIRV is SPIR-V bytecode.
	ShaderFormatSPIRV ShaderFormat = iota + 1

	// ShaderFormatMSL is Metal Shading Language source.
	ShaderFormatMSL
)

// String returns the format name.
func (f ShaderFormat) String() string {
	switch f {
	case ShaderFormatSPIRV:
		return "SPIR-V"
	case ShaderFormatMSL:
		return "MSL"
	default:
		return unknownStr
	}
}

const unknownStr = "Unknown"

// Driver names reported by Device.Driver.
const (
	DriverVulkan   = "vulkan"
	DriverMetal    = "metal"
	DriverSoftware = "software"
)

// KernelFormatFor returns the kernel encoding and entry point a device with
// the given driver name accepts. The "metal" driver takes MSL with entry
// point "main0"; every other driver takes SPIR-V with entry point "main".
func KernelFormatFor(driver string) (ShaderFormat, string) {
	if driver == DriverMetal {
		return ShaderFormatMSL, "main0"
	}
	return ShaderFormatSPIRV, "main"
}

// BufferDesc describes a device buffer.
type BufferDesc struct {
	Label string
	Usage BufferUsage
	Size  uint32
}

// TransferBufferDesc describes a transfer buffer.
type TransferBufferDesc struct {
	Label string
	Usage TransferBufferUsage
	Size  uint32
}

// TextureDesc describes a 2D texture.
type TextureDesc struct {
	Label  string
	Format TextureFormat
	Usage  TextureUsage
	Width  uint32
	Height uint32
}

// SamplerDesc describes a sampler.
type SamplerDesc struct {
	Label        string
	MinFilter    Filter
	MagFilter    Filter
	MipmapFilter Filter
	AddressModeU AddressMode
	AddressModeV AddressMode
	AddressModeW AddressMode
}

// StorageBufferReadWriteBinding binds a buffer for read-write storage
// access for the duration of a compute pass. Cycle allows the device to
// hand out a fresh backing allocation if the buffer is still in flight.
type StorageBufferReadWriteBinding struct {
	Buffer BufferID
	Cycle  bool
}

// TextureSamplerBinding pairs a sampled texture with its sampler.
type TextureSamplerBinding struct {
	Texture TextureID
	Sampler SamplerID
}

// TransferBufferLocation is a byte offset into a transfer buffer.
type TransferBufferLocation struct {
	TransferBuffer TransferBufferID
	Offset         uint32
}

// BufferRegion is a byte range of a device buffer.
type BufferRegion struct {
	Buffer BufferID
	Offset uint32
	Size   uint32
}

// TextureTransferInfo describes the layout of texel data in a transfer
// buffer. Zero PixelsPerRow means tightly packed rows.
type TextureTransferInfo struct {
	TransferBuffer TransferBufferID
	Offset         uint32
	PixelsPerRow   uint32
	RowsPerLayer   uint32
}

// TextureRegion is a rectangle of a texture's first mip level.
type TextureRegion struct {
	Texture TextureID
	X, Y    uint32
	W, H    uint32
}
