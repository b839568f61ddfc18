// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package gpucore

import "fmt"

// ReadBuffer copies size bytes of buf, starting at offset, back to host
// memory. It records a copy into a download transfer buffer, submits,
// waits for the device to go idle and reads the staged bytes.
func ReadBuffer(dev Device, buf BufferID, offset, size uint32) ([]byte, error) {
	if size == 0 {
		return nil, nil
	}
	tb, err := dev.CreateTransferBuffer(&TransferBufferDesc{
		Label: "readback",
		Usage: TransferBufferUsageDownload,
		Size:  size,
	})
	if err != nil {
		return nil, fmt.Errorf("create readback buffer: %w", err)
	}
	defer dev.ReleaseTransferBuffer(tb)

	cb, err := dev.AcquireCommandBuffer()
	if err != nil {
		return nil, fmt.Errorf("acquire command buffer: %w", err)
	}
	pass, err := cb.BeginCopyPass()
	if err != nil {
		cb.Cancel()
		return nil, fmt.Errorf("begin copy pass: %w", err)
	}
	pass.DownloadFromBuffer(
		BufferRegion{Buffer: buf, Offset: offset, Size: size},
		TransferBufferLocation{TransferBuffer: tb},
	)
	pass.End()
	if err := cb.Submit(); err != nil {
		return nil, fmt.Errorf("submit readback: %w", err)
	}
	if err := dev.WaitIdle(); err != nil {
		return nil, fmt.Errorf("wait for readback: %w", err)
	}

	out := make([]byte, size)
	if err := dev.ReadTransferBuffer(tb, 0, out); err != nil {
		return nil, fmt.Errorf("read readback buffer: %w", err)
	}
	return out, nil
}
