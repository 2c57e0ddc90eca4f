// Package arena provides a bump allocator over a single GPU buffer.
//
// A Buffer hands out byte ranges of one GL buffer object. It keeps a host
// copy of everything written since the last Clear so the GPU buffer can be
// reallocated larger without losing earlier allocations. Ranges stay valid
// until Clear or Release.
package arena

import (
	"fmt"

	"ship-renderer/internal/graphics/gpu"
)

// Buffer is a growable bump allocator. Not safe for concurrent use.
type Buffer struct {
	dev    gpu.Device
	target gpu.Enum
	usage  gpu.Enum

	buf    gpu.Buffer
	size   int
	offset int
	shadow []byte

	leaked   bool
	released bool
}

// New creates an empty arena. No GPU storage is allocated until the first
// Allocate.
func New(dev gpu.Device, target, usage gpu.Enum) *Buffer {
	return &Buffer{
		dev:    dev,
		target: target,
		usage:  usage,
		buf:    dev.NewBuffer(),
	}
}

// Allocate copies data to the end of the arena and returns the buffer and
// the byte offset it was written at. It grows the GPU buffer as needed and
// never fails.
func (a *Buffer) Allocate(data []byte) (gpu.Buffer, int) {
	if a.released {
		panic("arena: Allocate after Release")
	}
	if a.offset+len(data) > a.size {
		a.grow(len(data))
	}
	off := a.offset
	a.dev.BufferSubData(a.target, a.buf, off, data)
	a.shadow = append(a.shadow, data...)
	a.offset += len(data)
	return a.buf, off
}

// grow reallocates to size + (size + n) and re-uploads the shadow copy.
func (a *Buffer) grow(n int) {
	a.size += a.size + n
	a.dev.BufferData(a.target, a.buf, a.size, a.shadow, a.usage)
	if gpu.DebugChecks && (a.offset+n > a.size || len(a.shadow) != a.offset) {
		panic(fmt.Sprintf("arena: bad growth: offset %d + %d exceeds %d (shadow %d)",
			a.offset, n, a.size, len(a.shadow)))
	}
}

// Align pads the cursor to a multiple of n. Uniform ranges must start on the
// device's offset alignment.
func (a *Buffer) Align(n int) {
	if n <= 1 {
		return
	}
	if pad := a.offset % n; pad != 0 {
		a.Allocate(make([]byte, n-pad))
	}
}

// Clear rewinds the cursor. The GPU buffer keeps its size.
func (a *Buffer) Clear() {
	a.offset = 0
	a.shadow = a.shadow[:0]
}

// Handle returns the GPU buffer. With leak set the buffer survives Release,
// for data that has to live as long as the process.
func (a *Buffer) Handle(leak bool) gpu.Buffer {
	if leak {
		a.leaked = true
	}
	return a.buf
}

// Release deletes the GPU buffer unless it was leaked. Calling it twice is a
// no-op.
func (a *Buffer) Release() {
	if a.released {
		return
	}
	a.released = true
	if !a.leaked {
		a.dev.DeleteBuffers(a.buf)
	}
	a.shadow = nil
}

// Len is the number of bytes allocated since the last Clear.
func (a *Buffer) Len() int { return a.offset }

// Cap is the size of the GPU buffer.
func (a *Buffer) Cap() int { return a.size }
