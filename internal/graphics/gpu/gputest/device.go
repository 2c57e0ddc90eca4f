// Package gputest provides a recording gpu.Device for tests. It keeps buffer
// contents in memory so tests can inspect what was uploaded and it logs draw
// calls together with the state they were issued under.
package gputest

import (
	"fmt"

	"ship-renderer/internal/graphics/gpu"
)

// Draw is one recorded DrawElementsInstanced call.
type Draw struct {
	Mode      gpu.Enum
	Count     int32
	IndexType gpu.Enum
	Offset    int
	Instances int32
	VAO       gpu.VertexArray
	FrontFace gpu.Enum
	// Default color attribute value at the time of the draw, keyed by location.
	Constants map[uint32][4]float32
	Ranges    map[uint32]Range
	Textures  map[uint32]gpu.Texture
	DepthFunc gpu.Enum
	Blend     bool
	// Matrices uploaded with UniformMatrix4fv, keyed by location.
	Matrices map[int32][16]float32
}

// Range is a uniform buffer binding.
type Range struct {
	Buffer       gpu.Buffer
	Offset, Size int
}

// Attrib is the state of one vertex attribute.
type Attrib struct {
	Enabled bool
	Buffer  gpu.Buffer
	Size    int32
	Type    gpu.Enum
	Stride  int32
	Offset  int
	Divisor uint32
}

type TexImage struct {
	Level          int32
	InternalFormat gpu.Enum
	Width, Height  int32
	Pixels         []byte
}

// Device records every call. The zero value is not usable; call New.
type Device struct {
	Align int

	next      uint32
	Buffers   map[gpu.Buffer][]byte
	Deleted   map[uint32]int
	Attribs   map[uint32]Attrib
	Constants map[uint32][4]float32
	Ranges    map[uint32]Range
	Textures  map[uint32]gpu.Texture
	Images    map[gpu.Texture][]TexImage
	SubImages int
	Samplers  map[gpu.Sampler]map[gpu.Enum]int32
	Uniforms  map[string]int32
	Enabled   map[gpu.Enum]bool
	Matrices  map[int32][16]float32

	Depth        gpu.Enum
	DepthClear   float32
	Clears       []gpu.Enum
	ViewportRect [4]int32

	VAO       gpu.VertexArray
	Program   gpu.Program
	Front     gpu.Enum
	Draws     []Draw
	Calls     int
	Uploads   int
	FailLink  error
	StagedErr error
}

func New() *Device {
	return &Device{
		Align:     1,
		Buffers:   map[gpu.Buffer][]byte{},
		Deleted:   map[uint32]int{},
		Attribs:   map[uint32]Attrib{},
		Constants: map[uint32][4]float32{},
		Ranges:    map[uint32]Range{},
		Textures:  map[uint32]gpu.Texture{},
		Images:    map[gpu.Texture][]TexImage{},
		Samplers:  map[gpu.Sampler]map[gpu.Enum]int32{},
		Uniforms:  map[string]int32{},
		Enabled:   map[gpu.Enum]bool{},
		Matrices:  map[int32][16]float32{},
		Depth:     gpu.Less,
		Front:     gpu.CCW,
	}
}

func (d *Device) name() uint32 {
	d.next++
	d.Calls++
	return d.next
}

func (d *Device) del(names ...uint32) {
	d.Calls++
	for _, n := range names {
		d.Deleted[n]++
	}
}

// ResetLog forgets recorded draws and the call counter.
func (d *Device) ResetLog() {
	d.Draws = nil
	d.Clears = nil
	d.Calls = 0
	d.Uploads = 0
}

func (d *Device) NewBuffer() gpu.Buffer {
	b := gpu.Buffer(d.name())
	d.Buffers[b] = nil
	return b
}

func (d *Device) DeleteBuffers(bufs ...gpu.Buffer) {
	for _, b := range bufs {
		d.del(uint32(b))
		delete(d.Buffers, b)
	}
}

func (d *Device) BufferData(target gpu.Enum, b gpu.Buffer, size int, data []byte, usage gpu.Enum) {
	d.Calls++
	d.Uploads++
	buf := make([]byte, size)
	copy(buf, data)
	d.Buffers[b] = buf
}

func (d *Device) BufferSubData(target gpu.Enum, b gpu.Buffer, offset int, data []byte) {
	d.Calls++
	d.Uploads++
	buf := d.Buffers[b]
	if offset+len(data) > len(buf) {
		panic(fmt.Sprintf("gputest: BufferSubData [%d,%d) out of range for buffer %d of size %d",
			offset, offset+len(data), b, len(buf)))
	}
	copy(buf[offset:], data)
}

func (d *Device) BindBuffer(target gpu.Enum, b gpu.Buffer) { d.Calls++ }

func (d *Device) BindBufferRange(target gpu.Enum, index uint32, b gpu.Buffer, offset, size int) {
	d.Calls++
	if d.Align > 1 && offset%d.Align != 0 {
		panic(fmt.Sprintf("gputest: BindBufferRange offset %d not aligned to %d", offset, d.Align))
	}
	d.Ranges[index] = Range{Buffer: b, Offset: offset, Size: size}
}

func (d *Device) NewVertexArray() gpu.VertexArray { return gpu.VertexArray(d.name()) }

func (d *Device) DeleteVertexArrays(vaos ...gpu.VertexArray) {
	for _, v := range vaos {
		d.del(uint32(v))
	}
}

func (d *Device) BindVertexArray(vao gpu.VertexArray) {
	d.Calls++
	d.VAO = vao
}

func (d *Device) VertexAttribPointer(loc uint32, b gpu.Buffer, size int32, typ gpu.Enum, normalized bool, stride int32, offset int) {
	d.Calls++
	a := d.Attribs[loc]
	a.Enabled = true
	a.Buffer, a.Size, a.Type, a.Stride, a.Offset = b, size, typ, stride, offset
	d.Attribs[loc] = a
}

func (d *Device) DisableVertexAttribArray(loc uint32) {
	d.Calls++
	a := d.Attribs[loc]
	a.Enabled = false
	d.Attribs[loc] = a
}

func (d *Device) VertexAttribDivisor(loc, divisor uint32) {
	d.Calls++
	a := d.Attribs[loc]
	a.Divisor = divisor
	d.Attribs[loc] = a
}

func (d *Device) VertexAttrib4f(loc uint32, x, y, z, w float32) {
	d.Calls++
	d.Constants[loc] = [4]float32{x, y, z, w}
}

func (d *Device) NewTexture() gpu.Texture { return gpu.Texture(d.name()) }

func (d *Device) DeleteTextures(texs ...gpu.Texture) {
	for _, t := range texs {
		d.del(uint32(t))
	}
}

func (d *Device) TexImage2D(t gpu.Texture, level int32, internalFormat gpu.Enum, width, height int32, format, typ gpu.Enum, pixels []byte) {
	d.Calls++
	d.Images[t] = append(d.Images[t], TexImage{
		Level: level, InternalFormat: internalFormat, Width: width, Height: height,
		Pixels: append([]byte(nil), pixels...),
	})
}

// TexSubImage2D writes into the level 0 image, which must be RGBA8.
func (d *Device) TexSubImage2D(t gpu.Texture, x, y, width, height int32, format, typ gpu.Enum, pixels []byte) {
	d.Calls++
	d.SubImages++
	imgs := d.Images[t]
	if len(imgs) == 0 {
		panic("gputest: TexSubImage2D on texture without storage")
	}
	base := imgs[0]
	if x < 0 || y < 0 || x+width > base.Width || y+height > base.Height {
		panic(fmt.Sprintf("gputest: TexSubImage2D %dx%d at (%d,%d) outside %dx%d",
			width, height, x, y, base.Width, base.Height))
	}
	for row := int32(0); row < height; row++ {
		dst := ((y+row)*base.Width + x) * 4
		src := row * width * 4
		copy(base.Pixels[dst:dst+width*4], pixels[src:src+width*4])
	}
}

func (d *Device) BindTexture(unit uint32, t gpu.Texture, s gpu.Sampler) {
	d.Calls++
	d.Textures[unit] = t
}

func (d *Device) NewSampler() gpu.Sampler {
	s := gpu.Sampler(d.name())
	d.Samplers[s] = map[gpu.Enum]int32{}
	return s
}

func (d *Device) DeleteSamplers(samplers ...gpu.Sampler) {
	for _, s := range samplers {
		d.del(uint32(s))
	}
}

func (d *Device) SamplerParameter(s gpu.Sampler, pname gpu.Enum, value int32) {
	d.Calls++
	d.Samplers[s][pname] = value
}

func (d *Device) NewProgram(vertexSrc, fragmentSrc string) (gpu.Program, error) {
	if d.FailLink != nil {
		return 0, d.FailLink
	}
	return gpu.Program(d.name()), nil
}

func (d *Device) DeleteProgram(p gpu.Program) { d.del(uint32(p)) }

func (d *Device) UseProgram(p gpu.Program) {
	d.Calls++
	d.Program = p
}

// UniformLocation hands out a stable location per name.
func (d *Device) UniformLocation(p gpu.Program, name string) (int32, bool) {
	d.Calls++
	loc, ok := d.Uniforms[name]
	if !ok {
		loc = int32(len(d.Uniforms))
		d.Uniforms[name] = loc
	}
	return loc, true
}

func (d *Device) UniformBlockIndex(p gpu.Program, name string) (uint32, bool) {
	loc, ok := d.UniformLocation(p, name)
	return uint32(loc), ok
}

func (d *Device) UniformBlockBinding(p gpu.Program, block, binding uint32) { d.Calls++ }
func (d *Device) Uniform1i(loc int32, v int32)                             { d.Calls++ }

func (d *Device) UniformMatrix4fv(loc int32, m *[16]float32) {
	d.Calls++
	d.Matrices[loc] = *m
}

func (d *Device) Enable(capability gpu.Enum) {
	d.Calls++
	d.Enabled[capability] = true
}

func (d *Device) Disable(capability gpu.Enum) {
	d.Calls++
	d.Enabled[capability] = false
}

func (d *Device) Viewport(x, y, width, height int32) {
	d.Calls++
	d.ViewportRect = [4]int32{x, y, width, height}
}

func (d *Device) ClearColor(r, g, b, a float32) { d.Calls++ }

func (d *Device) ClearDepth(depth float32) {
	d.Calls++
	d.DepthClear = depth
}

func (d *Device) Clear(mask gpu.Enum) {
	d.Calls++
	d.Clears = append(d.Clears, mask)
}

func (d *Device) DepthFunc(fn gpu.Enum) {
	d.Calls++
	d.Depth = fn
}

func (d *Device) BlendFunc(src, dst gpu.Enum)       { d.Calls++ }
func (d *Device) UniformBufferOffsetAlignment() int { return d.Align }

func (d *Device) FrontFace(mode gpu.Enum) {
	d.Calls++
	d.Front = mode
}

func (d *Device) DrawElementsInstanced(mode gpu.Enum, count int32, typ gpu.Enum, offset int, instances int32) {
	d.Calls++
	dr := Draw{
		Mode: mode, Count: count, IndexType: typ, Offset: offset, Instances: instances,
		VAO: d.VAO, FrontFace: d.Front, DepthFunc: d.Depth, Blend: d.Enabled[gpu.Blend],
		Constants: map[uint32][4]float32{},
		Ranges:    map[uint32]Range{},
		Textures:  map[uint32]gpu.Texture{},
		Matrices:  map[int32][16]float32{},
	}
	for k, v := range d.Matrices {
		dr.Matrices[k] = v
	}
	for k, v := range d.Constants {
		dr.Constants[k] = v
	}
	for k, v := range d.Ranges {
		dr.Ranges[k] = v
	}
	for k, v := range d.Textures {
		dr.Textures[k] = v
	}
	d.Draws = append(d.Draws, dr)
}

// Err returns StagedErr once.
func (d *Device) Err() error {
	err := d.StagedErr
	d.StagedErr = nil
	return err
}

// BufferRange returns a copy of size bytes of b starting at offset.
func (d *Device) BufferRange(b gpu.Buffer, offset, size int) []byte {
	buf := d.Buffers[b]
	if offset+size > len(buf) {
		return nil
	}
	return append([]byte(nil), buf[offset:offset+size]...)
}

var _ gpu.Device = (*Device)(nil)
