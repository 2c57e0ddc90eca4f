// Package gpu describes the subset of the OpenGL API the renderer consumes.
//
// Handles are plain object names and enum values are the GL constants
// themselves, so descriptors built from them stay comparable and can be used
// as map keys.
package gpu

// Object names.
type (
	Buffer      uint32
	VertexArray uint32
	Texture     uint32
	Sampler     uint32
	Program     uint32
)

// Device is the immediate-mode GPU surface. All calls happen on the thread
// owning the GL context.
type Device interface {
	NewBuffer() Buffer
	DeleteBuffers(bufs ...Buffer)
	// BufferData (re)allocates b with size bytes. data may be nil or shorter
	// than size; it is copied to the start of the buffer.
	BufferData(target Enum, b Buffer, size int, data []byte, usage Enum)
	BufferSubData(target Enum, b Buffer, offset int, data []byte)
	BindBuffer(target Enum, b Buffer)
	BindBufferRange(target Enum, index uint32, b Buffer, offset, size int)

	NewVertexArray() VertexArray
	DeleteVertexArrays(vaos ...VertexArray)
	BindVertexArray(vao VertexArray)
	// VertexAttribPointer binds b as the array buffer and points attribute
	// loc at it, enabling the attribute.
	VertexAttribPointer(loc uint32, b Buffer, size int32, typ Enum, normalized bool, stride int32, offset int)
	DisableVertexAttribArray(loc uint32)
	VertexAttribDivisor(loc, divisor uint32)
	VertexAttrib4f(loc uint32, x, y, z, w float32)

	NewTexture() Texture
	DeleteTextures(texs ...Texture)
	TexImage2D(t Texture, level int32, internalFormat Enum, width, height int32, format, typ Enum, pixels []byte)
	TexSubImage2D(t Texture, x, y, width, height int32, format, typ Enum, pixels []byte)
	// BindTexture makes t and s current on texture unit unit.
	BindTexture(unit uint32, t Texture, s Sampler)

	NewSampler() Sampler
	DeleteSamplers(samplers ...Sampler)
	SamplerParameter(s Sampler, pname Enum, value int32)

	NewProgram(vertexSrc, fragmentSrc string) (Program, error)
	DeleteProgram(p Program)
	UseProgram(p Program)
	UniformLocation(p Program, name string) (int32, bool)
	UniformBlockIndex(p Program, name string) (uint32, bool)
	UniformBlockBinding(p Program, block, binding uint32)
	Uniform1i(loc int32, v int32)
	UniformMatrix4fv(loc int32, m *[16]float32)

	Enable(cap Enum)
	Disable(cap Enum)
	Viewport(x, y, width, height int32)
	ClearColor(r, g, b, a float32)
	ClearDepth(d float32)
	Clear(mask Enum)
	DepthFunc(fn Enum)
	BlendFunc(src, dst Enum)
	FrontFace(mode Enum)
	DrawElementsInstanced(mode Enum, count int32, typ Enum, offset int, instances int32)

	// UniformBufferOffsetAlignment is the required alignment of offsets
	// passed to BindBufferRange for uniform buffers.
	UniformBufferOffsetAlignment() int

	// Err returns the first GPU error recorded since the previous call and
	// clears it. It always returns nil unless the build carries debug checks.
	Err() error
}
