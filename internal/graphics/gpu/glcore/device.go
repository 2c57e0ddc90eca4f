// Package glcore implements gpu.Device on top of the OpenGL 4.1 core profile.
package glcore

import (
	"fmt"
	"path/filepath"
	"runtime"
	"strings"
	"unsafe"

	"ship-renderer/internal/graphics/gpu"

	"github.com/go-gl/gl/v4.1-core/gl"
)

// Device issues GL calls on the current context. In gldebug builds every call
// is followed by glGetError and the first failure is kept for Err.
type Device struct {
	err      *gpu.Error
	uboAlign int
}

// New loads the GL function pointers for the current context.
func New() (*Device, error) {
	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("init gl: %w", err)
	}
	d := &Device{}
	var align int32
	gl.GetIntegerv(gl.UNIFORM_BUFFER_OFFSET_ALIGNMENT, &align)
	d.uboAlign = max(int(align), 1)
	d.check("Init")
	return d, nil
}

// check records the first GL error together with the caller of the Device
// method. It compiles away unless gpu.DebugChecks is set.
func (d *Device) check(op string) {
	if !gpu.DebugChecks {
		return
	}
	code := gl.GetError()
	if code == gl.NO_ERROR || d.err != nil {
		return
	}
	caller := "unknown"
	if _, file, line, ok := runtime.Caller(2); ok {
		caller = fmt.Sprintf("%s:%d", filepath.Base(file), line)
	}
	d.err = &gpu.Error{Op: op, Code: code, Caller: caller}
}

func (d *Device) Err() error {
	if d.err == nil {
		return nil
	}
	err := d.err
	d.err = nil
	return err
}

func (d *Device) UniformBufferOffsetAlignment() int { return d.uboAlign }

func ptr(b []byte) unsafe.Pointer {
	if len(b) == 0 {
		return nil
	}
	return unsafe.Pointer(&b[0])
}

func (d *Device) NewBuffer() gpu.Buffer {
	var b uint32
	gl.GenBuffers(1, &b)
	d.check("GenBuffers")
	return gpu.Buffer(b)
}

func (d *Device) DeleteBuffers(bufs ...gpu.Buffer) {
	if len(bufs) == 0 {
		return
	}
	gl.DeleteBuffers(int32(len(bufs)), (*uint32)(unsafe.Pointer(&bufs[0])))
	d.check("DeleteBuffers")
}

// Uploads go through COPY_WRITE_BUFFER so that writing index data never
// disturbs the element binding of whatever vertex array is bound.
func (d *Device) BufferData(target gpu.Enum, b gpu.Buffer, size int, data []byte, usage gpu.Enum) {
	gl.BindBuffer(gl.COPY_WRITE_BUFFER, uint32(b))
	if len(data) == size {
		gl.BufferData(gl.COPY_WRITE_BUFFER, size, ptr(data), uint32(usage))
	} else {
		gl.BufferData(gl.COPY_WRITE_BUFFER, size, nil, uint32(usage))
		if len(data) > 0 {
			gl.BufferSubData(gl.COPY_WRITE_BUFFER, 0, len(data), ptr(data))
		}
	}
	d.check("BufferData")
}

func (d *Device) BufferSubData(target gpu.Enum, b gpu.Buffer, offset int, data []byte) {
	if len(data) == 0 {
		return
	}
	gl.BindBuffer(gl.COPY_WRITE_BUFFER, uint32(b))
	gl.BufferSubData(gl.COPY_WRITE_BUFFER, offset, len(data), ptr(data))
	d.check("BufferSubData")
}

func (d *Device) BindBuffer(target gpu.Enum, b gpu.Buffer) {
	gl.BindBuffer(uint32(target), uint32(b))
	d.check("BindBuffer")
}

func (d *Device) BindBufferRange(target gpu.Enum, index uint32, b gpu.Buffer, offset, size int) {
	gl.BindBufferRange(uint32(target), index, uint32(b), offset, size)
	d.check("BindBufferRange")
}

func (d *Device) NewVertexArray() gpu.VertexArray {
	var vao uint32
	gl.GenVertexArrays(1, &vao)
	d.check("GenVertexArrays")
	return gpu.VertexArray(vao)
}

func (d *Device) DeleteVertexArrays(vaos ...gpu.VertexArray) {
	if len(vaos) == 0 {
		return
	}
	gl.DeleteVertexArrays(int32(len(vaos)), (*uint32)(unsafe.Pointer(&vaos[0])))
	d.check("DeleteVertexArrays")
}

func (d *Device) BindVertexArray(vao gpu.VertexArray) {
	gl.BindVertexArray(uint32(vao))
	d.check("BindVertexArray")
}

func (d *Device) VertexAttribPointer(loc uint32, b gpu.Buffer, size int32, typ gpu.Enum, normalized bool, stride int32, offset int) {
	gl.BindBuffer(gl.ARRAY_BUFFER, uint32(b))
	gl.EnableVertexAttribArray(loc)
	gl.VertexAttribPointerWithOffset(loc, size, uint32(typ), normalized, stride, uintptr(offset))
	d.check("VertexAttribPointer")
}

func (d *Device) DisableVertexAttribArray(loc uint32) {
	gl.DisableVertexAttribArray(loc)
	d.check("DisableVertexAttribArray")
}

func (d *Device) VertexAttribDivisor(loc, divisor uint32) {
	gl.VertexAttribDivisor(loc, divisor)
	d.check("VertexAttribDivisor")
}

func (d *Device) VertexAttrib4f(loc uint32, x, y, z, w float32) {
	gl.VertexAttrib4f(loc, x, y, z, w)
	d.check("VertexAttrib4f")
}

func (d *Device) NewTexture() gpu.Texture {
	var t uint32
	gl.GenTextures(1, &t)
	d.check("GenTextures")
	return gpu.Texture(t)
}

func (d *Device) DeleteTextures(texs ...gpu.Texture) {
	if len(texs) == 0 {
		return
	}
	gl.DeleteTextures(int32(len(texs)), (*uint32)(unsafe.Pointer(&texs[0])))
	d.check("DeleteTextures")
}

func (d *Device) TexImage2D(t gpu.Texture, level int32, internalFormat gpu.Enum, width, height int32, format, typ gpu.Enum, pixels []byte) {
	gl.BindTexture(gl.TEXTURE_2D, uint32(t))
	gl.PixelStorei(gl.UNPACK_ALIGNMENT, 1)
	gl.TexImage2D(gl.TEXTURE_2D, level, int32(internalFormat), width, height, 0, uint32(format), uint32(typ), ptr(pixels))
	d.check("TexImage2D")
}

func (d *Device) TexSubImage2D(t gpu.Texture, x, y, width, height int32, format, typ gpu.Enum, pixels []byte) {
	gl.BindTexture(gl.TEXTURE_2D, uint32(t))
	gl.PixelStorei(gl.UNPACK_ALIGNMENT, 1)
	gl.TexSubImage2D(gl.TEXTURE_2D, 0, x, y, width, height, uint32(format), uint32(typ), ptr(pixels))
	d.check("TexSubImage2D")
}

func (d *Device) BindTexture(unit uint32, t gpu.Texture, s gpu.Sampler) {
	gl.ActiveTexture(gl.TEXTURE0 + unit)
	gl.BindTexture(gl.TEXTURE_2D, uint32(t))
	gl.BindSampler(unit, uint32(s))
	d.check("BindTexture")
}

func (d *Device) NewSampler() gpu.Sampler {
	var s uint32
	gl.GenSamplers(1, &s)
	d.check("GenSamplers")
	return gpu.Sampler(s)
}

func (d *Device) DeleteSamplers(samplers ...gpu.Sampler) {
	if len(samplers) == 0 {
		return
	}
	gl.DeleteSamplers(int32(len(samplers)), (*uint32)(unsafe.Pointer(&samplers[0])))
	d.check("DeleteSamplers")
}

func (d *Device) SamplerParameter(s gpu.Sampler, pname gpu.Enum, value int32) {
	gl.SamplerParameteri(uint32(s), uint32(pname), value)
	d.check("SamplerParameteri")
}

func (d *Device) NewProgram(vertexSrc, fragmentSrc string) (gpu.Program, error) {
	p, err := compileProgram(vertexSrc, fragmentSrc)
	d.check("NewProgram")
	return gpu.Program(p), err
}

func (d *Device) DeleteProgram(p gpu.Program) {
	gl.DeleteProgram(uint32(p))
	d.check("DeleteProgram")
}

func (d *Device) UseProgram(p gpu.Program) {
	gl.UseProgram(uint32(p))
	d.check("UseProgram")
}

func (d *Device) UniformLocation(p gpu.Program, name string) (int32, bool) {
	loc := gl.GetUniformLocation(uint32(p), gl.Str(name+"\x00"))
	d.check("GetUniformLocation")
	return loc, loc != -1
}

func (d *Device) UniformBlockIndex(p gpu.Program, name string) (uint32, bool) {
	idx := gl.GetUniformBlockIndex(uint32(p), gl.Str(name+"\x00"))
	d.check("GetUniformBlockIndex")
	return idx, idx != gl.INVALID_INDEX
}

func (d *Device) UniformBlockBinding(p gpu.Program, block, binding uint32) {
	gl.UniformBlockBinding(uint32(p), block, binding)
	d.check("UniformBlockBinding")
}

func (d *Device) Uniform1i(loc int32, v int32) {
	gl.Uniform1i(loc, v)
	d.check("Uniform1i")
}

func (d *Device) UniformMatrix4fv(loc int32, m *[16]float32) {
	gl.UniformMatrix4fv(loc, 1, false, &m[0])
	d.check("UniformMatrix4fv")
}

func (d *Device) Enable(capability gpu.Enum) {
	gl.Enable(uint32(capability))
	d.check("Enable")
}

func (d *Device) Disable(capability gpu.Enum) {
	gl.Disable(uint32(capability))
	d.check("Disable")
}

func (d *Device) Viewport(x, y, width, height int32) {
	gl.Viewport(x, y, width, height)
	d.check("Viewport")
}

func (d *Device) ClearColor(r, g, b, a float32) {
	gl.ClearColor(r, g, b, a)
	d.check("ClearColor")
}

func (d *Device) ClearDepth(depth float32) {
	gl.ClearDepth(float64(depth))
	d.check("ClearDepth")
}

func (d *Device) Clear(mask gpu.Enum) {
	gl.Clear(uint32(mask))
	d.check("Clear")
}

func (d *Device) DepthFunc(fn gpu.Enum) {
	gl.DepthFunc(uint32(fn))
	d.check("DepthFunc")
}

func (d *Device) BlendFunc(src, dst gpu.Enum) {
	gl.BlendFunc(uint32(src), uint32(dst))
	d.check("BlendFunc")
}

func (d *Device) FrontFace(mode gpu.Enum) {
	gl.FrontFace(uint32(mode))
	d.check("FrontFace")
}

func (d *Device) DrawElementsInstanced(mode gpu.Enum, count int32, typ gpu.Enum, offset int, instances int32) {
	gl.DrawElementsInstanced(uint32(mode), count, uint32(typ), gl.PtrOffset(offset), instances)
	d.check("DrawElementsInstanced")
}

func compileProgram(vertexSrc, fragmentSrc string) (uint32, error) {
	vertexShader, err := compileShader(vertexSrc, gl.VERTEX_SHADER)
	if err != nil {
		return 0, fmt.Errorf("vertex shader: %w", err)
	}
	fragmentShader, err := compileShader(fragmentSrc, gl.FRAGMENT_SHADER)
	if err != nil {
		gl.DeleteShader(vertexShader)
		return 0, fmt.Errorf("fragment shader: %w", err)
	}

	program := gl.CreateProgram()
	gl.AttachShader(program, vertexShader)
	gl.AttachShader(program, fragmentShader)
	gl.LinkProgram(program)
	gl.DeleteShader(vertexShader)
	gl.DeleteShader(fragmentShader)

	var status int32
	gl.GetProgramiv(program, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetProgramiv(program, gl.INFO_LOG_LENGTH, &logLength)

		log := strings.Repeat("\x00", int(logLength+1))
		gl.GetProgramInfoLog(program, logLength, nil, gl.Str(log))
		gl.DeleteProgram(program)

		return 0, fmt.Errorf("failed to link program: %v", strings.TrimRight(log, "\x00"))
	}
	return program, nil
}

func compileShader(source string, shaderType uint32) (uint32, error) {
	shader := gl.CreateShader(shaderType)
	csources, free := gl.Strs(source + "\x00")
	gl.ShaderSource(shader, 1, csources, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLength)

		log := strings.Repeat("\x00", int(logLength+1))
		gl.GetShaderInfoLog(shader, logLength, nil, gl.Str(log))
		gl.DeleteShader(shader)

		return 0, fmt.Errorf("failed to compile shader: %v", strings.TrimRight(log, "\x00"))
	}
	return shader, nil
}
