package text

import (
	"fmt"

	"ship-renderer/internal/graphics/arena"
	"ship-renderer/internal/graphics/drawcalls"
	"ship-renderer/internal/graphics/glyphs"
	"ship-renderer/internal/graphics/gpu"
	"ship-renderer/internal/graphics/shader"

	"github.com/go-gl/mathgl/mgl32"
	"golang.org/x/image/math/fixed"
)

// Renderer draws text through the mesh shader. Each glyph is one instance of
// a shared unit quad whose texcoord transform selects the glyph's atlas rect.
type Renderer struct {
	dev   gpu.Device
	faces *glyphs.FaceSet
	atlas *glyphs.Atlas

	uniforms drawcalls.Uniforms
	quad     drawcalls.DrawCall

	vao      gpu.VertexArray
	buffers  []gpu.Buffer
	textures []gpu.Texture
	sampler  gpu.Sampler
}

// Unit quad, counter-clockwise with y up. Texcoords are flipped because the
// atlas stores glyph rows top down.
var (
	quadPositions = []float32{
		0, 0, 0,
		1, 0, 0,
		0, 1, 0,
		1, 1, 0,
	}
	quadTexcoords = []float32{
		0, 1,
		1, 1,
		0, 0,
		1, 0,
	}
	quadIndices = []uint16{0, 1, 2, 2, 1, 3}
)

// NewRenderer creates the glyph quad, the atlas and the glyph material.
func NewRenderer(dev gpu.Device, faces *glyphs.FaceSet, atlasSize int) *Renderer {
	r := &Renderer{dev: dev, faces: faces, atlas: glyphs.NewAtlas(dev, atlasSize)}

	vertices := arena.New(dev, gpu.ArrayBuffer, gpu.StaticDraw)
	indices := arena.New(dev, gpu.ElementArrayBuffer, gpu.StaticDraw)
	r.buffers = []gpu.Buffer{vertices.Handle(true), indices.Handle(true)}

	posBuf, posOff := vertices.Allocate(gpu.Bytes(quadPositions))
	texBuf, texOff := vertices.Allocate(gpu.Bytes(quadTexcoords))
	idxBuf, idxOff := indices.Allocate(gpu.Bytes(quadIndices))

	r.vao = dev.NewVertexArray()
	dev.BindVertexArray(r.vao)
	dev.VertexAttribPointer(shader.AttrPosition, posBuf, 3, gpu.Float, false, 0, posOff)
	dev.VertexAttribPointer(shader.AttrTexcoord0, texBuf, 2, gpu.Float, false, 0, texOff)
	dev.BindBuffer(gpu.ElementArrayBuffer, idxBuf)
	dev.BindVertexArray(0)

	r.quad = drawcalls.DrawCall{
		VAO:             r.vao,
		Mode:            gpu.Triangles,
		IndexBuffer:     idxBuf,
		IndexType:       gpu.UnsignedShort,
		IndexOffset:     idxOff,
		IndexCount:      int32(len(quadIndices)),
		DefaultColor:    true,
		DefaultColorLoc: shader.AttrColor0,
		FrontFace:       gpu.CCW,
	}

	r.sampler = dev.NewSampler()
	dev.SamplerParameter(r.sampler, gpu.TextureMinFilter, int32(gpu.Linear))
	dev.SamplerParameter(r.sampler, gpu.TextureMagFilter, int32(gpu.Linear))
	white := pixelTexture(dev, [3]byte{0xFF, 0xFF, 0xFF})
	normal := pixelTexture(dev, [3]byte{0x7F, 0x7F, 0xFF})
	r.textures = []gpu.Texture{white, normal}

	glyphTex, glyphSampler := r.atlas.Texture(), r.atlas.Sampler()
	r.uniforms.Textures = [shader.TextureUnits]drawcalls.TextureSlot{
		{Bound: true, Unit: shader.UnitBaseColor, Texture: glyphTex, Sampler: glyphSampler},
		{Bound: true, Unit: shader.UnitMetallicRoughness, Texture: white, Sampler: r.sampler},
		{Bound: true, Unit: shader.UnitNormal, Texture: normal, Sampler: r.sampler},
		{Bound: true, Unit: shader.UnitOcclusion, Texture: white, Sampler: r.sampler},
		{Bound: true, Unit: shader.UnitEmissive, Texture: glyphTex, Sampler: glyphSampler},
	}

	// Glyphs are unlit: black base color, full emission from the atlas.
	material := shader.Material{
		BaseColorFactor:   [4]float32{0, 0, 0, 1},
		RoughnessFactor:   1,
		NormalScale:       1,
		OcclusionStrength: 1,
		EmissiveFactor:    [4]float32{1, 1, 1, 1},
	}
	var lights shader.Lights
	align := dev.UniformBufferOffsetAlignment()
	vertices.Align(align)
	matBytes := gpu.ValueBytes(&material)
	matBuf, matOff := vertices.Allocate(matBytes)
	vertices.Align(align)
	lightBytes := gpu.ValueBytes(&lights)
	lightBuf, lightOff := vertices.Allocate(lightBytes)
	r.uniforms.UBOs = [shader.UniformBlocks]drawcalls.UBOSlot{
		{Bound: true, Index: shader.BlockMaterial, Buffer: matBuf, Offset: matOff, Size: len(matBytes)},
		{Bound: true, Index: shader.BlockLights, Buffer: lightBuf, Offset: lightOff, Size: len(lightBytes)},
	}
	return r
}

func pixelTexture(dev gpu.Device, rgb [3]byte) gpu.Texture {
	t := dev.NewTexture()
	dev.TexImage2D(t, 0, gpu.RGB, 1, 1, gpu.RGB, gpu.UnsignedByte, rgb[:])
	return t
}

// Atlas exposes the glyph cache for diagnostics.
func (r *Renderer) Atlas() *glyphs.Atlas { return r.atlas }

// DrawText queues s at pos (pixels, y up) with glyphs px pixels tall. depth is
// the z of every quad. maxWidth > 0 enables word wrapping.
func (r *Renderer) DrawText(b *drawcalls.Batches, s string, pos mgl32.Vec2, depth, px float32, align Align, maxWidth float32) error {
	size := fixed.Int26_6(px * 64)
	face, err := r.faces.Face(0, size)
	if err != nil {
		return err
	}
	for _, p := range Layout(face, s, pos, align, maxWidth) {
		g, err := r.atlas.Texcoords(glyphs.Key{Font: 0, Size: size, Rune: p.Rune}, r.faces)
		if err != nil {
			return fmt.Errorf("draw text: %w", err)
		}
		if g.Empty() {
			continue
		}
		w, h := float32(g.Bounds.Dx()), float32(g.Bounds.Dy())
		x := p.Pen.X() + float32(g.Bounds.Min.X)
		y := p.Pen.Y() - float32(g.Bounds.Max.Y)
		transform := mgl32.Translate3D(x, y, depth).Mul4(mgl32.Scale3D(w, h, 1))
		texcoord := mgl32.Translate3D(g.Rect[0], g.Rect[1], 0).Mul4(mgl32.Scale3D(g.Rect[2], g.Rect[3], 1))
		b.AddTexcoord(r.uniforms, r.quad, transform, texcoord)
	}
	return nil
}

func (r *Renderer) Release() {
	r.dev.DeleteVertexArrays(r.vao)
	r.dev.DeleteBuffers(r.buffers...)
	r.dev.DeleteTextures(r.textures...)
	r.dev.DeleteSamplers(r.sampler)
	r.atlas.Release()
}
