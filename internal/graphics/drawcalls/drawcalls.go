// Package drawcalls batches mesh submissions into instanced draws.
//
// Submissions are grouped first by the GPU state they need bound (Uniforms)
// and then by the geometry they draw (DrawCall). Every (Uniforms, DrawCall)
// pair becomes one instanced draw whose per-instance transforms are staged in
// a transient arena at draw time.
package drawcalls

import (
	"ship-renderer/internal/graphics/arena"
	"ship-renderer/internal/graphics/gpu"
	"ship-renderer/internal/graphics/shader"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
)

// TextureSlot binds Texture and Sampler to texture unit Unit.
type TextureSlot struct {
	Bound   bool
	Unit    uint32
	Texture gpu.Texture
	Sampler gpu.Sampler
}

// UBOSlot binds the byte range [Offset, Offset+Size) of Buffer to uniform
// block binding Index.
type UBOSlot struct {
	Bound  bool
	Index  uint32
	Buffer gpu.Buffer
	Offset int
	Size   int
}

// Uniforms is the material state of a group. It is comparable and used as a
// map key, so two materials with identical bindings share one group.
type Uniforms struct {
	Textures [shader.TextureUnits]TextureSlot
	UBOs     [shader.UniformBlocks]UBOSlot
}

// DrawCall describes the geometry of one primitive.
type DrawCall struct {
	VAO         gpu.VertexArray
	Mode        gpu.Enum
	IndexBuffer gpu.Buffer
	IndexType   gpu.Enum
	IndexOffset int
	IndexCount  int32
	// DefaultColor is set when the primitive has no vertex colors. The
	// attribute at DefaultColorLoc then reads (1, 1, 1, 1) instead of GL's
	// (0, 0, 0, 1); constant attribute values are not part of VAO state so
	// this has to be applied per draw.
	DefaultColor    bool
	DefaultColorLoc uint32
	FrontFace       gpu.Enum
}

// InstanceAttribs are the attribute locations of the per-instance matrices.
type InstanceAttribs struct {
	Model    [4]uint32
	Texcoord [4]uint32
}

// DefaultAttribs returns the locations used by the mesh shader.
func DefaultAttribs() InstanceAttribs {
	return InstanceAttribs{
		Model:    shader.AttrModelColumns,
		Texcoord: shader.AttrTexcoordColumns,
	}
}

type instances struct {
	transforms []mgl32.Mat4
	// texcoords is either empty or as long as transforms.
	texcoords []mgl32.Mat4
}

// Stats describes the last Draw.
type Stats struct {
	Groups        int
	DrawCalls     int
	Instances     int
	ArenaBytes    int
	Lights        int
	DroppedLights int
}

// Batches accumulates one frame of submissions. Call Draw once per frame and
// Clear before the next.
type Batches struct {
	dev   gpu.Device
	log   *zap.Logger
	draws map[Uniforms]map[DrawCall]*instances
	temp  *arena.Buffer

	lights     shader.Lights
	lightCount int
	dropped    int
}

func New(dev gpu.Device, log *zap.Logger) *Batches {
	return &Batches{
		dev:   dev,
		log:   log,
		draws: make(map[Uniforms]map[DrawCall]*instances),
		temp:  arena.New(dev, gpu.ArrayBuffer, gpu.StreamDraw),
	}
}

func (b *Batches) batch(u Uniforms, dc DrawCall) *instances {
	group, ok := b.draws[u]
	if !ok {
		group = make(map[DrawCall]*instances)
		b.draws[u] = group
	}
	inst, ok := group[dc]
	if !ok {
		inst = &instances{}
		group[dc] = inst
	}
	return inst
}

// Add queues one instance of dc drawn with u at transform.
func (b *Batches) Add(u Uniforms, dc DrawCall, transform mgl32.Mat4) {
	inst := b.batch(u, dc)
	inst.transforms = append(inst.transforms, transform)
	if len(inst.texcoords) > 0 {
		inst.texcoords = append(inst.texcoords, mgl32.Ident4())
	}
}

// AddTexcoord is Add with a per-instance texture coordinate transform.
// Instances of the same batch queued without one use the identity.
func (b *Batches) AddTexcoord(u Uniforms, dc DrawCall, transform, texcoord mgl32.Mat4) {
	inst := b.batch(u, dc)
	for len(inst.texcoords) < len(inst.transforms) {
		inst.texcoords = append(inst.texcoords, mgl32.Ident4())
	}
	inst.transforms = append(inst.transforms, transform)
	inst.texcoords = append(inst.texcoords, texcoord)
}

// AddLit is Add that also merges lights into the frame light block.
// lightsTransform places the lights, which need not share the instance's
// transform (a whole scene's lights submitted with one of its meshes). lights
// may be nil.
func (b *Batches) AddLit(u Uniforms, dc DrawCall, transform mgl32.Mat4, lights *shader.Lights, lightsTransform mgl32.Mat4) {
	b.Add(u, dc, transform)
	if lights != nil {
		b.AddLights(lights, lightsTransform)
	}
}

// AddLights transforms each active light by transform and appends it to the
// frame light block unless an identical light is already there. Lights past
// shader.MaxLights are dropped.
func (b *Batches) AddLights(lights *shader.Lights, transform mgl32.Mat4) {
	for i := 0; i < shader.MaxLights; i++ {
		if lights.ColorAndKind[i][3] == shader.LightNone {
			return
		}
		p := lights.Position[i]
		pos := transform.Mul4x1(mgl32.Vec4{p[0], p[1], p[2], 1})
		d := lights.Direction[i]
		dir := transform.Mul4x1(mgl32.Vec4{d[0], d[1], d[2], 0}).Vec3()
		if dir.Len() > 0 {
			dir = dir.Normalize()
		}

		rec := lightRecord{
			colorAndKind:    lights.ColorAndKind[i],
			intensityParams: lights.IntensityParams[i],
			position:        [4]float32{pos[0], pos[1], pos[2], 1},
			direction:       [4]float32{dir[0], dir[1], dir[2], 0},
		}
		if b.hasLight(rec) {
			continue
		}
		if b.lightCount == shader.MaxLights {
			b.dropped++
			b.log.Debug("light block full, dropping light",
				zap.Int("capacity", shader.MaxLights),
				zap.Float32("kind", rec.colorAndKind[3]))
			continue
		}
		n := b.lightCount
		b.lights.ColorAndKind[n] = rec.colorAndKind
		b.lights.IntensityParams[n] = rec.intensityParams
		b.lights.Position[n] = rec.position
		b.lights.Direction[n] = rec.direction
		b.lightCount++
	}
}

type lightRecord struct {
	colorAndKind, intensityParams, position, direction [4]float32
}

// hasLight compares with exact float equality. Animated lights that drift by
// an ulp between submissions are counted twice.
func (b *Batches) hasLight(rec lightRecord) bool {
	for i := 0; i < b.lightCount; i++ {
		if b.lights.ColorAndKind[i] == rec.colorAndKind &&
			b.lights.Position[i] == rec.position &&
			b.lights.IntensityParams[i] == rec.intensityParams &&
			b.lights.Direction[i] == rec.direction {
			return true
		}
	}
	return false
}

// Lights returns the accumulated frame light block.
func (b *Batches) Lights() *shader.Lights { return &b.lights }

// Draw issues one instanced draw per non-empty batch. Groups that leave the
// lights block unbound get the frame light block.
func (b *Batches) Draw(attribs InstanceAttribs) Stats {
	var stats Stats
	var shared UBOSlot
	sharedUploaded := false

	for u, group := range b.draws {
		if isEmpty(group) {
			continue
		}
		stats.Groups++

		for _, slot := range u.Textures {
			if slot.Bound {
				b.dev.BindTexture(slot.Unit, slot.Texture, slot.Sampler)
			}
		}
		for _, slot := range u.UBOs {
			if slot.Bound {
				b.dev.BindBufferRange(gpu.UniformBuffer, slot.Index, slot.Buffer, slot.Offset, slot.Size)
			}
		}
		if !u.UBOs[shader.BlockLights].Bound {
			if !sharedUploaded {
				shared = b.uploadLights()
				sharedUploaded = true
			}
			b.dev.BindBufferRange(gpu.UniformBuffer, shared.Index, shared.Buffer, shared.Offset, shared.Size)
		}

		for dc, inst := range group {
			if len(inst.transforms) == 0 {
				continue
			}
			b.drawBatch(dc, inst, attribs)
			stats.DrawCalls++
			stats.Instances += len(inst.transforms)
		}
	}

	stats.ArenaBytes = b.temp.Len()
	stats.Lights = b.lightCount
	stats.DroppedLights = b.dropped
	return stats
}

func isEmpty(group map[DrawCall]*instances) bool {
	for _, inst := range group {
		if len(inst.transforms) > 0 {
			return false
		}
	}
	return true
}

func (b *Batches) uploadLights() UBOSlot {
	b.temp.Align(b.dev.UniformBufferOffsetAlignment())
	data := gpu.ValueBytes(&b.lights)
	buf, off := b.temp.Allocate(data)
	return UBOSlot{Bound: true, Index: shader.BlockLights, Buffer: buf, Offset: off, Size: len(data)}
}

const mat4Size = 16 * 4

func (b *Batches) drawBatch(dc DrawCall, inst *instances, attribs InstanceAttribs) {
	b.dev.BindVertexArray(dc.VAO)

	buf, off := b.temp.Allocate(gpu.Bytes(inst.transforms))
	b.instanceMatrix(attribs.Model, buf, off)

	if len(inst.texcoords) > 0 {
		buf, off := b.temp.Allocate(gpu.Bytes(inst.texcoords))
		b.instanceMatrix(attribs.Texcoord, buf, off)
	} else {
		for i, loc := range attribs.Texcoord {
			b.dev.DisableVertexAttribArray(loc)
			var col [4]float32
			col[i] = 1
			b.dev.VertexAttrib4f(loc, col[0], col[1], col[2], col[3])
		}
	}

	if dc.DefaultColor {
		b.dev.VertexAttrib4f(dc.DefaultColorLoc, 1, 1, 1, 1)
	}
	b.dev.FrontFace(dc.FrontFace)
	b.dev.BindBuffer(gpu.ElementArrayBuffer, dc.IndexBuffer)
	b.dev.DrawElementsInstanced(dc.Mode, dc.IndexCount, dc.IndexType, dc.IndexOffset, int32(len(inst.transforms)))
}

func (b *Batches) instanceMatrix(locs [4]uint32, buf gpu.Buffer, off int) {
	for i, loc := range locs {
		b.dev.VertexAttribPointer(loc, buf, 4, gpu.Float, false, mat4Size, off+i*16)
		b.dev.VertexAttribDivisor(loc, 1)
	}
}

// Clear empties every batch and the light block, keeping their storage.
func (b *Batches) Clear() {
	for _, group := range b.draws {
		for _, inst := range group {
			inst.transforms = inst.transforms[:0]
			inst.texcoords = inst.texcoords[:0]
		}
	}
	b.temp.Clear()
	for i := 0; i < b.lightCount; i++ {
		b.lights.ColorAndKind[i][3] = shader.LightNone
	}
	b.lightCount = 0
	b.dropped = 0
}

// Release frees the staging arena.
func (b *Batches) Release() {
	b.temp.Release()
}
