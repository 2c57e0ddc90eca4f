// Package shader holds the contract between the mesh shader and the code that
// feeds it: attribute locations, texture units, uniform block bindings and
// the std140 layouts of the uniform blocks.
package shader

import (
	_ "embed"
	"fmt"

	"ship-renderer/internal/graphics/gpu"
)

// Vertex attribute locations.
const (
	AttrPosition  uint32 = 0
	AttrNormal    uint32 = 1
	AttrTangent   uint32 = 2
	AttrTexcoord0 uint32 = 3
	AttrTexcoord1 uint32 = 4
	AttrColor0    uint32 = 5
)

// Per-instance mat4 attributes, one vec4 column per location.
var (
	AttrModelColumns    = [4]uint32{6, 7, 8, 9}
	AttrTexcoordColumns = [4]uint32{10, 11, 12, 13}
)

// Texture units.
const (
	UnitBaseColor = iota
	UnitMetallicRoughness
	UnitNormal
	UnitOcclusion
	UnitEmissive
	TextureUnits
)

// Uniform block binding points.
const (
	BlockMaterial = iota
	BlockLights
	UniformBlocks
)

// MaxLights is the capacity of the Lights block.
const MaxLights = 32

// Light kinds stored in ColorAndKind[i][3]. Zero terminates the list.
const (
	LightNone        = 0
	LightDirectional = 1
	LightPoint       = 2
	LightSpot        = 3
)

// Material is the std140 layout of the Material block.
type Material struct {
	BaseColorFactor   [4]float32
	MetallicFactor    float32
	RoughnessFactor   float32
	NormalScale       float32
	OcclusionStrength float32
	EmissiveFactor    [4]float32
}

// DefaultMaterial has the glTF defaults for every factor.
func DefaultMaterial() Material {
	return Material{
		BaseColorFactor:   [4]float32{1, 1, 1, 1},
		MetallicFactor:    1,
		RoughnessFactor:   1,
		NormalScale:       1,
		OcclusionStrength: 1,
	}
}

// Lights is the std140 layout of the Lights block.
//
// ColorAndKind holds rgb and the kind in w. IntensityParams holds intensity,
// spot angle scale and spot angle offset in xyz. The first entry with kind
// LightNone ends the list; a full block has no terminator.
type Lights struct {
	ColorAndKind    [MaxLights][4]float32
	IntensityParams [MaxLights][4]float32
	Position        [MaxLights][4]float32
	Direction       [MaxLights][4]float32
}

// Count returns the number of lights before the terminator.
func (l *Lights) Count() int {
	for i := range l.ColorAndKind {
		if l.ColorAndKind[i][3] == LightNone {
			return i
		}
	}
	return MaxLights
}

//go:embed mesh.vert
var vertexSource string

//go:embed mesh.frag
var fragmentSource string

var samplerUniforms = [TextureUnits]string{
	UnitBaseColor:         "base_color_tex",
	UnitMetallicRoughness: "metallic_roughness_tex",
	UnitNormal:            "normal_tex",
	UnitOcclusion:         "occlusion_tex",
	UnitEmissive:          "emissive_tex",
}

var blockNames = [UniformBlocks]string{
	BlockMaterial: "Material",
	BlockLights:   "Lights",
}

// Program is the linked mesh program.
type Program struct {
	ID            gpu.Program
	ProjFromView  int32
	ViewFromWorld int32
}

// NewProgram compiles the mesh program and assigns its sampler units and
// uniform block bindings.
func NewProgram(dev gpu.Device) (*Program, error) {
	id, err := dev.NewProgram(vertexSource, fragmentSource)
	if err != nil {
		return nil, fmt.Errorf("mesh program: %w", err)
	}
	dev.UseProgram(id)

	p := &Program{ID: id}
	var ok bool
	if p.ProjFromView, ok = dev.UniformLocation(id, "proj_from_view"); !ok {
		dev.DeleteProgram(id)
		return nil, fmt.Errorf("mesh program: missing uniform proj_from_view")
	}
	if p.ViewFromWorld, ok = dev.UniformLocation(id, "view_from_world"); !ok {
		dev.DeleteProgram(id)
		return nil, fmt.Errorf("mesh program: missing uniform view_from_world")
	}

	// Unused samplers and blocks may be optimized out by the driver.
	for unit, name := range samplerUniforms {
		if loc, ok := dev.UniformLocation(id, name); ok {
			dev.Uniform1i(loc, int32(unit))
		}
	}
	for binding, name := range blockNames {
		if idx, ok := dev.UniformBlockIndex(id, name); ok {
			dev.UniformBlockBinding(id, idx, uint32(binding))
		}
	}
	return p, nil
}

// SetCamera uploads the projection and view matrices. The program must be
// current.
func (p *Program) SetCamera(dev gpu.Device, proj, view *[16]float32) {
	dev.UniformMatrix4fv(p.ProjFromView, proj)
	dev.UniformMatrix4fv(p.ViewFromWorld, view)
}

func (p *Program) Release(dev gpu.Device) {
	dev.DeleteProgram(p.ID)
}
