package gpu

// Enum is a GL enumerant.
type Enum uint32

// Buffer targets and usages.
const (
	ArrayBuffer        Enum = 0x8892
	ElementArrayBuffer Enum = 0x8893
	UniformBuffer      Enum = 0x8A11

	StreamDraw  Enum = 0x88E0
	StaticDraw  Enum = 0x88E4
	DynamicDraw Enum = 0x88E8
)

// Component types.
const (
	Byte          Enum = 0x1400
	UnsignedByte  Enum = 0x1401
	Short         Enum = 0x1402
	UnsignedShort Enum = 0x1403
	UnsignedInt   Enum = 0x1405
	Float         Enum = 0x1406
)

// Primitive modes.
const (
	Points        Enum = 0x0000
	Lines         Enum = 0x0001
	LineLoop      Enum = 0x0002
	LineStrip     Enum = 0x0003
	Triangles     Enum = 0x0004
	TriangleStrip Enum = 0x0005
	TriangleFan   Enum = 0x0006
)

// Winding.
const (
	CW  Enum = 0x0900
	CCW Enum = 0x0901
)

// Pixel formats.
const (
	RGB         Enum = 0x1907
	RGBA        Enum = 0x1908
	SRGB8       Enum = 0x8C41
	SRGB8Alpha8 Enum = 0x8C43
)

// Sampler parameters and values.
const (
	TextureMagFilter Enum = 0x2800
	TextureMinFilter Enum = 0x2801
	TextureWrapS     Enum = 0x2802
	TextureWrapT     Enum = 0x2803

	Nearest              Enum = 0x2600
	Linear               Enum = 0x2601
	NearestMipmapNearest Enum = 0x2700
	LinearMipmapNearest  Enum = 0x2701
	NearestMipmapLinear  Enum = 0x2702
	LinearMipmapLinear   Enum = 0x2703

	Repeat         Enum = 0x2901
	ClampToEdge    Enum = 0x812F
	MirroredRepeat Enum = 0x8370
)

// Fixed-function state.
const (
	Blend     Enum = 0x0BE2
	CullFace  Enum = 0x0B44
	DepthTest Enum = 0x0B71

	Less    Enum = 0x0201
	Greater Enum = 0x0204

	SrcAlpha         Enum = 0x0302
	OneMinusSrcAlpha Enum = 0x0303

	DepthBufferBit Enum = 0x00000100
	ColorBufferBit Enum = 0x00004000
)

// SizeOf returns the byte size of a component type, or 0 if t is not one.
func SizeOf(t Enum) int {
	switch t {
	case Byte, UnsignedByte:
		return 1
	case Short, UnsignedShort:
		return 2
	case UnsignedInt, Float:
		return 4
	}
	return 0
}
