package scene

import (
	"ship-renderer/internal/graphics/drawcalls"
	"ship-renderer/internal/graphics/gpu"
	"ship-renderer/internal/graphics/shader"

	"github.com/pkg/errors"
	"github.com/qmuntal/gltf"
	"go.uber.org/zap"
)

// textureSet holds the GL objects shared by every material of a document.
type textureSet struct {
	images   []gpu.Texture // zero for images no material samples
	samplers []gpu.Sampler
	fallback gpu.Sampler
	white    gpu.Texture
	normal   gpu.Texture
	black    gpu.Texture
}

func samplerFilters(s *gltf.Sampler) (minFilter, magFilter gpu.Enum) {
	switch s.MinFilter {
	case gltf.MinNearest:
		minFilter = gpu.Nearest
	case gltf.MinLinear:
		minFilter = gpu.Linear
	case gltf.MinNearestMipMapNearest:
		minFilter = gpu.NearestMipmapNearest
	case gltf.MinLinearMipMapNearest:
		minFilter = gpu.LinearMipmapNearest
	case gltf.MinNearestMipMapLinear:
		minFilter = gpu.NearestMipmapLinear
	default:
		minFilter = gpu.LinearMipmapLinear
	}
	magFilter = gpu.Linear
	if s.MagFilter == gltf.MagNearest {
		magFilter = gpu.Nearest
	}
	return minFilter, magFilter
}

func wrapMode(w gltf.WrappingMode) gpu.Enum {
	switch w {
	case gltf.WrapClampToEdge:
		return gpu.ClampToEdge
	case gltf.WrapMirroredRepeat:
		return gpu.MirroredRepeat
	}
	return gpu.Repeat
}

func (l *loader) newSampler(minFilter, magFilter, wrapS, wrapT gpu.Enum) gpu.Sampler {
	s := l.dev.NewSampler()
	l.dev.SamplerParameter(s, gpu.TextureMinFilter, int32(minFilter))
	l.dev.SamplerParameter(s, gpu.TextureMagFilter, int32(magFilter))
	l.dev.SamplerParameter(s, gpu.TextureWrapS, int32(wrapS))
	l.dev.SamplerParameter(s, gpu.TextureWrapT, int32(wrapT))
	l.g.samplers = append(l.g.samplers, s)
	return s
}

func (l *loader) newPlaceholder(rgb [3]byte) gpu.Texture {
	t := placeholder(l.dev, rgb)
	l.g.textures = append(l.g.textures, t)
	return t
}

// textureImage returns the image sampled by texture i.
func (l *loader) textureImage(i uint32) (int, error) {
	if int(i) >= len(l.doc.Textures) {
		return 0, errors.Errorf("texture %d out of range", i)
	}
	t := l.doc.Textures[i]
	if t.Source == nil {
		return 0, errors.Wrapf(ErrUnsupported, "texture %d without source", i)
	}
	if int(*t.Source) >= len(l.doc.Images) {
		return 0, errors.Errorf("texture %d: image %d out of range", i, *t.Source)
	}
	return int(*t.Source), nil
}

// colorSpaces infers the color space of each image from the material slots
// sampling it. Color slots are sRGB and data slots linear.
func (l *loader) colorSpaces() ([]colorSpace, error) {
	spaces := make([]colorSpace, len(l.doc.Images))
	mark := func(tex *uint32, space colorSpace) error {
		if tex == nil {
			return nil
		}
		img, err := l.textureImage(*tex)
		if err != nil {
			return err
		}
		if spaces[img] != unused && spaces[img] != space {
			return errors.Errorf("image %d is sampled as both sRGB and linear", img)
		}
		spaces[img] = space
		return nil
	}

	for i, m := range l.doc.Materials {
		var err error
		if pbr := m.PBRMetallicRoughness; pbr != nil {
			if pbr.BaseColorTexture != nil {
				err = firstErr(err, mark(&pbr.BaseColorTexture.Index, srgb))
			}
			if pbr.MetallicRoughnessTexture != nil {
				err = firstErr(err, mark(&pbr.MetallicRoughnessTexture.Index, linear))
			}
		}
		if m.NormalTexture != nil {
			err = firstErr(err, mark(m.NormalTexture.Index, linear))
		}
		if m.OcclusionTexture != nil {
			err = firstErr(err, mark(m.OcclusionTexture.Index, linear))
		}
		if m.EmissiveTexture != nil {
			err = firstErr(err, mark(&m.EmissiveTexture.Index, srgb))
		}
		if err != nil {
			return nil, errors.Wrapf(err, "material %d", i)
		}
	}
	return spaces, nil
}

func firstErr(a, b error) error {
	if a != nil {
		return a
	}
	return b
}

func (l *loader) imageData(i int) ([]byte, error) {
	img := l.doc.Images[i]
	if img.URI != "" {
		return l.resource(img.URI)
	}
	if img.BufferView == nil {
		return nil, errors.New("image has neither uri nor bufferView")
	}
	bv, err := l.bufferView(*img.BufferView)
	if err != nil {
		return nil, err
	}
	return l.buffers[bv.Buffer][bv.ByteOffset : bv.ByteOffset+bv.ByteLength], nil
}

func (l *loader) loadTextures() (*textureSet, error) {
	ts := &textureSet{
		white:  l.newPlaceholder(whitePixel),
		normal: l.newPlaceholder(normalPixel),
		black:  l.newPlaceholder(blackPixel),
	}

	spaces, err := l.colorSpaces()
	if err != nil {
		return nil, err
	}
	var jobs []decodeJob
	for i, space := range spaces {
		if space == unused {
			continue
		}
		data, err := l.imageData(i)
		if err != nil {
			return nil, errors.Wrapf(err, "image %d", i)
		}
		jobs = append(jobs, decodeJob{index: i, data: data})
	}
	decoded, err := decodeImages(jobs, len(l.doc.Images))
	if err != nil {
		return nil, err
	}

	ts.images = make([]gpu.Texture, len(l.doc.Images))
	for i, space := range spaces {
		if space == unused {
			continue
		}
		img := decoded[i]
		t := l.dev.NewTexture()
		l.g.textures = append(l.g.textures, t)
		uploadImage(l.dev, t, img, space)
		ts.images[i] = t
		l.log.Debug("image uploaded",
			zap.Int("image", i),
			zap.Stringer("space", space),
			zap.Int("width", img.Rect.Dx()),
			zap.Int("height", img.Rect.Dy()))
	}

	for _, s := range l.doc.Samplers {
		minFilter, magFilter := samplerFilters(s)
		ts.samplers = append(ts.samplers, l.newSampler(minFilter, magFilter, wrapMode(s.WrapS), wrapMode(s.WrapT)))
	}
	ts.fallback = l.newSampler(gpu.LinearMipmapLinear, gpu.Linear, gpu.Repeat, gpu.Repeat)
	return ts, nil
}

// slot binds texture info tex to unit, or the placeholder when tex is nil.
func (l *loader) slot(ts *textureSet, unit uint32, tex *uint32, texCoord uint32, placeholder gpu.Texture) (drawcalls.TextureSlot, error) {
	s := drawcalls.TextureSlot{Bound: true, Unit: unit, Texture: placeholder, Sampler: ts.fallback}
	if tex == nil {
		return s, nil
	}
	if texCoord != 0 {
		return s, errors.Wrapf(ErrUnsupported, "texCoord %d", texCoord)
	}
	img, err := l.textureImage(*tex)
	if err != nil {
		return s, err
	}
	s.Texture = ts.images[img]
	if smp := l.doc.Textures[*tex].Sampler; smp != nil {
		if int(*smp) >= len(ts.samplers) {
			return s, errors.Errorf("texture %d: sampler %d out of range", *tex, *smp)
		}
		s.Sampler = ts.samplers[*smp]
	}
	return s, nil
}

func (l *loader) loadMaterials() error {
	ts, err := l.loadTextures()
	if err != nil {
		return err
	}
	l.textures = ts

	for i, m := range l.doc.Materials {
		mat, err := l.material(ts, m)
		if err != nil {
			return errors.Wrapf(err, "material %d", i)
		}
		l.g.Materials = append(l.g.Materials, mat)
	}
	return nil
}

func (l *loader) material(ts *textureSet, m *gltf.Material) (Material, error) {
	block := shader.DefaultMaterial()
	var u drawcalls.Uniforms
	var err error
	set := func(unit uint32, tex *uint32, texCoord uint32, fallback gpu.Texture) {
		if err != nil {
			return
		}
		u.Textures[unit], err = l.slot(ts, unit, tex, texCoord, fallback)
	}
	info := func(t *gltf.TextureInfo) (*uint32, uint32) {
		if t == nil {
			return nil, 0
		}
		return &t.Index, t.TexCoord
	}

	if pbr := m.PBRMetallicRoughness; pbr != nil {
		if pbr.BaseColorFactor != nil {
			block.BaseColorFactor = *pbr.BaseColorFactor
		}
		if pbr.MetallicFactor != nil {
			block.MetallicFactor = *pbr.MetallicFactor
		}
		if pbr.RoughnessFactor != nil {
			block.RoughnessFactor = *pbr.RoughnessFactor
		}
		tex, tc := info(pbr.BaseColorTexture)
		set(shader.UnitBaseColor, tex, tc, ts.white)
		tex, tc = info(pbr.MetallicRoughnessTexture)
		set(shader.UnitMetallicRoughness, tex, tc, ts.white)
	} else {
		set(shader.UnitBaseColor, nil, 0, ts.white)
		set(shader.UnitMetallicRoughness, nil, 0, ts.white)
	}

	if n := m.NormalTexture; n != nil {
		if n.Scale != nil {
			block.NormalScale = *n.Scale
		}
		set(shader.UnitNormal, n.Index, n.TexCoord, ts.normal)
	} else {
		set(shader.UnitNormal, nil, 0, ts.normal)
	}
	if o := m.OcclusionTexture; o != nil {
		if o.Strength != nil {
			block.OcclusionStrength = *o.Strength
		}
		set(shader.UnitOcclusion, o.Index, o.TexCoord, ts.white)
	} else {
		set(shader.UnitOcclusion, nil, 0, ts.white)
	}

	emissive := ts.black
	if f := m.EmissiveFactor; f != ([3]float32{}) {
		block.EmissiveFactor = [4]float32{f[0], f[1], f[2], 1}
		// a factor without a texture emits the factor itself
		emissive = ts.white
	}
	tex, tc := info(m.EmissiveTexture)
	set(shader.UnitEmissive, tex, tc, emissive)
	if err != nil {
		return Material{}, err
	}

	l.g.uniforms.Align(l.dev.UniformBufferOffsetAlignment())
	data := gpu.ValueBytes(&block)
	buf, off := l.g.uniforms.Allocate(data)
	u.UBOs[shader.BlockMaterial] = drawcalls.UBOSlot{
		Bound: true, Index: shader.BlockMaterial, Buffer: buf, Offset: off, Size: len(data),
	}
	return Material{Name: m.Name, Uniforms: u}, nil
}

// defaultMaterial returns the index of the glTF default material, creating
// it on first use.
func (l *loader) defaultMaterial() int {
	if l.fallbackMaterial >= 0 {
		return l.fallbackMaterial
	}
	mat, _ := l.material(l.textures, &gltf.Material{Name: "default"})
	l.g.Materials = append(l.g.Materials, mat)
	l.fallbackMaterial = len(l.g.Materials) - 1
	return l.fallbackMaterial
}
