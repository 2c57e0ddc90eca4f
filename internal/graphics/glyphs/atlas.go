// Package glyphs caches rasterized glyphs in a single RGBA texture.
package glyphs

import (
	"fmt"
	"image"

	"ship-renderer/internal/graphics/gpu"

	"github.com/go-gl/mathgl/mgl32"
	"golang.org/x/image/math/fixed"
)

// AtlasSize is the default edge length of the atlas texture.
const AtlasSize = 2048

// Key identifies one rasterization of a glyph.
type Key struct {
	Font int
	Size fixed.Int26_6
	Rune rune
}

// Rasterizer produces coverage masks for glyphs.
type Rasterizer interface {
	// Rasterize returns the coverage of k with mask.Bounds() at the origin
	// and bounds giving the mask placement relative to the pen position
	// (y down). An empty mask is valid for blank glyphs.
	Rasterize(k Key) (mask *image.Alpha, bounds image.Rectangle, advance fixed.Int26_6, err error)
}

// Glyph is a cached atlas entry.
type Glyph struct {
	// Rect is x, y, width, height in normalized texture coordinates.
	Rect    mgl32.Vec4
	Bounds  image.Rectangle
	Advance fixed.Int26_6
}

// Empty reports whether the glyph has no pixels.
func (g Glyph) Empty() bool { return g.Bounds.Empty() }

type entry struct {
	px      image.Rectangle
	bounds  image.Rectangle
	advance fixed.Int26_6
}

// Atlas owns the glyph texture. Cached rectangles never move.
type Atlas struct {
	dev     gpu.Device
	tex     gpu.Texture
	sampler gpu.Sampler
	size    int
	pack    shelf
	cache   map[Key]entry
	misses  int
}

// NewAtlas allocates a size x size texture. Untouched texels are magenta
// with zero alpha, which makes sampling outside a glyph easy to spot.
func NewAtlas(dev gpu.Device, size int) *Atlas {
	a := &Atlas{
		dev:   dev,
		tex:   dev.NewTexture(),
		size:  size,
		pack:  shelf{width: size, height: size},
		cache: make(map[Key]entry),
	}
	pixels := make([]byte, size*size*4)
	for i := 0; i < len(pixels); i += 4 {
		pixels[i] = 0xFF
		pixels[i+2] = 0xFF
	}
	dev.TexImage2D(a.tex, 0, gpu.RGBA, int32(size), int32(size), gpu.RGBA, gpu.UnsignedByte, pixels)

	a.sampler = dev.NewSampler()
	dev.SamplerParameter(a.sampler, gpu.TextureMinFilter, int32(gpu.Linear))
	dev.SamplerParameter(a.sampler, gpu.TextureMagFilter, int32(gpu.Linear))
	dev.SamplerParameter(a.sampler, gpu.TextureWrapS, int32(gpu.ClampToEdge))
	dev.SamplerParameter(a.sampler, gpu.TextureWrapT, int32(gpu.ClampToEdge))
	return a
}

func (a *Atlas) Texture() gpu.Texture { return a.tex }
func (a *Atlas) Sampler() gpu.Sampler { return a.sampler }

// Misses is the number of glyphs rasterized so far.
func (a *Atlas) Misses() int { return a.misses }

// Texcoords returns the atlas entry for k, rasterizing it with r on first use.
func (a *Atlas) Texcoords(k Key, r Rasterizer) (Glyph, error) {
	e, ok := a.cache[k]
	if !ok {
		var err error
		if e, err = a.insert(k, r); err != nil {
			return Glyph{}, err
		}
		a.cache[k] = e
	}
	s := float32(a.size)
	return Glyph{
		Rect: mgl32.Vec4{
			float32(e.px.Min.X) / s, float32(e.px.Min.Y) / s,
			float32(e.px.Dx()) / s, float32(e.px.Dy()) / s,
		},
		Bounds:  e.bounds,
		Advance: e.advance,
	}, nil
}

func (a *Atlas) insert(k Key, r Rasterizer) (entry, error) {
	a.misses++
	mask, bounds, advance, err := r.Rasterize(k)
	if err != nil {
		return entry{}, fmt.Errorf("rasterize %q: %w", k.Rune, err)
	}
	e := entry{bounds: bounds, advance: advance}
	if mask == nil || mask.Rect.Empty() {
		e.bounds = image.Rectangle{}
		return e, nil
	}

	w, h := mask.Rect.Dx(), mask.Rect.Dy()
	x, y, err := a.pack.reserve(w, h)
	if err != nil {
		return entry{}, fmt.Errorf("glyph %q (%dx%d): %w", k.Rune, w, h, err)
	}
	e.px = image.Rect(x, y, x+w, y+h)

	rgba := make([]byte, 0, w*h*4)
	for row := 0; row < h; row++ {
		line := mask.Pix[row*mask.Stride : row*mask.Stride+w]
		for _, c := range line {
			rgba = append(rgba, 0xFF, 0xFF, 0xFF, c)
		}
	}
	a.dev.TexSubImage2D(a.tex, int32(x), int32(y), int32(w), int32(h), gpu.RGBA, gpu.UnsignedByte, rgba)
	return e, nil
}

func (a *Atlas) Release() {
	a.dev.DeleteTextures(a.tex)
	a.dev.DeleteSamplers(a.sampler)
}
