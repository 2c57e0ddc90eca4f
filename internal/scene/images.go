package scene

import (
	"bytes"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"math/bits"

	"ship-renderer/internal/graphics/gpu"

	"github.com/pkg/errors"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// Texture usage decides the color space of an image.
type colorSpace int

const (
	unused colorSpace = iota
	srgb
	linear
)

func (c colorSpace) String() string {
	switch c {
	case srgb:
		return "sRGB"
	case linear:
		return "linear"
	}
	return "unused"
}

// decodeImage decodes an encoded image into 8-bit non-premultiplied RGBA.
// Images with fewer than three color channels are rejected.
func decodeImage(data []byte) (*image.NRGBA, error) {
	src, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(err, "decode image")
	}
	if img, ok := src.(*image.NRGBA); ok && img.Rect.Min == (image.Point{}) && img.Stride == 4*img.Rect.Dx() {
		return img, nil
	}
	switch src.(type) {
	case *image.NRGBA, *image.RGBA, *image.NRGBA64, *image.RGBA64, *image.YCbCr, *image.Paletted:
	default:
		return nil, errors.Wrapf(ErrUnsupported, "%s image with pixel model %T", format, src)
	}
	b := src.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
	return dst, nil
}

// mipLevels is the number of levels down to 1x1.
func mipLevels(w, h int) int {
	n := max(w, h)
	if n < 1 {
		return 1
	}
	return bits.Len(uint(n))
}

// uploadImage fills every mip level of t. sRGB images are filtered with
// Catmull-Rom and linear ones bilinearly.
func uploadImage(dev gpu.Device, t gpu.Texture, img *image.NRGBA, space colorSpace) {
	internal := gpu.RGBA
	var scaler draw.Scaler = draw.BiLinear
	if space == srgb {
		internal = gpu.SRGB8Alpha8
		scaler = draw.CatmullRom
	}

	levels := mipLevels(img.Rect.Dx(), img.Rect.Dy())
	for level := 0; level < levels; level++ {
		w, h := img.Rect.Dx(), img.Rect.Dy()
		dev.TexImage2D(t, int32(level), internal, int32(w), int32(h), gpu.RGBA, gpu.UnsignedByte, img.Pix)
		if level == levels-1 {
			break
		}
		next := image.NewNRGBA(image.Rect(0, 0, max(w/2, 1), max(h/2, 1)))
		scaler.Scale(next, next.Rect, img, img.Rect, draw.Src, nil)
		img = next
	}
}

// placeholder creates a 1x1 texture used when a material slot is empty.
func placeholder(dev gpu.Device, rgb [3]byte) gpu.Texture {
	t := dev.NewTexture()
	dev.TexImage2D(t, 0, gpu.RGB, 1, 1, gpu.RGB, gpu.UnsignedByte, rgb[:])
	return t
}

var (
	whitePixel  = [3]byte{0xFF, 0xFF, 0xFF}
	normalPixel = [3]byte{0x7F, 0x7F, 0xFF}
	blackPixel  = [3]byte{0, 0, 0}
)
