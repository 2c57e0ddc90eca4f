package glyphs

import (
	"fmt"
	"image"
	"os"
	"unicode"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

type faceKey struct {
	font int
	size fixed.Int26_6
}

// FaceSet rasterizes glyphs from a list of fonts. It keeps one face per
// (font, size) pair.
type FaceSet struct {
	fonts []*opentype.Font
	faces map[faceKey]font.Face
}

// NewFaceSet parses the given TTF/OTF files. Font index 0 is the first file;
// with no files it is the embedded Go Regular face.
func NewFaceSet(data ...[]byte) (*FaceSet, error) {
	if len(data) == 0 {
		data = [][]byte{goregular.TTF}
	}
	fs := &FaceSet{faces: make(map[faceKey]font.Face)}
	for i, b := range data {
		f, err := opentype.Parse(b)
		if err != nil {
			return nil, fmt.Errorf("parse font %d: %w", i, err)
		}
		fs.fonts = append(fs.fonts, f)
	}
	return fs, nil
}

// LoadFaceSet reads font files from disk. An empty path list falls back to
// the embedded face.
func LoadFaceSet(paths ...string) (*FaceSet, error) {
	var data [][]byte
	for _, p := range paths {
		b, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("read font: %w", err)
		}
		data = append(data, b)
	}
	return NewFaceSet(data...)
}

// Face returns the face for font index i at size pixels per em.
func (fs *FaceSet) Face(i int, size fixed.Int26_6) (font.Face, error) {
	if i < 0 || i >= len(fs.fonts) {
		return nil, fmt.Errorf("font index %d out of range [0,%d)", i, len(fs.fonts))
	}
	k := faceKey{i, size}
	if f, ok := fs.faces[k]; ok {
		return f, nil
	}
	f, err := opentype.NewFace(fs.fonts[i], &opentype.FaceOptions{
		Size:    float64(size) / 64,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("new face: %w", err)
	}
	fs.faces[k] = f
	return f, nil
}

func (fs *FaceSet) Rasterize(k Key) (*image.Alpha, image.Rectangle, fixed.Int26_6, error) {
	face, err := fs.Face(k.Font, k.Size)
	if err != nil {
		return nil, image.Rectangle{}, 0, err
	}
	dr, mask, maskp, advance, ok := face.Glyph(fixed.Point26_6{}, k.Rune)
	if !ok {
		dr, mask, maskp, advance, ok = face.Glyph(fixed.Point26_6{}, unicode.ReplacementChar)
		if !ok {
			return nil, image.Rectangle{}, 0, fmt.Errorf("no glyph for %q", k.Rune)
		}
	}
	if dr.Empty() {
		return nil, image.Rectangle{}, advance, nil
	}
	dst := image.NewAlpha(image.Rect(0, 0, dr.Dx(), dr.Dy()))
	draw.Draw(dst, dst.Bounds(), mask, maskp, draw.Src)
	return dst, dr, advance, nil
}

// Close releases the cached faces.
func (fs *FaceSet) Close() {
	for k, f := range fs.faces {
		_ = f.Close()
		delete(fs.faces, k)
	}
}
