package glyphs

import (
	"errors"
	"image"
	"testing"

	"ship-renderer/internal/graphics/gpu/gputest"

	"golang.org/x/image/math/fixed"
)

// boxRasterizer returns solid w x h boxes and counts calls.
type boxRasterizer struct {
	w, h  int
	calls int
}

func (b *boxRasterizer) Rasterize(k Key) (*image.Alpha, image.Rectangle, fixed.Int26_6, error) {
	b.calls++
	if k.Rune == ' ' {
		return nil, image.Rectangle{}, fixed.I(b.w), nil
	}
	m := image.NewAlpha(image.Rect(0, 0, b.w, b.h))
	for i := range m.Pix {
		m.Pix[i] = 0x80
	}
	return m, image.Rect(0, -b.h, b.w, 0), fixed.I(b.w + 1), nil
}

func TestShelfWrap(t *testing.T) {
	s := shelf{width: 100, height: 100}
	cases := []struct {
		w, h         int
		wantX, wantY int
	}{
		{40, 10, 0, 0},
		{40, 20, 41, 0},
		// 82 + 30 > 100: next row starts below the tallest glyph plus padding
		{30, 5, 0, 21},
		{69, 5, 31, 21},
		{1, 1, 0, 27},
	}
	for i, c := range cases {
		x, y, err := s.reserve(c.w, c.h)
		if err != nil {
			t.Fatalf("Case %d: unexpected error %v", i, err)
		}
		if x != c.wantX || y != c.wantY {
			t.Errorf("Case %d: expected (%d,%d), got (%d,%d)", i, c.wantX, c.wantY, x, y)
		}
	}
}

func TestShelfFull(t *testing.T) {
	s := shelf{width: 10, height: 10}
	if _, _, err := s.reserve(10, 10); err != nil {
		t.Fatalf("Expected an exact fit, got %v", err)
	}
	if _, _, err := s.reserve(1, 1); !errors.Is(err, ErrAtlasFull) {
		t.Errorf("Expected ErrAtlasFull, got %v", err)
	}
	s = shelf{width: 10, height: 10}
	if _, _, err := s.reserve(11, 1); !errors.Is(err, ErrAtlasFull) {
		t.Errorf("Expected ErrAtlasFull for an over-wide glyph, got %v", err)
	}
}

func TestCacheHitDoesNotRasterize(t *testing.T) {
	dev := gputest.New()
	a := NewAtlas(dev, 64)
	r := &boxRasterizer{w: 4, h: 6}
	k := Key{Font: 0, Size: fixed.I(12), Rune: 'A'}

	g1, err := a.Texcoords(k, r)
	if err != nil {
		t.Fatalf("Texcoords failed: %v", err)
	}
	g2, err := a.Texcoords(k, r)
	if err != nil {
		t.Fatalf("Texcoords failed: %v", err)
	}
	if r.calls != 1 || dev.SubImages != 1 {
		t.Errorf("Expected 1 rasterization and upload, got %d and %d", r.calls, dev.SubImages)
	}
	if g1 != g2 {
		t.Errorf("Expected identical entries, got %+v and %+v", g1, g2)
	}
	want := [4]float32{0, 0, 4.0 / 64, 6.0 / 64}
	if [4]float32(g1.Rect) != want {
		t.Errorf("Expected rect %v, got %v", want, g1.Rect)
	}

	// a different size is a different key
	if _, err := a.Texcoords(Key{Size: fixed.I(13), Rune: 'A'}, r); err != nil {
		t.Fatalf("Texcoords failed: %v", err)
	}
	if r.calls != 2 || a.Misses() != 2 {
		t.Errorf("Expected 2 rasterizations, got %d", r.calls)
	}
}

func TestUploadedPixels(t *testing.T) {
	dev := gputest.New()
	a := NewAtlas(dev, 16)
	base := dev.Images[a.Texture()][0]
	if px := base.Pixels[0:4]; px[0] != 0xFF || px[1] != 0 || px[2] != 0xFF || px[3] != 0 {
		t.Errorf("Expected transparent magenta fill, got %v", px)
	}

	r := &boxRasterizer{w: 2, h: 2}
	if _, err := a.Texcoords(Key{Rune: 'x'}, r); err != nil {
		t.Fatalf("Texcoords failed: %v", err)
	}
	base = dev.Images[a.Texture()][0]
	if px := base.Pixels[0:4]; px[0] != 0xFF || px[1] != 0xFF || px[2] != 0xFF || px[3] != 0x80 {
		t.Errorf("Expected white with coverage alpha, got %v", px)
	}
	// texel (2,0) is the padding column and stays untouched
	if px := base.Pixels[8:12]; px[1] != 0 || px[3] != 0 {
		t.Errorf("Expected padding texel untouched, got %v", px)
	}
}

func TestBlankGlyphTakesNoSpace(t *testing.T) {
	dev := gputest.New()
	a := NewAtlas(dev, 16)
	r := &boxRasterizer{w: 3, h: 3}
	g, err := a.Texcoords(Key{Rune: ' '}, r)
	if err != nil {
		t.Fatalf("Texcoords failed: %v", err)
	}
	if !g.Empty() || g.Advance != fixed.I(3) {
		t.Errorf("Expected empty glyph with advance 3, got %+v", g)
	}
	if dev.SubImages != 0 {
		t.Errorf("Expected no upload for a blank glyph, got %d", dev.SubImages)
	}
}

func TestAtlasFull(t *testing.T) {
	dev := gputest.New()
	a := NewAtlas(dev, 8)
	r := &boxRasterizer{w: 8, h: 8}
	if _, err := a.Texcoords(Key{Rune: 'a'}, r); err != nil {
		t.Fatalf("Texcoords failed: %v", err)
	}
	if _, err := a.Texcoords(Key{Rune: 'b'}, r); !errors.Is(err, ErrAtlasFull) {
		t.Errorf("Expected ErrAtlasFull, got %v", err)
	}
}

func TestFaceSetRasterize(t *testing.T) {
	fs, err := NewFaceSet()
	if err != nil {
		t.Fatalf("NewFaceSet failed: %v", err)
	}
	defer fs.Close()

	mask, bounds, advance, err := fs.Rasterize(Key{Size: fixed.I(24), Rune: 'H'})
	if err != nil {
		t.Fatalf("Rasterize failed: %v", err)
	}
	if mask == nil || mask.Rect.Min != (image.Point{}) {
		t.Fatalf("Expected a mask at the origin, got %v", mask)
	}
	if mask.Rect.Dx() != bounds.Dx() || mask.Rect.Dy() != bounds.Dy() {
		t.Errorf("Mask %v does not match bounds %v", mask.Rect, bounds)
	}
	if bounds.Max.Y > 1 || bounds.Min.Y >= 0 {
		t.Errorf("Expected 'H' to sit on the baseline, got %v", bounds)
	}
	if advance <= 0 {
		t.Errorf("Expected positive advance, got %v", advance)
	}

	_, bounds, advance, err = fs.Rasterize(Key{Size: fixed.I(24), Rune: ' '})
	if err != nil || !bounds.Empty() || advance <= 0 {
		t.Errorf("Expected blank space with advance, got %v %v %v", bounds, advance, err)
	}

	if _, _, _, err := fs.Rasterize(Key{Font: 3, Size: fixed.I(24), Rune: 'H'}); err == nil {
		t.Errorf("Expected error for missing font index")
	}
}
