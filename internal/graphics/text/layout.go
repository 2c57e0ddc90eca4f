// Package text lays out strings and submits them as instanced glyph quads.
package text

import (
	"strings"

	"github.com/go-gl/mathgl/mgl32"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
)

type HAlign int

const (
	Left HAlign = iota
	Center
	Right
)

type VAlign int

const (
	Top VAlign = iota
	Middle
	Bottom
)

// Align positions a text block relative to its anchor point.
type Align struct {
	H HAlign
	V VAlign
}

// Placement is a glyph pen position on the baseline, y up.
type Placement struct {
	Rune rune
	Pen  mgl32.Vec2
}

func f32(v fixed.Int26_6) float32 { return float32(v) / 64 }

// Layout places the runes of s around anchor. Lines break at '\n' and, when
// maxWidth > 0, between words that would overflow it. Whitespace produces no
// placements.
func Layout(face font.Face, s string, anchor mgl32.Vec2, align Align, maxWidth float32) []Placement {
	var lines []string
	for _, para := range strings.Split(s, "\n") {
		lines = append(lines, wrap(face, para, maxWidth)...)
	}

	m := face.Metrics()
	lineHeight := f32(m.Height)
	ascent, descent := f32(m.Ascent), f32(m.Descent)
	blockHeight := float32(len(lines)-1)*lineHeight + ascent + descent

	top := anchor.Y()
	switch align.V {
	case Middle:
		top += blockHeight / 2
	case Bottom:
		top += blockHeight
	}

	var out []Placement
	baseline := top - ascent
	for _, line := range lines {
		x := anchor.X()
		switch w := measure(face, line); align.H {
		case Center:
			x -= w / 2
		case Right:
			x -= w
		}

		prev := rune(-1)
		var pen fixed.Int26_6
		for _, r := range line {
			if prev >= 0 {
				pen += face.Kern(prev, r)
			}
			if r != ' ' && r != '\t' {
				out = append(out, Placement{Rune: r, Pen: mgl32.Vec2{x + f32(pen), baseline}})
			}
			adv, _ := face.GlyphAdvance(r)
			pen += adv
			prev = r
		}
		baseline -= lineHeight
	}
	return out
}

// Measure returns the advance width of the widest line of s.
func Measure(face font.Face, s string) float32 {
	var w float32
	for _, line := range strings.Split(s, "\n") {
		w = max(w, measure(face, line))
	}
	return w
}

func measure(face font.Face, line string) float32 {
	return f32(font.MeasureString(face, line))
}

func wrap(face font.Face, para string, maxWidth float32) []string {
	if maxWidth <= 0 || measure(face, para) <= maxWidth {
		return []string{para}
	}
	var lines []string
	var cur string
	for _, word := range strings.Fields(para) {
		next := word
		if cur != "" {
			next = cur + " " + word
		}
		if cur != "" && measure(face, next) > maxWidth {
			lines = append(lines, cur)
			cur = word
			continue
		}
		cur = next
	}
	return append(lines, cur)
}
