package glyphs

import "errors"

// ErrAtlasFull is returned when a glyph no longer fits in the atlas. There is
// no eviction; callers treat it as fatal.
var ErrAtlasFull = errors.New("glyph atlas full")

// padding between packed glyphs, in pixels
const padding = 1

// shelf packs rectangles left to right in rows. A row is as tall as its
// tallest rectangle.
type shelf struct {
	width, height int
	x, y          int
	rowHeight     int
}

func (s *shelf) reserve(w, h int) (x, y int, err error) {
	if w > s.width {
		return 0, 0, ErrAtlasFull
	}
	if s.x+w > s.width {
		s.x = 0
		s.y += s.rowHeight + padding
		s.rowHeight = 0
	}
	if s.y+h > s.height {
		return 0, 0, ErrAtlasFull
	}
	x, y = s.x, s.y
	s.x += w + padding
	s.rowHeight = max(s.rowHeight, h)
	return x, y, nil
}
