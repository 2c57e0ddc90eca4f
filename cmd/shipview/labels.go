package main

import (
	"fmt"

	"ship-renderer/internal/graphics/renderer"
	"ship-renderer/internal/graphics/text"

	"github.com/go-gl/mathgl/mgl32"
)

var dashboardTabs = []string{"NAVIGATION", "SCHEDULE", "DELIVERIES", "OPTIONS"}

const (
	tabX       = -270
	tabTop     = 132
	tabSpacing = 29.5
	tabSize    = 20
	labelDepth = 9
	statsSize  = 14
	statsInset = 8
)

// tabLabels returns the dashboard tab captions, top to bottom.
func tabLabels() []renderer.Label {
	labels := make([]renderer.Label, len(dashboardTabs))
	for i, name := range dashboardTabs {
		labels[i] = renderer.Label{
			Text:  name,
			Pos:   mgl32.Vec2{tabX, tabTop - float32(i)*tabSpacing},
			Depth: labelDepth,
			Size:  tabSize,
			Align: text.Align{H: text.Left, V: text.Middle},
		}
	}
	return labels
}

// statsLabel anchors s to the top left corner of a framebuffer of the given
// size, in UI units.
func statsLabel(s string, width, height int, referenceWidth float32) renderer.Label {
	scale := renderer.UIScale(width, referenceWidth)
	w, h := float32(width)/scale, float32(height)/scale
	return renderer.Label{
		Text:  s,
		Pos:   mgl32.Vec2{-w/2 + statsInset, h - statsInset},
		Depth: labelDepth,
		Size:  statsSize,
		Align: text.Align{H: text.Left, V: text.Top},
	}
}

// cursorClip converts a cursor position in window coordinates to clip space.
func cursorClip(x, y float64, width, height int) mgl32.Vec2 {
	return mgl32.Vec2{
		float32(2*x/float64(width) - 1),
		float32(1 - 2*y/float64(height)),
	}
}

func floorText(p mgl32.Vec2) string {
	return fmt.Sprintf("floor %.1f, %.1f", p.X(), p.Y())
}
