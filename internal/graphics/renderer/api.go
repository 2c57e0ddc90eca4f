package renderer

import (
	"ship-renderer/internal/graphics/drawcalls"
	"ship-renderer/internal/graphics/shader"
	"ship-renderer/internal/graphics/text"
	"ship-renderer/internal/ship"

	"github.com/go-gl/mathgl/mgl32"
)

// Frame is everything one Render call draws.
type Frame struct {
	// Width and Height are the framebuffer size in pixels.
	Width, Height int
	Camera        Camera
	State         ship.FrameState
	Labels        []Label
}

// Label is UI text. Positions are UI units with the origin at the bottom
// center of the screen.
type Label struct {
	Text     string
	Pos      mgl32.Vec2
	Depth    float32
	Size     float32 // pixels
	Align    text.Align
	MaxWidth float32 // 0 disables wrapping
}

// RenderContext provides shared context for all passes
type RenderContext struct {
	Frame   *Frame
	Program *shader.Program
}

// Pass is one step of a frame. Passes run in order and are released in
// reverse.
type Pass interface {
	Name() string
	Render(ctx RenderContext) (drawcalls.Stats, error)
	Release()
}
