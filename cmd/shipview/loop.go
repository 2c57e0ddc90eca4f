package main

import (
	"sync/atomic"
	"time"

	"ship-renderer/internal/config"
	"ship-renderer/internal/debugserver"
	"ship-renderer/internal/graphics/glyphs"
	"ship-renderer/internal/graphics/gpu/glcore"
	"ship-renderer/internal/graphics/renderer"
	"ship-renderer/internal/input"
	"ship-renderer/internal/profiling"
	"ship-renderer/internal/ship"

	"github.com/go-gl/glfw/v3.3/glfw"
	"go.uber.org/zap"
)

const (
	keyPanSpeed = 1.5 // screen heights per second
	statsEvery  = 30  // frames between stats label refreshes
)

// Viewer owns the window and runs the render loop.
type Viewer struct {
	cfg *config.Config
	log *zap.Logger

	window   *glfw.Window
	dev      *glcore.Device
	faces    *glyphs.FaceSet
	scenes   *renderer.Scenes
	renderer *renderer.Renderer
	debug    *debugserver.Server
	prof     *profiling.Profiler

	input  *input.InputManager
	camera *renderer.FixedCamera
	sim    *ship.Demo
	pacer  *framePacer

	closing   atomic.Bool
	showStats bool
	stats     string
	frames    int
	lastTime  time.Time
}

// requestClose asks the loop to stop. Safe from any goroutine.
func (v *Viewer) requestClose() { v.closing.Store(true) }

// Run renders until the window closes, Escape is pressed or a close is
// requested.
func (v *Viewer) Run() error {
	v.lastTime = time.Now()
	for !v.window.ShouldClose() && !v.closing.Load() {
		if err := v.tick(); err != nil {
			return err
		}
	}
	return nil
}

func (v *Viewer) tick() error {
	now := time.Now()
	dt := float32(now.Sub(v.lastTime).Seconds())
	v.lastTime = now

	func() { defer v.prof.Track("glfw.PollEvents")(); glfw.PollEvents() }()

	width, height := v.window.GetFramebufferSize()
	v.handleInput(dt, height)
	func() { defer v.prof.Track("ship.Update")(); v.sim.Update(dt) }()

	f := renderer.Frame{
		Width:  width,
		Height: height,
		Camera: v.camera,
		State:  v.sim.FrameState(),
		Labels: tabLabels(),
	}
	if v.showStats {
		if v.frames%statsEvery == 0 {
			v.stats = v.prof.TopN(6)
		}
		f.Labels = append(f.Labels, statsLabel(v.stats+"\n"+v.pointerText(width, height), width, height, v.cfg.Render.UIReferenceWidth))
	}
	if err := v.renderer.Render(f); err != nil {
		return err
	}

	func() { defer v.prof.Track("glfw.SwapBuffers")(); v.window.SwapBuffers() }()

	v.input.PostUpdate()
	v.prof.EndFrame()
	v.frames++
	v.pacer.Wait()
	return nil
}

func (v *Viewer) handleInput(dt float32, height int) {
	im := v.input
	if im.JustPressed(input.ActionQuit) {
		v.window.SetShouldClose(true)
	}
	if im.JustPressed(input.ActionToggleStats) {
		v.showStats = !v.showStats
		v.stats = v.prof.TopN(6)
		v.log.Debug("stats overlay", zap.Bool("visible", v.showStats))
	}
	if im.JustPressed(input.ActionResetCamera) {
		v.camera = renderer.NewFixedCamera(v.cfg.Render.FOV)
	}

	dx, dy := im.MouseDelta()
	if height > 0 && im.IsActive(input.ActionPan) {
		h := float32(height)
		v.camera.Pan(-float32(dx)/h, -float32(dy)/h)
	}
	if im.IsActive(input.ActionRotate) {
		v.camera.Rotate(float32(dx), float32(dy))
	}
	if s := im.Scroll(); s != 0 {
		v.camera.Zoom(float32(s))
	}

	var kx, ky float32
	if im.IsActive(input.ActionPanLeft) {
		kx--
	}
	if im.IsActive(input.ActionPanRight) {
		kx++
	}
	if im.IsActive(input.ActionPanUp) {
		ky--
	}
	if im.IsActive(input.ActionPanDown) {
		ky++
	}
	if kx != 0 || ky != 0 {
		v.camera.Pan(kx*keyPanSpeed*dt, ky*keyPanSpeed*dt)
	}
}

// pointerText reports where the cursor ray meets the ship floor.
func (v *Viewer) pointerText(width, height int) string {
	ww, wh := v.window.GetSize()
	if ww <= 0 || wh <= 0 || height <= 0 {
		return ""
	}
	cx, cy := v.input.Cursor()
	aspect := float32(width) / float32(height)
	return floorText(renderer.ClipToShip(v.camera, cursorClip(cx, cy, ww, wh), aspect))
}
