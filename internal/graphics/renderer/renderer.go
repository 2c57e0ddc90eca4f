// Package renderer draws a ship frame: the world pass with rooms,
// characters and the hull, then the UI pass with the dashboard and text.
package renderer

import (
	"ship-renderer/internal/config"
	"ship-renderer/internal/graphics/glyphs"
	"ship-renderer/internal/graphics/gpu"
	"ship-renderer/internal/graphics/shader"
	"ship-renderer/internal/profiling"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Renderer orchestrates rendering via passes
type Renderer struct {
	dev      gpu.Device
	log      *zap.Logger
	prof     *profiling.Profiler
	program  *shader.Program
	passes   []Pass
	released bool
}

// New compiles the mesh program and creates the world and UI passes. The
// renderer does not own scenes; release them after the renderer.
func New(dev gpu.Device, cfg config.Render, scenes *Scenes, faces *glyphs.FaceSet, prof *profiling.Profiler, log *zap.Logger) (*Renderer, error) {
	program, err := shader.NewProgram(dev)
	if err != nil {
		return nil, errors.Wrap(err, "renderer")
	}
	if prof == nil {
		prof = profiling.New()
	}
	r := &Renderer{
		dev:     dev,
		log:     log,
		prof:    prof,
		program: program,
		passes: []Pass{
			newWorldPass(dev, cfg, scenes, log),
			newUIPass(dev, cfg, scenes, faces, log),
		},
	}
	log.Info("renderer ready",
		zap.Int("ubo_alignment", dev.UniformBufferOffsetAlignment()),
		zap.Bool("shared_lights", cfg.SharedLights))
	return r, nil
}

// Render draws one frame. A zero-sized framebuffer (minimized window) draws
// nothing. GPU errors recorded during the frame abort it.
func (r *Renderer) Render(f Frame) error {
	if r.released {
		return errors.New("render after release")
	}
	if f.Width <= 0 || f.Height <= 0 {
		return nil
	}
	if f.Camera == nil {
		return errors.New("frame without camera")
	}
	defer r.prof.Track("renderer.frame")()

	r.dev.Viewport(0, 0, int32(f.Width), int32(f.Height))
	r.dev.UseProgram(r.program.ID)
	ctx := RenderContext{Frame: &f, Program: r.program}
	for _, p := range r.passes {
		stop := r.prof.Track("renderer." + p.Name())
		stats, err := p.Render(ctx)
		stop()
		if err != nil {
			return errors.WithMessage(err, p.Name()+" pass")
		}
		prefix := p.Name() + "."
		r.prof.Count(prefix+"draw_calls", stats.DrawCalls)
		r.prof.Count(prefix+"instances", stats.Instances)
		r.prof.Count(prefix+"arena_bytes", stats.ArenaBytes)
		r.prof.Count(prefix+"lights", stats.Lights)
		if stats.DroppedLights > 0 {
			r.prof.Count(prefix+"dropped_lights", stats.DroppedLights)
		}
	}
	if err := r.dev.Err(); err != nil {
		return errors.Wrap(err, "frame")
	}
	return nil
}

// Profiler returns the profiler frames are recorded into.
func (r *Renderer) Profiler() *profiling.Profiler { return r.prof }

// Release frees the passes in reverse order and the program.
func (r *Renderer) Release() {
	if r.released {
		return
	}
	r.released = true
	for i := len(r.passes) - 1; i >= 0; i-- {
		r.passes[i].Release()
	}
	r.program.Release(r.dev)
}
