package main

import (
	"context"
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
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

func setupWindow(cfg config.Window) (*glfw.Window, error) {
	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 1)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)

	window, err := glfw.CreateWindow(cfg.Width, cfg.Height, cfg.Title, nil, nil)
	if err != nil {
		return nil, errors.Wrap(err, "create window")
	}
	window.MakeContextCurrent()

	if cfg.VSync {
		glfw.SwapInterval(1)
	} else {
		// framePacer holds the frame rate instead
		glfw.SwapInterval(0)
	}
	return window, nil
}

// setup opens the window and loads everything a frame needs. On error the
// parts created so far are released.
func setup(cfg *config.Config, log *zap.Logger) (v *Viewer, err error) {
	if err := glfw.Init(); err != nil {
		return nil, errors.Wrap(err, "init glfw")
	}
	v = &Viewer{
		cfg:    cfg,
		log:    log,
		prof:   profiling.New(),
		input:  input.NewInputManager(),
		camera: renderer.NewFixedCamera(cfg.Render.FOV),
		sim:    ship.NewDemo(),
		pacer:  newFramePacer(cfg.Window.FPSLimit),
	}
	defer func() {
		if err != nil {
			v.Release()
		}
	}()

	if v.window, err = setupWindow(cfg.Window); err != nil {
		return v, err
	}
	v.input.SetCallbacks(v.window)

	dev, err := glcore.New()
	if err != nil {
		return v, err
	}
	v.dev = dev

	if cfg.Assets.Font != "" {
		v.faces, err = glyphs.LoadFaceSet(cfg.Assets.Font)
	} else {
		v.faces, err = glyphs.NewFaceSet()
	}
	if err != nil {
		return v, errors.WithMessage(err, "font")
	}

	start := time.Now()
	if v.scenes, err = renderer.LoadScenes(dev, cfg.Assets, cfg.Render.SharedLights, log); err != nil {
		return v, err
	}
	log.Info("scenes loaded", zap.Duration("took", time.Since(start)))

	if v.renderer, err = renderer.New(dev, cfg.Render, v.scenes, v.faces, v.prof, log); err != nil {
		return v, err
	}

	if cfg.DebugServer.Enabled {
		v.debug = debugserver.New(v.prof, v.scenes.Summaries(), log.Named("debug"))
		if err = v.debug.Start(cfg.DebugServer.Addr); err != nil {
			return v, err
		}
	}
	return v, nil
}

// Release tears down in reverse creation order. It must run on the main
// thread.
func (v *Viewer) Release() {
	if v.debug != nil {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		if err := v.debug.Shutdown(ctx); err != nil {
			v.log.Warn("debug server shutdown", zap.Error(err))
		}
		cancel()
		v.debug = nil
	}
	if v.renderer != nil {
		v.renderer.Release()
		v.renderer = nil
	}
	if v.scenes != nil {
		v.scenes.Release()
		v.scenes = nil
	}
	if v.faces != nil {
		v.faces.Close()
		v.faces = nil
	}
	if v.window != nil {
		v.window.Destroy()
		v.window = nil
	}
	glfw.Terminate()
}
