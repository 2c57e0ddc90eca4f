package renderer

import (
	"math"

	"ship-renderer/internal/config"
	"ship-renderer/internal/graphics/drawcalls"
	"ship-renderer/internal/graphics/glyphs"
	"ship-renderer/internal/graphics/gpu"
	"ship-renderer/internal/graphics/text"
	"ship-renderer/internal/scene"
	"ship-renderer/internal/ship"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// CharacterTransform places a character at its ship position, turned so its
// +Z axis follows the look direction.
func CharacterTransform(c ship.Character) mgl32.Mat4 {
	yaw := float32(math.Atan2(float64(c.LookDir.X()), float64(c.LookDir.Y())))
	return mgl32.Translate3D(c.Position.X(), 0, c.Position.Y()).Mul4(mgl32.HomogRotate3DY(yaw))
}

func RoomTransform(r ship.Room) mgl32.Mat4 {
	return mgl32.Translate3D(r.Position.X(), 0, r.Position.Y())
}

type worldPass struct {
	dev     gpu.Device
	cfg     config.Render
	scenes  *Scenes
	batches *drawcalls.Batches
	log     *zap.Logger
}

func newWorldPass(dev gpu.Device, cfg config.Render, scenes *Scenes, log *zap.Logger) *worldPass {
	return &worldPass{
		dev:     dev,
		cfg:     cfg,
		scenes:  scenes,
		batches: drawcalls.New(dev, log.Named("world")),
		log:     log,
	}
}

func (p *worldPass) Name() string { return "world" }

func (p *worldPass) Render(ctx RenderContext) (drawcalls.Stats, error) {
	b := p.batches
	b.Clear()
	state := &ctx.Frame.State
	for _, room := range state.Rooms {
		if g := p.scenes.room(room.Kind); g != nil {
			g.Draw(b, RoomTransform(room))
		}
	}
	for _, c := range state.Characters {
		g := p.scenes.character(c.Job)
		if g == nil {
			continue
		}
		p.drawCharacter(g, c)
	}
	if p.scenes.Ship != nil {
		p.scenes.Ship.Draw(b, mgl32.Ident4())
	}

	c := p.cfg.ClearColor
	p.dev.Disable(gpu.Blend)
	p.dev.ClearColor(c[0], c[1], c[2], c[3])
	p.dev.ClearDepth(0)
	p.dev.Clear(gpu.ColorBufferBit | gpu.DepthBufferBit)
	p.dev.Enable(gpu.CullFace)
	p.dev.Enable(gpu.DepthTest)
	p.dev.DepthFunc(gpu.Greater)

	aspect := float32(ctx.Frame.Width) / float32(ctx.Frame.Height)
	view, proj := ctx.Frame.Camera.ViewProj(aspect)
	ctx.Program.SetCamera(p.dev, (*[16]float32)(&proj), (*[16]float32)(&view))
	return b.Draw(drawcalls.DefaultAttribs()), nil
}

func (p *worldPass) drawCharacter(g *scene.Graph, c ship.Character) {
	model := CharacterTransform(c)
	if c.Animation == "" {
		g.Draw(p.batches, model)
		return
	}
	a, ok := g.AnimationByName(c.Animation)
	if !ok {
		p.log.Debug("animation not found", zap.String("animation", c.Animation), zap.Stringer("job", c.Job))
		g.Draw(p.batches, model)
		return
	}
	pose := g.NodeTransforms()
	a.Animate(pose, a.Start+c.AnimationTime)
	g.DrawAnimated(p.batches, model, pose)
}

func (p *worldPass) Release() { p.batches.Release() }

type uiPass struct {
	dev     gpu.Device
	cfg     config.Render
	scenes  *Scenes
	text    *text.Renderer
	batches *drawcalls.Batches
}

func newUIPass(dev gpu.Device, cfg config.Render, scenes *Scenes, faces *glyphs.FaceSet, log *zap.Logger) *uiPass {
	p := &uiPass{
		dev:     dev,
		cfg:     cfg,
		scenes:  scenes,
		batches: drawcalls.New(dev, log.Named("ui")),
	}
	if faces != nil {
		p.text = text.NewRenderer(dev, faces, cfg.AtlasSize)
	}
	return p
}

func (p *uiPass) Name() string { return "ui" }

// UIScale is the integer factor UI units are magnified by.
func UIScale(width int, referenceWidth float32) float32 {
	return float32(math.Max(1, math.Floor(float64(float32(width)/referenceWidth))))
}

func (p *uiPass) Render(ctx RenderContext) (drawcalls.Stats, error) {
	scale := UIScale(ctx.Frame.Width, p.cfg.UIReferenceWidth)
	width := float32(ctx.Frame.Width) / scale
	height := float32(ctx.Frame.Height) / scale

	b := p.batches
	b.Clear()
	p.dev.Enable(gpu.Blend)
	p.dev.BlendFunc(gpu.SrcAlpha, gpu.OneMinusSrcAlpha)
	p.dev.ClearDepth(1)
	p.dev.Clear(gpu.DepthBufferBit)
	p.dev.DepthFunc(gpu.Less)

	if p.scenes.Dashboard != nil {
		p.scenes.Dashboard.Draw(b, mgl32.Ident4())
	}
	if len(ctx.Frame.Labels) > 0 && p.text == nil {
		return drawcalls.Stats{}, errors.New("labels without a font")
	}
	for _, l := range ctx.Frame.Labels {
		if err := p.text.DrawText(b, l.Text, l.Pos, l.Depth, l.Size, l.Align, l.MaxWidth); err != nil {
			return drawcalls.Stats{}, errors.Wrapf(err, "label %q", l.Text)
		}
	}

	proj := mgl32.Ortho(-width/2, width/2, 0, height, -100, 100)
	view := mgl32.Ident4()
	ctx.Program.SetCamera(p.dev, (*[16]float32)(&proj), (*[16]float32)(&view))
	return b.Draw(drawcalls.DefaultAttribs()), nil
}

func (p *uiPass) Release() {
	if p.text != nil {
		p.text.Release()
	}
	p.batches.Release()
}
