package renderer

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"testing"

	"ship-renderer/internal/config"
	"ship-renderer/internal/graphics/glyphs"
	"ship-renderer/internal/graphics/gpu"
	"ship-renderer/internal/graphics/gpu/gputest"
	"ship-renderer/internal/graphics/shader"
	"ship-renderer/internal/graphics/text"
	"ship-renderer/internal/profiling"
	"ship-renderer/internal/ship"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

type object = map[string]any

func le(values ...any) []byte {
	var b bytes.Buffer
	for _, v := range values {
		binary.Write(&b, binary.LittleEndian, v)
	}
	return b.Bytes()
}

// triangleScene is a one-triangle glTF document with an embedded buffer,
// optionally with a point light and a translation clip named "walk".
func triangleScene(light, walk bool) object {
	buf := le(
		[]float32{0, 0, 0, 1, 0, 0, 0, 1, 0},
		[]uint16{0, 1, 2, 0},
		[]float32{0, 2},
		[]float32{0, 0, 0, 0, 4, 0},
	)
	doc := object{
		"asset":  object{"version": "2.0"},
		"scene":  0,
		"scenes": []any{object{"nodes": []any{0}}},
		"nodes":  []any{object{"name": "body", "mesh": 0}},
		"meshes": []any{object{"primitives": []any{object{
			"attributes": object{"POSITION": 0},
			"indices":    1,
		}}}},
		"accessors": []any{
			object{"bufferView": 0, "componentType": 5126, "count": 3, "type": "VEC3"},
			object{"bufferView": 1, "componentType": 5123, "count": 3, "type": "SCALAR"},
			object{"bufferView": 2, "componentType": 5126, "count": 2, "type": "SCALAR"},
			object{"bufferView": 3, "componentType": 5126, "count": 2, "type": "VEC3"},
		},
		"bufferViews": []any{
			object{"buffer": 0, "byteOffset": 0, "byteLength": 36},
			object{"buffer": 0, "byteOffset": 36, "byteLength": 6},
			object{"buffer": 0, "byteOffset": 44, "byteLength": 8},
			object{"buffer": 0, "byteOffset": 52, "byteLength": 24},
		},
		"buffers": []any{object{
			"byteLength": len(buf),
			"uri":        "data:application/octet-stream;base64," + base64.StdEncoding.EncodeToString(buf),
		}},
	}
	if light {
		doc["extensionsUsed"] = []any{"KHR_lights_punctual"}
		doc["extensions"] = object{"KHR_lights_punctual": object{
			"lights": []any{object{"type": "point", "intensity": 2}},
		}}
		doc["nodes"] = []any{object{
			"name": "body", "mesh": 0,
			"extensions": object{"KHR_lights_punctual": object{"light": 0}},
		}}
	}
	if walk {
		doc["animations"] = []any{object{
			"name":     "walk",
			"channels": []any{object{"sampler": 0, "target": object{"node": 0, "path": "translation"}}},
			"samplers": []any{object{"input": 2, "output": 3}},
		}}
	}
	return doc
}

func writeScene(t *testing.T, dir, name string, doc object) string {
	t.Helper()
	b, err := json.Marshal(doc)
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, b, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

type fixture struct {
	dev    *gputest.Device
	scenes *Scenes
	r      *Renderer
	prof   *profiling.Profiler
}

func newFixture(t *testing.T, assets config.Assets) *fixture {
	t.Helper()
	dev := gputest.New()
	dev.Align = 256
	cfg := config.Default()
	scenes, err := LoadScenes(dev, assets, cfg.Render.SharedLights, zap.NewNop())
	if err != nil {
		t.Fatalf("LoadScenes failed: %v", err)
	}
	faces, err := glyphs.NewFaceSet()
	if err != nil {
		t.Fatalf("NewFaceSet failed: %v", err)
	}
	cfg.Render.AtlasSize = 256
	prof := profiling.New()
	r, err := New(dev, cfg.Render, scenes, faces, prof, zap.NewNop())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	t.Cleanup(func() {
		r.Release()
		scenes.Release()
	})
	return &fixture{dev: dev, scenes: scenes, r: r, prof: prof}
}

func shipAssets(t *testing.T) config.Assets {
	dir := t.TempDir()
	return config.Assets{
		Ship:       writeScene(t, dir, "ship.gltf", triangleScene(false, false)),
		Rooms:      map[string]string{"navigation": writeScene(t, dir, "room.gltf", triangleScene(true, false))},
		Characters: map[string]string{"sailor": writeScene(t, dir, "sailor.gltf", triangleScene(false, true))},
	}
}

func TestRenderFrame(t *testing.T) {
	f := newFixture(t, shipAssets(t))
	frame := Frame{
		Width: 1600, Height: 900,
		Camera: NewFixedCamera(20),
		State: ship.FrameState{
			Rooms: []ship.Room{
				{Kind: ship.RoomNavigation, Position: mgl32.Vec2{0, -4}},
				{Kind: ship.RoomNavigation, Position: mgl32.Vec2{0, 5}},
				{Kind: ship.RoomSails, Position: mgl32.Vec2{0, 9}},
			},
			Characters: []ship.Character{{Job: ship.JobSailor, LookDir: mgl32.Vec2{0, 1}}},
		},
		Labels: []Label{{Text: "NAVIGATION", Pos: mgl32.Vec2{-270, 132}, Depth: 9, Size: 20,
			Align: text.Align{H: text.Left, V: text.Middle}}},
	}
	if err := f.r.Render(frame); err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	var world, ui []gputest.Draw
	for _, d := range f.dev.Draws {
		if d.DepthFunc == gpu.Greater {
			world = append(world, d)
		} else {
			ui = append(ui, d)
		}
	}
	// room twice, sailor, ship; sails has no scene
	if len(world) != 3 {
		t.Fatalf("Expected 3 world draws, got %d", len(world))
	}
	roomVAO := f.scenes.Rooms[ship.RoomNavigation].Meshes[0].Primitives[0].DrawCall.VAO
	for _, d := range world {
		if d.Blend {
			t.Errorf("Expected blending off in the world pass")
		}
		if d.VAO == roomVAO && d.Instances != 2 {
			t.Errorf("Expected both rooms in one draw, got %d instances", d.Instances)
		}
	}
	if len(ui) != 1 || !ui[0].Blend || ui[0].Instances != 10 {
		t.Errorf("Expected one blended draw of 10 glyphs, got %+v", ui)
	}

	want := []gpu.Enum{gpu.ColorBufferBit | gpu.DepthBufferBit, gpu.DepthBufferBit}
	if len(f.dev.Clears) != 2 || f.dev.Clears[0] != want[0] || f.dev.Clears[1] != want[1] {
		t.Errorf("Expected clears %v, got %v", want, f.dev.Clears)
	}
	if f.dev.ViewportRect != [4]int32{0, 0, 1600, 900} {
		t.Errorf("Expected full viewport, got %v", f.dev.ViewportRect)
	}

	f.prof.EndFrame()
	c := f.prof.Last().Counters
	if c["world.draw_calls"] != 3 || c["ui.draw_calls"] != 1 {
		t.Errorf("Expected 3 world and 1 ui draw calls, got %v", c)
	}
	// one light per room placed at distinct positions
	if c["world.lights"] != 2 {
		t.Errorf("Expected 2 frame lights, got %d", c["world.lights"])
	}
	if _, ok := f.prof.Last().Timings["renderer.world"]; !ok {
		t.Errorf("Expected world pass timing")
	}
}

func TestUIProjection(t *testing.T) {
	f := newFixture(t, config.Assets{})
	frame := Frame{Width: 1600, Height: 900, Camera: NewFixedCamera(20)}
	if err := f.r.Render(frame); err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	loc := f.dev.Uniforms["proj_from_view"]
	got := mgl32.Mat4(f.dev.Matrices[loc])
	// scale 2 halves the UI space to 800x450
	want := mgl32.Ortho(-400, 400, 0, 450, -100, 100)
	if !got.ApproxEqual(want) {
		t.Errorf("Expected %v, got %v", want, got)
	}
	if len(f.dev.Draws) != 0 {
		t.Errorf("Expected an empty frame to draw nothing, got %d draws", len(f.dev.Draws))
	}
}

func TestRenderAnimatedCharacter(t *testing.T) {
	dir := t.TempDir()
	f := newFixture(t, config.Assets{
		Characters: map[string]string{"navigator": writeScene(t, dir, "nav.gltf", triangleScene(false, true))},
	})
	frame := Frame{
		Width: 800, Height: 600, Camera: NewFixedCamera(20),
		State: ship.FrameState{Characters: []ship.Character{{
			Job: ship.JobNavigator, Position: mgl32.Vec2{3, 4}, LookDir: mgl32.Vec2{0, 1},
			Animation: "walk", AnimationTime: 1,
		}}},
	}
	if err := f.r.Render(frame); err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if len(f.dev.Draws) != 1 {
		t.Fatalf("Expected one draw, got %d", len(f.dev.Draws))
	}
	a := f.dev.Attribs[shader.AttrModelColumns[0]]
	raw := f.dev.BufferRange(a.Buffer, a.Offset, 64)
	if raw == nil {
		t.Fatalf("No instance data")
	}
	var m mgl32.Mat4
	binary.Read(bytes.NewReader(raw), binary.LittleEndian, &m)
	// halfway through the clip the node is raised by 2
	if tr := m.Col(3); !tr.ApproxEqual(mgl32.Vec4{3, 2, 4, 1}) {
		t.Errorf("Expected instance at (3,2,4), got %v", tr)
	}
}

func TestRenderEdgeCases(t *testing.T) {
	f := newFixture(t, config.Assets{})
	if err := f.r.Render(Frame{Width: 0, Height: 600}); err != nil {
		t.Errorf("Expected minimized frame to be skipped, got %v", err)
	}
	if len(f.dev.Clears) != 0 {
		t.Errorf("Expected no clears for a minimized frame")
	}
	if err := f.r.Render(Frame{Width: 800, Height: 600}); err == nil {
		t.Errorf("Expected a frame without camera to fail")
	}

	f.dev.StagedErr = &gpu.Error{Op: "DrawElementsInstanced", Code: 0x502}
	err := f.r.Render(Frame{Width: 800, Height: 600, Camera: NewFixedCamera(20)})
	var gerr *gpu.Error
	if !errors.As(err, &gerr) || gerr.Code != 0x502 {
		t.Errorf("Expected the GPU error to abort the frame, got %v", err)
	}

	f.r.Release()
	if err := f.r.Render(Frame{Width: 800, Height: 600, Camera: NewFixedCamera(20)}); err == nil {
		t.Errorf("Expected render after release to fail")
	}
}

func TestLabelsNeedAFont(t *testing.T) {
	dev := gputest.New()
	cfg := config.Default().Render
	r, err := New(dev, cfg, &Scenes{}, nil, nil, zap.NewNop())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer r.Release()
	err = r.Render(Frame{Width: 800, Height: 600, Camera: NewFixedCamera(20), Labels: []Label{{Text: "x", Size: 10}}})
	if err == nil {
		t.Errorf("Expected labels without a font to fail")
	}
}

func TestLoadScenesSharesFiles(t *testing.T) {
	dir := t.TempDir()
	room := writeScene(t, dir, "room.gltf", triangleScene(false, false))
	dev := gputest.New()
	s, err := LoadScenes(dev, config.Assets{
		Rooms: map[string]string{"navigation": room, "sails": room},
	}, true, zap.NewNop())
	if err != nil {
		t.Fatalf("LoadScenes failed: %v", err)
	}
	if s.Rooms[ship.RoomNavigation] == nil || s.Rooms[ship.RoomNavigation] != s.Rooms[ship.RoomSails] {
		t.Fatalf("Expected one graph for both room kinds")
	}
	sum := s.Summaries()
	if len(sum) != 2 || sum["room/sails"].Nodes != 1 {
		t.Errorf("Expected two summaries of one node, got %v", sum)
	}

	vao := s.Rooms[ship.RoomSails].Meshes[0].Primitives[0].DrawCall.VAO
	s.Release()
	if n := dev.Deleted[uint32(vao)]; n != 1 {
		t.Errorf("Expected the shared graph released once, got %d", n)
	}
}

func TestLoadScenesErrors(t *testing.T) {
	dev := gputest.New()
	if _, err := LoadScenes(dev, config.Assets{Ship: filepath.Join(t.TempDir(), "missing.gltf")}, true, zap.NewNop()); err == nil {
		t.Errorf("Expected a missing file to fail")
	}
	if _, err := LoadScenes(dev, config.Assets{Rooms: map[string]string{"galley": "x"}}, true, zap.NewNop()); err == nil {
		t.Errorf("Expected an unknown room kind to fail")
	}

	// the ship loads, then the room fails; the ship must not leak
	dev = gputest.New()
	assets := config.Assets{
		Ship:  writeScene(t, t.TempDir(), "ship.gltf", triangleScene(false, false)),
		Rooms: map[string]string{"navigation": filepath.Join(t.TempDir(), "missing.gltf")},
	}
	s, err := LoadScenes(dev, assets, true, zap.NewNop())
	if err == nil || s != nil {
		t.Fatalf("Expected a missing room to fail, got %v %v", s, err)
	}
	if len(dev.Buffers) != 0 {
		t.Errorf("Expected every buffer released, %d left", len(dev.Buffers))
	}
}

// within compares component-wise with an absolute tolerance. mgl32's
// ApproxEqual turns relative and near-exact around zero.
func within(a, b []float32, eps float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if math.Abs(float64(a[i]-b[i])) > eps {
			return false
		}
	}
	return true
}

func TestCharacterTransform(t *testing.T) {
	cases := []struct {
		look mgl32.Vec2
		want mgl32.Vec3
	}{
		{mgl32.Vec2{0, 1}, mgl32.Vec3{0, 0, 1}},
		{mgl32.Vec2{1, 0}, mgl32.Vec3{1, 0, 0}},
		{mgl32.Vec2{0, -2}, mgl32.Vec3{0, 0, -1}},
		{mgl32.Vec2{}, mgl32.Vec3{0, 0, 1}},
	}
	for _, tc := range cases {
		m := CharacterTransform(ship.Character{Position: mgl32.Vec2{5, 6}, LookDir: tc.look})
		if fwd := m.Mul4x1(mgl32.Vec4{0, 0, 1, 0}).Vec3(); !within(fwd[:], tc.want[:], 1e-5) {
			t.Errorf("look %v: expected forward %v, got %v", tc.look, tc.want, fwd)
		}
		if pos := m.Col(3); pos != (mgl32.Vec4{5, 0, 6, 1}) {
			t.Errorf("Expected position (5,0,6), got %v", pos)
		}
	}
}

func TestUIScale(t *testing.T) {
	cases := map[int]float32{400: 1, 800: 1, 1599: 1, 1600: 2, 2560: 3}
	for width, want := range cases {
		if got := UIScale(width, 800); got != want {
			t.Errorf("width %d: expected %v, got %v", width, want, got)
		}
	}
}

func project(view, proj mgl32.Mat4, p mgl32.Vec3) mgl32.Vec3 {
	c := proj.Mul4(view).Mul4x1(p.Vec4(1))
	return c.Vec3().Mul(1 / c.W())
}

func TestFixedCameraLooksAtFocus(t *testing.T) {
	c := NewFixedCamera(20)
	view, proj := c.ViewProj(16.0 / 9)
	ndc := project(view, proj, c.Focus)
	if math.Abs(float64(ndc.X())) > 1e-4 || math.Abs(float64(ndc.Y())) > 1e-4 {
		t.Errorf("Expected focus at the screen center, got %v", ndc)
	}
	if d := c.Eye().Sub(c.Focus).Len(); math.Abs(float64(d-c.Distance)) > 1e-4 {
		t.Errorf("Expected eye %v away, got %v", c.Distance, d)
	}

	// reversed depth: nearer points get larger depth
	near := project(view, proj, c.Focus.Add(c.Eye().Sub(c.Focus).Mul(0.5)))
	if near.Z() <= ndc.Z() {
		t.Errorf("Expected nearer depth %v above %v", near.Z(), ndc.Z())
	}
}

func TestClipToShip(t *testing.T) {
	c := NewFixedCamera(20)
	c.Focus = mgl32.Vec3{}
	aspect := float32(4.0 / 3)
	for _, clip := range []mgl32.Vec2{{0, 0}, {0.5, -0.2}, {-0.8, 0.6}} {
		hit := ClipToShip(c, clip, aspect)
		view, proj := c.ViewProj(aspect)
		ndc := project(view, proj, mgl32.Vec3{hit.X(), 0, hit.Y()})
		if got := ndc.Vec2(); !within(got[:], clip[:], 1e-3) {
			t.Errorf("clip %v: floor hit %v projects to %v", clip, hit, ndc)
		}
	}
	if hit := ClipToShip(c, mgl32.Vec2{}, aspect); !within(hit[:], []float32{0, 0}, 1e-3) {
		t.Errorf("Expected the center ray to hit the focus, got %v", hit)
	}

	// looking almost level, the top of the screen sees the sky
	c.Pitch = 0.01
	if hit := ClipToShip(c, mgl32.Vec2{0, 1}, aspect); hit != (mgl32.Vec2{maxFloorDistance, maxFloorDistance}) {
		t.Errorf("Expected a miss clamped to %v, got %v", maxFloorDistance, hit)
	}
}

func TestCameraControlsClamp(t *testing.T) {
	c := NewFixedCamera(20)
	c.Zoom(100)
	if c.Distance != minDistance {
		t.Errorf("Expected distance %v, got %v", minDistance, c.Distance)
	}
	c.Zoom(-100)
	if c.Distance != maxDistance {
		t.Errorf("Expected distance %v, got %v", maxDistance, c.Distance)
	}
	c.Rotate(10, -1000)
	if c.Pitch != float32(minPitch) {
		t.Errorf("Expected pitch %v, got %v", minPitch, c.Pitch)
	}
	if math.Abs(float64(c.Yaw)-(math.Pi/2+0.1)) > 1e-5 {
		t.Errorf("Expected yaw to turn by 0.1, got %v", c.Yaw)
	}
	c.Pan(100, 100)
	for _, v := range c.Focus {
		if v < -focusBound || v > focusBound {
			t.Errorf("Expected focus within bounds, got %v", c.Focus)
		}
	}
}
