package shader

import (
	"errors"
	"testing"
	"unsafe"

	"ship-renderer/internal/graphics/gpu/gputest"
)

func TestBlockLayouts(t *testing.T) {
	if s := unsafe.Sizeof(Material{}); s != 48 {
		t.Errorf("Expected Material block of 48 bytes, got %d", s)
	}
	if o := unsafe.Offsetof(Material{}.EmissiveFactor); o != 32 {
		t.Errorf("Expected emissive factor at offset 32, got %d", o)
	}
	if s := unsafe.Sizeof(Lights{}); s != 4*MaxLights*16 {
		t.Errorf("Expected Lights block of %d bytes, got %d", 4*MaxLights*16, s)
	}
}

func TestLightsCount(t *testing.T) {
	var l Lights
	if n := l.Count(); n != 0 {
		t.Errorf("Expected empty block, got %d lights", n)
	}
	l.ColorAndKind[0][3] = LightPoint
	l.ColorAndKind[1][3] = LightSpot
	if n := l.Count(); n != 2 {
		t.Errorf("Expected 2 lights, got %d", n)
	}
	for i := range l.ColorAndKind {
		l.ColorAndKind[i][3] = LightDirectional
	}
	if n := l.Count(); n != MaxLights {
		t.Errorf("Expected full block of %d, got %d", MaxLights, n)
	}
}

func TestNewProgramBindsUnitsAndBlocks(t *testing.T) {
	dev := gputest.New()
	p, err := NewProgram(dev)
	if err != nil {
		t.Fatalf("NewProgram failed: %v", err)
	}
	if dev.Program != p.ID {
		t.Errorf("Expected program %d to be current, got %d", p.ID, dev.Program)
	}
	for _, name := range []string{"proj_from_view", "view_from_world", "base_color_tex", "emissive_tex", "Material", "Lights"} {
		if _, ok := dev.Uniforms[name]; !ok {
			t.Errorf("Expected %q to be looked up", name)
		}
	}
	if p.ProjFromView == p.ViewFromWorld {
		t.Errorf("Expected distinct camera uniform locations")
	}
}

func TestNewProgramLinkError(t *testing.T) {
	dev := gputest.New()
	linkErr := errors.New("failed to link program: boom")
	dev.FailLink = linkErr
	if _, err := NewProgram(dev); !errors.Is(err, linkErr) {
		t.Errorf("Expected wrapped link error, got %v", err)
	}
}

func TestDefaultMaterial(t *testing.T) {
	m := DefaultMaterial()
	if m.BaseColorFactor != [4]float32{1, 1, 1, 1} || m.MetallicFactor != 1 || m.RoughnessFactor != 1 {
		t.Errorf("Unexpected defaults: %+v", m)
	}
	if m.EmissiveFactor != [4]float32{} {
		t.Errorf("Expected no emission by default, got %v", m.EmissiveFactor)
	}
}
