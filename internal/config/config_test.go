package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("Expected default config to validate, got %v", err)
	}
}

func TestParseOverridesDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
window:
  width: 800
render:
  clear_color: [0, 0, 0.2, 1]
  shared_lights: false
assets:
  rooms:
    navigation: bridge.glb
`))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if cfg.Window.Width != 800 || cfg.Window.Height != 720 {
		t.Errorf("Expected 800x720, got %dx%d", cfg.Window.Width, cfg.Window.Height)
	}
	if cfg.Render.ClearColor != [4]float32{0, 0, 0.2, 1} {
		t.Errorf("Expected clear color override, got %v", cfg.Render.ClearColor)
	}
	if cfg.Render.SharedLights {
		t.Errorf("Expected shared lights off")
	}
	if len(cfg.Assets.Rooms) != 1 || cfg.Assets.Rooms["navigation"] != "bridge.glb" {
		t.Errorf("Expected rooms replaced, got %v", cfg.Assets.Rooms)
	}
	if cfg.Assets.Characters["sailor"] == "" {
		t.Errorf("Expected default characters kept, got %v", cfg.Assets.Characters)
	}
}

func TestParseRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"size":    "window: {width: 0}",
		"fps":     "window: {fps_limit: -1}",
		"fov":     "render: {fov: 180}",
		"atlas":   "render: {atlas_size: 1000}",
		"room":    "assets: {rooms: {galley: g.glb}}",
		"job":     "assets: {characters: {cook: c.glb}}",
		"level":   "log: {level: loud}",
		"debug":   "debug_server: {enabled: true, addr: ''}",
		"syntax":  "window: [",
		"uiwidth": "render: {ui_reference_width: -1}",
		"noship":  "assets: {ship: ''}",
	}
	for name, doc := range cases {
		if _, err := Parse([]byte(doc)); err == nil {
			t.Errorf("%s: expected an error", name)
		}
	}
}

func TestLoadResolvesAssetPaths(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "shipview.yaml")
	doc := "assets:\n  ship: ship.glb\n  font: /fonts/a.ttf\n  characters:\n    sailor: people/sailor.glb\n"
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if want := filepath.Join(dir, "ship.glb"); cfg.Assets.Ship != want {
		t.Errorf("Expected %s, got %s", want, cfg.Assets.Ship)
	}
	if cfg.Assets.Font != "/fonts/a.ttf" {
		t.Errorf("Expected absolute font path kept, got %s", cfg.Assets.Font)
	}
	if want := filepath.Join(dir, "people", "sailor.glb"); cfg.Assets.Characters["sailor"] != want {
		t.Errorf("Expected %s, got %s", want, cfg.Assets.Characters["sailor"])
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil || !strings.Contains(err.Error(), "read config") {
		t.Errorf("Expected read error, got %v", err)
	}
}
