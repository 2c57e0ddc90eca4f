package config

import (
	"os"
	"path/filepath"

	"ship-renderer/internal/ship"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config is the viewer configuration. Zero fields in a loaded file keep the
// values from Default.
type Config struct {
	Window      Window      `yaml:"window"`
	Assets      Assets      `yaml:"assets"`
	Render      Render      `yaml:"render"`
	DebugServer DebugServer `yaml:"debug_server"`
	Log         Log         `yaml:"log"`
}

type Window struct {
	Width    int    `yaml:"width"`
	Height   int    `yaml:"height"`
	Title    string `yaml:"title"`
	VSync    bool   `yaml:"vsync"`
	FPSLimit int    `yaml:"fps_limit"` // 0 for unlimited
}

// Assets names scene and font files. Relative paths resolve against the
// directory of the config file.
type Assets struct {
	// Font is a TTF/OTF file; empty uses the built-in Go Regular face.
	Font      string `yaml:"font"`
	Ship      string `yaml:"ship"`
	Dashboard string `yaml:"dashboard"`
	// Rooms and Characters are keyed by room and job kind names.
	Rooms      map[string]string `yaml:"rooms"`
	Characters map[string]string `yaml:"characters"`
}

type Render struct {
	ClearColor [4]float32 `yaml:"clear_color"`
	// UIReferenceWidth is the framebuffer width at which the UI scale is 1.
	UIReferenceWidth float32 `yaml:"ui_reference_width"`
	// SharedLights makes every world scene feed one frame-level light block.
	SharedLights bool    `yaml:"shared_lights"`
	FOV          float32 `yaml:"fov"` // degrees
	AtlasSize    int     `yaml:"atlas_size"`
}

type DebugServer struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

type Log struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

func Default() *Config {
	return &Config{
		Window: Window{Width: 1280, Height: 720, Title: "shipview", VSync: true},
		Assets: Assets{
			Ship:      "models/ship.glb",
			Dashboard: "models/dashboard.glb",
			Rooms: map[string]string{
				"navigation": "models/room.glb",
				"sails":      "models/room.glb",
			},
			Characters: map[string]string{
				"navigator": "models/sailor.glb",
				"sailor":    "models/sailor.glb",
			},
		},
		Render: Render{
			ClearColor:       [4]float32{0.1, 0.1, 0.1, 1},
			UIReferenceWidth: 800,
			SharedLights:     true,
			FOV:              20,
			AtlasSize:        2048,
		},
		DebugServer: DebugServer{Addr: "127.0.0.1:6061"},
		Log:         Log{Level: "info"},
	}
}

// Load reads path over Default and validates the result. Asset paths are
// made relative to the directory of path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read config")
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, errors.Wrapf(err, "config %s", path)
	}
	cfg.Assets.resolve(filepath.Dir(path))
	return cfg, nil
}

// Parse decodes YAML over Default and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	// maps merge key by key with the defaults; start them empty so a file
	// listing rooms replaces the default set
	defaults := cfg.Assets
	cfg.Assets.Rooms, cfg.Assets.Characters = nil, nil
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrap(err, "decode")
	}
	if cfg.Assets.Rooms == nil {
		cfg.Assets.Rooms = defaults.Rooms
	}
	if cfg.Assets.Characters == nil {
		cfg.Assets.Characters = defaults.Characters
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		return errors.Errorf("window size %dx%d must be positive", c.Window.Width, c.Window.Height)
	}
	if c.Window.FPSLimit < 0 {
		return errors.Errorf("fps_limit %d must not be negative", c.Window.FPSLimit)
	}
	if c.Render.UIReferenceWidth <= 0 {
		return errors.Errorf("ui_reference_width %v must be positive", c.Render.UIReferenceWidth)
	}
	if c.Render.FOV <= 0 || c.Render.FOV >= 180 {
		return errors.Errorf("fov %v out of range (0, 180)", c.Render.FOV)
	}
	if s := c.Render.AtlasSize; s < 64 || s&(s-1) != 0 {
		return errors.Errorf("atlas_size %d must be a power of two of at least 64", s)
	}
	if c.Assets.Ship == "" {
		return errors.New("assets.ship is required")
	}
	for name := range c.Assets.Rooms {
		if _, err := ship.ParseRoomKind(name); err != nil {
			return errors.Wrap(err, "assets.rooms")
		}
	}
	for name := range c.Assets.Characters {
		if _, err := ship.ParseJobKind(name); err != nil {
			return errors.Wrap(err, "assets.characters")
		}
	}
	if c.DebugServer.Enabled && c.DebugServer.Addr == "" {
		return errors.New("debug_server.addr is required when enabled")
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return errors.Errorf("unknown log level %q", c.Log.Level)
	}
	return nil
}

func (a *Assets) resolve(dir string) {
	abs := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(dir, p)
	}
	a.Font = abs(a.Font)
	a.Ship = abs(a.Ship)
	a.Dashboard = abs(a.Dashboard)
	rooms := make(map[string]string, len(a.Rooms))
	for k, v := range a.Rooms {
		rooms[k] = abs(v)
	}
	a.Rooms = rooms
	chars := make(map[string]string, len(a.Characters))
	for k, v := range a.Characters {
		chars[k] = abs(v)
	}
	a.Characters = chars
}
