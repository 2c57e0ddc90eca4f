package renderer

import (
	"ship-renderer/internal/config"
	"ship-renderer/internal/graphics/gpu"
	"ship-renderer/internal/scene"
	"ship-renderer/internal/ship"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Scenes is the library of loaded scenes. Kinds without a scene draw
// nothing.
type Scenes struct {
	Ship       *scene.Graph
	Dashboard  *scene.Graph
	Rooms      [ship.RoomKindCount]*scene.Graph
	Characters [ship.JobKindCount]*scene.Graph
}

func (s *Scenes) room(k ship.RoomKind) *scene.Graph {
	if k < 0 || k >= ship.RoomKindCount {
		return nil
	}
	return s.Rooms[k]
}

func (s *Scenes) character(k ship.JobKind) *scene.Graph {
	if k < 0 || k >= ship.JobKindCount {
		return nil
	}
	return s.Characters[k]
}

// LoadScenes loads every scene named by assets. Kinds sharing a file share
// one graph. World scenes feed the frame light block when shared is set;
// the dashboard always carries its own lights.
func LoadScenes(dev gpu.Device, assets config.Assets, shared bool, log *zap.Logger) (_ *Scenes, err error) {
	s := &Scenes{}
	defer func() {
		if err != nil {
			s.Release()
		}
	}()

	world := map[string]*scene.Graph{}
	load := func(path string, opts scene.Options, cache map[string]*scene.Graph) (*scene.Graph, error) {
		if path == "" {
			return nil, nil
		}
		if g, ok := cache[path]; ok {
			return g, nil
		}
		opts.Log = log
		g, err := scene.LoadFile(dev, path, opts)
		if err != nil {
			return nil, err
		}
		cache[path] = g
		log.Info("scene loaded", zap.String("path", path), zap.Int("nodes", len(g.Nodes)))
		return g, nil
	}

	worldOpts := scene.Options{SharedLights: shared}
	if s.Ship, err = load(assets.Ship, worldOpts, world); err != nil {
		return nil, err
	}
	if s.Dashboard, err = load(assets.Dashboard, scene.Options{}, map[string]*scene.Graph{}); err != nil {
		return nil, err
	}
	for name, path := range assets.Rooms {
		k, err := ship.ParseRoomKind(name)
		if err != nil {
			return nil, err
		}
		if s.Rooms[k], err = load(path, worldOpts, world); err != nil {
			return nil, errors.WithMessagef(err, "room %s", k)
		}
	}
	for name, path := range assets.Characters {
		k, err := ship.ParseJobKind(name)
		if err != nil {
			return nil, err
		}
		if s.Characters[k], err = load(path, worldOpts, world); err != nil {
			return nil, errors.WithMessagef(err, "character %s", k)
		}
	}
	return s, nil
}

// Summaries describes every loaded scene, keyed by role.
func (s *Scenes) Summaries() map[string]scene.Summary {
	out := map[string]scene.Summary{}
	if s.Ship != nil {
		out["ship"] = s.Ship.Summary()
	}
	if s.Dashboard != nil {
		out["dashboard"] = s.Dashboard.Summary()
	}
	for k, g := range s.Rooms {
		if g != nil {
			out["room/"+ship.RoomKind(k).String()] = g.Summary()
		}
	}
	for k, g := range s.Characters {
		if g != nil {
			out["character/"+ship.JobKind(k).String()] = g.Summary()
		}
	}
	return out
}

// Release frees every graph once, however many kinds share it.
func (s *Scenes) Release() {
	all := []*scene.Graph{s.Ship, s.Dashboard}
	all = append(all, s.Rooms[:]...)
	all = append(all, s.Characters[:]...)
	for _, g := range all {
		if g != nil {
			g.Release()
		}
	}
}
