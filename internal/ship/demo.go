package ship

import (
	"github.com/go-gl/mathgl/mgl32"
)

// SleepingQuarters is where characters rest between shifts.
var SleepingQuarters = mgl32.Vec2{-2.5, -9.5}

const (
	walkSpeed = 5.0
	turnRate  = 20.0
	maxStep   = 1.0 / 30
)

type walker struct {
	Character
	route []mgl32.Vec2
	next  int
}

// Demo is a stand-in simulation: every character walks a fixed loop of
// waypoints through the ship.
type Demo struct {
	time    float32
	rooms   []Room
	walkers []walker
}

// NewDemo lays out a navigation room and a sails room with one navigator and
// one sailor commuting from the sleeping quarters.
func NewDemo() *Demo {
	nav := Room{Kind: RoomNavigation, Position: mgl32.Vec2{0, -4}}
	sails := Room{Kind: RoomSails, Position: mgl32.Vec2{0, 5}}
	d := &Demo{rooms: []Room{nav, sails}}
	for _, job := range []JobKind{JobNavigator, JobSailor} {
		work := nav.Position
		if job == JobSailor {
			work = sails.Position
		}
		d.walkers = append(d.walkers, walker{
			Character: Character{
				Job:       job,
				Position:  SleepingQuarters,
				LookDir:   mgl32.Vec2{1, 0},
				Animation: "walk",
			},
			route: []mgl32.Vec2{work, SleepingQuarters},
		})
	}
	return d
}

// Update advances the simulation by dt seconds. Long frames are clamped so a
// hitch does not teleport anyone.
func (d *Demo) Update(dt float32) {
	if dt > maxStep {
		dt = maxStep
	}
	d.time += dt
	for i := range d.walkers {
		d.walkers[i].step(dt)
	}
}

func (w *walker) step(dt float32) {
	w.AnimationTime += dt
	if len(w.route) == 0 {
		return
	}
	target := w.route[w.next]
	delta := target.Sub(w.Position)
	dist := delta.Len()
	stride := walkSpeed * dt
	if stride >= dist {
		w.Position = target
		w.next = (w.next + 1) % len(w.route)
	} else {
		w.Position = w.Position.Add(delta.Mul(stride / dist))
	}
	if dist > 0 {
		dir := delta.Mul(1 / dist)
		t := turnRate * dt
		if t > 1 {
			t = 1
		}
		w.LookDir = w.LookDir.Add(dir.Sub(w.LookDir).Mul(t))
	}
}

func (d *Demo) FrameState() FrameState {
	s := FrameState{Time: d.time, Rooms: d.rooms}
	s.Characters = make([]Character, len(d.walkers))
	for i, w := range d.walkers {
		s.Characters[i] = w.Character
	}
	return s
}
