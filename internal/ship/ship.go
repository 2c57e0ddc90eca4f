// Package ship holds the simulation-facing types the renderer consumes each
// frame. The simulation itself lives elsewhere and hands over a FrameState.
package ship

import (
	"strconv"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
)

// RoomKind selects the scene drawn for a room.
type RoomKind int

const (
	RoomEmpty RoomKind = iota
	RoomNavigation
	RoomSails
	RoomKindCount // sentinel for array sizing
)

var roomNames = [RoomKindCount]string{
	RoomEmpty:      "empty",
	RoomNavigation: "navigation",
	RoomSails:      "sails",
}

func (k RoomKind) String() string {
	if k < 0 || k >= RoomKindCount {
		return "room(" + strconv.Itoa(int(k)) + ")"
	}
	return roomNames[k]
}

// ParseRoomKind maps a configuration key to its room kind.
func ParseRoomKind(s string) (RoomKind, error) {
	for k, name := range roomNames {
		if strings.EqualFold(s, name) {
			return RoomKind(k), nil
		}
	}
	return 0, errors.Errorf("unknown room kind %q", s)
}

// JobKind selects the scene drawn for a character.
type JobKind int

const (
	JobNavigator JobKind = iota
	JobSailor
	JobKindCount
)

var jobNames = [JobKindCount]string{
	JobNavigator: "navigator",
	JobSailor:    "sailor",
}

func (k JobKind) String() string {
	if k < 0 || k >= JobKindCount {
		return "job(" + strconv.Itoa(int(k)) + ")"
	}
	return jobNames[k]
}

func ParseJobKind(s string) (JobKind, error) {
	for k, name := range jobNames {
		if strings.EqualFold(s, name) {
			return JobKind(k), nil
		}
	}
	return 0, errors.Errorf("unknown job kind %q", s)
}

// Room is placed on the ship floor. Position is in ship space, where x and y
// map to world x and z.
type Room struct {
	Kind     RoomKind
	Position mgl32.Vec2
}

type Character struct {
	Job      JobKind
	Position mgl32.Vec2
	// LookDir need not be normalized. The zero vector faces +y.
	LookDir mgl32.Vec2
	// Animation names the clip to play; empty draws the rest pose.
	Animation     string
	AnimationTime float32
}

// FrameState is a snapshot of everything visible in one frame.
type FrameState struct {
	// Time is the simulation clock in seconds.
	Time       float32
	Rooms      []Room
	Characters []Character
}

// StateSource is implemented by the simulation.
type StateSource interface {
	FrameState() FrameState
}

// StateFunc adapts a function to StateSource.
type StateFunc func() FrameState

func (f StateFunc) FrameState() FrameState { return f() }
