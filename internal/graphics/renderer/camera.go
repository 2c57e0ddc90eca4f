package renderer

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Camera supplies the world pass matrices. Projections use reversed depth:
// the near plane maps to 1 and the far plane to 0.
type Camera interface {
	ViewProj(aspect float32) (view, proj mgl32.Mat4)
}

// FixedCamera orbits Focus at Distance, Yaw radians around the up axis and
// Pitch radians above the floor.
type FixedCamera struct {
	Distance  float32
	Yaw       float32
	Pitch     float32
	Focus     mgl32.Vec3
	FOV       float32 // degrees
	NearPlane float32
	FarPlane  float32
}

const (
	minPitch    = 30.0 / 360 * 2 * math.Pi
	maxPitch    = 90.0 / 360 * 2 * math.Pi
	minDistance = 10
	maxDistance = 50
	focusBound  = 10
)

func NewFixedCamera(fov float32) *FixedCamera {
	return &FixedCamera{
		Distance:  30,
		Yaw:       math.Pi / 2,
		Pitch:     math.Pi / 2 * 0.7,
		Focus:     mgl32.Vec3{0, 1.5, 0},
		FOV:       fov,
		NearPlane: 0.3,
		FarPlane:  100,
	}
}

// Eye returns the camera position.
func (c *FixedCamera) Eye() mgl32.Vec3 {
	offset := mgl32.Rotate3DY(-c.Yaw).Mul3(mgl32.Rotate3DX(-c.Pitch)).Mul3x1(mgl32.Vec3{0, 0, c.Distance})
	return c.Focus.Add(offset)
}

func (c *FixedCamera) View() mgl32.Mat4 {
	eye := c.Eye()
	return mgl32.HomogRotate3DX(c.Pitch).
		Mul4(mgl32.HomogRotate3DY(c.Yaw)).
		Mul4(mgl32.Translate3D(-eye.X(), -eye.Y(), -eye.Z()))
}

func (c *FixedCamera) ViewProj(aspect float32) (view, proj mgl32.Mat4) {
	// swapping the planes reverses depth
	proj = mgl32.Perspective(mgl32.DegToRad(c.FOV), aspect, c.FarPlane, c.NearPlane)
	return c.View(), proj
}

// Pan moves the focus along the floor by a screen-relative amount scaled
// with the distance.
func (c *FixedCamera) Pan(x, y float32) {
	s := 0.4 * c.Distance
	move := mgl32.Rotate3DY(-(c.Yaw + math.Pi)).Mul3x1(mgl32.Vec3{x * s, 0, y * s})
	f := c.Focus.Add(move)
	for i := range f {
		f[i] = mgl32.Clamp(f[i], -focusBound, focusBound)
	}
	c.Focus = f
}

// Rotate turns the camera by pixel deltas.
func (c *FixedCamera) Rotate(dx, dy float32) {
	c.Yaw += dx * 0.01
	c.Pitch = mgl32.Clamp(c.Pitch+dy*0.01, minPitch, maxPitch)
}

// Zoom moves the camera towards the focus by scroll steps.
func (c *FixedCamera) Zoom(steps float32) {
	c.Distance = mgl32.Clamp(c.Distance-steps*10, minDistance, maxDistance)
}

// maxFloorDistance bounds ClipToShip results, including rays that miss the
// floor.
const maxFloorDistance = 100

// ClipToShip casts the ray through clip-space point clip onto the floor plane
// y = 0 and returns the hit in ship coordinates (world x, z).
func ClipToShip(c Camera, clip mgl32.Vec2, aspect float32) mgl32.Vec2 {
	view, proj := c.ViewProj(aspect)
	p := proj.Inv().Mul4x1(mgl32.Vec4{clip.X(), clip.Y(), 1, 1})
	p = p.Mul(1 / p.W())
	dir := view.Inv().Mul4x1(p.Vec3().Normalize().Vec4(0)).Vec3().Normalize()

	inf := float32(math.Inf(1))
	hit := mgl32.Vec2{inf, inf}
	if dir.Y() < 0 {
		origin := view.Inv().Col(3).Vec3()
		length := float32(math.Abs(float64(origin.Y() / dir.Y())))
		floor := origin.Add(dir.Mul(length))
		hit = mgl32.Vec2{floor.X(), floor.Z()}
	}
	for i := range hit {
		hit[i] = mgl32.Clamp(hit[i], -maxFloorDistance, maxFloorDistance)
	}
	return hit
}
