package scene

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
	"github.com/qmuntal/gltf"
)

// Path is the node property a channel drives.
type Path int

const (
	Translation Path = iota
	Rotation
	Scale
)

func (p Path) String() string {
	switch p {
	case Translation:
		return "translation"
	case Rotation:
		return "rotation"
	case Scale:
		return "scale"
	}
	return fmt.Sprintf("Path(%d)", int(p))
}

type Interpolation int

const (
	Linear Interpolation = iota
	Step
	CubicSpline
)

func (i Interpolation) String() string {
	switch i {
	case Linear:
		return "LINEAR"
	case Step:
		return "STEP"
	case CubicSpline:
		return "CUBICSPLINE"
	}
	return fmt.Sprintf("Interpolation(%d)", int(i))
}

// Channel is one keyframed property of one node. Vectors holds translation or
// scale keys, Rotations holds rotation keys. CubicSpline channels store three
// values per key: in-tangent, value, out-tangent.
type Channel struct {
	Times         []float32
	Path          Path
	Interpolation Interpolation
	Vectors       []mgl32.Vec3
	Rotations     []mgl32.Quat
}

// Animation holds the channels of every node, indexed like the graph's nodes.
type Animation struct {
	Name     string
	Channels [][]Channel
	// Start and Length span the keyframes of all channels.
	Start, Length float32
}

// NodeTransform is the local transform of one node, indexed like the graph's
// nodes.
type NodeTransform struct {
	Name      string
	Transform mgl32.Mat4
}

// Animate overwrites the animated properties of transforms with their values
// at time t. Properties without a channel keep their current value.
func (a *Animation) Animate(transforms []NodeTransform, t float32) {
	if len(transforms) != len(a.Channels) {
		panic(fmt.Sprintf("scene: animating %d transforms with %d node channels", len(transforms), len(a.Channels)))
	}
	for i, channels := range a.Channels {
		if len(channels) == 0 {
			continue
		}
		s, r, tr := decompose(transforms[i].Transform)
		for k := range channels {
			c := &channels[k]
			switch c.Path {
			case Translation:
				tr = c.sampleVector(t)
			case Rotation:
				r = c.sampleRotation(t)
			case Scale:
				s = c.sampleVector(t)
			}
		}
		transforms[i].Transform = compose(s, r, tr)
	}
}

// key finds the keyframe interval containing t, looping at the last
// timestamp. It returns the interval start i and the normalized position u
// inside it; single is set when t falls outside any interval and the key at i
// should be held.
func (c *Channel) key(t float32) (i int, u, span float32, single bool) {
	times := c.Times
	last := times[len(times)-1]
	if last > 0 {
		t = float32(math.Mod(float64(t), float64(last)))
	}
	if len(times) == 1 || t < times[0] {
		return 0, 0, 0, true
	}
	for i = 0; i+1 < len(times); i++ {
		if times[i] <= t && t < times[i+1] {
			span = times[i+1] - times[i]
			return i, (t - times[i]) / span, span, false
		}
	}
	return len(times) - 1, 0, 0, true
}

func (c *Channel) value(i int) int {
	if c.Interpolation == CubicSpline {
		return 3*i + 1
	}
	return i
}

func hermite(u float32) (h00, h10, h01, h11 float32) {
	u2, u3 := u*u, u*u*u
	return 2*u3 - 3*u2 + 1, u3 - 2*u2 + u, -2*u3 + 3*u2, u3 - u2
}

func (c *Channel) sampleVector(t float32) mgl32.Vec3 {
	v := c.Vectors
	i, u, span, single := c.key(t)
	if single {
		return v[c.value(i)]
	}
	switch c.Interpolation {
	case Step:
		return v[i]
	case CubicSpline:
		h00, h10, h01, h11 := hermite(u)
		return v[3*i+1].Mul(h00).
			Add(v[3*i+2].Mul(span * h10)).
			Add(v[3*(i+1)+1].Mul(h01)).
			Add(v[3*(i+1)].Mul(span * h11))
	}
	return v[i].Mul(1 - u).Add(v[i+1].Mul(u))
}

func (c *Channel) sampleRotation(t float32) mgl32.Quat {
	q := c.Rotations
	i, u, span, single := c.key(t)
	if single {
		return q[c.value(i)]
	}
	switch c.Interpolation {
	case Step:
		return q[i]
	case CubicSpline:
		h00, h10, h01, h11 := hermite(u)
		return q[3*i+1].Scale(h00).
			Add(q[3*i+2].Scale(span * h10)).
			Add(q[3*(i+1)+1].Scale(h01)).
			Add(q[3*(i+1)].Scale(span * h11)).
			Normalize()
	}
	return slerp(q[i], q[i+1], u)
}

// slerp interpolates along the shorter arc. Nearly parallel rotations fall
// back to a normalized lerp where sin(theta) would divide by ~0.
func slerp(a, b mgl32.Quat, u float32) mgl32.Quat {
	dot := a.Dot(b)
	if dot < 0 {
		b = b.Scale(-1)
		dot = -dot
	}
	if dot > 0.9995 {
		return a.Scale(1 - u).Add(b.Scale(u)).Normalize()
	}
	theta := float32(math.Acos(float64(dot)))
	sin := float32(math.Sin(float64(theta)))
	wa := float32(math.Sin(float64((1-u)*theta))) / sin
	wb := float32(math.Sin(float64(u*theta))) / sin
	return a.Scale(wa).Add(b.Scale(wb))
}

// decompose splits an affine transform into scale, rotation and translation.
// Mirroring is folded into a negative x scale.
func decompose(m mgl32.Mat4) (s mgl32.Vec3, r mgl32.Quat, t mgl32.Vec3) {
	t = m.Col(3).Vec3()
	c0, c1, c2 := m.Col(0).Vec3(), m.Col(1).Vec3(), m.Col(2).Vec3()
	s = mgl32.Vec3{c0.Len(), c1.Len(), c2.Len()}
	if m.Det() < 0 {
		s[0] = -s[0]
	}
	if s[0] == 0 || s[1] == 0 || s[2] == 0 {
		return s, mgl32.QuatIdent(), t
	}
	rot := mgl32.Mat3FromCols(c0.Mul(1/s[0]), c1.Mul(1/s[1]), c2.Mul(1/s[2]))
	return s, mgl32.Mat4ToQuat(rot.Mat4()).Normalize(), t
}

func compose(s mgl32.Vec3, r mgl32.Quat, t mgl32.Vec3) mgl32.Mat4 {
	return mgl32.Translate3D(t[0], t[1], t[2]).
		Mul4(r.Mat4()).
		Mul4(mgl32.Scale3D(s[0], s[1], s[2]))
}

func interpolation(i gltf.Interpolation) (Interpolation, error) {
	switch i {
	case gltf.InterpolationLinear:
		return Linear, nil
	case gltf.InterpolationStep:
		return Step, nil
	case gltf.InterpolationCubicSpline:
		return CubicSpline, nil
	}
	return 0, errors.Wrapf(ErrUnsupported, "interpolation %v", i)
}

func (l *loader) loadAnimations() ([]*Animation, error) {
	var out []*Animation
	for ai, src := range l.doc.Animations {
		a := &Animation{Name: src.Name, Channels: make([][]Channel, len(l.doc.Nodes))}
		first, last := float32(math.Inf(1)), float32(math.Inf(-1))
		for ci, ch := range src.Channels {
			if ch.Target.Node == nil {
				continue
			}
			node := int(*ch.Target.Node)
			if ch.Sampler == nil || node >= len(l.doc.Nodes) || int(*ch.Sampler) >= len(src.Samplers) {
				return nil, errors.Errorf("animation %d channel %d: node or sampler out of range", ai, ci)
			}
			smp := src.Samplers[*ch.Sampler]
			if smp.Input == nil || smp.Output == nil {
				return nil, errors.Errorf("animation %d channel %d: sampler without input or output", ai, ci)
			}
			c, err := l.channel(ch.Target.Path, *smp.Input, *smp.Output, smp.Interpolation)
			if err != nil {
				return nil, errors.Wrapf(err, "animation %d channel %d", ai, ci)
			}
			a.Channels[node] = append(a.Channels[node], c)
			first = min(first, c.Times[0])
			last = max(last, c.Times[len(c.Times)-1])
		}
		if first <= last {
			a.Start, a.Length = first, last-first
		}
		out = append(out, a)
	}
	return out, nil
}

func (l *loader) channel(path gltf.TRSProperty, input, output uint32, interp gltf.Interpolation) (Channel, error) {
	var c Channel
	var err error
	if c.Interpolation, err = interpolation(interp); err != nil {
		return c, err
	}
	times, err := l.keyframes(input, 1)
	if err != nil {
		return c, err
	}
	c.Times = times.([]float32)
	if len(c.Times) == 0 {
		return c, errors.New("no keyframes")
	}
	for i := 1; i < len(c.Times); i++ {
		if c.Times[i] <= c.Times[i-1] {
			return c, errors.Errorf("timestamp %d (%v) does not increase", i, c.Times[i])
		}
	}

	want := len(c.Times)
	if c.Interpolation == CubicSpline {
		want *= 3
	}
	switch path {
	case gltf.TRSTranslation, gltf.TRSScale:
		c.Path = Translation
		if path == gltf.TRSScale {
			c.Path = Scale
		}
		v, err := l.keyframes(output, 3)
		if err != nil {
			return c, err
		}
		for _, k := range v.([][3]float32) {
			c.Vectors = append(c.Vectors, mgl32.Vec3(k))
		}
		if len(c.Vectors) != want {
			return c, errors.Errorf("%v: %d values for %d keys", path, len(c.Vectors), len(c.Times))
		}
	case gltf.TRSRotation:
		c.Path = Rotation
		v, err := l.keyframes(output, 4)
		if err != nil {
			return c, err
		}
		for _, k := range v.([][4]float32) {
			// stored as x, y, z, w
			c.Rotations = append(c.Rotations, mgl32.Quat{W: k[3], V: mgl32.Vec3{k[0], k[1], k[2]}})
		}
		if len(c.Rotations) != want {
			return c, errors.Errorf("rotation: %d values for %d keys", len(c.Rotations), len(c.Times))
		}
	default:
		return c, errors.Wrapf(ErrUnsupported, "animation path %v", path)
	}
	return c, nil
}
