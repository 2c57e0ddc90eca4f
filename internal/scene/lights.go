package scene

import (
	"math"

	"ship-renderer/internal/graphics/shader"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/ext/lightspuntual"
)

// documentLights returns the light definitions of the document. The
// extension decodes into typed values when the document is parsed; anything
// else means the payload was malformed.
func documentLights(exts gltf.Extensions) (lightspuntual.Lights, error) {
	switch ext := exts[lightspuntual.ExtensionName].(type) {
	case nil:
		return nil, nil
	case lightspuntual.Lights:
		return ext, nil
	default:
		return nil, errors.Errorf("%s: malformed lights", lightspuntual.ExtensionName)
	}
}

// nodeLight returns the light referenced by a node, if any.
func nodeLight(exts gltf.Extensions) (lightspuntual.LightIndex, bool, error) {
	switch ext := exts[lightspuntual.ExtensionName].(type) {
	case nil:
		return 0, false, nil
	case lightspuntual.LightIndex:
		return ext, true, nil
	default:
		return 0, false, errors.Errorf("%s: malformed light reference", lightspuntual.ExtensionName)
	}
}

// spotParams returns the angle scale and offset that map the cosine between
// the light direction and the surface direction to a [0, 1] cone factor.
func spotParams(inner, outer float32) (scale, offset float32) {
	ci := float32(math.Cos(float64(inner)))
	co := float32(math.Cos(float64(outer)))
	scale = 1 / max(0.001, ci-co)
	return scale, -co * scale
}

// packLight converts a light definition placed at world into the std140 entry i.
func packLight(dst *shader.Lights, i int, def *lightspuntual.Light, world mgl32.Mat4) error {
	var kind float32
	switch def.Type {
	case lightspuntual.TypeDirectional:
		kind = shader.LightDirectional
	case lightspuntual.TypePoint:
		kind = shader.LightPoint
	case lightspuntual.TypeSpot:
		kind = shader.LightSpot
	default:
		return errors.Errorf("light type %q", def.Type)
	}

	color := def.ColorOrDefault()
	intensity := def.IntensityOrDefault()
	spot := def.Spot
	if spot == nil {
		spot = &lightspuntual.Spot{}
	}
	inner, outer := spot.InnerConeAngle, spot.OuterConeAngleOrDefault()
	scale, offset := spotParams(inner, outer)

	pos := world.Mul4x1(mgl32.Vec4{0, 0, 0, 1})
	// lights point down their local -Z
	dir := world.Mul4x1(mgl32.Vec4{0, 0, -1, 0})

	dst.ColorAndKind[i] = [4]float32{color[0], color[1], color[2], kind}
	dst.IntensityParams[i] = [4]float32{intensity, scale, offset, 0}
	dst.Position[i] = pos
	dst.Direction[i] = dir
	return nil
}

// loadLights places every node light of the document using the node's
// scene-space transform.
func (l *loader) loadLights(world []mgl32.Mat4) (shader.Lights, int, error) {
	var lights shader.Lights
	defs, err := documentLights(l.doc.Extensions)
	if err != nil {
		return lights, 0, err
	}

	n := 0
	for i, node := range l.doc.Nodes {
		ref, ok, err := nodeLight(node.Extensions)
		if err != nil {
			return lights, 0, errors.Wrapf(err, "node %d", i)
		}
		if !ok {
			continue
		}
		if n == shader.MaxLights {
			return lights, 0, errors.Wrapf(ErrUnsupported, "more than %d lights", shader.MaxLights)
		}
		if int(ref) >= len(defs) || defs[ref] == nil {
			return lights, 0, errors.Errorf("node %d: light %d out of range", i, ref)
		}
		if err := packLight(&lights, n, defs[ref], world[i]); err != nil {
			return lights, 0, errors.Wrapf(err, "node %d", i)
		}
		n++
	}
	return lights, n, nil
}
