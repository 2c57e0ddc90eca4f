package scene

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"math"
	"testing"

	"ship-renderer/internal/graphics/drawcalls"
	"ship-renderer/internal/graphics/gpu/gputest"

	"go.uber.org/zap"
)

// Binary layout of the test buffer:
//
//	0   positions, 3 x vec3
//	36  indices, 3 x uint16 (+2 padding)
//	44  keyframe times, 2 x float
//	52  translation keys, 2 x vec3
const fixtureBufferLen = 76

type object = map[string]any

func le(values ...any) []byte {
	var b bytes.Buffer
	for _, v := range values {
		binary.Write(&b, binary.LittleEndian, v)
	}
	return b.Bytes()
}

func fixtureBuffer(times [2]float32) []byte {
	b := le(
		[]float32{0, 0, 0, 1, 0, 0, 0, 1, 0},
		[]uint16{0, 1, 2, 0},
		times[:],
		[]float32{0, 0, 0, 0, 4, 0},
	)
	if len(b) != fixtureBufferLen {
		panic("fixture buffer layout changed")
	}
	return b
}

// triangleDoc is a single triangle node drawn with one material.
func triangleDoc() object {
	return object{
		"asset":  object{"version": "2.0"},
		"scene":  0,
		"scenes": []any{object{"nodes": []any{0}}},
		"nodes":  []any{object{"name": "hull", "mesh": 0}},
		"meshes": []any{object{
			"name": "tri",
			"primitives": []any{object{
				"attributes": object{"POSITION": 0},
				"indices":    1,
				"material":   0,
			}},
		}},
		"materials": []any{object{
			"name": "paint",
			"pbrMetallicRoughness": object{
				"baseColorFactor": []any{0.5, 0.25, 1, 1},
				"metallicFactor":  0,
			},
		}},
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
		"buffers": []any{object{"byteLength": fixtureBufferLen, "uri": "tri.bin"}},
	}
}

func encode(t testing.TB, doc object) []byte {
	t.Helper()
	b, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal fixture: %v", err)
	}
	return b
}

func triangleResources() Resources {
	return Resources{"tri.bin": fixtureBuffer([2]float32{0, 2})}
}

func load(t testing.TB, dev *gputest.Device, doc object, res Resources, opts Options) *Graph {
	t.Helper()
	g, err := Load(dev, encode(t, doc), res, opts)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	return g
}

func newBatches(dev *gputest.Device) *drawcalls.Batches {
	return drawcalls.New(dev, zap.NewNop())
}

func near(a, b float32) bool { return math.Abs(float64(a-b)) < 1e-4 }

func nearVec(a, b []float32) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !near(a[i], b[i]) {
			return false
		}
	}
	return true
}
