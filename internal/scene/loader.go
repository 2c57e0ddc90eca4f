// Package scene loads glTF 2.0 scenes into GPU objects and submits them to
// the draw-call batches, optionally with animated node transforms.
package scene

import (
	"encoding/base64"
	"encoding/json"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"ship-renderer/internal/graphics/arena"
	"ship-renderer/internal/graphics/drawcalls"
	"ship-renderer/internal/graphics/gpu"
	"ship-renderer/internal/graphics/shader"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/ext/lightspuntual"
	"go.uber.org/zap"
)

// ErrUnsupported is wrapped by load errors for valid glTF the renderer does
// not handle.
var ErrUnsupported = errors.New("unsupported glTF feature")

// Resources maps URIs referenced by the document to their contents. The GLB
// binary chunk is stored under "".
type Resources map[string][]byte

type Options struct {
	// SharedLights leaves the lights block of every material unbound and
	// submits the scene's lights to the batches instead, so several scenes
	// light each other.
	SharedLights bool
	Log          *zap.Logger
}

var supportedExtensions = map[string]bool{
	lightspuntual.ExtensionName: true,
}

// Vertex attribute semantics and the shader locations they feed.
var attributeLocations = map[string]uint32{
	gltf.POSITION:   shader.AttrPosition,
	gltf.NORMAL:     shader.AttrNormal,
	gltf.TANGENT:    shader.AttrTangent,
	gltf.TEXCOORD_0: shader.AttrTexcoord0,
	gltf.TEXCOORD_1: shader.AttrTexcoord1,
	gltf.COLOR_0:    shader.AttrColor0,
}

type loader struct {
	dev     gpu.Device
	log     *zap.Logger
	opts    Options
	doc     gltf.Document
	res     Resources
	buffers [][]byte
	g       *Graph

	textures         *textureSet
	fallbackMaterial int
}

// LoadFile loads a .gltf or .glb file. Relative URIs are read from the
// file's directory.
func LoadFile(dev gpu.Device, path string, opts Options) (*Graph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "load scene")
	}
	docJSON := data
	res := Resources{}
	if strings.EqualFold(filepath.Ext(path), ".glb") {
		var bin []byte
		if docJSON, bin, err = splitGLB(data); err != nil {
			return nil, errors.Wrapf(err, "load %s", path)
		}
		if bin != nil {
			res[""] = bin
		}
	}

	uris, err := externalURIs(docJSON)
	if err != nil {
		return nil, errors.Wrapf(err, "load %s", path)
	}
	dir := filepath.Dir(path)
	for _, uri := range uris {
		name, err := url.PathUnescape(uri)
		if err != nil {
			name = uri
		}
		b, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(name)))
		if err != nil {
			return nil, errors.Wrapf(err, "load %s", path)
		}
		res[uri] = b
	}

	g, err := Load(dev, docJSON, res, opts)
	if err != nil {
		return nil, errors.Wrapf(err, "load %s", path)
	}
	return g, nil
}

// externalURIs lists the buffer and image URIs that are neither embedded
// nor data URIs.
func externalURIs(docJSON []byte) ([]string, error) {
	var doc gltf.Document
	if err := json.Unmarshal(docJSON, &doc); err != nil {
		return nil, err
	}
	var out []string
	for _, b := range doc.Buffers {
		if b.URI != "" && !isDataURI(b.URI) {
			out = append(out, b.URI)
		}
	}
	for _, img := range doc.Images {
		if img.URI != "" && !isDataURI(img.URI) {
			out = append(out, img.URI)
		}
	}
	return out, nil
}

// LoadGLB loads a binary glTF container. res supplies any external URIs.
func LoadGLB(dev gpu.Device, glb []byte, res Resources, opts Options) (*Graph, error) {
	docJSON, bin, err := splitGLB(glb)
	if err != nil {
		return nil, err
	}
	all := Resources{}
	for k, v := range res {
		all[k] = v
	}
	if bin != nil {
		all[""] = bin
	}
	return Load(dev, docJSON, all, opts)
}

// Load creates the GPU objects of the glTF JSON document doc. On error every
// object created so far is released.
func Load(dev gpu.Device, doc []byte, res Resources, opts Options) (g *Graph, err error) {
	l := &loader{dev: dev, log: opts.Log, opts: opts, res: res, fallbackMaterial: -1}
	if l.log == nil {
		l.log = zap.NewNop()
	}
	if err := json.Unmarshal(doc, &l.doc); err != nil {
		return nil, errors.Wrap(err, "parse glTF")
	}
	for _, ext := range l.doc.ExtensionsRequired {
		if !supportedExtensions[ext] {
			return nil, errors.Wrapf(ErrUnsupported, "required extension %q", ext)
		}
	}

	l.g = &Graph{
		dev:      dev,
		shared:   opts.SharedLights,
		indices:  arena.New(dev, gpu.ElementArrayBuffer, gpu.StaticDraw),
		uniforms: arena.New(dev, gpu.UniformBuffer, gpu.StaticDraw),
	}
	defer func() {
		if err != nil {
			l.g.Release()
			g = nil
		}
	}()

	steps := []struct {
		name string
		fn   func() error
	}{
		{"buffers", l.loadBuffers},
		{"materials", l.loadMaterials},
		{"meshes", l.loadMeshes},
		{"nodes", l.loadNodes},
		{"lights", l.placeLights},
	}
	for _, step := range steps {
		if err := step.fn(); err != nil {
			return nil, errors.WithMessage(err, step.name)
		}
	}
	if l.g.Animations, err = l.loadAnimations(); err != nil {
		return nil, err
	}

	s := l.g.Summary()
	l.log.Debug("scene loaded",
		zap.Int("nodes", s.Nodes),
		zap.Int("primitives", s.Primitives),
		zap.Int("materials", s.Materials),
		zap.Int("textures", s.Textures),
		zap.Int("lights", s.Lights),
		zap.Int("animations", len(s.Animations)),
		zap.Int("index_bytes", l.g.indices.Len()))
	return l.g, nil
}

func isDataURI(uri string) bool { return strings.HasPrefix(uri, "data:") }

func decodeDataURI(uri string) ([]byte, error) {
	meta, data, ok := strings.Cut(strings.TrimPrefix(uri, "data:"), ",")
	if !ok {
		return nil, errors.New("malformed data URI")
	}
	if strings.HasSuffix(meta, ";base64") {
		return base64.StdEncoding.DecodeString(data)
	}
	s, err := url.PathUnescape(data)
	return []byte(s), err
}

func (l *loader) resource(uri string) ([]byte, error) {
	if isDataURI(uri) {
		b, err := decodeDataURI(uri)
		return b, errors.Wrap(err, "data URI")
	}
	b, ok := l.res[uri]
	if !ok {
		if uri == "" {
			return nil, errors.New("no binary chunk")
		}
		return nil, errors.Errorf("resource %q not provided", uri)
	}
	return b, nil
}

// loadBuffers resolves the data of every buffer and uploads it whole. Vertex
// attributes read straight from these buffers.
func (l *loader) loadBuffers() error {
	for i, b := range l.doc.Buffers {
		data, err := l.resource(b.URI)
		if err != nil {
			return errors.Wrapf(err, "buffer %d", i)
		}
		n := int(b.ByteLength)
		// the binary chunk may carry up to 3 bytes of padding
		slack := 0
		if b.URI == "" {
			slack = 3
		}
		if len(data) < n || len(data) > n+slack {
			return errors.Errorf("buffer %d: byteLength %d, got %d bytes", i, n, len(data))
		}
		data = data[:n]
		b.Data = data
		l.buffers = append(l.buffers, data)

		buf := l.dev.NewBuffer()
		l.dev.BufferData(gpu.ArrayBuffer, buf, n, data, gpu.StaticDraw)
		l.g.buffers = append(l.g.buffers, buf)
	}
	return nil
}

func (l *loader) loadMeshes() error {
	for mi, m := range l.doc.Meshes {
		mesh := Mesh{Name: m.Name}
		for pi, p := range m.Primitives {
			prim, err := l.primitive(p)
			if err != nil {
				return errors.Wrapf(err, "mesh %d primitive %d", mi, pi)
			}
			mesh.Primitives = append(mesh.Primitives, prim)
		}
		l.g.Meshes = append(l.g.Meshes, mesh)
	}
	return nil
}

func primitiveMode(m gltf.PrimitiveMode) gpu.Enum {
	switch m {
	case gltf.PrimitivePoints:
		return gpu.Points
	case gltf.PrimitiveLines:
		return gpu.Lines
	case gltf.PrimitiveLineLoop:
		return gpu.LineLoop
	case gltf.PrimitiveLineStrip:
		return gpu.LineStrip
	case gltf.PrimitiveTriangleStrip:
		return gpu.TriangleStrip
	case gltf.PrimitiveTriangleFan:
		return gpu.TriangleFan
	}
	return gpu.Triangles
}

func (l *loader) primitive(p *gltf.Primitive) (Primitive, error) {
	if p.Indices == nil {
		return Primitive{}, errors.Wrap(ErrUnsupported, "primitive without indices")
	}
	idx, err := l.resolve(*p.Indices)
	if err != nil {
		return Primitive{}, err
	}
	if idx.size != 1 || (idx.typ != gpu.UnsignedByte && idx.typ != gpu.UnsignedShort && idx.typ != gpu.UnsignedInt) {
		return Primitive{}, errors.Errorf("index accessor %d is not an unsigned scalar", *p.Indices)
	}

	vao := l.dev.NewVertexArray()
	l.g.vaos = append(l.g.vaos, vao)
	l.dev.BindVertexArray(vao)
	defer l.dev.BindVertexArray(0)

	hasColor := false
	for semantic, accessor := range p.Attributes {
		loc, ok := attributeLocations[semantic]
		if !ok {
			return Primitive{}, errors.Wrapf(ErrUnsupported, "attribute %s", semantic)
		}
		v, err := l.resolve(accessor)
		if err != nil {
			return Primitive{}, errors.Wrap(err, semantic)
		}
		l.dev.VertexAttribPointer(loc, l.g.buffers[v.buffer], v.size, v.typ, v.normalized, 0, v.offset)
		hasColor = hasColor || loc == shader.AttrColor0
	}

	indexBuf, indexOff := l.g.indices.Allocate(l.bytes(idx))
	l.dev.BindBuffer(gpu.ElementArrayBuffer, indexBuf)

	material := -1
	if p.Material != nil {
		if int(*p.Material) >= len(l.g.Materials) {
			return Primitive{}, errors.Errorf("material %d out of range", *p.Material)
		}
		material = int(*p.Material)
	} else {
		material = l.defaultMaterial()
	}

	return Primitive{
		Material: material,
		DrawCall: drawcalls.DrawCall{
			VAO:             vao,
			Mode:            primitiveMode(p.Mode),
			IndexBuffer:     indexBuf,
			IndexType:       idx.typ,
			IndexOffset:     indexOff,
			IndexCount:      int32(idx.count),
			DefaultColor:    !hasColor,
			DefaultColorLoc: shader.AttrColor0,
		},
	}, nil
}

func (l *loader) loadNodes() error {
	for i, n := range l.doc.Nodes {
		node := Node{Name: n.Name, Mesh: -1}
		if n.Mesh != nil {
			if int(*n.Mesh) >= len(l.g.Meshes) {
				return errors.Errorf("node %d: mesh %d out of range", i, *n.Mesh)
			}
			node.Mesh = int(*n.Mesh)
		}
		for _, c := range n.Children {
			if int(c) >= len(l.doc.Nodes) {
				return errors.Errorf("node %d: child %d out of range", i, c)
			}
			node.Children = append(node.Children, int(c))
		}
		node.Transform = localTransform(n)
		node.OriginalTransform = node.Transform
		l.g.Nodes = append(l.g.Nodes, node)
	}

	if err := l.g.checkHierarchy(); err != nil {
		return err
	}

	for i, s := range l.doc.Scenes {
		var roots []int
		for _, n := range s.Nodes {
			if int(n) >= len(l.g.Nodes) {
				return errors.Errorf("scene %d: node %d out of range", i, n)
			}
			roots = append(roots, int(n))
		}
		l.g.Scenes = append(l.g.Scenes, roots)
	}
	if l.doc.Scene != nil {
		l.g.Scene = int(*l.doc.Scene)
	}
	if len(l.g.Scenes) > 0 && l.g.Scene >= len(l.g.Scenes) {
		return errors.Errorf("default scene %d out of range", l.g.Scene)
	}
	return nil
}

// localTransform prefers an explicit matrix and otherwise composes
// translation, rotation and scale.
func localTransform(n *gltf.Node) mgl32.Mat4 {
	m := mgl32.Mat4(n.Matrix)
	if m != (mgl32.Mat4{}) && m != mgl32.Ident4() {
		return m
	}
	t, r, s := n.Translation, n.Rotation, n.Scale
	q := mgl32.Quat{W: r[3], V: mgl32.Vec3{r[0], r[1], r[2]}}
	if r == ([4]float32{}) {
		q = mgl32.QuatIdent()
	}
	return compose(mgl32.Vec3(s), q, mgl32.Vec3(t))
}

// placeLights resolves node lights with scene-space transforms and binds the
// light block into every material unless lights are shared.
func (l *loader) placeLights() error {
	world := l.g.worldTransforms()
	lights, n, err := l.loadLights(world)
	if err != nil {
		return err
	}
	l.g.lights, l.g.lightCount = lights, n
	if l.opts.SharedLights {
		return nil
	}

	l.g.uniforms.Align(l.dev.UniformBufferOffsetAlignment())
	data := gpu.ValueBytes(&l.g.lights)
	buf, off := l.g.uniforms.Allocate(data)
	slot := drawcalls.UBOSlot{Bound: true, Index: shader.BlockLights, Buffer: buf, Offset: off, Size: len(data)}
	for i := range l.g.Materials {
		l.g.Materials[i].Uniforms.UBOs[shader.BlockLights] = slot
	}
	return nil
}
