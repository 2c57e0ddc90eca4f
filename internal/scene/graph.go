package scene

import (
	"ship-renderer/internal/graphics/arena"
	"ship-renderer/internal/graphics/drawcalls"
	"ship-renderer/internal/graphics/gpu"
	"ship-renderer/internal/graphics/shader"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
)

type Node struct {
	Name string
	// Transform is the local transform used for drawing. OriginalTransform
	// is the one loaded from the document.
	Transform         mgl32.Mat4
	OriginalTransform mgl32.Mat4
	Children          []int
	Mesh              int // -1 for none
}

type Mesh struct {
	Name       string
	Primitives []Primitive
}

// Primitive is one draw call with the material it is drawn with.
type Primitive struct {
	Material int
	DrawCall drawcalls.DrawCall
}

type Material struct {
	Name     string
	Uniforms drawcalls.Uniforms
}

// Graph is a loaded glTF document. It owns every GPU object it created.
type Graph struct {
	// Scene is the scene drawn, an index into Scenes.
	Scene      int
	Scenes     [][]int
	Nodes      []Node
	Meshes     []Mesh
	Materials  []Material
	Animations []*Animation

	lights     shader.Lights
	lightCount int
	shared     bool

	dev      gpu.Device
	vaos     []gpu.VertexArray
	buffers  []gpu.Buffer
	textures []gpu.Texture
	samplers []gpu.Sampler
	indices  *arena.Buffer
	uniforms *arena.Buffer
	released bool
}

// parents returns the parent of every node, -1 for roots.
func (g *Graph) parents() []int {
	p := make([]int, len(g.Nodes))
	for i := range p {
		p[i] = -1
	}
	for i, n := range g.Nodes {
		for _, c := range n.Children {
			p[c] = i
		}
	}
	return p
}

// checkHierarchy rejects nodes with several parents and parent cycles.
func (g *Graph) checkHierarchy() error {
	seen := make([]bool, len(g.Nodes))
	for _, n := range g.Nodes {
		for _, c := range n.Children {
			if seen[c] {
				return errors.Errorf("node %d has more than one parent", c)
			}
			seen[c] = true
		}
	}
	parents := g.parents()
	for i := range g.Nodes {
		p := parents[i]
		for steps := 0; p >= 0; steps++ {
			if steps == len(g.Nodes) {
				return errors.Errorf("node %d is its own ancestor", i)
			}
			p = parents[p]
		}
	}
	return nil
}

// worldTransforms returns the scene-space transform of every node.
func (g *Graph) worldTransforms() []mgl32.Mat4 {
	parents := g.parents()
	world := make([]mgl32.Mat4, len(g.Nodes))
	done := make([]bool, len(g.Nodes))
	var resolve func(i int) mgl32.Mat4
	resolve = func(i int) mgl32.Mat4 {
		if done[i] {
			return world[i]
		}
		m := g.Nodes[i].Transform
		if p := parents[i]; p >= 0 {
			m = resolve(p).Mul4(m)
		}
		world[i], done[i] = m, true
		return m
	}
	for i := range g.Nodes {
		resolve(i)
	}
	return world
}

// Lights returns the scene's lights in scene space.
func (g *Graph) Lights() *shader.Lights { return &g.lights }

// Draw submits every primitive of the active scene, placed by model.
func (g *Graph) Draw(b *drawcalls.Batches, model mgl32.Mat4) {
	g.draw(b, model, func(i int) mgl32.Mat4 { return g.Nodes[i].Transform })
}

// DrawAnimated is Draw with node transforms from transforms, typically
// produced by NodeTransforms and Animation.Animate.
func (g *Graph) DrawAnimated(b *drawcalls.Batches, model mgl32.Mat4, transforms []NodeTransform) {
	g.draw(b, model, func(i int) mgl32.Mat4 { return transforms[i].Transform })
}

type visit struct {
	node   int
	parent mgl32.Mat4
}

func (g *Graph) draw(b *drawcalls.Batches, model mgl32.Mat4, local func(int) mgl32.Mat4) {
	if g.released || g.Scene >= len(g.Scenes) {
		return
	}
	var lights *shader.Lights
	if g.shared && g.lightCount > 0 {
		lights = &g.lights
	}

	stack := make([]visit, 0, len(g.Scenes[g.Scene]))
	for _, root := range g.Scenes[g.Scene] {
		stack = append(stack, visit{root, model})
	}
	for len(stack) > 0 {
		v := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		node := &g.Nodes[v.node]
		world := v.parent.Mul4(local(v.node))

		if node.Mesh >= 0 {
			front := gpu.CCW
			if world.Det() < 0 {
				front = gpu.CW
			}
			for _, p := range g.Meshes[node.Mesh].Primitives {
				dc := p.DrawCall
				dc.FrontFace = front
				u := g.Materials[p.Material].Uniforms
				b.AddLit(u, dc, world, lights, model)
				lights = nil
			}
		}
		for _, c := range node.Children {
			stack = append(stack, visit{c, world})
		}
	}
	if lights != nil {
		// nothing was drawn; the lights still shine
		b.AddLights(lights, model)
	}
}

// NodeTransforms returns a copy of the current local node transforms.
func (g *Graph) NodeTransforms() []NodeTransform {
	out := make([]NodeTransform, len(g.Nodes))
	for i, n := range g.Nodes {
		out[i] = NodeTransform{Name: n.Name, Transform: n.Transform}
	}
	return out
}

// ResetTransforms restores the transforms loaded from the document.
func (g *Graph) ResetTransforms() {
	for i := range g.Nodes {
		g.Nodes[i].Transform = g.Nodes[i].OriginalTransform
	}
}

// AnimationByName returns the first animation called name.
func (g *Graph) AnimationByName(name string) (*Animation, bool) {
	for _, a := range g.Animations {
		if a.Name == name {
			return a, true
		}
	}
	return nil, false
}

type AnimationSummary struct {
	Name          string
	Start, Length float32
}

// Summary describes a graph for diagnostics.
type Summary struct {
	Scene      int
	Scenes     int
	Nodes      int
	Meshes     int
	Primitives int
	Materials  int
	Textures   int
	Lights     int
	Shared     bool
	NodeNames  []string
	Animations []AnimationSummary
}

func (g *Graph) Summary() Summary {
	s := Summary{
		Scene:     g.Scene,
		Scenes:    len(g.Scenes),
		Nodes:     len(g.Nodes),
		Meshes:    len(g.Meshes),
		Materials: len(g.Materials),
		Textures:  len(g.textures),
		Lights:    g.lightCount,
		Shared:    g.shared,
	}
	for _, m := range g.Meshes {
		s.Primitives += len(m.Primitives)
	}
	for _, n := range g.Nodes {
		s.NodeNames = append(s.NodeNames, n.Name)
	}
	for _, a := range g.Animations {
		s.Animations = append(s.Animations, AnimationSummary{a.Name, a.Start, a.Length})
	}
	return s
}

// Release deletes every GPU object of the graph. Later calls do nothing.
func (g *Graph) Release() {
	if g.released {
		return
	}
	g.released = true
	g.dev.DeleteVertexArrays(g.vaos...)
	g.dev.DeleteBuffers(g.buffers...)
	g.dev.DeleteTextures(g.textures...)
	g.dev.DeleteSamplers(g.samplers...)
	g.indices.Release()
	g.uniforms.Release()
}
