// Package models loads 3D model files into canteen scene graphs.
package models

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	"github.com/taigrr/canteen/pkg/math3d"
	"github.com/taigrr/canteen/pkg/scene"
)

// ErrUnsupportedFormat is returned for files that are neither .gltf nor .glb.
var ErrUnsupportedFormat = errors.New("unsupported model format")

// GLTFLoader loads GLTF/GLB files into scene graphs.
type GLTFLoader struct {
	// Options
	CalculateNormals bool
	SmoothNormals    bool

	Logger *slog.Logger
}

// NewGLTFLoader creates a new GLTF loader with default options.
func NewGLTFLoader() *GLTFLoader {
	return &GLTFLoader{
		CalculateNormals: true,
		SmoothNormals:    true,
		Logger:           slog.Default(),
	}
}

// LoadGLTF loads a .gltf or .glb file with default options.
func LoadGLTF(path string) (*scene.Node, error) {
	return NewGLTFLoader().Load(path)
}

// Load decodes a .gltf (embedded or external buffers) or .glb file and
// returns the root group of its default scene.
func (l *GLTFLoader) Load(path string) (*scene.Node, error) {
	return l.load(context.Background(), path)
}

func (l *GLTFLoader) load(ctx context.Context, path string) (*scene.Node, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".gltf" && ext != ".glb" {
		return nil, fmt.Errorf("%s: %w (use .gltf or .glb)", path, ErrUnsupportedFormat)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	doc, err := gltf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open gltf: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	root, err := l.Decode(doc, filepath.Base(path))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return root, nil
}

// Decode converts an already parsed document into a scene graph.
//
// Every glTF node becomes a scene node carrying its local transform. A node
// whose mesh has exactly one triangle primitive becomes that mesh; a node
// with several primitives becomes a group holding one mesh per primitive.
func (l *GLTFLoader) Decode(doc *gltf.Document, name string) (*scene.Node, error) {
	d := &decoder{
		loader:    l,
		doc:       doc,
		materials: make([]*scene.Material, len(doc.Materials)),
		geometry:  make(map[[2]int]*scene.Geometry),
		visiting:  make(map[int]bool),
	}

	root := scene.NewGroup(name)
	for _, idx := range d.rootNodes() {
		child, err := d.node(idx)
		if err != nil {
			return nil, err
		}
		root.Add(child)
	}

	meshes, tris := 0, 0
	scene.Walk(root, scene.VisitorFuncs{Mesh: func(n *scene.Node) {
		meshes++
		tris += n.Geometry.TriangleCount()
	}})
	l.logger().Debug("decoded model", "name", name, "meshes", meshes, "triangles", tris)

	return root, nil
}

func (l *GLTFLoader) logger() *slog.Logger {
	if l.Logger == nil {
		return slog.Default()
	}
	return l.Logger
}

type decoder struct {
	loader    *GLTFLoader
	doc       *gltf.Document
	materials []*scene.Material
	fallback  *scene.Material
	geometry  map[[2]int]*scene.Geometry // (mesh, primitive) -> shared geometry
	visiting  map[int]bool
}

// rootNodes returns the node indices of the default scene. Documents
// without scenes fall back to every node that is nobody's child.
func (d *decoder) rootNodes() []int {
	if len(d.doc.Scenes) > 0 {
		idx := 0
		if d.doc.Scene != nil && *d.doc.Scene < len(d.doc.Scenes) {
			idx = *d.doc.Scene
		}
		return d.doc.Scenes[idx].Nodes
	}

	isChild := make(map[int]bool)
	for _, n := range d.doc.Nodes {
		for _, c := range n.Children {
			isChild[c] = true
		}
	}
	var roots []int
	for i := range d.doc.Nodes {
		if !isChild[i] {
			roots = append(roots, i)
		}
	}
	return roots
}

func (d *decoder) node(idx int) (*scene.Node, error) {
	if idx < 0 || idx >= len(d.doc.Nodes) {
		return nil, fmt.Errorf("node index %d out of range", idx)
	}
	if d.visiting[idx] {
		return nil, fmt.Errorf("node %d: cycle in node hierarchy", idx)
	}
	d.visiting[idx] = true
	defer delete(d.visiting, idx)

	gn := d.doc.Nodes[idx]
	name := gn.Name
	if name == "" {
		name = fmt.Sprintf("node%d", idx)
	}

	var n *scene.Node
	if gn.Mesh != nil {
		meshes, err := d.mesh(*gn.Mesh, name)
		if err != nil {
			return nil, fmt.Errorf("node %q: %w", name, err)
		}
		if len(meshes) == 1 {
			n = meshes[0]
			n.Name = name
		} else {
			n = scene.NewGroup(name)
			n.Add(meshes...)
		}
	} else {
		n = scene.NewGroup(name)
	}

	n.Position, n.Rotation, n.Scale = nodeTransform(gn)

	for _, c := range gn.Children {
		child, err := d.node(c)
		if err != nil {
			return nil, err
		}
		n.Add(child)
	}
	return n, nil
}

// mesh builds one scene mesh per triangle primitive.
func (d *decoder) mesh(idx int, name string) ([]*scene.Node, error) {
	if idx < 0 || idx >= len(d.doc.Meshes) {
		return nil, fmt.Errorf("mesh index %d out of range", idx)
	}
	gm := d.doc.Meshes[idx]

	var out []*scene.Node
	for pi, prim := range gm.Primitives {
		if prim.Mode != gltf.PrimitiveTriangles {
			// Skip non-triangle primitives (lines, points, etc)
			continue
		}

		geom, err := d.primitiveGeometry(idx, pi, prim)
		if err != nil {
			return nil, fmt.Errorf("mesh %q primitive %d: %w", gm.Name, pi, err)
		}
		if geom == nil {
			continue
		}

		mat, err := d.material(prim.Material)
		if err != nil {
			return nil, err
		}
		out = append(out, scene.NewMesh(fmt.Sprintf("%s.%d", name, pi), geom, mat))
	}
	return out, nil
}

func (d *decoder) primitiveGeometry(meshIdx, primIdx int, prim *gltf.Primitive) (*scene.Geometry, error) {
	key := [2]int{meshIdx, primIdx}
	if g, ok := d.geometry[key]; ok {
		return g, nil
	}

	posIdx, ok := prim.Attributes[gltf.POSITION]
	if !ok {
		return nil, nil
	}
	acr, err := d.accessor(posIdx)
	if err != nil {
		return nil, err
	}
	positions, err := modeler.ReadPosition(d.doc, acr, nil)
	if err != nil {
		return nil, fmt.Errorf("read positions: %w", err)
	}

	g := &scene.Geometry{Positions: make([]math3d.Vec3, len(positions))}
	for i, p := range positions {
		g.Positions[i] = math3d.V3(float64(p[0]), float64(p[1]), float64(p[2]))
	}

	if normIdx, ok := prim.Attributes[gltf.NORMAL]; ok {
		acr, err := d.accessor(normIdx)
		if err != nil {
			return nil, err
		}
		normals, err := modeler.ReadNormal(d.doc, acr, nil)
		if err != nil {
			return nil, fmt.Errorf("read normals: %w", err)
		}
		g.Normals = make([]math3d.Vec3, len(normals))
		for i, n := range normals {
			g.Normals[i] = math3d.V3(float64(n[0]), float64(n[1]), float64(n[2]))
		}
	}

	if prim.Indices != nil {
		acr, err := d.accessor(*prim.Indices)
		if err != nil {
			return nil, err
		}
		indices, err := modeler.ReadIndices(d.doc, acr, nil)
		if err != nil {
			return nil, fmt.Errorf("read indices: %w", err)
		}
		g.Indices = make([]int, 0, len(indices)-len(indices)%3)
		for _, ix := range indices[:len(indices)-len(indices)%3] {
			if int(ix) >= len(g.Positions) {
				return nil, fmt.Errorf("index %d out of range (%d vertices)", ix, len(g.Positions))
			}
			g.Indices = append(g.Indices, int(ix))
		}
	}

	if d.loader.CalculateNormals && len(g.Normals) != len(g.Positions) {
		g.ComputeVertexNormals(d.loader.SmoothNormals)
	}

	d.geometry[key] = g
	return g, nil
}

func (d *decoder) accessor(idx int) (*gltf.Accessor, error) {
	if idx < 0 || idx >= len(d.doc.Accessors) {
		return nil, fmt.Errorf("accessor index %d out of range", idx)
	}
	return d.doc.Accessors[idx], nil
}

// material returns the shared scene material for a glTF material index.
func (d *decoder) material(idx *int) (*scene.Material, error) {
	if idx == nil {
		if d.fallback == nil {
			d.fallback = scene.DefaultMaterial()
		}
		return d.fallback, nil
	}
	if *idx < 0 || *idx >= len(d.doc.Materials) {
		return nil, fmt.Errorf("material index %d out of range", *idx)
	}
	if m := d.materials[*idx]; m != nil {
		return m, nil
	}

	gm := d.doc.Materials[*idx]
	m := scene.DefaultMaterial()
	m.Name = gm.Name
	if gm.DoubleSided {
		m.Side = scene.DoubleSide
	}
	if pbr := gm.PBRMetallicRoughness; pbr != nil {
		if f := pbr.BaseColorFactor; f != nil {
			m.Color = scene.Color{R: f[0], G: f[1], B: f[2]}
		}
		if pbr.MetallicFactor != nil {
			m.Metalness = *pbr.MetallicFactor
		}
		if pbr.RoughnessFactor != nil {
			m.Roughness = *pbr.RoughnessFactor
		}
	}
	d.materials[*idx] = m
	return m, nil
}

// nodeTransform reads a node's local transform. A non-identity matrix wins
// over TRS, as glTF requires; zero-valued fields mean "default".
func nodeTransform(n *gltf.Node) (math3d.Vec3, math3d.Quat, math3d.Vec3) {
	var zero, identity [16]float64
	identity[0], identity[5], identity[10], identity[15] = 1, 1, 1, 1
	if n.Matrix != zero && n.Matrix != identity {
		return math3d.Decompose(math3d.Mat4(n.Matrix))
	}

	pos := math3d.V3(n.Translation[0], n.Translation[1], n.Translation[2])
	rot := math3d.Quat{X: n.Rotation[0], Y: n.Rotation[1], Z: n.Rotation[2], W: n.Rotation[3]}.Normalize()
	scale := math3d.V3(1, 1, 1)
	if n.Scale != [3]float64{} {
		scale = math3d.V3(n.Scale[0], n.Scale[1], n.Scale[2])
	}
	return pos, rot, scale
}
