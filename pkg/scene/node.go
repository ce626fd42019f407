// Package scene provides the canteen scene graph: groups, meshes and outline
// overlays, plus the passes that prepare a freshly loaded model for display.
package scene

import (
	"github.com/taigrr/canteen/pkg/math3d"
)

// Kind tags the variant a Node carries.
type Kind int

const (
	KindGroup   Kind = iota // container with no geometry of its own
	KindMesh                // triangle geometry with a surface material
	KindOverlay             // line segments decorating a mesh (outlines)
)

func (k Kind) String() string {
	switch k {
	case KindGroup:
		return "group"
	case KindMesh:
		return "mesh"
	case KindOverlay:
		return "overlay"
	default:
		return "unknown"
	}
}

// Node is one element of the scene graph.
//
// Which payload fields are meaningful depends on Kind: meshes use Geometry
// and Material, overlays use Lines and LineMaterial, groups use neither.
// A parent owns its children; geometries and materials may be shared.
type Node struct {
	Name string
	Kind Kind

	Geometry *Geometry
	Material *Material

	Lines        *LineGeometry
	LineMaterial *LineMaterial

	Children []*Node

	CastShadow    bool
	ReceiveShadow bool

	// Local transform relative to the parent.
	Position math3d.Vec3
	Rotation math3d.Quat
	Scale    math3d.Vec3
}

// NewGroup creates an empty container node.
func NewGroup(name string) *Node {
	return &Node{
		Name:     name,
		Kind:     KindGroup,
		Rotation: math3d.IdentityQuat(),
		Scale:    math3d.V3(1, 1, 1),
	}
}

// NewMesh creates a renderable mesh node.
func NewMesh(name string, geometry *Geometry, material *Material) *Node {
	n := NewGroup(name)
	n.Kind = KindMesh
	n.Geometry = geometry
	n.Material = material
	return n
}

// NewOverlay creates a line-segment node.
func NewOverlay(name string, lines *LineGeometry, material *LineMaterial) *Node {
	n := NewGroup(name)
	n.Kind = KindOverlay
	n.Lines = lines
	n.LineMaterial = material
	return n
}

// Add appends children to n.
func (n *Node) Add(children ...*Node) {
	n.Children = append(n.Children, children...)
}

// IsMesh reports whether n is a mesh node.
func (n *Node) IsMesh() bool {
	return n != nil && n.Kind == KindMesh
}

// ChildCount returns the number of direct children.
func (n *Node) ChildCount() int {
	if n == nil {
		return 0
	}
	return len(n.Children)
}

// DoubleSided reports whether the node's material renders both faces.
func (n *Node) DoubleSided() bool {
	return n.Material != nil && n.Material.Side == DoubleSide
}

// LocalMatrix returns the node transform relative to its parent.
func (n *Node) LocalMatrix() math3d.Mat4 {
	return math3d.Compose(n.Position, n.Rotation, n.Scale)
}

// Overlays returns the overlay children of n.
func (n *Node) Overlays() []*Node {
	var out []*Node
	for _, c := range n.Children {
		if c.Kind == KindOverlay {
			out = append(out, c)
		}
	}
	return out
}
