package scene

import (
	"github.com/taigrr/canteen/pkg/math3d"
)

// Augmenter prepares freshly loaded models for display.
type Augmenter struct {
	// EdgeThreshold is the crease angle in degrees used for outlines.
	EdgeThreshold float64
}

// NewAugmenter returns an Augmenter using DefaultEdgeThreshold.
func NewAugmenter() *Augmenter {
	return &Augmenter{EdgeThreshold: DefaultEdgeThreshold}
}

// OutlinePass walks the whole subgraph, root included, and for every mesh
// switches its material to double sided and attaches a black outline
// overlay built from the mesh's edges. It returns the number of meshes
// outlined.
//
// The pass does not check for existing overlays: running it twice gives
// every mesh two overlays.
func (a *Augmenter) OutlinePass(root *Node) int {
	count := 0
	Walk(root, VisitorFuncs{Mesh: func(n *Node) {
		if n.Material != nil {
			n.Material.Side = DoubleSide
		}
		edges := EdgesGeometry(n.Geometry, a.EdgeThreshold)
		n.Add(NewOverlay(n.Name+".outline", edges, OutlineMaterial()))
		count++
	}})
	return count
}

// ShadowPass runs PropagateShadows on each direct child of root. The root
// itself is not flagged, so a model whose root is a mesh gets outlines but
// no shadow flags.
//
// TODO: decide whether the root should be flagged too; the loaders in use
// always return a group root, which hides the difference.
func (a *Augmenter) ShadowPass(root *Node) {
	for _, child := range root.Children {
		PropagateShadows(child)
	}
}

// Prepare runs the outline pass and then the shadow pass on root. Shadow
// flags therefore never reach the overlays, which are not meshes.
func (a *Augmenter) Prepare(root *Node) {
	a.OutlinePass(root)
	a.ShadowPass(root)
}

// Place moves root to position and attaches it to s.
func Place(s *Scene, root *Node, position math3d.Vec3) {
	root.Position = position
	s.Add(root)
}

// Augment prepares root and then places it into s at position. The subgraph
// is only attached once every pass has finished with it.
func (a *Augmenter) Augment(s *Scene, root *Node, position math3d.Vec3) {
	a.Prepare(root)
	Place(s, root, position)
}
