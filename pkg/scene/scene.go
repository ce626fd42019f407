package scene

import (
	"math"
	"sync"

	"github.com/taigrr/canteen/pkg/math3d"
)

// Scene is the persistent top-level scene graph.
//
// Loaded models are only ever appended; there is no removal path. Appends
// are serialized so loads completing on other goroutines can attach safely.
type Scene struct {
	Lighting Lighting

	// Background overrides the renderer clear color when set.
	Background *Color

	mu       sync.RWMutex
	children []*Node
}

// New creates an empty scene.
func New() *Scene {
	return &Scene{}
}

// Add appends nodes to the scene.
func (s *Scene) Add(nodes ...*Node) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.children = append(s.children, nodes...)
}

// Children returns a snapshot of the top-level nodes.
func (s *Scene) Children() []*Node {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Node, len(s.children))
	copy(out, s.children)
	return out
}

// Len returns the number of top-level nodes.
func (s *Scene) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.children)
}

// Contains reports whether n is a top-level node of the scene.
func (s *Scene) Contains(n *Node) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.children {
		if c == n {
			return true
		}
	}
	return false
}

// Stats counts meshes and triangles across the whole scene.
func (s *Scene) Stats() (meshes, triangles int) {
	for _, root := range s.Children() {
		Walk(root, VisitorFuncs{Mesh: func(n *Node) {
			meshes++
			triangles += n.Geometry.TriangleCount()
		}})
	}
	return meshes, triangles
}

// NewFloor builds the ground plane: a size x size plane laid flat (rotated
// -90° about X) at height y. It receives shadows but does not cast them.
func NewFloor(size, y float64, material *Material) *Node {
	floor := NewMesh("floor", PlaneGeometry(size, size), material)
	floor.Rotation = math3d.QuatFromEuler(-math.Pi/2, 0, 0)
	floor.Position = math3d.V3(0, y, 0)
	floor.ReceiveShadow = true
	return floor
}
