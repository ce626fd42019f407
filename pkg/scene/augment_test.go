package scene

import (
	"testing"

	"github.com/taigrr/canteen/pkg/math3d"
)

// cube returns a closed unit cube: 12 triangles, 12 crease edges.
func cube() *Geometry {
	p := []math3d.Vec3{
		{X: -0.5, Y: -0.5, Z: -0.5}, {X: 0.5, Y: -0.5, Z: -0.5},
		{X: 0.5, Y: 0.5, Z: -0.5}, {X: -0.5, Y: 0.5, Z: -0.5},
		{X: -0.5, Y: -0.5, Z: 0.5}, {X: 0.5, Y: -0.5, Z: 0.5},
		{X: 0.5, Y: 0.5, Z: 0.5}, {X: -0.5, Y: 0.5, Z: 0.5},
	}
	idx := []int{
		4, 5, 6, 4, 6, 7, // front (+Z)
		1, 0, 3, 1, 3, 2, // back (-Z)
		5, 1, 2, 5, 2, 6, // right (+X)
		0, 4, 7, 0, 7, 3, // left (-X)
		7, 6, 2, 7, 2, 3, // top (+Y)
		0, 1, 5, 0, 5, 4, // bottom (-Y)
	}
	return &Geometry{Positions: p, Indices: idx}
}

func testMesh(name string) *Node {
	return NewMesh(name, cube(), &Material{Name: name, Color: White})
}

func countMeshes(root *Node) int {
	n := 0
	Walk(root, VisitorFuncs{Mesh: func(*Node) { n++ }})
	return n
}

func TestPropagateShadowsAllDepths(t *testing.T) {
	root := NewGroup("root")
	a := NewGroup("a")
	b := NewGroup("b")
	deep := testMesh("deep")
	shallow := testMesh("shallow")
	meshWithMeshChild := testMesh("parent")
	meshChild := testMesh("child")

	root.Add(a, shallow)
	a.Add(b)
	b.Add(deep)
	shallow.Add(meshWithMeshChild)
	meshWithMeshChild.Add(meshChild)

	PropagateShadows(root)

	Walk(root, VisitorFuncs{
		Mesh: func(n *Node) {
			if !n.CastShadow || !n.ReceiveShadow {
				t.Errorf("mesh %q: cast=%v receive=%v, want both true", n.Name, n.CastShadow, n.ReceiveShadow)
			}
		},
		Group: func(n *Node) {
			if n.CastShadow || n.ReceiveShadow {
				t.Errorf("group %q should not be modified", n.Name)
			}
		},
	})
}

func TestPropagateShadowsNilChildren(t *testing.T) {
	m := testMesh("lonely")
	m.Children = nil
	PropagateShadows(m)
	if !m.CastShadow || !m.ReceiveShadow {
		t.Error("mesh root without children should be flagged")
	}

	// Nil node is a no-op.
	PropagateShadows(nil)
}

func TestPropagateShadowsSkipsOverlays(t *testing.T) {
	m := testMesh("m")
	ov := NewOverlay("ov", &LineGeometry{}, OutlineMaterial())
	m.Add(ov)

	PropagateShadows(m)

	if ov.CastShadow || ov.ReceiveShadow {
		t.Error("overlay should not get shadow flags")
	}
}

func TestOutlinePassEveryMesh(t *testing.T) {
	root := testMesh("root")
	group := NewGroup("group")
	inner := testMesh("inner")
	root.Add(group)
	group.Add(inner)

	a := NewAugmenter()
	if got := a.OutlinePass(root); got != 2 {
		t.Errorf("OutlinePass outlined %d meshes, want 2", got)
	}

	for _, m := range []*Node{root, inner} {
		overlays := m.Overlays()
		if len(overlays) != 1 {
			t.Fatalf("mesh %q has %d overlays, want 1", m.Name, len(overlays))
		}
		if !m.DoubleSided() {
			t.Errorf("mesh %q should be double sided", m.Name)
		}
		ov := overlays[0]
		if ov.LineMaterial.Color != Black {
			t.Errorf("overlay color = %v, want black", ov.LineMaterial.Color)
		}
		if got := ov.Lines.SegmentCount(); got != 12 {
			t.Errorf("cube outline has %d segments, want 12", got)
		}
	}

	if len(group.Overlays()) != 0 {
		t.Error("groups must not receive overlays")
	}
}

func TestOutlinePassNotDeduplicated(t *testing.T) {
	m := testMesh("m")
	root := NewGroup("root")
	root.Add(m)

	a := NewAugmenter()
	a.OutlinePass(root)
	a.OutlinePass(root)

	// Running the pass again adds a second overlay; nothing guards it.
	if got := len(m.Overlays()); got != 2 {
		t.Errorf("after two passes mesh has %d overlays, want 2", got)
	}
}

func TestShadowPassSkipsMeshRoot(t *testing.T) {
	root := testMesh("root")
	s := New()

	NewAugmenter().Augment(s, root, math3d.V3(1, 2, 3))

	if len(root.Overlays()) != 1 {
		t.Errorf("mesh root should get one overlay, got %d", len(root.Overlays()))
	}
	if !root.DoubleSided() {
		t.Error("mesh root should be double sided")
	}
	if root.CastShadow || root.ReceiveShadow {
		t.Error("mesh root must not receive shadow flags")
	}
}

func TestShadowPassFlagsChildrenOfMeshRoot(t *testing.T) {
	root := testMesh("root")
	child := testMesh("child")
	root.Add(child)

	NewAugmenter().Prepare(root)

	if root.CastShadow {
		t.Error("root should stay unflagged")
	}
	if !child.CastShadow || !child.ReceiveShadow {
		t.Error("direct child mesh should be flagged")
	}
}

func TestAugmentEndToEnd(t *testing.T) {
	root := NewGroup("model")
	group := NewGroup("group")
	mesh := testMesh("mesh")
	root.Add(group)
	group.Add(mesh)

	s := New()
	pos := math3d.V3(-15, 0, 15)
	NewAugmenter().Augment(s, root, pos)

	if !mesh.CastShadow || !mesh.ReceiveShadow {
		t.Error("mesh shadow flags not set")
	}
	if got := len(mesh.Overlays()); got != 1 {
		t.Errorf("mesh overlays = %d, want 1", got)
	}
	if !mesh.DoubleSided() {
		t.Error("mesh not double sided")
	}
	if root.Position != pos {
		t.Errorf("root position = %v, want %v", root.Position, pos)
	}
	if !s.Contains(root) {
		t.Error("root not attached to scene")
	}
	if s.Len() != 1 {
		t.Errorf("scene has %d children, want 1", s.Len())
	}
}

func TestAugmentSharedMaterial(t *testing.T) {
	shared := &Material{Name: "shared"}
	root := NewGroup("root")
	root.Add(NewMesh("a", cube(), shared), NewMesh("b", cube(), shared))

	NewAugmenter().Prepare(root)

	if shared.Side != DoubleSide {
		t.Error("shared material should be double sided")
	}
	if got := countMeshes(root); got != 2 {
		t.Errorf("outline pass changed the mesh count to %d", got)
	}
}

func TestSceneConcurrentAdd(t *testing.T) {
	s := New()
	done := make(chan struct{})
	const n = 50
	for i := range n {
		go func() {
			s.Add(NewGroup("g" + string(rune('a'+i%26))))
			done <- struct{}{}
		}()
	}
	for range n {
		<-done
	}
	if s.Len() != n {
		t.Errorf("scene has %d children, want %d", s.Len(), n)
	}
}

func TestFloor(t *testing.T) {
	floor := NewFloor(50, -0.01, &Material{Color: White, Roughness: 0.5})

	if !floor.ReceiveShadow || floor.CastShadow {
		t.Errorf("floor receive=%v cast=%v, want true/false", floor.ReceiveShadow, floor.CastShadow)
	}

	// The plane normal (+Z locally) must point up once laid flat.
	up := floor.LocalMatrix().MulVec3Dir(math3d.V3(0, 0, 1))
	if !up.Approx(math3d.V3(0, 1, 0), 1e-9) {
		t.Errorf("floor normal = %v, want +Y", up)
	}

	min, max := floor.Geometry.Bounds()
	if size := max.Sub(min); size.X != 50 || size.Y != 50 {
		t.Errorf("floor size = %v, want 50x50", size)
	}
	if floor.Position.Y != -0.01 {
		t.Errorf("floor y = %v, want -0.01", floor.Position.Y)
	}
}

func TestSceneStats(t *testing.T) {
	s := New()
	root := NewGroup("root")
	root.Add(testMesh("a"), testMesh("b"))
	s.Add(root)

	meshes, tris := s.Stats()
	if meshes != 2 || tris != 24 {
		t.Errorf("Stats() = %d meshes, %d triangles; want 2, 24", meshes, tris)
	}
}
