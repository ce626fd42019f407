package scene

import (
	"math"
	"testing"

	"github.com/taigrr/canteen/pkg/math3d"
)

func TestEdgesGeometry(t *testing.T) {
	tests := []struct {
		name      string
		geometry  *Geometry
		threshold float64
		segments  int
	}{
		{"cube creases", cube(), DefaultEdgeThreshold, 12},
		{"cube with huge threshold keeps nothing", cube(), 180, 0},
		{"flat plane keeps only border", PlaneGeometry(2, 2), DefaultEdgeThreshold, 4},
		{"single triangle", &Geometry{
			Positions: []math3d.Vec3{{}, {X: 1}, {Y: 1}},
		}, DefaultEdgeThreshold, 3},
		{"degenerate triangle skipped", &Geometry{
			Positions: []math3d.Vec3{{}, {}, {Y: 1}},
		}, DefaultEdgeThreshold, 0},
		{"nil geometry", nil, DefaultEdgeThreshold, 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := EdgesGeometry(tc.geometry, tc.threshold).SegmentCount()
			if got != tc.segments {
				t.Errorf("got %d segments, want %d", got, tc.segments)
			}
		})
	}
}

func TestEdgesGeometryMergesUnsharedVertices(t *testing.T) {
	// Two triangles forming a flat quad but with duplicated corner vertices,
	// as exporters emit for split normals/UVs.
	g := &Geometry{
		Positions: []math3d.Vec3{
			{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1},
			{X: 0, Y: 0}, {X: 1, Y: 1}, {X: 0, Y: 1.00000001},
		},
	}
	if got := EdgesGeometry(g, DefaultEdgeThreshold).SegmentCount(); got != 4 {
		t.Errorf("got %d segments, want the 4 border edges", got)
	}
}

func TestEdgesGeometryCreaseAngle(t *testing.T) {
	// Two triangles hinged along the X axis at 30 degrees.
	angle := math3d.Radians(30)
	g := &Geometry{
		Positions: []math3d.Vec3{
			{X: 0}, {X: 1}, {Y: 1},
			{X: 1}, {X: 0}, {Y: -math.Cos(angle), Z: math.Sin(angle)},
		},
	}

	if got := EdgesGeometry(g, 20).SegmentCount(); got != 5 {
		t.Errorf("threshold 20°: got %d segments, want 5 (hinge kept)", got)
	}
	if got := EdgesGeometry(g, 40).SegmentCount(); got != 4 {
		t.Errorf("threshold 40°: got %d segments, want 4 (hinge dropped)", got)
	}
}

func TestComputeVertexNormals(t *testing.T) {
	g := PlaneGeometry(1, 1)
	g.Normals = nil
	g.ComputeVertexNormals(true)

	for i, n := range g.Normals {
		if !n.Approx(math3d.V3(0, 0, 1), 1e-9) {
			t.Errorf("normal %d = %v, want +Z", i, n)
		}
	}
}

func TestKindString(t *testing.T) {
	tests := map[Kind]string{
		KindGroup:   "group",
		KindMesh:    "mesh",
		KindOverlay: "overlay",
		Kind(42):    "unknown",
	}
	for k, want := range tests {
		if got := k.String(); got != want {
			t.Errorf("Kind(%d).String() = %q, want %q", k, got, want)
		}
	}
}

func TestParseColor(t *testing.T) {
	c, err := ParseColor("#ffffff")
	if err != nil {
		t.Fatal(err)
	}
	if !(math.Abs(c.R-1) < 1e-9 && math.Abs(c.G-1) < 1e-9 && math.Abs(c.B-1) < 1e-9) {
		t.Errorf("#ffffff = %v, want white", c)
	}
	if got := c.SRGB(); got.R != 255 || got.A != 255 {
		t.Errorf("SRGB() = %v", got)
	}

	// Mid grey in sRGB is well below 0.5 in linear space.
	grey, err := ParseColor("#808080")
	if err != nil {
		t.Fatal(err)
	}
	if grey.R > 0.25 || grey.R < 0.2 {
		t.Errorf("#808080 linear = %v, want ~0.216", grey.R)
	}

	if _, err := ParseColor("not-a-color"); err == nil {
		t.Error("expected error for invalid color")
	}
}
