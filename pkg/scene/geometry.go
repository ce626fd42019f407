package scene

import (
	"github.com/taigrr/canteen/pkg/math3d"
)

// Geometry is an indexed triangle list.
type Geometry struct {
	Positions []math3d.Vec3
	Normals   []math3d.Vec3
	Indices   []int // Three per triangle; nil means sequential triangles
}

// TriangleCount returns the number of triangles.
func (g *Geometry) TriangleCount() int {
	if g == nil {
		return 0
	}
	if g.Indices != nil {
		return len(g.Indices) / 3
	}
	return len(g.Positions) / 3
}

// VertexCount returns the number of vertices.
func (g *Geometry) VertexCount() int {
	if g == nil {
		return 0
	}
	return len(g.Positions)
}

// Triangle returns the vertex indices of triangle i.
func (g *Geometry) Triangle(i int) [3]int {
	if g.Indices != nil {
		return [3]int{g.Indices[i*3], g.Indices[i*3+1], g.Indices[i*3+2]}
	}
	return [3]int{i * 3, i*3 + 1, i*3 + 2}
}

// Bounds computes the axis-aligned bounding box.
func (g *Geometry) Bounds() (min, max math3d.Vec3) {
	if g.VertexCount() == 0 {
		return math3d.Zero3(), math3d.Zero3()
	}

	min, max = g.Positions[0], g.Positions[0]
	for _, p := range g.Positions[1:] {
		min = min.Min(p)
		max = max.Max(p)
	}
	return min, max
}

// ComputeVertexNormals fills Normals from the triangle faces.
// With smooth set, face normals are accumulated per vertex (area weighted)
// and normalized; otherwise each vertex takes the normal of the last face
// that references it.
func (g *Geometry) ComputeVertexNormals(smooth bool) {
	g.Normals = make([]math3d.Vec3, len(g.Positions))

	for i := range g.TriangleCount() {
		t := g.Triangle(i)
		v0, v1, v2 := g.Positions[t[0]], g.Positions[t[1]], g.Positions[t[2]]
		normal := v1.Sub(v0).Cross(v2.Sub(v0)) // Don't normalize yet

		for _, idx := range t {
			if smooth {
				g.Normals[idx] = g.Normals[idx].Add(normal)
			} else {
				g.Normals[idx] = normal
			}
		}
	}

	for i := range g.Normals {
		g.Normals[i] = g.Normals[i].Normalize()
	}
}

// PlaneGeometry builds a width x height plane in the XY plane facing +Z.
func PlaneGeometry(width, height float64) *Geometry {
	hw, hh := width/2, height/2
	n := math3d.V3(0, 0, 1)

	return &Geometry{
		Positions: []math3d.Vec3{
			math3d.V3(-hw, hh, 0),
			math3d.V3(hw, hh, 0),
			math3d.V3(-hw, -hh, 0),
			math3d.V3(hw, -hh, 0),
		},
		Normals: []math3d.Vec3{n, n, n, n},
		Indices: []int{0, 2, 1, 2, 3, 1},
	}
}

// LineGeometry is a list of independent line segments: Positions holds
// two points per segment.
type LineGeometry struct {
	Positions []math3d.Vec3
}

// SegmentCount returns the number of segments.
func (l *LineGeometry) SegmentCount() int {
	if l == nil {
		return 0
	}
	return len(l.Positions) / 2
}

// Segment returns the endpoints of segment i.
func (l *LineGeometry) Segment(i int) (a, b math3d.Vec3) {
	return l.Positions[i*2], l.Positions[i*2+1]
}
