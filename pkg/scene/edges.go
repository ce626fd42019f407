package scene

import (
	"math"

	"github.com/taigrr/canteen/pkg/math3d"
)

// DefaultEdgeThreshold is the crease angle, in degrees, above which a shared
// edge is kept as an outline.
const DefaultEdgeThreshold = 1.0

// edgePrecision quantizes vertex positions so coincident but unshared
// vertices still merge into one edge (four decimal places).
const edgePrecision = 1e4

type vertexKey [3]int64

type edgeKey [2]vertexKey

type edgeRecord struct {
	a, b   math3d.Vec3
	normal math3d.Vec3
	paired bool
}

// EdgesGeometry extracts the outline edges of g: every edge whose two
// adjacent faces meet at more than thresholdDegrees, plus every edge used
// by a single face. Degenerate triangles are ignored.
func EdgesGeometry(g *Geometry, thresholdDegrees float64) *LineGeometry {
	lines := &LineGeometry{}
	if g.TriangleCount() == 0 {
		return lines
	}

	thresholdDot := math.Cos(math3d.Radians(thresholdDegrees))

	// Open edges in first-seen order, so output is deterministic.
	records := make(map[edgeKey]*edgeRecord)
	var order []*edgeRecord

	for i := range g.TriangleCount() {
		t := g.Triangle(i)
		verts := [3]math3d.Vec3{g.Positions[t[0]], g.Positions[t[1]], g.Positions[t[2]]}
		keys := [3]vertexKey{quantize(verts[0]), quantize(verts[1]), quantize(verts[2])}

		if keys[0] == keys[1] || keys[1] == keys[2] || keys[2] == keys[0] {
			continue
		}

		normal := verts[1].Sub(verts[0]).Cross(verts[2].Sub(verts[0])).Normalize()

		for j := range 3 {
			next := (j + 1) % 3
			forward := edgeKey{keys[j], keys[next]}
			reverse := edgeKey{keys[next], keys[j]}

			if rec, ok := records[reverse]; ok && !rec.paired {
				// Second face on this edge: keep it only at a crease.
				if normal.Dot(rec.normal) <= thresholdDot {
					lines.Positions = append(lines.Positions, rec.a, rec.b)
				}
				rec.paired = true
				continue
			}

			if _, ok := records[forward]; !ok {
				rec := &edgeRecord{a: verts[j], b: verts[next], normal: normal}
				records[forward] = rec
				order = append(order, rec)
			}
		}
	}

	// Boundary edges.
	for _, rec := range order {
		if !rec.paired {
			lines.Positions = append(lines.Positions, rec.a, rec.b)
		}
	}

	return lines
}

func quantize(v math3d.Vec3) vertexKey {
	return vertexKey{
		int64(math.Round(v.X * edgePrecision)),
		int64(math.Round(v.Y * edgePrecision)),
		int64(math.Round(v.Z * edgePrecision)),
	}
}
