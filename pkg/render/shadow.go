package render

import (
	"math"

	"github.com/taigrr/canteen/pkg/math3d"
	"github.com/taigrr/canteen/pkg/scene"
)

// ShadowMap is a square depth map rendered from a directional light through
// an orthographic camera. Depths are in [0, 1], larger is farther.
type ShadowMap struct {
	Size  int
	Bias  float64
	depth []float64

	viewProj math3d.Mat4
	frustum  Frustum
	casters  int
}

// NewShadowMap allocates a size x size depth map.
func NewShadowMap(size int) *ShadowMap {
	size = max(size, 1)
	return &ShadowMap{
		Size:  size,
		depth: make([]float64, size*size),
	}
}

// Begin clears the map and aims the shadow camera from the light position
// toward its target.
func (s *ShadowMap) Begin(light scene.DirectionalLight) {
	if light.Shadow.MapSize > 0 && light.Shadow.MapSize != s.Size {
		s.Size = light.Shadow.MapSize
		s.depth = make([]float64, s.Size*s.Size)
	}
	for i := range s.depth {
		s.depth[i] = 1
	}
	s.Bias = light.Shadow.Bias
	s.casters = 0

	up := math3d.Up()
	dir := light.Target.Sub(light.Position)
	if math.Abs(dir.Normalize().Dot(up)) > 0.999 {
		up = math3d.V3(0, 0, 1)
	}
	view := math3d.LookAt(light.Position, light.Target, up)
	cfg := light.Shadow
	proj := math3d.Orthographic(cfg.Left, cfg.Right, cfg.Bottom, cfg.Top, cfg.Near, cfg.Far)
	s.viewProj = proj.Mul(view)
	s.frustum = NewFrustumFromMatrix(s.viewProj)
}

// Casters returns how many meshes were drawn into the map since Begin.
func (s *ShadowMap) Casters() int {
	return s.casters
}

// project maps a world point to texel coordinates and depth in [0, 1].
func (s *ShadowMap) project(p math3d.Vec3) (u, v, z float64) {
	c := s.viewProj.MulVec4(math3d.V4FromV3(p, 1))
	u = (c.X + 1) * 0.5 * float64(s.Size)
	v = (1 - c.Y) * 0.5 * float64(s.Size)
	z = (c.Z + 1) * 0.5
	return u, v, z
}

// DrawMesh renders a caster's depth. Both faces are drawn.
func (s *ShadowMap) DrawMesh(g *scene.Geometry, world math3d.Mat4) {
	if g == nil || len(g.Positions) == 0 {
		return
	}
	if !s.frustum.IntersectAABB(Bounds(g).Transform(world)) {
		return
	}
	s.casters++

	pts := make([][3]float64, len(g.Positions))
	for i, p := range g.Positions {
		u, v, z := s.project(world.MulVec3(p))
		pts[i] = [3]float64{u, v, z}
	}
	for i := range g.TriangleCount() {
		tri := g.Triangle(i)
		s.fill(pts[tri[0]], pts[tri[1]], pts[tri[2]])
	}
}

func (s *ShadowMap) fill(a, b, c [3]float64) {
	area := edge(a[0], a[1], b[0], b[1], c[0], c[1])
	if area == 0 {
		return
	}
	minX := max(int(math.Floor(min(a[0], b[0], c[0]))), 0)
	maxX := min(int(math.Ceil(max(a[0], b[0], c[0]))), s.Size-1)
	minY := max(int(math.Floor(min(a[1], b[1], c[1]))), 0)
	maxY := min(int(math.Ceil(max(a[1], b[1], c[1]))), s.Size-1)
	inv := 1 / area

	for y := minY; y <= maxY; y++ {
		py := float64(y) + 0.5
		for x := minX; x <= maxX; x++ {
			px := float64(x) + 0.5
			w0 := edge(b[0], b[1], c[0], c[1], px, py) * inv
			w1 := edge(c[0], c[1], a[0], a[1], px, py) * inv
			w2 := edge(a[0], a[1], b[0], b[1], px, py) * inv
			if w0 < 0 || w1 < 0 || w2 < 0 {
				continue
			}
			z := w0*a[2] + w1*b[2] + w2*c[2]
			if z < 0 || z > 1 {
				continue
			}
			idx := y*s.Size + x
			if z < s.depth[idx] {
				s.depth[idx] = z
			}
		}
	}
}

// Visibility returns the lit fraction of a world point using a 3x3
// percentage-closer filter. A texel lights the point when the point depth
// plus bias is not beyond the stored depth. Points outside the shadow
// camera are fully lit.
func (s *ShadowMap) Visibility(p math3d.Vec3) float64 {
	u, v, z := s.project(p)
	if u < 0 || v < 0 || u >= float64(s.Size) || v >= float64(s.Size) || z > 1 {
		return 1
	}
	cx, cy := int(u), int(v)
	compare := z + s.Bias

	lit, samples := 0, 0
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			x := min(max(cx+dx, 0), s.Size-1)
			y := min(max(cy+dy, 0), s.Size-1)
			samples++
			if compare <= s.depth[y*s.Size+x] {
				lit++
			}
		}
	}
	return float64(lit) / float64(samples)
}
