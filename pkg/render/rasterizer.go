package render

import (
	"math"

	"github.com/taigrr/canteen/pkg/math3d"
	"github.com/taigrr/canteen/pkg/scene"
)

// lineDepthBias lets overlay lines win depth ties against the surface they
// outline. It is relative to the view depth of the line.
const lineDepthBias = 0.005

// CullingStats tracks per-frame culling statistics.
type CullingStats struct {
	Meshes       int // Meshes submitted
	CulledMeshes int // Meshes rejected by the frustum
	Triangles    int // Triangles rasterized
	BackFaces    int // Triangles rejected as back-facing
	Lines        int // Line segments drawn
}

// vertex is a post-transform triangle corner.
type vertex struct {
	clip   math3d.Vec4
	world  math3d.Vec3
	normal math3d.Vec3
}

// screenVertex is a vertex after the perspective divide and viewport mapping.
type screenVertex struct {
	x, y   float64
	invW   float64
	world  math3d.Vec3 // world position divided by w
	normal math3d.Vec3 // normal divided by w
}

// Surface carries what a triangle needs for shading.
type Surface struct {
	Material      *scene.Material
	ReceiveShadow bool
}

// Rasterizer draws lit triangles and depth-tested lines into a framebuffer.
// The depth buffer holds linear view depth (clip w), smaller is closer.
type Rasterizer struct {
	fb     *Framebuffer
	depth  []float64
	width  int
	height int

	viewProj math3d.Mat4
	frustum  Frustum
	eye      math3d.Vec3

	Lighting scene.Lighting
	Shadow   *ShadowMap // nil disables shadow lookups

	// LineWidth is the side of the square brush lines are drawn with.
	LineWidth int

	Stats CullingStats

	// scratch buffers reused across meshes
	verts []vertex
	poly  []vertex
	tmp   []vertex
}

// NewRasterizer creates a rasterizer drawing into fb.
func NewRasterizer(fb *Framebuffer) *Rasterizer {
	r := &Rasterizer{LineWidth: 1}
	r.SetTarget(fb)
	return r
}

// SetTarget points the rasterizer at fb and sizes the depth buffer to match.
func (r *Rasterizer) SetTarget(fb *Framebuffer) {
	r.fb = fb
	r.width, r.height = fb.Width, fb.Height
	n := fb.Width * fb.Height
	if cap(r.depth) < n {
		r.depth = make([]float64, n)
	}
	r.depth = r.depth[:n]
}

// Begin prepares a frame: clears color and depth and captures the camera.
func (r *Rasterizer) Begin(cam *Camera, bg scene.Color) {
	r.fb.Clear(bg.SRGB())
	for i := range r.depth {
		r.depth[i] = math.Inf(1)
	}
	r.viewProj = cam.ViewProjectionMatrix()
	r.frustum = NewFrustumFromMatrix(r.viewProj)
	r.eye = cam.Position
	r.Stats = CullingStats{}
}

// Depth returns the depth stored at (x, y), +Inf where nothing was drawn.
func (r *Rasterizer) Depth(x, y int) float64 {
	if x < 0 || x >= r.width || y < 0 || y >= r.height {
		return math.Inf(1)
	}
	return r.depth[y*r.width+x]
}

// DrawMesh draws a mesh geometry with the given world transform.
// Returns false when the mesh was culled by the view frustum.
func (r *Rasterizer) DrawMesh(g *scene.Geometry, world math3d.Mat4, surf Surface) bool {
	if g == nil || len(g.Positions) == 0 {
		return false
	}
	r.Stats.Meshes++
	if !r.frustum.IntersectAABB(Bounds(g).Transform(world)) {
		r.Stats.CulledMeshes++
		return false
	}

	normalMat := world.NormalMatrix()
	r.verts = r.verts[:0]
	for i, p := range g.Positions {
		wp := world.MulVec3(p)
		v := vertex{
			clip:  r.viewProj.MulVec4(math3d.V4FromV3(wp, 1)),
			world: wp,
		}
		if i < len(g.Normals) {
			v.normal = normalMat.MulVec3Dir(g.Normals[i]).Normalize()
		}
		r.verts = append(r.verts, v)
	}

	for i := range g.TriangleCount() {
		tri := g.Triangle(i)
		r.drawTriangle([3]vertex{r.verts[tri[0]], r.verts[tri[1]], r.verts[tri[2]]}, surf)
	}
	return true
}

// drawTriangle clips against the near plane and rasterizes the pieces.
func (r *Rasterizer) drawTriangle(v [3]vertex, surf Surface) {
	r.poly = append(r.poly[:0], v[0], v[1], v[2])
	r.poly, r.tmp = clipNear(r.poly, r.tmp)
	if len(r.poly) < 3 {
		return
	}
	s0 := r.toScreen(r.poly[0])
	for i := 1; i+1 < len(r.poly); i++ {
		r.fillTriangle(s0, r.toScreen(r.poly[i]), r.toScreen(r.poly[i+1]), surf)
	}
}

// clipNear clips a convex polygon against z >= -w (the GL near plane).
// The result is returned in a swapped buffer pair.
func clipNear(in, out []vertex) ([]vertex, []vertex) {
	out = out[:0]
	for i := range in {
		a := in[i]
		b := in[(i+1)%len(in)]
		da := a.clip.Z + a.clip.W
		db := b.clip.Z + b.clip.W
		if da >= 0 {
			out = append(out, a)
		}
		if (da >= 0) != (db >= 0) {
			t := da / (da - db)
			out = append(out, lerpVertex(a, b, t))
		}
	}
	return out, in
}

func lerpVertex(a, b vertex, t float64) vertex {
	return vertex{
		clip: math3d.V4(
			a.clip.X+(b.clip.X-a.clip.X)*t,
			a.clip.Y+(b.clip.Y-a.clip.Y)*t,
			a.clip.Z+(b.clip.Z-a.clip.Z)*t,
			a.clip.W+(b.clip.W-a.clip.W)*t,
		),
		world:  a.world.Lerp(b.world, t),
		normal: a.normal.Lerp(b.normal, t),
	}
}

func (r *Rasterizer) toScreen(v vertex) screenVertex {
	w := v.clip.W
	if w < 1e-9 {
		w = 1e-9
	}
	inv := 1 / w
	return screenVertex{
		x:      (v.clip.X*inv + 1) * 0.5 * float64(r.width),
		y:      (1 - v.clip.Y*inv) * 0.5 * float64(r.height),
		invW:   inv,
		world:  v.world.Scale(inv),
		normal: v.normal.Scale(inv),
	}
}

func edge(ax, ay, bx, by, px, py float64) float64 {
	return (bx-ax)*(py-ay) - (by-ay)*(px-ax)
}

// fillTriangle rasterizes one screen-space triangle with perspective-correct
// interpolation. Counter-clockwise world winding has negative area here
// because screen Y points down.
func (r *Rasterizer) fillTriangle(a, b, c screenVertex, surf Surface) {
	area := edge(a.x, a.y, b.x, b.y, c.x, c.y)
	if area == 0 || math.IsNaN(area) {
		return
	}
	backFace := area > 0
	if backFace && (surf.Material == nil || surf.Material.Side != scene.DoubleSide) {
		r.Stats.BackFaces++
		return
	}
	r.Stats.Triangles++

	minX := max(int(math.Floor(min(a.x, b.x, c.x))), 0)
	maxX := min(int(math.Ceil(max(a.x, b.x, c.x))), r.width-1)
	minY := max(int(math.Floor(min(a.y, b.y, c.y))), 0)
	maxY := min(int(math.Ceil(max(a.y, b.y, c.y))), r.height-1)
	if minX > maxX || minY > maxY {
		return
	}

	mat := surf.Material
	if mat == nil {
		mat = scene.DefaultMaterial()
	}
	inv := 1 / area

	for y := minY; y <= maxY; y++ {
		py := float64(y) + 0.5
		for x := minX; x <= maxX; x++ {
			px := float64(x) + 0.5
			w0 := edge(b.x, b.y, c.x, c.y, px, py) * inv
			w1 := edge(c.x, c.y, a.x, a.y, px, py) * inv
			w2 := edge(a.x, a.y, b.x, b.y, px, py) * inv
			if w0 < 0 || w1 < 0 || w2 < 0 {
				continue
			}

			invW := w0*a.invW + w1*b.invW + w2*c.invW
			if invW <= 0 {
				continue
			}
			z := 1 / invW
			idx := y*r.width + x
			if z >= r.depth[idx] {
				continue
			}

			pos := a.world.Scale(w0).Add(b.world.Scale(w1)).Add(c.world.Scale(w2)).Scale(z)
			n := a.normal.Scale(w0).Add(b.normal.Scale(w1)).Add(c.normal.Scale(w2)).Normalize()
			if backFace {
				n = n.Negate()
			}

			visibility := 1.0
			if surf.ReceiveShadow && r.Shadow != nil {
				visibility = r.Shadow.Visibility(pos)
			}

			r.depth[idx] = z
			r.fb.Pixels[idx] = Shade(r.Lighting, mat, pos, n, r.eye, visibility).SRGB()
		}
	}
}

// DrawLines draws every segment of an overlay with the given world transform.
func (r *Rasterizer) DrawLines(l *scene.LineGeometry, world math3d.Mat4, c scene.Color) {
	for i := range l.SegmentCount() {
		a, b := l.Segment(i)
		r.DrawLine3D(world.MulVec3(a), world.MulVec3(b), c)
	}
}

// DrawLine3D draws a world-space segment, depth tested against the triangles
// already drawn this frame. Lines do not write depth.
func (r *Rasterizer) DrawLine3D(a, b math3d.Vec3, c scene.Color) {
	ca := r.viewProj.MulVec4(math3d.V4FromV3(a, 1))
	cb := r.viewProj.MulVec4(math3d.V4FromV3(b, 1))

	ca, cb, ok := clipLine(ca, cb)
	if !ok || ca.W <= 0 || cb.W <= 0 {
		return
	}
	r.Stats.Lines++

	ax := (ca.X/ca.W + 1) * 0.5 * float64(r.width)
	ay := (1 - ca.Y/ca.W) * 0.5 * float64(r.height)
	bx := (cb.X/cb.W + 1) * 0.5 * float64(r.width)
	by := (1 - cb.Y/cb.W) * 0.5 * float64(r.height)
	invA, invB := 1/ca.W, 1/cb.W

	// Both ends are inside the viewport now, so one step per pixel covers
	// the whole run.
	steps := int(math.Ceil(max(math.Abs(bx-ax), math.Abs(by-ay))))
	col := c.SRGB()
	lw := max(r.LineWidth, 1)
	off := (lw - 1) / 2

	for i := 0; i <= steps; i++ {
		t := 0.0
		if steps > 0 {
			t = float64(i) / float64(steps)
		}
		px := int(math.Floor(ax + (bx-ax)*t))
		py := int(math.Floor(ay + (by-ay)*t))
		z := 1 / (invA + (invB-invA)*t)
		for oy := 0; oy < lw; oy++ {
			for ox := 0; ox < lw; ox++ {
				x, y := px+ox-off, py+oy-off
				if x < 0 || x >= r.width || y < 0 || y >= r.height {
					continue
				}
				idx := y*r.width + x
				if z*(1-lineDepthBias) > r.depth[idx] {
					continue
				}
				r.fb.Pixels[idx] = col
			}
		}
	}
}

// clipLine trims a clip-space segment to the near plane and the four side
// planes (Liang-Barsky). It reports false when nothing is left.
func clipLine(a, b math3d.Vec4) (math3d.Vec4, math3d.Vec4, bool) {
	planes := [5][2]float64{
		{a.W + a.Z, b.W + b.Z},
		{a.W + a.X, b.W + b.X},
		{a.W - a.X, b.W - b.X},
		{a.W + a.Y, b.W + b.Y},
		{a.W - a.Y, b.W - b.Y},
	}
	t0, t1 := 0.0, 1.0
	for _, p := range planes {
		da, db := p[0], p[1]
		switch {
		case da < 0 && db < 0:
			return a, b, false
		case da < 0:
			t0 = max(t0, da/(da-db))
		case db < 0:
			t1 = min(t1, da/(da-db))
		}
	}
	if t0 > t1 {
		return a, b, false
	}
	return lerp4(a, b, t0), lerp4(a, b, t1), true
}

func lerp4(a, b math3d.Vec4, t float64) math3d.Vec4 {
	return math3d.V4(
		a.X+(b.X-a.X)*t,
		a.Y+(b.Y-a.Y)*t,
		a.Z+(b.Z-a.Z)*t,
		a.W+(b.W-a.W)*t,
	)
}
