package render

import (
	"image/color"
	"math"
	"testing"

	"github.com/taigrr/canteen/pkg/math3d"
	"github.com/taigrr/canteen/pkg/scene"
)

var (
	red   = color.RGBA{255, 0, 0, 255}
	black = color.RGBA{0, 0, 0, 255}
	white = color.RGBA{255, 255, 255, 255}
)

// testRasterizer returns a 20x20 rasterizer looking down -Z from (0, 0, 5)
// with a 90° field of view, cleared to black.
func testRasterizer() (*Rasterizer, *Framebuffer) {
	fb := NewFramebuffer(20, 20)
	r := NewRasterizer(fb)
	r.Lighting = scene.Lighting{
		Ambient: scene.AmbientLight{Color: scene.White, Intensity: 1},
	}
	cam := NewCamera(90, 1, 0.1, 100)
	cam.SetPosition(math3d.V3(0, 0, 5))
	cam.LookAt(math3d.V3(0, 0, 0))
	r.Begin(cam, scene.Black)
	return r, fb
}

func quad(size float64) *scene.Geometry {
	return scene.PlaneGeometry(size, size)
}

func flipped(g *scene.Geometry) *scene.Geometry {
	out := &scene.Geometry{Positions: g.Positions, Normals: g.Normals}
	for i := 0; i < len(g.Indices); i += 3 {
		out.Indices = append(out.Indices, g.Indices[i], g.Indices[i+2], g.Indices[i+1])
	}
	return out
}

func matte(side scene.Side) *scene.Material {
	return &scene.Material{Color: scene.White, Roughness: 1, Side: side}
}

func TestDrawMeshFrontFace(t *testing.T) {
	r, fb := testRasterizer()

	if !r.DrawMesh(quad(2), math3d.Identity(), Surface{Material: matte(scene.FrontSide)}) {
		t.Fatal("quad in front of the camera was culled")
	}
	if r.Stats.Triangles != 2 {
		t.Errorf("triangles = %d, want 2", r.Stats.Triangles)
	}

	p := fb.GetPixel(10, 10)
	if p == black {
		t.Fatal("center pixel not drawn")
	}
	if p.R != p.G || p.G != p.B {
		t.Errorf("white material under white light should be gray, got %v", p)
	}
	if d := r.Depth(10, 10); math.Abs(d-5) > 1e-6 {
		t.Errorf("depth = %v, want 5", d)
	}
	if fb.GetPixel(0, 0) != black {
		t.Error("corner pixel should stay clear")
	}
}

func TestDrawMeshBackFace(t *testing.T) {
	tests := []struct {
		name  string
		side  scene.Side
		drawn bool
	}{
		{"front side culls", scene.FrontSide, false},
		{"double side draws", scene.DoubleSide, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r, fb := testRasterizer()
			r.DrawMesh(flipped(quad(2)), math3d.Identity(), Surface{Material: matte(tc.side)})

			drawn := fb.GetPixel(10, 10) != black
			if drawn != tc.drawn {
				t.Errorf("drawn = %v, want %v", drawn, tc.drawn)
			}
			if !tc.drawn && r.Stats.BackFaces != 2 {
				t.Errorf("back faces = %d, want 2", r.Stats.BackFaces)
			}
		})
	}
}

func TestDrawMeshBackFaceUsesFlippedNormal(t *testing.T) {
	// A quad turned away from the camera shows its back face. With a double
	// sided material that face is lit like the front of an unturned quad.
	light := scene.Lighting{
		Directional: scene.DirectionalLight{
			Color: scene.White, Intensity: 2,
			Position: math3d.V3(0, 0, 10),
		},
	}

	front, fbFront := testRasterizer()
	front.Lighting = light
	front.DrawMesh(quad(2), math3d.Identity(), Surface{Material: matte(scene.DoubleSide)})

	back, fbBack := testRasterizer()
	back.Lighting = light
	back.DrawMesh(quad(2), math3d.RotateY(math.Pi), Surface{Material: matte(scene.DoubleSide)})

	if fbFront.GetPixel(10, 10) != fbBack.GetPixel(10, 10) {
		t.Errorf("front %v != back %v", fbFront.GetPixel(10, 10), fbBack.GetPixel(10, 10))
	}
}

func TestDrawMeshDepthTest(t *testing.T) {
	r, fb := testRasterizer()

	near := &scene.Material{Color: scene.Color{R: 1}, Side: scene.DoubleSide}
	far := &scene.Material{Color: scene.Color{B: 1}, Side: scene.DoubleSide}

	r.DrawMesh(quad(2), math3d.Translate(math3d.V3(0, 0, 1)), Surface{Material: near})
	r.DrawMesh(quad(2), math3d.Identity(), Surface{Material: far})

	p := fb.GetPixel(10, 10)
	if p.R <= p.B {
		t.Errorf("nearer red quad should win, got %v", p)
	}
}

func TestDrawMeshFrustumCulling(t *testing.T) {
	r, _ := testRasterizer()

	if r.DrawMesh(quad(2), math3d.Translate(math3d.V3(0, 0, 20)), Surface{Material: matte(scene.DoubleSide)}) {
		t.Error("quad behind the camera should be culled")
	}
	if r.Stats.CulledMeshes != 1 || r.Stats.Meshes != 1 {
		t.Errorf("stats = %+v", r.Stats)
	}
}

func TestDrawMeshNearClipping(t *testing.T) {
	r, fb := testRasterizer()
	cam := NewCamera(90, 1, 0.1, 100)
	cam.LookAt(math3d.V3(0, 0, -1))
	r.Begin(cam, scene.Black)

	// A ground triangle passing under and behind the camera.
	g := &scene.Geometry{
		Positions: []math3d.Vec3{
			math3d.V3(-10, -1, 10),
			math3d.V3(10, -1, 10),
			math3d.V3(0, -1, -50),
		},
		Indices: []int{0, 1, 2},
	}
	g.ComputeVertexNormals(false)
	r.DrawMesh(g, math3d.Identity(), Surface{Material: matte(scene.DoubleSide)})

	if fb.GetPixel(10, 19) == black {
		t.Error("ground in front of the camera not drawn")
	}
	if fb.GetPixel(10, 0) != black {
		t.Error("sky above the horizon should stay clear")
	}
}

func TestDrawLine3D(t *testing.T) {
	lineColor := scene.Color{R: 1}

	tests := []struct {
		name    string
		z       float64
		visible bool
	}{
		{"in front of surface", 1, true},
		{"on surface", 0, true},
		{"behind surface", -1, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r, fb := testRasterizer()
			r.DrawMesh(quad(2), math3d.Identity(), Surface{Material: matte(scene.FrontSide)})
			r.DrawLine3D(math3d.V3(-0.5, 0, tc.z), math3d.V3(0.5, 0, tc.z), lineColor)

			visible := fb.GetPixel(10, 10) == red
			if visible != tc.visible {
				t.Errorf("line visible = %v, want %v", visible, tc.visible)
			}
		})
	}
}

func TestDrawLine3DBehindCamera(t *testing.T) {
	r, fb := testRasterizer()
	r.DrawLine3D(math3d.V3(-1, 0, 10), math3d.V3(1, 0, 10), scene.White)

	if r.Stats.Lines != 0 {
		t.Errorf("lines = %d, want 0", r.Stats.Lines)
	}
	for _, p := range fb.Pixels {
		if p != black {
			t.Fatal("line behind the camera wrote pixels")
		}
	}
}

func TestDrawLine3DClipsToViewport(t *testing.T) {
	fb := NewFramebuffer(80, 40)
	r := NewRasterizer(fb)
	cam := NewCamera(90, 2, 0.1, 100)
	cam.SetPosition(math3d.V3(0, 0, 5))
	cam.LookAt(math3d.V3(0, 0, 0))
	r.Begin(cam, scene.Black)

	tests := []struct {
		name     string
		a, b     math3d.Vec3
		row      int
		from, to int
	}{
		// The far end sits just past the near plane, way off to the right.
		{"near plane end", math3d.V3(-2, 0, 0), math3d.V3(50, 0, 4.89), 20, 33, 78},
		{"both ends off screen", math3d.V3(-40, 0, 0), math3d.V3(40, 0, 0), 20, 1, 78},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			fb.Clear(black)
			r.DrawLine3D(tc.a, tc.b, scene.White)
			for x := tc.from; x <= tc.to; x++ {
				if fb.GetPixel(x, tc.row) != white {
					t.Fatalf("gap at column %d of row %d", x, tc.row)
				}
			}
		})
	}
}

func TestDrawLines(t *testing.T) {
	r, _ := testRasterizer()
	edges := scene.EdgesGeometry(quad(2), scene.DefaultEdgeThreshold)
	r.DrawLines(edges, math3d.Identity(), scene.Black)

	if r.Stats.Lines != 4 {
		t.Errorf("lines = %d, want 4", r.Stats.Lines)
	}
}

func TestClipNear(t *testing.T) {
	in := []vertex{
		{clip: math3d.V4(0, 0, 0, 1)},
		{clip: math3d.V4(1, 0, 0, 1)},
		{clip: math3d.V4(0, 0, -3, 1)},
	}
	out, _ := clipNear(in, nil)
	if len(out) != 4 {
		t.Fatalf("clipped polygon has %d vertices, want 4", len(out))
	}
	for _, v := range out {
		if v.clip.Z+v.clip.W < -1e-9 {
			t.Errorf("vertex %v outside near plane", v.clip)
		}
	}

	allOut := []vertex{
		{clip: math3d.V4(0, 0, -3, 1)},
		{clip: math3d.V4(1, 0, -3, 1)},
		{clip: math3d.V4(0, 1, -3, 1)},
	}
	out, _ = clipNear(allOut, nil)
	if len(out) != 0 {
		t.Errorf("fully clipped polygon has %d vertices", len(out))
	}
}

func BenchmarkDrawMesh(b *testing.B) {
	fb := NewFramebuffer(160, 90)
	r := NewRasterizer(fb)
	cam := NewCamera(75, 16.0/9.0, 0.1, 200)
	cam.SetPosition(math3d.V3(0, 0, 5))
	cam.LookAt(math3d.V3(0, 0, 0))
	g := quad(4)
	surf := Surface{Material: matte(scene.FrontSide)}

	for b.Loop() {
		r.Begin(cam, scene.White)
		r.DrawMesh(g, math3d.Identity(), surf)
	}
}
