package render

import (
	"bytes"
	"errors"
	"image/color"
	"image/png"
	"math"
	"path/filepath"
	"testing"

	"github.com/taigrr/canteen/pkg/math3d"
	"github.com/taigrr/canteen/pkg/scene"
)

func TestFramebufferDownsample(t *testing.T) {
	src := NewFramebuffer(4, 2)
	vals := []uint8{10, 20, 100, 100, 30, 40, 100, 100}
	for i, v := range vals {
		src.Pixels[i] = color.RGBA{v, v, v, 255}
	}

	dst := NewFramebuffer(0, 0)
	src.Downsample(dst, 2)

	if dst.Width != 2 || dst.Height != 1 {
		t.Fatalf("dst = %dx%d, want 2x1", dst.Width, dst.Height)
	}
	if got := dst.GetPixel(0, 0); got != (color.RGBA{25, 25, 25, 255}) {
		t.Errorf("left block = %v, want 25", got)
	}
	if got := dst.GetPixel(1, 0); got != (color.RGBA{100, 100, 100, 255}) {
		t.Errorf("right block = %v, want 100", got)
	}
}

func TestFramebufferDownsampleIdentity(t *testing.T) {
	src := NewFramebuffer(3, 3)
	src.Clear(color.RGBA{1, 2, 3, 255})
	dst := NewFramebuffer(0, 0)
	src.Downsample(dst, 1)

	if dst.Width != 3 || dst.Height != 3 || dst.GetPixel(2, 2) != src.GetPixel(2, 2) {
		t.Errorf("factor 1 should copy, got %dx%d", dst.Width, dst.Height)
	}
}

func TestFramebufferResize(t *testing.T) {
	fb := NewFramebuffer(10, 10)
	fb.Resize(4, 4)
	if len(fb.Pixels) != 16 || cap(fb.Pixels) != 100 {
		t.Errorf("shrink should reuse storage: len %d cap %d", len(fb.Pixels), cap(fb.Pixels))
	}
	fb.Resize(20, 20)
	if len(fb.Pixels) != 400 {
		t.Errorf("len = %d, want 400", len(fb.Pixels))
	}
	fb.SetPixel(25, 0, color.RGBA{255, 0, 0, 255}) // out of bounds, ignored
}

func TestCameraLookAt(t *testing.T) {
	cam := NewCamera(75, 1, 0.1, 200)
	cam.SetPosition(math3d.V3(-7, 22, -15))
	cam.LookAt(math3d.V3(0, 0, 0))

	want := math3d.V3(7, -22, 15).Normalize()
	if !cam.Forward().Approx(want, 1e-9) {
		t.Errorf("forward = %v, want %v", cam.Forward(), want)
	}

	x, y, _, ok := cam.WorldToScreen(math3d.V3(0, 0, 0), 100, 50)
	if !ok {
		t.Fatal("look-at target not visible")
	}
	if math.Abs(x-50) > 1e-6 || math.Abs(y-25) > 1e-6 {
		t.Errorf("target projects to (%v, %v), want screen center", x, y)
	}

	if _, _, _, ok := cam.WorldToScreen(math3d.V3(-14, 44, -30), 100, 50); ok {
		t.Error("point behind the camera reported visible")
	}
}

func TestCameraLookAtSelf(t *testing.T) {
	cam := NewCamera(75, 1, 0.1, 200)
	cam.SetRotation(0.1, 0.2, 0)
	cam.LookAt(cam.Position)
	if cam.Pitch != 0.1 || cam.Yaw != 0.2 {
		t.Error("looking at the camera position should keep the orientation")
	}
}

func TestCameraFOVDegrees(t *testing.T) {
	cam := NewCamera(75, 16.0/9.0, 0.1, 200)
	if math.Abs(cam.FOV-75*math.Pi/180) > 1e-12 {
		t.Errorf("FOV = %v rad", cam.FOV)
	}
}

func TestCameraFrustumCullsBounds(t *testing.T) {
	cam := NewCamera(90, 1, 0.1, 100)
	cam.SetPosition(math3d.V3(0, 0, 5))
	cam.LookAt(math3d.V3(0, 0, 0))
	f := cam.GetFrustum()

	b := Bounds(quad(2))
	if !f.IntersectAABB(b) {
		t.Error("quad at the origin should be visible")
	}
	if f.IntersectAABB(b.Transform(math3d.Translate(math3d.V3(0, 0, 10)))) {
		t.Error("quad behind the camera should be culled")
	}
}

func TestShade(t *testing.T) {
	light := scene.Lighting{
		Ambient: scene.AmbientLight{Color: scene.White, Intensity: 2},
		Directional: scene.DirectionalLight{
			Color: scene.White, Intensity: 2,
			Position: math3d.V3(10, 20, 10),
		},
	}
	floor := &scene.Material{Color: scene.White, Metalness: 0, Roughness: 0.5}
	up := math3d.V3(0, 1, 0)
	eye := math3d.V3(-7, 22, -15)
	origin := math3d.Zero3()

	lit := Shade(light, floor, origin, up, eye, 1)
	shadowed := Shade(light, floor, origin, up, eye, 0)
	facingAway := Shade(light, floor, origin, up.Negate(), eye, 1)

	if lit.R <= shadowed.R {
		t.Errorf("lit %v should be brighter than shadowed %v", lit, shadowed)
	}
	if facingAway != shadowed {
		t.Errorf("surface facing away %v should only get ambient %v", facingAway, shadowed)
	}
	if got := lit.SRGB(); got != (color.RGBA{255, 255, 255, 255}) {
		t.Errorf("sunlit white floor = %v, want saturated white", got)
	}

	metal := &scene.Material{Color: scene.White, Metalness: 1, Roughness: 1}
	if c := Shade(light, metal, origin, up, eye, 0); c.R <= 0 {
		t.Error("metal under ambient light should not be black")
	}
}

type closeRecorder struct {
	bytes.Buffer
	closeErr error
	closed   int
}

func (c *closeRecorder) Close() error {
	c.closed++
	return c.closeErr
}

func TestWritePNG(t *testing.T) {
	errDisk := errors.New("disk full")

	tests := []struct {
		name    string
		err     error
		wantErr error
	}{
		{"clean close", nil, nil},
		{"close fails", errDisk, errDisk},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			fb := NewFramebuffer(3, 2)
			fb.Clear(color.RGBA{10, 20, 30, 255})
			w := &closeRecorder{closeErr: tc.err}

			err := fb.writePNG(w)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("writePNG error = %v, want %v", err, tc.wantErr)
			}
			if w.closed != 1 {
				t.Errorf("closed %d times, want 1", w.closed)
			}
			img, err := png.Decode(&w.Buffer)
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if b := img.Bounds(); b.Dx() != 3 || b.Dy() != 2 {
				t.Errorf("bounds = %v", b)
			}
		})
	}
}

func TestSavePNGMissingDir(t *testing.T) {
	fb := NewFramebuffer(2, 2)
	path := filepath.Join(t.TempDir(), "missing", "frame.png")
	if err := fb.SavePNG(path); err == nil {
		t.Error("expected an error for a missing directory")
	}
}
