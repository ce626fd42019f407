package math3d

import (
	"math"
	"testing"
)

func TestQuatFromEulerMatchesRotateX(t *testing.T) {
	angles := []float64{0, math.Pi / 4, -math.Pi / 2, math.Pi}
	for _, a := range angles {
		q := QuatFromEuler(a, 0, 0).Mat4()
		r := RotateX(a)
		for i := range q {
			if math.Abs(q[i]-r[i]) > 1e-9 {
				t.Fatalf("angle %v: quat matrix %v != RotateX %v", a, q, r)
			}
		}
	}
}

func TestQuatEulerOrderXYZ(t *testing.T) {
	x, y, z := 0.3, -0.7, 1.1
	q := QuatFromEuler(x, y, z).Mat4()
	want := RotateX(x).Mul(RotateY(y)).Mul(RotateZ(z))
	for i := range q {
		if math.Abs(q[i]-want[i]) > 1e-9 {
			t.Fatalf("element %d: got %v, want %v", i, q[i], want[i])
		}
	}
}

func TestZeroQuatIsIdentity(t *testing.T) {
	if got := (Quat{}).Mat4(); got != Identity() {
		t.Errorf("zero quaternion = %v, want identity", got)
	}
}

func TestComposeOrder(t *testing.T) {
	m := Compose(V3(1, 2, 3), QuatFromEuler(0, math.Pi/2, 0), V3(2, 2, 2))

	// (1,0,0) scaled to (2,0,0), rotated 90° about Y to (0,0,-2), then translated.
	got := m.MulVec3(V3(1, 0, 0))
	if !got.Approx(V3(1, 2, 1), 1e-9) {
		t.Errorf("Compose point = %v, want (1, 2, 1)", got)
	}
}

func TestNormalMatrixNonUniformScale(t *testing.T) {
	m := Scale(V3(4, 1, 1))
	// A 45° surface in XY; its normal must stay perpendicular after scaling.
	tangent := m.MulVec3Dir(V3(1, -1, 0))
	normal := m.NormalMatrix().MulVec3Dir(V3(1, 1, 0))
	if d := tangent.Dot(normal); math.Abs(d) > 1e-9 {
		t.Errorf("transformed normal not perpendicular: dot = %v", d)
	}
}

func TestRadians(t *testing.T) {
	if got := Radians(75); math.Abs(got-1.3089969389957472) > 1e-12 {
		t.Errorf("Radians(75) = %v", got)
	}
}

func TestDecomposeRoundTrip(t *testing.T) {
	pos := V3(3, -1, 2)
	rot := QuatFromEuler(0.4, -1.2, 0.9)
	scale := V3(2, 0.5, 3)

	m := Compose(pos, rot, scale)
	gotPos, gotRot, gotScale := Decompose(m)

	if !gotPos.Approx(pos, 1e-9) {
		t.Errorf("position = %v, want %v", gotPos, pos)
	}
	if !gotScale.Approx(scale, 1e-9) {
		t.Errorf("scale = %v, want %v", gotScale, scale)
	}
	back := Compose(gotPos, gotRot, gotScale)
	for i := range m {
		if math.Abs(back[i]-m[i]) > 1e-9 {
			t.Fatalf("recomposed element %d = %v, want %v", i, back[i], m[i])
		}
	}
}
