// Package controls moves the camera around a target in response to input.
package controls

import (
	"math"

	"github.com/charmbracelet/harmonica"

	"github.com/taigrr/canteen/pkg/math3d"
	"github.com/taigrr/canteen/pkg/render"
)

const (
	// polarEpsilon keeps the camera off the poles, where LookAt degenerates.
	polarEpsilon = 1e-6

	// moveEpsilon is the squared distance below which an update is not
	// reported as movement.
	moveEpsilon = 1e-6

	// Frequency 4.0 = moderate speed, damping 1.0 = critically damped (no overshoot)
	springFrequency = 4.0
	springDamping   = 1.0
)

// axis is one damped degree of freedom. Input accumulates as pending motion;
// each update applies part of it while a spring eases the remainder to zero.
type axis struct {
	pending float64
	accel   float64 // internal spring velocity (for animating pending toward 0)
	spring  harmonica.Spring
}

func newAxis(fps int) axis {
	return axis{spring: harmonica.NewSpring(harmonica.FPS(fps), springFrequency, springDamping)}
}

// step returns the change to apply this frame. Without damping all pending
// motion is applied at once.
func (a *axis) step(damping bool) float64 {
	if !damping {
		d := a.pending
		a.pending = 0
		return d
	}
	prev := a.pending
	a.pending, a.accel = a.spring.Update(a.pending, a.accel, 0)
	if math.Abs(a.pending) < 1e-9 && math.Abs(a.accel) < 1e-9 {
		a.pending, a.accel = 0, 0
	}
	return prev - a.pending
}

func (a *axis) stop() {
	a.pending, a.accel = 0, 0
}

// Orbit keeps a camera on a sphere around Target, always looking at it.
//
// Rotation and zoom input accumulates. With Damping on, it is spread over
// several frames so motion eases out; without it each Update applies the
// whole input at once.
type Orbit struct {
	Target  math3d.Vec3
	Damping bool

	MinDistance, MaxDistance float64
	MinPolar, MaxPolar       float64 // Radians from +Y

	camera *render.Camera

	azimuth axis
	polar   axis
	zoom    axis // log of the distance scale

	savedTarget   math3d.Vec3
	savedPosition math3d.Vec3

	listeners []func(position math3d.Vec3)
}

// NewOrbit attaches orbit controls to cam around target. fps is the rate
// Update is called at.
func NewOrbit(cam *render.Camera, target math3d.Vec3, fps int) *Orbit {
	fps = max(fps, 1)
	o := &Orbit{
		Target:        target,
		Damping:       true,
		MinDistance:   0,
		MaxDistance:   math.Inf(1),
		MinPolar:      0,
		MaxPolar:      math.Pi,
		camera:        cam,
		azimuth:       newAxis(fps),
		polar:         newAxis(fps),
		zoom:          newAxis(fps),
		savedTarget:   target,
		savedPosition: cam.Position,
	}
	cam.LookAt(target)
	return o
}

// Rotate queues a rotation in radians. Positive azimuth turns the camera
// counter-clockwise seen from above; positive polar moves it toward -Y.
func (o *Orbit) Rotate(azimuth, polar float64) {
	o.azimuth.pending += azimuth
	o.polar.pending += polar
}

// Zoom scales the camera distance by factor. Values above 1 move away.
func (o *Orbit) Zoom(factor float64) {
	if factor <= 0 {
		return
	}
	o.zoom.pending += math.Log(factor)
}

// OnChange registers fn to be called with the camera position whenever an
// update moves the camera.
func (o *Orbit) OnChange(fn func(position math3d.Vec3)) {
	o.listeners = append(o.listeners, fn)
}

// Distance returns the distance from the camera to the target.
func (o *Orbit) Distance() float64 {
	return o.camera.Position.Distance(o.Target)
}

// Update advances one frame. It reports whether the camera moved.
func (o *Orbit) Update() bool {
	offset := o.camera.Position.Sub(o.Target)
	radius, theta, phi := toSpherical(offset)

	theta += o.azimuth.step(o.Damping)
	phi += o.polar.step(o.Damping)
	radius *= math.Exp(o.zoom.step(o.Damping))

	phi = min(max(phi, max(o.MinPolar, polarEpsilon)), min(o.MaxPolar, math.Pi-polarEpsilon))
	radius = min(max(radius, o.MinDistance), o.MaxDistance)

	pos := o.Target.Add(fromSpherical(radius, theta, phi))
	moved := pos.Sub(o.camera.Position).LenSq() > moveEpsilon
	o.camera.SetPosition(pos)
	o.camera.LookAt(o.Target)

	if moved {
		for _, fn := range o.listeners {
			fn(pos)
		}
	}
	return moved
}

// Reset stops all motion and returns the camera and target to where they
// were when the controls were created.
func (o *Orbit) Reset() {
	o.azimuth.stop()
	o.polar.stop()
	o.zoom.stop()
	o.Target = o.savedTarget
	o.camera.SetPosition(o.savedPosition)
	o.camera.LookAt(o.Target)
	for _, fn := range o.listeners {
		fn(o.savedPosition)
	}
}

// toSpherical converts a Y-up offset to radius, azimuth about +Y measured
// from +Z, and polar angle from +Y.
func toSpherical(v math3d.Vec3) (radius, theta, phi float64) {
	radius = v.Len()
	if radius == 0 {
		return 0, 0, 0
	}
	theta = math.Atan2(v.X, v.Z)
	phi = math.Acos(min(max(v.Y/radius, -1), 1))
	return radius, theta, phi
}

func fromSpherical(radius, theta, phi float64) math3d.Vec3 {
	s := math.Sin(phi) * radius
	return math3d.V3(s*math.Sin(theta), math.Cos(phi)*radius, s*math.Cos(theta))
}
