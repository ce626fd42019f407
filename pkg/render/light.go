package render

import (
	"math"

	"github.com/taigrr/canteen/pkg/math3d"
	"github.com/taigrr/canteen/pkg/scene"
)

// dielectricF0 is the normal-incidence reflectance of non-metals.
const dielectricF0 = 0.04

// Shade evaluates the metal/roughness lighting model at a surface point.
//
// p and n are the world position and unit normal, eye is the camera position,
// and visibility scales the directional contribution (1 = fully lit,
// 0 = fully in shadow). The result is linear and may exceed 1.
func Shade(l scene.Lighting, m *scene.Material, p, n, eye math3d.Vec3, visibility float64) scene.Color {
	metal := clamp01(m.Metalness)
	diffuse := m.Color.Scale(1 - metal)
	f0 := scene.Color{R: dielectricF0, G: dielectricF0, B: dielectricF0}.
		Scale(1 - metal).
		Add(m.Color.Scale(metal))

	// Without an environment map, reflected ambient uses the specular color.
	ambient := l.Ambient.Color.Scale(l.Ambient.Intensity)
	out := ambient.Mul(diffuse.Add(f0)).Scale(1 / math.Pi)

	d := l.Directional
	toLight := d.Direction()
	dotNL := n.Dot(toLight)
	if dotNL <= 0 || visibility <= 0 || d.Intensity <= 0 {
		return out
	}

	irradiance := d.Color.Scale(d.Intensity * dotNL * visibility)
	out = out.Add(irradiance.Mul(diffuse).Scale(1 / math.Pi))

	view := eye.Sub(p)
	if view.LenSq() == 0 {
		return out
	}
	h := toLight.Add(view.Normalize()).Normalize()
	dotNH := max(n.Dot(h), 0)
	shininess := specularPower(m.Roughness)
	norm := (shininess + 2) / (8 * math.Pi)
	spec := norm * math.Pow(dotNH, shininess)
	return out.Add(irradiance.Mul(f0).Scale(spec))
}

// specularPower maps perceptual roughness to a Blinn-Phong exponent.
func specularPower(roughness float64) float64 {
	alpha := max(clamp01(roughness), 0.05)
	alpha *= alpha
	return max(2/(alpha*alpha)-2, 0)
}

func clamp01(v float64) float64 {
	return min(max(v, 0), 1)
}
