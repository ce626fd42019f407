package scene

import (
	"github.com/taigrr/canteen/pkg/math3d"
)

// AmbientLight lights every surface equally.
type AmbientLight struct {
	Color     Color
	Intensity float64
}

// ShadowConfig describes the orthographic shadow camera of a directional
// light and the depth map rendered from it.
type ShadowConfig struct {
	MapSize int // Width and height of the depth map

	Left, Right, Top, Bottom float64
	Near, Far                float64

	// Bias is added to the receiver depth before comparison. Negative
	// values push receivers toward the light and reduce acne.
	Bias float64
}

// DirectionalLight shines from Position toward Target with parallel rays.
type DirectionalLight struct {
	Color      Color
	Intensity  float64
	Position   math3d.Vec3
	Target     math3d.Vec3
	CastShadow bool
	Shadow     ShadowConfig
}

// Direction returns the unit vector pointing from the surface toward the light.
func (d DirectionalLight) Direction() math3d.Vec3 {
	return d.Position.Sub(d.Target).Normalize()
}

// Lighting is the light setup of a scene.
type Lighting struct {
	Ambient     AmbientLight
	Directional DirectionalLight
}
