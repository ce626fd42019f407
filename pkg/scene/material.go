package scene

import (
	"fmt"
	"image/color"

	"github.com/lucasb-eyer/go-colorful"
)

// Color is a linear-space RGB color. Lighting math happens in linear space;
// conversion to sRGB happens once, when a pixel is written.
type Color struct {
	R, G, B float64
}

var (
	White = Color{1, 1, 1}
	Black = Color{0, 0, 0}
)

// ParseColor parses a "#rrggbb" sRGB hex string, or one of the names
// "white" and "black", into a linear color.
func ParseColor(s string) (Color, error) {
	switch s {
	case "white":
		return White, nil
	case "black":
		return Black, nil
	}
	c, err := colorful.Hex(s)
	if err != nil {
		return Color{}, fmt.Errorf("parse color %q: %w", s, err)
	}
	r, g, b := c.LinearRgb()
	return Color{r, g, b}, nil
}

// Scale returns c multiplied by s.
func (c Color) Scale(s float64) Color {
	return Color{c.R * s, c.G * s, c.B * s}
}

// Mul returns the component-wise product.
func (c Color) Mul(o Color) Color {
	return Color{c.R * o.R, c.G * o.G, c.B * o.B}
}

// Add returns the component-wise sum.
func (c Color) Add(o Color) Color {
	return Color{c.R + o.R, c.G + o.G, c.B + o.B}
}

// SRGB converts c to an opaque 8-bit sRGB color, clamping out-of-range values.
func (c Color) SRGB() color.RGBA {
	r, g, b := colorful.LinearRgb(c.R, c.G, c.B).Clamped().RGB255()
	return color.RGBA{r, g, b, 255}
}

// Side selects which triangle faces a material shades.
type Side int

const (
	FrontSide Side = iota
	DoubleSide
)

// Material is a metal/roughness surface description.
type Material struct {
	Name      string
	Color     Color   // Base color (linear)
	Metalness float64 // 0 = dielectric, 1 = metal
	Roughness float64 // 0 = smooth, 1 = rough
	Side      Side
}

// DefaultMaterial returns the material used for primitives that don't name one.
func DefaultMaterial() *Material {
	return &Material{
		Name:      "default",
		Color:     White,
		Metalness: 1,
		Roughness: 1,
	}
}

// LineMaterial is an unlit line color.
type LineMaterial struct {
	Color Color
}

// OutlineMaterial returns the black line material outline overlays use.
func OutlineMaterial() *LineMaterial {
	return &LineMaterial{Color: Black}
}
