package app

import (
	"errors"
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"

	"github.com/taigrr/canteen/pkg/math3d"
	"github.com/taigrr/canteen/pkg/scene"
)

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

// Vector is a 3D point written as a TOML array: position = [-15, 0, 15].
type Vector [3]float64

// Vec3 converts v to a math3d vector.
func (v Vector) Vec3() math3d.Vec3 {
	return math3d.V3(v[0], v[1], v[2])
}

// Config describes the scene, the camera and how frames are produced.
type Config struct {
	Models   []ModelConfig  `toml:"models"`
	Camera   CameraConfig   `toml:"camera"`
	Lights   LightsConfig   `toml:"lights"`
	Floor    FloorConfig    `toml:"floor"`
	Renderer RendererConfig `toml:"renderer"`
	FPS      int            `toml:"fps"`
}

// ModelConfig is one model file and where its root is placed. A nil
// Position means DefaultModelPosition.
type ModelConfig struct {
	Path     string  `toml:"path"`
	Position *Vector `toml:"position"`
}

// Location returns where the model root goes.
func (m ModelConfig) Location() Vector {
	if m.Position == nil {
		return DefaultModelPosition
	}
	return *m.Position
}

type CameraConfig struct {
	FOV      float64 `toml:"fov"` // Vertical, degrees
	Near     float64 `toml:"near"`
	Far      float64 `toml:"far"`
	Position Vector  `toml:"position"`
	LookAt   Vector  `toml:"look_at"`
	Target   Vector  `toml:"target"` // Orbit pivot
	Damping  bool    `toml:"damping"`
}

type LightsConfig struct {
	Ambient     AmbientConfig     `toml:"ambient"`
	Directional DirectionalConfig `toml:"directional"`
}

type AmbientConfig struct {
	Color     string  `toml:"color"`
	Intensity float64 `toml:"intensity"`
}

type DirectionalConfig struct {
	Color      string  `toml:"color"`
	Intensity  float64 `toml:"intensity"`
	Position   Vector  `toml:"position"`
	CastShadow bool    `toml:"cast_shadow"`
	MapSize    int     `toml:"map_size"`
	Left       float64 `toml:"left"`
	Right      float64 `toml:"right"`
	Top        float64 `toml:"top"`
	Bottom     float64 `toml:"bottom"`
	Near       float64 `toml:"near"`
	Far        float64 `toml:"far"`
	Bias       float64 `toml:"bias"`
}

type FloorConfig struct {
	Size      float64 `toml:"size"`
	Y         float64 `toml:"y"`
	Color     string  `toml:"color"`
	Metalness float64 `toml:"metalness"`
	Roughness float64 `toml:"roughness"`
}

type RendererConfig struct {
	PixelRatio       float64 `toml:"pixel_ratio"`
	ClearColor       string  `toml:"clear_color"`
	Shadows          bool    `toml:"shadows"`
	OutlineThreshold float64 `toml:"outline_threshold"` // Degrees
}

// DefaultModelPosition is where models given without a position are placed.
var DefaultModelPosition = Vector{-15, 0, 15}

// MaxShadowMapSize bounds the shadow map edge; the map is allocated square.
const MaxShadowMapSize = 8192

// DefaultConfig returns the canteen scene: two models sharing one position,
// a white floor, ambient plus a shadow casting directional light, and an
// orbiting perspective camera.
func DefaultConfig() Config {
	return Config{
		Models: []ModelConfig{
			{Path: "canteen_borders.gltf"},
			{Path: "canteen_borders2.glb"},
		},
		Camera: CameraConfig{
			FOV:      75,
			Near:     0.1,
			Far:      200,
			Position: Vector{-7, 22, -15},
			LookAt:   Vector{0, 0, 0},
			Target:   Vector{0, 1, 0},
			Damping:  true,
		},
		Lights: LightsConfig{
			Ambient: AmbientConfig{Color: "white", Intensity: 2},
			Directional: DirectionalConfig{
				Color:      "white",
				Intensity:  2,
				Position:   Vector{10, 20, 10},
				CastShadow: true,
				MapSize:    2048,
				Left:       -7,
				Right:      7,
				Top:        7,
				Bottom:     -7,
				Near:       0.1,
				Far:        50,
				Bias:       -0.001,
			},
		},
		Floor: FloorConfig{
			Size:      50,
			Y:         -0.01,
			Color:     "#ffffff",
			Metalness: 0,
			Roughness: 0.5,
		},
		Renderer: RendererConfig{
			PixelRatio:       2,
			ClearColor:       "white",
			Shadows:          true,
			OutlineThreshold: scene.DefaultEdgeThreshold,
		},
		FPS: 60,
	}
}

// LoadConfig reads a TOML file over the defaults. Keys the file leaves out
// keep their default values; an absent or empty models list keeps the
// default models. Unknown keys are an error.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	f, err := os.Open(path)
	if err != nil {
		return cfg, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	defaults := cfg.Models
	cfg.Models = nil
	dec := toml.NewDecoder(f).DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		var derr *toml.DecodeError
		if errors.As(err, &derr) {
			row, col := derr.Position()
			return cfg, fmt.Errorf("%w: %s:%d:%d: %s", ErrInvalidConfig, path, row, col, derr.Error())
		}
		return cfg, fmt.Errorf("%w: %s: %w", ErrInvalidConfig, path, err)
	}
	if len(cfg.Models) == 0 {
		cfg.Models = defaults
	}
	return cfg, cfg.Validate()
}

// Validate reports every problem found, each wrapping ErrInvalidConfig.
func (c Config) Validate() error {
	var errs []error
	bad := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalidConfig}, args...)...))
	}

	if c.FPS <= 0 {
		bad("fps must be positive, got %d", c.FPS)
	}
	if c.Camera.FOV <= 0 || c.Camera.FOV >= 180 {
		bad("camera fov must be in (0, 180), got %v", c.Camera.FOV)
	}
	if c.Camera.Near <= 0 || c.Camera.Near >= c.Camera.Far {
		bad("camera near %v must be positive and below far %v", c.Camera.Near, c.Camera.Far)
	}
	d := c.Lights.Directional
	if d.CastShadow {
		if d.MapSize <= 0 || d.MapSize > MaxShadowMapSize {
			bad("shadow map size must be in [1, %d], got %d", MaxShadowMapSize, d.MapSize)
		}
		if d.Near >= d.Far {
			bad("shadow near %v must be below far %v", d.Near, d.Far)
		}
		if d.Left >= d.Right || d.Bottom >= d.Top {
			bad("shadow bounds are empty")
		}
	}
	if c.Floor.Size <= 0 {
		bad("floor size must be positive, got %v", c.Floor.Size)
	}
	if c.Renderer.PixelRatio <= 0 {
		bad("pixel ratio must be positive, got %v", c.Renderer.PixelRatio)
	}
	for _, m := range c.Models {
		if m.Path == "" {
			bad("model without a path")
		}
	}
	for name, s := range map[string]string{
		"ambient color":     c.Lights.Ambient.Color,
		"directional color": d.Color,
		"floor color":       c.Floor.Color,
		"clear color":       c.Renderer.ClearColor,
	} {
		if _, err := scene.ParseColor(s); err != nil {
			bad("%s: %v", name, err)
		}
	}
	return errors.Join(errs...)
}

// Lighting builds the scene lights. The configuration must be valid.
func (c Config) Lighting() scene.Lighting {
	a, d := c.Lights.Ambient, c.Lights.Directional
	return scene.Lighting{
		Ambient: scene.AmbientLight{
			Color:     mustColor(a.Color),
			Intensity: a.Intensity,
		},
		Directional: scene.DirectionalLight{
			Color:      mustColor(d.Color),
			Intensity:  d.Intensity,
			Position:   d.Position.Vec3(),
			CastShadow: d.CastShadow,
			Shadow: scene.ShadowConfig{
				MapSize: d.MapSize,
				Left:    d.Left,
				Right:   d.Right,
				Top:     d.Top,
				Bottom:  d.Bottom,
				Near:    d.Near,
				Far:     d.Far,
				Bias:    d.Bias,
			},
		},
	}
}

// FloorMaterial builds the floor's standard material.
func (c Config) FloorMaterial() *scene.Material {
	return &scene.Material{
		Name:      "floor",
		Color:     mustColor(c.Floor.Color),
		Metalness: c.Floor.Metalness,
		Roughness: c.Floor.Roughness,
	}
}

// ClearColor returns the renderer clear color.
func (c Config) ClearColor() scene.Color {
	return mustColor(c.Renderer.ClearColor)
}

func mustColor(s string) scene.Color {
	col, err := scene.ParseColor(s)
	if err != nil {
		panic(fmt.Sprintf("unvalidated color %q: %v", s, err))
	}
	return col
}
