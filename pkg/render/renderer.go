package render

import (
	"log/slog"
	"math"

	uv "github.com/charmbracelet/ultraviolet"

	"github.com/taigrr/canteen/pkg/math3d"
	"github.com/taigrr/canteen/pkg/scene"
)

// MaxPixelRatio caps the supersampling factor.
const MaxPixelRatio = 2

// FrameStats summarizes the last rendered frame.
type FrameStats struct {
	CullingStats
	ShadowCasters int
	Overlays      int
}

// Renderer draws a scene graph from a camera into a terminal-sized
// framebuffer. Frames are rasterized at PixelRatio times the output
// resolution and box-filtered down.
type Renderer struct {
	cols, rows int
	pixelRatio int
	clearColor scene.Color

	// ShadowsEnabled turns the shadow pass on. The directional light must
	// also have CastShadow set.
	ShadowsEnabled bool

	hi     *Framebuffer
	out    *Framebuffer
	raster *Rasterizer
	shadow *ShadowMap
	list   drawList
	stats  FrameStats

	Logger *slog.Logger
}

// NewRenderer creates a renderer for a cols x rows terminal area.
func NewRenderer(cols, rows int) *Renderer {
	r := &Renderer{
		pixelRatio:     1,
		clearColor:     scene.White,
		ShadowsEnabled: true,
		hi:             NewFramebuffer(0, 0),
		out:            NewFramebuffer(0, 0),
		Logger:         slog.Default(),
	}
	r.raster = NewRasterizer(r.hi)
	r.SetSize(cols, rows)
	return r
}

// SetSize resizes the output to cols x rows terminal cells. Each cell holds
// two vertically stacked pixels.
func (r *Renderer) SetSize(cols, rows int) {
	r.cols, r.rows = max(cols, 1), max(rows, 1)
	r.resize()
}

// SetPixelRatio sets the supersampling factor. It is rounded to an integer
// and clamped to [1, MaxPixelRatio].
func (r *Renderer) SetPixelRatio(ratio float64) {
	p := int(math.Round(ratio))
	r.pixelRatio = min(max(p, 1), MaxPixelRatio)
	r.resize()
}

// PixelRatio returns the effective supersampling factor.
func (r *Renderer) PixelRatio() int {
	return r.pixelRatio
}

// SetClearColor sets the color frames are cleared to.
func (r *Renderer) SetClearColor(c scene.Color) {
	r.clearColor = c
}

// Size returns the output size in terminal cells.
func (r *Renderer) Size() (cols, rows int) {
	return r.cols, r.rows
}

func (r *Renderer) resize() {
	w, h := r.cols*r.pixelRatio, r.rows*2*r.pixelRatio
	r.hi.Resize(w, h)
	r.out.Resize(r.cols, r.rows*2)
	r.raster.SetTarget(r.hi)
	r.raster.LineWidth = r.pixelRatio
	r.Logger.Debug("renderer resized", "cols", r.cols, "rows", r.rows, "pixels", w*h)
}

// Render draws one frame of s as seen from cam.
func (r *Renderer) Render(s *scene.Scene, cam *Camera) {
	r.list.reset()
	for _, root := range s.Children() {
		r.list.add(root, math3d.Identity())
	}

	r.raster.Lighting = s.Lighting
	r.raster.Shadow = nil
	r.stats = FrameStats{}

	light := s.Lighting.Directional
	if r.ShadowsEnabled && light.CastShadow {
		if r.shadow == nil {
			r.shadow = NewShadowMap(light.Shadow.MapSize)
		}
		r.shadow.Begin(light)
		for _, it := range r.list.meshes {
			if it.node.CastShadow {
				r.shadow.DrawMesh(it.node.Geometry, it.world)
			}
		}
		r.raster.Shadow = r.shadow
		r.stats.ShadowCasters = r.shadow.Casters()
	}

	bg := r.clearColor
	if s.Background != nil {
		bg = *s.Background
	}
	r.raster.Begin(cam, bg)

	for _, it := range r.list.meshes {
		r.raster.DrawMesh(it.node.Geometry, it.world, Surface{
			Material:      it.node.Material,
			ReceiveShadow: it.node.ReceiveShadow,
		})
	}
	for _, it := range r.list.overlays {
		c := scene.Black
		if it.node.LineMaterial != nil {
			c = it.node.LineMaterial.Color
		}
		r.raster.DrawLines(it.node.Lines, it.world, c)
	}

	r.stats.CullingStats = r.raster.Stats
	r.stats.Overlays = len(r.list.overlays)
	r.hi.Downsample(r.out, r.pixelRatio)
}

// Output returns the downsampled frame.
func (r *Renderer) Output() *Framebuffer {
	return r.out
}

// Stats returns statistics for the last frame.
func (r *Renderer) Stats() FrameStats {
	return r.stats
}

// Draw presents the last frame on a terminal screen.
func (r *Renderer) Draw(scr uv.Screen, area uv.Rectangle) {
	r.out.Draw(scr, area)
}

// Close releases the frame buffers.
func (r *Renderer) Close() {
	r.hi = NewFramebuffer(0, 0)
	r.out = NewFramebuffer(0, 0)
	r.raster.SetTarget(r.hi)
	r.shadow = nil
	r.list.reset()
}

type drawItem struct {
	node  *scene.Node
	world math3d.Mat4
}

// drawList flattens the scene graph into world-space meshes and overlays.
type drawList struct {
	meshes   []drawItem
	overlays []drawItem
	world    math3d.Mat4
}

func (d *drawList) reset() {
	d.meshes = d.meshes[:0]
	d.overlays = d.overlays[:0]
}

func (d *drawList) add(n *scene.Node, parent math3d.Mat4) {
	if n == nil {
		return
	}
	world := parent.Mul(n.LocalMatrix())
	d.world = world
	scene.Accept(n, d)
	for _, c := range n.Children {
		d.add(c, world)
	}
}

func (d *drawList) VisitGroup(*scene.Node) {}

func (d *drawList) VisitMesh(n *scene.Node) {
	d.meshes = append(d.meshes, drawItem{node: n, world: d.world})
}

func (d *drawList) VisitOverlay(n *scene.Node) {
	if n.Lines.SegmentCount() > 0 {
		d.overlays = append(d.overlays, drawItem{node: n, world: d.world})
	}
}
