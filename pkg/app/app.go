// Package app wires the canteen scene, camera, controls and renderer into a
// frame loop.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	uv "github.com/charmbracelet/ultraviolet"
	"golang.org/x/sync/errgroup"

	"github.com/taigrr/canteen/pkg/controls"
	"github.com/taigrr/canteen/pkg/math3d"
	"github.com/taigrr/canteen/pkg/models"
	"github.com/taigrr/canteen/pkg/render"
	"github.com/taigrr/canteen/pkg/scene"
)

// Mixer advances animations. The frame loop calls Update once per frame
// with the seconds since the previous frame.
type Mixer interface {
	Update(delta float64)
}

// Option configures a Context.
type Option func(*Context)

// WithLogger sets the logger used by the context and the parts it creates.
func WithLogger(l *slog.Logger) Option {
	return func(c *Context) { c.logger = l }
}

// WithMixer installs an animation mixer.
func WithMixer(m Mixer) Option {
	return func(c *Context) { c.Mixer = m }
}

// WithClock replaces the wall clock, mainly for tests.
func WithClock(clock *Clock) Option {
	return func(c *Context) { c.Clock = clock }
}

// WithLoader replaces the default glTF loader.
func WithLoader(l *models.GLTFLoader) Option {
	return func(c *Context) { c.loader = l }
}

type loaded struct {
	model ModelConfig
	root  *scene.Node
}

// Context owns everything a running canteen needs. It is created once and
// torn down with Close.
//
// Model loads run on their own goroutines. Finished, fully augmented models
// are handed over a channel and attached to the scene by Frame, so the
// scene graph only changes on the frame goroutine.
type Context struct {
	Config   Config
	Scene    *scene.Scene
	Camera   *render.Camera
	Renderer *render.Renderer
	Controls *controls.Orbit
	Clock    *Clock
	HUD      *HUD
	Mixer    Mixer

	loader    *models.GLTFLoader
	augmenter *scene.Augmenter
	logger    *slog.Logger

	results chan loaded
	loads   errgroup.Group
	cancel  context.CancelFunc

	mu       sync.Mutex
	attached int
	failed   int
	decoding []*models.Future
}

// New builds the scene (floor and lights), camera, controls and renderer
// for a cols x rows terminal area. Models are not loaded until LoadModels.
func New(cfg Config, cols, rows int, opts ...Option) (*Context, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Context{
		Config:    cfg,
		augmenter: &scene.Augmenter{EdgeThreshold: cfg.Renderer.OutlineThreshold},
		logger:    slog.Default(),
		results:   make(chan loaded, len(cfg.Models)),
		cancel:    func() {},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.Clock == nil {
		c.Clock = NewClock()
	}
	if c.loader == nil {
		c.loader = models.NewGLTFLoader()
		c.loader.Logger = c.logger
	}

	c.Scene = scene.New()
	c.Scene.Lighting = cfg.Lighting()
	c.Scene.Add(scene.NewFloor(cfg.Floor.Size, cfg.Floor.Y, cfg.FloorMaterial()))

	cols, rows = max(cols, 1), max(rows, 1)
	cam := cfg.Camera
	c.Camera = render.NewCamera(cam.FOV, aspect(cols, rows), cam.Near, cam.Far)
	c.Camera.SetPosition(cam.Position.Vec3())
	c.Camera.LookAt(cam.LookAt.Vec3())

	c.Controls = controls.NewOrbit(c.Camera, cam.Target.Vec3(), cfg.FPS)
	c.Controls.Damping = cam.Damping
	c.Controls.OnChange(func(p math3d.Vec3) {
		c.logger.Debug("camera position", "x", p.X, "y", p.Y, "z", p.Z)
	})

	c.Renderer = render.NewRenderer(cols, rows)
	c.Renderer.Logger = c.logger
	c.Renderer.SetPixelRatio(cfg.Renderer.PixelRatio)
	c.Renderer.SetClearColor(cfg.ClearColor())
	c.Renderer.ShadowsEnabled = cfg.Renderer.Shadows

	c.HUD = NewHUD()
	return c, nil
}

// aspect is the pixel aspect of a terminal area; each cell is two pixels tall.
func aspect(cols, rows int) float64 {
	return float64(cols) / float64(rows*2)
}

// LoadModels starts loading every configured model concurrently and returns
// at once. A model that fails to load is logged and left out of the scene.
func (c *Context) LoadModels(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	for _, m := range c.Config.Models {
		f := c.loader.LoadAsync(ctx, m.Path)
		c.mu.Lock()
		c.decoding = append(c.decoding, f)
		c.mu.Unlock()

		c.loads.Go(func() error {
			root, err := f.Wait(ctx)
			if err != nil {
				c.logger.Warn("model load failed", "path", m.Path, "err", err)
				c.mu.Lock()
				c.failed++
				c.mu.Unlock()
				return fmt.Errorf("load %s: %w", m.Path, err)
			}
			c.augmenter.Prepare(root)
			c.logger.Info("model loaded", "path", m.Path, "children", root.ChildCount())

			select {
			case c.results <- loaded{model: m, root: root}:
			case <-ctx.Done():
				return ctx.Err()
			}
			return nil
		})
	}
}

// WaitLoads blocks until every load started by LoadModels has finished and
// returns the first load error, if any. Finished models still need a Frame
// to be attached.
func (c *Context) WaitLoads() error {
	return c.loads.Wait()
}

// attachLoaded moves finished loads into the scene without blocking.
func (c *Context) attachLoaded() {
	for {
		select {
		case l := <-c.results:
			scene.Place(c.Scene, l.root, l.model.Location().Vec3())
			c.mu.Lock()
			c.attached++
			c.mu.Unlock()
		default:
			return
		}
	}
}

// Models returns how many models are in the scene and how many failed.
func (c *Context) Models() (attached, failed int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.attached, c.failed
}

// Frame runs one iteration of the loop: attach finished loads, advance the
// clock and any mixer, update the controls and render.
func (c *Context) Frame() {
	c.attachLoaded()

	_, delta := c.Clock.Tick()
	if c.Mixer != nil {
		c.Mixer.Update(delta)
	}

	c.Controls.Update()
	c.Renderer.Render(c.Scene, c.Camera)
	c.HUD.Tick()
}

// Resize adapts the camera and renderer to a new terminal size.
func (c *Context) Resize(cols, rows int) {
	cols, rows = max(cols, 1), max(rows, 1)
	c.Camera.SetAspectRatio(aspect(cols, rows))
	c.Renderer.SetSize(cols, rows)
	c.Renderer.SetPixelRatio(c.Config.Renderer.PixelRatio)
}

// Draw presents the last frame and, when visible, the HUD.
func (c *Context) Draw(scr uv.Screen, area uv.Rectangle) {
	c.Renderer.Draw(scr, area)

	attached, _ := c.Models()
	_, tris := c.Scene.Stats()
	view := c.HUD.View(area.Dx(), HUDStats{
		Models:      attached,
		ModelsTotal: len(c.Config.Models),
		Triangles:   tris,
		Camera:      c.Camera.Position,
	})
	if view != "" {
		uv.NewStyledString(view).Draw(scr, uv.Rect(area.Min.X, area.Min.Y, area.Dx(), 1))
	}
}

// Close cancels outstanding loads, waits for them and their decoders to
// finish and releases the renderer's buffers.
func (c *Context) Close() {
	c.cancel()
	_ = c.loads.Wait()

	c.mu.Lock()
	decoding := c.decoding
	c.decoding = nil
	c.mu.Unlock()
	for _, f := range decoding {
		<-f.Done()
	}
	c.Renderer.Close()
}
