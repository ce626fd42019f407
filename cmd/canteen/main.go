// canteen - Terminal 3D Scene Viewer
// Loads glTF models into a lit, shadowed scene with black outlines and an
// orbiting camera.
//
// Controls:
//
//	Mouse drag  - Orbit around the target
//	Scroll      - Zoom in/out
//	W/S         - Orbit up/down
//	A/D         - Orbit left/right
//	+/-         - Adjust zoom
//	R           - Reset camera
//	?           - Toggle HUD overlay (FPS, model and triangle counts, camera)
//	Esc         - Quit
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/fang"
	uv "github.com/charmbracelet/ultraviolet"
	"github.com/spf13/cobra"

	"github.com/taigrr/canteen/pkg/app"
)

var version = "dev"

const (
	orbitStep = 0.05 // Radians per key press
	dragScale = 0.02 // Radians per cell dragged
	zoomStep  = 1.1
)

type options struct {
	config     string
	fps        int
	bg         string
	pixelRatio float64
	noShadows  bool
	logFile    string
	logLevel   string
	snapshot   string
}

func main() {
	opts := &options{}
	cmd := &cobra.Command{
		Use:   "canteen [model.gltf|model.glb ...]",
		Short: "View a lit, outlined glTF scene in the terminal",
		Long: `canteen renders glTF models in the terminal on a white floor, lit by an
ambient and a shadow casting directional light, with black outlines on
every mesh. Drag or use WASD to orbit, scroll or +/- to zoom.

Models given as arguments replace the ones from the config file.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), opts, args)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.config, "config", "c", "", "TOML config file")
	f.IntVar(&opts.fps, "fps", 0, "target FPS (overrides config)")
	f.StringVar(&opts.bg, "bg", "", "background color, #rrggbb (overrides config)")
	f.Float64Var(&opts.pixelRatio, "pixel-ratio", 0, "supersampling factor, 1 or 2 (overrides config)")
	f.BoolVar(&opts.noShadows, "no-shadows", false, "disable shadow mapping")
	f.StringVar(&opts.logFile, "log-file", "", "write logs to this file")
	f.StringVar(&opts.logLevel, "log-level", "info", "log level: debug, info, warn, error")
	f.StringVar(&opts.snapshot, "snapshot", "", "render one frame after loading to this PNG and exit")

	if err := fang.Execute(context.Background(), cmd, fang.WithVersion(version)); err != nil {
		os.Exit(1)
	}
}

// load merges the config file, flags and positional models.
func (o *options) load(args []string) (app.Config, error) {
	cfg := app.DefaultConfig()
	if o.config != "" {
		var err error
		if cfg, err = app.LoadConfig(o.config); err != nil {
			return cfg, err
		}
	}

	if o.fps > 0 {
		cfg.FPS = o.fps
	}
	if o.bg != "" {
		cfg.Renderer.ClearColor = o.bg
	}
	if o.pixelRatio > 0 {
		cfg.Renderer.PixelRatio = o.pixelRatio
	}
	if o.noShadows {
		cfg.Renderer.Shadows = false
	}
	if len(args) > 0 {
		cfg.Models = nil
		for _, path := range args {
			cfg.Models = append(cfg.Models, app.ModelConfig{Path: path})
		}
	}
	return cfg, cfg.Validate()
}

func (o *options) logger() (*slog.Logger, func(), error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(o.logLevel)); err != nil {
		return nil, nil, fmt.Errorf("log level: %w", err)
	}
	if o.logFile == "" {
		return slog.New(slog.NewTextHandler(io.Discard, nil)), func() {}, nil
	}
	f, err := os.OpenFile(o.logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	l := slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: level}))
	return l, func() { f.Close() }, nil
}

func run(ctx context.Context, o *options, args []string) error {
	cfg, err := o.load(args)
	if err != nil {
		return err
	}
	logger, closeLog, err := o.logger()
	if err != nil {
		return err
	}
	defer closeLog()
	slog.SetDefault(logger)

	if o.snapshot != "" {
		return snapshot(ctx, cfg, logger, o.snapshot)
	}
	return view(ctx, cfg, logger)
}

// snapshot loads every model, renders a single frame and saves it as PNG.
func snapshot(ctx context.Context, cfg app.Config, logger *slog.Logger, path string) error {
	c, err := app.New(cfg, 160, 60, app.WithLogger(logger))
	if err != nil {
		return err
	}
	defer c.Close()

	c.LoadModels(ctx)
	if err := c.WaitLoads(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
	}
	c.Frame()
	if attached, _ := c.Models(); attached == 0 && len(cfg.Models) > 0 {
		return errors.New("no model could be loaded")
	}
	return c.Renderer.Output().SavePNG(path)
}

func view(ctx context.Context, cfg app.Config, logger *slog.Logger) error {
	term := uv.DefaultTerminal()

	width, height, err := term.GetSize()
	if err != nil {
		return fmt.Errorf("get terminal size: %w", err)
	}

	c, err := app.New(cfg, width, height, app.WithLogger(logger))
	if err != nil {
		return err
	}
	defer c.Close()

	if err := term.Start(); err != nil {
		return fmt.Errorf("start terminal: %w", err)
	}

	term.EnterAltScreen()
	term.HideCursor()
	term.Resize(width, height)

	// Any-event mouse tracking with SGR extended coordinates
	fmt.Fprint(os.Stdout, "\x1b[?1003h")
	fmt.Fprint(os.Stdout, "\x1b[?1006h")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		select {
		case <-sigChan:
			cancel()
		case <-ctx.Done():
		}
	}()

	c.LoadModels(ctx)

	// Events arrive on their own goroutine; the frame loop applies them so
	// the controls and renderer are only touched from one place.
	input := make(chan uv.Event, 64)
	go func() {
		for ev := range term.Events() {
			select {
			case input <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()

	var mouseDown bool
	var lastMouseX, lastMouseY int

	handle := func(ev uv.Event) {
		switch ev := ev.(type) {
		case uv.WindowSizeEvent:
			width, height = ev.Width, ev.Height
			term.Erase()
			term.Resize(width, height)
			c.Resize(width, height)

		case uv.KeyPressEvent:
			switch {
			case ev.MatchString("escape", "ctrl+c"):
				cancel()
			case ev.MatchString("w", "up"):
				c.Controls.Rotate(0, -orbitStep)
			case ev.MatchString("s", "down"):
				c.Controls.Rotate(0, orbitStep)
			case ev.MatchString("a", "left"):
				c.Controls.Rotate(-orbitStep, 0)
			case ev.MatchString("d", "right"):
				c.Controls.Rotate(orbitStep, 0)
			case ev.MatchString("+", "="):
				c.Controls.Zoom(1 / zoomStep)
			case ev.MatchString("-", "_"):
				c.Controls.Zoom(zoomStep)
			case ev.MatchString("r"):
				c.Controls.Reset()
			case ev.MatchString("?", "shift+/"):
				c.HUD.Visible = !c.HUD.Visible
			}

		case uv.MouseClickEvent:
			mouseDown = true
			lastMouseX, lastMouseY = ev.X, ev.Y

		case uv.MouseReleaseEvent:
			mouseDown = false

		case uv.MouseMotionEvent:
			if mouseDown {
				dx := ev.X - lastMouseX
				dy := ev.Y - lastMouseY
				c.Controls.Rotate(-float64(dx)*dragScale, -float64(dy)*dragScale)
				lastMouseX, lastMouseY = ev.X, ev.Y
			}

		case uv.MouseWheelEvent:
			switch ev.Button {
			case uv.MouseWheelUp:
				c.Controls.Zoom(1 / zoomStep)
			case uv.MouseWheelDown:
				c.Controls.Zoom(zoomStep)
			}
		}
	}

	cleanup := func() {
		fmt.Fprint(os.Stdout, "\x1b[?1003l")
		fmt.Fprint(os.Stdout, "\x1b[?1006l")
		term.ExitAltScreen()
		term.ShowCursor()
		term.Shutdown(context.Background())
	}
	defer cleanup()

	targetDuration := time.Second / time.Duration(cfg.FPS)
	for {
		now := time.Now()

	drain:
		for {
			select {
			case <-ctx.Done():
				return nil
			case ev := <-input:
				handle(ev)
			default:
				break drain
			}
		}

		c.Frame()
		c.Draw(term, uv.Rect(0, 0, width, height))
		if err := term.Display(); err != nil {
			return fmt.Errorf("display: %w", err)
		}

		if elapsed := time.Since(now); elapsed < targetDuration {
			time.Sleep(targetDuration - elapsed)
		}
	}
}
