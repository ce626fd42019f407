package app

import (
	"fmt"
	"time"

	"charm.land/lipgloss/v2"

	"github.com/taigrr/canteen/pkg/math3d"
)

// HUDStats is what the HUD shows for one frame.
type HUDStats struct {
	Models, ModelsTotal int
	Triangles           int
	Camera              math3d.Vec3
}

// HUD renders a one-line overlay with frame rate and scene statistics.
type HUD struct {
	Visible bool

	now       func() time.Time
	fps       float64
	fpsFrames int
	fpsTime   time.Time

	fpsStyle    lipgloss.Style
	titleStyle  lipgloss.Style
	statsStyle  lipgloss.Style
	cameraStyle lipgloss.Style
}

// NewHUD creates a hidden HUD.
func NewHUD() *HUD {
	return newHUD(time.Now)
}

func newHUD(now func() time.Time) *HUD {
	bg := lipgloss.Color("#000000")
	base := lipgloss.NewStyle().Background(bg).Padding(0, 1)
	return &HUD{
		now:         now,
		fpsTime:     now(),
		fpsStyle:    base.Foreground(lipgloss.Color("#5fff5f")),
		titleStyle:  base.Foreground(lipgloss.Color("#ffffff")).Bold(true),
		statsStyle:  base.Foreground(lipgloss.Color("#5fffff")).Bold(true),
		cameraStyle: base.Foreground(lipgloss.Color("#ffff5f")).Faint(true),
	}
}

// Tick counts a frame. The frame rate is refreshed about once a second.
func (h *HUD) Tick() {
	h.fpsFrames++
	now := h.now()
	elapsed := now.Sub(h.fpsTime)
	if elapsed >= time.Second {
		h.fps = float64(h.fpsFrames) / elapsed.Seconds()
		h.fpsFrames = 0
		h.fpsTime = now
	}
}

// FPS returns the last measured frame rate.
func (h *HUD) FPS() float64 {
	return h.fps
}

// View renders the overlay for a terminal width columns wide. It returns
// an empty string when the HUD is hidden.
func (h *HUD) View(width int, st HUDStats) string {
	if !h.Visible {
		return ""
	}
	fps := h.fpsStyle.Render(fmt.Sprintf("%.0f FPS", h.fps))
	title := h.titleStyle.Render("canteen")
	stats := h.statsStyle.Render(fmt.Sprintf("%d/%d models  %d tris", st.Models, st.ModelsTotal, st.Triangles))
	cam := h.cameraStyle.Render(fmt.Sprintf("camera %.1f %.1f %.1f", st.Camera.X, st.Camera.Y, st.Camera.Z))

	bar := lipgloss.JoinHorizontal(lipgloss.Top, fps, title, stats, cam)
	if lipgloss.Width(bar) > width {
		bar = lipgloss.JoinHorizontal(lipgloss.Top, fps, stats)
	}
	return bar
}
