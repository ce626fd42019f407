// Package render rasterizes canteen scenes into a framebuffer and presents
// the result in the terminal.
package render

import (
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
)

// Framebuffer is a 2D array of pixels that can be rendered to the terminal.
// We use double vertical resolution by using half-block characters (▀▄).
type Framebuffer struct {
	Width  int          // Width in "pixels" (same as terminal columns)
	Height int          // Height in "pixels" (2x terminal rows due to half-blocks)
	Pixels []color.RGBA // Row-major pixel data
}

// NewFramebuffer creates a new framebuffer with the given dimensions.
// Height should be 2x the desired terminal rows for half-block rendering.
func NewFramebuffer(width, height int) *Framebuffer {
	return &Framebuffer{
		Width:  width,
		Height: height,
		Pixels: make([]color.RGBA, width*height),
	}
}

// Clear fills the framebuffer with a solid color.
func (fb *Framebuffer) Clear(c color.RGBA) {
	for i := range fb.Pixels {
		fb.Pixels[i] = c
	}
}

// SetPixel sets a pixel at (x, y) to the given color.
// Bounds checking is performed.
func (fb *Framebuffer) SetPixel(x, y int, c color.RGBA) {
	if x < 0 || x >= fb.Width || y < 0 || y >= fb.Height {
		return
	}
	fb.Pixels[y*fb.Width+x] = c
}

// GetPixel returns the color at (x, y).
// Returns transparent black if out of bounds.
func (fb *Framebuffer) GetPixel(x, y int) color.RGBA {
	if x < 0 || x >= fb.Width || y < 0 || y >= fb.Height {
		return color.RGBA{}
	}
	return fb.Pixels[y*fb.Width+x]
}

// Resize changes the framebuffer dimensions, reusing the pixel slice when it
// is large enough. Pixel contents are undefined until the next Clear.
func (fb *Framebuffer) Resize(width, height int) {
	fb.Width, fb.Height = width, height
	n := width * height
	if cap(fb.Pixels) < n {
		fb.Pixels = make([]color.RGBA, n)
		return
	}
	fb.Pixels = fb.Pixels[:n]
}

// Downsample box-filters fb into dst, averaging each factor x factor block
// into one destination pixel. dst is resized to fb's dimensions divided by
// factor.
func (fb *Framebuffer) Downsample(dst *Framebuffer, factor int) {
	if factor < 1 {
		factor = 1
	}
	dst.Resize(fb.Width/factor, fb.Height/factor)
	if factor == 1 {
		copy(dst.Pixels, fb.Pixels)
		return
	}
	n := uint32(factor * factor)
	for y := 0; y < dst.Height; y++ {
		for x := 0; x < dst.Width; x++ {
			var r, g, b, a uint32
			for sy := 0; sy < factor; sy++ {
				row := (y*factor + sy) * fb.Width
				for sx := 0; sx < factor; sx++ {
					p := fb.Pixels[row+x*factor+sx]
					r += uint32(p.R)
					g += uint32(p.G)
					b += uint32(p.B)
					a += uint32(p.A)
				}
			}
			dst.Pixels[y*dst.Width+x] = color.RGBA{
				R: uint8((r + n/2) / n),
				G: uint8((g + n/2) / n),
				B: uint8((b + n/2) / n),
				A: uint8((a + n/2) / n),
			}
		}
	}
}

// ToImage converts the framebuffer to a standard Go image.RGBA.
func (fb *Framebuffer) ToImage() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, fb.Width, fb.Height))
	for y := 0; y < fb.Height; y++ {
		for x := 0; x < fb.Width; x++ {
			img.SetRGBA(x, y, fb.Pixels[y*fb.Width+x])
		}
	}
	return img
}

// SavePNG saves the framebuffer as a PNG file.
func (fb *Framebuffer) SavePNG(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	return fb.writePNG(f)
}

// writePNG encodes into w and closes it. The close error is returned when the
// encode succeeded.
func (fb *Framebuffer) writePNG(w io.WriteCloser) error {
	if err := png.Encode(w, fb.ToImage()); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}
