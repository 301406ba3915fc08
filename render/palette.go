// Package render - compositing of detection overlays onto frames.
package render

import (
	"image/color"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// Palette is a fixed, deterministic sequence of colors assigned cyclically
// per rendered instance. Assignment is by renderer-local position, not a
// stable per-class mapping.
type Palette []color.RGBA

// At returns the color for instance position i, wrapping around the table.
func (p Palette) At(i int) color.RGBA {
	return p[i%len(p)]
}

// DefaultPalette is the Detectron visualization color table.
var DefaultPalette = Palette{
	{R: 0, G: 114, B: 189, A: 255},
	{R: 217, G: 83, B: 25, A: 255},
	{R: 237, G: 177, B: 32, A: 255},
	{R: 126, G: 47, B: 142, A: 255},
	{R: 119, G: 172, B: 48, A: 255},
	{R: 77, G: 190, B: 238, A: 255},
	{R: 162, G: 20, B: 47, A: 255},
	{R: 76, G: 76, B: 76, A: 255},
	{R: 153, G: 153, B: 153, A: 255},
	{R: 255, G: 0, B: 0, A: 255},
	{R: 255, G: 128, B: 0, A: 255},
	{R: 191, G: 191, B: 0, A: 255},
	{R: 0, G: 255, B: 0, A: 255},
	{R: 0, G: 0, B: 255, A: 255},
	{R: 170, G: 0, B: 255, A: 255},
	{R: 85, G: 85, B: 0, A: 255},
	{R: 85, G: 170, B: 0, A: 255},
	{R: 85, G: 255, B: 0, A: 255},
	{R: 170, G: 85, B: 0, A: 255},
	{R: 170, G: 170, B: 0, A: 255},
	{R: 170, G: 255, B: 0, A: 255},
	{R: 255, G: 85, B: 0, A: 255},
	{R: 255, G: 170, B: 0, A: 255},
	{R: 255, G: 255, B: 0, A: 255},
	{R: 0, G: 85, B: 128, A: 255},
	{R: 0, G: 170, B: 128, A: 255},
	{R: 0, G: 255, B: 128, A: 255},
	{R: 85, G: 0, B: 128, A: 255},
	{R: 85, G: 85, B: 128, A: 255},
	{R: 85, G: 170, B: 128, A: 255},
	{R: 85, G: 255, B: 128, A: 255},
	{R: 170, G: 0, B: 128, A: 255},
	{R: 170, G: 85, B: 128, A: 255},
	{R: 170, G: 170, B: 128, A: 255},
	{R: 170, G: 255, B: 128, A: 255},
	{R: 255, G: 0, B: 128, A: 255},
	{R: 255, G: 85, B: 128, A: 255},
	{R: 255, G: 170, B: 128, A: 255},
	{R: 255, G: 255, B: 128, A: 255},
	{R: 0, G: 85, B: 255, A: 255},
	{R: 0, G: 170, B: 255, A: 255},
	{R: 0, G: 255, B: 255, A: 255},
	{R: 85, G: 0, B: 255, A: 255},
	{R: 85, G: 85, B: 255, A: 255},
	{R: 85, G: 170, B: 255, A: 255},
	{R: 85, G: 255, B: 255, A: 255},
	{R: 170, G: 0, B: 255, A: 255},
	{R: 170, G: 85, B: 255, A: 255},
	{R: 170, G: 170, B: 255, A: 255},
	{R: 170, G: 255, B: 255, A: 255},
	{R: 255, G: 0, B: 255, A: 255},
	{R: 255, G: 85, B: 255, A: 255},
	{R: 255, G: 170, B: 255, A: 255},
	{R: 43, G: 0, B: 0, A: 255},
	{R: 85, G: 0, B: 0, A: 255},
	{R: 128, G: 0, B: 0, A: 255},
	{R: 170, G: 0, B: 0, A: 255},
	{R: 212, G: 0, B: 0, A: 255},
	{R: 255, G: 0, B: 0, A: 255},
	{R: 0, G: 43, B: 0, A: 255},
	{R: 0, G: 85, B: 0, A: 255},
	{R: 0, G: 128, B: 0, A: 255},
	{R: 0, G: 170, B: 0, A: 255},
	{R: 0, G: 212, B: 0, A: 255},
	{R: 0, G: 255, B: 0, A: 255},
	{R: 0, G: 0, B: 43, A: 255},
	{R: 0, G: 0, B: 85, A: 255},
	{R: 0, G: 0, B: 128, A: 255},
	{R: 0, G: 0, B: 170, A: 255},
	{R: 0, G: 0, B: 212, A: 255},
	{R: 0, G: 0, B: 255, A: 255},
	{R: 0, G: 0, B: 0, A: 255},
	{R: 36, G: 36, B: 36, A: 255},
	{R: 73, G: 73, B: 73, A: 255},
	{R: 109, G: 109, B: 109, A: 255},
	{R: 146, G: 146, B: 146, A: 255},
	{R: 182, G: 182, B: 182, A: 255},
	{R: 219, G: 219, B: 219, A: 255},
	{R: 255, G: 255, B: 255, A: 255},}

// Rainbow builds an n-entry spectrum palette, violet through red, for
// skeleton bone coloring. Entry order is stable for a given n.
func Rainbow(n int) Palette {
	out := make(Palette, n)
	for i := 0; i < n; i++ {
		t := 0.0
		if n > 1 {
			t = float64(i) / float64(n-1)
		}
		// Sweep hue from violet (270) down to red (0).
		c := colorful.Hsv(270*(1-t), 1, 1)
		r, g, b := c.RGB255()
		out[i] = color.RGBA{R: r, G: g, B: b, A: 255}
	}
	return out
}
