package render

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"github.com/nvr-ai/go-instseg/detection"
)

const (
	labelFont      = gocv.FontHersheyDuplex
	labelFontScale = 0.6
	labelThickness = 1
	// labelPad is the vertical margin between the measured text and its
	// background rectangle.
	labelPad = 4
)

var labelTextColor = color.RGBA{R: 255, G: 255, B: 255, A: 255}

// Labels draws the category name (and optionally the score, formatted to
// two decimals) of every detection at its box top-left corner, over a
// filled background rectangle in the instance color. The rectangle is sized
// from the measured text so it always fully contains it.
func Labels(img gocv.Mat, dets detection.Set, categories detection.CategoryTable, palette Palette, showScore bool) gocv.Mat {
	out := img.Clone()
	for i, d := range dets {
		text := categories.Name(d.Label)
		if showScore {
			text = fmt.Sprintf("%s: %.2f", text, d.Score)
		}

		sz := gocv.GetTextSize(text, labelFont, labelFontScale, labelThickness)
		x, y := d.Box.Min.X, d.Box.Min.Y

		bg := image.Rect(x, y-sz.Y-labelPad, x+sz.X, y)
		gocv.Rectangle(&out, bg, palette.At(i), -1)
		gocv.PutTextWithParams(&out, text, image.Pt(x, y-3),
			labelFont, labelFontScale, labelTextColor, labelThickness, gocv.LineAA, false)
	}
	return out
}
