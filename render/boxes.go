package render

import (
	"gocv.io/x/gocv"

	"github.com/nvr-ai/go-instseg/detection"
)

// Boxes draws a 1-pixel rectangle for every detection onto a copy of the
// frame, colored by instance position. The input frame is left untouched;
// callers wanting in-place drawing use BoxesInPlace.
func Boxes(img gocv.Mat, dets detection.Set, palette Palette) gocv.Mat {
	out := img.Clone()
	BoxesInPlace(&out, dets, palette)
	return out
}

// BoxesInPlace draws the box overlay directly into img.
func BoxesInPlace(img *gocv.Mat, dets detection.Set, palette Palette) {
	for i, d := range dets {
		gocv.Rectangle(img, d.Box, palette.At(i), 1)
	}
}
