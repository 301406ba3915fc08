package inference

import (
	"image"

	"github.com/nvr-ai/go-instseg/detection"
)

// PasteMask projects a fixed-resolution mask probability map (as produced
// by the mask head for one instance, e.g. 28x28) into a full-resolution
// binary mask: the map is bilinearly resized to the bounding box and
// thresholded, everything outside the box stays zero.
func PasteMask(prob []float32, mw, mh int, box image.Rectangle, imgW, imgH int, threshold float32) *detection.Mask {
	mask := detection.NewMask(imgW, imgH)

	bw := box.Dx()
	bh := box.Dy()
	if bw <= 0 || bh <= 0 {
		return mask
	}

	sx := float32(mw) / float32(bw)
	sy := float32(mh) / float32(bh)

	for y := 0; y < bh; y++ {
		py := box.Min.Y + y
		if py < 0 || py >= imgH {
			continue
		}
		// Sample at the pixel center of the box coordinate.
		fy := (float32(y)+0.5)*sy - 0.5
		for x := 0; x < bw; x++ {
			px := box.Min.X + x
			if px < 0 || px >= imgW {
				continue
			}
			fx := (float32(x)+0.5)*sx - 0.5
			if bilinear(prob, mw, mh, fx, fy) > threshold {
				mask.Set(px, py, 1)
			}
		}
	}
	return mask
}

// bilinear samples a row-major float32 grid at a fractional coordinate,
// clamping at the borders.
func bilinear(grid []float32, w, h int, fx, fy float32) float32 {
	x0 := int(fx)
	y0 := int(fy)
	if fx < 0 {
		x0 = -1
	}
	if fy < 0 {
		y0 = -1
	}
	x1 := x0 + 1
	y1 := y0 + 1

	dx := fx - float32(x0)
	dy := fy - float32(y0)

	at := func(x, y int) float32 {
		if x < 0 {
			x = 0
		}
		if y < 0 {
			y = 0
		}
		if x >= w {
			x = w - 1
		}
		if y >= h {
			y = h - 1
		}
		return grid[y*w+x]
	}

	top := at(x0, y0)*(1-dx) + at(x1, y0)*dx
	bottom := at(x0, y1)*(1-dx) + at(x1, y1)*dx
	return top*(1-dy) + bottom*dy
}
