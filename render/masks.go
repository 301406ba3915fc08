package render

import (
	"gocv.io/x/gocv"

	"github.com/nvr-ai/go-instseg/detection"
)

// maskAlpha is the blend weight of the annotated scratch buffer when
// compositing mask fills over the original frame.
const maskAlpha = 0.45

// Masks fills every instance mask region with the instance color and
// alpha-composites the result over the frame. It returns the composited
// image and the exact pixel area of each mask, one entry per detection in
// input order (0 for detections without a mask or with an empty mask).
//
// The scratch buffer starts as a copy of the frame, so the uniform blend is
// a no-op wherever nothing was drawn.
func Masks(img gocv.Mat, dets detection.Set, palette Palette) (gocv.Mat, []int) {
	scratch := img.Clone()
	defer scratch.Close()

	areas := make([]int, len(dets))
	for i, d := range dets {
		if d.Mask == nil {
			continue
		}
		drawMaskFill(&scratch, d.Mask, palette, i)
		areas[i] = d.Mask.Area()
	}

	out := gocv.NewMat()
	gocv.AddWeighted(img, 1.0-maskAlpha, scratch, maskAlpha, 0, &out)
	return out, areas
}

// drawMaskFill extracts the full contour hierarchy of the binary mask and
// fills it into dst. An empty mask produces zero contours and draws nothing.
func drawMaskFill(dst *gocv.Mat, mask *detection.Mask, palette Palette, pos int) {
	m, err := gocv.NewMatFromBytes(mask.H, mask.W, gocv.MatTypeCV8U, mask.Data)
	if err != nil {
		return
	}
	defer m.Close()

	hierarchy := gocv.NewMat()
	defer hierarchy.Close()

	contours := gocv.FindContoursWithParams(m, &hierarchy, gocv.RetrievalTree, gocv.ChainApproxSimple)
	defer contours.Close()

	if contours.Size() == 0 {
		return
	}
	gocv.DrawContours(dst, contours, -1, palette.At(pos), -1)
}
