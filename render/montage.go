package render

import (
	"github.com/pkg/errors"
	"gocv.io/x/gocv"
	"gorgonia.org/tensor"

	"github.com/nvr-ai/go-instseg/detection"
)

// Montage tiles per-instance mask heatmaps into a gridDim x gridDim grid
// and applies the jet colormap, as a diagnostic alternative to compositing
// overlays onto the frame. maskW and maskH give the mask resolution (the
// frame resolution), needed so an empty set still yields a correctly sized
// all-zero canvas.
//
// Every mask is downsampled by a factor of gridDim with area interpolation;
// the first gridDim^2 masks are placed row-major and unused cells stay
// zero.
func Montage(dets detection.Set, gridDim, maskW, maskH int) (gocv.Mat, error) {
	canvas, gh, gw, err := TileMasks(dets, gridDim, maskW, maskH)
	if err != nil {
		return gocv.NewMat(), err
	}

	gray, err := gocv.NewMatFromBytes(gh, gw, gocv.MatTypeCV8U, canvas.Data().([]uint8))
	if err != nil {
		return gocv.NewMat(), errors.Wrap(err, "building montage canvas")
	}
	defer gray.Close()

	heat := gocv.NewMat()
	gocv.ApplyColorMap(gray, &heat, gocv.ColormapJet)
	return heat, nil
}

// TileMasks builds the single-channel pre-colormap montage canvas and
// returns it with its (height, width). Exposed separately so the tiling
// arithmetic stays independent of the colormap step.
func TileMasks(dets detection.Set, gridDim, maskW, maskH int) (*tensor.Dense, int, int, error) {
	if gridDim <= 0 {
		return nil, 0, 0, errors.Errorf("invalid montage grid dimension %d", gridDim)
	}
	tw := maskW / gridDim
	th := maskH / gridDim
	if tw <= 0 || th <= 0 {
		return nil, 0, 0, errors.Errorf("mask resolution %dx%d too small for grid dimension %d", maskW, maskH, gridDim)
	}

	gw := gridDim * tw
	gh := gridDim * th
	canvas := tensor.New(tensor.Of(tensor.Uint8), tensor.WithShape(gh, gw))
	buf := canvas.Data().([]uint8)

	cell := 0
	maxCells := gridDim * gridDim
	for _, d := range dets {
		if cell >= maxCells {
			break
		}
		if d.Mask == nil {
			continue
		}
		tile := downsampleMask(d.Mask, gridDim, tw, th)

		row := cell / gridDim
		col := cell % gridDim
		for y := 0; y < th; y++ {
			dst := (row*th+y)*gw + col*tw
			copy(buf[dst:dst+tw], tile[y*tw:(y+1)*tw])
		}
		cell++
	}

	return canvas, gh, gw, nil
}

// downsampleMask shrinks a binary mask by an integer factor using area
// interpolation: each output pixel is the block average, scaled to [0,255]
// so the heatmap has usable dynamic range.
func downsampleMask(m *detection.Mask, factor, tw, th int) []uint8 {
	out := make([]uint8, tw*th)
	for y := 0; y < th; y++ {
		for x := 0; x < tw; x++ {
			sum := 0
			for dy := 0; dy < factor; dy++ {
				for dx := 0; dx < factor; dx++ {
					if m.At(x*factor+dx, y*factor+dy) == 1 {
						sum++
					}
				}
			}
			out[y*tw+x] = uint8(sum * 255 / (factor * factor))
		}
	}
	return out
}
