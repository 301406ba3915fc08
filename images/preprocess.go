// Package images - deterministic preprocessing of raw frames into the input
// format a detector checkpoint was trained with.
package images

import (
	"image"

	"github.com/nfnt/resize"
	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"
	"gocv.io/x/gocv"
)

// Preprocessor applies the resize and normalization a checkpoint expects.
// Parameters come from the detector's training configuration and are opaque
// beyond "apply deterministically, same params every call".
type Preprocessor struct {
	// MinSize is the target length of the shorter image side.
	MinSize int
	// MaxSize caps the longer side. When scaling the short side to MinSize
	// would push the long side past MaxSize, the target shrinks so the long
	// side lands exactly on MaxSize.
	MaxSize int
	// Mean is the per-channel pixel mean, BGR order.
	Mean [3]float32
	// Std is the per-channel pixel std, BGR order.
	Std [3]float32
	// ToBGR255 keeps BGR channel order with pixel values in [0,255]. When
	// false, channels are flipped to RGB and scaled to [0,1].
	ToBGR255 bool
}

// DefaultPreprocessor returns the transform of the reference checkpoint.
func DefaultPreprocessor() Preprocessor {
	return Preprocessor{
		MinSize:  800,
		MaxSize:  1333,
		Mean:     [3]float32{102.9801, 115.9465, 122.7717},
		Std:      [3]float32{1, 1, 1},
		ToBGR255: true,
	}
}

// TargetSize computes the resized (width, height) for an input of the given
// dimensions: scale the short side to minSize, unless that would push the
// long side past maxSize, in which case shrink the target so the long side
// lands on maxSize. Aspect ratio is always preserved.
func TargetSize(w, h, minSize, maxSize int) (int, int) {
	size := minSize
	if maxSize > 0 {
		minOrig := float64(min(w, h))
		maxOrig := float64(max(w, h))
		if maxOrig/minOrig*float64(size) > float64(maxSize) {
			size = int(float64(maxSize)*minOrig/maxOrig + 0.5)
		}
	}

	if (w <= h && w == size) || (h <= w && h == size) {
		return w, h
	}

	if w < h {
		return size, size * h / w
	}
	return size * w / h, size
}

// Blob resizes a BGR frame per the transform and converts it into a 4D
// NCHW blob for an OpenCV DNN backend. Mean subtraction happens inside the
// blob conversion; Std must be unit for this path (the reference transform
// uses unit std).
func (p Preprocessor) Blob(img gocv.Mat) (gocv.Mat, error) {
	if img.Empty() {
		return gocv.NewMat(), errors.New("cannot preprocess empty image")
	}
	size := img.Size()
	tw, th := TargetSize(size[1], size[0], p.MinSize, p.MaxSize)

	resized := gocv.NewMat()
	gocv.Resize(img, &resized, image.Pt(tw, th), 0, 0, gocv.InterpolationLinear)
	defer resized.Close()

	scale := 1.0
	swapRB := false
	if !p.ToBGR255 {
		scale = 1.0 / 255.0
		swapRB = true
	}
	mean := gocv.NewScalar(float64(p.Mean[0]), float64(p.Mean[1]), float64(p.Mean[2]), 0)
	blob := gocv.BlobFromImage(resized, scale, image.Pt(tw, th), mean, swapRB, false)
	return blob, nil
}

// FillTensor resizes a frame per the transform and writes normalized CHW
// float32 planes into an ONNX Runtime tensor. The destination must hold at
// least 3*w*h floats for the computed target size; the used (width, height)
// is returned so callers can build the matching input shape.
func (p Preprocessor) FillTensor(img image.Image, dst *ort.Tensor[float32]) (int, int, error) {
	b := img.Bounds()
	tw, th := TargetSize(b.Dx(), b.Dy(), p.MinSize, p.MaxSize)

	data := dst.GetData()
	channelSize := tw * th
	if len(data) < channelSize*3 {
		return 0, 0, errors.Errorf("destination tensor holds %d floats, needs %d for %dx%d input",
			len(data), channelSize*3, tw, th)
	}

	scaled := resize.Resize(uint(tw), uint(th), img, resize.Bilinear)

	c0 := data[0:channelSize]
	c1 := data[channelSize : channelSize*2]
	c2 := data[channelSize*2 : channelSize*3]

	i := 0
	for y := 0; y < th; y++ {
		for x := 0; x < tw; x++ {
			r, g, b, _ := scaled.At(x, y).RGBA()
			rf := float32(r >> 8)
			gf := float32(g >> 8)
			bf := float32(b >> 8)
			if p.ToBGR255 {
				// Planes carry BGR in [0,255].
				c0[i] = (bf - p.Mean[0]) / p.Std[0]
				c1[i] = (gf - p.Mean[1]) / p.Std[1]
				c2[i] = (rf - p.Mean[2]) / p.Std[2]
			} else {
				// Planes carry RGB in [0,1].
				c0[i] = (rf/255.0 - p.Mean[2]) / p.Std[2]
				c1[i] = (gf/255.0 - p.Mean[1]) / p.Std[1]
				c2[i] = (bf/255.0 - p.Mean[0]) / p.Std[0]
			}
			i++
		}
	}
	return tw, th, nil
}
