package render

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"

	"github.com/nvr-ai/go-instseg/detection"
)

func blankFrame(w, h int) gocv.Mat {
	return gocv.NewMatWithSize(h, w, gocv.MatTypeCV8UC3)
}

func pixel(m gocv.Mat, x, y int) [3]uint8 {
	v := m.GetVecbAt(y, x)
	return [3]uint8{v[0], v[1], v[2]}
}

func TestBoxes_DrawsBorderLeavesOutsideUntouched(t *testing.T) {
	img := blankFrame(32, 32)
	defer img.Close()

	dets := detection.Set{
		{Box: image.Rect(8, 8, 24, 24), Label: 1, Score: 0.9},
	}

	out := Boxes(img, dets, DefaultPalette)
	defer out.Close()

	// Border pixel carries the first palette color (stored BGR).
	c := DefaultPalette.At(0)
	assert.Equal(t, [3]uint8{c.B, c.G, c.R}, pixel(out, 8, 8))

	// Pixels away from the 1px border are untouched.
	assert.Equal(t, [3]uint8{0, 0, 0}, pixel(out, 0, 0))
	assert.Equal(t, [3]uint8{0, 0, 0}, pixel(out, 16, 16))
	assert.Equal(t, [3]uint8{0, 0, 0}, pixel(out, 31, 31))
}

func TestBoxes_DoesNotMutateInput(t *testing.T) {
	img := blankFrame(16, 16)
	defer img.Close()

	out := Boxes(img, detection.Set{{Box: image.Rect(2, 2, 12, 12), Label: 1}}, DefaultPalette)
	defer out.Close()

	assert.Equal(t, [3]uint8{0, 0, 0}, pixel(img, 2, 2))
}

func TestBoxes_ColorCyclesPerInstance(t *testing.T) {
	img := blankFrame(64, 64)
	defer img.Close()

	dets := detection.Set{
		{Box: image.Rect(2, 2, 10, 10), Label: 1},
		{Box: image.Rect(20, 20, 30, 30), Label: 1},
	}
	out := Boxes(img, dets, DefaultPalette)
	defer out.Close()

	c0 := DefaultPalette.At(0)
	c1 := DefaultPalette.At(1)
	assert.Equal(t, [3]uint8{c0.B, c0.G, c0.R}, pixel(out, 2, 2))
	assert.Equal(t, [3]uint8{c1.B, c1.G, c1.R}, pixel(out, 20, 20))
}

func TestMasks_AreasInInputOrder(t *testing.T) {
	img := blankFrame(16, 16)
	defer img.Close()

	small := detection.NewMask(16, 16)
	small.Set(4, 4, 1)
	small.Set(4, 5, 1)

	big := detection.NewMask(16, 16)
	for y := 8; y < 12; y++ {
		for x := 8; x < 12; x++ {
			big.Set(x, y, 1)
		}
	}

	dets := detection.Set{
		{Box: image.Rect(4, 4, 6, 6), Label: 1, Mask: small},
		{Box: image.Rect(0, 0, 4, 4), Label: 1}, // no mask
		{Box: image.Rect(8, 8, 12, 12), Label: 1, Mask: big},
	}

	out, areas := Masks(img, dets, DefaultPalette)
	defer out.Close()

	require.Len(t, areas, 3)
	assert.Equal(t, 2, areas[0])
	assert.Equal(t, 0, areas[1])
	assert.Equal(t, 16, areas[2])
}

func TestMasks_EmptyMaskYieldsZeroArea(t *testing.T) {
	img := blankFrame(8, 8)
	defer img.Close()

	dets := detection.Set{
		{Box: image.Rect(0, 0, 4, 4), Label: 1, Mask: detection.NewMask(8, 8)},
	}
	out, areas := Masks(img, dets, DefaultPalette)
	defer out.Close()

	require.Len(t, areas, 1)
	assert.Equal(t, 0, areas[0])
}

func TestMasks_UnannotatedRegionsUnchanged(t *testing.T) {
	img := blankFrame(16, 16)
	defer img.Close()
	// Give the background a non-zero value so blending drift would show.
	img.SetTo(gocv.NewScalar(40, 80, 120, 0))

	m := detection.NewMask(16, 16)
	for y := 2; y < 6; y++ {
		for x := 2; x < 6; x++ {
			m.Set(x, y, 1)
		}
	}
	dets := detection.Set{{Box: image.Rect(2, 2, 6, 6), Label: 1, Mask: m}}

	out, _ := Masks(img, dets, DefaultPalette)
	defer out.Close()

	// The scratch starts as a copy, so the uniform blend is an identity
	// wherever nothing was drawn.
	assert.Equal(t, pixel(img, 12, 12), pixel(out, 12, 12))
	// Inside the mask the color shifted.
	assert.NotEqual(t, pixel(img, 3, 3), pixel(out, 3, 3))
}

func TestLabels_DoesNotMutateInput(t *testing.T) {
	img := blankFrame(64, 64)
	defer img.Close()

	dets := detection.Set{{Box: image.Rect(10, 30, 40, 50), Label: 3, Score: 0.87}}
	out := Labels(img, dets, detection.DefaultCategories, DefaultPalette, true)
	defer out.Close()

	assert.Equal(t, [3]uint8{0, 0, 0}, pixel(img, 10, 28))
	// The background rectangle above the box corner was filled.
	assert.NotEqual(t, [3]uint8{0, 0, 0}, pixel(out, 11, 28))
}

func TestKeypoints_SkipsLowConfidenceJoints(t *testing.T) {
	img := blankFrame(64, 64)
	defer img.Close()

	kps := make(detection.Keypoints, detection.NumJoints)
	for i := range kps {
		kps[i] = detection.Keypoint{X: 32, Y: 32, Score: 0.1} // below threshold
	}
	dets := detection.Set{{Box: image.Rect(0, 0, 64, 64), Label: 1, Keypoints: kps}}

	out := Keypoints(img, dets, DefaultKeypointThreshold)
	defer out.Close()

	// Nothing exceeded the threshold: the blend of two identical buffers
	// leaves the frame black.
	assert.Equal(t, [3]uint8{0, 0, 0}, pixel(out, 32, 32))
}

func TestKeypoints_DrawsConfidentSkeleton(t *testing.T) {
	img := blankFrame(64, 64)
	defer img.Close()

	kps := make(detection.Keypoints, detection.NumJoints)
	for i := range kps {
		kps[i] = detection.Keypoint{X: float32(10 + i*2), Y: float32(10 + i*2), Score: 5.0}
	}
	dets := detection.Set{{Box: image.Rect(0, 0, 64, 64), Label: 1, Keypoints: kps}}

	out := Keypoints(img, dets, DefaultKeypointThreshold)
	defer out.Close()

	changed := false
	for y := 0; y < 64 && !changed; y++ {
		for x := 0; x < 64; x++ {
			if pixel(out, x, y) != [3]uint8{0, 0, 0} {
				changed = true
				break
			}
		}
	}
	assert.True(t, changed, "confident joints should draw bones")
}
