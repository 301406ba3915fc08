// Package detection - data model and selection of instance predictions.
package detection

import (
	"encoding/json"
	"image"
)

// Detection represents one candidate object instance produced by a detector.
//
// The bounding box is always present. Mask and Keypoints are populated only
// when the detector was configured to produce them.
type Detection struct {
	// Box is the bounding box in pixel coordinates, [x1,y1,x2,y2] ordered.
	Box image.Rectangle
	// Label is the class index into a CategoryTable. Label 0 is background
	// and never appears in detector output.
	Label int
	// Score is the detection confidence in [0,1].
	Score float32
	// MaskScore is the optional mask-quality score. When present it replaces
	// Score for both filtering and ranking.
	MaskScore *float32
	// Mask is the optional per-pixel instance footprint at image resolution.
	Mask *Mask
	// Keypoints is the optional fixed-topology joint list.
	Keypoints Keypoints
}

// RankScore returns the score used for threshold filtering and ordering:
// the mask-quality score when the detector produced one, the raw detection
// score otherwise.
func (d Detection) RankScore() float32 {
	if d.MaskScore != nil {
		return *d.MaskScore
	}
	return d.Score
}

// Set is the ordered collection of detections for a single image. Order is
// insertion order from the detector until Select ranks it.
type Set []Detection

// Mask is a binary per-pixel instance footprint. Data is row-major with one
// byte per pixel, values 0 or 1.
type Mask struct {
	W, H int
	Data []uint8
}

// NewMask allocates an all-zero mask of the given dimensions.
func NewMask(w, h int) *Mask {
	return &Mask{W: w, H: h, Data: make([]uint8, w*h)}
}

// At returns the mask value at (x, y). Out-of-bounds reads return 0.
func (m *Mask) At(x, y int) uint8 {
	if x < 0 || y < 0 || x >= m.W || y >= m.H {
		return 0
	}
	return m.Data[y*m.W+x]
}

// Set writes v at (x, y). Out-of-bounds writes are dropped.
func (m *Mask) Set(x, y int, v uint8) {
	if x < 0 || y < 0 || x >= m.W || y >= m.H {
		return
	}
	m.Data[y*m.W+x] = v
}

// Area returns the exact number of mask pixels equal to 1.
func (m *Mask) Area() int {
	n := 0
	for _, v := range m.Data {
		if v == 1 {
			n++
		}
	}
	return n
}

// MarshalJSON encodes the mask as a 2D row-major array, matching the
// structured result layout consumers of the pipeline expect.
func (m *Mask) MarshalJSON() ([]byte, error) {
	rows := make([][]uint8, m.H)
	for y := 0; y < m.H; y++ {
		rows[y] = m.Data[y*m.W : (y+1)*m.W]
	}
	return json.Marshal(rows)
}

// CategoryTable maps class label indices to human-readable names. Index 0
// is reserved for background and is never selected or rendered.
type CategoryTable []string

// Name returns the category name for a label, or "unknown" when the label
// is outside the table.
func (c CategoryTable) Name(label int) string {
	if label >= 0 && label < len(c) {
		return c[label]
	}
	return "unknown"
}
