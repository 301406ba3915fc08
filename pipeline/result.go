// Package pipeline - orchestration of preprocess, inference, selection and
// rendering for batches of frames.
package pipeline

import (
	"github.com/nvr-ai/go-instseg/detection"
)

// Result is the structured per-image output paralleling the rendered image.
// All slices are always non-nil: an image with zero detections produces
// empty slices, never nulls and never an error.
type Result struct {
	Masks    []*detection.Mask `json:"masks"`
	ClassIDs []int             `json:"class_ids"`
	Rois     [][4]int          `json:"rois"`
	Scores   []float32         `json:"scores"`
	Areas    []int             `json:"areas"`
}

// EmptyResult returns the uniform zero-detection result.
func EmptyResult() Result {
	return Result{
		Masks:    []*detection.Mask{},
		ClassIDs: []int{},
		Rois:     [][4]int{},
		Scores:   []float32{},
		Areas:    []int{},
	}
}

// buildResult assembles the structured result from the selected detections,
// in their ranked order. areas may be empty when masks were not rendered.
func buildResult(dets detection.Set, areas []int) Result {
	r := EmptyResult()
	for i, d := range dets {
		if d.Mask != nil {
			r.Masks = append(r.Masks, d.Mask)
		}
		r.ClassIDs = append(r.ClassIDs, d.Label)
		r.Rois = append(r.Rois, [4]int{d.Box.Min.X, d.Box.Min.Y, d.Box.Max.X, d.Box.Max.Y})
		r.Scores = append(r.Scores, d.Score)
		if i < len(areas) {
			r.Areas = append(r.Areas, areas[i])
		}
	}
	return r
}
