package pipeline

import (
	"context"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"

	"github.com/nvr-ai/go-instseg/detection"
	"github.com/nvr-ai/go-instseg/inference"
	"github.com/nvr-ai/go-instseg/render"
)

// Options controls selection and rendering.
type Options struct {
	// Thresholds is the per-class score table, one entry per non-background
	// category.
	Thresholds detection.Thresholds
	// Categories maps labels to names; index 0 is background.
	Categories detection.CategoryTable
	// Palette colors instances; nil uses render.DefaultPalette.
	Palette render.Palette

	// DrawMasks composites instance mask fills. Requires a detector
	// configured for masks.
	DrawMasks bool
	// DrawKeypoints overlays the person skeleton. Requires a detector
	// configured for keypoints.
	DrawKeypoints bool
	// ShowLabels draws category names at box corners.
	ShowLabels bool
	// ShowScores appends the score to each label.
	ShowScores bool
	// KeypointThreshold is the joint confidence cutoff; zero uses the
	// default.
	KeypointThreshold float32

	// MaskHeatmaps switches to the diagnostic montage: per-instance mask
	// heatmaps tiled into a grid instead of overlays on the frame. Mutually
	// exclusive with the overlay options.
	MaskHeatmaps bool
	// MasksPerDim is the montage grid dimension.
	MasksPerDim int
}

// Output pairs the rendered image of one input frame with its structured
// result. The caller owns (and closes) Image.
type Output struct {
	Image gocv.Mat
	Data  Result
}

// Visualizer runs the full post-processing pipeline over batches of frames:
// detector inference, per-class threshold selection, then either overlay
// compositing or the mask heatmap montage.
type Visualizer struct {
	det  inference.Detector
	opts Options
}

// NewVisualizer validates the options against the detector's capabilities.
// Requesting mask or keypoint output from a detector configured without it
// is an unsupported operation, reported immediately rather than at render
// time.
func NewVisualizer(det inference.Detector, opts Options) (*Visualizer, error) {
	caps := det.Capabilities()
	if (opts.DrawMasks || opts.MaskHeatmaps) && !caps.Masks {
		return nil, errors.Wrap(inference.ErrUnsupportedOperation, "detector not configured for masks")
	}
	if opts.DrawKeypoints && !caps.Keypoints {
		return nil, errors.Wrap(inference.ErrUnsupportedOperation, "detector not configured for keypoints")
	}
	if len(opts.Thresholds) != len(opts.Categories)-1 {
		return nil, errors.Wrapf(detection.ErrConfiguration,
			"%d thresholds for %d non-background categories", len(opts.Thresholds), len(opts.Categories)-1)
	}
	if opts.Palette == nil {
		opts.Palette = render.DefaultPalette
	}
	if opts.KeypointThreshold == 0 {
		opts.KeypointThreshold = render.DefaultKeypointThreshold
	}
	if opts.MasksPerDim == 0 {
		opts.MasksPerDim = 2
	}
	return &Visualizer{det: det, opts: opts}, nil
}

// Run infers on the batch and renders one Output per frame, in input order.
// A detector failure propagates unchanged; it is never retried here.
func (v *Visualizer) Run(ctx context.Context, batch []gocv.Mat) ([]Output, error) {
	sets, err := v.det.Infer(ctx, batch)
	if err != nil {
		return nil, err
	}
	if len(sets) != len(batch) {
		return nil, errors.Errorf("detector returned %d sets for %d images", len(sets), len(batch))
	}

	outputs := make([]Output, 0, len(batch))
	for i := range batch {
		out, err := v.renderOne(batch[i], sets[i])
		if err != nil {
			for j := range outputs {
				outputs[j].Image.Close()
			}
			return nil, err
		}
		outputs = append(outputs, out)
	}
	return outputs, nil
}

func (v *Visualizer) renderOne(img gocv.Mat, dets detection.Set) (Output, error) {
	top, err := detection.Select(dets, v.opts.Thresholds)
	if err != nil {
		return Output{}, err
	}

	if v.opts.MaskHeatmaps {
		size := img.Size()
		heat, err := render.Montage(top, v.opts.MasksPerDim, size[1], size[0])
		if err != nil {
			return Output{}, err
		}
		return Output{Image: heat, Data: EmptyResult()}, nil
	}

	result := render.Boxes(img, top, v.opts.Palette)

	var areas []int
	if v.opts.DrawMasks {
		composited, maskAreas := render.Masks(result, top, v.opts.Palette)
		result.Close()
		result = composited
		areas = maskAreas
	}

	if v.opts.DrawKeypoints {
		annotated := render.Keypoints(result, top, v.opts.KeypointThreshold)
		result.Close()
		result = annotated
	}

	if v.opts.ShowLabels {
		labeled := render.Labels(result, top, v.opts.Categories, v.opts.Palette, v.opts.ShowScores)
		result.Close()
		result = labeled
	}

	return Output{Image: result, Data: buildResult(top, areas)}, nil
}
