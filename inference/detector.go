// Package inference - the detector boundary and its backends.
package inference

import (
	"context"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"

	"github.com/nvr-ai/go-instseg/detection"
)

// ErrUnsupportedOperation indicates an overlay was requested that the
// detector is not configured to produce (masks or keypoints). It is
// reported to the caller and never retried.
var ErrUnsupportedOperation = errors.New("unsupported operation")

// Capabilities reports which optional outputs a detector produces.
type Capabilities struct {
	Masks     bool
	Keypoints bool
}

// Detector is the narrow boundary to the external segmentation model. A
// single call either returns one detection set per input image, in input
// order, or fails; the failure propagates unchanged to the caller.
type Detector interface {
	// Infer runs the model on a batch of raw BGR frames. Preprocessing is
	// the backend's responsibility: each backend applies the transform its
	// checkpoint was trained with.
	Infer(ctx context.Context, batch []gocv.Mat) ([]detection.Set, error)

	// Capabilities reports the optional outputs this detector produces.
	Capabilities() Capabilities

	// Close releases backend resources.
	Close() error
}
