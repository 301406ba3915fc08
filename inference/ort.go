package inference

import (
	"context"
	"image"
	"sync"

	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"
	"gocv.io/x/gocv"

	"github.com/nvr-ai/go-instseg/detection"
	"github.com/nvr-ai/go-instseg/images"
)

// ORTConfig configures the ONNX Runtime backend.
type ORTConfig struct {
	// ModelPath is the exported .onnx graph.
	ModelPath string
	// SharedLibPath points at the onnxruntime shared library. Empty keeps
	// the library default.
	SharedLibPath string
	// Preprocess is the transform of the checkpoint.
	Preprocess images.Preprocessor
	// MaskThreshold binarizes the mask head output, typically 0.5.
	MaskThreshold float32
	// WithMasks toggles reading the mask output tensor.
	WithMasks bool
	// WithKeypoints toggles reading the keypoint output tensor.
	WithKeypoints bool
	// IntraOpThreads / InterOpThreads bound runtime parallelism; zero keeps
	// the runtime default.
	IntraOpThreads int
	InterOpThreads int
}

// Tensor names of the exported graph.
const (
	tensorInput     = "images"
	tensorBoxes     = "boxes"
	tensorLabels    = "labels"
	tensorScores    = "scores"
	tensorMaskProbs = "masks"
	tensorKeypoints = "keypoints"
)

var ortInitOnce sync.Once

// ORTDetector runs an exported instance-segmentation graph through ONNX
// Runtime. Box output is expected in the resized input space; it is scaled
// back to the original frame.
type ORTDetector struct {
	cfg     ORTConfig
	mu      sync.Mutex
	session *ort.DynamicAdvancedSession
	closed  bool
}

// NewORTDetector initializes the runtime environment (once per process) and
// opens a session for the model.
func NewORTDetector(cfg ORTConfig) (*ORTDetector, error) {
	if cfg.MaskThreshold == 0 {
		cfg.MaskThreshold = 0.5
	}

	var initErr error
	ortInitOnce.Do(func() {
		if cfg.SharedLibPath != "" {
			ort.SetSharedLibraryPath(cfg.SharedLibPath)
		}
		initErr = ort.InitializeEnvironment()
	})
	if initErr != nil {
		return nil, errors.Wrap(initErr, "initializing onnxruntime environment")
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, errors.Wrap(err, "creating session options")
	}
	defer options.Destroy()

	if cfg.IntraOpThreads > 0 {
		if err := options.SetIntraOpNumThreads(cfg.IntraOpThreads); err != nil {
			return nil, errors.Wrap(err, "setting intra-op threads")
		}
	}
	if cfg.InterOpThreads > 0 {
		if err := options.SetInterOpNumThreads(cfg.InterOpThreads); err != nil {
			return nil, errors.Wrap(err, "setting inter-op threads")
		}
	}
	if err := options.SetGraphOptimizationLevel(ort.GraphOptimizationLevelEnableExtended); err != nil {
		return nil, errors.Wrap(err, "setting graph optimization level")
	}

	outputs := []string{tensorBoxes, tensorLabels, tensorScores}
	if cfg.WithMasks {
		outputs = append(outputs, tensorMaskProbs)
	}
	if cfg.WithKeypoints {
		outputs = append(outputs, tensorKeypoints)
	}

	session, err := ort.NewDynamicAdvancedSession(
		cfg.ModelPath,
		[]string{tensorInput},
		outputs,
		options,
	)
	if err != nil {
		return nil, errors.Wrapf(err, "creating session for %s", cfg.ModelPath)
	}

	return &ORTDetector{cfg: cfg, session: session}, nil
}

// Capabilities implements Detector.
func (d *ORTDetector) Capabilities() Capabilities {
	return Capabilities{Masks: d.cfg.WithMasks, Keypoints: d.cfg.WithKeypoints}
}

// Infer implements Detector. Frames run through the graph one at a time;
// the exported graph has a fixed batch dimension of one.
func (d *ORTDetector) Infer(ctx context.Context, batch []gocv.Mat) ([]detection.Set, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil, errors.New("detector closed")
	}

	sets := make([]detection.Set, 0, len(batch))
	for i := range batch {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		set, err := d.inferOne(batch[i])
		if err != nil {
			return nil, err
		}
		sets = append(sets, set)
	}
	return sets, nil
}

func (d *ORTDetector) inferOne(frame gocv.Mat) (detection.Set, error) {
	size := frame.Size()
	imgH, imgW := size[0], size[1]
	tw, th := images.TargetSize(imgW, imgH, d.cfg.Preprocess.MinSize, d.cfg.Preprocess.MaxSize)

	input, err := ort.NewEmptyTensor[float32](ort.NewShape(1, 3, int64(th), int64(tw)))
	if err != nil {
		return nil, errors.Wrap(err, "allocating input tensor")
	}
	defer input.Destroy()

	goImg, err := frame.ToImage()
	if err != nil {
		return nil, errors.Wrap(err, "converting frame")
	}
	if _, _, err := d.cfg.Preprocess.FillTensor(goImg, input); err != nil {
		return nil, err
	}

	outputs := make([]ort.Value, d.outputCount())
	if err := d.session.Run([]ort.Value{input}, outputs); err != nil {
		return nil, errors.Wrap(err, "running inference")
	}
	defer func() {
		for _, o := range outputs {
			if o != nil {
				o.Destroy()
			}
		}
	}()

	// Boxes come back in the resized input space.
	sx := float32(imgW) / float32(tw)
	sy := float32(imgH) / float32(th)
	return d.parseOutputs(outputs, sx, sy, imgW, imgH)
}

func (d *ORTDetector) outputCount() int {
	n := 3
	if d.cfg.WithMasks {
		n++
	}
	if d.cfg.WithKeypoints {
		n++
	}
	return n
}

func (d *ORTDetector) parseOutputs(outputs []ort.Value, sx, sy float32, imgW, imgH int) (detection.Set, error) {
	boxes, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return nil, errors.New("unexpected boxes tensor type")
	}
	labels, ok := outputs[1].(*ort.Tensor[int64])
	if !ok {
		return nil, errors.New("unexpected labels tensor type")
	}
	scores, ok := outputs[2].(*ort.Tensor[float32])
	if !ok {
		return nil, errors.New("unexpected scores tensor type")
	}

	boxData := boxes.GetData()
	labelData := labels.GetData()
	scoreData := scores.GetData()

	n := len(labelData)
	if len(boxData) < n*4 || len(scoreData) < n {
		return nil, errors.Errorf("inconsistent output sizes: %d boxes, %d labels, %d scores",
			len(boxData)/4, n, len(scoreData))
	}

	dets := make(detection.Set, 0, n)
	for i := 0; i < n; i++ {
		x1 := clamp(int(boxData[i*4+0]*sx), 0, imgW)
		y1 := clamp(int(boxData[i*4+1]*sy), 0, imgH)
		x2 := clamp(int(boxData[i*4+2]*sx), 0, imgW)
		y2 := clamp(int(boxData[i*4+3]*sy), 0, imgH)

		dets = append(dets, detection.Detection{
			Box:   image.Rect(x1, y1, x2, y2),
			Label: int(labelData[i]),
			Score: scoreData[i],
		})
	}

	next := 3
	if d.cfg.WithMasks {
		if masks, ok := outputs[next].(*ort.Tensor[float32]); ok {
			d.attachMasks(dets, masks, imgW, imgH)
		}
		next++
	}
	if d.cfg.WithKeypoints {
		if kps, ok := outputs[next].(*ort.Tensor[float32]); ok {
			attachKeypoints(dets, kps.GetData(), sx, sy)
		}
	}
	return dets, nil
}

// attachMasks pastes the [N,1,mh,mw] mask head output into full-resolution
// binary masks.
func (d *ORTDetector) attachMasks(dets detection.Set, masks *ort.Tensor[float32], imgW, imgH int) {
	shape := masks.GetShape()
	if len(shape) != 4 {
		return
	}
	mh, mw := int(shape[2]), int(shape[3])
	data := masks.GetData()

	stride := mh * mw
	for i := range dets {
		off := i * stride
		if off+stride > len(data) {
			break
		}
		dets[i].Mask = PasteMask(data[off:off+stride], mw, mh, dets[i].Box, imgW, imgH, d.cfg.MaskThreshold)
	}
}

// attachKeypoints reads the [N,17,3] keypoint output, scaling positions back
// to the original frame. The third component is the confidence logit.
func attachKeypoints(dets detection.Set, data []float32, sx, sy float32) {
	stride := detection.NumJoints * 3
	for i := range dets {
		off := i * stride
		if off+stride > len(data) {
			break
		}
		kps := make(detection.Keypoints, detection.NumJoints)
		for j := 0; j < detection.NumJoints; j++ {
			kps[j] = detection.Keypoint{
				X:     data[off+j*3+0] * sx,
				Y:     data[off+j*3+1] * sy,
				Score: data[off+j*3+2],
			}
		}
		dets[i].Keypoints = kps
	}
}

// Close implements Detector.
func (d *ORTDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil
	}
	d.closed = true
	return d.session.Destroy()
}
