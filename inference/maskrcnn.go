package inference

import (
	"context"
	"image"
	"log/slog"
	"os"
	"sync"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"

	"github.com/nvr-ai/go-instseg/detection"
	"github.com/nvr-ai/go-instseg/images"
)

// MaskRCNNConfig configures the OpenCV DNN backend.
type MaskRCNNConfig struct {
	// ModelPath is the frozen inference graph.
	ModelPath string
	// ConfigPath is the optional graph config pbtxt.
	ConfigPath string
	// Preprocess is the transform of the checkpoint.
	Preprocess images.Preprocessor
	// MaskThreshold binarizes the mask head output when pasting instance
	// masks, typically 0.5.
	MaskThreshold float32
	// WithMasks toggles reading the mask head output.
	WithMasks bool
}

// MaskRCNN runs a Mask R-CNN style graph through gocv.ReadNet. It produces
// boxes, labels and scores, plus full-resolution instance masks when
// configured with masks.
type MaskRCNN struct {
	cfg         MaskRCNNConfig
	mu          sync.Mutex
	net         gocv.Net
	initialized bool
}

// Output layer names of the TensorFlow Mask R-CNN export.
const (
	layerDetections = "detection_out_final"
	layerMasks      = "detection_masks"
)

// NewMaskRCNN loads the model and prepares it for inference.
func NewMaskRCNN(cfg MaskRCNNConfig) (*MaskRCNN, error) {
	if _, err := os.Stat(cfg.ModelPath); os.IsNotExist(err) {
		return nil, errors.Errorf("model file not found: %s", cfg.ModelPath)
	}
	if cfg.MaskThreshold == 0 {
		cfg.MaskThreshold = 0.5
	}

	net := gocv.ReadNet(cfg.ModelPath, cfg.ConfigPath)
	if net.Empty() {
		return nil, errors.Errorf("failed to load model: %s", cfg.ModelPath)
	}
	net.SetPreferableBackend(gocv.NetBackendOpenCV)
	net.SetPreferableTarget(gocv.NetTargetCPU)

	slog.Info("mask r-cnn model loaded", "path", cfg.ModelPath, "masks", cfg.WithMasks)

	return &MaskRCNN{cfg: cfg, net: net, initialized: true}, nil
}

// Capabilities implements Detector. The DNN export carries no keypoint head.
func (m *MaskRCNN) Capabilities() Capabilities {
	return Capabilities{Masks: m.cfg.WithMasks}
}

// Infer implements Detector. Images are processed sequentially; the DNN
// graph takes one frame at a time.
func (m *MaskRCNN) Infer(ctx context.Context, batch []gocv.Mat) ([]detection.Set, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.initialized {
		return nil, errors.New("detector not initialized")
	}

	sets := make([]detection.Set, 0, len(batch))
	for _, img := range batch {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		set, err := m.inferOne(img)
		if err != nil {
			return nil, err
		}
		sets = append(sets, set)
	}
	return sets, nil
}

func (m *MaskRCNN) inferOne(img gocv.Mat) (detection.Set, error) {
	blob, err := m.cfg.Preprocess.Blob(img)
	if err != nil {
		return nil, err
	}
	defer blob.Close()

	m.net.SetInput(blob, "")

	layers := []string{layerDetections}
	if m.cfg.WithMasks {
		layers = append(layers, layerMasks)
	}
	outs := m.net.ForwardLayers(layers)
	if len(outs) == 0 {
		return nil, errors.New("inference returned no outputs")
	}
	defer func() {
		for i := range outs {
			outs[i].Close()
		}
	}()

	size := img.Size()
	imgH, imgW := size[0], size[1]

	dets := m.parseDetections(outs[0], imgW, imgH)
	if m.cfg.WithMasks && len(outs) > 1 {
		m.attachMasks(dets, outs[1], imgW, imgH)
	}
	return dets, nil
}

// parseDetections reads the [1,1,N,7] detection output: each row is
// (imageID, label, score, x1, y1, x2, y2) with box coordinates normalized
// to [0,1].
func (m *MaskRCNN) parseDetections(out gocv.Mat, imgW, imgH int) detection.Set {
	data, err := out.DataPtrFloat32()
	if err != nil {
		return detection.Set{}
	}

	const stride = 7
	n := out.Total() / stride

	dets := make(detection.Set, 0, n)
	for i := 0; i < n; i++ {
		row := data[i*stride : (i+1)*stride]
		label := int(row[1])
		score := row[2]
		if label <= 0 || score <= 0 {
			continue
		}

		x1 := clamp(int(row[3]*float32(imgW)), 0, imgW)
		y1 := clamp(int(row[4]*float32(imgH)), 0, imgH)
		x2 := clamp(int(row[5]*float32(imgW)), 0, imgW)
		y2 := clamp(int(row[6]*float32(imgH)), 0, imgH)
		if x2 <= x1 || y2 <= y1 {
			continue
		}

		dets = append(dets, detection.Detection{
			Box:   image.Rect(x1, y1, x2, y2),
			Label: label,
			Score: score,
		})
	}
	return dets
}

// attachMasks reads the [N, numClasses, mh, mw] mask head output and pastes
// each instance's class channel into a full-resolution binary mask.
func (m *MaskRCNN) attachMasks(dets detection.Set, out gocv.Mat, imgW, imgH int) {
	dims := out.Size()
	if len(dims) != 4 {
		return
	}
	numClasses, mh, mw := dims[1], dims[2], dims[3]

	data, err := out.DataPtrFloat32()
	if err != nil {
		return
	}

	instanceStride := numClasses * mh * mw
	for i := range dets {
		if i*instanceStride >= len(data) {
			break
		}
		ch := dets[i].Label
		if ch >= numClasses {
			ch = 0
		}
		off := i*instanceStride + ch*mh*mw
		prob := data[off : off+mh*mw]
		dets[i].Mask = PasteMask(prob, mw, mh, dets[i].Box, imgW, imgH, m.cfg.MaskThreshold)
	}
}

// Close implements Detector.
func (m *MaskRCNN) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.initialized {
		return nil
	}
	m.initialized = false
	slog.Info("mask r-cnn model closed", "path", m.cfg.ModelPath)
	return m.net.Close()
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
