package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"gocv.io/x/gocv"

	"github.com/nvr-ai/go-instseg/config"
	"github.com/nvr-ai/go-instseg/detection"
	"github.com/nvr-ai/go-instseg/images"
	"github.com/nvr-ai/go-instseg/inference"
	"github.com/nvr-ai/go-instseg/pipeline"
	"github.com/nvr-ai/go-instseg/util"
)

var detectCmd = &cobra.Command{
	Use:   "detect [images...]",
	Short: "Run the detector over images and render overlays",
	Long: `Runs inference on the given image files (or every image in --input-dir),
selects detections above the per-class confidence thresholds and writes the
annotated images plus a JSON result per image into the output directory.

With --montage the per-instance mask heatmaps are tiled into a colormapped
grid instead of compositing overlays onto the frame.`,
	RunE: runDetect,
}

func init() {
	detectCmd.Flags().String("input-dir", "", "directory of input images (alternative to file arguments)")
	detectCmd.Flags().String("output-dir", "out", "directory for annotated images and results")
	detectCmd.Flags().Bool("montage", false, "render the diagnostic mask heatmap montage")
	detectCmd.Flags().Int("masks-per-dim", 2, "montage grid dimension")
	detectCmd.Flags().Bool("show-scores", true, "append scores to rendered labels")

	mustBind("render.montage", detectCmd.Flags().Lookup("montage"))
	mustBind("render.masks_per_dim", detectCmd.Flags().Lookup("masks-per-dim"))
	mustBind("render.show_scores", detectCmd.Flags().Lookup("show-scores"))
	mustBind("output_dir", detectCmd.Flags().Lookup("output-dir"))

	rootCmd.AddCommand(detectCmd)
}

func runDetect(cmd *cobra.Command, args []string) error {
	cfg := getConfig()

	inputDir, _ := cmd.Flags().GetString("input-dir")
	files, err := collectInputs(args, inputDir)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return errors.New("no input images: pass image files or --input-dir")
	}

	det, err := buildDetector(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := det.Close(); cerr != nil {
			slog.Warn("closing detector", "error", cerr)
		}
	}()

	vis, err := pipeline.NewVisualizer(det, pipeline.Options{
		Thresholds:    detection.Thresholds(cfg.Thresholds),
		Categories:    detection.CategoryTable(cfg.Categories),
		DrawMasks:     cfg.Model.Masks && !cfg.Render.Montage,
		DrawKeypoints: cfg.Model.Keypoints,
		ShowLabels:    cfg.Render.ShowLabels,
		ShowScores:    cfg.Render.ShowScores,
		MaskHeatmaps:  cfg.Render.Montage,
		MasksPerDim:   cfg.Render.MasksPerDim,
	})
	if err != nil {
		return err
	}

	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return errors.Wrapf(err, "creating output directory %s", cfg.OutputDir)
	}

	batch := make([]gocv.Mat, 0, len(files))
	defer func() {
		for i := range batch {
			batch[i].Close()
		}
	}()
	for _, f := range files {
		mat, err := f.Decode()
		if err != nil {
			return err
		}
		batch = append(batch, mat)
	}

	slog.Info("running detection", "images", len(batch), "backend", cfg.Model.Backend, "montage", cfg.Render.Montage)

	outputs, err := vis.Run(context.Background(), batch)
	if err != nil {
		return err
	}

	for i, out := range outputs {
		if err := writeOutput(cfg.OutputDir, files[i].Path, out); err != nil {
			return err
		}
		out.Image.Close()
	}

	slog.Info("done", "outputs", len(outputs), "dir", cfg.OutputDir)
	return nil
}

func collectInputs(args []string, inputDir string) ([]util.ImageFile, error) {
	if inputDir != "" {
		return util.LoadDirectoryImageFiles(inputDir)
	}

	files := make([]util.ImageFile, 0, len(args))
	for _, path := range args {
		if !util.SupportedImage(path) {
			return nil, errors.Errorf("unsupported image file: %s", path)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		files = append(files, util.ImageFile{Path: path, Data: data})
	}
	return files, nil
}

func buildDetector(cfg *config.Config) (inference.Detector, error) {
	pre := images.Preprocessor{
		MinSize:  cfg.Model.MinSize,
		MaxSize:  cfg.Model.MaxSize,
		Mean:     [3]float32{cfg.Model.Mean[0], cfg.Model.Mean[1], cfg.Model.Mean[2]},
		Std:      [3]float32{cfg.Model.Std[0], cfg.Model.Std[1], cfg.Model.Std[2]},
		ToBGR255: cfg.Model.ToBGR255,
	}

	switch cfg.Model.Backend {
	case "opencv":
		return inference.NewMaskRCNN(inference.MaskRCNNConfig{
			ModelPath:     cfg.Model.Path,
			ConfigPath:    cfg.Model.ConfigPath,
			Preprocess:    pre,
			MaskThreshold: cfg.Model.MaskThreshold,
			WithMasks:     cfg.Model.Masks,
		})
	case "onnxruntime":
		return inference.NewORTDetector(inference.ORTConfig{
			ModelPath:     cfg.Model.Path,
			SharedLibPath: cfg.Model.SharedLibPath,
			Preprocess:    pre,
			MaskThreshold: cfg.Model.MaskThreshold,
			WithMasks:     cfg.Model.Masks,
			WithKeypoints: cfg.Model.Keypoints,
		})
	default:
		return nil, errors.Errorf("unknown model backend %q", cfg.Model.Backend)
	}
}

func writeOutput(dir, srcPath string, out pipeline.Output) error {
	base := strings.TrimSuffix(filepath.Base(srcPath), filepath.Ext(srcPath))

	imgPath := filepath.Join(dir, fmt.Sprintf("%s_annotated.png", base))
	if ok := gocv.IMWrite(imgPath, out.Image); !ok {
		return errors.Errorf("failed to write %s", imgPath)
	}

	data, err := json.MarshalIndent(out.Data, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encoding result")
	}
	jsonPath := filepath.Join(dir, fmt.Sprintf("%s_result.json", base))
	if err := os.WriteFile(jsonPath, data, 0o644); err != nil {
		return errors.Wrapf(err, "writing %s", jsonPath)
	}

	slog.Debug("wrote output", "image", imgPath, "result", jsonPath)
	return nil
}
