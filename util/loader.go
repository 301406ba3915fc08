// Package util - input file handling.
package util

import (
	"bytes"
	"image"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/chai2010/webp"
	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// ImageFile represents one input image.
type ImageFile struct {
	// Path is the path to the image file.
	Path string
	// Data is the raw bytes of the image file.
	Data []byte
}

// LoadDirectoryImageFiles reads all supported image files from a directory,
// ordered by file name so batches are deterministic.
func LoadDirectoryImageFiles(dir string) ([]ImageFile, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var images []ImageFile
	for _, file := range files {
		if file.IsDir() || !SupportedImage(file.Name()) {
			continue
		}
		imgPath := filepath.Join(dir, file.Name())
		data, readErr := os.ReadFile(imgPath)
		if readErr != nil {
			return nil, readErr
		}
		images = append(images, ImageFile{Path: imgPath, Data: data})
	}

	sort.Slice(images, func(i, j int) bool {
		return images[i].Path < images[j].Path
	})

	return images, nil
}

// SupportedImage reports whether the file name has a loadable extension.
func SupportedImage(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jpg", ".jpeg", ".png", ".bmp", ".webp":
		return true
	}
	return false
}

// Decode turns the raw bytes into a BGR Mat. WebP goes through its own
// decoder; everything else through OpenCV.
func (f ImageFile) Decode() (gocv.Mat, error) {
	if strings.EqualFold(filepath.Ext(f.Path), ".webp") {
		img, err := webp.Decode(bytes.NewReader(f.Data))
		if err != nil {
			return gocv.NewMat(), errors.Wrapf(err, "decoding webp %s", f.Path)
		}
		return matFromImage(img)
	}

	mat, err := gocv.IMDecode(f.Data, gocv.IMReadColor)
	if err != nil || mat.Empty() {
		if !mat.Empty() {
			mat.Close()
		}
		return gocv.NewMat(), errors.Errorf("failed to decode image %s", f.Path)
	}
	return mat, nil
}

func matFromImage(img image.Image) (gocv.Mat, error) {
	rgb, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return gocv.NewMat(), err
	}
	defer rgb.Close()

	bgr := gocv.NewMat()
	gocv.CvtColor(rgb, &bgr, gocv.ColorRGBToBGR)
	return bgr, nil
}
