// Package config - configuration loading for the visualization pipeline.
package config

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"github.com/nvr-ai/go-instseg/detection"
)

// Config is the full configuration of the pipeline.
type Config struct {
	Model  ModelConfig  `mapstructure:"model"`
	Render RenderConfig `mapstructure:"render"`

	// Categories is the ordered category table; index 0 must be the
	// background entry.
	Categories []string `mapstructure:"categories"`
	// Thresholds holds one per-class minimum score per non-background
	// category, in category order.
	Thresholds []float32 `mapstructure:"thresholds"`

	OutputDir string `mapstructure:"output_dir"`
	LogLevel  string `mapstructure:"log_level"`
}

// ModelConfig selects and configures the detector backend.
type ModelConfig struct {
	// Backend is "opencv" (gocv DNN) or "onnxruntime".
	Backend    string `mapstructure:"backend"`
	Path       string `mapstructure:"path"`
	ConfigPath string `mapstructure:"config_path"`
	// SharedLibPath points at the onnxruntime shared library for the
	// onnxruntime backend.
	SharedLibPath string `mapstructure:"shared_lib_path"`

	// MinSize / MaxSize are the resize short-side target and long-side cap
	// of the checkpoint's training transform.
	MinSize int `mapstructure:"min_size"`
	MaxSize int `mapstructure:"max_size"`
	// Mean / Std are per-channel normalization constants, BGR order.
	Mean []float32 `mapstructure:"mean"`
	Std  []float32 `mapstructure:"std"`
	// ToBGR255 keeps BGR [0,255] input; false flips to RGB [0,1].
	ToBGR255 bool `mapstructure:"to_bgr255"`

	MaskThreshold float32 `mapstructure:"mask_threshold"`
	Masks         bool    `mapstructure:"masks"`
	Keypoints     bool    `mapstructure:"keypoints"`
}

// RenderConfig controls the overlay output.
type RenderConfig struct {
	ShowLabels bool `mapstructure:"show_labels"`
	ShowScores bool `mapstructure:"show_scores"`
	// Montage switches to the diagnostic mask heatmap grid.
	Montage     bool `mapstructure:"montage"`
	MasksPerDim int  `mapstructure:"masks_per_dim"`
}

// Default returns the configuration of the reference checkpoint.
func Default() Config {
	return Config{
		Model: ModelConfig{
			Backend:       "opencv",
			MinSize:       800,
			MaxSize:       1333,
			Mean:          []float32{102.9801, 115.9465, 122.7717},
			Std:           []float32{1, 1, 1},
			ToBGR255:      true,
			MaskThreshold: 0.5,
			Masks:         true,
		},
		Render: RenderConfig{
			ShowLabels:  true,
			ShowScores:  true,
			MasksPerDim: 2,
		},
		Categories: detection.DefaultCategories,
		Thresholds: []float32{0.5, 0.5, 0.5, 0.5, 0.5, 0.5},
		OutputDir:  "out",
		LogLevel:   "info",
	}
}

// Loader reads configuration from file, environment and bound flags.
type Loader struct {
	v *viper.Viper
}

// NewLoader builds a loader with defaults applied and environment binding
// under the INSTSEG_ prefix.
func NewLoader() *Loader {
	v := viper.New()
	v.SetConfigName("instseg")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/instseg")

	v.SetEnvPrefix("INSTSEG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v, Default())
	return &Loader{v: v}
}

func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("model.backend", d.Model.Backend)
	v.SetDefault("model.min_size", d.Model.MinSize)
	v.SetDefault("model.max_size", d.Model.MaxSize)
	v.SetDefault("model.mean", d.Model.Mean)
	v.SetDefault("model.std", d.Model.Std)
	v.SetDefault("model.to_bgr255", d.Model.ToBGR255)
	v.SetDefault("model.mask_threshold", d.Model.MaskThreshold)
	v.SetDefault("model.masks", d.Model.Masks)
	v.SetDefault("model.keypoints", d.Model.Keypoints)
	v.SetDefault("render.show_labels", d.Render.ShowLabels)
	v.SetDefault("render.show_scores", d.Render.ShowScores)
	v.SetDefault("render.montage", d.Render.Montage)
	v.SetDefault("render.masks_per_dim", d.Render.MasksPerDim)
	v.SetDefault("categories", []string(d.Categories))
	v.SetDefault("thresholds", d.Thresholds)
	v.SetDefault("output_dir", d.OutputDir)
	v.SetDefault("log_level", d.LogLevel)
}

// Viper exposes the underlying viper for flag binding.
func (l *Loader) Viper() *viper.Viper {
	return l.v
}

// Load searches the default config paths. A missing file is not an error;
// defaults, environment and flags still apply.
func (l *Loader) Load() (*Config, error) {
	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, errors.Wrap(err, "reading config")
		}
	}
	return l.unmarshal()
}

// LoadFile loads an explicit config file.
func (l *Loader) LoadFile(path string) (*Config, error) {
	l.v.SetConfigFile(path)
	if err := l.v.ReadInConfig(); err != nil {
		return nil, errors.Wrapf(err, "reading config %s", path)
	}
	return l.unmarshal()
}

func (l *Loader) unmarshal() (*Config, error) {
	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "unmarshaling config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate enforces the structural invariants of the configuration.
func (c *Config) Validate() error {
	if len(c.Categories) < 2 {
		return errors.Wrap(detection.ErrConfiguration, "category table needs a background entry and at least one class")
	}
	if c.Categories[0] != "__background" {
		return errors.Wrapf(detection.ErrConfiguration, "category index 0 must be __background, got %q", c.Categories[0])
	}
	if len(c.Thresholds) != len(c.Categories)-1 {
		return errors.Wrapf(detection.ErrConfiguration,
			"%d thresholds for %d non-background categories", len(c.Thresholds), len(c.Categories)-1)
	}
	if len(c.Model.Mean) != 3 || len(c.Model.Std) != 3 {
		return errors.Wrap(detection.ErrConfiguration, "model mean and std need exactly 3 channel entries")
	}
	switch c.Model.Backend {
	case "opencv", "onnxruntime":
	default:
		return errors.Wrapf(detection.ErrConfiguration, "unknown model backend %q", c.Model.Backend)
	}
	if c.Render.MasksPerDim <= 0 {
		return errors.Wrapf(detection.ErrConfiguration, "masks_per_dim must be positive, got %d", c.Render.MasksPerDim)
	}
	return nil
}
