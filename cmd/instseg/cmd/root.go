// Package cmd - the instseg command line interface.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/nvr-ai/go-instseg/config"
)

var (
	configLoader *config.Loader
	globalConfig *config.Config
	cfgFile      string
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "instseg",
	Short: "Instance segmentation visualization pipeline",
	Long: `Runs a pretrained instance-segmentation detector over images and renders
boxes, instance masks, class labels, scores and optional keypoints back onto
them, or tiles per-instance mask heatmaps into a diagnostic montage.

Examples:
  instseg detect frame.jpg
  instseg detect --input-dir ./frames --output-dir ./out
  instseg detect --montage --masks-per-dim 2 frame.jpg`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default searches ., $HOME/.config/instseg)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")

	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		if globalConfig == nil {
			initConfig()
		}

		var level slog.Level
		switch globalConfig.LogLevel {
		case "debug":
			level = slog.LevelDebug
		case "warn":
			level = slog.LevelWarn
		case "error":
			level = slog.LevelError
		default:
			level = slog.LevelInfo
		}
		logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
		slog.SetDefault(logger)
	}
}

func initConfig() {
	if configLoader == nil {
		configLoader = config.NewLoader()
	}
	mustBind("log_level", rootCmd.PersistentFlags().Lookup("log-level"))

	var err error
	if cfgFile != "" {
		globalConfig, err = configLoader.LoadFile(cfgFile)
	} else {
		globalConfig, err = configLoader.Load()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error loading configuration: %v\n", err)
		os.Exit(1)
	}
}

// mustBind wires a cobra flag into the config loader's viper instance.
func mustBind(key string, flag *pflag.Flag) {
	if flag == nil {
		return
	}
	if err := getViper().BindPFlag(key, flag); err != nil {
		fmt.Fprintf(os.Stderr, "error binding flag %s: %v\n", key, err)
		os.Exit(1)
	}
}

// getConfig returns the loaded configuration, initializing it on first use.
func getConfig() *config.Config {
	if globalConfig == nil {
		initConfig()
	}
	return globalConfig
}

// getViper exposes the loader's viper instance for flag binding.
func getViper() *viper.Viper {
	if configLoader == nil {
		configLoader = config.NewLoader()
	}
	return configLoader.Viper()
}
