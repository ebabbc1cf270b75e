package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/pack-publisher/internal/config"
	"github.com/oshokin/pack-publisher/internal/logger"
	"github.com/oshokin/pack-publisher/internal/service/pipeline"
	"github.com/oshokin/pack-publisher/internal/version"
)

var (
	// configPath to the configuration YAML file.
	configPath string

	// assetsRoot overrides the configured resource pack directory.
	assetsRoot string

	// dryRun stops the pipeline after resolution.
	dryRun bool

	// logLevel sets the minimum level for run output.
	logLevel string

	// rootCmd represents the base command for the publishing pipeline.
	rootCmd = &cobra.Command{
		Use:   "pack-publisher [project-id]",
		Short: "Publish the resource pack for every unpublished stable game version",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			applyLogLevel()

			options := &pipeline.Options{
				ConfigPath: configPath,
				AssetsRoot: assetsRoot,
				DryRun:     dryRun,
			}
			if len(args) > 0 {
				options.ProjectID = args[0]
			}

			return pipeline.Run(ctx, options)
		},
	}
)

// Execute runs the pack-publisher CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// applyLogLevel parses the flag and configures the global logger.
func applyLogLevel() {
	if level, ok := logger.ParseLogLevel(logLevel); ok {
		logger.SetLevel(level)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Setup command flags with consistent naming and descriptions.
	rootCmd.Flags().StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	rootCmd.Flags().StringVarP(&assetsRoot, "assets", "a", "", "path to the resource pack directory")
	rootCmd.Flags().BoolVar(&dryRun, "dry-run", false, "resolve missing versions without uploading")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
}
