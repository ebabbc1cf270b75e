package cmd

import (
	"context"
	"fmt"
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

	// formatOverride skips table resolution when positive.
	formatOverride int

	// outputPath is the destination archive path.
	outputPath string

	// rootCmd represents the base command for building one artifact locally.
	rootCmd = &cobra.Command{
		Use:   "pack-builder [game-version]",
		Short: "Build the pack archive for a single game version",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			gameVersion := args[0]

			output := outputPath
			if output == "" {
				output = fmt.Sprintf("pack-%s.zip", gameVersion)
			}

			options := &pipeline.Options{
				ConfigPath: configPath,
				AssetsRoot: assetsRoot,
				// The builder has no destination side effects, so any
				// project identifier satisfies configuration validation.
				ProjectID: "local",
			}

			artifact, err := pipeline.BuildArtifact(ctx, options, gameVersion, formatOverride, output)
			if err != nil {
				return err
			}

			logger.InfoKV(ctx, "Artifact ready", "path", artifact.Path, "size", artifact.Size)

			return nil
		},
	}
)

// Execute runs the pack-builder CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Setup command flags with consistent naming and descriptions.
	rootCmd.Flags().StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	rootCmd.Flags().StringVarP(&assetsRoot, "assets", "a", "", "path to the resource pack directory")
	rootCmd.Flags().IntVarP(&formatOverride, "format", "f", 0, "pack format override (0 resolves from the table)")
	rootCmd.Flags().StringVarP(&outputPath, "output", "o", "", "output archive path (default pack-<version>.zip)")
}
