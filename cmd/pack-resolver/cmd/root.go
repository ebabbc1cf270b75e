package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/pack-publisher/internal/config"
	"github.com/oshokin/pack-publisher/internal/service/pipeline"
	"github.com/oshokin/pack-publisher/internal/version"
)

var (
	// configPath to the configuration YAML file.
	configPath string

	// rootCmd represents the base command for resolving missing versions.
	// The missing set goes to stdout as JSON so CI workflows can consume it;
	// logs stay on stderr.
	rootCmd = &cobra.Command{
		Use:   "pack-resolver [project-id]",
		Short: "List stable game versions not yet published to the project",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(command *cobra.Command, args []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			options := &pipeline.Options{
				ConfigPath: configPath,
			}
			if len(args) > 0 {
				options.ProjectID = args[0]
			}

			candidates, err := pipeline.Resolve(ctx, options)
			if err != nil {
				return err
			}

			report, err := json.MarshalIndent(map[string]any{
				"missing": candidates,
			}, "", "  ")
			if err != nil {
				return fmt.Errorf("encode report: %w", err)
			}

			_, _ = fmt.Fprintln(command.OutOrStdout(), string(report))

			return nil
		},
	}
)

// Execute runs the pack-resolver CLI and exits with non-zero status on error.
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
}
