package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/opengateware/pocket-release/internal/config"
	"github.com/opengateware/pocket-release/internal/logger"
	"github.com/opengateware/pocket-release/internal/service/release"
	"github.com/opengateware/pocket-release/internal/version"
)

var (
	// manifestPath to the project manifest file.
	manifestPath string
	// target overrides the TARGET environment variable.
	target string
	// workspace overrides the GITHUB_WORKSPACE environment variable.
	workspace string
	// skipBitstream disables the bitstream reversal step.
	skipBitstream bool
	// logLevel sets the minimum logging level.
	logLevel string

	// rootCmd represents the base command for publishing staged packages.
	rootCmd = &cobra.Command{
		Use:   "pocket-publish",
		Short: "Package, upload and announce an already staged release",
		Long: `Packages an already staged tree and publishes the result.

The compiled bitstream is bit-reversed into the staged tree, release and
metadata archives are produced, uploaded to the repository release for
the run's tag and announced on every configured webhook. Run
pocket-stage first, or use pocket-release for the complete flow in one
step.`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			if level, ok := logger.ParseLogLevel(logLevel); ok {
				logger.SetLevel(level)
			}

			run := config.ResolveRunContext()
			if target != "" {
				run.Target = target
			}

			if workspace != "" {
				run.Workspace = workspace
			}

			options := &release.Options{
				ManifestPath:  manifestPath,
				Run:           run,
				SkipBitstream: skipBitstream,
			}

			return release.RunPublish(ctx, options)
		},
	}
)

// Execute runs the pocket-publish CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Setup command flags with consistent naming and descriptions.
	rootCmd.Flags().StringVarP(&manifestPath, "manifest", "m", "",
		"path to the project manifest (defaults to "+config.DefaultManifestFilename+" in the workspace)")
	rootCmd.Flags().StringVarP(&target, "target", "t", "", "release target (overrides TARGET)")
	rootCmd.Flags().StringVarP(&workspace, "workspace", "w", "", "workspace root (overrides GITHUB_WORKSPACE)")
	rootCmd.Flags().BoolVar(&skipBitstream, "skip-bitstream", false, "skip the bitstream reversal step")
	rootCmd.Flags().StringVarP(&logLevel, "log-level", "l", "", "minimum logging level (debug, info, warn, error)")
}
