package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/opengateware/pocket-release/internal/config"
	"github.com/opengateware/pocket-release/internal/logger"
	"github.com/opengateware/pocket-release/internal/service/packager"
	"github.com/opengateware/pocket-release/internal/version"
)

var (
	// manifestPath to the project manifest file.
	manifestPath string
	// target overrides the TARGET environment variable.
	target string
	// workspace overrides the GITHUB_WORKSPACE environment variable.
	workspace string
	// logLevel sets the minimum logging level.
	logLevel string

	// rootCmd represents the base command for staging a core release.
	rootCmd = &cobra.Command{
		Use:   "pocket-stage",
		Short: "Stage packaging sources for a core release",
		Long: `Stages the packaging sources for a release target without
producing archives.

The stage and release folders are rebuilt, the target's packaging
sources are merged into the stage folder, unwanted files are cleaned out
and the staged core.json gets the release version and date. Use this to
inspect the staged tree before packaging, or as the first half of a
release split across CI jobs.`,
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

			options := &packager.Options{
				ManifestPath: manifestPath,
				Run:          run,
			}

			return packager.RunStage(ctx, options)
		},
	}
)

// Execute runs the pocket-stage CLI and exits with non-zero status on error.
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
	rootCmd.Flags().StringVarP(&logLevel, "log-level", "l", "", "minimum logging level (debug, info, warn, error)")
}
