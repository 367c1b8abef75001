package release

import (
	"context"
	"errors"
	"fmt"

	"github.com/opengateware/pocket-release/internal/config"
	"github.com/opengateware/pocket-release/internal/logger"
	"github.com/opengateware/pocket-release/internal/service/announce"
	"github.com/opengateware/pocket-release/internal/service/packager"
	"github.com/opengateware/pocket-release/internal/service/publisher"
)

// Options contains inputs for the release entry points.
type Options struct {
	// ManifestPath optionally overrides the manifest location
	// (defaults to gateware.json in the workspace root).
	ManifestPath string
	// Run is the resolved environment for this run.
	Run *config.RunContext
	// SkipBitstream disables the bitstream reversal step.
	SkipBitstream bool
	// PublisherOptions tweak the release API client, mainly for tests.
	PublisherOptions []publisher.Option
	// AnnounceOptions tweak the webhook sender, mainly for tests.
	AnnounceOptions []announce.Option
}

// errRunContextRequired is returned when no run context was provided.
var errRunContextRequired = errors.New("run context is not set")

// Run executes the complete release flow: staging, packaging, release
// upload and announcement.
func Run(ctx context.Context, opts *Options) error {
	manifest, err := prepare(opts)
	if err != nil {
		return err
	}

	result, err := packager.Run(ctx, &packager.Options{
		Manifest:      manifest,
		Run:           opts.Run,
		SkipBitstream: opts.SkipBitstream,
	})
	if err != nil {
		return err
	}

	return deliver(ctx, opts, manifest, result)
}

// RunPublish uploads and announces packages built from an already staged
// tree, running only bitstream reversal and archive creation first.
func RunPublish(ctx context.Context, opts *Options) error {
	manifest, err := prepare(opts)
	if err != nil {
		return err
	}

	result, err := packager.RunPackage(ctx, &packager.Options{
		Manifest:      manifest,
		Run:           opts.Run,
		SkipBitstream: opts.SkipBitstream,
	})
	if err != nil {
		return err
	}

	return deliver(ctx, opts, manifest, result)
}

// prepare validates the run context for publishing and loads the manifest
// so both the packager and the announcement share one copy.
func prepare(opts *Options) (*config.Manifest, error) {
	if opts.Run == nil {
		return nil, errRunContextRequired
	}

	if err := opts.Run.ValidatePublishing(); err != nil {
		return nil, err
	}

	if opts.ManifestPath != "" {
		return config.LoadManifest(opts.ManifestPath)
	}

	return config.LoadManifestFromWorkspace(opts.Run.Workspace)
}

// deliver uploads the produced archives to the release and announces the
// download links on the configured webhooks.
func deliver(ctx context.Context, opts *Options, manifest *config.Manifest, result *packager.Result) error {
	ctx = logger.WithName(ctx, "pocket-publish")

	files := result.Files()
	if len(files) == 0 {
		logger.Warn(ctx, "No packages were produced, nothing to publish")
		return nil
	}

	client, err := publisher.NewClient(
		opts.Run.APIBaseURL, opts.Run.Repository, opts.Run.Version, opts.Run.Token,
		opts.PublisherOptions...)
	if err != nil {
		return fmt.Errorf("initialize release client: %w", err)
	}

	downloadURLs, err := client.Publish(ctx, result.ReleaseDir, files)
	if err != nil {
		return fmt.Errorf("publishing failed: %w", err)
	}

	sender := announce.NewSender(opts.AnnounceOptions...)

	if err = sender.Send(ctx, &announce.Announcement{
		Manifest:     manifest,
		Run:          opts.Run,
		DownloadURLs: downloadURLs,
	}); err != nil {
		return fmt.Errorf("announcement failed: %w", err)
	}

	logger.Info(ctx, "Release published successfully")

	return nil
}
